package llmstxt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillhubdev/skillhub/pkg/skill"
)

func TestGenerate(t *testing.T) {
	skills := map[string]*skill.Skill{
		"wxt-extensions": {
			Name:        "wxt-extensions",
			Description: "Build Chrome extensions with WXT",
			References: []skill.Reference{
				{Path: "references/testing.md", Title: "Testing WXT"},
			},
		},
		"cf-workers": {
			Name:        "cf-workers",
			Description: "Cloudflare Workers development",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, "Skill Corpus", skills))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Skill Corpus\n\n> 2 skills available in this corpus.\n"))

	cfIdx := strings.Index(out, "- [cf-workers](cf-workers/SKILL.md): Cloudflare Workers development")
	wxtIdx := strings.Index(out, "- [wxt-extensions](wxt-extensions/SKILL.md): Build Chrome extensions with WXT")
	require.True(t, cfIdx > 0)
	require.True(t, wxtIdx > cfIdx)

	assert.Contains(t, out, "  - [Testing WXT](wxt-extensions/references/testing.md)")
}

func TestGenerateSingular(t *testing.T) {
	skills := map[string]*skill.Skill{
		"only-one": {Name: "only-one", Description: "d"},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, "Corpus", skills))
	assert.Contains(t, buf.String(), "> 1 skill available")
}

func TestGenerateEmptyTitle(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Generate(&buf, "", nil))
}

func TestGenerateEmptyCorpus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, "Empty", map[string]*skill.Skill{}))
	assert.Contains(t, buf.String(), "> 0 skills available")
}
