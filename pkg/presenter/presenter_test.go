package presenter

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, ColorNever)
	return p, &out, &errOut
}

func TestErrorOutput(t *testing.T) {
	p, out, errOut := newTestPresenter()

	p.Error(errors.New("boom"), "loading skill")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "[ERROR] loading skill: boom")
}

func TestErrorNilIsSilent(t *testing.T) {
	p, _, errOut := newTestPresenter()
	p.Error(nil, "ignored")
	assert.Empty(t, errOut.String())
}

func TestQuietSuppressesNonErrors(t *testing.T) {
	p, out, errOut := newTestPresenter()
	p.SetQuiet(true)

	p.Success("installed")
	p.Warning("skipped")
	p.Info("3 skills")
	p.Section("Skills")
	p.Separator()
	assert.Empty(t, out.String())

	p.Error(errors.New("boom"), "")
	assert.Contains(t, errOut.String(), "boom")
}

func TestSection(t *testing.T) {
	p, out, _ := newTestPresenter()
	p.Section("References")
	assert.Contains(t, out.String(), "References\n----------\n")
}

func TestFinding(t *testing.T) {
	t.Run("error severity prints in quiet mode", func(t *testing.T) {
		p, out, _ := newTestPresenter()
		p.SetQuiet(true)
		p.Finding("error", "xref", "SKILL.md:12", "broken link")
		assert.Contains(t, out.String(), "error: SKILL.md:12 [xref] broken link")
	})

	t.Run("warning suppressed in quiet mode", func(t *testing.T) {
		p, out, _ := newTestPresenter()
		p.SetQuiet(true)
		p.Finding("warning", "heading", "SKILL.md:3", "skipped level")
		assert.Empty(t, out.String())
	})

	t.Run("info severity", func(t *testing.T) {
		p, out, _ := newTestPresenter()
		p.Finding("info", "fence", "references/testing.md:40", "unclosed fence")
		assert.Contains(t, out.String(), "[fence]")
	})
}
