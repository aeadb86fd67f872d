package lint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkillDir(t *testing.T, root, dirName string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(root, dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func findingsForRule(result *Result, rule string) []Finding {
	var out []Finding
	for _, f := range result.Findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

const cleanDescriptor = `---
name: clean-skill
description: A well-formed skill
---

# Clean Skill

See [testing](references/testing.md) and ` + "`references/deploy.md`" + ` for details.

## Usage

` + "```go" + `
fmt.Println("hello")
` + "```" + `
`

func TestLintDirCleanSkill(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "clean-skill", map[string]string{
		"SKILL.md":              cleanDescriptor,
		"references/testing.md": "# Testing\n\nBody.\n",
		"references/deploy.md":  "# Deploy\n\nBody.\n",
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	assert.Equal(t, "clean-skill", result.Skill)
	assert.Empty(t, result.Findings)
}

func TestLintDirMissingDescriptor(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "empty", map[string]string{})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "descriptor", result.Findings[0].Rule)
	assert.Equal(t, SeverityError, result.Findings[0].Severity)
}

func TestLintDirBrokenFrontmatter(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "broken", map[string]string{
		"SKILL.md": "# No frontmatter here\n",
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	findings := findingsForRule(result, "frontmatter")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
}

func TestLintDirBrokenCrossReference(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "xrefs", map[string]string{
		"SKILL.md": `---
name: xrefs
description: Skill with a broken link
---

# Xrefs

See [missing](references/missing.md) for nothing.

Also mentioned: ` + "`references/gone.md`" + `.
`,
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	findings := findingsForRule(result, "xref")
	require.Len(t, findings, 2)
	assert.Contains(t, findings[0].Message, "references/missing.md")
	assert.Equal(t, 8, findings[0].Line)
	assert.Contains(t, findings[1].Message, "references/gone.md")
}

func TestLintDirLinkEscapesSkill(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "escapee", map[string]string{
		"SKILL.md": `---
name: escapee
description: Skill linking outside itself
---

# Escapee

See [other](../other-skill/SKILL.md).
`,
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	findings := findingsForRule(result, "xref")
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "escapes the skill directory")
}

func TestLintDirExternalLinksIgnored(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "external", map[string]string{
		"SKILL.md": `---
name: external
description: Skill with external links only
---

# External

See [docs](https://example.com/docs), [anchor](#usage),
and [site root](/docs/index.md).

## Usage
`,
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	assert.Empty(t, findingsForRule(result, "xref"))
}

func TestLintDirUnclosedFence(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "fences", map[string]string{
		"SKILL.md": `---
name: fences
description: Skill with an unclosed fence
---

# Fences

` + "```solidity" + `
contract Never {}
`,
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	findings := findingsForRule(result, "fence")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Equal(t, 8, findings[0].Line)
}

func TestLintDirIndentedBackticksAreNotFences(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "indented-code", map[string]string{
		"SKILL.md": `---
name: indented-code
description: Backticks inside indented code blocks are literal
---

# Indented Code

A fence opener shown as indented code:

    ` + "```go" + `

Done.
`,
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	assert.Empty(t, findingsForRule(result, "fence"))
}

func TestLintDirMarkerInsideFenceIsNotXref(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "fenced-links", map[string]string{
		"SKILL.md": `---
name: fenced-links
description: Links inside fences are literal text
---

# Fenced Links

` + "```markdown" + `
[broken](references/never-exists.md)
` + "```" + `
`,
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	assert.Empty(t, findingsForRule(result, "xref"))
}

func TestLintDirHeadingChecks(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "headings", map[string]string{
		"SKILL.md": `---
name: headings
description: Skill with heading problems
---

# First Title

#### Deeply Nested

# Second Title
`,
		"references/ok.md": "# Fine\n\n## Also Fine\n",
	})

	linter, err := New()
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	findings := findingsForRule(result, "heading")
	require.Len(t, findings, 2)
	assert.Contains(t, findings[0].Message, "exactly one H1")
	assert.Contains(t, findings[1].Message, "skips from H1 to H4")
	assert.Equal(t, 8, findings[1].Line)
}

func TestLintDirNameChecks(t *testing.T) {
	t.Run("invalid characters", func(t *testing.T) {
		dir := writeSkillDir(t, t.TempDir(), "bad", map[string]string{
			"SKILL.md": "---\nname: Bad_Name\ndescription: d\n---\n\n# Bad\n",
		})

		linter, err := New()
		require.NoError(t, err)

		findings := findingsForRule(linter.LintDir(context.Background(), dir), "name")
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityError, findings[0].Severity)
	})

	t.Run("directory mismatch", func(t *testing.T) {
		dir := writeSkillDir(t, t.TempDir(), "actual-dir", map[string]string{
			"SKILL.md": "---\nname: other-name\ndescription: d\n---\n\n# Other\n",
		})

		linter, err := New()
		require.NoError(t, err)

		findings := findingsForRule(linter.LintDir(context.Background(), dir), "name")
		require.Len(t, findings, 1)
		assert.Equal(t, SeverityWarning, findings[0].Severity)
	})
}

func TestLintDirIgnorePatterns(t *testing.T) {
	dir := writeSkillDir(t, t.TempDir(), "ignored", map[string]string{
		"SKILL.md": `---
name: ignored
description: Skill with an ignored reference
---

# Ignored
`,
		"references/generated/api.md": "# API\n\n[broken](missing.md)\n",
	})

	linter, err := New(WithIgnorePatterns("references/generated/**"))
	require.NoError(t, err)

	result := linter.LintDir(context.Background(), dir)
	assert.Empty(t, findingsForRule(result, "xref"))
}

func TestNewRejectsBadIgnorePattern(t *testing.T) {
	_, err := New(WithIgnorePatterns("[invalid"))
	assert.Error(t, err)
}

func TestLintRoots(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()

	writeSkillDir(t, root1, "shared-name", map[string]string{
		"SKILL.md": "---\nname: shared-name\ndescription: first\n---\n\n# Shared\n",
	})
	writeSkillDir(t, root2, "shared-name", map[string]string{
		"SKILL.md": "---\nname: shared-name\ndescription: second\n---\n\n# Shared\n",
	})
	writeSkillDir(t, root2, "unique-skill", map[string]string{
		"SKILL.md": "---\nname: unique-skill\ndescription: only one\n---\n\n# Unique\n",
	})

	linter, err := New()
	require.NoError(t, err)

	results, err := linter.LintRoots(context.Background(), []string{root1, root2, "/nonexistent/root"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	var duplicates []Finding
	for _, r := range results {
		duplicates = append(duplicates, findingsForRule(r, "duplicate")...)
	}
	require.Len(t, duplicates, 1)
	assert.Contains(t, duplicates[0].Message, "shared-name")

	assert.True(t, AnySeverity(results, SeverityError))
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityError.AtLeast(SeverityWarning))
	assert.True(t, SeverityWarning.AtLeast(SeverityInfo))
	assert.False(t, SeverityInfo.AtLeast(SeverityWarning))
	assert.True(t, SeverityError.AtLeast(SeverityError))
}
