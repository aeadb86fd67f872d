package bundle

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDescriptor = `---
name: wxt-extensions
description: Build Chrome extensions with WXT
---

# WXT Extensions

Quick start guidance.
`

func writeBundleFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"SKILL.md":                 testDescriptor,
		"references/testing.md":    "# Testing\n\nUse vitest.\n",
		"references/deployment.md": "# Deployment\n\nShip it.\n",
		"references/api/hooks.md":  "# Hooks\n\nNested reference.\n",
		"references/notes.txt":     "not markdown\n",
		"assets/icon.svg":          "<svg/>\n",
	}
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestWriteDir(t *testing.T) {
	dir := writeBundleFixture(t)

	b, err := New(WithID("bundle-123"), WithClock(fixedClock))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.WriteDir(&buf, dir))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!-- skillhub bundle bundle-123 generated 2026-03-14T09:26:53Z -->\n"))
	assert.Contains(t, out, "# WXT Extensions")

	// Markers in deterministic path order, markdown only by default
	depIdx := strings.Index(out, "=== references/api/hooks.md ===")
	deployIdx := strings.Index(out, "=== references/deployment.md ===")
	testIdx := strings.Index(out, "=== references/testing.md ===")
	require.True(t, depIdx > 0 && deployIdx > depIdx && testIdx > deployIdx)

	assert.NotContains(t, out, "notes.txt")
	assert.NotContains(t, out, "icon.svg")
}

func TestWriteDirCustomGlobs(t *testing.T) {
	dir := writeBundleFixture(t)

	b, err := New(
		WithID("x"),
		WithClock(fixedClock),
		WithInclude("**/*"),
		WithExclude("assets/**"),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.WriteDir(&buf, dir))

	out := buf.String()
	assert.Contains(t, out, "=== references/notes.txt ===")
	assert.NotContains(t, out, "icon.svg")
}

func TestNewRejectsInvalidGlob(t *testing.T) {
	_, err := New(WithInclude("references/[.md"))
	assert.Error(t, err)
}

func TestWriteDirMissingDescriptor(t *testing.T) {
	b, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, b.WriteDir(&buf, t.TempDir()))
}

func TestSplitRoundTrip(t *testing.T) {
	dir := writeBundleFixture(t)

	b, err := New(WithID("roundtrip"), WithClock(fixedClock))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.WriteDir(&buf, dir))

	parsed, err := Split(&buf)
	require.NoError(t, err)

	assert.Equal(t, "roundtrip", parsed.ID)
	assert.Equal(t, fixedClock(), parsed.CreatedAt)
	assert.Equal(t, testDescriptor, parsed.Descriptor)

	require.Len(t, parsed.Files, 3)
	assert.Equal(t, "references/api/hooks.md", parsed.Files[0].Path)
	assert.Equal(t, "# Hooks\n\nNested reference.\n", parsed.Files[0].Content)
	assert.Equal(t, "references/deployment.md", parsed.Files[1].Path)
	assert.Equal(t, "references/testing.md", parsed.Files[2].Path)
	assert.Equal(t, "# Testing\n\nUse vitest.\n", parsed.Files[2].Content)
}

func TestSplitRoundTripTrailingBlankLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "references"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(testDescriptor), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "references", "notes.md"),
		[]byte("# Notes\n\nMore.\n\n\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "references", "testing.md"),
		[]byte("# Testing\n\nBody.\n\n"), 0o644))

	b, err := New(WithID("x"), WithClock(fixedClock))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.WriteDir(&buf, dir))

	parsed, err := Split(&buf)
	require.NoError(t, err)

	assert.Equal(t, testDescriptor, parsed.Descriptor)
	require.Len(t, parsed.Files, 2)
	assert.Equal(t, "# Notes\n\nMore.\n\n\n", parsed.Files[0].Content)
	assert.Equal(t, "# Testing\n\nBody.\n\n", parsed.Files[1].Content)
}

func TestSplitMarkerInsideFenceIsContent(t *testing.T) {
	doc := `---
name: fence-demo
description: d
---

# Fence Demo

=== references/real.md ===

Before the fence.

` + "```" + `
=== references/fake.md ===
` + "```" + `

After the fence.
`

	parsed, err := Split(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, parsed.Files, 1)
	assert.Equal(t, "references/real.md", parsed.Files[0].Path)
	assert.Contains(t, parsed.Files[0].Content, "=== references/fake.md ===")
	assert.Contains(t, parsed.Files[0].Content, "After the fence.")
}

func TestSplitIndentedBackticksAreNotFences(t *testing.T) {
	doc := testDescriptor + "\n=== references/real.md ===\n\nIndented code:\n\n    " +
		"```" + "\n\n=== references/next.md ===\n\n# Next\n"

	parsed, err := Split(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, parsed.Files, 2)
	assert.Equal(t, "references/real.md", parsed.Files[0].Path)
	assert.Equal(t, "references/next.md", parsed.Files[1].Path)
	assert.Equal(t, "# Next\n", parsed.Files[1].Content)
}

func TestSplitWithoutHeader(t *testing.T) {
	doc := testDescriptor + "\n=== references/testing.md ===\n\n# Testing\n"

	parsed, err := Split(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Empty(t, parsed.ID)
	assert.True(t, parsed.CreatedAt.IsZero())
	require.Len(t, parsed.Files, 1)
	assert.Equal(t, "# Testing\n", parsed.Files[0].Content)
}

func TestSplitEmptyDocument(t *testing.T) {
	_, err := Split(strings.NewReader(""))
	assert.Error(t, err)
}

func TestRestore(t *testing.T) {
	bundle := &Bundle{
		Descriptor: testDescriptor,
		Files: []File{
			{Path: "references/testing.md", Content: "# Testing\n"},
			{Path: "references/api/hooks.md", Content: "# Hooks\n"},
		},
	}

	dir := filepath.Join(t.TempDir(), "restored")
	require.NoError(t, Restore(dir, bundle))

	descriptor, err := os.ReadFile(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, testDescriptor, string(descriptor))

	nested, err := os.ReadFile(filepath.Join(dir, "references", "api", "hooks.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Hooks\n", string(nested))
}

func TestRestoreRejectsEscapingPaths(t *testing.T) {
	bundle := &Bundle{
		Descriptor: testDescriptor,
		Files: []File{
			{Path: "../outside.md", Content: "nope\n"},
		},
	}

	assert.Error(t, Restore(t.TempDir(), bundle))
}
