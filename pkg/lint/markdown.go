package lint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseDocument parses markdown into a goldmark AST. The meta extension is
// enabled so frontmatter does not leak into the document as a thematic break.
func parseDocument(content []byte) ast.Node {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)
	return md.Parser().Parse(text.NewReader(content))
}

// lineOf converts a byte offset into a 1-based line number
func lineOf(content []byte, offset int) int {
	if offset < 0 {
		return 1
	}
	if offset > len(content) {
		offset = len(content)
	}
	return 1 + bytes.Count(content[:offset], []byte("\n"))
}

// nodeOffset finds the starting byte offset of a node, descending into
// children until a positioned segment is found. Returns -1 when the node
// carries no position.
func nodeOffset(n ast.Node) int {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}

	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if offset := nodeOffset(c); offset >= 0 {
			return offset
		}
	}

	return -1
}

// codeSpanText reassembles the literal text of an inline code span
func codeSpanText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

// checkFences verifies that every opened code fence is closed. Goldmark
// silently closes unterminated fences at EOF, so this check is line-based.
func checkFences(relPath string, content []byte, result *Result) {
	var inFence bool
	var fenceChar byte
	var fenceLen int
	var openLine int

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		// Four or more spaces of indentation is an indented code block, not a fence
		if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
			continue
		}

		c := trimmed[0]
		if c != '`' && c != '~' {
			continue
		}

		runLen := 0
		for runLen < len(trimmed) && trimmed[runLen] == c {
			runLen++
		}
		if runLen < 3 {
			continue
		}

		if !inFence {
			inFence = true
			fenceChar = c
			fenceLen = runLen
			openLine = i + 1
			continue
		}

		// A closing fence uses the same character, at least as long, with
		// nothing but the delimiter on the line.
		if c == fenceChar && runLen >= fenceLen && strings.TrimRight(trimmed[runLen:], " ") == "" {
			inFence = false
		}
	}

	if inFence {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Rule:     "fence",
			File:     relPath,
			Line:     openLine,
			Message:  "code fence opened here is never closed",
		})
	}
}

// checkHeadings enforces heading hygiene: the descriptor carries exactly one
// H1, and no file skips heading levels.
func checkHeadings(relPath string, content []byte, doc ast.Node, isDescriptor bool, result *Result) {
	h1Count := 0
	prevLevel := 0

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		line := lineOf(content, nodeOffset(heading))

		if heading.Level == 1 {
			h1Count++
		}

		if prevLevel > 0 && heading.Level > prevLevel+1 {
			result.Findings = append(result.Findings, Finding{
				Severity: SeverityWarning,
				Rule:     "heading",
				File:     relPath,
				Line:     line,
				Message:  fmt.Sprintf("heading level skips from H%d to H%d", prevLevel, heading.Level),
			})
		}
		prevLevel = heading.Level

		return ast.WalkSkipChildren, nil
	})

	if isDescriptor && h1Count != 1 {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityWarning,
			Rule:     "heading",
			File:     relPath,
			Line:     1,
			Message:  fmt.Sprintf("descriptor should have exactly one H1, found %d", h1Count),
		})
	}
}

// referenceMention matches inline code spans that name a reference file,
// e.g. `references/testing.md`. These mentions are resolved against the
// skill root, matching the corpus prose convention.
var referenceMention = regexp.MustCompile(`^references/[A-Za-z0-9._/-]+\.md$`)

// checkCrossReferences resolves every internal link destination and every
// inline reference mention against the files actually present in the skill
// directory. Links inside fenced code blocks never reach this check because
// goldmark treats fenced content as literal text.
func checkCrossReferences(skillDir, relPath string, content []byte, doc ast.Node, result *Result) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Link:
			checkDestination(skillDir, relPath, content, string(node.Destination), n, result)
		case *ast.Image:
			checkDestination(skillDir, relPath, content, string(node.Destination), n, result)
		case *ast.CodeSpan:
			mention := codeSpanText(node, content)
			if referenceMention.MatchString(mention) {
				target := filepath.Join(skillDir, filepath.FromSlash(mention))
				if _, err := os.Stat(target); err != nil {
					result.Findings = append(result.Findings, Finding{
						Severity: SeverityError,
						Rule:     "xref",
						File:     relPath,
						Line:     lineOf(content, nodeOffset(node)),
						Message:  "reference mention '" + mention + "' does not resolve to a file",
					})
				}
			}
		}

		return ast.WalkContinue, nil
	})
}

// checkDestination validates a single link destination. External URLs,
// fragments, and site-absolute paths are out of scope for corpus linting.
func checkDestination(skillDir, relPath string, content []byte, dest string, n ast.Node, result *Result) {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return
	}
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") {
		return
	}

	// Strip fragment and query before resolving
	if idx := strings.IndexAny(dest, "#?"); idx != -1 {
		dest = dest[:idx]
	}
	if dest == "" {
		return
	}

	base := filepath.Dir(filepath.Join(skillDir, filepath.FromSlash(relPath)))
	target := filepath.Join(base, filepath.FromSlash(dest))

	// A link that escapes the skill directory is a corpus violation even
	// when the target happens to exist on disk.
	rel, err := filepath.Rel(skillDir, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Rule:     "xref",
			File:     relPath,
			Line:     lineOf(content, nodeOffset(n)),
			Message:  "link '" + dest + "' escapes the skill directory",
		})
		return
	}

	if _, err := os.Stat(target); err != nil {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Rule:     "xref",
			File:     relPath,
			Line:     lineOf(content, nodeOffset(n)),
			Message:  "link '" + dest + "' does not resolve to a file",
		})
	}
}
