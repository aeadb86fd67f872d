// Package lint checks the content invariants of a skills corpus: frontmatter
// parses and carries the required keys, every internal cross-reference
// resolves to an existing file, every code fence is closed, and heading
// structure is sane.
package lint

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/skillhubdev/skillhub/pkg/logger"
	"github.com/skillhubdev/skillhub/pkg/skill"
)

// Severity classifies a finding
type Severity string

const (
	// SeverityError marks violations of corpus invariants
	SeverityError Severity = "error"
	// SeverityWarning marks style problems that do not break consumers
	SeverityWarning Severity = "warning"
	// SeverityInfo marks advisory notes
	SeverityInfo Severity = "info"
)

// rank orders severities for threshold comparisons
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as other
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Finding is a single lint result
type Finding struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	File     string   `json:"file"` // path relative to the skill directory
	Line     int      `json:"line"`
	Message  string   `json:"message"`
}

// Result holds the findings for one skill directory
type Result struct {
	Skill     string    `json:"skill"` // directory base name until frontmatter is known
	Directory string    `json:"directory"`
	Findings  []Finding `json:"findings"`
}

// HasSeverity reports whether any finding reaches the given severity
func (r *Result) HasSeverity(threshold Severity) bool {
	for _, f := range r.Findings {
		if f.Severity.AtLeast(threshold) {
			return true
		}
	}
	return false
}

// AnySeverity reports whether any result reaches the given severity
func AnySeverity(results []*Result, threshold Severity) bool {
	for _, r := range results {
		if r.HasSeverity(threshold) {
			return true
		}
	}
	return false
}

// Linter checks skill directories against the corpus invariants
type Linter struct {
	ignorePatterns []glob.Glob
}

// Option is a function that configures a Linter
type Option func(*Linter) error

// WithIgnorePatterns suppresses findings for files whose skill-relative path
// matches any of the given glob patterns
func WithIgnorePatterns(patterns ...string) Option {
	return func(l *Linter) error {
		for _, p := range patterns {
			compiled, err := glob.Compile(p, '/')
			if err != nil {
				return errors.Wrapf(err, "invalid ignore pattern '%s'", p)
			}
			l.ignorePatterns = append(l.ignorePatterns, compiled)
		}
		return nil
	}
}

// New creates a new Linter
func New(opts ...Option) (*Linter, error) {
	l := &Linter{}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Linter) ignored(relPath string) bool {
	for _, p := range l.ignorePatterns {
		if p.Match(relPath) {
			return true
		}
	}
	return false
}

// LintDir lints a single skill directory. It operates on the raw files rather
// than a loaded Skill so that descriptors the loader would reject still
// produce findings instead of silently disappearing.
func (l *Linter) LintDir(ctx context.Context, dir string) *Result {
	result := &Result{
		Skill:     filepath.Base(dir),
		Directory: dir,
	}

	log := logger.G(ctx).WithField("skill_dir", dir)

	descriptorPath := filepath.Join(dir, skill.DescriptorFileName)
	content, err := os.ReadFile(descriptorPath)
	if err != nil {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Rule:     "descriptor",
			File:     skill.DescriptorFileName,
			Line:     1,
			Message:  "missing SKILL.md descriptor",
		})
		return result
	}

	metadata, err := skill.ParseFrontmatter(content)
	if err != nil {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Rule:     "frontmatter",
			File:     skill.DescriptorFileName,
			Line:     1,
			Message:  err.Error(),
		})
	} else {
		result.Skill = metadata.Name
		l.checkName(metadata.Name, dir, result)
	}

	l.lintMarkdownFile(dir, skill.DescriptorFileName, content, true, result)

	refsDir := filepath.Join(dir, skill.ReferencesDirName)
	_ = filepath.Walk(refsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(info.Name(), ".md") {
			return nil
		}

		relPath, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		refContent, readErr := os.ReadFile(path)
		if readErr != nil {
			log.WithError(readErr).WithField("file", relPath).Warn("failed to read reference file")
			return nil
		}

		l.lintMarkdownFile(dir, relPath, refContent, false, result)
		return nil
	})

	sort.SliceStable(result.Findings, func(i, j int) bool {
		if result.Findings[i].File != result.Findings[j].File {
			return result.Findings[i].File < result.Findings[j].File
		}
		return result.Findings[i].Line < result.Findings[j].Line
	})

	return result
}

// validName reports whether name is lowercase words joined by hyphens
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, "-") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
				return false
			}
		}
	}
	return true
}

func (l *Linter) checkName(name, dir string, result *Result) {
	if !validName(name) {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityError,
			Rule:     "name",
			File:     skill.DescriptorFileName,
			Line:     1,
			Message:  "skill name must be lowercase words joined by hyphens, got '" + name + "'",
		})
		return
	}

	if base := filepath.Base(dir); base != name {
		result.Findings = append(result.Findings, Finding{
			Severity: SeverityWarning,
			Rule:     "name",
			File:     skill.DescriptorFileName,
			Line:     1,
			Message:  "skill name '" + name + "' does not match directory name '" + base + "'",
		})
	}
}

// lintMarkdownFile runs the per-file checks: fence balance, heading hygiene,
// and cross-reference resolution.
func (l *Linter) lintMarkdownFile(skillDir, relPath string, content []byte, isDescriptor bool, result *Result) {
	if l.ignored(relPath) {
		return
	}

	doc := parseDocument(content)

	checkFences(relPath, content, result)
	checkHeadings(relPath, content, doc, isDescriptor, result)
	checkCrossReferences(skillDir, relPath, content, doc, result)
}

// LintRoots lints every skill directory directly under the given corpus
// roots and flags duplicate skill names across roots. Root read failures are
// aggregated; a missing root is not an error.
func (l *Linter) LintRoots(ctx context.Context, roots []string) ([]*Result, error) {
	var results []*Result
	var merr *multierror.Error
	seen := make(map[string]string) // skill name -> directory that claimed it

	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			merr = multierror.Append(merr, errors.Wrapf(err, "failed to read corpus root '%s'", root))
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			dir := filepath.Join(root, entry.Name())
			result := l.LintDir(ctx, dir)

			if prev, dup := seen[result.Skill]; dup {
				result.Findings = append(result.Findings, Finding{
					Severity: SeverityError,
					Rule:     "duplicate",
					File:     skill.DescriptorFileName,
					Line:     1,
					Message:  "skill name '" + result.Skill + "' already defined in " + prev,
				})
			} else {
				seen[result.Skill] = dir
			}

			results = append(results, result)
		}
	}

	return results, merr.ErrorOrNil()
}
