// Package changelog parses and validates Keep-a-Changelog style CHANGELOG.md
// files: an optional preamble, an optional Unreleased section, and version
// sections with semantic version headers in descending order.
package changelog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// FileName is the conventional changelog file name
const FileName = "CHANGELOG.md"

// Section is a categorized group of changes within a release
type Section struct {
	Kind  string // Added, Changed, Deprecated, Removed, Fixed, Security
	Items []string
}

// Release is one version section of a changelog
type Release struct {
	RawVersion string // the text inside the brackets, e.g. "1.2.0" or "Unreleased"
	Version    *semver.Version
	Date       time.Time
	Line       int
	Sections   []Section

	badDate string // unparseable date text, surfaced by Validate
}

// Unreleased reports whether this is the [Unreleased] section
func (r *Release) Unreleased() bool {
	return strings.EqualFold(r.RawVersion, "Unreleased")
}

// Changelog is a parsed CHANGELOG.md
type Changelog struct {
	Preamble string
	Releases []Release
}

// Latest returns the most recent released version section, skipping
// Unreleased. Returns nil when no released version exists.
func (c *Changelog) Latest() *Release {
	for i := range c.Releases {
		if !c.Releases[i].Unreleased() {
			return &c.Releases[i]
		}
	}
	return nil
}

var (
	releaseHeaderRe = regexp.MustCompile(`^## \[([^\]]+)\](?:\s*-\s*(\S+))?\s*$`)
	sectionHeaderRe = regexp.MustCompile(`^### (\S.*?)\s*$`)
)

// knownKinds are the change categories Keep a Changelog defines
var knownKinds = map[string]bool{
	"Added":      true,
	"Changed":    true,
	"Deprecated": true,
	"Removed":    true,
	"Fixed":      true,
	"Security":   true,
}

// Parse reads a changelog document. Parsing is permissive: malformed
// versions and dates survive into the Release entries so Validate can report
// them with line numbers.
func Parse(content []byte) (*Changelog, error) {
	c := &Changelog{}

	var preamble []string
	var currentRelease *Release
	var currentSection *Section

	flushSection := func() {
		if currentSection != nil && currentRelease != nil {
			currentRelease.Sections = append(currentRelease.Sections, *currentSection)
		}
		currentSection = nil
	}
	flushRelease := func() {
		flushSection()
		if currentRelease != nil {
			c.Releases = append(c.Releases, *currentRelease)
		}
		currentRelease = nil
	}

	for i, line := range strings.Split(string(content), "\n") {
		if m := releaseHeaderRe.FindStringSubmatch(line); m != nil {
			flushRelease()

			release := Release{
				RawVersion: m[1],
				Line:       i + 1,
			}
			if v, err := semver.NewVersion(m[1]); err == nil {
				release.Version = v
			}
			if m[2] != "" {
				if d, err := time.Parse("2006-01-02", m[2]); err == nil {
					release.Date = d
				} else {
					release.badDate = m[2]
				}
			}
			currentRelease = &release
			continue
		}

		if currentRelease != nil {
			if m := sectionHeaderRe.FindStringSubmatch(line); m != nil {
				flushSection()
				currentSection = &Section{Kind: m[1]}
				continue
			}

			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "- ") && currentSection != nil {
				currentSection.Items = append(currentSection.Items, strings.TrimPrefix(trimmed, "- "))
			}
			continue
		}

		preamble = append(preamble, line)
	}
	flushRelease()

	c.Preamble = strings.TrimSpace(strings.Join(preamble, "\n"))

	if len(c.Releases) == 0 {
		return nil, errors.New("changelog has no version sections")
	}

	return c, nil
}

// Validate checks the Keep-a-Changelog invariants: released sections carry a
// parseable semantic version and date, versions are strictly descending, and
// every change category is a known kind. Problems are aggregated.
func (c *Changelog) Validate() error {
	var merr *multierror.Error

	var prev *semver.Version
	for i := range c.Releases {
		r := &c.Releases[i]

		if r.Unreleased() {
			if i != 0 {
				merr = multierror.Append(merr, errors.Errorf("line %d: [Unreleased] must be the first section", r.Line))
			}
		} else {
			if r.Version == nil {
				merr = multierror.Append(merr, errors.Errorf("line %d: '%s' is not a semantic version", r.Line, r.RawVersion))
			}
			if r.badDate != "" {
				merr = multierror.Append(merr, errors.Errorf("line %d: invalid release date '%s'", r.Line, r.badDate))
			} else if r.Date.IsZero() {
				merr = multierror.Append(merr, errors.Errorf("line %d: released version '%s' has no date", r.Line, r.RawVersion))
			}

			if r.Version != nil {
				if prev != nil && !r.Version.LessThan(prev) {
					merr = multierror.Append(merr, errors.Errorf("line %d: version %s is not below %s", r.Line, r.Version, prev))
				}
				prev = r.Version
			}
		}

		for _, s := range r.Sections {
			if !knownKinds[s.Kind] {
				merr = multierror.Append(merr, errors.Errorf("unknown change category '%s' in [%s]", s.Kind, r.RawVersion))
			}
		}
	}

	return merr.ErrorOrNil()
}

// String renders a one-line summary, e.g. "3 releases, latest 1.2.0"
func (c *Changelog) String() string {
	latest := c.Latest()
	if latest == nil {
		return fmt.Sprintf("%d sections, no released version", len(c.Releases))
	}
	return fmt.Sprintf("%d sections, latest %s", len(c.Releases), latest.RawVersion)
}
