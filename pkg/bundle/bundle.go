// Package bundle flattens a skill directory into a single deliverable
// markdown document and splits such documents back into their constituent
// files. Included files are introduced by `=== path ===` marker lines; the
// descriptor always comes first.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/skillhubdev/skillhub/pkg/skill"
)

// File is a single entry of a bundle
type File struct {
	Path    string // skill-relative, slash-separated
	Content string
}

// Bundle is a parsed bundle document
type Bundle struct {
	ID         string
	CreatedAt  time.Time
	Descriptor string // raw SKILL.md content
	Files      []File
}

// Bundler assembles bundle documents from skill directories
type Bundler struct {
	include []string
	exclude []string
	id      string
	now     func() time.Time
}

// Option is a function that configures a Bundler
type Option func(*Bundler) error

// WithInclude sets the doublestar glob patterns selecting files to bundle.
// Patterns match skill-relative paths; the descriptor is always included and
// never needs a pattern.
func WithInclude(globs ...string) Option {
	return func(b *Bundler) error {
		if len(globs) == 0 {
			return errors.New("at least one include pattern must be specified")
		}
		b.include = globs
		return nil
	}
}

// WithExclude sets glob patterns removing files from the selection
func WithExclude(globs ...string) Option {
	return func(b *Bundler) error {
		b.exclude = globs
		return nil
	}
}

// WithID fixes the bundle ID instead of generating one
func WithID(id string) Option {
	return func(b *Bundler) error {
		b.id = id
		return nil
	}
}

// WithClock fixes the clock used for the generation timestamp
func WithClock(now func() time.Time) Option {
	return func(b *Bundler) error {
		b.now = now
		return nil
	}
}

// New creates a new Bundler. By default every markdown file under
// references/ is included.
func New(opts ...Option) (*Bundler, error) {
	b := &Bundler{
		include: []string{"references/**/*.md"},
		now:     time.Now,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	for _, pattern := range append(append([]string{}, b.include...), b.exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid glob pattern '%s'", pattern)
		}
	}

	return b, nil
}

// WriteDir bundles the skill at dir into w
func (b *Bundler) WriteDir(w io.Writer, dir string) error {
	descriptor, err := os.ReadFile(filepath.Join(dir, skill.DescriptorFileName))
	if err != nil {
		return errors.Wrap(err, "failed to read skill descriptor")
	}

	files, err := b.selectFiles(dir)
	if err != nil {
		return err
	}

	id := b.id
	if id == "" {
		id = uuid.NewString()
	}

	fmt.Fprintf(w, "<!-- skillhub bundle %s generated %s -->\n\n", id, b.now().UTC().Format(time.RFC3339))

	if _, err := w.Write(ensureTrailingNewline(descriptor)); err != nil {
		return errors.Wrap(err, "failed to write descriptor")
	}

	for _, relPath := range files {
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(relPath)))
		if err != nil {
			return errors.Wrapf(err, "failed to read bundled file '%s'", relPath)
		}

		fmt.Fprintf(w, "\n=== %s ===\n\n", relPath)
		if _, err := w.Write(ensureTrailingNewline(content)); err != nil {
			return errors.Wrapf(err, "failed to write bundled file '%s'", relPath)
		}
	}

	return nil
}

// selectFiles returns the sorted skill-relative paths matching the include
// globs and not matching any exclude glob
func (b *Bundler) selectFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if relPath == skill.DescriptorFileName {
			return nil
		}

		if !b.matches(relPath) {
			return nil
		}

		files = append(files, relPath)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk skill directory")
	}

	sort.Strings(files)
	return files, nil
}

func (b *Bundler) matches(relPath string) bool {
	included := false
	for _, pattern := range b.include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, pattern := range b.exclude {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return false
		}
	}

	return true
}

func ensureTrailingNewline(content []byte) []byte {
	if len(content) == 0 || content[len(content)-1] == '\n' {
		return content
	}
	return append(content, '\n')
}
