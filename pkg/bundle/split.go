package bundle

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/skillhubdev/skillhub/pkg/skill"
)

var (
	headerRe = regexp.MustCompile(`^<!-- skillhub bundle (\S+) generated (\S+) -->$`)
	markerRe = regexp.MustCompile(`^=== (\S(?:.*\S)?) ===$`)
)

// Split parses a bundle document back into its constituent files. Marker
// lines inside fenced code blocks are treated as content, not as file
// boundaries.
func Split(r io.Reader) (*Bundle, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	b := &Bundle{}

	var current []string
	currentPath := "" // empty means the descriptor section
	sawHeader := false
	firstLine := true

	var fence fenceState

	flush := func(atMarker bool) {
		// The single blank line before a marker is the format's separator,
		// not part of the file. Trailing blank lines beyond it are content.
		if atMarker && len(current) > 0 && current[len(current)-1] == "" {
			current = current[:len(current)-1]
		}
		content := ""
		if len(current) > 0 {
			content = strings.Join(current, "\n") + "\n"
		}
		if currentPath == "" {
			b.Descriptor = content
		} else {
			b.Files = append(b.Files, File{Path: currentPath, Content: content})
		}
		current = nil
	}

	for scanner.Scan() {
		line := scanner.Text()

		if firstLine {
			firstLine = false
			if m := headerRe.FindStringSubmatch(line); m != nil {
				b.ID = m[1]
				createdAt, err := time.Parse(time.RFC3339, m[2])
				if err != nil {
					return nil, errors.Wrap(err, "invalid bundle timestamp")
				}
				b.CreatedAt = createdAt
				sawHeader = true
				continue
			}
		}

		// Skip the single blank line that follows the header or a marker
		if sawHeader && len(current) == 0 && line == "" {
			sawHeader = false
			continue
		}
		sawHeader = false

		if !fence.inFence() {
			if m := markerRe.FindStringSubmatch(line); m != nil {
				flush(true)
				currentPath = m[1]
				sawHeader = true // reuse the blank-line skip after the marker
				fence = fenceState{}
				continue
			}
		}

		fence.observe(line)
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read bundle")
	}

	flush(false)

	if b.Descriptor == "" {
		return nil, errors.New("bundle has no descriptor section")
	}

	return b, nil
}

// Restore writes the bundle's files into dir, recreating the skill layout
func Restore(dir string, b *Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create skill directory")
	}

	descriptorPath := filepath.Join(dir, skill.DescriptorFileName)
	if err := os.WriteFile(descriptorPath, []byte(b.Descriptor), 0o644); err != nil {
		return errors.Wrap(err, "failed to write skill descriptor")
	}

	for _, f := range b.Files {
		if strings.Contains(f.Path, "..") || filepath.IsAbs(f.Path) {
			return errors.Errorf("bundle file path '%s' escapes the skill directory", f.Path)
		}

		full := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory for '%s'", f.Path)
		}
		if err := os.WriteFile(full, []byte(f.Content), 0o644); err != nil {
			return errors.Wrapf(err, "failed to write '%s'", f.Path)
		}
	}

	return nil
}

// fenceState tracks fenced code blocks while scanning line by line so that
// marker-like lines inside fences stay literal.
type fenceState struct {
	open     bool
	openChar byte
	openLen  int
}

func (f *fenceState) inFence() bool {
	return f.open
}

func (f *fenceState) observe(line string) {
	trimmed := strings.TrimLeft(line, " ")
	// Four or more spaces of indentation is an indented code block, not a fence
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return
	}

	c := trimmed[0]
	if c != '`' && c != '~' {
		return
	}

	runLen := 0
	for runLen < len(trimmed) && trimmed[runLen] == c {
		runLen++
	}
	if runLen < 3 {
		return
	}

	if !f.open {
		f.open = true
		f.openChar = c
		f.openLen = runLen
		return
	}

	if c == f.openChar && runLen >= f.openLen && strings.TrimRight(trimmed[runLen:], " ") == "" {
		f.open = false
	}
}
