package skill

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const (
	// DescriptorFileName is the skill descriptor expected in each skill directory
	DescriptorFileName = "SKILL.md"
	// ReferencesDirName is the deep-dive documents folder within a skill directory
	ReferencesDirName = "references"
)

// Discovery handles skill discovery from configured corpus roots
type Discovery struct {
	skillDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom corpus roots. Earlier roots take precedence when
// two roots carry a skill of the same name.
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		if len(dirs) == 0 {
			return errors.New("at least one skill directory must be specified")
		}
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes with the default corpus roots
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./.skillhub/skills",                          // Repo-local (highest precedence)
			filepath.Join(homeDir, ".skillhub", "skills"), // User-global
		}
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
		return d, nil
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Roots returns the configured corpus roots.
func (d *Discovery) Roots() []string {
	return d.skillDirs
}

// DiscoverSkills finds all available skills from the configured roots
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	skills := make(map[string]*Skill)

	for _, dir := range d.skillDirs {
		d.discoverSkillsFromDir(dir, skills)
	}

	return skills, nil
}

// discoverSkillsFromDir loads every skill directory directly under dir.
// Unreadable entries and directories without a valid descriptor are skipped.
func (d *Discovery) discoverSkillsFromDir(dir string, skills map[string]*Skill) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		loaded, err := Load(entryPath)
		if err != nil {
			continue
		}

		if _, exists := skills[loaded.Name]; !exists {
			skills[loaded.Name] = loaded
		}
	}
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(name string) (*Skill, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	s, exists := skills[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}

	return s, nil
}

// ListSkillNames returns the sorted names of all available skills
func (d *Discovery) ListSkillNames() ([]string, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Load loads a single skill from its directory, parsing the descriptor
// frontmatter and collecting every markdown file under references/.
func Load(dir string) (*Skill, error) {
	descriptorPath := filepath.Join(dir, DescriptorFileName)

	content, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill descriptor")
	}

	metadata, err := ParseFrontmatter(content)
	if err != nil {
		return nil, err
	}

	refs, err := loadReferences(dir)
	if err != nil {
		return nil, err
	}

	return &Skill{
		Name:        metadata.Name,
		Description: metadata.Description,
		Version:     metadata.Version,
		License:     metadata.License,
		Keywords:    metadata.Keywords,
		Directory:   dir,
		Content:     extractBodyContent(string(content)),
		References:  refs,
	}, nil
}

// ParseFrontmatter parses and validates the YAML frontmatter of a skill
// descriptor. Name and description are required.
func ParseFrontmatter(content []byte) (*Metadata, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	if name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	metadata := &Metadata{
		Name:        name,
		Description: description,
	}

	if version, ok := metaData["version"].(string); ok {
		metadata.Version = version
	}
	if license, ok := metaData["license"].(string); ok {
		metadata.License = license
	}
	if keywords, ok := metaData["keywords"].([]interface{}); ok {
		for _, kw := range keywords {
			if s, ok := kw.(string); ok {
				metadata.Keywords = append(metadata.Keywords, s)
			}
		}
	}

	return metadata, nil
}

// loadReferences collects markdown files under the references/ folder,
// sorted by relative path. A missing folder is legal and yields no references.
func loadReferences(dir string) ([]Reference, error) {
	refsDir := filepath.Join(dir, ReferencesDirName)
	if _, err := os.Stat(refsDir); err != nil {
		return nil, nil
	}

	var refs []Reference
	err := filepath.Walk(refsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".md") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read reference file '%s'", path)
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		refs = append(refs, Reference{
			Path:    filepath.ToSlash(relPath),
			Title:   extractTitle(string(content), info.Name()),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk references directory")
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })

	return refs, nil
}

// extractTitle returns the first H1 heading, or the filename when none exists
func extractTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return strings.TrimSuffix(filename, ".md")
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

// FilterByAllowlist filters skills by an allowlist of names.
// If the allowlist is empty, all skills are returned.
func FilterByAllowlist(skills map[string]*Skill, allowed []string) map[string]*Skill {
	if len(allowed) == 0 {
		return skills
	}

	filtered := make(map[string]*Skill)
	for _, name := range allowed {
		if s, exists := skills[name]; exists {
			filtered[name] = s
		}
	}
	return filtered
}
