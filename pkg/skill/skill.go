// Package skill models a documentation corpus of skills. A skill is a
// directory containing a SKILL.md descriptor with YAML frontmatter and an
// optional references/ folder of deep-dive markdown files, consumed by an
// AI-assistant host to gain domain expertise on a topic.
package skill

// Skill represents a discovered skill with its metadata and reference files
type Skill struct {
	Name        string      // Unique name from frontmatter
	Description string      // Brief description for host decision-making
	Version     string      // Optional version from frontmatter
	License     string      // Optional license identifier from frontmatter
	Keywords    []string    // Optional keywords from frontmatter
	Directory   string      // Full path to the skill directory
	Content     string      // Full content of SKILL.md (body, not frontmatter)
	References  []Reference // Deep-dive documents under references/
}

// Reference represents a single deep-dive document within a skill
type Reference struct {
	Path    string // Path relative to the skill directory, e.g. "references/testing.md"
	Title   string // First H1 heading, or the filename when no heading exists
	Content string
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Version     string   `yaml:"version,omitempty"`
	License     string   `yaml:"license,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
}

// Reference returns the reference at the given skill-relative path, if any.
func (s *Skill) Reference(path string) (*Reference, bool) {
	for i := range s.References {
		if s.References[i].Path == path {
			return &s.References[i], true
		}
	}
	return nil, false
}
