// Package llmstxt renders a skills corpus as an llms.txt style site map:
// a title, a short summary blockquote, and one linked bullet per skill with
// its reference files nested underneath.
package llmstxt

import (
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/pkg/errors"

	"github.com/skillhubdev/skillhub/pkg/skill"
)

// Generate writes the site map for the given corpus to w
func Generate(w io.Writer, title string, skills map[string]*skill.Skill) error {
	if title == "" {
		return errors.New("title cannot be empty")
	}

	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "# %s\n\n", title)

	plural := "skills"
	if len(names) == 1 {
		plural = "skill"
	}
	fmt.Fprintf(w, "> %d %s available in this corpus.\n\n", len(names), plural)

	fmt.Fprintf(w, "## Skills\n\n")

	for _, name := range names {
		s := skills[name]
		fmt.Fprintf(w, "- [%s](%s): %s\n", s.Name, path.Join(s.Name, skill.DescriptorFileName), s.Description)
		for _, ref := range s.References {
			fmt.Fprintf(w, "  - [%s](%s)\n", ref.Title, path.Join(s.Name, ref.Path))
		}
	}

	return nil
}
