package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/changelog"
	"github.com/skillhubdev/skillhub/pkg/presenter"
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Work with Keep-a-Changelog files",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var changelogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a CHANGELOG.md",
	Long: `Validate a Keep-a-Changelog file: released sections carry a semantic
version and a date, versions are strictly descending, and every change
category is a known kind.

The path may be a changelog file or a directory containing CHANGELOG.md;
it defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		validateChangelogCmd(path)
	},
}

var changelogLatestCmd = &cobra.Command{
	Use:   "latest [path]",
	Short: "Print the latest released version",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		latestChangelogCmd(path)
	},
}

func init() {
	changelogCmd.AddCommand(changelogValidateCmd)
	changelogCmd.AddCommand(changelogLatestCmd)
	rootCmd.AddCommand(changelogCmd)
}

func loadChangelog(path string) (*changelog.Changelog, string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, changelog.FileName)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	c, err := changelog.Parse(content)
	return c, path, err
}

func validateChangelogCmd(path string) {
	c, resolved, err := loadChangelog(path)
	if err != nil {
		presenter.Error(err, "Failed to load changelog")
		os.Exit(1)
	}

	if err := c.Validate(); err != nil {
		presenter.Error(err, fmt.Sprintf("%s is not a valid changelog", resolved))
		os.Exit(1)
	}

	presenter.Success(fmt.Sprintf("%s is valid (%s)", resolved, c.String()))
}

func latestChangelogCmd(path string) {
	c, resolved, err := loadChangelog(path)
	if err != nil {
		presenter.Error(err, "Failed to load changelog")
		os.Exit(1)
	}

	latest := c.Latest()
	if latest == nil {
		presenter.Error(fmt.Errorf("no released version in %s", resolved), "Nothing released yet")
		os.Exit(1)
	}

	fmt.Println(latest.RawVersion)
}
