package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillhubdev/skillhub/pkg/index"
	"github.com/skillhubdev/skillhub/pkg/presenter"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the corpus search index",
	Long: `Discover every skill under the configured corpus roots and rebuild the
SQLite search index from scratch. A failed rebuild leaves the previous
index intact.`,
	Run: func(cmd *cobra.Command, _ []string) {
		rebuildIndexCmd(cmd)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the corpus index",
	Long: `Search skill names, descriptions, and reference titles in the corpus
index. Run 'skillhub index' first to build the index.

Examples:
  skillhub search solidity
  skillhub search "gas optimization"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		searchIndexCmd(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
}

// indexDBPath returns the configured index location or the default
func indexDBPath() (string, error) {
	if path := viper.GetString("index_path"); path != "" {
		return path, nil
	}
	return index.DefaultDBPath()
}

func rebuildIndexCmd(cmd *cobra.Command) {
	ctx := cmd.Context()

	discovery, err := newDiscovery()
	if err != nil {
		presenter.Error(err, "Failed to initialize skill discovery")
		os.Exit(1)
	}

	skills, err := discovery.DiscoverSkills()
	if err != nil {
		presenter.Error(err, "Failed to discover skills")
		os.Exit(1)
	}

	dbPath, err := indexDBPath()
	if err != nil {
		presenter.Error(err, "Failed to determine index path")
		os.Exit(1)
	}

	idx, err := index.Open(ctx, dbPath)
	if err != nil {
		presenter.Error(err, "Failed to open index")
		os.Exit(1)
	}
	defer idx.Close()

	if err := idx.Rebuild(ctx, skills); err != nil {
		presenter.Error(err, "Failed to rebuild index")
		os.Exit(1)
	}

	presenter.Success(fmt.Sprintf("Indexed %d skill(s) into %s", len(skills), dbPath))
}

func searchIndexCmd(cmd *cobra.Command, query string) {
	ctx := cmd.Context()

	dbPath, err := indexDBPath()
	if err != nil {
		presenter.Error(err, "Failed to determine index path")
		os.Exit(1)
	}

	idx, err := index.Open(ctx, dbPath)
	if err != nil {
		presenter.Error(err, "Failed to open index")
		os.Exit(1)
	}
	defer idx.Close()

	matches, err := idx.Search(ctx, query)
	if err != nil {
		presenter.Error(err, "Search failed")
		os.Exit(1)
	}

	if len(matches) == 0 {
		presenter.Info("No matches")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SKILL\tKIND\tPATH\tDETAIL")

	for _, m := range matches {
		detail := m.Description
		if m.Kind == "reference" {
			detail = m.Title
		}
		path := m.Path
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Skill, m.Kind, path, detail)
	}
	tw.Flush()
}
