package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/presenter"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skills in the corpus",
	Long:  `List all skills with their names, versions, descriptions, and directory paths.`,
	Run: func(_ *cobra.Command, _ []string) {
		listSkillsCmd()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listSkillsCmd() {
	discovery, err := newDiscovery()
	if err != nil {
		presenter.Error(err, "Failed to initialize skill discovery")
		os.Exit(1)
	}

	allSkills, err := discovery.DiscoverSkills()
	if err != nil {
		presenter.Error(err, "Failed to discover skills")
		os.Exit(1)
	}

	if len(allSkills) == 0 {
		presenter.Info("No skills in the corpus")
		return
	}

	names := make([]string, 0, len(allSkills))
	for name := range allSkills {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tREFS\tDIRECTORY\tDESCRIPTION")
	fmt.Fprintln(tw, "----\t-------\t----\t---------\t-----------")

	for _, name := range names {
		s := allSkills[name]

		version := s.Version
		if version == "" {
			version = "-"
		}

		description := s.Description
		if len(description) > 60 {
			description = description[:57] + "..."
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.Name, version, len(s.References), s.Directory, description)
	}
	tw.Flush()
}
