package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/presenter"
)

type ShowConfig struct {
	Full bool
}

func NewShowConfig() *ShowConfig {
	return &ShowConfig{
		Full: false,
	}
}

var showCmd = &cobra.Command{
	Use:   "show <skill-name>",
	Short: "Show a skill's descriptor and reference files",
	Long: `Show a skill's metadata, descriptor body, and the list of its reference
files. With --full, reference contents are printed as well.

Examples:
  skillhub show foundry-solidity
  skillhub show foundry-solidity --full`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getShowConfigFromFlags(cmd)
		showSkillCmd(args[0], config)
	},
}

func init() {
	defaults := NewShowConfig()
	showCmd.Flags().Bool("full", defaults.Full, "Print reference file contents as well")
	rootCmd.AddCommand(showCmd)
}

func getShowConfigFromFlags(cmd *cobra.Command) *ShowConfig {
	config := NewShowConfig()
	if full, err := cmd.Flags().GetBool("full"); err == nil {
		config.Full = full
	}
	return config
}

func showSkillCmd(name string, config *ShowConfig) {
	discovery, err := newDiscovery()
	if err != nil {
		presenter.Error(err, "Failed to initialize skill discovery")
		os.Exit(1)
	}

	s, err := discovery.GetSkill(name)
	if err != nil {
		presenter.Error(err, "Skill not found")
		os.Exit(1)
	}

	presenter.Section(s.Name)
	presenter.Info(fmt.Sprintf("Description: %s", s.Description))
	if s.Version != "" {
		presenter.Info(fmt.Sprintf("Version:     %s", s.Version))
	}
	if s.License != "" {
		presenter.Info(fmt.Sprintf("License:     %s", s.License))
	}
	presenter.Info(fmt.Sprintf("Directory:   %s", s.Directory))
	presenter.Separator()

	fmt.Println(s.Content)

	if len(s.References) == 0 {
		return
	}

	presenter.Section("References")
	for _, ref := range s.References {
		presenter.Info(fmt.Sprintf("%s  (%s)", ref.Path, ref.Title))
		if config.Full {
			presenter.Separator()
			fmt.Println(ref.Content)
		}
	}
}
