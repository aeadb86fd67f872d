package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/llmstxt"
	"github.com/skillhubdev/skillhub/pkg/presenter"
)

type LlmsTxtConfig struct {
	Title  string
	Output string
}

func NewLlmsTxtConfig() *LlmsTxtConfig {
	return &LlmsTxtConfig{
		Title:  "Skill Corpus",
		Output: "",
	}
}

var llmstxtCmd = &cobra.Command{
	Use:   "llmstxt",
	Short: "Generate an llms.txt site map for the corpus",
	Long: `Generate an llms.txt style site map listing every skill and its reference
files, for LLM-facing delivery of the corpus.

Examples:
  skillhub llmstxt
  skillhub llmstxt --title "Internal Skills" -o llms.txt`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getLlmsTxtConfigFromFlags(cmd)
		llmstxtCmdRun(config)
	},
}

func init() {
	defaults := NewLlmsTxtConfig()
	llmstxtCmd.Flags().String("title", defaults.Title, "Site map title")
	llmstxtCmd.Flags().StringP("output", "o", defaults.Output, "Output file (default stdout)")
	rootCmd.AddCommand(llmstxtCmd)
}

func getLlmsTxtConfigFromFlags(cmd *cobra.Command) *LlmsTxtConfig {
	config := NewLlmsTxtConfig()
	if title, err := cmd.Flags().GetString("title"); err == nil {
		config.Title = title
	}
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	return config
}

func llmstxtCmdRun(config *LlmsTxtConfig) {
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

	out := os.Stdout
	if config.Output != "" {
		f, err := os.Create(config.Output)
		if err != nil {
			presenter.Error(err, "Failed to create output file")
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := llmstxt.Generate(out, config.Title, skills); err != nil {
		presenter.Error(err, "Failed to generate site map")
		os.Exit(1)
	}

	if config.Output != "" {
		presenter.Success(fmt.Sprintf("Wrote site map for %d skill(s) to %s", len(skills), config.Output))
	}
}
