package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/lint"
	"github.com/skillhubdev/skillhub/pkg/presenter"
)

type LintConfig struct {
	Ignore []string
	FailOn string
	Format string
}

func NewLintConfig() *LintConfig {
	return &LintConfig{
		Ignore: nil,
		FailOn: "error",
		Format: "text",
	}
}

func (c *LintConfig) Validate() error {
	switch c.FailOn {
	case "error", "warning", "info":
	default:
		return fmt.Errorf("invalid fail-on severity: %s, must be one of: error, warning, info", c.FailOn)
	}

	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output format: %s, must be one of: text, json", c.Format)
	}

	return nil
}

func (c *LintConfig) threshold() lint.Severity {
	switch c.FailOn {
	case "warning":
		return lint.SeverityWarning
	case "info":
		return lint.SeverityInfo
	default:
		return lint.SeverityError
	}
}

var lintCmd = &cobra.Command{
	Use:   "lint [skill-dir...]",
	Short: "Check corpus content invariants",
	Long: `Check the corpus content invariants: frontmatter parses and carries the
required keys, every internal cross-reference resolves to an existing file,
every code fence is closed, and heading structure is sane.

Without arguments, every skill under the configured corpus roots is linted.
With arguments, only the given skill directories are linted.

Examples:
  skillhub lint
  skillhub lint ./skills/foundry-solidity
  skillhub lint --fail-on warning --format json
  skillhub lint --ignore 'references/generated/**'`,
	Run: func(cmd *cobra.Command, args []string) {
		config := getLintConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}
		lintSkillsCmd(cmd, args, config)
	},
}

func init() {
	defaults := NewLintConfig()
	lintCmd.Flags().StringSlice("ignore", defaults.Ignore, "Glob patterns for skill-relative file paths to skip")
	lintCmd.Flags().String("fail-on", defaults.FailOn, "Lowest severity that causes a non-zero exit (error, warning, info)")
	lintCmd.Flags().String("format", defaults.Format, "Output format (text, json)")
	rootCmd.AddCommand(lintCmd)
}

func getLintConfigFromFlags(cmd *cobra.Command) *LintConfig {
	config := NewLintConfig()
	if ignore, err := cmd.Flags().GetStringSlice("ignore"); err == nil {
		config.Ignore = ignore
	}
	if failOn, err := cmd.Flags().GetString("fail-on"); err == nil {
		config.FailOn = failOn
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	return config
}

func lintSkillsCmd(cmd *cobra.Command, args []string, config *LintConfig) {
	ctx := cmd.Context()

	linter, err := lint.New(lint.WithIgnorePatterns(config.Ignore...))
	if err != nil {
		presenter.Error(err, "Failed to create linter")
		os.Exit(1)
	}

	var results []*lint.Result
	if len(args) > 0 {
		for _, dir := range args {
			results = append(results, linter.LintDir(ctx, dir))
		}
	} else {
		roots, err := skillRoots()
		if err != nil {
			presenter.Error(err, "Failed to determine corpus roots")
			os.Exit(1)
		}

		results, err = linter.LintRoots(ctx, roots)
		if err != nil {
			presenter.Error(err, "Failed to lint corpus")
			os.Exit(1)
		}
	}

	switch config.Format {
	case "json":
		if err := json.NewEncoder(os.Stdout).Encode(results); err != nil {
			presenter.Error(err, "Failed to encode lint results")
			os.Exit(1)
		}
	default:
		printLintResults(results)
	}

	if lint.AnySeverity(results, config.threshold()) {
		os.Exit(1)
	}
}

func printLintResults(results []*lint.Result) {
	total := 0
	for _, result := range results {
		if len(result.Findings) == 0 {
			continue
		}

		presenter.Section(result.Skill)
		for _, f := range result.Findings {
			location := fmt.Sprintf("%s:%d", f.File, f.Line)
			presenter.Finding(string(f.Severity), f.Rule, location, f.Message)
			total++
		}
	}

	if total == 0 {
		presenter.Success(fmt.Sprintf("%d skill(s) clean", len(results)))
	} else {
		presenter.Warning(fmt.Sprintf("%d finding(s) across %d skill(s)", total, len(results)))
	}
}
