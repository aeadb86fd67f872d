package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillhubdev/skillhub/pkg/logger"
	"github.com/skillhubdev/skillhub/pkg/presenter"
	"github.com/skillhubdev/skillhub/pkg/skill"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("SKILLHUB")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillhub")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "skillhub",
	Short: "Manage a corpus of documentation skills",
	Long: `Skillhub manages a corpus of documentation skills: directories bundling a
SKILL.md descriptor with YAML frontmatter and a references/ folder of
deep-dive markdown files, consumed by AI-assistant hosts.

It discovers, lints, bundles, indexes, and serves skills.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

// newDiscovery builds a Discovery from the configured corpus roots, falling
// back to the default local and global roots
func newDiscovery() (*skill.Discovery, error) {
	if dirs := viper.GetStringSlice("skill_dirs"); len(dirs) > 0 {
		return skill.NewDiscovery(skill.WithSkillDirs(dirs...))
	}
	return skill.NewDiscovery()
}

// skillRoots returns the configured corpus roots
func skillRoots() ([]string, error) {
	discovery, err := newDiscovery()
	if err != nil {
		return nil, err
	}
	return discovery.Roots(), nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		presenter.Warning("Cancellation requested, shutting down...")
		cancel()
	}()

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")
	rootCmd.PersistentFlags().StringSlice("skill-dirs", nil, "Corpus roots to search for skills (overrides config)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("skill_dirs", rootCmd.PersistentFlags().Lookup("skill-dirs"))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
