package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/hub"
	"github.com/skillhubdev/skillhub/pkg/index"
	"github.com/skillhubdev/skillhub/pkg/lint"
	"github.com/skillhubdev/skillhub/pkg/logger"
	"github.com/skillhubdev/skillhub/pkg/presenter"
	"github.com/skillhubdev/skillhub/pkg/watcher"
)

type ServeConfig struct {
	Host     string
	Port     int
	Watch    bool
	Debounce int
}

func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host:     "localhost",
		Port:     8668,
		Watch:    false,
		Debounce: 500,
	}
}

func (c *ServeConfig) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("debounce time cannot be negative: %d", c.Debounce)
	}
	serverConfig := hub.ServerConfig{Host: c.Host, Port: c.Port}
	return serverConfig.Validate()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the corpus over HTTP",
	Long: `Serve the corpus API: skill listing, descriptors, reference files,
bundled delivery, and index-backed search.

With --watch, corpus roots are observed for markdown changes; the index is
rebuilt and changed skills re-linted when changes settle.

Examples:
  skillhub serve
  skillhub serve --host 0.0.0.0 --port 9000
  skillhub serve --watch`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getServeConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}
		serveCmdRun(cmd.Context(), config)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the server to")
	serveCmd.Flags().Bool("watch", defaults.Watch, "Watch corpus roots and keep the index current")
	serveCmd.Flags().Int("debounce", defaults.Debounce, "Watch debounce time in milliseconds")
	rootCmd.AddCommand(serveCmd)
}

func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()
	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if debounce, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.Debounce = debounce
	}
	return config
}

func serveCmdRun(ctx context.Context, config *ServeConfig) {
	discovery, err := newDiscovery()
	if err != nil {
		presenter.Error(err, "Failed to initialize skill discovery")
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

	rebuild := func(ctx context.Context) {
		skills, err := discovery.DiscoverSkills()
		if err != nil {
			logger.G(ctx).WithError(err).Error("Failed to discover skills")
			return
		}
		if err := idx.Rebuild(ctx, skills); err != nil {
			logger.G(ctx).WithError(err).Error("Failed to rebuild index")
		}
	}
	rebuild(ctx)

	if config.Watch {
		linter, err := lint.New()
		if err != nil {
			presenter.Error(err, "Failed to create linter")
			os.Exit(1)
		}

		w, err := watcher.New(discovery.Roots(), func(ctx context.Context, paths []string) {
			logger.G(ctx).WithField("changes", len(paths)).Info("Corpus changed, rebuilding index")
			rebuild(ctx)

			for _, dir := range changedSkillDirs(discovery.Roots(), paths) {
				result := linter.LintDir(ctx, dir)
				for _, f := range result.Findings {
					presenter.Finding(string(f.Severity), f.Rule, fmt.Sprintf("%s:%d", f.File, f.Line), f.Message)
				}
			}
		}, watcher.WithDebounce(time.Duration(config.Debounce)*time.Millisecond))
		if err != nil {
			presenter.Error(err, "Failed to create watcher")
			os.Exit(1)
		}

		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.G(ctx).WithError(err).Error("Watcher stopped")
			}
		}()
	}

	server, err := hub.NewServer(&hub.ServerConfig{Host: config.Host, Port: config.Port}, discovery, idx)
	if err != nil {
		presenter.Error(err, "Failed to create server")
		os.Exit(1)
	}

	presenter.Info(fmt.Sprintf("Serving corpus on http://%s:%d", config.Host, config.Port))

	if err := server.Start(ctx); err != nil {
		presenter.Error(err, "Server shutdown failed")
		os.Exit(1)
	}
}

// changedSkillDirs maps changed file paths back to the skill directories that
// contain them: the first path segment under a corpus root
func changedSkillDirs(roots []string, paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string

	for _, path := range paths {
		for _, root := range roots {
			rel, err := filepath.Rel(root, path)
			if err != nil || rel == "." || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
				continue
			}

			first := rel
			if idx := indexOfSeparator(rel); idx != -1 {
				first = rel[:idx]
			}

			dir := filepath.Join(root, first)
			if info, err := os.Stat(dir); err == nil && info.IsDir() && !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
			break
		}
	}

	return dirs
}

func indexOfSeparator(path string) int {
	for i := 0; i < len(path); i++ {
		if os.IsPathSeparator(path[i]) {
			return i
		}
	}
	return -1
}
