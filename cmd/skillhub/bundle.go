package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/bundle"
	"github.com/skillhubdev/skillhub/pkg/presenter"
	"github.com/skillhubdev/skillhub/pkg/skill"
)

type BundleConfig struct {
	Output  string
	Include []string
	Exclude []string
}

func NewBundleConfig() *BundleConfig {
	return &BundleConfig{
		Output:  "",
		Include: nil,
		Exclude: nil,
	}
}

type UnbundleConfig struct {
	Dir string
}

func NewUnbundleConfig() *UnbundleConfig {
	return &UnbundleConfig{
		Dir: "",
	}
}

var bundleCmd = &cobra.Command{
	Use:   "bundle <skill-name|skill-dir>",
	Short: "Flatten a skill into a single deliverable document",
	Long: `Flatten a skill directory into a single markdown document. The descriptor
comes first; every included file follows, introduced by a '=== path ==='
marker line.

The argument is either a skill name resolved against the corpus roots, or a
path to a skill directory.

Examples:
  skillhub bundle foundry-solidity
  skillhub bundle ./skills/foundry-solidity -o foundry.md
  skillhub bundle foundry-solidity --include '**/*' --exclude 'assets/**'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getBundleConfigFromFlags(cmd)
		bundleSkillCmd(args[0], config)
	},
}

var unbundleCmd = &cobra.Command{
	Use:   "unbundle <bundle-file>",
	Short: "Split a bundle document back into a skill directory",
	Long: `Split a bundle document back into its constituent files, restoring the
skill directory layout.

Examples:
  skillhub unbundle foundry.md
  skillhub unbundle foundry.md -d ./skills/foundry-solidity`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getUnbundleConfigFromFlags(cmd)
		unbundleCmdRun(args[0], config)
	},
}

func init() {
	bundleDefaults := NewBundleConfig()
	bundleCmd.Flags().StringP("output", "o", bundleDefaults.Output, "Output file (default stdout)")
	bundleCmd.Flags().StringSlice("include", bundleDefaults.Include, "Glob patterns selecting files to bundle (default references/**/*.md)")
	bundleCmd.Flags().StringSlice("exclude", bundleDefaults.Exclude, "Glob patterns removing files from the selection")

	unbundleDefaults := NewUnbundleConfig()
	unbundleCmd.Flags().StringP("dir", "d", unbundleDefaults.Dir, "Destination skill directory (default derived from the descriptor name)")

	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(unbundleCmd)
}

func getBundleConfigFromFlags(cmd *cobra.Command) *BundleConfig {
	config := NewBundleConfig()
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if include, err := cmd.Flags().GetStringSlice("include"); err == nil {
		config.Include = include
	}
	if exclude, err := cmd.Flags().GetStringSlice("exclude"); err == nil {
		config.Exclude = exclude
	}
	return config
}

func getUnbundleConfigFromFlags(cmd *cobra.Command) *UnbundleConfig {
	config := NewUnbundleConfig()
	if dir, err := cmd.Flags().GetString("dir"); err == nil {
		config.Dir = dir
	}
	return config
}

// resolveSkillDir turns the argument into a skill directory: an existing
// directory path wins, otherwise the name is resolved against the corpus
func resolveSkillDir(arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg, nil
	}

	discovery, err := newDiscovery()
	if err != nil {
		return "", err
	}

	s, err := discovery.GetSkill(arg)
	if err != nil {
		return "", err
	}

	return s.Directory, nil
}

func bundleSkillCmd(arg string, config *BundleConfig) {
	dir, err := resolveSkillDir(arg)
	if err != nil {
		presenter.Error(err, "Failed to resolve skill")
		os.Exit(1)
	}

	var opts []bundle.Option
	if len(config.Include) > 0 {
		opts = append(opts, bundle.WithInclude(config.Include...))
	}
	if len(config.Exclude) > 0 {
		opts = append(opts, bundle.WithExclude(config.Exclude...))
	}

	bundler, err := bundle.New(opts...)
	if err != nil {
		presenter.Error(err, "Failed to create bundler")
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

	if err := bundler.WriteDir(out, dir); err != nil {
		presenter.Error(err, "Failed to write bundle")
		os.Exit(1)
	}

	if config.Output != "" {
		presenter.Success(fmt.Sprintf("Bundled '%s' into %s", filepath.Base(dir), config.Output))
	}
}

func unbundleCmdRun(path string, config *UnbundleConfig) {
	f, err := os.Open(path)
	if err != nil {
		presenter.Error(err, "Failed to open bundle file")
		os.Exit(1)
	}
	defer f.Close()

	parsed, err := bundle.Split(f)
	if err != nil {
		presenter.Error(err, "Failed to parse bundle")
		os.Exit(1)
	}

	dir := config.Dir
	if dir == "" {
		metadata, err := skillMetadataFromDescriptor(parsed.Descriptor)
		if err != nil {
			presenter.Error(err, "Bundle descriptor has no usable name; use --dir")
			os.Exit(1)
		}
		dir = metadata
	}

	if err := bundle.Restore(dir, parsed); err != nil {
		presenter.Error(err, "Failed to restore skill")
		os.Exit(1)
	}

	presenter.Success(fmt.Sprintf("Restored %d file(s) into %s", len(parsed.Files)+1, dir))
}

// skillMetadataFromDescriptor extracts the skill name from a raw descriptor
func skillMetadataFromDescriptor(descriptor string) (string, error) {
	metadata, err := skill.ParseFrontmatter([]byte(descriptor))
	if err != nil {
		return "", err
	}
	return metadata.Name, nil
}
