package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillhubdev/skillhub/pkg/presenter"
)

type AddConfig struct {
	Global bool
	Dir    string
}

func NewAddConfig() *AddConfig {
	return &AddConfig{
		Global: false,
		Dir:    "",
	}
}

type RemoveConfig struct {
	Global bool
}

func NewRemoveConfig() *RemoveConfig {
	return &RemoveConfig{
		Global: false,
	}
}

var addCmd = &cobra.Command{
	Use:   "add <repo>",
	Short: "Add skills from a GitHub repository",
	Long: `Add skills from a GitHub repository. The repository should contain
directories with SKILL.md files. You can specify:

  - A repo: orgname/skills (adds all skills)
  - A repo with a specific skill: orgname/skills --dir skills/specific-skill
  - A repo with version: orgname/skills@v0.1.0 (adds from specific tag/branch/sha)

Examples:
  skillhub add orgname/skills
  skillhub add orgname/skills --dir skills/specific-skill
  skillhub add orgname/skills@main
  skillhub add orgname/skills -g`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getAddConfigFromFlags(cmd)
		addSkillCmd(args[0], config)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <skill-name>",
	Short: "Remove an installed skill",
	Long: `Remove an installed skill by name.

Examples:
  skillhub remove specific-skill
  skillhub remove specific-skill -g`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getRemoveConfigFromFlags(cmd)
		removeSkillCmd(args[0], config)
	},
}

func init() {
	addDefaults := NewAddConfig()
	addCmd.Flags().BoolP("global", "g", addDefaults.Global, "Install to global ~/.skillhub/skills directory instead of local ./.skillhub/skills")
	addCmd.Flags().StringP("dir", "d", addDefaults.Dir, "Path to a specific skill directory within the repository")

	removeDefaults := NewRemoveConfig()
	removeCmd.Flags().BoolP("global", "g", removeDefaults.Global, "Remove from global ~/.skillhub/skills directory instead of local ./.skillhub/skills")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}

func getAddConfigFromFlags(cmd *cobra.Command) *AddConfig {
	config := NewAddConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if dir, err := cmd.Flags().GetString("dir"); err == nil {
		config.Dir = dir
	}
	return config
}

func getRemoveConfigFromFlags(cmd *cobra.Command) *RemoveConfig {
	config := NewRemoveConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	return config
}

func getSkillsDir(global bool) (string, error) {
	if global {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get user home directory")
		}
		return filepath.Join(homeDir, ".skillhub", "skills"), nil
	}
	return ".skillhub/skills", nil
}

func isGhCliInstalled() bool {
	_, err := exec.LookPath("gh")
	return err == nil
}

func isGhAuthenticated() bool {
	cmd := exec.Command("gh", "auth", "status")
	return cmd.Run() == nil
}

func addSkillCmd(repo string, config *AddConfig) {
	if !isGhCliInstalled() {
		presenter.Error(errors.New("gh CLI is not installed"), "Please install the GitHub CLI (gh) to use this command")
		os.Exit(1)
	}

	if !isGhAuthenticated() {
		presenter.Error(errors.New("gh CLI is not authenticated"), "Please run 'gh auth login' to authenticate")
		os.Exit(1)
	}

	repoName, ref := parseRepoAndRef(repo)

	tmpDir, err := os.MkdirTemp("", "skillhub-add-*")
	if err != nil {
		presenter.Error(err, "Failed to create temporary directory")
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	if err := cloneRepo(repoName, ref, tmpDir); err != nil {
		presenter.Error(err, "Failed to clone repository")
		os.Exit(1)
	}

	skillsDir, err := getSkillsDir(config.Global)
	if err != nil {
		presenter.Error(err, "Failed to determine skills directory")
		os.Exit(1)
	}

	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		presenter.Error(err, "Failed to create skills directory")
		os.Exit(1)
	}

	var skillDirs []string
	if config.Dir != "" {
		targetPath := filepath.Join(tmpDir, config.Dir)
		skillFile := filepath.Join(targetPath, "SKILL.md")
		if _, err := os.Stat(skillFile); os.IsNotExist(err) {
			presenter.Error(errors.Errorf("no SKILL.md found at %s", config.Dir), "Invalid skill path")
			os.Exit(1)
		}
		skillDirs = []string{targetPath}
	} else {
		skillDirs, err = findSkillDirs(tmpDir)
		if err != nil {
			presenter.Error(err, "Failed to find skills in repository")
			os.Exit(1)
		}
	}

	if len(skillDirs) == 0 {
		presenter.Warning("No skills found in the repository")
		return
	}

	installed := 0
	for _, dir := range skillDirs {
		skillName := filepath.Base(dir)
		destDir := filepath.Join(skillsDir, skillName)

		if _, err := os.Stat(destDir); err == nil {
			presenter.Warning(fmt.Sprintf("Skill '%s' already exists, skipping", skillName))
			continue
		}

		if err := copyDir(dir, destDir); err != nil {
			presenter.Error(err, fmt.Sprintf("Failed to install skill '%s'", skillName))
			continue
		}

		installed++
		presenter.Success(fmt.Sprintf("Installed skill '%s' to %s", skillName, destDir))
	}

	if installed > 0 {
		presenter.Info(fmt.Sprintf("Successfully installed %d skill(s)", installed))
	}
}

// cloneRepo clones via the gh CLI, retrying transient failures
func cloneRepo(repoName, ref, destDir string) error {
	cloneArgs := []string{"repo", "clone", repoName, destDir}
	if ref != "" {
		cloneArgs = append(cloneArgs, "--", "--branch", ref, "--single-branch")
	}

	return retry.Do(
		func() error {
			// gh refuses to clone into a non-empty directory on retry
			if err := clearDir(destDir); err != nil {
				return retry.Unrecoverable(err)
			}

			cmd := exec.Command("gh", cloneArgs...)
			if output, err := cmd.CombinedOutput(); err != nil {
				return errors.Wrapf(err, "output: %s", string(output))
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func parseRepoAndRef(repo string) (string, string) {
	if idx := strings.LastIndex(repo, "@"); idx != -1 {
		return repo[:idx], repo[idx+1:]
	}
	return repo, ""
}

func findSkillDirs(root string) ([]string, error) {
	var skillDirs []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() && (info.Name() == ".git" || info.Name() == "node_modules") {
			return filepath.SkipDir
		}

		if !info.IsDir() && info.Name() == "SKILL.md" {
			skillDirs = append(skillDirs, filepath.Dir(path))
		}

		return nil
	})

	return skillDirs, err
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(destPath, info.Mode())
		}

		return copyFile(path, destPath)
	})
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

func removeSkillCmd(name string, config *RemoveConfig) {
	skillsDir, err := getSkillsDir(config.Global)
	if err != nil {
		presenter.Error(err, "Failed to determine skills directory")
		os.Exit(1)
	}

	skillDir := filepath.Join(skillsDir, name)

	skillFile := filepath.Join(skillDir, "SKILL.md")
	if _, err := os.Stat(skillFile); os.IsNotExist(err) {
		location := "local"
		if config.Global {
			location = "global"
		}
		presenter.Error(errors.Errorf("skill '%s' not found in %s skills directory", name, location), "Skill not found")
		os.Exit(1)
	}

	if err := os.RemoveAll(skillDir); err != nil {
		presenter.Error(err, fmt.Sprintf("Failed to remove skill '%s'", name))
		os.Exit(1)
	}

	presenter.Success(fmt.Sprintf("Removed skill '%s' from %s", name, skillDir))
}
