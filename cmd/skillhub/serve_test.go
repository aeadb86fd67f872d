package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ServeConfig
		wantErr bool
	}{
		{
			name:   "defaults valid",
			config: NewServeConfig(),
		},
		{
			name:   "custom host and port",
			config: &ServeConfig{Host: "0.0.0.0", Port: 9000},
		},
		{
			name:    "negative debounce",
			config:  &ServeConfig{Host: "localhost", Port: 8668, Debounce: -1},
			wantErr: true,
		},
		{
			name:    "port out of range",
			config:  &ServeConfig{Host: "localhost", Port: 70000},
			wantErr: true,
		},
		{
			name:    "empty host",
			config:  &ServeConfig{Host: "", Port: 8668},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChangedSkillDirs(t *testing.T) {
	root := t.TempDir()
	skillDir := filepath.Join(root, "foundry-solidity")
	require.NoError(t, os.MkdirAll(filepath.Join(skillDir, "references"), 0o755))

	otherRoot := t.TempDir()

	paths := []string{
		filepath.Join(skillDir, "SKILL.md"),
		filepath.Join(skillDir, "references", "testing.md"),
		filepath.Join(otherRoot, "unrelated.md"),
	}

	dirs := changedSkillDirs([]string{root}, paths)
	assert.Equal(t, []string{skillDir}, dirs)
}

func TestChangedSkillDirsDeduplicates(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "skill-a")
	b := filepath.Join(root, "skill-b")
	require.NoError(t, os.MkdirAll(a, 0o755))
	require.NoError(t, os.MkdirAll(b, 0o755))

	paths := []string{
		filepath.Join(a, "SKILL.md"),
		filepath.Join(b, "SKILL.md"),
		filepath.Join(a, "SKILL.md"),
	}

	dirs := changedSkillDirs([]string{root}, paths)
	assert.ElementsMatch(t, []string{a, b}, dirs)
}
