package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skillhubdev/skillhub/pkg/lint"
)

func TestLintConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *LintConfig
		wantErr string
	}{
		{
			name:   "defaults valid",
			config: NewLintConfig(),
		},
		{
			name:   "warning threshold",
			config: &LintConfig{FailOn: "warning", Format: "text"},
		},
		{
			name:   "json format",
			config: &LintConfig{FailOn: "info", Format: "json"},
		},
		{
			name:    "invalid fail-on",
			config:  &LintConfig{FailOn: "fatal", Format: "text"},
			wantErr: "invalid fail-on severity",
		},
		{
			name:    "invalid format",
			config:  &LintConfig{FailOn: "error", Format: "yaml"},
			wantErr: "invalid output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLintConfigThreshold(t *testing.T) {
	assert.Equal(t, lint.SeverityError, (&LintConfig{FailOn: "error"}).threshold())
	assert.Equal(t, lint.SeverityWarning, (&LintConfig{FailOn: "warning"}).threshold())
	assert.Equal(t, lint.SeverityInfo, (&LintConfig{FailOn: "info"}).threshold())
}
