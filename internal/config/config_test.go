package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dwell.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "idea_category", cfg.GroupBy)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, "New Issues", cfg.Conventions.InitialStatus)
	assert.Equal(t, "Done", cfg.Conventions.TerminalStatus)
	assert.Contains(t, cfg.ExpectedStatuses, "In Progress")
	assert.Contains(t, cfg.ExpectedStatuses, "Done w/o dev")

	require.Contains(t, cfg.GroupModes, "impact")
	require.Contains(t, cfg.GroupModes, "idea_category")
	assert.Equal(t, "customfield_10068", cfg.GroupModes["impact"].FieldID)
	assert.Equal(t, "Idea Category", cfg.GroupModes["idea_category"].FieldName)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server: https://example.atlassian.net
email: dev@example.com
jql: project = CN AND status = Done
group-by: product_domain
page-size: 50
initial-status: Backlog
group-modes:
  product_domain:
    field-id: customfield_12345
    field-name: Product Domain
    description: Group by Product Domain
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.atlassian.net", cfg.Server)
	assert.Equal(t, "dev@example.com", cfg.Email)
	assert.Equal(t, "project = CN AND status = Done", cfg.JQL)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "Backlog", cfg.Conventions.InitialStatus)
	assert.Equal(t, "Done", cfg.Conventions.TerminalStatus)

	// File-defined modes extend the built-ins.
	mode, err := cfg.Mode()
	require.NoError(t, err)
	assert.Equal(t, "customfield_12345", mode.FieldID)
	assert.Contains(t, cfg.GroupModes, "impact")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DWELL_SERVER", "https://env.atlassian.net")
	t.Setenv("JIRA_API_TOKEN", "env-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.atlassian.net", cfg.Server)
	assert.Equal(t, "env-token", cfg.APIToken)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestModeUnknown(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.GroupBy = "severity"
	_, err = cfg.Mode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
	assert.Contains(t, err.Error(), "idea_category")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{Server: "https://x.atlassian.net", APIToken: "tok"}, false},
		{"missing server", Config{APIToken: "tok"}, true},
		{"missing token", Config{Server: "https://x.atlassian.net"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
