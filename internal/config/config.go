// Package config loads the per-run configuration: Jira endpoint and
// credentials, the JQL filter, the grouping mode, and the workflow
// conventions the analysis depends on. Values layer file < environment <
// flags, with the file optional.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/jirakit/dwell/internal/replay"
)

// GroupMode maps a grouping-mode name to the Jira custom field it reads.
type GroupMode struct {
	FieldID     string `mapstructure:"field-id" yaml:"field-id"`
	FieldName   string `mapstructure:"field-name" yaml:"field-name"`
	Description string `mapstructure:"description" yaml:"description"`
}

// Config is everything a single analysis run needs. It is built once at
// startup and passed down; nothing in here is process-global.
type Config struct {
	Server   string `mapstructure:"server"`
	Email    string `mapstructure:"email"`
	APIToken string `mapstructure:"api-token"`
	JQL      string `mapstructure:"jql"`
	GroupBy  string `mapstructure:"group-by"`
	PageSize int    `mapstructure:"page-size"`

	Conventions      replay.Conventions   `mapstructure:",squash"`
	ExpectedStatuses []string             `mapstructure:"expected-statuses"`
	GroupModes       map[string]GroupMode `mapstructure:"group-modes"`
}

// Mode resolves the configured grouping mode, listing the valid names when
// the lookup fails.
func (c *Config) Mode() (GroupMode, error) {
	mode, ok := c.GroupModes[c.GroupBy]
	if !ok {
		names := make([]string, 0, len(c.GroupModes))
		for name := range c.GroupModes {
			names = append(names, name)
		}
		sort.Strings(names)
		return GroupMode{}, fmt.Errorf("unknown grouping mode %q (available: %s)",
			c.GroupBy, strings.Join(names, ", "))
	}
	return mode, nil
}

// Validate checks the fields every command needs before touching the
// network.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("jira server not configured (set server in dwell.yaml or DWELL_SERVER)")
	}
	if c.APIToken == "" {
		return fmt.Errorf("jira API token not configured (set DWELL_API_TOKEN or JIRA_API_TOKEN)")
	}
	return nil
}

// DefaultExpectedStatuses is the reference workflow the report classifies
// against. Statuses outside this list still count toward totals; the
// renderer flags them as unexpected.
func DefaultExpectedStatuses() []string {
	return []string{
		"New",
		"New Issues",
		"Ready For Specification",
		"Product specification",
		"Refinement",
		"Ready to Plan",
		"Ready for Development",
		"Missing information",
		"In Progress",
		"Waiting for Code Review",
		"Code Review",
		"Ready for QA",
		"In Testing",
		"Testing Complete",
		"Passed",
		"Failed",
		"Dev Ready/Complete",
		"Done w/o dev",
		"Done",
		"On Hold",
	}
}

func defaultGroupModes() map[string]GroupMode {
	return map[string]GroupMode{
		"impact": {
			FieldID:     "customfield_10068",
			FieldName:   "Impact",
			Description: "Group by Impact level (Low, Medium, High)",
		},
		"idea_category": {
			FieldID:     "customfield_10476",
			FieldName:   "Idea Category",
			Description: "Group by Idea Category",
		},
	}
}

// Load reads dwell.yaml (from path if given, else the working directory)
// and applies environment overrides. A missing config file is fine; missing
// required values are caught later by Validate so read-only commands keep
// working.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dwell")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api-token", "DWELL_API_TOKEN", "JIRA_API_TOKEN")

	conv := replay.DefaultConventions()
	// Empty defaults register the keys so AutomaticEnv can fill them.
	v.SetDefault("server", "")
	v.SetDefault("email", "")
	v.SetDefault("jql", "")
	v.SetDefault("group-by", "idea_category")
	v.SetDefault("page-size", 100)
	v.SetDefault("initial-status", conv.InitialStatus)
	v.SetDefault("terminal-status", conv.TerminalStatus)
	v.SetDefault("expected-statuses", DefaultExpectedStatuses())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// File-defined modes extend the built-ins rather than replacing them.
	modes := defaultGroupModes()
	for name, mode := range cfg.GroupModes {
		modes[name] = mode
	}
	cfg.GroupModes = modes

	return &cfg, nil
}
