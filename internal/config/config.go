// Package config provides YAML-based configuration loading for bomsync.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Quantity policies for push (see PushConfig.PositionQuantity).
const (
	QuantityEnforce  = "enforce"
	QuantityOverride = "override"
)

// Config is the top-level bomsync configuration, loaded from bomsync.yaml.
type Config struct {
	Workbook WorkbookConfig `yaml:"workbook"`
	Database DatabaseConfig `yaml:"database"`
	Arena    ArenaConfig    `yaml:"arena"`
	Push     PushConfig     `yaml:"push"`
	Notify   NotifyConfig   `yaml:"notify"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// WorkbookConfig describes the spreadsheet workbook holding the rack sheets.
type WorkbookConfig struct {
	Path             string            `yaml:"path"`
	OverviewSheet    string            `yaml:"overview_sheet"`
	DataStartRow     int               `yaml:"data_start_row"`
	PositionPrefix   string            `yaml:"position_prefix"`
	AttributeColumns []string          `yaml:"attribute_columns"`
	CategoryColors   map[string]string `yaml:"category_colors"`
}

// DatabaseConfig holds connection settings for the tracking database.
// sqlite is the default embedded backend; mysql serves shared deployments.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ArenaConfig holds settings for the Arena PLM API client.
type ArenaConfig struct {
	BaseURL           string `yaml:"base_url"`
	TokenFile         string `yaml:"token_file"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	PositionAttribute string `yaml:"position_attribute"`
}

// PushConfig controls how local BOMs are written back to Arena.
type PushConfig struct {
	// PositionQuantity resolves disagreement between a line's BOM quantity
	// and the quantity implied by its installation positions: "enforce"
	// blocks the push, "override" substitutes the implied count.
	PositionQuantity string `yaml:"position_quantity"`
}

// NotifyConfig configures outbound event notification sinks.
type NotifyConfig struct {
	Slack       SlackConfig   `yaml:"slack"`
	Discord     DiscordConfig `yaml:"discord"`
	Command     string        `yaml:"command"` // shell template, e.g. "notify-send {title} {body}"
	PollSeconds int           `yaml:"poll_seconds"`
}

// SlackConfig holds Slack Web API credentials for the notifier.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig holds Discord bot credentials for the notifier.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// ScheduleConfig drives the watch daemon's automatic refreshes.
type ScheduleConfig struct {
	RefreshCron string `yaml:"refresh_cron"` // 5-field cron; empty disables
	AutoApply   bool   `yaml:"auto_apply"`   // apply deltas without approval
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Workbook.OverviewSheet == "" {
		c.Workbook.OverviewSheet = "Overview"
	}
	if c.Workbook.DataStartRow == 0 {
		c.Workbook.DataStartRow = 5
	}
	if c.Workbook.PositionPrefix == "" {
		c.Workbook.PositionPrefix = "pos"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "bomsync.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Arena.TokenFile == "" {
		c.Arena.TokenFile = os.ExpandEnv("${HOME}/.bomsync/token")
	}
	if c.Arena.TimeoutSeconds == 0 {
		c.Arena.TimeoutSeconds = 30
	}
	if c.Arena.PositionAttribute == "" {
		c.Arena.PositionAttribute = "Installation Positions"
	}
	if c.Push.PositionQuantity == "" {
		c.Push.PositionQuantity = QuantityEnforce
	}
	if c.Notify.PollSeconds == 0 {
		c.Notify.PollSeconds = 15
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Workbook.Path == "" {
		errs = append(errs, "workbook.path is required")
	}
	if c.Workbook.DataStartRow < 2 {
		errs = append(errs, "workbook.data_start_row must leave room for the metadata header")
	}
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Arena.BaseURL == "" {
		errs = append(errs, "arena.base_url is required")
	}
	if c.Push.PositionQuantity != QuantityEnforce && c.Push.PositionQuantity != QuantityOverride {
		errs = append(errs, fmt.Sprintf("push.position_quantity %q is not supported (enforce, override)", c.Push.PositionQuantity))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
