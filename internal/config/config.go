package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Pages that gate administrative operations.
const (
	PageWasteLog = "waste-log"
	PageRedeem   = "redeem"
	PageAward    = "award"
	PageAccess   = "access"
)

// Config models ecosort.yml.
type Config struct {
	Ranking struct {
		EligibleRoles []string `yaml:"eligible_roles"`
	} `yaml:"ranking"`
	History struct {
		DefaultLimit int `yaml:"default_limit"`
		MaxLimit     int `yaml:"max_limit"`
	} `yaml:"history"`
	Roles  map[string]Role `yaml:"roles"`
	Server struct {
		CORSOrigins []string `yaml:"cors_origins"`
		DevLogin    bool     `yaml:"dev_login"`
	} `yaml:"server"`
	Timezone string `yaml:"timezone"`

	loc *time.Location
}

type Role struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Pages       []string `yaml:"pages"`
}

// Validate ensures the config meets required structure and fills defaults.
func (c *Config) Validate() error {
	if len(c.Ranking.EligibleRoles) == 0 {
		return fmt.Errorf("config.ranking.eligible_roles is required")
	}
	for _, r := range c.Ranking.EligibleRoles {
		if r == "" {
			return fmt.Errorf("config.ranking.eligible_roles contains empty role id")
		}
	}
	if c.History.DefaultLimit <= 0 {
		c.History.DefaultLimit = 200
	}
	if c.History.MaxLimit <= 0 {
		c.History.MaxLimit = 1000
	}
	if c.History.DefaultLimit > c.History.MaxLimit {
		return fmt.Errorf("config.history.default_limit %d exceeds max_limit %d", c.History.DefaultLimit, c.History.MaxLimit)
	}
	for roleID, role := range c.Roles {
		if roleID == "" {
			return fmt.Errorf("config.roles contains empty role id")
		}
		for _, p := range role.Pages {
			if p == "" {
				return fmt.Errorf("role %s has empty page id", roleID)
			}
		}
	}
	c.loc = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("config.timezone: %w", err)
		}
		c.loc = loc
	}
	return nil
}

// Location is the zone used for calendar day and month boundaries.
func (c *Config) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "ecosort.yml")
}

// Load reads config from the workspace, falling back to Default when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := FromYAML([]byte(DefaultYAML))
	if err != nil {
		panic(err)
	}
	return cfg
}

const DefaultYAML = `ranking:
  eligible_roles: [student, staff]

history:
  default_limit: 200
  max_limit: 1000

roles:
  admin:
    name: Administrator
    description: "Full access to audit, catalog and access control"
    pages: [dashboard, waste-log, redeem, award, access, profile]
  staff:
    name: Staff
    pages: [dashboard, tracking, user-award, profile]
  student:
    name: Student
    pages: [dashboard, tracking, user-award, profile]

server:
  cors_origins: ["http://localhost:3000"]
  dev_login: false
`
