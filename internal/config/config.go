// Package config loads and validates the fitsync configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lildude/fitsync/internal/platform"
	"gopkg.in/yaml.v3"
)

// Config is the structure consumed by the sync orchestrator. Accounts and
// rules are read-only after load.
type Config struct {
	Accounts  map[string]platform.Credential `yaml:"accounts" json:"accounts"`
	SyncRules []SyncRule                     `yaml:"sync_rules" json:"sync_rules"`
	Cache     CacheConfig                    `yaml:"cache" json:"cache"`
}

// CacheConfig locates the payload and token cache directory.
type CacheConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// SyncRule is one declarative source→destination sync instruction. A rule
// referencing an account that is not configured is skipped at run time,
// not rejected at load time.
type SyncRule struct {
	Source        string                    `yaml:"source" json:"source"`
	Destination   string                    `yaml:"destination" json:"destination"`
	ActivityTypes []string                  `yaml:"activity_types" json:"activity_types"`
	StartDate     string                    `yaml:"start_date" json:"start_date"`
	EndDate       string                    `yaml:"end_date" json:"end_date"`
	Conflict      platform.ConflictStrategy `yaml:"conflict_strategy" json:"conflict_strategy"`
}

// DefaultPath returns ~/.fitsync/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".fitsync", "config.yaml")
}

// Load reads the config file at path. YAML and JSON files are both
// accepted, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if cfg.Cache.Directory == "" {
		cfg.Cache.Directory = filepath.Join("~", ".fitsync", "cache")
	}
	cfg.Cache.Directory = expandHome(cfg.Cache.Directory)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for key, cred := range c.Accounts {
		if cred.Email == "" || cred.Password == "" {
			return fmt.Errorf("account %q is missing email or password", key)
		}
	}
	for i, rule := range c.SyncRules {
		if rule.Source == "" || rule.Destination == "" {
			return fmt.Errorf("sync rule %d is missing source or destination", i)
		}
		if rule.Conflict != "" {
			if _, err := platform.ParseConflictStrategy(string(rule.Conflict)); err != nil {
				return fmt.Errorf("sync rule %d: %w", i, err)
			}
		}
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], string(os.PathSeparator)))
}
