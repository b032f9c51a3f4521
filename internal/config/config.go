// Package config provides configuration loading for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/finward/bankfeed/internal/common"
	"github.com/finward/bankfeed/internal/model"
)

// Config is the resolved application configuration. Credentials and the
// account list are passed explicitly to the components that need them; there
// is no ambient lookup past this point.
type Config struct {
	// BaseURL of the ledger API, always with a trailing slash.
	BaseURL      string
	ClientID     string
	ClientSecret string
	// ExportDir is where the session layer saves raw OFX exports.
	ExportDir string
	Accounts  []model.Account
	// Concurrency caps parallel account processing; 0 means sequential.
	Concurrency int
}

type accountEntry struct {
	Identifier string `mapstructure:"identifier"`
	Alias      string `mapstructure:"alias"`
}

// Load reads configuration from Viper (config file or BANKFEED_ env vars).
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:      viper.GetString("ledger.base_url"),
		ClientID:     viper.GetString("ledger.client_id"),
		ClientSecret: viper.GetString("ledger.client_secret"),
		ExportDir:    ExpandPath(viper.GetString("export.dir")),
		Concurrency:  viper.GetInt("sync.concurrency"),
	}

	var entries []accountEntry
	if err := viper.UnmarshalKey("accounts", &entries); err != nil {
		return nil, fmt.Errorf("%w: accounts: %v", common.ErrInvalidConfig, err)
	}
	for _, e := range entries {
		cfg.Accounts = append(cfg.Accounts, model.Account{
			Identifier: e.Identifier,
			Alias:      e.Alias,
		})
	}

	if cfg.BaseURL != "" && !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	return cfg, nil
}

// Validate checks the settings every command needs: the ledger endpoint and
// the client credential pair.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: ledger.base_url", common.ErrMissingConfig)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%w: ledger.client_id", common.ErrMissingConfig)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%w: ledger.client_secret", common.ErrMissingConfig)
	}
	return nil
}

// ValidateSync checks the additional settings the sync command needs.
func (c *Config) ValidateSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ExportDir == "" {
		return fmt.Errorf("%w: export.dir", common.ErrMissingConfig)
	}
	if len(c.Accounts) == 0 {
		return fmt.Errorf("%w: accounts", common.ErrMissingConfig)
	}
	for _, a := range c.Accounts {
		if a.Identifier == "" {
			return fmt.Errorf("%w: account entry without identifier", common.ErrInvalidConfig)
		}
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
