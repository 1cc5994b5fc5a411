// Package config loads the daemon configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hivepay/hivepay/types"
)

// File is the on-disk daemon configuration.
type File struct {
	HTTP struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Chain struct {
		ReceiveAccount string `yaml:"receive_account"`
		RPCNode        string `yaml:"rpc_node"`
		Explorer       string `yaml:"explorer"`
		Provider       string `yaml:"provider"` // "rpc" (default) or "explorer"
		HistoryLimit   int    `yaml:"history_limit"`
	} `yaml:"chain"`
	Oracle struct {
		URL string `yaml:"url"`
	} `yaml:"oracle"`
	Payment struct {
		ExpiresMinutes        int `yaml:"expires_minutes"`
		RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	} `yaml:"payment"`
	Store struct {
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"store"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when fields are left unset.
func Default() File {
	cfg := File{}
	cfg.HTTP.Port = 8080
	cfg.Chain.RPCNode = "https://api.hive.blog"
	cfg.Chain.Provider = "rpc"
	cfg.Payment.ExpiresMinutes = 60
	cfg.Payment.RequestTimeoutSeconds = 15
	cfg.LogLevel = "info"
	return cfg
}

// Load reads path (optional), then applies environment overrides.
func Load(path string) (File, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.HTTP.Port = envOrInt("HIVEPAY_HTTP_PORT", cfg.HTTP.Port)
	cfg.Chain.ReceiveAccount = envOr("HIVEPAY_RECEIVE_ACCOUNT", cfg.Chain.ReceiveAccount)
	cfg.Chain.RPCNode = envOr("HIVEPAY_RPC_NODE", cfg.Chain.RPCNode)
	cfg.Chain.Explorer = envOr("HIVEPAY_EXPLORER_URL", cfg.Chain.Explorer)
	cfg.Chain.Provider = envOr("HIVEPAY_PROVIDER", cfg.Chain.Provider)
	cfg.Oracle.URL = envOr("HIVEPAY_ORACLE_URL", cfg.Oracle.URL)
	cfg.Payment.ExpiresMinutes = envOrInt("HIVEPAY_EXPIRES_MINUTES", cfg.Payment.ExpiresMinutes)
	cfg.Store.PostgresDSN = envOr("HIVEPAY_POSTGRES_DSN", cfg.Store.PostgresDSN)
	cfg.LogLevel = envOr("HIVEPAY_LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Gateway maps the daemon file onto the library configuration.
func (f File) Gateway() types.Config {
	return types.Config{
		ReceiveAccount: f.Chain.ReceiveAccount,
		RPCNodeURL:     f.Chain.RPCNode,
		ExplorerURL:    f.Chain.Explorer,
		OracleURL:      f.Oracle.URL,
		ExpiryMinutes:  f.Payment.ExpiresMinutes,
		RequestTimeout: time.Duration(f.Payment.RequestTimeoutSeconds) * time.Second,
		HistoryLimit:   f.Chain.HistoryLimit,
	}
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
