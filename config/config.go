package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// BackendConfig is one quota-limited Redis endpoint: where to reach it and
// how to authenticate. Immutable once loaded.
type BackendConfig struct {
	URL   string
	Token string
}

// ServerConfig holds all configuration for the server.
type ServerConfig struct {
	HTTPPort  string
	LogLevel  string
	LogPretty bool
	StaticDir string

	// Telegram application credentials used to seed every protocol-client
	// connection.
	APIID   int32
	APIHash string

	// Backends is the ordered backend pool, read from numbered
	// REDIS_URL_n/REDIS_TOKEN_n pairs. At least one entry is required.
	Backends []BackendConfig
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/gramcast/")
	v.AddConfigPath("$HOME/.gramcast")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "10000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("STATIC_DIR", "public")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we fall back to env vars and
		// defaults. Anything else (malformed file, permissions) is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &ServerConfig{
		HTTPPort:  v.GetString("HTTP_PORT"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),
		StaticDir: v.GetString("STATIC_DIR"),
		APIID:     v.GetInt32("API_ID"),
		APIHash:   v.GetString("API_HASH"),
	}

	// Numbered backend pairs, contiguous from 1. The first gap ends the scan.
	for i := 1; ; i++ {
		url := v.GetString(fmt.Sprintf("REDIS_URL_%d", i))
		if url == "" {
			break
		}
		cfg.Backends = append(cfg.Backends, BackendConfig{
			URL:   url,
			Token: v.GetString(fmt.Sprintf("REDIS_TOKEN_%d", i)),
		})
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerConfig) validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("no Redis backends configured: at least REDIS_URL_1 is required")
	}
	if c.APIID == 0 {
		return fmt.Errorf("API_ID is required")
	}
	if c.APIHash == "" {
		return fmt.Errorf("API_HASH is required")
	}
	return nil
}
