package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "dev"

// Config holds application-wide configuration. Components receive the
// values they need through constructors; nothing reads this globally.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

type ServerConfig struct {
	Database    string `mapstructure:"database"`
	ListenAddr  string `mapstructure:"listenAddr"`
	MetricsAddr string `mapstructure:"metricsAddr"`
	TLSCert     string `mapstructure:"tlsCert"`
	TLSKey      string `mapstructure:"tlsKey"`
}

type AuthConfig struct {
	// Secret signs access tokens. When empty a random per-process
	// secret is generated at startup, which invalidates outstanding
	// tokens across restarts.
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"tokenTTL"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Database:   "data.db",
			ListenAddr: ":8080",
		},
		Auth: AuthConfig{
			TokenTTL: 30 * time.Minute,
		},
	}
}

// Load reads config from file or environment.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("restqlite")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("RESTQLITE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, nil
}
