package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	LogLevel        string
	DatabaseURL     string
	UpstreamURL     string
	UpstreamTimeout time.Duration
	SessionCapacity int
	AuditDir        string
	VariantFile     string
	CORSOrigins     []string
}

// Load reads advisor.yaml (optional) and ADVISOR_* environment variables.
// Environment wins over the file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("advisor")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("$HOME/.config/advisor")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_url", "")
	v.SetDefault("upstream_url", "http://localhost:5000")
	v.SetDefault("upstream_timeout", "15s")
	v.SetDefault("session_capacity", 1024)
	v.SetDefault("audit_dir", "")
	v.SetDefault("variant_file", "")
	v.SetDefault("cors_origins", []string{"*"})
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString("port"),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		DatabaseURL:     v.GetString("database_url"),
		UpstreamURL:     strings.TrimRight(v.GetString("upstream_url"), "/"),
		UpstreamTimeout: v.GetDuration("upstream_timeout"),
		SessionCapacity: v.GetInt("session_capacity"),
		AuditDir:        v.GetString("audit_dir"),
		VariantFile:     v.GetString("variant_file"),
		CORSOrigins:     splitList(v.GetStringSlice("cors_origins")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts both YAML lists and comma-separated env values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("upstream_url is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream_timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if c.SessionCapacity <= 0 {
		return fmt.Errorf("session_capacity must be positive, got %d", c.SessionCapacity)
	}
	return nil
}

// UseDatabase reports whether favorites go to Postgres
func (c *Config) UseDatabase() bool {
	return c.DatabaseURL != ""
}
