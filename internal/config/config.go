// Package config loads server startup configuration from an optional YAML
// file, environment variables, and CLI flags, in that ascending precedence
// order, using spf13/viper the way internal/labelmutex's ParseMutexGroups
// loads its own settings. Configuration is read once at process startup;
// there is no runtime reconfiguration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tracmeta/metacore/internal/svcerr"
)

// EnvPrefix is prepended to every environment variable name (e.g.
// METACORE_DIALECT).
const EnvPrefix = "METACORE"

// Config is the full set of startup settings the server needs.
type Config struct {
	Dialect          string   `mapstructure:"dialect"`
	ConnectionString string   `mapstructure:"connection_string"`
	PoolSize         int      `mapstructure:"pool_size"`
	StatementTimeoutMS int    `mapstructure:"statement_timeout_ms"`
	RetryCap         int      `mapstructure:"retry_cap"`
	EnabledTenants   []string `mapstructure:"enabled_tenants"`
	LogFormat        string   `mapstructure:"log_format"`
	LogLevel         string   `mapstructure:"log_level"`
	GRPCAddress      string   `mapstructure:"grpc_address"`
}

func defaults() Config {
	return Config{
		Dialect:            "sqlite",
		PoolSize:           10,
		StatementTimeoutMS: 30_000,
		RetryCap:           3,
		LogFormat:          "json",
		LogLevel:           "info",
		GRPCAddress:        ":7443",
	}
}

// Load reads configPath (if non-empty and present), overlays environment
// variables prefixed with METACORE_, and overlays flags (if non-nil,
// typically the invoking Cobra command's flag set), then validates the
// result.
func Load(configPath string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	d := defaults()
	v.SetDefault("connection_string", d.ConnectionString)
	v.SetDefault("dialect", d.Dialect)
	v.SetDefault("pool_size", d.PoolSize)
	v.SetDefault("statement_timeout_ms", d.StatementTimeoutMS)
	v.SetDefault("retry_cap", d.RetryCap)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("grpc_address", d.GRPCAddress)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, svcerr.Wrap(svcerr.KindInputValidation, "config.Load", "failed to read config file", err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, svcerr.Wrap(svcerr.KindInputValidation, "config.Load", "failed to stat config file", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, svcerr.Wrap(svcerr.KindInternal, "config.Load", "binding CLI flags", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, svcerr.Wrap(svcerr.KindInputValidation, "config.Load", "decoding configuration", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return svcerr.New(svcerr.KindInputValidation, "config.Load", fmt.Sprintf("unsupported dialect %q", c.Dialect))
	}
	if c.ConnectionString == "" {
		return svcerr.New(svcerr.KindInputValidation, "config.Load", "connection_string is required")
	}
	if c.RetryCap < 0 || c.RetryCap > 3 {
		return svcerr.New(svcerr.KindInputValidation, "config.Load", "retry_cap must be between 0 and 3")
	}
	return nil
}
