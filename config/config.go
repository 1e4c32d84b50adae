// Package config loads server settings. Environment variables (BILLING_*)
// override billing.yaml, which overrides the defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/warp/billing-engine/billing"
)

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	NumberingLedger  = "ledger"
	NumberingCounter = "counter"
)

type Config struct {
	Server    ServerConfig
	Profile   ProfileConfig
	Ledger    LedgerConfig
	Numbering NumberingConfig
	Output    OutputConfig
	Export    ExportConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type ProfileConfig struct {
	ID   string // built-in preset, used when File is empty
	File string // custom profile JSON
}

type LedgerConfig struct {
	Backend string
	Path    string
}

type NumberingConfig struct {
	Mode string
	Path string // counter database when the ledger itself is not SQLite
}

type OutputConfig struct {
	Dir string
}

type ExportConfig struct {
	PDF  bool
	XLSX bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("profile.id", "ieee")
	v.SetDefault("profile.file", "")
	v.SetDefault("ledger.backend", BackendCSV)
	v.SetDefault("ledger.path", "./data/invoice_ledger.csv")
	v.SetDefault("numbering.mode", NumberingLedger)
	v.SetDefault("numbering.path", "./data/counters.db")
	v.SetDefault("output.dir", "./invoices")
	v.SetDefault("export.pdf", true)
	v.SetDefault("export.xlsx", true)
	v.SetDefault("cors.origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. With an empty path it looks for billing.yaml in
// the working directory and ./config, and a missing file is not an error.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("billing")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
		},
		Profile: ProfileConfig{
			ID:   v.GetString("profile.id"),
			File: v.GetString("profile.file"),
		},
		Ledger: LedgerConfig{
			Backend: strings.ToLower(v.GetString("ledger.backend")),
			Path:    v.GetString("ledger.path"),
		},
		Numbering: NumberingConfig{
			Mode: strings.ToLower(v.GetString("numbering.mode")),
			Path: v.GetString("numbering.path"),
		},
		Output: OutputConfig{
			Dir: v.GetString("output.dir"),
		},
		Export: ExportConfig{
			PDF:  v.GetBool("export.pdf"),
			XLSX: v.GetBool("export.xlsx"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetStringSlice("cors.origins")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendCSV, BackendSQLite, BackendMemory:
	default:
		return &billing.ConfigError{
			Capability: fmt.Sprintf("ledger backend %q", c.Ledger.Backend),
			Guidance:   "set ledger.backend to csv, sqlite or memory",
		}
	}
	switch c.Numbering.Mode {
	case NumberingLedger, NumberingCounter:
	default:
		return &billing.ConfigError{
			Capability: fmt.Sprintf("numbering mode %q", c.Numbering.Mode),
			Guidance:   "set numbering.mode to ledger or counter",
		}
	}
	if c.Ledger.Backend != BackendMemory && strings.TrimSpace(c.Ledger.Path) == "" {
		return &billing.ConfigError{Capability: "ledger", Guidance: "set ledger.path"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &billing.ConfigError{
			Capability: fmt.Sprintf("server port %d", c.Server.Port),
			Guidance:   "set server.port between 1 and 65535",
		}
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated environment values.
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
