// Package config loads dashboard settings from config.yaml, the environment
// and an optional scoring weights file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Import  ImportConfig  `yaml:"import" mapstructure:"import"`
}

// StoreConfig selects the database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	WriteRPS       float64  `yaml:"write_rps" mapstructure:"write_rps"` // 0 disables the POST limit
	WriteBurst     int      `yaml:"write_burst" mapstructure:"write_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig carries the weight tables and multipliers inline, plus an
// optional YAML file that overrides them.
type ScoringConfig struct {
	scoring.Config `yaml:",inline" mapstructure:",squash"`
	WeightsFile    string `yaml:"weights_file" mapstructure:"weights_file"`
}

// ImportConfig configures workbook ingestion.
type ImportConfig struct {
	Sheet          string `yaml:"sheet" mapstructure:"sheet"`
	SheetIndex     int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	FTPTimeoutSecs int    `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
	FTPAttempts    int    `yaml:"ftp_attempts" mapstructure:"ftp_attempts"`
	CurrentYear    int    `yaml:"current_year" mapstructure:"current_year"` // 0 means the clock year
}

// FTPTimeout returns the FTP timeout as a duration.
func (c ImportConfig) FTPTimeout() time.Duration {
	return time.Duration(c.FTPTimeoutSecs) * time.Second
}

// Year returns the configured current year, or the clock year when unset.
func (c ImportConfig) Year() int {
	if c.CurrentYear > 0 {
		return c.CurrentYear
	}
	return time.Now().Year()
}

// Load reads configuration from ./config.yaml and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and the environment. An empty path
// searches the working directory for an optional config.yaml; an explicit
// path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "dashboard.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.write_rps", 5)
	v.SetDefault("server.write_burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("import.ftp_timeout_secs", 30)
	v.SetDefault("import.ftp_attempts", 3)
	setScoringDefaults(v, scoring.DefaultConfig())

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setScoringDefaults(v *viper.Viper, d scoring.Config) {
	v.SetDefault("scoring.thermal.cod", d.Thermal.COD)
	v.SetDefault("scoring.thermal.markets", d.Thermal.Markets)
	v.SetDefault("scoring.thermal.transactability", d.Thermal.Transactability)
	v.SetDefault("scoring.thermal.thermal_optimization", d.Thermal.ThermalOptimization)
	v.SetDefault("scoring.thermal.environmental", d.Thermal.Environmental)
	v.SetDefault("scoring.redevelopment.market", d.Redevelopment.Market)
	v.SetDefault("scoring.redevelopment.infra", d.Redevelopment.Infra)
	v.SetDefault("scoring.redevelopment.interconnection", d.Redevelopment.Interconnection)
	v.SetDefault("scoring.repower_multiplier", d.RepowerMultiplier)
	v.SetDefault("scoring.colocate_multiplier", d.CoLocateMultiplier)
}

// Resolve returns the effective scoring config: the inline values,
// overridden by WeightsFile when set, validated.
func (c ScoringConfig) Resolve() (scoring.Config, error) {
	out := c.Config
	if c.WeightsFile != "" {
		var err error
		if out, err = LoadWeightsFile(c.WeightsFile, out); err != nil {
			return scoring.Config{}, err
		}
	}
	if err := out.Validate(); err != nil {
		return scoring.Config{}, err
	}
	return out, nil
}

// LoadWeightsFile decodes a YAML weights file on top of base. Keys absent
// from the file keep base's values.
func LoadWeightsFile(path string, base scoring.Config) (scoring.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scoring.Config{}, eris.Wrapf(err, "config: read weights file %s", path)
	}
	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return scoring.Config{}, eris.Wrapf(err, "config: parse weights file %s", path)
	}
	return out, nil
}

// Validate checks the settings a command needs. mode is the cobra command
// name; unknown modes only get the common checks.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "":
	case "postgres", "postgresql":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not sqlite or postgres", c.Store.Driver))
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Import.FTPTimeoutSecs < 0 {
		errs = append(errs, "import.ftp_timeout_secs must not be negative")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
