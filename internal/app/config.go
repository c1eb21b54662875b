package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/partyd/internal/database"
	"github.com/charlesng35/partyd/pkg/validator"
)

// Config represents the runtime configuration for the party service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Party      PartyConfig      `mapstructure:"party"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogEncoding string `mapstructure:"log_encoding" validate:"oneof=json console"`
}

// PartyConfig tunes the party lifecycle. The invitation timeout is fixed and not exposed.
type PartyConfig struct {
	SweepSchedule string `mapstructure:"sweep_schedule" validate:"required,cronspec"`
	Locale        string `mapstructure:"locale" validate:"required"`
}

// AuthConfig captures player token settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures player access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// AuditConfig controls the persistent audit trail.
type AuditConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	RetentionDays   int            `mapstructure:"retention_days" validate:"min=0"`
	CleanupSchedule string         `mapstructure:"cleanup_schedule" validate:"required_if=Enabled true,omitempty,cronspec"`
	BufferSize      int            `mapstructure:"buffer_size" validate:"min=1"`
	Database        DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig describes connection options for the audit database.
type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver" validate:"oneof=sqlite postgres postgresql mysql"`
	Path     string            `mapstructure:"path"`
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port" validate:"min=0,max=65535"`
	Name     string            `mapstructure:"name"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true,omitempty,startswith=/"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
// An explicit file path wins over the search paths.
func LoadConfig(file string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		for _, path := range paths {
			v.AddConfigPath(path)
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("PARTYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.ValidateStruct(&config); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_encoding", "json")

	v.SetDefault("party.sweep_schedule", "@every 30s")
	v.SetDefault("party.locale", "en-US")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "partyd")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.retention_days", 30)
	v.SetDefault("audit.cleanup_schedule", "@daily")
	v.SetDefault("audit.buffer_size", 256)
	v.SetDefault("audit.database.driver", "sqlite")
	v.SetDefault("audit.database.path", "./data/partyd.sqlite")
	v.SetDefault("audit.database.dsn", "")
	v.SetDefault("audit.database.host", "")
	v.SetDefault("audit.database.port", 0)
	v.SetDefault("audit.database.name", "")
	v.SetDefault("audit.database.user", "")
	v.SetDefault("audit.database.password", "")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// DriverConfig converts the audit database section into driver parameters.
func (c AuditConfig) DriverConfig() database.Config {
	db := c.Database
	return database.Config{
		Driver:   db.Driver,
		Path:     db.Path,
		DSN:      db.DSN,
		Host:     db.Host,
		Port:     db.Port,
		User:     db.User,
		Password: db.Password,
		Name:     db.Name,
		Options:  db.Options,
	}
}
