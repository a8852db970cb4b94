// Package config loads service configuration from .env, config.yaml and
// environment variables. Environment variables override file settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"agora/internal/core/id"
	"agora/internal/domain/lifecycle"
)

// Config is the full service configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig holds connection settings.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// RoleExpression optionally widens or narrows the moderation role,
	// e.g. "moderator || admin || trust_level >= 4". Empty means the
	// default staff policy.
	RoleExpression string `mapstructure:"role_expression"`
}

// LifecycleConfig holds retention settings.
type LifecycleConfig struct {
	StubRetentionWindow time.Duration `mapstructure:"stub_retention_window"`
	HiddenPostThreshold time.Duration `mapstructure:"hidden_post_threshold"`
	DeletedPlaceholder  string        `mapstructure:"deleted_placeholder"`
	SystemUserID        string        `mapstructure:"system_user_id"`
	SweepBatchSize      int           `mapstructure:"sweep_batch_size"`
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// Cron specs for the retention sweeps.
	HiddenSweepSpec string `mapstructure:"hidden_sweep_spec"`
	StubSweepSpec   string `mapstructure:"stub_sweep_spec"`

	// Job relay settings.
	RelayInterval  time.Duration `mapstructure:"relay_interval"`
	RelayBatchSize int           `mapstructure:"relay_batch_size"`
}

// Load reads configuration. A missing .env or config.yaml is fine;
// defaults plus environment variables are enough to start.
func Load() (*Config, error) {
	// .env first so viper sees its variables
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("lifecycle.stub_retention_window", 72*time.Hour)
	v.SetDefault("lifecycle.hidden_post_threshold", lifecycle.DefaultHiddenPostThreshold)
	v.SetDefault("lifecycle.deleted_placeholder", lifecycle.DefaultDeletedPlaceholder)
	v.SetDefault("lifecycle.sweep_batch_size", 500)

	v.SetDefault("worker.hidden_sweep_spec", "@hourly")
	v.SetDefault("worker.stub_sweep_spec", "@every 10m")
	v.SetDefault("worker.relay_interval", 5*time.Second)
	v.SetDefault("worker.relay_batch_size", 100)
}

// LifecycleSettings converts the retention section into the domain config.
func (c *Config) LifecycleSettings() (lifecycle.Config, error) {
	lc := lifecycle.Config{
		StubRetentionWindow: c.Lifecycle.StubRetentionWindow,
		HiddenPostThreshold: c.Lifecycle.HiddenPostThreshold,
		DeletedPlaceholder:  c.Lifecycle.DeletedPlaceholder,
		SweepBatchSize:      c.Lifecycle.SweepBatchSize,
	}

	if c.Lifecycle.SystemUserID == "" {
		return lc, fmt.Errorf("lifecycle.system_user_id is required")
	}
	systemID, err := id.Parse(c.Lifecycle.SystemUserID)
	if err != nil {
		return lc, fmt.Errorf("parse lifecycle.system_user_id: %w", err)
	}
	lc.SystemUserID = systemID

	return lc, nil
}
