package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/TAESTUDIOS/psa3/internal/pathutil"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server    ServerConfig    `koanf:"server" yaml:"server"`
	Store     StoreConfig     `koanf:"store" yaml:"store"`
	Scheduler SchedulerConfig `koanf:"scheduler" yaml:"scheduler"`
	Dispatch  DispatchConfig  `koanf:"dispatch" yaml:"dispatch"`
	Rituals   RitualsConfig   `koanf:"rituals" yaml:"rituals"`
	Daemon    DaemonConfig    `koanf:"daemon" yaml:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	LogFile         string `koanf:"log_file" yaml:"log_file"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	BodyLimit       int    `koanf:"body_limit" yaml:"body_limit"`
	RateLimit       int    `koanf:"rate_limit" yaml:"rate_limit"`
	BaseURL         string `koanf:"base_url" yaml:"base_url"`
}

type StoreConfig struct {
	Driver       string `koanf:"driver" yaml:"driver"`
	DataDir      string `koanf:"data_dir" yaml:"data_dir"`
	DatabaseURL  string `koanf:"database_url" yaml:"database_url"`
	MaxConns     int    `koanf:"max_conns" yaml:"max_conns"`
	HistoryLimit int    `koanf:"history_limit" yaml:"history_limit"`
	LockTimeout  string `koanf:"lock_timeout" yaml:"lock_timeout"`
}

type SchedulerConfig struct {
	Enabled         bool   `koanf:"enabled" yaml:"enabled"`
	Timezone        string `koanf:"timezone" yaml:"timezone"`
	Token           string `koanf:"token" yaml:"token"`
	Spec            string `koanf:"spec" yaml:"spec"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type DispatchConfig struct {
	Timeout         string `koanf:"timeout" yaml:"timeout"`
	FallbackWebhook string `koanf:"fallback_webhook" yaml:"fallback_webhook"`
}

type RitualsConfig struct {
	SeedFile string `koanf:"seed_file" yaml:"seed_file"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval" yaml:"health_check_interval"`
}

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

const (
	DefaultServerPort                = 3000
	DefaultServerLogLevel            = "info"
	DefaultServerReadTimeout         = "10s"
	DefaultServerWriteTimeout        = "30s"
	DefaultServerIdleTimeout         = "60s"
	DefaultServerShutdownTimeout     = "5s"
	DefaultServerBodyLimit           = 1 * 1024 * 1024
	DefaultServerRateLimit           = 120
	DefaultStoreDriver               = DriverMemory
	DefaultStoreMaxConns             = 10
	DefaultStoreHistoryLimit         = 100
	DefaultStoreLockTimeout          = "5s"
	DefaultSchedulerEnabled          = false
	DefaultSchedulerTimezone         = "UTC"
	DefaultSchedulerSpec             = "* * * * *"
	DefaultSchedulerShutdownTimeout  = "30s"
	DefaultDispatchTimeout           = "10s"
	DefaultDaemonShutdownTimeout     = "30s"
	DefaultDaemonHealthCheckInterval = "30s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	// .env / .env.local are optional; values already in the environment win.
	_ = godotenv.Load(".env.local", ".env")

	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                  DefaultServerPort,
		"server.log_level":             DefaultServerLogLevel,
		"server.log_file":              "",
		"server.read_timeout":          DefaultServerReadTimeout,
		"server.write_timeout":         DefaultServerWriteTimeout,
		"server.idle_timeout":          DefaultServerIdleTimeout,
		"server.shutdown_timeout":      DefaultServerShutdownTimeout,
		"server.body_limit":            DefaultServerBodyLimit,
		"server.rate_limit":            DefaultServerRateLimit,
		"server.base_url":              "",
		"store.driver":                 DefaultStoreDriver,
		"store.data_dir":               pathutil.UnderHome(".psa", "data"),
		"store.database_url":           "",
		"store.max_conns":              DefaultStoreMaxConns,
		"store.history_limit":          DefaultStoreHistoryLimit,
		"store.lock_timeout":           DefaultStoreLockTimeout,
		"scheduler.enabled":            DefaultSchedulerEnabled,
		"scheduler.timezone":           DefaultSchedulerTimezone,
		"scheduler.token":              "",
		"scheduler.spec":               DefaultSchedulerSpec,
		"scheduler.shutdown_timeout":   DefaultSchedulerShutdownTimeout,
		"dispatch.timeout":             DefaultDispatchTimeout,
		"dispatch.fallback_webhook":    "",
		"rituals.seed_file":            "",
		"daemon.shutdown_timeout":      DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval": DefaultDaemonHealthCheckInterval,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath := pathutil.UnderHome(".psa", "config.yaml")
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// Environment Variables
	k.Load(env.Provider("PSA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PSA_")), "_", ".", 1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	applyLegacyEnv(&cfg)

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyLegacyEnv honours the unprefixed variable names used by existing deployments
// when the PSA_ equivalents were not set.
func applyLegacyEnv(cfg *Config) {
	if cfg.Store.DatabaseURL == "" {
		if url := firstEnv("DATABASE_URL", "NEON_DATABASE_URL"); url != "" {
			cfg.Store.DatabaseURL = url
		}
	}
	if cfg.Scheduler.Token == "" {
		cfg.Scheduler.Token = strings.TrimSpace(os.Getenv("SCHEDULER_TOKEN"))
	}
	if tz := strings.TrimSpace(os.Getenv("SCHEDULER_TZ")); tz != "" && cfg.Scheduler.Timezone == DefaultSchedulerTimezone {
		cfg.Scheduler.Timezone = tz
	}
	if cfg.Dispatch.FallbackWebhook == "" {
		cfg.Dispatch.FallbackWebhook = strings.TrimSpace(os.Getenv("NEXT_PUBLIC_FALLBACK_WEBHOOK"))
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	dataDir, err := expandConfiguredPath(cfg.Store.DataDir)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
	}

	seedFile, err := expandConfiguredPath(cfg.Rituals.SeedFile)
	if err != nil {
		return err
	}
	if seedFile != "" {
		cfg.Rituals.SeedFile = seedFile
	}

	logFile, err := expandConfiguredPath(cfg.Server.LogFile)
	if err != nil {
		return err
	}
	if logFile != "" {
		cfg.Server.LogFile = logFile
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
