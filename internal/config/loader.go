package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath     = "SCANRELAY_CONFIG"
	defaultConfigName = "config.yaml"
)

// envAliases binds the plain environment names used by existing deployments.
var envAliases = map[string]string{
	"port":                "PORT",
	"log_level":           "LOG_LEVEL",
	"log_format":          "LOG_FORMAT",
	"cors_origin":         "CORS_ORIGIN",
	"trust_proxy":         "TRUST_PROXY",
	"serve_web_app":       "SERVE_WEB_APP",
	"web_app_path":        "WEB_APP_PATH",
	"max_room_clients":    "MAX_ROOM_CLIENTS",
	"read_header_timeout": "READ_HEADER_TIMEOUT",
	"shutdown_timeout":    "SHUTDOWN_TIMEOUT",
	"redis.host":          "REDIS_HOST",
	"redis.port":          "REDIS_PORT",
	"redis.password":      "REDIS_PASSWORD",
	"redis.db":            "REDIS_DB",
	"rate_limit.store":    "RATE_LIMIT_STORE",
}

// Load builds configuration from defaults, optional config file and env vars,
// and returns the resolved config path ("" when no file was used).
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("SCANRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, "SCANRELAY_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return cfg, "", fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	configPath := resolveConfigPath(explicitPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, configPath, fmt.Errorf("read config: %w", err)
			}
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil {
				if logger != nil {
					logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
				}
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxRoomClients <= 0 {
		return fmt.Errorf("max_room_clients must be positive, got %d", c.MaxRoomClients)
	}
	switch c.RateLimit.Store {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown rate limit store %q", c.RateLimit.Store)
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("port", cfg.Port)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("cors_origin", cfg.CORSOrigin)
	v.SetDefault("trust_proxy", cfg.TrustProxy)
	v.SetDefault("serve_web_app", cfg.ServeWebApp)
	v.SetDefault("web_app_path", cfg.WebAppPath)
	v.SetDefault("max_room_clients", cfg.MaxRoomClients)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("redis.host", cfg.Redis.Host)
	v.SetDefault("redis.port", cfg.Redis.Port)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("rate_limit.store", cfg.RateLimit.Store)
	v.SetDefault("rate_limit.room_points", cfg.RateLimit.RoomPoints)
	v.SetDefault("rate_limit.room_window", cfg.RateLimit.RoomWindow)
	v.SetDefault("rate_limit.discovery_points", cfg.RateLimit.DiscoveryPoints)
	v.SetDefault("rate_limit.discovery_window", cfg.RateLimit.DiscoveryWindow)
}

// resolveConfigPath prefers an explicit path, then SCANRELAY_CONFIG, then a
// config.yaml in the working directory if one exists.
func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(cwd, defaultConfigName)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
