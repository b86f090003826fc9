package config

import (
	"strconv"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Port              int           `mapstructure:"port" yaml:"port"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	CORSOrigin        string        `mapstructure:"cors_origin" yaml:"cors_origin"`
	TrustProxy        bool          `mapstructure:"trust_proxy" yaml:"trust_proxy"`
	ServeWebApp       bool          `mapstructure:"serve_web_app" yaml:"serve_web_app"`
	WebAppPath        string        `mapstructure:"web_app_path" yaml:"web_app_path"`
	MaxRoomClients    int           `mapstructure:"max_room_clients" yaml:"max_room_clients"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Redis             RedisConfig   `mapstructure:"redis" yaml:"redis"`
	RateLimit         RateLimit     `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RedisConfig locates the shared rate limit store.
type RedisConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// Rate limit store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// RateLimit sets the per-IP budgets for room mutations and discovery lookups.
type RateLimit struct {
	Store           string        `mapstructure:"store" yaml:"store"`
	RoomPoints      int           `mapstructure:"room_points" yaml:"room_points"`
	RoomWindow      time.Duration `mapstructure:"room_window" yaml:"room_window"`
	DiscoveryPoints int           `mapstructure:"discovery_points" yaml:"discovery_points"`
	DiscoveryWindow time.Duration `mapstructure:"discovery_window" yaml:"discovery_window"`
}

// Key prefixes in the shared store.
const (
	RoomKeyPrefix      = "barcode_scanner_rl"
	DiscoveryKeyPrefix = "barcode_scanner_discovery_rl"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Port:              3001,
		LogLevel:          "info",
		LogFormat:         "console",
		CORSOrigin:        "*",
		WebAppPath:        "./web/dist",
		MaxRoomClients:    50,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		RateLimit: RateLimit{
			Store:           StoreRedis,
			RoomPoints:      5,
			RoomWindow:      15 * time.Second,
			DiscoveryPoints: 12,
			DiscoveryWindow: 60 * time.Second,
		},
	}
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
