package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers accepted by database.driver.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Realtime brokers accepted by realtime.broker.
const (
	BrokerLocal = "local"
	BrokerRedis = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
	Pin      PinConfig      `mapstructure:"pin"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// OAuthConfig configures identity-provider id-token verification.
type OAuthConfig struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Pretty     bool   `mapstructure:"pretty"` // human-readable output (dev only)
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// PinConfig bounds failed PIN attempts per user.
type PinConfig struct {
	MaxAttempts   int64         `mapstructure:"max_attempts"`
	LockoutWindow time.Duration `mapstructure:"lockout_window"`
}

type RealtimeConfig struct {
	Broker       string        `mapstructure:"broker"` // local, redis
	Channel      string        `mapstructure:"channel"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

type SweeperConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	RequestRetention time.Duration `mapstructure:"request_retention"`
}

type FeedConfig struct {
	Window time.Duration `mapstructure:"window"`
	Limit  int           `mapstructure:"limit"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: LNK_.
// Nested keys use underscore: LNK_DATABASE_HOST, LNK_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// LNK_DATABASE_HOST -> database.host
	v.SetEnvPrefix("LNK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Realtime.Broker {
	case BrokerLocal:
	case BrokerRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("realtime broker %q requires redis.enabled", c.Realtime.Broker)
		}
	default:
		return fmt.Errorf("unsupported realtime broker %q", c.Realtime.Broker)
	}
	if c.Pin.MaxAttempts < 1 {
		return fmt.Errorf("pin.max_attempts must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "linkpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.query_timeout", "5s")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "3s")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "168h")
	v.SetDefault("jwt.issuer", "linkpay")

	v.SetDefault("oauth.secret", "")
	v.SetDefault("oauth.issuer", "https://accounts.google.com")
	v.SetDefault("oauth.audience", "")

	v.SetDefault("aes.key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("pin.max_attempts", 5)
	v.SetDefault("pin.lockout_window", "15m")

	v.SetDefault("realtime.broker", BrokerLocal)
	v.SetDefault("realtime.channel", "linkpay:events")
	v.SetDefault("realtime.send_buffer", 32)
	v.SetDefault("realtime.write_timeout", "10s")
	v.SetDefault("realtime.ping_interval", "30s")

	v.SetDefault("sweeper.interval", "1m")
	v.SetDefault("sweeper.request_retention", "720h")

	v.SetDefault("feed.window", "720h")
	v.SetDefault("feed.limit", 100)
}
