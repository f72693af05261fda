package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	MinPassword int
}

type RealtimeConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Realtime         RealtimeConfig
	AllowCORSOrigins []string
}

// ErrMissingSecret and ErrMissingDSN make startup fail fast: the signing secret
// and the store URI have no usable defaults.
var (
	ErrMissingSecret = errors.New("security.jwtsecret is required")
	ErrMissingDSN    = errors.New("postgres.dsn is required")
)

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// keys without defaults are invisible to Unmarshal unless bound
	_ = v.BindEnv("security.jwtsecret")
	_ = v.BindEnv("postgres.dsn")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Security.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.Postgres.DSN == "" {
		return nil, ErrMissingDSN
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.tokenttl", "24h")
	v.SetDefault("security.minpassword", 8)

	v.SetDefault("realtime.sendbuffer", 256)
	v.SetDefault("realtime.maxmessagesize", 4096)
	v.SetDefault("realtime.writetimeout", "10s")
	v.SetDefault("realtime.pongtimeout", "60s")
	v.SetDefault("realtime.pinginterval", "54s")
}
