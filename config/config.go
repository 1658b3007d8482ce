package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dayli-app/dayli/authtoken"
	dhttp "github.com/dayli-app/dayli/http"
	"github.com/dayli-app/dayli/objectstore"
	"github.com/dayli-app/dayli/records"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct.
type Config struct {
	Server    ServerConfig       `mapstructure:"server"`
	Store     objectstore.Config `mapstructure:"store"`
	Fallback  FallbackConfig     `mapstructure:"fallback"`
	Records   records.Config     `mapstructure:"records"`
	RateLimit RateLimitConfig    `mapstructure:"ratelimit"`
	Auth      AuthConfig         `mapstructure:"auth"`
	CORS      dhttp.CORSConfig   `mapstructure:"cors"`
	Log       LogConfig          `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxFileSize int64         `mapstructure:"max_file_size" validate:"min=1"`
	PolicyTTL   time.Duration `mapstructure:"policy_ttl" validate:"min=1s"`
	URLTTL      time.Duration `mapstructure:"url_ttl" validate:"min=1s"`
}

// FallbackConfig holds the local fallback store configuration.
type FallbackConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// RateLimitConfig holds the counter store and per-window ceilings. An empty
// RedisURL disables counting; the limiter then allows everything.
type RateLimitConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	UploadLimit int64         `mapstructure:"upload_limit" validate:"min=1"`
	DeleteLimit int64         `mapstructure:"delete_limit" validate:"min=1"`
	Window      time.Duration `mapstructure:"window" validate:"min=1s"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Tokens authtoken.TokensConfig `mapstructure:"tokens"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// RemoteEnabled reports whether an object store endpoint is configured.
// Without one, every upload goes to the fallback store.
func (c *Config) RemoteEnabled() bool {
	return c.Store.Endpoint != ""
}

// RecordsEnabled reports whether an inline image record backend is
// configured.
func (c *Config) RecordsEnabled() bool {
	return c.Records.Type != ""
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":         "server.port",
	"store-bucket": "store.bucket",
	"fallback-dsn": "fallback.dsn",
	"records-type": "records.type",
	"records-dsn":  "records.dsn",
	"redis-url":    "ratelimit.redis_url",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5810)
	v.SetDefault("server.max_file_size", 10<<20)
	v.SetDefault("server.policy_ttl", "10m")
	v.SetDefault("server.url_ttl", "1h")

	// Empty defaults keep env-only keys visible to viper's AutomaticEnv.
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.port", 0)
	v.SetDefault("store.use_ssl", false)
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.public_endpoint", "")
	v.SetDefault("store.client_origin", "")
	v.SetDefault("store.region", "us-east-1")
	v.SetDefault("store.bucket", "dayli-data")
	v.SetDefault("store.timeout", "30s")

	v.SetDefault("fallback.dsn", "dayli-fallback.db")

	v.SetDefault("records.type", "")
	v.SetDefault("records.dsn", "")

	v.SetDefault("ratelimit.redis_url", "")
	v.SetDefault("ratelimit.upload_limit", 50)
	v.SetDefault("ratelimit.delete_limit", 20)
	v.SetDefault("ratelimit.window", "1h")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("DAYLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
