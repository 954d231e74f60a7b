// Package config loads runtime settings from LEXD_* environment variables and
// an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"lex-dialog/internal/dialog"
	"lex-dialog/internal/repository"
)

const EnvPrefix = "LEXD"

type Config struct {
	LogLevel string

	Store       StoreConfig
	Catalog     CatalogConfig
	Fulfillment FulfillmentConfig
	HTTP        HTTPConfig
	Dialog      DialogConfig
}

type StoreConfig struct {
	Backend    repository.Backend
	Table      string
	RedisAddr  string
	KeyPrefix  string
	SessionTTL time.Duration
}

type CatalogConfig struct {
	// Dir holds bot definition files. When empty, definitions are read from
	// Parameter Store under ParamPrefix.
	Dir         string
	ParamPrefix string
	CacheSize   int
	CacheTTL    time.Duration
}

type FulfillmentConfig struct {
	URL     string
	Timeout time.Duration
}

type HTTPConfig struct {
	Addr       string
	RateLimit  int
	RateWindow time.Duration
}

type DialogConfig struct {
	ConfidenceThreshold float64
	OnDeny              string
	MaxAttempts         int
	MaxTurns            int
	RetryAfter          time.Duration
}

// Policy returns the dialog policy described by the config.
func (c DialogConfig) Policy() dialog.Policy {
	return dialog.Policy{
		AcceptanceThreshold: c.ConfidenceThreshold,
		OnDeny:              dialog.DenyBehavior(c.OnDeny),
		MaxAttempts:         c.MaxAttempts,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("store.backend", string(repository.BackendMemory))
	v.SetDefault("store.table", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.key_prefix", "lex:session:")
	v.SetDefault("store.session_ttl", 24*time.Hour)

	v.SetDefault("catalog.dir", "")
	v.SetDefault("catalog.param_prefix", "/lex-dialog")
	v.SetDefault("catalog.cache_size", 128)
	v.SetDefault("catalog.cache_ttl", 5*time.Minute)

	v.SetDefault("fulfillment.url", "")
	v.SetDefault("fulfillment.timeout", 10*time.Second)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 0)
	v.SetDefault("http.rate_window", time.Minute)

	v.SetDefault("dialog.confidence_threshold", dialog.DefaultAcceptanceThreshold)
	v.SetDefault("dialog.on_deny", string(dialog.DenyRestart))
	v.SetDefault("dialog.max_attempts", dialog.DefaultMaxAttempts)
	v.SetDefault("dialog.max_turns", 0)
	v.SetDefault("dialog.retry_after", time.Minute)
}

// Load reads the configuration. Environment variables take the form
// LEXD_STORE_BACKEND for the key store.backend. configFile is optional.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	backend, err := repository.ParseBackend(strings.ToLower(v.GetString("store.backend")))
	if err != nil {
		return Config{}, fmt.Errorf("config: store.backend: %w", err)
	}
	cfg := Config{
		LogLevel: v.GetString("log.level"),
		Store: StoreConfig{
			Backend:    backend,
			Table:      v.GetString("store.table"),
			RedisAddr:  v.GetString("store.redis_addr"),
			KeyPrefix:  v.GetString("store.key_prefix"),
			SessionTTL: v.GetDuration("store.session_ttl"),
		},
		Catalog: CatalogConfig{
			Dir:         v.GetString("catalog.dir"),
			ParamPrefix: v.GetString("catalog.param_prefix"),
			CacheSize:   v.GetInt("catalog.cache_size"),
			CacheTTL:    v.GetDuration("catalog.cache_ttl"),
		},
		Fulfillment: FulfillmentConfig{
			URL:     v.GetString("fulfillment.url"),
			Timeout: v.GetDuration("fulfillment.timeout"),
		},
		HTTP: HTTPConfig{
			Addr:       v.GetString("http.addr"),
			RateLimit:  v.GetInt("http.rate_limit"),
			RateWindow: v.GetDuration("http.rate_window"),
		},
		Dialog: DialogConfig{
			ConfidenceThreshold: v.GetFloat64("dialog.confidence_threshold"),
			OnDeny:              v.GetString("dialog.on_deny"),
			MaxAttempts:         v.GetInt("dialog.max_attempts"),
			MaxTurns:            v.GetInt("dialog.max_turns"),
			RetryAfter:          v.GetDuration("dialog.retry_after"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Store.Backend == repository.BackendDynamoDB && c.Store.Table == "" {
		return errors.New("config: store.table is required for the dynamodb backend")
	}
	if c.Store.SessionTTL <= 0 {
		return errors.New("config: store.session_ttl must be positive")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("config: http.rate_limit must not be negative")
	}
	if c.Dialog.MaxTurns < 0 {
		return errors.New("config: dialog.max_turns must not be negative")
	}
	if err := c.Dialog.Policy().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
