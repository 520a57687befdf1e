// Package config loads dill settings from defaults, an optional config file,
// DILL_* environment variables and command-line flags, in rising priority.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/0x5457/dill/internal/constants"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendSQLVec = "sqlvec"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// Embedding providers.
const (
	EmbedAPI   = "api"
	EmbedLocal = "local"
)

type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Qdrant  QdrantConfig  `mapstructure:"qdrant"`
	Embed   EmbedConfig   `mapstructure:"embed"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	Collection string `mapstructure:"collection"`
	// Dimension 0 lets the first stored embedding decide.
	Dimension int `mapstructure:"dimension"`
}

type QdrantConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type EmbedConfig struct {
	Provider  string `mapstructure:"provider"`
	URL       string `mapstructure:"url"`
	Dimension int    `mapstructure:"dimension"`
}

type IngestConfig struct {
	Workers int `mapstructure:"workers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"db":         "store.path",
	"store":      "store.backend",
	"collection": "store.collection",
	"embed-url":  "embed.url",
	"embedder":   "embed.provider",
	"log-level":  "log.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendSQLVec)
	v.SetDefault("store.path", constants.DefaultDBPath)
	v.SetDefault("store.collection", constants.DefaultCollection)
	v.SetDefault("store.dimension", 0)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", constants.DefaultQdrantPort)
	v.SetDefault("embed.provider", EmbedAPI)
	v.SetDefault("embed.url", constants.DefaultEmbedURL)
	v.SetDefault("embed.dimension", constants.DefaultLocalDim)
	v.SetDefault("ingest.workers", runtime.NumCPU())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
}

// Default returns the configuration with no file, env or flags applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Load reads configuration. path and flags are both optional; only flags the
// user actually set override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLVec, BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must be set for the %s backend", c.Store.Backend)
		}
	case BackendMemory, BackendQdrant:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Embed.Provider {
	case EmbedAPI:
		if c.Embed.URL == "" {
			return fmt.Errorf("embed.url must be set for the api embedder")
		}
	case EmbedLocal:
		if c.Embed.Dimension <= 0 {
			return fmt.Errorf("embed.dimension must be positive for the local embedder")
		}
	default:
		return fmt.Errorf("unknown embed.provider %q", c.Embed.Provider)
	}
	if c.Store.Dimension < 0 {
		return fmt.Errorf("store.dimension must not be negative")
	}
	if c.Ingest.Workers < 1 {
		c.Ingest.Workers = 1
	}
	return nil
}
