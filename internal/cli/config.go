package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/vizgo/pkg/cache"
	"github.com/matzehuels/vizgo/pkg/pipeline"
	"github.com/matzehuels/vizgo/pkg/server"
	"github.com/matzehuels/vizgo/pkg/viz"
)

const defaultConfigHint = "$XDG_CONFIG_HOME/vizgo/config.toml"

// Config is the contents of config.toml. Flags override these values.
type Config struct {
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// RenderConfig holds render defaults.
type RenderConfig struct {
	Format  string `toml:"format"`
	Engine  string `toml:"engine"`
	YInvert bool   `toml:"y_invert"`
	Nop     int    `toml:"nop"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend       string   `toml:"backend"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	MongoURI      string   `toml:"mongo_uri"`
	MongoDatabase string   `toml:"mongo_database"`

	// KeyPrefix namespaces keys when several deployments share a backend.
	KeyPrefix string `toml:"key_prefix"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr    string   `toml:"addr"`
	Workers int      `toml:"workers"`
	Timeout Duration `toml:"timeout"`
}

// Duration is a time.Duration written as a string ("30s", "24h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			Format: viz.DefaultFormat,
			Engine: viz.DefaultEngine,
		},
		Cache: CacheConfig{
			Backend:       cache.BackendFile,
			TTL:           Duration{cache.DefaultTTL},
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: appName,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Workers: pipeline.DefaultWorkers,
			Timeout: Duration{server.DefaultTimeout},
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; an empty path does too.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	opts := viz.Options{Format: c.Render.Format, Engine: c.Render.Engine}.WithDefaults()
	if err := opts.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "", cache.BackendNone, cache.BackendFile, cache.BackendRedis, cache.BackendMongo:
	default:
		return fmt.Errorf("%w: %q", cache.ErrUnknownBackend, c.Cache.Backend)
	}
	if c.Server.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// renderOptions returns the configured render defaults.
func (c Config) renderOptions() viz.Options {
	return viz.Options{
		Format:  c.Render.Format,
		Engine:  c.Render.Engine,
		YInvert: c.Render.YInvert,
		Nop:     c.Render.Nop,
	}.WithDefaults()
}

func (c CacheConfig) keyer() cache.Keyer {
	if c.KeyPrefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.KeyPrefix)
}

func (c CacheConfig) cacheConfig() cache.Config {
	return cache.Config{
		Backend: c.Backend,
		Redis: cache.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
		Mongo: cache.MongoConfig{
			URI:      c.MongoURI,
			Database: c.MongoDatabase,
		},
	}
}

// configPath resolves the config file location: VIZGO_CONFIG, then
// $XDG_CONFIG_HOME/vizgo/config.toml, then ~/.config/vizgo/config.toml.
func configPath() string {
	if p := os.Getenv("VIZGO_CONFIG"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}
