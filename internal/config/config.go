// Package config loads storefront settings from defaults, a YAML file, an
// optional .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/storage"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a config source exists but cannot be parsed.
var ErrInvalidConfig = errors.New("invalid configuration")

// FileName is the config file looked up in the state directory.
const FileName = "config.yaml"

type Config struct {
	APIURL    string        `yaml:"api_url" env:"STOREFRONT_API_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"STOREFRONT_TIMEOUT"`
	StateDir  string        `yaml:"state_dir" env:"STOREFRONT_STATE_DIR"`
	Telemetry bool          `yaml:"telemetry" env:"STOREFRONT_TELEMETRY"`

	Cache   CacheConfig   `yaml:"cache" envPrefix:"STOREFRONT_CACHE_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STOREFRONT_STORAGE_"`
}

// CacheConfig controls the HTTP response cache for GET requests.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Dir     string `yaml:"dir" env:"DIR"`
}

type StorageConfig struct {
	Type          string `yaml:"type" env:"TYPE"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	Namespace     string `yaml:"namespace" env:"NAMESPACE"`
}

// Default returns the built in settings.
func Default() Config {
	def := client.DefaultConfig()
	return Config{
		APIURL:   def.BaseURL,
		Timeout:  def.Timeout,
		StateDir: "~/.storefront",
		Storage: StorageConfig{
			Type:      string(storage.TypeFile),
			RedisAddr: "localhost:6379",
		},
	}
}

// Options locates the file sources. Empty paths are skipped.
type Options struct {
	// File is the YAML config file. A missing file is not an error.
	File string
	// DotEnv is a .env file merged under the process environment.
	DotEnv string
}

// Load resolves the configuration. The process environment always wins over
// values read from the .env file.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := loadFile(expandHome(opts.File), &cfg); err != nil {
			return Config{}, err
		}
	}

	vars, err := environment(opts.DotEnv)
	if err != nil {
		return Config{}, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	cfg.StateDir = expandHome(cfg.StateDir)
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	return nil
}

func environment(dotenv string) (map[string]string, error) {
	vars := make(map[string]string)

	if dotenv != "" {
		values, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			for k, v := range values {
				vars[k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, dotenv, err)
		}
	}

	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}

	return vars, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ClientConfig maps the settings onto the API gateway.
func (c Config) ClientConfig() client.Config {
	cacheDir := c.Cache.Dir
	if c.Cache.Enabled && cacheDir == "" && c.StateDir != "" {
		cacheDir = filepath.Join(c.StateDir, "cache")
	}
	return client.Config{
		BaseURL:  c.APIURL,
		Timeout:  c.Timeout,
		Cache:    c.Cache.Enabled,
		CacheDir: cacheDir,
	}
}

// StorageConfig maps the settings onto the storage medium.
func (c Config) StorageConfig() storage.Config {
	return storage.Config{
		Type:          storage.Type(c.Storage.Type),
		Dir:           c.StateDir,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		Namespace:     c.Storage.Namespace,
	}
}
