package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tuannm99/heapsql/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. HEAPSQL_STORAGE_WORKDIR.
const EnvPrefix = "HEAPSQL"

type StorageConfig struct {
	Mode        string `mapstructure:"mode"`
	Workdir     string `mapstructure:"workdir"`
	CacheBlocks int    `mapstructure:"cache_blocks"`
}

type CatalogConfig struct {
	SchemaCacheSize int `mapstructure:"schema_cache_size"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	HTTPAddr string `mapstructure:"http_addr"`
	Debug    bool   `mapstructure:"debug"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	AppName string        `mapstructure:"app_name"`
	Storage StorageConfig `mapstructure:"storage"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "heapsql")
	v.SetDefault("storage.mode", storage.File.String())
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("storage.cache_blocks", 256)
	v.SetDefault("catalog.schema_cache_size", 1024)
	v.SetDefault("server.addr", "127.0.0.1:5433")
	v.SetDefault("server.http_addr", "127.0.0.1:8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads the YAML file at path, if any, and applies HEAPSQL_*
// environment overrides on top. A .env file in the working directory is
// loaded first. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	mode, err := c.StorageMode()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if mode == storage.File && c.Storage.Workdir == "" {
		return fmt.Errorf("config: storage.workdir is required in file mode")
	}
	if c.Storage.CacheBlocks < 0 {
		return fmt.Errorf("config: storage.cache_blocks must not be negative")
	}
	if c.Catalog.SchemaCacheSize <= 0 {
		return fmt.Errorf("config: catalog.schema_cache_size must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) StorageMode() (storage.StorageMode, error) {
	return storage.GetStorageMode(strings.ToLower(c.Storage.Mode))
}
