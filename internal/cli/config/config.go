package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source kinds
const (
	SourceModels   = "models"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// FileName is the config file `semlayer init` writes
const FileName = "semlayer.yml"

// Config represents the semlayer configuration
type Config struct {
	Source      SourceConfig     `mapstructure:"source"`
	Annotations AnnotationConfig `mapstructure:"annotations"`
	Output      OutputConfig     `mapstructure:"output"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Server      ServerConfig     `mapstructure:"server"`
	Log         LogConfig        `mapstructure:"log"`
}

// SourceConfig selects where models come from
type SourceConfig struct {
	Kind       string `mapstructure:"kind"`
	ModelsFile string `mapstructure:"models_file"`
	DSN        string `mapstructure:"dsn"`
	// Driver picks the PostgreSQL driver: pgx or postgres (lib/pq)
	Driver string `mapstructure:"driver"`
	Schema string `mapstructure:"schema"`
}

// AnnotationConfig points at the annotation YAML file (optional)
type AnnotationConfig struct {
	File string `mapstructure:"file"`
}

// OutputConfig represents where sync writes the layer
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig represents the optional Redis publishing target
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads the configuration from semlayer.yml or semlayer.yaml in the working directory
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads the configuration from an explicit path. The file must exist.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("semlayer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// SEMLAYER_SOURCE_DSN overrides source.dsn
	v.SetEnvPrefix("SEMLAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.kind", SourceModels)
	v.SetDefault("source.models_file", "models.yml")
	v.SetDefault("source.dsn", "")
	v.SetDefault("source.driver", "pgx")
	v.SetDefault("source.schema", "public")
	v.SetDefault("annotations.file", "")
	v.SetDefault("output.path", "semantic_layer.json")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "semlayer:layer")
	v.SetDefault("redis.ttl", 0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate checks the configuration for values the commands cannot act on
func Validate(cfg *Config) error {
	switch cfg.Source.Kind {
	case SourceModels:
		if cfg.Source.ModelsFile == "" {
			return errors.New("source.models_file is required when source.kind is models")
		}
	case SourcePostgres, SourceSQLite:
		if cfg.Source.DSN == "" {
			return fmt.Errorf("source.dsn is required when source.kind is %s", cfg.Source.Kind)
		}
	default:
		return fmt.Errorf("source.kind must be one of models, postgres, sqlite, got: %s", cfg.Source.Kind)
	}

	if cfg.Source.Kind == SourcePostgres && cfg.Source.Driver != "pgx" && cfg.Source.Driver != "postgres" {
		return fmt.Errorf("source.driver must be pgx or postgres, got: %s", cfg.Source.Driver)
	}

	if cfg.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative, got: %s", cfg.Redis.TTL)
	}

	return nil
}

// Exists reports whether a config file is present in dir
func Exists(dir string) bool {
	for _, name := range []string{"semlayer.yml", "semlayer.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
