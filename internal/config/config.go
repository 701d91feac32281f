// Package config handles loading and parsing application configuration.
// It supports two sources for the file location (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every key in the file can additionally be overridden by the environment
// variable named in its env:"..." tag.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Supported storage drivers. The names are the database/sql driver names
// registered by the blank imports in the sqldb package.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// Update policies decide what a PUT does with columns the body leaves out.
//
//	replace: every column is written; absent keys become NULL.
//	patch:   only the keys present in the body are written.
const (
	UpdateReplace = "replace"
	UpdatePatch   = "patch"
)

// Config is the root configuration structure.
//
// env-required:"true" means the app refuses to start if that value is
// missing.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	Storage Storage `yaml:"storage"`

	HTTPServer `yaml:"http_server"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
}

// Storage describes how to reach the relational store.
//
// Path is only used by the sqlite3 driver; Host, Port, User, Password and
// Name are only used by the networked drivers.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite3"`
	Path   string `yaml:"path" env:"STORAGE_PATH"`

	Host     string `yaml:"host" env:"STORAGE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"STORAGE_PORT"`
	User     string `yaml:"user" env:"STORAGE_USER"`
	Password string `yaml:"password" env:"STORAGE_PASSWORD"`
	Name     string `yaml:"name" env:"STORAGE_NAME"`

	// SkipBootstrap disables the CREATE TABLE IF NOT EXISTS pass on start-up.
	SkipBootstrap bool `yaml:"skip_bootstrap" env:"STORAGE_SKIP_BOOTSTRAP"`

	// MaxOpenConns caps the pool; 0 keeps the database/sql default.
	MaxOpenConns int `yaml:"max_open_conns" env:"STORAGE_MAX_OPEN_CONNS"`

	UpdatePolicy string `yaml:"update_policy" env:"STORAGE_UPDATE_POLICY" env-default:"replace"`
}

// Validate reports the first inconsistency in the storage settings.
func (s Storage) Validate() error {
	switch s.Driver {
	case DriverSQLite:
		if s.Path == "" {
			return errors.New("storage.path is required for the sqlite3 driver")
		}
	case DriverMySQL, DriverPostgres:
		if s.Name == "" {
			return fmt.Errorf("storage.name is required for the %s driver", s.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}

	switch s.UpdatePolicy {
	case UpdateReplace, UpdatePatch:
	default:
		return fmt.Errorf("unknown update policy %q", s.UpdatePolicy)
	}

	return nil
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad reads, validates, and returns the application config.
//
// Functions prefixed with "Must" are allowed to exit on failure: if this
// returns, the config is valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}

	return cfg
}
