// Package config loads the seqbench server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Storage backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendOCI    = "oci"
)

// ServerConfig is the root of the YAML configuration file.
type ServerConfig struct {
	Listen    string        `yaml:"listen" validate:"required"`
	LogLevel  string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string        `yaml:"log_format" validate:"oneof=text json"`
	Pool      PoolConfig    `yaml:"pool"`
	Storage   StorageConfig `yaml:"storage"`
}

// PoolConfig controls run admission and concurrency.
type PoolConfig struct {
	Workers    int           `yaml:"workers" validate:"gt=0"`
	QueueSize  int           `yaml:"queue_size" validate:"gte=0"`
	RateLimit  float64       `yaml:"rate_limit" validate:"gte=0"`
	Burst      int           `yaml:"burst" validate:"gte=0"`
	RunTimeout time.Duration `yaml:"run_timeout" validate:"gte=0"`
	MaxSize    int           `yaml:"max_size" validate:"gte=0,lte=67108864"`
}

// StorageConfig selects and configures the execution record backend.
type StorageConfig struct {
	Backend string       `yaml:"backend" validate:"oneof=memory badger oci"`
	Badger  BadgerConfig `yaml:"badger"`
	OCI     OCIConfig    `yaml:"oci"`
}

type BadgerConfig struct {
	Path       string        `yaml:"path"`
	InMemory   bool          `yaml:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

type OCIConfig struct {
	ConfigFile string `yaml:"config_file"`
	Profile    string `yaml:"profile"`
	Namespace  string `yaml:"namespace"`
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
	Host       string `yaml:"host"`
	Retries    int    `yaml:"retries" validate:"gte=0"`
}

// Default returns a configuration that runs with in-process storage.
func Default() ServerConfig {
	return ServerConfig{
		Listen:    ":8080",
		LogLevel:  "info",
		LogFormat: "json",
		Pool: PoolConfig{
			Workers:    4,
			QueueSize:  64,
			Burst:      1,
			RunTimeout: 10 * time.Minute,
			MaxSize:    1 << 24,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			Badger: BadgerConfig{
				Path:       "data/executions",
				SyncWrites: true,
				GCInterval: 5 * time.Minute,
			},
			OCI: OCIConfig{
				ConfigFile: "~/.oci/config",
				Profile:    "DEFAULT",
				Prefix:     "seqbench/",
				Retries:    3,
			},
		},
	}
}

var validate = validator.New()

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (ServerConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and backend specific requirements.
func (c ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case BackendBadger:
		if !c.Storage.Badger.InMemory && c.Storage.Badger.Path == "" {
			return errors.New("storage.badger.path is required unless in_memory is set")
		}
	case BackendOCI:
		if c.Storage.OCI.Bucket == "" {
			return errors.New("storage.oci.bucket is required for the oci backend")
		}
	}
	return nil
}
