package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	LogLevel string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTP   `yaml:"http"`
	Store    Store  `yaml:"store"`
	Redis    Redis  `yaml:"redis"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	Heartbeat       time.Duration `yaml:"heartbeat" env:"HTTP_HEARTBEAT" env-default:"15s"`
}

type Store struct {
	Kind string        `yaml:"kind" env:"STORE_KIND" env-default:"memory"`
	TTL  time.Duration `yaml:"ttl" env:"STORE_TTL" env-default:"2h"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Load reads the YAML file at path, then applies environment overrides.
// A missing file leaves only the environment and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		err = cleanenv.ReadConfig(path, cfg)
	case errors.Is(err, fs.ErrNotExist):
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("negative store ttl %s", c.Store.TTL)
	}
	return nil
}

// Addr returns host:port.
func (r Redis) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}
