package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Postgres struct {
			URL string `yaml:"url"`
		} `yaml:"postgres"`
	} `yaml:"storage"`
	Passages struct {
		// Source is "storage" (the passages key) or "postgres" (passages table).
		Source   string `yaml:"source"`
		CacheTTL string `yaml:"cacheTTL"`
	} `yaml:"passages"`
	Password struct {
		// Scheme is "argon2" or "legacy".
		Scheme string `yaml:"scheme"`
	} `yaml:"password"`
	Streak struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"streak"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns a config for a single-user local install.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Storage.Driver = DriverSQLite
	cfg.Storage.SQLite.Path = "studysphere.db"
	cfg.Passages.Source = "storage"
	cfg.Passages.CacheTTL = "5m"
	cfg.Password.Scheme = "argon2"
	cfg.Streak.Timezone = "Local"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the CLI cannot act on.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Passages.Source {
	case "storage":
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			return fmt.Errorf("passages.source postgres needs storage.postgres.url")
		}
	default:
		return fmt.Errorf("unknown passages source %q", c.Passages.Source)
	}
	switch c.Password.Scheme {
	case "argon2", "legacy":
	default:
		return fmt.Errorf("unknown password scheme %q", c.Password.Scheme)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the streak timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Streak.Timezone == "" || c.Streak.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Streak.Timezone)
	if err != nil {
		return nil, fmt.Errorf("streak timezone: %w", err)
	}
	return loc, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
