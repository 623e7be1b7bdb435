package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name string `yaml:"name" env:"APP_NAME"`
		Env  string `yaml:"env" env:"APP_ENV"`
	} `yaml:"app"`
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Catalogue struct {
		// Path of a questions.json file used when Postgres is not configured.
		Path string `yaml:"path" env:"CATALOGUE_PATH"`
		TTL  string `yaml:"ttl" env:"CATALOGUE_TTL"`
	} `yaml:"catalogue"`
	Quiz struct {
		BlockSize   int    `yaml:"blockSize" env:"QUIZ_BLOCK_SIZE"`
		TurnSeconds int    `yaml:"turnSeconds" env:"QUIZ_TURN_SECONDS"`
		ReadyDelay  string `yaml:"readyDelay" env:"QUIZ_READY_DELAY"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
		Issuer    string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"auth"`
}

// Load reads YAML config from path, then applies environment overrides.
// A missing file is not an error when path is empty.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.App.Name == "" {
		cfg.App.Name = "iqplay"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	return cfg, nil
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
