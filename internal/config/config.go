package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the service configuration, loaded from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}
	Annealing struct {
		// Defaults applied to job requests that omit the field.
		InitialTemp   float64 `env:"ANNEAL_INITIAL_TEMP" envDefault:"1000"`
		MinTemp       float64 `env:"ANNEAL_MIN_TEMP" envDefault:"0.001"`
		MaxIterations int     `env:"ANNEAL_MAX_ITERATIONS" envDefault:"1000"`
		Equilibration int     `env:"ANNEAL_EQUILIBRATION" envDefault:"1"`
	}
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.Environment == "development" && cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	return cfg, nil
}
