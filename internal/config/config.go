package config

import (
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/logging"
	"github.com/copyleftdev/hypertune/internal/optimization/kernels"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging logging.Config `envPrefix:"LOG_"`
	Solver  struct {
		Default       string `env:"SOLVER_DEFAULT" envDefault:"structured"`
		MaxIterations int    `env:"SOLVER_MAX_ITERATIONS" envDefault:"50"`
		Seed          int64  `env:"SOLVER_SEED" envDefault:"0"`
		// Upper bound on runs executing at the same time
		Workers int `env:"SOLVER_WORKERS" envDefault:"4"`
	}
	Mayfly struct {
		Population int `env:"MAYFLY_POPULATION" envDefault:"20"`
	}
	Bayesian struct {
		Kernel string `env:"BAYES_KERNEL" envDefault:"matern52"`
		// Zero derives the initial design size from the space dimension
		InitialPoints int `env:"BAYES_INITIAL_POINTS" envDefault:"0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidInput, "parse environment")
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Port < 0 || c.HTTP.Port > 65535:
		return errors.Errorf(errors.KindInvalidInput, "HTTP_PORT out of range: %d", c.HTTP.Port)
	case c.Solver.Default == "":
		return errors.New(errors.KindInvalidInput, "SOLVER_DEFAULT must not be empty")
	case c.Solver.MaxIterations < 1:
		return errors.Errorf(errors.KindInvalidInput, "SOLVER_MAX_ITERATIONS must be positive, got %d", c.Solver.MaxIterations)
	case c.Solver.Workers < 1:
		return errors.Errorf(errors.KindInvalidInput, "SOLVER_WORKERS must be positive, got %d", c.Solver.Workers)
	case c.Bayesian.InitialPoints < 0:
		return errors.Errorf(errors.KindInvalidInput, "BAYES_INITIAL_POINTS must not be negative, got %d", c.Bayesian.InitialPoints)
	}
	if _, err := kernels.New(c.Bayesian.Kernel, 1, 1); err != nil {
		return errors.Wrap(err, errors.KindInvalidInput, "BAYES_KERNEL")
	}
	return nil
}
