package config

import (
	"github.com/lottopipe/lottopipe/internal/cache"
	"github.com/lottopipe/lottopipe/internal/core/resilience"
	"github.com/lottopipe/lottopipe/internal/core/worker"
	"github.com/lottopipe/lottopipe/internal/infra/fetch"
	"github.com/lottopipe/lottopipe/internal/infra/storage/postgres"
	"github.com/lottopipe/lottopipe/internal/service"
)

// AppConfig is the top-level configuration. Section types live with the
// packages that consume them.
type AppConfig struct {
	Server    ServerConfig             `yaml:"server"`
	Source    fetch.SourceConfig       `yaml:"source"`
	Cache     cache.Config             `yaml:"cache"`
	TTL       service.TTLConfig        `yaml:"ttl"`
	Retry     resilience.RetryConfig   `yaml:"retry"`
	Breaker   resilience.BreakerConfig `yaml:"breaker"`
	Refresher worker.Config            `yaml:"refresher"`
	Database  postgres.Config          `yaml:"database"`
	Logging   LoggingConfig            `yaml:"logging"`
}

// ServerConfig holds the health/metrics listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
