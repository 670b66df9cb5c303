package config

import (
	"time"

	"github.com/vietddude/varannot/internal/infra/ensembl"
	"github.com/vietddude/varannot/internal/infra/ncbi"
	redisclient "github.com/vietddude/varannot/internal/infra/redis"
	"github.com/vietddude/varannot/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Service    ServiceConfig      `yaml:"service"`
	Annotation AnnotationConfig   `yaml:"annotation"`
	Output     OutputConfig       `yaml:"output"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
	Dbsnp      ncbi.Config        `yaml:"dbsnp"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port of the health server. Unset means DefaultPort; 0 disables the server.
	Port *int `yaml:"port"`
}

// HealthPort returns the configured port, DefaultPort when unset.
func (s ServerConfig) HealthPort() int {
	if s.Port == nil {
		return DefaultPort
	}
	return *s.Port
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ServiceConfig holds settings for the annotation REST service.
type ServiceConfig struct {
	Name                string            `yaml:"name"`
	BaseURL             string            `yaml:"base_url"`
	Timeout             time.Duration     `yaml:"timeout"`
	RequestsPerSecond   float64           `yaml:"requests_per_second"`
	MaxRetries          int               `yaml:"max_retries"`
	MaxRateLimitRetries int               `yaml:"max_rate_limit_retries"`
	BackoffBase         time.Duration     `yaml:"backoff_base"`
	MaxDelay            time.Duration     `yaml:"max_delay"`
	Endpoints           ensembl.Endpoints `yaml:"endpoints"`
}

// AnnotationConfig holds fan-out and allele matching settings.
type AnnotationConfig struct {
	MaxWorkers        int      `yaml:"max_workers"`
	TargetPopulations []string `yaml:"target_populations"`
	StrandFlip        bool     `yaml:"strand_flip"`
}

// OutputConfig holds result sink settings.
type OutputConfig struct {
	Path string `yaml:"path"` // default TSV path when none is given on the command line
}
