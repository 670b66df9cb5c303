package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/varannot/internal/annotation/allele"
	"github.com/vietddude/varannot/internal/infra/ncbi"
)

// DefaultBaseURL is the GRCh37 Ensembl REST service.
const DefaultBaseURL = "http://grch37.rest.ensembl.org"

// DefaultPort is the health server port when none is configured.
const DefaultPort = 8080

// Load reads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	svc := &cfg.Service
	if svc.Name == "" {
		svc.Name = "ensembl"
	}
	if svc.BaseURL == "" {
		svc.BaseURL = DefaultBaseURL
	}
	if svc.Timeout == 0 {
		svc.Timeout = 30 * time.Second
	}
	if svc.RequestsPerSecond == 0 {
		svc.RequestsPerSecond = 15
	}
	if svc.MaxRetries == 0 {
		svc.MaxRetries = 5
	}
	if svc.MaxRateLimitRetries == 0 {
		svc.MaxRateLimitRetries = 10
	}
	if svc.BackoffBase == 0 {
		svc.BackoffBase = time.Second
	}
	if svc.MaxDelay == 0 {
		svc.MaxDelay = 60 * time.Second
	}

	if cfg.Annotation.MaxWorkers == 0 {
		cfg.Annotation.MaxWorkers = 5
	}
	if len(cfg.Annotation.TargetPopulations) == 0 {
		cfg.Annotation.TargetPopulations = append([]string(nil), allele.DefaultTargetPopulations...)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	def := ncbi.DefaultConfig()
	if cfg.Dbsnp.ReleaseNotesURL == "" {
		cfg.Dbsnp.ReleaseNotesURL = def.ReleaseNotesURL
	}
	if cfg.Dbsnp.Timeout == 0 {
		cfg.Dbsnp.Timeout = def.Timeout
	}
	if cfg.Dbsnp.MaxRetries == 0 {
		cfg.Dbsnp.MaxRetries = def.MaxRetries
	}
	if cfg.Dbsnp.InitialDelay == 0 {
		cfg.Dbsnp.InitialDelay = def.InitialDelay
	}

	if cfg.Redis.RunTTL == 0 {
		cfg.Redis.RunTTL = 7 * 24 * time.Hour
	}
}

// Validate rejects values the engine cannot run with.
func (c *AppConfig) Validate() error {
	if port := c.Server.HealthPort(); port < 0 || port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", port)
	}
	if c.Service.RequestsPerSecond < 0 {
		return fmt.Errorf("service.requests_per_second must be positive, got %v", c.Service.RequestsPerSecond)
	}
	if c.Service.MaxRetries < 0 || c.Service.MaxRateLimitRetries < 0 {
		return fmt.Errorf("service retry limits must not be negative")
	}
	if c.Annotation.MaxWorkers < 0 {
		return fmt.Errorf("annotation.max_workers must be positive, got %d", c.Annotation.MaxWorkers)
	}
	if c.Service.MaxDelay < c.Service.BackoffBase {
		return fmt.Errorf("service.max_delay (%s) is below service.backoff_base (%s)",
			c.Service.MaxDelay, c.Service.BackoffBase)
	}
	return nil
}
