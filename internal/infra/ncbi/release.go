// Package ncbi looks up the current dbSNP release.
package ncbi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// UnknownVersion is reported when the release cannot be determined.
const UnknownVersion = "Unknown"

// DefaultReleaseNotesURL is the latest dbSNP release notes on the NCBI FTP mirror.
const DefaultReleaseNotesURL = "https://ftp.ncbi.nlm.nih.gov/snp/latest_release/release_notes.txt"

// Config holds release lookup configuration.
type Config struct {
	ReleaseNotesURL string        `yaml:"release_notes_url"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
}

// DefaultConfig returns the default release lookup configuration.
func DefaultConfig() Config {
	return Config{
		ReleaseNotesURL: DefaultReleaseNotesURL,
		Timeout:         10 * time.Second,
		MaxRetries:      5,
		InitialDelay:    time.Second,
	}
}

// ReleaseClient fetches the dbSNP build number from the release notes.
type ReleaseClient struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewReleaseClient creates a release client, filling zero fields from DefaultConfig.
func NewReleaseClient(cfg Config) *ReleaseClient {
	def := DefaultConfig()
	if cfg.ReleaseNotesURL == "" {
		cfg.ReleaseNotesURL = def.ReleaseNotesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	return &ReleaseClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        slog.Default().With("component", "ncbi"),
	}
}

// Version returns the dbSNP build number, e.g. "156". Requests are retried on
// 429, 5xx and network errors. It returns UnknownVersion and the last error
// when the lookup fails.
func (c *ReleaseClient) Version(ctx context.Context) (string, error) {
	c.log.Info("Fetching dbSNP version from NCBI release notes", "url", c.cfg.ReleaseNotesURL)

	b := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.cfg.InitialDelay))

	var version string
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		c.log.Error("Error fetching dbSNP version", "error", err)
		return UnknownVersion, err
	}
	if version == "" {
		c.log.Warn("dbSNP version not found in release notes")
		return UnknownVersion, nil
	}

	c.log.Info("Fetched dbSNP version", "version", version)
	return version, nil
}

func (c *ReleaseClient) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ReleaseNotesURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retry.RetryableError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", retry.RetryableError(fmt.Errorf("release notes: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("release notes: status %d", resp.StatusCode)
	}

	return ParseVersion(resp.Body)
}

// ParseVersion returns the build number from the first "dbSNP build N" line,
// or "" when no such line exists.
func ParseVersion(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "dbSNP build") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			return fields[2], nil
		}
	}
	return "", sc.Err()
}
