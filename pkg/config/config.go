package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all runtime configuration
type Config struct {
	// ClickHouse settings
	Endpoint      string
	User          string
	Password      string
	Database      string
	Tables        []string
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	MaxQPS        int
	QueryLogLimit int

	// Output settings
	OutPath     string
	SQLFile     string
	SARIFPath   string
	MetricsPath string

	// Operational flags
	FailOnFindings bool
	Quiet          bool
	Verbose        bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		User:          "default",
		Tables:        []string{},
		DialTimeout:   30 * time.Second,
		ReadTimeout:   5 * time.Minute,
		MaxQPS:        0, // unlimited
		QueryLogLimit: 20,
		OutPath:       "./pipeaudit-report.json",
	}
}

// Normalize trims string fields and drops empty table names.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	c.User = strings.TrimSpace(c.User)
	c.Database = strings.TrimSpace(c.Database)
	c.Tables = normalizeList(c.Tables)
	c.OutPath = strings.TrimSpace(c.OutPath)
	c.SQLFile = strings.TrimSpace(c.SQLFile)
	c.SARIFPath = strings.TrimSpace(c.SARIFPath)
	c.MetricsPath = strings.TrimSpace(c.MetricsPath)
}

// Validate checks that the configuration is complete enough to run an audit.
func (c *Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("%w: --endpoint is required (or set CLICKHOUSE_ENDPOINT)", ErrInvalidConfig)
	case c.Database == "":
		return fmt.Errorf("%w: --db is required", ErrInvalidConfig)
	case len(c.Tables) == 0:
		return fmt.Errorf("%w: --tables must name at least one table", ErrInvalidConfig)
	case c.OutPath == "":
		return fmt.Errorf("%w: --out must not be empty", ErrInvalidConfig)
	case c.QueryLogLimit <= 0:
		return fmt.Errorf("%w: --query-log-limit must be positive, got %d", ErrInvalidConfig, c.QueryLogLimit)
	case c.MaxQPS < 0:
		return fmt.Errorf("%w: --max-qps must not be negative, got %d", ErrInvalidConfig, c.MaxQPS)
	case c.DialTimeout < 0 || c.ReadTimeout < 0:
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ParseTables splits a comma-separated table list.
func ParseTables(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return normalizeList(strings.Split(raw, ","))
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
