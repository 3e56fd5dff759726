package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".pipeaudit.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".pipeaudit.yml"
)

// FileConfig represents values loaded from a .pipeaudit.yaml file.
type FileConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	ClickHouseURL  string   `yaml:"clickhouse_url"`
	User           string   `yaml:"user"`
	Password       string   `yaml:"password"`
	Database       string   `yaml:"database"`
	Tables         []string `yaml:"tables"`
	Out            string   `yaml:"out"`
	SQLFile        string   `yaml:"sql_file"`
	SARIF          string   `yaml:"sarif"`
	MetricsFile    string   `yaml:"metrics_file"`
	QueryLogLimit  *int     `yaml:"query_log_limit"`
	MaxQPS         *int     `yaml:"max_qps"`
	DialTimeout    string   `yaml:"dial_timeout"`
	ReadTimeout    string   `yaml:"read_timeout"`
	Timeout        string   `yaml:"timeout"`
	FailOnFindings *bool    `yaml:"fail_on_findings"`
}

// ClickHouseEndpoint returns the configured ClickHouse endpoint.
func (fc *FileConfig) ClickHouseEndpoint() string {
	if fc == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(fc.Endpoint); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(fc.ClickHouseURL)
}

// ReadTimeoutValue returns the read timeout from read_timeout/timeout fields.
func (fc *FileConfig) ReadTimeoutValue() string {
	if fc == nil {
		return ""
	}
	if timeout := strings.TrimSpace(fc.ReadTimeout); timeout != "" {
		return timeout
	}
	return strings.TrimSpace(fc.Timeout)
}

// Normalize trims and removes empty items from list fields.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.Tables = normalizeList(fc.Tables)
	fc.Endpoint = strings.TrimSpace(fc.Endpoint)
	fc.ClickHouseURL = strings.TrimSpace(fc.ClickHouseURL)
	fc.User = strings.TrimSpace(fc.User)
	fc.Database = strings.TrimSpace(fc.Database)
	fc.Out = strings.TrimSpace(fc.Out)
	fc.SQLFile = strings.TrimSpace(fc.SQLFile)
	fc.SARIF = strings.TrimSpace(fc.SARIF)
	fc.MetricsFile = strings.TrimSpace(fc.MetricsFile)
	fc.DialTimeout = strings.TrimSpace(fc.DialTimeout)
	fc.ReadTimeout = strings.TrimSpace(fc.ReadTimeout)
	fc.Timeout = strings.TrimSpace(fc.Timeout)
}

// ApplyTo copies every value set in the file onto cfg.
func (fc *FileConfig) ApplyTo(cfg *Config) error {
	if fc == nil || cfg == nil {
		return nil
	}

	if endpoint := fc.ClickHouseEndpoint(); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if fc.User != "" {
		cfg.User = fc.User
	}
	if fc.Password != "" {
		cfg.Password = fc.Password
	}
	if fc.Database != "" {
		cfg.Database = fc.Database
	}
	if len(fc.Tables) > 0 {
		cfg.Tables = append([]string(nil), fc.Tables...)
	}
	if fc.Out != "" {
		cfg.OutPath = fc.Out
	}
	if fc.SQLFile != "" {
		cfg.SQLFile = fc.SQLFile
	}
	if fc.SARIF != "" {
		cfg.SARIFPath = fc.SARIF
	}
	if fc.MetricsFile != "" {
		cfg.MetricsPath = fc.MetricsFile
	}
	if fc.QueryLogLimit != nil {
		cfg.QueryLogLimit = *fc.QueryLogLimit
	}
	if fc.MaxQPS != nil {
		cfg.MaxQPS = *fc.MaxQPS
	}
	if fc.FailOnFindings != nil {
		cfg.FailOnFindings = *fc.FailOnFindings
	}

	if fc.DialTimeout != "" {
		d, err := ParseDuration(fc.DialTimeout)
		if err != nil {
			return fmt.Errorf("%w: dial_timeout: %v", ErrInvalidConfig, err)
		}
		cfg.DialTimeout = d
	}
	if raw := fc.ReadTimeoutValue(); raw != "" {
		d, err := ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: read_timeout: %v", ErrInvalidConfig, err)
		}
		cfg.ReadTimeout = d
	}

	return nil
}

// AutoLoadFile discovers and loads the first available config file.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	cfg.Normalize()
	return cfg, nil
}
