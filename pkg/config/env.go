package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvEndpoint = "CLICKHOUSE_ENDPOINT"
	EnvUser     = "CLICKHOUSE_USER"
	EnvPassword = "CLICKHOUSE_PASSWORD"
)

// DefaultEnvFile is loaded when present and no --env-file is given.
const DefaultEnvFile = ".env"

// LoadEnvFile exports the variables of a dotenv file into the process
// environment without overriding variables that are already set.
// An empty path means DefaultEnvFile, which may be missing.
func LoadEnvFile(path string) error {
	filename := strings.TrimSpace(path)
	explicit := filename != ""
	if !explicit {
		filename = DefaultEnvFile
	}

	if _, err := os.Stat(filename); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to access env file %q: %w", filename, err)
	}

	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("failed to load env file %q: %w", filename, err)
	}
	return nil
}

// ApplyEnv overlays CLICKHOUSE_* variables onto cfg.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := strings.TrimSpace(os.Getenv(EnvEndpoint)); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUser)); v != "" {
		cfg.User = v
	}
	// an empty password is a valid override
	if v, ok := os.LookupEnv(EnvPassword); ok {
		cfg.Password = v
	}
}
