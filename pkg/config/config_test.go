package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{name: "User", got: cfg.User, want: "default"},
		{name: "Password", got: cfg.Password, want: ""},
		{name: "Tables", got: len(cfg.Tables), want: 0},
		{name: "DialTimeout", got: cfg.DialTimeout, want: 30 * time.Second},
		{name: "ReadTimeout", got: cfg.ReadTimeout, want: 5 * time.Minute},
		{name: "MaxQPS", got: cfg.MaxQPS, want: 0},
		{name: "QueryLogLimit", got: cfg.QueryLogLimit, want: 20},
		{name: "OutPath", got: cfg.OutPath, want: "./pipeaudit-report.json"},
		{name: "SQLFile", got: cfg.SQLFile, want: ""},
		{name: "FailOnFindings", got: cfg.FailOnFindings, want: false},
		{name: "Verbose", got: cfg.Verbose, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, tc.got)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: "30s", want: 30 * time.Second},
		{name: "minutes", input: "5m", want: 5 * time.Minute},
		{name: "hours", input: "2h", want: 2 * time.Hour},
		{name: "days", input: "7d", want: 7 * 24 * time.Hour},
		{name: "fallback_go_duration", input: "1.5h", want: time.Duration(1.5 * float64(time.Hour))},
		{name: "invalid", input: "5x", wantErr: true},
		{name: "surrounding_space", input: " 10s ", want: 10 * time.Second},
		{name: "milliseconds", input: "500ms", want: 500 * time.Millisecond},
		{name: "negative", input: "-5s", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDuration(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Endpoint = "http://localhost:8123"
		cfg.Database = "testdb"
		cfg.Tables = []string{"events"}
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "complete", mutate: func(*Config) {}},
		{name: "missing_endpoint", mutate: func(c *Config) { c.Endpoint = "" }, wantErr: true},
		{name: "missing_database", mutate: func(c *Config) { c.Database = "" }, wantErr: true},
		{name: "no_tables", mutate: func(c *Config) { c.Tables = nil }, wantErr: true},
		{name: "empty_out", mutate: func(c *Config) { c.OutPath = "" }, wantErr: true},
		{name: "zero_query_log_limit", mutate: func(c *Config) { c.QueryLogLimit = 0 }, wantErr: true},
		{name: "negative_qps", mutate: func(c *Config) { c.MaxQPS = -1 }, wantErr: true},
		{name: "negative_timeout", mutate: func(c *Config) { c.ReadTimeout = -time.Second }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseTables(t *testing.T) {
	cases := []struct {
		input string
		want  []string
	}{
		{input: "", want: []string{}},
		{input: "events", want: []string{"events"}},
		{input: " events , sessions,,", want: []string{"events", "sessions"}},
	}

	for _, tc := range cases {
		if got := ParseTables(tc.input); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseTables(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeTrimsEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = " http://ch:8123/ "
	cfg.Tables = []string{" events ", ""}
	cfg.Normalize()

	if cfg.Endpoint != "http://ch:8123" {
		t.Fatalf("expected trimmed endpoint, got %q", cfg.Endpoint)
	}
	if !reflect.DeepEqual(cfg.Tables, []string{"events"}) {
		t.Fatalf("unexpected tables: %v", cfg.Tables)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvEndpoint, "http://env:8123")
	t.Setenv(EnvUser, "auditor")
	t.Setenv(EnvPassword, "")

	cfg := DefaultConfig()
	cfg.Password = "from-file"
	ApplyEnv(cfg)

	if cfg.Endpoint != "http://env:8123" {
		t.Fatalf("expected endpoint from env, got %q", cfg.Endpoint)
	}
	if cfg.User != "auditor" {
		t.Fatalf("expected user from env, got %q", cfg.User)
	}
	if cfg.Password != "" {
		t.Fatalf("expected explicitly empty password to override, got %q", cfg.Password)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.env")
	content := "CLICKHOUSE_ENDPOINT=http://dotenv:8123\nCLICKHOUSE_USER=dotenv\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	t.Setenv(EnvEndpoint, "")
	os.Unsetenv(EnvEndpoint)
	t.Setenv(EnvUser, "preset")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv(EnvEndpoint); got != "http://dotenv:8123" {
		t.Fatalf("expected endpoint from env file, got %q", got)
	}
	if got := os.Getenv(EnvUser); got != "preset" {
		t.Fatalf("expected existing variable to win, got %q", got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	chdirForTest(t, t.TempDir())

	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("expected missing default env file to be ignored, got %v", err)
	}
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

// chdirForTest changes the working directory for the duration of the test
// and restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
