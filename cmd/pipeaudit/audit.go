package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ppiankov/pipeaudit/internal/collector"
	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/internal/report"
	"github.com/ppiankov/pipeaudit/internal/reporter"
	"github.com/ppiankov/pipeaudit/internal/rules"
	"github.com/ppiankov/pipeaudit/pkg/config"
	"github.com/spf13/cobra"
)

// auditFlags holds raw flag values. They are applied on top of the config
// file and environment only when explicitly set.
type auditFlags struct {
	cfg         *config.Config
	tables      string
	dialTimeout string
	readTimeout string
	configPath  string
	envFile     string
}

// NewAuditCmd creates the audit command
func NewAuditCmd() *cobra.Command {
	cmd, _ := newAuditCmd()
	return cmd
}

func newAuditCmd() (*cobra.Command, *auditFlags) {
	cfg := config.DefaultConfig()
	flags := &auditFlags{cfg: config.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit a ClickHouse database and write a report",
		Long: `Collect parts, merges, mutations, disks, query log and materialized view
metadata for one database, evaluate the health rules and write a JSON
report. Progress goes to stderr; the summary and report path go to stdout.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveAuditConfig(cmd, flags)
			if err != nil {
				return err
			}
			*cfg = *resolved
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := flags.cfg
	// ClickHouse flags
	cmd.Flags().StringVar(&f.Endpoint, "endpoint", "", "ClickHouse HTTP endpoint, e.g. http://localhost:8123 (env CLICKHOUSE_ENDPOINT)")
	cmd.Flags().StringVar(&f.User, "user", f.User, "ClickHouse user (env CLICKHOUSE_USER)")
	cmd.Flags().StringVar(&f.Password, "password", "", "ClickHouse password (env CLICKHOUSE_PASSWORD)")
	cmd.Flags().StringVar(&f.Database, "db", "", "Database to audit (required)")
	cmd.Flags().StringVar(&flags.tables, "tables", "", "Comma-separated tables to audit (required)")
	cmd.Flags().StringVar(&flags.dialTimeout, "dial-timeout", "30s", "Connection timeout (e.g., 10s, 1m)")
	cmd.Flags().StringVar(&flags.readTimeout, "read-timeout", "5m", "Per-query read timeout (e.g., 30s, 5m)")
	cmd.Flags().IntVar(&f.MaxQPS, "max-qps", 0, "Maximum queries per second against ClickHouse (0 = unlimited)")
	cmd.Flags().IntVar(&f.QueryLogLimit, "query-log-limit", f.QueryLogLimit, "Number of query fingerprints to collect from system.query_log")

	// Output flags
	cmd.Flags().StringVar(&f.OutPath, "out", f.OutPath, "Report output path")
	cmd.Flags().StringVar(&f.SQLFile, "sql-file", "", "Also write the evidence SQL to this file")
	cmd.Flags().StringVar(&f.SARIFPath, "sarif", "", "Also write findings as SARIF 2.1.0 to this file")
	cmd.Flags().StringVar(&f.MetricsPath, "metrics-file", "", "Also write Prometheus textfile metrics to this file")

	// Operational flags
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Config file path (default: .pipeaudit.yaml in cwd or home)")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "Dotenv file to load (default: ./.env when present)")
	cmd.Flags().BoolVar(&f.FailOnFindings, "fail-on-findings", false, "Exit with code 6 when the report has findings")
	cmd.Flags().BoolVar(&f.Quiet, "quiet", false, "Suppress progress and summary; print only the report path")

	return cmd, flags
}

// resolveAuditConfig layers defaults, config file, .env, environment and
// explicitly set flags, in that order, and validates the result.
func resolveAuditConfig(cmd *cobra.Command, flags *auditFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()

	var (
		fileCfg *config.FileConfig
		source  string
		err     error
	)
	if flags.configPath != "" {
		fileCfg, err = config.LoadFile(flags.configPath)
		source = flags.configPath
	} else {
		fileCfg, source, err = config.AutoLoadFile()
	}
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		if err := fileCfg.ApplyTo(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", source, err)
		}
		slog.Debug("loaded config file", slog.String("path", source))
	}

	if err := config.LoadEnvFile(flags.envFile); err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)

	if err := applyChangedFlags(cmd, flags, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = verbose

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyChangedFlags(cmd *cobra.Command, flags *auditFlags, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	f := flags.cfg

	if changed("endpoint") {
		cfg.Endpoint = f.Endpoint
	}
	if changed("user") {
		cfg.User = f.User
	}
	if changed("password") {
		cfg.Password = f.Password
	}
	if changed("db") {
		cfg.Database = f.Database
	}
	if changed("tables") {
		cfg.Tables = config.ParseTables(flags.tables)
	}
	if changed("max-qps") {
		cfg.MaxQPS = f.MaxQPS
	}
	if changed("query-log-limit") {
		cfg.QueryLogLimit = f.QueryLogLimit
	}
	if changed("out") {
		cfg.OutPath = f.OutPath
	}
	if changed("sql-file") {
		cfg.SQLFile = f.SQLFile
	}
	if changed("sarif") {
		cfg.SARIFPath = f.SARIFPath
	}
	if changed("metrics-file") {
		cfg.MetricsPath = f.MetricsPath
	}
	if changed("fail-on-findings") {
		cfg.FailOnFindings = f.FailOnFindings
	}
	if changed("quiet") {
		cfg.Quiet = f.Quiet
	}

	var err error
	if changed("dial-timeout") {
		if cfg.DialTimeout, err = config.ParseDuration(flags.dialTimeout); err != nil {
			return fmt.Errorf("%w: invalid --dial-timeout duration: %v", config.ErrInvalidConfig, err)
		}
	}
	if changed("read-timeout") {
		if cfg.ReadTimeout, err = config.ParseDuration(flags.readTimeout); err != nil {
			return fmt.Errorf("%w: invalid --read-timeout duration: %v", config.ErrInvalidConfig, err)
		}
	}
	return nil
}

// runAudit executes the audit workflow. Nothing is written unless every
// collector succeeds.
func runAudit(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	progress := stderr
	if cfg.Quiet {
		progress = io.Discard
	}

	slog.Debug("starting audit",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("database", cfg.Database),
		slog.Any("tables", cfg.Tables),
		slog.Int("max_qps", cfg.MaxQPS),
	)

	// 1. Connect
	fmt.Fprintln(progress, "Connecting to ClickHouse...")
	client, err := collector.NewClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Debug("close client", slog.String("error", err.Error()))
		}
	}()

	if err := client.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintf(progress, "Connected to ClickHouse at %s\n", client.Endpoint())

	// 2. Collect
	snap, err := collector.New(client, cfg, progress).Collect(ctx)
	if err != nil {
		return err
	}

	// 3. Evaluate
	registry := rules.DefaultRegistry()
	result, err := report.NewBuilder(models.Targets{
		Endpoint: cfg.Endpoint,
		Database: cfg.Database,
		Tables:   cfg.Tables,
	}).
		WithSnapshot(snap).
		RunRules(registry).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	// 4. Write
	outPath, err := reporter.New(cfg, registry, version).Generate(result)
	if err != nil {
		return err
	}

	if cfg.Quiet {
		fmt.Fprintln(stdout, outPath)
	} else if err := reporter.WriteSummary(stdout, result, outPath); err != nil {
		return err
	}

	if cfg.FailOnFindings && result.Summary.FindingsCount > 0 {
		return &FindingsError{Count: result.Summary.FindingsCount}
	}
	return nil
}
