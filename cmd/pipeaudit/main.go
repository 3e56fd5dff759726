package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/pipeaudit/internal/collector"
	"github.com/ppiankov/pipeaudit/internal/logging"
	"github.com/ppiankov/pipeaudit/internal/reporter"
	"github.com/ppiankov/pipeaudit/pkg/config"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
)

// Exit codes for structured error reporting.
const (
	ExitSuccess    = 0
	ExitInternal   = 1
	ExitInvalidArg = 2
	ExitNotFound   = 3
	ExitQuery      = 4
	ExitNetwork    = 5
	ExitFindings   = 6
	ExitOutput     = 7
)

// FindingsError indicates the audit completed but findings were detected.
type FindingsError struct {
	Count int
}

func (e *FindingsError) Error() string {
	return fmt.Sprintf("%d findings detected", e.Count)
}

// errInvalidReport is returned by validate when the document breaks the schema.
var errInvalidReport = errors.New("report does not match schema")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipeaudit",
		Short: "ClickHouse ingestion pipeline auditor",
		Long: `PipeAudit inspects ClickHouse system tables for one database and a set
of tables, evaluates health rules over parts, merges, mutations, disks,
query amplification and materialized view chains, and writes a JSON report
with findings, suggested actions and the SQL evidence behind them.

It only runs read-only SELECTs against system.* tables.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(NewAuditCmd())
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewVersionCmd())
	return root
}

func main() {
	logging.Init(false)

	if err := newRootCmd().Execute(); err != nil {
		exitCode := classifyError(err)
		var fe *FindingsError
		if errors.As(err, &fe) {
			slog.Info("findings detected", slog.Int("count", fe.Count))
		} else {
			slog.Error("command failed", slog.String("error", err.Error()))
		}
		os.Exit(exitCode)
	}
}

func classifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var fe *FindingsError
	if errors.As(err, &fe) {
		return ExitFindings
	}

	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, errInvalidReport) {
		return ExitInvalidArg
	}

	var outErr *reporter.OutputError
	if errors.As(err, &outErr) {
		return ExitOutput
	}

	var connErr *collector.ConnectError
	if errors.As(err, &connErr) {
		return ExitNetwork
	}

	var queryErr *collector.QueryError
	var decodeErr *collector.DeserializeError
	if errors.As(err, &queryErr) || errors.As(err, &decodeErr) {
		return ExitQuery
	}

	if errors.Is(err, fs.ErrNotExist) {
		return ExitNotFound
	}

	if collector.IsNetworkError(err) {
		return ExitNetwork
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no such file") {
		return ExitNotFound
	}

	if strings.Contains(msg, "required") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "unknown flag") ||
		strings.Contains(msg, "accepts") {
		return ExitInvalidArg
	}

	return ExitInternal
}
