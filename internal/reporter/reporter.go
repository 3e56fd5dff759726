package reporter

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/ppiankov/pipeaudit/internal/rules"
	"github.com/ppiankov/pipeaudit/pkg/config"
)

// OutputError reports a failure to write one of the output files.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// Reporter interface for writing a finished report
type Reporter interface {
	// Generate writes every configured output and returns the absolute
	// path of the JSON report.
	Generate(report *models.Report) (string, error)
}

// reporter implements the Reporter interface
type reporter struct {
	config   *config.Config
	registry *rules.Registry
	version  string
}

// New creates a new reporter instance. registry describes the rules in
// SARIF output and version is stamped on the SARIF driver.
func New(cfg *config.Config, registry *rules.Registry, version string) Reporter {
	return &reporter{
		config:   cfg,
		registry: registry,
		version:  version,
	}
}

// Generate writes the JSON report first, then the optional SQL, SARIF and
// metrics files. The first failure stops the sequence.
func (r *reporter) Generate(report *models.Report) (string, error) {
	outPath, err := filepath.Abs(r.config.OutPath)
	if err != nil {
		return "", &OutputError{Path: r.config.OutPath, Err: err}
	}
	if err := WriteJSON(report, outPath); err != nil {
		return "", err
	}
	slog.Debug("report written", slog.String("path", outPath))

	if r.config.SQLFile != "" {
		if err := WriteSQLFile(report, r.config.SQLFile); err != nil {
			return "", err
		}
		slog.Debug("evidence SQL written", slog.String("path", r.config.SQLFile))
	}

	if r.config.SARIFPath != "" {
		if err := WriteSARIF(report, r.registry, r.version, r.config.SARIFPath); err != nil {
			return "", err
		}
		slog.Debug("SARIF written", slog.String("path", r.config.SARIFPath))
	}

	if r.config.MetricsPath != "" {
		if err := WriteMetrics(report, r.config.MetricsPath); err != nil {
			return "", err
		}
		slog.Debug("metrics written", slog.String("path", r.config.MetricsPath))
	}

	return outPath, nil
}
