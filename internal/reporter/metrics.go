package reporter

import (
	"fmt"
	"time"

	"github.com/ppiankov/pipeaudit/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pipeaudit"

// statusValue maps the report status onto the pipeaudit_status gauge.
func statusValue(status models.Status) float64 {
	switch status {
	case models.StatusCritical:
		return 2
	case models.StatusWarning:
		return 1
	default:
		return 0
	}
}

// newMetricsRegistry builds a private registry holding the gauges for one
// report. Nothing is registered globally.
func newMetricsRegistry(report *models.Report) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	status := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "status",
		Help:      "Overall report status: 0 healthy, 1 warning, 2 critical.",
	})
	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "findings",
		Help:      "Number of findings by severity.",
	}, []string{"severity"})
	activeParts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "active_parts",
		Help:      "Active parts per audited table.",
	}, []string{"table"})
	diskFree := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "disk_free_percent",
		Help:      "Free space percentage per disk.",
	}, []string{"disk"})
	timestamp := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "report_timestamp_seconds",
		Help:      "Unix time the report was generated.",
	})

	collectors := []prometheus.Collector{status, findings, activeParts, diskFree, timestamp}

	status.Set(statusValue(report.Summary.Status))
	findings.WithLabelValues(string(models.SeverityCritical)).Set(float64(report.Summary.CriticalCount))
	findings.WithLabelValues(string(models.SeverityWarning)).Set(float64(report.Summary.WarningCount))

	if parts := report.Sections.Parts; parts != nil {
		for _, p := range parts.Tables {
			activeParts.WithLabelValues(p.Key()).Set(float64(p.ActiveParts))
		}
	}
	if disk := report.Sections.Disk; disk != nil {
		for _, d := range disk.Disks {
			diskFree.WithLabelValues(d.DiskName).Set(d.FreePercent)
		}
	}
	if generated, err := time.Parse(time.RFC3339, report.GeneratedAt); err == nil {
		timestamp.Set(float64(generated.Unix()))
	}

	if dag := report.Sections.MvDag; dag != nil {
		maxDepth := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "mv_dag_max_depth",
			Help:      "Longest materialized view chain in the audited database.",
		})
		maxDepth.Set(float64(dag.MaxDepth))
		collectors = append(collectors, maxDepth)
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return reg, nil
}

// WriteMetrics writes report gauges to path in the node-exporter textfile
// format.
func WriteMetrics(report *models.Report, path string) error {
	if report == nil {
		return &OutputError{Path: path, Err: fmt.Errorf("report is nil")}
	}

	reg, err := newMetricsRegistry(report)
	if err != nil {
		return &OutputError{Path: path, Err: err}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	return nil
}
