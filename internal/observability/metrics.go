package observability

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/retail-intelligence/internal/platform/envutil"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

// Metrics collects pipeline counters in Prometheus text format. A batch job
// has no scrape endpoint, so the snapshot is written to a textfile that a
// node exporter can pick up.
type Metrics struct {
	stageRuns     *CounterVec
	stageDuration *HistogramVec
	rowsWritten   *CounterVec
	dataQuality   *CounterVec
	modelVersion  *GaugeVec
	modelScore    *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide collector when METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled", "textfile", MetricsTextfile())
		}
	})
	return instance
}

// NewMetrics returns an unregistered collector.
func NewMetrics() *Metrics {
	return &Metrics{
		stageRuns: NewCounterVec("retail_stage_runs_total", "Pipeline stage executions by stage/status.", []string{"stage", "status"}),
		stageDuration: NewHistogramVec(
			"retail_stage_duration_seconds",
			"Pipeline stage wall time in seconds by stage/status.",
			[]string{"stage", "status"},
			nil,
		),
		rowsWritten:  NewCounterVec("retail_warehouse_rows_total", "Warehouse rows by table/outcome.", []string{"table", "outcome"}),
		dataQuality:  NewCounterVec("retail_data_quality_issues_total", "Dropped or invalid rows by stage/issue/key.", []string{"stage", "issue", "key"}),
		modelVersion: NewGaugeVec("retail_model_version", "Latest persisted model version.", []string{"model"}),
		modelScore:   NewGaugeVec("retail_model_score", "Held-out evaluation score of the latest model.", []string{"model", "metric"}),
	}
}

func MetricsTextfile() string {
	return envutil.String("METRICS_TEXTFILE", "")
}

func (m *Metrics) ObserveStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageRuns.Inc(stage, status)
	if dur > 0 {
		m.stageDuration.Observe(dur.Seconds(), stage, status)
	}
}

// AddRows records warehouse row outcomes such as inserted, skipped or dropped.
func (m *Metrics) AddRows(table, outcome string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.rowsWritten.Add(float64(n), table, outcome)
}

func (m *Metrics) IncDataQuality(stage, issue, key string, n int) {
	if m == nil || n <= 0 {
		return
	}
	stage = strings.TrimSpace(stage)
	issue = strings.TrimSpace(issue)
	key = strings.TrimSpace(key)
	if key == "" {
		key = "none"
	}
	m.dataQuality.Add(float64(n), stage, issue, key)
}

func (m *Metrics) DataQualityCount(stage, issue, key string) float64 {
	if m == nil {
		return 0
	}
	if key == "" {
		key = "none"
	}
	return m.dataQuality.Value(stage, issue, key)
}

func (m *Metrics) SetModel(model string, version int, scores map[string]float64) {
	if m == nil {
		return
	}
	m.modelVersion.Set(float64(version), model)
	for metric, v := range scores {
		m.modelScore.Set(v, model, metric)
	}
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.stageRuns, m.stageDuration, m.rowsWritten, m.dataQuality, m.modelVersion, m.modelScore,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextfile writes the snapshot atomically to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return os.Rename(tmp, path)
}
