package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/retail-intelligence/internal/platform/ctxutil"
	"github.com/yungbote/retail-intelligence/internal/platform/envutil"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type dqAlertState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var dqAlerts dqAlertState

// ReportDroppedRows surfaces rows a stage excluded, keyed by reason (for
// example "missing_customer" or "unresolved_product"). Zero counts are ignored.
func ReportDroppedRows(ctx context.Context, log *logger.Logger, stage string, dropped map[string]int, meta map[string]any) {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "unknown"
	}
	issues := map[string]int{}
	total := 0
	for reason, n := range dropped {
		if n <= 0 {
			continue
		}
		issues[reason] = n
		total += n
		Current().IncDataQuality(stage, "dropped_rows", reason, n)
	}
	if total == 0 {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RunID != "" {
		meta["run_id"] = td.RunID
	}

	if log != nil {
		log.Warn("data quality: rows dropped",
			"stage", stage,
			"dropped_total", total,
			"issues", issues,
			"meta", meta,
		)
	}
	sendDataQualityAlert(stage, issues, meta, log)
}

// ReportDataQualityErrors logs free-form validation failures for a stage.
func ReportDataQualityErrors(ctx context.Context, log *logger.Logger, stage string, errs []string, meta map[string]any) {
	var samples []string
	n := 0
	for _, e := range errs {
		if e = strings.TrimSpace(e); e == "" {
			continue
		}
		n++
		if len(samples) < 3 {
			samples = append(samples, e)
		}
	}
	if n == 0 {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["sample_errors"] = samples
	ReportDroppedRows(ctx, log, stage, map[string]int{"validation_error": n}, meta)
}

func dataQualityAlertMinInterval() time.Duration {
	seconds := envutil.Int64("DATA_QUALITY_ALERT_MIN_INTERVAL_SECONDS", 300)
	if seconds <= 0 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}

func sendDataQualityAlert(stage string, issues map[string]int, meta map[string]any, log *logger.Logger) {
	if !envutil.Bool("DATA_QUALITY_ALERTS_ENABLED", false) {
		return
	}
	webhook := envutil.String("DATA_QUALITY_ALERT_WEBHOOK_URL", "")
	if webhook == "" || len(issues) == 0 {
		return
	}
	dqAlerts.mu.Lock()
	if dqAlerts.last == nil {
		dqAlerts.last = map[string]time.Time{}
	}
	last := dqAlerts.last[stage]
	if !last.IsZero() && time.Since(last) < dataQualityAlertMinInterval() {
		dqAlerts.mu.Unlock()
		return
	}
	dqAlerts.last[stage] = time.Now()
	dqAlerts.mu.Unlock()

	reasons := make([]string, 0, len(issues))
	for r := range issues {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	payload := map[string]any{
		"title":     "Retail pipeline data quality",
		"stage":     stage,
		"issues":    issues,
		"reasons":   reasons,
		"meta":      meta,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		if log != nil {
			log.Warn("data quality alert request build failed", "error", err, "stage", stage)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if log != nil {
			log.Warn("data quality alert post failed", "error", err, "stage", stage)
		}
		return
	}
	_ = resp.Body.Close()
	if log != nil {
		log.Info("data quality alert sent", "stage", stage, "status", resp.StatusCode)
	}
}
