package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/retail-intelligence/internal/platform/ctxutil"
)

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveStage("warehouse_load", "succeeded", 2*time.Second)
	m.AddRows("fact_sales", "inserted", 10)
	m.AddRows("fact_sales", "dropped", 0)
	m.IncDataQuality("warehouse_load", "dropped_rows", "missing_customer", 3)
	m.SetModel("churn", 2, map[string]float64{"accuracy": 0.75})

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`retail_stage_runs_total{stage="warehouse_load",status="succeeded"} 1.000000`,
		`retail_stage_duration_seconds_bucket{stage="warehouse_load",status="succeeded",le="5"} 1`,
		`retail_warehouse_rows_total{table="fact_sales",outcome="inserted"} 10.000000`,
		`retail_data_quality_issues_total{stage="warehouse_load",issue="dropped_rows",key="missing_customer"} 3.000000`,
		`retail_model_version{model="churn"} 2.000000`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, `outcome="dropped"`) {
		t.Fatalf("zero row counts should not create series")
	}
}

func TestReportDroppedRowsCountsIssues(t *testing.T) {
	prev := instance
	instance = NewMetrics()
	t.Cleanup(func() { instance = prev })

	ReportDroppedRows(context.Background(), nil, "warehouse_load", map[string]int{"unresolved_product": 2, "missing_country": 0}, nil)
	if got := Current().DataQualityCount("warehouse_load", "dropped_rows", "unresolved_product"); got != 2 {
		t.Fatalf("unresolved_product: got %v", got)
	}
	if got := Current().DataQualityCount("warehouse_load", "dropped_rows", "missing_country"); got != 0 {
		t.Fatalf("missing_country: got %v", got)
	}
}

func TestStageSpanWithoutProvider(t *testing.T) {
	ctx, span := StartStage(context.Background(), "run-1", "feature_build")
	if span == nil {
		t.Fatalf("expected a span")
	}
	EndStage(span, nil, map[string]int64{"customers": 4})
	td := ctxutil.GetTraceData(ctx)
	if td == nil || td.RunID != "run-1" || td.Stage != "feature_build" {
		t.Fatalf("trace data not attached: %+v", td)
	}
}
