package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/data/repos/testutil"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/ctxutil"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
)

type recordingNotifier struct {
	progress []int
	failed   []string
	done     int
}

func (n *recordingNotifier) StageProgress(_ *types.PipelineRun, _ string, pct int, _ string) {
	n.progress = append(n.progress, pct)
}
func (n *recordingNotifier) StageFailed(_ *types.PipelineRun, stage string, _ string) {
	n.failed = append(n.failed, stage)
}
func (n *recordingNotifier) StageDone(_ *types.PipelineRun) { n.done++ }

func TestContextLifecyclePersistsRunRows(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewPipelineRunRepo(db, log)
	runID := uuid.New()
	note := &recordingNotifier{}

	ok, err := NewContext(context.Background(), db, runID, "feature_build", repo, note, log, nil, Settings{})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if td := ctxutil.GetTraceData(ok.Ctx); td == nil || td.Stage != "feature_build" || td.RunID != runID.String() {
		t.Fatalf("trace data: %+v", td)
	}
	ok.Progress("aggregate", 150, "aggregating")
	ok.Succeed(map[string]any{"customers": 2})

	bad, err := NewContext(context.Background(), db, runID, "segment_build", repo, note, log, nil, Settings{})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	bad.Fail("cluster", errors.New("k exceeds customers"))
	if !bad.Failed() || ok.Failed() {
		t.Fatalf("Failed() mismatch")
	}

	rows, err := repo.ListByRunID(dbctx.Context{Ctx: context.Background()}, runID)
	if err != nil {
		t.Fatalf("ListByRunID: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
	byStage := map[string]*types.PipelineRun{}
	for _, r := range rows {
		byStage[r.Stage] = r
	}
	fb := byStage["feature_build"]
	if fb.Status != types.RunStatusSucceeded || fb.Progress != 100 || fb.FinishedAt == nil || string(fb.Result) != `{"customers":2}` {
		t.Fatalf("feature_build row: %+v", fb)
	}
	sb := byStage["segment_build"]
	if sb.Status != types.RunStatusFailed || sb.Error != "k exceeds customers" || sb.Message != "cluster" {
		t.Fatalf("segment_build row: %+v", sb)
	}
	if len(note.progress) != 1 || note.progress[0] != 99 || note.done != 1 || len(note.failed) != 1 {
		t.Fatalf("notifications: %+v", note)
	}
}

func TestContextWithoutRepoStaysInMemory(t *testing.T) {
	c, err := NewContext(context.Background(), nil, uuid.New(), "churn_label", nil, nil, testutil.Logger(t), nil, Settings{})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	c.Succeed(nil)
	if c.Run.Status != types.RunStatusSucceeded || c.Data == nil {
		t.Fatalf("in-memory run: %+v", c.Run)
	}
}

type stubHandler string

func (s stubHandler) Type() string { return string(s) }
func (s stubHandler) Run(ctx *Context) error { return nil }

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	for _, s := range []string{"warehouse_load", "feature_build"} {
		if err := r.Register(stubHandler(s)); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if err := r.Register(stubHandler("feature_build")); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if got := r.Stages(); len(got) != 2 || got[0] != "warehouse_load" {
		t.Fatalf("stages=%v", got)
	}
}
