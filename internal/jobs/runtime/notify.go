package runtime

import (
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

// LogNotifier reports stage lifecycle events through the structured logger.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) StageProgress(run *types.PipelineRun, stage string, pct int, msg string) {
	if n.Log == nil || run == nil {
		return
	}
	n.Log.Info("stage progress", "run_id", run.RunID.String(), "stage", run.Stage, "step", stage, "progress", pct, "message", msg)
}

func (n LogNotifier) StageFailed(run *types.PipelineRun, stage string, msg string) {
	if n.Log == nil || run == nil {
		return
	}
	n.Log.Warn("stage failed", "run_id", run.RunID.String(), "stage", run.Stage, "step", stage, "error", msg)
}

func (n LogNotifier) StageDone(run *types.PipelineRun) {
	if n.Log == nil || run == nil {
		return
	}
	n.Log.Info("stage done", "run_id", run.RunID.String(), "stage", run.Stage)
}
