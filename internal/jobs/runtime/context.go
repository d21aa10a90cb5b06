package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/ctxutil"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

/*
Context is the execution handle for one stage of one pipeline run.
It wraps:
	- the request-scoped context (cancellation, trace data),
	- the pipeline_run row for the stage,
	- the shared Dataset handed from stage to stage,
	- and the only sanctioned ways to report progress or finish the stage.
Stage handlers never write pipeline_run directly.
*/
type Context struct {
	Ctx         context.Context
	DB          *gorm.DB
	Run         *types.PipelineRun
	Repo        repos.PipelineRunRepo
	Notify      Notifier
	Log         *logger.Logger
	Data        *Dataset
	Config      Settings
	LastMessage string
}

// Notifier receives lifecycle events. Implementations must not block.
type Notifier interface {
	StageProgress(run *types.PipelineRun, stage string, pct int, msg string)
	StageFailed(run *types.PipelineRun, stage string, msg string)
	StageDone(run *types.PipelineRun)
}

/*
NewContext creates the pipeline_run row for stage and returns a handle on it.
A nil Repo keeps the run in memory only, which is how single-stage CLI
invocations without a warehouse behave.
*/
func NewContext(ctx context.Context, db *gorm.DB, runID uuid.UUID, stage string, repo repos.PipelineRunRepo, notify Notifier, log *logger.Logger, data *Dataset, cfg Settings) (*Context, error) {
	if data == nil {
		data = &Dataset{}
	}
	now := time.Now().UTC()
	run := &types.PipelineRun{
		ID:        uuid.New(),
		RunID:     runID,
		Stage:     stage,
		Status:    types.RunStatusRunning,
		StartedAt: now,
	}
	if repo != nil {
		if err := repo.Create(dbctx.Context{Ctx: ctx}, run); err != nil {
			return nil, err
		}
	}
	ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{RunID: runID.String(), Stage: stage})
	if log != nil {
		log = log.With("run_id", runID.String(), "stage", stage)
	}
	return &Context{
		Ctx:    ctx,
		DB:     db,
		Run:    run,
		Repo:   repo,
		Notify: notify,
		Log:    log,
		Data:   data,
		Config: cfg,
	}, nil
}

// RunIDPtr is the run id in the form snapshot rows store it.
func (c *Context) RunIDPtr() *uuid.UUID {
	if c == nil || c.Run == nil || c.Run.RunID == uuid.Nil {
		return nil
	}
	id := c.Run.RunID
	return &id
}

/*
Progress records a non-terminal update on the stage row and in memory, then
notifies. Progress is clamped to 0..99; only Succeed reaches 100.
*/
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	c.LastMessage = msg
	c.update(map[string]interface{}{
		"progress": pct,
		"message":  msg,
	})
	if c.Run != nil {
		c.Run.Progress = pct
		c.Run.Message = msg
	}
	if c.Log != nil {
		c.Log.Debug("stage progress", "step", stage, "progress", pct, "message", msg)
	}
	if c.Notify != nil && c.Run != nil {
		c.Notify.StageProgress(c.Run, stage, pct, msg)
	}
}

/*
Fail marks the stage row failed with the error text. A failed stage aborts
the run; the orchestrator does not start later stages.
*/
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.update(map[string]interface{}{
		"status":      types.RunStatusFailed,
		"message":     stage,
		"error":       msg,
		"finished_at": now,
	})
	if c.Run != nil {
		c.Run.Status = types.RunStatusFailed
		c.Run.Message = stage
		c.Run.Error = msg
		c.Run.FinishedAt = &now
	}
	if c.Log != nil {
		c.Log.Error("stage failed", "step", stage, "error", msg)
	}
	if c.Notify != nil && c.Run != nil {
		c.Notify.StageFailed(c.Run, stage, msg)
	}
}

// Succeed marks the stage row succeeded and stores result as JSON.
func (c *Context) Succeed(result any) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	var res datatypes.JSON
	if result != nil {
		b, err := json.Marshal(result)
		if err == nil {
			res = datatypes.JSON(b)
		} else if c.Log != nil {
			c.Log.Warn("stage result not serializable", "error", err)
		}
	}
	c.update(map[string]interface{}{
		"status":      types.RunStatusSucceeded,
		"progress":    100,
		"message":     "",
		"error":       "",
		"result":      res,
		"finished_at": now,
	})
	if c.Run != nil {
		c.Run.Status = types.RunStatusSucceeded
		c.Run.Progress = 100
		c.Run.Message = ""
		c.Run.Error = ""
		c.Run.Result = res
		c.Run.FinishedAt = &now
	}
	if c.Notify != nil && c.Run != nil {
		c.Notify.StageDone(c.Run)
	}
}

// Failed reports whether Fail has been called on this stage.
func (c *Context) Failed() bool {
	return c != nil && c.Run != nil && c.Run.Status == types.RunStatusFailed
}

func (c *Context) update(fields map[string]interface{}) {
	if c.Repo == nil || c.Run == nil || c.Run.ID == uuid.Nil {
		return
	}
	ctx := context.Background()
	if c.Ctx != nil {
		ctx = context.WithoutCancel(c.Ctx)
	}
	if err := c.Repo.UpdateFields(dbctx.Context{Ctx: ctx}, c.Run.ID, fields); err != nil && c.Log != nil {
		c.Log.Warn("pipeline_run update failed", "error", err)
	}
}
