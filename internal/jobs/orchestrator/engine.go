package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/observability"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

// SummaryStage names the pipeline_run row that carries the whole run's state.
const SummaryStage = "pipeline"

// -------------------- Public API --------------------

type RetryPolicy struct {
	MaxAttempts int
	Retryable   func(err error) bool

	MinBackoff time.Duration // default 1s
	MaxBackoff time.Duration // default 30s
	JitterFrac float64       // default 0.20
}

type Stage struct {
	Name    string
	Timeout time.Duration
	Retry   RetryPolicy
}

type Engine struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runs     repos.PipelineRunRepo
	Notify   jobrt.Notifier
	Registry *jobrt.Registry
}

func NewEngine(db *gorm.DB, log *logger.Logger, runs repos.PipelineRunRepo, notify jobrt.Notifier, registry *jobrt.Registry) *Engine {
	return &Engine{
		DB:       db,
		Log:      log.With("component", "orchestrator"),
		Runs:     runs,
		Notify:   notify,
		Registry: registry,
	}
}

// Run executes stages strictly in order on one shared Dataset and stops at the
// first stage that fails. The returned state is also stored as the result of
// the run's summary row.
func (e *Engine) Run(ctx context.Context, runID uuid.UUID, stages []Stage, data *jobrt.Dataset, cfg jobrt.Settings) (*RunState, error) {
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	if data == nil {
		data = &jobrt.Dataset{}
	}
	if err := e.validateStages(stages); err != nil {
		return nil, err
	}
	order := make([]string, len(stages))
	for i, s := range stages {
		order[i] = s.Name
	}
	st := newRunState(runID.String(), order)
	st.Status = StageRunning

	summary, err := jobrt.NewContext(ctx, e.DB, runID, SummaryStage, e.Runs, e.Notify, e.Log, data, cfg)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	e.Log.Info("pipeline run started", "run_id", runID.String(), "stages", strings.Join(order, ","))

	for i, def := range stages {
		ss := st.Stages[def.Name]
		ss.Status = StageRunning
		markStarted(ss)
		setProgress(summary, st, def.Name, i*100/len(stages), "Starting "+def.Name)

		outs, err := e.runStage(ctx, runID, def, ss, data, cfg)
		markFinished(ss, errString(err))
		if err != nil {
			ss.Status = StageFailed
			for _, rest := range order[i+1:] {
				st.Stages[rest].Status = StageSkipped
			}
			st.Status = StageFailed
			summary.Fail(def.Name, err)
			e.saveState(summary, st)
			return st, fmt.Errorf("stage %s: %w", def.Name, err)
		}
		ss.Status = StageSucceeded
		mergeOutputs(ss, outs)
		setProgress(summary, st, def.Name, (i+1)*100/len(stages), "Done "+def.Name)
	}

	st.Status = StageSucceeded
	summary.Succeed(st)
	e.Log.Info("pipeline run succeeded", "run_id", runID.String())
	return st, nil
}

// -------------------- stage execution --------------------

func (e *Engine) runStage(ctx context.Context, runID uuid.UUID, def Stage, ss *StageState, data *jobrt.Dataset, cfg jobrt.Settings) (map[string]any, error) {
	h, _ := e.Registry.Get(def.Name)
	for {
		ss.Attempts++
		jc, err := jobrt.NewContext(ctx, e.DB, runID, def.Name, e.Runs, e.Notify, e.Log, data, cfg)
		if err != nil {
			return nil, fmt.Errorf("create stage run: %w", err)
		}
		ss.PipelineRunIDs = append(ss.PipelineRunIDs, jc.Run.ID.String())

		spanCtx, span := observability.StartStage(jc.Ctx, runID.String(), def.Name)
		jc.Ctx = spanCtx
		start := time.Now()
		err = safeRun(h, jc, def.Timeout)
		if err == nil && jc.Failed() {
			err = errors.New(jc.Run.Error)
		}
		if err != nil && !jc.Failed() {
			jc.Fail(def.Name, err)
		}
		outs := decodeOutputs(jc)

		status := string(StageSucceeded)
		if err != nil {
			status = string(StageFailed)
		}
		observability.Current().ObserveStage(def.Name, status, time.Since(start))
		observability.EndStage(span, err, numericCounts(outs))

		if err == nil {
			return outs, nil
		}
		ss.LastError = err.Error()
		if !shouldRetry(def.Retry, ss.Attempts, err) {
			return outs, err
		}
		delay := computeBackoff(def.Retry, ss.Attempts)
		e.Log.Warn("stage failed, retrying", "stage", def.Name, "attempt", ss.Attempts, "delay", delay.String(), "error", err)
		select {
		case <-ctx.Done():
			return outs, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (e *Engine) saveState(summary *jobrt.Context, st *RunState) {
	if summary == nil || summary.Repo == nil || summary.Run == nil {
		return
	}
	b, err := json.Marshal(st)
	if err != nil {
		return
	}
	res := datatypes.JSON(b)
	summary.Run.Result = res
	if err := summary.Repo.UpdateFields(dbctx.Context{Ctx: context.WithoutCancel(summary.Ctx)}, summary.Run.ID, map[string]interface{}{"result": res}); err != nil {
		e.Log.Warn("save run state failed", "error", err)
	}
}

// -------------------- safety + validation --------------------

func (e *Engine) validateStages(stages []Stage) error {
	if e.Registry == nil {
		return fmt.Errorf("orchestrator: no stage registry")
	}
	if len(stages) == 0 {
		return fmt.Errorf("orchestrator: no stages to run")
	}
	seen := map[string]bool{}
	for _, s := range stages {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("stage missing Name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate stage name %q", s.Name)
		}
		seen[s.Name] = true
		if _, ok := e.Registry.Get(s.Name); !ok {
			return fmt.Errorf("no handler registered for stage %q", s.Name)
		}
	}
	return nil
}

func safeRun(h jobrt.Handler, jc *jobrt.Context, timeout time.Duration) (err error) {
	run := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("stage %q panicked: %v", h.Type(), r)
			}
		}()
		return h.Run(jc)
	}
	if timeout <= 0 {
		return run()
	}
	tctx, cancel := context.WithTimeout(jc.Ctx, timeout)
	defer cancel()
	jc.Ctx = tctx
	ch := make(chan error, 1)
	go func() { ch <- run() }()
	select {
	case <-tctx.Done():
		return fmt.Errorf("stage %q timed out: %w", h.Type(), tctx.Err())
	case err := <-ch:
		return err
	}
}

// -------------------- progress + timestamps --------------------

func setProgress(summary *jobrt.Context, st *RunState, stage string, pct int, msg string) {
	if pct < st.Progress {
		pct = st.Progress
	} else {
		st.Progress = pct
	}
	summary.Progress(stage, pct, msg)
}

func markStarted(ss *StageState) {
	if ss == nil || ss.StartedAt != nil {
		return
	}
	now := time.Now().UTC()
	ss.StartedAt = &now
}

func markFinished(ss *StageState, lastErr string) {
	if ss == nil {
		return
	}
	now := time.Now().UTC()
	ss.FinishedAt = &now
	if strings.TrimSpace(lastErr) != "" {
		ss.LastError = lastErr
	}
}

func mergeOutputs(ss *StageState, outs map[string]any) {
	if ss == nil || outs == nil {
		return
	}
	if ss.Outputs == nil {
		ss.Outputs = map[string]any{}
	}
	for k, v := range outs {
		ss.Outputs[k] = v
	}
}

func decodeOutputs(jc *jobrt.Context) map[string]any {
	if jc == nil || jc.Run == nil || len(jc.Run.Result) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(jc.Run.Result, &m); err != nil {
		return nil
	}
	return m
}

// numericCounts keeps the top-level whole numbers of a stage result for span
// attributes.
func numericCounts(outs map[string]any) map[string]int64 {
	counts := map[string]int64{}
	for k, v := range outs {
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			counts[k] = int64(f)
		}
	}
	return counts
}

// -------------------- retry/backoff --------------------

func shouldRetry(r RetryPolicy, attempts int, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if r.MaxAttempts <= 0 || attempts >= r.MaxAttempts {
		return false
	}
	if r.Retryable == nil {
		return true
	}
	return r.Retryable(err)
}

func computeBackoff(r RetryPolicy, attempts int) time.Duration {
	minB := r.MinBackoff
	maxB := r.MaxBackoff
	j := r.JitterFrac
	if minB <= 0 {
		minB = 1 * time.Second
	}
	if maxB <= 0 {
		maxB = 30 * time.Second
	}
	if j <= 0 {
		j = 0.20
	}
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(float64(minB) * math.Pow(2, float64(attempts-1)))
	if d > maxB {
		d = maxB
	}
	delta := float64(d) * j
	low := float64(d) - delta
	high := float64(d) + delta
	if low < 0 {
		low = 0
	}
	return time.Duration(low + rand.Float64()*(high-low))
}

// -------------------- misc --------------------

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
