package orchestrator

import (
	"time"
)

type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

type StageState struct {
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	Attempts   int         `json:"attempts"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	LastError  string      `json:"last_error,omitempty"`

	// PipelineRunIDs are the pipeline_run rows written, one per attempt.
	PipelineRunIDs []string       `json:"pipeline_run_ids,omitempty"`
	Outputs        map[string]any `json:"outputs,omitempty"`
}

// RunState is the orchestrator's view of one run, stored as the result of
// the run's summary row.
type RunState struct {
	RunID    string                 `json:"run_id"`
	Order    []string               `json:"order"`
	Stages   map[string]*StageState `json:"stages"`
	Status   StageStatus            `json:"status"`
	Progress int                    `json:"progress"`
	Meta     map[string]any         `json:"meta,omitempty"`
}

func newRunState(runID string, order []string) *RunState {
	st := &RunState{
		RunID:  runID,
		Order:  append([]string(nil), order...),
		Stages: make(map[string]*StageState, len(order)),
		Status: StagePending,
		Meta:   map[string]any{},
	}
	for _, name := range order {
		st.Stages[name] = &StageState{Name: name, Status: StagePending}
	}
	return st
}

// Failed returns the first failed stage, if any.
func (s *RunState) Failed() (*StageState, bool) {
	for _, name := range s.Order {
		if ss := s.Stages[name]; ss != nil && ss.Status == StageFailed {
			return ss, true
		}
	}
	return nil, false
}
