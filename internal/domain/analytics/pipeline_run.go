package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun records one stage execution and its reported counts.
type PipelineRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID      uuid.UUID      `gorm:"type:uuid;column:run_id;not null;index" json:"run_id"`
	Stage      string         `gorm:"column:stage;type:varchar(64);not null;index" json:"stage"`
	Status     string         `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Progress   int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Message    string         `gorm:"column:message;type:text" json:"message,omitempty"`
	Error      string         `gorm:"column:error;type:text" json:"error,omitempty"`
	Result     datatypes.JSON `gorm:"column:result" json:"result"`
	StartedAt  time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (PipelineRun) TableName() string { return "pipeline_run" }
