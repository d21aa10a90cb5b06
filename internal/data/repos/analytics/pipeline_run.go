package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type PipelineRunRepo interface {
	Create(dbc dbctx.Context, row *types.PipelineRun) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListByRunID(dbc dbctx.Context, runID uuid.UUID) ([]*types.PipelineRun, error)
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{db: db, log: baseLog.With("repo", "PipelineRunRepo")}
}

func (r *pipelineRunRepo) Create(dbc dbctx.Context, row *types.PipelineRun) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.StartedAt.IsZero() {
		row.StartedAt = time.Now().UTC()
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *pipelineRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.PipelineRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *pipelineRunRepo) ListByRunID(dbc dbctx.Context, runID uuid.UUID) ([]*types.PipelineRun, error) {
	var out []*types.PipelineRun
	if runID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("run_id = ?", runID).
		Order("started_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
