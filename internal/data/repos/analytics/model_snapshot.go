package analytics

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type ModelSnapshotRepo interface {
	Create(dbc dbctx.Context, row *types.ModelSnapshot) error
	// CreateNextVersion assigns version = latest+1 for the key and inserts the row.
	CreateNextVersion(dbc dbctx.Context, row *types.ModelSnapshot) error
	GetLatestByKey(dbc dbctx.Context, key string) (*types.ModelSnapshot, error)
	GetActiveByKey(dbc dbctx.Context, key string) (*types.ModelSnapshot, error)
	ListByKey(dbc dbctx.Context, key string, limit int) ([]*types.ModelSnapshot, error)
	SetActiveByID(dbc dbctx.Context, id uuid.UUID) error
}

type modelSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) ModelSnapshotRepo {
	return &modelSnapshotRepo{db: db, log: baseLog.With("repo", "ModelSnapshotRepo")}
}

func (r *modelSnapshotRepo) Create(dbc dbctx.Context, row *types.ModelSnapshot) error {
	if row == nil || strings.TrimSpace(row.ModelKey) == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *modelSnapshotRepo) CreateNextVersion(dbc dbctx.Context, row *types.ModelSnapshot) error {
	if row == nil || strings.TrimSpace(row.ModelKey) == "" {
		return nil
	}
	row.Version = 1
	latest, err := r.GetLatestByKey(dbc, row.ModelKey)
	if err != nil {
		return err
	}
	if latest != nil && latest.Version >= row.Version {
		row.Version = latest.Version + 1
	}
	return r.Create(dbc, row)
}

func (r *modelSnapshotRepo) GetLatestByKey(dbc dbctx.Context, key string) (*types.ModelSnapshot, error) {
	return r.first(dbc, key, false)
}

func (r *modelSnapshotRepo) GetActiveByKey(dbc dbctx.Context, key string) (*types.ModelSnapshot, error) {
	return r.first(dbc, key, true)
}

func (r *modelSnapshotRepo) first(dbc dbctx.Context, key string, activeOnly bool) (*types.ModelSnapshot, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	q := dbc.DB(r.db).Where("model_key = ?", key)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	row := &types.ModelSnapshot{}
	if err := q.Order("version DESC").Limit(1).First(row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *modelSnapshotRepo) ListByKey(dbc dbctx.Context, key string, limit int) ([]*types.ModelSnapshot, error) {
	key = strings.TrimSpace(key)
	out := []*types.ModelSnapshot{}
	if key == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if err := dbc.DB(r.db).
		Where("model_key = ?", key).
		Order("version DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetActiveByID makes id the only active snapshot for its key.
func (r *modelSnapshotRepo) SetActiveByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	t := dbc.DB(r.db)
	var row types.ModelSnapshot
	if err := t.Where("id = ?", id).First(&row).Error; err != nil {
		return err
	}
	if err := t.Model(&types.ModelSnapshot{}).
		Where("model_key = ?", row.ModelKey).
		Update("active", false).Error; err != nil {
		return err
	}
	return t.Model(&types.ModelSnapshot{}).
		Where("id = ?", id).
		Update("active", true).Error
}
