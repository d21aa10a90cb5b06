package churn_train

import (
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type Pipeline struct {
	db     *gorm.DB
	log    *logger.Logger
	models repos.ModelSnapshotRepo
}

func New(db *gorm.DB, baseLog *logger.Logger, models repos.ModelSnapshotRepo) *Pipeline {
	return &Pipeline{
		db:     db,
		log:    baseLog.With("job", steps.StageChurnTrain),
		models: models,
	}
}

func (p *Pipeline) Type() string { return steps.StageChurnTrain }
