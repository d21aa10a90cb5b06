package churn_score

import (
	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type Pipeline struct {
	log    *logger.Logger
	models repos.ModelSnapshotRepo
}

func New(baseLog *logger.Logger, models repos.ModelSnapshotRepo) *Pipeline {
	return &Pipeline{
		log:    baseLog.With("job", steps.StageChurnScore),
		models: models,
	}
}

func (p *Pipeline) Type() string { return steps.StageChurnScore }
