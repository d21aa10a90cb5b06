package segment_build

import (
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

// Pipeline runs segmentation. db, customers and models may be nil, in which
// case only the output files are produced.
type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	customers repos.CustomerRepo
	models    repos.ModelSnapshotRepo
}

func New(db *gorm.DB, baseLog *logger.Logger, customers repos.CustomerRepo, models repos.ModelSnapshotRepo) *Pipeline {
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", steps.StageSegmentBuild),
		customers: customers,
		models:    models,
	}
}

func (p *Pipeline) Type() string { return steps.StageSegmentBuild }
