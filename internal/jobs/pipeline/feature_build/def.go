package feature_build

import (
	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type Pipeline struct {
	log   *logger.Logger
	sales repos.SalesRepo
}

func New(baseLog *logger.Logger, sales repos.SalesRepo) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("job", steps.StageFeatureBuild),
		sales: sales,
	}
}

func (p *Pipeline) Type() string { return steps.StageFeatureBuild }
