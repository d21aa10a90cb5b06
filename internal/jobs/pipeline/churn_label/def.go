package churn_label

import (
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type Pipeline struct {
	log *logger.Logger
}

func New(baseLog *logger.Logger) *Pipeline {
	return &Pipeline{log: baseLog.With("job", steps.StageChurnLabel)}
}

func (p *Pipeline) Type() string { return steps.StageChurnLabel }
