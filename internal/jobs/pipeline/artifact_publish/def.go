package artifact_publish

import (
	"github.com/yungbote/retail-intelligence/internal/clients/redis"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const Stage = "artifact_publish"

// Pipeline pushes the latest models and segment summary to Redis. A nil
// publisher turns the stage into a logged no-op.
type Pipeline struct {
	log       *logger.Logger
	publisher redis.ArtifactPublisher
}

func New(baseLog *logger.Logger, publisher redis.ArtifactPublisher) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", Stage),
		publisher: publisher,
	}
}

func (p *Pipeline) Type() string { return Stage }
