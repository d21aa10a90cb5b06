package app

import (
	"fmt"

	"github.com/yungbote/retail-intelligence/internal/clients/redis"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type Clients struct {
	// Publisher is nil unless REDIS_ADDR is set.
	Publisher redis.ArtifactPublisher
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	pub, err := redis.NewArtifactPublisher(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis artifact publisher: %w", err)
	}
	return Clients{Publisher: pub}, nil
}

func (c Clients) Close() {
	if c.Publisher != nil {
		_ = c.Publisher.Close()
	}
}
