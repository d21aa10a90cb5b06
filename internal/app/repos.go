package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

// Repos is empty when the app runs without a warehouse.
type Repos struct {
	Warehouse repos.Warehouse
	Models    repos.ModelSnapshotRepo
	Runs      repos.PipelineRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	if db == nil {
		return Repos{}
	}
	log.Info("Wiring repos...")
	return Repos{
		Warehouse: repos.NewWarehouse(db, log),
		Models:    repos.NewModelSnapshotRepo(db, log),
		Runs:      repos.NewPipelineRunRepo(db, log),
	}
}
