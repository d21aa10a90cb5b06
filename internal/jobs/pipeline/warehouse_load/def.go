package warehouse_load

import (
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	warehouse repos.Warehouse
}

func New(db *gorm.DB, baseLog *logger.Logger, warehouse repos.Warehouse) *Pipeline {
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", steps.StageWarehouseLoad),
		warehouse: warehouse,
	}
}

func (p *Pipeline) Type() string { return steps.StageWarehouseLoad }
