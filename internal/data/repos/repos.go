package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos/analytics"
	"github.com/yungbote/retail-intelligence/internal/data/repos/warehouse"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

type CountryRepo = warehouse.CountryRepo
type CustomerRepo = warehouse.CustomerRepo
type ProductRepo = warehouse.ProductRepo
type CalendarRepo = warehouse.CalendarRepo
type SalesRepo = warehouse.SalesRepo
type CustomerAggregate = warehouse.CustomerAggregate

type ModelSnapshotRepo = analytics.ModelSnapshotRepo
type PipelineRunRepo = analytics.PipelineRunRepo

func NewCountryRepo(db *gorm.DB, log *logger.Logger) CountryRepo {
	return warehouse.NewCountryRepo(db, log)
}
func NewCustomerRepo(db *gorm.DB, log *logger.Logger) CustomerRepo {
	return warehouse.NewCustomerRepo(db, log)
}
func NewProductRepo(db *gorm.DB, log *logger.Logger) ProductRepo {
	return warehouse.NewProductRepo(db, log)
}
func NewCalendarRepo(db *gorm.DB, log *logger.Logger) CalendarRepo {
	return warehouse.NewCalendarRepo(db, log)
}
func NewSalesRepo(db *gorm.DB, log *logger.Logger) SalesRepo {
	return warehouse.NewSalesRepo(db, log)
}
func NewModelSnapshotRepo(db *gorm.DB, log *logger.Logger) ModelSnapshotRepo {
	return analytics.NewModelSnapshotRepo(db, log)
}
func NewPipelineRunRepo(db *gorm.DB, log *logger.Logger) PipelineRunRepo {
	return analytics.NewPipelineRunRepo(db, log)
}

// Warehouse groups the repos the loader and aggregator need.
type Warehouse struct {
	Countries CountryRepo
	Customers CustomerRepo
	Products  ProductRepo
	Calendar  CalendarRepo
	Sales     SalesRepo
}

func NewWarehouse(db *gorm.DB, log *logger.Logger) Warehouse {
	return Warehouse{
		Countries: NewCountryRepo(db, log),
		Customers: NewCustomerRepo(db, log),
		Products:  NewProductRepo(db, log),
		Calendar:  NewCalendarRepo(db, log),
		Sales:     NewSalesRepo(db, log),
	}
}
