package domain

import (
	"github.com/yungbote/retail-intelligence/internal/domain/analytics"
	"github.com/yungbote/retail-intelligence/internal/domain/warehouse"
)

// Warehouse (star schema)
type Country = warehouse.Country
type Customer = warehouse.Customer
type Product = warehouse.Product
type CalendarDay = warehouse.CalendarDay
type SalesLineItem = warehouse.SalesLineItem

// Derived analytics
type CustomerFeatureVector = analytics.CustomerFeatureVector
type SegmentAssignment = analytics.SegmentAssignment
type ClusteredCustomer = analytics.ClusteredCustomer
type ChurnLabel = analytics.ChurnLabel
type LabeledCustomer = analytics.LabeledCustomer
type ScoredCustomer = analytics.ScoredCustomer

// Bookkeeping
type ModelSnapshot = analytics.ModelSnapshot
type PipelineRun = analytics.PipelineRun

const UnknownCategory = warehouse.UnknownCategory

const (
	UnmappedSegment           = analytics.UnmappedSegment
	DefaultChurnThresholdDays = analytics.DefaultChurnThresholdDays

	ModelKeySegmentation = analytics.ModelKeySegmentation
	ModelKeyChurn        = analytics.ModelKeyChurn

	RunStatusRunning   = analytics.RunStatusRunning
	RunStatusSucceeded = analytics.RunStatusSucceeded
	RunStatusFailed    = analytics.RunStatusFailed
)

var FeatureNames = analytics.FeatureNames
