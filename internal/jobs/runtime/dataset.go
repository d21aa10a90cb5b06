package runtime

import (
	"fmt"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ingestion/source"
	"github.com/yungbote/retail-intelligence/internal/ml"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
)

// Dataset carries the in-memory tables one stage hands to the next. A stage
// run on its own finds its slot empty and reads the previous stage's file
// from the output directory instead.
type Dataset struct {
	Records      []source.RawRecord
	Features     []types.CustomerFeatureVector
	Clustered    []types.ClusteredCustomer
	Labeled      []types.LabeledCustomer
	Segmentation *artifacts.SegmentationModel
	Churn        *artifacts.ChurnModel
	Summary      []artifacts.SegmentSummary
}

// Settings are the per-run knobs every stage reads.
type Settings struct {
	InputPath   string
	OutputDir   string
	BatchSize   int
	MaxAttempts int
	Categories  steps.CategoryRules

	KMeans     ml.KMeansConfig
	ElbowMaxK  int
	SegmentMap artifacts.SegmentMap

	ThresholdDays int
	TestSize      float64
	ChurnSeed     uint64
	SMOTE         ml.SMOTEConfig
	LogRegC       float64
	LogRegMaxIter int
}

// Records returns the raw transactions, reading Settings.InputPath on first use.
func (c *Context) Records() ([]source.RawRecord, error) {
	if c.Data.Records != nil {
		return c.Data.Records, nil
	}
	if c.Config.InputPath == "" {
		return nil, fmt.Errorf("missing input path")
	}
	recs, err := source.ReadFile(c.Config.InputPath)
	if err != nil {
		return nil, err
	}
	c.Data.Records = recs
	return recs, nil
}

// Features returns the feature table from an earlier stage or from the
// features file in the output directory.
func (c *Context) Features() ([]types.CustomerFeatureVector, error) {
	if c.Data.Features == nil {
		rows, err := artifacts.ReadFeatures(artifacts.Path(c.Config.OutputDir, artifacts.CustomerFeaturesFile))
		if err != nil {
			return nil, fmt.Errorf("load features: %w", err)
		}
		c.Data.Features = rows
	}
	return c.Data.Features, nil
}

func (c *Context) Clustered() ([]types.ClusteredCustomer, error) {
	if c.Data.Clustered == nil {
		rows, err := artifacts.ReadClustered(artifacts.Path(c.Config.OutputDir, artifacts.ClusteredCustomersFile))
		if err != nil {
			return nil, fmt.Errorf("load clustered customers: %w", err)
		}
		c.Data.Clustered = rows
	}
	return c.Data.Clustered, nil
}

func (c *Context) Labeled() ([]types.LabeledCustomer, error) {
	if c.Data.Labeled == nil {
		rows, err := artifacts.ReadChurnLabeled(artifacts.Path(c.Config.OutputDir, artifacts.ChurnLabeledFile))
		if err != nil {
			return nil, fmt.Errorf("load churn labels: %w", err)
		}
		c.Data.Labeled = rows
	}
	return c.Data.Labeled, nil
}
