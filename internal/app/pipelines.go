package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/artifact_publish"
	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/churn_label"
	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/churn_score"
	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/churn_train"
	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/elbow"
	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/feature_build"
	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/segment_build"
	"github.com/yungbote/retail-intelligence/internal/jobs/pipeline/warehouse_load"
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

// Stage lists for the CLI commands. The full run follows the fixed order
// load → features → segment → label → train, then scores and publishes.
var (
	StagesLoad     = []string{steps.StageWarehouseLoad}
	StagesFeatures = []string{steps.StageFeatureBuild}
	StagesSegment  = []string{steps.StageSegmentBuild}
	StagesLabel    = []string{steps.StageChurnLabel}
	StagesTrain    = []string{steps.StageChurnTrain, artifact_publish.Stage}
	StagesScore    = []string{steps.StageChurnScore, artifact_publish.Stage}
	StagesElbow    = []string{steps.StageElbow}
	StagesRun      = []string{
		steps.StageWarehouseLoad,
		steps.StageFeatureBuild,
		steps.StageSegmentBuild,
		steps.StageChurnLabel,
		steps.StageChurnTrain,
		steps.StageChurnScore,
		artifact_publish.Stage,
	}
)

func wirePipelines(db *gorm.DB, log *logger.Logger, r Repos, c Clients) (*jobrt.Registry, error) {
	log.Info("Wiring pipelines...")
	reg := jobrt.NewRegistry()
	handlers := []jobrt.Handler{
		warehouse_load.New(db, log, r.Warehouse),
		feature_build.New(log, r.Warehouse.Sales),
		segment_build.New(db, log, r.Warehouse.Customers, r.Models),
		churn_label.New(log),
		churn_train.New(db, log, r.Models),
		churn_score.New(log, r.Models),
		elbow.New(log),
		artifact_publish.New(log, c.Publisher),
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return nil, fmt.Errorf("register %s: %w", h.Type(), err)
		}
	}
	return reg, nil
}
