package segment_build

import (
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	features, err := jc.Features()
	if err != nil {
		jc.Fail("validate", err)
		return err
	}

	jc.Progress("cluster", 10, "Clustering customers")
	out, err := steps.SegmentBuild(jc.Ctx, steps.SegmentBuildDeps{
		DB:        p.db,
		Log:       p.log,
		Customers: p.customers,
		Models:    p.models,
	}, steps.SegmentBuildInput{
		Features:  features,
		Config:    jc.Config.KMeans,
		ElbowMaxK: jc.Config.ElbowMaxK,
		Mapping:   jc.Config.SegmentMap,
		OutputDir: jc.Config.OutputDir,
		RunID:     jc.RunIDPtr(),
	})
	if err != nil {
		jc.Fail("cluster", err)
		return err
	}
	jc.Data.Clustered = out.Clustered
	jc.Data.Segmentation = out.Model
	jc.Succeed(out)
	return nil
}
