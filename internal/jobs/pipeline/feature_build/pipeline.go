package feature_build

import (
	"fmt"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	if p.sales == nil {
		err := fmt.Errorf("feature_build: no warehouse database configured")
		jc.Fail("validate", err)
		return err
	}
	path := ""
	if jc.Config.OutputDir != "" {
		path = artifacts.Path(jc.Config.OutputDir, artifacts.CustomerFeaturesFile)
	}

	jc.Progress("aggregate", 10, "Aggregating customer features")
	out, err := steps.FeatureBuild(jc.Ctx, steps.FeatureBuildDeps{
		Log:   p.log,
		Sales: p.sales,
	}, steps.FeatureBuildInput{OutputPath: path})
	if err != nil {
		jc.Fail("aggregate", err)
		return err
	}
	jc.Data.Features = out.Features
	jc.Succeed(out)
	return nil
}
