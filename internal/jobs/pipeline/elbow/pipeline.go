package elbow

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
	jc.Progress("sweep", 10, "Sweeping cluster counts")
	out, err := steps.ElbowSweep(jc.Ctx, steps.ElbowDeps{Log: p.log}, steps.ElbowInput{
		Features:  features,
		Config:    jc.Config.KMeans,
		MaxK:      jc.Config.ElbowMaxK,
		OutputDir: jc.Config.OutputDir,
	})
	if err != nil {
		jc.Fail("sweep", err)
		return err
	}
	jc.Succeed(out)
	return nil
}
