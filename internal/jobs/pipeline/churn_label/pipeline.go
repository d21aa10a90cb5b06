package churn_label

import (
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	records, err := jc.Records()
	if err != nil {
		jc.Fail("validate", err)
		return err
	}
	clustered, err := jc.Clustered()
	if err != nil {
		jc.Fail("validate", err)
		return err
	}

	jc.Progress("label", 10, "Labeling churn")
	out, err := steps.ChurnLabel(jc.Ctx, steps.ChurnLabelDeps{Log: p.log}, steps.ChurnLabelInput{
		Records:       records,
		Customers:     clustered,
		ThresholdDays: jc.Config.ThresholdDays,
		OutputDir:     jc.Config.OutputDir,
	})
	if err != nil {
		jc.Fail("label", err)
		return err
	}
	jc.Data.Labeled = out.Labeled
	jc.Succeed(out)
	return nil
}
