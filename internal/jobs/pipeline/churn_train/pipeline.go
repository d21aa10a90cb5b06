package churn_train

import (
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	labeled, err := jc.Labeled()
	if err != nil {
		jc.Fail("validate", err)
		return err
	}

	jc.Progress("train", 10, "Training churn classifier")
	out, err := steps.ChurnTrain(jc.Ctx, steps.ChurnTrainDeps{
		DB:     p.db,
		Log:    p.log,
		Models: p.models,
	}, steps.ChurnTrainInput{
		Labeled:       labeled,
		TestSize:      jc.Config.TestSize,
		Seed:          jc.Config.ChurnSeed,
		SMOTE:         jc.Config.SMOTE,
		C:             jc.Config.LogRegC,
		MaxIter:       jc.Config.LogRegMaxIter,
		ThresholdDays: jc.Config.ThresholdDays,
		OutputDir:     jc.Config.OutputDir,
		RunID:         jc.RunIDPtr(),
	})
	if err != nil {
		jc.Fail("train", err)
		return err
	}
	jc.Data.Churn = out.Model
	jc.Succeed(out)
	return nil
}
