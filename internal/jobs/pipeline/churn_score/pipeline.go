package churn_score

import (
	"github.com/yungbote/retail-intelligence/internal/artifacts"
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

	// Without a snapshot store the models come from the output directory.
	if p.models == nil {
		if err := p.loadModelFiles(jc); err != nil {
			jc.Fail("validate", err)
			return err
		}
	}

	jc.Progress("score", 10, "Scoring customers")
	out, err := steps.ChurnScore(jc.Ctx, steps.ChurnScoreDeps{
		Log:    p.log,
		Models: p.models,
	}, steps.ChurnScoreInput{
		Features:     features,
		Churn:        jc.Data.Churn,
		Segmentation: jc.Data.Segmentation,
		OutputDir:    jc.Config.OutputDir,
	})
	if err != nil {
		jc.Fail("score", err)
		return err
	}
	jc.Data.Summary = out.Summary
	jc.Succeed(out)
	return nil
}

func (p *Pipeline) loadModelFiles(jc *jobrt.Context) error {
	if jc.Data.Churn == nil {
		m, err := artifacts.LoadChurnModel(artifacts.Path(jc.Config.OutputDir, artifacts.ChurnModelFile))
		if err != nil {
			return err
		}
		jc.Data.Churn = m
	}
	if jc.Data.Segmentation == nil {
		m, err := artifacts.LoadSegmentationModel(artifacts.Path(jc.Config.OutputDir, artifacts.SegmentationModelFile))
		if err != nil {
			return err
		}
		jc.Data.Segmentation = m
	}
	return nil
}
