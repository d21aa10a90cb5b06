package artifact_publish

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	if p.publisher == nil {
		p.log.Info("artifact publication disabled; REDIS_ADDR not set")
		jc.Succeed(map[string]any{"published": false})
		return nil
	}

	items, err := Collect(jc.Data, jc.Config.OutputDir)
	if err != nil {
		jc.Fail("collect", err)
		return err
	}
	if len(items) == 0 {
		p.log.Warn("no artifacts to publish")
		jc.Succeed(map[string]any{"published": false})
		return nil
	}

	jc.Progress("publish", 50, "Publishing artifacts")
	a, err := p.publisher.Publish(jc.Ctx, jc.Run.RunID.String(), items)
	if err != nil {
		jc.Fail("publish", err)
		return err
	}
	jc.Succeed(map[string]any{"published": true, "keys": a.Keys})
	return nil
}

// Collect gathers whatever artifacts this run produced, falling back to the
// files of an earlier run in dir. Missing files are skipped.
func Collect(data *jobrt.Dataset, dir string) (map[string]any, error) {
	items := map[string]any{}
	if data == nil {
		data = &jobrt.Dataset{}
	}
	if data.Churn != nil {
		items["churn_model"] = data.Churn
	} else if m, err := artifacts.LoadChurnModel(artifacts.Path(dir, artifacts.ChurnModelFile)); err == nil {
		items["churn_model"] = m
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load churn model: %w", err)
	}
	if data.Segmentation != nil {
		items["segmentation_model"] = data.Segmentation
	} else if m, err := artifacts.LoadSegmentationModel(artifacts.Path(dir, artifacts.SegmentationModelFile)); err == nil {
		items["segmentation_model"] = m
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load segmentation model: %w", err)
	}
	if len(data.Summary) > 0 {
		items["segment_summary"] = data.Summary
	}
	return items, nil
}
