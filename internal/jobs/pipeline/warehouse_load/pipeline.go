package warehouse_load

import (
	"fmt"

	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	if p.db == nil {
		err := fmt.Errorf("warehouse_load: no warehouse database configured")
		jc.Fail("validate", err)
		return err
	}

	jc.Progress("read", 2, "Reading transactions")
	records, err := jc.Records()
	if err != nil {
		jc.Fail("read", err)
		return err
	}

	jc.Progress("load", 10, "Loading warehouse")
	out, err := steps.WarehouseLoad(jc.Ctx, steps.WarehouseLoadDeps{
		DB:        p.db,
		Log:       p.log,
		Warehouse: p.warehouse,
	}, steps.WarehouseLoadInput{
		Records:     records,
		BatchSize:   jc.Config.BatchSize,
		MaxAttempts: jc.Config.MaxAttempts,
		Categories:  jc.Config.Categories,
	})
	if err != nil {
		jc.Fail("load", err)
		return err
	}
	jc.Succeed(out)
	return nil
}
