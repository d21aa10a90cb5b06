package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ingestion/source"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const StageChurnLabel = "churn_label"

type ChurnLabelDeps struct {
	Log *logger.Logger
}

type ChurnLabelInput struct {
	// Records is the raw invoice history; rows without a customer still
	// count toward the reference date.
	Records       []source.RawRecord
	Customers     []types.ClusteredCustomer
	ThresholdDays int
	OutputDir     string
}

// ChurnDistribution is the class balance of the labeled population.
type ChurnDistribution struct {
	Labeled      int     `json:"labeled"`
	Unlabeled    int     `json:"unlabeled"`
	Churned      int     `json:"churned"`
	Retained     int     `json:"retained"`
	ChurnedPct   float64 `json:"churned_pct"`
	RetainedPct  float64 `json:"retained_pct"`
	ReferenceDay string  `json:"reference_date"`
}

type ChurnLabelOutput struct {
	Distribution ChurnDistribution       `json:"distribution"`
	Labeled      []types.LabeledCustomer `json:"-"`
}

// ChurnLabel marks a customer churned when more than ThresholdDays whole days
// separate their last purchase from the latest invoice in the dataset.
func ChurnLabel(ctx context.Context, deps ChurnLabelDeps, in ChurnLabelInput) (ChurnLabelOutput, error) {
	out := ChurnLabelOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("churn_label: missing deps")
	}
	if in.ThresholdDays <= 0 {
		in.ThresholdDays = types.DefaultChurnThresholdDays
	}
	labeled, dist, err := LabelChurn(in.Records, in.Customers, in.ThresholdDays)
	if err != nil {
		return out, fmt.Errorf("churn_label: %w", err)
	}
	out.Labeled, out.Distribution = labeled, dist

	if dist.Unlabeled > 0 {
		deps.Log.Warn("customers missing from invoice history",
			"unlabeled", dist.Unlabeled,
			"error", apperr.ErrUnlabeledCustomers.Error(),
		)
	}
	deps.Log.Info("churn distribution",
		"reference_date", dist.ReferenceDay,
		"threshold_days", in.ThresholdDays,
		"churned", dist.Churned,
		"retained", dist.Retained,
		"churned_pct", dist.ChurnedPct,
		"retained_pct", dist.RetainedPct,
	)

	if in.OutputDir != "" {
		if err := artifacts.WriteChurnLabeled(artifacts.Path(in.OutputDir, artifacts.ChurnLabeledFile), labeled); err != nil {
			return out, fmt.Errorf("churn_label: %w", err)
		}
	}
	return out, nil
}

// LabelChurn left-joins last-purchase dates onto customers. Customers absent
// from the records keep a nil label.
func LabelChurn(records []source.RawRecord, customers []types.ClusteredCustomer, thresholdDays int) ([]types.LabeledCustomer, ChurnDistribution, error) {
	dist := ChurnDistribution{}
	now, ok := source.MaxInvoiceDate(records)
	if !ok {
		return nil, dist, fmt.Errorf("%w: no invoice dates to label against", apperr.ErrInvalidArgument)
	}
	dist.ReferenceDay = now.Format("2006-01-02 15:04:05")

	last := map[string]time.Time{}
	for _, r := range records {
		if r.CustomerID == "" || r.InvoiceDate.IsZero() {
			continue
		}
		if t, ok := last[r.CustomerID]; !ok || r.InvoiceDate.After(t) {
			last[r.CustomerID] = r.InvoiceDate
		}
	}

	out := make([]types.LabeledCustomer, len(customers))
	for i, c := range customers {
		row := types.LabeledCustomer{ClusteredCustomer: c, Churn: types.ChurnLabel{CustomerID: c.CustomerID}}
		if t, ok := last[c.CustomerID]; ok {
			days := int(now.Sub(t) / (24 * time.Hour))
			churned := days > thresholdDays
			row.Churn.LastPurchaseDate = ptr(t)
			row.Churn.DaysSinceLastPurchase = ptr(days)
			row.Churn.IsChurned = ptr(churned)
			dist.Labeled++
			if churned {
				dist.Churned++
			} else {
				dist.Retained++
			}
		} else {
			dist.Unlabeled++
		}
		out[i] = row
	}
	if dist.Labeled > 0 {
		dist.ChurnedPct = 100 * float64(dist.Churned) / float64(dist.Labeled)
		dist.RetainedPct = 100 * float64(dist.Retained) / float64(dist.Labeled)
	}
	return out, dist, nil
}
