package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	"github.com/yungbote/retail-intelligence/internal/data/repos"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ml"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const StageChurnScore = "churn_score"

type ChurnScoreDeps struct {
	Log *logger.Logger
	// Models is consulted only for artifacts not passed in the input.
	Models repos.ModelSnapshotRepo
}

type ChurnScoreInput struct {
	Features     []types.CustomerFeatureVector
	Churn        *artifacts.ChurnModel
	Segmentation *artifacts.SegmentationModel
	OutputDir    string
}

type ChurnScoreOutput struct {
	Customers         int                        `json:"customers"`
	PredictedChurners int                        `json:"predicted_churners"`
	ChurnModel        int                        `json:"churn_model_version"`
	SegmentModel      int                        `json:"segmentation_model_version"`
	Summary           []artifacts.SegmentSummary `json:"summary"`
	Scored            []types.ScoredCustomer     `json:"-"`
}

// ChurnScore assigns each customer a segment and a churn probability using
// the given artifacts, or the active snapshots when none are given.
func ChurnScore(ctx context.Context, deps ChurnScoreDeps, in ChurnScoreInput) (ChurnScoreOutput, error) {
	out := ChurnScoreOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("churn_score: missing deps")
	}
	if in.Churn == nil || in.Segmentation == nil {
		if deps.Models == nil {
			return out, fmt.Errorf("churn_score: %w: no models supplied", apperr.ErrNotFound)
		}
		dbc := dbctx.Context{Ctx: ctx}
		if in.Churn == nil {
			m := &artifacts.ChurnModel{}
			if err := loadActive(dbc, deps.Models, types.ModelKeyChurn, m); err != nil {
				return out, fmt.Errorf("churn_score: %w", err)
			}
			in.Churn = m
		}
		if in.Segmentation == nil {
			m := &artifacts.SegmentationModel{}
			if err := loadActive(dbc, deps.Models, types.ModelKeySegmentation, m); err != nil {
				return out, fmt.Errorf("churn_score: %w", err)
			}
			in.Segmentation = m
		}
	}
	out.ChurnModel = in.Churn.Version
	out.SegmentModel = in.Segmentation.Version

	out.Scored = make([]types.ScoredCustomer, 0, len(in.Features))
	for _, f := range in.Features {
		seg, err := AssignSegment(in.Segmentation, f)
		if err != nil {
			return out, fmt.Errorf("churn_score: customer %s: %w", f.CustomerID, err)
		}
		p, err := in.Churn.PredictProba(f.Values())
		if err != nil {
			return out, fmt.Errorf("churn_score: customer %s: %w", f.CustomerID, err)
		}
		row := types.ScoredCustomer{
			CustomerFeatureVector: f,
			ClusterIndex:          seg.ClusterIndex,
			SegmentName:           seg.SegmentName,
			ChurnProbability:      p,
			ChurnPredicted:        p > ml.DecisionThreshold,
		}
		if row.ChurnPredicted {
			out.PredictedChurners++
		}
		out.Scored = append(out.Scored, row)
	}
	out.Customers = len(out.Scored)
	out.Summary = SummarizeSegments(out.Scored)

	for _, s := range out.Summary {
		deps.Log.Info("segment profile",
			"segment", s.Segment,
			"customers", s.Customers,
			"mean_revenue", s.MeanRevenue,
			"mean_basket_size", s.MeanBasketSize,
			"mean_unique_products", s.MeanProductCount,
			"churn_rate", s.ChurnRate,
		)
	}
	if in.OutputDir != "" {
		if err := artifacts.WriteScored(artifacts.Path(in.OutputDir, artifacts.ScoredCustomersFile), out.Scored); err != nil {
			return out, fmt.Errorf("churn_score: %w", err)
		}
		if err := artifacts.WriteSegmentSummary(artifacts.Path(in.OutputDir, artifacts.SegmentSummaryFile), out.Summary); err != nil {
			return out, fmt.Errorf("churn_score: %w", err)
		}
	}
	return out, nil
}

// SummarizeSegments profiles scored customers per segment, sorted by name.
func SummarizeSegments(rows []types.ScoredCustomer) []artifacts.SegmentSummary {
	by := map[string]*artifacts.SegmentSummary{}
	for _, r := range rows {
		s, ok := by[r.SegmentName]
		if !ok {
			s = &artifacts.SegmentSummary{Segment: r.SegmentName}
			by[r.SegmentName] = s
		}
		s.Customers++
		s.MeanRevenue += r.TotalRevenue
		s.MeanBasketSize += r.AvgBasketSize
		s.MeanProductCount += float64(r.UniqueProducts)
		if r.ChurnPredicted {
			s.PredictedChurners++
		}
	}
	out := make([]artifacts.SegmentSummary, 0, len(by))
	for _, s := range by {
		n := float64(s.Customers)
		s.MeanRevenue /= n
		s.MeanBasketSize /= n
		s.MeanProductCount /= n
		s.ChurnRate = float64(s.PredictedChurners) / n
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

func loadActive(dbc dbctx.Context, models repos.ModelSnapshotRepo, key string, into any) error {
	row, err := models.GetActiveByKey(dbc, key)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("%w: no active %s model", apperr.ErrNotFound, key)
	}
	if err := json.Unmarshal(row.ParamsJSON, into); err != nil {
		return fmt.Errorf("decode %s model v%d: %w", key, row.Version, err)
	}
	return nil
}
