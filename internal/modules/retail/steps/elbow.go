package steps

import (
	"context"
	"fmt"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ml"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const StageElbow = "elbow"

type ElbowDeps struct {
	Log *logger.Logger
}

type ElbowInput struct {
	Features  []types.CustomerFeatureVector
	Config    ml.KMeansConfig
	MaxK      int
	OutputDir string
}

type ElbowOutput struct {
	Points []ml.ElbowPoint `json:"points"`
}

// ElbowSweep reports inertia for k = 1..MaxK on the standardized features.
// It is a diagnostic only; the production k comes from configuration.
func ElbowSweep(ctx context.Context, deps ElbowDeps, in ElbowInput) (ElbowOutput, error) {
	out := ElbowOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("elbow: missing deps")
	}
	if len(in.Features) == 0 {
		return out, fmt.Errorf("elbow: %w: no customers", apperr.ErrInvalidArgument)
	}
	if in.MaxK <= 0 {
		in.MaxK = 9
	}
	X := make([][]float64, len(in.Features))
	for i, f := range in.Features {
		X[i] = f.Values()
	}
	scaler, err := ml.FitStandardScaler(X)
	if err != nil {
		return out, fmt.Errorf("elbow: %w", err)
	}
	Z, err := scaler.Transform(X)
	if err != nil {
		return out, fmt.Errorf("elbow: %w", err)
	}
	points, err := ml.Elbow(Z, in.MaxK, in.Config)
	if err != nil {
		return out, fmt.Errorf("elbow: %w", err)
	}
	out.Points = points
	for _, p := range points {
		deps.Log.Info("elbow inertia", "k", p.K, "inertia", p.Inertia)
	}
	if in.OutputDir != "" {
		if err := artifacts.WriteElbow(artifacts.Path(in.OutputDir, artifacts.ElbowFile), points); err != nil {
			return out, fmt.Errorf("elbow: %w", err)
		}
	}
	return out, nil
}
