package steps

import (
	"context"
	"fmt"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	"github.com/yungbote/retail-intelligence/internal/data/repos"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const StageFeatureBuild = "feature_build"

type FeatureBuildDeps struct {
	Log   *logger.Logger
	Sales repos.SalesRepo
}

type FeatureBuildInput struct {
	// OutputPath receives the feature table; empty skips the file.
	OutputPath string
}

type FeatureBuildOutput struct {
	Customers int                           `json:"customers"`
	Features  []types.CustomerFeatureVector `json:"-"`
	Path      string                        `json:"path,omitempty"`
}

// FeatureBuild recomputes one feature vector per customer from fact_sales,
// ordered by customer id.
func FeatureBuild(ctx context.Context, deps FeatureBuildDeps, in FeatureBuildInput) (FeatureBuildOutput, error) {
	out := FeatureBuildOutput{}
	if deps.Log == nil || deps.Sales == nil {
		return out, fmt.Errorf("feature_build: missing deps")
	}

	aggs, err := deps.Sales.AggregateByCustomer(dbctx.Context{Ctx: ctx})
	if err != nil {
		return out, fmt.Errorf("feature_build: %w", err)
	}
	features, err := FeaturesFromAggregates(aggs)
	if err != nil {
		return out, fmt.Errorf("feature_build: %w", err)
	}
	out.Features = features
	out.Customers = len(features)

	if in.OutputPath != "" {
		if err := artifacts.WriteFeatures(in.OutputPath, features); err != nil {
			return out, fmt.Errorf("feature_build: write features: %w", err)
		}
		out.Path = in.OutputPath
	}
	deps.Log.Info("customer features built", "customers", out.Customers, "path", out.Path)
	return out, nil
}

// FeaturesFromAggregates derives the feature vectors. avg_basket_size is
// total quantity over distinct invoices, so a customer with no invoices is an
// error rather than a division by zero.
func FeaturesFromAggregates(aggs []repos.CustomerAggregate) ([]types.CustomerFeatureVector, error) {
	out := make([]types.CustomerFeatureVector, 0, len(aggs))
	for _, a := range aggs {
		if a.TotalInvoices <= 0 {
			return nil, fmt.Errorf("%w: customer %s", apperr.ErrZeroInvoices, a.CustomerID)
		}
		revenue, _ := a.TotalRevenue.Float64()
		out = append(out, types.CustomerFeatureVector{
			CustomerID:     a.CustomerID,
			TotalRevenue:   revenue,
			TotalInvoices:  int(a.TotalInvoices),
			AvgBasketSize:  float64(a.TotalQuantity) / float64(a.TotalInvoices),
			UniqueProducts: int(a.UniqueProducts),
		})
	}
	return out, nil
}
