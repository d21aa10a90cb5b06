package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	"github.com/yungbote/retail-intelligence/internal/data/repos"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ml"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const StageSegmentBuild = "segment_build"

// SegmentBuildDeps: DB, Customers and Models are optional. Without them the
// stage only produces files, which is how it runs from a features CSV.
type SegmentBuildDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Customers repos.CustomerRepo
	Models    repos.ModelSnapshotRepo
}

type SegmentBuildInput struct {
	Features  []types.CustomerFeatureVector
	Config    ml.KMeansConfig
	ElbowMaxK int
	Mapping   artifacts.SegmentMap
	OutputDir string
	RunID     *uuid.UUID
	Now       time.Time
}

type SegmentBuildOutput struct {
	Customers       int                        `json:"customers"`
	K               int                        `json:"k"`
	Inertia         float64                    `json:"inertia"`
	Profiles        []artifacts.ClusterProfile `json:"profiles"`
	Elbow           []ml.ElbowPoint            `json:"elbow,omitempty"`
	SegmentsUpdated int64                      `json:"segments_updated"`
	ModelVersion    int                        `json:"model_version"`

	Clustered []types.ClusteredCustomer    `json:"-"`
	Model     *artifacts.SegmentationModel `json:"-"`
}

// SegmentBuild standardizes the features over the whole population, clusters
// them with a fixed k and seed, and names each cluster through the mapping.
// Output rows keep the input order.
func SegmentBuild(ctx context.Context, deps SegmentBuildDeps, in SegmentBuildInput) (SegmentBuildOutput, error) {
	out := SegmentBuildOutput{K: in.Config.K}
	if deps.Log == nil {
		return out, fmt.Errorf("segment_build: missing deps")
	}
	if len(in.Features) == 0 {
		return out, fmt.Errorf("segment_build: %w: no customers to cluster", apperr.ErrInvalidArgument)
	}
	if in.Mapping.Segments == nil {
		in.Mapping = artifacts.DefaultSegmentMap()
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	X := make([][]float64, len(in.Features))
	for i, f := range in.Features {
		X[i] = f.Values()
	}
	scaler, err := ml.FitStandardScaler(X)
	if err != nil {
		return out, fmt.Errorf("segment_build: %w", err)
	}
	Z, err := scaler.Transform(X)
	if err != nil {
		return out, fmt.Errorf("segment_build: %w", err)
	}
	res, err := ml.KMeans(Z, in.Config)
	if err != nil {
		return out, fmt.Errorf("segment_build: %w", err)
	}
	out.Inertia = res.Inertia

	// The elbow sweep fits its own models and never feeds back into k.
	if in.ElbowMaxK > 0 {
		elbow, err := ml.Elbow(Z, in.ElbowMaxK, in.Config)
		if err != nil {
			return out, fmt.Errorf("segment_build: elbow: %w", err)
		}
		out.Elbow = elbow
		for _, p := range elbow {
			deps.Log.Info("elbow inertia", "k", p.K, "inertia", p.Inertia)
		}
	}

	if missing := in.Mapping.Missing(in.Config.K); len(missing) > 0 {
		deps.Log.Warn("segment map has no name for some clusters", "clusters", missing, "mapping_version", in.Mapping.Version)
	}

	out.Clustered = make([]types.ClusteredCustomer, len(in.Features))
	for i, f := range in.Features {
		c := res.Labels[i]
		out.Clustered[i] = types.ClusteredCustomer{CustomerFeatureVector: f, ClusterIndex: c, SegmentName: in.Mapping.Name(c)}
	}
	out.Customers = len(out.Clustered)
	out.Profiles = clusterProfiles(out.Clustered, in.Config.K, in.Mapping)
	for _, p := range out.Profiles {
		deps.Log.Info("cluster summary",
			"cluster", p.ClusterIndex,
			"segment", p.Segment,
			"members", p.Members,
			"mean_total_revenue", p.Means[0],
			"mean_total_invoices", p.Means[1],
			"mean_avg_basket_size", p.Means[2],
			"mean_unique_products", p.Means[3],
		)
	}

	model := &artifacts.SegmentationModel{
		TrainedAt:    in.Now,
		FeatureNames: append([]string(nil), types.FeatureNames...),
		Config:       in.Config,
		Scaler:       scaler,
		Centroids:    res.Centroids,
		Inertia:      res.Inertia,
		Mapping:      in.Mapping,
		Profiles:     out.Profiles,
		Elbow:        out.Elbow,
	}
	out.Model = model

	if deps.DB != nil && deps.Customers != nil && deps.Models != nil {
		bySegment := make(map[string]string, len(out.Clustered))
		for _, c := range out.Clustered {
			bySegment[c.CustomerID] = c.SegmentName
		}
		err := inTx(ctx, deps.DB, deps.Log, "segment_update", 0, func(dbc dbctx.Context) error {
			n, err := deps.Customers.UpdateSegments(dbc, bySegment)
			if err != nil {
				return err
			}
			out.SegmentsUpdated = n
			_, err = saveSnapshot(dbc, deps.Models, types.ModelKeySegmentation, in.RunID, func(version int) (any, any) {
				model.Version = version
				return model, map[string]any{"inertia": res.Inertia, "iterations": res.Iterations, "profiles": out.Profiles}
			})
			return err
		})
		if err != nil {
			return out, fmt.Errorf("segment_build: persist: %w", err)
		}
		out.ModelVersion = model.Version
	}

	if in.OutputDir != "" {
		if err := artifacts.WriteClustered(artifacts.Path(in.OutputDir, artifacts.ClusteredCustomersFile), out.Clustered); err != nil {
			return out, fmt.Errorf("segment_build: %w", err)
		}
		if len(out.Elbow) > 0 {
			if err := artifacts.WriteElbow(artifacts.Path(in.OutputDir, artifacts.ElbowFile), out.Elbow); err != nil {
				return out, fmt.Errorf("segment_build: %w", err)
			}
		}
		if err := artifacts.WriteJSON(artifacts.Path(in.OutputDir, artifacts.SegmentationModelFile), model); err != nil {
			return out, fmt.Errorf("segment_build: %w", err)
		}
	}

	deps.Log.Info("segmentation complete", "customers", out.Customers, "k", out.K, "inertia", out.Inertia, "model_version", out.ModelVersion)
	return out, nil
}

func clusterProfiles(rows []types.ClusteredCustomer, k int, mapping artifacts.SegmentMap) []artifacts.ClusterProfile {
	width := len(types.FeatureNames)
	out := make([]artifacts.ClusterProfile, k)
	for c := range out {
		out[c] = artifacts.ClusterProfile{ClusterIndex: c, Segment: mapping.Name(c), Means: make([]float64, width)}
	}
	for _, r := range rows {
		p := &out[r.ClusterIndex]
		p.Members++
		for j, v := range r.Values() {
			p.Means[j] += v
		}
	}
	for c := range out {
		if out[c].Members == 0 {
			continue
		}
		for j := range out[c].Means {
			out[c].Means[j] /= float64(out[c].Members)
		}
	}
	return out
}

// AssignSegment places one customer into a trained segmentation.
func AssignSegment(model *artifacts.SegmentationModel, f types.CustomerFeatureVector) (types.SegmentAssignment, error) {
	if model == nil {
		return types.SegmentAssignment{}, fmt.Errorf("%w: no segmentation model", apperr.ErrInvalidArgument)
	}
	idx, name, err := model.Assign(f.Values())
	if err != nil {
		return types.SegmentAssignment{}, err
	}
	return types.SegmentAssignment{CustomerID: f.CustomerID, ClusterIndex: idx, SegmentName: name}, nil
}
