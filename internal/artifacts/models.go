package artifacts

import (
	"fmt"
	"time"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ml"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// ClusterProfile is the mean feature vector and size of one cluster, in
// original (unscaled) units.
type ClusterProfile struct {
	ClusterIndex int       `json:"cluster_index"`
	Segment      string    `json:"segment"`
	Members      int       `json:"members"`
	Means        []float64 `json:"means"`
}

// SegmentationModel is everything needed to place a new customer into a
// trained segment.
type SegmentationModel struct {
	Version      int                `json:"version"`
	TrainedAt    time.Time          `json:"trained_at"`
	FeatureNames []string           `json:"feature_names"`
	Config       ml.KMeansConfig    `json:"config"`
	Scaler       *ml.StandardScaler `json:"scaler"`
	Centroids    [][]float64        `json:"centroids"`
	Inertia      float64            `json:"inertia"`
	Mapping      SegmentMap         `json:"mapping"`
	Profiles     []ClusterProfile   `json:"profiles"`
	Elbow        []ml.ElbowPoint    `json:"elbow,omitempty"`
}

// Assign scales features with the paired scaler and returns the nearest
// cluster and its segment name.
func (m *SegmentationModel) Assign(features []float64) (int, string, error) {
	if err := checkFeatures(m.FeatureNames, features); err != nil {
		return 0, "", err
	}
	z, err := m.Scaler.TransformRow(features)
	if err != nil {
		return 0, "", err
	}
	idx := ml.Assign(m.Centroids, z)
	return idx, m.Mapping.Name(idx), nil
}

// ChurnModel pairs the classifier with the scaler it was trained behind; the
// two are never persisted or loaded separately.
type ChurnModel struct {
	Version       int                      `json:"version"`
	TrainedAt     time.Time                `json:"trained_at"`
	FeatureNames  []string                 `json:"feature_names"`
	Scaler        *ml.StandardScaler       `json:"scaler"`
	Classifier    *ml.LogisticRegression   `json:"classifier"`
	Report        *ml.ClassificationReport `json:"report"`
	ThresholdDays int                      `json:"threshold_days"`
	TestSize      float64                  `json:"test_size"`
	Seed          uint64                   `json:"seed"`
	TrainRows     int                      `json:"train_rows"`
	TestRows      int                      `json:"test_rows"`
	SyntheticRows int                      `json:"synthetic_rows"`
	DroppedRows   int                      `json:"dropped_unlabeled_rows"`
}

// PredictProba returns the churn probability for one raw feature vector.
func (m *ChurnModel) PredictProba(features []float64) (float64, error) {
	if err := checkFeatures(m.FeatureNames, features); err != nil {
		return 0, err
	}
	if m.Scaler == nil || m.Classifier == nil {
		return 0, fmt.Errorf("%w: churn model is incomplete", apperr.ErrInvalidArgument)
	}
	z, err := m.Scaler.TransformRow(features)
	if err != nil {
		return 0, err
	}
	return m.Classifier.PredictProba(z)
}

// Predict is true when PredictProba exceeds ml.DecisionThreshold.
func (m *ChurnModel) Predict(features []float64) (bool, error) {
	p, err := m.PredictProba(features)
	if err != nil {
		return false, err
	}
	return p > ml.DecisionThreshold, nil
}

// checkFeatures enforces the feature contract: same columns, same order.
func checkFeatures(names []string, features []float64) error {
	if len(names) != len(types.FeatureNames) {
		return fmt.Errorf("%w: model trained on %v", apperr.ErrFeatureMismatch, names)
	}
	for i, n := range names {
		if types.FeatureNames[i] != n {
			return fmt.Errorf("%w: model trained on %v", apperr.ErrFeatureMismatch, names)
		}
	}
	if len(features) != len(names) {
		return fmt.Errorf("%w: got %d features, want %d", apperr.ErrFeatureMismatch, len(features), len(names))
	}
	return nil
}

func LoadChurnModel(path string) (*ChurnModel, error) {
	var m ChurnModel
	if err := ReadJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func LoadSegmentationModel(path string) (*SegmentationModel, error) {
	var m SegmentationModel
	if err := ReadJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
