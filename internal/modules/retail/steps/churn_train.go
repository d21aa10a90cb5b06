package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	"github.com/yungbote/retail-intelligence/internal/data/repos"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ml"
	"github.com/yungbote/retail-intelligence/internal/observability"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const StageChurnTrain = "churn_train"

var churnClassNames = map[int]string{0: "retained", 1: "churned"}

type ChurnTrainDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Models repos.ModelSnapshotRepo
}

type ChurnTrainInput struct {
	Labeled       []types.LabeledCustomer
	TestSize      float64
	Seed          uint64
	SMOTE         ml.SMOTEConfig
	C             float64
	MaxIter       int
	ThresholdDays int
	OutputDir     string
	RunID         *uuid.UUID
	Now           time.Time
}

type ChurnTrainOutput struct {
	TrainRows     int                      `json:"train_rows"`
	TestRows      int                      `json:"test_rows"`
	SyntheticRows int                      `json:"synthetic_rows"`
	DroppedRows   int                      `json:"dropped_unlabeled_rows"`
	ModelVersion  int                      `json:"model_version"`
	Report        *ml.ClassificationReport `json:"report"`
	Model         *artifacts.ChurnModel    `json:"-"`
}

// ChurnTrain fits the churn classifier. The held-out split happens first;
// oversampling and the scaler only ever see training rows.
func ChurnTrain(ctx context.Context, deps ChurnTrainDeps, in ChurnTrainInput) (ChurnTrainOutput, error) {
	out := ChurnTrainOutput{}
	if deps.Log == nil {
		return out, fmt.Errorf("churn_train: missing deps")
	}
	if in.TestSize == 0 {
		in.TestSize = 0.2
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	X, y, dropped := labeledMatrix(in.Labeled)
	out.DroppedRows = dropped
	if dropped > 0 {
		deps.Log.Warn("dropping customers without churn label", "rows", dropped)
	}
	if len(y) == 0 {
		return out, fmt.Errorf("churn_train: %w: no labeled customers", apperr.ErrInsufficientSamples)
	}
	var pos int
	for _, v := range y {
		pos += v
	}
	if pos == 0 || pos == len(y) {
		return out, fmt.Errorf("churn_train: %w: %d labeled customers, %d churned", apperr.ErrSingleClass, len(y), pos)
	}

	trainIdx, testIdx, err := ml.StratifiedSplit(y, in.TestSize, in.Seed)
	if err != nil {
		return out, fmt.Errorf("churn_train: split: %w", err)
	}
	Xtr, ytr := ml.Take(X, y, trainIdx)
	Xte, yte := ml.Take(X, y, testIdx)

	smoteCfg := in.SMOTE
	if smoteCfg.Seed == 0 {
		smoteCfg.Seed = in.Seed
	}
	balanced, err := ml.SMOTE(Xtr, ytr, smoteCfg)
	if err != nil {
		return out, fmt.Errorf("churn_train: oversample: %w", err)
	}
	out.TrainRows = len(balanced.Y)
	out.TestRows = len(yte)
	out.SyntheticRows = balanced.SyntheticCount()

	scaler, err := ml.FitStandardScaler(balanced.X)
	if err != nil {
		return out, fmt.Errorf("churn_train: %w", err)
	}
	Ztr, err := scaler.Transform(balanced.X)
	if err != nil {
		return out, fmt.Errorf("churn_train: %w", err)
	}
	Zte, err := scaler.Transform(Xte)
	if err != nil {
		return out, fmt.Errorf("churn_train: %w", err)
	}

	clf := ml.NewLogisticRegression(in.C, in.MaxIter)
	if err := clf.Fit(Ztr, balanced.Y); err != nil {
		return out, fmt.Errorf("churn_train: fit: %w", err)
	}
	if !clf.Converged {
		deps.Log.Warn("logistic regression did not converge", "iterations", clf.Iterations)
	}
	pred, err := clf.Predict(Zte)
	if err != nil {
		return out, fmt.Errorf("churn_train: %w", err)
	}
	report, err := ml.NewClassificationReport(yte, pred, churnClassNames)
	if err != nil {
		return out, fmt.Errorf("churn_train: %w", err)
	}
	out.Report = report

	model := &artifacts.ChurnModel{
		TrainedAt:     in.Now,
		FeatureNames:  append([]string(nil), types.FeatureNames...),
		Scaler:        scaler,
		Classifier:    clf,
		Report:        report,
		ThresholdDays: in.ThresholdDays,
		TestSize:      in.TestSize,
		Seed:          in.Seed,
		TrainRows:     out.TrainRows,
		TestRows:      out.TestRows,
		SyntheticRows: out.SyntheticRows,
		DroppedRows:   out.DroppedRows,
	}
	out.Model = model

	if deps.DB != nil && deps.Models != nil {
		err := inTx(ctx, deps.DB, deps.Log, "churn_snapshot", 0, func(dbc dbctx.Context) error {
			_, err := saveSnapshot(dbc, deps.Models, types.ModelKeyChurn, in.RunID, func(version int) (any, any) {
				model.Version = version
				return model, report
			})
			return err
		})
		if err != nil {
			return out, fmt.Errorf("churn_train: persist: %w", err)
		}
		out.ModelVersion = model.Version
	}
	if in.OutputDir != "" {
		if err := artifacts.WriteJSON(artifacts.Path(in.OutputDir, artifacts.ChurnModelFile), model); err != nil {
			return out, fmt.Errorf("churn_train: %w", err)
		}
	}

	observability.Current().SetModel(types.ModelKeyChurn, model.Version, map[string]float64{
		"accuracy":    report.Accuracy,
		"macro_f1":    report.MacroAvg.F1,
		"weighted_f1": report.WeightedAvg.F1,
	})
	deps.Log.Info("churn classifier trained",
		"train_rows", out.TrainRows,
		"synthetic_rows", out.SyntheticRows,
		"test_rows", out.TestRows,
		"accuracy", report.Accuracy,
		"model_version", out.ModelVersion,
	)
	for _, line := range strings.Split(strings.TrimRight(report.String(), "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			deps.Log.Info("classification report", "row", line)
		}
	}
	return out, nil
}

func labeledMatrix(rows []types.LabeledCustomer) ([][]float64, []int, int) {
	X := make([][]float64, 0, len(rows))
	y := make([]int, 0, len(rows))
	dropped := 0
	for _, r := range rows {
		if !r.Churn.Labeled() {
			dropped++
			continue
		}
		X = append(X, r.Values())
		if *r.Churn.IsChurned {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return X, y, dropped
}
