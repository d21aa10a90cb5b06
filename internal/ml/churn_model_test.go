package ml

import (
	"math"
	"strings"
	"testing"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

func imbalanced() ([][]float64, []int) {
	var X [][]float64
	var y []int
	for i := 0; i < 40; i++ {
		X = append(X, []float64{float64(i%7) + 5, float64(i%5) + 10})
		y = append(y, 0)
	}
	for i := 0; i < 10; i++ {
		X = append(X, []float64{float64(i%3) - 5, float64(i%4) - 10})
		y = append(y, 1)
	}
	return X, y
}

func TestStratifiedSplit(t *testing.T) {
	_, y := imbalanced()
	train, test, err := StratifiedSplit(y, 0.2, 42)
	if err != nil {
		t.Fatalf("StratifiedSplit: %v", err)
	}
	if len(train) != 40 || len(test) != 10 {
		t.Fatalf("sizes: train=%d test=%d", len(train), len(test))
	}
	pos := 0
	for _, i := range test {
		pos += y[i]
	}
	if pos != 2 {
		t.Fatalf("expected 2 positives in test, got %d", pos)
	}
	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		if seen[i] {
			t.Fatalf("index %d in both partitions", i)
		}
		seen[i] = true
	}
	again, _, _ := StratifiedSplit(y, 0.2, 42)
	for i := range train {
		if train[i] != again[i] {
			t.Fatalf("split not reproducible")
		}
	}
	if _, _, err := StratifiedSplit([]int{0, 0, 1}, 0.2, 1); !apperr.Is(err, apperr.ErrInsufficientSamples) {
		t.Fatalf("expected insufficient samples for singleton class, got %v", err)
	}
}

func TestSMOTEBalancesFromTrainingRowsOnly(t *testing.T) {
	X, y := imbalanced()
	train, _, err := StratifiedSplit(y, 0.2, 42)
	if err != nil {
		t.Fatalf("StratifiedSplit: %v", err)
	}
	Xtr, ytr := Take(X, y, train)
	res, err := SMOTE(Xtr, ytr, SMOTEConfig{KNeighbors: 5, Seed: 42})
	if err != nil {
		t.Fatalf("SMOTE: %v", err)
	}
	counts := map[int]int{}
	for _, l := range res.Y {
		counts[l]++
	}
	if counts[0] != 32 || counts[1] != 32 {
		t.Fatalf("not balanced: %v", counts)
	}
	if res.SyntheticCount() != 24 {
		t.Fatalf("expected 24 synthetic rows, got %d", res.SyntheticCount())
	}
	for i, o := range res.Origins {
		if !o.Synthetic {
			continue
		}
		if o.Base < 0 || o.Base >= len(Xtr) || o.Neighbor < 0 || o.Neighbor >= len(Xtr) {
			t.Fatalf("synthetic row %d has parent outside the training rows: %+v", i, o)
		}
		if ytr[o.Base] != 1 || ytr[o.Neighbor] != 1 {
			t.Fatalf("synthetic row %d has a majority parent: %+v", i, o)
		}
		a, b, s := Xtr[o.Base], Xtr[o.Neighbor], res.X[i]
		for j := range s {
			lo, hi := math.Min(a[j], b[j]), math.Max(a[j], b[j])
			if s[j] < lo-1e-12 || s[j] > hi+1e-12 {
				t.Fatalf("synthetic row %d off the parent segment", i)
			}
		}
	}
}

func TestSMOTEErrors(t *testing.T) {
	if _, err := SMOTE([][]float64{{1}, {2}}, []int{0, 0}, SMOTEConfig{}); !apperr.Is(err, apperr.ErrSingleClass) {
		t.Fatalf("expected single class, got %v", err)
	}
	X := [][]float64{{1}, {2}, {3}, {9}}
	if _, err := SMOTE(X, []int{0, 0, 0, 1}, SMOTEConfig{}); !apperr.Is(err, apperr.ErrInsufficientSamples) {
		t.Fatalf("expected insufficient samples, got %v", err)
	}
	res, err := SMOTE([][]float64{{1}, {2}}, []int{0, 1}, SMOTEConfig{})
	if err != nil || res.SyntheticCount() != 0 {
		t.Fatalf("balanced input should pass through: %v %+v", err, res)
	}
}

func TestLogisticRegressionSeparable(t *testing.T) {
	X, y := imbalanced()
	m := NewLogisticRegression(1.0, 100)
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !m.Converged {
		t.Fatalf("expected convergence within %d iterations", m.MaxIter)
	}
	pred, err := m.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := range y {
		if pred[i] != y[i] {
			t.Fatalf("row %d mispredicted", i)
		}
	}
	p, _ := m.PredictProba([]float64{-6, -12})
	if p < 0.9 {
		t.Fatalf("expected confident churn probability, got %v", p)
	}
	if _, err := m.PredictProba([]float64{1}); !apperr.Is(err, apperr.ErrFeatureMismatch) {
		t.Fatalf("expected feature mismatch, got %v", err)
	}
}

func TestLogisticRegressionSingleClass(t *testing.T) {
	m := NewLogisticRegression(1, 100)
	err := m.Fit([][]float64{{1}, {2}}, []int{1, 1})
	if !apperr.Is(err, apperr.ErrSingleClass) {
		t.Fatalf("expected single class, got %v", err)
	}
}

func TestPredictThresholdIsExclusive(t *testing.T) {
	m := &LogisticRegression{Coef: []float64{0, 0}, Intercept: 0}
	p, err := m.PredictProba([]float64{3, -1})
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	if p != DecisionThreshold {
		t.Fatalf("p=%v want %v", p, DecisionThreshold)
	}
	got, err := m.Predict([][]float64{{3, -1}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got[0] != 0 {
		t.Fatalf("probability at the threshold must be the negative class")
	}
	m.Intercept = 1e-9
	if got, _ := m.Predict([][]float64{{3, -1}}); got[0] != 1 {
		t.Fatalf("probability above the threshold must be the positive class")
	}
}

func TestClassificationReport(t *testing.T) {
	yTrue := []int{0, 0, 0, 1, 1}
	yPred := []int{0, 0, 1, 1, 0}
	r, err := NewClassificationReport(yTrue, yPred, map[int]string{0: "retained", 1: "churned"})
	if err != nil {
		t.Fatalf("NewClassificationReport: %v", err)
	}
	if math.Abs(r.Accuracy-0.6) > 1e-12 {
		t.Fatalf("accuracy: %v", r.Accuracy)
	}
	c0, c1 := r.Classes[0], r.Classes[1]
	if c0.Support != 3 || c1.Support != 2 {
		t.Fatalf("support: %+v %+v", c0, c1)
	}
	if math.Abs(c0.Precision-2.0/3.0) > 1e-12 || math.Abs(c1.Recall-0.5) > 1e-12 {
		t.Fatalf("class metrics: %+v %+v", c0, c1)
	}
	wantMacroP := (2.0/3.0 + 0.5) / 2
	if math.Abs(r.MacroAvg.Precision-wantMacroP) > 1e-12 {
		t.Fatalf("macro precision: %v", r.MacroAvg.Precision)
	}
	if !strings.Contains(r.String(), "churned") || !strings.Contains(r.String(), "weighted avg") {
		t.Fatalf("report text missing rows:\n%s", r)
	}

	zero, err := NewClassificationReport([]int{0, 1}, []int{0, 0}, nil)
	if err != nil {
		t.Fatalf("NewClassificationReport: %v", err)
	}
	if zero.Classes[1].Precision != 0 || zero.Classes[1].F1 != 0 {
		t.Fatalf("zero division should report 0: %+v", zero.Classes[1])
	}
}
