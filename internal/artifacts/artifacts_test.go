package artifacts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ml"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

func TestFeaturesFileIsStable(t *testing.T) {
	dir := t.TempDir()
	rows := []types.CustomerFeatureVector{
		{CustomerID: "12346", TotalRevenue: 77183.6, TotalInvoices: 1, AvgBasketSize: 74215, UniqueProducts: 1},
		{CustomerID: "12347", TotalRevenue: 4310, TotalInvoices: 7, AvgBasketSize: 351.14285714285717, UniqueProducts: 103},
	}
	a, b := Path(dir, "a.csv"), Path(dir, "b.csv")
	if err := WriteFeatures(a, rows); err != nil {
		t.Fatalf("WriteFeatures: %v", err)
	}
	if err := WriteFeatures(b, rows); err != nil {
		t.Fatalf("WriteFeatures: %v", err)
	}
	ab, _ := os.ReadFile(a)
	bb, _ := os.ReadFile(b)
	if !bytes.Equal(ab, bb) {
		t.Fatalf("identical input produced different files")
	}
	if !bytes.HasPrefix(ab, []byte("customer_id,total_revenue,total_invoices,avg_basket_size,unique_products\n12346,77183.6,1,74215,1\n")) {
		t.Fatalf("unexpected file contents:\n%s", ab)
	}

	back, err := ReadFeatures(a)
	if err != nil {
		t.Fatalf("ReadFeatures: %v", err)
	}
	if len(back) != 2 || back[1].AvgBasketSize != rows[1].AvgBasketSize {
		t.Fatalf("features did not survive a write/read: %+v", back)
	}
}

func TestReadFeaturesRequiresColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("customer_id,total_revenue\nA,1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadFeatures(path); !apperr.Is(err, apperr.ErrFeatureMismatch) {
		t.Fatalf("expected feature mismatch, got %v", err)
	}
}

func TestLoadSegmentMap(t *testing.T) {
	def, err := LoadSegmentMap("")
	if err != nil {
		t.Fatalf("LoadSegmentMap default: %v", err)
	}
	if def.Name(1) != "Top Spenders" || def.Name(3) != "Bulk One-Timers" || def.Name(7) != types.UnmappedSegment {
		t.Fatalf("unexpected default mapping: %+v", def)
	}

	path := filepath.Join(t.TempDir(), "segments.yaml")
	doc := "version: \"2011-refit\"\nsegments:\n  0: Loyal\n  1: Lapsed\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadSegmentMap(path)
	if err != nil {
		t.Fatalf("LoadSegmentMap: %v", err)
	}
	if m.Version != "2011-refit" || m.Name(0) != "Loyal" {
		t.Fatalf("unexpected mapping: %+v", m)
	}
	if missing := m.Missing(4); len(missing) != 2 || missing[0] != 2 {
		t.Fatalf("missing: %v", missing)
	}
}

func TestChurnModelRoundTripKeepsScalerPaired(t *testing.T) {
	X := [][]float64{{100, 1, 2, 1}, {120, 2, 3, 2}, {5000, 20, 40, 30}, {4800, 18, 35, 28}}
	y := []int{1, 1, 0, 0}
	scaler, err := ml.FitStandardScaler(X)
	if err != nil {
		t.Fatalf("FitStandardScaler: %v", err)
	}
	Z, _ := scaler.Transform(X)
	clf := ml.NewLogisticRegression(1, 100)
	if err := clf.Fit(Z, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	model := &ChurnModel{Version: 1, FeatureNames: types.FeatureNames, Scaler: scaler, Classifier: clf}

	path := Path(t.TempDir(), ChurnModelFile)
	if err := WriteJSON(path, model); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	loaded, err := LoadChurnModel(path)
	if err != nil {
		t.Fatalf("LoadChurnModel: %v", err)
	}
	for i, x := range X {
		want, _ := model.PredictProba(x)
		got, err := loaded.PredictProba(x)
		if err != nil {
			t.Fatalf("PredictProba: %v", err)
		}
		if got != want {
			t.Fatalf("row %d: loaded model scored %v, original %v", i, got, want)
		}
	}
	if churn, _ := loaded.Predict([]float64{90, 1, 1, 1}); !churn {
		t.Fatalf("expected low-activity customer to be predicted as churner")
	}
	if _, err := loaded.PredictProba([]float64{1, 2, 3}); !apperr.Is(err, apperr.ErrFeatureMismatch) {
		t.Fatalf("expected feature mismatch, got %v", err)
	}
	loaded.FeatureNames = []string{"total_invoices", "total_revenue", "avg_basket_size", "unique_products"}
	if _, err := loaded.PredictProba(X[0]); !apperr.Is(err, apperr.ErrFeatureMismatch) {
		t.Fatalf("expected feature order mismatch, got %v", err)
	}
}

func TestChurnLabeledTableKeepsUnlabeledRows(t *testing.T) {
	path := Path(t.TempDir(), ChurnLabeledFile)
	last := time.Date(2011, 6, 1, 10, 0, 0, 0, time.UTC)
	days, churned := 191, true
	rows := []types.LabeledCustomer{
		{
			ClusteredCustomer: types.ClusteredCustomer{CustomerFeatureVector: types.CustomerFeatureVector{CustomerID: "A", TotalRevenue: 10, TotalInvoices: 1, AvgBasketSize: 2, UniqueProducts: 1}, ClusterIndex: 1, SegmentName: "Top Spenders"},
			Churn:             types.ChurnLabel{CustomerID: "A", LastPurchaseDate: &last, DaysSinceLastPurchase: &days, IsChurned: &churned},
		},
		{
			ClusteredCustomer: types.ClusteredCustomer{CustomerFeatureVector: types.CustomerFeatureVector{CustomerID: "B", TotalRevenue: 5, TotalInvoices: 1, AvgBasketSize: 1, UniqueProducts: 1}},
			Churn:             types.ChurnLabel{CustomerID: "B"},
		},
	}
	if err := WriteChurnLabeled(path, rows); err != nil {
		t.Fatalf("WriteChurnLabeled: %v", err)
	}
	back, err := ReadChurnLabeled(path)
	if err != nil {
		t.Fatalf("ReadChurnLabeled: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("rows=%d", len(back))
	}
	a := back[0]
	if !a.Churn.Labeled() || !*a.Churn.IsChurned || *a.Churn.DaysSinceLastPurchase != 191 || !a.Churn.LastPurchaseDate.Equal(last) {
		t.Fatalf("labeled row: %+v", a.Churn)
	}
	if a.SegmentName != "Top Spenders" || a.ClusterIndex != 1 {
		t.Fatalf("cluster columns: %+v", a.ClusteredCustomer)
	}
	if back[1].Churn.Labeled() || back[1].Churn.LastPurchaseDate != nil {
		t.Fatalf("unlabeled row gained a label: %+v", back[1].Churn)
	}
}

func TestChurnModelTieIsNotChurn(t *testing.T) {
	X := [][]float64{{100, 1, 2, 1}, {5000, 20, 40, 30}}
	scaler, err := ml.FitStandardScaler(X)
	if err != nil {
		t.Fatalf("FitStandardScaler: %v", err)
	}
	model := &ChurnModel{
		FeatureNames: types.FeatureNames,
		Scaler:       scaler,
		Classifier:   &ml.LogisticRegression{Coef: make([]float64, 4)},
	}
	churn, err := model.Predict(X[0])
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if churn {
		t.Fatalf("a 0.5 probability must not be predicted as churn")
	}
}
