package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/data/repos/testutil"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ingestion/source"
	"github.com/yungbote/retail-intelligence/internal/ml"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
)

// segmentFixture returns four well separated groups of three customers each.
func segmentFixture() []types.CustomerFeatureVector {
	groups := [][4]float64{
		{100, 2, 5, 3},
		{9000, 40, 30, 120},
		{600, 25, 4, 40},
		{4000, 1, 900, 2},
	}
	var out []types.CustomerFeatureVector
	for g, base := range groups {
		for i := 0; i < 3; i++ {
			jitter := float64(i) * 0.01
			out = append(out, types.CustomerFeatureVector{
				CustomerID:     fmt.Sprintf("C%d%d", g, i),
				TotalRevenue:   base[0] * (1 + jitter),
				TotalInvoices:  int(base[1]) + i,
				AvgBasketSize:  base[2] * (1 + jitter),
				UniqueProducts: int(base[3]) + i,
			})
		}
	}
	return out
}

func TestSegmentBuildPersistsVersionedSnapshots(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	features := segmentFixture()

	country := testutil.SeedCountry(t, ctx, db, "United Kingdom")
	for _, f := range features {
		testutil.SeedCustomer(t, ctx, db, f.CustomerID, country.CountryID)
	}

	deps := SegmentBuildDeps{
		DB:        db,
		Log:       log,
		Customers: repos.NewCustomerRepo(db, log),
		Models:    repos.NewModelSnapshotRepo(db, log),
	}
	dir := t.TempDir()
	in := SegmentBuildInput{
		Features:  features,
		Config:    ml.KMeansConfig{K: 4, Seed: 42},
		ElbowMaxK: 9,
		OutputDir: dir,
		Now:       time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC),
	}

	out, err := SegmentBuild(ctx, deps, in)
	if err != nil {
		t.Fatalf("SegmentBuild: %v", err)
	}
	if out.Customers != len(features) || out.SegmentsUpdated != int64(len(features)) {
		t.Fatalf("customers=%d updated=%d", out.Customers, out.SegmentsUpdated)
	}
	if out.ModelVersion != 1 {
		t.Fatalf("model version=%d want 1", out.ModelVersion)
	}
	if len(out.Elbow) != 9 {
		t.Fatalf("elbow points=%d want 9", len(out.Elbow))
	}
	for g := 0; g < 4; g++ {
		first := out.Clustered[g*3]
		for i := 1; i < 3; i++ {
			if out.Clustered[g*3+i].ClusterIndex != first.ClusterIndex {
				t.Fatalf("group %d split across clusters", g)
			}
		}
		if first.SegmentName != artifacts.DefaultSegmentMap().Name(first.ClusterIndex) {
			t.Fatalf("segment name %q does not follow the mapping", first.SegmentName)
		}
	}
	for i, c := range out.Clustered {
		if c.CustomerID != features[i].CustomerID {
			t.Fatalf("row %d reordered: %s", i, c.CustomerID)
		}
	}
	for _, name := range []string{artifacts.ClusteredCustomersFile, artifacts.ElbowFile, artifacts.SegmentationModelFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	custs, err := deps.Customers.GetByIDs(dbctx.Context{Ctx: ctx}, []string{out.Clustered[0].CustomerID})
	if err != nil || len(custs) != 1 {
		t.Fatalf("GetByIDs: %v %v", custs, err)
	}
	if custs[0].Segment == nil || *custs[0].Segment != out.Clustered[0].SegmentName {
		t.Fatalf("customer segment not written back: %v", custs[0].Segment)
	}

	again, err := SegmentBuild(ctx, deps, in)
	if err != nil {
		t.Fatalf("second SegmentBuild: %v", err)
	}
	if again.ModelVersion != 2 {
		t.Fatalf("second model version=%d want 2", again.ModelVersion)
	}
	for i := range out.Clustered {
		if out.Clustered[i].ClusterIndex != again.Clustered[i].ClusterIndex {
			t.Fatalf("same seed produced different labels at row %d", i)
		}
	}
	active, err := deps.Models.GetActiveByKey(dbctx.Context{Ctx: ctx}, types.ModelKeySegmentation)
	if err != nil || active == nil || active.Version != 2 {
		t.Fatalf("active snapshot: %+v %v", active, err)
	}
}

func TestSegmentBuildRejectsTooFewCustomers(t *testing.T) {
	features := segmentFixture()[:3]
	_, err := SegmentBuild(context.Background(), SegmentBuildDeps{Log: testutil.Logger(t)}, SegmentBuildInput{
		Features: features,
		Config:   ml.KMeansConfig{K: 4, Seed: 42},
	})
	if !apperr.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestLabelChurnThresholdIsExclusive(t *testing.T) {
	ref := time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)
	records := []source.RawRecord{
		{CustomerID: "AT", InvoiceDate: ref.AddDate(0, 0, -180)},
		{CustomerID: "OVER", InvoiceDate: ref.AddDate(0, 0, -181)},
		{CustomerID: "FAR", InvoiceDate: ref.AddDate(0, 0, -200)},
		{CustomerID: "FAR", InvoiceDate: ref.AddDate(0, 0, -400)},
		{CustomerID: "", InvoiceDate: ref},
	}
	var customers []types.ClusteredCustomer
	for _, id := range []string{"AT", "OVER", "FAR", "GHOST"} {
		customers = append(customers, types.ClusteredCustomer{CustomerFeatureVector: types.CustomerFeatureVector{CustomerID: id}})
	}

	labeled, dist, err := LabelChurn(records, customers, types.DefaultChurnThresholdDays)
	if err != nil {
		t.Fatalf("LabelChurn: %v", err)
	}
	want := map[string]bool{"AT": false, "OVER": true, "FAR": true}
	for _, row := range labeled {
		exp, ok := want[row.CustomerID]
		if !ok {
			if row.Churn.Labeled() || row.Churn.DaysSinceLastPurchase != nil {
				t.Fatalf("%s should be unlabeled", row.CustomerID)
			}
			continue
		}
		if !row.Churn.Labeled() || *row.Churn.IsChurned != exp {
			t.Fatalf("%s churned=%v want %v", row.CustomerID, row.Churn.IsChurned, exp)
		}
	}
	if got := *labeled[2].Churn.DaysSinceLastPurchase; got != 200 {
		t.Fatalf("FAR days=%d want 200 (latest purchase)", got)
	}
	if dist.Labeled != 3 || dist.Unlabeled != 1 || dist.Churned != 2 || dist.Retained != 1 {
		t.Fatalf("distribution: %+v", dist)
	}
	if dist.ReferenceDay != "2011-12-09 12:50:00" {
		t.Fatalf("reference date %q", dist.ReferenceDay)
	}
}

func TestLabelChurnNeedsInvoiceDates(t *testing.T) {
	_, _, err := LabelChurn(nil, nil, 180)
	if !apperr.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

// churnFixture builds 40 retained and 10 churned customers plus one without a label.
func churnFixture() []types.LabeledCustomer {
	var out []types.LabeledCustomer
	add := func(id string, revenue float64, invoices int, churned *bool) {
		out = append(out, types.LabeledCustomer{
			ClusteredCustomer: types.ClusteredCustomer{CustomerFeatureVector: types.CustomerFeatureVector{
				CustomerID:     id,
				TotalRevenue:   revenue,
				TotalInvoices:  invoices,
				AvgBasketSize:  10 + float64(invoices%3),
				UniqueProducts: invoices * 2,
			}},
			Churn: types.ChurnLabel{CustomerID: id, IsChurned: churned},
		})
	}
	for i := 0; i < 40; i++ {
		add(fmt.Sprintf("R%02d", i), 2000+float64(i)*50, 10+i%7, ptr(false))
	}
	for i := 0; i < 10; i++ {
		add(fmt.Sprintf("X%02d", i), 50+float64(i)*5, 1+i%2, ptr(true))
	}
	add("U00", 300, 3, nil)
	return out
}

func TestChurnTrainSplitsBeforeOversampling(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	deps := ChurnTrainDeps{DB: db, Log: log, Models: repos.NewModelSnapshotRepo(db, log)}
	dir := t.TempDir()

	out, err := ChurnTrain(ctx, deps, ChurnTrainInput{
		Labeled:       churnFixture(),
		TestSize:      0.2,
		Seed:          42,
		ThresholdDays: 180,
		OutputDir:     dir,
	})
	if err != nil {
		t.Fatalf("ChurnTrain: %v", err)
	}
	if out.DroppedRows != 1 {
		t.Fatalf("dropped=%d want 1", out.DroppedRows)
	}
	if out.TestRows != 10 || out.Report.Total != 10 {
		t.Fatalf("test rows=%d report total=%d want 10", out.TestRows, out.Report.Total)
	}
	// 32 retained and 8 churned in training, balanced to 32/32.
	if out.TrainRows != 64 || out.SyntheticRows != 24 {
		t.Fatalf("train rows=%d synthetic=%d", out.TrainRows, out.SyntheticRows)
	}
	if out.Report.Accuracy < 0.9 {
		t.Fatalf("accuracy %.2f on separable data", out.Report.Accuracy)
	}
	if out.ModelVersion != 1 {
		t.Fatalf("model version=%d", out.ModelVersion)
	}

	saved, err := artifacts.LoadChurnModel(filepath.Join(dir, artifacts.ChurnModelFile))
	if err != nil {
		t.Fatalf("LoadChurnModel: %v", err)
	}
	if saved.Scaler == nil || saved.Classifier == nil || saved.Version != 1 {
		t.Fatalf("persisted model incomplete: %+v", saved)
	}
	if _, err := saved.PredictProba([]float64{1, 2, 3}); !apperr.Is(err, apperr.ErrFeatureMismatch) {
		t.Fatalf("expected ErrFeatureMismatch, got %v", err)
	}
}

func TestChurnTrainFailsOnSingleClass(t *testing.T) {
	rows := churnFixture()[:40]
	_, err := ChurnTrain(context.Background(), ChurnTrainDeps{Log: testutil.Logger(t)}, ChurnTrainInput{Labeled: rows, Seed: 42})
	if !apperr.Is(err, apperr.ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
}

func TestChurnScoreUsesActiveSnapshots(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	models := repos.NewModelSnapshotRepo(db, log)

	labeled := churnFixture()
	features := make([]types.CustomerFeatureVector, 0, len(labeled))
	for _, l := range labeled {
		features = append(features, l.CustomerFeatureVector)
	}
	if _, err := SegmentBuild(ctx, SegmentBuildDeps{DB: db, Log: log, Customers: repos.NewCustomerRepo(db, log), Models: models}, SegmentBuildInput{
		Features: features,
		Config:   ml.KMeansConfig{K: 4, Seed: 42},
	}); err != nil {
		t.Fatalf("SegmentBuild: %v", err)
	}
	if _, err := ChurnTrain(ctx, ChurnTrainDeps{DB: db, Log: log, Models: models}, ChurnTrainInput{Labeled: labeled, Seed: 42}); err != nil {
		t.Fatalf("ChurnTrain: %v", err)
	}

	dir := t.TempDir()
	out, err := ChurnScore(ctx, ChurnScoreDeps{Log: log, Models: models}, ChurnScoreInput{Features: features, OutputDir: dir})
	if err != nil {
		t.Fatalf("ChurnScore: %v", err)
	}
	if out.Customers != len(features) || out.ChurnModel != 1 || out.SegmentModel != 1 {
		t.Fatalf("score output: %+v", out)
	}
	var total int
	for _, s := range out.Summary {
		total += s.Customers
	}
	if total != len(features) {
		t.Fatalf("summary covers %d customers", total)
	}
	for _, r := range out.Scored {
		if r.ChurnProbability < 0 || r.ChurnProbability > 1 {
			t.Fatalf("probability out of range: %v", r.ChurnProbability)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, artifacts.ScoredCustomersFile)); err != nil {
		t.Fatalf("scored file: %v", err)
	}
}

func TestChurnScoreWithoutModels(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	_, err := ChurnScore(context.Background(), ChurnScoreDeps{Log: log, Models: repos.NewModelSnapshotRepo(db, log)}, ChurnScoreInput{Features: segmentFixture()})
	if !apperr.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
