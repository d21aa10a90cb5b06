package steps

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	"github.com/yungbote/retail-intelligence/internal/data/repos/testutil"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ingestion/source"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
)

const loadCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom
536366,22633,HAND WARMER UNION JACK,6,2010-12-02 09:00:00,1.85,13047,France
536367,22633,HAND WARMER UNION JACK,3,2010-12-02 10:00:00,2.00,13047.0,France
536368,84879,ASSORTED COLOUR BIRD ORNAMENT,32,2010-12-03 08:34:00,1.69,,United Kingdom
536369,84879,ASSORTED COLOUR BIRD ORNAMENT,32,2010-12-03 08:34:00,1.69,12583,
`

func readRecords(t *testing.T, csv string) []source.RawRecord {
	t.Helper()
	recs, err := source.ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return recs
}

func loadDeps(t *testing.T) WarehouseLoadDeps {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return WarehouseLoadDeps{DB: db, Log: log, Warehouse: repos.NewWarehouse(db, log)}
}

func tableCounts(t *testing.T, deps WarehouseLoadDeps) [5]int64 {
	t.Helper()
	dbc := dbctx.Context{Ctx: context.Background()}
	w := deps.Warehouse
	var out [5]int64
	var err error
	counters := []func(dbctx.Context) (int64, error){w.Countries.Count, w.Customers.Count, w.Products.Count, w.Calendar.Count, w.Sales.Count}
	for i, c := range counters {
		if out[i], err = c(dbc); err != nil {
			t.Fatalf("count: %v", err)
		}
	}
	return out
}

func TestWarehouseLoadCountsAndIdempotence(t *testing.T) {
	deps := loadDeps(t)
	ctx := context.Background()
	in := WarehouseLoadInput{Records: readRecords(t, loadCSV), BatchSize: 2}

	out, err := WarehouseLoad(ctx, deps, in)
	if err != nil {
		t.Fatalf("WarehouseLoad: %v", err)
	}
	if out.Clean.Input != 7 || out.Clean.Kept != 5 || out.Clean.MissingCustomer != 1 || out.Clean.MissingCountry != 1 {
		t.Fatalf("clean stats: %+v", out.Clean)
	}
	if out.Countries.Inserted != 2 || out.Customers.Inserted != 2 || out.Products.Inserted != 3 || out.Days.Inserted != 2 {
		t.Fatalf("dimension inserts: %+v %+v %+v %+v", out.Countries, out.Customers, out.Products, out.Days)
	}
	if out.Facts.Inserted != 4 || out.Facts.DuplicateInBatch != 1 || out.Facts.Dropped() != 1 {
		t.Fatalf("fact load: %+v", out.Facts)
	}
	want := [5]int64{2, 2, 3, 2, 4}
	if got := tableCounts(t, deps); got != want {
		t.Fatalf("table counts after first load: %v want %v", got, want)
	}

	again, err := WarehouseLoad(ctx, deps, in)
	if err != nil {
		t.Fatalf("second WarehouseLoad: %v", err)
	}
	if again.Countries.Inserted != 0 || again.Customers.Inserted != 0 || again.Products.Inserted != 0 || again.Days.Inserted != 0 || again.Facts.Inserted != 0 {
		t.Fatalf("rerun inserted rows: %+v", again)
	}
	if again.Facts.Skipped != 4 {
		t.Fatalf("rerun skipped=%d want 4", again.Facts.Skipped)
	}
	if got := tableCounts(t, deps); got != want {
		t.Fatalf("table counts after rerun: %v want %v", got, want)
	}

	p, err := deps.Warehouse.Products.GetByID(dbctx.Context{Ctx: ctx}, "22633")
	if err != nil || p == nil {
		t.Fatalf("GetByID: %v %v", p, err)
	}
	if p.UnitPrice.String() != "1.85" {
		t.Fatalf("first-seen price should win, got %s", p.UnitPrice)
	}

	// Facts keep their own line price; the total is quantity times that price.
	var line types.SalesLineItem
	if err := deps.DB.Where("invoice_no = ? AND product_id = ?", "536367", "22633").First(&line).Error; err != nil {
		t.Fatalf("load fact: %v", err)
	}
	if line.UnitPrice.String() != "2" || line.TotalAmount.String() != "6" {
		t.Fatalf("fact price/total = %s/%s, want 2/6", line.UnitPrice, line.TotalAmount)
	}
}

func TestLoadFactsSkipsUnresolvedRows(t *testing.T) {
	deps := loadDeps(t)
	ctx := context.Background()
	recs := readRecords(t, loadCSV)
	cleaned, _ := source.Clean(recs)

	if _, err := LoadDimensions(ctx, deps, cleaned, WarehouseLoadInput{}); err != nil {
		t.Fatalf("LoadDimensions: %v", err)
	}
	extra := readRecords(t, `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536400,99999,UNKNOWN PRODUCT,1,2010-12-01 09:00:00,1.00,17850,United Kingdom
536401,85123A,WHITE HANGING HEART T-LIGHT HOLDER,1,2010-12-01 09:00:00,2.55,99999,United Kingdom
536402,85123A,WHITE HANGING HEART T-LIGHT HOLDER,1,2011-01-05 09:00:00,2.55,17850,United Kingdom
`)
	out, err := LoadFacts(ctx, deps, append(cleaned, extra...), WarehouseLoadInput{})
	if err != nil {
		t.Fatalf("LoadFacts: %v", err)
	}
	if out.UnresolvedProduct != 1 || out.UnresolvedCustomer != 1 || out.UnresolvedDate != 1 {
		t.Fatalf("unresolved counts: %+v", out)
	}
	if out.Inserted != 4 {
		t.Fatalf("inserted=%d want 4", out.Inserted)
	}
	if n, _ := deps.Warehouse.Sales.CountOrphans(dbctx.Context{Ctx: ctx}); n != 0 {
		t.Fatalf("orphans=%d", n)
	}
}

func TestDimensionTransactionRollsBack(t *testing.T) {
	deps := loadDeps(t)
	ctx := context.Background()
	boom := errors.New("connection reset mid-batch")

	err := inTx(ctx, deps.DB, deps.Log, "dim_country", 1, func(dbc dbctx.Context) error {
		if _, err := deps.Warehouse.Countries.InsertSkipExisting(dbc, []string{"France", "Germany"}, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if n, _ := deps.Warehouse.Countries.Count(dbctx.Context{Ctx: ctx}); n != 0 {
		t.Fatalf("partial batch committed: %d rows", n)
	}

	out, err := WarehouseLoad(ctx, deps, WarehouseLoadInput{Records: readRecords(t, loadCSV)})
	if err != nil {
		t.Fatalf("WarehouseLoad after failure: %v", err)
	}
	if out.Countries.Inserted != 2 {
		t.Fatalf("retry inserted %d countries", out.Countries.Inserted)
	}
}

func TestInTxRetriesTransientErrors(t *testing.T) {
	deps := loadDeps(t)
	calls := 0
	err := inTx(context.Background(), deps.DB, deps.Log, "dim_country", 3, func(dbc dbctx.Context) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		_, err := deps.Warehouse.Countries.InsertSkipExisting(dbc, []string{"France"}, 0)
		return err
	})
	if err != nil {
		t.Fatalf("inTx: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d want 2", calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "08006"}, true},
		{&pgconn.PgError{Code: "40P01"}, true},
		{&pgconn.PgError{Code: "23505"}, false},
		{context.Canceled, false},
		{errors.New("syntax error"), false},
	}
	for _, c := range cases {
		if got := isTransient(c.err); got != c.want {
			t.Fatalf("isTransient(%v)=%v want %v", c.err, got, c.want)
		}
	}
}

func TestCategoryRules(t *testing.T) {
	rules := CategoryRules{{Keyword: "lantern", Category: "lighting"}, {Keyword: "heart", Category: "decor"}}
	if got := rules.Categorize("WHITE METAL LANTERN"); got != "lighting" {
		t.Fatalf("got %q", got)
	}
	if got := rules.Categorize("HAND WARMER"); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}

func TestFeatureBuild(t *testing.T) {
	deps := loadDeps(t)
	ctx := context.Background()
	if _, err := WarehouseLoad(ctx, deps, WarehouseLoadInput{Records: readRecords(t, loadCSV)}); err != nil {
		t.Fatalf("WarehouseLoad: %v", err)
	}
	out, err := FeatureBuild(ctx, FeatureBuildDeps{Log: deps.Log, Sales: deps.Warehouse.Sales}, FeatureBuildInput{})
	if err != nil {
		t.Fatalf("FeatureBuild: %v", err)
	}
	if out.Customers != 2 {
		t.Fatalf("customers=%d", out.Customers)
	}
	a, b := out.Features[0], out.Features[1]
	if a.CustomerID != "13047" || b.CustomerID != "17850" {
		t.Fatalf("rows not ordered by customer id: %q %q", a.CustomerID, b.CustomerID)
	}
	if math.Abs(a.TotalRevenue-17.1) > 1e-9 || a.TotalInvoices != 2 || a.AvgBasketSize != 4.5 || a.UniqueProducts != 1 {
		t.Fatalf("13047 features: %+v", a)
	}
	if math.Abs(b.TotalRevenue-35.64) > 1e-9 || b.TotalInvoices != 1 || b.AvgBasketSize != 12 || b.UniqueProducts != 2 {
		t.Fatalf("17850 features: %+v", b)
	}
}

func TestFeaturesFromAggregatesZeroInvoices(t *testing.T) {
	_, err := FeaturesFromAggregates([]repos.CustomerAggregate{{CustomerID: "X", TotalInvoices: 0}})
	if !apperr.Is(err, apperr.ErrZeroInvoices) {
		t.Fatalf("expected ErrZeroInvoices, got %v", err)
	}
}
