package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/retail-intelligence/internal/data/repos/testutil"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/domain/warehouse"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
)

func TestCountryRepoInsertSkipExisting(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewCountryRepo(db, testutil.Logger(t))

	n, err := repo.InsertSkipExisting(dbc, []string{"France", "Germany", ""}, 10)
	if err != nil {
		t.Fatalf("InsertSkipExisting: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted=%d want 2", n)
	}
	ids, err := repo.IDsByName(dbc)
	if err != nil {
		t.Fatalf("IDsByName: %v", err)
	}
	franceID := ids["France"]

	n, err = repo.InsertSkipExisting(dbc, []string{"France", "Spain"}, 1)
	if err != nil {
		t.Fatalf("second InsertSkipExisting: %v", err)
	}
	if n != 1 {
		t.Fatalf("second inserted=%d want 1", n)
	}
	ids, _ = repo.IDsByName(dbc)
	if ids["France"] != franceID {
		t.Fatalf("existing country id changed: %d -> %d", franceID, ids["France"])
	}
	if c, _ := repo.Count(dbc); c != 3 {
		t.Fatalf("count=%d want 3", c)
	}
}

func TestProductRepoFirstWriteWins(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewProductRepo(db, testutil.Logger(t))

	first := []*types.Product{{ProductID: "85123A", Description: "WHITE HANGING HEART", Category: types.UnknownCategory, UnitPrice: decimal.RequireFromString("2.55")}}
	if _, err := repo.InsertSkipExisting(dbc, first, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	second := []*types.Product{{ProductID: "85123A", Description: "CHANGED", Category: "decor", UnitPrice: decimal.RequireFromString("9.99")}}
	n, err := repo.InsertSkipExisting(dbc, second, 0)
	if err != nil {
		t.Fatalf("conflicting insert: %v", err)
	}
	if n != 0 {
		t.Fatalf("conflicting insert wrote %d rows", n)
	}
	got, err := repo.GetByID(dbc, "85123A")
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Description != "WHITE HANGING HEART" || !got.UnitPrice.Equal(decimal.RequireFromString("2.55")) {
		t.Fatalf("product mutated: %+v", got)
	}
}

func TestCustomerRepoUpdateSegments(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewCustomerRepo(db, testutil.Logger(t))

	uk := testutil.SeedCountry(t, ctx, db, "United Kingdom")
	testutil.SeedCustomer(t, ctx, db, "12346", uk.CountryID)
	testutil.SeedCustomer(t, ctx, db, "12347", uk.CountryID)
	testutil.SeedCustomer(t, ctx, db, "12348", uk.CountryID)

	n, err := repo.UpdateSegments(dbc, map[string]string{
		"12346": "Top Spenders",
		"12347": "Average Buyers",
		"99999": "Average Buyers",
	})
	if err != nil {
		t.Fatalf("UpdateSegments: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated=%d want 2", n)
	}
	rows, err := repo.GetByIDs(dbc, []string{"12346", "12347", "12348"})
	if err != nil || len(rows) != 3 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows[0].Segment == nil || *rows[0].Segment != "Top Spenders" {
		t.Fatalf("12346 segment=%v", rows[0].Segment)
	}
	if rows[2].Segment != nil {
		t.Fatalf("12348 should stay unsegmented, got %q", *rows[2].Segment)
	}
}

func TestSalesRepoAggregateAndOrphans(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewSalesRepo(db, testutil.Logger(t))

	uk := testutil.SeedCountry(t, ctx, db, "United Kingdom")
	testutil.SeedCustomer(t, ctx, db, "A1", uk.CountryID)
	testutil.SeedCustomer(t, ctx, db, "B2", uk.CountryID)
	testutil.SeedProduct(t, ctx, db, "P1", "2.50")
	testutil.SeedProduct(t, ctx, db, "P2", "1.00")
	d1 := testutil.SeedDay(t, ctx, db, time.Date(2011, 1, 3, 10, 0, 0, 0, time.UTC))
	d2 := testutil.SeedDay(t, ctx, db, time.Date(2011, 2, 7, 9, 0, 0, 0, time.UTC))

	testutil.SeedSale(t, ctx, db, "536365", "A1", "P1", d1.DateID, 4, "2.50")
	testutil.SeedSale(t, ctx, db, "536365", "A1", "P2", d1.DateID, 2, "1.00")
	testutil.SeedSale(t, ctx, db, "536900", "A1", "P1", d2.DateID, 6, "2.50")
	testutil.SeedSale(t, ctx, db, "536901", "B2", "P2", d2.DateID, 1, "1.00")

	aggs, err := repo.AggregateByCustomer(dbc)
	if err != nil {
		t.Fatalf("AggregateByCustomer: %v", err)
	}
	if len(aggs) != 2 || aggs[0].CustomerID != "A1" || aggs[1].CustomerID != "B2" {
		t.Fatalf("unexpected aggregates: %+v", aggs)
	}
	a := aggs[0]
	if !a.TotalRevenue.Equal(decimal.RequireFromString("27")) {
		t.Fatalf("A1 revenue=%s want 27", a.TotalRevenue)
	}
	if a.TotalInvoices != 2 || a.TotalQuantity != 12 || a.UniqueProducts != 2 {
		t.Fatalf("A1 aggregate=%+v", a)
	}

	orphans, err := repo.CountOrphans(dbc)
	if err != nil {
		t.Fatalf("CountOrphans: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("orphans=%d want 0", orphans)
	}
}

func TestSalesRepoRejectsUnresolvedForeignKey(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewSalesRepo(db, testutil.Logger(t))

	testutil.SeedProduct(t, ctx, db, "P1", "1.00")
	d := testutil.SeedDay(t, ctx, db, time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC))
	row := &types.SalesLineItem{
		InvoiceNo:   "1",
		ProductID:   "P1",
		CustomerID:  "missing",
		DateID:      d.DateID,
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(1),
		TotalAmount: decimal.NewFromInt(1),
	}
	if _, err := repo.InsertSkipExisting(dbctx.Context{Ctx: ctx}, []*types.SalesLineItem{row}, 0); err == nil {
		t.Fatalf("expected foreign key violation for unknown customer")
	}
}

func TestCalendarRepoIDsByDay(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewCalendarRepo(db, testutil.Logger(t))

	day := warehouse.NewCalendarDay(time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC))
	dup := warehouse.NewCalendarDay(time.Date(2010, 12, 1, 17, 0, 0, 0, time.UTC))
	n, err := repo.InsertSkipExisting(dbc, []*types.CalendarDay{&day}, 0)
	if err != nil || n != 1 {
		t.Fatalf("insert: n=%d err=%v", n, err)
	}
	n, err = repo.InsertSkipExisting(dbc, []*types.CalendarDay{&dup}, 0)
	if err != nil || n != 0 {
		t.Fatalf("duplicate day: n=%d err=%v", n, err)
	}
	ids, err := repo.IDsByDay(dbc)
	if err != nil {
		t.Fatalf("IDsByDay: %v", err)
	}
	if _, ok := ids["2010-12-01"]; !ok || len(ids) != 1 {
		t.Fatalf("ids=%v", ids)
	}
	if day.Weekday != "Wednesday" {
		t.Fatalf("weekday=%s", day.Weekday)
	}
}
