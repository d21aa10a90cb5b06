package steps

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/retail-intelligence/internal/data/repos"
	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/domain/warehouse"
	"github.com/yungbote/retail-intelligence/internal/ingestion/source"
	"github.com/yungbote/retail-intelligence/internal/observability"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const StageWarehouseLoad = "warehouse_load"

type WarehouseLoadDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Warehouse repos.Warehouse
}

type WarehouseLoadInput struct {
	// Records are the raw rows; the required-field filter runs here.
	Records     []source.RawRecord
	BatchSize   int
	MaxAttempts int
	Categories  CategoryRules
}

// TableLoad counts one table's insert outcome. Skipped rows already existed.
type TableLoad struct {
	Table      string `json:"table"`
	Candidates int64  `json:"candidates"`
	Inserted   int64  `json:"inserted"`
	Skipped    int64  `json:"skipped_existing"`
}

type FactLoad struct {
	TableLoad
	UnresolvedCustomer int64 `json:"unresolved_customer"`
	UnresolvedProduct  int64 `json:"unresolved_product"`
	UnresolvedDate     int64 `json:"unresolved_date"`
	DuplicateInBatch   int64 `json:"duplicate_in_batch"`
}

// Dropped is the number of cleaned records that did not become fact candidates.
func (f FactLoad) Dropped() int64 {
	return f.UnresolvedCustomer + f.UnresolvedProduct + f.UnresolvedDate + f.DuplicateInBatch
}

type WarehouseLoadOutput struct {
	Clean     source.CleanStats `json:"clean"`
	Countries TableLoad         `json:"dim_country"`
	Customers TableLoad         `json:"dim_customer"`
	Products  TableLoad         `json:"dim_product"`
	Days      TableLoad         `json:"dim_date"`
	Facts     FactLoad          `json:"fact_sales"`
	Orphans   int64             `json:"orphan_facts"`
}

// WarehouseLoad cleans the records and loads Country → Customer → Product →
// CalendarDay → SalesLineItem. Each table is written in its own transaction
// with insert-or-skip semantics, so a rerun after a partial failure only adds
// what is missing.
func WarehouseLoad(ctx context.Context, deps WarehouseLoadDeps, in WarehouseLoadInput) (WarehouseLoadOutput, error) {
	out := WarehouseLoadOutput{}
	if err := deps.check(); err != nil {
		return out, err
	}

	cleaned, stats := source.Clean(in.Records)
	out.Clean = stats
	observability.ReportDroppedRows(ctx, deps.Log, StageWarehouseLoad, map[string]int{
		"missing_customer": stats.MissingCustomer,
		"missing_country":  stats.MissingCountry,
	}, map[string]any{"input_rows": stats.Input})

	dims, err := LoadDimensions(ctx, deps, cleaned, in)
	if err != nil {
		return out, err
	}
	out.Countries, out.Customers, out.Products, out.Days = dims.Countries, dims.Customers, dims.Products, dims.Days

	facts, err := LoadFacts(ctx, deps, cleaned, in)
	if err != nil {
		return out, err
	}
	out.Facts = facts

	orphans, err := deps.Warehouse.Sales.CountOrphans(dbctx.Context{Ctx: ctx})
	if err != nil {
		return out, fmt.Errorf("warehouse_load: orphan check: %w", err)
	}
	out.Orphans = orphans
	if orphans > 0 {
		return out, fmt.Errorf("warehouse_load: %d fact rows reference missing dimensions", orphans)
	}

	m := observability.Current()
	for _, t := range []TableLoad{out.Countries, out.Customers, out.Products, out.Days, out.Facts.TableLoad} {
		m.AddRows(t.Table, "inserted", t.Inserted)
		m.AddRows(t.Table, "skipped_existing", t.Skipped)
	}
	m.AddRows(out.Facts.Table, "dropped", out.Facts.Dropped())

	deps.Log.Info("warehouse load complete",
		"input_rows", stats.Input,
		"clean_rows", stats.Kept,
		"countries_inserted", out.Countries.Inserted,
		"customers_inserted", out.Customers.Inserted,
		"products_inserted", out.Products.Inserted,
		"days_inserted", out.Days.Inserted,
		"facts_inserted", out.Facts.Inserted,
		"facts_skipped", out.Facts.Skipped,
		"facts_dropped", out.Facts.Dropped(),
	)
	return out, nil
}

func (deps WarehouseLoadDeps) check() error {
	w := deps.Warehouse
	if deps.DB == nil || deps.Log == nil || w.Countries == nil || w.Customers == nil || w.Products == nil || w.Calendar == nil || w.Sales == nil {
		return fmt.Errorf("warehouse_load: missing deps")
	}
	return nil
}

type DimensionLoad struct {
	Countries TableLoad
	Customers TableLoad
	Products  TableLoad
	Days      TableLoad
}

// LoadDimensions writes the four dimension tables in dependency order.
// Attributes come from the first record that mentions each key.
func LoadDimensions(ctx context.Context, deps WarehouseLoadDeps, cleaned []source.RawRecord, in WarehouseLoadInput) (DimensionLoad, error) {
	out := DimensionLoad{}
	if err := deps.check(); err != nil {
		return out, err
	}
	w := deps.Warehouse
	batch := in.BatchSize

	countries := firstSeenCountries(cleaned)
	out.Countries = TableLoad{Table: "dim_country", Candidates: int64(len(countries))}
	err := inTx(ctx, deps.DB, deps.Log, "dim_country", in.MaxAttempts, func(dbc dbctx.Context) error {
		n, err := w.Countries.InsertSkipExisting(dbc, countries, batch)
		out.Countries.Inserted = n
		return err
	})
	if err != nil {
		return out, fmt.Errorf("warehouse_load: dim_country: %w", err)
	}
	out.Countries.Skipped = out.Countries.Candidates - out.Countries.Inserted

	countryIDs, err := w.Countries.IDsByName(dbctx.Context{Ctx: ctx})
	if err != nil {
		return out, fmt.Errorf("warehouse_load: read dim_country: %w", err)
	}
	customers := customerRows(cleaned, countryIDs)
	out.Customers = TableLoad{Table: "dim_customer", Candidates: int64(len(customers))}
	err = inTx(ctx, deps.DB, deps.Log, "dim_customer", in.MaxAttempts, func(dbc dbctx.Context) error {
		n, err := w.Customers.InsertSkipExisting(dbc, customers, batch)
		out.Customers.Inserted = n
		return err
	})
	if err != nil {
		return out, fmt.Errorf("warehouse_load: dim_customer: %w", err)
	}
	out.Customers.Skipped = out.Customers.Candidates - out.Customers.Inserted

	products := productRows(cleaned, in.Categories)
	out.Products = TableLoad{Table: "dim_product", Candidates: int64(len(products))}
	err = inTx(ctx, deps.DB, deps.Log, "dim_product", in.MaxAttempts, func(dbc dbctx.Context) error {
		n, err := w.Products.InsertSkipExisting(dbc, products, batch)
		out.Products.Inserted = n
		return err
	})
	if err != nil {
		return out, fmt.Errorf("warehouse_load: dim_product: %w", err)
	}
	out.Products.Skipped = out.Products.Candidates - out.Products.Inserted

	days := calendarRows(cleaned)
	out.Days = TableLoad{Table: "dim_date", Candidates: int64(len(days))}
	err = inTx(ctx, deps.DB, deps.Log, "dim_date", in.MaxAttempts, func(dbc dbctx.Context) error {
		n, err := w.Calendar.InsertSkipExisting(dbc, days, batch)
		out.Days.Inserted = n
		return err
	})
	if err != nil {
		return out, fmt.Errorf("warehouse_load: dim_date: %w", err)
	}
	out.Days.Skipped = out.Days.Candidates - out.Days.Inserted
	return out, nil
}

// LoadFacts resolves each record against the committed dimensions and writes
// the resolvable ones. Records that cannot be resolved are counted, not
// inserted; repeated natural keys keep the first occurrence.
func LoadFacts(ctx context.Context, deps WarehouseLoadDeps, cleaned []source.RawRecord, in WarehouseLoadInput) (FactLoad, error) {
	out := FactLoad{TableLoad: TableLoad{Table: "fact_sales"}}
	if err := deps.check(); err != nil {
		return out, err
	}
	w := deps.Warehouse
	read := dbctx.Context{Ctx: ctx}

	customers, err := w.Customers.ExistingIDs(read)
	if err != nil {
		return out, fmt.Errorf("warehouse_load: read dim_customer: %w", err)
	}
	products, err := w.Products.ExistingIDs(read)
	if err != nil {
		return out, fmt.Errorf("warehouse_load: read dim_product: %w", err)
	}
	days, err := w.Calendar.IDsByDay(read)
	if err != nil {
		return out, fmt.Errorf("warehouse_load: read dim_date: %w", err)
	}

	seen := make(map[string]struct{}, len(cleaned))
	rows := make([]*types.SalesLineItem, 0, len(cleaned))
	for _, r := range cleaned {
		if _, ok := customers[r.CustomerID]; !ok {
			out.UnresolvedCustomer++
			continue
		}
		if _, ok := products[r.StockCode]; !ok {
			out.UnresolvedProduct++
			continue
		}
		dateID, ok := days[warehouse.DayKey(r.InvoiceDate)]
		if !ok {
			out.UnresolvedDate++
			continue
		}
		row := &types.SalesLineItem{
			InvoiceNo:   r.InvoiceNo,
			ProductID:   r.StockCode,
			CustomerID:  r.CustomerID,
			DateID:      dateID,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			TotalAmount: r.TotalAmount(),
		}
		key := row.NaturalKey()
		if _, dup := seen[key]; dup {
			out.DuplicateInBatch++
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, row)
	}
	out.Candidates = int64(len(rows))

	observability.ReportDroppedRows(ctx, deps.Log, StageWarehouseLoad, map[string]int{
		"unresolved_customer": int(out.UnresolvedCustomer),
		"unresolved_product":  int(out.UnresolvedProduct),
		"unresolved_date":     int(out.UnresolvedDate),
		"duplicate_line_item": int(out.DuplicateInBatch),
	}, nil)

	err = inTx(ctx, deps.DB, deps.Log, "fact_sales", in.MaxAttempts, func(dbc dbctx.Context) error {
		n, err := w.Sales.InsertSkipExisting(dbc, rows, in.BatchSize)
		out.Inserted = n
		return err
	})
	if err != nil {
		return out, fmt.Errorf("warehouse_load: fact_sales: %w", err)
	}
	out.Skipped = out.Candidates - out.Inserted
	return out, nil
}

func firstSeenCountries(records []source.RawRecord) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		if _, ok := seen[r.Country]; ok {
			continue
		}
		seen[r.Country] = struct{}{}
		out = append(out, r.Country)
	}
	return out
}

func customerRows(records []source.RawRecord, countryIDs map[string]uint) []*types.Customer {
	seen := map[string]struct{}{}
	var out []*types.Customer
	for _, r := range records {
		if _, ok := seen[r.CustomerID]; ok {
			continue
		}
		seen[r.CustomerID] = struct{}{}
		c := &types.Customer{CustomerID: r.CustomerID}
		if id, ok := countryIDs[r.Country]; ok {
			c.CountryID = ptr(id)
		}
		out = append(out, c)
	}
	return out
}

func productRows(records []source.RawRecord, rules CategoryRules) []*types.Product {
	seen := map[string]struct{}{}
	var out []*types.Product
	for _, r := range records {
		if r.StockCode == "" {
			continue
		}
		if _, ok := seen[r.StockCode]; ok {
			continue
		}
		seen[r.StockCode] = struct{}{}
		out = append(out, &types.Product{
			ProductID:   r.StockCode,
			Description: r.Description,
			Category:    rules.Categorize(r.Description),
			UnitPrice:   r.UnitPrice,
		})
	}
	return out
}

func calendarRows(records []source.RawRecord) []*types.CalendarDay {
	seen := map[string]struct{}{}
	var out []*types.CalendarDay
	for _, r := range records {
		key := warehouse.DayKey(r.InvoiceDate)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		day := warehouse.NewCalendarDay(r.InvoiceDate)
		out = append(out, &day)
	}
	return out
}

// CategoryRule assigns Category to products whose description contains Keyword.
type CategoryRule struct {
	Keyword  string `yaml:"keyword" json:"keyword"`
	Category string `yaml:"category" json:"category"`
}

// CategoryRules are matched in order; the first hit wins.
type CategoryRules []CategoryRule

func (rules CategoryRules) Categorize(description string) string {
	d := strings.ToUpper(description)
	for _, r := range rules {
		if r.Keyword != "" && strings.Contains(d, strings.ToUpper(r.Keyword)) {
			return r.Category
		}
	}
	return types.UnknownCategory
}
