package warehouse

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/platform/dbctx"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

var factNaturalKey = []string{"invoice_no", "product_id", "customer_id", "date_id"}

// CustomerAggregate is the raw per-customer aggregation over fact_sales.
type CustomerAggregate struct {
	CustomerID     string          `gorm:"column:customer_id"`
	TotalRevenue   decimal.Decimal `gorm:"column:total_revenue"`
	TotalInvoices  int64           `gorm:"column:total_invoices"`
	TotalQuantity  int64           `gorm:"column:total_quantity"`
	UniqueProducts int64           `gorm:"column:unique_products"`
}

type SalesRepo interface {
	InsertSkipExisting(dbc dbctx.Context, rows []*types.SalesLineItem, batchSize int) (int64, error)
	AggregateByCustomer(dbc dbctx.Context) ([]CustomerAggregate, error)
	CountOrphans(dbc dbctx.Context) (int64, error)
	Count(dbc dbctx.Context) (int64, error)
}

type salesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSalesRepo(db *gorm.DB, baseLog *logger.Logger) SalesRepo {
	return &salesRepo{db: db, log: baseLog.With("repo", "SalesRepo")}
}

func (r *salesRepo) InsertSkipExisting(dbc dbctx.Context, rows []*types.SalesLineItem, batchSize int) (int64, error) {
	return insertSkipExisting(dbc.DB(r.db), rows, len(rows), factNaturalKey, batchSize)
}

const aggregateByCustomerSQL = `
SELECT
	f.customer_id,
	SUM(f.total_amount) AS total_revenue,
	COUNT(DISTINCT f.invoice_no) AS total_invoices,
	SUM(f.quantity) AS total_quantity,
	COUNT(DISTINCT f.product_id) AS unique_products
FROM fact_sales f
WHERE f.customer_id IS NOT NULL
GROUP BY f.customer_id
ORDER BY f.customer_id ASC`

func (r *salesRepo) AggregateByCustomer(dbc dbctx.Context) ([]CustomerAggregate, error) {
	var out []CustomerAggregate
	if err := dbc.DB(r.db).Raw(aggregateByCustomerSQL).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("aggregate fact_sales: %w", err)
	}
	return out, nil
}

const orphanFactsSQL = `
SELECT COUNT(*)
FROM fact_sales f
LEFT JOIN dim_customer c ON c.customer_id = f.customer_id
LEFT JOIN dim_product p ON p.product_id = f.product_id
LEFT JOIN dim_date d ON d.date_id = f.date_id
WHERE c.customer_id IS NULL OR p.product_id IS NULL OR d.date_id IS NULL`

// CountOrphans counts fact rows with any dimension reference that does not resolve.
func (r *salesRepo) CountOrphans(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).Raw(orphanFactsSQL).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *salesRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.SalesLineItem{}).Count(&n).Error
	return n, err
}
