package warehouse

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// SalesLineItem is the fact grain. The composite primary key
// (invoice_no, product_id, customer_id, date_id) is the de-duplication key.
type SalesLineItem struct {
	InvoiceNo   string          `gorm:"column:invoice_no;type:varchar(32);primaryKey" json:"invoice_no"`
	ProductID   string          `gorm:"column:product_id;type:varchar(64);primaryKey" json:"product_id"`
	CustomerID  string          `gorm:"column:customer_id;type:varchar(64);primaryKey;index" json:"customer_id"`
	DateID      uint            `gorm:"column:date_id;primaryKey;autoIncrement:false;index" json:"date_id"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4);not null" json:"unit_price"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(18,4);not null" json:"total_amount"`
}

func (SalesLineItem) TableName() string { return "fact_sales" }

// NaturalKey renders the de-duplication key for in-memory batches.
func (s SalesLineItem) NaturalKey() string {
	return s.InvoiceNo + "\x1f" + s.ProductID + "\x1f" + s.CustomerID + "\x1f" + strconv.FormatUint(uint64(s.DateID), 10)
}
