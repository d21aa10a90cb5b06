package warehouse

import "github.com/shopspring/decimal"

const UnknownCategory = "unknown"

// Product keeps the first-seen description and price for a stock code.
type Product struct {
	ProductID   string          `gorm:"column:product_id;type:varchar(64);primaryKey" json:"product_id"`
	Description string          `gorm:"column:description;type:text;not null;default:''" json:"description"`
	Category    string          `gorm:"column:category;type:text;not null;default:'unknown'" json:"category"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4);not null" json:"unit_price"`

	Sales []SalesLineItem `gorm:"foreignKey:ProductID;references:ProductID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

func (Product) TableName() string { return "dim_product" }
