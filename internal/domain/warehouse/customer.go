package warehouse

// Customer is created once per customer identifier. Only Segment changes after insert.
type Customer struct {
	CustomerID string  `gorm:"column:customer_id;type:varchar(64);primaryKey" json:"customer_id"`
	CountryID  *uint   `gorm:"column:country_id;index" json:"country_id,omitempty"`
	Segment    *string `gorm:"column:segment;type:text" json:"segment,omitempty"`

	Sales []SalesLineItem `gorm:"foreignKey:CustomerID;references:CustomerID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

func (Customer) TableName() string { return "dim_customer" }
