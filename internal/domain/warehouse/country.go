package warehouse

// Country is immutable once inserted; country_name is the natural key.
type Country struct {
	CountryID   uint   `gorm:"column:country_id;primaryKey;autoIncrement" json:"country_id"`
	CountryName string `gorm:"column:country_name;type:text;not null;uniqueIndex:idx_dim_country_name" json:"country_name"`

	Customers []Customer `gorm:"foreignKey:CountryID;references:CountryID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

func (Country) TableName() string { return "dim_country" }
