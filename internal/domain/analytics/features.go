package analytics

// FeatureNames is the scoring contract: models are trained on, and only accept,
// these columns in exactly this order.
var FeatureNames = []string{"total_revenue", "total_invoices", "avg_basket_size", "unique_products"}

// CustomerFeatureVector is recomputed in full from fact_sales on every run.
type CustomerFeatureVector struct {
	CustomerID     string  `gorm:"column:customer_id" json:"customer_id"`
	TotalRevenue   float64 `gorm:"column:total_revenue" json:"total_revenue"`
	TotalInvoices  int     `gorm:"column:total_invoices" json:"total_invoices"`
	AvgBasketSize  float64 `gorm:"column:avg_basket_size" json:"avg_basket_size"`
	UniqueProducts int     `gorm:"column:unique_products" json:"unique_products"`
}

// Values returns the feature columns in FeatureNames order.
func (f CustomerFeatureVector) Values() []float64 {
	return []float64{f.TotalRevenue, float64(f.TotalInvoices), f.AvgBasketSize, float64(f.UniqueProducts)}
}

// FeatureMatrix flattens rows into a row-major n×4 slice, preserving row order.
func FeatureMatrix(rows []CustomerFeatureVector) []float64 {
	out := make([]float64, 0, len(rows)*len(FeatureNames))
	for _, r := range rows {
		out = append(out, r.Values()...)
	}
	return out
}
