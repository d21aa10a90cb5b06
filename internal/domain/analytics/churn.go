package analytics

import "time"

const DefaultChurnThresholdDays = 180

// ChurnLabel is nil-valued for customers missing from the invoice history.
type ChurnLabel struct {
	CustomerID            string     `json:"customer_id"`
	LastPurchaseDate      *time.Time `json:"last_purchase_date,omitempty"`
	DaysSinceLastPurchase *int       `json:"days_since_last_purchase,omitempty"`
	IsChurned             *bool      `json:"is_churned,omitempty"`
}

func (l ChurnLabel) Labeled() bool { return l.IsChurned != nil }

// LabeledCustomer is one row of the churn-labeled output.
type LabeledCustomer struct {
	ClusteredCustomer
	Churn ChurnLabel `json:"churn"`
}

// ScoredCustomer is one row of the scoring output.
type ScoredCustomer struct {
	CustomerFeatureVector
	ClusterIndex     int     `json:"cluster"`
	SegmentName      string  `json:"segment"`
	ChurnProbability float64 `json:"churn_probability"`
	ChurnPredicted   bool    `json:"churn_pred"`
}
