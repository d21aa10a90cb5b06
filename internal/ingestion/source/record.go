package source

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one line item from the transaction export, before any warehouse resolution.
type RawRecord struct {
	Line        int
	InvoiceNo   string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	UnitPrice   decimal.Decimal
	CustomerID  string
	Country     string
}

// TotalAmount is quantity × unit price.
func (r RawRecord) TotalAmount() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// CleanStats counts what the required-field filter dropped.
type CleanStats struct {
	Input           int `json:"input"`
	Kept            int `json:"kept"`
	MissingCustomer int `json:"missing_customer"`
	MissingCountry  int `json:"missing_country"`
}

// Clean drops rows missing a customer identifier or a country. A row missing
// both is counted once, as missing customer.
func Clean(records []RawRecord) ([]RawRecord, CleanStats) {
	stats := CleanStats{Input: len(records)}
	out := make([]RawRecord, 0, len(records))
	for _, r := range records {
		switch {
		case r.CustomerID == "":
			stats.MissingCustomer++
		case r.Country == "":
			stats.MissingCountry++
		default:
			out = append(out, r)
		}
	}
	stats.Kept = len(out)
	return out, stats
}

// MaxInvoiceDate returns the latest invoice timestamp across all records.
func MaxInvoiceDate(records []RawRecord) (time.Time, bool) {
	var max time.Time
	found := false
	for _, r := range records {
		if r.InvoiceDate.IsZero() {
			continue
		}
		if !found || r.InvoiceDate.After(max) {
			max = r.InvoiceDate
			found = true
		}
	}
	return max, found
}
