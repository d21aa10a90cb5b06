package source

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

const sampleCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART  T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850.0,United Kingdom
536365,71053,WHITE METAL LANTERN,6,12/1/2010 08:26,3.39,17850,United Kingdom
536366,22633,HAND WARMER UNION JACK,6,2010-12-01 08:28:00,1.85,,United Kingdom
536367,84879,ASSORTED COLOUR BIRD ORNAMENT,32,2010-12-01 08:34:00,1.69,13047,

`

func TestReadCSV(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	first := recs[0]
	if first.CustomerID != "17850" || recs[1].CustomerID != "17850" {
		t.Fatalf("customer ids not normalized: %q %q", first.CustomerID, recs[1].CustomerID)
	}
	if first.Description != "WHITE HANGING HEART T-LIGHT HOLDER" {
		t.Fatalf("description: %q", first.Description)
	}
	if first.Quantity != 6 || first.UnitPrice.String() != "2.55" {
		t.Fatalf("quantity/price: %d %s", first.Quantity, first.UnitPrice)
	}
	if got := first.TotalAmount().String(); got != "15.3" {
		t.Fatalf("total amount: %s", got)
	}
	want := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	if !first.InvoiceDate.Equal(want) || !recs[1].InvoiceDate.Equal(want) {
		t.Fatalf("dates: %v %v", first.InvoiceDate, recs[1].InvoiceDate)
	}
	if first.Line != 2 || recs[3].Line != 5 {
		t.Fatalf("line numbers: %d %d", first.Line, recs[3].Line)
	}
}

func TestReadCSVHeaderAliases(t *testing.T) {
	in := "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country\n" +
		"489434,85048,LED CANDLE,12,2009-12-01 07:45:00,6.95,13085,United Kingdom\n"
	recs, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(recs) != 1 || recs[0].InvoiceNo != "489434" || recs[0].CustomerID != "13085" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("InvoiceNo,StockCode\n1,2\n")); !apperr.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected missing-column error, got %v", err)
	}
	bad := strings.Replace(sampleCSV, ",6,2010-12-01 08:28:00", ",six,2010-12-01 08:28:00", 1)
	_, err := ReadCSV(strings.NewReader(bad))
	if err == nil || !strings.Contains(err.Error(), "line 4") {
		t.Fatalf("expected line 4 error, got %v", err)
	}
	if _, err := ReadFile("input.parquet"); !apperr.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
}

func TestClean(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	kept, stats := Clean(recs)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if stats.Input != 4 || stats.Kept != 2 || stats.MissingCustomer != 1 || stats.MissingCountry != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	max, ok := MaxInvoiceDate(recs)
	if !ok || !max.Equal(time.Date(2010, 12, 1, 8, 34, 0, 0, time.UTC)) {
		t.Fatalf("max invoice date: %v %v", max, ok)
	}
}

func TestNormalizeCustomerID(t *testing.T) {
	cases := map[string]string{
		" 17850.0 ": "17850",
		"17850":     "17850",
		"c123":      "C123",
		"nan":       "",
		"":          "",
		"12.05":     "12.05",
	}
	for in, want := range cases {
		if got := NormalizeCustomerID(in); got != want {
			t.Fatalf("NormalizeCustomerID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"InvoiceNo", "StockCode", "Description", "Quantity", "InvoiceDate", "UnitPrice", "CustomerID", "Country"},
		{"536365", "85123A", "WHITE HANGING HEART T-LIGHT HOLDER", 6, "2010-12-01 08:26:00", 2.55, 17850, "United Kingdom"},
		{"536370", "22728", "ALARM CLOCK BAKELIKE PINK", 24, 40513.5, 3.75, 12583, "France"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].CustomerID != "17850" || recs[1].Country != "France" || recs[1].Quantity != 24 {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if want := time.Date(2010, 12, 1, 12, 0, 0, 0, time.UTC); !recs[1].InvoiceDate.Equal(want) {
		t.Fatalf("serial date: got %v want %v", recs[1].InvoiceDate, want)
	}
	if recs[1].UnitPrice.String() != "3.75" {
		t.Fatalf("price: %s", recs[1].UnitPrice)
	}
}
