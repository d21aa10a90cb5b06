package source

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

const (
	colInvoiceNo   = "invoiceno"
	colStockCode   = "stockcode"
	colDescription = "description"
	colQuantity    = "quantity"
	colInvoiceDate = "invoicedate"
	colUnitPrice   = "unitprice"
	colCustomerID  = "customerid"
	colCountry     = "country"
)

var headerAliases = map[string]string{
	"invoiceno":    colInvoiceNo,
	"invoice":      colInvoiceNo,
	"invoice no":   colInvoiceNo,
	"stockcode":    colStockCode,
	"stock code":   colStockCode,
	"description":  colDescription,
	"quantity":     colQuantity,
	"invoicedate":  colInvoiceDate,
	"invoice date": colInvoiceDate,
	"unitprice":    colUnitPrice,
	"unit price":   colUnitPrice,
	"price":        colUnitPrice,
	"customerid":   colCustomerID,
	"customer id":  colCustomerID,
	"country":      colCountry,
}

var requiredColumns = []string{
	colInvoiceNo, colStockCode, colQuantity, colInvoiceDate, colUnitPrice, colCustomerID, colCountry,
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"2006-01-02",
	"1/2/2006",
}

type columnIndex map[string]int

func resolveHeader(header []string) (columnIndex, error) {
	idx := columnIndex{}
	for i, h := range header {
		canon, ok := headerAliases[NormalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := idx[canon]; !dup {
			idx[canon] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", apperr.ErrInvalidArgument, missing)
	}
	return idx, nil
}

func (c columnIndex) get(row []string, col string) string {
	i, ok := c[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// dateParser turns a raw date cell into a timestamp; spreadsheets and CSV
// exports encode dates differently.
type dateParser func(string) (time.Time, error)

// decodeRows pulls rows from next until io.EOF. firstLine is the 1-based line
// number of the first data row, used in error messages.
func decodeRows(idx columnIndex, next func() ([]string, error), firstLine int, parseDate dateParser) ([]RawRecord, error) {
	var out []RawRecord
	line := firstLine
	for {
		row, err := next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(row) {
			line++
			continue
		}
		rec, err := decodeRow(idx, row, parseDate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec.Line = line
		out = append(out, rec)
		line++
	}
}

func decodeRow(idx columnIndex, row []string, parseDate dateParser) (RawRecord, error) {
	qty, err := parseQuantity(idx.get(row, colQuantity))
	if err != nil {
		return RawRecord{}, err
	}
	price, err := parsePrice(idx.get(row, colUnitPrice))
	if err != nil {
		return RawRecord{}, err
	}
	at, err := parseDate(strings.TrimSpace(idx.get(row, colInvoiceDate)))
	if err != nil {
		return RawRecord{}, err
	}
	return RawRecord{
		InvoiceNo:   strings.TrimSpace(idx.get(row, colInvoiceNo)),
		StockCode:   strings.TrimSpace(idx.get(row, colStockCode)),
		Description: normalizeText(idx.get(row, colDescription)),
		Quantity:    qty,
		InvoiceDate: at,
		UnitPrice:   price,
		CustomerID:  NormalizeCustomerID(idx.get(row, colCustomerID)),
		Country:     normalizeText(idx.get(row, colCountry)),
	}, nil
}

func parseQuantity(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: quantity %q", apperr.ErrInvalidArgument, raw)
	}
	return int(f), nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: unit price %q", apperr.ErrInvalidArgument, raw)
	}
	return d, nil
}

func parseTextDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invoice date %q", apperr.ErrInvalidArgument, raw)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
