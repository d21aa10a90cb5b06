package artifacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	types "github.com/yungbote/retail-intelligence/internal/domain"
	"github.com/yungbote/retail-intelligence/internal/ml"
	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

var featureHeader = append([]string{"customer_id"}, types.FeatureNames...)

func featureCells(f types.CustomerFeatureVector) []string {
	return []string{
		f.CustomerID,
		FormatFloat(f.TotalRevenue),
		strconv.Itoa(f.TotalInvoices),
		FormatFloat(f.AvgBasketSize),
		strconv.Itoa(f.UniqueProducts),
	}
}

func WriteFeatures(path string, rows []types.CustomerFeatureVector) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = featureCells(r)
	}
	return writeCSV(path, featureHeader, out)
}

// ReadFeatures loads a feature table. The header must carry customer_id and
// every feature column; extra columns are ignored.
func ReadFeatures(path string) ([]types.CustomerFeatureVector, error) {
	var out []types.CustomerFeatureVector
	err := readTable(path, featureHeader, func(rec []string, idx map[string]int) error {
		v, err := parseFeatureRow(rec, idx)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// ReadClustered loads the clustered-customers table written by WriteClustered.
func ReadClustered(path string) ([]types.ClusteredCustomer, error) {
	cols := append(append([]string{}, featureHeader...), "cluster", "segment")
	var out []types.ClusteredCustomer
	err := readTable(path, cols, func(rec []string, idx map[string]int) error {
		c, err := parseClusteredRow(rec, idx)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// ReadChurnLabeled loads the churn-labeled table. Empty churn cells come back
// as an unlabeled customer.
func ReadChurnLabeled(path string) ([]types.LabeledCustomer, error) {
	cols := append(append([]string{}, featureHeader...), "cluster", "segment", "last_purchase_date", "days_since_last_purchase", "is_churned")
	var out []types.LabeledCustomer
	err := readTable(path, cols, func(rec []string, idx map[string]int) error {
		c, err := parseClusteredRow(rec, idx)
		if err != nil {
			return err
		}
		row := types.LabeledCustomer{ClusteredCustomer: c, Churn: types.ChurnLabel{CustomerID: c.CustomerID}}
		if s := cellAt(rec, idx, "last_purchase_date"); s != "" {
			t, err := time.Parse("2006-01-02 15:04:05", s)
			if err != nil {
				return fmt.Errorf("%w: last_purchase_date", apperr.ErrInvalidArgument)
			}
			row.Churn.LastPurchaseDate = &t
		}
		if s := cellAt(rec, idx, "days_since_last_purchase"); s != "" {
			d, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%w: days_since_last_purchase", apperr.ErrInvalidArgument)
			}
			row.Churn.DaysSinceLastPurchase = &d
		}
		if s := cellAt(rec, idx, "is_churned"); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("%w: is_churned", apperr.ErrInvalidArgument)
			}
			row.Churn.IsChurned = &b
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func readTable(path string, required []string, row func(rec []string, idx map[string]int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("%w: %s missing column %q", apperr.ErrFeatureMismatch, path, col)
		}
	}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := row(rec, idx); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func cellAt(rec []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseClusteredRow(rec []string, idx map[string]int) (types.ClusteredCustomer, error) {
	f, err := parseFeatureRow(rec, idx)
	if err != nil {
		return types.ClusteredCustomer{}, err
	}
	c := types.ClusteredCustomer{CustomerFeatureVector: f, SegmentName: cellAt(rec, idx, "segment")}
	if c.ClusterIndex, err = strconv.Atoi(cellAt(rec, idx, "cluster")); err != nil {
		return c, fmt.Errorf("%w: cluster", apperr.ErrInvalidArgument)
	}
	return c, nil
}

func parseFeatureRow(rec []string, idx map[string]int) (types.CustomerFeatureVector, error) {
	cell := func(col string) string { return cellAt(rec, idx, col) }
	var (
		v   types.CustomerFeatureVector
		err error
	)
	v.CustomerID = cell("customer_id")
	if v.TotalRevenue, err = strconv.ParseFloat(cell("total_revenue"), 64); err != nil {
		return v, fmt.Errorf("%w: total_revenue", apperr.ErrInvalidArgument)
	}
	if v.TotalInvoices, err = strconv.Atoi(cell("total_invoices")); err != nil {
		return v, fmt.Errorf("%w: total_invoices", apperr.ErrInvalidArgument)
	}
	if v.AvgBasketSize, err = strconv.ParseFloat(cell("avg_basket_size"), 64); err != nil {
		return v, fmt.Errorf("%w: avg_basket_size", apperr.ErrInvalidArgument)
	}
	if v.UniqueProducts, err = strconv.Atoi(cell("unique_products")); err != nil {
		return v, fmt.Errorf("%w: unique_products", apperr.ErrInvalidArgument)
	}
	return v, nil
}

func WriteClustered(path string, rows []types.ClusteredCustomer) error {
	header := append(append([]string{}, featureHeader...), "cluster", "segment")
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append(featureCells(r.CustomerFeatureVector), strconv.Itoa(r.ClusterIndex), r.SegmentName)
	}
	return writeCSV(path, header, out)
}

// WriteChurnLabeled leaves the churn cells empty for unlabeled customers.
func WriteChurnLabeled(path string, rows []types.LabeledCustomer) error {
	header := append(append([]string{}, featureHeader...),
		"cluster", "segment", "last_purchase_date", "days_since_last_purchase", "is_churned")
	out := make([][]string, len(rows))
	for i, r := range rows {
		last, days, churned := "", "", ""
		if r.Churn.LastPurchaseDate != nil {
			last = r.Churn.LastPurchaseDate.UTC().Format("2006-01-02 15:04:05")
		}
		if r.Churn.DaysSinceLastPurchase != nil {
			days = strconv.Itoa(*r.Churn.DaysSinceLastPurchase)
		}
		if r.Churn.IsChurned != nil {
			churned = strconv.FormatBool(*r.Churn.IsChurned)
		}
		out[i] = append(featureCells(r.CustomerFeatureVector),
			strconv.Itoa(r.ClusterIndex), r.SegmentName, last, days, churned)
	}
	return writeCSV(path, header, out)
}

func WriteElbow(path string, points []ml.ElbowPoint) error {
	out := make([][]string, len(points))
	for i, p := range points {
		out[i] = []string{strconv.Itoa(p.K), FormatFloat(p.Inertia)}
	}
	return writeCSV(path, []string{"k", "inertia"}, out)
}

func WriteScored(path string, rows []types.ScoredCustomer) error {
	header := append(append([]string{}, featureHeader...), "cluster", "segment", "churn_probability", "churn_pred")
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append(featureCells(r.CustomerFeatureVector),
			strconv.Itoa(r.ClusterIndex), r.SegmentName, FormatFloat(r.ChurnProbability), strconv.FormatBool(r.ChurnPredicted))
	}
	return writeCSV(path, header, out)
}

// SegmentSummary is one row of the per-segment profile table.
type SegmentSummary struct {
	Segment           string  `json:"segment"`
	Customers         int     `json:"customers"`
	MeanRevenue       float64 `json:"mean_revenue"`
	MeanBasketSize    float64 `json:"mean_basket_size"`
	MeanProductCount  float64 `json:"mean_unique_products"`
	PredictedChurners int     `json:"predicted_churners"`
	ChurnRate         float64 `json:"churn_rate"`
}

func WriteSegmentSummary(path string, rows []SegmentSummary) error {
	header := []string{"segment", "customers", "mean_revenue", "mean_basket_size", "mean_unique_products", "predicted_churners", "churn_rate"}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.Segment,
			strconv.Itoa(r.Customers),
			FormatFloat(r.MeanRevenue),
			FormatFloat(r.MeanBasketSize),
			FormatFloat(r.MeanProductCount),
			strconv.Itoa(r.PredictedChurners),
			FormatFloat(r.ChurnRate),
		}
	}
	return writeCSV(path, header, out)
}
