package ml

import (
	"fmt"
	"sort"
	"strings"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// ClassMetrics holds precision, recall and F1 for one class or an average.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// ClassificationReport summarizes predictions against ground truth. Ratios
// with a zero denominator are reported as 0.
type ClassificationReport struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Confusion   [][]int        `json:"confusion_matrix"`
	Total       int            `json:"total"`
}

// NewClassificationReport scores yPred against yTrue. names maps class
// values to display labels; missing entries use the numeric value.
func NewClassificationReport(yTrue, yPred []int, names map[int]string) (*ClassificationReport, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%w: %d truths but %d predictions", apperr.ErrInvalidArgument, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("%w: no samples to evaluate", apperr.ErrInsufficientSamples)
	}

	set := map[int]struct{}{}
	for i := range yTrue {
		set[yTrue[i]] = struct{}{}
		set[yPred[i]] = struct{}{}
	}
	labels := make([]int, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	conf := make([][]int, len(labels))
	for i := range conf {
		conf[i] = make([]int, len(labels))
	}
	correct := 0
	for i := range yTrue {
		conf[pos[yTrue[i]]][pos[yPred[i]]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	r := &ClassificationReport{Confusion: conf, Total: len(yTrue)}
	r.Accuracy = float64(correct) / float64(len(yTrue))
	for i, l := range labels {
		tp := conf[i][i]
		predicted, actual := 0, 0
		for j := range labels {
			predicted += conf[j][i]
			actual += conf[i][j]
		}
		cm := ClassMetrics{Label: fmt.Sprint(l), Support: actual}
		if name, ok := names[l]; ok {
			cm.Label = name
		}
		cm.Precision = ratio(tp, predicted)
		cm.Recall = ratio(tp, actual)
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		r.Classes = append(r.Classes, cm)
	}

	r.MacroAvg = ClassMetrics{Label: "macro avg", Support: r.Total}
	r.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: r.Total}
	for _, c := range r.Classes {
		k := float64(len(r.Classes))
		w := float64(c.Support) / float64(r.Total)
		r.MacroAvg.Precision += c.Precision / k
		r.MacroAvg.Recall += c.Recall / k
		r.MacroAvg.F1 += c.F1 / k
		r.WeightedAvg.Precision += c.Precision * w
		r.WeightedAvg.Recall += c.Recall * w
		r.WeightedAvg.F1 += c.F1 * w
	}
	return r, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report as a fixed-width table.
func (r *ClassificationReport) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	for _, c := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	return b.String()
}
