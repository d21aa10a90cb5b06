package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

const (
	DefaultLogRegC       = 1.0
	DefaultLogRegMaxIter = 100
	DefaultLogRegTol     = 1e-8
)

// LogisticRegression is a binary classifier with an L2 penalty on the
// coefficients. The intercept is not penalized. Fit minimizes
//
//	0.5*||w||^2 + C * sum(logloss)
//
// by Newton iterations.
type LogisticRegression struct {
	C          float64   `json:"c"`
	MaxIter    int       `json:"max_iter"`
	Tol        float64   `json:"tol"`
	Coef       []float64 `json:"coef"`
	Intercept  float64   `json:"intercept"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
}

func NewLogisticRegression(c float64, maxIter int) *LogisticRegression {
	if c <= 0 {
		c = DefaultLogRegC
	}
	if maxIter <= 0 {
		maxIter = DefaultLogRegMaxIter
	}
	return &LogisticRegression{C: c, MaxIter: maxIter, Tol: DefaultLogRegTol}
}

// Fit trains on labels in {0,1}.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	d, err := checkMatrix(X)
	if err != nil {
		return err
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", apperr.ErrInvalidArgument, len(X), len(y))
	}
	seen := [2]bool{}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: label %d at row %d is not binary", apperr.ErrInvalidArgument, label, i)
		}
		seen[label] = true
	}
	if !seen[0] || !seen[1] {
		return fmt.Errorf("%w: cannot fit classifier", apperr.ErrSingleClass)
	}
	if m.Tol <= 0 {
		m.Tol = DefaultLogRegTol
	}

	n, p := len(X), d+1
	design := mat.NewDense(n, p, nil)
	for i, row := range X {
		for j, v := range row {
			design.Set(i, j, v)
		}
		design.Set(i, d, 1)
	}

	w := make([]float64, p)
	grad := mat.NewVecDense(p, nil)
	hess := mat.NewDense(p, p, nil)
	probs := make([]float64, n)

	m.Converged = false
	m.Iterations = 0
	for it := 1; it <= m.MaxIter; it++ {
		m.Iterations = it
		for i := 0; i < n; i++ {
			probs[i] = sigmoid(floats.Dot(design.RawRowView(i), w))
		}

		// gradient = C * X^T (p - y) + [w, 0]
		for j := 0; j < p; j++ {
			g := 0.0
			for i := 0; i < n; i++ {
				g += design.At(i, j) * (probs[i] - float64(y[i]))
			}
			g *= m.C
			if j < d {
				g += w[j]
			}
			grad.SetVec(j, g)
		}

		// hessian = C * X^T S X + diag(1,...,1,eps)
		for a := 0; a < p; a++ {
			for b := a; b < p; b++ {
				h := 0.0
				for i := 0; i < n; i++ {
					s := probs[i] * (1 - probs[i])
					h += design.At(i, a) * design.At(i, b) * s
				}
				h *= m.C
				if a == b {
					if a < d {
						h += 1
					} else {
						h += 1e-10
					}
				}
				hess.Set(a, b, h)
				hess.Set(b, a, h)
			}
		}

		var step mat.VecDense
		if err := step.SolveVec(hess, grad); err != nil {
			return fmt.Errorf("newton step %d: %w", it, err)
		}
		maxStep := 0.0
		for j := 0; j < p; j++ {
			s := step.AtVec(j)
			w[j] -= s
			maxStep = math.Max(maxStep, math.Abs(s))
		}
		if maxStep < m.Tol {
			m.Converged = true
			break
		}
	}

	m.Coef = append([]float64(nil), w[:d]...)
	m.Intercept = w[d]
	return nil
}

// PredictProba returns P(y=1 | x).
func (m *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if m.Coef == nil {
		return 0, fmt.Errorf("%w: model is not fitted", apperr.ErrInvalidArgument)
	}
	if len(x) != len(m.Coef) {
		return 0, fmt.Errorf("%w: got %d features, model has %d", apperr.ErrFeatureMismatch, len(x), len(m.Coef))
	}
	return sigmoid(floats.Dot(m.Coef, x) + m.Intercept), nil
}

// DecisionThreshold is exclusive: a probability of exactly 0.5 is the negative
// class, the same as a zero decision function.
const DecisionThreshold = 0.5

// Predict labels rows whose probability exceeds DecisionThreshold.
func (m *LogisticRegression) Predict(X [][]float64) ([]int, error) {
	out := make([]int, len(X))
	for i, x := range X {
		p, err := m.PredictProba(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if p > DecisionThreshold {
			out[i] = 1
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
