package ml

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// checkMatrix verifies X is non-empty and rectangular, returning its width.
func checkMatrix(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: empty matrix", apperr.ErrInvalidArgument)
	}
	d := len(X[0])
	if d == 0 {
		return 0, fmt.Errorf("%w: zero-width matrix", apperr.ErrInvalidArgument)
	}
	for i, row := range X {
		if len(row) != d {
			return 0, fmt.Errorf("%w: row %d has %d columns, want %d", apperr.ErrInvalidArgument, i, len(row), d)
		}
	}
	return d, nil
}

func column(X [][]float64, j int) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = row[j]
	}
	return out
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func cloneRows(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// newRand returns a PCG source derived from seed. The second word is a fixed
// odd constant so seed 0 still yields a usable stream.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
}
