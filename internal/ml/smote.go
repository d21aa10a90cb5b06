package ml

import (
	"fmt"
	"sort"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

const DefaultSMOTENeighbors = 5

// SMOTEConfig controls minority oversampling.
type SMOTEConfig struct {
	KNeighbors int    `json:"k_neighbors"`
	Seed       uint64 `json:"seed"`
}

// SampleOrigin records where a resampled row came from. For input rows Base
// and Neighbor both equal the input index; synthetic rows interpolate between
// two minority input rows.
type SampleOrigin struct {
	Synthetic bool `json:"synthetic"`
	Base      int  `json:"base"`
	Neighbor  int  `json:"neighbor"`
}

// Resampled is the balanced output of SMOTE. Input rows come first, in input
// order, followed by synthetic rows.
type Resampled struct {
	X       [][]float64
	Y       []int
	Origins []SampleOrigin
}

// SyntheticCount is the number of generated rows.
func (r *Resampled) SyntheticCount() int {
	n := 0
	for _, o := range r.Origins {
		if o.Synthetic {
			n++
		}
	}
	return n
}

// SMOTE oversamples the minority class of a binary label set until both
// classes have equal counts. Each synthetic row lies on the segment between a
// minority row and one of its k nearest minority neighbors. Only the rows
// passed in are ever used as parents.
func SMOTE(X [][]float64, y []int, cfg SMOTEConfig) (*Resampled, error) {
	if _, err := checkMatrix(X); err != nil {
		return nil, err
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", apperr.ErrInvalidArgument, len(X), len(y))
	}
	if cfg.KNeighbors <= 0 {
		cfg.KNeighbors = DefaultSMOTENeighbors
	}

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	if len(byClass) < 2 {
		return nil, fmt.Errorf("%w: cannot oversample", apperr.ErrSingleClass)
	}
	if len(byClass) > 2 {
		return nil, fmt.Errorf("%w: SMOTE expects binary labels, got %d classes", apperr.ErrInvalidArgument, len(byClass))
	}
	classes := make([]int, 0, 2)
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	minority, majority := classes[0], classes[1]
	if len(byClass[minority]) > len(byClass[majority]) {
		minority, majority = majority, minority
	}
	minIdx := byClass[minority]
	need := len(byClass[majority]) - len(minIdx)

	out := &Resampled{
		X:       cloneRows(X),
		Y:       append([]int(nil), y...),
		Origins: make([]SampleOrigin, len(X), len(X)+need),
	}
	for i := range X {
		out.Origins[i] = SampleOrigin{Base: i, Neighbor: i}
	}
	if need == 0 {
		return out, nil
	}
	if len(minIdx) < 2 {
		return nil, fmt.Errorf("%w: minority class has %d sample(s), SMOTE needs at least 2", apperr.ErrInsufficientSamples, len(minIdx))
	}

	k := cfg.KNeighbors
	if k > len(minIdx)-1 {
		k = len(minIdx) - 1
	}
	neighbors := nearestWithin(X, minIdx, k)
	rng := newRand(cfg.Seed)

	for s := 0; s < need; s++ {
		b := rng.IntN(len(minIdx))
		nb := neighbors[b][rng.IntN(k)]
		gap := rng.Float64()
		base, other := X[minIdx[b]], X[nb]
		row := make([]float64, len(base))
		for j := range base {
			row[j] = base[j] + gap*(other[j]-base[j])
		}
		out.X = append(out.X, row)
		out.Y = append(out.Y, minority)
		out.Origins = append(out.Origins, SampleOrigin{Synthetic: true, Base: minIdx[b], Neighbor: nb})
	}
	return out, nil
}

// nearestWithin returns, for each member of idx, the input indices of its k
// nearest other members. Ties are broken by input index.
func nearestWithin(X [][]float64, idx []int, k int) [][]int {
	out := make([][]int, len(idx))
	type cand struct {
		i int
		d float64
	}
	for a, ia := range idx {
		cands := make([]cand, 0, len(idx)-1)
		for _, ib := range idx {
			if ib == ia {
				continue
			}
			cands = append(cands, cand{i: ib, d: sqDist(X[ia], X[ib])})
		}
		sort.Slice(cands, func(p, q int) bool {
			if cands[p].d != cands[q].d {
				return cands[p].d < cands[q].d
			}
			return cands[p].i < cands[q].i
		})
		nn := make([]int, k)
		for j := 0; j < k; j++ {
			nn[j] = cands[j].i
		}
		out[a] = nn
	}
	return out
}
