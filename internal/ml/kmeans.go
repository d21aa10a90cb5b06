package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

const (
	DefaultKMeansMaxIter = 300
	DefaultKMeansTol     = 1e-4
	DefaultKMeansNInit   = 10
)

// KMeansConfig controls a clustering run.
type KMeansConfig struct {
	K       int     `json:"k"`
	NInit   int     `json:"n_init"`
	MaxIter int     `json:"max_iter"`
	Tol     float64 `json:"tol"`
	Seed    uint64  `json:"seed"`
}

func (c KMeansConfig) withDefaults() KMeansConfig {
	if c.NInit <= 0 {
		c.NInit = DefaultKMeansNInit
	}
	if c.MaxIter <= 0 {
		c.MaxIter = DefaultKMeansMaxIter
	}
	if c.Tol <= 0 {
		c.Tol = DefaultKMeansTol
	}
	return c
}

// KMeansResult is the best of NInit runs, chosen by inertia.
type KMeansResult struct {
	Centroids  [][]float64 `json:"centroids"`
	Labels     []int       `json:"-"`
	Inertia    float64     `json:"inertia"`
	Iterations int         `json:"iterations"`
}

// KMeans partitions X into cfg.K clusters using k-means++ seeding followed by
// Lloyd iterations. Runs share one seeded stream, so the result is a pure
// function of X and cfg.
func KMeans(X [][]float64, cfg KMeansConfig) (*KMeansResult, error) {
	if _, err := checkMatrix(X); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.K < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", apperr.ErrInvalidArgument, cfg.K)
	}
	if cfg.K > len(X) {
		return nil, fmt.Errorf("%w: k=%d exceeds %d samples", apperr.ErrInvalidArgument, cfg.K, len(X))
	}

	tol := cfg.Tol * meanVariance(X)
	rng := newRand(cfg.Seed)

	var best *KMeansResult
	for run := 0; run < cfg.NInit; run++ {
		centers := kmeansPlusPlus(X, cfg.K, rng)
		res := lloyd(X, centers, cfg.MaxIter, tol)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

// Assign returns the index of the nearest centroid; ties go to the lower index.
func Assign(centroids [][]float64, x []float64) int {
	best, bestD := 0, math.Inf(1)
	for c, center := range centroids {
		if d := sqDist(x, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func meanVariance(X [][]float64) float64 {
	d := len(X[0])
	total := 0.0
	for j := 0; j < d; j++ {
		_, std := stat.PopMeanStdDev(column(X, j), nil)
		total += std * std
	}
	return total / float64(d)
}

// kmeansPlusPlus picks k initial centers. Each new center is the best of
// 2+ln(k) candidates drawn proportionally to squared distance.
func kmeansPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	trials := 2 + int(math.Log(float64(k)))

	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), X[rng.IntN(n)]...))

	closest := make([]float64, n)
	for i := range X {
		closest[i] = sqDist(X[i], centers[0])
	}
	pot := floats.Sum(closest)

	for len(centers) < k {
		bestCand, bestPot := -1, math.Inf(1)
		var bestClosest []float64
		for t := 0; t < trials; t++ {
			cand := sampleWeighted(closest, pot, rng)
			next := make([]float64, n)
			for i := range X {
				next[i] = math.Min(closest[i], sqDist(X[i], X[cand]))
			}
			if p := floats.Sum(next); p < bestPot {
				bestCand, bestPot, bestClosest = cand, p, next
			}
		}
		centers = append(centers, append([]float64(nil), X[bestCand]...))
		closest, pot = bestClosest, bestPot
	}
	return centers
}

func sampleWeighted(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

func lloyd(X [][]float64, centers [][]float64, maxIter int, tol float64) *KMeansResult {
	n, d, k := len(X), len(X[0]), len(centers)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, x := range X {
			if c := Assign(centers, x); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, d)
		}
		for i, x := range X {
			floats.Add(next[labels[i]], x)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				relocateEmpty(X, labels, centers, next, counts, c)
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if !changed || shift <= tol {
			break
		}
	}

	// Final assignment against the settled centers.
	inertia := 0.0
	for i, x := range X {
		labels[i] = Assign(centers, x)
		inertia += sqDist(x, centers[labels[i]])
	}
	return &KMeansResult{Centroids: centers, Labels: labels, Inertia: inertia, Iterations: iter}
}

// relocateEmpty moves an empty cluster onto the point farthest from its
// current center and takes that point out of its old cluster's mean.
func relocateEmpty(X [][]float64, labels []int, centers, next [][]float64, counts []int, empty int) {
	far, farD := -1, -1.0
	for i, x := range X {
		if counts[labels[i]] <= 1 {
			continue
		}
		if d := sqDist(x, centers[labels[i]]); d > farD {
			far, farD = i, d
		}
	}
	if far < 0 {
		copy(next[empty], centers[empty])
		return
	}
	old := labels[far]
	// next[old] still holds a sum while old > empty has not been averaged yet;
	// adjust whichever representation it is in.
	if old < empty {
		floats.Scale(float64(counts[old]), next[old])
	}
	floats.Sub(next[old], X[far])
	counts[old]--
	if old < empty {
		floats.Scale(1/float64(counts[old]), next[old])
	}
	labels[far] = empty
	counts[empty] = 1
	copy(next[empty], X[far])
}

// ElbowPoint is the best inertia found for one k.
type ElbowPoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// Elbow runs KMeans for k = 1..maxK, capped at the sample count. Each k is an
// independent fit seeded from cfg.Seed, so the fits run concurrently and the
// curve does not depend on scheduling.
func Elbow(X [][]float64, maxK int, cfg KMeansConfig) ([]ElbowPoint, error) {
	if _, err := checkMatrix(X); err != nil {
		return nil, err
	}
	if maxK < 1 {
		return nil, fmt.Errorf("%w: max k must be >= 1", apperr.ErrInvalidArgument)
	}
	if maxK > len(X) {
		maxK = len(X)
	}
	out := make([]ElbowPoint, maxK)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := 1; k <= maxK; k++ {
		g.Go(func() error {
			c := cfg
			c.K = k
			res, err := KMeans(X, c)
			if err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			out[k-1] = ElbowPoint{K: k, Inertia: res.Inertia}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
