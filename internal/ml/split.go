package ml

import (
	"fmt"
	"math"
	"sort"

	apperr "github.com/yungbote/retail-intelligence/internal/pkg/errors"
)

// StratifiedSplit partitions row indices into train and test sets so each
// class keeps roughly its overall proportion in both. Every class needs at
// least two members so it can appear on both sides.
func StratifiedSplit(y []int, testSize float64, seed uint64) (train, test []int, err error) {
	n := len(y)
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("%w: test size must be in (0,1), got %v", apperr.ErrInvalidArgument, testSize)
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: %d samples", apperr.ErrInsufficientSamples, n)
	}

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, members := range byClass {
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has a single member", apperr.ErrInsufficientSamples, c)
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < len(classes) {
		nTest = len(classes)
	}
	if n-nTest < len(classes) {
		return nil, nil, fmt.Errorf("%w: %d samples cannot cover %d classes on both sides", apperr.ErrInsufficientSamples, n, len(classes))
	}

	alloc := allocateTest(byClass, classes, n, nTest)
	rng := newRand(seed)
	for _, c := range classes {
		members := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		test = append(test, members[:alloc[c]]...)
		train = append(train, members[alloc[c]:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// allocateTest splits nTest across classes by largest remainder, keeping at
// least one row per class on each side.
func allocateTest(byClass map[int][]int, classes []int, n, nTest int) map[int]int {
	alloc := make(map[int]int, len(classes))
	type rem struct {
		c    int
		frac float64
	}
	rems := make([]rem, 0, len(classes))
	used := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		a := int(math.Floor(exact))
		if a < 1 {
			a = 1
		}
		if a > len(byClass[c])-1 {
			a = len(byClass[c]) - 1
		}
		alloc[c] = a
		used += a
		rems = append(rems, rem{c: c, frac: exact - math.Floor(exact)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for used < nTest {
		moved := false
		for _, r := range rems {
			if used >= nTest {
				break
			}
			if alloc[r.c] < len(byClass[r.c])-1 {
				alloc[r.c]++
				used++
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	for used > nTest {
		moved := false
		for i := len(rems) - 1; i >= 0 && used > nTest; i-- {
			if alloc[rems[i].c] > 1 {
				alloc[rems[i].c]--
				used--
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return alloc
}

// Take gathers rows of X and labels of y at the given indices.
func Take(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for k, i := range idx {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}
