package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultSeed matches the seed the dashboard has always sampled with.
const DefaultSeed uint64 = 42

// FractionFromPercent converts the 1-100 sample control into a fraction.
func FractionFromPercent(percent int) (float64, error) {
	if percent < 1 || percent > 100 {
		return 0, fmt.Errorf("%w: percent must be between 1 and 100, got %d", ErrInvalidFraction, percent)
	}
	return float64(percent) / 100, nil
}

// SampleSize is the number of rows a sample of the given fraction contains.
func SampleSize(n int, fraction float64) int {
	return int(math.RoundToEven(fraction * float64(n)))
}

// Sample draws round(fraction*n) rows without replacement. The same dataset,
// fraction and seed always produce the same rows in the same order.
func Sample(ds *Dataset, fraction float64, seed uint64) (*Dataset, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: %v not in (0, 1]", ErrInvalidFraction, fraction)
	}

	n := ds.Len()
	if n == 0 {
		return NewBuilder(0).Build(), nil
	}
	k := SampleSize(n, fraction)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	// partial Fisher-Yates: the first k slots end up uniformly chosen
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}

	return ds.Take(perm[:k]), nil
}
