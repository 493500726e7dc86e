package dataset

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"amazon-dashboard/internal/models"
)

func sequentialDataset(n int) *Dataset {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = testProduct(fmt.Sprintf("product-%d", i), fmt.Sprintf("cat-%d", i%7), "sub", 4, int64(i), float64(i), float64(i))
	}
	return FromProducts(products)
}

func TestSample_Deterministic(t *testing.T) {
	ds := sequentialDataset(1000)

	for _, f := range []float64{0.01, 0.10, 1.0} {
		t.Run(fmt.Sprint(f), func(t *testing.T) {
			a, err := Sample(ds, f, DefaultSeed)
			if err != nil {
				t.Fatalf("Sample() error = %v", err)
			}
			b, err := Sample(ds, f, DefaultSeed)
			if err != nil {
				t.Fatalf("Sample() error = %v", err)
			}
			if a.Len() != b.Len() {
				t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
			}
			for i := 0; i < a.Len(); i++ {
				if a.Name(i) != b.Name(i) {
					t.Fatalf("row %d differs: %q vs %q", i, a.Name(i), b.Name(i))
				}
			}
		})
	}
}

func TestSample_SeedChangesRows(t *testing.T) {
	ds := sequentialDataset(1000)
	a, _ := Sample(ds, 0.1, DefaultSeed)
	b, _ := Sample(ds, 0.1, DefaultSeed+1)

	same := true
	for i := 0; i < a.Len(); i++ {
		if a.Name(i) != b.Name(i) {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced the same sample")
	}
}

func TestSample_Size(t *testing.T) {
	tests := []struct {
		n        int
		fraction float64
		want     int
	}{
		{1000, 0.01, 10},
		{1000, 0.10, 100},
		{1000, 1.0, 1000},
		{10, 0.25, 2},
		{3, 0.01, 0},
	}
	for _, tt := range tests {
		s, err := Sample(sequentialDataset(tt.n), tt.fraction, DefaultSeed)
		if err != nil {
			t.Fatalf("Sample(%d, %v) error = %v", tt.n, tt.fraction, err)
		}
		if s.Len() != tt.want {
			t.Errorf("Sample(%d, %v) size = %d, want %d", tt.n, tt.fraction, s.Len(), tt.want)
		}
		if d := s.Len() - int(math.Round(tt.fraction*float64(tt.n))); d < -1 || d > 1 {
			t.Errorf("size %d too far from %v*%d", s.Len(), tt.fraction, tt.n)
		}
	}
}

func TestSample_WithoutReplacement(t *testing.T) {
	s, err := Sample(sequentialDataset(500), 1.0, DefaultSeed)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	seen := make(map[string]bool)
	for i := 0; i < s.Len(); i++ {
		if seen[s.Name(i)] {
			t.Fatalf("row %q drawn twice", s.Name(i))
		}
		seen[s.Name(i)] = true
	}
	if len(seen) != 500 {
		t.Errorf("full sample has %d distinct rows, want 500", len(seen))
	}
}

func TestSample_InvalidFraction(t *testing.T) {
	ds := sequentialDataset(10)
	for _, f := range []float64{0, -0.5, 1.01, math.NaN(), math.Inf(1)} {
		if _, err := Sample(ds, f, DefaultSeed); !errors.Is(err, ErrInvalidFraction) {
			t.Errorf("Sample(%v) error = %v, want ErrInvalidFraction", f, err)
		}
	}
}

func TestSample_Empty(t *testing.T) {
	s, err := Sample(FromProducts(nil), 0.5, DefaultSeed)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if s == nil || s.Len() != 0 {
		t.Errorf("Sample(empty) = %v rows, want 0", s.Len())
	}
}

func TestFractionFromPercent(t *testing.T) {
	for _, p := range []int{1, 10, 55, 100} {
		f, err := FractionFromPercent(p)
		if err != nil || f != float64(p)/100 {
			t.Errorf("FractionFromPercent(%d) = %v, %v", p, f, err)
		}
	}
	for _, p := range []int{0, -1, 101} {
		if _, err := FractionFromPercent(p); !errors.Is(err, ErrInvalidFraction) {
			t.Errorf("FractionFromPercent(%d) error = %v, want ErrInvalidFraction", p, err)
		}
	}
}

func BenchmarkSample(b *testing.B) {
	ds := sequentialDataset(100000)
	for b.Loop() {
		if _, err := Sample(ds, 0.1, DefaultSeed); err != nil {
			b.Fatal(err)
		}
	}
}
