package dataset

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"amazon-dashboard/internal/models"
)

func assertSameDataset(t *testing.T, got, want *Dataset) {
	t.Helper()
	if got.Len() != want.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), want.Len())
	}
	sameFloat := func(a, b float64) bool {
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	}
	for i := 0; i < want.Len(); i++ {
		g, w := got.Record(i), want.Record(i)
		if g.Name != w.Name || g.MainCategory != w.MainCategory || g.SubCategory != w.SubCategory {
			t.Errorf("row %d labels = %q/%q/%q, want %q/%q/%q", i, g.Name, g.MainCategory, g.SubCategory, w.Name, w.MainCategory, w.SubCategory)
		}
		if g.NoOfRatings != w.NoOfRatings {
			t.Errorf("row %d no_of_ratings = %v, want %v", i, g.NoOfRatings, w.NoOfRatings)
		}
		if !sameFloat(g.Ratings, w.Ratings) || !sameFloat(g.ActualPrice, w.ActualPrice) ||
			!sameFloat(g.DiscountPrice, w.DiscountPrice) || !sameFloat(g.DiscountPercentage, w.DiscountPercentage) {
			t.Errorf("row %d numbers = %+v, want %+v", i, g, w)
		}
	}
}

func TestColumnar_RoundTrip(t *testing.T) {
	want := testDataset()

	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(context.Background(), "memory", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	assertSameDataset(t, got, want)

	if levels := got.MainCategories().Levels(); len(levels) != 2 {
		t.Errorf("levels = %v", levels)
	}
}

func TestColumnar_RoundTripEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FromProducts(nil)); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(context.Background(), "memory", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestColumnar_WriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products"+FileExt)
	want := sequentialDataset(2500)

	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	assertSameDataset(t, got, want)

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.pcol"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadFile() error = %v, want ErrNotFound", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, should wrap os.ErrNotExist", err)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testDataset()); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	valid := buf.Bytes()

	flip := func(i int) []byte {
		b := bytes.Clone(valid)
		b[i] ^= 0xff
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("PCOL")},
		{"bad begin magic", append([]byte("XXXX"), valid[4:]...)},
		{"bad end magic", append(bytes.Clone(valid[:len(valid)-4]), "XXXX"...)},
		{"truncated", valid[:len(valid)/2]},
		{"bad metadata offset", flip(len(valid) - footerSize + 7)},
		{"corrupt column block", flip(len(beginMagic))},
		{"column offset overflows", withMeta(fileMeta{Columns: []columnMeta{
			{Name: ColName, Type: colText, Offset: math.MaxInt64 - 2, Size: 10},
		}})},
		{"column past metadata", withMeta(fileMeta{Columns: []columnMeta{
			{Name: ColName, Type: colText, Offset: int64(len(beginMagic)), Size: 1 << 20},
		}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(context.Background(), "corrupt", tt.data)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Decode() error = %v, want *ParseError", err)
			}
		})
	}
}

// withMeta builds a file that has no column blocks, only the given metadata.
func withMeta(meta fileMeta) []byte {
	b := []byte(beginMagic)
	b = append(b, encodeMeta(meta)...)
	b = binary.LittleEndian.AppendUint64(b, uint64(len(beginMagic)))
	return append(b, endMagic...)
}

func TestDecode_InfiniteValue(t *testing.T) {
	ds := FromProducts([]models.Product{
		testProduct("Gold Bar", "Jewellery", "Gold", 4, 10, math.Inf(1), 100),
	})
	var buf bytes.Buffer
	if err := Encode(&buf, ds); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	_, err := Decode(context.Background(), "inf", buf.Bytes())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Decode() error = %v, want *ParseError", err)
	}
	if pe.Column != ColActualPrice && pe.Column != ColDiscountPercentage {
		t.Errorf("ParseError.Column = %q, want a price column", pe.Column)
	}
}

func TestZigZag(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 63, -64, math.MaxInt64, math.MinInt64} {
		if got := ZigZagDecode(ZigZagEncode(n)); got != n {
			t.Errorf("ZigZagDecode(ZigZagEncode(%d)) = %d", n, got)
		}
	}
	if ZigZagEncode(-1) != 1 || ZigZagEncode(1) != 2 {
		t.Error("small magnitudes should map to small codes")
	}
}

func BenchmarkDecode(b *testing.B) {
	var buf bytes.Buffer
	if err := Encode(&buf, sequentialDataset(100000)); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()
	ctx := context.Background()
	for b.Loop() {
		if _, err := Decode(ctx, "bench", data); err != nil {
			b.Fatal(err)
		}
	}
}
