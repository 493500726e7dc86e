package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const csvHeader = "name,main_category,sub_category,ratings,no_of_ratings,actual_price,discount_price\n"

func writeCSV(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "products.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCSV_ValidData(t *testing.T) {
	content := "\ufeff" + csvHeader +
		`"Lloyd 1.5 Ton 3 Star Inverter AC",appliances,Air Conditioners,4.2,"2,255","₹58,990","₹32,999"` + "\n" +
		`Puma Running Shoe,men's shoes,Sports Shoes,,,"₹4,999",₹2499` + "\n" +
		`Plain Tee,men's clothing,T-shirts & Polos,3.9,12,NaN,₹299` + "\n"

	ds, err := ReadCSV(context.Background(), "test.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ds.Len())
	}

	if ds.Name(0) != "Lloyd 1.5 Ton 3 Star Inverter AC" || ds.MainCategory(0) != "appliances" {
		t.Errorf("row 0 = %+v", ds.Record(0))
	}
	if n, ok := ds.NoOfRatings(0); !ok || n != 2255 {
		t.Errorf("no_of_ratings = %d, %v, want 2255", n, ok)
	}
	if ds.ActualPrice(0) != 58990 || ds.DiscountPrice(0) != 32999 {
		t.Errorf("prices = %v/%v", ds.ActualPrice(0), ds.DiscountPrice(0))
	}
	if got := ds.DiscountPercentage(1); math.Abs(got-50.01) > 0.01 {
		t.Errorf("derived discount = %v, want about 50", got)
	}
	if !math.IsNaN(ds.Ratings(1)) {
		t.Errorf("empty rating = %v, want NaN", ds.Ratings(1))
	}
	if _, ok := ds.NoOfRatings(1); ok {
		t.Error("empty no_of_ratings should be missing")
	}
	if !math.IsNaN(ds.ActualPrice(2)) || !math.IsNaN(ds.DiscountPercentage(2)) {
		t.Errorf("NaN price row = %+v", ds.Record(2))
	}
}

func TestReadCSV_ExtraColumnsAndOrder(t *testing.T) {
	content := "image,discount_price,Name,MAIN_CATEGORY,sub_category,actual_price,no_of_ratings,ratings,discount_percentage,link\n" +
		"img.png,80,Mug,home,kitchen,100,5,4.0,21.5,http://x\n"

	ds, err := ReadCSV(context.Background(), "test.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	rec := ds.Record(0)
	if rec.Name != "Mug" || rec.ActualPrice != 100 || rec.DiscountPrice != 80 || rec.Ratings != 4 {
		t.Errorf("record = %+v", rec)
	}
	if rec.DiscountPercentage != 21.5 {
		t.Errorf("discount_percentage = %v, want the stored 21.5", rec.DiscountPercentage)
	}
}

func TestReadCSV_InvalidData(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantRow  int
		wantCol  string
		wantText string
	}{
		{
			name:     "empty file",
			content:  "",
			wantText: "empty file",
		},
		{
			name:    "missing column",
			content: "name,main_category,ratings,no_of_ratings,actual_price,discount_price\nA,B,4,1,1,1\n",
			wantCol: ColSubCategory,
		},
		{
			name:    "duplicate column",
			content: "name,name,main_category,sub_category,ratings,no_of_ratings,actual_price,discount_price\n",
			wantCol: ColName,
		},
		{
			name:    "unparsable rating",
			content: csvHeader + "Mug,home,kitchen,4.0,5,100,80\nCup,home,kitchen,good,5,100,80\n",
			wantRow: 2,
			wantCol: ColRatings,
		},
		{
			name:    "rating above five",
			content: csvHeader + "Mug,home,kitchen,7,5,100,80\n",
			wantRow: 1,
			wantCol: ColRatings,
		},
		{
			name:    "fractional count",
			content: csvHeader + "Mug,home,kitchen,4,2.5,100,80\n",
			wantRow: 1,
			wantCol: ColNoOfRatings,
		},
		{
			name:     "price out of range",
			content:  csvHeader + "Mug,home,kitchen,4,2,1e400,80\n",
			wantRow:  1,
			wantCol:  ColActualPrice,
			wantText: "out of range",
		},
		{
			name:    "negative price",
			content: csvHeader + "Mug,home,kitchen,4,2,-100,80\n",
			wantRow: 1,
			wantCol: ColActualPrice,
		},
		{
			name:    "missing category",
			content: csvHeader + "Mug,,kitchen,4,2,100,80\n",
			wantRow: 1,
			wantCol: ColMainCategory,
		},
		{
			name:    "wrong field count",
			content: csvHeader + "Mug,home,kitchen,4,2,100,80\nCup,home\n",
			wantRow: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), "bad.csv", strings.NewReader(tt.content))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("ReadCSV() error = %v, want *ParseError", err)
			}
			if tt.wantRow != 0 && pe.Row != tt.wantRow {
				t.Errorf("Row = %d, want %d", pe.Row, tt.wantRow)
			}
			if tt.wantCol != "" && pe.Column != tt.wantCol {
				t.Errorf("Column = %q, want %q", pe.Column, tt.wantCol)
			}
			if tt.wantText != "" && !strings.Contains(pe.Error(), tt.wantText) {
				t.Errorf("Error() = %q, want it to mention %q", pe.Error(), tt.wantText)
			}
		})
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	ds, err := ReadCSV(context.Background(), "test.csv", strings.NewReader(csvHeader))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ds.Len())
	}
}

func TestReadCSV_ManyBatchesKeepOrder(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(csvHeader)
	rows := batchSize*2 + 17
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "item-%d,cat-%d,sub,4.0,%d,100,90\n", i, i%3, i)
	}

	ds, err := ReadCSV(context.Background(), "big.csv", strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.Len() != rows {
		t.Fatalf("Len() = %d, want %d", ds.Len(), rows)
	}
	for _, i := range []int{0, batchSize - 1, batchSize, rows - 1} {
		if want := fmt.Sprintf("item-%d", i); ds.Name(i) != want {
			t.Errorf("Name(%d) = %q, want %q", i, ds.Name(i), want)
		}
	}
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadCSV(ctx, "test.csv", strings.NewReader(csvHeader+"Mug,home,kitchen,4,5,100,80\n"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ReadCSV() error = %v, want context.Canceled", err)
	}
}

func TestCSVSource(t *testing.T) {
	path := writeCSV(t, t.TempDir(), csvHeader+"Mug,home,kitchen,4,5,100,80\n")

	src := &CSVSource{Path: path}
	if src.Name() != path {
		t.Errorf("Name() = %q, want %q", src.Name(), path)
	}
	ds, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if ds.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ds.Len())
	}

	missing := &CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}
	if _, err := missing.Read(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func BenchmarkReadCSV(b *testing.B) {
	var sb strings.Builder
	sb.WriteString(csvHeader)
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&sb, "Product %d,cat-%d,sub-%d,4.%d,\"%d\",\"₹1,%03d\",₹%d\n", i, i%20, i%100, i%10, i, i%1000, 500+i%400)
	}
	content := sb.String()
	ctx := context.Background()

	for b.Loop() {
		if _, err := ReadCSV(ctx, "bench.csv", strings.NewReader(content)); err != nil {
			b.Fatal(err)
		}
	}
}
