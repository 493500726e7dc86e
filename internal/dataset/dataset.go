package dataset

import (
	"database/sql"
	"fmt"
	"math"
	"unsafe"

	"amazon-dashboard/internal/models"
)

// Categorical is a dictionary-encoded string column.
type Categorical struct {
	codes  []int32
	levels []string
	index  map[string]int32
}

func newCategorical(capacity int) Categorical {
	return Categorical{
		codes: make([]int32, 0, capacity),
		index: make(map[string]int32),
	}
}

func (c *Categorical) append(v string) {
	code, ok := c.index[v]
	if !ok {
		code = int32(len(c.levels))
		c.levels = append(c.levels, v)
		c.index[v] = code
	}
	c.codes = append(c.codes, code)
}

func (c *Categorical) Code(i int) int32 { return c.codes[i] }

func (c *Categorical) Value(i int) string { return c.levels[c.codes[i]] }

// Levels returns the dictionary. Callers must not modify it.
func (c *Categorical) Levels() []string { return c.levels }

func (c *Categorical) Lookup(v string) (int32, bool) {
	code, ok := c.index[v]
	return code, ok
}

func (c *Categorical) memoryBytes() int64 {
	n := int64(cap(c.codes)) * 4
	n += stringsBytes(c.levels)
	// map entries: key header + value, roughly
	n += int64(len(c.index)) * (int64(unsafe.Sizeof("")) + 4)
	return n
}

// Dataset is an immutable, column-oriented table of products.
type Dataset struct {
	names            []string
	mainCategory     Categorical
	subCategory      Categorical
	ratings          []float64
	noOfRatings      []int64
	noOfRatingsValid []bool
	actualPrice      []float64
	discountPrice    []float64
	discountPct      []float64
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}

func (d *Dataset) Name(i int) string { return d.names[i] }
func (d *Dataset) MainCategory(i int) string { return d.mainCategory.Value(i) }
func (d *Dataset) SubCategory(i int) string { return d.subCategory.Value(i) }
func (d *Dataset) Ratings(i int) float64 { return d.ratings[i] }
func (d *Dataset) ActualPrice(i int) float64 { return d.actualPrice[i] }
func (d *Dataset) DiscountPrice(i int) float64 { return d.discountPrice[i] }
func (d *Dataset) DiscountPercentage(i int) float64 { return d.discountPct[i] }

func (d *Dataset) NoOfRatings(i int) (int64, bool) {
	return d.noOfRatings[i], d.noOfRatingsValid[i]
}

func (d *Dataset) MainCategories() *Categorical { return &d.mainCategory }
func (d *Dataset) SubCategories() *Categorical { return &d.subCategory }

func (d *Dataset) Record(i int) models.Product {
	return models.Product{
		Name:               d.names[i],
		MainCategory:       d.MainCategory(i),
		SubCategory:        d.SubCategory(i),
		Ratings:            d.ratings[i],
		NoOfRatings:        sql.NullInt64{Int64: d.noOfRatings[i], Valid: d.noOfRatingsValid[i]},
		ActualPrice:        d.actualPrice[i],
		DiscountPrice:      d.discountPrice[i],
		DiscountPercentage: d.discountPct[i],
	}
}

// Numeric returns a numeric column with NaN marking missing values. Float
// columns are returned without copying and must be treated as read-only.
func (d *Dataset) Numeric(field string) ([]float64, error) {
	switch field {
	case ColRatings:
		return d.ratings, nil
	case ColActualPrice:
		return d.actualPrice, nil
	case ColDiscountPrice:
		return d.discountPrice, nil
	case ColDiscountPercentage:
		return d.discountPct, nil
	case ColNoOfRatings:
		out := make([]float64, len(d.noOfRatings))
		for i, v := range d.noOfRatings {
			if d.noOfRatingsValid[i] {
				out[i] = float64(v)
			} else {
				out[i] = math.NaN()
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown numeric field %q", field)
	}
}

// Take copies the given rows into a new dataset with dense 0-based rows.
// Category dictionaries keep only the levels that are still used.
func (d *Dataset) Take(rows []int) *Dataset {
	out := &Dataset{
		names:            make([]string, len(rows)),
		ratings:          make([]float64, len(rows)),
		noOfRatings:      make([]int64, len(rows)),
		noOfRatingsValid: make([]bool, len(rows)),
		actualPrice:      make([]float64, len(rows)),
		discountPrice:    make([]float64, len(rows)),
		discountPct:      make([]float64, len(rows)),
	}
	for j, i := range rows {
		out.names[j] = d.names[i]
		out.ratings[j] = d.ratings[i]
		out.noOfRatings[j] = d.noOfRatings[i]
		out.noOfRatingsValid[j] = d.noOfRatingsValid[i]
		out.actualPrice[j] = d.actualPrice[i]
		out.discountPrice[j] = d.discountPrice[i]
		out.discountPct[j] = d.discountPct[i]
	}
	out.mainCategory = d.mainCategory.take(rows)
	out.subCategory = d.subCategory.take(rows)
	return out
}

// WithMainCategories keeps the rows whose main category is one of categories.
// An empty list keeps every row.
func (d *Dataset) WithMainCategories(categories []string) *Dataset {
	if len(categories) == 0 {
		return d
	}
	keep := make(map[int32]bool, len(categories))
	for _, c := range categories {
		if code, ok := d.mainCategory.Lookup(c); ok {
			keep[code] = true
		}
	}
	rows := make([]int, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		if keep[d.mainCategory.Code(i)] {
			rows = append(rows, i)
		}
	}
	return d.Take(rows)
}

func (c *Categorical) take(rows []int) Categorical {
	remap := make([]int32, len(c.levels))
	for i := range remap {
		remap[i] = -1
	}
	for _, i := range rows {
		remap[c.codes[i]] = 0
	}

	out := Categorical{
		codes: make([]int32, len(rows)),
		index: make(map[string]int32),
	}
	for code, level := range c.levels {
		if remap[code] < 0 {
			continue
		}
		remap[code] = int32(len(out.levels))
		out.index[level] = remap[code]
		out.levels = append(out.levels, level)
	}
	for j, i := range rows {
		out.codes[j] = remap[c.codes[i]]
	}
	return out
}

// MemoryBytes estimates the deep in-memory footprint of the dataset.
func (d *Dataset) MemoryBytes() int64 {
	if d == nil {
		return 0
	}
	var n int64
	n += stringsBytes(d.names)
	n += d.mainCategory.memoryBytes()
	n += d.subCategory.memoryBytes()
	n += int64(cap(d.ratings)+cap(d.actualPrice)+cap(d.discountPrice)+cap(d.discountPct)) * 8
	n += int64(cap(d.noOfRatings)) * 8
	n += int64(cap(d.noOfRatingsValid))
	return n
}

func stringsBytes(ss []string) int64 {
	n := int64(cap(ss)) * int64(unsafe.Sizeof(""))
	for _, s := range ss {
		n += int64(len(s))
	}
	return n
}

// Stats summarises data quality of a dataset.
func (d *Dataset) Stats() models.DatasetStats {
	stats := models.DatasetStats{
		Rows:           d.Len(),
		MainCategories: len(d.mainCategory.levels),
		SubCategories:  len(d.subCategory.levels),
		Nulls:          make(map[string]int),
	}
	for i := 0; i < d.Len(); i++ {
		if math.IsNaN(d.ratings[i]) {
			stats.Nulls[ColRatings]++
		}
		if !d.noOfRatingsValid[i] {
			stats.Nulls[ColNoOfRatings]++
		}
		if math.IsNaN(d.actualPrice[i]) {
			stats.Nulls[ColActualPrice]++
		}
		if math.IsNaN(d.discountPrice[i]) {
			stats.Nulls[ColDiscountPrice]++
		}
		if math.IsNaN(d.discountPct[i]) {
			stats.Nulls[ColDiscountPercentage]++
		}
		if d.discountPrice[i] > d.actualPrice[i] {
			stats.PriceAnomalies++
		}
	}
	return stats
}

// Builder accumulates products into a Dataset.
type Builder struct {
	ds *Dataset
}

func NewBuilder(capacity int) *Builder {
	return &Builder{ds: &Dataset{
		names:            make([]string, 0, capacity),
		mainCategory:     newCategorical(capacity),
		subCategory:      newCategorical(capacity),
		ratings:          make([]float64, 0, capacity),
		noOfRatings:      make([]int64, 0, capacity),
		noOfRatingsValid: make([]bool, 0, capacity),
		actualPrice:      make([]float64, 0, capacity),
		discountPrice:    make([]float64, 0, capacity),
		discountPct:      make([]float64, 0, capacity),
	}}
}

func (b *Builder) Append(p models.Product) {
	d := b.ds
	d.names = append(d.names, p.Name)
	d.mainCategory.append(p.MainCategory)
	d.subCategory.append(p.SubCategory)
	d.ratings = append(d.ratings, p.Ratings)
	d.noOfRatings = append(d.noOfRatings, p.NoOfRatings.Int64)
	d.noOfRatingsValid = append(d.noOfRatingsValid, p.NoOfRatings.Valid)
	d.actualPrice = append(d.actualPrice, p.ActualPrice)
	d.discountPrice = append(d.discountPrice, p.DiscountPrice)
	d.discountPct = append(d.discountPct, p.DiscountPercentage)
}

// Build returns the dataset. The builder must not be used afterwards.
func (b *Builder) Build() *Dataset {
	ds := b.ds
	b.ds = nil
	return ds
}

// FromProducts builds a dataset from in-memory records. Missing discount
// percentages are derived from the prices.
func FromProducts(products []models.Product) *Dataset {
	b := NewBuilder(len(products))
	for _, p := range products {
		if math.IsNaN(p.DiscountPercentage) {
			p.DiscountPercentage = DiscountPercentage(p.ActualPrice, p.DiscountPrice)
		}
		b.Append(p)
	}
	return b.Build()
}
