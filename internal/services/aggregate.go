package services

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"amazon-dashboard/internal/dataset"
	"amazon-dashboard/internal/models"
)

const (
	topCategoriesLimit = 10
	topProductsLimit   = 10
	priceBins          = 50
	ratingBins         = 20
	maxWords           = 200
	maxScatterPoints   = 5000
	previewRows        = 1000
)

// CategoryCounts returns main_category frequencies, most frequent first.
// Equal counts keep the order in which categories first appear.
func CategoryCounts(ds *dataset.Dataset, limit int) []models.CategoryCount {
	if ds.Len() == 0 {
		return []models.CategoryCount{}
	}
	main := ds.MainCategories()
	return countCodes(main.Levels(), ds.Len(), func(i int) (int32, bool) {
		return main.Code(i), true
	}, limit)
}

// SubCategoryCounts returns sub_category frequencies among rows of one
// main_category. An unknown category yields an empty result.
func SubCategoryCounts(ds *dataset.Dataset, mainCategory string) []models.CategoryCount {
	if ds.Len() == 0 {
		return []models.CategoryCount{}
	}
	main := ds.MainCategories()
	code, ok := main.Lookup(mainCategory)
	if !ok {
		return []models.CategoryCount{}
	}
	sub := ds.SubCategories()
	return countCodes(sub.Levels(), ds.Len(), func(i int) (int32, bool) {
		if main.Code(i) != code {
			return 0, false
		}
		return sub.Code(i), true
	}, 0)
}

func countCodes(levels []string, n int, codeAt func(int) (int32, bool), limit int) []models.CategoryCount {
	counts := make([]int, len(levels))
	order := make([]int32, 0, len(levels))
	for i := 0; i < n; i++ {
		code, ok := codeAt(i)
		if !ok {
			continue
		}
		if counts[code] == 0 {
			order = append(order, code)
		}
		counts[code]++
	}

	out := make([]models.CategoryCount, 0, len(order))
	for _, code := range order {
		out = append(out, models.CategoryCount{Category: levels[code], Count: counts[code]})
	}
	slices.SortStableFunc(out, func(a, b models.CategoryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AverageRatings returns the mean rating per main_category, highest first.
// Categories without any rating have a nil average and sort last.
func AverageRatings(ds *dataset.Dataset) []models.CategoryRating {
	if ds.Len() == 0 {
		return []models.CategoryRating{}
	}
	main := ds.MainCategories()
	levels := main.Levels()
	sums := make([]float64, len(levels))
	rated := make([]int, len(levels))
	seen := make([]bool, len(levels))

	for i := 0; i < ds.Len(); i++ {
		code := main.Code(i)
		seen[code] = true
		if r := ds.Ratings(i); !math.IsNaN(r) {
			sums[code] += r
			rated[code]++
		}
	}

	out := make([]models.CategoryRating, 0, len(levels))
	for code, level := range levels {
		if !seen[code] {
			continue
		}
		cr := models.CategoryRating{Category: level, Rated: rated[code]}
		if rated[code] > 0 {
			avg := sums[code] / float64(rated[code])
			cr.Average = &avg
		}
		out = append(out, cr)
	}

	slices.SortFunc(out, func(a, b models.CategoryRating) int {
		return strings.Compare(a.Category, b.Category)
	})
	slices.SortStableFunc(out, func(a, b models.CategoryRating) int {
		return compareNullableDesc(a.Average, b.Average)
	})
	return out
}

// compareNullableDesc orders larger values first and nil last.
func compareNullableDesc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*b, *a)
	}
}

// Histogram buckets the non-missing values into equal-width bins.
func Histogram(field string, values []float64, bins int) models.Histogram {
	h := models.Histogram{Field: field, Bins: []models.Bin{}}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		h.Total++
	}
	if h.Total == 0 || bins <= 0 {
		return h
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	h.Bins = make([]models.Bin, bins)
	for i := range h.Bins {
		h.Bins[i].Start = lo + float64(i)*width
		h.Bins[i].End = lo + float64(i+1)*width
	}
	h.Bins[bins-1].End = hi

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		h.Bins[idx].Count++
	}
	return h
}

func PriceHistogram(ds *dataset.Dataset) models.Histogram {
	if ds.Len() == 0 {
		return Histogram(dataset.ColActualPrice, nil, priceBins)
	}
	values, _ := ds.Numeric(dataset.ColActualPrice)
	return Histogram(dataset.ColActualPrice, values, priceBins)
}

func RatingHistogram(ds *dataset.Dataset) models.Histogram {
	if ds.Len() == 0 {
		return Histogram(dataset.ColRatings, nil, ratingBins)
	}
	values, _ := ds.Numeric(dataset.ColRatings)
	return Histogram(dataset.ColRatings, values, ratingBins)
}

// Correlation computes pairwise-complete Pearson coefficients: each pair only
// uses rows where both values are present. Undefined coefficients are nil.
func Correlation(ds *dataset.Dataset, fields []string) (models.CorrelationMatrix, error) {
	if ds == nil {
		ds = dataset.FromProducts(nil)
	}
	columns := make([][]float64, len(fields))
	for i, f := range fields {
		col, err := ds.Numeric(f)
		if err != nil {
			return models.CorrelationMatrix{}, err
		}
		columns[i] = col
	}

	m := models.CorrelationMatrix{
		Fields: slices.Clone(fields),
		Values: make([][]*float64, len(fields)),
	}
	for i := range m.Values {
		m.Values[i] = make([]*float64, len(fields))
	}

	for i := range fields {
		if variance(columns[i]) > 0 {
			one := 1.0
			m.Values[i][i] = &one
		}
		for j := i + 1; j < len(fields); j++ {
			r, ok := pearson(columns[i], columns[j])
			if !ok {
				continue
			}
			rij, rji := r, r
			m.Values[i][j] = &rij
			m.Values[j][i] = &rji
		}
	}
	return m, nil
}

func variance(x []float64) float64 {
	var n int
	var mean, m2 float64
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		n++
		d := v - mean
		mean += d / float64(n)
		m2 += d * (v - mean)
	}
	if n < 2 {
		return 0
	}
	return m2 / float64(n-1)
}

func pearson(x, y []float64) (float64, bool) {
	var n int
	var sx, sy float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		n++
		sx += x[i]
		sy += y[i]
	}
	if n < 2 {
		return 0, false
	}
	mx, my := sx/float64(n), sy/float64(n)

	var sxx, syy, sxy float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		dx, dy := x[i]-mx, y[i]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 || math.IsInf(sxx, 0) || math.IsInf(syy, 0) {
		return 0, false
	}
	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}

// RatingPivot is the mean rating for every (main_category, sub_category)
// pair. Pairs without ratings are nil; rows and columns without any rating
// are dropped.
func RatingPivot(ds *dataset.Dataset) models.Pivot {
	p := models.Pivot{Rows: []string{}, Columns: []string{}, Cells: [][]*float64{}}
	if ds.Len() == 0 {
		return p
	}

	type key struct{ main, sub int32 }
	type acc struct {
		sum   float64
		count int
	}
	main, sub := ds.MainCategories(), ds.SubCategories()
	cells := make(map[key]*acc)
	for i := 0; i < ds.Len(); i++ {
		r := ds.Ratings(i)
		if math.IsNaN(r) {
			continue
		}
		k := key{main.Code(i), sub.Code(i)}
		a := cells[k]
		if a == nil {
			a = &acc{}
			cells[k] = a
		}
		a.sum += r
		a.count++
	}
	if len(cells) == 0 {
		return p
	}

	rowSet := make(map[int32]bool)
	colSet := make(map[int32]bool)
	for k := range cells {
		rowSet[k.main] = true
		colSet[k.sub] = true
	}
	rowCodes := sortedCodes(rowSet, main.Levels())
	colCodes := sortedCodes(colSet, sub.Levels())

	for _, c := range rowCodes {
		p.Rows = append(p.Rows, main.Levels()[c])
	}
	for _, c := range colCodes {
		p.Columns = append(p.Columns, sub.Levels()[c])
	}
	p.Cells = make([][]*float64, len(rowCodes))
	for ri, rc := range rowCodes {
		p.Cells[ri] = make([]*float64, len(colCodes))
		for ci, cc := range colCodes {
			if a := cells[key{rc, cc}]; a != nil {
				mean := a.sum / float64(a.count)
				p.Cells[ri][ci] = &mean
			}
		}
	}
	return p
}

func sortedCodes(set map[int32]bool, levels []string) []int32 {
	codes := make([]int32, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	slices.SortFunc(codes, func(a, b int32) int {
		return strings.Compare(levels[a], levels[b])
	})
	return codes
}

// TopProducts orders rows by rating, then number of ratings, both descending
// with missing values last.
func TopProducts(ds *dataset.Dataset, limit int) []models.ProductSummary {
	idx := make([]int, ds.Len())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		if c := compareFloatDesc(ds.Ratings(a), ds.Ratings(b)); c != 0 {
			return c
		}
		na, okA := ds.NoOfRatings(a)
		nb, okB := ds.NoOfRatings(b)
		switch {
		case okA && okB:
			return cmp.Compare(nb, na)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}

	out := make([]models.ProductSummary, len(idx))
	for j, i := range idx {
		out[j] = summarize(ds, i)
	}
	return out
}

func compareFloatDesc(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	case math.IsNaN(b):
		return -1
	default:
		return cmp.Compare(b, a)
	}
}

func summarize(ds *dataset.Dataset, i int) models.ProductSummary {
	s := models.ProductSummary{
		Name:         ds.Name(i),
		MainCategory: ds.MainCategory(i),
		SubCategory:  ds.SubCategory(i),
		Ratings:      floatPtr(ds.Ratings(i)),
		ActualPrice:  floatPtr(ds.ActualPrice(i)),
	}
	if n, ok := ds.NoOfRatings(i); ok {
		s.NoOfRatings = &n
	}
	return s
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// Preview returns the first rows of a dataset.
func Preview(ds *dataset.Dataset, limit int) []models.ProductSummary {
	n := min(ds.Len(), limit)
	out := make([]models.ProductSummary, n)
	for i := range out {
		out[i] = summarize(ds, i)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`a about above after again against all also am an and any are as at be
		because been before being below between both but by can could did do does doing down during
		each else ever few for from further get had has have having he her here hers herself him
		himself his how however i if in into is it its itself just let me more most my myself no nor
		not of off on once only or other otherwise our ours ourselves out over own same shall she
		should since so some such than that the their theirs them themselves then there these they
		this those through to too under until up very was we were what when where which while who
		whom why with would you your yours yourself yourselves com http www`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// WordFrequencies tokenizes product names into case-folded words of at least
// two characters, drops stopwords and numbers, and returns the most frequent.
func WordFrequencies(ds *dataset.Dataset, limit int) []models.WordCount {
	fold := cases.Fold()
	counts := make(map[string]int)
	for i := 0; i < ds.Len(); i++ {
		for _, tok := range tokenize(ds.Name(i)) {
			w := fold.String(tok)
			if _, stop := stopwords[w]; stop || isNumber(w) {
				continue
			}
			counts[w]++
		}
	}

	out := make([]models.WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, models.WordCount{Word: w, Count: c})
	}
	slices.SortFunc(out, func(a, b models.WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// tokenize splits on anything that is not a word character; apostrophes are
// kept inside words. Single-character tokens are dropped.
func tokenize(s string) []string {
	var tokens []string
	start := -1
	flush := func(end int) {
		if start >= 0 {
			tok := strings.TrimRight(s[start:end], "'")
			if len([]rune(tok)) >= 2 {
				tokens = append(tokens, tok)
			}
		}
		start = -1
	}
	for i, r := range s {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		case r == '\'' && start >= 0:
		default:
			flush(i)
		}
	}
	flush(len(s))
	return tokens
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// ScatterByCategory groups (x, y) points by main_category in order of first
// appearance. At most limit points are returned; rows missing x or y are
// skipped. sizeField may be empty.
func ScatterByCategory(ds *dataset.Dataset, xField, yField, sizeField string, limit int) ([]models.ScatterSeries, error) {
	if ds.Len() == 0 {
		return []models.ScatterSeries{}, nil
	}
	xs, err := ds.Numeric(xField)
	if err != nil {
		return nil, err
	}
	ys, err := ds.Numeric(yField)
	if err != nil {
		return nil, err
	}
	var sizes []float64
	if sizeField != "" {
		if sizes, err = ds.Numeric(sizeField); err != nil {
			return nil, err
		}
	}

	main := ds.MainCategories()
	series := []models.ScatterSeries{}
	byCode := make(map[int32]int)
	points := 0
	for i := 0; i < ds.Len() && points < limit; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		code := main.Code(i)
		si, ok := byCode[code]
		if !ok {
			si = len(series)
			byCode[code] = si
			series = append(series, models.ScatterSeries{Category: main.Levels()[code]})
		}
		pt := models.ScatterPoint{X: xs[i], Y: ys[i], Name: ds.Name(i)}
		if sizes != nil {
			pt.Size = floatPtr(sizes[i])
		}
		series[si].Points = append(series[si].Points, pt)
		points++
	}
	return series, nil
}

// BoxByCategory computes box plot statistics of a field per main_category,
// in order of first appearance. Whiskers end at the most extreme values
// within 1.5 IQR of the quartiles.
func BoxByCategory(ds *dataset.Dataset, field string) ([]models.BoxStats, error) {
	if ds.Len() == 0 {
		return []models.BoxStats{}, nil
	}
	values, err := ds.Numeric(field)
	if err != nil {
		return nil, err
	}
	main := ds.MainCategories()
	groups := make(map[int32][]float64)
	var order []int32
	for i := 0; i < ds.Len(); i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		code := main.Code(i)
		if _, ok := groups[code]; !ok {
			order = append(order, code)
		}
		groups[code] = append(groups[code], values[i])
	}

	out := make([]models.BoxStats, 0, len(order))
	for _, code := range order {
		vals := groups[code]
		slices.Sort(vals)
		q1, med, q3 := quantile(vals, 0.25), quantile(vals, 0.5), quantile(vals, 0.75)
		iqr := q3 - q1
		lowLimit, highLimit := q1-1.5*iqr, q3+1.5*iqr

		box := models.BoxStats{
			Category:   main.Levels()[code],
			Count:      len(vals),
			Min:        vals[0],
			Q1:         q1,
			Median:     med,
			Q3:         q3,
			Max:        vals[len(vals)-1],
			LowerFence: q1,
			UpperFence: q3,
		}
		for _, v := range vals {
			if v < lowLimit || v > highLimit {
				box.Outliers++
				continue
			}
			box.LowerFence = math.Min(box.LowerFence, v)
			box.UpperFence = math.Max(box.UpperFence, v)
		}
		out = append(out, box)
	}
	return out, nil
}

// quantile uses linear interpolation between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := min(lo+1, len(sorted)-1)
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MainCategoryOptions lists the main categories present in a dataset in order
// of first appearance.
func MainCategoryOptions(ds *dataset.Dataset) []string {
	if ds.Len() == 0 {
		return []string{}
	}
	main := ds.MainCategories()
	seen := make([]bool, len(main.Levels()))
	out := []string{}
	for i := 0; i < ds.Len(); i++ {
		code := main.Code(i)
		if !seen[code] {
			seen[code] = true
			out = append(out, main.Levels()[code])
		}
	}
	return out
}
