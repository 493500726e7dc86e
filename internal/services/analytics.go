package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"amazon-dashboard/internal/dataset"
	"amazon-dashboard/internal/models"
	"amazon-dashboard/internal/observability"
)

var ErrUnknownPage = errors.New("unknown page")

const noDataMessage = "No data available"

// CorrelationFields are the numeric columns of the correlation heatmap.
var CorrelationFields = dataset.NumericFields

type RenderRequest struct {
	Page            models.Page
	FractionPercent int
	Category        string
}

// Analytics renders dashboard pages from the shared dataset.
type Analytics struct {
	handle *dataset.Handle
	seed   uint64
	logger *slog.Logger
}

func NewAnalytics(handle *dataset.Handle, seed uint64, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		handle: handle,
		seed:   seed,
		logger: logger,
	}
}

func (a *Analytics) Pages() []models.PageInfo {
	return models.Pages
}

// Render samples the dataset and builds every panel of the requested page.
// Unknown pages wrap ErrUnknownPage; bad fractions wrap dataset.ErrInvalidFraction.
func (a *Analytics) Render(ctx context.Context, req RenderRequest) (*models.PageView, error) {
	ctx, span := observability.StartSpan(ctx, "render_page")
	span.SetTag("page", string(req.Page))
	span.SetTag("fraction_percent", strconv.Itoa(req.FractionPercent))
	defer span.End(ctx, a.logger)

	info, ok := models.LookupPage(string(req.Page))
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownPage, req.Page)
		span.SetError(err)
		return nil, err
	}
	fraction, err := dataset.FractionFromPercent(req.FractionPercent)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	res, err := a.handle.Load(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if err := ctx.Err(); err != nil {
		span.SetError(err)
		return nil, err
	}
	subset, err := dataset.Sample(res.Dataset, fraction, a.seed)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("sample_rows", strconv.Itoa(subset.Len()))

	view := &models.PageView{
		Page:   info.ID,
		Title:  info.Title,
		Header: pageHeaders[info.ID],
		Sample: models.SampleInfo{Percent: req.FractionPercent, Rows: subset.Len()},
		Performance: models.Performance{
			LoadSeconds: res.InitialLatency.Seconds(),
			MemoryMB:    res.MemoryMB(),
		},
	}

	b := &pageBuilder{ctx: ctx, logger: a.logger, page: info.ID, full: res.Dataset, subset: subset}
	switch info.ID {
	case models.PageOverview:
		view.Panels = b.overview()
	case models.PageCategoryInsights:
		view.Categories = MainCategoryOptions(subset)
		view.Category = req.Category
		if view.Category == "" && len(view.Categories) > 0 {
			view.Category = view.Categories[0]
		}
		view.Panels = b.categoryInsights(view.Category)
	case models.PagePriceAnalysis:
		view.Panels = b.priceAnalysis()
	case models.PageRatingInsights:
		view.Panels = b.ratingInsights()
	case models.PageAdvanced:
		view.Panels = b.advanced()
	case models.PageDataHandling:
		view.Panels = textPanels(dataHandlingText)
	case models.PageKeyInsights:
		view.Panels = textPanels(keyInsightsText)
	}
	if b.err != nil {
		span.SetError(b.err)
		return nil, b.err
	}
	return view, nil
}

// Stats returns the load statistics of the dataset, loading it if needed.
func (a *Analytics) Stats(ctx context.Context) (models.DatasetStats, error) {
	res, err := a.handle.Load(ctx)
	if err != nil {
		return models.DatasetStats{}, fmt.Errorf("load dataset: %w", err)
	}
	return res.Stats, nil
}

// Ready reports whether the dataset has been loaded.
func (a *Analytics) Ready() bool {
	return a.handle.Loaded()
}

// Release drops the loaded dataset.
func (a *Analytics) Release() {
	a.handle.Clear()
}

var pageHeaders = map[models.Page]string{
	models.PageOverview:         "Dataset Overview",
	models.PageCategoryInsights: "Category Analysis",
	models.PagePriceAnalysis:    "Price Analysis",
	models.PageRatingInsights:   "Rating Analysis",
	models.PageAdvanced:         "Advanced Insights",
	models.PageDataHandling:     "Data Handling Techniques",
	models.PageKeyInsights:      "Key Insights from the Analysis",
}

type pageBuilder struct {
	ctx    context.Context
	logger *slog.Logger
	page   models.Page
	full   *dataset.Dataset
	subset *dataset.Dataset

	// err is the context error that stopped the page part way through.
	err error
}

// chart runs one panel builder. Errors, panics and empty results all turn
// into a placeholder panel so the rest of the page still renders, as does
// data that cannot be encoded as JSON. Once the
// request context is done the remaining builders are skipped.
func (b *pageBuilder) chart(id string, spec models.ChartSpec, build func() (any, bool, error)) (p models.Panel) {
	if b.err != nil {
		return placeholder(id, spec)
	}
	if err := b.ctx.Err(); err != nil {
		b.err = err
		return placeholder(id, spec)
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.WarnContext(b.ctx, "panel panicked", "page", b.page, "panel", id, "panic", r)
			p = placeholder(id, spec)
		}
	}()

	data, empty, err := build()
	if err != nil {
		b.logger.WarnContext(b.ctx, "panel failed", "page", b.page, "panel", id, "error", err)
		return placeholder(id, spec)
	}
	if empty {
		return placeholder(id, spec)
	}
	if _, err := json.Marshal(data); err != nil {
		b.logger.WarnContext(b.ctx, "panel data not encodable", "page", b.page, "panel", id, "error", err)
		return placeholder(id, spec)
	}
	spec.Data = data
	return models.Panel{ID: id, Kind: models.PanelChart, Chart: &spec}
}

func placeholder(id string, spec models.ChartSpec) models.Panel {
	spec.Data = nil
	return models.Panel{
		ID:      id,
		Kind:    models.PanelChart,
		Chart:   &spec,
		Empty:   true,
		Message: noDataMessage,
	}
}

func (b *pageBuilder) overview() []models.Panel {
	return []models.Panel{
		b.chart("key-metrics", models.ChartSpec{Kind: models.ChartMetrics, Title: "Key Metrics"},
			func() (any, bool, error) {
				return OverviewMetrics(b.full, b.subset), false, nil
			}),
		b.chart("sample-data", models.ChartSpec{Kind: models.ChartTable, Title: "Sample Data"},
			func() (any, bool, error) {
				rows := Preview(b.subset, previewRows)
				return rows, len(rows) == 0, nil
			}),
		b.chart("word-cloud", models.ChartSpec{Kind: models.ChartWordCloud, Title: "Most Common Words in Product Names"},
			func() (any, bool, error) {
				words := WordFrequencies(b.subset, maxWords)
				return words, len(words) == 0, nil
			}),
	}
}

func (b *pageBuilder) categoryInsights(category string) []models.Panel {
	return []models.Panel{
		b.chart("top-categories", models.ChartSpec{
			Kind: models.ChartBar, Title: "Top 10 Main Categories",
			XField: "category", YField: "count", XLabel: "Category", YLabel: "Count",
			ColorScale: "Tealgrn",
		}, func() (any, bool, error) {
			counts := CategoryCounts(b.subset, topCategoriesLimit)
			return counts, len(counts) == 0, nil
		}),
		b.chart("average-ratings", models.ChartSpec{
			Kind: models.ChartBar, Title: "Average Ratings by Main Category",
			XField: "category", YField: "average_rating", XLabel: "Category", YLabel: "Average Rating",
			ColorScale: "Teal",
		}, func() (any, bool, error) {
			avgs := AverageRatings(b.subset)
			return avgs, len(avgs) == 0, nil
		}),
		b.chart("sub-categories", models.ChartSpec{
			Kind: models.ChartPie, Title: "Sub-categories in " + category,
			XField: "category", YField: "count", ColorScale: "Tealgrn",
		}, func() (any, bool, error) {
			subs := SubCategoryCounts(b.subset, category)
			return subs, len(subs) == 0, nil
		}),
	}
}

func (b *pageBuilder) priceAnalysis() []models.Panel {
	return []models.Panel{
		b.chart("price-distribution", models.ChartSpec{
			Kind: models.ChartHistogram, Title: "Price Distribution",
			XField: dataset.ColActualPrice, XLabel: "Price", YLabel: "Frequency",
		}, func() (any, bool, error) {
			h := PriceHistogram(b.subset)
			return h, h.Total == 0, nil
		}),
		b.chart("discount-vs-actual", models.ChartSpec{
			Kind: models.ChartScatter, Title: "Discount vs. Actual Price",
			XField: dataset.ColActualPrice, YField: dataset.ColDiscountPrice,
			XLabel: "Actual Price", YLabel: "Discount Price",
		}, func() (any, bool, error) {
			series, err := ScatterByCategory(b.subset, dataset.ColActualPrice, dataset.ColDiscountPrice, "", maxScatterPoints)
			return series, len(series) == 0, err
		}),
		b.chart("price-by-category", models.ChartSpec{
			Kind: models.ChartBox, Title: "Price Range by Category",
			XField: dataset.ColMainCategory, YField: dataset.ColActualPrice,
			XLabel: "Category", YLabel: "Price", ColorScale: "Prism",
		}, func() (any, bool, error) {
			boxes, err := BoxByCategory(b.subset, dataset.ColActualPrice)
			return boxes, len(boxes) == 0, err
		}),
	}
}

func (b *pageBuilder) ratingInsights() []models.Panel {
	return []models.Panel{
		b.chart("rating-distribution", models.ChartSpec{
			Kind: models.ChartHistogram, Title: "Rating Distribution",
			XField: dataset.ColRatings, XLabel: "Rating", YLabel: "Frequency",
		}, func() (any, bool, error) {
			h := RatingHistogram(b.subset)
			return h, h.Total == 0, nil
		}),
		b.chart("ratings-vs-count", models.ChartSpec{
			Kind: models.ChartScatter, Title: "Ratings vs. Number of Ratings",
			XField: dataset.ColRatings, YField: dataset.ColNoOfRatings,
			XLabel: "Rating", YLabel: "Number of Ratings",
		}, func() (any, bool, error) {
			series, err := ScatterByCategory(b.subset, dataset.ColRatings, dataset.ColNoOfRatings, "", maxScatterPoints)
			return series, len(series) == 0, err
		}),
		b.chart("ratings-heatmap", models.ChartSpec{
			Kind: models.ChartHeatmap, Title: "Average Ratings Heatmap",
			XLabel: "Sub-category", YLabel: "Main Category", ColorScale: "RdBu_r",
		}, func() (any, bool, error) {
			p := RatingPivot(b.subset)
			return p, len(p.Rows) == 0, nil
		}),
	}
}

func (b *pageBuilder) advanced() []models.Panel {
	return []models.Panel{
		b.chart("correlation", models.ChartSpec{
			Kind: models.ChartHeatmap, Title: "Correlation Heatmap", ColorScale: "Tealgrn",
		}, func() (any, bool, error) {
			m, err := Correlation(b.subset, CorrelationFields)
			return m, b.subset.Len() == 0, err
		}),
		b.chart("price-vs-ratings", models.ChartSpec{
			Kind: models.ChartScatter, Title: "Price vs. Ratings by Category",
			XField: dataset.ColActualPrice, YField: dataset.ColRatings,
			XLabel: "Price", YLabel: "Rating",
		}, func() (any, bool, error) {
			series, err := ScatterByCategory(b.subset, dataset.ColActualPrice, dataset.ColRatings, dataset.ColNoOfRatings, maxScatterPoints)
			return series, len(series) == 0, err
		}),
		b.chart("top-products", models.ChartSpec{Kind: models.ChartTable, Title: "Top Rated Products"},
			func() (any, bool, error) {
				top := TopProducts(b.subset, topProductsLimit)
				return top, len(top) == 0, nil
			}),
	}
}

// OverviewMetrics are the headline numbers of the overview page. Category
// counts describe the full dataset; the sample size describes the subset.
func OverviewMetrics(full, subset *dataset.Dataset) []models.Metric {
	var mains, subs int
	if full.Len() > 0 {
		mains = len(full.MainCategories().Levels())
		subs = len(full.SubCategories().Levels())
	}
	return []models.Metric{
		{Label: "Total Products", Value: formatCount(full.Len())},
		{Label: "Categories", Value: strconv.Itoa(mains)},
		{Label: "Sub-Categories", Value: strconv.Itoa(subs)},
		{Label: "Sample Size", Value: formatCount(subset.Len())},
	}
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	if n < 0 {
		return "-" + formatCount(-n)
	}
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
