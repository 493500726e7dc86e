package models

// Page identifies one dashboard page.
type Page string

const (
	PageOverview         Page = "overview"
	PageCategoryInsights Page = "category-insights"
	PagePriceAnalysis    Page = "price-analysis"
	PageRatingInsights   Page = "rating-insights"
	PageAdvanced         Page = "advanced-visualizations"
	PageDataHandling     Page = "data-handling"
	PageKeyInsights      Page = "key-insights"
)

type PageInfo struct {
	ID    Page   `json:"id"`
	Title string `json:"title"`
}

// Pages lists every page in navigation order.
var Pages = []PageInfo{
	{PageOverview, "Overview"},
	{PageCategoryInsights, "Category Insights"},
	{PagePriceAnalysis, "Price Analysis"},
	{PageRatingInsights, "Rating Insights"},
	{PageAdvanced, "Advanced Visualizations"},
	{PageDataHandling, "Data Handling Techniques"},
	{PageKeyInsights, "Key Insights"},
}

// LookupPage returns the page with the given id.
func LookupPage(id string) (PageInfo, bool) {
	for _, p := range Pages {
		if string(p.ID) == id {
			return p, true
		}
	}
	return PageInfo{}, false
}

type ChartKind string

const (
	ChartBar       ChartKind = "bar"
	ChartPie       ChartKind = "pie"
	ChartHistogram ChartKind = "histogram"
	ChartScatter   ChartKind = "scatter"
	ChartBox       ChartKind = "box"
	ChartHeatmap   ChartKind = "heatmap"
	ChartWordCloud ChartKind = "wordcloud"
	ChartTable     ChartKind = "table"
	ChartMetrics   ChartKind = "metrics"
)

type PanelKind string

const (
	PanelChart PanelKind = "chart"
	PanelText  PanelKind = "text"
)

// ChartSpec carries everything the browser needs to draw one chart.
type ChartSpec struct {
	Kind       ChartKind `json:"kind"`
	Title      string    `json:"title"`
	XField     string    `json:"x_field,omitempty"`
	YField     string    `json:"y_field,omitempty"`
	XLabel     string    `json:"x_label,omitempty"`
	YLabel     string    `json:"y_label,omitempty"`
	ColorScale string    `json:"color_scale,omitempty"`
	Data       any       `json:"data"`
}

type TextBlock struct {
	Heading string   `json:"heading,omitempty"`
	Bullets []string `json:"bullets"`
}

// Panel is one entry of a page. Empty panels carry a Message instead of data.
type Panel struct {
	ID      string     `json:"id"`
	Kind    PanelKind  `json:"kind"`
	Chart   *ChartSpec `json:"chart,omitempty"`
	Text    *TextBlock `json:"text,omitempty"`
	Empty   bool       `json:"empty"`
	Message string     `json:"message,omitempty"`
}

type SampleInfo struct {
	Percent int `json:"percent"`
	Rows    int `json:"rows"`
}

type Performance struct {
	LoadSeconds float64 `json:"load_seconds"`
	MemoryMB    float64 `json:"memory_mb"`
}

// PageView is the full response for one page render.
type PageView struct {
	Page        Page        `json:"page"`
	Title       string      `json:"title"`
	Header      string      `json:"header"`
	Sample      SampleInfo  `json:"sample"`
	Performance Performance `json:"performance"`
	Category    string      `json:"category,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
	Panels      []Panel     `json:"panels"`
}
