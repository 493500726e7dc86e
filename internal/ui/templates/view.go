package templates

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"amazon-dashboard/internal/models"
)

// PanelsID is the element replaced by every page render.
const PanelsID = "panels"

const (
	minWordSize = 12.0
	maxWordSize = 48.0
)

// ClientCharts returns the chart specs the browser has to plot, keyed by panel id.
func ClientCharts(view *models.PageView) map[string]models.ChartSpec {
	charts := make(map[string]models.ChartSpec)
	for _, p := range view.Panels {
		if p.Empty || p.Chart == nil || serverRendered(p.Chart.Kind) {
			continue
		}
		charts[p.ID] = *p.Chart
	}
	return charts
}

func serverRendered(kind models.ChartKind) bool {
	switch kind {
	case models.ChartMetrics, models.ChartTable, models.ChartWordCloud:
		return true
	}
	return false
}

func initialSignals(pages []models.PageInfo, defaultPercent int) string {
	first := ""
	if len(pages) > 0 {
		first = string(pages[0].ID)
	}
	return fmt.Sprintf("{page: '%s', fraction: %d, category: '', _charts: {}}", first, defaultPercent)
}

func pageActive(id models.Page) string {
	return "$page === '" + string(id) + "'"
}

func selectPage(id models.Page) string {
	return "$page = '" + string(id) + "'; $category = ''; @get('/sse/page')"
}

func sampleCaption(view *models.PageView) string {
	return fmt.Sprintf("Sample: %d%% (%d rows) · Initial load %.2fs · Memory %.1f MB",
		view.Sample.Percent, view.Sample.Rows, view.Performance.LoadSeconds, view.Performance.MemoryMB)
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatCount(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

type sizedWord struct {
	models.WordCount
	Size float64
}

func (w sizedWord) attrs() templ.Attributes {
	return templ.Attributes{
		"style": fmt.Sprintf("font-size:%.0fpx", w.Size),
		"title": strconv.Itoa(w.Count),
	}
}

// wordSizes scales each word linearly between the rarest and the most common one.
func wordSizes(words []models.WordCount) []sizedWord {
	if len(words) == 0 {
		return nil
	}
	lo, hi := words[0].Count, words[0].Count
	for _, wc := range words {
		lo = min(lo, wc.Count)
		hi = max(hi, wc.Count)
	}
	out := make([]sizedWord, len(words))
	for i, wc := range words {
		size := maxWordSize
		if hi > lo {
			size = minWordSize + (maxWordSize-minWordSize)*float64(wc.Count-lo)/float64(hi-lo)
		}
		out[i] = sizedWord{WordCount: wc, Size: size}
	}
	return out
}
