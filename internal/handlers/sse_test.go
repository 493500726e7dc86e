package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func sseRequest(signals string) *http.Request {
	target := "/sse/page"
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()
	handlers := NewSSEHandlers(analytics, testPercent, logger)

	if handlers.analytics != analytics || handlers.logger != logger || handlers.defaultPercent != testPercent {
		t.Errorf("NewSSEHandlers() = %+v", handlers)
	}
}

func TestSSEHandlers_readSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testPercent, testLogger())

	tests := []struct {
		name    string
		signals string
		want    pageSignals
	}{
		{"no signals", "", pageSignals{Page: "overview", Fraction: testPercent}},
		{"page only", `{"page":"rating-insights"}`, pageSignals{Page: "rating-insights", Fraction: testPercent}},
		{"all signals", `{"page":"category-insights","fraction":5,"category":"grocery","_charts":{}}`,
			pageSignals{Page: "category-insights", Fraction: 5, Category: "grocery"}},
		{"explicit zero fraction", `{"page":"overview","fraction":0}`, pageSignals{Page: "overview", Fraction: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handlers.readSignals(sseRequest(tt.signals))
			if err != nil {
				t.Fatalf("readSignals() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("readSignals() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSSEHandlers_HandlePage(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testPercent, testLogger())

	w := httptest.NewRecorder()
	handlers.HandlePage(w, sseRequest(`{"page":"price-analysis","fraction":100}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("cache-control = %q, want 'no-cache'", cc)
	}

	body := w.Body.String()
	expected := []string{
		"datastar-patch-elements",
		`<div id="panels">`,
		"Price Analysis",
		`id="chart-price-distribution"`,
		`id="chart-discount-vs-actual"`,
		`id="chart-price-by-category"`,
		"datastar-patch-signals",
		`"_charts"`,
		`"price-distribution"`,
	}
	for _, want := range expected {
		if !strings.Contains(body, want) {
			t.Errorf("expected SSE body to contain %q", want)
		}
	}
	if strings.Index(body, "datastar-patch-elements") > strings.Index(body, "datastar-patch-signals") {
		t.Error("panels should be patched before the chart signals")
	}
}

func TestSSEHandlers_HandlePage_ServerRenderedPanels(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testPercent, testLogger())

	w := httptest.NewRecorder()
	handlers.HandlePage(w, sseRequest(`{"page":"overview","fraction":100}`))

	body := w.Body.String()
	for _, want := range []string{"Key Metrics", "Total Products", "Cotton Product", "wordcloud"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected overview to contain %q", want)
		}
	}
	if strings.Contains(body, `"key-metrics"`) {
		t.Error("server-rendered panels should not be sent as chart signals")
	}
}

func TestSSEHandlers_HandlePage_CategorySelection(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testPercent, testLogger())

	w := httptest.NewRecorder()
	handlers.HandlePage(w, sseRequest(`{"page":"category-insights","fraction":100,"category":"sports & fitness"}`))

	body := w.Body.String()
	if !strings.Contains(body, "Sub-categories in sports &amp; fitness") {
		t.Error("sub-category panel should name the selected category")
	}
	if !strings.Contains(body, `"category":"sports \u0026 fitness"`) {
		t.Error("selected category should be echoed in the signals")
	}
}

func TestSSEHandlers_HandlePage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		signals string
		want    string
	}{
		{"unknown page", `{"page":"checkout"}`, "Page not found"},
		{"bad fraction", `{"page":"overview","fraction":250}`, "fraction must be an integer percentage"},
		{"zero fraction", `{"page":"overview","fraction":0}`, "fraction must be an integer percentage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := NewSSEHandlers(createTestAnalytics(), testPercent, testLogger())
			w := httptest.NewRecorder()
			handlers.HandlePage(w, sseRequest(tt.signals))

			body := w.Body.String()
			if !strings.Contains(body, `class="alert"`) || !strings.Contains(body, tt.want) {
				t.Errorf("expected an error panel mentioning %q, got %s", tt.want, body)
			}
			if strings.Contains(body, "datastar-patch-signals") {
				t.Error("failed renders should not patch chart signals")
			}
		})
	}

	w := httptest.NewRecorder()
	NewSSEHandlers(unavailableAnalytics(), testPercent, testLogger()).HandlePage(w, sseRequest(`{"page":"overview"}`))
	if !strings.Contains(w.Body.String(), "Dataset is unavailable") {
		t.Errorf("expected unavailable message, got %s", w.Body.String())
	}
}

func TestSSEHandlers_HandlePage_InvalidSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testPercent, testLogger())

	w := httptest.NewRecorder()
	handlers.HandlePage(w, sseRequest(`{"page":`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("envelope = %+v", env)
	}
}

func BenchmarkSSEHandlers_HandlePage(b *testing.B) {
	handlers := NewSSEHandlers(createTestAnalytics(), testPercent, testLogger())
	for b.Loop() {
		w := httptest.NewRecorder()
		handlers.HandlePage(w, sseRequest(`{"page":"advanced-visualizations","fraction":100}`))
	}
}
