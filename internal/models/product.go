package models

import "database/sql"

// Product is one row of the product dataset. Missing float fields hold NaN.
type Product struct {
	Name               string
	MainCategory       string
	SubCategory        string
	Ratings            float64
	NoOfRatings        sql.NullInt64
	ActualPrice        float64
	DiscountPrice      float64
	DiscountPercentage float64
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type CategoryRating struct {
	Category string   `json:"category"`
	Average  *float64 `json:"average_rating"`
	Rated    int      `json:"rated"`
}

type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

type Histogram struct {
	Field string `json:"field"`
	Bins  []Bin  `json:"bins"`
	Total int    `json:"total"`
}

type CorrelationMatrix struct {
	Fields []string     `json:"fields"`
	Values [][]*float64 `json:"values"`
}

type Pivot struct {
	Rows    []string     `json:"rows"`
	Columns []string     `json:"columns"`
	Cells   [][]*float64 `json:"cells"`
}

type ProductSummary struct {
	Name         string   `json:"name"`
	MainCategory string   `json:"main_category"`
	SubCategory  string   `json:"sub_category,omitempty"`
	Ratings      *float64 `json:"ratings"`
	NoOfRatings  *int64   `json:"no_of_ratings"`
	ActualPrice  *float64 `json:"actual_price"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type ScatterPoint struct {
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Size *float64 `json:"size,omitempty"`
	Name string   `json:"name"`
}

type ScatterSeries struct {
	Category string         `json:"category"`
	Points   []ScatterPoint `json:"points"`
}

type BoxStats struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Q1         float64 `json:"q1"`
	Median     float64 `json:"median"`
	Q3         float64 `json:"q3"`
	Max        float64 `json:"max"`
	LowerFence float64 `json:"lower_fence"`
	UpperFence float64 `json:"upper_fence"`
	Outliers   int     `json:"outliers"`
}

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DatasetStats describes the loaded dataset and how long it took to load.
type DatasetStats struct {
	Source         string         `json:"source"`
	Rows           int            `json:"rows"`
	MainCategories int            `json:"main_categories"`
	SubCategories  int            `json:"sub_categories"`
	PriceAnomalies int            `json:"price_anomalies"`
	Nulls          map[string]int `json:"nulls"`
	LoadSeconds    float64        `json:"load_seconds"`
	MemoryMB       float64        `json:"memory_mb"`
}
