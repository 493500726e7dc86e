package dataset

import (
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"amazon-dashboard/internal/models"
)

var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"none": {},
}

func isNull(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// cleanNumber strips currency symbols, thousands separators and whitespace.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("₹", "", "$", "", "€", "", "£", "", ",", "", " ", "").Replace(s)
	return strings.TrimSuffix(s, "%")
}

func parseFloatCell(s string) (float64, error) {
	d, err := decimal.NewFromString(cleanNumber(s))
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("number out of range")
	}
	return f, nil
}

func parseIntCell(s string) (int64, error) {
	d, err := decimal.NewFromString(cleanNumber(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("not an integer")
	}
	return d.IntPart(), nil
}

// rowParser turns one row of text cells into a Product following ProductSchema.
// It is shared by the CSV and SQL sources.
type rowParser struct {
	source string
	pos    map[string]int
}

func newRowParser(source string, header []string) (*rowParser, error) {
	pos, err := ProductSchema.Resolve(source, header)
	if err != nil {
		return nil, err
	}
	return &rowParser{source: source, pos: pos}, nil
}

func (p *rowParser) cell(cells []string, name string) (string, bool) {
	idx := p.pos[name]
	if idx < 0 || idx >= len(cells) {
		return "", false
	}
	return cells[idx], true
}

func (p *rowParser) parse(row int, cells []string) (models.Product, error) {
	var rec models.Product

	fail := func(column, value string, err error) (models.Product, error) {
		return models.Product{}, &ParseError{Source: p.source, Row: row, Column: column, Value: value, Err: err}
	}

	for _, f := range ProductSchema {
		raw, present := p.cell(cells, f.Name)
		null := !present || isNull(raw)
		if null && !f.Nullable {
			return fail(f.Name, raw, fmt.Errorf("value required"))
		}

		switch f.Type {
		case FieldText, FieldCategory:
			v := strings.TrimSpace(raw)
			switch f.Name {
			case ColName:
				rec.Name = v
			case ColMainCategory:
				rec.MainCategory = v
			case ColSubCategory:
				rec.SubCategory = v
			}

		case FieldFloat:
			v := math.NaN()
			if !null {
				parsed, err := parseFloatCell(raw)
				if err != nil {
					return fail(f.Name, raw, err)
				}
				if parsed < 0 && f.Name != ColDiscountPercentage {
					return fail(f.Name, raw, fmt.Errorf("negative value"))
				}
				v = parsed
			}
			switch f.Name {
			case ColRatings:
				if !math.IsNaN(v) && v > 5 {
					return fail(f.Name, raw, fmt.Errorf("rating above 5"))
				}
				rec.Ratings = v
			case ColActualPrice:
				rec.ActualPrice = v
			case ColDiscountPrice:
				rec.DiscountPrice = v
			case ColDiscountPercentage:
				rec.DiscountPercentage = v
			}

		case FieldInt:
			if !null {
				parsed, err := parseIntCell(raw)
				if err != nil {
					return fail(f.Name, raw, err)
				}
				if parsed < 0 {
					return fail(f.Name, raw, fmt.Errorf("negative value"))
				}
				rec.NoOfRatings = sql.NullInt64{Int64: parsed, Valid: true}
			}
		}
	}

	if math.IsNaN(rec.DiscountPercentage) {
		rec.DiscountPercentage = DiscountPercentage(rec.ActualPrice, rec.DiscountPrice)
	}
	return rec, nil
}

// DiscountPercentage derives the discount from the two prices, or NaN when it
// is undefined.
func DiscountPercentage(actual, discount float64) float64 {
	if math.IsNaN(actual) || math.IsNaN(discount) || actual <= 0 {
		return math.NaN()
	}
	return (1 - discount/actual) * 100
}
