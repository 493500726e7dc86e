package dataset

import (
	"fmt"
	"strings"
)

type FieldType byte

const (
	FieldText FieldType = iota + 1
	FieldCategory
	FieldFloat
	FieldInt
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldCategory:
		return "category"
	case FieldFloat:
		return "float"
	case FieldInt:
		return "int"
	default:
		return fmt.Sprintf("FieldType(%d)", byte(t))
	}
}

// Field declares one column of the product schema. A Derived field may be
// absent from a source and is then computed from other fields.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
	Derived  bool
}

type Schema []Field

const (
	ColName               = "name"
	ColMainCategory       = "main_category"
	ColSubCategory        = "sub_category"
	ColRatings            = "ratings"
	ColNoOfRatings        = "no_of_ratings"
	ColActualPrice        = "actual_price"
	ColDiscountPrice      = "discount_price"
	ColDiscountPercentage = "discount_percentage"
)

var ProductSchema = Schema{
	{Name: ColName, Type: FieldText},
	{Name: ColMainCategory, Type: FieldCategory},
	{Name: ColSubCategory, Type: FieldCategory},
	{Name: ColRatings, Type: FieldFloat, Nullable: true},
	{Name: ColNoOfRatings, Type: FieldInt, Nullable: true},
	{Name: ColActualPrice, Type: FieldFloat, Nullable: true},
	{Name: ColDiscountPrice, Type: FieldFloat, Nullable: true},
	{Name: ColDiscountPercentage, Type: FieldFloat, Nullable: true, Derived: true},
}

// NumericFields are the columns used for correlation.
var NumericFields = []string{
	ColRatings,
	ColNoOfRatings,
	ColDiscountPrice,
	ColActualPrice,
	ColDiscountPercentage,
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Resolve maps schema fields to their position in a source header. Extra
// header columns are ignored; derived fields that are missing map to -1.
func (s Schema) Resolve(source string, header []string) (map[string]int, error) {
	seen := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := seen[key]; dup && key != "" {
			return nil, &ParseError{Source: source, Column: key, Err: fmt.Errorf("duplicate column")}
		}
		seen[key] = i
	}

	pos := make(map[string]int, len(s))
	for _, f := range s {
		idx, ok := seen[f.Name]
		if !ok {
			if f.Derived {
				pos[f.Name] = -1
				continue
			}
			return nil, &ParseError{Source: source, Column: f.Name, Err: fmt.Errorf("missing required column")}
		}
		pos[f.Name] = idx
	}
	return pos, nil
}
