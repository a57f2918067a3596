package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CategoryType restricts category listings to one side of the ledger.
type CategoryType string

const (
	CategoryTypeAll     CategoryType = ""
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeIncome  CategoryType = "income"
)

// Category is either a BareCategory (legacy plain name) or a
// StructuredCategory. Consumers switch on the concrete type.
type Category interface {
	isCategory()
}

// BareCategory is the legacy shape: just a name.
type BareCategory string

// StructuredCategory carries an id and an optional icon reference.
type StructuredCategory struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Icon *string `json:"icon"`
}

func (BareCategory) isCategory()       {}
func (StructuredCategory) isCategory() {}

// CategoryName returns the display name of either shape.
func CategoryName(c Category) string {
	switch v := c.(type) {
	case BareCategory:
		return string(v)
	case StructuredCategory:
		return v.Name
	case *StructuredCategory:
		return v.Name
	default:
		return ""
	}
}

// CategoryList is a heterogeneous list of categories as served upstream.
type CategoryList []Category

// UnmarshalJSON keeps bare strings as-is and normalizes objects to
// StructuredCategory with a nil icon when absent.
func (l *CategoryList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode category list: %w", err)
	}
	out := make(CategoryList, 0, len(raw))
	for i, item := range raw {
		c, err := decodeCategory(item)
		if err != nil {
			return fmt.Errorf("decode category %d: %w", i, err)
		}
		out = append(out, c)
	}
	*l = out
	return nil
}

func decodeCategory(item json.RawMessage) (Category, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty entry")
	}
	switch trimmed[0] {
	case '"':
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return nil, err
		}
		return BareCategory(name), nil
	case '{':
		var s StructuredCategory
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		if s.ID == "" {
			s.ID = s.Name
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported category shape %s", string(trimmed))
	}
}

// Names flattens the list to display names.
func (l CategoryList) Names() []string {
	out := make([]string, 0, len(l))
	for _, c := range l {
		out = append(out, CategoryName(c))
	}
	return out
}
