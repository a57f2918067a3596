package core

import "strings"

// PaymentFilters narrows a payment listing. Empty fields do not filter.
type PaymentFilters struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
	Wallet   string `json:"wallet,omitempty"`
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`
}

// IsZero reports whether no criterion is set.
func (f PaymentFilters) IsZero() bool {
	return f == PaymentFilters{}
}

// Match applies the listing contract: search is a case-insensitive substring
// of name or description, category and wallet match exactly, and date
// bounds compare inclusively on the ISO string.
func (f PaymentFilters) Match(p Payment) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Wallet != "" && p.Wallet != f.Wallet {
		return false
	}
	date := p.Date.String()
	if f.DateFrom != "" && date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && date > f.DateTo {
		return false
	}
	return true
}

// Page is the paginated listing envelope. Page numbers are 0-based.
type Page[T any] struct {
	Content []T `json:"content"`
	Page    int `json:"page"`
	Size    int `json:"size"`
}

// HasNextPage is a heuristic: a full page suggests more items may follow.
// There is no authoritative total.
func (p Page[T]) HasNextPage() bool {
	return p.Size > 0 && len(p.Content) == p.Size
}
