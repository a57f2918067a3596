// Package filter holds the payment-history filter criteria and the current
// page, resetting pagination whenever a criterion changes.
package filter

import (
	"sync"

	"paytrack/internal/core"
)

// All is the "no filter" value for category and wallet selections.
const All = "all"

// Snapshot is an immutable copy of the state.
type Snapshot struct {
	SearchQuery      string
	SelectedCategory string
	SelectedWallet   string
	DateFrom         string
	DateTo           string
	CurrentPage      int
}

func defaults() Snapshot {
	return Snapshot{SelectedCategory: All, SelectedWallet: All}
}

// ActiveFiltersCount counts the non-default criteria other than free-text search.
func (s Snapshot) ActiveFiltersCount() int {
	n := 0
	if s.SelectedCategory != All {
		n++
	}
	if s.SelectedWallet != All {
		n++
	}
	if s.DateFrom != "" {
		n++
	}
	if s.DateTo != "" {
		n++
	}
	return n
}

// HasActiveFilters includes the search query, unlike ActiveFiltersCount.
func (s Snapshot) HasActiveFilters() bool {
	return s.SearchQuery != "" || s.ActiveFiltersCount() > 0
}

// Filters projects the deviating criteria. It returns nil, not an empty
// value, when nothing deviates.
func (s Snapshot) Filters() *core.PaymentFilters {
	if !s.HasActiveFilters() {
		return nil
	}
	f := &core.PaymentFilters{
		Search:   s.SearchQuery,
		DateFrom: s.DateFrom,
		DateTo:   s.DateTo,
	}
	if s.SelectedCategory != All {
		f.Category = s.SelectedCategory
	}
	if s.SelectedWallet != All {
		f.Wallet = s.SelectedWallet
	}
	return f
}

// State is the mutable filter/pagination holder. It is safe for concurrent use.
type State struct {
	mu           sync.Mutex
	s            Snapshot
	onPageChange func(page int)
}

// New returns a State at defaults. onPageChange, if set, runs after every
// explicit page navigation (the scroll-to-top hook).
func New(onPageChange func(page int)) *State {
	return &State{s: defaults(), onPageChange: onPageChange}
}

func (st *State) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

func (st *State) update(fn func(*Snapshot)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
	st.s.CurrentPage = 0
}

func (st *State) SetSearchQuery(q string) {
	st.update(func(s *Snapshot) { s.SearchQuery = q })
}

// SetCategory selects a category; "" is treated as All.
func (st *State) SetCategory(c string) {
	if c == "" {
		c = All
	}
	st.update(func(s *Snapshot) { s.SelectedCategory = c })
}

// SetWallet selects a wallet; "" is treated as All.
func (st *State) SetWallet(w string) {
	if w == "" {
		w = All
	}
	st.update(func(s *Snapshot) { s.SelectedWallet = w })
}

func (st *State) SetDateFrom(d string) {
	st.update(func(s *Snapshot) { s.DateFrom = d })
}

func (st *State) SetDateTo(d string) {
	st.update(func(s *Snapshot) { s.DateTo = d })
}

// SetPage navigates without touching the criteria and fires the page hook.
func (st *State) SetPage(page int) {
	if page < 0 {
		page = 0
	}
	st.mu.Lock()
	st.s.CurrentPage = page
	hook := st.onPageChange
	st.mu.Unlock()

	if hook != nil {
		hook(page)
	}
}

// NextPage advances when the current page looked full.
func (st *State) NextPage(hasNext bool) {
	if !hasNext {
		return
	}
	st.SetPage(st.Snapshot().CurrentPage + 1)
}

func (st *State) PrevPage() {
	if cur := st.Snapshot().CurrentPage; cur > 0 {
		st.SetPage(cur - 1)
	}
}

// ClearFilters resets everything, page included, in one step.
func (st *State) ClearFilters() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = defaults()
}

func (st *State) ActiveFiltersCount() int       { return st.Snapshot().ActiveFiltersCount() }
func (st *State) HasActiveFilters() bool        { return st.Snapshot().HasActiveFilters() }
func (st *State) Filters() *core.PaymentFilters { return st.Snapshot().Filters() }
func (st *State) CurrentPage() int              { return st.Snapshot().CurrentPage }
