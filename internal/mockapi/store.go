// Package mockapi is the offline backend: an in-memory store seeded from
// text files, served over the same REST surface as the real backend.
package mockapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"paytrack/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// SeedCategory is one line of seed_categories.txt: "name[,type[,icon]]".
// A line with only a name is served in the legacy bare-string shape.
type SeedCategory struct {
	Name string
	Type core.CategoryType
	Icon string
}

type Store struct {
	mu       sync.Mutex
	cats     []SeedCategory
	wallets  []core.Wallet
	payments []core.Payment
	newID    func() string
}

// New creates a store with the given taxonomy. Duplicate names are dropped,
// first occurrence wins.
func New(cats []SeedCategory, wallets []string) *Store {
	s := &Store{
		cats:  dedupeCategories(cats),
		newID: func() string { return uuid.NewString() },
	}
	for _, name := range dedupe(wallets) {
		s.wallets = append(s.wallets, core.Wallet{ID: s.newID(), Name: name})
	}
	return s
}

// NewFromFiles seeds from seed_categories.txt and seed_wallets.txt in base,
// falling back to defaults when a file is missing or empty.
func NewFromFiles(base string) *Store {
	var cats []SeedCategory
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		cats = append(cats, parseSeedCategory(line))
	}
	wallets := readLines(filepath.Join(base, "seed_wallets.txt"))
	if len(cats) == 0 {
		cats = DefaultCategories()
	}
	if len(wallets) == 0 {
		wallets = []string{"Main", "Cash"}
	}
	return New(cats, wallets)
}

// DefaultCategories mixes both wire shapes on purpose.
func DefaultCategories() []SeedCategory {
	return []SeedCategory{
		{Name: "food", Type: core.CategoryTypeExpense, Icon: "utensils"},
		{Name: "transport", Type: core.CategoryTypeExpense},
		{Name: "home", Type: core.CategoryTypeExpense, Icon: "house"},
		{Name: "salary", Type: core.CategoryTypeIncome, Icon: "briefcase"},
		{Name: "other"},
	}
}

func parseSeedCategory(line string) SeedCategory {
	parts := strings.Split(line, ",")
	c := SeedCategory{Name: strings.ToLower(strings.TrimSpace(parts[0]))}
	if len(parts) > 1 {
		c.Type = core.CategoryType(strings.ToLower(strings.TrimSpace(parts[1])))
	}
	if len(parts) > 2 {
		c.Icon = strings.TrimSpace(parts[2])
	}
	return c
}

// Categories lists categories of type t. Untyped (legacy) entries match
// every type.
func (s *Store) Categories(_ context.Context, t core.CategoryType) core.CategoryList {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := core.CategoryList{}
	for _, c := range s.cats {
		if t != core.CategoryTypeAll && c.Type != "" && c.Type != t {
			continue
		}
		if c.Type == "" {
			out = append(out, core.BareCategory(c.Name))
			continue
		}
		sc := core.StructuredCategory{ID: "cat-" + c.Name, Name: c.Name}
		if c.Icon != "" {
			icon := c.Icon
			sc.Icon = &icon
		}
		out = append(out, sc)
	}
	return out
}

// Payments returns one page of matching payments, newest date first.
func (s *Store) Payments(_ context.Context, page, size int, f core.PaymentFilters) core.Page[core.Payment] {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]core.Payment, 0, len(s.payments))
	for i := len(s.payments) - 1; i >= 0; i-- {
		if f.Match(s.payments[i]) {
			matched = append(matched, s.payments[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date.Time)
	})

	result := core.Page[core.Payment]{Content: []core.Payment{}, Page: page, Size: size}
	if page < 0 || size <= 0 || page > (math.MaxInt-size)/size {
		return result
	}
	start := page * size
	if start >= len(matched) {
		return result
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	result.Content = append(result.Content, matched[start:end]...)
	return result
}

// Balance sums matching payments; only the date bounds of f apply.
func (s *Store) Balance(_ context.Context, dateFrom, dateTo string) core.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := core.PaymentFilters{DateFrom: dateFrom, DateTo: dateTo}
	var b core.Balance
	for _, p := range s.payments {
		if f.Match(p) {
			b.Add(p)
		}
	}
	return b
}

// CreatePayment stores p under a fresh surrogate id.
func (s *Store) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.newID()
	p.Tags = append(core.Tags(nil), p.Tags...)
	s.payments = append(s.payments, p)
	return p, nil
}

// UpdatePayment replaces the full record.
func (s *Store) UpdatePayment(_ context.Context, id string, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.payments {
		if s.payments[i].ID == id {
			p.ID = id
			p.Tags = append(core.Tags(nil), p.Tags...)
			s.payments[i] = p
			return p, nil
		}
	}
	return core.Payment{}, fmt.Errorf("payment %s: %w", id, ErrNotFound)
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("payment %s: %w", id, ErrNotFound)
}

func (s *Store) Wallets(_ context.Context) []core.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Wallet{}, s.wallets...)
}

// CreateWallet rejects names already in use.
func (s *Store) CreateWallet(_ context.Context, name string) (core.Wallet, error) {
	w := core.Wallet{Name: strings.TrimSpace(name)}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.wallets {
		if strings.EqualFold(existing.Name, w.Name) {
			return core.Wallet{}, fmt.Errorf("wallet %q: %w", w.Name, ErrConflict)
		}
	}
	w.ID = s.newID()
	s.wallets = append(s.wallets, w)
	return w, nil
}

// DeleteWallet removes the wallet even if payments still reference it.
func (s *Store) DeleteWallet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.wallets {
		if s.wallets[i].ID == id {
			s.wallets = append(s.wallets[:i], s.wallets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("wallet %s: %w", id, ErrNotFound)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func dedupeCategories(in []SeedCategory) []SeedCategory {
	seen := map[string]struct{}{}
	out := make([]SeedCategory, 0, len(in))
	for _, c := range in {
		if c.Name == "" {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}
