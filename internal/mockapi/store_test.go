package mockapi

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"paytrack/internal/core"
)

func payment(name string, cents int64, category string, day int, wallet string) core.Payment {
	return core.Payment{
		Name:          name,
		AmountInCents: cents,
		Category:      category,
		Date:          core.NewDate(2025, 1, day),
		Wallet:        wallet,
	}
}

func TestStoreCreateListAndBalance(t *testing.T) {
	ctx := context.Background()
	s := New(DefaultCategories(), []string{"Main"})

	for _, p := range []core.Payment{
		payment("Salary", 300000, "salary", 1, "Main"),
		payment("Pizza", -1500, "food", 3, "Main"),
		payment("Bus", -200, "transport", 2, "Cash"),
	} {
		created, err := s.CreatePayment(ctx, p)
		if err != nil {
			t.Fatalf("create %s: %v", p.Name, err)
		}
		if created.ID == "" {
			t.Fatalf("expected surrogate id for %s", p.Name)
		}
	}

	page := s.Payments(ctx, 0, 2, core.PaymentFilters{})
	if len(page.Content) != 2 || page.Content[0].Name != "Pizza" || page.Content[1].Name != "Bus" {
		t.Fatalf("unexpected first page: %+v", page.Content)
	}
	if !page.HasNextPage() {
		t.Error("a full page should report a possible next page")
	}
	page = s.Payments(ctx, 1, 2, core.PaymentFilters{})
	if len(page.Content) != 1 || page.Content[0].Name != "Salary" {
		t.Fatalf("unexpected second page: %+v", page.Content)
	}
	if page = s.Payments(ctx, 5, 2, core.PaymentFilters{}); len(page.Content) != 0 || page.Content == nil {
		t.Errorf("out of range page should be empty, got %+v", page.Content)
	}

	b := s.Balance(ctx, "", "")
	if b.TotalInCents != 298300 || b.IncomeInCents != 300000 || b.ExpensesInCents != -1700 {
		t.Errorf("unexpected balance %+v", b)
	}
	b = s.Balance(ctx, "2025-01-02", "2025-01-02")
	if b.TotalInCents != -200 {
		t.Errorf("date-bounded balance = %+v", b)
	}
}

func TestStoreFilters(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	p := payment("Dinner", -4000, "food", 10, "Main")
	p.Description = "Birthday PIZZA night"
	_, _ = s.CreatePayment(ctx, p)
	_, _ = s.CreatePayment(ctx, payment("Rent", -90000, "home", 1, "Main"))

	got := s.Payments(ctx, 0, 20, core.PaymentFilters{Search: "pizza"})
	if len(got.Content) != 1 || got.Content[0].Name != "Dinner" {
		t.Errorf("search should match description case-insensitively: %+v", got.Content)
	}
	got = s.Payments(ctx, 0, 20, core.PaymentFilters{Category: "home", DateTo: "2025-01-01"})
	if len(got.Content) != 1 || got.Content[0].Name != "Rent" {
		t.Errorf("inclusive date bound failed: %+v", got.Content)
	}
}

func TestStorePagesBeyondTheEndAreEmpty(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	_, _ = s.CreatePayment(ctx, payment("Rent", -90000, "home", 1, "Main"))

	tests := []struct {
		name       string
		page, size int
	}{
		{"past the last item", 1, 20},
		{"offset overflows int", 92233720368547759, 100},
		{"largest page", math.MaxInt, 1},
		{"zero size", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Payments(ctx, tt.page, tt.size, core.PaymentFilters{})
			if len(got.Content) != 0 {
				t.Errorf("Payments(%d, %d) = %+v, want empty page", tt.page, tt.size, got.Content)
			}
			if got.Page != tt.page || got.Size != tt.size {
				t.Errorf("page envelope = %d/%d, want %d/%d", got.Page, got.Size, tt.page, tt.size)
			}
		})
	}
}

func TestStoreUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	created, _ := s.CreatePayment(ctx, payment("Coffee", -250, "food", 5, "Main"))

	created.AmountInCents = -300
	updated, err := s.UpdatePayment(ctx, created.ID, created)
	if err != nil || updated.AmountInCents != -300 {
		t.Fatalf("update: %+v err=%v", updated, err)
	}
	if _, err := s.UpdatePayment(ctx, "missing", created); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: err=%v", err)
	}
	if _, err := s.UpdatePayment(ctx, created.ID, core.Payment{}); err == nil {
		t.Error("update with invalid payload should fail")
	}

	if err := s.DeletePayment(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeletePayment(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err=%v", err)
	}
}

func TestStoreWallets(t *testing.T) {
	ctx := context.Background()
	s := New(nil, []string{"Main", "Main", " ", "Cash"})
	if ws := s.Wallets(ctx); len(ws) != 2 {
		t.Fatalf("expected deduplicated wallets, got %+v", ws)
	}

	w, err := s.CreateWallet(ctx, "Savings")
	if err != nil || w.ID == "" {
		t.Fatalf("create wallet: %+v err=%v", w, err)
	}
	if _, err := s.CreateWallet(ctx, "savings"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate wallet: err=%v", err)
	}

	_, _ = s.CreatePayment(ctx, payment("Deposit", 1000, "salary", 1, "Savings"))
	if err := s.DeleteWallet(ctx, w.ID); err != nil {
		t.Errorf("wallet with payments should still be deletable: %v", err)
	}
	if err := s.DeleteWallet(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err=%v", err)
	}
}

func TestCategoriesByType(t *testing.T) {
	s := New(DefaultCategories(), nil)

	all := s.Categories(context.Background(), core.CategoryTypeAll)
	if len(all) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(all))
	}
	expense := s.Categories(context.Background(), core.CategoryTypeExpense).Names()
	want := []string{"food", "transport", "home", "other"}
	if len(expense) != len(want) {
		t.Fatalf("expense categories = %v", expense)
	}
	for i := range want {
		if expense[i] != want[i] {
			t.Errorf("expense[%d] = %q, want %q", i, expense[i], want[i])
		}
	}

	food, ok := all[0].(core.StructuredCategory)
	if !ok || food.Icon == nil || *food.Icon != "utensils" {
		t.Errorf("food should be structured with an icon: %#v", all[0])
	}
	transport := all[1].(core.StructuredCategory)
	if transport.Icon != nil {
		t.Errorf("transport icon should be nil, got %q", *transport.Icon)
	}
}

func TestNewFromFilesSeedsAndDefaults(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	if len(s.Wallets(context.Background())) == 0 || len(s.Categories(context.Background(), "")) == 0 {
		t.Fatal("expected defaults when files are missing")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("seed_categories.txt", "# name,type,icon\nFood,expense,utensils\nmisc\nfood\n\n")
	mustWrite("seed_wallets.txt", "# wallets\nMain\nMain\nCard\n")

	s = NewFromFiles(dir)
	cats := s.Categories(context.Background(), "")
	if len(cats) != 2 {
		t.Fatalf("unexpected categories: %#v", cats)
	}
	if _, ok := cats[0].(core.StructuredCategory); !ok {
		t.Errorf("typed seed line should be structured: %#v", cats[0])
	}
	if cats[1] != core.BareCategory("misc") {
		t.Errorf("name-only seed line should be bare: %#v", cats[1])
	}
	if ws := s.Wallets(context.Background()); len(ws) != 2 || ws[0].Name != "Main" || ws[1].Name != "Card" {
		t.Errorf("unexpected wallets: %+v", ws)
	}
}
