package query

import (
	"strconv"
	"strings"
	"time"

	"paytrack/internal/core"
)

// Resource is the kind of data a key refers to; invalidation works per resource.
type Resource string

const (
	ResourceBalance    Resource = "balance"
	ResourcePayments   Resource = "payments"
	ResourceCategories Resource = "categories"
	ResourceWallets    Resource = "wallets"
)

const (
	VariantPaged  = "paged"
	VariantRecent = "recent"
)

// Key identifies one cache entry. Keys differing in any part are independent.
type Key struct {
	Resource Resource
	Variant  string
	Params   []string
}

func (k Key) String() string {
	parts := make([]string, 0, 2+len(k.Params))
	parts = append(parts, string(k.Resource))
	if k.Variant != "" {
		parts = append(parts, k.Variant)
	}
	for _, p := range k.Params {
		parts = append(parts, strconv.Quote(p))
	}
	return strings.Join(parts, "/")
}

func BalanceKey(dateFrom, dateTo string) Key {
	if dateFrom == "" && dateTo == "" {
		return Key{Resource: ResourceBalance}
	}
	return Key{Resource: ResourceBalance, Params: []string{dateFrom, dateTo}}
}

func PaymentsPagedKey(page, size int, filters *core.PaymentFilters) Key {
	params := []string{strconv.Itoa(page), strconv.Itoa(size)}
	if filters != nil && !filters.IsZero() {
		params = append(params,
			"search="+filters.Search,
			"category="+filters.Category,
			"wallet="+filters.Wallet,
			"from="+filters.DateFrom,
			"to="+filters.DateTo)
	}
	return Key{Resource: ResourcePayments, Variant: VariantPaged, Params: params}
}

func PaymentsRecentKey(limit int) Key {
	return Key{Resource: ResourcePayments, Variant: VariantRecent, Params: []string{strconv.Itoa(limit)}}
}

func CategoriesKey(t core.CategoryType) Key {
	if t == core.CategoryTypeAll {
		return Key{Resource: ResourceCategories}
	}
	return Key{Resource: ResourceCategories, Params: []string{string(t)}}
}

func WalletsKey() Key {
	return Key{Resource: ResourceWallets}
}

// StaleTimes maps "resource" or "resource/variant" to a staleness window.
type StaleTimes map[string]time.Duration

// DefaultStaleTimes returns the per-resource staleness windows.
func DefaultStaleTimes() StaleTimes {
	return StaleTimes{
		"balance":         30 * time.Second,
		"payments/recent": 10 * time.Second,
		"payments/paged":  10 * time.Second,
		"categories":      300 * time.Second,
		"wallets":         60 * time.Second,
	}
}

// For returns the window for k, preferring the variant-specific entry.
// Unknown keys are always stale.
func (s StaleTimes) For(k Key) time.Duration {
	if k.Variant != "" {
		if d, ok := s[string(k.Resource)+"/"+k.Variant]; ok {
			return d
		}
	}
	return s[string(k.Resource)]
}

// Mutation names a write that invalidates cached reads.
type Mutation string

const (
	MutationCreatePayment Mutation = "create_payment"
	MutationUpdatePayment Mutation = "update_payment"
	MutationDeletePayment Mutation = "delete_payment"
	MutationCreateWallet  Mutation = "create_wallet"
	MutationDeleteWallet  Mutation = "delete_wallet"
)

var invalidationRules = map[Mutation][]Resource{
	MutationCreatePayment: {ResourcePayments, ResourceBalance},
	MutationUpdatePayment: {ResourcePayments, ResourceBalance},
	MutationDeletePayment: {ResourcePayments, ResourceBalance},
	MutationCreateWallet:  {ResourceWallets},
	MutationDeleteWallet:  {ResourceWallets},
}

// Invalidates returns the resources a mutation marks stale.
func (m Mutation) Invalidates() []Resource {
	return invalidationRules[m]
}
