package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the ISO calendar date representation used on the wire.
const DateLayout = "2006-01-02"

const (
	MaxNameLength        = 100
	MaxCategoryLength    = 50
	MaxDescriptionLength = 500
	MaxWalletNameLength  = 50
	MaxTags              = 5
)

type (
	Date struct {
		time.Time
	}

	Tag struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	// Tags is an ordered list of key/value pairs with unique keys.
	Tags []Tag

	// Payment is a single income (positive amount) or expense (negative amount).
	Payment struct {
		ID            string `json:"id,omitempty"`
		Name          string `json:"name"`
		AmountInCents int64  `json:"amountInCents"`
		Category      string `json:"category"`
		Date          Date   `json:"date"`
		Description   string `json:"description,omitempty"`
		Wallet        string `json:"wallet"`
		Tags          Tags   `json:"tags,omitempty"`
	}

	Wallet struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Balance is the aggregate over a set of payments. ExpensesInCents is
	// the (non-positive) sum of the negative amounts.
	Balance struct {
		TotalInCents    int64 `json:"totalInCents"`
		IncomeInCents   int64 `json:"incomeInCents"`
		ExpensesInCents int64 `json:"expensesInCents"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrZeroAmount         = errors.New("amount cannot be zero")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrCategoryTooLong    = errors.New("category too long (max 50 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
	ErrEmptyWallet        = errors.New("empty wallet")
	ErrWalletNameTooLong  = errors.New("wallet name too long (max 50 characters)")
	ErrTooManyTags        = errors.New("too many tags (max 5)")
	ErrEmptyTagKey        = errors.New("empty tag key")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar date.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String returns the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Set inserts a tag or, when the key already exists, replaces its value in place.
func (ts Tags) Set(key, value string) Tags {
	for i := range ts {
		if ts[i].Key == key {
			ts[i].Value = value
			return ts
		}
	}
	return append(ts, Tag{Key: key, Value: value})
}

// Get returns the value stored under key.
func (ts Tags) Get(key string) (string, bool) {
	for _, t := range ts {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

func (ts Tags) Validate() error {
	if len(ts) > MaxTags {
		return ErrTooManyTags
	}
	seen := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		if strings.TrimSpace(t.Key) == "" {
			return ErrEmptyTagKey
		}
		if _, dup := seen[t.Key]; dup {
			return fmt.Errorf("duplicate tag key %q", t.Key)
		}
		seen[t.Key] = struct{}{}
	}
	return nil
}

// IsExpense derives the expense flag from the amount sign.
func (p Payment) IsExpense() bool {
	return p.AmountInCents < 0
}

func (p Payment) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.AmountInCents == 0 {
		return ErrZeroAmount
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(p.Category) > MaxCategoryLength {
		return ErrCategoryTooLong
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(p.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(p.Wallet) == "" {
		return ErrEmptyWallet
	}
	return p.Tags.Validate()
}

// NewPayment builds a payment from an unsigned amount and an expense flag.
// Categories are stored lowercase.
func NewPayment(name string, amountCents int64, isExpense bool, category string, date Date, wallet string) Payment {
	if amountCents < 0 {
		amountCents = -amountCents
	}
	if isExpense {
		amountCents = -amountCents
	}
	return Payment{
		Name:          strings.TrimSpace(name),
		AmountInCents: amountCents,
		Category:      strings.ToLower(strings.TrimSpace(category)),
		Date:          date,
		Wallet:        strings.TrimSpace(wallet),
	}
}

func (w Wallet) Validate() error {
	name := strings.TrimSpace(w.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxWalletNameLength {
		return ErrWalletNameTooLong
	}
	return nil
}

// Add folds a payment into the balance.
func (b *Balance) Add(p Payment) {
	b.TotalInCents += p.AmountInCents
	if p.IsExpense() {
		b.ExpensesInCents += p.AmountInCents
	} else {
		b.IncomeInCents += p.AmountInCents
	}
}
