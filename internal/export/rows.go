// Package export writes payment history to spreadsheets.
package export

import (
	"strings"

	"github.com/shopspring/decimal"

	"paytrack/internal/core"
)

// Header is the column layout shared by every exporter.
var Header = []string{"Date", "Name", "Description", "Category", "Wallet", "Type", "Amount", "Tags"}

// Amount converts minor units to a two-decimal number for spreadsheet cells.
func Amount(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// Row renders one payment in Header order.
func Row(p core.Payment) []any {
	kind := "income"
	if p.IsExpense() {
		kind = "expense"
	}
	return []any{
		p.Date.String(),
		p.Name,
		p.Description,
		p.Category,
		p.Wallet,
		kind,
		Amount(p.AmountInCents),
		formatTags(p.Tags),
	}
}

// Rows renders payments in order, header first.
func Rows(payments []core.Payment) [][]any {
	out := make([][]any, 0, len(payments)+1)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	out = append(out, header)
	for _, p := range payments {
		out = append(out, Row(p))
	}
	return out
}

// Summarize folds payments into a balance.
func Summarize(payments []core.Payment) core.Balance {
	var b core.Balance
	for _, p := range payments {
		b.Add(p)
	}
	return b
}

func formatTags(tags core.Tags) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, t.Key+"="+t.Value)
	}
	return strings.Join(parts, "; ")
}
