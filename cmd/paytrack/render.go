package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"paytrack/internal/core"
	"paytrack/internal/services"
	"paytrack/internal/storage"
)

func renderBalance(w io.Writer, b core.Balance) {
	fmt.Fprintf(w, "Total:    %s\n", core.FormatCents(b.TotalInCents))
	fmt.Fprintf(w, "Income:   %s\n", core.FormatCents(b.IncomeInCents))
	fmt.Fprintf(w, "Expenses: %s\n", core.FormatCents(b.ExpensesInCents))
}

func renderPayments(w io.Writer, layout string, payments []core.Payment) {
	if len(payments) == 0 {
		fmt.Fprintln(w, "No payments.")
		return
	}
	if layout == storage.LayoutCompact {
		for _, p := range payments {
			fmt.Fprintf(w, "%s %s %s (%s, %s)\n", p.Date, core.FormatCents(p.AmountInCents), p.Name, p.Category, p.Wallet)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tNAME\tCATEGORY\tWALLET\tAMOUNT\tTAGS")
	for _, p := range payments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Date, p.Name, p.Category, p.Wallet, core.FormatCents(p.AmountInCents), tagString(p.Tags))
	}
	_ = tw.Flush()
}

func tagString(tags core.Tags) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, t.Key+"="+t.Value)
	}
	return strings.Join(parts, ",")
}

func renderPageFooter(w io.Writer, page core.Page[core.Payment], activeFilters int) {
	fmt.Fprintf(w, "\nPage %d", page.Page+1)
	if activeFilters > 0 {
		fmt.Fprintf(w, " · %d active filter(s)", activeFilters)
	}
	if page.HasNextPage() {
		fmt.Fprintf(w, " · more with -page %d", page.Page+1)
	}
	fmt.Fprintln(w)
}

func renderWallets(w io.Writer, wallets []core.Wallet) {
	if len(wallets) == 0 {
		fmt.Fprintln(w, "No wallets.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, wl := range wallets {
		fmt.Fprintf(tw, "%s\t%s\n", wl.ID, wl.Name)
	}
	_ = tw.Flush()
}

func renderDashboard(w io.Writer, layout string, d services.Dashboard) {
	renderBalance(w, d.Balance)
	fmt.Fprintln(w, "\nRecent payments:")
	renderPayments(w, layout, d.Recent)
	fmt.Fprintln(w, "\nWallets:")
	renderWallets(w, d.Wallets)
	fmt.Fprintf(w, "\nCategories: %s\n", strings.Join(d.Categories.Names(), ", "))
}
