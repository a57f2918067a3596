package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"paytrack/internal/cli"
	"paytrack/internal/core"
	"paytrack/internal/export"
	"paytrack/internal/filter"
	"paytrack/internal/services"
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// filterFlags binds the payment-history criteria to fs.
type filterFlags struct {
	search, category, wallet, from, to string
}

func (f *filterFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&f.search, "search", "", "substring of name or description")
	fs.StringVar(&f.category, "category", filter.All, "category name")
	fs.StringVar(&f.wallet, "wallet", filter.All, "wallet name")
	fs.StringVar(&f.from, "from", "", "first date (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last date (YYYY-MM-DD)")
}

// state applies the criteria to a fresh filter state, then navigates to
// page, since every criterion change resets pagination.
func (f *filterFlags) state(page int) *filter.State {
	st := filter.New(nil)
	st.SetSearchQuery(f.search)
	st.SetCategory(f.category)
	st.SetWallet(f.wallet)
	st.SetDateFrom(f.from)
	st.SetDateTo(f.to)
	st.SetPage(page)
	return st
}

// paymentFlags binds the editable payment fields to fs.
type paymentFlags struct {
	name, amount, category, date, wallet, description string
	expense                                           bool
	tags                                              core.Tags
}

func (p *paymentFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&p.name, "name", "", "payment name")
	fs.StringVar(&p.amount, "amount", "", "amount, e.g. 12.50")
	fs.BoolVar(&p.expense, "expense", false, "record as an expense")
	fs.StringVar(&p.category, "category", "", "category name")
	fs.StringVar(&p.date, "date", "", "date (YYYY-MM-DD, default today)")
	fs.StringVar(&p.wallet, "wallet", "", "wallet name")
	fs.StringVar(&p.description, "description", "", "optional description")
	fs.Func("tag", "key=value tag (repeatable)", func(v string) error {
		key, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("tag %q: want key=value", v)
		}
		p.tags = p.tags.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		return nil
	})
}

func (p *paymentFlags) payment() (core.Payment, error) {
	cents, err := core.ParseDecimalToCents(p.amount)
	if err != nil {
		return core.Payment{}, fmt.Errorf("amount %q: %w", p.amount, err)
	}
	date := core.Today()
	if p.date != "" {
		if date, err = core.ParseDate(p.date); err != nil {
			return core.Payment{}, err
		}
	}
	pay := core.NewPayment(p.name, cents, p.expense, p.category, date, p.wallet)
	pay.Description = strings.TrimSpace(p.description)
	pay.Tags = p.tags
	if err := pay.Validate(); err != nil {
		return core.Payment{}, err
	}
	return pay, nil
}

func runHealth(ctx context.Context, a *app, args []string) error {
	h, err := a.gateway.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, h.Status)
	return nil
}

func runBalance(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("balance", a.out)
	from := fs.String("from", "", "first date (YYYY-MM-DD)")
	to := fs.String("to", "", "last date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, err := a.svc.Balance(ctx, *from, *to)
	if err != nil {
		return err
	}
	renderBalance(a.out, b)
	return nil
}

func runPayments(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("payments", a.out)
	var ff filterFlags
	ff.bind(fs)
	page := fs.Int("page", 0, "0-based page number")
	size := fs.Int("size", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st := ff.state(*page)
	result, err := a.svc.PaymentsFor(ctx, st.Snapshot(), *size)
	if err != nil {
		return err
	}
	layout, err := a.layout(ctx)
	if err != nil {
		return err
	}
	renderPayments(a.out, layout, result.Content)
	renderPageFooter(a.out, result, st.ActiveFiltersCount())
	return nil
}

func runRecent(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("recent", a.out)
	limit := fs.Int("limit", services.DefaultRecentLimit, "number of payments")
	if err := fs.Parse(args); err != nil {
		return err
	}
	recent, err := a.svc.RecentPayments(ctx, *limit)
	if err != nil {
		return err
	}
	layout, err := a.layout(ctx)
	if err != nil {
		return err
	}
	renderPayments(a.out, layout, recent)
	return nil
}

func runCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create", a.out)
	var pf paymentFlags
	pf.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := pf.payment()
	if err != nil {
		return err
	}
	created, err := a.svc.CreatePayment(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, created.ID)
	return nil
}

func runUpdate(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(a.out, "usage: paytrack update <id> -name ... -amount ...")
		return errUsage
	}
	id := args[0]
	fs := newFlagSet("update", a.out)
	var pf paymentFlags
	pf.bind(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	p, err := pf.payment()
	if err != nil {
		return err
	}
	_, err = a.svc.UpdatePayment(ctx, id, p)
	return err
}

func runDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "usage: paytrack delete <id>")
		return errUsage
	}
	return a.svc.DeletePayment(ctx, args[0])
}

func runWallets(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		wallets, err := a.svc.Wallets(ctx)
		if err != nil {
			return err
		}
		renderWallets(a.out, wallets)
		return nil
	}
	switch {
	case args[0] == "create" && len(args) == 2:
		w := core.Wallet{Name: strings.TrimSpace(args[1])}
		if err := w.Validate(); err != nil {
			return err
		}
		_, err := a.svc.CreateWallet(ctx, w.Name)
		return err
	case args[0] == "delete" && len(args) == 2:
		return a.svc.DeleteWallet(ctx, args[1])
	default:
		fmt.Fprintln(a.out, "usage: paytrack wallets [list | create <name> | delete <id>]")
		return errUsage
	}
}

func runCategories(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("categories", a.out)
	kind := fs.String("type", "", "expense or income")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t := core.CategoryType(*kind)
	switch t {
	case core.CategoryTypeAll, core.CategoryTypeExpense, core.CategoryTypeIncome:
	default:
		return fmt.Errorf("unknown category type %q", *kind)
	}
	cats, err := a.svc.Categories(ctx, t)
	if err != nil {
		return err
	}
	for _, name := range cats.Names() {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

func runDashboard(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("dashboard", a.out)
	limit := fs.Int("recent", services.DefaultRecentLimit, "number of recent payments")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := a.svc.Dashboard(ctx, *limit)
	if err != nil {
		return err
	}
	layout, err := a.layout(ctx)
	if err != nil {
		return err
	}
	renderDashboard(a.out, layout, d)
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export", a.out)
	var ff filterFlags
	ff.bind(fs)
	format := fs.String("format", "xlsx", "xlsx or sheets")
	output := fs.String("o", "", "xlsx output path (default paytrack_export_<date>.xlsx, - for stdout)")
	pageSize := fs.Int("page-size", 100, "page size used to walk the history")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payments, err := a.svc.AllPayments(ctx, ff.state(0).Filters(), *pageSize)
	if err != nil {
		return err
	}

	switch *format {
	case "xlsx":
		x := export.NewXLSXExporter()
		path := *output
		if path == "-" {
			return x.Write(os.Stdout, payments)
		}
		if path == "" {
			path = x.Filename()
		}
		if err := x.WriteFile(path, payments); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Exported %d payments to %s\n", len(payments), path)
	case "sheets":
		if !a.cfg.SheetsEnabled() {
			return fmt.Errorf("sheets export needs GOOGLE_SPREADSHEET_ID")
		}
		sc, err := cli.SheetsConfig(a.cfg)
		if err != nil {
			return err
		}
		exp, err := export.NewSheetsExporter(ctx, sc)
		if err != nil {
			return err
		}
		rng, err := exp.Export(ctx, payments)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Exported %d payments to %s\n", len(payments), rng)
	default:
		return fmt.Errorf("unknown export format %q", *format)
	}
	return nil
}

func runLayout(ctx context.Context, a *app, args []string) error {
	switch len(args) {
	case 0:
		layout, err := a.layout(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, layout)
		return nil
	case 1:
		return a.prefs.SetLayout(ctx, args[0])
	default:
		fmt.Fprintln(a.out, "usage: paytrack layout [table|compact]")
		return errUsage
	}
}

func (a *app) layout(ctx context.Context) (string, error) {
	return a.prefs.Layout(ctx)
}
