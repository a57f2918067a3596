package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"paytrack/internal/cli"
	"paytrack/internal/config"
	applog "paytrack/internal/log"
	"paytrack/internal/query"
	"paytrack/internal/services"
	"paytrack/internal/storage"
)

const usage = `usage: paytrack <command> [flags]

commands:
  health                       check the API
  balance [-from] [-to]        show totals
  payments [filters] [-page]   list payments
  recent [-limit]              latest payments
  create -name -amount ...     add a payment
  update <id> -name ...        replace a payment
  delete <id>                  remove a payment
  wallets [create <name> | delete <id>]
  categories [-type]           list categories
  dashboard                    balance, recent payments, wallets and categories
  export [-format] [filters]   export payments to xlsx or Google Sheets
  layout [table|compact]       show or set the output layout
`

var errUsage = errors.New("invalid usage")

// app carries the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	svc     *services.PaymentService
	gateway services.Gateway
	prefs   *storage.PreferenceStore
	out     io.Writer
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"health":     runHealth,
	"balance":    runBalance,
	"payments":   runPayments,
	"recent":     runRecent,
	"create":     runCreate,
	"update":     runUpdate,
	"delete":     runDelete,
	"wallets":    runWallets,
	"categories": runCategories,
	"dashboard":  runDashboard,
	"export":     runExport,
	"layout":     runLayout,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	// Every attempt may take a full request timeout plus the longest backoff.
	budget := time.Duration(cfg.RetryAttempts) * (cfg.RequestTimeout + cfg.RetryMaxDelay)
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	a, cleanup, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		cli.Fatal(err)
	}
	defer cleanup()

	if err := cmd(ctx, a, os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			cleanup()
			os.Exit(2)
		}
		cleanup()
		cli.Fatal(err)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, out io.Writer) (*app, func(), error) {
	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create backend: %w", err)
	}

	notifier, closeNotifier := cli.InitNotifier(logger.WithComponent(applog.ComponentNotify), cfg, out)
	cache := query.NewClient(query.DefaultConfig(),
		query.WithLogger(logger.WithComponent(applog.ComponentQuery).Slog()),
		query.WithDedup(res.Client.Flights()))
	cache.Start()
	prefs := cli.InitPreferences(logger, cfg.PrefsDBPath)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		svc:     services.NewPaymentService(res.Client, cache, notifier, logger),
		gateway: res.Client,
		prefs:   prefs,
		out:     out,
	}

	var done bool
	cleanup := func() {
		if done {
			return
		}
		done = true
		cache.Close()
		if err := prefs.Close(); err != nil {
			logger.Warn("Failed to close preference store", "error", err)
		}
		if err := closeNotifier(); err != nil {
			logger.Warn("Failed to close notifier", "error", err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Failed to release backend", "error", err)
			}
		}
	}
	return a, cleanup, nil
}
