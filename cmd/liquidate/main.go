/*
main.go - Payroll liquidation command

PURPOSE:
  Runs the engine against the configured store: seeds reference data,
  liquidates a payroll period or a single employee, and closes periods.
  Results are printed to stdout as JSON; logs go to stderr.

STARTUP SEQUENCE:
  1. Parse flags
  2. Load config (YAML + .env + PAYROLL_* environment)
  3. Open the SQLite or PostgreSQL store
  4. Seed a bundle if -seed is set
  5. Run the requested action

COMMAND-LINE FLAGS:
  -config    YAML config file (optional)
  -seed      "default" for the built-in 2026 data, "config" for the
             reference_data.path bundle, or a bundle JSON path
  -period    Payroll period ID to liquidate
  -from/-to  With -period: create the period as DRAFT when it is missing
             With -employee: the liquidation range
  -employee  Liquidate one employee without persisting
  -close     PAID or REPORTED: close -period instead of running it

SHUTDOWN:
  SIGINT/SIGTERM cancel the run context. A period run stops between
  employees and writes nothing.

EXAMPLES:
  liquidate -seed default -period 2026-08 -from 2026-08-01 -to 2026-08-30
  liquidate -employee emp-1 -from 2026-08-01 -to 2026-08-30
  liquidate -period 2026-08 -close PAID

SEE ALSO:
  - config/config.go: Configuration sources
  - liquidation/runner.go: Period runs and closing
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/liquidation"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/novelty"
	"github.com/warp/payroll-engine/store/postgres"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "liquidate:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	configPath string
	seed       string
	periodID   string
	employeeID string
	from, to   string
	closeAs    string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("liquidate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.configPath, "config", "", "YAML config file")
	fs.StringVar(&o.seed, "seed", "", `reference data to load: "default", "config" or a bundle JSON path`)
	fs.StringVar(&o.periodID, "period", "", "payroll period ID to liquidate")
	fs.StringVar(&o.employeeID, "employee", "", "liquidate one employee without persisting")
	fs.StringVar(&o.from, "from", "", "range start (YYYY-MM-DD)")
	fs.StringVar(&o.to, "to", "", "range end (YYYY-MM-DD)")
	fs.StringVar(&o.closeAs, "close", "", "close -period as PAID or REPORTED")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.employeeID != "" && (o.from == "" || o.to == "") {
		return nil, fmt.Errorf("-employee needs -from and -to")
	}
	if o.closeAs != "" && o.periodID == "" {
		return nil, fmt.Errorf("-close needs -period")
	}
	if o.seed == "" && o.periodID == "" && o.employeeID == "" {
		fs.Usage()
		return nil, fmt.Errorf("nothing to do: pass -seed, -period or -employee")
	}
	return &o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("store opened", "driver", cfg.Database.Driver)

	out := json.NewEncoder(stdout)
	out.SetIndent("", "  ")

	if opts.seed == "config" {
		if cfg.ReferenceData.Path == "" {
			return fmt.Errorf("-seed config: reference_data.path is not set")
		}
		opts.seed = cfg.ReferenceData.Path
	}
	if opts.seed != "" {
		summary, err := seed(ctx, store, opts.seed)
		if err != nil {
			return err
		}
		logger.Info("reference data seeded",
			"parameters", summary.Parameters,
			"novelty_types", summary.NoveltyTypes,
			"concepts", summary.Concepts,
			"employees", summary.Employees,
			"novelties", summary.Novelties)
	}

	resolver := legal.NewResolver(store, legal.FallbackObserverFunc(func(key legal.Key, on generic.Date) {
		logging.FromContext(ctx).Debug("legal parameter missing", "key", string(key), "on", on.String())
	}))
	calc := liquidation.NewCalculator(store, store, concept.NewStoreCatalog(store), resolver, cfg.Liquidation.Rates())

	if opts.employeeID != "" {
		span, err := parseSpan(opts.from, opts.to)
		if err != nil {
			return err
		}
		res, err := calc.Liquidate(ctx, opts.employeeID, span)
		if err != nil {
			return err
		}
		for _, key := range res.FallbackKeys {
			logger.Warn("legal parameter resolved from fallback table", "employee_id", res.EmployeeID, "key", string(key))
		}
		return out.Encode(res)
	}

	if opts.periodID == "" {
		return nil
	}

	runner := liquidation.NewRunner(calc, store, store, store, store,
		liquidation.WithWorkers(cfg.Liquidation.Workers),
		liquidation.WithLogger(logger),
	)

	if opts.closeAs != "" {
		status, err := liquidation.ParseStatus(opts.closeAs)
		if err != nil {
			return err
		}
		if err := runner.ClosePeriod(ctx, opts.periodID, status); err != nil {
			return err
		}
		period, err := store.GetPeriod(ctx, opts.periodID)
		if err != nil {
			return err
		}
		return out.Encode(period)
	}

	if opts.from != "" || opts.to != "" {
		if err := ensurePeriod(ctx, store, opts); err != nil {
			return err
		}
	}

	summary, err := runner.RunPeriod(ctx, opts.periodID)
	if err != nil {
		return err
	}
	return out.Encode(summary)
}

// backend is what the command needs from either store.
type backend interface {
	factory.Target
	legal.Store
	liquidation.EmployeeStore
	liquidation.PeriodStore
	novelty.Locker
	concept.Store
}

func openStore(ctx context.Context, db config.Database) (backend, func(), error) {
	switch db.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, db)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		store, err := sqlite.New(db.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}

func seed(ctx context.Context, store factory.Target, source string) (*factory.SeedSummary, error) {
	var (
		bundle *factory.Bundle
		err    error
	)
	if source == "default" {
		bundle = factory.DefaultBundle()
	} else if bundle, err = factory.LoadBundle(source); err != nil {
		return nil, err
	}
	return factory.Seed(ctx, store, bundle)
}

// ensurePeriod creates the period as DRAFT when it does not exist yet.
func ensurePeriod(ctx context.Context, store backend, opts *options) error {
	_, err := store.GetPeriod(ctx, opts.periodID)
	if err == nil || !generic.IsNotFound(err) {
		return err
	}
	span, err := parseSpan(opts.from, opts.to)
	if err != nil {
		return err
	}
	return store.SavePeriod(ctx, liquidation.PayrollPeriod{
		ID:          opts.periodID,
		Name:        opts.periodID,
		Start:       span.Start,
		End:         span.End,
		PaymentDate: span.End,
		Status:      liquidation.StatusDraft,
	})
}

func parseSpan(from, to string) (generic.Period, error) {
	start, err := generic.ParseDate(from)
	if err != nil {
		return generic.Period{}, fmt.Errorf("-from: %w", err)
	}
	end, err := generic.ParseDate(to)
	if err != nil {
		return generic.Period{}, fmt.Errorf("-to: %w", err)
	}
	return generic.NewPeriod(start, end)
}
