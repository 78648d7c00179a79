package liquidation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/novelty"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// RUNNER - Liquidates a whole payroll period
// =============================================================================

// Runner liquidates every employee of a payroll period and stores the
// documents. Employees are computed in parallel; the write is one
// transaction that replaces any earlier documents of the period.
type Runner struct {
	calc      *Calculator
	employees EmployeeStore
	periods   PeriodStore
	locker    novelty.Locker
	tx        generic.Transactor
	workers   int
	logger    *slog.Logger
	now       func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds how many employees are computed at once.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now for document timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

func NewRunner(calc *Calculator, employees EmployeeStore, periods PeriodStore, locker novelty.Locker, tx generic.Transactor, opts ...RunnerOption) *Runner {
	r := &Runner{
		calc:      calc,
		employees: employees,
		periods:   periods,
		locker:    locker,
		tx:        tx,
		workers:   4,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunSummary describes a completed period run.
type RunSummary struct {
	PeriodID        string          `json:"period_id"`
	Employees       int             `json:"employees"`
	Replaced        int             `json:"replaced"` // documents of an earlier run that were discarded
	AccruedTotal    decimal.Decimal `json:"accrued_total"`
	DeductionsTotal decimal.Decimal `json:"deductions_total"`
	NetTotal        decimal.Decimal `json:"net_total"`
	FallbackKeys    []legal.Key     `json:"fallback_keys,omitempty"`
}

// RunPeriod liquidates the period. Paid or reported periods are rejected
// with ErrPeriodClosed. Cancelling ctx stops the run between employees
// and nothing is written.
func (r *Runner) RunPeriod(ctx context.Context, periodID string) (*RunSummary, error) {
	period, err := r.periods.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("load period %s: %w", periodID, err)
	}
	if period.Closed() {
		return nil, fmt.Errorf("%w: %s is %s", generic.ErrPeriodClosed, period.ID, period.Status)
	}
	span := period.Span()
	if err := span.Validate(); err != nil {
		return nil, err
	}

	eligible, err := r.eligibleEmployees(ctx, span)
	if err != nil {
		return nil, err
	}

	results, err := r.computeAll(ctx, eligible, span)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{PeriodID: period.ID, Employees: len(results)}
	fallbacks := make(map[legal.Key]bool)
	now := r.now()

	err = r.tx.WithTx(ctx, func(ctx context.Context) error {
		replaced, err := r.periods.DeleteDocuments(ctx, period.ID)
		if err != nil {
			return fmt.Errorf("discard previous documents: %w", err)
		}
		summary.Replaced = replaced

		for _, res := range results {
			if err := r.periods.SaveDocument(ctx, NewDocument(period.ID, res, now)); err != nil {
				return fmt.Errorf("save document for %s: %w", res.EmployeeID, err)
			}
		}

		period.Status = StatusLiquidated
		return r.periods.SavePeriod(ctx, *period)
	})
	if err != nil {
		return nil, err
	}

	summary.AccruedTotal, summary.DeductionsTotal = decimal.Zero, decimal.Zero
	for _, res := range results {
		summary.AccruedTotal = summary.AccruedTotal.Add(res.Totals.AccruedTotal)
		summary.DeductionsTotal = summary.DeductionsTotal.Add(res.Totals.DeductionsTotal)
		for _, key := range res.FallbackKeys {
			if !fallbacks[key] {
				fallbacks[key] = true
				summary.FallbackKeys = append(summary.FallbackKeys, key)
			}
		}
	}
	summary.NetTotal = summary.AccruedTotal.Sub(summary.DeductionsTotal)

	for _, key := range summary.FallbackKeys {
		r.logger.Warn("legal parameter resolved from fallback table",
			"period_id", period.ID, "key", string(key), "on", span.Start.String())
	}
	r.logger.Info("payroll period liquidated",
		"period_id", period.ID,
		"employees", summary.Employees,
		"replaced", summary.Replaced,
		"net_total", summary.NetTotal.StringFixed(generic.CurrencyPlaces))

	return summary, nil
}

// eligibleEmployees returns active employees whose contract overlaps span, by ID.
func (r *Runner) eligibleEmployees(ctx context.Context, span generic.Period) ([]Employee, error) {
	all, err := r.employees.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	var eligible []Employee
	for _, e := range all {
		if e.EmployedDuring(span) {
			eligible = append(eligible, e)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible, nil
}

// computeAll liquidates employees concurrently, preserving input order.
func (r *Runner) computeAll(ctx context.Context, employees []Employee, span generic.Period) ([]*Result, error) {
	results := make([]*Result, len(employees))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, emp := range employees {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.calc.LiquidateEmployee(gctx, emp, span)
			if err != nil {
				r.logger.Error("liquidation failed", "employee_id", emp.ID, "error", err)
				return fmt.Errorf("liquidate %s: %w", emp.ID, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ClosePeriod marks a liquidated period as PAID or REPORTED and locks
// every novelty lying inside it, in one transaction.
func (r *Runner) ClosePeriod(ctx context.Context, periodID string, status Status) error {
	if status != StatusPaid && status != StatusReported {
		return &generic.ValidationError{Field: "status", Message: fmt.Sprintf("cannot close a period as %s", status)}
	}

	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		period, err := r.periods.GetPeriod(ctx, periodID)
		if err != nil {
			return fmt.Errorf("load period %s: %w", periodID, err)
		}
		switch {
		case period.Status == StatusLiquidated:
		case period.Status == StatusPaid && status == StatusReported:
		default:
			return &generic.ValidationError{Field: "status", Message: fmt.Sprintf("period %s is %s, cannot move to %s", period.ID, period.Status, status)}
		}

		locked, err := r.locker.LockRecords(ctx, period.Span(), period.ID)
		if err != nil {
			return fmt.Errorf("lock novelties: %w", err)
		}

		period.Status = status
		if err := r.periods.SavePeriod(ctx, *period); err != nil {
			return err
		}
		r.logger.Info("payroll period closed", "period_id", period.ID, "status", string(status), "locked_novelties", locked)
		return nil
	})
}
