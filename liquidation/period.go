package liquidation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/socialsecurity"
)

// =============================================================================
// PAYROLL PERIOD
// =============================================================================

// Status is the lifecycle state of a payroll period.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusLiquidated Status = "LIQUIDATED"
	StatusPaid       Status = "PAID"
	StatusReported   Status = "REPORTED"
)

// ParseStatus validates a status read from storage or flags.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusLiquidated, StatusPaid, StatusReported:
		return Status(s), nil
	case "":
		return StatusDraft, nil
	}
	return "", &generic.ValidationError{Field: "status", Message: fmt.Sprintf("unknown period status %q", s)}
}

// PayrollPeriod is a pay run window.
type PayrollPeriod struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Start       generic.Date `json:"start"`
	End         generic.Date `json:"end"`
	PaymentDate generic.Date `json:"payment_date"`
	Status      Status       `json:"status"`
}

// Span returns [Start, End].
func (p PayrollPeriod) Span() generic.Period {
	return generic.Period{Start: p.Start, End: p.End}
}

// Closed reports whether the period was paid or reported and must not be re-run.
func (p PayrollPeriod) Closed() bool {
	return p.Status == StatusPaid || p.Status == StatusReported
}

// Validate checks a period before it is stored.
func (p PayrollPeriod) Validate() error {
	if p.ID == "" {
		return &generic.ValidationError{Field: "id", Message: "is required"}
	}
	if err := p.Span().Validate(); err != nil {
		return err
	}
	_, err := ParseStatus(string(p.Status))
	return err
}

// =============================================================================
// DOCUMENT - Persisted result of one employee's liquidation
// =============================================================================

// Document is a stored pay slip.
type Document struct {
	ID            string                       `json:"id"`
	PeriodID      string                       `json:"period_id"`
	EmployeeID    string                       `json:"employee_id"`
	Lines         []Line                       `json:"lines"`
	Totals        Totals                       `json:"totals"`
	IBC           decimal.Decimal              `json:"ibc"`
	Contributions socialsecurity.Contributions `json:"contributions"`
	CreatedAt     time.Time                    `json:"created_at"`
}

// NewDocument wraps a liquidation result for period.
func NewDocument(periodID string, r *Result, now time.Time) Document {
	return Document{
		ID:            generic.NewID(),
		PeriodID:      periodID,
		EmployeeID:    r.EmployeeID,
		Lines:         r.Lines,
		Totals:        r.Totals,
		IBC:           r.IBC,
		Contributions: r.Contributions,
		CreatedAt:     now.UTC(),
	}
}

// PeriodStore persists periods and their documents.
type PeriodStore interface {
	GetPeriod(ctx context.Context, id string) (*PayrollPeriod, error)
	SavePeriod(ctx context.Context, p PayrollPeriod) error

	// DeleteDocuments removes every document of the period and returns how many.
	DeleteDocuments(ctx context.Context, periodID string) (int, error)
	SaveDocument(ctx context.Context, d Document) error

	// DocumentsByPeriod returns the period's documents ordered by employee ID.
	DocumentsByPeriod(ctx context.Context, periodID string) ([]Document, error)
}
