package novelty

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// SCHEDULER - Validation on create and update
// =============================================================================

// Scheduler validates novelty input against the no-overlap invariant and
// persists accepted records.
type Scheduler struct {
	store Store
	tx    generic.Transactor
	now   func() time.Time
}

// NewScheduler creates a scheduler. tx may be nil, in which case the
// check and the write are not atomic.
func NewScheduler(store Store, tx generic.Transactor) *Scheduler {
	return &Scheduler{store: store, tx: tx, now: time.Now}
}

// Validate checks in without writing anything and returns the record that
// would be stored. The returned record has no ID.
func (s *Scheduler) Validate(ctx context.Context, in Input) (*Record, error) {
	return s.validate(ctx, in, "")
}

// Create validates in and saves it as a new record.
func (s *Scheduler) Create(ctx context.Context, in Input) (*Record, error) {
	var created *Record
	err := s.atomically(ctx, func(ctx context.Context) error {
		rec, err := s.validate(ctx, in, "")
		if err != nil {
			return err
		}
		rec.ID = generic.NewID()
		rec.CreatedAt = s.now().UTC()
		if err := s.store.SaveRecord(ctx, *rec); err != nil {
			return fmt.Errorf("save novelty: %w", err)
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the record identified by id. The record itself is
// excluded from the overlap check. Locked records are rejected.
func (s *Scheduler) Update(ctx context.Context, id string, in Input) (*Record, error) {
	var updated *Record
	err := s.atomically(ctx, func(ctx context.Context) error {
		existing, err := s.store.GetRecord(ctx, id)
		if err != nil {
			return fmt.Errorf("load novelty %s: %w", id, err)
		}
		if existing.Locked() {
			return &LockedError{RecordID: existing.ID, PeriodID: existing.LockedBy}
		}
		if in.EmployeeID == "" {
			in.EmployeeID = existing.EmployeeID
		}

		rec, err := s.validate(ctx, in, id)
		if err != nil {
			return err
		}
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if err := s.store.SaveRecord(ctx, *rec); err != nil {
			return fmt.Errorf("save novelty: %w", err)
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Scheduler) validate(ctx context.Context, in Input, excludeID string) (*Record, error) {
	if in.EmployeeID == "" {
		return nil, &generic.ValidationError{Field: "employee_id", Message: "is required"}
	}
	if in.DayCount <= 0 {
		return nil, &generic.ValidationError{Field: "day_count", Message: fmt.Sprintf("must be greater than zero, got %d", in.DayCount)}
	}
	if in.Hours.IsNegative() {
		return nil, &generic.ValidationError{Field: "hours", Message: "must not be negative"}
	}
	if in.StartDate.IsZero() {
		return nil, &generic.ValidationError{Field: "start_date", Message: "is required"}
	}

	if _, err := s.lookupType(ctx, in.TypeCode); err != nil {
		return nil, err
	}

	span := generic.Period{Start: in.StartDate, End: calendar.EndDate(in.StartDate, in.DayCount)}

	collisions, err := s.store.Overlapping(ctx, in.EmployeeID, span, excludeID)
	if err != nil {
		return nil, fmt.Errorf("query overlapping novelties: %w", err)
	}
	if len(collisions) > 0 {
		return nil, s.conflict(ctx, in.EmployeeID, span, collisions)
	}

	return &Record{
		EmployeeID: in.EmployeeID,
		TypeCode:   in.TypeCode,
		StartDate:  span.Start,
		EndDate:    span.End,
		DayCount:   in.DayCount,
		Hours:      in.Hours,
	}, nil
}

func (s *Scheduler) lookupType(ctx context.Context, code string) (*TypeDefinition, error) {
	if code == "" {
		return nil, &generic.ValidationError{Field: "type_code", Message: "is required"}
	}
	def, err := s.store.TypeByCode(ctx, code)
	if errors.Is(err, generic.ErrNotFound) {
		return nil, &generic.ValidationError{Field: "type_code", Message: fmt.Sprintf("unknown novelty type %q", code)}
	}
	if err != nil {
		return nil, fmt.Errorf("load novelty type %s: %w", code, err)
	}
	return def, nil
}

// conflict reports the earliest colliding record.
func (s *Scheduler) conflict(ctx context.Context, employeeID string, span generic.Period, collisions []Record) error {
	sort.Slice(collisions, func(i, j int) bool {
		if !collisions[i].StartDate.Equal(collisions[j].StartDate) {
			return collisions[i].StartDate.Before(collisions[j].StartDate)
		}
		return collisions[i].ID < collisions[j].ID
	})
	existing := collisions[0]

	name := existing.TypeCode
	if def, err := s.store.TypeByCode(ctx, existing.TypeCode); err == nil {
		name = def.Name
	}
	return &ConflictError{EmployeeID: employeeID, Requested: span, Existing: existing, TypeName: name}
}

func (s *Scheduler) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTx(ctx, fn)
}
