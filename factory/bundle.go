/*
Package factory loads reference data bundles from JSON.

PURPOSE:
  A bundle carries the tables an installation needs before it can pay
  anyone: legal parameters, novelty types and the concept catalog. It may
  also carry employees, payroll periods and novelties, which is how demo
  and test fixtures are shipped. Seed writes a bundle into any store.

JSON SCHEMA:
  {
    "parameters": [
      {"key": "MIN_WAGE", "value": "1750905", "valid_from": "2026-01-01", "valid_to": "2026-12-31"}
    ],
    "novelty_types": [
      {"code": "IGE_66", "name": "Incapacidad General", "external_code": "INCAPACIDAD",
       "payment_percentage": "0.6667", "blocks_transport_allowance": true}
    ],
    "concepts": [
      {"code": "HED", "name": "Hora Extra Diurna", "salarial": true, "factor": "25", "variant": "OVERTIME"}
    ],
    "employees": [...],
    "periods": [...],
    "novelties": [
      {"employee_id": "emp-1", "type_code": "VAC", "start_date": "2026-08-10", "day_count": 5}
    ]
  }

  Concepts without kind default to EARNING, without variant to GENERIC.
  Unknown fields are rejected.

SEEDING ORDER:
  novelty types, parameters, concepts, employees, periods, novelties.
  Everything lands in one transaction. Novelties go through the
  Scheduler so the no-overlap rule holds for seeded data too.

SEE ALSO:
  - legal/defaults.go, novelty/defaults.go, concept/defaults.go: DefaultBundle contents
  - cmd/liquidate/main.go: -seed flag
*/
package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/liquidation"
	"github.com/warp/payroll-engine/novelty"
)

// =============================================================================
// BUNDLE
// =============================================================================

// Bundle is a set of reference and fixture rows.
type Bundle struct {
	Parameters   []legal.Parameter           `json:"parameters"`
	NoveltyTypes []novelty.TypeDefinition    `json:"novelty_types"`
	Concepts     []concept.Concept           `json:"concepts"`
	Employees    []liquidation.Employee      `json:"employees,omitempty"`
	Periods      []liquidation.PayrollPeriod `json:"periods,omitempty"`
	Novelties    []novelty.Input             `json:"novelties,omitempty"`
}

// DefaultBundle returns the Colombian 2026 reference data.
func DefaultBundle() *Bundle {
	return &Bundle{
		Parameters:   legal.DefaultParameters(),
		NoveltyTypes: novelty.DefaultTypes(),
		Concepts:     concept.DefaultConcepts(),
	}
}

// ParseBundle decodes and validates a bundle.
func ParseBundle(data []byte) (*Bundle, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle JSON: %w", err)
	}
	if err := b.normalize(); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadBundle reads and parses the bundle at path.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle %s: %w", path, err)
	}
	return ParseBundle(data)
}

// normalize fills concept and period defaults and validates every row.
// Errors name the section and index of the offending row.
func (b *Bundle) normalize() error {
	for i, p := range b.Parameters {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("parameters[%d]: %w", i, err)
		}
	}

	typeCodes := make(map[string]bool, len(b.NoveltyTypes))
	for i, t := range b.NoveltyTypes {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("novelty_types[%d]: %w", i, err)
		}
		typeCodes[t.Code] = true
	}

	conceptCodes := make(map[string]bool, len(b.Concepts))
	for i, c := range b.Concepts {
		c = c.Normalized()
		if err := c.Validate(); err != nil {
			return fmt.Errorf("concepts[%d]: %w", i, err)
		}
		if conceptCodes[c.Code] {
			return fmt.Errorf("concepts[%d]: %w", i, &generic.ValidationError{Field: "code", Message: fmt.Sprintf("duplicate concept %s", c.Code)})
		}
		conceptCodes[c.Code] = true
		b.Concepts[i] = c
	}

	for i, e := range b.Employees {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("employees[%d]: %w", i, err)
		}
	}

	for i, p := range b.Periods {
		if p.Status == "" {
			p.Status = liquidation.StatusDraft
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("periods[%d]: %w", i, err)
		}
		b.Periods[i] = p
	}

	// Novelty types may already live in the target store, so only the
	// shape of each novelty is checked here. The Scheduler does the rest.
	for i, n := range b.Novelties {
		if n.EmployeeID == "" {
			return fmt.Errorf("novelties[%d]: %w", i, &generic.ValidationError{Field: "employee_id", Message: "is required"})
		}
		if n.DayCount <= 0 {
			return fmt.Errorf("novelties[%d]: %w", i, &generic.ValidationError{Field: "day_count", Message: "must be positive"})
		}
	}
	return nil
}

// =============================================================================
// SEEDING
// =============================================================================

// Target is any store that can take every section of a bundle.
type Target interface {
	generic.Transactor
	legal.Writer
	novelty.TypeWriter
	novelty.Store
	concept.Writer
	liquidation.EmployeeWriter
	SavePeriod(ctx context.Context, p liquidation.PayrollPeriod) error
}

// SeedSummary counts the rows written by Seed.
type SeedSummary struct {
	Parameters   int `json:"parameters"`
	NoveltyTypes int `json:"novelty_types"`
	Concepts     int `json:"concepts"`
	Employees    int `json:"employees"`
	Periods      int `json:"periods"`
	Novelties    int `json:"novelties"`
}

// Seed writes b into target in one transaction.
//
// Parameters are appended, so seeding the same bundle twice leaves
// duplicate rows; the resolver picks the newest and the result is the
// same. Novelties are created, so a second seed of the same novelties
// fails with generic.ErrConflict.
func Seed(ctx context.Context, target Target, b *Bundle) (*SeedSummary, error) {
	scheduler := novelty.NewScheduler(target, target)
	summary := &SeedSummary{}

	err := target.WithTx(ctx, func(ctx context.Context) error {
		for _, t := range b.NoveltyTypes {
			if err := target.SaveType(ctx, t); err != nil {
				return fmt.Errorf("seed novelty type %s: %w", t.Code, err)
			}
			summary.NoveltyTypes++
		}
		for _, p := range b.Parameters {
			if err := target.SaveParameter(ctx, p); err != nil {
				return fmt.Errorf("seed parameter %s: %w", p.Key, err)
			}
			summary.Parameters++
		}
		for _, c := range b.Concepts {
			if err := target.SaveConcept(ctx, c); err != nil {
				return fmt.Errorf("seed concept %s: %w", c.Code, err)
			}
			summary.Concepts++
		}
		for _, e := range b.Employees {
			if err := target.SaveEmployee(ctx, e); err != nil {
				return fmt.Errorf("seed employee %s: %w", e.ID, err)
			}
			summary.Employees++
		}
		for _, p := range b.Periods {
			if err := target.SavePeriod(ctx, p); err != nil {
				return fmt.Errorf("seed period %s: %w", p.ID, err)
			}
			summary.Periods++
		}
		for i, in := range b.Novelties {
			if _, err := scheduler.Create(ctx, in); err != nil {
				return fmt.Errorf("seed novelties[%d]: %w", i, err)
			}
			summary.Novelties++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
