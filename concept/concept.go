/*
Package concept holds the payroll concept catalog.

PURPOSE:
  A Concept describes how a pay-slip line is classified and, for
  novelty-driven lines, how its value is computed. The computation rule
  is the Variant, an explicit tag set when reference data is loaded.
  Nothing in the engine inspects concept names to decide how to pay.

VARIANTS:
  OVERTIME     hours x (base/240) x (1 + Factor/100)
  SURCHARGE    hours x (base/240) x (Factor/100)
  INCAPACITY   days  x (base/30)  x 0.6667
  LEAVE        days  x (base/30)
  GENERIC      days  x (base/30)  x novelty type payment percentage

SEE ALSO:
  - catalog.go: Lookup by code
  - liquidation/calculator.go: Applies the variants
*/
package concept

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// Kind classifies a line as money paid or money withheld.
type Kind string

const (
	KindEarning   Kind = "EARNING"
	KindDeduction Kind = "DEDUCTION"
)

// ParseKind validates a kind read from reference data. Empty means EARNING.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindEarning:
		return KindEarning, nil
	case KindDeduction:
		return KindDeduction, nil
	}
	return "", &generic.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown concept kind %q", s)}
}

// Variant selects the computation rule for novelty-driven lines.
type Variant string

const (
	VariantOvertime   Variant = "OVERTIME"
	VariantSurcharge  Variant = "SURCHARGE"
	VariantIncapacity Variant = "INCAPACITY"
	VariantLeave      Variant = "LEAVE"
	VariantGeneric    Variant = "GENERIC"
)

// ParseVariant validates a variant read from reference data. Empty means GENERIC.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantGeneric:
		return VariantGeneric, nil
	case VariantOvertime, VariantSurcharge, VariantIncapacity, VariantLeave:
		return Variant(s), nil
	}
	return "", &generic.ValidationError{Field: "variant", Message: fmt.Sprintf("unknown concept variant %q", s)}
}

// HourBased reports whether records of this variant carry hours, not days.
func (v Variant) HourBased() bool {
	return v == VariantOvertime || v == VariantSurcharge
}

// Concept is one catalog entry.
type Concept struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Kind         Kind            `json:"kind"`
	ExternalCode string          `json:"external_code"`
	Salarial     bool            `json:"salarial"`
	Factor       decimal.Decimal `json:"factor"` // percent, e.g. 25 for 25%
	Variant      Variant         `json:"variant"`
}

// LineCode is the code a computed line carries: the external code when set.
func (c Concept) LineCode() string {
	if c.ExternalCode != "" {
		return c.ExternalCode
	}
	return c.Code
}

// Validate checks an entry before it enters a catalog.
func (c Concept) Validate() error {
	if c.Code == "" {
		return &generic.ValidationError{Field: "code", Message: "is required"}
	}
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if _, err := ParseVariant(string(c.Variant)); err != nil {
		return err
	}
	if c.Factor.IsNegative() {
		return &generic.ValidationError{Field: "factor", Message: "must not be negative"}
	}
	if c.Variant.HourBased() && !c.Factor.IsPositive() {
		return &generic.ValidationError{Field: "factor", Message: fmt.Sprintf("%s concept %s needs a positive factor", c.Variant, c.Code)}
	}
	return nil
}

// Normalized fills the defaults for an empty Kind or Variant.
func (c Concept) Normalized() Concept {
	if c.Kind == "" {
		c.Kind = KindEarning
	}
	if c.Variant == "" {
		c.Variant = VariantGeneric
	}
	return c
}

// Well-known concept codes the calculator looks up for its fixed lines.
const (
	CodeBaseSalary      = "BASICO"
	CodeTransport       = "TRANSPORTE"
	CodeHealthEmployee  = "SALUD"
	CodePensionEmployee = "PENSION"
)

// Line codes that never count toward the social-security base.
const (
	LineTransportAllowance    = "AUX_TRANSPORTE"
	LineConnectivityAllowance = "AUX_CONECTIVIDAD"
	LineNonSalarialBonus      = "BONIFICACION_NS"
)

// ExcludedFromIBC reports whether a line code is on the fixed exclusion list.
func ExcludedFromIBC(lineCode string) bool {
	switch lineCode {
	case LineTransportAllowance, LineConnectivityAllowance, LineNonSalarialBonus:
		return true
	}
	return false
}
