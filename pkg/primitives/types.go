// Package primitives provides a thin decimal wrapper used for rendering
// PRECISION-scaled settlement amounts as human-readable strings. All solving
// and scoring math stays on uint256.Int end to end (pkg/fixedpoint); this
// package is a display-only adapter, never fed back into the pipeline.
package primitives

import (
	"github.com/shopspring/decimal"
)

// Decimal wraps shopspring/decimal.Decimal for display formatting.
type Decimal struct {
	value decimal.Decimal
}

// Zero returns a Decimal representing zero.
func Zero() Decimal {
	return Decimal{value: decimal.Zero}
}

// IsZero returns true if the Decimal is zero.
func (d Decimal) IsZero() bool {
	return d.value.IsZero()
}

// String returns the string representation of the Decimal.
func (d Decimal) String() string {
	return d.value.String()
}
