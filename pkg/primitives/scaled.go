package primitives

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// DecimalFromScaled converts a fixedpoint.Precision-scaled uint256 value
// (the representation used throughout pkg/fixedpoint, pkg/pool, pkg/cow,
// pkg/pathfinder, pkg/uniform and pkg/solution) into a Decimal for display.
// This is the only place decimal.Decimal meets the solver's settlement
// math: every computation upstream stays on uint256.Int, and the
// conversion here is one-way, for internal/api's structured log line
// (the JSON response formats amounts with uint256's own String), never fed
// back into a scoring or quoting path.
func DecimalFromScaled(v *uint256.Int, precisionExp int32) Decimal {
	if v == nil {
		return Zero()
	}
	d := decimal.NewFromBigInt(v.ToBig(), 0)
	return Decimal{value: d.Shift(-precisionExp)}
}
