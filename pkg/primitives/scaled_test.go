package primitives

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestDecimalFromScaledConvertsWholeUnits(t *testing.T) {
	// 2_500000000000000000 at 18 decimals of scale is 2.5 whole units.
	raw := uint256.NewInt(2_500_000_000_000_000_000)
	d := DecimalFromScaled(raw, 18)
	if d.String() != "2.5" {
		t.Fatalf("expected \"2.5\", got %q", d.String())
	}
}

func TestDecimalFromScaledNilIsZero(t *testing.T) {
	d := DecimalFromScaled(nil, 18)
	if !d.IsZero() {
		t.Fatalf("expected zero for a nil input, got %q", d.String())
	}
}

func TestDecimalFromScaledZeroExponentIsIdentity(t *testing.T) {
	raw := uint256.NewInt(42)
	d := DecimalFromScaled(raw, 0)
	if d.String() != "42" {
		t.Fatalf("expected \"42\", got %q", d.String())
	}
}
