// Package types holds the data model shared across the solver pipeline:
// tokens, orders, pools, and the settlement records that flow from the CoW
// matcher and pathfinder into the uniform-price enforcer.
//
// Ownership follows the teacher's convention of value-typed, immutable
// snapshots (see primitives.Decimal in the adapted pkg/primitives): the
// Solver Driver is the only component that constructs and discards these
// structures, and every downstream component treats them as read-only.
package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a 20-byte address identifying an ERC20-style asset. Two Tokens
// compare equal iff their underlying bytes are equal regardless of the
// input's letter case — TokenFromHex is the only constructor and always
// canonicalizes through common.HexToAddress, so Token values are safe to use
// directly as map keys without a separate canonicalization step.
type Token common.Address

// TokenFromHex parses a hex address string (with or without 0x prefix, any
// letter case) into a canonical Token.
func TokenFromHex(s string) Token {
	return Token(common.HexToAddress(s))
}

// String returns the lowercase hex representation of the token.
func (t Token) String() string {
	return strings.ToLower(common.Address(t).Hex())
}

// IsZero reports whether the token is the zero address.
func (t Token) IsZero() bool {
	return common.Address(t) == common.Address{}
}

// DirectedPair identifies a (sell, buy) token direction. Settlements are
// grouped by DirectedPair for uniform-price enforcement (spec C7): two
// settlements in the same DirectedPair must clear at the same price.
type DirectedPair struct {
	Sell Token
	Buy  Token
}

// Less provides a deterministic ordering over pairs, used so the uniform
// price enforcer processes groups in a stable order (spec §5: "group
// iteration order must be deterministic").
func (p DirectedPair) Less(o DirectedPair) bool {
	if p.Sell.String() != o.Sell.String() {
		return p.Sell.String() < o.Sell.String()
	}
	return p.Buy.String() < o.Buy.String()
}
