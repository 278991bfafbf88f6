package pool

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/types"
)

// quoteStable implements the Curve StableSwap invariant for an n-token
// pool: solve for the D invariant from the current reserves, then solve
// for the new balance of the output token given D and the post-fee input
// added to the input reserve (spec §4.2: "Newton-iteration invariant
// solve"). Both solves use math/big directly rather than fixedpoint's
// uint256 helpers — the StableSwap iteration needs an n-way product and
// sum per step that would otherwise round-trip through uint256 on every
// inner loop iteration for no benefit, since everything here is already an
// un-PRECISION-scaled raw reserve quantity.
func quoteStable(p *types.Pool, inIdx, outIdx int, amountIn *uint256.Int) (*uint256.Int, error) {
	n := len(p.Tokens)
	if n < 2 {
		return nil, ErrUnquotableReserves
	}
	for _, r := range p.Reserves {
		if r == nil || r.IsZero() {
			return nil, ErrUnquotableReserves
		}
	}
	if p.Amplification == 0 {
		return nil, ErrUnquotableReserves
	}

	amountInFee, err := applyFeeToInput(amountIn, p.FeeBps)
	if err != nil {
		return nil, err
	}

	balances := make([]*big.Int, n)
	for i, r := range p.Reserves {
		balances[i] = r.ToBig()
	}

	ann := new(big.Int).SetUint64(p.Amplification)
	nBig := big.NewInt(int64(n))
	for i := 0; i < n; i++ {
		ann.Mul(ann, nBig)
	}

	d, err := stableD(balances, ann, nBig)
	if err != nil {
		return nil, err
	}

	newBalances := make([]*big.Int, n)
	copy(newBalances, balances)
	newBalances[inIdx] = new(big.Int).Add(balances[inIdx], amountInFee.ToBig())

	newOut, err := stableGetY(newBalances, outIdx, d, ann, nBig)
	if err != nil {
		return nil, err
	}

	if newOut.Cmp(balances[outIdx]) >= 0 {
		return nil, ErrUnquotableReserves
	}
	outAmount := new(big.Int).Sub(balances[outIdx], newOut)

	out, overflow := uint256.FromBig(outAmount)
	if overflow {
		return nil, ErrUnquotableReserves
	}
	return out, nil
}

// stableD solves the StableSwap invariant for D given the current
// balances, via the standard Newton iteration (Curve's get_D):
//
//	D_P = D
//	D_P = D_P * D / (x_i * n)   for each balance x_i
//	D = (Ann*S + D_P*n) * D / ((Ann-1)*D + (n+1)*D_P)
func stableD(balances []*big.Int, ann, nBig *big.Int) (*big.Int, error) {
	s := big.NewInt(0)
	for _, b := range balances {
		s.Add(s, b)
	}
	if s.Sign() == 0 {
		return big.NewInt(0), nil
	}

	d := new(big.Int).Set(s)
	one := big.NewInt(1)
	nPlus1 := new(big.Int).Add(nBig, one)
	annMinus1 := new(big.Int).Sub(ann, one)

	for iter := 0; iter < 255; iter++ {
		dP := new(big.Int).Set(d)
		for _, b := range balances {
			denom := new(big.Int).Mul(b, nBig)
			if denom.Sign() == 0 {
				return nil, ErrUnquotableReserves
			}
			dP.Mul(dP, d)
			dP.Quo(dP, denom)
		}

		prevD := new(big.Int).Set(d)

		num := new(big.Int).Mul(ann, s)
		num.Add(num, new(big.Int).Mul(dP, nBig))
		num.Mul(num, d)

		den := new(big.Int).Mul(annMinus1, d)
		den.Add(den, new(big.Int).Mul(nPlus1, dP))
		if den.Sign() == 0 {
			return nil, ErrUnquotableReserves
		}
		d.Quo(num, den)

		diff := new(big.Int).Sub(d, prevD)
		diff.Abs(diff)
		if diff.Cmp(one) <= 0 {
			break
		}
	}
	return d, nil
}

// stableGetY solves for the new balance of token j given the other
// balances, the invariant D, and Ann (Curve's get_y):
//
//	c = D^(n+1) / (n^n * Prod_{k != j} x_k) / Ann  (computed iteratively)
//	b = Sum_{k != j} x_k + D/Ann
//	y = (y^2 + c) / (2y + b - D)   iterated to convergence
func stableGetY(balances []*big.Int, j int, d, ann, nBig *big.Int) (*big.Int, error) {
	n := len(balances)
	c := new(big.Int).Set(d)
	s := big.NewInt(0)

	for k := 0; k < n; k++ {
		if k == j {
			continue
		}
		s.Add(s, balances[k])
		denom := new(big.Int).Mul(balances[k], nBig)
		if denom.Sign() == 0 {
			return nil, ErrUnquotableReserves
		}
		c.Mul(c, d)
		c.Quo(c, denom)
	}
	if ann.Sign() == 0 {
		return nil, ErrUnquotableReserves
	}
	c.Mul(c, d)
	c.Quo(c, new(big.Int).Mul(ann, nBig))

	b := new(big.Int).Add(s, new(big.Int).Quo(d, ann))

	y := new(big.Int).Set(d)
	one := big.NewInt(1)
	for iter := 0; iter < 255; iter++ {
		prevY := new(big.Int).Set(y)

		num := new(big.Int).Mul(y, y)
		num.Add(num, c)

		den := new(big.Int).Lsh(y, 1)
		den.Add(den, b)
		den.Sub(den, d)
		if den.Sign() <= 0 {
			return nil, ErrUnquotableReserves
		}
		y.Quo(num, den)

		diff := new(big.Int).Sub(y, prevY)
		diff.Abs(diff)
		if diff.Cmp(one) <= 0 {
			break
		}
	}
	return y, nil
}
