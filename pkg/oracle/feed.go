package oracle

import (
	"context"
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"golang.org/x/time/rate"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// ErrNegativeFeedAnswer is returned for a feed answer that cannot be a
// valid price.
var ErrNegativeFeedAnswer = errors.New("oracle: negative feed answer")

// FeedClient is the external price-feed publish/consume model (spec
// §4.3 source #3): Latest returns a feed's raw integer answer and its
// decimal exponent (e.g. -8 for a feed that publishes price*1e8).
type FeedClient interface {
	Latest(ctx context.Context, feedID string) (answer *big.Int, exponent int32, err error)
}

// NewFeedSource wraps a FeedClient as a Source. Each token's feed answer
// is normalized to a PRECISION-scaled USD price by its own exponent, then
// divided by the ETH/USD feed (normalized the same way) to ETH-denominate
// — the composition the spec calls out explicitly ("normalize by feed
// exponent; divide by ETH/USD to ETH-denominate").
func NewFeedSource(feedIDs map[types.Token]string, ethUSDFeedID string, client FeedClient, limiter *rate.Limiter) Source {
	lookup := func(ctx context.Context, tok types.Token) (*uint256.Int, error) {
		feedID, ok := feedIDs[tok]
		if !ok {
			return nil, nil
		}

		ethUSDAnswer, ethUSDExp, err := client.Latest(ctx, ethUSDFeedID)
		if err != nil {
			return nil, err
		}
		ethUSD, err := normalizeFeedAnswer(ethUSDAnswer, ethUSDExp)
		if err != nil || ethUSD.IsZero() {
			return nil, err
		}

		answer, exp, err := client.Latest(ctx, feedID)
		if err != nil {
			return nil, err
		}
		usdPerToken, err := normalizeFeedAnswer(answer, exp)
		if err != nil || usdPerToken.IsZero() {
			return nil, err
		}

		return fixedpoint.DivScaled(usdPerToken, ethUSD)
	}
	return NewFanOutSource("external_price_feed", lookup, limiter)
}

// normalizeFeedAnswer rescales a raw feed answer (answer * 10^exponent)
// to a PRECISION-scaled (10^18) fixed-point value.
func normalizeFeedAnswer(answer *big.Int, exponent int32) (*uint256.Int, error) {
	if answer == nil || answer.Sign() < 0 {
		return nil, ErrNegativeFeedAnswer
	}
	scaled, overflow := uint256.FromBig(answer)
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}

	shift := int64(exponent) + fixedpoint.PrecisionExp
	if shift >= 0 {
		pow, overflow := uint256.FromBig(new(big.Int).Exp(big.NewInt(10), big.NewInt(shift), nil))
		if overflow {
			return nil, fixedpoint.ErrOverflow
		}
		return fixedpoint.Mul(scaled, pow)
	}

	pow, overflow := uint256.FromBig(new(big.Int).Exp(big.NewInt(10), big.NewInt(-shift), nil))
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	return fixedpoint.Div(scaled, pow)
}
