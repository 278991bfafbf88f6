package oracle

import (
	"context"

	"github.com/holiman/uint256"
	"golang.org/x/time/rate"

	"github.com/johnayoung/cowsolver/pkg/types"
)

// SpotClient is the liquidity-weighted spot aggregator contract call
// (spec §4.3 source #2): a single on-chain rate_to_ETH read per token.
type SpotClient interface {
	RateToETH(ctx context.Context, token types.Token) (*uint256.Int, error)
}

// NewSpotSource wraps a SpotClient as a Source, fanning out across
// tokens with the shared bounded-concurrency/rate-limit machinery.
func NewSpotSource(client SpotClient, limiter *rate.Limiter) Source {
	return NewFanOutSource("liquidity_spot_aggregator", func(ctx context.Context, tok types.Token) (*uint256.Int, error) {
		return client.RateToETH(ctx, tok)
	}, limiter)
}
