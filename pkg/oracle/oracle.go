// Package oracle implements C3, the cascading ETH-denominated price
// aggregator (spec §4.3). Sources are consulted in a fixed priority
// order — auction-supplied prices, a liquidity-weighted spot aggregator,
// an external price feed, then a process-wide last-known cache — and the
// aggregator accepts the first source (or combination reached so far)
// that covers at least CoverageThreshold of the requested tokens. It
// never falls back to a 1:1 placeholder: exhausting every source with
// coverage still short returns ErrInsufficientPriceCoverage.
package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// ErrInsufficientPriceCoverage is the terminal failure of the whole
// fallback chain (spec §4.3 step 5). Callers must propagate this as an
// empty solution list, never substitute a 1:1 price.
var ErrInsufficientPriceCoverage = errors.New("oracle: insufficient price coverage across fallback chain")

const (
	// CoverageThreshold is the fraction of requested tokens a source (or
	// the cumulative result so far) must price before the aggregator
	// accepts it and stops cascading.
	CoverageThreshold = 0.70

	// perSourceTimeout bounds a single source's Fetch call; the auction-
	// wide 10s deadline is enforced by the caller's context, not here.
	perSourceTimeout = 2 * time.Second

	// cacheTTL is how long a last-known price remains usable as the
	// final fallback source.
	cacheTTL = 5 * time.Minute
)

// Source is one rung of the fallback chain. Fetch returns whatever subset
// of tokens it can price — partial coverage is expected and normal, not
// an error; Fetch returns an error only when the source itself could not
// be reached at all.
type Source interface {
	Name() string
	Fetch(ctx context.Context, tokens []types.Token) (map[types.Token]*uint256.Int, error)
}

type cacheEntry struct {
	price *uint256.Int
	at    time.Time
}

// Aggregator runs the cascade. The last-known cache is the aggregator's
// only mutable shared state (spec §5 "Shared resources"): a single mutex
// guards it, held only across the map read/write, never across a Fetch
// call.
type Aggregator struct {
	weth    types.Token
	sources []Source
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[types.Token]cacheEntry
}

// NewAggregator builds an aggregator over sources, consulted in the given
// order. weth is special-cased to always price at exactly 1 ETH (spec's
// ETH-denomination base case); pass the zero Token to disable this.
func NewAggregator(weth types.Token, logger *zap.Logger, sources ...Source) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		weth:    weth,
		sources: sources,
		logger:  logger,
		cache:   make(map[types.Token]cacheEntry),
	}
}

// Aggregate produces token -> price_in_ETH_scaled for every token in
// tokens, cascading through sources until CoverageThreshold is reached or
// every source (including the last-known cache) is exhausted.
func (a *Aggregator) Aggregate(ctx context.Context, tokens []types.Token, nativePrices map[types.Token]*uint256.Int) (map[types.Token]*uint256.Int, error) {
	result := make(map[types.Token]*uint256.Int, len(tokens))

	if !a.weth.IsZero() {
		for _, t := range tokens {
			if t == a.weth {
				result[t] = fixedpoint.One()
			}
		}
	}
	for t, p := range nativePrices {
		if p == nil || p.IsZero() {
			continue
		}
		if _, needed := indexOf(tokens, t); needed {
			result[t] = p
		}
	}

	if coverage(tokens, result) >= CoverageThreshold {
		return result, nil
	}

	for _, src := range a.sources {
		missing := missingTokens(tokens, result)
		if len(missing) == 0 {
			break
		}

		srcCtx, cancel := context.WithTimeout(ctx, perSourceTimeout)
		fetched, err := src.Fetch(srcCtx, missing)
		cancel()
		if err != nil {
			a.logger.Warn("oracle source failed", zap.String("source", src.Name()), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		for t, p := range fetched {
			if p != nil && !p.IsZero() {
				result[t] = p
			}
		}
		a.updateCache(fetched)

		if coverage(tokens, result) >= CoverageThreshold {
			return result, nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	a.applyLastKnown(tokens, result)

	if coverage(tokens, result) >= CoverageThreshold {
		return result, nil
	}
	return nil, ErrInsufficientPriceCoverage
}

// updateCache writes fresh prices into the last-known cache. Computation
// happens entirely before the lock is taken; the lock guards only the map
// mutation (spec §9: "compute first, lock-and-insert in one step, never
// call I/O under the lock").
func (a *Aggregator) updateCache(fresh map[types.Token]*uint256.Int) {
	if len(fresh) == 0 {
		return
	}
	now := time.Now()
	entries := make(map[types.Token]cacheEntry, len(fresh))
	for t, p := range fresh {
		if p == nil || p.IsZero() {
			continue
		}
		entries[t] = cacheEntry{price: p, at: now}
	}
	if len(entries) == 0 {
		return
	}

	a.mu.Lock()
	for t, e := range entries {
		a.cache[t] = e
	}
	a.mu.Unlock()
}

func (a *Aggregator) applyLastKnown(tokens []types.Token, result map[types.Token]*uint256.Int) {
	missing := missingTokens(tokens, result)
	if len(missing) == 0 {
		return
	}
	now := time.Now()

	a.mu.Lock()
	hits := make(map[types.Token]*uint256.Int, len(missing))
	for _, t := range missing {
		if e, ok := a.cache[t]; ok && now.Sub(e.at) <= cacheTTL {
			hits[t] = e.price
		}
	}
	a.mu.Unlock()

	for t, p := range hits {
		result[t] = p
	}
}

func coverage(tokens []types.Token, result map[types.Token]*uint256.Int) float64 {
	if len(tokens) == 0 {
		return 1
	}
	have := 0
	for _, t := range tokens {
		if p, ok := result[t]; ok && p != nil && !p.IsZero() {
			have++
		}
	}
	return float64(have) / float64(len(tokens))
}

func missingTokens(tokens []types.Token, result map[types.Token]*uint256.Int) []types.Token {
	missing := make([]types.Token, 0, len(tokens))
	for _, t := range tokens {
		if p, ok := result[t]; !ok || p == nil || p.IsZero() {
			missing = append(missing, t)
		}
	}
	return missing
}

func indexOf(tokens []types.Token, tok types.Token) (int, bool) {
	for i, t := range tokens {
		if t == tok {
			return i, true
		}
	}
	return -1, false
}
