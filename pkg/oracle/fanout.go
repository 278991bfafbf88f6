package oracle

import (
	"context"
	"sync"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/johnayoung/cowsolver/pkg/types"
)

// maxConcurrentFetches bounds per-token concurrency within a single
// source's Fetch call (spec §5 "Oracle fan-out: per source, one
// concurrent task per token, bounded semaphore = 10").
const maxConcurrentFetches = 10

// LookupFunc prices a single token. A nil price (with a nil error) means
// "this token is simply not covered by this source" — not a fetch
// failure.
type LookupFunc func(ctx context.Context, token types.Token) (*uint256.Int, error)

// FanOutSource turns a single-token LookupFunc into a Source, fanning out
// across tokens with bounded concurrency (errgroup.SetLimit) and an
// optional rate limiter protecting the downstream backend. A per-token
// lookup failure is swallowed as a partial miss — spec's cascade treats
// missing coverage, not a hard error, as the normal outcome of a source
// call; Fetch itself only errors if ctx is already done when it starts.
type FanOutSource struct {
	name    string
	lookup  LookupFunc
	limiter *rate.Limiter
}

// NewFanOutSource builds a FanOutSource. limiter may be nil to disable
// rate limiting.
func NewFanOutSource(name string, lookup LookupFunc, limiter *rate.Limiter) *FanOutSource {
	return &FanOutSource{name: name, lookup: lookup, limiter: limiter}
}

func (s *FanOutSource) Name() string { return s.name }

func (s *FanOutSource) Fetch(ctx context.Context, tokens []types.Token) (map[types.Token]*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make(map[types.Token]*uint256.Int, len(tokens))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, tok := range tokens {
		tok := tok
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return nil
				}
			}
			price, err := s.lookup(gctx, tok)
			if err != nil || price == nil || price.IsZero() {
				return nil
			}
			mu.Lock()
			results[tok] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}
