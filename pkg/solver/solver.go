// Package solver implements C9, the Solver Driver: the deadline-bounded
// orchestrator that wires C4 through C8 into a single Solve call. It owns
// the auction-wide wall-clock deadline (spec §4.9) and the failure-mode
// policy table of spec §7 — every drop anywhere in the pipeline surfaces
// here as one structured DropEvent with a canonical reason tag, the way
// C9's own log line is the single place spec §7's "log once, continue"
// promise is kept.
package solver

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/johnayoung/cowsolver/pkg/cow"
	"github.com/johnayoung/cowsolver/pkg/oracle"
	"github.com/johnayoung/cowsolver/pkg/order"
	"github.com/johnayoung/cowsolver/pkg/pathfinder"
	"github.com/johnayoung/cowsolver/pkg/pool"
	"github.com/johnayoung/cowsolver/pkg/solution"
	"github.com/johnayoung/cowsolver/pkg/types"
	"github.com/johnayoung/cowsolver/pkg/uniform"
)

// Deadline is the wall-clock budget spec §4.9 gives the driver from entry:
// "10 s from driver entry; enforced by a cancellation token propagated
// into C3 (oracle) and C6 (pathfinder)". A caller may pass a context that
// already carries a shorter deadline (e.g. an HTTP request context); Solve
// takes whichever fires first.
const Deadline = 10 * time.Second

// Reason is the canonical drop-event tag set spec §7 names: "every dropped
// solution emits a structured event with a reason tag". Order-level drops
// are logged too, under the invalid_order tag outside this closed set;
// route-level drops reuse the five tags (see routeDropReason).
type Reason string

const (
	ReasonOracleFailure   Reason = "oracle_failure"
	ReasonNegativeSurplus Reason = "negative_surplus"
	ReasonPoolUnquotable  Reason = "pool_unquotable"
	ReasonTimeout         Reason = "timeout"
	ReasonUnknownVariant  Reason = "unknown_variant"
	// reasonInvalidOrder tags a C4 parse rejection — not one of spec §7's
	// five solution-drop reasons, since an invalid order never becomes a
	// candidate solution in the first place.
	reasonInvalidOrder Reason = "invalid_order"
)

// DropEvent unifies every per-stage drop type (order.DropEvent,
// pathfinder.RouteDropEvent, solution.DropEvent) into one structured
// record for logging and for the caller. internal/api reads the returned
// events only to detect a timeout drop and to log their count; the
// response body carries no drop details.
type DropEvent struct {
	OrderUID string
	Pair     types.DirectedPair
	Reason   Reason
	Detail   string
}

// Driver holds the dependencies Solve needs across every call: the price
// oracle (C3) and the multi-hop whitelist C6 searches through. Both are
// long-lived and shared across auctions; Solve itself builds a fresh pool
// index and Pathfinder per call, since liquidity snapshots are per-auction
// (spec §9 "Ownership of pool snapshots").
type Driver struct {
	Oracle         *oracle.Aggregator
	Intermediaries []types.Token
	Logger         *zap.Logger
}

// New builds a Driver. logger may be nil, in which case drop events are
// computed but never logged.
func New(agg *oracle.Aggregator, intermediaries []types.Token, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{Oracle: agg, Intermediaries: intermediaries, Logger: logger}
}

// Solve runs the full C4->C5->C6->C7->C8 pipeline against auction, bounded
// by Deadline from this call's entry (composed with whatever deadline ctx
// already carries). It never returns an error: every failure mode named in
// spec §4.9/§7 degrades to a (possibly empty) solutions list plus drop
// events, since "solver crashes" is itself the one failure spec.md
// forbids.
func (d *Driver) Solve(ctx context.Context, auction types.Auction) ([]types.Solution, []DropEvent) {
	ctx, cancel := context.WithTimeout(ctx, Deadline)
	defer cancel()

	var drops []DropEvent

	idx := pool.NewIndex(auction.Liquidity)

	now := time.Now().Unix()
	parsedOrders, orderDrops := order.ParseAll(auction.Orders, now)
	for _, e := range orderDrops {
		drops = append(drops, d.logDrop(DropEvent{OrderUID: e.OrderUID, Reason: reasonInvalidOrder, Detail: e.Reason.Error()}))
	}

	if ctx.Err() != nil {
		return nil, d.appendTimeout(drops)
	}

	cowSettlements := cow.Match(parsedOrders)
	accepted, settledUIDs := acceptGreedy(cowSettlements)

	remaining := make([]*types.ParsedOrder, 0, len(parsedOrders))
	for i := range parsedOrders {
		o := &parsedOrders[i]
		if !settledUIDs[o.UID] {
			remaining = append(remaining, o)
		}
	}

	if ctx.Err() != nil {
		return nil, d.appendTimeout(drops)
	}

	// Oracle aggregation must run before pathfinding, not after: C6 needs
	// each remaining order's surplus-token price to convert that order's
	// surplus into ETH terms before comparing it against gas cost (see
	// pathfinder.FindRoute's own doc comment). The requested token set
	// therefore covers both what C6 needs now (every remaining order's
	// sell/buy tokens) and what C8 will need later (every CoW-accepted
	// settlement's pair) in one request.
	touched := touchedTokens(accepted, remaining)
	prices, err := d.Oracle.Aggregate(ctx, touched, auction.NativePrices)
	if err != nil {
		drops = append(drops, d.logDrop(DropEvent{Reason: ReasonOracleFailure, Detail: err.Error()}))
		return nil, drops
	}

	if ctx.Err() != nil {
		return nil, d.appendTimeout(drops)
	}

	pf := pathfinder.New(idx, d.Intermediaries)
	routeSettlements, routeDrops := pf.FindRoutes(ctx, remaining, prices, auction.EffectiveGasPrice)
	for _, e := range routeDrops {
		drops = append(drops, d.logDrop(DropEvent{OrderUID: e.OrderUID, Reason: routeDropReason(e), Detail: e.Reason.Error()}))
	}

	all := make([]types.Settlement, 0, len(accepted)+len(routeSettlements))
	all = append(all, accepted...)
	all = append(all, routeSettlements...)

	enforced := uniform.Enforce(all)

	if ctx.Err() != nil {
		return nil, d.appendTimeout(drops)
	}

	solutions, solutionDrops := solution.Build(idx, enforced, prices, auction.EffectiveGasPrice)
	for _, e := range solutionDrops {
		drops = append(drops, d.logDrop(DropEvent{Pair: e.Pair, Reason: solutionDropReason(e), Detail: e.Reason.Error()}))
	}

	if ctx.Err() != nil && len(solutions) == 0 {
		return nil, d.appendTimeout(drops)
	}

	return solutions, drops
}

// acceptGreedy walks cow.Match's candidates in the descending-surplus
// order C5 already sorted them into, accepting each whose two orders are
// both still unconsumed (spec §4.5/§9: CoW acceptance is the driver's job,
// not the matcher's — "greedy, highest-surplus first, not a global
// optimum"). The settled-uid set it returns excludes those orders from
// pathfinding.
func acceptGreedy(candidates []types.Settlement) ([]types.Settlement, map[string]bool) {
	settled := make(map[string]bool, len(candidates)*2)
	accepted := make([]types.Settlement, 0, len(candidates))
	for _, s := range candidates {
		if settled[s.OrderA.UID] || settled[s.OrderB.UID] {
			continue
		}
		settled[s.OrderA.UID] = true
		settled[s.OrderB.UID] = true
		accepted = append(accepted, s)
	}
	return accepted, settled
}

// touchedTokens collects every token the pipeline will need a price for:
// each CoW-accepted settlement's pair (needed by C8 scoring) plus each
// still-unsettled order's sell/buy tokens (needed by C6 to convert that
// order's route surplus into ETH terms before pathfinding runs) —
// deduplicated and sorted for deterministic oracle requests (spec §5:
// "iteration order must be deterministic").
func touchedTokens(accepted []types.Settlement, remaining []*types.ParsedOrder) []types.Token {
	seen := make(map[types.Token]bool)
	var out []types.Token
	add := func(t types.Token) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, s := range accepted {
		add(s.Pair.Sell)
		add(s.Pair.Buy)
	}
	for _, o := range remaining {
		add(o.SellToken)
		add(o.BuyToken)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// routeDropReason maps a pathfinder.RouteDropEvent onto the canonical tag
// set: a deadline cutoff is a timeout, a missing surplus-token price is an
// oracle failure, and anything else is "no route cleared net of gas" which
// is the route-search equivalent of negative surplus.
func routeDropReason(e pathfinder.RouteDropEvent) Reason {
	switch e.Reason {
	case pathfinder.ErrDeadlineExceeded:
		return ReasonTimeout
	case pathfinder.ErrMissingSurplusPrice:
		return ReasonOracleFailure
	default:
		return ReasonNegativeSurplus
	}
}

// solutionDropReason maps a solution.DropEvent onto the canonical tag set
// spec §7 names for dropped solutions. ErrInteractionRequote folds both
// "pool quote exception" and "unknown pool variant" (spec §7's two
// separate pool-level policies) into ReasonPoolUnquotable: C8's re-quote
// step reports every pool.Quote failure, including
// pool.ErrUnsupportedVariant, the same way, so the distinction is not
// observable at this layer.
func solutionDropReason(e solution.DropEvent) Reason {
	switch e.Reason {
	case solution.ErrMissingPrice:
		return ReasonOracleFailure
	case solution.ErrInteractionRequote:
		return ReasonPoolUnquotable
	case solution.ErrNonPositiveScore:
		return ReasonNegativeSurplus
	default:
		return ReasonNegativeSurplus
	}
}

// logDrop writes one structured log line per spec §7 ("log once,
// continue") and returns the event unchanged, so callers can both log and
// accumulate in a single expression.
func (d *Driver) logDrop(e DropEvent) DropEvent {
	d.Logger.Info("dropped",
		zap.String("reason", string(e.Reason)),
		zap.String("order_uid", e.OrderUID),
		zap.String("detail", e.Detail),
	)
	return e
}

// appendTimeout records that the deadline fired before the pipeline
// finished (spec §4.9: "a deadline with zero completed solutions returns
// an empty list").
func (d *Driver) appendTimeout(drops []DropEvent) []DropEvent {
	return append(drops, d.logDrop(DropEvent{Reason: ReasonTimeout, Detail: "auction deadline exceeded"}))
}
