// Package api implements the solver's HTTP surface (spec §6): POST
// /solve, GET /health, over gorilla/mux, following the teacher-adjacent
// `uhyunpark-hyperlicked/pkg/api/server.go` shape (router + typed
// request/response structs + a respondJSON/respondError helper pair).
package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/johnayoung/cowsolver/pkg/fixedpoint"
	"github.com/johnayoung/cowsolver/pkg/types"
)

// wireOrder is spec §6's auction-input order shape: amounts travel as
// decimal strings, tokens as hex address strings.
type wireOrder struct {
	UID               string `json:"uid"`
	SellToken         string `json:"sellToken"`
	BuyToken          string `json:"buyToken"`
	SellAmount        string `json:"sellAmount"`
	BuyAmount         string `json:"buyAmount"`
	Kind              string `json:"kind"`
	PartiallyFillable bool   `json:"partiallyFillable"`
	ValidTo           int64  `json:"validTo"`
	FeeAmount         string `json:"feeAmount"`
	Owner             string `json:"owner"`
}

// wirePool is spec §6's liquidity entry shape. Weights/Amplification are
// only meaningful for the Weighted/Stable kinds respectively.
type wirePool struct {
	Kind          string   `json:"kind"`
	Tokens        []string `json:"tokens"`
	Reserves      []string `json:"reserves"`
	Router        string   `json:"router"`
	GasEstimate   uint64   `json:"gasEstimate"`
	FeeBps        uint32   `json:"feeBps"`
	Weights       []string `json:"weights,omitempty"`
	Amplification uint64   `json:"amplification,omitempty"`
}

// wireAuction is the full spec §6 "Auction input" envelope. Native/reference
// prices arrive under any of four field names depending on the upstream
// producer; spec §4.3 point 1 has the caller accept the first present of
// external_prices/native_prices/reference_prices/prices, in that order.
type wireAuction struct {
	ID                             string            `json:"id"`
	Orders                         []wireOrder       `json:"orders"`
	Liquidity                      []wirePool        `json:"liquidity"`
	EffectiveGasPrice              string            `json:"effectiveGasPrice"`
	Deadline                       string            `json:"deadline"`
	ExternalPrices                 map[string]string `json:"external_prices,omitempty"`
	NativePricesField              map[string]string `json:"native_prices,omitempty"`
	ReferencePrices                map[string]string `json:"reference_prices,omitempty"`
	Prices                         map[string]string `json:"prices,omitempty"`
	SurplusCapturingJitOrderOwners []string          `json:"surplus_capturing_jit_order_owners,omitempty"`
}

// nativePriceField returns the first non-empty of w's four aliased price
// fields, in spec §4.3 point 1's priority order.
func (w wireAuction) nativePriceField() map[string]string {
	switch {
	case len(w.ExternalPrices) > 0:
		return w.ExternalPrices
	case len(w.NativePricesField) > 0:
		return w.NativePricesField
	case len(w.ReferencePrices) > 0:
		return w.ReferencePrices
	default:
		return w.Prices
	}
}

// poolKindToVariant maps spec §6's wire liquidity-source names onto C2's
// closed PoolVariant tag set. KyberDMM's amplified-around-spot liquidity
// is the closest of our five variants to Concentrated; DODOV2 liquidity
// literally runs DODO's own PMM curve, the same algorithm C2's PMM
// variant implements.
func poolKindToVariant(kind string) (types.PoolVariant, error) {
	switch kind {
	case "ConstantProduct":
		return types.PoolConstantProduct, nil
	case "WeightedProduct":
		return types.PoolWeighted, nil
	case "Stable":
		return types.PoolStable, nil
	case "KyberDMM":
		return types.PoolConcentrated, nil
	case "DODOV2":
		return types.PoolPMM, nil
	default:
		return "", fmt.Errorf("api: unknown liquidity kind %q", kind)
	}
}

// decodeAuction parses a raw JSON body into types.Auction. Per-order and
// per-pool field errors are NOT fatal here: a malformed order is decoded
// into a best-effort Order and left for C4 to drop with a proper reason
// (spec §7); only a structurally broken envelope (missing id/orders/
// liquidity, as spec §6's 400 case names) fails decoding outright.
func decodeAuction(body []byte) (types.Auction, error) {
	var w wireAuction
	if err := json.Unmarshal(body, &w); err != nil {
		return types.Auction{}, fmt.Errorf("api: invalid JSON: %w", err)
	}
	if w.ID == "" {
		return types.Auction{}, fmt.Errorf("api: missing auction id")
	}
	if w.Orders == nil {
		return types.Auction{}, fmt.Errorf("api: missing orders")
	}
	if w.Liquidity == nil {
		return types.Auction{}, fmt.Errorf("api: missing liquidity")
	}

	deadline, err := time.Parse(time.RFC3339, w.Deadline)
	if err != nil {
		return types.Auction{}, fmt.Errorf("api: invalid deadline: %w", err)
	}

	gasPrice, err := fixedpoint.ParseAmount(w.EffectiveGasPrice)
	if err != nil {
		return types.Auction{}, fmt.Errorf("api: invalid effectiveGasPrice: %w", err)
	}

	orders := make([]types.Order, 0, len(w.Orders))
	for _, o := range w.Orders {
		orders = append(orders, decodeOrder(o))
	}

	liquidity := make([]types.Pool, 0, len(w.Liquidity))
	for _, p := range w.Liquidity {
		pool, err := decodePool(p)
		if err != nil {
			// An unrecognized liquidity kind never aborts the auction
			// (spec §7: "unknown pool variant: log and skip"); it is
			// simply omitted from the index, same end state as the
			// pool-level Quote dispatch rejecting it downstream.
			continue
		}
		liquidity = append(liquidity, pool)
	}

	var nativePrices map[types.Token]*uint256.Int
	if priceField := w.nativePriceField(); len(priceField) > 0 {
		nativePrices = make(map[types.Token]*uint256.Int, len(priceField))
		for tokHex, amt := range priceField {
			v, err := fixedpoint.ParseAmount(amt)
			if err != nil {
				continue
			}
			nativePrices[types.TokenFromHex(tokHex)] = v
		}
	}

	var jitOwners []types.Token
	for _, o := range w.SurplusCapturingJitOrderOwners {
		jitOwners = append(jitOwners, types.TokenFromHex(o))
	}

	return types.Auction{
		ID:                             w.ID,
		Orders:                         orders,
		Liquidity:                      liquidity,
		EffectiveGasPrice:              gasPrice,
		Deadline:                       deadline,
		NativePrices:                   nativePrices,
		SurplusCapturingJitOrderOwners: jitOwners,
	}, nil
}

// decodeOrder never fails: a field that doesn't parse becomes a zero/nil
// value, which order.Parse (C4) then rejects with a proper reason. This
// keeps the single source of truth for "what makes an order valid" in C4,
// not duplicated here.
func decodeOrder(o wireOrder) types.Order {
	sellAmount, _ := fixedpoint.ParseAmount(o.SellAmount)
	buyAmount, _ := fixedpoint.ParseAmount(o.BuyAmount)
	feeAmount, _ := fixedpoint.ParseAmount(o.FeeAmount)

	kind := types.OrderKindSell
	if o.Kind == "buy" {
		kind = types.OrderKindBuy
	} else if o.Kind != "sell" {
		kind = types.OrderKind(o.Kind) // deliberately invalid; C4 rejects it
	}

	return types.Order{
		UID:               o.UID,
		SellToken:         types.TokenFromHex(o.SellToken),
		BuyToken:          types.TokenFromHex(o.BuyToken),
		SellAmount:        sellAmount,
		BuyAmount:         buyAmount,
		Kind:              kind,
		PartiallyFillable: o.PartiallyFillable,
		ValidTo:           o.ValidTo,
		FeeAmount:         feeAmount,
		Owner:             types.TokenFromHex(o.Owner),
	}
}

func decodePool(p wirePool) (types.Pool, error) {
	variant, err := poolKindToVariant(p.Kind)
	if err != nil {
		return types.Pool{}, err
	}

	tokens := make([]types.Token, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		tokens = append(tokens, types.TokenFromHex(t))
	}

	reserves := make([]*uint256.Int, 0, len(p.Reserves))
	for _, r := range p.Reserves {
		v, err := fixedpoint.ParseAmount(r)
		if err != nil {
			return types.Pool{}, fmt.Errorf("api: invalid reserve amount: %w", err)
		}
		reserves = append(reserves, v)
	}

	var weights []*uint256.Int
	for _, w := range p.Weights {
		v, err := fixedpoint.ParseAmount(w)
		if err != nil {
			return types.Pool{}, fmt.Errorf("api: invalid weight: %w", err)
		}
		weights = append(weights, v)
	}

	return types.Pool{
		Address:       p.Router,
		Tokens:        tokens,
		Reserves:      reserves,
		Variant:       variant,
		FeeBps:        p.FeeBps,
		Weights:       weights,
		Amplification: p.Amplification,
		GasEstimate:   p.GasEstimate,
	}, nil
}

// wireTrade, wireInteraction, wireSolution and wireResponse mirror spec
// §6's "Solution output" shape exactly.
type wireTrade struct {
	Kind           string `json:"kind"`
	Order          string `json:"order"`
	ExecutedAmount string `json:"executedAmount"`
}

type wireInteraction struct {
	Kind         string `json:"kind"`
	Internalize  bool   `json:"internalize"`
	InputToken   string `json:"inputToken"`
	OutputToken  string `json:"outputToken"`
	InputAmount  string `json:"inputAmount"`
	OutputAmount string `json:"outputAmount"`
}

type wireSolution struct {
	ID           int               `json:"id"`
	Prices       map[string]string `json:"prices"`
	Trades       []wireTrade       `json:"trades"`
	Interactions []wireInteraction `json:"interactions"`
	Gas          uint64            `json:"gas"`
	Score        string            `json:"score"`
}

type wireResponse struct {
	Solutions []wireSolution `json:"solutions"`
}

// encodeSolutions converts C9's output into spec §6's wire shape. An
// empty/nil slice still encodes as `"solutions": []`, never `null`
// (spec §6: "Empty list is a valid, well-formed response").
func encodeSolutions(solutions []types.Solution) wireResponse {
	out := make([]wireSolution, len(solutions))
	for i, s := range solutions {
		prices := make(map[string]string, len(s.Prices))
		for tok, p := range s.Prices {
			prices[tok.String()] = p.String()
		}

		trades := make([]wireTrade, len(s.Trades))
		for j, t := range s.Trades {
			trades[j] = wireTrade{Kind: "fulfillment", Order: t.OrderUID, ExecutedAmount: t.ExecutedAmount.String()}
		}

		interactions := make([]wireInteraction, len(s.Interactions))
		for j, it := range s.Interactions {
			interactions[j] = wireInteraction{
				Kind:         "liquidity",
				Internalize:  it.Internalize,
				InputToken:   it.InputToken.String(),
				OutputToken:  it.OutputToken.String(),
				InputAmount:  it.InputAmount.String(),
				OutputAmount: it.OutputAmount.String(),
			}
		}

		out[i] = wireSolution{
			ID:           s.ID,
			Prices:       prices,
			Trades:       trades,
			Interactions: interactions,
			Gas:          s.Gas,
			Score:        s.Score.String(),
		}
	}
	return wireResponse{Solutions: out}
}
