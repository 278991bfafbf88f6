package api

import (
	"testing"

	"github.com/johnayoung/cowsolver/pkg/types"
)

func TestDecodeAuctionRejectsMissingOrders(t *testing.T) {
	body := []byte(`{"id":"a1","liquidity":[],"effectiveGasPrice":"0","deadline":"2026-01-01T00:00:00Z"}`)
	if _, err := decodeAuction(body); err == nil {
		t.Fatalf("expected an error for a missing orders field")
	}
}

func TestDecodeAuctionRejectsInvalidJSON(t *testing.T) {
	if _, err := decodeAuction([]byte("{not json")); err == nil {
		t.Fatalf("expected an error for invalid JSON")
	}
}

func TestDecodeAuctionParsesMinimalValidEnvelope(t *testing.T) {
	body := []byte(`{
		"id": "a1",
		"orders": [{
			"uid": "o1",
			"sellToken": "0x0000000000000000000000000000000000000001",
			"buyToken": "0x0000000000000000000000000000000000000002",
			"sellAmount": "1000",
			"buyAmount": "900",
			"kind": "sell",
			"validTo": 9999999999,
			"feeAmount": "0",
			"owner": "0x0000000000000000000000000000000000000003"
		}],
		"liquidity": [{
			"kind": "ConstantProduct",
			"tokens": ["0x0000000000000000000000000000000000000001", "0x0000000000000000000000000000000000000002"],
			"reserves": ["1000000", "1000000"],
			"router": "pool-1",
			"gasEstimate": 150000,
			"feeBps": 30
		}],
		"effectiveGasPrice": "1",
		"deadline": "2026-01-01T00:00:00Z"
	}`)

	auction, err := decodeAuction(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auction.ID != "a1" {
		t.Fatalf("expected auction id a1, got %q", auction.ID)
	}
	if len(auction.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(auction.Orders))
	}
	if len(auction.Liquidity) != 1 {
		t.Fatalf("expected 1 pool, got %d", len(auction.Liquidity))
	}
}

func TestDecodeAuctionSkipsUnknownLiquidityKind(t *testing.T) {
	body := []byte(`{
		"id": "a1",
		"orders": [],
		"liquidity": [{"kind": "NotARealKind", "tokens": [], "reserves": [], "router": "x"}],
		"effectiveGasPrice": "0",
		"deadline": "2026-01-01T00:00:00Z"
	}`)

	auction, err := decodeAuction(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(auction.Liquidity) != 0 {
		t.Fatalf("expected the unknown-kind pool to be skipped, got %d", len(auction.Liquidity))
	}
}

func TestEncodeSolutionsNeverEmitsNull(t *testing.T) {
	resp := encodeSolutions(nil)
	if resp.Solutions == nil {
		t.Fatalf("expected an empty slice, not nil, so JSON encodes [] rather than null")
	}
}

// TestDecodeAuctionPrefersExternalPricesOverAllAliases covers spec §4.3
// point 1's priority order: external_prices beats native_prices,
// reference_prices and prices when more than one is present.
func TestDecodeAuctionPrefersExternalPricesOverAllAliases(t *testing.T) {
	body := []byte(`{
		"id": "a1",
		"orders": [],
		"liquidity": [],
		"effectiveGasPrice": "0",
		"deadline": "2026-01-01T00:00:00Z",
		"external_prices": {"0x0000000000000000000000000000000000000001": "111"},
		"native_prices": {"0x0000000000000000000000000000000000000001": "222"},
		"reference_prices": {"0x0000000000000000000000000000000000000001": "333"},
		"prices": {"0x0000000000000000000000000000000000000001": "444"}
	}`)

	auction, err := decodeAuction(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok := types.TokenFromHex("0x0000000000000000000000000000000000000001")
	got, ok := auction.NativePrices[tok]
	if !ok {
		t.Fatalf("expected a native price for %v", tok)
	}
	if got.Uint64() != 111 {
		t.Fatalf("expected external_prices (111) to win over every other alias, got %s", got.String())
	}
}

// TestDecodeAuctionFallsBackThroughPriceAliases exercises the remaining
// fallback order once higher-priority aliases are absent: native_prices
// beats reference_prices and prices, and reference_prices beats prices.
func TestDecodeAuctionFallsBackThroughPriceAliases(t *testing.T) {
	tok := types.TokenFromHex("0x0000000000000000000000000000000000000001")

	nativeBody := []byte(`{
		"id": "a1", "orders": [], "liquidity": [],
		"effectiveGasPrice": "0", "deadline": "2026-01-01T00:00:00Z",
		"native_prices": {"0x0000000000000000000000000000000000000001": "222"},
		"reference_prices": {"0x0000000000000000000000000000000000000001": "333"},
		"prices": {"0x0000000000000000000000000000000000000001": "444"}
	}`)
	auction, err := decodeAuction(nativeBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := auction.NativePrices[tok]; got == nil || got.Uint64() != 222 {
		t.Fatalf("expected native_prices (222) to win when external_prices is absent, got %v", got)
	}

	referenceBody := []byte(`{
		"id": "a1", "orders": [], "liquidity": [],
		"effectiveGasPrice": "0", "deadline": "2026-01-01T00:00:00Z",
		"reference_prices": {"0x0000000000000000000000000000000000000001": "333"},
		"prices": {"0x0000000000000000000000000000000000000001": "444"}
	}`)
	auction, err = decodeAuction(referenceBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := auction.NativePrices[tok]; got == nil || got.Uint64() != 333 {
		t.Fatalf("expected reference_prices (333) to win when external_prices/native_prices are absent, got %v", got)
	}

	pricesBody := []byte(`{
		"id": "a1", "orders": [], "liquidity": [],
		"effectiveGasPrice": "0", "deadline": "2026-01-01T00:00:00Z",
		"prices": {"0x0000000000000000000000000000000000000001": "444"}
	}`)
	auction, err = decodeAuction(pricesBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := auction.NativePrices[tok]; got == nil || got.Uint64() != 444 {
		t.Fatalf("expected legacy prices (444) to win as the last fallback, got %v", got)
	}
}
