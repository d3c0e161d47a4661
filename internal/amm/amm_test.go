package amm

import "testing"

func TestNewGenesisShares(t *testing.T) {
	p := New(1000, 50000, 0.003)
	if p.SharesOf("genesis") != p.TotalShares {
		t.Fatalf("genesis owner should hold all shares: got %f want %f", p.SharesOf("genesis"), p.TotalShares)
	}
}

func TestSwapZecForZaiGrowsK(t *testing.T) {
	p := New(1000, 50000, 0.003)
	kBefore := p.K
	if _, err := p.SwapZecForZai(10, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.K < kBefore {
		t.Fatalf("k must not decrease: before=%f after=%f", kBefore, p.K)
	}
	if _, err := p.SwapZaiForZec(500, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.K < kBefore {
		t.Fatalf("k must remain non-decreasing across second swap: %f < %f", p.K, kBefore)
	}
}

func TestSwapZeroAmountFails(t *testing.T) {
	p := New(1000, 50000, 0.003)
	k := p.K
	if _, err := p.SwapZecForZai(0, 1); err == nil {
		t.Fatal("expected error on zero-amount swap")
	}
	if p.K != k {
		t.Fatalf("k must be unchanged on failed swap: before=%f after=%f", k, p.K)
	}
}

func TestAddRemoveLiquidityRoundTrip(t *testing.T) {
	p := New(1000, 50000, 0.003)
	shares, err := p.AddLiquidity(100, 5000, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zec, zai, err := p.RemoveLiquidity(shares, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := zec - 100; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("zec round-trip mismatch: got %f", zec)
	}
	if diff := zai - 5000; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("zai round-trip mismatch: got %f", zai)
	}
	if _, ok := p.shares["alice"]; ok {
		t.Fatal("dust-tolerant owner entry should be pruned")
	}
}

func TestRemoveLiquidityInsufficientShares(t *testing.T) {
	p := New(1000, 50000, 0.003)
	shares, _ := p.AddLiquidity(100, 5000, "alice")
	if _, _, err := p.RemoveLiquidity(shares*2, "alice"); err == nil {
		t.Fatal("expected insufficient shares error")
	}
}

func TestTWAPOfConstantPriceEqualsSpot(t *testing.T) {
	p := New(10000, 500000, 0.003)
	for b := uint64(1); b <= 100; b++ {
		p.RecordPrice(b)
	}
	twap := p.GetTWAP(50)
	spot := p.SpotPrice()
	if diff := twap - spot; diff > 1e-10 || diff < -1e-10 {
		t.Fatalf("twap should equal spot with no swaps: twap=%f spot=%f", twap, spot)
	}
}

func TestRecordPriceMonotone(t *testing.T) {
	p := New(10000, 500000, 0.003)
	p.RecordPrice(1)
	p.RecordPrice(1) // no-op, same block
	p.RecordPrice(5)
	if len(p.observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(p.observations))
	}
	if p.observations[1].Block <= p.observations[0].Block {
		t.Fatal("observations must be strictly increasing in block")
	}
}

func TestQuoteMatchesActualSwap(t *testing.T) {
	p := New(10000, 500000, 0.003)
	quoted := p.QuoteZecForZai(100)
	actual, err := p.SwapZecForZai(100, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := quoted - actual; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("quote should match actual swap output: quoted=%f actual=%f", quoted, actual)
	}
}

func TestImpermanentLossAtParity(t *testing.T) {
	p := New(10000, 500000, 0.003)
	il := p.ImpermanentLoss(p.SpotPrice())
	if il > 1e-9 || il < -1e-9 {
		t.Fatalf("IL at entry price should be ~0, got %f", il)
	}
}
