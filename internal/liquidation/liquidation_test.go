package liquidation

import (
	"errors"
	"testing"

	"github.com/luxfi/zaisim/internal/amm"
	"github.com/luxfi/zaisim/internal/cdp"
)

func TestTransparentLiquidateWithBadDebt(t *testing.T) {
	pool := amm.New(10, 500, 0.003) // tiny pool, heavy slippage
	registry := cdp.NewRegistry(cdp.DefaultConfig())

	v, err := registry.OpenVault(pool, "whale", 5, 160, 100)
	if err != nil {
		t.Fatalf("unexpected open_vault error: %v", err)
	}

	// Crash the pool via a large swap so the vault becomes liquidatable.
	if _, err := pool.SwapZecForZai(8, 101); err != nil {
		t.Fatalf("unexpected swap error: %v", err)
	}
	for b := uint64(102); b <= 160; b++ {
		pool.RecordPrice(b)
	}

	if !registry.IsLiquidatable(pool, v.ID) {
		t.Fatal("vault should be liquidatable after crash")
	}

	engine := New(DefaultConfig())
	results := engine.TransparentLiquidate(registry, pool, 161)
	if len(results) != 1 {
		t.Fatalf("expected exactly one liquidation, got %d", len(results))
	}
	r := results[0]
	if r.BadDebt <= 0 {
		t.Fatalf("expected positive bad debt from tiny-pool slippage, got %f", r.BadDebt)
	}
	if engine.TotalBadDebt != r.BadDebt {
		t.Fatalf("cumulative bad debt mismatch: %f vs %f", engine.TotalBadDebt, r.BadDebt)
	}
}

func TestVelocityLimitStopsScan(t *testing.T) {
	pool := amm.New(100000, 5000000, 0.003)
	registry := cdp.NewRegistry(cdp.DefaultConfig())

	for i := 0; i < 10; i++ {
		if _, err := registry.OpenVault(pool, "owner", 10, 200, 1); err != nil {
			t.Fatalf("unexpected open_vault error: %v", err)
		}
	}
	// Crash price, then let the TWAP window catch up to the new spot.
	pool.SwapZecForZai(50000, 2)
	for b := uint64(3); b <= 60; b++ {
		pool.RecordPrice(b)
	}

	cfg := DefaultConfig()
	cfg.MaxLiquidationsPerBlock = 3
	engine := New(cfg)
	results := engine.TransparentLiquidate(registry, pool, 61)
	if len(results) != 3 {
		t.Fatalf("expected velocity cap of 3, got %d", len(results))
	}
}

func TestSelfLiquidationOfHealthyVaultSucceedsWithSurplus(t *testing.T) {
	pool := amm.New(10000, 500000, 0.003)
	registry := cdp.NewRegistry(cdp.DefaultConfig())
	v, _ := registry.OpenVault(pool, "alice", 10, 200, 1)

	cfg := DefaultConfig()
	cfg.SelfLiquidationPenaltyPct = 0.0
	engine := New(cfg)

	r, err := engine.SelfLiquidate(registry, pool, v.ID, 2)
	if err != nil {
		t.Fatalf("self-liquidation of healthy vault should succeed: %v", err)
	}
	if r.Surplus <= 0 {
		t.Fatalf("expected surplus returned to owner, got %f", r.Surplus)
	}
}

func TestChallengeLiquidateRejectsHealthyVault(t *testing.T) {
	pool := amm.New(10000, 500000, 0.003)
	registry := cdp.NewRegistry(cdp.DefaultConfig())
	v, _ := registry.OpenVault(pool, "alice", 10, 200, 1)

	engine := New(DefaultConfig())
	_, err := engine.ChallengeLiquidate(registry, pool, v.ID, 2, "keeper_bob")
	if err == nil {
		t.Fatal("expected error liquidating a healthy vault via challenge")
	}
	if !errors.Is(err, ErrNotLiquidatable) {
		t.Fatalf("expected ErrNotLiquidatable, got %v", err)
	}
}

func TestChallengeLiquidateRecordsKeeper(t *testing.T) {
	// Deep pool: the seized collateral sells for more than debt plus
	// penalty, so a penalty (and a keeper reward out of it) is collected.
	pool := amm.New(10000, 500000, 0.003)
	registry := cdp.NewRegistry(cdp.DefaultConfig())

	v, err := registry.OpenVault(pool, "whale", 5, 160, 100)
	if err != nil {
		t.Fatalf("unexpected open_vault error: %v", err)
	}
	if _, err := pool.SwapZecForZai(600, 101); err != nil {
		t.Fatalf("unexpected swap error: %v", err)
	}
	for b := uint64(102); b <= 160; b++ {
		pool.RecordPrice(b)
	}
	if !registry.IsLiquidatable(pool, v.ID) {
		t.Fatal("vault should be liquidatable after crash")
	}

	engine := New(DefaultConfig())
	r, err := engine.ChallengeLiquidate(registry, pool, v.ID, 161, "keeper_bob")
	if err != nil {
		t.Fatalf("unexpected challenge_liquidate error: %v", err)
	}
	if r.Mode != ModeChallengeResponse {
		t.Fatalf("expected ModeChallengeResponse, got %v", r.Mode)
	}
	if r.Keeper != "keeper_bob" {
		t.Fatalf("expected keeper identity to round-trip, got %q", r.Keeper)
	}
	if r.KeeperReward <= 0 {
		t.Fatalf("expected positive keeper reward, got %f", r.KeeperReward)
	}
}

func TestZombieDetectionRequiresGap(t *testing.T) {
	pool := amm.New(10000, 500000, 0.003)
	registry := cdp.NewRegistry(cdp.DefaultConfig())
	registry.OpenVault(pool, "alice", 10, 200, 1)

	engine := New(DefaultConfig())
	// No divergence between twap and spot yet: nothing should be flagged.
	results := engine.ZombieDetectAndLiquidate(registry, pool, 2, 0.05)
	if len(results) != 0 {
		t.Fatalf("expected no zombie liquidations without twap/spot divergence, got %d", len(results))
	}
}
