package agents

import (
	"testing"

	"github.com/luxfi/zaisim/internal/amm"
	"github.com/luxfi/zaisim/internal/cdp"
)

func TestArbitrageurSellsWhenAmmRich(t *testing.T) {
	pool := amm.New(10000, 600000, 0.003) // spot = 60, external = 50
	cfg := DefaultArbitrageurConfig()
	cfg.ArbLatencySellBlocks = 0
	arb := NewArbitrageur(cfg)

	actions := arb.Act(pool, 50.0, 1)
	found := false
	for _, a := range actions {
		if a.Kind == ActionSellZec {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected arbitrageur to sell zec when amm price is rich, got %v", actions)
	}
}

func TestArbitrageurQueuesWhenLatencyNonzero(t *testing.T) {
	pool := amm.New(10000, 400000, 0.003) // spot = 40, external = 50
	cfg := DefaultArbitrageurConfig()
	cfg.ArbLatencyBuyBlocks = 5
	arb := NewArbitrageur(cfg)

	actions := arb.Act(pool, 50.0, 1)
	if len(actions) != 1 || actions[0].Kind != ActionQueued {
		t.Fatalf("expected a single queued action, got %v", actions)
	}

	// The queued trade shouldn't have touched balances yet.
	if arb.ZecBalance != cfg.InitialZecBalance {
		t.Fatalf("zec balance should be unchanged until the trade matures, got %f", arb.ZecBalance)
	}

	executed := arb.Act(pool, 50.0, 6)
	boughtZec := false
	for _, a := range executed {
		if a.Kind == ActionBuyZec {
			boughtZec = true
		}
	}
	if !boughtZec {
		t.Fatalf("expected pending buy to execute once matured, got %v", executed)
	}
}

func TestArbitrageurSkipsBelowProfitFloor(t *testing.T) {
	pool := amm.New(10000, 601000, 0.003) // spot = 60.1, external = 50: past the threshold
	cfg := DefaultArbitrageurConfig()
	cfg.ArbLatencySellBlocks = 0   // execute immediately, so only the floor can stop the sell
	cfg.MinArbProfit = 1_000_000.0 // impossible floor
	arb := NewArbitrageur(cfg)

	actions := arb.Act(pool, 50.0, 1)
	for _, a := range actions {
		if a.Kind == ActionSellZec || a.Kind == ActionBuyZec {
			t.Fatalf("expected no trade below the profit floor, got %v", a)
		}
	}
}

func TestDemandAgentPanicSellsAfterSustainedDeviation(t *testing.T) {
	pool := amm.New(100000, 4000000, 0.003) // spot = 40, far below redemption = 100
	cfg := DefaultDemandAgentConfig()
	d := NewDemandAgent(cfg)
	d.ZaiBalance = 1000.0

	// The panic sell fires on the block where the consecutive-deviation
	// count reaches DemandExitWindowBlocks.
	var block uint64 = 1
	for i := uint64(0); i < cfg.DemandExitWindowBlocks-1; i++ {
		d.Act(pool, 100.0, block)
		block++
	}
	action := d.Act(pool, 100.0, block)
	if action.Kind != ActionPanicSellZai {
		t.Fatalf("expected panic sell after sustained deviation, got %v", action)
	}
	if !d.Panicked {
		t.Fatal("expected panicked flag to be set")
	}
}

func TestMinerAgentSellsImmediately(t *testing.T) {
	pool := amm.New(100000, 5000000, 0.003)
	cfg := DefaultMinerAgentConfig()
	m := NewMinerAgent(cfg)

	action := m.Act(pool, 1)
	if action.Kind != ActionMinerSell {
		t.Fatalf("expected immediate miner sell, got %v", action)
	}
}

func TestMinerAgentBatchesWhenNotImmediate(t *testing.T) {
	pool := amm.New(100000, 5000000, 0.003)
	cfg := DefaultMinerAgentConfig()
	cfg.SellImmediately = false
	cfg.BatchInterval = 10
	m := NewMinerAgent(cfg)

	for b := uint64(1); b < 10; b++ {
		action := m.Act(pool, b)
		if action.Kind != ActionNone {
			t.Fatalf("expected no sell before batch interval elapses, got %v at block %d", action, b)
		}
	}
	action := m.Act(pool, 10)
	if action.Kind != ActionMinerSell {
		t.Fatalf("expected batched sell at interval boundary, got %v", action)
	}
}

func TestCdpHolderAddsCollateralWhenRatioDrops(t *testing.T) {
	pool := amm.New(100000, 5000000, 0.003) // spot = 50
	registry := cdp.NewRegistry(cdp.DefaultConfig())
	cfg := DefaultCdpHolderConfig()
	h := NewCdpHolder(cfg)

	if _, err := h.OpenVault(registry, pool, 1); err != nil {
		t.Fatalf("unexpected open_vault error: %v", err)
	}

	// Crash the price so the vault's twap-valued ratio drops below the
	// holder's action threshold.
	if _, err := pool.SwapZecForZai(60000, 2); err != nil {
		t.Fatalf("unexpected swap error: %v", err)
	}
	for b := uint64(3); b <= 60; b++ {
		pool.RecordPrice(b)
	}

	action := h.Act(registry, pool, 61)
	if action.Kind != ActionCdpAction {
		t.Fatalf("expected a protective cdp action, got %v", action)
	}
}

func TestLpAgentWithdrawsPastIlThreshold(t *testing.T) {
	pool := amm.New(100000, 5000000, 0.003)
	cfg := DefaultLpAgentConfig()
	lp := NewLpAgent(cfg)

	add := lp.ProvideLiquidity(pool)
	if add.Kind != ActionLpAdd {
		t.Fatalf("expected lp add, got %v", add)
	}

	// Move price far enough to exceed the default 5% IL threshold.
	if _, err := pool.SwapZecForZai(40000, 1); err != nil {
		t.Fatalf("unexpected swap error: %v", err)
	}

	action := lp.Act(pool)
	if action.Kind != ActionLpRemove {
		t.Fatalf("expected lp to withdraw past IL threshold, got %v", action)
	}
	if lp.IsProviding {
		t.Fatal("expected lp to have fully exited")
	}
}

func TestIlAwareLpWithdrawsGraduallyOnLoss(t *testing.T) {
	pool := amm.New(100000, 5000000, 0.003)
	cfg := DefaultIlAwareLpConfig()
	cfg.WithdrawalThreshold = -0.001
	cfg.WithdrawalRate = 0.10
	lp := NewIlAwareLpAgent(cfg, "il_lp")

	lp.ProvideLiquidity(pool)
	initialShares := lp.Shares

	// Crash external-priced value of the position relative to entry.
	action := lp.Act(pool, 1.0)
	if action.Kind != ActionLpRemove {
		t.Fatalf("expected partial withdrawal on loss, got %v", action)
	}
	if lp.Shares >= initialShares {
		t.Fatal("expected shares to decrease after partial withdrawal")
	}
	if !lp.IsProviding {
		t.Fatal("expected lp to still be providing after a partial withdrawal")
	}
}

func TestAttackerDumpsThenBuysBack(t *testing.T) {
	pool := amm.New(100000, 5000000, 0.003)
	cfg := DefaultAttackerConfig()
	cfg.AttackAtBlock = 5
	cfg.HoldBlocks = 2
	a := NewAttacker(cfg)

	for b := uint64(1); b < 5; b++ {
		if action := a.Act(pool, b); action.Kind != ActionNone {
			t.Fatalf("expected attacker idle before attack block, got %v", action)
		}
	}

	dump := a.Act(pool, 5)
	if dump.Kind != ActionAttackSwap || dump.Direction != "sell_zec" {
		t.Fatalf("expected sell_zec dump at attack block, got %v", dump)
	}
	if a.Phase != AttackManipulating {
		t.Fatalf("expected manipulating phase after dump, got %v", a.Phase)
	}

	if action := a.Act(pool, 6); action.Kind != ActionNone {
		t.Fatalf("expected no action before hold period elapses, got %v", action)
	}

	buyback := a.Act(pool, 7)
	if buyback.Kind != ActionAttackSwap || buyback.Direction != "buy_zec" {
		t.Fatalf("expected buy_zec buyback after hold period, got %v", buyback)
	}
	if a.Phase != AttackDone {
		t.Fatalf("expected done phase after buyback, got %v", a.Phase)
	}
}
