// Package agents implements the behavioral population that drives scenario
// price action and CDP activity: arbitrageurs, demand-side ZAI buyers,
// miners recycling block rewards, a reactive CDP holder, two LP archetypes,
// and a peg-manipulation attacker.
package agents

import (
	"fmt"
	"math"

	"github.com/luxfi/zaisim/internal/amm"
	"github.com/luxfi/zaisim/internal/cdp"
	"github.com/luxfi/zaisim/internal/idgen"
)

// ActionKind tags what an agent did on a given step.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionBuyZec
	ActionSellZec
	ActionBuyZai
	ActionPanicSellZai
	ActionMinerSell
	ActionCdpAction
	ActionLpAdd
	ActionLpRemove
	ActionAttackSwap
	ActionQueued
)

// Action is the tagged result of one agent's act() call, mirroring
// spec §4.5's AgentAction enum.
type Action struct {
	Kind ActionKind

	ZaiSpent    float64
	ZecReceived float64
	ZecSpent    float64
	ZaiReceived float64
	ZecSold     float64

	VaultID     uint64
	Description string

	Zec, Zai, Shares float64

	Direction string
	Amount    float64

	// Fingerprint is a content-addressed audit id for the LP position
	// snapshot at the moment of the add/remove, for audit parity with
	// cdp.Vault.Fingerprint(). Zero on every other action kind.
	Fingerprint idgen.ID
}

func (a Action) String() string {
	switch a.Kind {
	case ActionBuyZec:
		return fmt.Sprintf("buy_zec(spent=%.4f zai, got=%.4f zec)", a.ZaiSpent, a.ZecReceived)
	case ActionSellZec:
		return fmt.Sprintf("sell_zec(spent=%.4f zec, got=%.4f zai)", a.ZecSpent, a.ZaiReceived)
	case ActionBuyZai:
		return fmt.Sprintf("buy_zai(spent=%.4f zec, got=%.4f zai)", a.ZecSpent, a.ZaiReceived)
	case ActionPanicSellZai:
		return fmt.Sprintf("panic_sell_zai(spent=%.4f zai, got=%.4f zec)", a.ZaiSpent, a.ZecReceived)
	case ActionMinerSell:
		return fmt.Sprintf("miner_sell(sold=%.4f zec, got=%.4f zai)", a.ZecSold, a.ZaiReceived)
	case ActionCdpAction:
		return fmt.Sprintf("cdp(vault=%d): %s", a.VaultID, a.Description)
	case ActionLpAdd:
		return fmt.Sprintf("lp_add(zec=%.4f zai=%.4f shares=%.4f)", a.Zec, a.Zai, a.Shares)
	case ActionLpRemove:
		return fmt.Sprintf("lp_remove(zec=%.4f zai=%.4f shares=%.4f)", a.Zec, a.Zai, a.Shares)
	case ActionAttackSwap:
		return fmt.Sprintf("attack(%s, amount=%.4f)", a.Direction, a.Amount)
	case ActionQueued:
		return fmt.Sprintf("queued: %s", a.Description)
	default:
		return "none"
	}
}

// ═══════════════════════════════════════════════════════════════════════
// 1. Arbitrageur
// ═══════════════════════════════════════════════════════════════════════

type pendingTrade struct {
	executeAtBlock uint64
	isBuyZec       bool
	amount         float64
}

// ArbitrageurConfig tunes a single arbitrageur's behavior.
type ArbitrageurConfig struct {
	InitialZaiBalance float64
	InitialZecBalance float64
	ArbThresholdPct   float64

	// ArbLatencyBuyBlocks/ArbLatencySellBlocks model execution latency when
	// buying ZEC (selling ZAI) vs. selling ZEC (buying ZAI) on the AMM.
	ArbLatencyBuyBlocks  uint64
	ArbLatencySellBlocks uint64

	// CapitalReplenishRate is ZAI replenished per block, and bounds how much
	// ZAI can be converted to ZEC off-chain per block when ZEC runs low.
	CapitalReplenishRate float64

	// MinArbProfit is the minimum expected profit (in ZAI) required to
	// execute a trade; models a tx-fee floor.
	MinArbProfit float64

	// ActivityRate, when < 1.0, overrides the scenario-level arber activity
	// rate for this particular arbitrageur.
	ActivityRate float64

	// MaxTradePct is the fraction of balance traded per opportunity.
	MaxTradePct float64
}

// DefaultArbitrageurConfig matches the original simulator's defaults.
func DefaultArbitrageurConfig() ArbitrageurConfig {
	return ArbitrageurConfig{
		InitialZaiBalance:    100_000.0,
		InitialZecBalance:    2000.0,
		ArbThresholdPct:      0.5,
		ArbLatencyBuyBlocks:  0,
		ArbLatencySellBlocks: 10,
		CapitalReplenishRate: 0.0,
		MinArbProfit:         0.0,
		ActivityRate:         1.0,
		MaxTradePct:          0.1,
	}
}

// Arbitrageur trades the AMM back toward an external reference price,
// subject to latency and a minimum-profit gate.
type Arbitrageur struct {
	Config         ArbitrageurConfig
	ZaiBalance     float64
	ZecBalance     float64
	TotalProfitZai float64

	pending []pendingTrade
}

// NewArbitrageur constructs an arbitrageur funded per cfg.
func NewArbitrageur(cfg ArbitrageurConfig) *Arbitrageur {
	return &Arbitrageur{
		Config:     cfg,
		ZaiBalance: cfg.InitialZaiBalance,
		ZecBalance: cfg.InitialZecBalance,
	}
}

// executePending runs any pending trades that have matured by block.
func (a *Arbitrageur) executePending(pool *amm.Pool, block uint64) []Action {
	var actions []Action
	for len(a.pending) > 0 && a.pending[0].executeAtBlock <= block {
		trade := a.pending[0]
		a.pending = a.pending[1:]

		if trade.isBuyZec {
			spend := math.Min(trade.amount, a.ZaiBalance)
			if spend > 0 {
				if zecOut, err := pool.SwapZaiForZec(spend, block); err == nil {
					a.ZaiBalance -= spend
					a.ZecBalance += zecOut
					actions = append(actions, Action{Kind: ActionBuyZec, ZaiSpent: spend, ZecReceived: zecOut})
				}
			}
		} else {
			spend := math.Min(trade.amount, a.ZecBalance)
			if spend > 0 {
				if zaiOut, err := pool.SwapZecForZai(spend, block); err == nil {
					a.ZecBalance -= spend
					a.ZaiBalance += zaiOut
					a.TotalProfitZai += zaiOut - spend*pool.SpotPrice()
					actions = append(actions, Action{Kind: ActionSellZec, ZecSpent: spend, ZaiReceived: zaiOut})
				}
			}
		}
	}
	return actions
}

// Act observes externalPrice (e.g. an off-chain reference) against the AMM
// spot price and decides whether to arb, queuing trades behind their
// configured latency.
func (a *Arbitrageur) Act(pool *amm.Pool, externalPrice float64, block uint64) []Action {
	a.ZaiBalance += a.Config.CapitalReplenishRate

	if a.Config.CapitalReplenishRate > 0 && a.ZecBalance < 10.0 && a.ZaiBalance > 0 && externalPrice > 0 {
		convert := math.Min(a.Config.CapitalReplenishRate, a.ZaiBalance)
		a.ZaiBalance -= convert
		a.ZecBalance += convert / externalPrice
	}

	actions := a.executePending(pool, block)

	ammPrice := pool.SpotPrice()
	deviationPct := ((ammPrice - externalPrice) / externalPrice) * 100.0

	switch {
	case deviationPct > a.Config.ArbThresholdPct:
		// AMM too rich in ZAI terms → sell ZEC on the AMM, pushing price down.
		tradeSize := a.ZecBalance * a.Config.MaxTradePct
		if tradeSize <= 0.01 {
			return actions
		}
		expectedZai := pool.QuoteZecForZai(tradeSize)
		if expectedZai-tradeSize*externalPrice < a.Config.MinArbProfit {
			return actions
		}
		if a.Config.ArbLatencySellBlocks == 0 {
			spend := math.Min(tradeSize, a.ZecBalance)
			if zaiOut, err := pool.SwapZecForZai(spend, block); err == nil {
				a.ZecBalance -= spend
				a.ZaiBalance += zaiOut
				actions = append(actions, Action{Kind: ActionSellZec, ZecSpent: spend, ZaiReceived: zaiOut})
			}
		} else {
			at := block + a.Config.ArbLatencySellBlocks
			a.pending = append(a.pending, pendingTrade{executeAtBlock: at, isBuyZec: false, amount: tradeSize})
			actions = append(actions, Action{Kind: ActionQueued, Description: fmt.Sprintf("sell %.4f ZEC at block %d", tradeSize, at)})
		}

	case deviationPct < -a.Config.ArbThresholdPct:
		// AMM too cheap in ZAI terms → buy ZEC on the AMM, pushing price up.
		tradeValue := a.ZaiBalance * a.Config.MaxTradePct
		if tradeValue <= 0.01 {
			return actions
		}
		expectedZec := pool.QuoteZaiForZec(tradeValue)
		if expectedZec*externalPrice-tradeValue < a.Config.MinArbProfit {
			return actions
		}
		if a.Config.ArbLatencyBuyBlocks == 0 {
			spend := math.Min(tradeValue, a.ZaiBalance)
			if zecOut, err := pool.SwapZaiForZec(spend, block); err == nil {
				a.ZaiBalance -= spend
				a.ZecBalance += zecOut
				actions = append(actions, Action{Kind: ActionBuyZec, ZaiSpent: spend, ZecReceived: zecOut})
			}
		} else {
			at := block + a.Config.ArbLatencyBuyBlocks
			a.pending = append(a.pending, pendingTrade{executeAtBlock: at, isBuyZec: true, amount: tradeValue})
			actions = append(actions, Action{Kind: ActionQueued, Description: fmt.Sprintf("buy ZEC with %.4f ZAI at block %d", tradeValue, at)})
		}
	}

	return actions
}

// ═══════════════════════════════════════════════════════════════════════
// 2. Demand agent
// ═══════════════════════════════════════════════════════════════════════

// DemandAgentConfig tunes ZAI demand-side buying and panic-exit behavior.
type DemandAgentConfig struct {
	DemandElasticity        float64
	DemandBaseRate          float64
	DemandExitThresholdPct  float64
	DemandExitWindowBlocks  uint64
	DemandPanicSellFraction float64
	InitialZecBalance       float64
}

// DefaultDemandAgentConfig matches the original simulator's defaults.
func DefaultDemandAgentConfig() DemandAgentConfig {
	return DemandAgentConfig{
		DemandElasticity:        0.05,
		DemandBaseRate:          1.0,
		DemandExitThresholdPct:  5.0,
		DemandExitWindowBlocks:  48,
		DemandPanicSellFraction: 0.5,
		InitialZecBalance:       5000.0,
	}
}

// DemandAgent buys ZAI at a base rate, more aggressively when it trades
// below redemption price, and panic-sells once if the deviation persists
// too long.
type DemandAgent struct {
	Config     DemandAgentConfig
	ZecBalance float64
	ZaiBalance float64
	Panicked   bool

	deviationBlocks uint64
}

// NewDemandAgent constructs a demand agent funded per cfg.
func NewDemandAgent(cfg DemandAgentConfig) *DemandAgent {
	return &DemandAgent{Config: cfg, ZecBalance: cfg.InitialZecBalance}
}

// Act runs one block of demand-side behavior against redemptionPrice.
func (d *DemandAgent) Act(pool *amm.Pool, redemptionPrice float64, block uint64) Action {
	marketPrice := pool.SpotPrice()
	deviationPct := ((redemptionPrice - marketPrice) / redemptionPrice) * 100.0

	if math.Abs(deviationPct) > d.Config.DemandExitThresholdPct {
		d.deviationBlocks++
	} else {
		d.deviationBlocks = 0
	}

	if !d.Panicked && d.deviationBlocks >= d.Config.DemandExitWindowBlocks && d.ZaiBalance > 0.01 {
		sellAmount := d.ZaiBalance * d.Config.DemandPanicSellFraction
		if sellAmount > 0.01 {
			if zecOut, err := pool.SwapZaiForZec(sellAmount, block); err == nil {
				d.ZaiBalance -= sellAmount
				d.ZecBalance += zecOut
				d.Panicked = true
				return Action{Kind: ActionPanicSellZai, ZaiSpent: sellAmount, ZecReceived: zecOut}
			}
		}
	}

	buyAmountZec := d.Config.DemandBaseRate
	if deviationPct > 0 {
		buyAmountZec += d.ZecBalance * d.Config.DemandElasticity * (deviationPct / 100.0)
	}
	buyAmountZec = math.Min(buyAmountZec, d.ZecBalance)

	if buyAmountZec > 0.01 {
		if zaiOut, err := pool.SwapZecForZai(buyAmountZec, block); err == nil {
			d.ZecBalance -= buyAmountZec
			d.ZaiBalance += zaiOut
			return Action{Kind: ActionBuyZai, ZecSpent: buyAmountZec, ZaiReceived: zaiOut}
		}
	}

	return Action{Kind: ActionNone}
}

// ═══════════════════════════════════════════════════════════════════════
// 3. Miner agent
// ═══════════════════════════════════════════════════════════════════════

// MinerAgentConfig tunes block-reward selling pressure.
type MinerAgentConfig struct {
	BlockReward      float64
	MinerSellFraction float64
	MinerAmmFraction  float64
	SellImmediately   bool
	BatchInterval     uint64
}

// DefaultMinerAgentConfig matches the original simulator's defaults.
func DefaultMinerAgentConfig() MinerAgentConfig {
	return MinerAgentConfig{
		BlockReward:       1.25,
		MinerSellFraction: 0.5,
		MinerAmmFraction:  0.3,
		SellImmediately:   true,
		BatchInterval:     48,
	}
}

// MinerAgent receives a ZEC block reward each block and recycles a portion
// of it through the AMM, either immediately or in batches.
type MinerAgent struct {
	Config     MinerAgentConfig
	ZecBalance float64
	ZaiBalance float64

	accumulatedSell float64
	lastBatchBlock  uint64
}

// NewMinerAgent constructs a miner with zero starting balance.
func NewMinerAgent(cfg MinerAgentConfig) *MinerAgent {
	return &MinerAgent{Config: cfg}
}

// Act credits this block's reward and, per config, sells into the AMM.
func (m *MinerAgent) Act(pool *amm.Pool, block uint64) Action {
	m.ZecBalance += m.Config.BlockReward

	sellTotal := m.Config.BlockReward * m.Config.MinerSellFraction
	ammSell := sellTotal * m.Config.MinerAmmFraction

	if m.Config.SellImmediately {
		if ammSell > 0.001 {
			if zaiOut, err := pool.SwapZecForZai(ammSell, block); err == nil {
				m.ZecBalance -= ammSell
				m.ZaiBalance += zaiOut
				return Action{Kind: ActionMinerSell, ZecSold: ammSell, ZaiReceived: zaiOut}
			}
		}
		return Action{Kind: ActionNone}
	}

	m.accumulatedSell += ammSell
	if block >= m.lastBatchBlock+m.Config.BatchInterval && m.accumulatedSell > 0.001 {
		batch := math.Min(m.accumulatedSell, m.ZecBalance)
		m.accumulatedSell = 0
		m.lastBatchBlock = block
		if zaiOut, err := pool.SwapZecForZai(batch, block); err == nil {
			m.ZecBalance -= batch
			m.ZaiBalance += zaiOut
			return Action{Kind: ActionMinerSell, ZecSold: batch, ZaiReceived: zaiOut}
		}
	}
	return Action{Kind: ActionNone}
}

// ═══════════════════════════════════════════════════════════════════════
// 4. CDP holder
// ═══════════════════════════════════════════════════════════════════════

// CdpHolderConfig tunes the reactive vault-management agent.
type CdpHolderConfig struct {
	TargetRatio         float64
	ActionThresholdRatio float64
	ReserveZec          float64
	InitialCollateral   float64
	InitialDebt         float64
}

// DefaultCdpHolderConfig matches the original simulator's defaults.
func DefaultCdpHolderConfig() CdpHolderConfig {
	return CdpHolderConfig{
		TargetRatio:          2.5,
		ActionThresholdRatio: 1.8,
		ReserveZec:           100.0,
		InitialCollateral:    50.0,
		InitialDebt:          1000.0,
	}
}

// CdpHolder opens one vault and tops up collateral reactively when its
// TWAP-valued ratio drops below ActionThresholdRatio.
type CdpHolder struct {
	Config     CdpHolderConfig
	VaultID    *uint64
	ReserveZec float64
}

// NewCdpHolder constructs a holder with no vault open yet.
func NewCdpHolder(cfg CdpHolderConfig) *CdpHolder {
	return &CdpHolder{Config: cfg, ReserveZec: cfg.ReserveZec}
}

// OpenVault opens the holder's initial vault; call once at scenario start.
func (c *CdpHolder) OpenVault(registry *cdp.Registry, pool *amm.Pool, block uint64) (uint64, error) {
	v, err := registry.OpenVault(pool, "cdp_holder", c.Config.InitialCollateral, c.Config.InitialDebt, block)
	if err != nil {
		return 0, err
	}
	id := v.ID
	c.VaultID = &id
	return id, nil
}

// Act monitors the vault's TWAP-valued collateral ratio and adds collateral
// from the holder's reserve if it has drifted below the action threshold.
func (c *CdpHolder) Act(registry *cdp.Registry, pool *amm.Pool, block uint64) Action {
	if c.VaultID == nil {
		return Action{Kind: ActionNone}
	}
	vaultID := *c.VaultID

	price := pool.GetTWAP(registry.Config.TwapWindow)
	v, ok := registry.Get(vaultID)
	if !ok {
		c.VaultID = nil
		return Action{Kind: ActionNone}
	}

	ratio := v.CollateralRatio(price)
	if ratio < c.Config.ActionThresholdRatio && ratio > 0 {
		if c.ReserveZec > 0 {
			needed := (c.Config.TargetRatio*v.DebtZai/price) - v.CollateralZec
			addAmount := math.Min(math.Max(needed, 0), c.ReserveZec)
			if addAmount > 0.01 {
				c.ReserveZec -= addAmount
				if err := registry.DepositCollateral(vaultID, addAmount); err == nil {
					return Action{Kind: ActionCdpAction, VaultID: vaultID, Description: fmt.Sprintf("added %.2f ZEC collateral", addAmount)}
				}
			}
		}
		return Action{Kind: ActionCdpAction, VaultID: vaultID, Description: fmt.Sprintf("ratio low (%.2f), no reserves to add", ratio)}
	}

	return Action{Kind: ActionNone}
}

// ═══════════════════════════════════════════════════════════════════════
// 5. LP agent
// ═══════════════════════════════════════════════════════════════════════

// LpAgentConfig tunes a liquidity provider that exits entirely once
// impermanent loss crosses a threshold.
type LpAgentConfig struct {
	InitialZec           float64
	InitialZai           float64
	IlThreshold          float64
	VolatilityThreshold  float64
}

// DefaultLpAgentConfig matches the original simulator's defaults.
func DefaultLpAgentConfig() LpAgentConfig {
	return LpAgentConfig{
		InitialZec:          500.0,
		InitialZai:          25000.0,
		IlThreshold:         0.05,
		VolatilityThreshold: 0.10,
	}
}

// LpAgent provides liquidity once, then withdraws everything the first
// block its impermanent loss exceeds IlThreshold.
type LpAgent struct {
	Config     LpAgentConfig
	Shares     float64
	ZecBalance float64
	ZaiBalance float64
	IsProviding bool

	entryPrice float64
}

// NewLpAgent constructs an LP agent that has not yet provided liquidity.
func NewLpAgent(cfg LpAgentConfig) *LpAgent {
	return &LpAgent{Config: cfg}
}

// Fingerprint derives a content-addressed audit id for the agent's current
// share position, mirroring cdp.Vault.Fingerprint().
func (l *LpAgent) Fingerprint(pool *amm.Pool) idgen.ID {
	return idgen.PositionFingerprint("lp_agent", uint64(l.Shares), pool.LastBlock())
}

// ProvideLiquidity deposits the agent's configured initial position.
func (l *LpAgent) ProvideLiquidity(pool *amm.Pool) Action {
	zec, zai := l.Config.InitialZec, l.Config.InitialZai
	shares, err := pool.AddLiquidity(zec, zai, "lp_agent")
	if err != nil {
		return Action{Kind: ActionNone}
	}
	l.Shares = shares
	l.entryPrice = pool.SpotPrice()
	l.IsProviding = true
	return Action{Kind: ActionLpAdd, Zec: zec, Zai: zai, Shares: shares, Fingerprint: l.Fingerprint(pool)}
}

// Act withdraws the full position if impermanent loss has crossed the
// configured threshold.
func (l *LpAgent) Act(pool *amm.Pool) Action {
	if !l.IsProviding || l.Shares <= 0 {
		return Action{Kind: ActionNone}
	}
	priceRatio := pool.SpotPrice() / l.entryPrice
	il := 2*math.Sqrt(priceRatio)/(1+priceRatio) - 1
	if math.Abs(il) > l.Config.IlThreshold {
		return l.withdraw(pool)
	}
	return Action{Kind: ActionNone}
}

func (l *LpAgent) withdraw(pool *amm.Pool) Action {
	fp := l.Fingerprint(pool)
	zec, zai, err := pool.RemoveLiquidity(l.Shares, "lp_agent")
	if err != nil {
		return Action{Kind: ActionNone}
	}
	shares := l.Shares
	l.ZecBalance += zec
	l.ZaiBalance += zai
	l.Shares = 0
	l.IsProviding = false
	return Action{Kind: ActionLpRemove, Zec: zec, Zai: zai, Shares: shares, Fingerprint: fp}
}

// ═══════════════════════════════════════════════════════════════════════
// 6. IL-aware LP agent
// ═══════════════════════════════════════════════════════════════════════

// IlAwareLpConfig tunes an LP that values its position at an external price
// and withdraws gradually once net P&L (including fees) falls below
// WithdrawalThreshold.
type IlAwareLpConfig struct {
	InitialZec          float64
	InitialZai          float64
	WithdrawalThreshold float64
	WithdrawalRate      float64
}

// DefaultIlAwareLpConfig matches the original simulator's defaults.
func DefaultIlAwareLpConfig() IlAwareLpConfig {
	return IlAwareLpConfig{
		InitialZec:          10000.0,
		InitialZai:          500000.0,
		WithdrawalThreshold: -0.02,
		WithdrawalRate:      0.10,
	}
}

// IlAwareLpAgent tracks fee income and the external-priced value of its
// remaining pool share, withdrawing a fixed fraction each block its net
// P&L stays below WithdrawalThreshold.
type IlAwareLpAgent struct {
	Config        IlAwareLpConfig
	Shares        float64
	InitialShares float64
	Owner         string
	IsProviding   bool
	FeesEarnedZai float64
	WithdrawnZec  float64
	WithdrawnZai  float64

	entryPrice         float64
	entryValue         float64
	lastCumulativeFees float64
}

// NewIlAwareLpAgent constructs an IL-aware LP identified by owner.
func NewIlAwareLpAgent(cfg IlAwareLpConfig, owner string) *IlAwareLpAgent {
	return &IlAwareLpAgent{Config: cfg, Owner: owner}
}

// Fingerprint derives a content-addressed audit id for the agent's current
// share position, mirroring cdp.Vault.Fingerprint().
func (l *IlAwareLpAgent) Fingerprint(pool *amm.Pool) idgen.ID {
	return idgen.PositionFingerprint(l.Owner, uint64(l.Shares), pool.LastBlock())
}

// ProvideLiquidity deposits the agent's configured initial position.
func (l *IlAwareLpAgent) ProvideLiquidity(pool *amm.Pool) Action {
	zec, zai := l.Config.InitialZec, l.Config.InitialZai
	shares, err := pool.AddLiquidity(zec, zai, l.Owner)
	if err != nil {
		return Action{Kind: ActionNone}
	}
	l.Shares = shares
	l.InitialShares = shares
	l.entryPrice = pool.SpotPrice()
	l.entryValue = zec*l.entryPrice + zai
	l.IsProviding = true
	l.lastCumulativeFees = pool.CumulativeFeesZai
	return Action{Kind: ActionLpAdd, Zec: zec, Zai: zai, Shares: shares, Fingerprint: l.Fingerprint(pool)}
}

// Act tracks fee income and, using externalPrice to value the position,
// withdraws WithdrawalRate of the remaining shares when net P&L has
// dropped below WithdrawalThreshold.
func (l *IlAwareLpAgent) Act(pool *amm.Pool, externalPrice float64) Action {
	if !l.IsProviding || l.Shares <= 0.001 {
		return Action{Kind: ActionNone}
	}

	feeDelta := pool.CumulativeFeesZai - l.lastCumulativeFees
	if feeDelta > 0 {
		myShareFrac := l.Shares / pool.TotalShares
		l.FeesEarnedZai += feeDelta * myShareFrac
	}
	l.lastCumulativeFees = pool.CumulativeFeesZai

	poolFrac := l.Shares / pool.TotalShares
	zecInPool := pool.ReserveZec * poolFrac
	zaiInPool := pool.ReserveZai * poolFrac
	poolValue := zecInPool*externalPrice + zaiInPool

	netPnlPct := (poolValue + l.FeesEarnedZai - l.entryValue) / l.entryValue

	if netPnlPct < l.Config.WithdrawalThreshold {
		withdrawShares := l.Shares * l.Config.WithdrawalRate
		if withdrawShares > 0.001 {
			if zec, zai, err := pool.RemoveLiquidity(withdrawShares, l.Owner); err == nil {
				l.Shares -= withdrawShares
				l.WithdrawnZec += zec
				l.WithdrawnZai += zai
				if l.Shares < 0.001 {
					l.IsProviding = false
				}
				return Action{Kind: ActionLpRemove, Zec: zec, Zai: zai, Shares: withdrawShares, Fingerprint: l.Fingerprint(pool)}
			}
		}
	}

	return Action{Kind: ActionNone}
}

// ═══════════════════════════════════════════════════════════════════════
// 7. Attacker
// ═══════════════════════════════════════════════════════════════════════

// AttackPhase tracks the attacker's position in its dump/hold/buyback
// state machine.
type AttackPhase int

const (
	AttackIdle AttackPhase = iota
	AttackManipulating
	AttackDone
)

// AttackerConfig tunes a single-shot TWAP-manipulation attack.
type AttackerConfig struct {
	AttackCapitalZec float64
	HoldBlocks       uint64
	AttackAtBlock    uint64
}

// DefaultAttackerConfig matches the original simulator's defaults.
func DefaultAttackerConfig() AttackerConfig {
	return AttackerConfig{AttackCapitalZec: 5000.0, HoldBlocks: 3, AttackAtBlock: 100}
}

// Attacker dumps its entire ZEC position on the AMM at AttackAtBlock to
// crash spot price, holds for HoldBlocks to drag the TWAP down, then buys
// back with the ZAI received.
type Attacker struct {
	Config     AttackerConfig
	Phase      AttackPhase
	ZecBalance float64
	ZaiBalance float64

	revertAtBlock       uint64
	zaiReceivedFromAttack float64
}

// NewAttacker constructs an attacker funded with AttackCapitalZec.
func NewAttacker(cfg AttackerConfig) *Attacker {
	return &Attacker{Config: cfg, Phase: AttackIdle, ZecBalance: cfg.AttackCapitalZec}
}

// Act advances the attacker's state machine by one block.
func (a *Attacker) Act(pool *amm.Pool, block uint64) Action {
	switch a.Phase {
	case AttackIdle:
		if block < a.Config.AttackAtBlock {
			return Action{Kind: ActionNone}
		}
		spend := a.ZecBalance
		zaiOut, err := pool.SwapZecForZai(spend, block)
		if err != nil {
			return Action{Kind: ActionNone}
		}
		a.ZecBalance = 0
		a.ZaiBalance += zaiOut
		a.zaiReceivedFromAttack = zaiOut
		a.revertAtBlock = block + a.Config.HoldBlocks
		a.Phase = AttackManipulating
		return Action{Kind: ActionAttackSwap, Direction: "sell_zec", Amount: spend}

	case AttackManipulating:
		if block < a.revertAtBlock {
			return Action{Kind: ActionNone}
		}
		spend := math.Min(a.zaiReceivedFromAttack, a.ZaiBalance)
		zecOut, err := pool.SwapZaiForZec(spend, block)
		if err != nil {
			return Action{Kind: ActionNone}
		}
		a.ZaiBalance -= spend
		a.ZecBalance += zecOut
		a.Phase = AttackDone
		return Action{Kind: ActionAttackSwap, Direction: "buy_zec", Amount: spend}

	default: // AttackDone
		return Action{Kind: ActionNone}
	}
}
