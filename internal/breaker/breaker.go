// Package breaker implements the three circuit breakers that protect the
// ZAI peg: TWAP-divergence pause, cascading-liquidation emergency halt, and
// the dynamic debt ceiling.
package breaker

import "fmt"

// ActionKind tags the action a breaker check produced.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionPauseMinting
	ActionReduceDebtCeiling
	ActionEmergencyHalt
)

// Action is a tagged breaker outcome, mirroring spec §3's closed enum.
type Action struct {
	Kind        ActionKind
	Blocks      uint64
	NewCeiling  float64
	Reason      string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionPauseMinting:
		return fmt.Sprintf("pause_minting(blocks=%d): %s", a.Blocks, a.Reason)
	case ActionReduceDebtCeiling:
		return fmt.Sprintf("reduce_debt_ceiling(new=%.0f): %s", a.NewCeiling, a.Reason)
	case ActionEmergencyHalt:
		return fmt.Sprintf("emergency_halt: %s", a.Reason)
	default:
		return "none"
	}
}

// TwapSource is the narrow AMM collaborator the TWAP breaker depends on.
type TwapSource interface {
	GetTWAP(window uint64) float64
	SpotPrice() float64
}

// TwapConfig tunes the TWAP-divergence breaker.
type TwapConfig struct {
	MaxTwapChangePct float64
	ShortWindow      uint64
	LongWindow       uint64
	PauseBlocks      uint64
}

// DefaultTwapConfig matches the original simulator's defaults.
func DefaultTwapConfig() TwapConfig {
	return TwapConfig{MaxTwapChangePct: 0.15, ShortWindow: 12, LongWindow: 48, PauseBlocks: 48}
}

// TwapBreaker pauses minting when short/long TWAP readings diverge.
type TwapBreaker struct {
	Config        TwapConfig
	Triggered     bool
	ResumeAtBlock uint64
	TriggerCount  uint64
}

// NewTwapBreaker constructs a breaker with the given config.
func NewTwapBreaker(cfg TwapConfig) *TwapBreaker {
	return &TwapBreaker{Config: cfg}
}

// Check runs one block's TWAP-divergence check.
func (b *TwapBreaker) Check(amm TwapSource, block uint64) Action {
	if b.Triggered {
		if block >= b.ResumeAtBlock {
			b.Triggered = false
		}
		return Action{Kind: ActionNone}
	}

	twapShort := amm.GetTWAP(b.Config.ShortWindow)
	twapLong := amm.GetTWAP(b.Config.LongWindow)
	if twapLong == 0 {
		return Action{Kind: ActionNone}
	}

	change := (twapShort - twapLong) / twapLong
	if change < 0 {
		change = -change
	}
	if change > b.Config.MaxTwapChangePct {
		b.Triggered = true
		b.ResumeAtBlock = block + b.Config.PauseBlocks
		b.TriggerCount++
		return Action{
			Kind:   ActionPauseMinting,
			Blocks: b.Config.PauseBlocks,
			Reason: fmt.Sprintf("twap divergence %.2f%% exceeds %.2f%% threshold (short=%.2f, long=%.2f)",
				change*100, b.Config.MaxTwapChangePct*100, twapShort, twapLong),
		}
	}
	return Action{Kind: ActionNone}
}

// IsActive reports whether the breaker is currently paused at block.
func (b *TwapBreaker) IsActive(block uint64) bool {
	return b.Triggered && block < b.ResumeAtBlock
}

// CascadeConfig tunes the cascade breaker.
type CascadeConfig struct {
	MaxLiquidationsInWindow uint32
	WindowBlocks            uint64
	PauseBlocks             uint64
}

// DefaultCascadeConfig matches the original simulator's defaults.
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{MaxLiquidationsInWindow: 10, WindowBlocks: 48, PauseBlocks: 96}
}

type liquidationLogEntry struct {
	block uint64
	count uint32
}

// CascadeBreaker halts all non-liquidation activity when too many
// liquidations occur within a rolling window (death-spiral protection).
type CascadeBreaker struct {
	Config        CascadeConfig
	Triggered     bool
	ResumeAtBlock uint64
	TriggerCount  uint64
	log           []liquidationLogEntry
}

// NewCascadeBreaker constructs a breaker with the given config.
func NewCascadeBreaker(cfg CascadeConfig) *CascadeBreaker {
	return &CascadeBreaker{Config: cfg}
}

// RecordLiquidations appends a (block, count) entry when count > 0.
func (b *CascadeBreaker) RecordLiquidations(block uint64, count uint32) {
	if count > 0 {
		b.log = append(b.log, liquidationLogEntry{block, count})
	}
}

// Check sums liquidations in the rolling window and trips EmergencyHalt if
// the count exceeds the configured maximum.
func (b *CascadeBreaker) Check(block uint64) Action {
	if b.Triggered {
		if block >= b.ResumeAtBlock {
			b.Triggered = false
		}
		return Action{Kind: ActionNone}
	}

	var windowStart uint64
	if block > b.Config.WindowBlocks {
		windowStart = block - b.Config.WindowBlocks
	}

	var total uint32
	for _, e := range b.log {
		if e.block >= windowStart {
			total += e.count
		}
	}

	if total > b.Config.MaxLiquidationsInWindow {
		b.Triggered = true
		b.ResumeAtBlock = block + b.Config.PauseBlocks
		b.TriggerCount++

		pruned := b.log[:0]
		for _, e := range b.log {
			if e.block >= windowStart {
				pruned = append(pruned, e)
			}
		}
		b.log = pruned

		return Action{
			Kind: ActionEmergencyHalt,
			Reason: fmt.Sprintf("cascade: %d liquidations in %d blocks exceeds limit of %d",
				total, b.Config.WindowBlocks, b.Config.MaxLiquidationsInWindow),
		}
	}
	return Action{Kind: ActionNone}
}

// IsActive reports whether the cascade halt is currently in force.
func (b *CascadeBreaker) IsActive(block uint64) bool {
	return b.Triggered && block < b.ResumeAtBlock
}

// DebtCeilingConfig tunes the dynamic debt ceiling.
type DebtCeilingConfig struct {
	InitialCeiling      float64
	MinCeiling          float64
	ReductionFactor     float64
	GrowthRatePerBlock  float64
	DeviationThreshold  float64
}

// DefaultDebtCeilingConfig matches the original simulator's defaults.
func DefaultDebtCeilingConfig() DebtCeilingConfig {
	return DebtCeilingConfig{
		InitialCeiling:     1_000_000.0,
		MinCeiling:         100_000.0,
		ReductionFactor:    0.10,
		GrowthRatePerBlock: 0.1,
		DeviationThreshold: 0.10,
	}
}

// DebtCeiling caps total mintable debt, contracting under peg stress and
// slowly regrowing when healthy.
type DebtCeiling struct {
	Config         DebtCeilingConfig
	CurrentCeiling float64
	Reductions     uint64
}

// NewDebtCeiling constructs a ceiling starting at its initial value.
func NewDebtCeiling(cfg DebtCeilingConfig) *DebtCeiling {
	return &DebtCeiling{Config: cfg, CurrentCeiling: cfg.InitialCeiling}
}

// SpotSource is the narrow AMM collaborator the debt ceiling depends on.
type SpotSource interface {
	SpotPrice() float64
}

// Update adjusts the ceiling based on market-vs-redemption deviation.
func (d *DebtCeiling) Update(amm SpotSource, redemptionPrice float64) Action {
	market := amm.SpotPrice()
	deviation := (market - redemptionPrice) / redemptionPrice
	if deviation < 0 {
		deviation = -deviation
	}

	if deviation > d.Config.DeviationThreshold {
		reduction := d.CurrentCeiling * d.Config.ReductionFactor
		newCeiling := d.CurrentCeiling - reduction
		if newCeiling < d.Config.MinCeiling {
			newCeiling = d.Config.MinCeiling
		}
		d.CurrentCeiling = newCeiling
		d.Reductions++
		return Action{
			Kind:       ActionReduceDebtCeiling,
			NewCeiling: d.CurrentCeiling,
			Reason: fmt.Sprintf("price deviation %.2f%% > %.2f%% threshold; ceiling reduced to %.0f",
				deviation*100, d.Config.DeviationThreshold*100, d.CurrentCeiling),
		}
	}

	if d.CurrentCeiling < d.Config.InitialCeiling {
		grown := d.CurrentCeiling + d.Config.GrowthRatePerBlock
		if grown > d.Config.InitialCeiling {
			grown = d.Config.InitialCeiling
		}
		d.CurrentCeiling = grown
	}
	return Action{Kind: ActionNone}
}

// CanMint reports whether minting newDebt on top of currentTotalDebt stays
// within the ceiling.
func (d *DebtCeiling) CanMint(currentTotalDebt, newDebt float64) bool {
	return currentTotalDebt+newDebt <= d.CurrentCeiling
}

// Engine combines all three breakers and owns the two latches that gate
// scenario-level activity.
type Engine struct {
	Twap    *TwapBreaker
	Cascade *CascadeBreaker
	Ceiling *DebtCeiling

	MintingPausedUntil uint64
	HaltedUntil        uint64
}

// NewEngine constructs a combined breaker engine.
func NewEngine(twapCfg TwapConfig, cascadeCfg CascadeConfig, ceilingCfg DebtCeilingConfig) *Engine {
	return &Engine{
		Twap:    NewTwapBreaker(twapCfg),
		Cascade: NewCascadeBreaker(cascadeCfg),
		Ceiling: NewDebtCeiling(ceilingCfg),
	}
}

// AmmSource is the combined AMM collaborator interface required by the
// engine's checks.
type AmmSource interface {
	TwapSource
	SpotSource
}

// CheckAll runs all three breaker checks for block and returns every
// triggered (non-None) action.
func (e *Engine) CheckAll(amm AmmSource, redemptionPrice float64, block uint64) []Action {
	var actions []Action

	twapAction := e.Twap.Check(amm, block)
	if twapAction.Kind == ActionPauseMinting {
		resume := block + twapAction.Blocks
		if resume > e.MintingPausedUntil {
			e.MintingPausedUntil = resume
		}
	}
	if twapAction.Kind != ActionNone {
		actions = append(actions, twapAction)
	}

	cascadeAction := e.Cascade.Check(block)
	if cascadeAction.Kind == ActionEmergencyHalt {
		resume := block + e.Cascade.Config.PauseBlocks
		if resume > e.HaltedUntil {
			e.HaltedUntil = resume
		}
	}
	if cascadeAction.Kind != ActionNone {
		actions = append(actions, cascadeAction)
	}

	ceilingAction := e.Ceiling.Update(amm, redemptionPrice)
	if ceilingAction.Kind != ActionNone {
		actions = append(actions, ceilingAction)
	}

	return actions
}

// IsMintingPaused reports whether new CDP minting is currently gated.
func (e *Engine) IsMintingPaused(block uint64) bool { return block < e.MintingPausedUntil }

// IsHalted reports whether all non-liquidation activity is gated.
func (e *Engine) IsHalted(block uint64) bool { return block < e.HaltedUntil }

// RecordLiquidations feeds liquidation counts into the cascade breaker.
func (e *Engine) RecordLiquidations(block uint64, count uint32) {
	e.Cascade.RecordLiquidations(block, count)
}
