// Package liquidation implements the six liquidation modes sharing a
// common settlement pipeline: transparent, self-liquidation,
// challenge-response (keeper), AMM-cascading (death spiral), zombie
// detection, and oracle-based liquidation.
package liquidation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/zaisim/internal/amm"
	"github.com/luxfi/zaisim/internal/cdp"
	"github.com/luxfi/zaisim/internal/ledger"
)

var ErrVelocityLimit = errors.New("liquidation: velocity limit exceeded")

// ErrNotLiquidatable is returned by Transparent and ChallengeResponse mode
// when the target vault's TWAP collateral ratio has not fallen below
// min_ratio; those two modes are the only ones whose eligibility rests on
// TWAP rather than an already-verified spot/external scan.
var ErrNotLiquidatable = errors.New("liquidation: vault is not liquidatable")

// Mode identifies which liquidation path produced a result.
type Mode int

const (
	ModeTransparent Mode = iota
	ModeSelfLiquidation
	ModeChallengeResponse
	ModeAmmCascading
	ModeZombieDetection
	ModeOracleLiquidation
)

// Config tunes liquidation-engine behavior.
type Config struct {
	MaxLiquidationsPerBlock  uint32
	KeeperRewardPct          float64
	SelfLiquidationPenaltyPct float64
}

// DefaultConfig matches the original simulator's defaults.
func DefaultConfig() Config {
	return Config{MaxLiquidationsPerBlock: 5, KeeperRewardPct: 0.50, SelfLiquidationPenaltyPct: 0.0}
}

// Result records the outcome of one execute_core pass.
type Result struct {
	VaultID       uint64
	Owner         string
	Mode          Mode
	Collateral    float64
	Debt          float64
	ZaiProceeds   float64
	Penalty       float64
	Surplus       float64
	BadDebt       float64
	KeeperReward  float64
	Keeper        string
	Block         uint64
}

// Engine owns cumulative liquidation counters and history.
type Engine struct {
	Config Config

	TotalBadDebt            float64
	TotalPenaltiesCollected float64
	TotalKeeperRewards      float64

	// Ledger mirrors the three totals above in fixed-point integer
	// arithmetic. A run can call Ledger.Reconcile against the float64
	// totals to catch floating-point drift after a long sequence of
	// liquidations.
	Ledger *ledger.Ledger

	currentBlock          uint64
	liquidationsThisBlock uint32

	History []Result
}

// New constructs an Engine with the given config.
func New(cfg Config) *Engine {
	return &Engine{Config: cfg, Ledger: ledger.New()}
}

func (e *Engine) advanceBlock(block uint64) {
	if block != e.currentBlock {
		e.currentBlock = block
		e.liquidationsThisBlock = 0
	}
}

func (e *Engine) checkVelocity() error {
	if e.liquidationsThisBlock >= e.Config.MaxLiquidationsPerBlock {
		return ErrVelocityLimit
	}
	return nil
}

// executeCore runs the shared settlement pipeline for a single vault,
// applying the given penalty/keeper fraction for mode. Transparent and
// ChallengeResponse re-check TWAP eligibility here, since their callers may
// pass a caller-supplied vault id that was never pre-scanned; the other
// modes are already eligibility-scanned by spot or external price before
// execute_core runs.
func (e *Engine) executeCore(
	registry *cdp.Registry,
	pool *amm.Pool,
	vaultID uint64,
	block uint64,
	mode Mode,
	penaltyFraction float64,
	keeperFraction float64,
	keeper string,
) (*Result, error) {
	e.advanceBlock(block)
	if err := e.checkVelocity(); err != nil {
		return nil, err
	}

	if err := registry.AccrueFeesFor(vaultID, block); err != nil {
		return nil, err
	}

	if (mode == ModeTransparent || mode == ModeChallengeResponse) && !registry.IsLiquidatable(pool, vaultID) {
		return nil, fmt.Errorf("%w: vault %d", ErrNotLiquidatable, vaultID)
	}

	collateral, debt, owner, err := registry.RemoveVault(vaultID)
	if err != nil {
		return nil, err
	}

	proceeds, err := pool.SwapZecForZai(collateral, block)
	if err != nil {
		proceeds = 0
	}

	penalty := debt * penaltyFraction
	var actualPenalty, surplus, badDebt float64

	switch {
	case proceeds >= debt+penalty:
		surplus = proceeds - debt - penalty
		actualPenalty = penalty
	case proceeds >= debt:
		actualPenalty = proceeds - debt
	default:
		badDebt = debt - proceeds
	}

	keeperReward := actualPenalty * keeperFraction
	collectedPenalty := actualPenalty - keeperReward

	e.TotalPenaltiesCollected += collectedPenalty
	e.TotalKeeperRewards += keeperReward
	e.TotalBadDebt += badDebt
	e.Ledger.Record(badDebt, collectedPenalty, keeperReward)
	e.liquidationsThisBlock++

	result := &Result{
		VaultID:      vaultID,
		Owner:        owner,
		Mode:         mode,
		Collateral:   collateral,
		Debt:         debt,
		ZaiProceeds:  proceeds,
		Penalty:      collectedPenalty,
		Surplus:      surplus,
		BadDebt:      badDebt,
		KeeperReward: keeperReward,
		Keeper:       keeper,
		Block:        block,
	}
	e.History = append(e.History, *result)
	return result, nil
}

// scanLiquidatable returns vault ids (sorted ascending) with CR(twap) < min_ratio.
func scanLiquidatable(registry *cdp.Registry, amm *amm.Pool) []uint64 {
	var ids []uint64
	for _, id := range registry.SortedIDs() {
		if registry.IsLiquidatable(amm, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// scanLiquidatableAtPrice returns vault ids (sorted ascending) whose
// CR(price) < min_ratio, for an arbitrary price source (spot or external).
func scanLiquidatableAtPrice(registry *cdp.Registry, price float64) []uint64 {
	var ids []uint64
	for _, id := range registry.SortedIDs() {
		v, ok := registry.Get(id)
		if !ok || v.DebtZai <= 0 {
			continue
		}
		if v.CollateralRatio(price) < registry.Config.MinRatio {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TransparentLiquidate scans TWAP-liquidatable vaults in ascending id
// order and liquidates each at registry.LiquidationPenalty, no keeper
// reward, until the velocity cap is hit or none remain.
func (e *Engine) TransparentLiquidate(registry *cdp.Registry, pool *amm.Pool, block uint64) []Result {
	var results []Result
	for _, id := range scanLiquidatable(registry, pool) {
		r, err := e.executeCore(registry, pool, id, block, ModeTransparent, registry.Config.LiquidationPenalty, 0, "")
		if err != nil {
			break
		}
		results = append(results, *r)
	}
	return results
}

// SelfLiquidate liquidates a vault at the owner's own request, allowed
// even when healthy, with a reduced penalty fraction.
func (e *Engine) SelfLiquidate(registry *cdp.Registry, pool *amm.Pool, vaultID uint64, block uint64) (*Result, error) {
	penaltyFraction := registry.Config.LiquidationPenalty * e.Config.SelfLiquidationPenaltyPct
	return e.executeCore(registry, pool, vaultID, block, ModeSelfLiquidation, penaltyFraction, 0, "")
}

// ChallengeLiquidate is a keeper-submitted liquidation paying a keeper
// reward out of the collected penalty. keeper identifies the submitter and
// is carried into the returned Result, mirroring the original's
// LiquidationMode::ChallengeResponse { keeper } tagged variant. Eligibility
// is re-checked against TWAP inside executeCore: a healthy vault is
// rejected with ErrNotLiquidatable.
func (e *Engine) ChallengeLiquidate(registry *cdp.Registry, pool *amm.Pool, vaultID uint64, block uint64, keeper string) (*Result, error) {
	return e.executeCore(registry, pool, vaultID, block, ModeChallengeResponse, registry.Config.LiquidationPenalty, e.Config.KeeperRewardPct, keeper)
}

// CascadingSpotLiquidate re-scans spot-based eligibility after each batch,
// modeling the death spiral where each liquidation depresses spot further
// and makes more vaults eligible. Stops when a full pass yields nothing
// new, or the velocity limit is hit.
func (e *Engine) CascadingSpotLiquidate(registry *cdp.Registry, pool *amm.Pool, block uint64) []Result {
	var results []Result
	for {
		ids := scanLiquidatableAtPrice(registry, pool.SpotPrice())
		if len(ids) == 0 {
			break
		}
		progressed := false
		for _, id := range ids {
			r, err := e.executeCore(registry, pool, id, block, ModeAmmCascading, registry.Config.LiquidationPenalty, 0, "")
			if err != nil {
				return results
			}
			results = append(results, *r)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return results
}

// OracleLiquidate scans eligibility by the external oracle price rather
// than TWAP or spot (a death-spiral stress-test mode, not production).
func (e *Engine) OracleLiquidate(registry *cdp.Registry, pool *amm.Pool, block uint64, externalPrice float64) []Result {
	var results []Result
	for _, id := range scanLiquidatableAtPrice(registry, externalPrice) {
		r, err := e.executeCore(registry, pool, id, block, ModeOracleLiquidation, registry.Config.LiquidationPenalty, 0, "")
		if err != nil {
			break
		}
		results = append(results, *r)
	}
	return results
}

// ZombieDetectAndLiquidate finds vaults safe by TWAP but unsafe by spot,
// with a gap exceeding gapThreshold, and liquidates them.
func (e *Engine) ZombieDetectAndLiquidate(registry *cdp.Registry, pool *amm.Pool, block uint64, gapThreshold float64) []Result {
	twap := pool.GetTWAP(registry.Config.TwapWindow)
	spot := pool.SpotPrice()

	var ids []uint64
	for _, id := range registry.SortedIDs() {
		v, ok := registry.Get(id)
		if !ok || v.DebtZai <= 0 {
			continue
		}
		twapCR := v.CollateralRatio(twap)
		spotCR := v.CollateralRatio(spot)
		if twapCR >= registry.Config.MinRatio && spotCR < registry.Config.MinRatio && (twapCR-spotCR) > gapThreshold {
			ids = append(ids, id)
		}
	}

	var results []Result
	for _, id := range ids {
		r, err := e.executeCore(registry, pool, id, block, ModeZombieDetection, registry.Config.LiquidationPenalty, 0, "")
		if err != nil {
			break
		}
		results = append(results, *r)
	}
	return results
}

// LiquidationsThisBlock exposes the current block's velocity counter.
func (e *Engine) LiquidationsThisBlock() uint32 { return e.liquidationsThisBlock }

// String assembles a human-readable summary line; no economic decision
// reads it.
func (r Result) String() string {
	return fmt.Sprintf("vault=%d mode=%d proceeds=%.2f penalty=%.2f surplus=%.2f bad_debt=%.2f",
		r.VaultID, r.Mode, r.ZaiProceeds, r.Penalty, r.Surplus, r.BadDebt)
}
