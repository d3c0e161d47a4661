// Package ledger provides a fixed-point, uint256-backed set of cumulative
// accounting counters. Liquidation settlement accumulates its running totals
// in float64 for speed; the ledger mirrors those same totals in scaled
// integer arithmetic so a run can be reconciled against accumulated
// floating-point drift at audit time.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Scale is the fixed-point denominator applied to every float64 amount
// before it is folded into a counter, matching the RAY (1e18) convention
// used for on-chain fixed-point math.
var Scale = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Ledger accumulates auditable running totals for a single liquidation
// engine run. Each counter is a *uint256.Int scaled by Scale.
type Ledger struct {
	badDebt            *uint256.Int
	penaltiesCollected *uint256.Int
	keeperRewards      *uint256.Int

	entries uint64
}

// New returns an empty ledger with all counters zeroed.
func New() *Ledger {
	return &Ledger{
		badDebt:            uint256.NewInt(0),
		penaltiesCollected: uint256.NewInt(0),
		keeperRewards:      uint256.NewInt(0),
	}
}

// toScaled converts a non-negative float64 amount into a Scale-denominated
// *uint256.Int. Negative amounts are clamped to zero: the ledger only
// records what was actually collected or lost, never a signed delta.
func toScaled(amount float64) *uint256.Int {
	if amount <= 0 {
		return uint256.NewInt(0)
	}
	scaled, _ := new(big.Float).Mul(big.NewFloat(amount), Scale).Int(nil)
	v, overflow := uint256.FromBig(scaled)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return v
}

// fromScaled converts a Scale-denominated *uint256.Int back to a float64.
func fromScaled(v *uint256.Int) float64 {
	f := new(big.Float).SetInt(v.ToBig())
	out, _ := new(big.Float).Quo(f, Scale).Float64()
	return out
}

// RecordBadDebt folds an additional bad-debt amount into the running total.
func (l *Ledger) RecordBadDebt(amount float64) {
	l.badDebt.Add(l.badDebt, toScaled(amount))
	l.entries++
}

// RecordPenalty folds an additional collected-penalty amount into the
// running total.
func (l *Ledger) RecordPenalty(amount float64) {
	l.penaltiesCollected.Add(l.penaltiesCollected, toScaled(amount))
	l.entries++
}

// RecordKeeperReward folds an additional keeper-reward amount into the
// running total.
func (l *Ledger) RecordKeeperReward(amount float64) {
	l.keeperRewards.Add(l.keeperRewards, toScaled(amount))
	l.entries++
}

// Record folds all three components of a single settlement into the ledger
// at once, mirroring the three counter updates in a liquidation engine's
// settlement pipeline.
func (l *Ledger) Record(badDebt, penalty, keeperReward float64) {
	l.RecordBadDebt(badDebt)
	l.RecordPenalty(penalty)
	l.RecordKeeperReward(keeperReward)
}

// BadDebt returns the accumulated bad-debt total as a float64.
func (l *Ledger) BadDebt() float64 { return fromScaled(l.badDebt) }

// PenaltiesCollected returns the accumulated collected-penalty total.
func (l *Ledger) PenaltiesCollected() float64 { return fromScaled(l.penaltiesCollected) }

// KeeperRewards returns the accumulated keeper-reward total.
func (l *Ledger) KeeperRewards() float64 { return fromScaled(l.keeperRewards) }

// Entries returns the number of Record* calls folded into the ledger.
func (l *Ledger) Entries() uint64 { return l.entries }

// Reconcile compares the ledger's integer-accumulated totals against a set
// of float64 totals accumulated independently (e.g. by a liquidation
// engine run in parallel), returning an error describing the first counter
// whose relative drift exceeds tolerance. A tolerance of 0 requires exact
// agreement after rounding to the ledger's fixed-point scale.
func (l *Ledger) Reconcile(badDebt, penaltiesCollected, keeperRewards, tolerance float64) error {
	checks := []struct {
		name string
		want float64
		got  float64
	}{
		{"bad_debt", badDebt, l.BadDebt()},
		{"penalties_collected", penaltiesCollected, l.PenaltiesCollected()},
		{"keeper_rewards", keeperRewards, l.KeeperRewards()},
	}
	for _, c := range checks {
		diff := c.want - c.got
		if diff < 0 {
			diff = -diff
		}
		base := c.want
		if base < 0 {
			base = -base
		}
		if base < 1 {
			base = 1
		}
		if diff/base > tolerance {
			return fmt.Errorf("ledger: %s drifted beyond tolerance: float total %.6f, ledger total %.6f", c.name, c.want, c.got)
		}
	}
	return nil
}

// String renders the ledger's totals for audit logs.
func (l *Ledger) String() string {
	return fmt.Sprintf("ledger{bad_debt=%.6f penalties=%.6f keeper_rewards=%.6f entries=%d}",
		l.BadDebt(), l.PenaltiesCollected(), l.KeeperRewards(), l.entries)
}
