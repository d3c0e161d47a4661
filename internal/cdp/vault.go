// Package cdp implements the CDP vault registry: TWAP-only solvency checks
// and per-block-compounded stability fee accrual. No spot or external price
// is ever consulted here — only amm.Pool.GetTWAP.
package cdp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/luxfi/zaisim/internal/idgen"
)

// BlocksPerYear assumes 75-second blocks: 365.25*24*3600/75 ≈ 420,768.
// This replaces the teacher's dex/interest_rate.go BlocksPerYear constant,
// which assumed 2-second blocks and does not apply to this domain.
const BlocksPerYear = 365.25 * 24 * 3600 / 75

var (
	ErrInvalidInput        = errors.New("cdp: invalid input")
	ErrNotFound            = errors.New("cdp: vault not found")
	ErrInsufficientFunds   = errors.New("cdp: insufficient funds")
	ErrBelowMinRatio       = errors.New("cdp: collateral ratio below minimum")
	ErrBelowDebtFloor      = errors.New("cdp: debt below floor")
)

// Vault is a single collateralized debt position.
type Vault struct {
	ID            uint64
	Owner         string
	CollateralZec float64
	DebtZai       float64
	LastFeeBlock  uint64
	CreatedBlock  uint64
}

// Fingerprint derives a content-addressed audit id for the vault's current
// state, independent of its sequential registry ID. Two snapshots
// fingerprint identically only if owner, creation block, collateral, and
// debt all match.
func (v *Vault) Fingerprint() idgen.ID {
	return idgen.VaultFingerprint(v.Owner, v.CreatedBlock, v.CollateralZec, v.DebtZai)
}

// CollateralRatio returns collateral_zec*price/debt_zai, +Inf when debt is
// zero.
func (v *Vault) CollateralRatio(price float64) float64 {
	if v.DebtZai == 0 {
		return math.Inf(1)
	}
	return v.CollateralZec * price / v.DebtZai
}

// Config holds the registry's economic parameters.
type Config struct {
	MinRatio          float64
	LiquidationPenalty float64
	DebtFloor         float64
	StabilityFeeRate  float64 // annualized
	TwapWindow        uint64
}

// DefaultConfig matches the original simulator's defaults.
func DefaultConfig() Config {
	return Config{
		MinRatio:           1.5,
		LiquidationPenalty: 0.13,
		DebtFloor:          100.0,
		StabilityFeeRate:   0.02,
		TwapWindow:         48,
	}
}

// TwapSource is the narrow collaborator interface the registry depends on;
// satisfied by *amm.Pool.
type TwapSource interface {
	GetTWAP(window uint64) float64
}

// Registry owns all vaults, keyed by id.
type Registry struct {
	Config    Config
	vaults    map[uint64]*Vault
	nextID    uint64
	TotalDebt float64
}

// NewRegistry constructs an empty registry with the given config.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		Config: cfg,
		vaults: make(map[uint64]*Vault),
		nextID: 1,
	}
}

// twapPrice is a small helper so callers always read through TWAP, never
// spot/external price, per spec §4.2.
func (r *Registry) twapPrice(amm TwapSource) float64 {
	return amm.GetTWAP(r.Config.TwapWindow)
}

// OpenVault creates a vault for owner with the given collateral/debt.
func (r *Registry) OpenVault(amm TwapSource, owner string, collateral, debt float64, block uint64) (*Vault, error) {
	if collateral <= 0 || debt < 0 {
		return nil, fmt.Errorf("open_vault: %w", ErrInvalidInput)
	}
	v := &Vault{
		ID:            r.nextID,
		Owner:         owner,
		CollateralZec: collateral,
		DebtZai:       debt,
		LastFeeBlock:  block,
		CreatedBlock:  block,
	}
	if debt > 0 {
		if debt < r.Config.DebtFloor {
			return nil, fmt.Errorf("open_vault: %w", ErrBelowDebtFloor)
		}
		if v.CollateralRatio(r.twapPrice(amm)) < r.Config.MinRatio {
			return nil, fmt.Errorf("open_vault: %w", ErrBelowMinRatio)
		}
	}
	r.nextID++
	r.vaults[v.ID] = v
	r.TotalDebt += debt
	return v, nil
}

// CloseVault removes a zero-debt vault and returns its collateral.
func (r *Registry) CloseVault(id uint64) (float64, error) {
	v, ok := r.vaults[id]
	if !ok {
		return 0, fmt.Errorf("close_vault: %w", ErrNotFound)
	}
	if v.DebtZai != 0 {
		return 0, fmt.Errorf("close_vault: %w", ErrInsufficientFunds)
	}
	delete(r.vaults, id)
	return v.CollateralZec, nil
}

// accrueFees compounds the stability fee on v since its last-fee-block.
func (r *Registry) accrueFees(v *Vault, block uint64) {
	if block <= v.LastFeeBlock || v.DebtZai == 0 {
		v.LastFeeBlock = block
		return
	}
	deltaBlocks := block - v.LastFeeBlock
	rb := r.Config.StabilityFeeRate / BlocksPerYear
	newDebt := v.DebtZai * math.Pow(1+rb, float64(deltaBlocks))
	r.TotalDebt += newDebt - v.DebtZai
	v.DebtZai = newDebt
	v.LastFeeBlock = block
}

// AccrueAllFees compounds fees on every vault, sorted by id for determinism.
func (r *Registry) AccrueAllFees(block uint64) {
	for _, id := range r.sortedIDs() {
		r.accrueFees(r.vaults[id], block)
	}
}

func (r *Registry) sortedIDs() []uint64 {
	ids := make([]uint64, 0, len(r.vaults))
	for id := range r.vaults {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedIDs exposes deterministic vault-id iteration order for callers
// outside the package (e.g. liquidation scans).
func (r *Registry) SortedIDs() []uint64 { return r.sortedIDs() }

// Get returns the vault with the given id.
func (r *Registry) Get(id uint64) (*Vault, bool) {
	v, ok := r.vaults[id]
	return v, ok
}

// DepositCollateral adds collateral to a vault (no fee accrual, matching
// the original's open_vault/deposit_collateral path).
func (r *Registry) DepositCollateral(id uint64, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit_collateral: %w", ErrInvalidInput)
	}
	v, ok := r.vaults[id]
	if !ok {
		return fmt.Errorf("deposit_collateral: %w", ErrNotFound)
	}
	v.CollateralZec += amount
	return nil
}

// WithdrawCollateral removes collateral, fees accrue first, and the
// resulting CR must remain at/above MinRatio when debt remains.
func (r *Registry) WithdrawCollateral(amm TwapSource, id uint64, amount float64, block uint64) error {
	if amount <= 0 {
		return fmt.Errorf("withdraw_collateral: %w", ErrInvalidInput)
	}
	v, ok := r.vaults[id]
	if !ok {
		return fmt.Errorf("withdraw_collateral: %w", ErrNotFound)
	}
	r.accrueFees(v, block)
	if amount > v.CollateralZec {
		return fmt.Errorf("withdraw_collateral: %w", ErrInsufficientFunds)
	}
	remaining := v.CollateralZec - amount
	if v.DebtZai > 0 {
		cr := remaining * r.twapPrice(amm) / v.DebtZai
		if cr < r.Config.MinRatio {
			return fmt.Errorf("withdraw_collateral: %w", ErrBelowMinRatio)
		}
	}
	v.CollateralZec = remaining
	return nil
}

// BorrowZai mints additional debt against existing collateral.
func (r *Registry) BorrowZai(amm TwapSource, id uint64, amount float64, block uint64) error {
	if amount <= 0 {
		return fmt.Errorf("borrow_zai: %w", ErrInvalidInput)
	}
	v, ok := r.vaults[id]
	if !ok {
		return fmt.Errorf("borrow_zai: %w", ErrNotFound)
	}
	r.accrueFees(v, block)
	newDebt := v.DebtZai + amount
	if newDebt < r.Config.DebtFloor {
		return fmt.Errorf("borrow_zai: %w", ErrBelowDebtFloor)
	}
	cr := v.CollateralZec * r.twapPrice(amm) / newDebt
	if cr < r.Config.MinRatio {
		return fmt.Errorf("borrow_zai: %w", ErrBelowMinRatio)
	}
	r.TotalDebt += amount
	v.DebtZai = newDebt
	return nil
}

// RepayZai reduces debt; a partial repay landing in (0, debt_floor) is
// rejected, full repayment to zero is always allowed.
func (r *Registry) RepayZai(amm TwapSource, id uint64, amount float64, block uint64) error {
	if amount <= 0 {
		return fmt.Errorf("repay_zai: %w", ErrInvalidInput)
	}
	v, ok := r.vaults[id]
	if !ok {
		return fmt.Errorf("repay_zai: %w", ErrNotFound)
	}
	r.accrueFees(v, block)
	if amount > v.DebtZai {
		return fmt.Errorf("repay_zai: %w", ErrInsufficientFunds)
	}
	newDebt := v.DebtZai - amount
	if newDebt > 0 && newDebt < r.Config.DebtFloor {
		return fmt.Errorf("repay_zai: %w", ErrBelowDebtFloor)
	}
	r.TotalDebt -= amount
	v.DebtZai = newDebt
	return nil
}

// IsLiquidatable reports whether v has positive debt and CR(twap) < MinRatio.
func (r *Registry) IsLiquidatable(amm TwapSource, id uint64) bool {
	v, ok := r.vaults[id]
	if !ok {
		return false
	}
	if v.DebtZai <= 0 {
		return false
	}
	return v.CollateralRatio(r.twapPrice(amm)) < r.Config.MinRatio
}

// LiquidationPenaltyAmount returns debt * liquidation_penalty for v.
func (r *Registry) LiquidationPenaltyAmount(id uint64) (float64, error) {
	v, ok := r.vaults[id]
	if !ok {
		return 0, fmt.Errorf("liquidation_penalty_amount: %w", ErrNotFound)
	}
	return v.DebtZai * r.Config.LiquidationPenalty, nil
}

// RemoveVault deletes id from the registry, decrementing TotalDebt, and
// returns a snapshot of its (collateral, debt, owner). Used by the
// liquidation engine's execute_core pipeline.
func (r *Registry) RemoveVault(id uint64) (collateral, debt float64, owner string, err error) {
	v, ok := r.vaults[id]
	if !ok {
		return 0, 0, "", fmt.Errorf("remove_vault: %w", ErrNotFound)
	}
	delete(r.vaults, id)
	r.TotalDebt -= v.DebtZai
	return v.CollateralZec, v.DebtZai, v.Owner, nil
}

// AccrueFeesFor accrues stability fees on a single vault by id; exported so
// the liquidation engine can accrue before its eligibility check (spec
// §4.4 step 2).
func (r *Registry) AccrueFeesFor(id uint64, block uint64) error {
	v, ok := r.vaults[id]
	if !ok {
		return fmt.Errorf("accrue_fees_for: %w", ErrNotFound)
	}
	r.accrueFees(v, block)
	return nil
}
