// Package amm implements a constant-product automated market maker for the
// ZEC/ZAI pool: reserve accounting, swap execution, LP share issuance, and a
// cumulative-price TWAP log.
package amm

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Error taxonomy for AMM operations, grouped per-package as the teacher
// groups its sentinel errors in types.go.
var (
	ErrInvalidInput        = errors.New("amm: invalid input")
	ErrInsufficientOutput  = errors.New("amm: insufficient output")
	ErrInsufficientShares  = errors.New("amm: insufficient lp shares")
	ErrZeroPool            = errors.New("amm: pool has zero reserves")
)

const shareDustTolerance = 1e-15

// Observation is one entry in the cumulative-price TWAP log.
type Observation struct {
	Block          uint64
	CumulativePrice float64
	SpotPrice       float64
}

// Pool is the constant-product ZEC/ZAI AMM.
type Pool struct {
	ReserveZec float64
	ReserveZai float64
	K          float64
	SwapFee    float64 // φ ∈ [0,1)

	TotalShares float64
	shares      map[string]float64

	observations    []Observation
	lastUpdateBlock uint64
	cumulativePrice float64

	CumulativeFeesZai float64
}

// New creates a pool seeded with initial reserves, owned entirely by
// "genesis" holding sqrt(zec*zai) shares, matching spec §3's genesis rule.
func New(initialZec, initialZai, swapFee float64) *Pool {
	genesisShares := math.Sqrt(initialZec * initialZai)
	p := &Pool{
		ReserveZec:  initialZec,
		ReserveZai:  initialZai,
		K:           initialZec * initialZai,
		SwapFee:     swapFee,
		TotalShares: genesisShares,
		shares:      map[string]float64{"genesis": genesisShares},
	}
	return p
}

// SpotPrice returns reserve_zai / reserve_zec.
func (p *Pool) SpotPrice() float64 {
	if p.ReserveZec == 0 {
		return 0
	}
	return p.ReserveZai / p.ReserveZec
}

// SharesOf returns the LP share balance for owner (0 if absent).
func (p *Pool) SharesOf(owner string) float64 {
	return p.shares[owner]
}

// LastBlock returns the most recent block the pool observed a price at,
// via SwapZecForZai/SwapZaiForZec/RecordPrice.
func (p *Pool) LastBlock() uint64 {
	return p.lastUpdateBlock
}

// Owners returns all LP owners with a nonzero share, sorted ascending for
// deterministic iteration per spec §5/§9.
func (p *Pool) Owners() []string {
	out := make([]string, 0, len(p.shares))
	for o := range p.shares {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// QuoteZecForZai is a pure, non-mutating quote of the ZAI a swap of zecIn
// would yield, used by the Arbitrageur's profitability gate. Grounded on
// original_source/src/amm.rs quote_zec_for_zai.
func (p *Pool) QuoteZecForZai(zecIn float64) float64 {
	if zecIn <= 0 || p.ReserveZec <= 0 {
		return 0
	}
	effectiveIn := zecIn * (1 - p.SwapFee)
	newZec := p.ReserveZec + effectiveIn
	newZai := p.K / newZec
	out := p.ReserveZai - newZai
	return math.Max(out, 0)
}

// QuoteZaiForZec is the symmetric pure quote for ZAI-in swaps.
func (p *Pool) QuoteZaiForZec(zaiIn float64) float64 {
	if zaiIn <= 0 || p.ReserveZai <= 0 {
		return 0
	}
	effectiveIn := zaiIn * (1 - p.SwapFee)
	newZai := p.ReserveZai + effectiveIn
	newZec := p.K / newZai
	out := p.ReserveZec - newZec
	return math.Max(out, 0)
}

// SwapZecForZai sells amount ZEC into the pool, returning the ZAI received.
// Records the price observation before mutating reserves (spec §4.1
// ordering requirement).
func (p *Pool) SwapZecForZai(amount float64, block uint64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("swap_zec_for_zai: %w", ErrInvalidInput)
	}
	p.RecordPrice(block)

	preSpot := p.SpotPrice()
	p.CumulativeFeesZai += amount * p.SwapFee * preSpot

	effectiveIn := amount * (1 - p.SwapFee)
	newZec := p.ReserveZec + effectiveIn
	newZai := p.K / newZec
	out := p.ReserveZai - newZai
	if out <= 0 {
		return 0, fmt.Errorf("swap_zec_for_zai: %w", ErrInsufficientOutput)
	}

	// Full input (not the fee-discounted effective input) stays in the
	// pool so the fee physically accrues to reserve_zec; k is rebound and
	// strictly grows by the fee's curve-shifted contribution.
	p.ReserveZec += amount
	p.ReserveZai -= out
	p.K = p.ReserveZec * p.ReserveZai
	return out, nil
}

// SwapZaiForZec is the symmetric operation for ZAI-in swaps.
func (p *Pool) SwapZaiForZec(amount float64, block uint64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("swap_zai_for_zec: %w", ErrInvalidInput)
	}
	p.RecordPrice(block)

	p.CumulativeFeesZai += amount * p.SwapFee

	effectiveIn := amount * (1 - p.SwapFee)
	newZai := p.ReserveZai + effectiveIn
	newZec := p.K / newZai
	out := p.ReserveZec - newZec
	if out <= 0 {
		return 0, fmt.Errorf("swap_zai_for_zec: %w", ErrInsufficientOutput)
	}

	p.ReserveZai += amount
	p.ReserveZec -= out
	p.K = p.ReserveZec * p.ReserveZai
	return out, nil
}

// AddLiquidity deposits zec/zai for owner and returns the shares minted.
func (p *Pool) AddLiquidity(zec, zai float64, owner string) (float64, error) {
	if zec <= 0 || zai <= 0 {
		return 0, fmt.Errorf("add_liquidity: %w", ErrInvalidInput)
	}

	var minted float64
	if p.TotalShares == 0 {
		minted = math.Sqrt(zec * zai)
	} else {
		fracZec := zec / p.ReserveZec
		fracZai := zai / p.ReserveZai
		minted = math.Min(fracZec, fracZai) * p.TotalShares
	}

	p.ReserveZec += zec
	p.ReserveZai += zai
	p.K = p.ReserveZec * p.ReserveZai
	p.TotalShares += minted
	if p.shares == nil {
		p.shares = make(map[string]float64)
	}
	p.shares[owner] += minted
	return minted, nil
}

// RemoveLiquidity burns shares for owner and returns the (zec, zai)
// withdrawn proportionally.
func (p *Pool) RemoveLiquidity(shares float64, owner string) (float64, float64, error) {
	if shares <= 0 {
		return 0, 0, fmt.Errorf("remove_liquidity: %w", ErrInvalidInput)
	}
	held := p.shares[owner]
	if held < shares {
		return 0, 0, fmt.Errorf("remove_liquidity: %w", ErrInsufficientShares)
	}
	if p.TotalShares == 0 {
		return 0, 0, fmt.Errorf("remove_liquidity: %w", ErrZeroPool)
	}

	frac := shares / p.TotalShares
	zecOut := frac * p.ReserveZec
	zaiOut := frac * p.ReserveZai

	p.ReserveZec -= zecOut
	p.ReserveZai -= zaiOut
	p.K = p.ReserveZec * p.ReserveZai
	p.TotalShares -= shares

	remaining := held - shares
	if remaining < shareDustTolerance {
		delete(p.shares, owner)
	} else {
		p.shares[owner] = remaining
	}
	return zecOut, zaiOut, nil
}

// RecordPrice appends a TWAP observation for block, a no-op if block is not
// strictly newer than the last recorded block.
func (p *Pool) RecordPrice(block uint64) {
	if len(p.observations) > 0 && block <= p.lastUpdateBlock {
		return
	}
	spot := p.SpotPrice()
	if len(p.observations) > 0 {
		p.cumulativePrice += spot * float64(block-p.lastUpdateBlock)
	} else {
		p.cumulativePrice = 0
	}
	p.lastUpdateBlock = block
	p.observations = append(p.observations, Observation{
		Block:           block,
		CumulativePrice: p.cumulativePrice,
		SpotPrice:       spot,
	})
}

// GetTWAP returns the time-weighted average price over the last `window`
// blocks, degenerating to spot price when the log is too short or the
// block delta is zero.
func (p *Pool) GetTWAP(window uint64) float64 {
	if len(p.observations) == 0 {
		return p.SpotPrice()
	}
	current := p.observations[len(p.observations)-1]
	if len(p.observations) == 1 {
		return current.SpotPrice
	}

	var target uint64
	if current.Block > window {
		target = current.Block - window
	}

	start := p.observations[0]
	for i := len(p.observations) - 1; i >= 0; i-- {
		if p.observations[i].Block <= target {
			start = p.observations[i]
			break
		}
	}

	deltaBlocks := current.Block - start.Block
	if deltaBlocks == 0 {
		return current.SpotPrice
	}
	return (current.CumulativePrice - start.CumulativePrice) / float64(deltaBlocks)
}

// ImpermanentLoss returns the pure IL fraction for a position opened at
// entryPrice, valued against current spot, excluding fees.
func (p *Pool) ImpermanentLoss(entryPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	r := p.SpotPrice() / entryPrice
	return 2*math.Sqrt(r)/(1+r) - 1
}
