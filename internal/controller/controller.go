// Package controller implements the redemption-price/rate integrator that
// steers ZAI's peg target, either via a PI loop or a tick-style integrator.
package controller

import "math"

// Mode tags the controller's integration strategy.
type Mode int

const (
	// ModePI is a proportional-integral controller on signed fractional
	// deviation e = (market-redemption)/redemption.
	ModePI Mode = iota
	// ModeTick integrates -sensitivity*ln(market/redemption) directly into
	// the clamped rate.
	ModeTick
)

// Config holds the controller's tunables.
type Config struct {
	Mode Mode

	// PI-mode gains.
	Kp float64
	Ki float64

	// Tick-mode gain.
	Sensitivity float64

	MinRate float64
	MaxRate float64

	IntegralMin float64
	IntegralMax float64
}

// DefaultPIConfig mirrors the original simulator's default PI tuning.
func DefaultPIConfig() Config {
	return Config{
		Mode:        ModePI,
		Kp:          1e-4,
		Ki:          1e-2,
		MinRate:     -1e-3,
		MaxRate:     1e-3,
		IntegralMin: -5e-4,
		IntegralMax: 5e-4,
	}
}

// DefaultTickConfig mirrors the original simulator's default tick tuning.
func DefaultTickConfig() Config {
	return Config{
		Mode:        ModeTick,
		Sensitivity: 1e-3,
		MinRate:     -1e-3,
		MaxRate:     1e-3,
		IntegralMin: -5e-4,
		IntegralMax: 5e-4,
	}
}

// Controller tracks the redemption price/rate state machine.
type Controller struct {
	Config Config

	RedemptionPrice float64
	RedemptionRate  float64
	Integral        float64
	LastBlock       uint64
}

// New constructs a Controller seeded at initialRedemptionPrice.
func New(cfg Config, initialRedemptionPrice float64, initialLastBlock uint64) *Controller {
	return &Controller{
		Config:          cfg,
		RedemptionPrice: initialRedemptionPrice,
		LastBlock:       initialLastBlock,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// recomputeRate updates Integral and RedemptionRate from the current
// market price, per spec §4.3's signed-deviation rules.
func (c *Controller) recomputeRate(market float64) {
	switch c.Config.Mode {
	case ModePI:
		e := (market - c.RedemptionPrice) / c.RedemptionPrice
		c.Integral = clamp(c.Integral-e, c.Config.IntegralMin, c.Config.IntegralMax)
		rate := -(c.Config.Kp*e + c.Config.Ki*c.Integral)
		c.RedemptionRate = clamp(rate, c.Config.MinRate, c.Config.MaxRate)
	case ModeTick:
		e := math.Log(market / c.RedemptionPrice)
		c.Integral = clamp(c.Integral-c.Config.Sensitivity*e, c.Config.IntegralMin, c.Config.IntegralMax)
		c.RedemptionRate = clamp(c.Integral, c.Config.MinRate, c.Config.MaxRate)
	}
}

// step advances RedemptionPrice by compounding RedemptionRate over the
// elapsed blocks since LastBlock; a no-op if block has not advanced.
func (c *Controller) step(block uint64) {
	if block <= c.LastBlock {
		return
	}
	deltaBlocks := block - c.LastBlock
	c.RedemptionPrice *= math.Pow(1+c.RedemptionRate, float64(deltaBlocks))
	c.LastBlock = block
}

// Update recomputes the rate from market, then compounds the redemption
// price forward to block, returning the resulting rate.
func (c *Controller) Update(market float64, block uint64) float64 {
	c.recomputeRate(market)
	c.step(block)
	return c.RedemptionRate
}
