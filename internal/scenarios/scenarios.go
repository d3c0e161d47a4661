// Package scenarios supplies the library of named stress scenarios: a
// price-path generator and agent-population builder for each, used to
// construct and run a full internal/scenario.Scenario in one call.
package scenarios

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/luxfi/zaisim/internal/agents"
	"github.com/luxfi/zaisim/internal/idgen"
	"github.com/luxfi/zaisim/internal/scenario"
)

// DefaultBlocks is the block count used by RunStressDefault.
const DefaultBlocks = 1000

// priceNoiseSeedOffset keeps price-noise randomness independent of the
// scenario's own agent-decision RNG (internal/scenario uses 0xBEEF).
const priceNoiseSeedOffset = 0xCAFE_BABE

// ID identifies one of the thirteen named stress scenarios.
type ID int

const (
	SteadyState ID = iota + 1
	BlackThursday
	FlashCrash
	SustainedBear
	TwapManipulation
	LiquidityCrisis
	BankRun
	BullMarket
	OracleComparison
	CombinedStress
	DemandShock
	MinerCapitulation
	SequencerDowntime
)

// All returns every scenario id in canonical order.
func All() []ID {
	return []ID{
		SteadyState, BlackThursday, FlashCrash, SustainedBear, TwapManipulation,
		LiquidityCrisis, BankRun, BullMarket, OracleComparison, CombinedStress,
		DemandShock, MinerCapitulation, SequencerDowntime,
	}
}

// Name returns the scenario's snake_case identifier.
func (id ID) Name() string {
	switch id {
	case SteadyState:
		return "steady_state"
	case BlackThursday:
		return "black_thursday"
	case FlashCrash:
		return "flash_crash"
	case SustainedBear:
		return "sustained_bear"
	case TwapManipulation:
		return "twap_manipulation"
	case LiquidityCrisis:
		return "liquidity_crisis"
	case BankRun:
		return "bank_run"
	case BullMarket:
		return "bull_market"
	case OracleComparison:
		return "oracle_comparison"
	case CombinedStress:
		return "combined_stress"
	case DemandShock:
		return "demand_shock"
	case MinerCapitulation:
		return "miner_capitulation"
	case SequencerDowntime:
		return "sequencer_downtime"
	default:
		return fmt.Sprintf("unknown(%d)", id)
	}
}

// Description returns a one-line human description of the scenario.
func (id ID) Description() string {
	switch id {
	case SteadyState:
		return "Constant price, baseline behavior"
	case BlackThursday:
		return "Severe crash (60%+) with partial recovery"
	case FlashCrash:
		return "Sudden drop and rapid recovery"
	case SustainedBear:
		return "Gradual decline over extended period"
	case TwapManipulation:
		return "Short-term price manipulation attempts"
	case LiquidityCrisis:
		return "High volatility, thin liquidity"
	case BankRun:
		return "Mass exit / cascading sells"
	case BullMarket:
		return "Sustained price increase"
	case OracleComparison:
		return "Volatile oscillations for TWAP testing"
	case CombinedStress:
		return "Multiple stress events in sequence"
	case DemandShock:
		return "Sudden ZAI demand surge then collapse"
	case MinerCapitulation:
		return "Miner dump waves"
	case SequencerDowntime:
		return "Network pause then resume with price gap"
	default:
		return ""
	}
}

// ApplyPriceNoise multiplies each price by (1 + Normal(0, sigma)), floored
// at $1, using an RNG seeded independently of scenario agent decisions.
func ApplyPriceNoise(prices []float64, sigma float64, seed uint64) {
	rng := rand.New(rand.NewSource(int64(seed ^ priceNoiseSeedOffset)))
	for i, p := range prices {
		noise := rng.NormFloat64() * sigma
		p *= 1.0 + noise
		if p < 1.0 {
			p = 1.0
		}
		prices[i] = p
	}
}

// GeneratePrices dispatches to the named scenario's price-path generator.
func GeneratePrices(id ID, blocks int, seed uint64) []float64 {
	switch id {
	case SteadyState:
		return steadyStatePrices(blocks)
	case BlackThursday:
		return blackThursdayPrices(blocks)
	case FlashCrash:
		return flashCrashPrices(blocks)
	case SustainedBear:
		return sustainedBearPrices(blocks)
	case TwapManipulation:
		return twapManipulationPrices(blocks)
	case LiquidityCrisis:
		return liquidityCrisisPrices(blocks, seed)
	case BankRun:
		return bankRunPrices(blocks)
	case BullMarket:
		return bullMarketPrices(blocks)
	case OracleComparison:
		return oracleComparisonPrices(blocks)
	case CombinedStress:
		return combinedStressPrices(blocks)
	case DemandShock:
		return demandShockPrices(blocks)
	case MinerCapitulation:
		return minerCapitulationPrices(blocks)
	case SequencerDowntime:
		return sequencerDowntimePrices(blocks)
	default:
		return steadyStatePrices(blocks)
	}
}

// AddAgents populates s with the scenario-appropriate agent roster: every
// scenario gets one arbitrageur and one miner, plus scenario-specific
// additions.
func AddAgents(id ID, s *scenario.Scenario) {
	s.Arbers = append(s.Arbers, agents.NewArbitrageur(agents.DefaultArbitrageurConfig()))
	s.Miners = append(s.Miners, agents.NewMinerAgent(agents.DefaultMinerAgentConfig()))

	switch id {
	case BankRun:
		cfg := agents.DefaultDemandAgentConfig()
		cfg.DemandElasticity = 0.02
		cfg.DemandExitThresholdPct = 3.0
		cfg.DemandExitWindowBlocks = 20
		cfg.DemandPanicSellFraction = 0.8
		cfg.InitialZecBalance = 10_000.0
		s.DemandAgents = append(s.DemandAgents, agents.NewDemandAgent(cfg))

	case TwapManipulation:
		s.Attackers = append(s.Attackers, agents.NewAttacker(agents.AttackerConfig{
			AttackCapitalZec: 5000.0,
			HoldBlocks:       3,
			AttackAtBlock:    500,
		}))

	case MinerCapitulation:
		for i := 0; i < 3; i++ {
			cfg := agents.DefaultMinerAgentConfig()
			cfg.MinerSellFraction = 1.0
			cfg.MinerAmmFraction = 1.0
			s.Miners = append(s.Miners, agents.NewMinerAgent(cfg))
		}

	case DemandShock:
		cfg := agents.DefaultDemandAgentConfig()
		cfg.DemandElasticity = 0.10
		cfg.DemandBaseRate = 5.0
		cfg.InitialZecBalance = 20_000.0
		s.DemandAgents = append(s.DemandAgents, agents.NewDemandAgent(cfg))

	case LiquidityCrisis:
		cfg := agents.DefaultLpAgentConfig()
		cfg.IlThreshold = 0.03
		s.LpAgents = append(s.LpAgents, agents.NewLpAgent(cfg))
	}
}

// RunStress builds, populates, and runs a complete stress scenario.
func RunStress(id ID, cfg scenario.Config, blocks int, seed uint64) *scenario.Scenario {
	prices := GeneratePrices(id, blocks, seed)
	if cfg.Stochastic {
		ApplyPriceNoise(prices, cfg.NoiseSigma, seed)
	}
	s := scenario.NewWithSeed(cfg, seed)
	s.RunID = idgen.RunID(id.Name(), seed, blocks)
	AddAgents(id, s)
	s.Run(prices)
	return s
}

// RunStressDefault runs id with the default config, block count, and seed.
func RunStressDefault(id ID) *scenario.Scenario {
	return RunStress(id, scenario.DefaultConfig(), DefaultBlocks, 42)
}

// ═══════════════════════════════════════════════════════════════════════
// Price path generators
// ═══════════════════════════════════════════════════════════════════════

func steadyStatePrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	for i := range prices {
		prices[i] = 50.0
	}
	return prices
}

func blackThursdayPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	crashStart := blocks / 4
	crashEnd := crashStart + blocks/10
	recoveryEnd := crashEnd + blocks/4

	for i := 0; i < blocks; i++ {
		var price float64
		switch {
		case i < crashStart:
			price = 50.0
		case i < crashEnd:
			t := float64(i-crashStart) / float64(crashEnd-crashStart)
			price = 50.0 - 30.0*t
		case i < recoveryEnd:
			t := float64(i-crashEnd) / float64(recoveryEnd-crashEnd)
			price = 20.0 + 15.0*t
		default:
			price = 35.0
		}
		prices[i] = price
	}
	return prices
}

func flashCrashPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	crashBlock := blocks / 2
	const crashDepth = 10
	const recoveryLength = 50

	for i := 0; i < blocks; i++ {
		var price float64
		switch {
		case i < crashBlock:
			price = 50.0
		case i < crashBlock+crashDepth:
			t := float64(i-crashBlock) / float64(crashDepth)
			price = 50.0 - 25.0*t
		case i < crashBlock+crashDepth+recoveryLength:
			t := float64(i-crashBlock-crashDepth) / float64(recoveryLength)
			price = 25.0 + 23.0*t
		default:
			price = 48.0
		}
		prices[i] = price
	}
	return prices
}

func sustainedBearPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	for i := 0; i < blocks; i++ {
		t := float64(i) / float64(blocks)
		prices[i] = 50.0 - 35.0*t
	}
	return prices
}

func twapManipulationPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	for i := 0; i < blocks; i++ {
		if i > 200 && i%100 < 2 {
			prices[i] = 100.0
		} else {
			prices[i] = 50.0
		}
	}
	return prices
}

func liquidityCrisisPrices(blocks int, seed uint64) []float64 {
	rng := rand.New(rand.NewSource(int64(seed)))
	prices := make([]float64, blocks)
	price := 50.0
	for i := 0; i < blocks; i++ {
		price += rng.NormFloat64() * 2.0
		price = clamp(price, 10.0, 120.0)
		prices[i] = price
	}
	return prices
}

func bankRunPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	panicStart := blocks / 3
	for i := 0; i < blocks; i++ {
		price := 50.0
		if i >= panicStart {
			t := float64(i-panicStart) / float64(blocks-panicStart)
			price = 50.0 - 30.0*math.Pow(t, 1.5)
		}
		prices[i] = math.Max(price, 10.0)
	}
	return prices
}

func bullMarketPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	for i := 0; i < blocks; i++ {
		t := float64(i) / float64(blocks)
		prices[i] = 30.0 + 70.0*t
	}
	return prices
}

func oracleComparisonPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	const cycle = 50.0
	for i := 0; i < blocks; i++ {
		t := math.Mod(float64(i), cycle) / cycle
		prices[i] = 50.0 + 15.0*math.Sin(2.0*math.Pi*t)
	}
	return prices
}

func combinedStressPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	phase1 := blocks / 4
	phase2 := blocks / 2
	phase3 := 3 * blocks / 4

	for i := 0; i < blocks; i++ {
		var price float64
		switch {
		case i < phase1:
			price = 50.0 - 10.0*(float64(i)/float64(phase1))
		case i < phase2:
			t := float64(i-phase1) / float64(phase2-phase1)
			if t < 0.1 {
				price = 40.0 - 15.0*(t/0.1)
			} else {
				price = 25.0 + 10.0*((t-0.1)/0.9)
			}
		case i < phase3:
			t := float64(i-phase2) / float64(phase3-phase2)
			price = 35.0 + 10.0*t
		default:
			price = 45.0
		}
		prices[i] = math.Max(price, 10.0)
	}
	return prices
}

func demandShockPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	surgeStart := blocks / 3
	surgeEnd := blocks / 2

	for i := 0; i < blocks; i++ {
		var price float64
		switch {
		case i < surgeStart:
			price = 50.0
		case i < surgeEnd:
			t := float64(i-surgeStart) / float64(surgeEnd-surgeStart)
			price = 50.0 + 20.0*t
		default:
			t := float64(i-surgeEnd) / float64(blocks-surgeEnd)
			price = 70.0 - 30.0*t
		}
		prices[i] = math.Max(price, 10.0)
	}
	return prices
}

func minerCapitulationPrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	for i := 0; i < blocks; i++ {
		phase := math.Min(float64(i*3/blocks), 2)
		base := 50.0 - 10.0*phase
		within := math.Mod(float64(i)*3.0/float64(blocks), 1.0)

		var price float64
		if within < 0.3 {
			price = base - 8.0*(within/0.3)
		} else {
			price = (base - 8.0) + 5.0*((within-0.3)/0.7)
		}
		prices[i] = math.Max(price, 10.0)
	}
	return prices
}

func sequencerDowntimePrices(blocks int) []float64 {
	prices := make([]float64, blocks)
	downtimeStart := blocks * 2 / 5
	downtimeEnd := blocks * 3 / 5

	for i := 0; i < blocks; i++ {
		var price float64
		switch {
		case i < downtimeStart:
			price = 50.0
		case i < downtimeEnd:
			price = 50.0
		default:
			price = 35.0
		}
		prices[i] = price
	}
	return prices
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
