// Package scenario wires the AMM, CDP registry, redemption-rate controller,
// liquidation engine, circuit breakers, and behavioral agent population into
// a single block-by-block simulation, and exports its metrics to CSV.
package scenario

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/luxfi/zaisim/internal/agents"
	"github.com/luxfi/zaisim/internal/amm"
	"github.com/luxfi/zaisim/internal/breaker"
	"github.com/luxfi/zaisim/internal/cdp"
	"github.com/luxfi/zaisim/internal/controller"
	"github.com/luxfi/zaisim/internal/idgen"
	"github.com/luxfi/zaisim/internal/liquidation"
)

// arberSeedOffset disambiguates the scenario RNG from the scenarios
// package's price-noise RNG, which uses 0xCAFE_BABE.
const arberSeedOffset = 0xBEEF

// BlockMetrics is a single block's simulation snapshot.
type BlockMetrics struct {
	Block            uint64
	ExternalPrice    float64
	AmmSpotPrice     float64
	TwapPrice        float64
	RedemptionPrice  float64
	RedemptionRate   float64
	TotalDebt        float64
	AmmReserveZec    float64
	AmmReserveZai    float64
	VaultCount       uint64
	LiquidationCount uint32
	BadDebt          float64
	BreakerActions   []breaker.Action
	DebtCeiling      float64
	MintingPaused    bool
	Halted           bool
	TotalCollateral  float64
	TotalLpShares    float64
	ArberZaiTotal    float64

	ZombieVaultCount         uint32
	MaxZombieGap             float64
	MeanCollateralRatioTwap  float64
	MeanCollateralRatioExt   float64

	ArberZecTotal     float64
	CumulativeFeesZai float64
	CumulativeIlPct   float64
}

// Config configures a scenario run.
type Config struct {
	AmmInitialZec float64
	AmmInitialZai float64
	AmmSwapFee    float64

	CdpConfig          cdp.Config
	ControllerConfig   controller.Config
	LiquidationConfig  liquidation.Config
	TwapBreakerConfig  breaker.TwapConfig
	CascadeBreakerConfig breaker.CascadeConfig
	DebtCeilingConfig  breaker.DebtCeilingConfig

	InitialRedemptionPrice float64

	Stochastic        bool
	NoiseSigma        float64
	ArberActivityRate float64
	DemandJitterBlocks uint64
	MinerBatchWindow   uint64

	UseAmmLiquidation bool

	ZombieDetector     bool
	ZombieGapThreshold float64

	StabilityFeeToLps bool

	// UseExternalOracleForLiquidation makes liquidation eligibility use
	// external_price instead of the AMM TWAP — a stress-test/death-spiral
	// mode, never the production path.
	UseExternalOracleForLiquidation bool
}

// DefaultConfig matches the original simulator's defaults.
func DefaultConfig() Config {
	return Config{
		AmmInitialZec:          10000.0,
		AmmInitialZai:          500000.0,
		AmmSwapFee:             0.003,
		CdpConfig:              cdp.DefaultConfig(),
		ControllerConfig:       controller.DefaultPIConfig(),
		LiquidationConfig:      liquidation.DefaultConfig(),
		TwapBreakerConfig:      breaker.DefaultTwapConfig(),
		CascadeBreakerConfig:   breaker.DefaultCascadeConfig(),
		DebtCeilingConfig:      breaker.DefaultDebtCeilingConfig(),
		InitialRedemptionPrice: 50.0,
		Stochastic:             false,
		NoiseSigma:             0.02,
		ArberActivityRate:      0.8,
		DemandJitterBlocks:     10,
		MinerBatchWindow:       10,
		UseAmmLiquidation:      false,
		ZombieDetector:         false,
		ZombieGapThreshold:     0.5,
		StabilityFeeToLps:      false,
		UseExternalOracleForLiquidation: false,
	}
}

// Scenario is the full simulation state: collaborators, agent pools, and
// recorded metrics history.
type Scenario struct {
	Amm               *amm.Pool
	Registry          *cdp.Registry
	Controller        *controller.Controller
	LiquidationEngine *liquidation.Engine
	Breakers          *breaker.Engine
	Metrics           []BlockMetrics

	Arbers       []*agents.Arbitrageur
	DemandAgents []*agents.DemandAgent
	Miners       []*agents.MinerAgent
	CdpHolders   []*agents.CdpHolder
	LpAgents     []*agents.LpAgent
	IlAwareLps   []*agents.IlAwareLpAgent
	Attackers    []*agents.Attacker

	Config Config

	// RunID stamps this run's scenario name, seed, and block count so
	// artifacts exported from identical runs share a provenance id, and
	// artifacts from a differently-seeded or differently-sized run never
	// collide. The rest of Config is not part of it.
	RunID idgen.ID

	rng                 *rand.Rand
	minerSellCountdowns []uint64
}

// New constructs a scenario with the default seed (42), matching the
// original simulator's Scenario::new.
func New(cfg Config) *Scenario { return NewWithSeed(cfg, 42) }

// NewWithSeed constructs a scenario whose RNG derives from seed XORed with
// the arber sub-seed offset, keeping agent-decision randomness independent
// of price-noise randomness (internal/scenarios uses its own offset).
func NewWithSeed(cfg Config, seed uint64) *Scenario {
	return &Scenario{
		Amm:               amm.New(cfg.AmmInitialZec, cfg.AmmInitialZai, cfg.AmmSwapFee),
		Registry:          cdp.NewRegistry(cfg.CdpConfig),
		Controller:        controller.New(cfg.ControllerConfig, cfg.InitialRedemptionPrice, 0),
		LiquidationEngine: liquidation.New(cfg.LiquidationConfig),
		Breakers:          breaker.NewEngine(cfg.TwapBreakerConfig, cfg.CascadeBreakerConfig, cfg.DebtCeilingConfig),
		Config:            cfg,
		rng:               rand.New(rand.NewSource(int64(seed ^ arberSeedOffset))),
	}
}

// Run executes the simulation for the given external-price series, one
// block per entry, after initializing LPs, CDP holders, and (if stochastic)
// miner batch countdowns.
func (s *Scenario) Run(externalPrices []float64) {
	for _, lp := range s.LpAgents {
		lp.ProvideLiquidity(s.Amm)
	}
	for _, lp := range s.IlAwareLps {
		lp.ProvideLiquidity(s.Amm)
	}
	for _, holder := range s.CdpHolders {
		_, _ = holder.OpenVault(s.Registry, s.Amm, 0)
	}

	if s.Config.Stochastic && len(s.minerSellCountdowns) == 0 {
		for range s.Miners {
			countdown := uint64(s.rng.Intn(int(s.Config.MinerBatchWindow))) + 1
			s.minerSellCountdowns = append(s.minerSellCountdowns, countdown)
		}
	}

	for i, extPrice := range externalPrices {
		block := uint64(i) + 1
		s.Step(block, extPrice)
	}
}

// Step executes a single block of the simulation.
func (s *Scenario) Step(block uint64, externalPrice float64) {
	halted := s.Breakers.IsHalted(block)
	mintingPaused := s.Breakers.IsMintingPaused(block)
	redemptionPrice := s.Controller.RedemptionPrice
	stochastic := s.Config.Stochastic

	if !halted {
		activityRate := s.Config.ArberActivityRate
		for _, arber := range s.Arbers {
			if stochastic && s.rng.Float64() >= activityRate {
				continue
			}
			arber.Act(s.Amm, externalPrice, block)
		}
	}

	if !halted {
		for _, holder := range s.CdpHolders {
			holder.Act(s.Registry, s.Amm, block)
		}
	}

	if !halted {
		jitter := s.Config.DemandJitterBlocks
		for _, demand := range s.DemandAgents {
			if stochastic && uint64(s.rng.Intn(int(jitter+20))) < jitter {
				continue
			}
			demand.Act(s.Amm, redemptionPrice, block)
		}
	}

	if !halted {
		if stochastic && len(s.minerSellCountdowns) > 0 {
			s.stepStochasticMiners(block)
		} else {
			for _, miner := range s.Miners {
				miner.Act(s.Amm, block)
			}
		}
	}

	if !halted {
		for _, lp := range s.LpAgents {
			lp.Act(s.Amm)
		}
		for _, lp := range s.IlAwareLps {
			lp.Act(s.Amm, externalPrice)
		}
	}

	if s.Config.StabilityFeeToLps {
		before := s.Registry.TotalDebt
		s.Registry.AccrueAllFees(block)
		feeDelta := s.Registry.TotalDebt - before
		if feeDelta > 0 {
			s.Amm.ReserveZai += feeDelta
			s.Amm.K = s.Amm.ReserveZec * s.Amm.ReserveZai
			s.Amm.CumulativeFeesZai += feeDelta
		}
	}

	for _, attacker := range s.Attackers {
		attacker.Act(s.Amm, block)
	}

	s.Amm.RecordPrice(block)

	var liqResults, zombieResults []liquidation.Result
	switch {
	case s.Config.UseExternalOracleForLiquidation:
		liqResults = s.LiquidationEngine.OracleLiquidate(s.Registry, s.Amm, block, externalPrice)
	case s.Config.UseAmmLiquidation:
		liqResults = s.LiquidationEngine.CascadingSpotLiquidate(s.Registry, s.Amm, block)
	default:
		liqResults = s.LiquidationEngine.TransparentLiquidate(s.Registry, s.Amm, block)
	}
	if s.Config.ZombieDetector {
		zombieResults = s.LiquidationEngine.ZombieDetectAndLiquidate(s.Registry, s.Amm, block, s.Config.ZombieGapThreshold)
	}

	liqCount := uint32(len(liqResults) + len(zombieResults))
	s.Breakers.RecordLiquidations(block, liqCount)

	marketPrice := s.Amm.SpotPrice()
	s.Controller.Update(marketPrice, block)

	breakerActions := s.Breakers.CheckAll(s.Amm, s.Controller.RedemptionPrice, block)

	var arberZai, arberZec float64
	for _, arber := range s.Arbers {
		arberZai += arber.ZaiBalance
		arberZec += arber.ZecBalance
	}

	metrics := BlockMetrics{
		Block:             block,
		ExternalPrice:     externalPrice,
		AmmSpotPrice:      s.Amm.SpotPrice(),
		TwapPrice:         s.Amm.GetTWAP(s.Registry.Config.TwapWindow),
		RedemptionPrice:   s.Controller.RedemptionPrice,
		RedemptionRate:    s.Controller.RedemptionRate,
		TotalDebt:         s.Registry.TotalDebt,
		AmmReserveZec:     s.Amm.ReserveZec,
		AmmReserveZai:     s.Amm.ReserveZai,
		VaultCount:        uint64(len(s.Registry.SortedIDs())),
		LiquidationCount:  liqCount,
		BadDebt:           s.LiquidationEngine.TotalBadDebt,
		BreakerActions:    breakerActions,
		DebtCeiling:       s.Breakers.Ceiling.CurrentCeiling,
		MintingPaused:     mintingPaused,
		Halted:            halted,
		TotalLpShares:     s.Amm.TotalShares,
		ArberZaiTotal:     arberZai,
		ArberZecTotal:     arberZec,
		CumulativeFeesZai: s.Amm.CumulativeFeesZai,
		CumulativeIlPct:   s.Amm.ImpermanentLoss(s.Config.InitialRedemptionPrice),
	}

	twap := metrics.TwapPrice
	minRatio := s.Registry.Config.MinRatio
	var zombieCount uint32
	var maxGap, twapSum, extSum, totalCollateral float64
	var vaultWithDebt uint32

	for _, id := range s.Registry.SortedIDs() {
		v, ok := s.Registry.Get(id)
		if !ok {
			continue
		}
		totalCollateral += v.CollateralZec
		if v.DebtZai <= 0 {
			continue
		}
		twapRatio := v.CollateralRatio(twap)
		extRatio := v.CollateralRatio(externalPrice)
		twapSum += twapRatio
		extSum += extRatio
		vaultWithDebt++
		if twapRatio >= minRatio && extRatio < minRatio {
			zombieCount++
			gap := twapRatio - extRatio
			if gap > maxGap {
				maxGap = gap
			}
		}
	}

	if vaultWithDebt > 0 {
		metrics.MeanCollateralRatioTwap = twapSum / float64(vaultWithDebt)
		metrics.MeanCollateralRatioExt = extSum / float64(vaultWithDebt)
	}
	metrics.ZombieVaultCount = zombieCount
	metrics.MaxZombieGap = maxGap
	metrics.TotalCollateral = totalCollateral

	s.Metrics = append(s.Metrics, metrics)
}

// stepStochasticMiners drives the miner population's countdown-batching
// path, used only when Config.Stochastic is set.
func (s *Scenario) stepStochasticMiners(block uint64) {
	for i := range s.Miners {
		s.Miners[i].ZecBalance += s.Miners[i].Config.BlockReward

		if s.minerSellCountdowns[i] > 0 {
			s.minerSellCountdowns[i]--
		}
		if s.minerSellCountdowns[i] == 0 {
			sellFrac := s.Miners[i].Config.MinerSellFraction
			ammFrac := s.Miners[i].Config.MinerAmmFraction
			sellAmount := s.Miners[i].ZecBalance * sellFrac * ammFrac
			if sellAmount > 0.001 {
				if zaiOut, err := s.Amm.SwapZecForZai(sellAmount, block); err == nil {
					s.Miners[i].ZecBalance -= sellAmount
					s.Miners[i].ZaiBalance += zaiOut
				}
			}
			bw := s.Config.MinerBatchWindow
			s.minerSellCountdowns[i] = uint64(s.rng.Intn(int(bw))) + 1
		}
	}
}

// SaveMetricsCSV writes the full per-block metrics history to path,
// creating parent directories as needed.
func (s *Scenario) SaveMetricsCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save_metrics_csv: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save_metrics_csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"block", "external_price", "amm_spot_price", "twap_price", "redemption_price",
		"redemption_rate", "total_debt", "reserve_zec", "reserve_zai", "vault_count",
		"liquidations", "bad_debt", "debt_ceiling", "minting_paused", "halted",
		"total_collateral", "total_lp_shares", "arber_zai_total", "zombie_vault_count",
		"max_zombie_gap", "mean_cr_twap", "mean_cr_ext", "arber_zec_total",
		"cumulative_fees_zai", "cumulative_il_pct",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("save_metrics_csv: %w", err)
	}

	for _, m := range s.Metrics {
		record := []string{
			fmt.Sprintf("%d", m.Block),
			fmt.Sprintf("%.4f", m.ExternalPrice),
			fmt.Sprintf("%.4f", m.AmmSpotPrice),
			fmt.Sprintf("%.4f", m.TwapPrice),
			fmt.Sprintf("%.6f", m.RedemptionPrice),
			fmt.Sprintf("%.12f", m.RedemptionRate),
			fmt.Sprintf("%.2f", m.TotalDebt),
			fmt.Sprintf("%.2f", m.AmmReserveZec),
			fmt.Sprintf("%.2f", m.AmmReserveZai),
			fmt.Sprintf("%d", m.VaultCount),
			fmt.Sprintf("%d", m.LiquidationCount),
			fmt.Sprintf("%.2f", m.BadDebt),
			fmt.Sprintf("%.0f", m.DebtCeiling),
			fmt.Sprintf("%t", m.MintingPaused),
			fmt.Sprintf("%t", m.Halted),
			fmt.Sprintf("%.2f", m.TotalCollateral),
			fmt.Sprintf("%.2f", m.TotalLpShares),
			fmt.Sprintf("%.2f", m.ArberZaiTotal),
			fmt.Sprintf("%d", m.ZombieVaultCount),
			fmt.Sprintf("%.4f", m.MaxZombieGap),
			fmt.Sprintf("%.4f", m.MeanCollateralRatioTwap),
			fmt.Sprintf("%.4f", m.MeanCollateralRatioExt),
			fmt.Sprintf("%.2f", m.ArberZecTotal),
			fmt.Sprintf("%.2f", m.CumulativeFeesZai),
			fmt.Sprintf("%.6f", m.CumulativeIlPct),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("save_metrics_csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
