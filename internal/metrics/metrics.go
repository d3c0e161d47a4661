// Package metrics extracts discrete events and summary statistics from a
// finished scenario run, and writes every output artifact (timeseries CSV,
// events CSV, summary JSON, config YAML, sweep-results CSV).
package metrics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/luxfi/zaisim/internal/breaker"
	"github.com/luxfi/zaisim/internal/scenario"
	"github.com/luxfi/zaisim/internal/sweep"
	"gopkg.in/yaml.v3"
)

// Event is a discrete occurrence worth surfacing on its own timeline,
// distinct from the dense per-block metrics series.
type Event struct {
	Block     uint64
	EventType string
	Details   string
}

// Summary is the aggregate statistics for a completed scenario run.
type Summary struct {
	TotalBlocks           uint64  `json:"total_blocks"`
	MeanPegDeviation      float64 `json:"mean_peg_deviation"`
	MaxPegDeviation       float64 `json:"max_peg_deviation"`
	FinalPegDeviation     float64 `json:"final_peg_deviation"`
	TotalLiquidations     uint32  `json:"total_liquidations"`
	TotalBadDebt          float64 `json:"total_bad_debt"`
	BreakerTriggers       uint32  `json:"breaker_triggers"`
	HaltBlocks            uint64  `json:"halt_blocks"`
	PauseBlocks           uint64  `json:"pause_blocks"`
	MeanAmmPrice          float64 `json:"mean_amm_price"`
	MinAmmPrice           float64 `json:"min_amm_price"`
	MaxAmmPrice           float64 `json:"max_amm_price"`
	FinalAmmPrice         float64 `json:"final_amm_price"`
	FinalRedemptionPrice  float64 `json:"final_redemption_price"`
	FinalDebtCeiling      float64 `json:"final_debt_ceiling"`
}

// ExtractEvents pulls out liquidation and breaker events from a metrics
// series, leaving the dense per-block series to the timeseries CSV.
func ExtractEvents(metrics []scenario.BlockMetrics) []Event {
	var events []Event

	for _, m := range metrics {
		if m.LiquidationCount > 0 {
			events = append(events, Event{
				Block:     m.Block,
				EventType: "liquidation",
				Details:   fmt.Sprintf("count=%d,bad_debt=%.2f", m.LiquidationCount, m.BadDebt),
			})
		}

		for _, action := range m.BreakerActions {
			switch action.Kind {
			case breaker.ActionNone:
				// not an event
			case breaker.ActionPauseMinting:
				events = append(events, Event{
					Block:     m.Block,
					EventType: "pause_minting",
					Details:   fmt.Sprintf("blocks=%d,%s", action.Blocks, action.Reason),
				})
			case breaker.ActionReduceDebtCeiling:
				events = append(events, Event{
					Block:     m.Block,
					EventType: "reduce_ceiling",
					Details:   fmt.Sprintf("ceiling=%.0f,%s", action.NewCeiling, action.Reason),
				})
			case breaker.ActionEmergencyHalt:
				events = append(events, Event{
					Block:     m.Block,
					EventType: "emergency_halt",
					Details:   action.Reason,
				})
			}
		}
	}

	return events
}

// ComputeSummary aggregates a metrics series against the peg's target
// price. An empty series returns a zero-valued summary.
func ComputeSummary(metrics []scenario.BlockMetrics, targetPrice float64) Summary {
	if len(metrics) == 0 {
		return Summary{}
	}

	n := float64(len(metrics))

	var devSum, maxDev float64
	var ammSum, minAmm, maxAmm float64
	var totalLiqs uint32
	var triggerCount uint32
	var haltBlocks, pauseBlocks uint64

	minAmm = math.Inf(1)
	maxAmm = math.Inf(-1)

	for _, m := range metrics {
		dev := math.Abs((m.AmmSpotPrice - targetPrice) / targetPrice)
		devSum += dev
		if dev > maxDev {
			maxDev = dev
		}

		ammSum += m.AmmSpotPrice
		if m.AmmSpotPrice < minAmm {
			minAmm = m.AmmSpotPrice
		}
		if m.AmmSpotPrice > maxAmm {
			maxAmm = m.AmmSpotPrice
		}

		totalLiqs += m.LiquidationCount

		for _, a := range m.BreakerActions {
			if a.Kind != breaker.ActionNone {
				triggerCount++
			}
		}

		if m.Halted {
			haltBlocks++
		}
		if m.MintingPaused {
			pauseBlocks++
		}
	}

	last := metrics[len(metrics)-1]
	finalDev := math.Abs((last.AmmSpotPrice - targetPrice) / targetPrice)

	return Summary{
		TotalBlocks:          uint64(len(metrics)),
		MeanPegDeviation:     devSum / n,
		MaxPegDeviation:      maxDev,
		FinalPegDeviation:    finalDev,
		TotalLiquidations:    totalLiqs,
		TotalBadDebt:         last.BadDebt,
		BreakerTriggers:      triggerCount,
		HaltBlocks:           haltBlocks,
		PauseBlocks:          pauseBlocks,
		MeanAmmPrice:         ammSum / n,
		MinAmmPrice:          minAmm,
		MaxAmmPrice:          maxAmm,
		FinalAmmPrice:        last.AmmSpotPrice,
		FinalRedemptionPrice: last.RedemptionPrice,
		FinalDebtCeiling:     last.DebtCeiling,
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// SaveEventsCSV writes the discrete-event list to a 3-column CSV.
func SaveEventsCSV(events []Event, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("save_events_csv: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save_events_csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"block", "event_type", "details"}); err != nil {
		return fmt.Errorf("save_events_csv: %w", err)
	}
	for _, e := range events {
		row := []string{strconv.FormatUint(e.Block, 10), e.EventType, e.Details}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("save_events_csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// SavePriceSeriesCSV writes a flat block-indexed price series (e.g. the
// output of historical.InterpolateToBlocks) to a 2-column CSV, so it can be
// handed straight back in via another command's --prices flag.
func SavePriceSeriesCSV(prices []float64, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("save_price_series_csv: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save_price_series_csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"block", "price"}); err != nil {
		return fmt.Errorf("save_price_series_csv: %w", err)
	}
	for i, p := range prices {
		row := []string{strconv.Itoa(i), strconv.FormatFloat(p, 'f', -1, 64)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("save_price_series_csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// LoadPriceSeriesCSV reads back a block,price CSV written by
// SavePriceSeriesCSV, returning the price column in block order.
func LoadPriceSeriesCSV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load_price_series_csv: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load_price_series_csv: parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("load_price_series_csv: %s is empty", path)
	}

	start := 0
	if len(records[0]) > 0 && records[0][0] == "block" {
		start = 1
	}

	prices := make([]float64, 0, len(records))
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 2 {
			return nil, fmt.Errorf("load_price_series_csv: row %d missing price column", i)
		}
		p, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("load_price_series_csv: row %d: %w", i, err)
		}
		prices = append(prices, p)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("load_price_series_csv: %s contained no data rows", path)
	}
	return prices, nil
}

// SaveMetricsJSON writes a summary to indented JSON.
func SaveMetricsJSON(summary Summary, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("save_metrics_json: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("save_metrics_json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save_metrics_json: %w", err)
	}
	return nil
}

// configYAML is the serialized subset of scenario.Config, grouped into amm,
// cdp, controller, and circuit_breaker sections.
type configYAML struct {
	Amm struct {
		InitialZec float64 `yaml:"initial_zec"`
		InitialZai float64 `yaml:"initial_zai"`
		SwapFee    float64 `yaml:"swap_fee"`
	} `yaml:"amm"`
	Cdp struct {
		MinRatio           float64 `yaml:"min_ratio"`
		LiquidationPenalty float64 `yaml:"liquidation_penalty"`
		DebtFloor          float64 `yaml:"debt_floor"`
		StabilityFeeRate   float64 `yaml:"stability_fee_rate"`
		TwapWindow         uint64  `yaml:"twap_window"`
	} `yaml:"cdp"`
	Controller struct {
		InitialRedemptionPrice float64 `yaml:"initial_redemption_price"`
	} `yaml:"controller"`
	CircuitBreaker struct {
		Twap struct {
			MaxTwapChangePct float64 `yaml:"max_twap_change_pct"`
			ShortWindow      uint64  `yaml:"short_window"`
			LongWindow       uint64  `yaml:"long_window"`
			PauseBlocks      uint64  `yaml:"pause_blocks"`
		} `yaml:"twap"`
		Cascade struct {
			MaxLiquidationsInWindow uint32 `yaml:"max_liquidations_in_window"`
			WindowBlocks            uint64 `yaml:"window_blocks"`
			PauseBlocks             uint64 `yaml:"pause_blocks"`
		} `yaml:"cascade"`
		DebtCeiling struct {
			InitialCeiling     float64 `yaml:"initial_ceiling"`
			MinCeiling         float64 `yaml:"min_ceiling"`
			ReductionFactor    float64 `yaml:"reduction_factor"`
			GrowthRatePerBlock float64 `yaml:"growth_rate_per_block"`
			DeviationThreshold float64 `yaml:"deviation_threshold"`
		} `yaml:"debt_ceiling"`
	} `yaml:"circuit_breaker"`
}

// SaveConfigYAML writes a scenario config to YAML, replacing the original
// simulator's hand-rolled TOML writer with real marshaling.
func SaveConfigYAML(cfg scenario.Config, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("save_config_yaml: %w", err)
	}

	var out configYAML
	out.Amm.InitialZec = cfg.AmmInitialZec
	out.Amm.InitialZai = cfg.AmmInitialZai
	out.Amm.SwapFee = cfg.AmmSwapFee

	out.Cdp.MinRatio = cfg.CdpConfig.MinRatio
	out.Cdp.LiquidationPenalty = cfg.CdpConfig.LiquidationPenalty
	out.Cdp.DebtFloor = cfg.CdpConfig.DebtFloor
	out.Cdp.StabilityFeeRate = cfg.CdpConfig.StabilityFeeRate
	out.Cdp.TwapWindow = cfg.CdpConfig.TwapWindow

	out.Controller.InitialRedemptionPrice = cfg.InitialRedemptionPrice

	out.CircuitBreaker.Twap.MaxTwapChangePct = cfg.TwapBreakerConfig.MaxTwapChangePct
	out.CircuitBreaker.Twap.ShortWindow = cfg.TwapBreakerConfig.ShortWindow
	out.CircuitBreaker.Twap.LongWindow = cfg.TwapBreakerConfig.LongWindow
	out.CircuitBreaker.Twap.PauseBlocks = cfg.TwapBreakerConfig.PauseBlocks

	out.CircuitBreaker.Cascade.MaxLiquidationsInWindow = cfg.CascadeBreakerConfig.MaxLiquidationsInWindow
	out.CircuitBreaker.Cascade.WindowBlocks = cfg.CascadeBreakerConfig.WindowBlocks
	out.CircuitBreaker.Cascade.PauseBlocks = cfg.CascadeBreakerConfig.PauseBlocks

	out.CircuitBreaker.DebtCeiling.InitialCeiling = cfg.DebtCeilingConfig.InitialCeiling
	out.CircuitBreaker.DebtCeiling.MinCeiling = cfg.DebtCeilingConfig.MinCeiling
	out.CircuitBreaker.DebtCeiling.ReductionFactor = cfg.DebtCeilingConfig.ReductionFactor
	out.CircuitBreaker.DebtCeiling.GrowthRatePerBlock = cfg.DebtCeilingConfig.GrowthRatePerBlock
	out.CircuitBreaker.DebtCeiling.DeviationThreshold = cfg.DebtCeilingConfig.DeviationThreshold

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("save_config_yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save_config_yaml: %w", err)
	}
	return nil
}

// SaveSweepResults writes sweep results to CSV: one parameter column per
// swept parameter, an overall_score column, then one score_<scenario>
// column per scenario evaluated.
func SaveSweepResults(results []sweep.Result, path string) error {
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("save_sweep_results: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save_sweep_results: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if len(results) > 0 {
		first := results[0]
		header := make([]string, 0, len(first.Params)+1+len(first.Scores))
		for _, p := range first.Params {
			header = append(header, p.Name)
		}
		header = append(header, "overall_score")
		for _, s := range first.Scores {
			header = append(header, "score_"+s.ID.Name())
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("save_sweep_results: %w", err)
		}
	}

	for _, r := range results {
		row := make([]string, 0, len(r.Params)+1+len(r.Scores))
		for _, p := range r.Params {
			row = append(row, strconv.FormatFloat(p.Value, 'f', 6, 64))
		}
		row = append(row, strconv.FormatFloat(r.OverallScore, 'f', 6, 64))
		for _, s := range r.Scores {
			row = append(row, strconv.FormatFloat(s.Score, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("save_sweep_results: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// SaveAll writes every output artifact for a finished scenario run into
// outputDir: timeseries.csv, events.csv, metrics.json, config.yaml.
func SaveAll(s *scenario.Scenario, cfg scenario.Config, targetPrice float64, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("save_all: %w", err)
	}

	if err := s.SaveMetricsCSV(filepath.Join(outputDir, "timeseries.csv")); err != nil {
		return fmt.Errorf("save_all: %w", err)
	}

	events := ExtractEvents(s.Metrics)
	if err := SaveEventsCSV(events, filepath.Join(outputDir, "events.csv")); err != nil {
		return fmt.Errorf("save_all: %w", err)
	}

	summary := ComputeSummary(s.Metrics, targetPrice)
	if err := SaveMetricsJSON(summary, filepath.Join(outputDir, "metrics.json")); err != nil {
		return fmt.Errorf("save_all: %w", err)
	}

	if err := SaveConfigYAML(cfg, filepath.Join(outputDir, "config.yaml")); err != nil {
		return fmt.Errorf("save_all: %w", err)
	}

	return nil
}
