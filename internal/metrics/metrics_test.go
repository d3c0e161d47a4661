package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luxfi/zaisim/internal/breaker"
	"github.com/luxfi/zaisim/internal/scenario"
	"github.com/luxfi/zaisim/internal/sweep"
	"github.com/luxfi/zaisim/internal/scenarios"
)

func sampleMetrics() []scenario.BlockMetrics {
	return []scenario.BlockMetrics{
		{Block: 1, AmmSpotPrice: 50.0, RedemptionPrice: 50.0},
		{
			Block: 2, AmmSpotPrice: 48.0, RedemptionPrice: 50.0,
			LiquidationCount: 2, BadDebt: 150.0,
			BreakerActions: []breaker.Action{
				{Kind: breaker.ActionPauseMinting, Blocks: 10, Reason: "twap deviation"},
			},
			MintingPaused: true,
		},
		{
			Block: 3, AmmSpotPrice: 45.0, RedemptionPrice: 49.0,
			BadDebt: 150.0, // cumulative, carried over from block 2
			Halted:  true,
			BreakerActions: []breaker.Action{
				{Kind: breaker.ActionEmergencyHalt, Reason: "cascade"},
			},
		},
	}
}

func TestExtractEventsFindsLiquidationsAndBreakerActions(t *testing.T) {
	events := ExtractEvents(sampleMetrics())

	var liquidation, pause, halt bool
	for _, e := range events {
		switch e.EventType {
		case "liquidation":
			liquidation = true
			if e.Block != 2 {
				t.Fatalf("expected liquidation event at block 2, got %d", e.Block)
			}
		case "pause_minting":
			pause = true
		case "emergency_halt":
			halt = true
		}
	}
	if !liquidation || !pause || !halt {
		t.Fatalf("expected liquidation, pause_minting, and emergency_halt events, got %+v", events)
	}
}

func TestComputeSummaryHandlesEmptyMetrics(t *testing.T) {
	s := ComputeSummary(nil, 50.0)
	if s.TotalBlocks != 0 {
		t.Fatalf("expected zero-valued summary, got %+v", s)
	}
}

func TestComputeSummaryAggregatesAcrossBlocks(t *testing.T) {
	s := ComputeSummary(sampleMetrics(), 50.0)

	if s.TotalBlocks != 3 {
		t.Fatalf("expected 3 total blocks, got %d", s.TotalBlocks)
	}
	if s.TotalLiquidations != 2 {
		t.Fatalf("expected 2 total liquidations, got %d", s.TotalLiquidations)
	}
	if s.HaltBlocks != 1 {
		t.Fatalf("expected 1 halt block, got %d", s.HaltBlocks)
	}
	if s.PauseBlocks != 1 {
		t.Fatalf("expected 1 pause block, got %d", s.PauseBlocks)
	}
	if s.BreakerTriggers != 2 {
		t.Fatalf("expected 2 breaker triggers, got %d", s.BreakerTriggers)
	}
	if s.MinAmmPrice != 45.0 || s.MaxAmmPrice != 50.0 {
		t.Fatalf("expected min/max amm price 45/50, got %f/%f", s.MinAmmPrice, s.MaxAmmPrice)
	}
	if s.FinalAmmPrice != 45.0 {
		t.Fatalf("expected final amm price 45.0, got %f", s.FinalAmmPrice)
	}
	if s.TotalBadDebt != 150.0 {
		t.Fatalf("expected final bad debt 150.0 (from last block), got %f", s.TotalBadDebt)
	}
}

func TestSaveEventsCSVWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	events := ExtractEvents(sampleMetrics())

	if err := SaveEventsCSV(events, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading csv: %v", err)
	}
	if !strings.HasPrefix(string(data), "block,event_type,details") {
		t.Fatalf("expected csv header, got %q", string(data)[:40])
	}
}

func TestSaveMetricsJSONWritesParsableSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	summary := ComputeSummary(sampleMetrics(), 50.0)

	if err := SaveMetricsJSON(summary, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading json: %v", err)
	}
	if !strings.Contains(string(data), "\"total_blocks\"") {
		t.Fatalf("expected total_blocks field in json output, got %s", data)
	}
}

func TestSaveConfigYAMLWritesNestedSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := scenario.DefaultConfig()

	if err := SaveConfigYAML(cfg, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading yaml: %v", err)
	}
	for _, want := range []string{"amm:", "cdp:", "circuit_breaker:"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected yaml to contain %q, got:\n%s", want, data)
		}
	}
}

func TestSaveSweepResultsWritesParamAndScoreColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.csv")
	results := []sweep.Result{
		{
			Params:       []sweep.ParamValue{{Name: "min_ratio", Value: 1.5}},
			Scores:       []sweep.ScenarioScore{{ID: scenarios.SteadyState, Score: -0.1}},
			OverallScore: -0.1,
		},
	}

	if err := SaveSweepResults(results, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading csv: %v", err)
	}
	if !strings.Contains(string(data), "min_ratio,overall_score,score_steady_state") {
		t.Fatalf("expected header with param and score columns, got:\n%s", data)
	}
}

func TestSavePriceSeriesCSVRoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.csv")
	prices := []float64{50.0, 50.5, 51.25, 49.9}

	if err := SavePriceSeriesCSV(prices, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := LoadPriceSeriesCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(prices) {
		t.Fatalf("expected %d prices, got %d", len(prices), len(got))
	}
	for i := range prices {
		if got[i] != prices[i] {
			t.Fatalf("price %d: expected %f, got %f", i, prices[i], got[i])
		}
	}
}

func TestSaveAllWritesEveryArtifact(t *testing.T) {
	cfg := scenario.DefaultConfig()
	s := scenario.New(cfg)
	s.Run([]float64{50.0, 51.0, 49.0})

	dir := t.TempDir()
	if err := SaveAll(s, cfg, 50.0, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"timeseries.csv", "events.csv", "metrics.json", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}
