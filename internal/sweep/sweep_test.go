package sweep

import (
	"math"
	"testing"

	"github.com/luxfi/zaisim/internal/scenario"
	"github.com/luxfi/zaisim/internal/scenarios"
)

func TestCartesianProductExpandsAllCombinations(t *testing.T) {
	params := []Param{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{10, 20, 30}},
	}
	combos := CartesianProduct(params)
	if len(combos) != 6 {
		t.Fatalf("expected 6 combinations, got %d", len(combos))
	}
	for _, combo := range combos {
		if len(combo) != 2 {
			t.Fatalf("expected each combo to set both params, got %d", len(combo))
		}
	}
}

func TestCartesianProductEmptyParamsYieldsOneEmptyCombo(t *testing.T) {
	combos := CartesianProduct(nil)
	if len(combos) != 1 || len(combos[0]) != 0 {
		t.Fatalf("expected a single empty combination, got %+v", combos)
	}
}

func TestScoreOfEmptyRunIsNegativeInfinity(t *testing.T) {
	e := New(10, 1, 50.0)
	s := scenario.New(scenario.DefaultConfig())
	if got := e.Score(s); !math.IsInf(got, -1) {
		t.Fatalf("expected -inf for a scenario with no metrics, got %f", got)
	}
}

func TestScorePenalizesHaltedBlocks(t *testing.T) {
	e := New(10, 1, 50.0)

	calm := scenario.New(scenario.DefaultConfig())
	calm.Run(repeat(50.0, 20))

	halted := scenario.New(scenario.DefaultConfig())
	halted.Run(repeat(50.0, 20))
	for i := range halted.Metrics {
		halted.Metrics[i].Halted = true
	}

	if e.Score(halted) >= e.Score(calm) {
		t.Fatalf("expected halted run to score worse: halted=%f calm=%f", e.Score(halted), e.Score(calm))
	}
}

func repeat(v float64, n int) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = v
	}
	return prices
}

func TestRunGridScoresEveryComboAgainstEveryScenario(t *testing.T) {
	e := New(20, 1, 50.0)
	params := []Param{{Name: "swap_fee", Values: []float64{0.001, 0.01}}}
	ids := []scenarios.ID{scenarios.SteadyState}

	results := e.RunGrid(params, ids)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if len(r.Scores) != 1 {
			t.Fatalf("expected one score per scenario, got %d", len(r.Scores))
		}
	}
}

func TestRefineParamsNarrowsAroundBest(t *testing.T) {
	original := []Param{{Name: "min_ratio", Values: []float64{1.0, 1.5, 2.0}}}
	results := []Result{{
		Params:       []ParamValue{{Name: "min_ratio", Value: 1.5}},
		OverallScore: 0.9,
	}}

	refined := RefineParams(results, original)
	if len(refined) != 1 || len(refined[0].Values) != 5 {
		t.Fatalf("expected 5 refined values, got %+v", refined)
	}
	if refined[0].Values[2] != 1.5 {
		t.Fatalf("expected the center refined value to equal the best value, got %f", refined[0].Values[2])
	}
}

func TestSortResultsOrdersDescending(t *testing.T) {
	results := []Result{
		{OverallScore: -0.5},
		{OverallScore: -0.1},
		{OverallScore: -0.9},
	}
	SortResults(results)
	if results[0].OverallScore != -0.1 || results[2].OverallScore != -0.9 {
		t.Fatalf("expected descending order, got %+v", results)
	}
}

func TestApplyParamsOverridesNamedFields(t *testing.T) {
	cfg := scenario.DefaultConfig()
	ApplyParams(&cfg, []ParamValue{
		{Name: "min_ratio", Value: 1.8},
		{Name: "swap_fee", Value: 0.01},
	})
	if cfg.CdpConfig.MinRatio != 1.8 {
		t.Fatalf("expected min_ratio override to apply, got %f", cfg.CdpConfig.MinRatio)
	}
	if cfg.AmmSwapFee != 0.01 {
		t.Fatalf("expected swap_fee override to apply, got %f", cfg.AmmSwapFee)
	}
}

func TestRunStagedSweepCompletesWithSmallCounts(t *testing.T) {
	e := New(15, 1, 50.0)
	params := []Param{{Name: "swap_fee", Values: []float64{0.001, 0.01}}}

	results := e.RunStagedSweep(params, 2, 2, 1, 2)
	if len(results) == 0 {
		t.Fatal("expected at least one final result")
	}
	for i := 1; i < len(results); i++ {
		if results[i].OverallScore > results[i-1].OverallScore {
			t.Fatal("expected final results sorted by descending score")
		}
	}
}
