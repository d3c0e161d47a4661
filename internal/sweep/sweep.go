// Package sweep runs parameter sweeps over scenario configs, scoring each
// combination against the stress-scenario library and staging from a coarse
// grid down to a Monte-Carlo-validated shortlist.
package sweep

import (
	"math"
	"sort"
	"sync"

	"github.com/luxfi/zaisim/internal/scenario"
	"github.com/luxfi/zaisim/internal/scenarios"
)

// Param is one axis of the parameter grid.
type Param struct {
	Name   string
	Values []float64
}

// ScenarioScore pairs a scenario with the score it produced.
type ScenarioScore struct {
	ID    scenarios.ID
	Score float64
}

// Result is the outcome of evaluating one parameter combination.
type Result struct {
	Params       []ParamValue
	Scores       []ScenarioScore
	OverallScore float64
}

// ParamValue is a named parameter setting within a Result.
type ParamValue struct {
	Name  string
	Value float64
}

// Engine runs parameter sweeps across scenarios, scoring each config.
type Engine struct {
	Blocks      int
	Seed        uint64
	TargetPrice float64

	// Workers bounds sweep concurrency; zero means unbounded (one
	// goroutine per combination).
	Workers int
}

// New constructs a sweep engine.
func New(blocks int, seed uint64, targetPrice float64) *Engine {
	return &Engine{Blocks: blocks, Seed: seed, TargetPrice: targetPrice}
}

// Score rates a completed scenario run; higher is better. It blends peg
// stability, bad-debt ratio, halt ratio, and liquidation intensity into a
// single negated-cost figure.
func (e *Engine) Score(s *scenario.Scenario) float64 {
	if len(s.Metrics) == 0 {
		return math.Inf(-1)
	}
	n := float64(len(s.Metrics))

	var devSum float64
	var maxDebt float64 = 1.0
	var haltBlocks float64
	var totalLiqs uint32
	for _, m := range s.Metrics {
		devSum += math.Abs((m.AmmSpotPrice - e.TargetPrice) / e.TargetPrice)
		if m.TotalDebt > maxDebt {
			maxDebt = m.TotalDebt
		}
		if m.Halted {
			haltBlocks++
		}
		totalLiqs += m.LiquidationCount
	}
	meanDev := devSum / n
	badDebt := s.Metrics[len(s.Metrics)-1].BadDebt
	badDebtRatio := badDebt / maxDebt
	haltRatio := haltBlocks / n
	liqRatio := float64(totalLiqs) / n

	return -(0.4*meanDev + 0.3*badDebtRatio + 0.2*haltRatio + 0.1*liqRatio)
}

// ApplyParams overrides the named fields of cfg with the given parameter
// combination. Exported so callers outside the engine (e.g. a single
// --param/--values sweep from the CLI) can reuse the same name-to-field
// mapping as the grid/Monte-Carlo engine.
func ApplyParams(cfg *scenario.Config, params []ParamValue) {
	applyParams(cfg, params)
}

// applyParams overrides the named fields of cfg with the sweep combination.
func applyParams(cfg *scenario.Config, params []ParamValue) {
	for _, p := range params {
		switch p.Name {
		case "min_ratio":
			cfg.CdpConfig.MinRatio = p.Value
		case "swap_fee":
			cfg.AmmSwapFee = p.Value
		case "liquidation_penalty":
			cfg.CdpConfig.LiquidationPenalty = p.Value
		case "stability_fee_rate":
			cfg.CdpConfig.StabilityFeeRate = p.Value
		case "twap_breaker_threshold":
			cfg.TwapBreakerConfig.MaxTwapChangePct = p.Value
		case "cascade_max_liqs":
			cfg.CascadeBreakerConfig.MaxLiquidationsInWindow = uint32(p.Value)
		}
	}
}

// CartesianProduct expands a parameter list into every combination.
func CartesianProduct(params []Param) [][]ParamValue {
	if len(params) == 0 {
		return [][]ParamValue{{}}
	}

	rest := CartesianProduct(params[1:])
	var result [][]ParamValue
	for _, v := range params[0].Values {
		for _, combo := range rest {
			newCombo := make([]ParamValue, 0, len(combo)+1)
			newCombo = append(newCombo, ParamValue{Name: params[0].Name, Value: v})
			newCombo = append(newCombo, combo...)
			result = append(result, newCombo)
		}
	}
	return result
}

// runConcurrent evaluates fn over each index of work, bounded by e.Workers
// (0 means unbounded), and returns the results in input order.
func (e *Engine) runConcurrent(n int, fn func(i int) Result) []Result {
	results := make([]Result, n)
	limit := e.Workers
	if limit <= 0 || limit > n {
		limit = n
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(i)
		}(i)
	}
	wg.Wait()
	return results
}

// RunGrid evaluates every parameter combination against every scenario.
func (e *Engine) RunGrid(params []Param, scenarioIDs []scenarios.ID) []Result {
	combos := CartesianProduct(params)

	return e.runConcurrent(len(combos), func(i int) Result {
		combo := combos[i]
		scores := make([]ScenarioScore, 0, len(scenarioIDs))
		var total float64

		for _, sid := range scenarioIDs {
			cfg := scenario.DefaultConfig()
			applyParams(&cfg, combo)
			s := scenarios.RunStress(sid, cfg, e.Blocks, e.Seed)
			sc := e.Score(s)
			scores = append(scores, ScenarioScore{ID: sid, Score: sc})
			total += sc
		}

		return Result{
			Params:       combo,
			Scores:       scores,
			OverallScore: total / float64(len(scenarioIDs)),
		}
	})
}

// RunMonteCarlo re-evaluates each configuration across multiple seeded
// iterations per scenario, for robustness against a single lucky/unlucky
// price path.
func (e *Engine) RunMonteCarlo(configs [][]ParamValue, scenarioIDs []scenarios.ID, iterations int) []Result {
	return e.runConcurrent(len(configs), func(i int) Result {
		combo := configs[i]

		type accum struct {
			total float64
			n     int
		}
		totals := make(map[scenarios.ID]*accum, len(scenarioIDs))
		for _, sid := range scenarioIDs {
			totals[sid] = &accum{}
		}

		var totalScore float64
		var count int
		for iter := 0; iter < iterations; iter++ {
			seed := e.Seed + uint64(iter)
			for _, sid := range scenarioIDs {
				cfg := scenario.DefaultConfig()
				applyParams(&cfg, combo)
				s := scenarios.RunStress(sid, cfg, e.Blocks, seed)
				sc := e.Score(s)
				totals[sid].total += sc
				totals[sid].n++
				totalScore += sc
				count++
			}
		}

		scores := make([]ScenarioScore, 0, len(scenarioIDs))
		for _, sid := range scenarioIDs {
			a := totals[sid]
			scores = append(scores, ScenarioScore{ID: sid, Score: a.total / float64(a.n)})
		}

		return Result{
			Params:       combo,
			Scores:       scores,
			OverallScore: totalScore / float64(count),
		}
	})
}

// RefineParams narrows the original parameter ranges to 5 values centered on
// the best result's setting for each parameter, spanning roughly +/-30%.
func RefineParams(results []Result, original []Param) []Param {
	if len(results) == 0 {
		return original
	}

	best := results[0]
	refined := make([]Param, 0, len(original))
	for _, param := range original {
		bestVal := param.Values[len(param.Values)/2]
		for _, p := range best.Params {
			if p.Name == param.Name {
				bestVal = p.Value
				break
			}
		}

		delta := bestVal * 0.15
		values := make([]float64, 0, 5)
		for i := -2; i <= 2; i++ {
			v := bestVal + delta*float64(i)
			if v < 0.001 {
				v = 0.001
			}
			values = append(values, v)
		}

		refined = append(refined, Param{Name: param.Name, Values: values})
	}
	return refined
}

// SortResults orders results by descending overall score.
func SortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})
}

// DefaultCoarseParams returns the default 4-parameter coarse grid for the
// staged sweep.
func DefaultCoarseParams() []Param {
	return []Param{
		{Name: "min_ratio", Values: []float64{1.2, 1.5, 2.0}},
		{Name: "swap_fee", Values: []float64{0.001, 0.003, 0.01}},
		{Name: "liquidation_penalty", Values: []float64{0.05, 0.13, 0.20}},
		{Name: "stability_fee_rate", Values: []float64{0.01, 0.02, 0.05}},
	}
}

var coarseScenarios = []scenarios.ID{
	scenarios.SteadyState,
	scenarios.BlackThursday,
	scenarios.SustainedBear,
	scenarios.OracleComparison,
}

// RunFullSweep runs the standard 4-stage sweep: coarse grid, fine grid
// around the coarse winner, Monte Carlo on the top 20, and final validation
// on the top 3.
func (e *Engine) RunFullSweep() []Result {
	return e.RunStagedSweep(DefaultCoarseParams(), 20, 1000, 3, 10000)
}

// RunStagedSweep runs a configurable 4-stage sweep: coarse grid on four
// canonical scenarios, a fine grid refined around the coarse winner across
// all scenarios, Monte Carlo validation of the top topNMc configs, and a
// final higher-iteration Monte Carlo pass on the top topNFinal. Exposed with
// tunable counts so tests can run a cheap version of the same pipeline.
func (e *Engine) RunStagedSweep(coarseParams []Param, topNMc, mcIterations, topNFinal, finalIterations int) []Result {
	allScenarios := scenarios.All()

	coarseResults := e.RunGrid(coarseParams, coarseScenarios)
	SortResults(coarseResults)

	fineParams := RefineParams(coarseResults, coarseParams)
	fineResults := e.RunGrid(fineParams, allScenarios)
	SortResults(fineResults)

	topMc := make([][]ParamValue, 0, topNMc)
	for i := 0; i < topNMc && i < len(fineResults); i++ {
		topMc = append(topMc, fineResults[i].Params)
	}
	mcResults := e.RunMonteCarlo(topMc, allScenarios, mcIterations)
	SortResults(mcResults)

	topFinal := make([][]ParamValue, 0, topNFinal)
	for i := 0; i < topNFinal && i < len(mcResults); i++ {
		topFinal = append(topFinal, mcResults[i].Params)
	}
	finalResults := e.RunMonteCarlo(topFinal, allScenarios, finalIterations)
	SortResults(finalResults)

	return finalResults
}
