// Package report evaluates a scenario run against pass/fail release
// criteria and renders the Chart.js HTML dashboard (plus a master summary
// across many runs).
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/luxfi/zaisim/internal/metrics"
	"github.com/luxfi/zaisim/internal/scenario"
)

const blocksPerHour = 48

// Verdict is the severity of a pass/fail evaluation.
type Verdict int

const (
	Pass Verdict = iota
	SoftFail
	HardFail
)

// Label returns the verdict's dashboard badge text.
func (v Verdict) Label() string {
	switch v {
	case Pass:
		return "PASS"
	case SoftFail:
		return "SOFT FAIL"
	case HardFail:
		return "HARD FAIL"
	default:
		return "UNKNOWN"
	}
}

// CSSClass returns the verdict's badge CSS class.
func (v Verdict) CSSClass() string {
	switch v {
	case Pass:
		return "pass"
	case SoftFail:
		return "soft-fail"
	case HardFail:
		return "hard-fail"
	default:
		return ""
	}
}

// CriterionResult is a single named pass/fail check.
type CriterionResult struct {
	Name     string
	Passed   bool
	Severity Verdict
	Details  string
}

// PassFailResult is the combined outcome of every release criterion.
type PassFailResult struct {
	Overall  Verdict
	Criteria []CriterionResult
}

// EvaluatePassFail runs every release criterion against a metrics series:
// three hard-fail checks (solvency, bad debt, death spiral), three soft-fail
// checks (sustained peg deviation, slow recovery, volatility ratio), and one
// informational check (recovery under 24 hours). The overall verdict is the
// worst severity among the failed criteria; the informational check is
// reported but never changes it.
func EvaluatePassFail(m []scenario.BlockMetrics, targetPrice float64) PassFailResult {
	var criteria []CriterionResult
	worst := Pass

	insolvent := false
	for _, b := range m {
		if b.TotalDebt > 0 && b.TotalCollateral*b.TwapPrice < b.TotalDebt {
			insolvent = true
			break
		}
	}
	solvencyDetails := "System remained solvent throughout"
	if insolvent {
		solvencyDetails = "System became insolvent (collateral value < total debt)"
		worst = HardFail
	}
	criteria = append(criteria, CriterionResult{
		Name: "Solvency", Passed: !insolvent, Severity: HardFail, Details: solvencyDetails,
	})

	maxDebt := 1.0
	for _, b := range m {
		if b.TotalDebt > maxDebt {
			maxDebt = b.TotalDebt
		}
	}
	var finalBadDebt float64
	if len(m) > 0 {
		finalBadDebt = m[len(m)-1].BadDebt
	}
	badDebtPct := finalBadDebt / maxDebt * 100.0
	badDebtFail := badDebtPct > 5.0
	if badDebtFail {
		worst = HardFail
	}
	criteria = append(criteria, CriterionResult{
		Name: "Bad debt < 5%", Passed: !badDebtFail, Severity: HardFail,
		Details: fmt.Sprintf("Bad debt ratio: %.2f%% of peak debt", badDebtPct),
	})

	deathSpiral := false
	if len(m) > 200 {
		initial := m[0].AmmSpotPrice
		final := m[len(m)-1].AmmSpotPrice
		dropped := final < initial*0.1
		start := len(m) - 100
		if start < 0 {
			start = 0
		}
		noRecovery := true
		for _, b := range m[start:] {
			if b.AmmSpotPrice >= initial*0.15 {
				noRecovery = false
				break
			}
		}
		deathSpiral = dropped && noRecovery
	}
	deathSpiralDetails := "No death spiral detected"
	if deathSpiral {
		deathSpiralDetails = "Price collapsed >90% with no recovery"
		worst = HardFail
	}
	criteria = append(criteria, CriterionResult{
		Name: "No death spiral", Passed: !deathSpiral, Severity: HardFail, Details: deathSpiralDetails,
	})

	var consecutiveDeviation, maxConsecutive uint64
	for _, b := range m {
		dev := math.Abs((b.AmmSpotPrice - targetPrice) / targetPrice)
		if dev > 0.20 {
			consecutiveDeviation++
			if consecutiveDeviation > maxConsecutive {
				maxConsecutive = consecutiveDeviation
			}
		} else {
			consecutiveDeviation = 0
		}
	}
	sustainedDeviation := maxConsecutive > blocksPerHour
	if sustainedDeviation && worst == Pass {
		worst = SoftFail
	}
	criteria = append(criteria, CriterionResult{
		Name: "Peg deviation < 20% sustained", Passed: !sustainedDeviation, Severity: SoftFail,
		Details: fmt.Sprintf("Max consecutive blocks with >20%% deviation: %d (limit: %d)", maxConsecutive, uint64(blocksPerHour)),
	})

	recoveryBlocks := computeRecoveryBlocks(m, targetPrice, 0.10)
	slowRecovery := recoveryBlocks > blocksPerHour*72
	if slowRecovery && worst == Pass {
		worst = SoftFail
	}
	criteria = append(criteria, CriterionResult{
		Name: "Recovery < 72 hours", Passed: !slowRecovery, Severity: SoftFail,
		Details: fmt.Sprintf("Recovery time: %d blocks (%.1f hours)", recoveryBlocks, float64(recoveryBlocks)/blocksPerHour),
	})

	fastRecovery := recoveryBlocks <= blocksPerHour*24
	criteria = append(criteria, CriterionResult{
		Name: "Recovery < 24 hours", Passed: fastRecovery, Severity: SoftFail,
		Details: fmt.Sprintf("Recovery: %d blocks (%.1fh)", recoveryBlocks, float64(recoveryBlocks)/blocksPerHour),
	})

	meanPrice, stdPrice := priceStats(m)
	volRatio := 0.0
	if meanPrice > 0.0 {
		volRatio = stdPrice / meanPrice
	}
	lowVol := volRatio < 0.3
	if !lowVol && worst == Pass {
		worst = SoftFail
	}
	criteria = append(criteria, CriterionResult{
		Name: "Volatility ratio < 0.3", Passed: lowVol, Severity: SoftFail,
		Details: fmt.Sprintf("Volatility ratio: %.4f (std/mean)", volRatio),
	})

	return PassFailResult{Overall: worst, Criteria: criteria}
}

func computeRecoveryBlocks(m []scenario.BlockMetrics, target, threshold float64) uint64 {
	var first, last uint64
	var seen bool
	for _, b := range m {
		dev := math.Abs((b.AmmSpotPrice - target) / target)
		if dev > threshold {
			if !seen {
				first = b.Block
				seen = true
			}
			last = b.Block
		}
	}
	if !seen {
		return 0
	}
	return last - first
}

func priceStats(m []scenario.BlockMetrics) (mean, std float64) {
	if len(m) == 0 {
		return 0, 0
	}
	n := float64(len(m))
	for _, b := range m {
		mean += b.AmmSpotPrice
	}
	mean /= n
	var variance float64
	for _, b := range m {
		d := b.AmmSpotPrice - mean
		variance += d * d
	}
	variance /= n
	return mean, math.Sqrt(variance)
}

func jsArrayF64(data []float64) string {
	items := make([]string, len(data))
	for i, v := range data {
		items[i] = fmt.Sprintf("%.4f", v)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func jsArrayU64(data []uint64) string {
	items := make([]string, len(data))
	for i, v := range data {
		items[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func jsArrayU32(data []uint32) string {
	items := make([]string, len(data))
	for i, v := range data {
		items[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func criteriaHTML(result PassFailResult) string {
	var b strings.Builder
	for _, c := range result.Criteria {
		class := "crit-pass"
		icon := "PASS"
		if !c.Passed {
			icon = "FAIL"
			if c.Severity == HardFail {
				class = "crit-fail"
			} else {
				class = "crit-warn"
			}
		}
		fmt.Fprintf(&b, "<tr class=\"criterion-row\"><td>%s</td><td class=\"%s\">%s</td><td>%s</td><td>%s</td></tr>\n",
			c.Name, class, icon, c.Severity.Label(), c.Details)
	}
	return b.String()
}

func configToJSON(cfg scenario.Config) string {
	return fmt.Sprintf(
		`{"amm_initial_zec":%.1f,"amm_initial_zai":%.1f,"swap_fee":%.4f,"min_ratio":%.2f,"liquidation_penalty":%.2f,"stability_fee_rate":%.4f,"debt_floor":%.0f,"twap_window":%d,"initial_redemption_price":%.2f,"stochastic":%t,"noise_sigma":%.4f}`,
		cfg.AmmInitialZec, cfg.AmmInitialZai, cfg.AmmSwapFee,
		cfg.CdpConfig.MinRatio, cfg.CdpConfig.LiquidationPenalty, cfg.CdpConfig.StabilityFeeRate,
		cfg.CdpConfig.DebtFloor, cfg.CdpConfig.TwapWindow, cfg.InitialRedemptionPrice,
		cfg.Stochastic, cfg.NoiseSigma,
	)
}

func summaryToJSON(s metrics.Summary) string {
	return fmt.Sprintf(
		`{"total_blocks":%d,"mean_peg_deviation":%.6f,"max_peg_deviation":%.6f,"final_peg_deviation":%.6f,"total_liquidations":%d,"total_bad_debt":%.2f,"breaker_triggers":%d,"halt_blocks":%d,"final_amm_price":%.4f,"final_redemption_price":%.6f}`,
		s.TotalBlocks, s.MeanPegDeviation, s.MaxPegDeviation, s.FinalPegDeviation,
		s.TotalLiquidations, s.TotalBadDebt, s.BreakerTriggers, s.HaltBlocks,
		s.FinalAmmPrice, s.FinalRedemptionPrice,
	)
}

// reportData is the template context for the per-scenario dashboard. Every
// numeric value is pre-formatted to the exact precision the dashboard
// displays, since text/template has no printf-style field formatting.
type reportData struct {
	ScenarioName string
	VerdictClass string
	VerdictLabel string

	TotalBlocks     uint64
	MeanDev         string
	MaxDev          string
	TotalLiqs       uint32
	BadDebtTotal    string
	BreakerTriggers uint32
	HaltBlocks      uint64
	FinalPrice      string

	AmmZec      string
	AmmZai      string
	SwapFee     string
	MinRatio    string
	LiqPenalty  string
	StabFee     string
	DebtFloor   string
	TwapThresh  string
	CascadeMax  uint32
	DebtCeil    string
	TargetPrice string

	CriteriaRows string

	JSBlocks, JSExt, JSSpot, JSTwap, JSRedp, JSRedr, JSDebt string
	JSRzec, JSRzai, JSLiqs, JSBd, JSColl, JSCr, JSK, JSLp   string
	JSArb, JSArbZec, JSFees, JSIl, JSCrExt, JSZombies      string

	ConfigJSON  string
	SummaryJSON string
}

// GenerateReport renders the full Chart.js HTML dashboard for one scenario
// run: an executive summary, parameter table, ten charts, and a pass/fail
// criteria table.
func GenerateReport(m []scenario.BlockMetrics, cfg scenario.Config, scenarioName string, targetPrice float64) (string, error) {
	verdict := EvaluatePassFail(m, targetPrice)
	summary := metrics.ComputeSummary(m, targetPrice)

	n := len(m)
	blocks := make([]uint64, n)
	extPrices := make([]float64, n)
	spotPrices := make([]float64, n)
	twapPrices := make([]float64, n)
	redemptionPrices := make([]float64, n)
	redemptionRates := make([]float64, n)
	totalDebt := make([]float64, n)
	reserveZec := make([]float64, n)
	reserveZai := make([]float64, n)
	liqCounts := make([]uint32, n)
	badDebt := make([]float64, n)
	totalCollateral := make([]float64, n)
	totalLp := make([]float64, n)
	arberZai := make([]float64, n)
	arberZec := make([]float64, n)
	cumFees := make([]float64, n)
	cumIl := make([]float64, n)
	zombieCounts := make([]uint32, n)
	ammK := make([]float64, n)
	collRatio := make([]float64, n)
	crExt := make([]float64, n)

	for i, b := range m {
		blocks[i] = b.Block
		extPrices[i] = b.ExternalPrice
		spotPrices[i] = b.AmmSpotPrice
		twapPrices[i] = b.TwapPrice
		redemptionPrices[i] = b.RedemptionPrice
		redemptionRates[i] = b.RedemptionRate
		totalDebt[i] = b.TotalDebt
		reserveZec[i] = b.AmmReserveZec
		reserveZai[i] = b.AmmReserveZai
		liqCounts[i] = b.LiquidationCount
		badDebt[i] = b.BadDebt
		totalCollateral[i] = b.TotalCollateral
		totalLp[i] = b.TotalLpShares
		arberZai[i] = b.ArberZaiTotal
		arberZec[i] = b.ArberZecTotal
		cumFees[i] = b.CumulativeFeesZai
		cumIl[i] = b.CumulativeIlPct * 100.0
		zombieCounts[i] = b.ZombieVaultCount
		ammK[i] = b.AmmReserveZec * b.AmmReserveZai
		if b.TotalDebt > 0 {
			collRatio[i] = b.TotalCollateral * b.TwapPrice / b.TotalDebt
			crExt[i] = b.TotalCollateral * b.ExternalPrice / b.TotalDebt
		}
	}

	data := reportData{
		ScenarioName:    scenarioName,
		VerdictClass:    verdict.Overall.CSSClass(),
		VerdictLabel:    verdict.Overall.Label(),
		TotalBlocks:     summary.TotalBlocks,
		MeanDev:         fmt.Sprintf("%.2f", summary.MeanPegDeviation*100.0),
		MaxDev:          fmt.Sprintf("%.2f", summary.MaxPegDeviation*100.0),
		TotalLiqs:       summary.TotalLiquidations,
		BadDebtTotal:    fmt.Sprintf("%.2f", summary.TotalBadDebt),
		BreakerTriggers: summary.BreakerTriggers,
		HaltBlocks:      summary.HaltBlocks,
		FinalPrice:      fmt.Sprintf("%.2f", summary.FinalAmmPrice),
		AmmZec:          fmt.Sprintf("%.0f", cfg.AmmInitialZec),
		AmmZai:          fmt.Sprintf("%.0f", cfg.AmmInitialZai),
		SwapFee:         fmt.Sprintf("%.4f", cfg.AmmSwapFee),
		MinRatio:        fmt.Sprintf("%.2f", cfg.CdpConfig.MinRatio),
		LiqPenalty:      fmt.Sprintf("%.2f", cfg.CdpConfig.LiquidationPenalty),
		StabFee:         fmt.Sprintf("%.4f", cfg.CdpConfig.StabilityFeeRate),
		DebtFloor:       fmt.Sprintf("%.0f", cfg.CdpConfig.DebtFloor),
		TwapThresh:      fmt.Sprintf("%.2f", cfg.TwapBreakerConfig.MaxTwapChangePct*100.0),
		CascadeMax:      cfg.CascadeBreakerConfig.MaxLiquidationsInWindow,
		DebtCeil:        fmt.Sprintf("%.0f", cfg.DebtCeilingConfig.InitialCeiling),
		TargetPrice:     fmt.Sprintf("%.2f", targetPrice),
		CriteriaRows:    criteriaHTML(verdict),
		JSBlocks:        jsArrayU64(blocks),
		JSExt:           jsArrayF64(extPrices),
		JSSpot:          jsArrayF64(spotPrices),
		JSTwap:          jsArrayF64(twapPrices),
		JSRedp:          jsArrayF64(redemptionPrices),
		JSRedr:          jsArrayF64(redemptionRates),
		JSDebt:          jsArrayF64(totalDebt),
		JSRzec:          jsArrayF64(reserveZec),
		JSRzai:          jsArrayF64(reserveZai),
		JSLiqs:          jsArrayU32(liqCounts),
		JSBd:            jsArrayF64(badDebt),
		JSColl:          jsArrayF64(totalCollateral),
		JSCr:            jsArrayF64(collRatio),
		JSK:             jsArrayF64(ammK),
		JSLp:            jsArrayF64(totalLp),
		JSArb:           jsArrayF64(arberZai),
		JSArbZec:        jsArrayF64(arberZec),
		JSFees:          jsArrayF64(cumFees),
		JSIl:            jsArrayF64(cumIl),
		JSCrExt:         jsArrayF64(crExt),
		JSZombies:       jsArrayU32(zombieCounts),
		ConfigJSON:      configToJSON(cfg),
		SummaryJSON:     summaryToJSON(summary),
	}

	var buf strings.Builder
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("generate_report: %w", err)
	}
	return buf.String(), nil
}

// ScenarioSummary is one row of a master summary across many runs.
type ScenarioSummary struct {
	Name    string
	Result  PassFailResult
	Summary metrics.Summary
}

type masterSummaryData struct {
	PassCount int
	Total     int
	Rows      string
	AllJSON   string
}

// GenerateMasterSummary renders a cross-scenario index page linking to each
// scenario's own dashboard.
func GenerateMasterSummary(entries []ScenarioSummary) (string, error) {
	passCount := 0
	for _, e := range entries {
		if e.Result.Overall == Pass {
			passCount++
		}
	}

	var rows strings.Builder
	var jsItems []string
	for _, e := range entries {
		fmt.Fprintf(&rows,
			"<tr><td><a href=\"%s.html\">%s</a></td><td><span class=\"badge %s\">%s</span></td>"+
				"<td>%.2f%%</td><td>%.2f</td><td>%d</td><td>%d</td><td>%.2f</td></tr>\n",
			e.Name, e.Name, e.Result.Overall.CSSClass(), e.Result.Overall.Label(),
			e.Summary.MeanPegDeviation*100.0, e.Summary.TotalBadDebt,
			e.Summary.TotalLiquidations, e.Summary.HaltBlocks, e.Summary.FinalAmmPrice,
		)
		jsItems = append(jsItems, fmt.Sprintf(
			`{name:"%s",verdict:"%s",mean_dev:%.6f,max_dev:%.6f,bad_debt:%.2f,liqs:%d,halts:%d,price:%.4f}`,
			e.Name, e.Result.Overall.Label(), e.Summary.MeanPegDeviation*100.0, e.Summary.MaxPegDeviation*100.0,
			e.Summary.TotalBadDebt, e.Summary.TotalLiquidations, e.Summary.HaltBlocks, e.Summary.FinalAmmPrice,
		))
	}

	data := masterSummaryData{
		PassCount: passCount,
		Total:     len(entries),
		Rows:      rows.String(),
		AllJSON:   "[" + strings.Join(jsItems, ",") + "]",
	}

	var buf strings.Builder
	if err := masterSummaryTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("generate_master_summary: %w", err)
	}
	return buf.String(), nil
}

// SaveReport writes rendered HTML to path, creating parent directories.
func SaveReport(html, path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save_report: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("save_report: %w", err)
	}
	return nil
}

// Both templates use "[[" / "]]" delimiters instead of the default "{{" /
// "}}" — the dashboard's embedded JavaScript is full of literal curly
// braces (object literals, arrow functions), which would otherwise collide
// with template actions.
var reportTemplate = template.Must(template.New("report").Delims("[[", "]]").Parse(reportTemplateSource))

var masterSummaryTemplate = template.Must(template.New("master").Delims("[[", "]]").Parse(masterSummaryTemplateSource))

const reportTemplateSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>ZAI Report — [[.ScenarioName]]</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
<style>
*{margin:0;padding:0;box-sizing:border-box}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f5f5f5;color:#333}
header{background:#1a1a2e;color:#fff;padding:24px 32px;display:flex;align-items:center;gap:20px}
header h1{font-size:1.4em;font-weight:500}
header h2{font-size:1.1em;font-weight:300;opacity:0.8}
.badge{padding:6px 16px;border-radius:4px;font-weight:700;font-size:0.9em;letter-spacing:0.5px}
.badge.pass{background:#34a853;color:#fff}
.badge.soft-fail{background:#ea8c00;color:#fff}
.badge.hard-fail{background:#ea4335;color:#fff}
main{max-width:1400px;margin:0 auto;padding:24px}
section{background:#fff;border-radius:8px;box-shadow:0 1px 3px rgba(0,0,0,0.1);padding:24px;margin-bottom:20px}
section h3{font-size:1.1em;margin-bottom:16px;color:#1a1a2e;border-bottom:2px solid #e0e0e0;padding-bottom:8px}
.metrics-grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(180px,1fr));gap:12px}
.metric{background:#f8f9fa;border-radius:6px;padding:12px;text-align:center}
.metric .label{display:block;font-size:0.75em;color:#666;text-transform:uppercase;letter-spacing:0.5px}
.metric .value{display:block;font-size:1.3em;font-weight:600;margin-top:4px}
table{width:100%;border-collapse:collapse;font-size:0.9em}
th,td{padding:8px 12px;text-align:left;border-bottom:1px solid #e0e0e0}
th{background:#f8f9fa;font-weight:600}
.chart-row{display:grid;grid-template-columns:1fr 1fr;gap:20px;margin-bottom:20px}
@media(max-width:900px){.chart-row{grid-template-columns:1fr}}
.chart-box{background:#fff;border-radius:8px;box-shadow:0 1px 3px rgba(0,0,0,0.1);padding:16px}
.chart-box h4{font-size:0.95em;margin-bottom:8px;color:#555}
canvas{width:100%!important;height:300px!important}
.criterion-row td:first-child{font-weight:600}
.crit-pass{color:#34a853}
.crit-fail{color:#ea4335}
.crit-warn{color:#ea8c00}
footer{text-align:center;padding:16px;color:#999;font-size:0.8em}
</style>
</head>
<body>
<header>
 <div>
  <h1>ZAI Simulation Report</h1>
  <h2>[[.ScenarioName]]</h2>
 </div>
 <span class="badge [[.VerdictClass]]">[[.VerdictLabel]]</span>
</header>
<main>

<section>
<h3>Executive Summary</h3>
<div class="metrics-grid">
 <div class="metric"><span class="label">Total Blocks</span><span class="value">[[.TotalBlocks]]</span></div>
 <div class="metric"><span class="label">Mean Peg Dev</span><span class="value">[[.MeanDev]]%</span></div>
 <div class="metric"><span class="label">Max Peg Dev</span><span class="value">[[.MaxDev]]%</span></div>
 <div class="metric"><span class="label">Total Liquidations</span><span class="value">[[.TotalLiqs]]</span></div>
 <div class="metric"><span class="label">Bad Debt</span><span class="value">[[.BadDebtTotal]]</span></div>
 <div class="metric"><span class="label">Breaker Triggers</span><span class="value">[[.BreakerTriggers]]</span></div>
 <div class="metric"><span class="label">Halt Blocks</span><span class="value">[[.HaltBlocks]]</span></div>
 <div class="metric"><span class="label">Final AMM Price</span><span class="value">[[.FinalPrice]]</span></div>
</div>
</section>

<section>
<h3>Parameters</h3>
<table>
<tr><th>Parameter</th><th>Value</th></tr>
<tr><td>AMM Initial ZEC</td><td>[[.AmmZec]]</td></tr>
<tr><td>AMM Initial ZAI</td><td>[[.AmmZai]]</td></tr>
<tr><td>Swap Fee</td><td>[[.SwapFee]]</td></tr>
<tr><td>Min Collateral Ratio</td><td>[[.MinRatio]]</td></tr>
<tr><td>Liquidation Penalty</td><td>[[.LiqPenalty]]</td></tr>
<tr><td>Stability Fee Rate</td><td>[[.StabFee]]</td></tr>
<tr><td>Debt Floor</td><td>[[.DebtFloor]]</td></tr>
<tr><td>TWAP Breaker Threshold</td><td>[[.TwapThresh]]%</td></tr>
<tr><td>Cascade Max Liquidations</td><td>[[.CascadeMax]]</td></tr>
<tr><td>Debt Ceiling</td><td>[[.DebtCeil]]</td></tr>
<tr><td>Target Price</td><td>[[.TargetPrice]]</td></tr>
</table>
</section>

<div class="chart-row">
 <div class="chart-box"><h4>Price Comparison</h4><canvas id="c1"></canvas></div>
 <div class="chart-box"><h4>System Health</h4><canvas id="c2"></canvas></div>
</div>
<div class="chart-row">
 <div class="chart-box"><h4>Liquidation Activity</h4><canvas id="c3"></canvas></div>
 <div class="chart-box"><h4>AMM State</h4><canvas id="c4"></canvas></div>
</div>
<div class="chart-row">
 <div class="chart-box"><h4>Controller Response</h4><canvas id="c5"></canvas></div>
 <div class="chart-box"><h4>Agent Activity</h4><canvas id="c6"></canvas></div>
</div>
<div class="chart-row">
 <div class="chart-box"><h4>AMM vs External Price Gap</h4><canvas id="c7"></canvas></div>
 <div class="chart-box"><h4>Zombie Vault CR Gap</h4><canvas id="c8"></canvas></div>
</div>
<div class="chart-row">
 <div class="chart-box"><h4>Arber Capital</h4><canvas id="c9"></canvas></div>
 <div class="chart-box"><h4>LP Economics</h4><canvas id="c10"></canvas></div>
</div>

<section>
<h3>Pass / Fail Criteria</h3>
<table>
<tr><th>Criterion</th><th>Result</th><th>Severity</th><th>Details</th></tr>
[[.CriteriaRows]]
</table>
</section>

<section>
<h3>Data Export</h3>
<div style="display:flex;gap:12px;flex-wrap:wrap">
<button onclick="downloadCSV()" style="padding:8px 20px;background:#4285f4;color:#fff;border:none;border-radius:4px;cursor:pointer;font-size:0.9em">Download CSV</button>
<button onclick="downloadConfig()" style="padding:8px 20px;background:#34a853;color:#fff;border:none;border-radius:4px;cursor:pointer;font-size:0.9em">Download Config JSON</button>
<button onclick="downloadSummary()" style="padding:8px 20px;background:#9c27b0;color:#fff;border:none;border-radius:4px;cursor:pointer;font-size:0.9em">Download Summary JSON</button>
</div>
</section>

</main>
<footer>Generated by zaisim</footer>

<script>
const B=[[.JSBlocks]];
const D={
 ext:[[.JSExt]],
 spot:[[.JSSpot]],
 twap:[[.JSTwap]],
 redp:[[.JSRedp]],
 redr:[[.JSRedr]],
 debt:[[.JSDebt]],
 rzec:[[.JSRzec]],
 rzai:[[.JSRzai]],
 liqs:[[.JSLiqs]],
 bd:[[.JSBd]],
 coll:[[.JSColl]],
 cr:[[.JSCr]],
 k:[[.JSK]],
 lp:[[.JSLp]],
 arb:[[.JSArb]],
 arbzec:[[.JSArbZec]],
 fees:[[.JSFees]],
 il:[[.JSIl]],
 crext:[[.JSCrExt]],
 zombies:[[.JSZombies]]
};
const mkDs=(l,c,d,o)=>{let s={label:l,data:d,borderColor:c,backgroundColor:c+'22',borderWidth:1.5,pointRadius:0,fill:false,tension:0.1};if(o)Object.assign(s,o);return s};
const lineOpts=(title,yLabel,extra)=>{let o={responsive:true,maintainAspectRatio:false,plugins:{title:{display:true,text:title},legend:{position:'bottom',labels:{boxWidth:12,font:{size:11}}}},scales:{x:{title:{display:true,text:'Block'},ticks:{maxTicksLimit:10}},y:{title:{display:true,text:yLabel},beginAtZero:false}}};if(extra)Object.assign(o.scales,extra);return o};
const y2={y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:''}}};

// 1. Price Comparison
new Chart(document.getElementById('c1'),{type:'line',data:{labels:B,datasets:[
 mkDs('External','#4285f4',D.ext),
 mkDs('Spot','#ea8c00',D.spot),
 mkDs('TWAP','#34a853',D.twap),
 mkDs('Redemption','#ea4335',D.redp,{borderDash:[6,3]})
]},options:lineOpts('Price Comparison','ZAI/ZEC Price')});

// 2. System Health
new Chart(document.getElementById('c2'),{type:'line',data:{labels:B,datasets:[
 mkDs('Collateral Ratio','#9c27b0',D.cr),
 mkDs('Total Debt','#009688',D.debt,{yAxisID:'y2'}),
 mkDs('AMM ZAI Reserve','#ff9800',D.rzai,{yAxisID:'y2'})
]},options:lineOpts('System Health','Collateral Ratio',{y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:'ZAI'}}})
});

// 3. Liquidation Activity
new Chart(document.getElementById('c3'),{type:'line',data:{labels:B,datasets:[
 mkDs('Liquidations','#e91e63',D.liqs,{type:'bar',backgroundColor:'#e91e6366'}),
 mkDs('Bad Debt','#ea4335',D.bd,{yAxisID:'y2'})
]},options:lineOpts('Liquidation Activity','Count',{y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:'Cumulative Bad Debt'}}})
});

// 4. AMM State
new Chart(document.getElementById('c4'),{type:'line',data:{labels:B,datasets:[
 mkDs('Reserve ZEC','#4285f4',D.rzec),
 mkDs('Reserve ZAI','#ea8c00',D.rzai),
 mkDs('k','#757575',D.k,{yAxisID:'y2',borderDash:[4,2]})
]},options:lineOpts('AMM State','Reserves',{y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:'k (ZEC*ZAI)'}}})
});

// 5. Controller Response
new Chart(document.getElementById('c5'),{type:'line',data:{labels:B,datasets:[
 mkDs('Redemption Price','#ea4335',D.redp),
 mkDs('Redemption Rate','#9c27b0',D.redr,{yAxisID:'y2'})
]},options:lineOpts('Controller Response','Price',{y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:'Rate (per block)'}}})
});

// 6. Agent Activity
new Chart(document.getElementById('c6'),{type:'line',data:{labels:B,datasets:[
 mkDs('Arber ZAI Balance','#4285f4',D.arb),
 mkDs('Total Collateral','#34a853',D.coll,{yAxisID:'y2'}),
 mkDs('LP Shares','#ff9800',D.lp,{yAxisID:'y2',borderDash:[4,2]})
]},options:lineOpts('Agent Activity','ZAI Balance',{y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:'Collateral / LP'}}})
});

// 7. AMM vs External Price Gap
(()=>{
 const gap=D.ext.map((e,i)=>Math.abs(D.spot[i]-e)/(e||1)*100);
 new Chart(document.getElementById('c7'),{type:'line',data:{labels:B,datasets:[
  mkDs('External','#4285f4',D.ext),
  mkDs('AMM Spot','#ea8c00',D.spot),
  mkDs('Gap %','#e91e63',gap,{yAxisID:'y2',fill:true,backgroundColor:'#e91e6333'})
 ]},options:lineOpts('AMM vs External Price','Price',{y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:'Gap %'}}})});
})();

// 8. Zombie Vault CR Gap
new Chart(document.getElementById('c8'),{type:'line',data:{labels:B,datasets:[
 mkDs('CR (TWAP-based)','#4285f4',D.cr),
 mkDs('CR (External-based)','#ea4335',D.crext),
 mkDs('Zombie Count','#e91e63',D.zombies,{yAxisID:'y2',type:'bar',backgroundColor:'#e91e6344'})
]},options:lineOpts('Zombie Vault CR Gap','Collateral Ratio',{y2:{position:'right',grid:{drawOnChartArea:false},title:{display:true,text:'Zombie Count'}}})
});

// 9. Arber Capital
(()=>{
 const arbTotal=D.arbzec.map((z,i)=>z*D.spot[i]+D.arb[i]);
 new Chart(document.getElementById('c9'),{type:'line',data:{labels:B,datasets:[
  mkDs('Arber ZAI','#4285f4',D.arb,{fill:true,backgroundColor:'#4285f433'}),
  mkDs('Arber ZEC (spot value)','#34a853',D.arbzec.map((z,i)=>z*D.spot[i]),{fill:true,backgroundColor:'#34a85333'}),
  mkDs('Total Capital','#ea4335',arbTotal,{borderDash:[6,3]})
 ]},options:lineOpts('Arber Capital','ZAI Value')});
})();

// 10. LP Economics
(()=>{
 const netPnl=D.fees.map((f,i)=>f+D.il[i]);
 new Chart(document.getElementById('c10'),{type:'line',data:{labels:B,datasets:[
  mkDs('Cumulative Fees (ZAI)','#34a853',D.fees),
  mkDs('Impermanent Loss %','#ea4335',D.il),
  mkDs('Net (Fees + IL)','#9c27b0',netPnl,{borderDash:[6,3]})
 ]},options:lineOpts('LP Economics','ZAI / %')});
})();

// Config and summary data for downloads
const CONFIG_JSON=[[.ConfigJSON]];
const SUMMARY_JSON=[[.SummaryJSON]];

function downloadBlob(data,filename,mime){
 const blob=new Blob([data],{type:mime});
 const url=URL.createObjectURL(blob);
 const a=document.createElement('a');
 a.href=url;a.download=filename;a.click();
 URL.revokeObjectURL(url);
}

function downloadCSV(){
 const headers=['block','external_price','amm_spot_price','twap_price','redemption_price','redemption_rate','total_debt','reserve_zec','reserve_zai','liquidations','bad_debt','total_collateral','collateral_ratio','k','lp_shares','arber_zai','arber_zec','cumulative_fees','il_pct','cr_ext','zombies'];
 let csv=headers.join(',')+'\n';
 for(let i=0;i<B.length;i++){
  csv+=[B[i],D.ext[i],D.spot[i],D.twap[i],D.redp[i],D.redr[i],D.debt[i],D.rzec[i],D.rzai[i],D.liqs[i],D.bd[i],D.coll[i],D.cr[i],D.k[i],D.lp[i],D.arb[i],D.arbzec[i],D.fees[i],D.il[i],D.crext[i],D.zombies[i]].join(',')+'\n';
 }
 downloadBlob(csv,'[[.ScenarioName]].csv','text/csv');
}

function downloadConfig(){
 downloadBlob(JSON.stringify(CONFIG_JSON,null,2),'[[.ScenarioName]]_config.json','application/json');
}

function downloadSummary(){
 downloadBlob(JSON.stringify(SUMMARY_JSON,null,2),'[[.ScenarioName]]_summary.json','application/json');
}
</script>
</body>
</html>`

const masterSummaryTemplateSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>ZAI Simulation — Master Summary</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f5f5f5;color:#333}
header{background:#1a1a2e;color:#fff;padding:24px 32px}
header h1{font-size:1.4em;font-weight:500}
.summary-line{margin-top:8px;font-size:1em;opacity:0.9}
main{max-width:1200px;margin:0 auto;padding:24px}
section{background:#fff;border-radius:8px;box-shadow:0 1px 3px rgba(0,0,0,0.1);padding:24px;margin-bottom:20px}
table{width:100%;border-collapse:collapse;font-size:0.9em}
th,td{padding:10px 14px;text-align:left;border-bottom:1px solid #e0e0e0}
th{background:#f8f9fa;font-weight:600}
a{color:#4285f4;text-decoration:none}
a:hover{text-decoration:underline}
.badge{padding:3px 10px;border-radius:3px;font-weight:700;font-size:0.8em}
.badge.pass{background:#34a853;color:#fff}
.badge.soft-fail{background:#ea8c00;color:#fff}
.badge.hard-fail{background:#ea4335;color:#fff}
footer{text-align:center;padding:16px;color:#999;font-size:0.8em}
</style>
</head>
<body>
<header>
 <h1>ZAI Simulation — Master Summary</h1>
 <div class="summary-line">[[.PassCount]] / [[.Total]] scenarios passed</div>
</header>
<main>
<section>
<table>
<tr>
 <th>Scenario</th><th>Verdict</th><th>Mean Peg Dev</th>
 <th>Bad Debt</th><th>Liquidations</th><th>Halt Blocks</th><th>Final Price</th>
</tr>
[[.Rows]]
</table>
</section>
<section>
<h3>Data Export</h3>
<button onclick="downloadAll()" style="padding:8px 20px;background:#4285f4;color:#fff;border:none;border-radius:4px;cursor:pointer;font-size:0.9em">Download All (CSV)</button>
</section>
<script>
const SCENARIOS=[[.AllJSON]];
function downloadAll(){
 let csv='scenario,verdict,mean_peg_deviation,max_peg_deviation,total_bad_debt,total_liquidations,halt_blocks,final_amm_price\n';
 for(const s of SCENARIOS){
  csv+=s.name+','+s.verdict+','+s.mean_dev+','+s.max_dev+','+s.bad_debt+','+s.liqs+','+s.halts+','+s.price+'\n';
 }
 const blob=new Blob([csv],{type:'text/csv'});
 const url=URL.createObjectURL(blob);
 const a=document.createElement('a');
 a.href=url;a.download='zai_all_scenarios.csv';a.click();
 URL.revokeObjectURL(url);
}
</script>
</main>
<footer>Generated by zaisim</footer>
</body>
</html>`
