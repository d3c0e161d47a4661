package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/zaisim/internal/agents"
	"github.com/luxfi/zaisim/internal/metrics"
	"github.com/luxfi/zaisim/internal/scenario"
	"github.com/luxfi/zaisim/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	var (
		pricesPath string
		outputDir  string
		param      string
		valuesCSV  string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Replay a price series once per value of a single swept parameter",
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := metrics.LoadPriceSeriesCSV(pricesPath)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}

			values, err := parseValues(valuesCSV)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}

			log.Info("sweeping", zap.String("param", param), zap.Int("values", len(values)), zap.Int("blocks", len(prices)))

			for _, v := range values {
				cfg := scenario.DefaultConfig()
				sweep.ApplyParams(&cfg, []sweep.ParamValue{{Name: param, Value: v}})

				s := scenario.New(cfg)
				s.Arbers = append(s.Arbers, agents.NewArbitrageur(agents.DefaultArbitrageurConfig()))
				s.Miners = append(s.Miners, agents.NewMinerAgent(agents.DefaultMinerAgentConfig()))
				s.Run(prices)

				outPath := filepath.Join(outputDir, fmt.Sprintf("%s_%.4f.csv", param, v))
				if err := s.SaveMetricsCSV(outPath); err != nil {
					log.Error("sweep value failed", zap.String("param", param), zap.Float64("value", v), zap.Error(err))
					continue
				}
				log.Info("sweep value complete", zap.String("param", param), zap.Float64("value", v), zap.String("output", outPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pricesPath, "prices", "", "path to a block,price CSV (required)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "output/sweep", "output directory for per-value metrics CSVs")
	cmd.Flags().StringVar(&param, "param", "", "parameter to sweep (min_ratio, swap_fee, liquidation_penalty, stability_fee_rate, twap_breaker_threshold, cascade_max_liqs)")
	cmd.Flags().StringVar(&valuesCSV, "values", "", "comma-separated values to sweep (required)")
	_ = cmd.MarkFlagRequired("prices")
	_ = cmd.MarkFlagRequired("param")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func parseValues(csv string) ([]float64, error) {
	parts := strings.Split(csv, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sweep value %q: %w", p, err)
		}
		values = append(values, v)
	}
	return values, nil
}
