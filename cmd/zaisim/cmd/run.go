package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/zaisim/internal/agents"
	"github.com/luxfi/zaisim/internal/idgen"
	"github.com/luxfi/zaisim/internal/metrics"
	"github.com/luxfi/zaisim/internal/scenario"
)

func newRunCmd() *cobra.Command {
	var (
		pricesPath string
		outputDir  string
		arbers     int
		miners     int
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single simulation over a block,price CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := metrics.LoadPriceSeriesCSV(pricesPath)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			cfg := scenario.DefaultConfig()
			s := scenario.NewWithSeed(cfg, seed)
			s.RunID = idgen.RunID("run", seed, len(prices))
			for i := 0; i < arbers; i++ {
				s.Arbers = append(s.Arbers, agents.NewArbitrageur(agents.DefaultArbitrageurConfig()))
			}
			for i := 0; i < miners; i++ {
				s.Miners = append(s.Miners, agents.NewMinerAgent(agents.DefaultMinerAgentConfig()))
			}

			s.Run(prices)

			if err := metrics.SaveAll(s, cfg, cfg.InitialRedemptionPrice, outputDir); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			summary := metrics.ComputeSummary(s.Metrics, cfg.InitialRedemptionPrice)
			log.Info("run complete",
				zap.Int("blocks", len(s.Metrics)),
				zap.Float64("mean_peg_deviation", summary.MeanPegDeviation),
				zap.Uint32("liquidations", summary.TotalLiquidations),
				zap.Float64("bad_debt", summary.TotalBadDebt),
				zap.String("run_id", s.RunID.Short()),
				zap.String("output_dir", outputDir),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&pricesPath, "prices", "", "path to a block,price CSV (required)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "output", "output directory for metrics/events/config")
	cmd.Flags().IntVar(&arbers, "arbers", 1, "number of arbitrageur agents")
	cmd.Flags().IntVar(&miners, "miners", 1, "number of miner agents")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "RNG seed")
	_ = cmd.MarkFlagRequired("prices")
	return cmd
}
