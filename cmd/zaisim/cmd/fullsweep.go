package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/zaisim/internal/metrics"
	"github.com/luxfi/zaisim/internal/sweep"
)

func newFullSweepCmd() *cobra.Command {
	var (
		blocks    int
		outputDir string
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "full-sweep",
		Short: "Run the full 4-stage parameter sweep: coarse grid, fine grid, Monte Carlo, final validation",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info("running full sweep", zap.Int("blocks_per_scenario", blocks), zap.Uint64("seed", seed))

			engine := sweep.New(blocks, seed, 50.0)
			results := engine.RunFullSweep()

			outPath := filepath.Join(outputDir, "sweep_results.csv")
			if err := metrics.SaveSweepResults(results, outPath); err != nil {
				return fmt.Errorf("full-sweep: %w", err)
			}
			log.Info("saved sweep results", zap.String("path", outPath), zap.Int("results", len(results)))

			top := results
			if len(top) > 3 {
				top = top[:3]
			}
			for i, r := range top {
				log.Info("top configuration",
					zap.Int("rank", i+1),
					zap.Float64("score", r.OverallScore),
					zap.Any("params", r.Params),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&blocks, "blocks", 500, "blocks per scenario run")
	cmd.Flags().StringVar(&outputDir, "output-dir", "output/full_sweep", "output directory")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "RNG seed")
	return cmd
}
