package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/zaisim/internal/historical"
	"github.com/luxfi/zaisim/internal/metrics"
)

func newFetchCmd() *cobra.Command {
	var (
		pricesPath    string
		outputDir     string
		blocksPerHour int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Load a CryptoCompare-format hourly CSV and interpolate it to block resolution",
		Long: `fetch reads an hourly OHLCV CSV (CryptoCompare's close-price export format)
and linearly interpolates it to one price per block, writing the interpolated
series to a CSV any of run/sweep/stress/full-sweep can consume via --prices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			hourly, err := historical.LoadHourlyPrices(pricesPath)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			log.Info("loaded hourly prices", zap.String("path", pricesPath), zap.Int("hours", len(hourly)))

			blocks, err := historical.InterpolateToBlocks(hourly, blocksPerHour)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}

			outPath := filepath.Join(outputDir, "interpolated_prices.csv")
			if err := metrics.SavePriceSeriesCSV(blocks, outPath); err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			log.Info("wrote interpolated block prices",
				zap.String("path", outPath), zap.Int("blocks", len(blocks)))
			return nil
		},
	}

	cmd.Flags().StringVar(&pricesPath, "prices", "", "path to the hourly CryptoCompare-format CSV (required)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "data", "output directory for the interpolated block-price CSV")
	cmd.Flags().IntVar(&blocksPerHour, "blocks-per-hour", 48, "blocks per hour (48 at a 75-second block time)")
	_ = cmd.MarkFlagRequired("prices")
	return cmd
}
