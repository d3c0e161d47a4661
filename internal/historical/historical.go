// Package historical loads hourly CryptoCompare-format OHLCV CSV files and
// linearly interpolates them into the per-block price series scenarios
// consume for replay testing.
package historical

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/luxfi/zaisim/internal/controller"
	"github.com/luxfi/zaisim/internal/scenario"
)

// LoadHourlyPrices reads the `close` column (index 5, 0-based) from a
// CryptoCompare-format hourly CSV: timestamp,datetime,open,high,low,close,
// volume_from,volume_to.
func LoadHourlyPrices(csvPath string) ([]float64, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("load_hourly_prices: opening %s: %w", csvPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load_hourly_prices: parsing %s: %w", csvPath, err)
	}

	prices := make([]float64, 0, len(records))
	for i, rec := range records {
		if len(rec) <= 5 {
			return nil, fmt.Errorf("load_hourly_prices: row %d missing close column", i)
		}
		close, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("load_hourly_prices: row %d: %w", i, err)
		}
		prices = append(prices, close)
	}

	if len(prices) == 0 {
		return nil, fmt.Errorf("load_hourly_prices: %s contained no data rows", csvPath)
	}
	return prices, nil
}

// InterpolateToBlocks linearly interpolates N hourly prices into
// (N-1)*blocksPerHour per-block prices, dividing each hour into
// blocksPerHour equal segments whose first block equals the hourly close.
func InterpolateToBlocks(hourlyPrices []float64, blocksPerHour int) ([]float64, error) {
	if len(hourlyPrices) < 2 {
		return nil, fmt.Errorf("interpolate_to_blocks: need at least 2 hourly prices, got %d", len(hourlyPrices))
	}

	blockPrices := make([]float64, 0, (len(hourlyPrices)-1)*blocksPerHour)
	for i := 0; i < len(hourlyPrices)-1; i++ {
		p0, p1 := hourlyPrices[i], hourlyPrices[i+1]
		for j := 0; j < blocksPerHour; j++ {
			t := float64(j) / float64(blocksPerHour)
			blockPrices = append(blockPrices, p0+(p1-p0)*t)
		}
	}
	return blockPrices, nil
}

// ConfigForHistorical builds a scenario.Config for replaying historical
// data: AMM reserves sized so the starting spot price matches firstPrice,
// 200% min ratio, a 240-block TWAP window, and the Tick controller.
func ConfigForHistorical(firstPrice float64) scenario.Config {
	cfg := scenario.DefaultConfig()
	cfg.AmmInitialZec = 100_000.0
	cfg.AmmInitialZai = 100_000.0 * firstPrice
	cfg.CdpConfig.MinRatio = 2.0
	cfg.CdpConfig.TwapWindow = 240
	cfg.ControllerConfig = controller.DefaultTickConfig()
	cfg.InitialRedemptionPrice = firstPrice
	return cfg
}
