package historical

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, rows []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hourly.csv")
	content := ""
	for _, r := range rows {
		content += r + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error writing fixture csv: %v", err)
	}
	return path
}

func TestLoadHourlyPricesParsesCloseColumn(t *testing.T) {
	path := writeCSV(t, []string{
		"1609459200,2021-01-01 00:00:00,29000,29500,28800,29300,1000,29000000",
		"1609462800,2021-01-01 01:00:00,29300,29600,29100,29450,950,27900000",
		"1609466400,2021-01-01 02:00:00,29450,29700,29200,29100,1100,32000000",
	})

	prices, err := LoadHourlyPrices(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{29300, 29450, 29100}
	if len(prices) != len(want) {
		t.Fatalf("expected %d prices, got %d", len(want), len(prices))
	}
	for i, p := range prices {
		if p != want[i] {
			t.Fatalf("row %d: expected %f, got %f", i, want[i], p)
		}
	}
}

func TestLoadHourlyPricesErrorsOnMissingColumn(t *testing.T) {
	path := writeCSV(t, []string{"1609459200,2021-01-01 00:00:00,29000"})

	if _, err := LoadHourlyPrices(path); err == nil {
		t.Fatal("expected an error for a row missing the close column")
	}
}

func TestLoadHourlyPricesErrorsOnEmptyFile(t *testing.T) {
	path := writeCSV(t, nil)

	if _, err := LoadHourlyPrices(path); err == nil {
		t.Fatal("expected an error for a file with no data rows")
	}
}

func TestLoadHourlyPricesErrorsOnMissingFile(t *testing.T) {
	if _, err := LoadHourlyPrices(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}

func TestInterpolateToBlocksLinearlyFillsEachHour(t *testing.T) {
	hourly := []float64{100, 110, 90}
	blocks, err := InterpolateToBlocks(hourly, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 8 {
		t.Fatalf("expected 8 block prices, got %d", len(blocks))
	}
	// First segment: 100 -> 110 over 4 steps, first block equals the hourly close.
	want := []float64{100, 102.5, 105, 107.5, 110, 105, 100, 95}
	for i, p := range blocks {
		if p != want[i] {
			t.Fatalf("block %d: expected %f, got %f", i, want[i], p)
		}
	}
}

func TestInterpolateToBlocksErrorsOnTooFewPrices(t *testing.T) {
	if _, err := InterpolateToBlocks([]float64{42.0}, 4); err == nil {
		t.Fatal("expected an error with fewer than 2 hourly prices")
	}
}

func TestConfigForHistoricalSizesReservesToFirstPrice(t *testing.T) {
	cfg := ConfigForHistorical(40.0)

	if cfg.AmmInitialZec != 100_000.0 {
		t.Fatalf("expected 100,000 ZEC reserve, got %f", cfg.AmmInitialZec)
	}
	if cfg.AmmInitialZai != 4_000_000.0 {
		t.Fatalf("expected ZAI reserve sized to first price, got %f", cfg.AmmInitialZai)
	}
	if cfg.CdpConfig.MinRatio != 2.0 {
		t.Fatalf("expected 200%% min ratio, got %f", cfg.CdpConfig.MinRatio)
	}
	if cfg.CdpConfig.TwapWindow != 240 {
		t.Fatalf("expected a 240-block twap window, got %d", cfg.CdpConfig.TwapWindow)
	}
	if cfg.InitialRedemptionPrice != 40.0 {
		t.Fatalf("expected redemption price pegged to first observed price, got %f", cfg.InitialRedemptionPrice)
	}
}
