package cdp

import (
	"math"
	"testing"
)

type fakeTwap float64

func (f fakeTwap) GetTWAP(uint64) float64 { return float64(f) }

func TestOpenVaultAtExactlyMinRatioAccepted(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	// CR = collateral*price/debt = min_ratio => collateral = min_ratio*debt/price
	debt := 200.0
	collateral := r.Config.MinRatio * debt / float64(price)
	if _, err := r.OpenVault(price, "alice", collateral, debt, 1); err != nil {
		t.Fatalf("vault at exact min ratio should be accepted: %v", err)
	}
}

func TestOpenVaultBelowDebtFloorRejected(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	if _, err := r.OpenVault(price, "alice", 10, 1.0, 1); err == nil {
		t.Fatal("expected debt-floor rejection")
	}
}

func TestZeroDebtCollateralOnlyVaultPermitted(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	v, err := r.OpenVault(price, "alice", 1.0, 0, 1)
	if err != nil {
		t.Fatalf("zero-debt vault should be permitted: %v", err)
	}
	if math.IsInf(v.CollateralRatio(float64(price)), 0) == false {
		t.Fatal("CR should be +Inf for zero-debt vault")
	}
}

func TestPartialRepayBelowFloorRejected(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	v, _ := r.OpenVault(price, "alice", 10, 200, 1)
	if err := r.RepayZai(price, v.ID, 150, 2); err == nil {
		t.Fatal("partial repay leaving debt below floor should fail")
	}
}

func TestFullRepayToZeroAllowed(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	v, _ := r.OpenVault(price, "alice", 10, 200, 1)
	// Same block as opening, so no stability fee has accrued on top of 200.
	if err := r.RepayZai(price, v.ID, 200, 1); err != nil {
		t.Fatalf("full repay should succeed: %v", err)
	}
	if v.DebtZai != 0 {
		t.Fatalf("expected zero debt, got %f", v.DebtZai)
	}
}

func TestAccrueFeesCompounds(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	v, _ := r.OpenVault(price, "alice", 10, 200, 1)
	r.AccrueAllFees(1 + BlocksPerYear)
	expected := 200.0 * math.Pow(1+r.Config.StabilityFeeRate/BlocksPerYear, BlocksPerYear)
	if diff := v.DebtZai - expected; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected compounded debt ~%f, got %f", expected, v.DebtZai)
	}
	if diff := r.TotalDebt - v.DebtZai; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("total debt must match vault debt: %f vs %f", r.TotalDebt, v.DebtZai)
	}
}

func TestIsLiquidatable(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	v, _ := r.OpenVault(price, "alice", 10, 200, 1)
	if r.IsLiquidatable(price, v.ID) {
		t.Fatal("vault should be healthy at open")
	}
	crashed := fakeTwap(10.0)
	if !r.IsLiquidatable(crashed, v.ID) {
		t.Fatal("vault should be liquidatable after price crash")
	}
}

func TestTotalDebtConsistency(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	r.OpenVault(price, "a", 10, 200, 1)
	r.OpenVault(price, "b", 20, 400, 1)
	sum := 0.0
	for _, id := range r.SortedIDs() {
		v, _ := r.Get(id)
		sum += v.DebtZai
	}
	if sum != r.TotalDebt {
		t.Fatalf("total debt cache mismatch: cache=%f sum=%f", r.TotalDebt, sum)
	}
}

func TestVaultFingerprintIsStableAndSensitive(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	price := fakeTwap(50.0)
	v, _ := r.OpenVault(price, "alice", 10, 200, 1)

	fp1 := v.Fingerprint()
	fp2 := v.Fingerprint()
	if fp1 != fp2 {
		t.Fatal("expected repeated fingerprinting of an unchanged vault to match")
	}

	v.DebtZai += 1
	if v.Fingerprint() == fp1 {
		t.Fatal("expected changing debt to change the fingerprint")
	}
}
