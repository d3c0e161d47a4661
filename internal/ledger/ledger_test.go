package ledger

import "testing"

func TestNewLedgerStartsAtZero(t *testing.T) {
	l := New()
	if l.BadDebt() != 0 || l.PenaltiesCollected() != 0 || l.KeeperRewards() != 0 {
		t.Fatalf("expected a fresh ledger to be all zero, got %+v", l)
	}
	if l.Entries() != 0 {
		t.Fatalf("expected zero entries, got %d", l.Entries())
	}
}

func TestRecordAccumulatesAcrossCalls(t *testing.T) {
	l := New()
	l.RecordBadDebt(100.5)
	l.RecordBadDebt(50.25)

	got := l.BadDebt()
	want := 150.75
	if diff := got - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected accumulated bad debt %.6f, got %.6f", want, got)
	}
	if l.Entries() != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Entries())
	}
}

func TestRecordFoldsAllThreeCounters(t *testing.T) {
	l := New()
	l.Record(10.0, 5.0, 2.5)

	if got := l.BadDebt(); got != 10.0 {
		t.Fatalf("expected bad debt 10.0, got %.6f", got)
	}
	if got := l.PenaltiesCollected(); got != 5.0 {
		t.Fatalf("expected penalties 5.0, got %.6f", got)
	}
	if got := l.KeeperRewards(); got != 2.5 {
		t.Fatalf("expected keeper rewards 2.5, got %.6f", got)
	}
	if l.Entries() != 3 {
		t.Fatalf("expected 3 entries for one Record call, got %d", l.Entries())
	}
}

func TestRecordClampsNegativeAmountsToZero(t *testing.T) {
	l := New()
	l.RecordBadDebt(-5.0)

	if got := l.BadDebt(); got != 0 {
		t.Fatalf("expected negative amounts to be clamped to zero, got %.6f", got)
	}
}

func TestReconcileAcceptsMatchingTotals(t *testing.T) {
	l := New()
	l.Record(1000.0, 200.0, 100.0)

	if err := l.Reconcile(1000.0, 200.0, 100.0, 1e-9); err != nil {
		t.Fatalf("expected matching totals to reconcile cleanly, got %v", err)
	}
}

func TestReconcileAcceptsSmallDriftWithinTolerance(t *testing.T) {
	l := New()
	l.Record(1000.0, 0, 0)

	// float-accumulated total drifted slightly from the ledger's integer total
	if err := l.Reconcile(1000.0001, 0, 0, 1e-6); err != nil {
		t.Fatalf("expected drift within tolerance to pass, got %v", err)
	}
}

func TestReconcileRejectsDriftBeyondTolerance(t *testing.T) {
	l := New()
	l.Record(1000.0, 0, 0)

	err := l.Reconcile(2000.0, 0, 0, 1e-6)
	if err == nil {
		t.Fatal("expected a large drift to fail reconciliation")
	}
}

func TestStringIncludesAllCounters(t *testing.T) {
	l := New()
	l.Record(1.0, 2.0, 3.0)

	s := l.String()
	if s == "" {
		t.Fatal("expected a non-empty string representation")
	}
}
