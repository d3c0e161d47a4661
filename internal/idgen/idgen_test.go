package idgen

import "testing"

func TestVaultFingerprintIsDeterministic(t *testing.T) {
	a := VaultFingerprint("alice", 10, 5.0, 100.0)
	b := VaultFingerprint("alice", 10, 5.0, 100.0)
	if a != b {
		t.Fatalf("expected identical inputs to produce identical fingerprints, got %s vs %s", a.Hex(), b.Hex())
	}
}

func TestVaultFingerprintDiffersOnAnyField(t *testing.T) {
	base := VaultFingerprint("alice", 10, 5.0, 100.0)

	cases := []ID{
		VaultFingerprint("bob", 10, 5.0, 100.0),
		VaultFingerprint("alice", 11, 5.0, 100.0),
		VaultFingerprint("alice", 10, 5.1, 100.0),
		VaultFingerprint("alice", 10, 5.0, 100.01),
	}
	for i, c := range cases {
		if c == base {
			t.Fatalf("case %d: expected a changed field to change the fingerprint", i)
		}
	}
}

func TestPositionFingerprintIsDeterministic(t *testing.T) {
	a := PositionFingerprint("lp1", 1000, 42)
	b := PositionFingerprint("lp1", 1000, 42)
	if a != b {
		t.Fatal("expected identical inputs to produce identical fingerprints")
	}
}

func TestRunIDIsStableForSameInputsAndVariesOtherwise(t *testing.T) {
	a := RunID("steady_state", 42, 1000)
	b := RunID("steady_state", 42, 1000)
	if a != b {
		t.Fatal("expected the same scenario/seed/blocks to stamp the same run id")
	}

	if c := RunID("black_thursday", 42, 1000); c == a {
		t.Fatal("expected a different scenario name to produce a different run id")
	}
	if c := RunID("steady_state", 7, 1000); c == a {
		t.Fatal("expected a different seed to produce a different run id")
	}
	if c := RunID("steady_state", 42, 2000); c == a {
		t.Fatal("expected a different block count to produce a different run id")
	}
}

func TestHexAndShort(t *testing.T) {
	id := RunID("steady_state", 42, 1000)
	hexStr := id.Hex()
	if len(hexStr) != 64 {
		t.Fatalf("expected a 32-byte digest to hex-encode to 64 chars, got %d", len(hexStr))
	}
	short := id.Short()
	if len(short) != 8 {
		t.Fatalf("expected Short() to return 8 hex chars, got %d (%q)", len(short), short)
	}
	if hexStr[:8] != short {
		t.Fatalf("expected Short() to be the prefix of Hex(), got %q vs %q", short, hexStr)
	}
}
