package outreach

import (
	"testing"
	"time"
)

func TestRowFingerprint_Deterministic(t *testing.T) {
	row := []any{"SMITH, JANE", "000123", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), nil}
	a := rowFingerprint(row)
	b := rowFingerprint(row)
	if a != b {
		t.Fatalf("fingerprints differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d, want 64", len(a))
	}
}

func TestRowFingerprint_NilDiffersFromEmptyString(t *testing.T) {
	if rowFingerprint([]any{nil}) == rowFingerprint([]any{""}) {
		t.Fatal("nil and empty string should fingerprint differently")
	}
}

func TestRowFingerprint_SeparatorPreventsCellBleed(t *testing.T) {
	if rowFingerprint([]any{"ab", "c"}) == rowFingerprint([]any{"a", "bc"}) {
		t.Fatal("cell boundaries should affect the fingerprint")
	}
}

func TestRowFingerprint_TimeZoneNormalized(t *testing.T) {
	utc := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	other := utc.In(time.FixedZone("PST", -8*3600))
	if rowFingerprint([]any{utc}) != rowFingerprint([]any{other}) {
		t.Fatal("equal instants in different zones should fingerprint equally")
	}
}

func TestRowFingerprint_ValueChangesFingerprint(t *testing.T) {
	a := rowFingerprint([]any{"x", float64(1)})
	b := rowFingerprint([]any{"x", float64(2)})
	if a == b {
		t.Fatal("different values should fingerprint differently")
	}
}
