// Package testutil provides shared test infrastructure for the casim
// packages. It must not import sim, so that sim's own tests can use it.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WriteTempFile writes content to name inside a fresh temp dir and returns
// the full path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertUnitInterval fails for every value outside [0, 1].
func AssertUnitInterval(t *testing.T, name string, values []float64) {
	t.Helper()
	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			t.Errorf("%s[%d] = %v, want value in [0, 1]", name, i, v)
		}
	}
}
