package hcl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
)

// AssertSettingsEqual compares two run settings in tests. Floats decoded
// from HCL and JSON may differ in the last bit, so they are compared with a
// relative tolerance.
func AssertSettingsEqual(t *testing.T, expected, actual *structure.Settings) {
	t.Helper()
	if expected == nil || actual == nil {
		if expected != actual {
			t.Fatalf("settings mismatch: expected %v, got %v", expected, actual)
		}
		return
	}

	opts := cmp.Options{
		cmpopts.EquateApprox(1e-12, 0),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("settings mismatch (-expected +actual):\n%s", diff)
	}
}
