// gold/columns_test.go
package gold

import "testing"

func TestResolveStrategyOrder(t *testing.T) {
	cols := []string{"frs_code", "frs_name", "e_code"}

	// The first strategy that hits wins, regardless of later ones.
	got, ok := Resolve(cols, Exact("e_code"), Exact("frs_code"))
	if !ok || got != "e_code" {
		t.Errorf("expected the first strategy to win with e_code, got %q (ok=%v)", got, ok)
	}

	// A missing strategy falls through to the next.
	got, ok = Resolve(cols, Exact("nothing_here"), Exact("frs_name"))
	if !ok || got != "frs_name" {
		t.Errorf("expected fallthrough to frs_name, got %q (ok=%v)", got, ok)
	}

	if _, ok := Resolve(cols, Exact("nothing_here")); ok {
		t.Error("expected no match when every strategy misses")
	}
}

func TestExactRanksCandidates(t *testing.T) {
	cols := []string{"fra_code", "frs_e_code"}
	got, ok := Exact("frs_e_code", "fra_code")(cols)
	if !ok || got != "frs_e_code" {
		t.Errorf("expected candidate order to outrank column order, got %q (ok=%v)", got, ok)
	}
}

func TestSubstrings(t *testing.T) {
	cols := []string{"lsoa_frs_name", "frs_name"}
	got, ok := Substrings([]string{"frs", "name"}, []string{"lsoa"})(cols)
	if !ok || got != "frs_name" {
		t.Errorf("expected excluded fragment to skip the first column, got %q (ok=%v)", got, ok)
	}
}

func TestAnySubstring(t *testing.T) {
	cols := []string{"lsoa_code", "incident_code", "area_code"}
	got, ok := AnySubstring("code", []string{"frs", "e_", "area"}, []string{"lsoa", "incident"})(cols)
	if !ok || got != "area_code" {
		t.Errorf("expected area_code, got %q (ok=%v)", got, ok)
	}
}

func TestPrefixSuffix(t *testing.T) {
	cols := []string{"lsoa21nm", "lad23cd", "lad23nm"}
	got, ok := PrefixSuffix("lad", "cd")(cols)
	if !ok || got != "lad23cd" {
		t.Errorf("expected lad23cd, got %q (ok=%v)", got, ok)
	}
	if _, ok := PrefixSuffix("fra", "cd")(cols); ok {
		t.Error("expected no match for absent prefix")
	}
}
