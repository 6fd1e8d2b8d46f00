// gold/dimensions_test.go
package gold

import (
	"testing"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/registry"
)

func newTestModeler(t *testing.T, store lake.Store) *Modeler {
	t.Helper()
	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return &Modeler{Store: store, Registry: reg}
}

func seedGeographyLookups(t *testing.T, store lake.Store) {
	t.Helper()
	lsoa := []lake.Row{
		{"lsoa21cd": "E01000001", "lsoa21nm": "Ward A", "msoa21cd": "E02000001", "msoa21nm": "Town A", "lad23cd": "E06000001", "lad23nm": "Hartlepool"},
		{"lsoa21cd": "E01000002", "lsoa21nm": "Ward B", "msoa21cd": "E02000001", "msoa21nm": "Town A", "lad23cd": "E06000001", "lad23nm": "Hartlepool"},
		// Duplicate LSOA row without an FRA match must lose to the matched one.
		{"lsoa21cd": "E01000001", "lsoa21nm": "Ward A", "msoa21cd": "E02000001", "msoa21nm": "Town A", "lad23cd": "E99999999", "lad23nm": "Nowhere"},
	}
	if err := store.Write(lake.TierSilverONS, "lookup_lsoa_msoa_lad", lsoa, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed LSOA lookup: %v", err)
	}
	lad := []lake.Row{
		{"lad23cd": "E06000001", "fra23cd": "E31000017", "fra23nm": "Old Hampshire"},
	}
	if err := store.Write(lake.TierSilverONS, "lookup_lad_fra", lad, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed LAD lookup: %v", err)
	}
}

func TestBuildGeographyDim(t *testing.T) {
	store := lake.NewMemStore()
	seedGeographyLookups(t, store)

	m := newTestModeler(t, store)
	if err := m.BuildGeographyDim(); err != nil {
		t.Fatalf("BuildGeographyDim failed: %v", err)
	}

	rows, err := store.Read(lake.TierGold, "dim_geography")
	if err != nil {
		t.Fatalf("failed to read dim_geography: %v", err)
	}

	// One row per LSOA, duplicates resolved.
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	byLSOA := make(map[string]lake.Row)
	for _, row := range rows {
		lsoa := lake.Str(row, "lsoa_code")
		if _, dup := byLSOA[lsoa]; dup {
			t.Fatalf("duplicate lsoa_code %q in dimension", lsoa)
		}
		byLSOA[lsoa] = row
	}

	row := byLSOA["E01000001"]
	if got := lake.Str(row, "lad_name"); got != "Hartlepool" {
		t.Errorf("expected the FRA-matched duplicate to win, got lad_name %q", got)
	}
	// Historical FRS code folds into the post-merger standard.
	if got := lake.Str(row, "frs_code"); got != "E31000048" {
		t.Errorf("expected canonical frs_code E31000048, got %q", got)
	}
	if got := lake.Str(row, "msoa_name"); got != "Town A" {
		t.Errorf("expected msoa_name Town A, got %q", got)
	}
}

func TestBuildGeographyDimMissingLookup(t *testing.T) {
	store := lake.NewMemStore()
	m := newTestModeler(t, store)
	if err := m.BuildGeographyDim(); err == nil {
		t.Fatal("expected an error when the silver lookups are absent")
	}
}

func TestBuildFRSDim(t *testing.T) {
	store := lake.NewMemStore()
	fire := []lake.Row{
		{"frs_e_code": "E31000015", "frs_name": "Essex", "incidents": 1.0},
		{"frs_e_code": "E31000015", "frs_name": "Essex County Fire and Rescue Service", "incidents": 2.0},
		{"frs_e_code": "E31000017", "frs_name": "Hampshire", "incidents": 3.0},
		{"frs_e_code": "bad", "frs_name": "Broken", "incidents": 0.0},
	}
	if err := store.Write(lake.TierSilverFire, "dwelling_fires", fire, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed silver: %v", err)
	}
	ext := []lake.Row{
		{"master_frs_code": "E31000015", "family_group": "Group One"},
	}
	if err := store.Write(lake.TierSilverExt, "nfcc_family_groups", ext, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed family groups: %v", err)
	}

	m := newTestModeler(t, store)
	if err := m.BuildFRSDim(); err != nil {
		t.Fatalf("BuildFRSDim failed: %v", err)
	}

	rows, err := store.Read(lake.TierGold, "dim_frs")
	if err != nil {
		t.Fatalf("failed to read dim_frs: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 organisations, got %d", len(rows))
	}

	byCode := make(map[string]lake.Row)
	for _, row := range rows {
		byCode[lake.Str(row, "frs_e_code")] = row
	}

	// Longest observed name wins for the same code.
	if got := lake.Str(byCode["E31000015"], "frs_name"); got != "Essex County Fire and Rescue Service" {
		t.Errorf("expected the longest name to win, got %q", got)
	}
	if got := lake.Str(byCode["E31000015"], "family_group"); got != "Group One" {
		t.Errorf("expected family group joined, got %q", got)
	}

	// Pre-merger code folds to the standard and takes the master name.
	merged, ok := byCode["E31000048"]
	if !ok {
		t.Fatalf("expected merged code E31000048 in dimension, got %v", byCode)
	}
	if got := lake.Str(merged, "frs_name"); got != "Hampshire and Isle of Wight Fire and Rescue Service" {
		t.Errorf("expected the master name for the merged code, got %q", got)
	}
	if got := lake.Str(merged, "family_group"); got != "Unknown" {
		t.Errorf("expected Unknown family group for unmatched code, got %q", got)
	}
}

func TestBuildFRSDimNoCodesIsFatal(t *testing.T) {
	store := lake.NewMemStore()
	fire := []lake.Row{{"incidents": 1.0, "financial_year": "2023/24"}}
	if err := store.Write(lake.TierSilverFire, "dwelling_fires", fire, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed silver: %v", err)
	}
	m := newTestModeler(t, store)
	if err := m.BuildFRSDim(); err == nil {
		t.Fatal("expected an error when no dataset carries FRS codes")
	}
}

func TestBuildFinancialYearDim(t *testing.T) {
	store := lake.NewMemStore()
	fire := []lake.Row{
		{"financial_year": "2022/23", "incidents": 1.0},
		{"financial_year": "2023/24", "incidents": 2.0},
		{"financial_year": "bad", "incidents": 3.0},
	}
	if err := store.Write(lake.TierSilverFire, "dwelling_fires", fire, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed silver: %v", err)
	}

	m := newTestModeler(t, store)
	if err := m.BuildFinancialYearDim(); err != nil {
		t.Fatalf("BuildFinancialYearDim failed: %v", err)
	}

	rows, err := store.Read(lake.TierGold, "dim_financial_year")
	if err != nil {
		t.Fatalf("failed to read dim_financial_year: %v", err)
	}

	years := make(map[string]float64)
	for _, row := range rows {
		sortKey, _ := lake.Float(row, "year_sort")
		years[lake.Str(row, "financial_year")] = sortKey
	}

	// Observed years plus two future placeholders past the maximum.
	for _, fy := range []string{"2022/23", "2023/24", "2024/25", "2025/26"} {
		if _, ok := years[fy]; !ok {
			t.Errorf("expected %s in dimension, got %v", fy, years)
		}
	}
	if _, ok := years["bad"]; ok {
		t.Error("expected malformed year excluded")
	}
	if got := years["2023/24"]; got != 2023 {
		t.Errorf("expected year_sort 2023, got %v", got)
	}
}

func TestBuildIncidentTypeDim(t *testing.T) {
	store := lake.NewMemStore()
	for _, name := range []string{"dwelling_fires", "false_alarm_incidents", "fire_stations"} {
		rows := []lake.Row{{"financial_year": "2023/24", "incidents": 1.0}}
		if err := store.Write(lake.TierSilverFire, name, rows, lake.Overwrite, lake.SchemaOverwrite); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}

	m := newTestModeler(t, store)
	if err := m.BuildIncidentTypeDim(); err != nil {
		t.Fatalf("BuildIncidentTypeDim failed: %v", err)
	}

	rows, err := store.Read(lake.TierGold, "dim_incident_type")
	if err != nil {
		t.Fatalf("failed to read dim_incident_type: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 datasets, got %d", len(rows))
	}

	byKey := make(map[string]lake.Row)
	for _, row := range rows {
		byKey[lake.Str(row, "incident_dataset_key")] = row
	}
	if got := lake.Str(byKey["dwelling_fires"], "incident_category"); got != "Fire" {
		t.Errorf("expected category Fire, got %q", got)
	}
	if got := lake.Str(byKey["false_alarm_incidents"], "incident_category"); got != "False Alarm" {
		t.Errorf("expected category False Alarm, got %q", got)
	}
	if got := lake.Str(byKey["fire_stations"], "incident_category"); got != "Uncategorized" {
		t.Errorf("expected category Uncategorized, got %q", got)
	}
	if got := lake.Str(byKey["dwelling_fires"], "dataset_name_friendly"); got != "Dwelling Fires" {
		t.Errorf("expected friendly name Dwelling Fires, got %q", got)
	}
}
