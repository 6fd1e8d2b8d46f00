// gold/facts_test.go
package gold

import (
	"testing"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/registry"
)

func TestBuildFacts(t *testing.T) {
	store := lake.NewMemStore()
	fire := []lake.Row{
		{"frs_e_code": "E31000017", "financial_year": "2023/24", "incidents": 5.0, "drill_through_id": 10.0},
		{"frs_e_code": "E31000015", "financial_year": "2023/24", "incidents": 2.0},
	}
	if err := store.Write(lake.TierSilverFire, "dwelling_fires", fire, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed silver: %v", err)
	}

	m := newTestModeler(t, store)
	report, err := m.BuildFacts()
	if err != nil {
		t.Fatalf("BuildFacts failed: %v", err)
	}
	ok, _, failed := report.Counts()
	if ok != 1 || failed != 0 {
		t.Fatalf("expected 1 success and 0 failures, got %d and %d", ok, failed)
	}

	rows, err := store.Read(lake.TierGold, "fact_dwelling_fires")
	if err != nil {
		t.Fatalf("failed to read fact table: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	for i, row := range rows {
		if got := lake.Str(row, "incident_dataset_key"); got != "dwelling_fires" {
			t.Errorf("row %d: expected dataset key stamp, got %q", i, got)
		}
	}

	// Historical code reconciled, mapped id preserved.
	if got := lake.Str(rows[0], "master_frs_code"); got != "E31000048" {
		t.Errorf("expected canonical master_frs_code E31000048, got %q", got)
	}
	if id, _ := lake.Float(rows[0], "drill_through_id"); id != 10 {
		t.Errorf("expected drill_through_id 10 preserved, got %v", id)
	}

	// Absent drill-through id defaults to the sentinel.
	if id, _ := lake.Float(rows[1], "drill_through_id"); id != float64(registry.UnmappedID) {
		t.Errorf("expected sentinel drill_through_id %d, got %v", registry.UnmappedID, id)
	}
}

func seedPopulationInputs(t *testing.T, store lake.Store) {
	t.Helper()
	population := []lake.Row{
		{"lsoa_code": "E01000001", "year": 2020.0, "population": 100.0},
		{"lsoa_code": "E01000002", "year": 2020.0, "population": 200.0},
		{"lsoa_code": "E01999999", "year": 2020.0, "population": 999.0}, // no geography
	}
	if err := store.Write(lake.TierSilverONS, "population_long", population, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed population: %v", err)
	}
	geography := []lake.Row{
		{
			"lsoa_code": "E01000001", "lsoa_name": "Ward A",
			"msoa_code": "E02000001", "msoa_name": "Town A",
			"lad_code": "E06000001", "lad_name": "Hartlepool",
			"frs_code": "E31000007", "frs_name": "Cleveland",
		},
		{
			"lsoa_code": "E01000002", "lsoa_name": "Ward B",
			"msoa_code": "E02000001", "msoa_name": "Town A",
			"lad_code": "E06000001", "lad_name": "Hartlepool",
			"frs_code": "E31000007", "frs_name": "Cleveland",
		},
	}
	if err := store.Write(lake.TierGold, "dim_geography", geography, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed geography: %v", err)
	}
}

func TestBuildPopulationFacts(t *testing.T) {
	store := lake.NewMemStore()
	seedPopulationInputs(t, store)

	m := newTestModeler(t, store)
	if err := m.BuildPopulationFacts(); err != nil {
		t.Fatalf("BuildPopulationFacts failed: %v", err)
	}

	lsoaRows, err := store.Read(lake.TierGold, "fact_population_lsoa")
	if err != nil {
		t.Fatalf("failed to read LSOA fact: %v", err)
	}
	// The unmatched LSOA drops out of the joined fact.
	if len(lsoaRows) != 2 {
		t.Fatalf("expected 2 joined rows, got %d", len(lsoaRows))
	}
	if got := lake.Str(lsoaRows[0], "financial_year"); got != "2020/21" {
		t.Errorf("expected calendar year formatted as 2020/21, got %q", got)
	}

	msoaRows, err := store.Read(lake.TierGold, "fact_population_msoa")
	if err != nil {
		t.Fatalf("failed to read MSOA rollup: %v", err)
	}
	if len(msoaRows) != 1 {
		t.Fatalf("expected 1 MSOA group, got %d", len(msoaRows))
	}
	if pop, _ := lake.Float(msoaRows[0], "population"); pop != 300 {
		t.Errorf("expected MSOA sum 300, got %v", pop)
	}

	frsRows, err := store.Read(lake.TierGold, "fact_population_frs")
	if err != nil {
		t.Fatalf("failed to read FRS rollup: %v", err)
	}
	if len(frsRows) != 1 {
		t.Fatalf("expected 1 FRS group, got %d", len(frsRows))
	}
	if pop, _ := lake.Float(frsRows[0], "population"); pop != 300 {
		t.Errorf("expected FRS sum 300, got %v", pop)
	}
	if got := lake.Str(frsRows[0], "frs_name"); got != "Cleveland" {
		t.Errorf("expected frs_name Cleveland, got %q", got)
	}
}

func TestBuildPopulationFactsMissingInputs(t *testing.T) {
	store := lake.NewMemStore()
	m := newTestModeler(t, store)
	if err := m.BuildPopulationFacts(); err == nil {
		t.Fatal("expected an error when the population series is absent")
	}
}

func TestBuildRiskProfileFact(t *testing.T) {
	store := lake.NewMemStore()
	ext := []lake.Row{
		{
			"master_frs_code": "E31000015", "family_group": "Group One",
			"population": "1800000", "imd_decile1": "12", "highrise": "not recorded",
			"contact_email": "someone@example.com",
		},
	}
	if err := store.Write(lake.TierSilverExt, "nfcc_family_groups", ext, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed silver ext: %v", err)
	}

	m := newTestModeler(t, store)
	if err := m.BuildRiskProfileFact(); err != nil {
		t.Fatalf("BuildRiskProfileFact failed: %v", err)
	}

	rows, err := store.Read(lake.TierGold, "fact_frs_risk_profiles")
	if err != nil {
		t.Fatalf("failed to read risk fact: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if got := lake.Str(row, "master_frs_code"); got != "E31000015" {
		t.Errorf("expected master_frs_code preserved, got %q", got)
	}
	if got := lake.Str(row, "financial_year"); got != "2023/24" {
		t.Errorf("expected snapshot period 2023/24, got %q", got)
	}
	if got := lake.Str(row, "data_source"); got != "NFCC Family Groups (Static Snapshot)" {
		t.Errorf("expected snapshot source label, got %q", got)
	}
	if pop, _ := lake.Float(row, "population"); pop != 1800000 {
		t.Errorf("expected population 1800000, got %v", pop)
	}
	// Invalid metric values coerce to zero.
	if v, _ := lake.Float(row, "highrise"); v != 0 {
		t.Errorf("expected invalid metric coerced to 0, got %v", v)
	}
	// Non-metric columns never reach the fact.
	if _, ok := row["contact_email"]; ok {
		t.Error("expected contact columns excluded from the fact")
	}
}
