// silver/transformer_test.go
package silver

import (
	"testing"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/registry"
)

func newTestTransformer(t *testing.T, store lake.Store) *Transformer {
	t.Helper()
	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return &Transformer{Store: store, Registry: reg, MinYear: 2010, MaxYear: 2025}
}

func TestTransformFireStatsDrillThroughMapping(t *testing.T) {
	store := lake.NewMemStore()
	bronze := []lake.Row{
		{"fris_incident_type": "Dwellings", "financial_year": "2023/24", "incidents": "12"},
		{"fris_incident_type": "Road Vehicles", "financial_year": "2023/24", "incidents": "3"},
		{"fris_incident_type": "Something Novel", "financial_year": "2023/24", "incidents": "1"},
	}
	if err := store.Write(lake.TierBronzeFire, "dwelling_fires", bronze, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed bronze: %v", err)
	}

	tr := newTestTransformer(t, store)
	report, err := tr.TransformFireStats()
	if err != nil {
		t.Fatalf("TransformFireStats failed: %v", err)
	}
	ok, _, failed := report.Counts()
	if ok != 1 || failed != 0 {
		t.Fatalf("expected 1 success and 0 failures, got %d and %d", ok, failed)
	}

	rows, err := store.Read(lake.TierSilverFire, "dwelling_fires")
	if err != nil {
		t.Fatalf("failed to read silver output: %v", err)
	}

	expected := []float64{10, 30, float64(registry.UnmappedID)}
	for i, row := range rows {
		got, ok := lake.Float(row, "drill_through_id")
		if !ok {
			t.Fatalf("row %d: drill_through_id missing", i)
		}
		if got != expected[i] {
			t.Errorf("row %d: expected drill_through_id %v, got %v", i, expected[i], got)
		}
	}
}

func TestTransformFireStatsFallbackID(t *testing.T) {
	store := lake.NewMemStore()
	bronze := []lake.Row{
		{"financial_year": "2022/23", "incidents": "7"},
	}
	if err := store.Write(lake.TierBronzeFire, "road_vehicle_fires", bronze, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed bronze: %v", err)
	}

	tr := newTestTransformer(t, store)
	if _, err := tr.TransformFireStats(); err != nil {
		t.Fatalf("TransformFireStats failed: %v", err)
	}

	rows, err := store.Read(lake.TierSilverFire, "road_vehicle_fires")
	if err != nil {
		t.Fatalf("failed to read silver output: %v", err)
	}
	got, ok := lake.Float(rows[0], "drill_through_id")
	if !ok || got != 30 {
		t.Errorf("expected fallback drill_through_id 30 from dataset name, got %v (ok=%v)", got, ok)
	}
}

func TestTransformFireStatsDerivesFinancialYear(t *testing.T) {
	store := lake.NewMemStore()
	bronze := []lake.Row{
		{"incident_date": "2024-05-10", "incidents": "2"},
		{"incident_date": "garbage", "incidents": "1"},
	}
	if err := store.Write(lake.TierBronzeFire, "dwelling_fires", bronze, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed bronze: %v", err)
	}

	tr := newTestTransformer(t, store)
	if _, err := tr.TransformFireStats(); err != nil {
		t.Fatalf("TransformFireStats failed: %v", err)
	}

	rows, err := store.Read(lake.TierSilverFire, "dwelling_fires")
	if err != nil {
		t.Fatalf("failed to read silver output: %v", err)
	}
	if got := lake.Str(rows[0], "financial_year"); got != "2024/25" {
		t.Errorf("expected financial_year 2024/25, got %q", got)
	}
	if v := rows[1]["financial_year"]; v != nil {
		t.Errorf("expected no financial year for unparseable date, got %v", v)
	}
}

func TestTransformFireStatsEnforcesTypes(t *testing.T) {
	store := lake.NewMemStore()
	bronze := []lake.Row{
		{"financial_year": "2023/24", "frs_name": "NaN", "vehicles_attending": "3 to 7"},
	}
	if err := store.Write(lake.TierBronzeFire, "dwelling_fires", bronze, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		t.Fatalf("failed to seed bronze: %v", err)
	}

	tr := newTestTransformer(t, store)
	if _, err := tr.TransformFireStats(); err != nil {
		t.Fatalf("TransformFireStats failed: %v", err)
	}

	rows, err := store.Read(lake.TierSilverFire, "dwelling_fires")
	if err != nil {
		t.Fatalf("failed to read silver output: %v", err)
	}
	if v := rows[0]["frs_name"]; v != nil {
		t.Errorf("expected null token to become nil, got %v", v)
	}
	mid, ok := lake.Float(rows[0], "vehicles_attending_midpoint")
	if !ok || mid != 5 {
		t.Errorf("expected derived midpoint 5, got %v (ok=%v)", mid, ok)
	}
}
