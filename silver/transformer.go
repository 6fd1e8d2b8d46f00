// silver/transformer.go
package silver

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/models"
	"github.com/gewnthar/firelake/registry"
)

// Transformer rebuilds the silver tier from the current bronze snapshot.
type Transformer struct {
	Store    lake.Store
	Registry *registry.Registry

	// Scaffold range for the population series.
	MinYear int
	MaxYear int
}

const incidentTypeColumn = "fris_incident_type"

// TransformFireStats cleans every fire-statistics bronze table into its
// silver counterpart. A failure in one dataset never stops its siblings.
func (t *Transformer) TransformFireStats() (*models.RunReport, error) {
	report := models.NewRunReport("silver_fire")
	defer report.Finish()

	datasets, err := t.Store.List(lake.TierBronzeFire)
	if err != nil {
		return report, fmt.Errorf("failed to list bronze fire tables: %w", err)
	}

	for _, dataset := range datasets {
		log.Printf("Silver: Processing %s...\n", dataset)
		rows, err := t.transformDataset(dataset)
		if err != nil {
			log.Printf("ERROR Silver: Failed %s: %v\n", dataset, err)
			report.Fail(dataset, err)
			continue
		}
		report.Success(dataset, len(rows))
	}

	log.Printf("Silver: %s\n", report.Summary())
	return report, nil
}

func (t *Transformer) transformDataset(dataset string) ([]lake.Row, error) {
	rows, err := t.Store.Read(lake.TierBronzeFire, dataset)
	if err != nil {
		return nil, err
	}

	cols := lake.Columns(rows)

	if !contains(cols, "financial_year") {
		t.deriveFinancialYears(rows, cols)
	}

	if contains(cols, incidentTypeColumn) {
		t.applyDrillThroughMapping(rows, dataset)
	} else if id, ok := t.Registry.DatasetFallbackID(normalizeDatasetName(dataset)); ok {
		for _, row := range rows {
			row["drill_through_id"] = id
		}
	}
	// Otherwise the id stays absent; gold tolerates that with the sentinel.

	t.deriveMidpoints(rows, cols)

	enforceTypes(rows)

	if err := lake.SaveAndCompact(t.Store, lake.TierSilverFire, dataset, rows, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return nil, err
	}
	return rows, nil
}

// deriveFinancialYears locates the first date-like column and stamps each
// row's April-start financial year. Rows with unparseable dates get none.
func (t *Transformer) deriveFinancialYears(rows []lake.Row, cols []string) {
	dateCol := ""
	for _, col := range cols {
		if strings.Contains(col, "date") && !strings.Contains(col, "update") {
			dateCol = col
			break
		}
	}
	if dateCol == "" {
		return
	}
	for _, row := range rows {
		if parsed, ok := ParseDate(lake.Str(row, dateCol)); ok {
			row["financial_year"] = FinancialYear(parsed)
		}
	}
}

// applyDrillThroughMapping classifies each row by its incident-type value.
// Unmapped values resolve to the sentinel and are reported once per value.
func (t *Transformer) applyDrillThroughMapping(rows []lake.Row, dataset string) {
	unmapped := make(map[string]bool)
	for _, row := range rows {
		value := strings.TrimSpace(lake.Str(row, incidentTypeColumn))
		id, ok := t.Registry.IncidentTypeID(value)
		if !ok {
			id = registry.UnmappedID
			if value != "" {
				unmapped[value] = true
			}
		}
		row["drill_through_id"] = id
	}
	if len(unmapped) > 0 {
		values := make([]string, 0, len(unmapped))
		for v := range unmapped {
			values = append(values, v)
		}
		sort.Strings(values)
		log.Printf("WARN Silver: Unmapped incident types in %s (id %d): %v\n", dataset, registry.UnmappedID, values)
	}
}

// deriveMidpoints adds a companion estimate column for every range-text
// column that carries one of the semantic markers.
func (t *Transformer) deriveMidpoints(rows []lake.Row, cols []string) {
	for _, col := range cols {
		for _, target := range midpointTargets {
			if !strings.Contains(col, target.Marker) {
				continue
			}
			if strings.Contains(col, "code") || strings.Contains(col, target.Suffix) {
				continue
			}
			derived := col + target.Suffix
			for _, row := range rows {
				if estimate, ok := Midpoint(lake.Str(row, col)); ok {
					row[derived] = estimate
				} else {
					row[derived] = nil
				}
			}
		}
	}
}

// enforceTypes applies the per-column type discipline: measures become
// float64 with invalid values coerced to 0, everything else becomes text
// with null-like tokens normalized to absent.
func enforceTypes(rows []lake.Row) {
	for _, col := range lake.Columns(rows) {
		numeric := IsNumericColumn(col)
		for _, row := range rows {
			v, ok := row[col]
			if !ok {
				continue
			}
			if numeric {
				if f, ok := lake.Float(row, col); ok {
					row[col] = f
				} else {
					row[col] = 0.0
				}
				continue
			}
			if v == nil {
				continue
			}
			s := lake.Str(row, col)
			if IsNullToken(s) {
				row[col] = nil
			} else {
				row[col] = s
			}
		}
	}
}

func normalizeDatasetName(name string) string {
	return strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(name))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
