// silver/lookups.go
package silver

import (
	"log"
	"strings"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/models"
)

var geographyLookups = []string{"lookup_lsoa_msoa_lad", "lookup_lad_fra"}

// TransformGeographyLookups standardizes the geography lookup headers and
// applies the boundary-change remap to the LAD code column of the LSOA
// lookup, making both tables join-ready for the gold tier. A missing lookup
// is skipped, not fatal; gold enforces its own prerequisites.
func (t *Transformer) TransformGeographyLookups() (*models.RunReport, error) {
	report := models.NewRunReport("silver_lookups")
	defer report.Finish()

	for _, name := range geographyLookups {
		exists, err := t.Store.Exists(lake.TierBronzeONS, name)
		if err != nil {
			return report, err
		}
		if !exists {
			report.Skip(name, "bronze table missing")
			continue
		}

		rows, err := t.Store.Read(lake.TierBronzeONS, name)
		if err != nil {
			log.Printf("ERROR Silver: Failed to read %s: %v\n", name, err)
			report.Fail(name, err)
			continue
		}

		rows = standardiseRowColumns(rows)

		if strings.Contains(name, "lsoa") {
			t.remapLADCodes(rows)
		}

		if err := lake.SaveAndCompact(t.Store, lake.TierSilverONS, name, rows, lake.Overwrite, lake.SchemaOverwrite); err != nil {
			log.Printf("ERROR Silver: Failed to write %s: %v\n", name, err)
			report.Fail(name, err)
			continue
		}
		report.Success(name, len(rows))
		log.Printf("Silver: Standardised lookup %s (%d rows).\n", name, len(rows))
	}

	log.Printf("Silver: %s\n", report.Summary())
	return report, nil
}

// remapLADCodes applies the legacy-to-current administrative-code remap to
// the lowest-level LAD code column.
func (t *Transformer) remapLADCodes(rows []lake.Row) {
	ladCol := ""
	for _, col := range lake.Columns(rows) {
		if strings.HasPrefix(col, "lad") && strings.HasSuffix(col, "cd") {
			ladCol = col
			break
		}
	}
	if ladCol == "" {
		return
	}
	for _, row := range rows {
		code := lake.Str(row, ladCol)
		if code == "" {
			continue
		}
		row[ladCol] = t.Registry.RemapLADCode(code)
	}
}

// standardiseRowColumns renames every column through StandardiseHeader. A
// collision (two raw headers standardizing to the same name) keeps the first
// and logs the loss rather than silently merging values.
func standardiseRowColumns(rows []lake.Row) []lake.Row {
	cols := lake.Columns(rows)
	mapping := make(map[string]string, len(cols))
	used := make(map[string]bool, len(cols))
	for _, col := range cols {
		std := StandardiseHeader(col)
		if used[std] {
			log.Printf("WARN Silver: Header collision on %q, dropping duplicate column %q.\n", std, col)
			continue
		}
		used[std] = true
		mapping[col] = std
	}

	out := make([]lake.Row, len(rows))
	for i, row := range rows {
		renamed := make(lake.Row, len(row))
		for col, v := range row {
			if std, ok := mapping[col]; ok {
				renamed[std] = v
			}
		}
		out[i] = renamed
	}
	return out
}
