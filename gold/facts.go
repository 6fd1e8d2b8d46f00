// gold/facts.go
package gold

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/models"
	"github.com/gewnthar/firelake/registry"
)

// Datasets that legitimately carry no financial_year column, so the
// missing-column warning would be noise.
var noYearDatasets = map[string]bool{
	"uncategorized_fire_data": true,
	"fire_stations":           true,
}

// BuildFacts materializes one fact table per cleaned fire dataset: the
// dataset key is stamped for the incident-type join, the drill-through id is
// defaulted where absent, and the first e_code column is reconciled into a
// canonical master_frs_code. One broken dataset never blocks the rest.
func (m *Modeler) BuildFacts() (*models.RunReport, error) {
	report := models.NewRunReport("gold_facts")
	defer report.Finish()

	datasets, err := m.Store.List(lake.TierSilverFire)
	if err != nil {
		return report, fmt.Errorf("failed to list silver fire tables: %w", err)
	}
	log.Printf("Gold: Building %d fact tables...\n", len(datasets))

	for _, dataset := range datasets {
		rows, err := m.Store.Read(lake.TierSilverFire, dataset)
		if err != nil {
			log.Printf("ERROR Gold: Failed to read %s: %v\n", dataset, err)
			report.Fail(dataset, err)
			continue
		}

		cols := lake.Columns(rows)

		if !lake.HasColumn(rows, "drill_through_id") {
			log.Printf("WARN Gold: %s has no drill_through_id, defaulting to %d.\n", dataset, registry.UnmappedID)
		}
		if !lake.HasColumn(rows, "financial_year") && !noYearDatasets[dataset] {
			log.Printf("WARN Gold: %s has no financial_year column.\n", dataset)
		}

		codeCol := ""
		for _, col := range cols {
			if strings.Contains(col, "e_code") {
				codeCol = col
				break
			}
		}

		for _, row := range rows {
			row["incident_dataset_key"] = dataset
			if v, ok := row["drill_through_id"]; !ok || v == nil {
				row["drill_through_id"] = float64(registry.UnmappedID)
			}
			if codeCol != "" {
				if code := lake.Str(row, codeCol); code != "" {
					row["master_frs_code"] = m.Registry.CanonicalFRSCode(code)
				}
			}
		}

		table := "fact_" + dataset
		if err := lake.SaveAndCompact(m.Store, lake.TierGold, table, rows, lake.Overwrite, lake.SchemaOverwrite); err != nil {
			log.Printf("ERROR Gold: Failed to write %s: %v\n", table, err)
			report.Fail(dataset, err)
			continue
		}
		report.Success(dataset, len(rows))
		log.Printf("Gold: %s built with %d rows.\n", table, len(rows))
	}

	log.Printf("Gold: %s\n", report.Summary())
	return report, nil
}

// BuildPopulationFacts joins the long population series onto the geography
// dimension and writes the LSOA-grain fact plus group-summed rollups at
// MSOA, LAD, and (where the lookups carried FRA columns) FRS grain. Both
// upstreams are hard prerequisites.
func (m *Modeler) BuildPopulationFacts() error {
	population, err := m.Store.Read(lake.TierSilverONS, "population_long")
	if err != nil {
		return fmt.Errorf("missing silver population series, run the silver stage first: %w", err)
	}
	geography, err := m.Store.Read(lake.TierGold, "dim_geography")
	if err != nil {
		return fmt.Errorf("missing dim_geography, build dimensions first: %w", err)
	}

	geoByLSOA := make(map[string]lake.Row, len(geography))
	for _, row := range geography {
		geoByLSOA[lake.Str(row, "lsoa_code")] = row
	}
	hasFRS := lake.HasColumn(geography, "frs_code")

	var lsoaFact []lake.Row
	matched := 0
	for _, row := range population {
		geo, ok := geoByLSOA[lake.Str(row, "lsoa_code")]
		if !ok {
			continue
		}
		matched++
		year, _ := lake.Float(row, "year")
		pop, _ := lake.Float(row, "population")
		out := lake.Row{
			"lsoa_code":      lake.Str(row, "lsoa_code"),
			"lsoa_name":      geo["lsoa_name"],
			"msoa_code":      geo["msoa_code"],
			"msoa_name":      geo["msoa_name"],
			"lad_code":       geo["lad_code"],
			"lad_name":       geo["lad_name"],
			"financial_year": financialYearForStart(int(year)),
			"population":     pop,
		}
		if hasFRS {
			out["frs_code"] = geo["frs_code"]
			out["frs_name"] = geo["frs_name"]
		}
		lsoaFact = append(lsoaFact, out)
	}
	log.Printf("Gold: Population joined to geography: %d of %d rows matched.\n", matched, len(population))

	if err := lake.SaveAndCompact(m.Store, lake.TierGold, "fact_population_lsoa", lsoaFact, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Gold: fact_population_lsoa built with %d rows.\n", len(lsoaFact))

	if err := m.writeRollup(lsoaFact, "fact_population_msoa", "msoa_code", "msoa_name"); err != nil {
		return err
	}
	if err := m.writeRollup(lsoaFact, "fact_population_lad", "lad_code", "lad_name"); err != nil {
		return err
	}
	if hasFRS {
		if err := m.writeRollup(lsoaFact, "fact_population_frs", "frs_code", "frs_name"); err != nil {
			return err
		}
	} else {
		log.Println("WARN Gold: Geography has no FRS columns, skipping fact_population_frs.")
	}
	return nil
}

// writeRollup group-sums the LSOA fact by (financial_year, code, name) and
// writes the result, ordered deterministically.
func (m *Modeler) writeRollup(lsoaFact []lake.Row, table, codeCol, nameCol string) error {
	type group struct {
		year, code, name string
	}
	sums := make(map[group]float64)
	for _, row := range lsoaFact {
		g := group{
			year: lake.Str(row, "financial_year"),
			code: lake.Str(row, codeCol),
			name: lake.Str(row, nameCol),
		}
		pop, _ := lake.Float(row, "population")
		sums[g] += pop
	}

	groups := make([]group, 0, len(sums))
	for g := range sums {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].year != groups[j].year {
			return groups[i].year < groups[j].year
		}
		return groups[i].code < groups[j].code
	})

	out := make([]lake.Row, 0, len(groups))
	for _, g := range groups {
		out = append(out, lake.Row{
			"financial_year": g.year,
			codeCol:          g.code,
			nameCol:          g.name,
			"population":     sums[g],
		})
	}

	if err := lake.SaveAndCompact(m.Store, lake.TierGold, table, out, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Gold: %s built with %d rows.\n", table, len(out))
	return nil
}

// riskMetrics is the allow-list of NFCC profile measures carried into the
// risk fact. Everything else on the snapshot (contacts, notes) is dropped.
// "commerical_p" matches the source sheet's own spelling.
var riskMetrics = []string{
	"perimeter", "area", "motorway", "a_roads", "surface_water",
	"coastlength", "urban", "population", "population_density", "woodland",
	"imd_decile1", "grade1_p", "residential_p", "commerical_p", "highrise",
	"ports", "airports", "rail_length", "rail_lines", "comah",
}

// BuildRiskProfileFact projects the cleaned NFCC snapshot down to the
// numeric risk measures, stamped with a fixed snapshot period and source
// label. The silver snapshot is a hard prerequisite.
func (m *Modeler) BuildRiskProfileFact() error {
	rows, err := m.Store.Read(lake.TierSilverExt, "nfcc_family_groups")
	if err != nil {
		return fmt.Errorf("missing silver NFCC data, run the silver stage first: %w", err)
	}

	var present []string
	for _, metric := range riskMetrics {
		if lake.HasColumn(rows, metric) {
			present = append(present, metric)
		}
	}
	log.Printf("Gold: Risk profile carrying %d of %d metrics.\n", len(present), len(riskMetrics))

	out := make([]lake.Row, 0, len(rows))
	for _, row := range rows {
		fact := lake.Row{
			"master_frs_code": lake.Str(row, "master_frs_code"),
			"financial_year":  "2023/24",
			"data_source":     "NFCC Family Groups (Static Snapshot)",
		}
		for _, metric := range present {
			f, ok := lake.Float(row, metric)
			if !ok {
				f = 0
			}
			fact[metric] = f
		}
		out = append(out, fact)
	}

	if err := lake.SaveAndCompact(m.Store, lake.TierGold, "fact_frs_risk_profiles", out, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Gold: fact_frs_risk_profiles built with %d rows.\n", len(out))
	return nil
}
