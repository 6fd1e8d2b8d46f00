// silver/population.go
package silver

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/gewnthar/firelake/lake"
)

// TransformPopulation reshapes the wide year-columned population capture
// into a long series (one row per LSOA per year) and scaffolds it across the
// configured year range, forward/back-filling gaps per LSOA so downstream
// aggregations never see a sparse series. The bronze capture is a required
// upstream: its absence is fatal.
func (t *Transformer) TransformPopulation() error {
	exists, err := t.Store.Exists(lake.TierBronzeONS, "population_estimates")
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bronze population data not found, run the bronze stage first")
	}

	rows, err := t.Store.Read(lake.TierBronzeONS, "population_estimates")
	if err != nil {
		return err
	}

	cols := lake.Columns(rows)

	// Some vintages name the code column by its Nomis mnemonic.
	keyCol := "lsoa_code"
	if !contains(cols, keyCol) && contains(cols, "mnemonic") {
		keyCol = "mnemonic"
	}

	var yearCols []string
	for _, col := range cols {
		if isAllDigits(col) {
			yearCols = append(yearCols, col)
		}
	}
	sort.Strings(yearCols)
	if len(yearCols) == 0 {
		return fmt.Errorf("population capture has no year columns")
	}

	// Unpivot wide → long, keeping LSOA appearance order.
	observed := make(map[string]map[int]float64)
	var lsoas []string
	for _, row := range rows {
		lsoa := strings.TrimSpace(lake.Str(row, keyCol))
		if lsoa == "" {
			continue
		}
		if _, ok := observed[lsoa]; !ok {
			observed[lsoa] = make(map[int]float64)
			lsoas = append(lsoas, lsoa)
		}
		for _, yearCol := range yearCols {
			year, err := strconv.Atoi(yearCol)
			if err != nil {
				continue
			}
			observed[lsoa][year] = parsePopulation(lake.Str(row, yearCol))
		}
	}

	// Complete key×year scaffold with forward fill then back fill.
	var out []lake.Row
	for _, lsoa := range lsoas {
		series := observed[lsoa]
		filled := fillSeries(series, t.MinYear, t.MaxYear)
		for year := t.MinYear; year <= t.MaxYear; year++ {
			out = append(out, lake.Row{
				"lsoa_code":  lsoa,
				"year":       float64(year),
				"population": filled[year],
			})
		}
	}

	if err := lake.SaveAndCompact(t.Store, lake.TierSilverONS, "population_long", out, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Silver: Population series scaffolded to %d rows (%d LSOAs, %d-%d).\n",
		len(out), len(lsoas), t.MinYear, t.MaxYear)
	return nil
}

// parsePopulation strips thousands separators and coerces invalid counts
// to 0.
func parsePopulation(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// fillSeries materializes minYear..maxYear from the observed points:
// missing years take the previous observed value, leading gaps take the
// first observed value, and a series with no observations is all zero.
func fillSeries(observed map[int]float64, minYear, maxYear int) map[int]float64 {
	filled := make(map[int]float64, maxYear-minYear+1)

	var observedYears []int
	for year := range observed {
		observedYears = append(observedYears, year)
	}
	sort.Ints(observedYears)

	if len(observedYears) == 0 {
		for year := minYear; year <= maxYear; year++ {
			filled[year] = 0
		}
		return filled
	}

	first := observed[observedYears[0]]
	last := first
	for year := minYear; year <= maxYear; year++ {
		if v, ok := observed[year]; ok {
			last = v
			filled[year] = v
		} else if year < observedYears[0] {
			filled[year] = first
		} else {
			filled[year] = last
		}
	}
	return filled
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
