// bronze/reference.go
package bronze

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/models"
	"golang.org/x/text/encoding/charmap"
)

// The population export ships six rows of preamble before the header.
const populationPreambleRows = 6

var lookupFiles = []struct {
	table    string
	filename string
}{
	{"lookup_lsoa_msoa_lad", "LSOA to MSOA to LAD.csv"},
	{"lookup_lad_fra", "LAD to FRA.csv"},
}

// IngestReferenceData lands the manually downloaded reference CSVs
// (population estimates plus the two geography lookups) and runs a
// best-effort check for newer population data on the ONS page. The
// population file is the backbone of the model, so its failure is fatal;
// lookup failures are per-item.
func (in *Ingestor) IngestReferenceData() (*models.RunReport, error) {
	report := models.NewRunReport("bronze_reference")
	defer report.Finish()

	log.Println("Bronze: Checking for local reference files...")

	if err := in.ingestPopulation(report); err != nil {
		return report, err
	}

	for _, lookup := range lookupFiles {
		tableName, filename := lookup.table, lookup.filename
		filePath := filepath.Join(in.Cfg.Landing.ReferenceDir, filename)
		if _, err := os.Stat(filePath); err != nil {
			log.Printf("WARN Bronze: File not found: %s\n", filePath)
			report.Skip(tableName, "file not found")
			continue
		}

		log.Printf("Bronze: Processing lookup %s...\n", filename)
		headers, records, err := readLatin1CSV(filePath, 0)
		if err != nil {
			log.Printf("ERROR Bronze: Failed lookup %s: %v\n", filename, err)
			report.Fail(tableName, err)
			continue
		}

		rows := recordsToRows(NormalizeHeaders(headers), records)
		if err := lake.SaveAndCompact(in.Store, lake.TierBronzeONS, tableName, rows, lake.Overwrite, lake.SchemaOverwrite); err != nil {
			log.Printf("ERROR Bronze: Failed to write %s: %v\n", tableName, err)
			report.Fail(tableName, err)
			continue
		}
		report.Success(tableName, len(rows))
		log.Printf("Bronze: Ingested %s (%d rows).\n", tableName, len(rows))
	}

	in.checkForNewerPopulationData()

	log.Printf("Bronze: %s\n", report.Summary())
	return report, nil
}

func (in *Ingestor) ingestPopulation(report *models.RunReport) error {
	filePath := filepath.Join(in.Cfg.Landing.ReferenceDir, in.Cfg.Landing.PopulationCSV)
	if _, err := os.Stat(filePath); err != nil {
		log.Printf("WARN Bronze: File not found: %s\n", filePath)
		report.Skip("population_estimates", "file not found")
		return nil
	}

	log.Printf("Bronze: Processing population file %s...\n", in.Cfg.Landing.PopulationCSV)
	headers, records, err := readLatin1CSV(filePath, populationPreambleRows)
	if err != nil {
		report.Fail("population_estimates", err)
		return fmt.Errorf("failed to process population csv: %w", err)
	}

	// The first two columns are positional (name, code); the rest are year
	// columns whose headers vary by vintage.
	if len(headers) >= 2 {
		headers[0] = "lsoa_name"
		headers[1] = "lsoa_code"
	}
	headers = NormalizeHeaders(headers)

	rows := recordsToRows(headers, records)

	// Drop the blank/metadata rows that follow the header.
	kept := rows[:0]
	for _, row := range rows {
		if strings.TrimSpace(lake.Str(row, "lsoa_code")) == "" {
			continue
		}
		kept = append(kept, row)
	}
	if dropped := len(rows) - len(kept); dropped > 0 {
		log.Printf("Bronze: Dropped %d blank/metadata population rows.\n", dropped)
	}

	if err := lake.SaveAndCompact(in.Store, lake.TierBronzeONS, "population_estimates", kept, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		report.Fail("population_estimates", err)
		return fmt.Errorf("failed to write population bronze table: %w", err)
	}

	report.Success("population_estimates", len(kept))
	log.Printf("Bronze: Ingested %d population rows.\n", len(kept))
	return nil
}

// checkForNewerPopulationData scans the ONS dataset page for links that
// mention future vintages. Purely advisory; any failure is logged and
// swallowed.
func (in *Ingestor) checkForNewerPopulationData() {
	pageURL := in.Cfg.SourceURLs.ONSPopulationPage
	if pageURL == "" {
		return
	}
	href, found, err := in.Fetcher.FindLinkByText(pageURL, []string{"mid-2025", "mid-2026"})
	if err != nil {
		log.Printf("WARN Bronze: ONS check skipped: %v\n", err)
		return
	}
	if found {
		log.Printf("WARN Bronze: New population data available on ONS: %s\n", href)
	} else {
		log.Println("Bronze: No future population data found on ONS yet.")
	}
}

// readLatin1CSV reads a government CSV export (these files ship latin-1
// encoded), skipping skipRows leading rows, and returns the header row plus
// data records. Records may be ragged; the caller pads.
func readLatin1CSV(filePath string, skipRows int) ([]string, [][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	if len(all) <= skipRows {
		return nil, nil, fmt.Errorf("%s has no rows after skipping %d preamble rows", filePath, skipRows)
	}

	header := all[skipRows]
	return header, all[skipRows+1:], nil
}

// recordsToRows zips records against headers; cells beyond the header width
// are dropped and short records are padded with nil.
func recordsToRows(headers []string, records [][]string) []lake.Row {
	rows := make([]lake.Row, 0, len(records))
	for _, record := range records {
		row := make(lake.Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}
