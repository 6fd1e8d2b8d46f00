// bronze/ingestor.go

// Package bronze is the raw-capture tier of the pipeline: it discovers and
// downloads the published source files, groups them by logical dataset, and
// lands their sheets as all-text tables with provenance columns. No type
// coercion happens here; source fidelity is the point of the tier.
package bronze

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gewnthar/firelake/config"
	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/models"
	"github.com/gewnthar/firelake/scraper"
	"github.com/xuri/excelize/v2"
)

// Ingestor lands the remote sources into the bronze tier.
type Ingestor struct {
	Store   lake.Store
	Fetcher *scraper.Fetcher
	Cfg     *config.Config
}

var (
	groupPattern     = regexp.MustCompile(`^(.*)_dataset`)
	yearSheetPattern = regexp.MustCompile(`^\d{6}$`)
)

const uncategorizedGroup = "uncategorized_fire_data"

// GroupForFilename derives the dataset group from a source filename by
// stripping the dataset-suffix pattern; files that don't match fall into the
// catch-all group. One group maps to exactly one bronze table lineage.
func GroupForFilename(filename string) string {
	if m := groupPattern.FindStringSubmatch(filename); m != nil {
		return m[1]
	}
	return uncategorizedGroup
}

type fileGroup struct {
	name  string
	files []string // local landing paths, download order
}

// IngestFireStats discovers every dataset workbook on the index page,
// fetches each one idempotently, and writes one bronze table per dataset
// group. A failed download or unreadable file is recorded and skipped; only
// discovery itself can fail the stage.
func (in *Ingestor) IngestFireStats() (*models.RunReport, error) {
	report := models.NewRunReport("bronze_fire")
	defer report.Finish()

	indexURL := in.Cfg.SourceURLs.FireStatsIndex
	log.Printf("Bronze: Scanning %s...\n", indexURL)

	queue, err := in.Fetcher.DiscoverLinks(indexURL, scraper.DatasetLinkMatcher(in.Cfg.SourceURLs.DatasetLinkSuffix))
	if err != nil {
		return report, fmt.Errorf("discovery failed for %s: %w", indexURL, err)
	}
	log.Printf("Bronze: Found %d files to process.\n", len(queue))

	// Group assignment happens up front so the download order and the group
	// order are both the discovery order.
	var groups []*fileGroup
	byName := make(map[string]*fileGroup)

	for i, url := range queue {
		filename := path.Base(url)
		localPath := filepath.Join(in.Cfg.Landing.FireDir, filename)
		groupName := GroupForFilename(filename)

		g, ok := byName[groupName]
		if !ok {
			g = &fileGroup{name: groupName}
			byName[groupName] = g
			groups = append(groups, g)
		}

		log.Printf("Bronze: Downloading %d/%d: %s (group: %s)\n", i+1, len(queue), filename, groupName)
		status, err := in.Fetcher.DownloadIfModified(url, localPath)
		if err != nil {
			// A transient failure must not shrink the group's lineage when a
			// prior run already landed the file.
			if _, statErr := os.Stat(localPath); statErr == nil {
				log.Printf("WARN Bronze: Download failed for %s, using cached copy at %s: %v\n", url, localPath, err)
				g.files = append(g.files, localPath)
				continue
			}
			log.Printf("ERROR Bronze: Failed to download %s: %v\n", url, err)
			report.Fail(filename, err)
			continue
		}
		g.files = append(g.files, localPath)
		if status == scraper.StatusFresh {
			in.Fetcher.Throttle()
		}
	}

	for _, g := range groups {
		if len(g.files) == 0 {
			continue
		}
		rows := in.processGroup(g, report)
		if rows > 0 {
			log.Printf("Bronze: Group %s complete (%d rows).\n", g.name, rows)
		}
	}

	log.Printf("Bronze: %s\n", report.Summary())
	return report, nil
}

// processGroup reads every file of a group and writes its rows to the
// group's bronze table. The first successfully parsed file establishes the
// schema with an overwrite; later files append with schema merge so a file
// may contribute new columns without invalidating earlier ones.
func (in *Ingestor) processGroup(g *fileGroup, report *models.RunReport) int {
	log.Printf("Bronze: Processing group %s (%d files)...\n", g.name, len(g.files))

	total := 0
	wroteFirst := false

	for _, file := range g.files {
		filename := filepath.Base(file)

		rows, err := ReadWorkbook(file)
		if err != nil {
			log.Printf("ERROR Bronze: Error reading %s: %v\n", filename, err)
			report.Fail(filename, err)
			continue
		}
		if len(rows) == 0 {
			log.Printf("WARN Bronze: Skipping %s: no usable sheets found.\n", filename)
			report.Skip(filename, "no usable sheets")
			continue
		}

		mode, schemaMode := lake.Append, lake.SchemaMerge
		if !wroteFirst {
			mode, schemaMode = lake.Overwrite, lake.SchemaOverwrite
		}
		if err := lake.SaveAndCompact(in.Store, lake.TierBronzeFire, g.name, rows, mode, schemaMode); err != nil {
			log.Printf("ERROR Bronze: Failed to write %s rows from %s: %v\n", g.name, filename, err)
			report.Fail(filename, err)
			continue
		}

		wroteFirst = true
		total += len(rows)
		report.Success(filename, len(rows))
	}

	return total
}

// SelectSheets picks which sheets of a workbook to ingest: every sheet whose
// name is a six-digit fiscal token; failing that, a sheet whose name
// contains "dataset"; failing that, the second sheet. An empty result means
// the file should be skipped.
func SelectSheets(names []string) []string {
	var yearSheets []string
	for _, name := range names {
		if yearSheetPattern.MatchString(name) {
			yearSheets = append(yearSheets, name)
		}
	}
	if len(yearSheets) > 0 {
		return yearSheets
	}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), "dataset") {
			return []string{name}
		}
	}
	if len(names) > 1 {
		return []string{names[1]}
	}
	return nil
}

// SheetFinancialYear formats a six-digit fiscal sheet token as "YYYY/YY".
func SheetFinancialYear(sheet string) (string, bool) {
	if !yearSheetPattern.MatchString(sheet) {
		return "", false
	}
	return sheet[:4] + "/" + sheet[4:], true
}

// ReadWorkbook opens a multi-sheet workbook and concatenates the selected
// sheets into all-text rows stamped with provenance columns. A nil, nil
// return means no sheet qualified.
func ReadWorkbook(filePath string) ([]lake.Row, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filePath, err)
	}
	defer f.Close()

	sheets := SelectSheets(f.GetSheetList())
	if len(sheets) == 0 {
		return nil, nil
	}

	filename := filepath.Base(filePath)
	var out []lake.Row

	for _, sheet := range sheets {
		cells, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheet, filename, err)
		}
		if len(cells) < 2 {
			continue
		}

		headers := NormalizeHeaders(cells[0])
		fy, hasFY := SheetFinancialYear(sheet)

		for _, record := range cells[1:] {
			row := make(lake.Row, len(headers)+3)
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
			row["source_file"] = filename
			row["source_sheet"] = sheet
			if hasFY {
				row["sheet_financial_year"] = fy
			}
			out = append(out, row)
		}
	}

	return out, nil
}
