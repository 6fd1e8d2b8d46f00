// bronze/family_groups.go
package bronze

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/gewnthar/firelake/lake"
	"github.com/xuri/excelize/v2"
)

const familyGroupsTable = "nfcc_family_groups"

// IngestFamilyGroups lands the NFCC family-groups workbook. Unlike the
// grouped fire-statistics sources this is a single static file with no
// fallback, so a failed fetch or parse is fatal.
func (in *Ingestor) IngestFamilyGroups() error {
	localPath := filepath.Join(in.Cfg.Landing.ExternalDir, "nfcc_family_groups.xlsx")

	log.Printf("Bronze: Downloading NFCC data to %s...\n", localPath)
	if _, err := in.Fetcher.DownloadIfModified(in.Cfg.SourceURLs.FamilyGroupsXLSX, localPath); err != nil {
		return fmt.Errorf("failed to download NFCC data: %w", err)
	}

	rows, err := readFirstSheet(localPath)
	if err != nil {
		return fmt.Errorf("failed to parse NFCC workbook: %w", err)
	}

	if err := lake.SaveAndCompact(in.Store, lake.TierBronzeExt, familyGroupsTable, rows, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return fmt.Errorf("failed to write NFCC bronze table: %w", err)
	}

	log.Printf("Bronze: Successfully ingested %d NFCC rows.\n", len(rows))
	return nil
}

// readFirstSheet parses only the first sheet of a workbook (the later ones
// carry notes), standardizes headers, and disambiguates the duplicated
// column names the source is known to ship.
func readFirstSheet(filePath string) ([]lake.Row, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filePath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filePath)
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheets[0])
	}

	headers := DedupeHeaders(NormalizeHeaders(cells[0]))

	var out []lake.Row
	for _, record := range cells[1:] {
		row := make(lake.Row, len(headers)+1)
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
		row["ingestion_source"] = filePath
		out = append(out, row)
	}
	return out, nil
}
