// silver/family_groups.go
package silver

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/gewnthar/firelake/lake"
)

var lineBreakPattern = regexp.MustCompile(`[\r\n]+`)

// TransformFamilyGroups resolves NFCC organisation names to canonical FRS
// codes and drops rows whose name has no mapping, which is how the
// devolved-nation services are excluded from the English model. Free-text
// fields are scrubbed of embedded line-break artifacts. The bronze capture
// is a required upstream.
func (t *Transformer) TransformFamilyGroups() error {
	exists, err := t.Store.Exists(lake.TierBronzeExt, "nfcc_family_groups")
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bronze NFCC data not found, run the bronze stage first")
	}

	rows, err := t.Store.Read(lake.TierBronzeExt, "nfcc_family_groups")
	if err != nil {
		return err
	}
	log.Printf("Silver: Read bronze NFCC: %d rows.\n", len(rows))

	var kept []lake.Row
	dropped := 0
	for _, row := range rows {
		name := lake.Str(row, "frs_name")
		code, ok := t.Registry.FRSCodeForName(name)
		if !ok {
			dropped++
			continue
		}
		row["master_frs_code"] = code

		if group := lake.Str(row, "family_group"); group != "" {
			row["family_group"] = cleanLineBreaks(group)
		}
		kept = append(kept, row)
	}

	if dropped > 0 {
		log.Printf("Silver: Dropped %d NFCC rows with no canonical code (devolved or unknown).\n", dropped)
	}

	if err := lake.SaveAndCompact(t.Store, lake.TierSilverExt, "nfcc_family_groups", kept, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Silver: Wrote %d NFCC family group rows.\n", len(kept))
	return nil
}

// cleanLineBreaks removes the _x000D_ export artifact and collapses
// embedded line breaks to single spaces.
func cleanLineBreaks(s string) string {
	s = strings.ReplaceAll(s, "_x000D_", "")
	s = lineBreakPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
