// gold/dimensions.go
package gold

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/gewnthar/firelake/lake"
	"github.com/gewnthar/firelake/registry"
)

// Modeler builds the gold dimensions and facts from the silver tier.
type Modeler struct {
	Store    lake.Store
	Registry *registry.Registry
}

// BuildGeographyDim joins the LSOA→LAD and LAD→FRA lookups into one
// geography hierarchy with canonical column names and exactly one row per
// LSOA. Missing lookups are fatal: every fact join depends on this table.
func (m *Modeler) BuildGeographyDim() error {
	lsoaRows, err := m.Store.Read(lake.TierSilverONS, "lookup_lsoa_msoa_lad")
	if err != nil {
		return fmt.Errorf("missing silver lookups, run the silver stage first: %w", err)
	}
	ladRows, err := m.Store.Read(lake.TierSilverONS, "lookup_lad_fra")
	if err != nil {
		return fmt.Errorf("missing silver lookups, run the silver stage first: %w", err)
	}

	lsoaCols := lake.Columns(lsoaRows)
	ladCols := lake.Columns(ladRows)

	ladKey1, ok := Resolve(lsoaCols, PrefixSuffix("lad", "cd"))
	if !ok {
		return fmt.Errorf("no LAD code column in the LSOA lookup (columns: %v)", lsoaCols)
	}
	ladKey2, ok := Resolve(ladCols, PrefixSuffix("lad", "cd"))
	if !ok {
		return fmt.Errorf("no LAD code column in the LAD→FRA lookup (columns: %v)", ladCols)
	}
	log.Printf("Gold: Joining geography lookups on %s = %s\n", ladKey1, ladKey2)

	ladByCode := make(map[string]lake.Row, len(ladRows))
	for _, row := range ladRows {
		code := lake.Str(row, ladKey2)
		if _, exists := ladByCode[code]; !exists {
			ladByCode[code] = row
		}
	}

	joined := make([]lake.Row, 0, len(lsoaRows))
	for _, lsoaRow := range lsoaRows {
		combined := make(lake.Row, len(lsoaRow)+4)
		for k, v := range lsoaRow {
			combined[k] = v
		}
		if ladRow, ok := ladByCode[lake.Str(lsoaRow, ladKey1)]; ok {
			for k, v := range ladRow {
				if _, taken := combined[k]; !taken {
					combined[k] = v
				}
			}
		}
		joined = append(joined, combined)
	}

	allCols := lake.Columns(joined)

	required := map[string]Resolver{
		"lsoa_code": PrefixSuffix("lsoa", "cd"),
		"lsoa_name": PrefixSuffix("lsoa", "nm"),
		"msoa_code": PrefixSuffix("msoa", "cd"),
		"msoa_name": PrefixSuffix("msoa", "nm"),
		"lad_name":  PrefixSuffix("lad", "nm"),
	}
	rename := map[string]string{ladKey1: "lad_code"}
	for canonical, resolver := range required {
		col, ok := Resolve(allCols, resolver)
		if !ok {
			return fmt.Errorf("geography lookups are missing a %s column (columns: %v)", canonical, allCols)
		}
		rename[col] = canonical
	}
	if fraCode, ok := Resolve(allCols, PrefixSuffix("fra", "cd")); ok {
		if fraName, ok := Resolve(allCols, PrefixSuffix("fra", "nm")); ok {
			rename[fraCode] = "frs_code"
			rename[fraName] = "frs_name"
		}
	}

	// Project, rename, and fold historical FRS codes into the canonical
	// space before deduplication so merged organisations collapse together.
	out := make([]lake.Row, 0, len(joined))
	for _, row := range joined {
		projected := make(lake.Row, len(rename))
		for src, dst := range rename {
			projected[dst] = row[src]
		}
		if code := lake.Str(projected, "frs_code"); code != "" {
			projected["frs_code"] = m.Registry.CanonicalFRSCode(code)
		}
		out = append(out, projected)
	}

	deduped := dedupeByKey(out, "lsoa_code")

	if err := lake.SaveAndCompact(m.Store, lake.TierGold, "dim_geography", deduped, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Gold: dim_geography built with %d rows (from %d).\n", len(deduped), len(out))
	return nil
}

// dedupeByKey enforces one row per key. Tie-break: a row carrying a
// non-empty frs_code beats one without; otherwise the first encounter wins.
func dedupeByKey(rows []lake.Row, key string) []lake.Row {
	byKey := make(map[string]int)
	var out []lake.Row
	for _, row := range rows {
		k := lake.Str(row, key)
		idx, seen := byKey[k]
		if !seen {
			byKey[k] = len(out)
			out = append(out, row)
			continue
		}
		if lake.Str(out[idx], "frs_code") == "" && lake.Str(row, "frs_code") != "" {
			out[idx] = row
		}
	}
	return out
}

// Ranked candidate lists for harvesting organisation columns from
// fact-shaped tables. Exact matches first; the fuzzy fallbacks only fire
// when none hit.
var (
	frsNameCandidates = []string{
		"frs_name", "frs_territory_name", "authority_name",
		"area_name", "fra_name", "territory_name",
	}
	frsCodeCandidates = []string{
		"frs_e_code", "e_code", "frs_code", "areacode",
		"authority_code", "fra_code", "operating_territory_code",
	}
	frsIgnoreTerms = []string{"lsoa", "msoa", "lad", "incident", "uprn", "postcode", "year", "date"}
)

// BuildFRSDim harvests (code, name) pairs from every cleaned fire dataset,
// reconciles them through the merger table, and keeps one row per canonical
// code, preferring the longest name, which tends to be the most
// descriptive. Finding no pairs at all is fatal. The NFCC family-group
// enrichment is best effort; unmatched codes get an explicit "Unknown".
func (m *Modeler) BuildFRSDim() error {
	datasets, err := m.Store.List(lake.TierSilverFire)
	if err != nil {
		return fmt.Errorf("failed to list silver fire tables: %w", err)
	}
	log.Printf("Gold: Scanning %d silver datasets for FRS codes...\n", len(datasets))

	type pair struct{ code, name string }
	var pairs []pair

	for _, dataset := range datasets {
		rows, err := m.Store.Read(lake.TierSilverFire, dataset)
		if err != nil {
			log.Printf("ERROR Gold: Error reading %s: %v\n", dataset, err)
			continue
		}
		cols := lake.Columns(rows)

		nameCol, ok := Resolve(cols,
			Exact(frsNameCandidates...),
			Substrings([]string{"frs", "name"}, nil),
		)
		if !ok {
			continue
		}
		codeCol, ok := Resolve(cols,
			Exact(frsCodeCandidates...),
			AnySubstring("code", []string{"frs", "e_", "area"}, frsIgnoreTerms),
		)
		if !ok {
			continue
		}

		for _, row := range rows {
			code := strings.TrimSpace(lake.Str(row, codeCol))
			name := strings.TrimSpace(lake.Str(row, nameCol))
			if code == "" || name == "" {
				continue
			}
			if len(code) != 9 || !strings.ContainsRune("ESW", rune(code[0])) {
				continue
			}
			if canonical := m.Registry.CanonicalFRSCode(code); canonical != code {
				code = canonical
				if master, ok := m.Registry.MasterFRSNames[code]; ok {
					name = master
				}
			}
			pairs = append(pairs, pair{code, name})
		}
	}

	if len(pairs) == 0 {
		return fmt.Errorf("no FRS codes found in any silver dataset")
	}

	longest := make(map[string]string)
	for _, p := range pairs {
		if existing, ok := longest[p.code]; !ok || len(p.name) > len(existing) {
			longest[p.code] = p.name
		}
	}

	codes := make([]string, 0, len(longest))
	for code := range longest {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	familyGroups := m.loadFamilyGroups()

	out := make([]lake.Row, 0, len(codes))
	for _, code := range codes {
		group, ok := familyGroups[code]
		if !ok {
			group = "Unknown"
		}
		out = append(out, lake.Row{
			"frs_e_code":   code,
			"frs_name":     longest[code],
			"family_group": group,
		})
	}

	if err := lake.SaveAndCompact(m.Store, lake.TierGold, "dim_frs", out, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Gold: dim_frs built with %d organisations.\n", len(out))
	return nil
}

func (m *Modeler) loadFamilyGroups() map[string]string {
	exists, err := m.Store.Exists(lake.TierSilverExt, "nfcc_family_groups")
	if err != nil || !exists {
		log.Println("WARN Gold: NFCC family groups unavailable, marking all Unknown.")
		return nil
	}
	rows, err := m.Store.Read(lake.TierSilverExt, "nfcc_family_groups")
	if err != nil {
		log.Printf("WARN Gold: Failed to read family groups: %v\n", err)
		return nil
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		code := lake.Str(row, "master_frs_code")
		group := lake.Str(row, "family_group")
		if code == "" || group == "" {
			continue
		}
		if _, ok := out[code]; !ok {
			out[code] = group
		}
	}
	return out
}

// BuildFinancialYearDim collects every financial year observed across the
// cleaned datasets and extends the set two periods past the maximum so
// reports have forward-looking placeholders.
func (m *Modeler) BuildFinancialYearDim() error {
	datasets, err := m.Store.List(lake.TierSilverFire)
	if err != nil {
		return fmt.Errorf("failed to list silver fire tables: %w", err)
	}

	years := make(map[string]bool)
	for _, dataset := range datasets {
		rows, err := m.Store.Read(lake.TierSilverFire, dataset)
		if err != nil {
			log.Printf("WARN Gold: Skipping %s while collecting years: %v\n", dataset, err)
			continue
		}
		for _, row := range rows {
			if fy := lake.Str(row, "financial_year"); len(fy) == 7 {
				years[fy] = true
			}
		}
	}

	maxStart := 2010
	for fy := range years {
		if start, err := strconv.Atoi(fy[:4]); err == nil && start > maxStart {
			maxStart = start
		}
	}
	for i := 1; i <= 2; i++ {
		years[financialYearForStart(maxStart+i)] = true
	}

	sorted := make([]string, 0, len(years))
	for fy := range years {
		sorted = append(sorted, fy)
	}
	sort.Strings(sorted)

	out := make([]lake.Row, 0, len(sorted))
	for _, fy := range sorted {
		start, err := strconv.Atoi(fy[:4])
		if err != nil {
			continue
		}
		out = append(out, lake.Row{
			"financial_year": fy,
			"year_sort":      float64(start),
		})
	}

	if err := lake.SaveAndCompact(m.Store, lake.TierGold, "dim_financial_year", out, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Gold: dim_financial_year built with %d periods.\n", len(out))
	return nil
}

// financialYearForStart formats an April-start fiscal year as "YYYY/YY".
func financialYearForStart(start int) string {
	return fmt.Sprintf("%d/%02d", start, (start+1)%100)
}

// BuildIncidentTypeDim classifies every cleaned dataset into a coarse
// category by keyword and derives a human-friendly display name. Datasets
// no keyword matches get an explicit "Uncategorized".
func (m *Modeler) BuildIncidentTypeDim() error {
	datasets, err := m.Store.List(lake.TierSilverFire)
	if err != nil {
		return fmt.Errorf("failed to list silver fire tables: %w", err)
	}

	out := make([]lake.Row, 0, len(datasets))
	for _, dataset := range datasets {
		normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(dataset))
		category := m.Registry.CategoryForDataset(normalized)
		out = append(out, lake.Row{
			"incident_dataset_key":  dataset,
			"dataset_name_friendly": friendlyDatasetName(dataset),
			"incident_category":     category,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ci, cj := lake.Str(out[i], "incident_category"), lake.Str(out[j], "incident_category")
		if ci != cj {
			return ci < cj
		}
		return lake.Str(out[i], "dataset_name_friendly") < lake.Str(out[j], "dataset_name_friendly")
	})

	if err := lake.SaveAndCompact(m.Store, lake.TierGold, "dim_incident_type", out, lake.Overwrite, lake.SchemaOverwrite); err != nil {
		return err
	}
	log.Printf("Gold: dim_incident_type built with %d datasets.\n", len(out))
	return nil
}

// friendlyDatasetName title-cases a dataset key and strips boilerplate
// tokens left over from the source naming scheme.
func friendlyDatasetName(dataset string) string {
	name := strings.NewReplacer("_", " ", "-", " ").Replace(dataset)
	name = titleCase(name)
	name = strings.ReplaceAll(name, "Non Fire Incidents", "")
	name = strings.ReplaceAll(name, "Govuk", "")
	return strings.Join(strings.Fields(name), " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
