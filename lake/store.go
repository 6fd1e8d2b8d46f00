// lake/store.go
package lake

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
)

// Row is one record of a lake table. Values are nil (absent), string, or
// float64; the bronze tier stores everything as strings and the silver
// typing pass decides which columns become numeric.
type Row map[string]any

// WriteMode controls whether a write replaces the table's contents or adds
// to them.
type WriteMode string

const (
	Overwrite WriteMode = "overwrite"
	Append    WriteMode = "append"
)

// SchemaMode is declared explicitly on every write: Merge allows the write
// to add columns the table does not have yet, Replace requires the write to
// establish the schema from scratch. It is never inferred from call order.
type SchemaMode string

const (
	SchemaOverwrite SchemaMode = "overwrite"
	SchemaMerge     SchemaMode = "merge"
)

// Tier names partition the lake. Each tier owns a disjoint set of tables.
const (
	TierBronzeFire = "bronze_fire"
	TierBronzeONS  = "bronze_ons"
	TierBronzeExt  = "bronze_ext"
	TierSilverFire = "silver_fire"
	TierSilverONS  = "silver_ons"
	TierSilverExt  = "silver_ext"
	TierGold       = "gold"
)

// Tiers lists every tier, bronze first.
var Tiers = []string{
	TierBronzeFire, TierBronzeONS, TierBronzeExt,
	TierSilverFire, TierSilverONS, TierSilverExt,
	TierGold,
}

// Store is the versioned-table abstraction the pipeline writes through.
// Implementations must honour the write/schema mode combinations: an
// Overwrite replaces all rows, an Append with SchemaMerge may contribute new
// columns (existing rows read back with nil in those columns).
type Store interface {
	Write(tier, table string, rows []Row, mode WriteMode, schemaMode SchemaMode) error
	Read(tier, table string) ([]Row, error)
	Exists(tier, table string) (bool, error)
	List(tier string) ([]string, error)
	Compact(tier, table string) error
	Drop(tier, table string) error
}

// SaveAndCompact writes rows and immediately compacts the table. Compaction
// failures are logged and swallowed; only the write can fail the caller.
func SaveAndCompact(s Store, tier, table string, rows []Row, mode WriteMode, schemaMode SchemaMode) error {
	log.Printf("Lake: Saving %d rows to %s/%s (mode=%s schema=%s)\n", len(rows), tier, table, mode, schemaMode)
	if err := s.Write(tier, table, rows, mode, schemaMode); err != nil {
		return err
	}
	if err := s.Compact(tier, table); err != nil {
		log.Printf("WARN Lake: Compact failed for %s/%s: %v\n", tier, table, err)
	}
	return nil
}

// Columns returns the union of column names across rows, sorted so repeated
// runs produce identical schemas regardless of map iteration order.
func Columns(rows []Row) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// Str returns the value of col as a string, or "" when absent or nil.
func Str(row Row, col string) string {
	v, ok := row[col]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Float returns the value of col as a float64 where possible.
func Float(row Row, col string) (float64, bool) {
	v, ok := row[col]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// HasColumn reports whether any row carries the column.
func HasColumn(rows []Row, col string) bool {
	for _, row := range rows {
		if _, ok := row[col]; ok {
			return true
		}
	}
	return false
}
