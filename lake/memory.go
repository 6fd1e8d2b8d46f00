// lake/memory.go
package lake

import (
	"fmt"
	"sort"
	"strings"
)

// MemStore is an in-memory Store with the same write/schema-mode semantics
// as the MySQL implementation. It backs the pipeline tests so they run
// without a database.
type MemStore struct {
	tables map[string]*memTable
}

type memTable struct {
	cols []string
	rows []Row
}

func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

func (s *MemStore) key(tier, table string) string {
	return tier + "__" + strings.ToLower(table)
}

func (s *MemStore) Write(tier, table string, rows []Row, mode WriteMode, schemaMode SchemaMode) error {
	key := s.key(tier, table)
	if len(rows) == 0 {
		if mode == Overwrite {
			delete(s.tables, key)
		}
		return nil
	}
	cols := Columns(rows)

	switch mode {
	case Overwrite:
		s.tables[key] = &memTable{cols: cols, rows: copyRows(rows)}
		return nil
	case Append:
		t, ok := s.tables[key]
		if !ok {
			s.tables[key] = &memTable{cols: cols, rows: copyRows(rows)}
			return nil
		}
		missing := diffColumns(cols, t.cols)
		if len(missing) > 0 {
			if schemaMode != SchemaMerge {
				return fmt.Errorf("append to %s would add columns %v but schema mode is %s", key, missing, schemaMode)
			}
			t.cols = append(t.cols, missing...)
		}
		t.rows = append(t.rows, copyRows(rows)...)
		return nil
	default:
		return fmt.Errorf("unknown write mode %q for %s", mode, key)
	}
}

func copyRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// Read returns every row widened to the table's full schema; columns a row
// never carried come back nil, mirroring SQL NULLs after a schema merge.
func (s *MemStore) Read(tier, table string) ([]Row, error) {
	t, ok := s.tables[s.key(tier, table)]
	if !ok {
		return nil, fmt.Errorf("table %s/%s does not exist", tier, table)
	}
	out := make([]Row, len(t.rows))
	for i, row := range t.rows {
		widened := make(Row, len(t.cols))
		for _, col := range t.cols {
			if v, ok := row[col]; ok {
				widened[col] = v
			} else {
				widened[col] = nil
			}
		}
		out[i] = widened
	}
	return out, nil
}

func (s *MemStore) Exists(tier, table string) (bool, error) {
	_, ok := s.tables[s.key(tier, table)]
	return ok, nil
}

func (s *MemStore) List(tier string) ([]string, error) {
	prefix := tier + "__"
	var names []string
	for key := range s.tables {
		if strings.HasPrefix(key, prefix) {
			names = append(names, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemStore) Compact(tier, table string) error {
	return nil
}

func (s *MemStore) Drop(tier, table string) error {
	delete(s.tables, s.key(tier, table))
	return nil
}

// SchemaColumns exposes a table's column set for assertions in tests.
func (s *MemStore) SchemaColumns(tier, table string) []string {
	t, ok := s.tables[s.key(tier, table)]
	if !ok {
		return nil
	}
	cols := make([]string, len(t.cols))
	copy(cols, t.cols)
	return cols
}
