// lake/mysql.go
package lake

import (
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gewnthar/firelake/config"
	_ "github.com/go-sql-driver/mysql" // MariaDB driver
)

// MySQLStore implements Store on top of MySQL/MariaDB. Tables are created
// and evolved dynamically: an Overwrite is a transactional drop-and-load, an
// Append with SchemaMerge grows the table with ALTER TABLE ADD COLUMN.
type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL initializes the database connection pool.
func OpenMySQL(cfg config.DatabaseConfig) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Lake: Successfully connected to the database.")
	return &MySQLStore{db: db}, nil
}

// Close closes the connection pool. Typically called on application shutdown.
func (s *MySQLStore) Close() {
	if s.db != nil {
		s.db.Close()
		log.Println("Lake: Database connection closed.")
	}
}

var identSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// physicalName maps a tier/table pair onto one MySQL table name. The double
// underscore keeps tier namespaces disjoint and reversible.
func physicalName(tier, table string) string {
	clean := identSanitizer.ReplaceAllString(strings.ToLower(table), "_")
	clean = strings.Trim(clean, "_")
	return tier + "__" + clean
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}

// columnSQLType picks DOUBLE when every non-nil value in the column is
// numeric, TEXT otherwise. Bronze rows are all strings so bronze tables are
// all TEXT; silver's typing pass produces float64 values for measures.
func columnSQLType(rows []Row, col string) string {
	sawValue := false
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		sawValue = true
		switch v.(type) {
		case float64, int:
		default:
			return "TEXT"
		}
	}
	if !sawValue {
		return "TEXT"
	}
	return "DOUBLE"
}

func (s *MySQLStore) Write(tier, table string, rows []Row, mode WriteMode, schemaMode SchemaMode) error {
	if len(rows) == 0 {
		if mode == Overwrite {
			// An overwrite is a values-replacing version even when empty:
			// leaving the previous rows behind would feed stale data to the
			// next stage.
			log.Printf("Lake: Overwriting %s/%s with zero rows, dropping previous version.\n", tier, table)
			return s.Drop(tier, table)
		}
		log.Printf("Lake: No rows provided for %s/%s, nothing appended.\n", tier, table)
		return nil
	}

	name := physicalName(tier, table)
	cols := Columns(rows)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", name, err)
	}
	defer tx.Rollback()

	switch mode {
	case Overwrite:
		// Clear and load: the previous version of the table is replaced in
		// one transaction so readers never see a half-written table.
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(name)); err != nil {
			return fmt.Errorf("failed to drop %s for overwrite: %w", name, err)
		}
		if err := createTable(tx, name, cols, rows); err != nil {
			return err
		}
	case Append:
		existing, err := tableColumns(tx, name)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := createTable(tx, name, cols, rows); err != nil {
				return err
			}
		} else {
			missing := diffColumns(cols, existing)
			if len(missing) > 0 {
				if schemaMode != SchemaMerge {
					return fmt.Errorf("append to %s would add columns %v but schema mode is %s", name, missing, schemaMode)
				}
				for _, col := range missing {
					ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s NULL",
						quoteIdent(name), quoteIdent(col), columnSQLType(rows, col))
					if _, err := tx.Exec(ddl); err != nil {
						return fmt.Errorf("failed to add column %s to %s: %w", col, name, err)
					}
				}
			}
		}
	default:
		return fmt.Errorf("unknown write mode %q for %s", mode, name)
	}

	if err := insertRows(tx, name, cols, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write to %s: %w", name, err)
	}
	return nil
}

func createTable(tx *sql.Tx, name string, cols []string, rows []Row) error {
	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		defs = append(defs, quoteIdent(col)+" "+columnSQLType(rows, col)+" NULL")
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

func insertRows(tx *sql.Tx, name string, cols []string, rows []Row) error {
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		placeholders[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", name, err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			args[i] = row[col]
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row into %s: %w", name, err)
		}
	}
	return nil
}

// tableColumns returns the table's columns in ordinal order, or nil when the
// table does not exist.
func tableColumns(tx *sql.Tx, name string) ([]string, error) {
	rows, err := tx.Query(`
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to scan column name of %s: %w", name, err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func diffColumns(wanted, existing []string) []string {
	have := make(map[string]bool, len(existing))
	for _, col := range existing {
		have[col] = true
	}
	var missing []string
	for _, col := range wanted {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func (s *MySQLStore) Read(tier, table string) ([]Row, error) {
	name := physicalName(tier, table)
	rows, err := s.db.Query("SELECT * FROM " + quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", name, err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeDBValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalizeDBValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(t)
	case int64:
		return float64(t)
	case float64:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (s *MySQLStore) Exists(tier, table string) (bool, error) {
	name := physicalName(tier, table)
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence of %s: %w", name, err)
	}
	return count > 0, nil
}

// List returns the logical table names of a tier, sorted ascending.
func (s *MySQLStore) List(tier string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name LIKE ?
		ORDER BY table_name`, tier+"\\_\\_%")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of tier %s: %w", tier, err)
	}
	defer rows.Close()

	var names []string
	prefix := tier + "__"
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name in tier %s: %w", tier, err)
		}
		names = append(names, strings.TrimPrefix(name, prefix))
	}
	return names, rows.Err()
}

// Compact defragments the physical table. Best effort: callers log and
// continue when it fails.
func (s *MySQLStore) Compact(tier, table string) error {
	name := physicalName(tier, table)
	if _, err := s.db.Exec("OPTIMIZE TABLE " + quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to optimize %s: %w", name, err)
	}
	return nil
}

func (s *MySQLStore) Drop(tier, table string) error {
	name := physicalName(tier, table)
	if _, err := s.db.Exec("DROP TABLE IF EXISTS " + quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	return nil
}
