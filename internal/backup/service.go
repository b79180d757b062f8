package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Service writes gzip-compressed SQL dumps of the license database. Dumps
// land in a backups/ directory next to the database file.
type Service struct {
	db     *sqlx.DB
	dbPath string
}

func NewService(db *sqlx.DB, dbPath string) *Service {
	return &Service{db: db, dbPath: dbPath}
}

// Result describes a completed backup.
type Result struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// Create snapshots the live database with VACUUM INTO, dumps the snapshot as
// SQL and writes it gzip-compressed. The snapshot keeps the dump consistent
// while the server keeps serving writes.
func (s *Service) Create(ctx context.Context) (*Result, error) {
	backupDir := filepath.Join(filepath.Dir(s.dbPath), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	filename := time.Now().Format("2006-01-02_15.04.05") + "_licdump.sql.gz"
	backupPath := filepath.Join(backupDir, filename)

	snapPath := filepath.Join(backupDir, "snapshot.db")
	defer os.Remove(snapPath)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, snapPath); err != nil {
		return nil, fmt.Errorf("vacuum into snapshot: %w", err)
	}

	snap, err := sqlx.Open("sqlite3", snapPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer snap.Close()

	file, err := os.Create(backupPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	if err := writeDump(ctx, snap, gz); err != nil {
		gz.Close()
		return nil, fmt.Errorf("write dump: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	return &Result{Filename: filename, Path: backupPath, Size: info.Size()}, nil
}

// writeDump streams a restorable SQL dump of the snapshot to w: schema first,
// then one INSERT per row, wrapped in a single transaction.
func writeDump(ctx context.Context, db *sqlx.DB, w io.Writer) error {
	fmt.Fprintf(w, "-- Licserver database backup\n-- Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprint(w, "PRAGMA foreign_keys=OFF;\nBEGIN TRANSACTION;\n\n")

	schemas, err := schemaObjects(ctx, db)
	if err != nil {
		return err
	}
	for _, obj := range schemas {
		fmt.Fprintf(w, "%s;\n", obj.SQL)
	}
	fmt.Fprint(w, "\n")

	tables, err := userTables(ctx, db)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := writeInserts(ctx, db, w, table); err != nil {
			return fmt.Errorf("dump table %s: %w", table, err)
		}
	}

	fmt.Fprint(w, "COMMIT;\nPRAGMA journal_mode=WAL;\n")
	return nil
}

type schemaObject struct {
	Type string `db:"type"`
	Name string `db:"name"`
	SQL  string `db:"sql"`
}

func schemaObjects(ctx context.Context, db *sqlx.DB) ([]schemaObject, error) {
	const query = `
		SELECT type, name, sql
		FROM sqlite_master
		WHERE sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY
			CASE type
				WHEN 'table' THEN 1
				WHEN 'index' THEN 2
				WHEN 'trigger' THEN 3
				WHEN 'view' THEN 4
			END,
			name
	`
	var schemas []schemaObject
	if err := db.SelectContext(ctx, &schemas, query); err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	return schemas, nil
}

func userTables(ctx context.Context, db *sqlx.DB) ([]string, error) {
	const query = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	var tables []string
	if err := db.SelectContext(ctx, &tables, query); err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return tables, nil
}

func writeInserts(ctx context.Context, db *sqlx.DB, w io.Writer, table string) error {
	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	wrote := false
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scan row: %w", err)
		}

		values := make([]string, len(row))
		for i, v := range row {
			values[i] = literal(v)
		}

		fmt.Fprintf(w, "INSERT INTO %q (%s) VALUES (%s);\n",
			table,
			strings.Join(quoteColumns(columns), ", "),
			strings.Join(values, ", "))
		wrote = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}

	if wrote {
		fmt.Fprint(w, "\n")
	}
	return nil
}

func quoteColumns(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	return quoted
}

// literal renders a scanned value as a SQL literal.
func literal(v interface{}) string {
	if v == nil {
		return "NULL"
	}

	switch val := v.(type) {
	case []byte:
		return "'" + escape(string(val)) + "'"
	case string:
		return "'" + escape(val) + "'"
	case time.Time:
		return "'" + val.UTC().Format("2006-01-02 15:04:05") + "'"
	case int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return "'" + escape(fmt.Sprintf("%v", val)) + "'"
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
