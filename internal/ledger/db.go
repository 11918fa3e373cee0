// Package ledger reads the normalized tax ledger written by the extraction
// pipeline. The query core only ever opens it read-only.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the ledger database name inside the database directory.
const FileName = "llmli_tax_ledger.db"

// ErrUnavailable is returned when no ledger database exists.
var ErrUnavailable = errors.New("tax ledger unavailable")

// Row is one normalized extracted tax value.
type Row struct {
	Silo              string   `json:"silo"`
	Source            string   `json:"source"`
	Page              int      `json:"page"`
	TaxYear           int      `json:"tax_year"`
	FormType          string   `json:"form_type"`
	FieldCode         string   `json:"field_code"`
	FieldLabel        string   `json:"field_label"`
	EntityName        string   `json:"entity_name"`
	EntityTokens      []string `json:"entity_tokens"`
	NormalizedDecimal string   `json:"normalized_decimal"`
	Confidence        float64  `json:"confidence"`
	Tier              string   `json:"tier"`
	TraceRef          string   `json:"trace_ref"`
}

// DB wraps a read-only sql.DB over the ledger.
type DB struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the ledger path inside dbDir.
func DefaultPath(dbDir string) string {
	return filepath.Join(dbDir, FileName)
}

// Open opens the ledger at path read-only. It returns ErrUnavailable when the
// file does not exist.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("accessing ledger %s: %w", path, err)
	}

	sqlDB, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging ledger: %w", err)
	}
	return &DB{db: sqlDB, path: path}, nil
}

// OpenMemory creates an in-memory ledger with the schema applied (useful for
// testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory ledger: %w", err)
	}
	// A second connection would see a different :memory: database.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &DB{db: sqlDB, path: ":memory:"}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS tax_ledger (
    silo TEXT NOT NULL,
    source TEXT NOT NULL,
    page INTEGER NOT NULL DEFAULT 0,
    tax_year INTEGER NOT NULL,
    form_type TEXT NOT NULL DEFAULT '',
    field_code TEXT NOT NULL,
    field_label TEXT NOT NULL DEFAULT '',
    entity_name TEXT NOT NULL DEFAULT '',
    entity_tokens TEXT NOT NULL DEFAULT '[]',
    normalized_decimal TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    tier TEXT NOT NULL DEFAULT '',
    trace_ref TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_tax_ledger_year ON tax_ledger(tax_year);
`

// Rows returns every ledger row for year, optionally restricted to silo,
// ordered by (source, page, field_code, normalized_decimal).
func (d *DB) Rows(ctx context.Context, year int, silo string) ([]Row, error) {
	q := `SELECT silo, source, page, tax_year, form_type, field_code, field_label,
	             entity_name, entity_tokens, normalized_decimal, confidence, tier, trace_ref
	      FROM tax_ledger WHERE tax_year = ?`
	args := []any{year}
	if silo != "" {
		q += ` AND silo = ?`
		args = append(args, silo)
	}
	q += ` ORDER BY source, page, field_code, normalized_decimal`

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var tokens string
		if err := rows.Scan(&r.Silo, &r.Source, &r.Page, &r.TaxYear, &r.FormType, &r.FieldCode,
			&r.FieldLabel, &r.EntityName, &tokens, &r.NormalizedDecimal, &r.Confidence, &r.Tier, &r.TraceRef); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		if err := json.Unmarshal([]byte(tokens), &r.EntityTokens); err != nil {
			return nil, fmt.Errorf("decoding entity tokens for %s: %w", r.Source, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
