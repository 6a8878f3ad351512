// Package manifest persists engine output to a SQLite database so build
// steps that run later (or in another process) can read dynamic dependency
// lists without recomputing them.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/agentic-research/bundledeps/internal/engine"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS bundles (
	name TEXT PRIMARY KEY,
	raw_count INTEGER NOT NULL,
	dynamic_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS bundle_deps (
	bundle TEXT NOT NULL,
	asset TEXT NOT NULL,
	dynamic INTEGER NOT NULL,
	PRIMARY KEY (bundle, asset)
) WITHOUT ROWID;
`

// Writer stores engine snapshots.
type Writer struct {
	db *sql.DB
}

// NewWriter opens (or creates) dbPath and initializes the schema.
func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Writer{db: db}, nil
}

// Write replaces the stored rows of every bundle in entries.
// Bundles not in entries are left untouched.
func (w *Writer) Write(ctx context.Context, entries []engine.BundleDeps) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manifest write: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore (no-op if committed)

	delStmt, err := tx.PrepareContext(ctx, `DELETE FROM bundle_deps WHERE bundle = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer func() { _ = delStmt.Close() }()

	bundleStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bundles (name, raw_count, dynamic_count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bundles insert: %w", err)
	}
	defer func() { _ = bundleStmt.Close() }()

	depStmt, err := tx.PrepareContext(ctx, `INSERT INTO bundle_deps (bundle, asset, dynamic) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bundle_deps insert: %w", err)
	}
	defer func() { _ = depStmt.Close() }()

	for _, b := range entries {
		if _, err := delStmt.ExecContext(ctx, b.Name); err != nil {
			return fmt.Errorf("clear %s: %w", b.Name, err)
		}
		if _, err := bundleStmt.ExecContext(ctx, b.Name, len(b.Raw), len(b.Dynamic)); err != nil {
			return fmt.Errorf("insert bundle %s: %w", b.Name, err)
		}
		dynamic := make(map[string]struct{}, len(b.Dynamic))
		for _, d := range b.Dynamic {
			dynamic[d] = struct{}{}
		}
		for _, asset := range b.Raw {
			flag := 0
			if _, ok := dynamic[asset]; ok {
				flag = 1
			}
			if _, err := depStmt.ExecContext(ctx, b.Name, asset, flag); err != nil {
				return fmt.Errorf("insert %s dep %s: %w", b.Name, asset, err)
			}
		}
	}
	return tx.Commit()
}

// WriteEngine stores every bundle currently cached by e.
func (w *Writer) WriteEngine(ctx context.Context, e *engine.Engine) error {
	snap := e.Snapshot()
	if err := w.Write(ctx, snap); err != nil {
		return err
	}
	log.Printf("manifest: wrote %d bundles", len(snap))
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

// Read returns the dynamic dependency list of every stored bundle.
// Lists are sorted ascending; bundles without dynamic dependencies map to an
// empty slice.
func Read(dbPath string) (map[string][]string, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	out := make(map[string][]string)
	names, err := db.Query(`SELECT name FROM bundles`)
	if err != nil {
		return nil, fmt.Errorf("query bundles: %w", err)
	}
	for names.Next() {
		var name string
		if err := names.Scan(&name); err != nil {
			_ = names.Close()
			return nil, fmt.Errorf("scan bundle: %w", err)
		}
		out[name] = []string{}
	}
	if err := names.Err(); err != nil {
		_ = names.Close()
		return nil, fmt.Errorf("iterate bundles: %w", err)
	}
	_ = names.Close()

	rows, err := db.Query(`SELECT bundle, asset FROM bundle_deps WHERE dynamic = 1 ORDER BY bundle, asset`)
	if err != nil {
		return nil, fmt.Errorf("query bundle_deps: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var bundle, asset string
		if err := rows.Scan(&bundle, &asset); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[bundle] = append(out[bundle], asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
