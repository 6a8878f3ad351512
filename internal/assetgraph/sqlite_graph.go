package assetgraph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteGraph answers dependency queries from an asset_deps edge table.
// The database is opened read-only; build one with SQLiteGraphWriter.
//
// Closures are computed inside SQLite with a recursive CTE. UNION (not
// UNION ALL) deduplicates rows, which also terminates on cyclic references.
type SQLiteGraph struct {
	db     *sql.DB
	dbPath string
}

const closureQuery = `
	WITH RECURSIVE closure(asset) AS (
		SELECT value FROM json_each(?)
		UNION
		SELECT d.dependency FROM asset_deps d JOIN closure c ON d.asset = c.asset
	)
	SELECT asset FROM closure ORDER BY asset`

// OpenSQLiteGraph opens dbPath read-only and checks the edge table exists.
// A missing file is an error; it is never created.
func OpenSQLiteGraph(dbPath string) (*SQLiteGraph, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(4)

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'asset_deps'`).Scan(&name)
	if err != nil {
		_ = db.Close()
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: missing asset_deps table", dbPath)
		}
		return nil, fmt.Errorf("inspect %s: %w", dbPath, err)
	}
	return &SQLiteGraph{db: db, dbPath: dbPath}, nil
}

// Dependencies implements Oracle.
func (g *SQLiteGraph) Dependencies(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return []string{}, nil
	}
	arg, err := json.Marshal(paths)
	if err != nil {
		return nil, fmt.Errorf("encode paths: %w", err)
	}

	rows, err := g.db.QueryContext(ctx, closureQuery, string(arg))
	if err != nil {
		return nil, fmt.Errorf("query closure: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	out := make([]string, 0, len(paths))
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (g *SQLiteGraph) Close() error {
	return g.db.Close()
}

var _ Oracle = (*SQLiteGraph)(nil)
