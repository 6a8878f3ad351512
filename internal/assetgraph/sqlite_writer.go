package assetgraph

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteGraphWriter bulk-loads dependency edges into a new asset graph database.
type SQLiteGraphWriter struct {
	mu        sync.Mutex
	db        *sql.DB
	tx        *sql.Tx
	stmtEdge  *sql.Stmt
	batchSize int
	count     int
}

// NewSQLiteGraphWriter creates dbPath (if needed) and the asset_deps table.
func NewSQLiteGraphWriter(dbPath string) (*SQLiteGraphWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Performance tuning for bulk insert
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS asset_deps (
		asset TEXT NOT NULL,
		dependency TEXT NOT NULL,
		PRIMARY KEY (asset, dependency)
	) WITHOUT ROWID;
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &SQLiteGraphWriter{db: db, batchSize: 10000}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteGraphWriter) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmtEdge, err = w.tx.Prepare(`INSERT OR IGNORE INTO asset_deps (asset, dependency) VALUES (?, ?)`)
	return err
}

func (w *SQLiteGraphWriter) commitTx() error {
	if w.stmtEdge != nil {
		_ = w.stmtEdge.Close()
	}
	return w.tx.Commit()
}

// AddDependency records that from directly references to.
func (w *SQLiteGraphWriter) AddDependency(from, to string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.stmtEdge.Exec(from, to); err != nil {
		return fmt.Errorf("insert edge %s -> %s: %w", from, to, err)
	}
	w.count++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		if err := w.beginTx(); err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
		w.count = 0
	}
	return nil
}

// Close commits pending edges and closes the database.
func (w *SQLiteGraphWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}
	return w.db.Close()
}
