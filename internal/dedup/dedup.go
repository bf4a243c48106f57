package dedup

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Index is a disk-backed, primary-key set of seen order_ids. A single
// process opens exactly one Index per dedup database file.
type Index struct {
	mu sync.Mutex
	db *sqlx.DB
}

// Open opens (creating if necessary) the SQLite dedup database at
// path and ensures its schema exists. sqlite does not multithread, so
// the connection is forced to a single open connection — mirrors the
// teacher's internal/repository/dbConnection.go singleton discipline,
// here scoped to one Index rather than a process-wide global.
func Open(path string) (*Index, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("dedup: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS seen_order (order_id TEXT PRIMARY KEY)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("dedup: create schema: %w", err)
	}

	return &Index{db: db}, nil
}

// IsDuplicate reports whether orderID has already been marked seen.
func (idx *Index) IsDuplicate(orderID string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var exists int
	err := idx.db.Get(&exists, `SELECT 1 FROM seen_order WHERE order_id = ?`, orderID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup: lookup %q: %w", orderID, err)
	}
	return true, nil
}

// MarkSeen records orderID as seen. Idempotent: marking an
// already-seen id is a no-op.
func (idx *Index) MarkSeen(orderID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.db.Exec(`INSERT OR IGNORE INTO seen_order(order_id) VALUES (?)`, orderID); err != nil {
		return fmt.Errorf("dedup: insert %q: %w", orderID, err)
	}
	return nil
}

// TestAndMark atomically checks and records orderID in one round trip:
// it reports true iff orderID was already present before this call.
// Under the forced single-connection discipline above, the
// insert-or-ignore and the rows-affected check are observed
// atomically with respect to any other caller in this process.
func (idx *Index) TestAndMark(orderID string) (wasDuplicate bool, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	res, err := idx.db.Exec(`INSERT OR IGNORE INTO seen_order(order_id) VALUES (?)`, orderID)
	if err != nil {
		return false, fmt.Errorf("dedup: insert %q: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup: rows affected for %q: %w", orderID, err)
	}
	return n == 0, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}
