package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/xkfz007/shardsearch/internal/shard"
)

// CatalogName is the catalog database file in the data directory.
const CatalogName = "registry.db"

const catalogSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS shards (
	id             TEXT PRIMARY KEY,
	root_path      TEXT NOT NULL,
	index_path     TEXT NOT NULL,
	display_name   TEXT NOT NULL DEFAULT '',
	snippet_length INTEGER NOT NULL DEFAULT 0,
	added_at       INTEGER NOT NULL
);

-- Rows live from logical removal until the index directory is deleted.
CREATE TABLE IF NOT EXISTS pending_deletions (
	id           TEXT PRIMARY KEY,
	index_path   TEXT NOT NULL,
	managed      INTEGER NOT NULL,
	requested_at INTEGER NOT NULL
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// catalog persists registered shards in SQLite.
type catalog struct {
	db *sql.DB
}

type pendingRow struct {
	id        string
	indexPath string
	managed   bool
}

func openCatalog(path string) (*catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &catalog{db: db}, nil
}

func (c *catalog) close() error {
	return c.db.Close()
}

func (c *catalog) shards(ctx context.Context) ([]*shard.Shard, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, root_path, index_path, display_name, snippet_length, added_at
		FROM shards ORDER BY added_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shards: %w", err)
	}
	defer rows.Close()

	var out []*shard.Shard
	for rows.Next() {
		var (
			sh      shard.Shard
			addedAt int64
		)
		if err := rows.Scan(&sh.ID, &sh.RootPath, &sh.IndexPath,
			&sh.Config.DisplayName, &sh.Config.SnippetLength, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shard: %w", err)
		}
		sh.AddedAt = time.Unix(0, addedAt).UTC()
		out = append(out, &sh)
	}
	return out, rows.Err()
}

func (c *catalog) insert(ctx context.Context, sh *shard.Shard) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO shards (id, root_path, index_path, display_name, snippet_length, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.RootPath, sh.IndexPath, sh.Config.DisplayName, sh.Config.SnippetLength,
		sh.AddedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert shard %s: %w", sh.ID, err)
	}
	return nil
}

// markRemoved drops the shard row and records the pending deletion in one
// transaction.
func (c *catalog) markRemoved(ctx context.Context, sh *shard.Shard, managed bool, at time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shards WHERE id = ?`, sh.ID); err != nil {
		return fmt.Errorf("failed to delete shard %s: %w", sh.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO pending_deletions (id, index_path, managed, requested_at)
		VALUES (?, ?, ?, ?)`, sh.ID, sh.IndexPath, managed, at.UnixNano()); err != nil {
		return fmt.Errorf("failed to record pending deletion %s: %w", sh.ID, err)
	}
	return tx.Commit()
}

func (c *catalog) pending(ctx context.Context) ([]pendingRow, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, index_path, managed FROM pending_deletions ORDER BY requested_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deletions: %w", err)
	}
	defer rows.Close()

	var out []pendingRow
	for rows.Next() {
		var p pendingRow
		if err := rows.Scan(&p.id, &p.indexPath, &p.managed); err != nil {
			return nil, fmt.Errorf("failed to scan pending deletion: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *catalog) clearPending(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM pending_deletions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear pending deletion %s: %w", id, err)
	}
	return nil
}
