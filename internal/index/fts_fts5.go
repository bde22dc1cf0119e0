//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS usages_fts USING fts5(
			id UNINDEXED,
			literal,
			authority,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, literal, authority string) error {
	_, _ = tx.Exec(`DELETE FROM usages_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO usages_fts (id, literal, authority) VALUES (?, ?, ?)`, id, literal, authority)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM usages_fts WHERE id = ?`, id)
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM usages_fts`); err != nil {
		return fmt.Errorf("index: reset fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search over literals and authorities.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       literal,
		       snippet(usages_fts, -1, '<b>', '</b>', '...', 16)
		FROM usages_fts
		WHERE usages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Literal, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
