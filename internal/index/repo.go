package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/models"
)

// SourceRow represents a row in the sources table.
type SourceRow struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// UsageRow represents a row in the usages table. Origin is the catalog
// file the usage was loaded from, empty for usages created at runtime.
type UsageRow struct {
	ID        string    `json:"id"`
	Literal   string    `json:"literal"`
	Authority string    `json:"authority,omitempty"`
	Year      string    `json:"year,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Literal string `json:"literal"`
	Snippet string `json:"snippet"`
}

// GraphNode is one usage in the link graph.
type GraphNode struct {
	ID      string `json:"id"`
	Literal string `json:"literal,omitempty"`
}

// ReplaceSource swaps every usage and link contributed by src.Path for the
// given ones and records the source checksum, within one transaction.
func (db *DB) ReplaceSource(src SourceRow, usages []UsageRow, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := clearOrigin(tx, src.Path); err != nil {
		return err
	}
	if src.UpdatedAt.IsZero() {
		src.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO sources (path, checksum, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, src.Path, src.Checksum, src.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert source: %w", err)
	}
	for _, u := range usages {
		u.Origin = src.Path
		if err := upsertUsage(tx, u); err != nil {
			return err
		}
	}
	if err := insertLinks(tx, src.Path, links); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteSource removes a source with its usages and links.
func (db *DB) DeleteSource(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearOrigin(tx, path); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM sources WHERE path = ?`, path)
	return tx.Commit()
}

func clearOrigin(tx *sql.Tx, origin string) error {
	rows, err := tx.Query(`SELECT id FROM usages WHERE origin = ?`, origin)
	if err != nil {
		return fmt.Errorf("index: list origin usages: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	for _, id := range ids {
		ftsDelete(tx, id)
	}
	_, _ = tx.Exec(`DELETE FROM usages WHERE origin = ?`, origin)
	_, _ = tx.Exec(`DELETE FROM links WHERE origin = ?`, origin)
	return nil
}

// UpsertUsage inserts or replaces a single usage.
func (db *DB) UpsertUsage(u UsageRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertUsage(tx, u); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertUsage(tx *sql.Tx, u UsageRow) error {
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now()
	}
	_, err := tx.Exec(`
		INSERT INTO usages (id, literal, authority, year, origin, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			literal    = excluded.literal,
			authority  = excluded.authority,
			year       = excluded.year,
			origin     = excluded.origin,
			updated_at = excluded.updated_at
	`, u.ID, u.Literal, u.Authority, u.Year, u.Origin, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert usage: %w", err)
	}
	return ftsUpsert(tx, u.ID, u.Literal, u.Authority)
}

// DeleteUsage removes a usage and every link touching it.
func (db *DB) DeleteUsage(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ? OR target = ?`, id, id)
	_, _ = tx.Exec(`DELETE FROM usages WHERE id = ?`, id)
	return tx.Commit()
}

// InsertLinks adds links attributed to origin. Duplicates are ignored.
func (db *DB) InsertLinks(origin string, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertLinks(tx, origin, links); err != nil {
		return err
	}
	return tx.Commit()
}

func insertLinks(tx *sql.Tx, origin string, links []models.Link) error {
	if len(links) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (annotation, type, source, target, origin) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare link insert: %w", err)
	}
	defer stmt.Close()
	for _, l := range links {
		if _, err := stmt.Exec(l.Annotation, l.Type, l.Source, l.Target, origin); err != nil {
			return fmt.Errorf("index: insert link: %w", err)
		}
	}
	return nil
}

// DeleteAnnotation removes every link contributed by an annotation.
func (db *DB) DeleteAnnotation(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM links WHERE annotation = ?`, id); err != nil {
		return fmt.Errorf("index: delete annotation: %w", err)
	}
	return nil
}

// GetUsage returns one usage row or apperr.ErrNotFound.
func (db *DB) GetUsage(id string) (*UsageRow, error) {
	var u UsageRow
	err := db.conn.QueryRow(`
		SELECT id, literal, authority, year, origin, updated_at FROM usages WHERE id = ?
	`, id).Scan(&u.ID, &u.Literal, &u.Authority, &u.Year, &u.Origin, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get usage: %w", err)
	}
	return &u, nil
}

// ListUsages returns a page of usages ordered by literal then ID, optionally
// restricted to one literal, and the total number of matching rows.
func (db *DB) ListUsages(limit, offset int, literal string) ([]UsageRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	where, args := "", []any{}
	if literal != "" {
		where, args = "WHERE literal = ?", append(args, literal)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM usages `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count usages: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, literal, authority, year, origin, updated_at
		FROM usages `+where+`
		ORDER BY literal, id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list usages: %w", err)
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.ID, &u.Literal, &u.Authority, &u.Year, &u.Origin, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Referrers returns the IDs of usages that link to target.
func (db *DB) Referrers(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: referrers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns every usage and link.
func (db *DB) Graph() ([]GraphNode, []models.Link, error) {
	rows, err := db.conn.Query(`SELECT id, literal FROM usages ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Literal); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()

	lrows, err := db.conn.Query(`SELECT annotation, type, source, target FROM links ORDER BY annotation, source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer lrows.Close()
	var links []models.Link
	for lrows.Next() {
		var l models.Link
		if err := lrows.Scan(&l.Annotation, &l.Type, &l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, lrows.Err()
}

// SourceChecksums returns the recorded checksum of every loaded source.
func (db *DB) SourceChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("index: source checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Reset empties every table. The in-memory graph is authoritative, so the
// mirror is rebuilt from scratch on start.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"links", "usages", "sources"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("index: reset %s: %w", table, err)
		}
	}
	if err := ftsReset(tx); err != nil {
		return err
	}
	return tx.Commit()
}
