package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/scholarlyreport/scholarly/internal/reference"
	_ "modernc.org/sqlite"
)

// IndexFile is the file name of the ephemeral query index.
const IndexFile = "publications.db"

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectPubFields contains the standard field list for SELECT queries.
const selectPubFields = `fingerprint, title, authors, author_list_json, venue,
	journal, volume, issue, year, citations, pub_url, members_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS publications (
			fingerprint TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors TEXT,
			author_list_json TEXT NOT NULL,
			venue TEXT,
			journal TEXT,
			volume TEXT,
			issue TEXT,
			year INTEGER NOT NULL,
			citations INTEGER NOT NULL,
			pub_url TEXT,
			members_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS members (
			fingerprint TEXT NOT NULL,
			author_id TEXT NOT NULL,
			PRIMARY KEY (fingerprint, author_id)
		);
		CREATE INDEX IF NOT EXISTS idx_members_author ON members(author_id);

		-- Standalone full-text table, rebuilt together with publications
		CREATE VIRTUAL TABLE IF NOT EXISTS publications_fts USING fts5(
			fingerprint,
			title,
			authors,
			journal
		);

		CREATE TABLE IF NOT EXISTS _meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);
	`
	_, err := db.Exec(schema)
	return err
}

// RebuildFromPublications clears the index and loads pubs in one
// transaction.
func (d *DB) RebuildFromPublications(pubs []reference.Publication) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	for _, table := range []string{"publications", "members", "publications_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	pubStmt, err := tx.Prepare(`
		INSERT INTO publications (` + selectPubFields + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing publication insert: %w", err)
	}
	defer pubStmt.Close()

	memberStmt, err := tx.Prepare(`INSERT OR IGNORE INTO members (fingerprint, author_id) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing member insert: %w", err)
	}
	defer memberStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO publications_fts (fingerprint, title, authors, journal)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, p := range pubs {
		authorsJSON, err := json.Marshal(p.AuthorList)
		if err != nil {
			return 0, fmt.Errorf("marshaling authors for %s: %w", p.Fingerprint, err)
		}
		membersJSON, err := json.Marshal(p.Members)
		if err != nil {
			return 0, fmt.Errorf("marshaling members for %s: %w", p.Fingerprint, err)
		}

		_, err = pubStmt.Exec(
			p.Fingerprint, p.Title, p.RawAuthors, string(authorsJSON), p.Venue,
			p.Journal, p.Volume, p.Issue, p.Year, p.Citations, p.URL, string(membersJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting publication %s: %w", p.Fingerprint, err)
		}
		for _, id := range p.Members.IDs() {
			if _, err := memberStmt.Exec(p.Fingerprint, id); err != nil {
				return 0, fmt.Errorf("inserting member %s of %s: %w", id, p.Fingerprint, err)
			}
		}
		if _, err := ftsStmt.Exec(p.Fingerprint, p.Title, p.RawAuthors, p.Journal); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", p.Fingerprint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(pubs), nil
}

// RebuildFromSnapshot loads the JSONL snapshot into the index and records
// its hash so IsStale can detect later changes.
func (d *DB) RebuildFromSnapshot(snapshotPath string) (int, error) {
	pubs, err := ReadSnapshot(snapshotPath)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot: %w", err)
	}
	n, err := d.RebuildFromPublications(pubs)
	if err != nil {
		return 0, err
	}
	hash, err := ComputeHash(snapshotPath)
	if err != nil {
		return 0, err
	}
	if err := d.setMeta("snapshot_hash", hash); err != nil {
		return 0, fmt.Errorf("storing snapshot hash: %w", err)
	}
	if err := d.setMeta("last_sync", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("storing sync time: %w", err)
	}
	return n, nil
}

// IsStale reports whether the snapshot changed since the last rebuild.
func (d *DB) IsStale(snapshotPath string) (bool, error) {
	stored, err := d.getMeta("snapshot_hash")
	if err != nil {
		return false, err
	}
	current, err := ComputeHash(snapshotPath)
	if err != nil {
		return false, err
	}
	return stored != current, nil
}

// LastSync returns the time of the last snapshot rebuild, zero if none.
func (d *DB) LastSync() (time.Time, error) {
	v, err := d.getMeta("last_sync")
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

func (d *DB) getMeta(key string) (string, error) {
	var v sql.NullString
	err := d.db.QueryRow("SELECT value FROM _meta WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.String, nil
}

func (d *DB) setMeta(key, value string) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO _meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// Get retrieves a publication by fingerprint. It returns nil when absent.
func (d *DB) Get(fp string) (*reference.Publication, error) {
	row := d.db.QueryRow(`SELECT `+selectPubFields+` FROM publications WHERE fingerprint = ?`, fp)
	return scanPublication(row)
}

// Search performs a full-text search over title, authors and journal.
func (d *DB) Search(query string, limit int) ([]reference.Publication, error) {
	return d.SearchWithFilters(SearchFilters{Keyword: query}, limit)
}

// SearchFilters contains optional filters for SearchWithFilters.
type SearchFilters struct {
	Keyword  string // Full-text across title, authors and journal
	Title    string // Full-text in title only
	Author   string // Registry author id (exact, via membership)
	Journal  string // Normalized journal (SQL LIKE, case-insensitive)
	YearFrom int    // 0 = no minimum
	YearTo   int    // 0 = no maximum
}

// SearchWithFilters returns publications matching all given filters,
// most cited first.
func (d *DB) SearchWithFilters(filters SearchFilters, limit int) ([]reference.Publication, error) {
	var ftsTerms []string
	var args []interface{}

	if q := PrepareFTSQuery(filters.Keyword); q != "" {
		ftsTerms = append(ftsTerms, q)
	}
	if q := PrepareFTSQuery(filters.Title); q != "" {
		ftsTerms = append(ftsTerms, "title:"+q)
	}

	query := `SELECT ` + selectPubFields + ` FROM publications WHERE 1=1`
	if len(ftsTerms) > 0 {
		query += ` AND fingerprint IN (SELECT fingerprint FROM publications_fts WHERE publications_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	}
	if filters.Author != "" {
		query += ` AND fingerprint IN (SELECT fingerprint FROM members WHERE author_id = ?)`
		args = append(args, filters.Author)
	}
	if filters.Journal != "" {
		query += " AND journal LIKE ?"
		args = append(args, "%"+filters.Journal+"%")
	}
	if filters.YearFrom > 0 {
		query += " AND year >= ?"
		args = append(args, filters.YearFrom)
	}
	if filters.YearTo > 0 {
		query += " AND year <= ?"
		args = append(args, filters.YearTo)
	}

	query += " ORDER BY citations DESC, year DESC, fingerprint"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanPublications(rows)
}

// ByAuthor returns the publications of a registry author, newest first.
func (d *DB) ByAuthor(authorID string, limit int) ([]reference.Publication, error) {
	query := `SELECT ` + selectPubFields + ` FROM publications
		WHERE fingerprint IN (SELECT fingerprint FROM members WHERE author_id = ?)
		ORDER BY year DESC, citations DESC, fingerprint`
	args := []interface{}{authorID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing publications of %s: %w", authorID, err)
	}
	defer rows.Close()

	return scanPublications(rows)
}

// Count returns the total number of publications.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM publications").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPublication(s scanner) (*reference.Publication, error) {
	var p reference.Publication
	var authors, venue, journal, volume, issue, url sql.NullString
	var authorsJSON, membersJSON string

	err := s.Scan(
		&p.Fingerprint, &p.Title, &authors, &authorsJSON, &venue,
		&journal, &volume, &issue, &p.Year, &p.Citations, &url, &membersJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.RawAuthors = authors.String
	p.Venue = venue.String
	p.Journal = journal.String
	p.Volume = volume.String
	p.Issue = issue.String
	p.URL = url.String

	if err := json.Unmarshal([]byte(authorsJSON), &p.AuthorList); err != nil {
		return nil, fmt.Errorf("parsing authors JSON for %s: %w", p.Fingerprint, err)
	}
	if err := json.Unmarshal([]byte(membersJSON), &p.Members); err != nil {
		return nil, fmt.Errorf("parsing members JSON for %s: %w", p.Fingerprint, err)
	}
	return &p, nil
}

func scanPublications(rows *sql.Rows) ([]reference.Publication, error) {
	var pubs []reference.Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			pubs = append(pubs, *p)
		}
	}
	return pubs, rows.Err()
}

// PrepareFTSQuery escapes special characters for FTS5 queries.
func PrepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
