package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

// DB wraps the SQLite database holding every record seen so far.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the SQLite database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS crackmes (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		author TEXT NOT NULL,
		language TEXT NOT NULL,
		platform TEXT NOT NULL,
		date TEXT NOT NULL DEFAULT '',
		quality REAL NOT NULL DEFAULT 0,
		difficulty REAL NOT NULL DEFAULT 0,
		solutions INTEGER NOT NULL DEFAULT 0,
		comments INTEGER NOT NULL DEFAULT 0,
		description TEXT,
		seen_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_crackmes_author ON crackmes(author);

	CREATE VIRTUAL TABLE IF NOT EXISTS crackmes_fts USING fts5(
		name,
		author,
		description,
		content=crackmes,
		content_rowid=pk,
		tokenize='unicode61 remove_diacritics 2'
	);

	CREATE TRIGGER IF NOT EXISTS crackmes_ai AFTER INSERT ON crackmes BEGIN
		INSERT INTO crackmes_fts(rowid, name, author, description) VALUES (new.pk, new.name, new.author, new.description);
	END;

	CREATE TRIGGER IF NOT EXISTS crackmes_ad AFTER DELETE ON crackmes BEGIN
		INSERT INTO crackmes_fts(crackmes_fts, rowid, name, author, description) VALUES('delete', old.pk, old.name, old.author, old.description);
	END;

	CREATE TRIGGER IF NOT EXISTS crackmes_au AFTER UPDATE ON crackmes BEGIN
		INSERT INTO crackmes_fts(crackmes_fts, rowid, name, author, description) VALUES('delete', old.pk, old.name, old.author, old.description);
		INSERT INTO crackmes_fts(rowid, name, author, description) VALUES (new.pk, new.name, new.author, new.description);
	END;
	`
	_, err := db.Exec(schema)
	return err
}

// sanitizeFTS5Query quotes each word so user input cannot form FTS5 syntax.
func sanitizeFTS5Query(query string) string {
	var quoted []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, `""`)
		w = strings.NewReplacer(
			"(", "",
			")", "",
			"[", "",
			"]", "",
			"{", "",
			"}", "",
			"^", "",
		).Replace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, `"`+w+`"`)
	}
	return strings.Join(quoted, " ")
}

const upsertSQL = `
	INSERT INTO crackmes (id, name, author, language, platform, date, quality, difficulty, solutions, comments, description, seen_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name=excluded.name,
		author=excluded.author,
		language=excluded.language,
		platform=excluded.platform,
		date=excluded.date,
		quality=excluded.quality,
		difficulty=excluded.difficulty,
		solutions=excluded.solutions,
		comments=excluded.comments,
		description=COALESCE(crackmes.description, excluded.description),
		seen_at=excluded.seen_at`

// SaveRecords upserts records in a single transaction. A description already
// stored is never replaced.
func (d *DB) SaveRecords(records []*crackme.Record) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		var desc sql.NullString
		if v, ok := r.Description(); ok {
			desc = sql.NullString{String: v, Valid: true}
		}
		if _, err := stmt.Exec(
			r.ID, r.Name, r.Author, r.Language.String(), r.Platform.String(), r.Date,
			r.Stats.Quality, r.Stats.Difficulty, r.Solutions, r.Comments, desc, now,
		); err != nil {
			return fmt.Errorf("saving %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// SaveDescription stores a description for an already known record. It is a
// no-op when the record is unknown or already has one.
func (d *DB) SaveDescription(id, description string) error {
	_, err := d.db.Exec(
		"UPDATE crackmes SET description = ? WHERE id = ? AND description IS NULL",
		description, id,
	)
	return err
}

// Description returns the stored description for id, if any.
func (d *DB) Description(id string) (string, bool, error) {
	var desc sql.NullString
	err := d.db.QueryRow("SELECT description FROM crackmes WHERE id = ?", id).Scan(&desc)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return desc.String, desc.Valid, nil
}

// Search performs a full-text search over names, authors and descriptions.
func (d *DB) Search(query string, limit int) ([]*crackme.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	sanitized := sanitizeFTS5Query(query)
	if sanitized == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT c.id, c.name, c.author, c.language, c.platform, c.date,
		       c.quality, c.difficulty, c.solutions, c.comments, c.description
		FROM crackmes_fts fts
		JOIN crackmes c ON c.pk = fts.rowid
		WHERE crackmes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []*crackme.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanRecord(rows *sql.Rows) (*crackme.Record, error) {
	var (
		r                  crackme.Record
		language, platform string
		desc               sql.NullString
	)
	if err := rows.Scan(
		&r.ID, &r.Name, &r.Author, &language, &platform, &r.Date,
		&r.Stats.Quality, &r.Stats.Difficulty, &r.Solutions, &r.Comments, &desc,
	); err != nil {
		return nil, err
	}
	r.Language = crackme.LanguageFromText(language)
	r.Platform = crackme.PlatformFromText(platform)
	if desc.Valid {
		if err := r.SetDescription(desc.String); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// Stats returns cache statistics.
type Stats struct {
	Crackmes  int
	Described int
	Authors   int
}

// GetStats returns statistics about the cache.
func (d *DB) GetStats() (Stats, error) {
	var s Stats
	if err := d.db.QueryRow("SELECT COUNT(*) FROM crackmes").Scan(&s.Crackmes); err != nil {
		return s, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM crackmes WHERE description IS NOT NULL").Scan(&s.Described); err != nil {
		return s, err
	}
	if err := d.db.QueryRow("SELECT COUNT(DISTINCT author) FROM crackmes").Scan(&s.Authors); err != nil {
		return s, err
	}
	return s, nil
}
