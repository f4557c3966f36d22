package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// PageSize is the number of records returned per listing page.
const PageSize = 20

// Record is one persisted counseling voice submission.
type Record struct {
	ID             string
	Student        string
	Mood           string
	Language       string
	OriginalText   string
	TranslatedText string
	CreatedAt      time.Time
	Priority       string
}

// Store implements the record collaborator on SQLite.
type Store struct {
	db *sql.DB
}

// The column names mirror the compacted field names of the original
// document store: s(student) m(mood) l(language) o(original) t(translated)
// d(date) p(priority).
const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	s  TEXT NOT NULL,
	m  TEXT NOT NULL,
	l  TEXT NOT NULL,
	o  TEXT NOT NULL,
	t  TEXT NOT NULL,
	d  DATETIME NOT NULL,
	p  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_date ON records(d);
`

// Open creates a Store at the given database path and runs auto-migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open records db: %w", err)
	}

	if _, err := db.Exec(createRecordsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate records db: %w", err)
	}

	return &Store{db: db}, nil
}

// Append stores one counseling record.
func (s *Store) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, s, m, l, o, t, d, p) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Student, rec.Mood, rec.Language,
		rec.OriginalText, rec.TranslatedText, rec.CreatedAt.UTC(), rec.Priority,
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// List returns one page of records, newest first. Pages start at 1;
// values below 1 are treated as the first page.
func (s *Store) List(ctx context.Context, page int) ([]Record, error) {
	if page < 1 {
		page = 1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, s, m, l, o, t, d, p FROM records ORDER BY d DESC LIMIT ? OFFSET ?`,
		PageSize, (page-1)*PageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Student, &r.Mood, &r.Language,
			&r.OriginalText, &r.TranslatedText, &r.CreatedAt, &r.Priority); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
