package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	emitted_at TEXT NOT NULL,
	name       TEXT NOT NULL,
	namespace  TEXT NOT NULL,
	listeners  INTEGER NOT NULL
);`

// Journal persists emit history to a SQLite database, pruned to a cap so it
// cannot grow without bound.
type Journal struct {
	db  *sql.DB
	cap int
}

// OpenJournal opens (creating if needed) the journal at path, retaining at
// most capacity rows.
func OpenJournal(path string, capacity int) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open journal: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init journal schema: %w", err)
	}
	return &Journal{db: db, cap: capacity}, nil
}

// Append writes one entry and prunes rows beyond the cap.
func (j *Journal) Append(e Entry) error {
	_, err := j.db.Exec(
		`INSERT INTO events (emitted_at, name, namespace, listeners) VALUES (?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339Nano), e.Event, e.Namespace, e.Listeners,
	)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	_, err = j.db.Exec(
		`DELETE FROM events WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)`,
		j.cap,
	)
	if err != nil {
		return fmt.Errorf("history: prune: %w", err)
	}
	return nil
}

// Recent returns up to limit journal rows, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT emitted_at, name, namespace, listeners FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&ts, &e.Event, &e.Namespace, &e.Listeners); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Time, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
