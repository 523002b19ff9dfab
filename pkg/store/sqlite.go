package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shiv248/kolabpad/pkg/document"
)

// SQLiteStore is a Store backed by SQLite, persisting one row per
// committed event rather than one row per document snapshot. Adapted
// from the teacher's single-document pkg/database: that package kept the
// latest text and overwrote it on every save, which cannot answer Since
// or ContentAt for an arbitrary sequence id. Here every event is
// retained, so the log can be replayed from any point.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the SQLite database at uri and
// brings its schema up to date.
func NewSQLiteStore(uri string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Push(path string, event document.Event) (SequenceId, error) {
	kind, payload, err := encodeEvent(event)
	if err != nil {
		return 0, &Error{Kind: InvalidDocument, Err: err}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, &Error{Kind: ConnectionError, Err: err}
	}
	defer tx.Rollback()

	var head int64
	err = tx.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM events WHERE path = ?", path).Scan(&head)
	if err != nil {
		return 0, &Error{Kind: ConnectionError, Err: err}
	}
	seq := head + 1

	_, err = tx.Exec(
		"INSERT INTO events (path, seq, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		path, seq, kind, payload, time.Now().Unix(),
	)
	if err != nil {
		return 0, &Error{Kind: ConnectionError, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &Error{Kind: ConnectionError, Err: err}
	}
	return SequenceId(seq), nil
}

func (s *SQLiteStore) Seq(path string) (SequenceId, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM events WHERE path = ?", path).Scan(&count)
	if err != nil {
		return 0, &Error{Kind: ConnectionError, Err: err}
	}
	if count == 0 {
		return 0, &Error{Kind: NotFound}
	}

	var head int64
	err = s.db.QueryRow("SELECT MAX(seq) FROM events WHERE path = ?", path).Scan(&head)
	if err != nil {
		return 0, &Error{Kind: ConnectionError, Err: err}
	}
	return SequenceId(head), nil
}

func (s *SQLiteStore) Since(path string, seq SequenceId) ([]SequencedEvent, error) {
	head, err := s.Seq(path)
	if err != nil {
		return nil, err
	}
	if seq > head {
		return nil, &Error{Kind: InvalidSequenceId}
	}

	rows, err := s.db.Query(
		"SELECT seq, kind, payload FROM events WHERE path = ? AND seq > ? ORDER BY seq ASC",
		path, int64(seq),
	)
	if err != nil {
		return nil, &Error{Kind: ConnectionError, Err: err}
	}
	defer rows.Close()

	var out []SequencedEvent
	for rows.Next() {
		var rowSeq int64
		var kind, payload string
		if err := rows.Scan(&rowSeq, &kind, &payload); err != nil {
			return nil, &Error{Kind: ConnectionError, Err: err}
		}
		event, err := decodeEvent(kind, payload)
		if err != nil {
			return nil, &Error{Kind: InvalidDocument, Err: err}
		}
		out = append(out, SequencedEvent{Seq: SequenceId(rowSeq), Event: event})
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Kind: ConnectionError, Err: err}
	}
	return out, nil
}

func (s *SQLiteStore) Content(path string) (SequenceId, *document.Document, error) {
	return ReplayContent(s, path)
}

func (s *SQLiteStore) ContentAt(path string, seq SequenceId) (*document.Document, error) {
	return ReplayContentAt(s, path, seq)
}
