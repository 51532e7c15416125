package notedrop

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const postgresOperationTimeout = 5 * time.Second

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

type PostgresStore struct {
	dsn    string
	openDB sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidInput
	}
	return &PostgresStore{
		dsn:    dsn,
		openDB: sql.Open,
	}, nil
}

func (s *PostgresStore) ensureReady() error {
	if s == nil {
		return ErrInvalidInput
	}
	s.initOnce.Do(func() {
		db, err := s.openDB("postgres", s.dsn)
		if err != nil {
			s.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
		defer cancel()

		schema := `
			CREATE TABLE IF NOT EXISTS notes (
				id TEXT PRIMARY KEY,
				sender_id TEXT NOT NULL,
				sender_label TEXT,
				text TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				external_id TEXT,
				synced BOOLEAN NOT NULL DEFAULT FALSE,
				last_error TEXT
			)`
		if _, err := db.ExecContext(ctx, schema); err != nil {
			_ = db.Close()
			s.initErr = err
			return
		}
		for _, index := range []string{
			"CREATE INDEX IF NOT EXISTS notes_created_at_idx ON notes (created_at)",
			"CREATE INDEX IF NOT EXISTS notes_sender_id_idx ON notes (sender_id)",
		} {
			if _, err := db.ExecContext(ctx, index); err != nil {
				_ = db.Close()
				s.initErr = err
				return
			}
		}
		s.db = db
	})
	return s.initErr
}

func (s *PostgresStore) Begin(ctx context.Context) (NoteTx, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx}, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, id string) (Note, error) {
	if err := s.ensureReady(); err != nil {
		return Note{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender_id, sender_label, text, created_at, external_id, synced, last_error
		FROM notes WHERE id = $1`, id)
	return scanPostgresNote(row)
}

func (s *PostgresStore) ListUnsynced(ctx context.Context) ([]Note, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_label, text, created_at, external_id, synced, last_error
		FROM notes WHERE synced = FALSE ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostgresNotes(rows)
}

func (s *PostgresStore) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, postgresOperationTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_label, text, created_at, external_id, synced, last_error
		FROM notes ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostgresNotes(rows)
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) CreateNote(ctx context.Context, senderID, senderLabel, text string) (Note, error) {
	note, err := newNote(senderID, senderLabel, text)
	if err != nil {
		return Note{}, err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO notes (id, sender_id, sender_label, text, created_at, synced)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, FALSE)`,
		note.ID, note.SenderID, note.SenderLabel, note.Text, note.CreatedAt)
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

func (t *postgresTx) MarkSynced(ctx context.Context, noteID, externalID string) (Note, error) {
	row := t.tx.QueryRowContext(ctx, `
		UPDATE notes
		SET synced = TRUE, external_id = $2, last_error = NULL
		WHERE id = $1
		RETURNING id, sender_id, sender_label, text, created_at, external_id, synced, last_error`,
		noteID, externalID)
	return scanPostgresNote(row)
}

func (t *postgresTx) MarkFailed(ctx context.Context, noteID, errorText string) (Note, error) {
	// external_id is deliberately left untouched.
	row := t.tx.QueryRowContext(ctx, `
		UPDATE notes
		SET synced = FALSE, last_error = $2
		WHERE id = $1
		RETURNING id, sender_id, sender_label, text, created_at, external_id, synced, last_error`,
		noteID, errorText)
	return scanPostgresNote(row)
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresNote(row rowScanner) (Note, error) {
	var note Note
	var senderLabel, externalID, lastError sql.NullString
	err := row.Scan(&note.ID, &note.SenderID, &senderLabel, &note.Text, &note.CreatedAt, &externalID, &note.Synced, &lastError)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	note.SenderLabel = senderLabel.String
	note.ExternalID = externalID.String
	note.LastError = lastError.String
	note.CreatedAt = note.CreatedAt.UTC()
	return note, nil
}

func collectPostgresNotes(rows *sql.Rows) ([]Note, error) {
	notes := make([]Note, 0)
	for rows.Next() {
		note, err := scanPostgresNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}
