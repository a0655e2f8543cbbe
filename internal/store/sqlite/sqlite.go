// Package sqlite is the embedded file-backed store. Records are kept as JSON
// documents with the few columns needed for lookups, ordering and versioning
// pulled out alongside them.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS signatures (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	tracking_id TEXT NOT NULL UNIQUE,
	quiz_id     TEXT,
	created_at  INTEGER NOT NULL,
	version     INTEGER NOT NULL,
	doc         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signatures_quiz ON signatures(quiz_id);
CREATE INDEX IF NOT EXISTS idx_signatures_created ON signatures(created_at);

CREATE TABLE IF NOT EXISTS quizzes (
	quiz_id     TEXT PRIMARY KEY,
	tracking_id TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	version     INTEGER NOT NULL,
	doc         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quizzes_tracking ON quizzes(tracking_id);
`

// Store is a store.Store backed by a single SQLite database file.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open creates (or reuses) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: ensure dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer connection keeps SQLite from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateSignature(ctx context.Context, sig *models.Signature) error {
	sig.Version = 1
	doc, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("sqlite: encode signature: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signatures (tracking_id, quiz_id, created_at, version, doc) VALUES (?, ?, ?, ?, ?)`,
		sig.TrackingID, nullable(sig.QuizID), sig.CreatedAt.UnixNano(), sig.Version, string(doc))
	return mapInsertErr(err)
}

func (s *Store) GetSignature(ctx context.Context, trackingID string) (*models.Signature, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc FROM signatures WHERE tracking_id = ?`, trackingID)
	return scanSignature(row)
}

func (s *Store) GetSignatureByQuiz(ctx context.Context, quizID string) (*models.Signature, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc FROM signatures WHERE quiz_id = ? ORDER BY seq LIMIT 1`, quizID)
	return scanSignature(row)
}

func (s *Store) UpdateSignature(ctx context.Context, sig *models.Signature) error {
	next := *sig
	next.Version = sig.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("sqlite: encode signature: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE signatures SET quiz_id = ?, version = ?, doc = ? WHERE tracking_id = ? AND version = ?`,
		nullable(sig.QuizID), next.Version, string(doc), sig.TrackingID, sig.Version)
	if err != nil {
		return fmt.Errorf("sqlite: update signature: %w", err)
	}
	if err := s.checkUpdated(ctx, res, `SELECT 1 FROM signatures WHERE tracking_id = ?`, sig.TrackingID); err != nil {
		return err
	}
	sig.Version = next.Version
	return nil
}

func (s *Store) ListSignatures(ctx context.Context) ([]models.Signature, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM signatures ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list signatures: %w", err)
	}
	defer rows.Close()
	var out []models.Signature
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var sig models.Signature
		if err := json.Unmarshal([]byte(doc), &sig); err != nil {
			return nil, fmt.Errorf("sqlite: decode signature: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSignature(ctx context.Context, trackingID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM signatures WHERE tracking_id = ?`, trackingID)
	if err != nil {
		return fmt.Errorf("sqlite: delete signature: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSignatures(ctx context.Context, before time.Time) (int, error) {
	return s.deleteBefore(ctx, "signatures", before)
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	quiz.Version = 1
	doc, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("sqlite: encode quiz: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quizzes (quiz_id, tracking_id, created_at, version, doc) VALUES (?, ?, ?, ?, ?)`,
		quiz.QuizID, quiz.TrackingID, quiz.CreatedAt.UnixNano(), quiz.Version, string(doc))
	return mapInsertErr(err)
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM quizzes WHERE quiz_id = ?`, quizID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get quiz: %w", err)
	}
	var q models.Quiz
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		return nil, fmt.Errorf("sqlite: decode quiz: %w", err)
	}
	return &q, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *models.Quiz) error {
	next := *quiz
	next.Version = quiz.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("sqlite: encode quiz: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET version = ?, doc = ? WHERE quiz_id = ? AND version = ?`,
		next.Version, string(doc), quiz.QuizID, quiz.Version)
	if err != nil {
		return fmt.Errorf("sqlite: update quiz: %w", err)
	}
	if err := s.checkUpdated(ctx, res, `SELECT 1 FROM quizzes WHERE quiz_id = ?`, quiz.QuizID); err != nil {
		return err
	}
	quiz.Version = next.Version
	return nil
}

func (s *Store) DeleteQuizzesFor(ctx context.Context, trackingID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE tracking_id = ?`, trackingID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete quizzes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) DeleteQuizzes(ctx context.Context, before time.Time) (int, error) {
	return s.deleteBefore(ctx, "quizzes", before)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// deleteBefore removes rows of table older than cutoff. table is never user input.
func (s *Store) deleteBefore(ctx context.Context, table string, before time.Time) (int, error) {
	var (
		res sql.Result
		err error
	)
	if before.IsZero() {
		res, err = s.db.ExecContext(ctx, `DELETE FROM `+table)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, before.UnixNano())
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// checkUpdated distinguishes a stale version from a missing row when an
// optimistic UPDATE touched nothing.
func (s *Store) checkUpdated(ctx context.Context, res sql.Result, existsQuery, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, existsQuery, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrConflict
}

func scanSignature(row *sql.Row) (*models.Signature, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get signature: %w", err)
	}
	var sig models.Signature
	if err := json.Unmarshal([]byte(doc), &sig); err != nil {
		return nil, fmt.Errorf("sqlite: decode signature: %w", err)
	}
	return &sig, nil
}

func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return store.ErrDuplicate
	}
	return fmt.Errorf("sqlite: insert: %w", err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
