// Package postgres stores signature and quiz records as JSONB documents in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS esign_signatures (
	seq         BIGSERIAL PRIMARY KEY,
	tracking_id TEXT NOT NULL UNIQUE,
	quiz_id     TEXT,
	created_at  TIMESTAMPTZ NOT NULL,
	version     INTEGER NOT NULL,
	doc         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS esign_signatures_quiz_idx ON esign_signatures(quiz_id);

CREATE TABLE IF NOT EXISTS esign_quizzes (
	quiz_id     TEXT PRIMARY KEY,
	tracking_id TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	version     INTEGER NOT NULL,
	doc         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS esign_quizzes_tracking_idx ON esign_quizzes(tracking_id);
`

const uniqueViolation = "23505"

type Store struct{ DB *pgxpool.Pool }

var _ store.Store = (*Store)(nil)

// Open connects to databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &Store{DB: pool}, nil
}

func (s *Store) CreateSignature(ctx context.Context, sig *models.Signature) error {
	sig.Version = 1
	doc, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx,
		`INSERT INTO esign_signatures (tracking_id, quiz_id, created_at, version, doc) VALUES ($1, NULLIF($2, ''), $3, $4, $5)`,
		sig.TrackingID, sig.QuizID, sig.CreatedAt, sig.Version, doc)
	return mapInsertErr(err)
}

func (s *Store) GetSignature(ctx context.Context, trackingID string) (*models.Signature, error) {
	return s.getSignature(ctx, `SELECT doc FROM esign_signatures WHERE tracking_id = $1`, trackingID)
}

func (s *Store) GetSignatureByQuiz(ctx context.Context, quizID string) (*models.Signature, error) {
	return s.getSignature(ctx, `SELECT doc FROM esign_signatures WHERE quiz_id = $1 ORDER BY seq LIMIT 1`, quizID)
}

func (s *Store) getSignature(ctx context.Context, query, arg string) (*models.Signature, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, query, arg).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sig models.Signature
	if err := json.Unmarshal(doc, &sig); err != nil {
		return nil, fmt.Errorf("postgres: decode signature: %w", err)
	}
	return &sig, nil
}

func (s *Store) UpdateSignature(ctx context.Context, sig *models.Signature) error {
	next := *sig
	next.Version = sig.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx,
		`UPDATE esign_signatures SET quiz_id = NULLIF($1, ''), version = $2, doc = $3 WHERE tracking_id = $4 AND version = $5`,
		sig.QuizID, next.Version, doc, sig.TrackingID, sig.Version)
	if err != nil {
		return err
	}
	if err := s.checkUpdated(ctx, tag, `SELECT 1 FROM esign_signatures WHERE tracking_id = $1`, sig.TrackingID); err != nil {
		return err
	}
	sig.Version = next.Version
	return nil
}

func (s *Store) ListSignatures(ctx context.Context) ([]models.Signature, error) {
	rows, err := s.DB.Query(ctx, `SELECT doc FROM esign_signatures ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Signature
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var sig models.Signature
		if err := json.Unmarshal(doc, &sig); err != nil {
			return nil, fmt.Errorf("postgres: decode signature: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSignature(ctx context.Context, trackingID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM esign_signatures WHERE tracking_id = $1`, trackingID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSignatures(ctx context.Context, before time.Time) (int, error) {
	return s.deleteBefore(ctx, "esign_signatures", before)
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	quiz.Version = 1
	doc, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx,
		`INSERT INTO esign_quizzes (quiz_id, tracking_id, created_at, version, doc) VALUES ($1, $2, $3, $4, $5)`,
		quiz.QuizID, quiz.TrackingID, quiz.CreatedAt, quiz.Version, doc)
	return mapInsertErr(err)
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, `SELECT doc FROM esign_quizzes WHERE quiz_id = $1`, quizID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var q models.Quiz
	if err := json.Unmarshal(doc, &q); err != nil {
		return nil, fmt.Errorf("postgres: decode quiz: %w", err)
	}
	return &q, nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *models.Quiz) error {
	next := *quiz
	next.Version = quiz.Version + 1
	doc, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx,
		`UPDATE esign_quizzes SET version = $1, doc = $2 WHERE quiz_id = $3 AND version = $4`,
		next.Version, doc, quiz.QuizID, quiz.Version)
	if err != nil {
		return err
	}
	if err := s.checkUpdated(ctx, tag, `SELECT 1 FROM esign_quizzes WHERE quiz_id = $1`, quiz.QuizID); err != nil {
		return err
	}
	quiz.Version = next.Version
	return nil
}

func (s *Store) DeleteQuizzesFor(ctx context.Context, trackingID string) (int, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM esign_quizzes WHERE tracking_id = $1`, trackingID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) DeleteQuizzes(ctx context.Context, before time.Time) (int, error) {
	return s.deleteBefore(ctx, "esign_quizzes", before)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *Store) Close() error {
	s.DB.Close()
	return nil
}

func (s *Store) deleteBefore(ctx context.Context, table string, before time.Time) (int, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if before.IsZero() {
		tag, err = s.DB.Exec(ctx, `DELETE FROM `+table)
	} else {
		tag, err = s.DB.Exec(ctx, `DELETE FROM `+table+` WHERE created_at < $1`, before)
	}
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) checkUpdated(ctx context.Context, tag pgconn.CommandTag, existsQuery, id string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var one int
	err := s.DB.QueryRow(ctx, existsQuery, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrConflict
}

func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}
