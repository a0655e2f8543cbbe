// Package store defines the persistence contract for signature and quiz
// records.
//
// Every backend stores records as JSON documents and follows the same
// optimistic-versioning discipline: Create sets Version to 1, and an Update
// only succeeds when the caller's Version matches the stored one, after which
// both are incremented. A stale Update returns ErrConflict and changes nothing.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrConflict  = errors.New("store: version conflict")
	ErrDuplicate = errors.New("store: duplicate key")
)

type SignatureStore interface {
	CreateSignature(ctx context.Context, sig *models.Signature) error
	GetSignature(ctx context.Context, trackingID string) (*models.Signature, error)
	GetSignatureByQuiz(ctx context.Context, quizID string) (*models.Signature, error)
	UpdateSignature(ctx context.Context, sig *models.Signature) error
	// ListSignatures returns every record in insertion order.
	ListSignatures(ctx context.Context) ([]models.Signature, error)
	DeleteSignature(ctx context.Context, trackingID string) error
	// DeleteSignatures removes records created before cutoff; a zero cutoff removes all.
	DeleteSignatures(ctx context.Context, before time.Time) (int, error)
}

type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *models.Quiz) error
	DeleteQuizzesFor(ctx context.Context, trackingID string) (int, error)
	// DeleteQuizzes removes quizzes created before cutoff; a zero cutoff removes all.
	DeleteQuizzes(ctx context.Context, before time.Time) (int, error)
}

// Store is the full record store used by the services.
type Store interface {
	SignatureStore
	QuizStore
	Ping(ctx context.Context) error
	Close() error
}
