package repository

import (
	"context"
	"time"

	"github.com/parisxmas/OxiDB/OxiSign/internal/db"
	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

// Store adapts the OxiDB repositories to store.Store.
type Store struct {
	pool       *db.Pool
	signatures *SignatureRepo
	quizzes    *QuizRepo
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *db.Pool) *Store {
	return &Store{
		pool:       pool,
		signatures: NewSignatureRepo(pool),
		quizzes:    NewQuizRepo(pool),
	}
}

// EnsureIndexes creates the unique and lookup indexes both collections rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.signatures.EnsureIndexes(ctx); err != nil {
		return err
	}
	return s.quizzes.EnsureIndexes(ctx)
}

func (s *Store) CreateSignature(ctx context.Context, sig *models.Signature) error {
	return s.signatures.Create(ctx, sig)
}

func (s *Store) GetSignature(ctx context.Context, trackingID string) (*models.Signature, error) {
	return s.signatures.FindOne(ctx, map[string]any{"tracking_id": trackingID})
}

func (s *Store) GetSignatureByQuiz(ctx context.Context, quizID string) (*models.Signature, error) {
	return s.signatures.FindOne(ctx, map[string]any{"quiz_id": quizID})
}

func (s *Store) UpdateSignature(ctx context.Context, sig *models.Signature) error {
	return s.signatures.Update(ctx, sig)
}

func (s *Store) ListSignatures(ctx context.Context) ([]models.Signature, error) {
	return s.signatures.FindAll(ctx)
}

func (s *Store) DeleteSignature(ctx context.Context, trackingID string) error {
	n, err := s.signatures.Delete(ctx, map[string]any{"tracking_id": trackingID})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSignatures(ctx context.Context, before time.Time) (int, error) {
	return s.signatures.Delete(ctx, createdQuery(before))
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return s.quizzes.Create(ctx, quiz)
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	return s.quizzes.FindByID(ctx, quizID)
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return s.quizzes.Update(ctx, quiz)
}

func (s *Store) DeleteQuizzesFor(ctx context.Context, trackingID string) (int, error) {
	return s.quizzes.Delete(ctx, map[string]any{"tracking_id": trackingID})
}

func (s *Store) DeleteQuizzes(ctx context.Context, before time.Time) (int, error) {
	return s.quizzes.Delete(ctx, createdQuery(before))
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
