package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiSign/internal/db"
	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/oxidb"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

const QuizzesCollection = "_esign_quizzes"

type QuizRepo struct {
	pool *db.Pool
}

func NewQuizRepo(pool *db.Pool) *QuizRepo {
	return &QuizRepo{pool: pool}
}

func (r *QuizRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateUniqueIndex(ctx, QuizzesCollection, "quiz_id"); err != nil {
		return err
	}
	return c.CreateIndex(ctx, QuizzesCollection, "tracking_id")
}

func (r *QuizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	quiz.Version = 1
	doc, err := toDoc(quiz, quiz.CreatedAt)
	if err != nil {
		return err
	}
	if _, err := r.pool.Get().Insert(ctx, QuizzesCollection, doc); err != nil {
		var dup *oxidb.DuplicateKeyError
		if errors.As(err, &dup) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *QuizRepo) FindByID(ctx context.Context, quizID string) (*models.Quiz, error) {
	doc, err := r.pool.Get().FindOne(ctx, QuizzesCollection, map[string]any{"quiz_id": quizID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, store.ErrNotFound
	}
	var q models.Quiz
	if err := fromDoc(doc, &q); err != nil {
		return nil, fmt.Errorf("quiz: %w", err)
	}
	return &q, nil
}

// Update writes quiz only if the stored version still matches quiz.Version.
func (r *QuizRepo) Update(ctx context.Context, quiz *models.Quiz) error {
	next := *quiz
	next.Version = quiz.Version + 1
	doc, err := toDoc(&next, quiz.CreatedAt)
	if err != nil {
		return err
	}
	c := r.pool.Get()
	query := map[string]any{"quiz_id": quiz.QuizID, "version": quiz.Version}
	modified, err := c.UpdateOne(ctx, QuizzesCollection, query, map[string]any{"$set": doc})
	if err != nil {
		return err
	}
	if modified == 0 {
		n, err := c.Count(ctx, QuizzesCollection, map[string]any{"quiz_id": quiz.QuizID})
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	quiz.Version = next.Version
	return nil
}

func (r *QuizRepo) Delete(ctx context.Context, query map[string]any) (int, error) {
	return r.pool.Get().Delete(ctx, QuizzesCollection, query)
}
