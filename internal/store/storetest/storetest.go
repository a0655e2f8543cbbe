// Package storetest holds the behavioural suite every store.Store backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

// Factory returns an empty store; cleanup is the factory's responsibility.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("SignatureRoundTrip", func(t *testing.T) { testSignatureRoundTrip(t, newStore(t)) })
	t.Run("DuplicateTrackingID", func(t *testing.T) { testDuplicate(t, newStore(t)) })
	t.Run("MissingRecords", func(t *testing.T) { testMissing(t, newStore(t)) })
	t.Run("OptimisticVersioning", func(t *testing.T) { testVersioning(t, newStore(t)) })
	t.Run("LookupByQuiz", func(t *testing.T) { testLookupByQuiz(t, newStore(t)) })
	t.Run("InsertionOrder", func(t *testing.T) { testInsertionOrder(t, newStore(t)) })
	t.Run("DeleteSignatures", func(t *testing.T) { testDeleteSignatures(t, newStore(t)) })
	t.Run("QuizLifecycle", func(t *testing.T) { testQuizLifecycle(t, newStore(t)) })
}

// NewSignature builds a record in status sent created at the given time.
func NewSignature(created time.Time) *models.Signature {
	return &models.Signature{
		TrackingID:    uuid.NewString(),
		DocumentID:    "nda_policy",
		DocumentTitle: "Non-Disclosure Agreement Policy",
		SenderName:    "Ada Sender",
		SenderEmail:   "ada@example.com",
		ReceiverEmail: "bob.builder@example.com",
		Purpose:       "Annual review",
		Status:        models.StatusSent,
		CreatedAt:     created.UTC(),
		UpdatedAt:     created.UTC(),
	}
}

// NewQuiz builds a three-question quiz owned by trackingID.
func NewQuiz(trackingID string, created time.Time) *models.Quiz {
	q := &models.Quiz{QuizID: uuid.NewString(), TrackingID: trackingID, CreatedAt: created.UTC()}
	for _, id := range []string{"q1", "q2", "q3"} {
		q.Questions = append(q.Questions, models.Question{
			ID:            id,
			Question:      "Question " + id,
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: "a",
		})
	}
	return q
}

func testSignatureRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	sig := NewSignature(time.Now())
	require.NoError(t, s.CreateSignature(ctx, sig))
	assert.Equal(t, 1, sig.Version)

	got, err := s.GetSignature(ctx, sig.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, sig.TrackingID, got.TrackingID)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, sig.ReceiverEmail, got.ReceiverEmail)
	assert.True(t, sig.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 1, got.Version)
}

func testDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	sig := NewSignature(time.Now())
	require.NoError(t, s.CreateSignature(ctx, sig))
	dup := *sig
	assert.ErrorIs(t, s.CreateSignature(ctx, &dup), store.ErrDuplicate)
}

func testMissing(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.GetSignature(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetSignatureByQuiz(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetQuiz(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSignature(ctx, "nope"), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateSignature(ctx, NewSignature(time.Now())), store.ErrNotFound)
}

func testVersioning(t *testing.T, s store.Store) {
	ctx := context.Background()
	sig := NewSignature(time.Now())
	require.NoError(t, s.CreateSignature(ctx, sig))

	first, err := s.GetSignature(ctx, sig.TrackingID)
	require.NoError(t, err)
	second, err := s.GetSignature(ctx, sig.TrackingID)
	require.NoError(t, err)

	first.Status = models.StatusAcknowledged
	require.NoError(t, s.UpdateSignature(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Status = models.StatusCompleted
	assert.ErrorIs(t, s.UpdateSignature(ctx, second), store.ErrConflict)

	got, err := s.GetSignature(ctx, sig.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, got.Status)
	assert.Equal(t, 2, got.Version)
}

func testLookupByQuiz(t *testing.T, s store.Store) {
	ctx := context.Background()
	sig := NewSignature(time.Now())
	require.NoError(t, s.CreateSignature(ctx, sig))
	sig.QuizID = "quiz-123"
	sig.Status = models.StatusQuizPending
	require.NoError(t, s.UpdateSignature(ctx, sig))

	got, err := s.GetSignatureByQuiz(ctx, "quiz-123")
	require.NoError(t, err)
	assert.Equal(t, sig.TrackingID, got.TrackingID)
}

func testInsertionOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Now()
	var ids []string
	for i := 0; i < 3; i++ {
		sig := NewSignature(base.Add(time.Duration(i) * time.Millisecond))
		require.NoError(t, s.CreateSignature(ctx, sig))
		ids = append(ids, sig.TrackingID)
	}
	list, err := s.ListSignatures(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, sig := range list {
		assert.Equal(t, ids[i], sig.TrackingID)
	}
}

func testDeleteSignatures(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now()
	old := NewSignature(now.Add(-48 * time.Hour))
	fresh := NewSignature(now)
	extra := NewSignature(now)
	require.NoError(t, s.CreateSignature(ctx, old))
	require.NoError(t, s.CreateSignature(ctx, fresh))
	require.NoError(t, s.CreateSignature(ctx, extra))

	n, err := s.DeleteSignatures(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.GetSignature(ctx, old.TrackingID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteSignature(ctx, extra.TrackingID))

	n, err = s.DeleteSignatures(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	list, err := s.ListSignatures(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testQuizLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now()
	quiz := NewQuiz("track-1", now)
	require.NoError(t, s.CreateQuiz(ctx, quiz))
	assert.Equal(t, 1, quiz.Version)
	assert.ErrorIs(t, s.CreateQuiz(ctx, NewQuizWithID(quiz.QuizID, now)), store.ErrDuplicate)

	got, err := s.GetQuiz(ctx, quiz.QuizID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 3)
	assert.Equal(t, "a", got.Questions[0].CorrectAnswer)
	assert.Equal(t, []string{"a", "b", "c", "d"}, got.Questions[2].Options)

	stale := *got
	got.Attempts = 1
	got.LastScore = 2
	require.NoError(t, s.UpdateQuiz(ctx, got))
	assert.ErrorIs(t, s.UpdateQuiz(ctx, &stale), store.ErrConflict)

	reread, err := s.GetQuiz(ctx, quiz.QuizID)
	require.NoError(t, err)
	assert.Equal(t, 1, reread.Attempts)
	assert.Equal(t, 2, reread.Version)

	old := NewQuiz("track-2", now.Add(-72*time.Hour))
	require.NoError(t, s.CreateQuiz(ctx, old))
	n, err := s.DeleteQuizzes(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.DeleteQuizzesFor(ctx, "track-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.GetQuiz(ctx, quiz.QuizID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err = s.DeleteQuizzes(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// NewQuizWithID is NewQuiz with a fixed quiz id.
func NewQuizWithID(quizID string, created time.Time) *models.Quiz {
	q := NewQuiz("other", created)
	q.QuizID = quizID
	return q
}
