package store

import (
	"context"
	"sync"
	"time"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	signatures map[string]*models.Signature
	order      []string
	quizzes    map[string]*models.Quiz
}

func NewMemory() *Memory {
	return &Memory{
		signatures: make(map[string]*models.Signature),
		quizzes:    make(map[string]*models.Quiz),
	}
}

func (m *Memory) CreateSignature(_ context.Context, sig *models.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signatures[sig.TrackingID]; ok {
		return ErrDuplicate
	}
	sig.Version = 1
	m.signatures[sig.TrackingID] = cloneSignature(sig)
	m.order = append(m.order, sig.TrackingID)
	return nil
}

func (m *Memory) GetSignature(_ context.Context, trackingID string) (*models.Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sig, ok := m.signatures[trackingID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSignature(sig), nil
}

func (m *Memory) GetSignatureByQuiz(_ context.Context, quizID string) (*models.Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if sig := m.signatures[id]; sig.QuizID == quizID && quizID != "" {
			return cloneSignature(sig), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateSignature(_ context.Context, sig *models.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.signatures[sig.TrackingID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != sig.Version {
		return ErrConflict
	}
	sig.Version++
	m.signatures[sig.TrackingID] = cloneSignature(sig)
	return nil
}

func (m *Memory) ListSignatures(_ context.Context) ([]models.Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Signature, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *cloneSignature(m.signatures[id]))
	}
	return out, nil
}

func (m *Memory) DeleteSignature(_ context.Context, trackingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signatures[trackingID]; !ok {
		return ErrNotFound
	}
	delete(m.signatures, trackingID)
	m.order = removeID(m.order, trackingID)
	return nil
}

func (m *Memory) DeleteSignatures(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	removed := 0
	for _, id := range m.order {
		if before.IsZero() || m.signatures[id].CreatedAt.Before(before) {
			delete(m.signatures, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return removed, nil
}

func (m *Memory) CreateQuiz(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[quiz.QuizID]; ok {
		return ErrDuplicate
	}
	quiz.Version = 1
	m.quizzes[quiz.QuizID] = cloneQuiz(quiz)
	return nil
}

func (m *Memory) GetQuiz(_ context.Context, quizID string) (*models.Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneQuiz(q), nil
}

func (m *Memory) UpdateQuiz(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.quizzes[quiz.QuizID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != quiz.Version {
		return ErrConflict
	}
	quiz.Version++
	m.quizzes[quiz.QuizID] = cloneQuiz(quiz)
	return nil
}

func (m *Memory) DeleteQuizzesFor(_ context.Context, trackingID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, q := range m.quizzes {
		if q.TrackingID == trackingID {
			delete(m.quizzes, id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) DeleteQuizzes(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, q := range m.quizzes {
		if before.IsZero() || q.CreatedAt.Before(before) {
			delete(m.quizzes, id)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func removeID(ids []string, target string) []string {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func cloneSignature(s *models.Signature) *models.Signature {
	c := *s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneQuiz(q *models.Quiz) *models.Quiz {
	c := *q
	c.Questions = make([]models.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		c.Questions[i] = question
	}
	if q.LastAttemptAt != nil {
		t := *q.LastAttemptAt
		c.LastAttemptAt = &t
	}
	return &c
}
