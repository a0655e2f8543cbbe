package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

type QuizView struct {
	QuizID     string                  `json:"quiz_id"`
	TrackingID string                  `json:"tracking_id"`
	Questions  []models.PublicQuestion `json:"questions"`
	Attempts   int                     `json:"attempts"`
	Status     models.Status           `json:"status"`
}

type QuizResult struct {
	Passed   bool `json:"passed"`
	Score    int  `json:"score"`
	Total    int  `json:"total"`
	Attempts int  `json:"attempts"`
}

type QuizService struct {
	store store.Store
	pub   notify.Publisher
	mail  *notify.Composer
	log   *zap.Logger
	now   func() time.Time
}

func NewQuizService(st store.Store, pub notify.Publisher, mail *notify.Composer, log *zap.Logger) *QuizService {
	return &QuizService{store: st, pub: pub, mail: mail, log: log, now: time.Now}
}

// load returns the quiz and the signature that currently owns it. A quiz no
// record points at, or one whose owner disagrees with its tracking id, is
// reported as not found.
func (s *QuizService) load(ctx context.Context, quizID string) (*models.Quiz, *models.Signature, error) {
	qz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, notFound("quiz", quizID, err)
	}
	sig, err := s.store.GetSignatureByQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, notFound("quiz", quizID, err)
	}
	if sig.TrackingID != qz.TrackingID {
		s.log.Warn("Quiz owner mismatch",
			zap.String("quiz_id", quizID),
			zap.String("quiz_tracking_id", qz.TrackingID),
			zap.String("owner_tracking_id", sig.TrackingID))
		return nil, nil, notFound("quiz", quizID, store.ErrNotFound)
	}
	return qz, sig, nil
}

// GetQuiz returns the questions without answers. Opening a failed quiz
// starts a retake.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (*QuizView, error) {
	qz, sig, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if sig.Status == models.StatusQuizFailed {
		err = retryOnConflict(func() error {
			cur, err := s.store.GetSignature(ctx, sig.TrackingID)
			if err != nil {
				return err
			}
			if cur.Status != models.StatusQuizFailed {
				sig = cur
				return nil
			}
			if err := cur.Transition(models.StatusQuizPending, s.now().UTC()); err != nil {
				return err
			}
			if err := s.store.UpdateSignature(ctx, cur); err != nil {
				return err
			}
			sig = cur
			return nil
		})
		if err != nil {
			return nil, notFound("quiz", quizID, err)
		}
		s.log.Info("Quiz retake started", zap.String("quiz_id", quizID), zap.Int("attempts", qz.Attempts))
	}

	questions := make([]models.PublicQuestion, len(qz.Questions))
	for i, q := range qz.Questions {
		questions[i] = q.Public()
	}
	return &QuizView{
		QuizID:     qz.QuizID,
		TrackingID: qz.TrackingID,
		Questions:  questions,
		Attempts:   qz.Attempts,
		Status:     sig.Status,
	}, nil
}

// SubmitQuiz scores answers. All answers must be correct to pass.
func (s *QuizService) SubmitQuiz(ctx context.Context, quizID string, answers map[string]string) (*QuizResult, error) {
	qz, sig, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if missing := qz.Unanswered(answers); len(missing) > 0 {
		return nil, invalid("all questions must be answered (missing %v)", missing)
	}
	if sig.Status == models.StatusCompleted {
		return nil, invalid("quiz %s is already completed", quizID)
	}

	total := len(qz.Questions)
	score := qz.Score(answers)
	passed := score == total
	if qz.Passed {
		// The quiz was passed but the record update did not land; finish it.
		s.log.Warn("Completing signature for passed quiz",
			zap.String("quiz_id", quizID), zap.String("tracking_id", sig.TrackingID))
		return s.complete(ctx, qz, sig, qz.LastScore, true)
	}

	err = retryOnConflict(func() error {
		cur, err := s.store.GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		if cur.Passed {
			return invalid("quiz %s is already completed", quizID)
		}
		now := s.now().UTC()
		cur.LastScore = score
		cur.LastAttemptAt = &now
		if passed {
			cur.Passed = true
		} else {
			cur.Attempts++
		}
		if err := s.store.UpdateQuiz(ctx, cur); err != nil {
			return err
		}
		qz = cur
		return nil
	})
	if err != nil {
		return nil, notFound("quiz", quizID, err)
	}
	return s.complete(ctx, qz, sig, score, passed)
}

// complete moves the record to its post-submission status and notifies.
func (s *QuizService) complete(ctx context.Context, qz *models.Quiz, sig *models.Signature, score int, passed bool) (*QuizResult, error) {
	quizID := qz.QuizID
	err := retryOnConflict(func() error {
		cur, err := s.store.GetSignature(ctx, sig.TrackingID)
		if err != nil {
			return err
		}
		if cur.Status == models.StatusCompleted {
			sig = cur
			return nil
		}
		now := s.now().UTC()
		if cur.Status == models.StatusQuizFailed {
			if err := cur.Transition(models.StatusQuizPending, now); err != nil {
				return err
			}
		}
		if passed {
			if err := cur.Transition(models.StatusCompleted, now); err != nil {
				return err
			}
			cur.QuizPassed = true
			cur.CompletedAt = &now
		} else if err := cur.Transition(models.StatusQuizFailed, now); err != nil {
			return err
		}
		if err := s.store.UpdateSignature(ctx, cur); err != nil {
			return err
		}
		sig = cur
		return nil
	})
	if err != nil {
		return nil, notFound("signature", sig.TrackingID, err)
	}

	s.log.Info("Quiz submitted",
		zap.String("quiz_id", quizID), zap.Bool("passed", passed), zap.Int("score", score), zap.Int("attempts", qz.Attempts))
	s.notify(ctx, sig, quizID, passed)

	return &QuizResult{Passed: passed, Score: score, Total: len(qz.Questions), Attempts: qz.Attempts}, nil
}

func (s *QuizService) notify(ctx context.Context, sig *models.Signature, quizID string, passed bool) {
	if passed {
		events, err := s.mail.Completed(sig)
		if err != nil {
			s.log.Error("Compose completion failed", zap.String("tracking_id", sig.TrackingID), zap.Error(err))
			return
		}
		for _, ev := range events {
			s.pub.Publish(ctx, ev)
		}
		return
	}
	ev, err := s.mail.QuizFailed(sig, quizID)
	if err != nil {
		s.log.Error("Compose quiz failure failed", zap.String("tracking_id", sig.TrackingID), zap.Error(err))
		return
	}
	s.pub.Publish(ctx, ev)
}
