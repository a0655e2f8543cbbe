package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

type ClearResult struct {
	SignaturesCleared int        `json:"signatures_cleared"`
	QuizzesCleared    int        `json:"quizzes_cleared"`
	CutoffDate        *time.Time `json:"cutoff_date,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
}

type AdminService struct {
	store store.Store
	pub   notify.Publisher
	mail  *notify.Composer
	log   *zap.Logger
	now   func() time.Time
}

func NewAdminService(st store.Store, pub notify.Publisher, mail *notify.Composer, log *zap.Logger) *AdminService {
	return &AdminService{store: st, pub: pub, mail: mail, log: log, now: time.Now}
}

func (s *AdminService) ClearAll(ctx context.Context) (*ClearResult, error) {
	return s.clear(ctx, time.Time{})
}

// ClearOlderThan removes records created more than days days ago.
func (s *AdminService) ClearOlderThan(ctx context.Context, days int) (*ClearResult, error) {
	if days < 1 || days > 365 {
		return nil, invalid("days must be between 1 and 365")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	res, err := s.clear(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	res.CutoffDate = &cutoff
	return res, nil
}

func (s *AdminService) clear(ctx context.Context, before time.Time) (*ClearResult, error) {
	sigs, err := s.store.DeleteSignatures(ctx, before)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.store.DeleteQuizzes(ctx, before)
	if err != nil {
		return nil, err
	}
	s.log.Warn("Records purged",
		zap.Int("signatures", sigs), zap.Int("quizzes", quizzes), zap.Time("before", before))
	return &ClearResult{SignaturesCleared: sigs, QuizzesCleared: quizzes, Timestamp: s.now().UTC()}, nil
}

// DeleteSignature purges one record and every quiz issued for it.
func (s *AdminService) DeleteSignature(ctx context.Context, trackingID string) (*ClearResult, error) {
	if err := s.store.DeleteSignature(ctx, trackingID); err != nil {
		return nil, notFound("signature", trackingID, err)
	}
	quizzes, err := s.store.DeleteQuizzesFor(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	s.log.Warn("Signature purged", zap.String("tracking_id", trackingID), zap.Int("quizzes", quizzes))
	return &ClearResult{SignaturesCleared: 1, QuizzesCleared: quizzes, Timestamp: s.now().UTC()}, nil
}

// NightlyCleanup is the scheduled job: clear everything, then announce it.
func (s *AdminService) NightlyCleanup(loc *time.Location) func(ctx context.Context) {
	return func(ctx context.Context) {
		res, err := s.ClearAll(ctx)
		if err != nil {
			s.log.Error("Scheduled cleanup failed", zap.Error(err))
			return
		}
		s.log.Info("Scheduled data cleanup completed",
			zap.Int("signatures", res.SignaturesCleared), zap.Int("quizzes", res.QuizzesCleared))
		s.pub.Publish(ctx, s.mail.ScheduledCleanup(map[string]any{
			"signatures_cleared": res.SignaturesCleared,
			"quizzes_cleared":    res.QuizzesCleared,
			"timestamp":          res.Timestamp,
		}, loc))
	}
}
