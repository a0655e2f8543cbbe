package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSign/internal/quiz"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

type SendRequest struct {
	DocumentID    string `json:"document_id"`
	SenderName    string `json:"sender_name"`
	SenderEmail   string `json:"sender_email"`
	ReceiverEmail string `json:"receiver_email"`
	Purpose       string `json:"purpose"`
}

type SendResult struct {
	TrackingID string        `json:"tracking_id"`
	Status     models.Status `json:"status"`
	SigningURL string        `json:"signing_url"`
}

type SignRequest struct {
	Acknowledged bool   `json:"acknowledged"`
	Name         string `json:"name"`
	Date         string `json:"date"`
	Location     string `json:"location"`
}

type SignResult struct {
	QuizID  string `json:"quiz_id"`
	QuizURL string `json:"quiz_url"`
}

type SignatureView struct {
	Signature *models.Signature `json:"signature"`
	Document  *models.Document  `json:"document"`
}

type SignatureService struct {
	store store.Store
	docs  *DocumentService
	gen   quiz.Generator
	pub   notify.Publisher
	mail  *notify.Composer
	log   *zap.Logger
	now   func() time.Time
}

func NewSignatureService(st store.Store, docs *DocumentService, gen quiz.Generator, pub notify.Publisher, mail *notify.Composer, log *zap.Logger) *SignatureService {
	return &SignatureService{store: st, docs: docs, gen: gen, pub: pub, mail: mail, log: log, now: time.Now}
}

func (req *SendRequest) validate() error {
	if err := required("document_id", req.DocumentID, 0); err != nil {
		return err
	}
	if err := required("sender_name", req.SenderName, 100); err != nil {
		return err
	}
	if err := validEmail("sender_email", req.SenderEmail); err != nil {
		return err
	}
	if err := validEmail("receiver_email", req.ReceiverEmail); err != nil {
		return err
	}
	return required("purpose", req.Purpose, 500)
}

// SendDocument records a new signature request and notifies the receiver.
func (s *SignatureService) SendDocument(ctx context.Context, req SendRequest) (*SendResult, error) {
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.SenderEmail = strings.TrimSpace(req.SenderEmail)
	req.ReceiverEmail = strings.TrimSpace(req.ReceiverEmail)
	if err := req.validate(); err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(req.DocumentID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sig := &models.Signature{
		TrackingID:    uuid.NewString(),
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		SenderName:    strings.TrimSpace(req.SenderName),
		SenderEmail:   req.SenderEmail,
		ReceiverEmail: req.ReceiverEmail,
		Purpose:       strings.TrimSpace(req.Purpose),
		Status:        models.StatusSent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateSignature(ctx, sig); err != nil {
		return nil, fmt.Errorf("create signature: %w", err)
	}
	s.log.Info("Signature request created",
		zap.String("tracking_id", sig.TrackingID), zap.String("document_id", doc.ID))

	if ev, err := s.mail.SignatureRequest(sig); err != nil {
		s.log.Error("Compose signature request failed", zap.String("tracking_id", sig.TrackingID), zap.Error(err))
	} else {
		s.pub.Publish(ctx, ev)
	}

	return &SendResult{
		TrackingID: sig.TrackingID,
		Status:     sig.Status,
		SigningURL: s.mail.SigningLink(sig.TrackingID),
	}, nil
}

func (s *SignatureService) GetSignature(ctx context.Context, trackingID string) (*SignatureView, error) {
	sig, err := s.store.GetSignature(ctx, trackingID)
	if err != nil {
		return nil, notFound("signature", trackingID, err)
	}
	return &SignatureView{Signature: sig, Document: s.document(sig)}, nil
}

// document returns the catalog entry for sig, or a stub carrying the stored
// title if the catalog no longer has it.
func (s *SignatureService) document(sig *models.Signature) *models.Document {
	doc, err := s.docs.Get(sig.DocumentID)
	if err != nil {
		return &models.Document{ID: sig.DocumentID, Title: sig.DocumentTitle}
	}
	return doc
}

func (req *SignRequest) validate() error {
	if !req.Acknowledged {
		return invalid("the document must be acknowledged")
	}
	if err := required("name", req.Name, 100); err != nil {
		return err
	}
	if err := required("date", req.Date, 0); err != nil {
		return err
	}
	return required("location", req.Location, 100)
}

// SubmitSignature records the acknowledgment and issues the quiz. A valid
// request for a record that already owns a quiz gets its existing quiz back.
func (s *SignatureService) SubmitSignature(ctx context.Context, trackingID string, req SignRequest) (*SignResult, error) {
	sig, err := s.store.GetSignature(ctx, trackingID)
	if err != nil {
		return nil, notFound("signature", trackingID, err)
	}
	if sig.Status == models.StatusCompleted {
		return nil, invalid("signature %s is already completed", trackingID)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if sig.Status.HasQuiz() && sig.QuizID != "" {
		return s.signResult(sig.QuizID), nil
	}

	var existing string
	err = retryOnConflict(func() error {
		cur, err := s.store.GetSignature(ctx, trackingID)
		if err != nil {
			return err
		}
		switch cur.Status {
		case models.StatusSent:
			if err := cur.Transition(models.StatusAcknowledged, s.now().UTC()); err != nil {
				return err
			}
		case models.StatusAcknowledged:
			cur.UpdatedAt = s.now().UTC()
		case models.StatusCompleted:
			return invalid("signature %s is already completed", trackingID)
		default:
			existing = cur.QuizID
			return nil
		}
		cur.Acknowledged = true
		cur.SignedName = strings.TrimSpace(req.Name)
		cur.SignedDate = strings.TrimSpace(req.Date)
		cur.SignedLocation = strings.TrimSpace(req.Location)
		if err := s.store.UpdateSignature(ctx, cur); err != nil {
			return err
		}
		sig = cur
		return nil
	})
	if err != nil {
		return nil, notFound("signature", trackingID, err)
	}
	if existing != "" {
		return s.signResult(existing), nil
	}

	questions, err := s.gen.Generate(ctx, s.document(sig))
	if err == nil {
		err = quiz.Validate(questions)
	}
	if err != nil {
		s.log.Error("Quiz generation failed", zap.String("tracking_id", trackingID), zap.Error(err))
		return nil, fmt.Errorf("generate quiz: %v: %w", err, ErrUpstream)
	}

	qz := &models.Quiz{
		QuizID:     uuid.NewString(),
		TrackingID: trackingID,
		Questions:  questions,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateQuiz(ctx, qz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}

	err = retryOnConflict(func() error {
		cur, err := s.store.GetSignature(ctx, trackingID)
		if err != nil {
			return err
		}
		if cur.Status != models.StatusAcknowledged {
			// A concurrent submission issued its quiz first.
			existing = cur.QuizID
			return nil
		}
		if err := cur.Transition(models.StatusQuizPending, s.now().UTC()); err != nil {
			return err
		}
		cur.QuizID = qz.QuizID
		if err := s.store.UpdateSignature(ctx, cur); err != nil {
			return err
		}
		sig = cur
		return nil
	})
	if err != nil {
		return nil, notFound("signature", trackingID, err)
	}
	if existing != "" {
		s.log.Warn("Discarding quiz issued concurrently",
			zap.String("tracking_id", trackingID), zap.String("quiz_id", qz.QuizID))
		return s.signResult(existing), nil
	}

	s.log.Info("Quiz issued", zap.String("tracking_id", trackingID), zap.String("quiz_id", qz.QuizID))
	if ev, err := s.mail.QuizLink(sig, qz.QuizID); err != nil {
		s.log.Error("Compose quiz link failed", zap.String("tracking_id", trackingID), zap.Error(err))
	} else {
		s.pub.Publish(ctx, ev)
	}
	return s.signResult(qz.QuizID), nil
}

func (s *SignatureService) signResult(quizID string) *SignResult {
	return &SignResult{QuizID: quizID, QuizURL: s.mail.QuizURL(quizID)}
}
