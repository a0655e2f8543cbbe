package models

import (
	"fmt"
	"time"
)

// Signature is one document-signature request, keyed by its tracking id.
type Signature struct {
	TrackingID     string     `json:"tracking_id"`
	DocumentID     string     `json:"document_id"`
	DocumentTitle  string     `json:"document_title"`
	SenderName     string     `json:"sender_name"`
	SenderEmail    string     `json:"sender_email"`
	ReceiverEmail  string     `json:"receiver_email"`
	Purpose        string     `json:"purpose"`
	Status         Status     `json:"status"`
	Acknowledged   bool       `json:"acknowledged"`
	SignedName     string     `json:"signed_name,omitempty"`
	SignedDate     string     `json:"signed_date,omitempty"`
	SignedLocation string     `json:"signed_location,omitempty"`
	QuizID         string     `json:"quiz_id,omitempty"`
	QuizPassed     bool       `json:"quiz_passed"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Version        int        `json:"version"`
}

// Transition moves the record to next, stamping UpdatedAt.
func (s *Signature) Transition(next Status, now time.Time) error {
	if !s.Status.CanTransition(next) {
		return fmt.Errorf("status %s cannot move to %s", s.Status, next)
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}
