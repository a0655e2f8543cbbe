// Package notify delivers workflow notifications to the email webhook.
// Callers publish events and move on; delivery happens on worker goroutines.
package notify

import (
	"context"
	"strings"
	"time"
)

type EventType string

const (
	SignatureRequest               EventType = "signature_request"
	QuizLink                       EventType = "quiz_link"
	SignatureCompleted             EventType = "signature_completed"
	SignatureCompletedNotification EventType = "signature_completed_notification"
	QuizFailed                     EventType = "quiz_failed"
	ScheduledCleanup               EventType = "scheduled_cleanup"
)

// Event is the JSON body posted to the webhook.
type Event struct {
	EventType   EventType      `json:"event_type"`
	To          string         `json:"to,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Body        string         `json:"body,omitempty"`
	BodyHTML    string         `json:"body_html,omitempty"`
	FromName    string         `json:"from_name,omitempty"`
	FromEmail   string         `json:"from_email,omitempty"`
	SigningLink string         `json:"signing_link,omitempty"`
	TrackingID  string         `json:"tracking_id,omitempty"`
	QuizLink    string         `json:"quiz_link,omitempty"`
	QuizID      string         `json:"quiz_id,omitempty"`
	Message     string         `json:"message,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Publisher accepts events without waiting for delivery.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Sender performs one delivery, including any retries.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// DisplayName derives a greeting name from an address:
// "jane.doe_smith@x.io" becomes "Jane Doe Smith".
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
	words := strings.Fields(local)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Recorder collects published events in memory.
type Recorder struct {
	ch chan Event
}

func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan Event, 64)}
}

func (r *Recorder) Publish(_ context.Context, ev Event) {
	select {
	case r.ch <- ev:
	default:
	}
}

// Events drains everything recorded so far.
func (r *Recorder) Events() []Event {
	var out []Event
	for {
		select {
		case ev := <-r.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}
