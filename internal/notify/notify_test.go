package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

func testSignature() *models.Signature {
	return &models.Signature{
		TrackingID:    "track-1",
		DocumentTitle: "Non-Disclosure Agreement Policy",
		SenderName:    "Ada <Sender>",
		SenderEmail:   "ada@example.com",
		ReceiverEmail: "bob.the_builder@example.com",
		Purpose:       "Annual review",
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Bob The Builder", DisplayName("bob.the_builder@example.com"))
	assert.Equal(t, "Alice", DisplayName("ALICE@example.com"))
}

func TestComposerSignatureRequest(t *testing.T) {
	c := NewComposer("http://localhost:8000")
	ev, err := c.SignatureRequest(testSignature())
	require.NoError(t, err)

	assert.Equal(t, SignatureRequest, ev.EventType)
	assert.Equal(t, "bob.the_builder@example.com", ev.To)
	assert.Equal(t, "Action Required: Non-Disclosure Agreement Policy", ev.Subject)
	assert.Equal(t, "http://localhost:8000/sign/track-1", ev.SigningLink)
	assert.Equal(t, "ada@example.com", ev.FromEmail)
	assert.Contains(t, ev.Body, "Dear Bob The Builder,")
	assert.Contains(t, ev.Body, "Ada <Sender>")
	assert.Contains(t, ev.BodyHTML, "Ada &lt;Sender&gt;")
	assert.Contains(t, ev.BodyHTML, `href="http://localhost:8000/sign/track-1"`)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestComposerQuizEvents(t *testing.T) {
	c := NewComposer("http://localhost:8000")
	sig := testSignature()

	link, err := c.QuizLink(sig, "quiz-9")
	require.NoError(t, err)
	assert.Equal(t, "Quiz Required: Non-Disclosure Agreement Policy", link.Subject)
	assert.Equal(t, "http://localhost:8000/quiz/quiz-9", link.QuizLink)
	assert.Equal(t, "quiz-9", link.QuizID)

	failed, err := c.QuizFailed(sig, "quiz-9")
	require.NoError(t, err)
	assert.Equal(t, QuizFailed, failed.EventType)
	assert.Contains(t, failed.Body, "Try again at: http://localhost:8000/quiz/quiz-9")

	done, err := c.Completed(sig)
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, SignatureCompleted, done[0].EventType)
	assert.Equal(t, sig.ReceiverEmail, done[0].To)
	assert.Equal(t, SignatureCompletedNotification, done[1].EventType)
	assert.Equal(t, sig.SenderEmail, done[1].To)
	assert.Contains(t, done[1].Body, "Bob The Builder (bob.the_builder@example.com)")
}

func TestWebhookSenderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		assert.Equal(t, QuizLink, ev.EventType)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, time.Second, 3)
	s.backoff = time.Millisecond
	require.NoError(t, s.Send(context.Background(), Event{EventType: QuizLink}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookSenderGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, time.Second, 3)
	s.backoff = time.Millisecond
	assert.Error(t, s.Send(context.Background(), Event{EventType: QuizLink}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookSenderClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, time.Second, 3)
	s.backoff = time.Millisecond
	assert.Error(t, s.Send(context.Background(), Event{EventType: QuizLink}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookSenderRetriesTimeouts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, 50*time.Millisecond, 3)
	s.backoff = time.Millisecond
	require.NoError(t, s.Send(context.Background(), Event{EventType: QuizLink}))
	assert.Equal(t, int32(2), calls.Load())
}

type countingSender struct {
	mu     sync.Mutex
	events []Event
	fail   bool
	block  chan struct{}
}

func (s *countingSender) Send(ctx context.Context, ev Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if s.fail {
		return assert.AnError
	}
	return nil
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sender := &countingSender{}
	d := NewDispatcher(sender, zap.NewNop(), 2, 10)
	for i := 0; i < 5; i++ {
		d.Publish(context.Background(), Event{EventType: SignatureRequest})
	}
	require.NoError(t, d.Close(context.Background()))

	assert.Len(t, sender.events, 5)
	assert.Equal(t, Stats{Delivered: 5}, d.Stats())

	d.Publish(context.Background(), Event{EventType: QuizLink})
	assert.Equal(t, int64(1), d.Stats().Dropped)
}

func TestDispatcherCountsFailures(t *testing.T) {
	d := NewDispatcher(&countingSender{fail: true}, zap.NewNop(), 1, 10)
	d.Publish(context.Background(), Event{EventType: QuizFailed})
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, Stats{Failed: 1}, d.Stats())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sender := &countingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, zap.NewNop(), 1, 1)

	// One event is picked up by the blocked worker, one fills the queue.
	d.Publish(context.Background(), Event{EventType: SignatureRequest})
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Publish(context.Background(), Event{EventType: SignatureRequest})
	d.Publish(context.Background(), Event{EventType: SignatureRequest})
	assert.Equal(t, int64(1), d.Stats().Dropped)

	close(sender.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, int64(2), d.Stats().Delivered)
}

func TestDispatcherWithoutSender(t *testing.T) {
	d := NewDispatcher(nil, zap.NewNop(), 1, 1)
	assert.False(t, d.Enabled())
	d.Publish(context.Background(), Event{EventType: SignatureRequest})
	assert.Equal(t, Stats{Dropped: 1}, d.Stats())
	require.NoError(t, d.Close(context.Background()))
}
