package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/documents"
	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSign/internal/quiz"
	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

type env struct {
	store     *store.Memory
	events    *notify.Recorder
	signature *SignatureService
	quiz      *QuizService
	dashboard *DashboardService
	admin     *AdminService
	clock     *clock
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, *models.Document) ([]models.Question, error) {
	return nil, errors.New("llm down")
}

func newEnv(t *testing.T, gen quiz.Generator) *env {
	t.Helper()
	catalog, err := documents.Load("")
	require.NoError(t, err)

	st := store.NewMemory()
	rec := notify.NewRecorder()
	mail := notify.NewComposer("http://localhost:8000")
	log := zap.NewNop()
	clk := &clock{t: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}

	e := &env{
		store:     st,
		events:    rec,
		signature: NewSignatureService(st, NewDocumentService(catalog), gen, rec, mail, log),
		quiz:      NewQuizService(st, rec, mail, log),
		dashboard: NewDashboardService(st),
		admin:     NewAdminService(st, rec, mail, log),
		clock:     clk,
	}
	e.signature.now = clk.Now
	e.quiz.now = clk.Now
	e.admin.now = clk.Now
	return e
}

func sendRequest(receiver string) SendRequest {
	return SendRequest{
		DocumentID:    "nda_policy",
		SenderName:    "Ada Sender",
		SenderEmail:   "ada@example.com",
		ReceiverEmail: receiver,
		Purpose:       "Annual policy review",
	}
}

var signRequest = SignRequest{Acknowledged: true, Name: "Bob Builder", Date: "2026-01-10", Location: "Pune"}

var correctAnswers = map[string]string{
	"q1": "All of the above",
	"q2": "All employees",
	"q3": "Immediately upon acknowledgment",
}

var wrongAnswers = map[string]string{
	"q1": "All of the above",
	"q2": "Only management",
	"q3": "Immediately upon acknowledgment",
}

func eventTypes(events []notify.Event) []notify.EventType {
	var out []notify.EventType
	for _, ev := range events {
		out = append(out, ev.EventType)
	}
	return out
}

func TestEndToEndScenario(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()

	sent, err := e.signature.SendDocument(ctx, sendRequest("bob.builder@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, sent.Status)
	assert.Equal(t, "http://localhost:8000/sign/"+sent.TrackingID, sent.SigningURL)

	signed, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/quiz/"+signed.QuizID, signed.QuizURL)

	view, err := e.quiz.GetQuiz(ctx, signed.QuizID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, models.StatusQuizPending, view.Status)

	res, err := e.quiz.SubmitQuiz(ctx, signed.QuizID, correctAnswers)
	require.NoError(t, err)
	assert.Equal(t, &QuizResult{Passed: true, Score: 3, Total: 3, Attempts: 0}, res)

	got, err := e.signature.GetSignature(ctx, sent.TrackingID)
	require.NoError(t, err)
	sig := got.Signature
	assert.Equal(t, models.StatusCompleted, sig.Status)
	assert.True(t, sig.QuizPassed)
	assert.True(t, sig.Acknowledged)
	assert.Equal(t, "Bob Builder", sig.SignedName)
	require.NotNil(t, sig.CompletedAt)
	assert.Equal(t, "Non-Disclosure Agreement Policy", got.Document.Title)

	assert.Equal(t, []notify.EventType{
		notify.SignatureRequest, notify.QuizLink, notify.SignatureCompleted, notify.SignatureCompletedNotification,
	}, eventTypes(e.events.Events()))
}

func TestSendDocumentValidation(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()

	cases := map[string]func(r *SendRequest){
		"missing sender":   func(r *SendRequest) { r.SenderName = " " },
		"bad email":        func(r *SendRequest) { r.ReceiverEmail = "not-an-email" },
		"named email":      func(r *SendRequest) { r.SenderEmail = "Ada <ada@example.com>" },
		"long name":        func(r *SendRequest) { r.SenderName = strings.Repeat("a", 101) },
		"bad document id":  func(r *SendRequest) { r.DocumentID = "../secrets" },
		"missing purpose":  func(r *SendRequest) { r.Purpose = "" },
		"missing document": func(r *SendRequest) { r.DocumentID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := sendRequest("bob@example.com")
			mutate(&req)
			_, err := e.signature.SendDocument(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	req := sendRequest("bob@example.com")
	req.DocumentID = "unknown_doc"
	_, err := e.signature.SendDocument(ctx, req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackingIDsAreUnique(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		res, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
		require.NoError(t, err)
		assert.False(t, seen[res.TrackingID])
		seen[res.TrackingID] = true

		got, err := e.signature.GetSignature(ctx, res.TrackingID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, got.Signature.Status)
	}
}

func TestSubmitSignatureRequiresAcknowledgment(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)

	req := signRequest
	req.Acknowledged = false
	_, err = e.signature.SubmitSignature(ctx, sent.TrackingID, req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := e.signature.GetSignature(ctx, sent.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Signature.Status)
	assert.Empty(t, got.Signature.QuizID)

	n, err := e.store.DeleteQuizzes(ctx, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n, "no quiz may be created")

	_, err = e.signature.SubmitSignature(ctx, "missing", signRequest)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitSignatureIsIdempotent(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)

	first, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)
	second, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSubmitSignatureUpstreamFailure(t *testing.T) {
	e := newEnv(t, failingGenerator{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)

	_, err = e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	assert.ErrorIs(t, err, ErrUpstream)

	got, err := e.signature.GetSignature(ctx, sent.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, got.Signature.Status)

	// Retrying once the generator recovers issues the quiz.
	e.signature.gen = quiz.Static{}
	res, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)
	assert.NotEmpty(t, res.QuizID)
}

func TestFailedQuizAndRetake(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	signed, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)
	before, err := e.quiz.GetQuiz(ctx, signed.QuizID)
	require.NoError(t, err)
	e.events.Events()

	res, err := e.quiz.SubmitQuiz(ctx, signed.QuizID, wrongAnswers)
	require.NoError(t, err)
	assert.Equal(t, &QuizResult{Passed: false, Score: 2, Total: 3, Attempts: 1}, res)
	assert.Equal(t, []notify.EventType{notify.QuizFailed}, eventTypes(e.events.Events()))

	got, err := e.signature.GetSignature(ctx, sent.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQuizFailed, got.Signature.Status)

	again, err := e.quiz.GetQuiz(ctx, signed.QuizID)
	require.NoError(t, err)
	assert.Equal(t, before.Questions, again.Questions)
	assert.Equal(t, 1, again.Attempts)
	assert.Equal(t, models.StatusQuizPending, again.Status)

	res, err = e.quiz.SubmitQuiz(ctx, signed.QuizID, correctAnswers)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 1, res.Attempts)

	_, err = e.quiz.SubmitQuiz(ctx, signed.QuizID, correctAnswers)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitQuizFromFailedStatus(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	signed, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)

	_, err = e.quiz.SubmitQuiz(ctx, signed.QuizID, wrongAnswers)
	require.NoError(t, err)
	res, err := e.quiz.SubmitQuiz(ctx, signed.QuizID, wrongAnswers)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)

	res, err = e.quiz.SubmitQuiz(ctx, signed.QuizID, correctAnswers)
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestSubmitQuizValidation(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	signed, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)

	_, err = e.quiz.SubmitQuiz(ctx, signed.QuizID, map[string]string{"q1": "All of the above", "q2": ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.quiz.SubmitQuiz(ctx, "missing", correctAnswers)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.quiz.GetQuiz(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentFailedSubmissionsKeepEveryAttempt(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	signed, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.quiz.SubmitQuiz(ctx, signed.QuizID, wrongAnswers)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	qz, err := e.store.GetQuiz(ctx, signed.QuizID)
	require.NoError(t, err)
	assert.Equal(t, 2, qz.Attempts)
}

func TestDashboardOrdering(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()

	var ids []string
	for _, who := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		res, err := e.signature.SendDocument(ctx, sendRequest(who))
		require.NoError(t, err)
		ids = append(ids, res.TrackingID)
	}

	page, err := e.dashboard.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Signatures, 3)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, DefaultDashboardLimit, page.Limit)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{
		page.Signatures[0].TrackingID, page.Signatures[1].TrackingID, page.Signatures[2].TrackingID,
	})

	e.clock.Advance(time.Minute)
	newest, err := e.signature.SendDocument(ctx, sendRequest("d@example.com"))
	require.NoError(t, err)

	page, err = e.dashboard.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Signatures, 2)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, ids[2], page.Signatures[0].TrackingID)
	assert.NotEqual(t, newest.TrackingID, page.Signatures[0].TrackingID)

	page, err = e.dashboard.List(ctx, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, page.Signatures)

	_, err = e.dashboard.List(ctx, 101, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.dashboard.List(ctx, 10, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAdminClear(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()

	old, err := e.signature.SendDocument(ctx, sendRequest("old@example.com"))
	require.NoError(t, err)
	_, err = e.signature.SubmitSignature(ctx, old.TrackingID, signRequest)
	require.NoError(t, err)

	e.clock.Advance(40 * 24 * time.Hour)
	fresh, err := e.signature.SendDocument(ctx, sendRequest("new@example.com"))
	require.NoError(t, err)

	res, err := e.admin.ClearOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SignaturesCleared)
	assert.Equal(t, 1, res.QuizzesCleared)
	require.NotNil(t, res.CutoffDate)

	_, err = e.admin.ClearOlderThan(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.admin.DeleteSignature(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	res, err = e.admin.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SignaturesCleared)
	_, err = e.signature.GetSignature(ctx, fresh.TrackingID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminDeleteSignature(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	signed, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)

	res, err := e.admin.DeleteSignature(ctx, sent.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuizzesCleared)
	_, err = e.quiz.GetQuiz(ctx, signed.QuizID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNightlyCleanupAnnounces(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	_, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	e.events.Events()

	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	e.admin.NightlyCleanup(kolkata)(ctx)

	events := e.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.ScheduledCleanup, events[0].EventType)
	assert.Equal(t, 1, events[0].Data["signatures_cleared"])
}

func TestSubmitSignatureValidatesOnceQuizIssued(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	_, err = e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)

	_, err = e.signature.SubmitSignature(ctx, sent.TrackingID, SignRequest{Acknowledged: false})
	assert.ErrorIs(t, err, ErrInvalidInput)

	noLocation := signRequest
	noLocation.Location = " "
	_, err = e.signature.SubmitSignature(ctx, sent.TrackingID, noLocation)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// flakyStore fails the next UpdateSignature call when failNext is set.
type flakyStore struct {
	*store.Memory
	mu       sync.Mutex
	failNext bool
}

func (f *flakyStore) UpdateSignature(ctx context.Context, sig *models.Signature) error {
	f.mu.Lock()
	fail := f.failNext
	f.failNext = false
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.Memory.UpdateSignature(ctx, sig)
}

func TestSubmitQuizRecoversFromLostSignatureUpdate(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	signed, err := e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)
	e.events.Events()

	flaky := &flakyStore{Memory: e.store, failNext: true}
	quizzes := NewQuizService(flaky, e.events, notify.NewComposer("http://localhost:8000"), zap.NewNop())
	quizzes.now = e.clock.Now

	_, err = quizzes.SubmitQuiz(ctx, signed.QuizID, correctAnswers)
	require.Error(t, err)
	got, err := e.signature.GetSignature(ctx, sent.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQuizPending, got.Signature.Status)
	assert.Empty(t, e.events.Events())

	res, err := quizzes.SubmitQuiz(ctx, signed.QuizID, correctAnswers)
	require.NoError(t, err)
	assert.Equal(t, &QuizResult{Passed: true, Score: 3, Total: 3, Attempts: 0}, res)
	assert.Equal(t, []notify.EventType{notify.SignatureCompleted, notify.SignatureCompletedNotification},
		eventTypes(e.events.Events()))

	got, err = e.signature.GetSignature(ctx, sent.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Signature.Status)
	assert.True(t, got.Signature.QuizPassed)
	require.NotNil(t, got.Signature.CompletedAt)

	_, err = quizzes.SubmitQuiz(ctx, signed.QuizID, correctAnswers)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQuizNotOwnedBySignatureIsNotFound(t *testing.T) {
	e := newEnv(t, quiz.Static{})
	ctx := context.Background()
	sent, err := e.signature.SendDocument(ctx, sendRequest("bob@example.com"))
	require.NoError(t, err)
	_, err = e.signature.SubmitSignature(ctx, sent.TrackingID, signRequest)
	require.NoError(t, err)

	require.NoError(t, e.store.CreateQuiz(ctx, &models.Quiz{
		QuizID:     "orphaned-quiz",
		TrackingID: sent.TrackingID,
		Questions:  quiz.FixedQuestions(),
		CreatedAt:  e.clock.Now(),
	}))

	_, err = e.quiz.GetQuiz(ctx, "orphaned-quiz")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.quiz.SubmitQuiz(ctx, "orphaned-quiz", correctAnswers)
	assert.ErrorIs(t, err, ErrNotFound)
}
