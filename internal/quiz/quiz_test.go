package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

const goodQuestions = `{"questions":[
 {"question":"Who signs?","options":["A","B","C","D"],"correct_answer":"A"},
 {"question":"When?","options":["Now","Later","Never","Sometimes"],"correct_answer":"Now"},
 {"question":"Why?","options":["1","2","3","4"],"correct_answer":"4"},
 {"question":"Extra","options":["w","x","y","z"],"correct_answer":"w"}
]}`

var testDoc = &models.Document{ID: "nda_policy", Content: strings.Repeat("x", 7000)}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(FixedQuestions()))

	bad := FixedQuestions()
	bad[1].Options[2] = bad[1].Options[0]
	assert.ErrorIs(t, Validate(bad), ErrInvalidQuiz)

	bad = FixedQuestions()
	bad[0].CorrectAnswer = "None of them"
	assert.ErrorIs(t, Validate(bad), ErrInvalidQuiz)

	bad = FixedQuestions()
	bad[2].Options = bad[2].Options[:3]
	assert.ErrorIs(t, Validate(bad), ErrInvalidQuiz)

	bad = FixedQuestions()
	bad[0].Question = "  "
	assert.ErrorIs(t, Validate(bad), ErrInvalidQuiz)

	assert.ErrorIs(t, Validate(FixedQuestions()[:2]), ErrInvalidQuiz)
}

func TestParseQuestions(t *testing.T) {
	qs, err := ParseQuestions(goodQuestions)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, "q1", qs[0].ID)
	assert.Equal(t, "q3", qs[2].ID)
	require.NoError(t, Validate(qs))

	qs, err = ParseQuestions(`[{"question":"Q","options":["a","b","c","d"],"correct_answer":"b"}]`)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "b", qs[0].CorrectAnswer)

	_, err = ParseQuestions("not json")
	assert.ErrorIs(t, err, ErrInvalidQuiz)
}

func chatServer(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		var req chatRequest
		assert.NoError(t, json.Unmarshal(data, &req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func reply(w http.ResponseWriter, content string) {
	resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}}}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestOpenAIGenerator(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, req chatRequest) {
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 2000, req.MaxTokens)
		if !assert.Len(t, req.Messages, 2) {
			return
		}
		assert.NotContains(t, req.Messages[1].Content, strings.Repeat("x", 6001))
		assert.Contains(t, req.Messages[1].Content, strings.Repeat("x", 6000))
		reply(w, goodQuestions)
	})

	g := NewOpenAIGenerator("sk-test", "gpt-4o-mini", srv.URL, 5*time.Second)
	qs, err := g.Generate(context.Background(), testDoc)
	require.NoError(t, err)
	require.NoError(t, Validate(qs))
	assert.Equal(t, "Who signs?", qs[0].Question)
}

func TestOpenAIGeneratorRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, req chatRequest) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		reply(w, goodQuestions)
	})

	g := NewOpenAIGenerator("sk-test", "gpt-4o-mini", srv.URL, 5*time.Second)
	g.delay = time.Millisecond
	_, err := g.Generate(context.Background(), testDoc)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIGeneratorClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, func(w http.ResponseWriter, req chatRequest) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	g := NewOpenAIGenerator("sk-test", "gpt-4o-mini", srv.URL, 5*time.Second)
	_, err := g.Generate(context.Background(), testDoc)
	assert.ErrorContains(t, err, "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIGeneratorNeedsKey(t *testing.T) {
	g := NewOpenAIGenerator("", "gpt-4o-mini", "http://127.0.0.1:1", time.Second)
	_, err := g.Generate(context.Background(), testDoc)
	assert.Error(t, err)
}

type stubGenerator struct {
	questions []models.Question
	err       error
}

func (s stubGenerator) Generate(context.Context, *models.Document) ([]models.Question, error) {
	return s.questions, s.err
}

func TestFallbackGenerator(t *testing.T) {
	log := zap.NewNop()

	qs, err := NewFallbackGenerator(stubGenerator{err: errors.New("boom")}, log).Generate(context.Background(), testDoc)
	require.NoError(t, err)
	assert.Equal(t, FixedQuestions(), qs)

	short := FixedQuestions()[:1]
	qs, err = NewFallbackGenerator(stubGenerator{questions: short}, log).Generate(context.Background(), testDoc)
	require.NoError(t, err)
	assert.Len(t, qs, 3)

	good, err := ParseQuestions(goodQuestions)
	require.NoError(t, err)
	qs, err = NewFallbackGenerator(stubGenerator{questions: good}, log).Generate(context.Background(), testDoc)
	require.NoError(t, err)
	assert.Equal(t, "Who signs?", qs[0].Question)
}

func TestUnconfiguredGenerator(t *testing.T) {
	_, err := Unconfigured{}.Generate(context.Background(), &models.Document{ID: "nda_policy"})
	assert.ErrorIs(t, err, ErrNoGenerator)

	questions, err := NewFallbackGenerator(Unconfigured{}, zap.NewNop()).Generate(context.Background(), &models.Document{ID: "nda_policy"})
	require.NoError(t, err)
	assert.Equal(t, FixedQuestions(), questions)
}
