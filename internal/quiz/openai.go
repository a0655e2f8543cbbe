package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

const (
	maxDocumentChars   = 6000
	openaiTemperature  = 0.7
	openaiMaxTokens    = 2000
	openaiMaxRetries   = 3
	openaiInitialDelay = 1 * time.Second
	systemPrompt       = "You are an expert educator creating quiz questions."
)

// OpenAIGenerator asks the chat completions API for questions in JSON mode.
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	delay   time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type openaiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func NewOpenAIGenerator(apiKey, model, baseURL string, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		delay:   openaiInitialDelay,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, doc *models.Document) ([]models.Question, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt(doc.Content)},
		},
		Temperature: openaiTemperature,
		MaxTokens:   openaiMaxTokens,
	}
	req.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < openaiMaxRetries; attempt++ {
		if attempt > 0 {
			// 2s, 4s with the default delay
			delay := g.delay << attempt
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		content, retry, err := g.complete(ctx, body)
		if err != nil {
			lastErr = err
			if retry && ctx.Err() == nil {
				continue
			}
			return nil, err
		}
		questions, err := ParseQuestions(content)
		if err != nil {
			return nil, err
		}
		return questions, nil
	}
	return nil, fmt.Errorf("max retries (%d) exceeded: %w", openaiMaxRetries, lastErr)
}

// complete performs one request. retry reports whether the failure is worth
// another attempt (transport errors, 429 and 5xx).
func (g *OpenAIGenerator) complete(ctx context.Context, body []byte) (string, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("HTTP request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openaiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			err = fmt.Errorf("OpenAI API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		} else {
			err = fmt.Errorf("OpenAI API error (%d): %s", resp.StatusCode, string(respBody))
		}
		return "", resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", false, fmt.Errorf("no choices returned")
	}
	return chat.Choices[0].Message.Content, false, nil
}

// ParseQuestions accepts {"questions":[...]} or a bare array and keeps at
// most NumQuestions entries, numbered q1..qN.
func ParseQuestions(content string) ([]models.Question, error) {
	content = strings.TrimSpace(content)
	var questions []models.Question
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &questions); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
		}
	} else {
		var wrapped struct {
			Questions []models.Question `json:"questions"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
		}
		questions = wrapped.Questions
	}
	if len(questions) > NumQuestions {
		questions = questions[:NumQuestions]
	}
	return number(questions), nil
}

func prompt(content string) string {
	if r := []rune(content); len(r) > maxDocumentChars {
		content = string(r[:maxDocumentChars])
	}
	return fmt.Sprintf(`Generate exactly %d multiple choice questions based on the following document content.
Each question should test understanding of key concepts.

Format your response as a JSON object with this structure:
{"questions": [
    {
        "question": "The question text",
        "options": ["Option A", "Option B", "Option C", "Option D"],
        "correct_answer": "The correct option text (must be one of the options)"
    }
]}

Document content:
%s`, NumQuestions, content)
}
