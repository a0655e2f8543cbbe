package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"
)

const defaultBackoff = time.Second

// WebhookSender posts events as JSON. 5xx answers and timeouts are retried
// with exponential backoff plus jitter; any other failure is final.
type WebhookSender struct {
	url         string
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
}

func NewWebhookSender(url string, timeout time.Duration, maxAttempts int) *WebhookSender {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &WebhookSender{
		url:         url,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		backoff:     defaultBackoff,
	}
}

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (s *WebhookSender) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.wait(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := s.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		var re *retryableError
		if !errors.As(err, &re) {
			return err
		}
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", s.maxAttempts, lastErr)
}

// wait is base*2^n plus up to one base of jitter.
func (s *WebhookSender) wait(n int) time.Duration {
	return s.backoff<<n + time.Duration(rand.Int63n(int64(s.backoff)))
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() == nil {
			return &retryableError{err: err}
		}
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated,
		resp.StatusCode == http.StatusAccepted, resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode >= 500:
		return &retryableError{err: fmt.Errorf("webhook status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
}
