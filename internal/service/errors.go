package service

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/parisxmas/OxiDB/OxiSign/internal/store"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream failure")
)

// maxConflictRetries bounds retryOnConflict.
const maxConflictRetries = 5

// retryOnConflict reruns fn while it fails with store.ErrConflict. fn must
// re-read whatever it modifies.
func retryOnConflict(fn func() error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		if err = fn(); !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("gave up after %d conflicting updates: %w", maxConflictRetries, err)
}

func notFound(what, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func required(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return invalid("%s is required", field)
	}
	if max > 0 && len([]rune(value)) > max {
		return invalid("%s must be at most %d characters", field, max)
	}
	return nil
}

// validEmail accepts a bare address such as jane@example.com.
func validEmail(field, value string) error {
	if err := required(field, value, 254); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value[strings.LastIndex(value, "@"):], ".") {
		return invalid("%s is not a valid email address", field)
	}
	return nil
}
