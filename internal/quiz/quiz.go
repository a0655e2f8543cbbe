// Package quiz produces the three-question comprehension check a recipient
// must pass before a signature counts.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

// NumQuestions is the fixed size of every quiz.
const NumQuestions = 3

var ErrInvalidQuiz = errors.New("invalid quiz")

// Generator builds questions for a document. Implementations must honour ctx.
type Generator interface {
	Generate(ctx context.Context, doc *models.Document) ([]models.Question, error)
}

// Validate checks the shape every stored quiz must have.
func Validate(questions []models.Question) error {
	if len(questions) != NumQuestions {
		return fmt.Errorf("%w: want %d questions, got %d", ErrInvalidQuiz, NumQuestions, len(questions))
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrInvalidQuiz, i+1)
		}
		if len(q.Options) != 4 {
			return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuiz, i+1, len(q.Options))
		}
		seen := make(map[string]bool, 4)
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d has an empty option", ErrInvalidQuiz, i+1)
			}
			if seen[opt] {
				return fmt.Errorf("%w: question %d repeats option %q", ErrInvalidQuiz, i+1, opt)
			}
			seen[opt] = true
		}
		if !seen[q.CorrectAnswer] {
			return fmt.Errorf("%w: question %d answer is not one of its options", ErrInvalidQuiz, i+1)
		}
	}
	return nil
}

// number assigns q1, q2, ... in order.
func number(questions []models.Question) []models.Question {
	for i := range questions {
		questions[i].ID = fmt.Sprintf("q%d", i+1)
	}
	return questions
}
