package quiz

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

// FixedQuestions is the generic question set used when generation fails.
func FixedQuestions() []models.Question {
	return []models.Question{
		{
			ID:       "q1",
			Question: "What is the main purpose of this document?",
			Options: []string{
				"To provide guidelines",
				"To establish rules",
				"To inform about policies",
				"All of the above",
			},
			CorrectAnswer: "All of the above",
		},
		{
			ID:       "q2",
			Question: "Who is required to follow these guidelines?",
			Options: []string{
				"Only new employees",
				"Only management",
				"All employees",
				"External contractors only",
			},
			CorrectAnswer: "All employees",
		},
		{
			ID:       "q3",
			Question: "When do these policies take effect?",
			Options: []string{
				"Immediately upon acknowledgment",
				"After 30 days",
				"At the next review cycle",
				"Only for new projects",
			},
			CorrectAnswer: "Immediately upon acknowledgment",
		},
	}
}

// Static always returns FixedQuestions. It stands in when no LLM is configured.
type Static struct{}

func (Static) Generate(context.Context, *models.Document) ([]models.Question, error) {
	return FixedQuestions(), nil
}

// FallbackGenerator substitutes FixedQuestions when the wrapped generator
// errors or produces a quiz that fails Validate.
type FallbackGenerator struct {
	next Generator
	log  *zap.Logger
}

func NewFallbackGenerator(next Generator, log *zap.Logger) *FallbackGenerator {
	return &FallbackGenerator{next: next, log: log}
}

func (g *FallbackGenerator) Generate(ctx context.Context, doc *models.Document) ([]models.Question, error) {
	questions, err := g.next.Generate(ctx, doc)
	if err == nil {
		err = Validate(questions)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.log.Warn("Using fallback quiz questions", zap.String("document_id", doc.ID), zap.Error(err))
		return FixedQuestions(), nil
	}
	return questions, nil
}

// ErrNoGenerator is returned by Unconfigured.
var ErrNoGenerator = errors.New("no quiz generator configured")

// Unconfigured fails every request. It stands in when no LLM key is set and
// fallback questions are disabled.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, *models.Document) ([]models.Question, error) {
	return nil, ErrNoGenerator
}
