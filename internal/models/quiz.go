package models

import "time"

// Question is one multiple-choice quiz question.
type Question struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// PublicQuestion is a question with the answer stripped, safe to send to clients.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (q Question) Public() PublicQuestion {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return PublicQuestion{ID: q.ID, Question: q.Question, Options: opts}
}

// Quiz is the question set issued for one signature request.
type Quiz struct {
	QuizID        string     `json:"quiz_id"`
	TrackingID    string     `json:"tracking_id"`
	Questions     []Question `json:"questions"`
	Attempts      int        `json:"attempts"`
	Passed        bool       `json:"passed"`
	LastScore     int        `json:"last_score"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Version       int        `json:"version"`
}

// Score counts answers that exactly match the stored correct option.
func (q *Quiz) Score(answers map[string]string) int {
	correct := 0
	for _, question := range q.Questions {
		if ans, ok := answers[question.ID]; ok && ans == question.CorrectAnswer {
			correct++
		}
	}
	return correct
}

// Unanswered returns the ids of questions with no (or an empty) answer.
func (q *Quiz) Unanswered(answers map[string]string) []string {
	var missing []string
	for _, question := range q.Questions {
		if answers[question.ID] == "" {
			missing = append(missing, question.ID)
		}
	}
	return missing
}
