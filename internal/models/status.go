package models

// Status is the lifecycle state of a signature request.
type Status string

const (
	StatusSent         Status = "sent"
	StatusAcknowledged Status = "acknowledged"
	StatusQuizPending  Status = "quiz_pending"
	StatusQuizFailed   Status = "quiz_failed"
	StatusCompleted    Status = "completed"
)

// transitions lists the allowed moves out of each status. Completed is terminal.
var transitions = map[Status][]Status{
	StatusSent:         {StatusAcknowledged},
	StatusAcknowledged: {StatusQuizPending},
	StatusQuizPending:  {StatusCompleted, StatusQuizFailed},
	StatusQuizFailed:   {StatusQuizPending},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSent, StatusAcknowledged, StatusQuizPending, StatusQuizFailed, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a record in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// HasQuiz reports whether a record in status s already owns a generated quiz.
func (s Status) HasQuiz() bool {
	return s == StatusQuizPending || s == StatusQuizFailed || s == StatusCompleted
}
