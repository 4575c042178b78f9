// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries the outcome of one question back to the model.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
	Elapsed  time.Duration
}

// TranscriptCleared is sent when the conversation is reset.
type TranscriptCleared struct{}
