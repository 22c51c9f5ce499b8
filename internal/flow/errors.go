package flow

import (
	"errors"
	"fmt"
)

var (
	ErrNoQuestions       = errors.New("flow has no questions")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrFlowCompleted     = errors.New("flow already completed")
	ErrSubmissionPending = errors.New("submission already pending")

	// Validation causes, carried inside ValidationError
	ErrUnanswered    = errors.New("current question is unanswered")
	ErrIncompleteSet = errors.New("not all questions are answered")
)

// ValidationError is a user-correctable failure. The flow state is unchanged.
type ValidationError struct {
	Err        error
	QuestionID string // set for ErrUnanswered
	Unanswered int    // set for ErrIncompleteSet
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrIncompleteSet) {
		return fmt.Sprintf("%v: %d unanswered", e.Err, e.Unanswered)
	}
	if e.QuestionID != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.QuestionID)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SubmissionError means the external submission call failed. It is always retryable.
type SubmissionError struct {
	FlowID string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed for flow %s: %v", e.FlowID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
