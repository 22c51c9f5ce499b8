// Package flow drives a user through an ordered list of questions, one at a
// time, and hands the final answers to a Submitter.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"earnflow/internal/model"
)

// Phase is the lifecycle stage of a flow
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseCompleted  Phase = "completed"
)

// Snapshot is a consistent read of a flow for the presentation layer
type Snapshot struct {
	ID           string         `json:"id"`
	Phase        Phase          `json:"phase"`
	CurrentIndex int            `json:"currentIndex"`
	Total        int            `json:"total"`
	Progress     float64        `json:"progress"`
	Current      model.Question `json:"current"`
	Answers      model.Answers  `json:"answers"`
	Receipt      *model.Receipt `json:"receipt,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Option configures a Flow
type Option func(*Flow)

// OnPhaseChange registers fn to be called after every phase transition.
// fn runs without the flow lock held.
func OnPhaseChange(fn func(Snapshot)) Option {
	return func(f *Flow) {
		f.onPhase = fn
	}
}

// Flow holds the state of one question flow. It is safe for concurrent use,
// but only one mutating call is expected at a time; calls made while a
// submission is in flight fail with ErrSubmissionPending.
type Flow struct {
	id        string
	questions []model.Question
	index     map[string]int
	submitter Submitter
	onPhase   func(Snapshot)

	mu        sync.Mutex
	cursor    int
	answers   model.Answers
	phase     Phase
	receipt   *model.Receipt
	updatedAt time.Time
}

// New creates a flow positioned on the first question
func New(id string, questions []model.Question, submitter Submitter, opts ...Option) (*Flow, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if submitter == nil {
		return nil, errors.New("flow requires a submitter")
	}

	qs := make([]model.Question, len(questions))
	copy(qs, questions)

	index := make(map[string]int, len(qs))
	for i, q := range qs {
		if q.ID == "" {
			return nil, fmt.Errorf("question at position %d has no id", i)
		}
		if _, dup := index[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		index[q.ID] = i
	}

	f := &Flow{
		id:        id,
		questions: qs,
		index:     index,
		submitter: submitter,
		answers:   make(model.Answers, len(qs)),
		phase:     PhaseInProgress,
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Flow) ID() string {
	return f.id
}

// Question returns the question with the given id
func (f *Flow) Question(id string) (model.Question, bool) {
	i, ok := f.index[id]
	if !ok {
		return model.Question{}, false
	}
	return f.questions[i], true
}

// RecordAnswer stores value for questionID, replacing any earlier answer.
// The cursor does not move.
func (f *Flow) RecordAnswer(questionID string, value model.AnswerValue) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	if _, ok := f.index[questionID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	f.answers[questionID] = value
	f.touch()
	return nil
}

// Advance moves to the next question once the current one is answered.
// On the last question it submits the answers instead.
func (f *Flow) Advance(ctx context.Context) error {
	answers, err := f.stepForward()
	if err != nil || answers == nil {
		return err
	}
	return f.submit(ctx, answers)
}

// Retreat moves back one question. At the first question it does nothing.
func (f *Flow) Retreat() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkWritable(); err != nil {
		return err
	}
	if f.cursor > 0 {
		f.cursor--
		f.touch()
	}
	return nil
}

// SubmitAll submits the answers regardless of cursor position, provided
// every question is answered.
func (f *Flow) SubmitAll(ctx context.Context) error {
	f.mu.Lock()
	if err := f.checkWritable(); err != nil {
		f.mu.Unlock()
		return err
	}
	if n := f.unansweredLocked(); n > 0 {
		f.mu.Unlock()
		return &ValidationError{Err: ErrIncompleteSet, Unanswered: n}
	}
	answers := f.beginSubmitLocked()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(snap)
	return f.submit(ctx, answers)
}

// stepForward either moves the cursor and returns nil answers, or switches
// the flow to submitting and returns the answers to submit.
func (f *Flow) stepForward() (model.Answers, error) {
	f.mu.Lock()
	if err := f.checkWritable(); err != nil {
		f.mu.Unlock()
		return nil, err
	}

	q := f.questions[f.cursor]
	if !q.IsAnswered(f.answers[q.ID]) {
		f.mu.Unlock()
		return nil, &ValidationError{Err: ErrUnanswered, QuestionID: q.ID}
	}

	if f.cursor < len(f.questions)-1 {
		f.cursor++
		f.touch()
		f.mu.Unlock()
		return nil, nil
	}

	// an earlier answer may have been overwritten with an empty value
	if n := f.unansweredLocked(); n > 0 {
		f.mu.Unlock()
		return nil, &ValidationError{Err: ErrIncompleteSet, Unanswered: n}
	}

	answers := f.beginSubmitLocked()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(snap)
	return answers, nil
}

// submit calls the submitter without holding the lock and applies the outcome
func (f *Flow) submit(ctx context.Context, answers model.Answers) error {
	receipt, err := f.submitter.Submit(ctx, f.id, answers)

	f.mu.Lock()
	if err != nil {
		f.phase = PhaseInProgress
		f.touch()
		snap := f.snapshotLocked()
		f.mu.Unlock()

		f.notify(snap)
		return &SubmissionError{FlowID: f.id, Err: err}
	}

	f.answers = answers
	f.receipt = receipt
	f.phase = PhaseCompleted
	f.touch()
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(snap)
	return nil
}

func (f *Flow) beginSubmitLocked() model.Answers {
	f.phase = PhaseSubmitting
	f.touch()

	out := make(model.Answers, len(f.questions))
	for _, q := range f.questions {
		out[q.ID] = f.answers[q.ID]
	}
	return out
}

func (f *Flow) unansweredLocked() int {
	n := 0
	for _, q := range f.questions {
		if !q.IsAnswered(f.answers[q.ID]) {
			n++
		}
	}
	return n
}

// CheckWritable returns ErrSubmissionPending or ErrFlowCompleted when the
// flow no longer accepts edits
func (f *Flow) CheckWritable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkWritable()
}

func (f *Flow) checkWritable() error {
	switch f.phase {
	case PhaseSubmitting:
		return ErrSubmissionPending
	case PhaseCompleted:
		return ErrFlowCompleted
	}
	return nil
}

func (f *Flow) touch() {
	f.updatedAt = time.Now()
}

func (f *Flow) notify(s Snapshot) {
	if f.onPhase != nil {
		f.onPhase(s)
	}
}

// Current returns the question at the cursor
func (f *Flow) Current() model.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions[f.cursor]
}

// CurrentIndex returns the cursor position
func (f *Flow) CurrentIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor
}

// Progress returns currentIndex / len(questions)
func (f *Flow) Progress() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progressLocked()
}

func (f *Flow) progressLocked() float64 {
	return float64(f.cursor) / float64(len(f.questions))
}

func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Answers returns a copy of the recorded answers
func (f *Flow) Answers() model.Answers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers.Clone()
}

// Receipt returns the submission receipt, or nil before completion
func (f *Flow) Receipt() *model.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipt
}

// UpdatedAt is the time of the last state change
func (f *Flow) UpdatedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updatedAt
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           f.id,
		Phase:        f.phase,
		CurrentIndex: f.cursor,
		Total:        len(f.questions),
		Progress:     f.progressLocked(),
		Current:      f.questions[f.cursor],
		Answers:      f.answers.Clone(),
		Receipt:      f.receipt,
		UpdatedAt:    f.updatedAt,
	}
}
