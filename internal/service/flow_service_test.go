package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"earnflow/internal/config"
	"earnflow/internal/flow"
	"earnflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flowFixture struct {
	svc         *FlowService
	submitter   *stubSubmitter
	completions *fakeCompletionCache
	broadcaster *fakeBroadcaster
}

type stubSubmitter struct {
	mu    sync.Mutex
	calls []SubmissionRequest
	err   error
	block chan struct{}
}

func (s *stubSubmitter) Submit(ctx context.Context, req SubmissionRequest) (*model.Receipt, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.Receipt{SubmissionID: req.FlowID, FlowID: req.FlowID, Reward: req.Opportunity.Reward, Status: "pending"}, nil
}

func flowCatalog() *fakeOpportunityRepo {
	repo := testCatalog()
	repo.items = append(repo.items, &model.Opportunity{
		ID:     "301",
		Kind:   model.KindSurvey,
		Title:  "Quick Poll",
		Reward: 1.25,
		Questions: []model.Question{
			{ID: "q1", Kind: model.QuestionMultipleChoice, Prompt: "Pick", Choices: []string{"A", "B"}},
			{ID: "q2", Kind: model.QuestionFreeText, Prompt: "Why"},
			{ID: "q3", Kind: model.QuestionRating, Prompt: "Rate", Scale: 5},
		},
	}, &model.Opportunity{ID: "302", Kind: model.KindTask, Title: "Empty"})
	return repo
}

func newFlowService(submitter FlowSubmitter, completions *fakeCompletionCache, b Broadcaster) *FlowService {
	return NewFlowService(
		NewCatalogService(flowCatalog(), completions),
		completions,
		submitter,
		b,
		nil,
		zap.NewNop(),
		config.FlowConfig{SubmitTimeout: time.Second, IdleTTL: time.Minute, SweepInterval: time.Second},
	)
}

func newFlowFixture() *flowFixture {
	f := &flowFixture{
		submitter:   &stubSubmitter{},
		completions: newFakeCompletionCache(),
		broadcaster: &fakeBroadcaster{},
	}
	f.svc = newFlowService(f.submitter, f.completions, f.broadcaster)
	return f
}

func activeFlows(s *FlowService) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flows)
}

func answerPoll(t *testing.T, svc *FlowService, flowID string) {
	t.Helper()
	for id, val := range map[string]model.AnswerValue{"q1": model.TextAnswer("B"), "q2": model.TextAnswer("x"), "q3": model.RatingAnswer(1)} {
		_, err := svc.RecordAnswer(context.Background(), alice, flowID, id, val)
		require.NoError(t, err)
	}
}

var alice = model.Session{UserID: "alice"}

func TestFlowServiceStart(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()

	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	assert.Equal(t, flow.PhaseInProgress, v.Phase)
	assert.Equal(t, 0, v.CurrentIndex)
	assert.Equal(t, 3, v.Total)
	assert.Equal(t, "q1", v.Current.ID)
	assert.Equal(t, "Quick Poll", v.Title)

	again, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID, "open flow is reused")
	assert.Equal(t, 1, activeFlows(f.svc))

	_, err = f.svc.Start(ctx, alice, "999")
	assert.ErrorIs(t, err, ErrOpportunityNotFound)

	_, err = f.svc.Start(ctx, alice, "302")
	assert.ErrorIs(t, err, flow.ErrNoQuestions)

	require.NoError(t, f.completions.MarkCompleted(ctx, "alice", "201"))
	_, err = f.svc.Start(ctx, alice, "201")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestFlowServiceOwnership(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)

	bob := model.Session{UserID: "bob"}
	_, err = f.svc.Get(ctx, bob, v.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
	_, err = f.svc.RecordAnswer(ctx, bob, v.ID, "q1", model.TextAnswer("A"))
	assert.ErrorIs(t, err, ErrFlowNotFound)
	assert.ErrorIs(t, f.svc.Discard(ctx, bob, v.ID), ErrFlowNotFound)

	_, err = f.svc.Get(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlowServiceAnswerChecks(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)

	tests := []struct {
		name       string
		questionID string
		value      model.AnswerValue
		wantErr    error
	}{
		{name: "valid choice", questionID: "q1", value: model.TextAnswer("B")},
		{name: "unknown choice", questionID: "q1", value: model.TextAnswer("C"), wantErr: ErrInvalidAnswer},
		{name: "rating on choice", questionID: "q1", value: model.RatingAnswer(2), wantErr: ErrInvalidAnswer},
		{name: "free text", questionID: "q2", value: model.TextAnswer("because")},
		{name: "rating in range", questionID: "q3", value: model.RatingAnswer(5)},
		{name: "rating too high", questionID: "q3", value: model.RatingAnswer(6), wantErr: ErrInvalidAnswer},
		{name: "rating negative", questionID: "q3", value: model.RatingAnswer(-1), wantErr: ErrInvalidAnswer},
		{name: "text on rating", questionID: "q3", value: model.TextAnswer("5"), wantErr: ErrInvalidAnswer},
		{name: "clear", questionID: "q3", value: model.AnswerValue{}},
		{name: "unknown question", questionID: "q9", value: model.TextAnswer("x"), wantErr: flow.ErrUnknownQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordAnswer(ctx, alice, v.ID, tt.questionID, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFlowServiceCompletes(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)

	_, err = f.svc.RecordAnswer(ctx, alice, v.ID, "q1", model.TextAnswer("A"))
	require.NoError(t, err)
	v, err = f.svc.Advance(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, v.CurrentIndex)

	_, err = f.svc.Advance(ctx, alice, v.ID)
	var verr *flow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "q2", verr.QuestionID)

	v, err = f.svc.Retreat(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, v.CurrentIndex)

	_, err = f.svc.RecordAnswer(ctx, alice, v.ID, "q2", model.TextAnswer("ok"))
	require.NoError(t, err)
	_, err = f.svc.RecordAnswer(ctx, alice, v.ID, "q3", model.RatingAnswer(4))
	require.NoError(t, err)

	v, err = f.svc.SubmitAll(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.PhaseCompleted, v.Phase)
	require.NotNil(t, v.Receipt)
	assert.Equal(t, 1.25, v.Receipt.Reward)

	require.Len(t, f.submitter.calls, 1)
	call := f.submitter.calls[0]
	assert.Equal(t, "alice", call.UserID)
	assert.Equal(t, "301", call.Opportunity.ID)
	assert.Equal(t, model.Answers{"q1": model.TextAnswer("A"), "q2": model.TextAnswer("ok"), "q3": model.RatingAnswer(4)}, call.Answers)

	assert.Equal(t, []string{EventFlowProgress, EventFlowProgress, EventFlowSubmitting, EventFlowCompleted}, f.broadcaster.types())
}

func TestFlowServiceSubmitFailureIsRetryable(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	for id, val := range map[string]model.AnswerValue{"q1": model.TextAnswer("B"), "q2": model.TextAnswer("x"), "q3": model.RatingAnswer(1)} {
		_, err = f.svc.RecordAnswer(ctx, alice, v.ID, id, val)
		require.NoError(t, err)
	}

	f.submitter.err = errors.New("backend unavailable")
	v, err = f.svc.SubmitAll(ctx, alice, v.ID)
	var serr *flow.SubmissionError
	require.ErrorAs(t, err, &serr)
	require.NotNil(t, v, "state is returned with a submission error")
	assert.Equal(t, flow.PhaseInProgress, v.Phase)
	assert.Contains(t, f.broadcaster.types(), EventFlowSubmitFailed)

	f.submitter.err = nil
	v, err = f.svc.SubmitAll(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.PhaseCompleted, v.Phase)
}

func TestFlowServiceSubmissionSurvivesCancel(t *testing.T) {
	f := newFlowFixture()
	v, err := f.svc.Start(context.Background(), alice, "301")
	require.NoError(t, err)
	for id, val := range map[string]model.AnswerValue{"q1": model.TextAnswer("B"), "q2": model.TextAnswer("x"), "q3": model.RatingAnswer(1)} {
		_, err = f.svc.RecordAnswer(context.Background(), alice, v.ID, id, val)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err = f.svc.SubmitAll(ctx, alice, v.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.PhaseCompleted, v.Phase)
}

func TestFlowServiceDiscardDuringSubmission(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	answerPoll(t, f.svc, v.ID)

	f.submitter.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SubmitAll(ctx, alice, v.ID)
		done <- err
	}()

	require.Eventually(t, func() bool {
		got, err := f.svc.Get(ctx, alice, v.ID)
		return err == nil && got.Phase == flow.PhaseSubmitting
	}, 2*time.Second, 5*time.Millisecond)

	_, err = f.svc.Advance(ctx, alice, v.ID)
	assert.ErrorIs(t, err, flow.ErrSubmissionPending)

	// the flow stays registered, so Start cannot open a second one
	assert.ErrorIs(t, f.svc.Discard(ctx, alice, v.ID), flow.ErrSubmissionPending)
	again, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID)
	assert.Equal(t, flow.PhaseSubmitting, again.Phase)

	close(f.submitter.block)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not finish")
	}

	assert.Len(t, f.submitter.calls, 1)
	assert.Contains(t, f.broadcaster.types(), EventFlowCompleted)

	// a settled flow can be dismissed
	require.NoError(t, f.svc.Discard(ctx, alice, v.ID))
	_, err = f.svc.Get(ctx, alice, v.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlowServiceOpportunityPaidOnce(t *testing.T) {
	ctx := context.Background()
	sf := newSubmissionFixture()
	svc := newFlowService(sf.svc, sf.completions, &fakeBroadcaster{})

	// first flow stores its submission and earning, then the completion
	// cache write fails and the flow reopens
	first, err := svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	answerPoll(t, svc, first.ID)
	sf.completions.err = errors.New("redis down")
	_, err = svc.SubmitAll(ctx, alice, first.ID)
	var serr *flow.SubmissionError
	require.ErrorAs(t, err, &serr)

	require.NoError(t, svc.Discard(ctx, alice, first.ID))
	sf.completions.err = nil

	second, err := svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	answerPoll(t, svc, second.ID)

	view, err := svc.SubmitAll(ctx, alice, second.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	assert.Nil(t, view)
	_, err = svc.Get(ctx, alice, second.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound, "a flow that can never be paid is dropped")

	assert.Len(t, sf.subs.items, 1)
	require.Len(t, sf.ledger.items, 1)
	assert.Equal(t, EarningID(first.ID), sf.ledger.items[0].ID)
	assert.Equal(t, 1.25, sf.leaderboard.totals["alice"])
}

func TestFlowServiceClosedFlowRejectsAnswersWithConflict(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)
	answerPoll(t, f.svc, v.ID)
	_, err = f.svc.SubmitAll(ctx, alice, v.ID)
	require.NoError(t, err)

	// an invalid value still reports the phase
	_, err = f.svc.RecordAnswer(ctx, alice, v.ID, "q1", model.TextAnswer("not a choice"))
	assert.ErrorIs(t, err, flow.ErrFlowCompleted)
	assert.NotErrorIs(t, err, ErrInvalidAnswer)

	_, err = f.svc.RecordAnswer(ctx, alice, v.ID, "q3", model.RatingAnswer(99))
	assert.ErrorIs(t, err, flow.ErrFlowCompleted)
}

func TestFlowServiceSweep(t *testing.T) {
	f := newFlowFixture()
	ctx := context.Background()
	v, err := f.svc.Start(ctx, alice, "301")
	require.NoError(t, err)

	assert.Zero(t, f.svc.Sweep(time.Now()))
	assert.Equal(t, 1, f.svc.Sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, activeFlows(f.svc))

	_, err = f.svc.Get(ctx, alice, v.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}
