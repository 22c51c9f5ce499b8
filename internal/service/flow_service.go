package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"earnflow/internal/cache"
	"earnflow/internal/config"
	"earnflow/internal/flow"
	"earnflow/internal/metrics"
	"earnflow/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrFlowNotFound     = errors.New("flow not found")
	ErrAlreadyCompleted = errors.New("opportunity already completed")
	ErrInvalidAnswer    = errors.New("invalid answer")
)

const maxTextAnswerLen = 5000

// FlowSubmitter receives finished flows. SubmissionService implements it.
type FlowSubmitter interface {
	Submit(ctx context.Context, req SubmissionRequest) (*model.Receipt, error)
}

// FlowView is a flow snapshot plus the opportunity it belongs to
type FlowView struct {
	flow.Snapshot
	OpportunityID string                `json:"opportunityId"`
	Kind          model.OpportunityKind `json:"kind"`
	Title         string                `json:"title"`
	Reward        float64               `json:"reward"`
}

type flowEntry struct {
	flow        *flow.Flow
	userID      string
	opportunity *model.Opportunity
	discarded   atomic.Bool
}

// FlowService owns the in-memory question flows of all users. Flows are not
// persisted; an abandoned flow is dropped by the idle sweep.
type FlowService struct {
	catalog     *CatalogService
	completions cache.CompletionCache
	submitter   FlowSubmitter
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	log         *zap.Logger

	submitTimeout time.Duration
	idleTTL       time.Duration
	sweepInterval time.Duration

	mu    sync.RWMutex
	flows map[string]*flowEntry
}

// NewFlowService creates a new flow service
func NewFlowService(
	catalog *CatalogService,
	completions cache.CompletionCache,
	submitter FlowSubmitter,
	b Broadcaster,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg config.FlowConfig,
) *FlowService {
	if b == nil {
		b = noopBroadcaster{}
	}
	return &FlowService{
		catalog:       catalog,
		completions:   completions,
		submitter:     submitter,
		broadcaster:   b,
		metrics:       m,
		log:           log,
		submitTimeout: cfg.SubmitTimeout,
		idleTTL:       cfg.IdleTTL,
		sweepInterval: cfg.SweepInterval,
		flows:         make(map[string]*flowEntry),
	}
}

// Start opens a flow for the opportunity. A user who already has an open
// flow for the same opportunity gets that flow back.
func (s *FlowService) Start(ctx context.Context, session model.Session, opportunityID string) (*FlowView, error) {
	opp, err := s.catalog.Get(ctx, opportunityID)
	if err != nil {
		return nil, err
	}

	done, err := s.completions.IsCompleted(ctx, session.UserID, opp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check completion: %w", err)
	}
	if done {
		return nil, ErrAlreadyCompleted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.flows {
		if e.userID == session.UserID && e.opportunity.ID == opp.ID && e.flow.Phase() != flow.PhaseCompleted {
			return s.view(e), nil
		}
	}

	entry := &flowEntry{userID: session.UserID, opportunity: opp}
	f, err := flow.New(uuid.New().String(), opp.Questions,
		flow.SubmitFunc(func(ctx context.Context, flowID string, answers model.Answers) (*model.Receipt, error) {
			return s.submit(ctx, entry, flowID, answers)
		}),
		flow.OnPhaseChange(func(snap flow.Snapshot) {
			s.onPhaseChange(entry, snap)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start flow for %s: %w", opp.ID, err)
	}
	entry.flow = f
	s.flows[f.ID()] = entry

	s.metrics.FlowStarted(string(opp.Kind))
	s.metrics.SetActiveFlows(len(s.flows))
	s.log.Info("flow started",
		zap.String("flow_id", f.ID()),
		zap.String("user_id", session.UserID),
		zap.String("opportunity_id", opp.ID),
	)
	return s.view(entry), nil
}

// Get returns the current state of a flow owned by the session user
func (s *FlowService) Get(_ context.Context, session model.Session, flowID string) (*FlowView, error) {
	entry, err := s.lookup(session, flowID)
	if err != nil {
		return nil, err
	}
	return s.view(entry), nil
}

// RecordAnswer checks value against the question and stores it.
// An empty value clears the answer.
func (s *FlowService) RecordAnswer(_ context.Context, session model.Session, flowID, questionID string, value model.AnswerValue) (*FlowView, error) {
	entry, err := s.lookup(session, flowID)
	if err != nil {
		return nil, err
	}

	q, ok := entry.flow.Question(questionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrUnknownQuestion, questionID)
	}
	// a closed flow reports its phase before the value is looked at
	if err := entry.flow.CheckWritable(); err != nil {
		return nil, err
	}
	if err := validateAnswer(q, value); err != nil {
		return nil, err
	}

	if err := entry.flow.RecordAnswer(questionID, value); err != nil {
		return nil, err
	}
	return s.view(entry), nil
}

// Advance moves the flow forward, submitting it from the last question
func (s *FlowService) Advance(ctx context.Context, session model.Session, flowID string) (*FlowView, error) {
	entry, err := s.lookup(session, flowID)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := s.submitContext(ctx)
	defer cancel()

	if err := entry.flow.Advance(subCtx); err != nil {
		return s.failed(entry, err)
	}
	view := s.view(entry)
	if view.Phase == flow.PhaseInProgress {
		s.broadcaster.BroadcastToUser(entry.userID, EventFlowProgress, view)
	}
	return view, nil
}

// Retreat moves the flow back one question
func (s *FlowService) Retreat(_ context.Context, session model.Session, flowID string) (*FlowView, error) {
	entry, err := s.lookup(session, flowID)
	if err != nil {
		return nil, err
	}
	if err := entry.flow.Retreat(); err != nil {
		return nil, err
	}
	view := s.view(entry)
	s.broadcaster.BroadcastToUser(entry.userID, EventFlowProgress, view)
	return view, nil
}

// SubmitAll submits every answer at once
func (s *FlowService) SubmitAll(ctx context.Context, session model.Session, flowID string) (*FlowView, error) {
	entry, err := s.lookup(session, flowID)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := s.submitContext(ctx)
	defer cancel()

	if err := entry.flow.SubmitAll(subCtx); err != nil {
		return s.failed(entry, err)
	}
	return s.view(entry), nil
}

// Discard drops a flow. A flow with a submission in flight cannot be
// discarded until the submission settles.
func (s *FlowService) Discard(_ context.Context, session model.Session, flowID string) error {
	entry, err := s.lookup(session, flowID)
	if err != nil {
		return err
	}
	if err := entry.flow.CheckWritable(); errors.Is(err, flow.ErrSubmissionPending) {
		return err
	}
	s.remove(flowID, entry)
	s.log.Info("flow discarded", zap.String("flow_id", flowID), zap.String("user_id", entry.userID))
	return nil
}

// Run sweeps idle flows until ctx is cancelled
func (s *FlowService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				s.log.Debug("idle flows swept", zap.Int("count", n))
			}
		}
	}
}

// Sweep removes flows idle for longer than the idle TTL. Flows with a
// pending submission are kept.
func (s *FlowService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.flows {
		if e.flow.Phase() == flow.PhaseSubmitting {
			continue
		}
		if now.Sub(e.flow.UpdatedAt()) > s.idleTTL {
			e.discarded.Store(true)
			delete(s.flows, id)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.SetActiveFlows(len(s.flows))
	}
	return removed
}

func (s *FlowService) submit(ctx context.Context, entry *flowEntry, flowID string, answers model.Answers) (*model.Receipt, error) {
	receipt, err := s.submitter.Submit(ctx, SubmissionRequest{
		FlowID:      flowID,
		UserID:      entry.userID,
		Opportunity: entry.opportunity,
		Answers:     answers,
	})
	if err != nil {
		s.metrics.SubmissionResult("failure")
		s.log.Warn("flow submission failed",
			zap.String("flow_id", flowID),
			zap.String("user_id", entry.userID),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.SubmissionResult("success")
	return receipt, nil
}

func (s *FlowService) onPhaseChange(entry *flowEntry, snap flow.Snapshot) {
	if entry.discarded.Load() {
		return
	}

	var event string
	switch snap.Phase {
	case flow.PhaseSubmitting:
		event = EventFlowSubmitting
	case flow.PhaseCompleted:
		event = EventFlowCompleted
	case flow.PhaseInProgress:
		event = EventFlowSubmitFailed
	default:
		return
	}
	s.broadcaster.BroadcastToUser(entry.userID, event, s.viewOf(entry, snap))
}

// failed passes err through and, for submission failures, also returns the
// reverted state so the caller can retry. A flow whose opportunity was
// already paid out through another flow is dropped.
func (s *FlowService) failed(entry *flowEntry, err error) (*FlowView, error) {
	if errors.Is(err, ErrAlreadyCompleted) {
		s.remove(entry.flow.ID(), entry)
		return nil, ErrAlreadyCompleted
	}
	var subErr *flow.SubmissionError
	if errors.As(err, &subErr) {
		return s.view(entry), err
	}
	return nil, err
}

func (s *FlowService) submitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	// a client disconnect must not abort a submission already under way
	return context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
}

func (s *FlowService) lookup(session model.Session, flowID string) (*flowEntry, error) {
	s.mu.RLock()
	entry, ok := s.flows[flowID]
	s.mu.RUnlock()
	if !ok || entry.userID != session.UserID {
		return nil, ErrFlowNotFound
	}
	return entry, nil
}

func (s *FlowService) remove(flowID string, entry *flowEntry) {
	entry.discarded.Store(true)

	s.mu.Lock()
	delete(s.flows, flowID)
	n := len(s.flows)
	s.mu.Unlock()

	s.metrics.SetActiveFlows(n)
}

func (s *FlowService) view(entry *flowEntry) *FlowView {
	return s.viewOf(entry, entry.flow.Snapshot())
}

func (s *FlowService) viewOf(entry *flowEntry, snap flow.Snapshot) *FlowView {
	return &FlowView{
		Snapshot:      snap,
		OpportunityID: entry.opportunity.ID,
		Kind:          entry.opportunity.Kind,
		Title:         entry.opportunity.Title,
		Reward:        entry.opportunity.Reward,
	}
}

func validateAnswer(q model.Question, v model.AnswerValue) error {
	if v == (model.AnswerValue{}) {
		return nil
	}

	switch q.Kind {
	case model.QuestionMultipleChoice:
		if v.Rating != 0 || !q.HasChoice(v.Text) {
			return fmt.Errorf("%w: %q is not a choice of %s", ErrInvalidAnswer, v.Text, q.ID)
		}
	case model.QuestionFreeText:
		if v.Rating != 0 {
			return fmt.Errorf("%w: %s expects text", ErrInvalidAnswer, q.ID)
		}
		if len(v.Text) > maxTextAnswerLen {
			return fmt.Errorf("%w: answer to %s is longer than %d characters", ErrInvalidAnswer, q.ID, maxTextAnswerLen)
		}
	case model.QuestionRating:
		if v.Text != "" || v.Rating < 1 || v.Rating > q.RatingScale() {
			return fmt.Errorf("%w: %s expects a rating between 1 and %d", ErrInvalidAnswer, q.ID, q.RatingScale())
		}
	default:
		return fmt.Errorf("%w: unsupported question kind %s", ErrInvalidAnswer, q.Kind)
	}
	return nil
}
