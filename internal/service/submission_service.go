package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"earnflow/internal/cache"
	"earnflow/internal/model"
	"earnflow/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyReviewed    = errors.New("submission already reviewed")
	ErrInvalidStatus      = errors.New("invalid submission status")
)

const (
	defaultReviewPage = 50
	maxReviewPage     = 200
)

// CommissionCrediter pays referral commission on an approved earning.
// ReferralService implements it.
type CommissionCrediter interface {
	CreditCommission(ctx context.Context, earning *model.Transaction) error
}

// SubmissionRequest carries a finished flow to SubmissionService
type SubmissionRequest struct {
	FlowID      string
	UserID      string
	Opportunity *model.Opportunity
	Answers     model.Answers
}

// SubmissionService persists finished flows and credits the pending reward.
// Every step is keyed by the flow id, so retrying a failed submission does
// not record or credit anything twice. A user is paid at most once per
// opportunity. Review settles the pending reward.
type SubmissionService struct {
	submissions repository.SubmissionRepo
	ledger      repository.TransactionRepo
	completions cache.CompletionCache
	leaderboard cache.LeaderboardCache
	commissions CommissionCrediter
	broadcaster Broadcaster
	log         *zap.Logger
	now         func() time.Time
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	submissions repository.SubmissionRepo,
	ledger repository.TransactionRepo,
	completions cache.CompletionCache,
	leaderboard cache.LeaderboardCache,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		ledger:      ledger,
		completions: completions,
		leaderboard: leaderboard,
		broadcaster: noopBroadcaster{},
		log:         log,
		now:         time.Now,
	}
}

// SetBroadcaster sets the broadcaster for wallet updates after construction
func (s *SubmissionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetCommissions sets the referral commission hook run on approval
func (s *SubmissionService) SetCommissions(c CommissionCrediter) {
	s.commissions = c
}

// EarningID is the ledger id of the reward for a flow
func EarningID(flowID string) string {
	return "earn_" + flowID
}

// Submit records the answers and the pending earning
func (s *SubmissionService) Submit(ctx context.Context, req SubmissionRequest) (*model.Receipt, error) {
	opp := req.Opportunity
	if opp == nil {
		return nil, errors.New("submission has no opportunity")
	}

	other, err := s.submissions.GetByUserOpportunity(ctx, req.UserID, opp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if other != nil && other.ID != req.FlowID {
		return nil, s.alreadyPaid(ctx, req, other.ID)
	}

	sub := &model.Submission{
		ID:            req.FlowID,
		UserID:        req.UserID,
		OpportunityID: opp.ID,
		Kind:          opp.Kind,
		Answers:       req.Answers,
		Reward:        opp.Reward,
		Status:        model.SubmissionPending,
		SubmittedAt:   s.now(),
	}

	err = s.submissions.Create(ctx, sub)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		// retry of an earlier attempt keeps the stored record; anything else
		// lost a race with another flow for the same opportunity
		existing, getErr := s.submissions.GetByID(ctx, req.FlowID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load existing submission: %w", getErr)
		}
		if existing == nil {
			return nil, s.alreadyPaid(ctx, req, "")
		}
		sub = existing
		s.log.Info("submission already stored", zap.String("flow_id", req.FlowID))
	case err != nil:
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	earning := &model.Transaction{
		ID:          EarningID(req.FlowID),
		UserID:      req.UserID,
		Type:        model.TxEarning,
		Amount:      sub.Reward,
		Status:      model.TxPending,
		Description: earningDescription(opp),
		SourceID:    sub.ID,
		CreatedAt:   sub.SubmittedAt,
	}
	if err := s.ledger.Create(ctx, earning); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("failed to record earning: %w", err)
	}

	if _, err := s.leaderboard.AddEarning(ctx, earning.ID, req.UserID, earning.Amount); err != nil {
		return nil, fmt.Errorf("failed to update leaderboard: %w", err)
	}
	if err := s.completions.MarkCompleted(ctx, req.UserID, opp.ID); err != nil {
		return nil, fmt.Errorf("failed to mark completed: %w", err)
	}

	s.log.Info("submission recorded",
		zap.String("flow_id", req.FlowID),
		zap.String("user_id", req.UserID),
		zap.String("opportunity_id", opp.ID),
		zap.Float64("reward", sub.Reward),
	)

	return &model.Receipt{
		SubmissionID: sub.ID,
		FlowID:       req.FlowID,
		Reward:       sub.Reward,
		Status:       string(sub.Status),
		SubmittedAt:  sub.SubmittedAt,
	}, nil
}

// alreadyPaid refuses a second submission for an opportunity and repairs the
// completion mark the first one may have missed
func (s *SubmissionService) alreadyPaid(ctx context.Context, req SubmissionRequest, otherID string) error {
	s.log.Warn("duplicate submission refused",
		zap.String("flow_id", req.FlowID),
		zap.String("user_id", req.UserID),
		zap.String("opportunity_id", req.Opportunity.ID),
		zap.String("existing_id", otherID),
	)
	if err := s.completions.MarkCompleted(ctx, req.UserID, req.Opportunity.ID); err != nil {
		s.log.Warn("failed to mark completed", zap.Error(err))
	}
	return ErrAlreadyCompleted
}

// Review settles a pending submission. Approval completes the earning and
// pays any referral commission; rejection fails the earning and takes it
// off the leaderboard. Repeating the same decision is a no-op.
func (s *SubmissionService) Review(ctx context.Context, flowID string, approve bool) (*model.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}

	target, txStatus := model.SubmissionRejected, model.TxFailed
	if approve {
		target, txStatus = model.SubmissionApproved, model.TxCompleted
	}
	if sub.Status == target {
		return sub, nil
	}
	if sub.Status != model.SubmissionPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyReviewed, sub.ID, sub.Status)
	}

	// the submission status moves last so a failed review can be repeated
	earning := s.earningFor(sub, txStatus)
	if err := s.settleEarning(ctx, earning); err != nil {
		return nil, err
	}
	if approve {
		if _, err := s.leaderboard.AddEarning(ctx, earning.ID, sub.UserID, earning.Amount); err != nil {
			return nil, fmt.Errorf("failed to update leaderboard: %w", err)
		}
		if s.commissions != nil {
			if err := s.commissions.CreditCommission(ctx, earning); err != nil {
				return nil, fmt.Errorf("failed to credit referral commission: %w", err)
			}
		}
	} else if _, err := s.leaderboard.RevokeEarning(ctx, earning.ID, sub.UserID, earning.Amount); err != nil {
		return nil, fmt.Errorf("failed to update leaderboard: %w", err)
	}
	if err := s.submissions.UpdateStatus(ctx, sub.ID, target); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	now := s.now()
	sub.Status = target
	sub.ReviewedAt = &now

	s.log.Info("submission reviewed",
		zap.String("flow_id", sub.ID),
		zap.String("user_id", sub.UserID),
		zap.String("status", string(target)),
	)
	s.broadcaster.BroadcastToUser(sub.UserID, EventWalletUpdated, map[string]interface{}{
		"transactionId": earning.ID,
		"status":        txStatus,
	})
	return sub, nil
}

// ListByStatus returns submissions awaiting or past review, oldest first.
// An empty status means pending.
func (s *SubmissionService) ListByStatus(ctx context.Context, status string, limit int) ([]*model.Submission, error) {
	st := model.SubmissionStatus(status)
	switch st {
	case "":
		st = model.SubmissionPending
	case model.SubmissionPending, model.SubmissionApproved, model.SubmissionRejected:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	if limit <= 0 {
		limit = defaultReviewPage
	}
	if limit > maxReviewPage {
		limit = maxReviewPage
	}

	subs, err := s.submissions.GetByStatus(ctx, st, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	if subs == nil {
		subs = []*model.Submission{}
	}
	return subs, nil
}

func (s *SubmissionService) earningFor(sub *model.Submission, status model.TransactionStatus) *model.Transaction {
	return &model.Transaction{
		ID:        EarningID(sub.ID),
		UserID:    sub.UserID,
		Type:      model.TxEarning,
		Amount:    sub.Reward,
		Status:    status,
		SourceID:  sub.ID,
		CreatedAt: sub.SubmittedAt,
	}
}

// settleEarning moves the ledger entry to its final status, recording it
// if an interrupted submission never wrote it
func (s *SubmissionService) settleEarning(ctx context.Context, earning *model.Transaction) error {
	err := s.ledger.UpdateStatus(ctx, earning.ID, earning.Status)
	if !errors.Is(err, repository.ErrNotFound) {
		if err != nil {
			return fmt.Errorf("failed to settle earning: %w", err)
		}
		return nil
	}

	earning.Description = "Reviewed Submission " + earning.SourceID
	if err := s.ledger.Create(ctx, earning); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("failed to record earning: %w", err)
	}
	return nil
}

// ListForUser returns a user's submissions, newest first
func (s *SubmissionService) ListForUser(ctx context.Context, userID string) ([]*model.Submission, error) {
	subs, err := s.submissions.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

func earningDescription(o *model.Opportunity) string {
	if o.Kind == model.KindSurvey {
		return "Survey Completion: " + o.Title
	}
	return "Task Completion: " + o.Title
}
