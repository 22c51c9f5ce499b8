package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"earnflow/internal/cache"
	"earnflow/internal/config"
	"earnflow/internal/model"
	"earnflow/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrReferralCodeNotFound = errors.New("referral code not found")
	ErrAlreadyReferred      = errors.New("referral already claimed")
	ErrSelfReferral         = errors.New("cannot use your own referral code")
	ErrReferralClosed       = errors.New("referral codes can only be claimed by new accounts")
)

// Referral status values shown to the referrer
const (
	ReferralActive  = "active"
	ReferralPending = "pending"
)

// CommissionID is the ledger id of the commission paid on an earning
func CommissionID(earningID string) string {
	return "ref_" + earningID
}

// ReferralService links referred users to their referrer and pays the
// referrer a share of the referred user's approved earnings for a limited
// window after the referral.
type ReferralService struct {
	profiles    *ProfileService
	repo        repository.ProfileRepo
	ledger      repository.TransactionRepo
	leaderboard cache.LeaderboardCache
	broadcaster Broadcaster
	cfg         config.ReferralConfig
	log         *zap.Logger
	now         func() time.Time
}

// NewReferralService creates a new referral service
func NewReferralService(
	profiles *ProfileService,
	repo repository.ProfileRepo,
	ledger repository.TransactionRepo,
	leaderboard cache.LeaderboardCache,
	b Broadcaster,
	cfg config.ReferralConfig,
	log *zap.Logger,
) *ReferralService {
	if b == nil {
		b = noopBroadcaster{}
	}
	return &ReferralService{
		profiles:    profiles,
		repo:        repo,
		ledger:      ledger,
		leaderboard: leaderboard,
		broadcaster: b,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// Summary returns the user's code, link, stats and referred users
func (s *ReferralService) Summary(ctx context.Context, session model.Session) (*model.ReferralSummary, error) {
	me, err := s.profiles.Get(ctx, session)
	if err != nil {
		return nil, err
	}
	referred, err := s.repo.GetByReferrer(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	txs, err := s.ledger.GetByUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	summary := &model.ReferralSummary{
		Code:           me.ReferralCode,
		Link:           strings.TrimRight(s.cfg.BaseURL, "/") + "/" + me.ReferralCode,
		CommissionRate: s.cfg.CommissionRate,
		Referrals:      make([]model.Referral, 0, len(referred)),
	}

	earnedFrom := make(map[string]float64)
	for _, tx := range txs {
		if tx.Type == model.TxReferral && tx.Status == model.TxCompleted {
			earnedFrom[tx.SourceID] += tx.Amount
			summary.Stats.TotalEarned += tx.Amount
		}
	}

	for _, p := range referred {
		ref, pending, err := s.referralOf(ctx, p)
		if err != nil {
			return nil, err
		}
		ref.Earned = roundCents(earnedFrom[p.UserID])
		if ref.Status == ReferralActive {
			summary.Stats.ActiveReferrals++
		}
		summary.Stats.PendingEarnings += pending
		summary.Referrals = append(summary.Referrals, ref)
	}
	summary.Stats.TotalReferrals = len(referred)
	summary.Stats.TotalEarned = roundCents(summary.Stats.TotalEarned)
	summary.Stats.PendingEarnings = roundCents(summary.Stats.PendingEarnings)
	return summary, nil
}

// referralOf builds the row for one referred user and the commission their
// pending earnings would pay once approved
func (s *ReferralService) referralOf(ctx context.Context, p *model.Profile) (model.Referral, float64, error) {
	ref := model.Referral{
		Email:    maskEmail(p.Email),
		JoinedAt: p.CreatedAt,
		Status:   ReferralPending,
	}
	if p.ReferredAt != nil {
		ref.JoinedAt = *p.ReferredAt
	}

	txs, err := s.ledger.GetByUser(ctx, p.UserID)
	if err != nil {
		return ref, 0, fmt.Errorf("failed to load referral transactions: %w", err)
	}
	pending := 0.0
	for _, tx := range txs {
		if tx.Type != model.TxEarning || tx.Status == model.TxFailed {
			continue
		}
		ref.Status = ReferralActive
		if tx.Status == model.TxPending && s.inWindow(p, tx.CreatedAt) {
			pending += tx.Amount * s.cfg.CommissionRate
		}
	}
	return ref, pending, nil
}

// Claim links the session user to the owner of code. A user can be referred
// once, only while their account is new.
func (s *ReferralService) Claim(ctx context.Context, session model.Session, code string) (*model.Profile, error) {
	me, err := s.profiles.Get(ctx, session)
	if err != nil {
		return nil, err
	}
	if me.ReferredBy != "" {
		return nil, ErrAlreadyReferred
	}
	now := s.now()
	if now.Sub(me.CreatedAt) > s.cfg.Window {
		return nil, ErrReferralClosed
	}

	referrer, err := s.repo.GetByReferralCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code: %w", err)
	}
	if referrer == nil {
		return nil, ErrReferralCodeNotFound
	}
	if referrer.UserID == session.UserID {
		return nil, ErrSelfReferral
	}

	ok, err := s.repo.SetReferrer(ctx, session.UserID, referrer.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record referral: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyReferred
	}

	s.log.Info("referral claimed",
		zap.String("user_id", session.UserID),
		zap.String("referrer_id", referrer.UserID),
	)
	me.ReferredBy = referrer.UserID
	me.ReferredAt = &now
	return me, nil
}

// CreditCommission pays the referrer of earning.UserID their share of an
// approved earning made inside the referral window. It is keyed by the
// earning id and safe to repeat.
func (s *ReferralService) CreditCommission(ctx context.Context, earning *model.Transaction) error {
	p, err := s.repo.Get(ctx, earning.UserID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}
	if p == nil || p.ReferredBy == "" || !s.inWindow(p, earning.CreatedAt) {
		return nil
	}
	amount := roundCents(earning.Amount * s.cfg.CommissionRate)
	if amount <= 0 {
		return nil
	}

	tx := &model.Transaction{
		ID:          CommissionID(earning.ID),
		UserID:      p.ReferredBy,
		Type:        model.TxReferral,
		Amount:      amount,
		Status:      model.TxCompleted,
		Description: "Referral Commission",
		SourceID:    earning.UserID,
		CreatedAt:   s.now(),
	}
	err = s.ledger.Create(ctx, tx)
	duplicate := errors.Is(err, repository.ErrDuplicate)
	if err != nil && !duplicate {
		return fmt.Errorf("failed to record commission: %w", err)
	}
	if _, err := s.leaderboard.AddEarning(ctx, tx.ID, tx.UserID, amount); err != nil {
		return fmt.Errorf("failed to update leaderboard: %w", err)
	}
	if duplicate {
		return nil
	}

	s.log.Info("referral commission credited",
		zap.String("referrer_id", tx.UserID),
		zap.String("earning_id", earning.ID),
		zap.Float64("amount", amount),
	)
	s.broadcaster.BroadcastToUser(tx.UserID, EventWalletUpdated, map[string]interface{}{
		"transaction": tx,
	})
	return nil
}

func (s *ReferralService) inWindow(p *model.Profile, at time.Time) bool {
	if p.ReferredAt == nil || at.Before(*p.ReferredAt) {
		return false
	}
	return at.Sub(*p.ReferredAt) <= s.cfg.Window
}

// maskEmail keeps the first two characters of the local part
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	if len(local) > 2 {
		local = local[:2]
	} else {
		local = local[:1]
	}
	return local + "***" + email[at:]
}
