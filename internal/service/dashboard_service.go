package service

import (
	"context"
	"fmt"

	"earnflow/internal/cache"
	"earnflow/internal/model"
	"earnflow/internal/repository"
)

const recentEarningsLimit = 5

// DashboardService aggregates the overview numbers shown after sign-in
type DashboardService struct {
	ledger      repository.TransactionRepo
	catalog     repository.OpportunityRepo
	completions cache.CompletionCache
	leaderboard cache.LeaderboardCache
}

func NewDashboardService(
	ledger repository.TransactionRepo,
	catalog repository.OpportunityRepo,
	completions cache.CompletionCache,
	leaderboard cache.LeaderboardCache,
) *DashboardService {
	return &DashboardService{
		ledger:      ledger,
		catalog:     catalog,
		completions: completions,
		leaderboard: leaderboard,
	}
}

func (s *DashboardService) Stats(ctx context.Context, userID string) (*model.DashboardStats, error) {
	txs, err := s.ledger.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	stats := &model.DashboardStats{RecentEarnings: make([]model.Transaction, 0, recentEarningsLimit)}
	for _, tx := range txs {
		if tx.Type == model.TxWithdrawal {
			continue
		}
		switch tx.Status {
		case model.TxCompleted:
			stats.TotalEarned += tx.Amount
		case model.TxPending:
			stats.PendingPayout += tx.Amount
		}
		// ledger is newest first
		if tx.Type == model.TxEarning && len(stats.RecentEarnings) < recentEarningsLimit {
			stats.RecentEarnings = append(stats.RecentEarnings, *tx)
		}
	}
	stats.TotalEarned = roundCents(stats.TotalEarned)
	stats.PendingPayout = roundCents(stats.PendingPayout)

	completed, err := s.completions.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}
	total, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog: %w", err)
	}

	stats.CompletedCount = completed
	stats.AvailableCount = total - completed
	if stats.AvailableCount < 0 {
		stats.AvailableCount = 0
	}
	return stats, nil
}

// Leaderboard returns the top earners
func (s *DashboardService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	entries, err := s.leaderboard.GetTop(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return entries, nil
}

// Rank returns the user's 1-based leaderboard position, or -1 when unranked
func (s *DashboardService) Rank(ctx context.Context, userID string) (int64, error) {
	return s.leaderboard.GetRank(ctx, userID)
}
