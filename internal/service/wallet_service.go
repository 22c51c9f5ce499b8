package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"earnflow/internal/metrics"
	"earnflow/internal/model"
	"earnflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidAmount       = errors.New("invalid withdrawal amount")
	ErrInsufficientBalance = errors.New("withdrawal amount exceeds available balance")
	ErrBelowMinimum        = errors.New("amount is below the minimum withdrawal")
	ErrInvalidMethod       = errors.New("unsupported withdrawal method")
	ErrMissingDetails      = errors.New("payment details are required")
)

// WalletService computes balances from the transaction ledger and records withdrawals
type WalletService struct {
	ledger      repository.TransactionRepo
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time

	// serializes withdrawals per user so two requests cannot spend the same balance
	locks *userLocks
}

// NewWalletService creates a new wallet service
func NewWalletService(ledger repository.TransactionRepo, b Broadcaster, m *metrics.Metrics, log *zap.Logger) *WalletService {
	if b == nil {
		b = noopBroadcaster{}
	}
	return &WalletService{
		ledger:      ledger,
		broadcaster: b,
		metrics:     m,
		log:         log,
		now:         time.Now,
		locks:       newUserLocks(),
	}
}

// Summary returns the available balance, the pending balance and the
// transaction history. Withdrawals count against the balance as soon as
// they are requested.
func (s *WalletService) Summary(ctx context.Context, userID string) (*model.WalletSummary, error) {
	txs, err := s.ledger.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	summary := &model.WalletSummary{Transactions: make([]model.Transaction, 0, len(txs))}
	for _, tx := range txs {
		summary.Transactions = append(summary.Transactions, *tx)

		switch {
		case tx.Status == model.TxFailed:
		case tx.Type == model.TxWithdrawal:
			summary.Balance += tx.Amount
		case tx.Status == model.TxCompleted:
			summary.Balance += tx.Amount
		case tx.Status == model.TxPending:
			summary.PendingBalance += tx.Amount
		}
	}
	summary.Balance = roundCents(summary.Balance)
	summary.PendingBalance = roundCents(summary.PendingBalance)
	return summary, nil
}

// Withdraw validates and records a withdrawal request. No payment is sent;
// the entry stays in processing.
func (s *WalletService) Withdraw(ctx context.Context, userID string, req model.WithdrawalRequest) (*model.Transaction, error) {
	if math.IsNaN(req.Amount) || req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Amount < model.MinWithdrawal {
		return nil, fmt.Errorf("%w of $%.2f", ErrBelowMinimum, model.MinWithdrawal)
	}
	switch req.Method {
	case model.MethodPayPal, model.MethodBank, model.MethodCrypto:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMethod, req.Method)
	}
	if strings.TrimSpace(req.Details) == "" {
		return nil, ErrMissingDetails
	}

	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Amount > summary.Balance {
		return nil, ErrInsufficientBalance
	}

	amount := roundCents(req.Amount)
	tx := &model.Transaction{
		ID:          "wd_" + uuid.New().String(),
		UserID:      userID,
		Type:        model.TxWithdrawal,
		Amount:      -amount,
		Status:      model.TxProcessing,
		Description: withdrawalDescription(req.Method),
		Method:      req.Method,
		Details:     strings.TrimSpace(req.Details),
		CreatedAt:   s.now(),
	}
	if err := s.ledger.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}

	s.metrics.Withdrawal(string(req.Method))
	s.log.Info("withdrawal requested",
		zap.String("user_id", userID),
		zap.String("method", string(req.Method)),
		zap.Float64("amount", amount),
	)
	s.broadcaster.BroadcastToUser(userID, EventWalletUpdated, map[string]interface{}{
		"balance":     roundCents(summary.Balance - amount),
		"transaction": tx,
	})
	return tx, nil
}

func withdrawalDescription(m model.WithdrawalMethod) string {
	name := string(m)
	if name == "" {
		return "Withdrawal"
	}
	return strings.ToUpper(name[:1]) + name[1:] + " Withdrawal"
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
