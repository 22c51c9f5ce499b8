package model

import "time"

type TransactionType string

const (
	TxEarning    TransactionType = "earning"
	TxWithdrawal TransactionType = "withdrawal"
	TxReferral   TransactionType = "referral"
)

type TransactionStatus string

const (
	TxPending    TransactionStatus = "pending"
	TxProcessing TransactionStatus = "processing"
	TxCompleted  TransactionStatus = "completed"
	TxFailed     TransactionStatus = "failed"
)

// WithdrawalMethod is a payout channel
type WithdrawalMethod string

const (
	MethodPayPal WithdrawalMethod = "paypal"
	MethodBank   WithdrawalMethod = "bank"
	MethodCrypto WithdrawalMethod = "crypto"
)

// MinWithdrawal is the smallest amount a user can withdraw, in USD
const MinWithdrawal = 10.0

// Transaction is a wallet ledger entry. Withdrawals carry a negative amount.
type Transaction struct {
	ID          string            `json:"id" bson:"_id"`
	UserID      string            `json:"userId" bson:"userId"`
	Type        TransactionType   `json:"type" bson:"type"`
	Amount      float64           `json:"amount" bson:"amount"`
	Status      TransactionStatus `json:"status" bson:"status"`
	Description string            `json:"description" bson:"description"`
	SourceID    string            `json:"sourceId,omitempty" bson:"sourceId,omitempty"` // submission, or the referred user for commissions
	Method      WithdrawalMethod  `json:"method,omitempty" bson:"method,omitempty"`
	Details     string            `json:"-" bson:"details,omitempty"`
	CreatedAt   time.Time         `json:"createdAt" bson:"createdAt"`
}

// WithdrawalRequest is the body of a withdrawal call
type WithdrawalRequest struct {
	Amount  float64          `json:"amount"`
	Method  WithdrawalMethod `json:"method"`
	Details string           `json:"details"`
}

// WalletSummary is the wallet view for a user
type WalletSummary struct {
	Balance        float64       `json:"balance"`
	PendingBalance float64       `json:"pendingBalance"`
	Transactions   []Transaction `json:"transactions"`
}

// DashboardStats is the dashboard overview for a user
type DashboardStats struct {
	TotalEarned    float64       `json:"totalEarned"`
	PendingPayout  float64       `json:"pendingPayout"`
	CompletedCount int64         `json:"completedCount"`
	AvailableCount int64         `json:"availableCount"`
	RecentEarnings []Transaction `json:"recentEarnings"`
}

// LeaderboardEntry is one row of the earnings leaderboard
type LeaderboardEntry struct {
	UserID string  `json:"userId"`
	Total  float64 `json:"total"`
	Rank   int     `json:"rank"`
}
