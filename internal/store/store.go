package store

import (
	"context"
	"errors"

	"insight-oracle-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrAccountNotFound      = errors.New("no reward account found")
	ErrReferralExists       = errors.New("referral already recorded")
	ErrUnknownReferralCode  = errors.New("unknown referral code")
)

// RewardStore defines the contract that every backend (SQLite, Bolt, ...) must
// satisfy. Amounts are decimal; points are integral. Implementations keep a
// secondary index from referral code to address so referrer lookups never scan.
type RewardStore interface {
	// --- Reward accounts ---
	GetOrCreateAccount(ctx context.Context, address string) (*models.RewardAccount, error)
	GetAccountByCode(ctx context.Context, code string) (*models.RewardAccount, error)
	CreditPoints(ctx context.Context, address string, points int64) (*models.RewardAccount, error)
	CreditReferrer(ctx context.Context, code string, cashback decimal.Decimal) (*models.RewardAccount, error)
	ResetAccount(ctx context.Context, address string) error

	// --- Referral links ---
	RecordReferral(ctx context.Context, referredAddress, code string) error
	ReferredBy(ctx context.Context, referredAddress string) (string, error)

	// --- Insight history ---
	AppendInsight(ctx context.Context, insight models.Insight) error
	ListInsights(ctx context.Context, address string, limit, offset int) ([]models.Insight, error)
	ClearInsights(ctx context.Context, address string) error

	// --- Lifecycle ---
	Close()
}
