package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReferralCodeForAddress derives the short referral code from a wallet address:
// the six hex characters after the 0x prefix, uppercased. Deterministic, so the
// same wallet always maps to the same code.
func ReferralCodeForAddress(address string) string {
	code := strings.TrimPrefix(address, "0x")
	if len(code) > 6 {
		code = code[:6]
	}
	return strings.ToUpper(code)
}

// Tier is a reward bracket derived from accumulated loyalty points.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tier thresholds in loyalty points.
const (
	SilverThreshold   = 500
	GoldThreshold     = 2000
	PlatinumThreshold = 5000
)

// TierForPoints maps loyalty points to a tier. Pure and monotonic; the stored
// tier is always recomputed from points, never carried forward stale.
func TierForPoints(points int64) Tier {
	switch {
	case points >= PlatinumThreshold:
		return TierPlatinum
	case points >= GoldThreshold:
		return TierGold
	case points >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// RewardAccount is the per-address reward record.
type RewardAccount struct {
	Address       string          `json:"address"`
	ReferralCode  string          `json:"referral_code"`
	ReferralCount int64           `json:"referral_count"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
	LoyaltyPoints int64           `json:"loyalty_points"`
	Tier          Tier            `json:"tier"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ReferralLink associates a referred address with the referrer's code.
// Recorded at most once per referred address (first seen wins).
type ReferralLink struct {
	ReferredAddress string    `json:"referred_address"`
	ReferralCode    string    `json:"referral_code"`
	CreatedAt       time.Time `json:"created_at"`
}
