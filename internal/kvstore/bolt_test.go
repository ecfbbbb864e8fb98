package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupBoltStore(t *testing.T) (*Service, func()) {
	path := filepath.Join(t.TempDir(), "rewards.db")
	service, err := NewService(path)
	if err != nil {
		t.Fatalf("Failed to open bolt store: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func TestBolt_GetOrCreateAccount(t *testing.T) {
	service, cleanup := setupBoltStore(t)
	defer cleanup()

	ctx := context.Background()
	address := "0xabc123def4567890"

	account, err := service.GetOrCreateAccount(ctx, address)
	if err != nil {
		t.Fatalf("GetOrCreateAccount failed: %v", err)
	}
	if account.ReferralCode != "ABC123" {
		t.Errorf("Expected referral code ABC123, got %s", account.ReferralCode)
	}
	if account.Tier != models.TierBronze {
		t.Errorf("Expected bronze tier, got %s", account.Tier)
	}

	byCode, err := service.GetAccountByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetAccountByCode failed: %v", err)
	}
	if byCode.Address != address {
		t.Errorf("Expected code index to resolve %s, got %s", address, byCode.Address)
	}
}

func TestBolt_CreditPointsAndTier(t *testing.T) {
	service, cleanup := setupBoltStore(t)
	defer cleanup()

	ctx := context.Background()
	address := "0x1111111111111111"

	account, err := service.CreditPoints(ctx, address, 2000)
	if err != nil {
		t.Fatalf("CreditPoints failed: %v", err)
	}
	if account.Tier != models.TierGold {
		t.Errorf("Expected gold at 2000 points, got %s", account.Tier)
	}
}

func TestBolt_CreditReferrer(t *testing.T) {
	service, cleanup := setupBoltStore(t)
	defer cleanup()

	ctx := context.Background()
	referrer, err := service.GetOrCreateAccount(ctx, "0xaaa111bbb2223333")
	if err != nil {
		t.Fatalf("GetOrCreateAccount failed: %v", err)
	}

	cashback := decimal.RequireFromString("0.01")
	updated, err := service.CreditReferrer(ctx, referrer.ReferralCode, cashback)
	if err != nil {
		t.Fatalf("CreditReferrer failed: %v", err)
	}
	if updated.ReferralCount != 1 || !updated.TotalEarned.Equal(cashback) {
		t.Errorf("Expected count 1 and earned %s, got count %d earned %s",
			cashback.String(), updated.ReferralCount, updated.TotalEarned.String())
	}

	if _, err := service.CreditReferrer(ctx, "NOPE00", cashback); !errors.Is(err, store.ErrUnknownReferralCode) {
		t.Errorf("Expected ErrUnknownReferralCode, got %v", err)
	}
}

func TestBolt_ReferralFirstSeenWins(t *testing.T) {
	service, cleanup := setupBoltStore(t)
	defer cleanup()

	ctx := context.Background()
	referred := "0x9999999999999999"

	if err := service.RecordReferral(ctx, referred, "ABC123"); err != nil {
		t.Fatalf("First RecordReferral failed: %v", err)
	}
	if err := service.RecordReferral(ctx, referred, "DEF456"); !errors.Is(err, store.ErrReferralExists) {
		t.Errorf("Expected ErrReferralExists, got %v", err)
	}

	code, err := service.ReferredBy(ctx, referred)
	if err != nil {
		t.Fatalf("ReferredBy failed: %v", err)
	}
	if code != "ABC123" {
		t.Errorf("Expected first code to win, got %s", code)
	}
}

func TestBolt_InsightHistory(t *testing.T) {
	service, cleanup := setupBoltStore(t)
	defer cleanup()

	ctx := context.Background()
	address := "0xabc123def4567890"

	for i := 0; i < 3; i++ {
		insight := models.Insight{
			Id:            fmt.Sprintf("i%d", i),
			Address:       address,
			Query:         "q",
			Category:      models.CategoryGeneral,
			Model:         "gemini-2.5-flash",
			Answer:        "a",
			Cost:          decimal.RequireFromString("0.05"),
			TransactionId: fmt.Sprintf("0xtx%d", i),
			CreatedAt:     time.Now().UTC(),
		}
		if err := service.AppendInsight(ctx, insight); err != nil {
			t.Fatalf("AppendInsight %d failed: %v", i, err)
		}
	}

	// Duplicate transaction id must be rejected.
	dup := models.Insight{Id: "dup", Address: address, Cost: decimal.Zero, TransactionId: "0xtx0"}
	if err := service.AppendInsight(ctx, dup); !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Errorf("Expected ErrDuplicateTransaction, got %v", err)
	}

	insights, err := service.ListInsights(ctx, address, 10, 0)
	if err != nil {
		t.Fatalf("ListInsights failed: %v", err)
	}
	if len(insights) != 3 {
		t.Fatalf("Expected 3 insights, got %d", len(insights))
	}
	if insights[0].Id != "i2" || insights[2].Id != "i0" {
		t.Errorf("Expected most-recent-first ordering, got %s first and %s last",
			insights[0].Id, insights[2].Id)
	}

	if err := service.ClearInsights(ctx, address); err != nil {
		t.Fatalf("ClearInsights failed: %v", err)
	}
	insights, err = service.ListInsights(ctx, address, 10, 0)
	if err != nil {
		t.Fatalf("ListInsights after clear failed: %v", err)
	}
	if len(insights) != 0 {
		t.Errorf("Expected empty history after clear, got %d", len(insights))
	}
}
