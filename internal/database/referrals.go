package database

import (
	"context"
	"database/sql"
	"fmt"

	"insight-oracle-go/internal/store"

	"go.uber.org/zap"
)

// RecordReferral links a referred address to a referral code. First seen wins:
// if a link already exists for the address, the existing code is kept and
// ErrReferralExists is returned.
func (s *Service) RecordReferral(ctx context.Context, referredAddress, code string) error {
	result, err := s.db.ExecContext(ctx, queryInsertReferral, referredAddress, code)
	if err != nil {
		return fmt.Errorf("failed to record referral: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", store.ErrReferralExists, referredAddress)
	}

	zap.L().Info("Referral recorded",
		zap.String("referred_address", referredAddress),
		zap.String("referral_code", code))
	return nil
}

// ReferredBy returns the referral code recorded for an address, or an empty
// string when the address was never referred.
func (s *Service) ReferredBy(ctx context.Context, referredAddress string) (string, error) {
	var code string
	err := s.db.QueryRowContext(ctx, queryGetReferral, referredAddress).Scan(&code)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up referral: %w", err)
	}
	return code, nil
}
