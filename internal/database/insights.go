package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"insight-oracle-go/internal/models"
	"insight-oracle-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AppendInsight records a delivered insight. Appends are deduplicated on the
// paying transaction id so a replayed confirmation can never double-record.
func (s *Service) AppendInsight(ctx context.Context, insight models.Insight) error {
	var existingId string
	err := s.db.QueryRowContext(ctx, queryCheckDuplicateInsight, insight.TransactionId).Scan(&existingId)
	if err == nil {
		zap.L().Warn("Duplicate insight transaction id detected, skipping",
			zap.String("transaction_id", insight.TransactionId),
			zap.String("existing_insight_id", existingId))
		return fmt.Errorf("%w: transaction_id %s already recorded", store.ErrDuplicateTransaction, insight.TransactionId)
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for duplicate insight: %w", err)
	}

	createdAt := insight.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, queryInsertInsight,
		insight.Id, insight.Address, insight.Query, string(insight.Category),
		insight.Model, insight.Answer, insight.Cost.String(), insight.TransactionId, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}

	zap.L().Info("Insight recorded",
		zap.String("insight_id", insight.Id),
		zap.String("address", insight.Address),
		zap.String("transaction_id", insight.TransactionId),
		zap.String("cost", insight.Cost.String()))
	return nil
}

// ListInsights returns paginated history for an address, most recent first.
func (s *Service) ListInsights(ctx context.Context, address string, limit, offset int) ([]models.Insight, error) {
	rows, err := s.db.QueryContext(ctx, queryListInsights, address, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var insights []models.Insight
	for rows.Next() {
		var insight models.Insight
		var categoryStr, costStr string
		err := rows.Scan(&insight.Id, &insight.Address, &insight.Query, &categoryStr,
			&insight.Model, &insight.Answer, &costStr, &insight.TransactionId, &insight.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}

		insight.Category = models.Category(categoryStr)
		insight.Cost, err = decimal.NewFromString(costStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cost '%s': %w", costStr, err)
		}

		insights = append(insights, insight)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insight rows: %w", err)
	}

	return insights, nil
}

// ClearInsights deletes all history for an address. User-initiated only.
func (s *Service) ClearInsights(ctx context.Context, address string) error {
	result, err := s.db.ExecContext(ctx, queryClearInsights, address)
	if err != nil {
		return fmt.Errorf("failed to clear insights: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	zap.L().Info("Insight history cleared",
		zap.String("address", address),
		zap.Int64("deleted", deleted))
	return nil
}
