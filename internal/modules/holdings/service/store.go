package service

import (
	"context"
	"tier_bot/internal/models"

	"github.com/pkg/errors"
)

var ErrHoldingNotFound = errors.New("holding not found")

// Store: долговременное состояние позиций.
// Каждая запись атомарна в пределах одной позиции.
type Store interface {
	Get(ctx context.Context, key models.HoldingKey) (*models.Holding, error)
	List(ctx context.Context, portfolioID int64) ([]*models.Holding, error)
	SetLastSellProfit(ctx context.Context, key models.HoldingKey, profit *float64) error
}

// Journal: журнал исполненных рекомендаций PARTIAL_SELL.
type Journal interface {
	Append(ctx context.Context, rec models.Recommendation) error
}
