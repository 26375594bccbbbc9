package cache

import (
	"context"
	"time"

	"savdo/backend/internal/domain"
)

// RateCache stores exchange-rate snapshots so new drafts do not hit the
// database per request.
type RateCache interface {
	Get(ctx context.Context, currency string) (*domain.CurrencyRate, bool, error)
	Set(ctx context.Context, currency string, rate *domain.CurrencyRate, ttl time.Duration) error
}

type NoopRateCache struct{}

func (NoopRateCache) Get(_ context.Context, _ string) (*domain.CurrencyRate, bool, error) {
	return nil, false, nil
}

func (NoopRateCache) Set(_ context.Context, _ string, _ *domain.CurrencyRate, _ time.Duration) error {
	return nil
}
