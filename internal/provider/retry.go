// =================================
// File: internal/provider/retry.go
// =================================
package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/revenue"
)

const (
	defaultMaxTries     = 3
	defaultInitialDelay = 500 * time.Millisecond
)

// Retrying wraps a ChainData with exponential-backoff retries. The engine
// never retries; transient RPC failures are the fetching layer's problem,
// and rerunning a fetch is safe because the downstream computation is pure.
type Retrying struct {
	inner        ChainData
	logger       *zap.Logger
	maxTries     uint
	initialDelay time.Duration
}

// WithRetries wraps inner; maxTries <= 0 falls back to the default.
func WithRetries(inner ChainData, logger *zap.Logger, maxTries int) *Retrying {
	tries := uint(defaultMaxTries)
	if maxTries > 0 {
		tries = uint(maxTries)
	}
	return &Retrying{
		inner:        inner,
		logger:       logger,
		maxTries:     tries,
		initialDelay: defaultInitialDelay,
	}
}

func (p *Retrying) ChainID() string { return p.inner.ChainID() }

func (p *Retrying) ReserveContexts(ctx context.Context, user string, w revenue.Window) ([]revenue.ReserveContext, error) {
	return retry(ctx, p, "reserve_contexts", func() ([]revenue.ReserveContext, error) {
		return p.inner.ReserveContexts(ctx, user, w)
	})
}

func (p *Retrying) PricesUSD(ctx context.Context, tokens []string) (map[string]decimal.Decimal, error) {
	return retry(ctx, p, "prices_usd", func() (map[string]decimal.Decimal, error) {
		return p.inner.PricesUSD(ctx, tokens)
	})
}

func retry[T any](ctx context.Context, p *Retrying, op string, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.initialDelay

	notify := func(err error, d time.Duration) {
		if p.logger != nil {
			p.logger.Warn("Retrying chain data fetch",
				zap.String("chain", p.inner.ChainID()),
				zap.String("operation", op),
				zap.Duration("backoff", d),
				zap.Error(err))
		}
	}

	return backoff.Retry(ctx, fn,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(p.maxTries),
		backoff.WithNotify(notify))
}
