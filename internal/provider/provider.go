// =================================
// File: internal/provider/provider.go
// =================================

// Package provider defines the data-fetching collaborator the revenue engine
// consumes. The engine itself never touches a chain: concrete providers hand
// it fully materialized reserve contexts and prices, and the caller owns the
// provider instances (no package-level singletons, so tests swap in fakes).
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/revenue"
)

// ChainData supplies everything the engine needs for one chain over one
// window: the user's reserve contexts and end-of-window USD prices keyed by
// reserve token id.
type ChainData interface {
	ChainID() string
	ReserveContexts(ctx context.Context, user string, w revenue.Window) ([]revenue.ReserveContext, error)
	PricesUSD(ctx context.Context, tokens []string) (map[string]decimal.Decimal, error)
}

// Factory builds a ChainData for its chain.
type Factory func(logger *zap.Logger) (ChainData, error)

// Registry maps chain ids to provider factories. Lookup is case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs a factory for a chain, replacing any previous one.
func (r *Registry) Register(chainID string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[revenue.NormalizeTokenID(chainID)] = f
}

// New builds the provider for a chain.
// Returns an error if no factory is registered.
func (r *Registry) New(chainID string, logger *zap.Logger) (ChainData, error) {
	r.mu.RLock()
	f, ok := r.factories[revenue.NormalizeTokenID(chainID)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no provider registered for chain: %s", chainID)
	}
	return f(logger)
}

// Chains returns the registered chain ids.
func (r *Registry) Chains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for id := range r.factories {
		out = append(out, id)
	}
	return out
}

// Collect fetches chain inputs for the user from every provider, up to
// maxParallel chains at a time. The engine downstream is pure, so the
// concurrency bound lives here with the I/O.
func Collect(ctx context.Context, providers []ChainData, user string, w revenue.Window, maxParallel int) ([]revenue.ChainInput, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if maxParallel < 1 {
		maxParallel = 1
	}

	inputs := make([]revenue.ChainInput, len(providers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, p := range providers {
		g.Go(func() error {
			reserves, err := p.ReserveContexts(ctx, user, w)
			if err != nil {
				return fmt.Errorf("chain %s: reserve contexts: %w", p.ChainID(), err)
			}
			tokens := make([]string, 0, len(reserves))
			for _, rc := range reserves {
				tokens = append(tokens, rc.ReserveToken)
			}
			prices, err := p.PricesUSD(ctx, tokens)
			if err != nil {
				return fmt.Errorf("chain %s: prices: %w", p.ChainID(), err)
			}
			inputs[i] = revenue.ChainInput{
				ChainID:   p.ChainID(),
				Reserves:  reserves,
				PricesUSD: prices,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}
