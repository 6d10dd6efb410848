// =================================
// File: internal/revenue/aggregator.go
// =================================
package revenue

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChainInput is everything one chain contributes to a user query: the
// reserve contexts observed at the end-of-period snapshot and the USD price
// per reserve token at the window-end block, keyed by normalized token id.
type ChainInput struct {
	ChainID   string
	Reserves  []ReserveContext
	PricesUSD map[string]decimal.Decimal
}

// ReserveRevenue is one row of the per-reserve diagnostic breakdown.
type ReserveRevenue struct {
	ChainID      string          `json:"chain_id"`
	ReserveToken string          `json:"reserve_token"`
	Decimals     uint8           `json:"decimals"`
	RawRevenue   string          `json:"raw_revenue"`
	Tokens       decimal.Decimal `json:"tokens"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	USD          decimal.Decimal `json:"usd"`
}

// Result is the KPI for one user over one window.
type Result struct {
	Window    Window           `json:"window"`
	TotalUSD  decimal.Decimal  `json:"total_usd"`
	Breakdown []ReserveRevenue `json:"breakdown"`
}

// Aggregator runs the estimator across every (chain, reserve) pair and folds
// the results into a single USD figure. Pure apart from logging; reserves
// have no data dependency on each other, so they evaluate in parallel up to
// the configured bound.
type Aggregator struct {
	estimator *Estimator
	logger    *zap.Logger
	workers   int
}

func NewAggregator(logger *zap.Logger, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		estimator: NewEstimator(logger),
		logger:    logger,
		workers:   workers,
	}
}

// Total computes total protocol revenue in USD for the user over the window,
// summing across every reserve of every supplied chain. Reserves with no
// positive revenue are omitted from the breakdown. A reserve with positive
// revenue but no USD price fails the query with MissingPriceError.
func (a *Aggregator) Total(ctx context.Context, w Window, chains []ChainInput) (*Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	var mu sync.Mutex
	var rows []ReserveRevenue

	for _, chain := range chains {
		chainID := NormalizeTokenID(chain.ChainID)
		prices := normalizePrices(chain.PricesUSD)
		for _, rc := range chain.Reserves {
			rc := rc.Normalized()
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				row, ok, err := a.reserveRow(w, chainID, rc, prices)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				mu.Lock()
				rows = append(rows, row)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic breakdown order regardless of scheduling.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ChainID != rows[j].ChainID {
			return rows[i].ChainID < rows[j].ChainID
		}
		return rows[i].ReserveToken < rows[j].ReserveToken
	})

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.USD)
	}

	if a.logger != nil {
		a.logger.Info("Aggregated protocol revenue",
			zap.Int64("window_start", w.Start),
			zap.Int64("window_end", w.End),
			zap.Int("reserves", len(rows)),
			zap.String("total_usd", total.String()))
	}

	return &Result{Window: w, TotalUSD: total, Breakdown: rows}, nil
}

// reserveRow estimates one reserve and prices it. ok is false when the
// reserve earned nothing and is omitted from the breakdown.
func (a *Aggregator) reserveRow(w Window, chainID string, rc ReserveContext, prices map[string]decimal.Decimal) (ReserveRevenue, bool, error) {
	rev, err := a.estimator.Estimate(w, rc)
	if err != nil {
		return ReserveRevenue{}, false, err
	}
	if rev.Raw.Sign() <= 0 {
		return ReserveRevenue{}, false, nil
	}
	price, ok := prices[rev.ReserveToken]
	if !ok {
		return ReserveRevenue{}, false, &MissingPriceError{ChainID: chainID, Token: rev.ReserveToken}
	}

	tokens := decimal.NewFromBigInt(rev.Raw, -int32(rev.Decimals))
	return ReserveRevenue{
		ChainID:      chainID,
		ReserveToken: rev.ReserveToken,
		Decimals:     rev.Decimals,
		RawRevenue:   rev.Raw.String(),
		Tokens:       tokens,
		PriceUSD:     price,
		USD:          tokens.Mul(price),
	}, true, nil
}

func normalizePrices(prices map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(prices))
	for token, price := range prices {
		out[NormalizeTokenID(token)] = price
	}
	return out
}
