// =================================
// File: internal/revenue/types.go
// =================================

// Package revenue attributes protocol-level lending revenue to a single
// user's interest-bearing position over a fixed time window. All inputs are
// already fetched; nothing in this package performs I/O.
package revenue

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/segment"
)

var (
	// ErrInvalidWindow reports a window whose start does not precede its end.
	ErrInvalidWindow = errors.New("window start must precede its end")

	// ErrNonMonotonicHistory reports event history that is not strictly
	// increasing in time. Re-exported so callers match one sentinel whether
	// the violation is caught at the model boundary or inside the builder.
	ErrNonMonotonicHistory = segment.ErrNonMonotonicHistory

	// ErrInvalidFeeRate reports a fee rate outside [0, 10000) basis points.
	// A 100% reserve factor leaves depositors no earnings to attribute and
	// makes the feeRate/(1-feeRate) ratio undefined.
	ErrInvalidFeeRate = errors.New("fee rate must be in [0, 10000) basis points")
)

// MissingPriceError reports a reserve with positive computed revenue but no
// supplied USD price. Silently treating the reserve as worthless would
// understate the KPI, so this surfaces as a hard error.
type MissingPriceError struct {
	ChainID string
	Token   string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no USD price for reserve token %s on chain %s", e.Token, e.ChainID)
}

// Window is the closed-open attribution period [Start, End) in unix seconds.
type Window struct {
	Start int64
	End   int64
}

func (w Window) Validate() error {
	if w.Start >= w.End {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

func (w Window) Duration() int64 {
	return w.End - w.Start
}

// NormalizeTokenID canonicalizes a token or chain identifier for map lookups.
// Applied once at the data-model boundary so snapshot maps keyed by token
// identity never miss on letter case.
func NormalizeTokenID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// BalanceEvent is a scaled-balance change strictly inside the window. The
// scaled balance is the post-event balance in raw token units before index
// scaling; the liquidity index is the ray-scaled accrual factor observed at
// the event.
type BalanceEvent struct {
	Timestamp      int64
	ScaledBalance  *big.Int
	LiquidityIndex *big.Int
}

func (e BalanceEvent) Time() int64 { return e.Timestamp }

// FeeRateEvent is a reserve-factor change strictly inside the window, in
// basis points.
type FeeRateEvent struct {
	Timestamp  int64
	FeeRateBps uint32
}

func (e FeeRateEvent) Time() int64 { return e.Timestamp }

// ReserveContext bundles everything the estimator needs for one reserve
// asset: identity, boundary state and in-window history. Instances are
// constructed fresh per invocation and never mutated.
type ReserveContext struct {
	ReserveToken string
	Decimals     uint8
	YieldToken   string

	IndexAtStart *big.Int // ray
	IndexAtEnd   *big.Int // ray

	FeeRateBpsAtStart uint32
	FeeRateEvents     []FeeRateEvent

	ScaledAtStart *big.Int
	BalanceEvents []BalanceEvent
}

// Normalized returns a copy with canonicalized token identifiers.
func (rc ReserveContext) Normalized() ReserveContext {
	rc.ReserveToken = NormalizeTokenID(rc.ReserveToken)
	rc.YieldToken = NormalizeTokenID(rc.YieldToken)
	return rc
}

// validate checks the data contract before any math runs: a valid window,
// fee rates below 100%, and event histories strictly increasing and strictly
// inside the window.
func (rc ReserveContext) validate(w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if rc.FeeRateBpsAtStart >= 10_000 {
		return fmt.Errorf("%w: got %d at window start", ErrInvalidFeeRate, rc.FeeRateBpsAtStart)
	}
	prev := w.Start
	for i, ev := range rc.FeeRateEvents {
		if ev.FeeRateBps >= 10_000 {
			return fmt.Errorf("%w: got %d at %d", ErrInvalidFeeRate, ev.FeeRateBps, ev.Timestamp)
		}
		if ev.Timestamp <= prev || ev.Timestamp >= w.End {
			return fmt.Errorf("%w: fee rate event %d at %d outside (%d, %d)",
				ErrNonMonotonicHistory, i, ev.Timestamp, prev, w.End)
		}
		prev = ev.Timestamp
	}
	prev = w.Start
	for i, ev := range rc.BalanceEvents {
		if ev.Timestamp <= prev || ev.Timestamp >= w.End {
			return fmt.Errorf("%w: balance event %d at %d outside (%d, %d)",
				ErrNonMonotonicHistory, i, ev.Timestamp, prev, w.End)
		}
		if ev.ScaledBalance == nil || ev.LiquidityIndex == nil {
			return fmt.Errorf("balance event %d at %d is missing balance or index", i, ev.Timestamp)
		}
		prev = ev.Timestamp
	}
	if rc.IndexAtStart == nil || rc.IndexAtEnd == nil || rc.ScaledAtStart == nil {
		return errors.New("reserve context is missing boundary state")
	}
	return nil
}

// Revenue is the protocol's share of the user's earnings for one reserve, in
// the reserve token's native raw units.
type Revenue struct {
	ReserveToken string
	Decimals     uint8
	Raw          *big.Int
}
