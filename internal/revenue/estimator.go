// =================================
// File: internal/revenue/estimator.go
// =================================
package revenue

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/raymath"
	"github.com/divvi-xyz/divvi-protocol-sub001/internal/segment"
)

// balanceSnapshot is the unified view the segment builder walks: the window
// boundaries plus every in-window balance event.
type balanceSnapshot struct {
	ts     int64
	scaled *big.Int
	index  *big.Int
}

func (s balanceSnapshot) Time() int64 { return s.ts }

// feeSnapshot marks the reserve factor holding from ts onward.
type feeSnapshot struct {
	ts      int64
	rateBps uint32
}

func (s feeSnapshot) Time() int64 { return s.ts }

// Estimator turns one reserve's balance and fee-rate history into the
// protocol's raw revenue share for the window.
type Estimator struct {
	logger *zap.Logger
}

func NewEstimator(logger *zap.Logger) *Estimator {
	return &Estimator{logger: logger}
}

// Estimate computes the protocol's share of the user's earnings on one
// reserve over the window.
//
// The balance history becomes earnings segments: between two adjacent
// snapshots the user holds the earlier snapshot's scaled balance, and its
// earnings over the span are that balance valued at the later index minus
// the same balance valued at the earlier index. The fee history becomes
// rate segments, each holding the earlier snapshot's rate. Every earnings
// segment is then spread across the rate partition by overlap duration, and
// each rate segment's share converts to protocol revenue through
// rate/(1-rate). A zero rate zeroes its term arithmetically; no rate is
// special-cased.
func (e *Estimator) Estimate(w Window, rc ReserveContext) (Revenue, error) {
	rc = rc.Normalized()
	if err := rc.validate(w); err != nil {
		return Revenue{}, fmt.Errorf("reserve %s: %w", rc.ReserveToken, err)
	}

	earnSegs, err := e.earningsSegments(w, rc)
	if err != nil {
		return Revenue{}, fmt.Errorf("reserve %s: earnings history: %w", rc.ReserveToken, err)
	}
	feeSegs, err := e.feeSegments(w, rc)
	if err != nil {
		return Revenue{}, fmt.Errorf("reserve %s: fee rate history: %w", rc.ReserveToken, err)
	}

	// Earnings attributable to each fee-rate span.
	perFee := make([]*big.Int, len(feeSegs))
	for i := range perFee {
		perFee[i] = new(big.Int)
	}
	for _, s := range earnSegs {
		for i, amount := range segment.Allocate(s, feeSegs) {
			perFee[i].Add(perFee[i], amount)
		}
	}

	total := new(big.Int)
	for i, f := range feeSegs {
		// protocolShare = earnings * rate / (1 - rate)
		complement := new(big.Int).Sub(raymath.Ray, f.Value)
		ratio := raymath.Div(f.Value, complement)
		total.Add(total, raymath.Mul(perFee[i], ratio))
	}

	if e.logger != nil {
		e.logger.Debug("Estimated reserve revenue",
			zap.String("reserve_token", rc.ReserveToken),
			zap.Int("earnings_segments", len(earnSegs)),
			zap.Int("fee_segments", len(feeSegs)),
			zap.String("raw_revenue", total.String()))
	}

	return Revenue{
		ReserveToken: rc.ReserveToken,
		Decimals:     rc.Decimals,
		Raw:          total,
	}, nil
}

// earningsSegments builds the user-earnings series: boundary snapshots from
// the window-edge state, interior snapshots from the balance events. The
// end boundary reuses the last known scaled balance; only its index and
// timestamp matter because segment values always read the earlier
// snapshot's balance.
func (e *Estimator) earningsSegments(w Window, rc ReserveContext) ([]segment.Segment, error) {
	snaps := make([]balanceSnapshot, 0, len(rc.BalanceEvents)+2)
	snaps = append(snaps, balanceSnapshot{ts: w.Start, scaled: rc.ScaledAtStart, index: rc.IndexAtStart})
	lastScaled := rc.ScaledAtStart
	for _, ev := range rc.BalanceEvents {
		snaps = append(snaps, balanceSnapshot{ts: ev.Timestamp, scaled: ev.ScaledBalance, index: ev.LiquidityIndex})
		lastScaled = ev.ScaledBalance
	}
	snaps = append(snaps, balanceSnapshot{ts: w.End, scaled: lastScaled, index: rc.IndexAtEnd})

	return segment.Build(snaps, func(prev, next balanceSnapshot) *big.Int {
		earned := raymath.Mul(prev.scaled, next.index)
		return earned.Sub(earned, raymath.Mul(prev.scaled, prev.index))
	})
}

// feeSegments builds the reserve-factor series as ray fractions. The rate
// holding over a span is the earlier snapshot's; the end boundary repeats
// the last rate so the partition closes the window.
func (e *Estimator) feeSegments(w Window, rc ReserveContext) ([]segment.Segment, error) {
	snaps := make([]feeSnapshot, 0, len(rc.FeeRateEvents)+2)
	snaps = append(snaps, feeSnapshot{ts: w.Start, rateBps: rc.FeeRateBpsAtStart})
	lastRate := rc.FeeRateBpsAtStart
	for _, ev := range rc.FeeRateEvents {
		snaps = append(snaps, feeSnapshot{ts: ev.Timestamp, rateBps: ev.FeeRateBps})
		lastRate = ev.FeeRateBps
	}
	snaps = append(snaps, feeSnapshot{ts: w.End, rateBps: lastRate})

	return segment.Build(snaps, func(prev, next feeSnapshot) *big.Int {
		return raymath.FromBasisPoints(prev.rateBps)
	})
}
