// =================================
// File: internal/segment/segment.go
// =================================

// Package segment converts irregular timestamped snapshots into contiguous
// half-open time segments and redistributes segment values across a second,
// independently sampled partition of the same window.
package segment

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/raymath"
)

var (
	// ErrNonMonotonicHistory reports a snapshot sequence that moves backwards
	// in time.
	ErrNonMonotonicHistory = errors.New("snapshot timestamps move backwards")

	// ErrTooFewSnapshots reports a history without both window boundaries.
	ErrTooFewSnapshots = errors.New("need at least two snapshots")
)

// Timestamped is implemented by every snapshot type fed to Build.
type Timestamped interface {
	Time() int64
}

// Segment is a half-open interval [Start, End) carrying a derived value.
// Values are never mutated after construction.
type Segment struct {
	Start int64
	End   int64
	Value *big.Int
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() int64 {
	return s.End - s.Start
}

// Build turns n ordered snapshots into n-1 contiguous segments. Segment i
// spans [snaps[i].Time(), snaps[i+1].Time()) and its value comes from the
// supplied transform of the bounding snapshot pair. The snapshot list must
// already include the synthetic boundary snapshots for the overall window, so
// the produced segments jointly cover it with no gaps or overlaps.
//
// Adjacent snapshots with equal timestamps are legal (an event coinciding
// with a window boundary) and produce a zero-duration segment; Allocate
// weights those as zero. Timestamps that decrease are a malformed history.
func Build[S Timestamped](snaps []S, value func(prev, next S) *big.Int) ([]Segment, error) {
	if len(snaps) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSnapshots, len(snaps))
	}
	segs := make([]Segment, 0, len(snaps)-1)
	for i := 0; i+1 < len(snaps); i++ {
		prev, next := snaps[i], snaps[i+1]
		if next.Time() < prev.Time() {
			return nil, fmt.Errorf("%w: %d after %d at position %d",
				ErrNonMonotonicHistory, next.Time(), prev.Time(), i+1)
		}
		segs = append(segs, Segment{
			Start: prev.Time(),
			End:   next.Time(),
			Value: value(prev, next),
		})
	}
	return segs, nil
}

// Allocate distributes the value of source across targets in proportion to
// overlap duration, returning one amount per target (zero where there is no
// overlap). Sources with non-positive value or zero duration contribute
// nothing: a balance decrease is not earnings, and a zero-duration source
// would otherwise divide by zero.
//
// Amounts are computed as differences of the running total
// F(x) = value * (x - source.Start) / duration at the clamped target bounds.
// F is monotone and F(source.End) lands on value exactly, so for any
// non-overlapping target sequence the allocations sum to at most value, with
// equality when the targets fully cover the source span. Conservation holds
// by construction, without clamping.
func Allocate(source Segment, targets []Segment) []*big.Int {
	out := make([]*big.Int, len(targets))
	for i := range out {
		out[i] = new(big.Int)
	}
	if source.Value == nil || source.Value.Sign() <= 0 || source.Duration() <= 0 {
		return out
	}
	dur := big.NewInt(source.Duration())
	for i, t := range targets {
		lo := max(source.Start, t.Start)
		hi := min(source.End, t.End)
		if hi <= lo {
			continue
		}
		out[i] = runningTotal(source.Value, hi-source.Start, dur)
		out[i].Sub(out[i], runningTotal(source.Value, lo-source.Start, dur))
	}
	return out
}

// runningTotal returns round(value * elapsed / dur) via the ray ratio.
func runningTotal(value *big.Int, elapsed int64, dur *big.Int) *big.Int {
	frac := raymath.Div(big.NewInt(elapsed), dur)
	return raymath.Mul(value, frac)
}
