package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/revenue"
)

func TestRegistryRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Optimism", func(*zap.Logger) (ChainData, error) {
		return NewStatic("optimism", "", nil, nil), nil
	})

	// Lookup is case-insensitive.
	p, err := reg.New("OPTIMISM", nil)
	require.NoError(t, err)
	assert.Equal(t, "optimism", p.ChainID())

	_, err = reg.New("base", nil)
	assert.Error(t, err)

	assert.Equal(t, []string{"optimism"}, reg.Chains())
}

func TestStaticFiltersByUser(t *testing.T) {
	reserves := []revenue.ReserveContext{{ReserveToken: "0xAAAA"}}
	s := NewStatic("optimism", "0xUSER", reserves, nil)

	got, err := s.ReserveContexts(context.Background(), "0xuser", revenue.Window{Start: 0, End: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xaaaa", got[0].ReserveToken, "stored contexts must be normalized")

	got, err = s.ReserveContexts(context.Background(), "0xsomebodyelse", revenue.Window{Start: 0, End: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// flaky fails a fixed number of times before delegating to a Static.
type flaky struct {
	*Static
	failures int
	calls    int
}

func (f *flaky) ReserveContexts(ctx context.Context, user string, w revenue.Window) ([]revenue.ReserveContext, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("rpc timeout")
	}
	return f.Static.ReserveContexts(ctx, user, w)
}

func TestRetryingRecovers(t *testing.T) {
	inner := &flaky{
		Static:   NewStatic("optimism", "", []revenue.ReserveContext{{ReserveToken: "0xaaaa"}}, nil),
		failures: 2,
	}
	p := WithRetries(inner, zap.NewNop(), 5)
	p.initialDelay = time.Millisecond

	got, err := p.ReserveContexts(context.Background(), "0xuser", revenue.Window{Start: 0, End: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingGivesUp(t *testing.T) {
	inner := &flaky{
		Static:   NewStatic("optimism", "", nil, nil),
		failures: 100,
	}
	p := WithRetries(inner, zap.NewNop(), 2)
	p.initialDelay = time.Millisecond

	_, err := p.ReserveContexts(context.Background(), "0xuser", revenue.Window{Start: 0, End: 1})
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

const fixtureJSON = `{
  "chain_id": "Optimism",
  "user": "0xUSER",
  "reserves": [
    {
      "reserve_token": "0xAAAA",
      "decimals": 18,
      "yield_token": "0xaAAAa",
      "index_at_start": "1000000000000000000000000000",
      "index_at_end": "1050000000000000000000000000",
      "fee_rate_bps_at_start": 1000,
      "fee_rate_events": [{"timestamp": 100, "fee_rate_bps": 2000}],
      "scaled_at_start": "10000000000000000000",
      "balance_events": [
        {
          "timestamp": 50,
          "scaled_balance": "20000000000000000000",
          "liquidity_index": "1010000000000000000000000000"
        }
      ]
    }
  ],
  "prices_usd": {"0xAAAA": "1.25"}
}`

func TestLoadStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimism.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureJSON), 0o644))

	s, err := LoadStatic(path)
	require.NoError(t, err)
	assert.Equal(t, "optimism", s.ChainID())

	reserves, err := s.ReserveContexts(context.Background(), "0xuser", revenue.Window{Start: 0, End: 1000})
	require.NoError(t, err)
	require.Len(t, reserves, 1)

	rc := reserves[0]
	assert.Equal(t, "0xaaaa", rc.ReserveToken)
	assert.Equal(t, uint8(18), rc.Decimals)
	assert.Equal(t, uint32(1000), rc.FeeRateBpsAtStart)
	require.Len(t, rc.BalanceEvents, 1)
	assert.Equal(t, "20000000000000000000", rc.BalanceEvents[0].ScaledBalance.String())

	prices, err := s.PricesUSD(context.Background(), []string{"0xAAAA", "0xmissing"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.True(t, prices["0xaaaa"].Equal(decimal.RequireFromString("1.25")))
}

func TestLoadStaticRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"chain_id": "x", "reserves": [{"reserve_token": "t", "index_at_start": "not-a-number"}]}`), 0o644))
	_, err := LoadStatic(bad)
	assert.Error(t, err)

	_, err = LoadStatic(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestCollectGathersAllChains(t *testing.T) {
	reserves := []revenue.ReserveContext{{ReserveToken: "0xaaaa"}}
	prices := map[string]decimal.Decimal{"0xaaaa": decimal.NewFromInt(2)}

	providers := []ChainData{
		NewStatic("optimism", "", reserves, prices),
		NewStatic("base", "", nil, nil),
	}

	inputs, err := Collect(context.Background(), providers, "0xuser", revenue.Window{Start: 0, End: 100}, 4)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "optimism", inputs[0].ChainID)
	assert.Len(t, inputs[0].Reserves, 1)
	assert.Equal(t, "base", inputs[1].ChainID)
	assert.Empty(t, inputs[1].Reserves)
}

func TestCollectRejectsInvalidWindow(t *testing.T) {
	_, err := Collect(context.Background(), nil, "0xuser", revenue.Window{Start: 5, End: 5}, 1)
	assert.ErrorIs(t, err, revenue.ErrInvalidWindow)
}
