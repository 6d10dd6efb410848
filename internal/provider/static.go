// =================================
// File: internal/provider/static.go
// =================================
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"

	"github.com/divvi-xyz/divvi-protocol-sub001/internal/revenue"
)

// Static serves pre-recorded chain data from memory. It backs the fixture
// mode of the CLI and every engine test that needs a fake provider.
type Static struct {
	chainID  string
	user     string
	reserves []revenue.ReserveContext
	prices   map[string]decimal.Decimal
}

// NewStatic builds an in-memory provider. user may be empty to serve any
// user.
func NewStatic(chainID, user string, reserves []revenue.ReserveContext, prices map[string]decimal.Decimal) *Static {
	normPrices := make(map[string]decimal.Decimal, len(prices))
	for token, price := range prices {
		normPrices[revenue.NormalizeTokenID(token)] = price
	}
	norm := make([]revenue.ReserveContext, len(reserves))
	for i, rc := range reserves {
		norm[i] = rc.Normalized()
	}
	return &Static{
		chainID:  revenue.NormalizeTokenID(chainID),
		user:     revenue.NormalizeTokenID(user),
		reserves: norm,
		prices:   normPrices,
	}
}

func (s *Static) ChainID() string { return s.chainID }

func (s *Static) ReserveContexts(_ context.Context, user string, _ revenue.Window) ([]revenue.ReserveContext, error) {
	if s.user != "" && revenue.NormalizeTokenID(user) != s.user {
		return nil, nil
	}
	out := make([]revenue.ReserveContext, len(s.reserves))
	copy(out, s.reserves)
	return out, nil
}

func (s *Static) PricesUSD(_ context.Context, tokens []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(tokens))
	for _, token := range tokens {
		norm := revenue.NormalizeTokenID(token)
		if price, ok := s.prices[norm]; ok {
			out[norm] = price
		}
	}
	return out, nil
}

// Fixture file schema. Big integers travel as decimal strings because ray
// values overflow every JSON number representation.
type fixtureFile struct {
	ChainID   string            `json:"chain_id"`
	User      string            `json:"user,omitempty"`
	Reserves  []fixtureReserve  `json:"reserves"`
	PricesUSD map[string]string `json:"prices_usd"`
}

type fixtureReserve struct {
	ReserveToken      string            `json:"reserve_token"`
	Decimals          uint8             `json:"decimals"`
	YieldToken        string            `json:"yield_token"`
	IndexAtStart      string            `json:"index_at_start"`
	IndexAtEnd        string            `json:"index_at_end"`
	FeeRateBpsAtStart uint32            `json:"fee_rate_bps_at_start"`
	FeeRateEvents     []fixtureFeeEvent `json:"fee_rate_events,omitempty"`
	ScaledAtStart     string            `json:"scaled_at_start"`
	BalanceEvents     []fixtureBalEvent `json:"balance_events,omitempty"`
}

type fixtureFeeEvent struct {
	Timestamp  int64  `json:"timestamp"`
	FeeRateBps uint32 `json:"fee_rate_bps"`
}

type fixtureBalEvent struct {
	Timestamp      int64  `json:"timestamp"`
	ScaledBalance  string `json:"scaled_balance"`
	LiquidityIndex string `json:"liquidity_index"`
}

// LoadStatic reads a JSON fixture file into a Static provider.
func LoadStatic(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f fixtureFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	if f.ChainID == "" {
		return nil, fmt.Errorf("fixture %s has no chain_id", path)
	}

	reserves := make([]revenue.ReserveContext, 0, len(f.Reserves))
	for _, fr := range f.Reserves {
		rc, err := fr.toContext()
		if err != nil {
			return nil, fmt.Errorf("fixture %s: reserve %s: %w", path, fr.ReserveToken, err)
		}
		reserves = append(reserves, rc)
	}

	prices := make(map[string]decimal.Decimal, len(f.PricesUSD))
	for token, s := range f.PricesUSD {
		price, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: price for %s: %w", path, token, err)
		}
		prices[token] = price
	}

	return NewStatic(f.ChainID, f.User, reserves, prices), nil
}

func (fr fixtureReserve) toContext() (revenue.ReserveContext, error) {
	rc := revenue.ReserveContext{
		ReserveToken:      fr.ReserveToken,
		Decimals:          fr.Decimals,
		YieldToken:        fr.YieldToken,
		FeeRateBpsAtStart: fr.FeeRateBpsAtStart,
	}
	var err error
	if rc.IndexAtStart, err = parseBig(fr.IndexAtStart, "index_at_start"); err != nil {
		return rc, err
	}
	if rc.IndexAtEnd, err = parseBig(fr.IndexAtEnd, "index_at_end"); err != nil {
		return rc, err
	}
	if rc.ScaledAtStart, err = parseBig(fr.ScaledAtStart, "scaled_at_start"); err != nil {
		return rc, err
	}
	for _, ev := range fr.FeeRateEvents {
		rc.FeeRateEvents = append(rc.FeeRateEvents, revenue.FeeRateEvent{
			Timestamp:  ev.Timestamp,
			FeeRateBps: ev.FeeRateBps,
		})
	}
	for _, ev := range fr.BalanceEvents {
		scaled, err := parseBig(ev.ScaledBalance, "scaled_balance")
		if err != nil {
			return rc, err
		}
		index, err := parseBig(ev.LiquidityIndex, "liquidity_index")
		if err != nil {
			return rc, err
		}
		rc.BalanceEvents = append(rc.BalanceEvents, revenue.BalanceEvent{
			Timestamp:      ev.Timestamp,
			ScaledBalance:  scaled,
			LiquidityIndex: index,
		})
	}
	return rc, nil
}

func parseBig(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid big integer in %s: %q", field, s)
	}
	return v, nil
}
