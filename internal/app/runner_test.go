package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const optimismFixture = `{
  "chain_id": "optimism",
  "reserves": [
    {
      "reserve_token": "0xAAAA",
      "decimals": 18,
      "yield_token": "0xaAAAa",
      "index_at_start": "1000000000000000000000000000",
      "index_at_end":   "1050000000000000000000000000",
      "fee_rate_bps_at_start": 1000,
      "scaled_at_start": "10000000000000000000"
    }
  ],
  "prices_usd": {"0xaaaa": "2"}
}`

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fixtureDir := filepath.Join(dir, "fixtures")
	require.NoError(t, os.MkdirAll(fixtureDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fixtureDir, "optimism.json"), []byte(optimismFixture), 0o644))

	configJSON := fmt.Sprintf(`{
        "user": "0xUSER",
        "start_timestamp": 0,
        "end_timestamp": 2592000,
        "chains": ["optimism"],
        "fixture_dir": %q,
        "output_dir": %q,
        "output_format": "json",
        "log_file": %q,
        "workers": 2
    }`, fixtureDir, filepath.Join(dir, "reports"), filepath.Join(dir, "kpi.log"))
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(configJSON), 0o600))

	runner := NewRunner()
	require.NoError(t, runner.Initialize(configPath))
	defer runner.Close()

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	// 10 tokens earning 5% with a 10% reserve factor at 2 USD:
	// 0.5 * 0.1/0.9 * 2 = 0.1111...
	totalF, _ := result.TotalUSD.Float64()
	assert.InDelta(t, 1.0/9.0, totalF, 1e-9)
	require.Len(t, result.Breakdown, 1)
	assert.Equal(t, "0xaaaa", result.Breakdown[0].ReserveToken)

	entries, err := os.ReadDir(filepath.Join(dir, "reports"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	t.Logf("report written: %s", entries[0].Name())
}

func TestRunnerMissingFixture(t *testing.T) {
	dir := t.TempDir()
	configJSON := fmt.Sprintf(`{
        "user": "0xUSER",
        "start_timestamp": 0,
        "end_timestamp": 100,
        "chains": ["base"],
        "fixture_dir": %q,
        "log_file": %q
    }`, dir, filepath.Join(dir, "kpi.log"))
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(configJSON), 0o600))

	runner := NewRunner()
	require.NoError(t, runner.Initialize(configPath))
	defer runner.Close()

	_, err := runner.Run(context.Background())
	assert.Error(t, err)
}
