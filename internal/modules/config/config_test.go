package config

import (
	"os"
	"path/filepath"
	"testing"
	"tier_bot/internal/models"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "service:\n  name: tier_bot_test\n"))
	require.NoError(t, err)

	assert.Equal(t, "tier_bot_test", cfg.Service.Name)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "profit_rise", cfg.Engine.CooldownPolicy)
	assert.Equal(t, 0.1, cfg.Engine.ProfitRiseEpsilon)
	assert.Equal(t, 30*time.Second, cfg.Engine.SellLockTTL)
	assert.Equal(t, FailOpen, cfg.Engine.PersistenceFailMode)
	assert.Len(t, cfg.Engine.Tiers, 3)
	assert.Equal(t, 8, cfg.Runner.MaxParallel)
}

func TestLoadReplacesTiersAndHoldings(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  cooldown_policy: time_window
  cooldown_window: 10m
  tiers:
    - threshold_pct: 3
      sell_ratio: 0.5
db_max_conns: 12
holdings:
  - portfolio_id: 1
    instrument_id: "005930"
    quantity: 100
`))
	require.NoError(t, err)

	assert.Equal(t, []models.Tier{{ThresholdPct: 3, SellRatio: 0.5}}, cfg.Engine.Tiers)
	assert.Equal(t, 10*time.Minute, cfg.Engine.CooldownWindow)
	assert.Equal(t, int32(12), cfg.DBMaxConns)
	require.Len(t, cfg.Holdings, 1)
	assert.Equal(t, "005930", cfg.Holdings[0].InstrumentID)
	assert.Equal(t, int64(100), cfg.Holdings[0].Quantity)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TIERBOT_ENGINE_COOLDOWN_POLICY", "threshold_cross")
	t.Setenv("TIERBOT_ENGINE_PERSISTENCE_FAIL_MODE", "closed")
	t.Setenv("TIERBOT_ENGINE_SELL_LOCK_TTL", "45s")
	t.Setenv("TIERBOT_RUNNER_MAX_PARALLEL", "2")
	t.Setenv("TELEGRAM_TOKEN", "token-from-env")

	cfg, err := Load(writeConfig(t, "engine:\n  cooldown_policy: profit_rise\n"))
	require.NoError(t, err)

	assert.Equal(t, "threshold_cross", cfg.Engine.CooldownPolicy)
	assert.Equal(t, FailClosed, cfg.Engine.PersistenceFailMode)
	assert.Equal(t, 45*time.Second, cfg.Engine.SellLockTTL)
	assert.Equal(t, 2, cfg.Runner.MaxParallel)
	assert.Equal(t, "token-from-env", cfg.Telegram.Token)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"postgres without dsn": "storage: postgres\n",
		"unknown storage":      "storage: redis\n",
		"unknown fail mode":    "engine:\n  persistence_fail_mode: maybe\n",
		"bad open_at":          "session:\n  open_at: \"9am\"\n",
		"negative epsilon":     "engine:\n  profit_rise_epsilon: -1\n",
		"unknown policy":       "engine:\n  cooldown_policy: forever\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration), "%v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
