package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rewards-strategist/internal/models"
	"rewards-strategist/internal/rewards"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: rewards
    user: ${TEST_DB_USER}
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("TEST_DB_USER", "rewards_app")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "rewards_app", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	require.NotNil(t, cfg.Engine.TieBand)
	assert.Equal(t, rewards.DefaultTieBand, *cfg.Engine.TieBand)
	assert.Equal(t, "fallback", cfg.Engine.CapExcessPolicy)
	assert.Equal(t, 3000, cfg.Collaborators.Timeout)
	assert.Equal(t, 300, cfg.Cache.RulesTTL)
	assert.Equal(t, "info", cfg.Logging.Level)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, opts.CollaboratorTimeout)
	assert.Equal(t, rewards.DefaultRecommendWeights(), opts.Weights)
	assert.Equal(t, rewards.CapExcessFallback, opts.Valuation.CapExcess)
}

func TestLoadFromFile_EngineOverrides(t *testing.T) {
	t.Setenv("TEST_DB_USER", "rewards_app")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
engine:
  tie_band: 0.02
  cap_excess_policy: zero
  conversion:
    points: 0.5
workers:
  rank-best-card:
    enabled: true
`))
	require.NoError(t, err)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, 0.02, opts.TieBand)
	assert.Equal(t, rewards.CapExcessZero, opts.Valuation.CapExcess)
	assert.Equal(t, 0.5, opts.Valuation.Conversion.Factor(models.RewardPoints))
	assert.Equal(t, 1.0, opts.Valuation.Conversion.Factor(models.RewardMiles))

	worker := GetWorkerConfig(cfg, "rank-best-card")
	assert.Equal(t, 30000, worker.Timeout)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))
}

func TestLoadFromFile_ZeroBands(t *testing.T) {
	t.Setenv("TEST_DB_USER", "rewards_app")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
engine:
  tie_band: 0
  gap_threshold: 0
`))
	require.NoError(t, err)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, 0.0, opts.TieBand)
	assert.Equal(t, 0.0, opts.GapThreshold)
}

func TestEngineOptions_AbsentBandsDefault(t *testing.T) {
	opts, err := (&Config{}).EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, rewards.DefaultTieBand, opts.TieBand)
	assert.Equal(t, rewards.DefaultGapThreshold, opts.GapThreshold)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	t.Setenv("TEST_DB_USER", "rewards_app")

	tests := []struct {
		name  string
		extra string
		base  string
	}{
		{name: "missing broker", base: "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n"},
		{name: "bad cap policy", base: minimalConfig, extra: "engine:\n  cap_excess_policy: spill\n"},
		{name: "bad reward type", base: minimalConfig, extra: "engine:\n  conversion:\n    vouchers: 2\n"},
		{name: "tie band out of range", base: minimalConfig, extra: "engine:\n  tie_band: 1.5\n"},
		{name: "negative tie band", base: minimalConfig, extra: "engine:\n  tie_band: -0.01\n"},
		{name: "negative gap threshold", base: minimalConfig, extra: "engine:\n  gap_threshold: -1\n"},
		{name: "genai without url", base: minimalConfig, extra: "collaborators:\n  genai:\n    enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.base+tt.extra))
			assert.Error(t, err)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, 2*time.Minute, GetSeconds(120))
}
