package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 96*time.Hour, cfg.MinHoldTime)
	assert.Equal(t, 24*time.Hour, cfg.DailyCooldown)
	assert.Equal(t, 60*time.Second, cfg.LockTTL)
	assert.True(t, cfg.MaxReward.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.MinReward.Equal(decimal.RequireFromString("0.00002")))
	assert.True(t, cfg.DecayRate.Equal(decimal.RequireFromString("0.8")))
	assert.True(t, cfg.DailyPayoutCap.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.False(t, cfg.ClaimsDisabled)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DAILY_PAYOUT_CAP", "250.5")
	t.Setenv("CLAIMS_DISABLED", "true")
	t.Setenv("LOCK_TTL", "2m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.DailyPayoutCap.Equal(decimal.RequireFromString("250.5")))
	assert.True(t, cfg.ClaimsDisabled)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOriginList())
}

func TestValidateRejectsBadRewardParameters(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "decay above one", env: map[string]string{"DECAY_RATE": "1.2"}},
		{name: "zero decay", env: map[string]string{"DECAY_RATE": "0"}},
		{name: "floor above ceiling", env: map[string]string{"MIN_REWARD": "2"}},
		{name: "payout outlives lock", env: map[string]string{"PAYOUT_TIMEOUT": "90s"}},
		{name: "zero cap", env: map[string]string{"DAILY_PAYOUT_CAP": "0"}},
		{name: "no ownership workers", env: map[string]string{"OWNERSHIP_CONCURRENCY": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
		})
	}
}
