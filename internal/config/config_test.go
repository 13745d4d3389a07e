package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PATTERNWATCH_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "http://localhost:8020", cfg.MarketDataURL)
	assert.Equal(t, 10*time.Second, cfg.MarketDataTimeout)
	assert.Equal(t, 50, cfg.CandleCount)
	assert.Equal(t, "0 */5 * * * *", cfg.MatchCronSpec)
	assert.Equal(t, 4, cfg.MatchWorkers)
	assert.Equal(t, time.Hour, cfg.DedupWindow)
	assert.Equal(t, 70, cfg.DefaultThreshold)
	assert.Equal(t, 1, cfg.MaxActivePatterns)
	assert.Nil(t, cfg.Snapshots)
	assert.False(t, cfg.Snapshots.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PATTERNWATCH_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("MATCH_WORKERS", "8")
	t.Setenv("ALERT_DEDUP_WINDOW", "30m")
	t.Setenv("DEFAULT_THRESHOLD", "85")
	t.Setenv("PATTERN_MAX_ACTIVE", "3")
	t.Setenv("SCHEDULER_SECRET", "topsecret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 8, cfg.MatchWorkers)
	assert.Equal(t, 30*time.Minute, cfg.DedupWindow)
	assert.Equal(t, 85, cfg.DefaultThreshold)
	assert.Equal(t, 3, cfg.MaxActivePatterns)
	assert.Equal(t, "topsecret", cfg.SchedulerSecret)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"threshold over 100", "DEFAULT_THRESHOLD", "101"},
		{"zero pattern cap", "PATTERN_MAX_ACTIVE", "0"},
		{"candle count too small", "CANDLE_COUNT", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PATTERNWATCH_DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestSnapshotConfig(t *testing.T) {
	t.Setenv("PATTERNWATCH_DATA_DIR", t.TempDir())
	t.Setenv("SNAPSHOT_BUCKET", "patternwatch-snaps")
	t.Setenv("SNAPSHOT_ACCESS_KEY", "AKIA000")
	t.Setenv("SNAPSHOT_SECRET_KEY", "s3cr3t")
	t.Setenv("SNAPSHOT_ENDPOINT", "https://r2.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Snapshots)
	assert.True(t, cfg.Snapshots.Enabled())
	assert.Equal(t, "patternwatch-snaps", cfg.Snapshots.Bucket)
	assert.Equal(t, "auto", cfg.Snapshots.Region)
}

func TestSnapshotConfig_DisabledWithoutCredentials(t *testing.T) {
	t.Setenv("PATTERNWATCH_DATA_DIR", t.TempDir())
	t.Setenv("SNAPSHOT_BUCKET", "patternwatch-snaps")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Snapshots)
	assert.False(t, cfg.Snapshots.Enabled())
}
