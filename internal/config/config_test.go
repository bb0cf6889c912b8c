package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "docqc.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, 90, cfg.Extractor.CallTimeoutSecs)
	assert.Equal(t, 5.0, cfg.Extractor.RequestsPerSecond)
	assert.Equal(t, 3, cfg.Extractor.MaxRetries)
	assert.Empty(t, cfg.Extractor.BaseURL)

	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 300, cfg.Queue.LeaseTTLSecs)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)

	assert.Equal(t, 1.0, cfg.Sampler.LowConfidenceRate)
	assert.Equal(t, 0.10, cfg.Sampler.MidConfidenceRate)
	assert.Equal(t, 0.03, cfg.Sampler.HighConfidenceRate)

	assert.Equal(t, 0.2, cfg.Accuracy.Alpha)
	assert.Equal(t, 3, cfg.Accuracy.WarnWindow)
	assert.Equal(t, 6, cfg.Accuracy.RecoveryWindow)

	assert.Equal(t, 500, cfg.Monitoring.PendingDepthWarn)
	assert.Equal(t, 1, cfg.Monitoring.FailedTaskThreshold)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DOCQC_STORE_DRIVER", "postgres")
	t.Setenv("DOCQC_STORE_DATABASE_URL", "postgres://localhost:5432/docqc")
	t.Setenv("DOCQC_EXTRACTOR_BASE_URL", "https://extract.example.com")
	t.Setenv("DOCQC_EXTRACTOR_API_KEY", "secret")
	t.Setenv("DOCQC_QUEUE_WORKERS", "8")
	t.Setenv("DOCQC_SAMPLER_MID_CONFIDENCE_RATE", "0.25")
	t.Setenv("DOCQC_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost:5432/docqc", cfg.Store.DatabaseURL)
	assert.Equal(t, "https://extract.example.com", cfg.Extractor.BaseURL)
	assert.Equal(t, "secret", cfg.Extractor.APIKey)
	assert.Equal(t, 8, cfg.Queue.Workers)
	assert.Equal(t, 0.25, cfg.Sampler.MidConfidenceRate)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	require.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
