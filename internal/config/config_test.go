package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/queuedesk")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, 10, cfg.SlotCapacity)
	assert.Equal(t, 5, cfg.FakeEnquiryThreshold)
	assert.Equal(t, 24, cfg.FakeEnquiryWindowHours)
	assert.Equal(t, "17:00", cfg.EmergencyCutoff)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.FakeEnquiryWindow())
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/queuedesk")
	t.Setenv("ENV", "production")
	t.Setenv("SLOT_CAPACITY", "3")
	t.Setenv("FAKE_ENQUIRY_WINDOW_HOURS", "48")
	t.Setenv("SWEEP_INTERVAL", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 3, cfg.SlotCapacity)
	assert.Equal(t, 48, cfg.FakeEnquiryWindowHours)
	assert.Equal(t, 48*time.Hour, cfg.FakeEnquiryWindow())
	assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/queuedesk")
	t.Setenv("SLOT_CAPACITY", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.SlotCapacity)
}
