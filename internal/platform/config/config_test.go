package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "timer-server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOptionalOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  addr: 127.0.0.1:9000
timer:
  interval: 250ms
log:
  format: json
profile: stress
`)

	cfg, err := LoadOptional(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Timer.Interval)
	assert.Equal(t, "superwave", cfg.Timer.ID)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, StressTestTuning(), cfg.Tuning())
}

func TestLoadOptionalRejectsBadFiles(t *testing.T) {
	_, err := LoadOptional(writeFile(t, "server: [unclosed"))
	assert.Error(t, err)

	_, err = LoadOptional(writeFile(t, "profile: turbo\n"))
	assert.ErrorContains(t, err, "unknown profile")

	_, err = LoadOptional(writeFile(t, "timer:\n  id: \" \"\n"))
	assert.ErrorContains(t, err, "timer.id")
}

func TestTuningFor(t *testing.T) {
	for name, want := range map[string]*Tuning{
		"":                 DefaultTuning(),
		ProfileDefault:     DefaultTuning(),
		ProfileStress:      StressTestTuning(),
		ProfileLowResource: LowResourceTuning(),
	} {
		got, err := TuningFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestAnalyze(t *testing.T) {
	rec := Analyze(map[string]interface{}{
		"events": map[string]interface{}{
			"max_write_lat_ms": float64(120),
			"errors":           int64(0),
		},
		"websocket": map[string]interface{}{
			"errors":            int64(2),
			"commands_rejected": int64(1),
		},
	})

	assert.True(t, rec.IncreaseLoopBuffer)
	assert.True(t, rec.IncreaseBroadcastBuffer)
	assert.True(t, rec.RaiseCommandRate)
	assert.Len(t, rec.Notes, 3)

	tuning := ApplyRecommendations(DefaultTuning(), rec)
	assert.Equal(t, 512, tuning.LoopBuffer)
	assert.Equal(t, 128, tuning.ClientSendBuffer)
	assert.Equal(t, 30, tuning.MaxCommandsPerSecond)
}

func TestAnalyzeQuiet(t *testing.T) {
	rec := Analyze(map[string]interface{}{})
	assert.Empty(t, rec.Notes)
	assert.Equal(t, DefaultTuning(), ApplyRecommendations(DefaultTuning(), rec))
}
