package config

import (
	"github.com/pkg/errors"
)

const (
	ProfileDefault     = "default"
	ProfileStress      = "stress"
	ProfileLowResource = "low"
)

// Tuning holds channel buffer and rate settings for the server.
type Tuning struct {
	// Channel buffer sizes
	LoopBuffer             int
	BroadcastChannelBuffer int
	ClientSendBuffer       int

	// Connection pool
	DBMaxOpenConns int

	// Rate limiting
	MaxCommandsPerSecond int
	MaxClients           int
}

// TuningFor returns the settings of a named profile. The empty name selects
// the default profile.
func TuningFor(profile string) (*Tuning, error) {
	switch profile {
	case "", ProfileDefault:
		return DefaultTuning(), nil
	case ProfileStress:
		return StressTestTuning(), nil
	case ProfileLowResource:
		return LowResourceTuning(), nil
	default:
		return nil, errors.Errorf("unknown profile %q", profile)
	}
}

// DefaultTuning returns sensible defaults for production.
func DefaultTuning() *Tuning {
	return &Tuning{
		LoopBuffer:             256,
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,

		// sqlite allows a single writer
		DBMaxOpenConns: 1,

		MaxCommandsPerSecond: 20,
		MaxClients:           200,
	}
}

// StressTestTuning returns aggressive settings for the agitator.
func StressTestTuning() *Tuning {
	return &Tuning{
		LoopBuffer:             4096,
		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,

		DBMaxOpenConns: 1,

		MaxCommandsPerSecond: 500,
		MaxClients:           1000,
	}
}

// LowResourceTuning returns minimal settings for development.
func LowResourceTuning() *Tuning {
	return &Tuning{
		LoopBuffer:             16,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,

		DBMaxOpenConns: 1,

		MaxCommandsPerSecond: 5,
		MaxClients:           20,
	}
}

// Recommendations provides suggestions based on observed metrics.
type Recommendations struct {
	IncreaseLoopBuffer      bool
	IncreaseBroadcastBuffer bool
	RaiseCommandRate        bool
	Notes                   []string
}

// Analyze examines a metrics snapshot and returns tuning recommendations.
func Analyze(metrics map[string]interface{}) *Recommendations {
	rec := &Recommendations{
		Notes: make([]string, 0),
	}

	if ev, ok := metrics["events"].(map[string]interface{}); ok {
		if maxLat, ok := ev["max_write_lat_ms"].(float64); ok && maxLat > 50 {
			rec.IncreaseLoopBuffer = true
			rec.Notes = append(rec.Notes, "Journal write latency exceeds 50ms - check the database disk")
		}
		if errs, ok := ev["errors"].(int64); ok && errs > 0 {
			rec.Notes = append(rec.Notes, "Journal write errors detected")
		}
	}

	if ws, ok := metrics["websocket"].(map[string]interface{}); ok {
		if errs, ok := ws["errors"].(int64); ok && errs > 0 {
			rec.IncreaseBroadcastBuffer = true
			rec.Notes = append(rec.Notes, "WebSocket errors detected - increase client send buffer")
		}
		if rejected, ok := ws["commands_rejected"].(int64); ok && rejected > 0 {
			rec.RaiseCommandRate = true
			rec.Notes = append(rec.Notes, "Commands rejected by the rate limit")
		}
	}

	return rec
}

// ApplyRecommendations modifies t based on rec.
func ApplyRecommendations(t *Tuning, rec *Recommendations) *Tuning {
	if rec.IncreaseLoopBuffer {
		t.LoopBuffer *= 2
	}
	if rec.IncreaseBroadcastBuffer {
		t.BroadcastChannelBuffer *= 2
		t.ClientSendBuffer *= 2
	}
	if rec.RaiseCommandRate {
		t.MaxCommandsPerSecond = int(float64(t.MaxCommandsPerSecond) * 1.5)
	}
	return t
}
