package clock

import (
	"fmt"
	"math"
)

// ClampMinutes rounds to the nearest minute and clamps to [MinMinutes, MaxMinutes].
// Non-finite input maps to MinMinutes.
func ClampMinutes(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MinMinutes
	}
	// Halves round up, including negative halves
	rounded := math.Floor(value + 0.5)
	return int(math.Min(MaxMinutes, math.Max(MinMinutes, rounded)))
}

// MinutesToMs converts a clamped minute value to milliseconds
func MinutesToMs(minutes float64) int64 {
	return int64(ClampMinutes(minutes)) * msPerMinute
}

// FormatDuration formats milliseconds as MM:SS. Minutes past 99 are printed
// with as many digits as they need.
func FormatDuration(ms int64) string {
	totalSeconds := max(0, int64(math.Floor(float64(ms)/1000)))
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// RemainingMs returns the live countdown value for state at now
func RemainingMs(state TimerState, now int64) int64 {
	switch state.Status {
	case StatusRunning:
		if state.EndAt == nil {
			return state.DurationMs
		}
		return max(0, *state.EndAt-now)
	case StatusPaused:
		if state.RemainingMs == nil {
			return state.DurationMs
		}
		return *state.RemainingMs
	default:
		return state.DurationMs
	}
}

// CalculateProgress returns how far through its segment state is, in percent
func CalculateProgress(state TimerState, now int64) float64 {
	if state.DurationMs <= 0 {
		return 0.0
	}

	elapsed := state.DurationMs - RemainingMs(state, now)
	progress := float64(elapsed) / float64(state.DurationMs) * 100.0
	if progress > 100.0 {
		progress = 100.0
	}
	if progress < 0 {
		progress = 0
	}

	return progress
}
