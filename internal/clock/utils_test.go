package clock

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampMinutes(t *testing.T) {
	tests := []struct {
		input    float64
		expected int
	}{
		{25, 25},
		{0, 1},
		{-10, 1},
		{1, 1},
		{180, 180},
		{181, 180},
		{1e9, 180},
		{2.4, 2},
		{2.5, 3},
		{179.5, 180},
		{math.NaN(), 1},
		{math.Inf(1), 1},
		{math.Inf(-1), 1},
	}

	for _, tt := range tests {
		if got := ClampMinutes(tt.input); got != tt.expected {
			t.Errorf("ClampMinutes(%v) = %d, expected %d", tt.input, got, tt.expected)
		}
	}
}

func TestClampMinutesRangeAndIdempotence(t *testing.T) {
	for v := -50.0; v <= 250.0; v += 0.25 {
		once := ClampMinutes(v)
		if once < MinMinutes || once > MaxMinutes {
			t.Fatalf("ClampMinutes(%v) = %d is out of range", v, once)
		}
		if twice := ClampMinutes(float64(once)); twice != once {
			t.Fatalf("ClampMinutes is not idempotent for %v: %d then %d", v, once, twice)
		}
	}
}

func TestMinutesToMs(t *testing.T) {
	assert.Equal(t, int64(1_500_000), MinutesToMs(25))
	assert.Equal(t, int64(60_000), MinutesToMs(0))
	assert.Equal(t, int64(180*60_000), MinutesToMs(1000))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "01:05", FormatDuration(65_000))
	assert.Equal(t, "00:00", FormatDuration(0))
	assert.Equal(t, "00:00", FormatDuration(-500))
	assert.Equal(t, "00:00", FormatDuration(999))
	assert.Equal(t, "25:00", FormatDuration(1_500_000))
	assert.Equal(t, "180:00", FormatDuration(180*60_000))
}

func TestRemainingMs(t *testing.T) {
	idle := CreateDefaultState()
	assert.Equal(t, idle.DurationMs, RemainingMs(idle, 123))

	running := StartTimer(idle, 1000, ModeWork)
	assert.Equal(t, int64(25*60_000-9000), RemainingMs(running, 10_000))
	assert.Equal(t, int64(0), RemainingMs(running, *running.EndAt+5000))

	paused := PauseTimer(running, 61_000)
	assert.Equal(t, *paused.RemainingMs, RemainingMs(paused, 1<<40))
}

func TestCalculateProgress(t *testing.T) {
	running := StartTimer(CreateDefaultState(), 0, ModeWork)

	assert.Equal(t, 0.0, CalculateProgress(running, 0))
	assert.InDelta(t, 50.0, CalculateProgress(running, running.DurationMs/2), 0.001)
	assert.Equal(t, 100.0, CalculateProgress(running, *running.EndAt+1))
	assert.Equal(t, 0.0, CalculateProgress(CreateDefaultState(), 0))
}
