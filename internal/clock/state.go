package clock

import "fmt"

// TimerMode is the kind of segment that is current or about to run
type TimerMode string

const (
	ModeWork  TimerMode = "work"
	ModeBreak TimerMode = "break"
)

// TimerStatus is the lifecycle stage of the timer
type TimerStatus string

const (
	StatusIdle    TimerStatus = "idle"
	StatusRunning TimerStatus = "running"
	StatusPaused  TimerStatus = "paused"
)

const (
	MinMinutes = 1
	MaxMinutes = 180

	msPerMinute = 60_000
)

// DefaultPreset holds the out-of-the-box work/break lengths in minutes
var DefaultPreset = TimerDurations{Work: 25, Break: 5}

// TimerDurations is a work/break pair expressed in minutes
type TimerDurations struct {
	Work  int `json:"work"`
	Break int `json:"break"`
}

// For returns the minutes configured for the given mode
func (d TimerDurations) For(mode TimerMode) int {
	if mode == ModeBreak {
		return d.Break
	}
	return d.Work
}

// TimerState is the single persisted timer entity.
//
// RemainingMs is only meaningful while paused and EndAt only while running;
// both are nil when idle.
type TimerState struct {
	Mode                 TimerMode      `json:"mode"`
	Status               TimerStatus    `json:"status"`
	DurationMs           int64          `json:"durationMs"`
	RemainingMs          *int64         `json:"remainingMs"`
	EndAt                *int64         `json:"endAt"`
	Preset               TimerDurations `json:"preset"`
	Custom               TimerDurations `json:"custom"`
	SoundEnabled         bool           `json:"soundEnabled"`
	NotificationsEnabled bool           `json:"notificationsEnabled"`
}

// IsIdle returns true if no segment is running or paused
func (s TimerState) IsIdle() bool {
	return s.Status == StatusIdle
}

// IsRunning returns true if a segment is counting down
func (s TimerState) IsRunning() bool {
	return s.Status == StatusRunning
}

// IsPaused returns true if a segment is frozen
func (s TimerState) IsPaused() bool {
	return s.Status == StatusPaused
}

// Clone returns a copy that shares no pointers with s
func (s TimerState) Clone() TimerState {
	out := s
	out.RemainingMs = copyMs(s.RemainingMs)
	out.EndAt = copyMs(s.EndAt)
	return out
}

// ParseMode validates a mode string
func ParseMode(value string) (TimerMode, error) {
	switch TimerMode(value) {
	case ModeWork, ModeBreak:
		return TimerMode(value), nil
	default:
		return "", fmt.Errorf("invalid mode: %q", value)
	}
}

// ParseStatus validates a status string
func ParseStatus(value string) (TimerStatus, error) {
	switch TimerStatus(value) {
	case StatusIdle, StatusRunning, StatusPaused:
		return TimerStatus(value), nil
	default:
		return "", fmt.Errorf("invalid status: %q", value)
	}
}

// NextMode returns the mode that follows mode once its segment completes
func NextMode(mode TimerMode) TimerMode {
	if mode == ModeWork {
		return ModeBreak
	}
	return ModeWork
}

func msPtr(v int64) *int64 {
	return &v
}

func copyMs(v *int64) *int64 {
	if v == nil {
		return nil
	}
	return msPtr(*v)
}
