package clock

// The functions in this file are the timer engine. Each one takes a state by
// value and returns a new one; none of them touch storage, alarms or the wall
// clock. Callers pass now in milliseconds since the epoch.

// CreateDefaultState returns the first-run state built from DefaultPreset
func CreateDefaultState() TimerState {
	return CreateDefaultStateWith(DefaultPreset)
}

// CreateDefaultStateWith returns an idle work state using preset as both the
// preset and the initial custom durations
func CreateDefaultStateWith(preset TimerDurations) TimerState {
	preset = TimerDurations{
		Work:  ClampMinutes(float64(preset.Work)),
		Break: ClampMinutes(float64(preset.Break)),
	}
	return TimerState{
		Mode:                 ModeWork,
		Status:               StatusIdle,
		DurationMs:           MinutesToMs(float64(preset.Work)),
		RemainingMs:          nil,
		EndAt:                nil,
		Preset:               preset,
		Custom:               preset,
		SoundEnabled:         true,
		NotificationsEnabled: true,
	}
}

// WithCustomDurations clamps and stores new custom durations. An idle timer
// picks up the new length for its current mode; a live segment is not resized.
func WithCustomDurations(state TimerState, durations TimerDurations) TimerState {
	next := state.Clone()
	next.Custom = TimerDurations{
		Work:  ClampMinutes(float64(durations.Work)),
		Break: ClampMinutes(float64(durations.Break)),
	}
	if state.Status == StatusIdle {
		next.DurationMs = MinutesToMs(float64(next.Custom.For(state.Mode)))
	}
	return next
}

// WithSoundEnabled toggles the completion sound
func WithSoundEnabled(state TimerState, enabled bool) TimerState {
	next := state.Clone()
	next.SoundEnabled = enabled
	return next
}

// WithNotificationsEnabled toggles the completion notification
func WithNotificationsEnabled(state TimerState, enabled bool) TimerState {
	next := state.Clone()
	next.NotificationsEnabled = enabled
	return next
}

// StartTimer starts a segment of the given mode. It has no precondition:
// starting while running restarts the segment from its full length.
func StartTimer(state TimerState, now int64, mode TimerMode) TimerState {
	durationMs := MinutesToMs(float64(state.Custom.For(mode)))
	next := state.Clone()
	next.Mode = mode
	next.Status = StatusRunning
	next.DurationMs = durationMs
	next.RemainingMs = nil
	next.EndAt = msPtr(now + durationMs)
	return next
}

// PauseTimer freezes a running segment. Anything else is returned unchanged.
func PauseTimer(state TimerState, now int64) TimerState {
	if state.Status != StatusRunning || state.EndAt == nil {
		return state
	}
	next := state.Clone()
	next.Status = StatusPaused
	next.RemainingMs = msPtr(max(0, *state.EndAt-now))
	next.EndAt = nil
	return next
}

// ResumeTimer continues a paused segment from its remaining budget
func ResumeTimer(state TimerState, now int64) TimerState {
	if state.Status != StatusPaused || state.RemainingMs == nil {
		return state
	}
	next := state.Clone()
	next.Status = StatusRunning
	next.EndAt = msPtr(now + *state.RemainingMs)
	next.RemainingMs = nil
	return next
}

// ResetTimer returns to idle in the current mode
func ResetTimer(state TimerState) TimerState {
	next := state.Clone()
	next.Status = StatusIdle
	next.EndAt = nil
	next.RemainingMs = nil
	next.DurationMs = MinutesToMs(float64(state.Custom.For(state.Mode)))
	return next
}

// CompleteSegment finishes the current segment and idles in the next mode.
// This is the only transition that advances the mode.
func CompleteSegment(state TimerState) TimerState {
	nextMode := NextMode(state.Mode)
	next := state.Clone()
	next.Mode = nextMode
	next.Status = StatusIdle
	next.EndAt = nil
	next.RemainingMs = nil
	next.DurationMs = MinutesToMs(float64(state.Custom.For(nextMode)))
	return next
}

// IsOverdue reports whether a running segment has reached its end
func IsOverdue(state TimerState, now int64) bool {
	return state.Status == StatusRunning && state.EndAt != nil && *state.EndAt <= now
}
