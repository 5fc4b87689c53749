package clock

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// AlarmName is the fixed name of the single wake-up alarm
const AlarmName = "pomodoro"

// Adapter is the platform boundary used by TimerService
type Adapter interface {
	// Now returns the current time in milliseconds since the epoch
	Now() int64
	// GetStoredState returns the persisted state, or nil if nothing is stored yet
	GetStoredState(ctx context.Context) (*TimerState, error)
	SetStoredState(ctx context.Context, state TimerState) error
	// ScheduleAlarm replaces the pending alarm; nil only clears it
	ScheduleAlarm(ctx context.Context, when *int64) error
	Notify(ctx context.Context, title, message string) error
	PlaySound(ctx context.Context) error
}

// TimerService owns the authoritative in-memory TimerState. Storage is the
// source of truth across restarts, so every operation reloads it first.
type TimerService struct {
	mu sync.Mutex

	adapter  Adapter
	defaults TimerState
	state    TimerState

	// Callbacks
	onStateChange func(TimerState)
	onComplete    func(SegmentRecord)
}

// NewTimerService creates a service whose first-run state is CreateDefaultState
func NewTimerService(adapter Adapter) *TimerService {
	return NewTimerServiceWithDefaults(adapter, CreateDefaultState())
}

// NewTimerServiceWithDefaults creates a service with a custom first-run state
func NewTimerServiceWithDefaults(adapter Adapter, defaults TimerState) *TimerService {
	return &TimerService{
		adapter:  adapter,
		defaults: defaults.Clone(),
		state:    defaults.Clone(),
	}
}

// SetCallbacks sets the functions called after every persist and after every
// completed segment. Either may be nil.
func (ts *TimerService) SetCallbacks(onStateChange func(TimerState), onComplete func(SegmentRecord)) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.onStateChange = onStateChange
	ts.onComplete = onComplete
}

// Initialize reloads state, completes a segment that ran out while nobody was
// watching, and persists the result. Safe to call on every start.
func (ts *TimerService) Initialize(ctx context.Context) (TimerState, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.ensureInitialized(ctx); err != nil {
		return ts.state.Clone(), err
	}
	ts.completeIfOverdue(ctx, ts.adapter.Now())

	log.Printf("🔄 Timer initialized: mode=%s status=%s", ts.state.Mode, ts.state.Status)
	return ts.persist(ctx, ts.state)
}

// HandleMessage applies one popup request and returns the resulting state.
// Unknown or malformed messages leave the state untouched.
func (ts *TimerService) HandleMessage(ctx context.Context, msg Message) (TimerState, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.ensureInitialized(ctx); err != nil {
		return ts.state.Clone(), err
	}

	switch msg.Type {
	case MsgGetState:
		return ts.state.Clone(), nil

	case MsgSetCustom:
		durations, err := msg.Durations()
		if err != nil {
			log.Printf("⚠️ Ignoring %s: %v", msg.Type, err)
			return ts.state.Clone(), nil
		}
		return ts.persist(ctx, WithCustomDurations(ts.state, durations))

	case MsgSetSound:
		toggle, err := msg.Toggle()
		if err != nil {
			log.Printf("⚠️ Ignoring %s: %v", msg.Type, err)
			return ts.state.Clone(), nil
		}
		return ts.persist(ctx, WithSoundEnabled(ts.state, toggle.Enabled))

	case MsgSetNotifications:
		toggle, err := msg.Toggle()
		if err != nil {
			log.Printf("⚠️ Ignoring %s: %v", msg.Type, err)
			return ts.state.Clone(), nil
		}
		return ts.persist(ctx, WithNotificationsEnabled(ts.state, toggle.Enabled))

	case MsgStart:
		updated := ts.state
		if msg.HasPayload() {
			durations, err := msg.Durations()
			if err != nil {
				log.Printf("⚠️ Ignoring %s: %v", msg.Type, err)
				return ts.state.Clone(), nil
			}
			updated = WithCustomDurations(ts.state, durations)
		}
		mode := ts.startMode(msg.Mode)
		log.Printf("🚀 Starting %s segment (previous status: %s)", mode, ts.state.Status)
		return ts.persist(ctx, StartTimer(updated, ts.adapter.Now(), mode))

	case MsgPause:
		return ts.persist(ctx, PauseTimer(ts.state, ts.adapter.Now()))

	case MsgResume:
		return ts.persist(ctx, ResumeTimer(ts.state, ts.adapter.Now()))

	case MsgReset:
		return ts.persist(ctx, ResetTimer(ts.state))

	default:
		return ts.state.Clone(), nil
	}
}

// HandleAlarm is called when the wake-up alarm fires. It is the only path
// that moves a running segment to the next mode.
func (ts *TimerService) HandleAlarm(ctx context.Context) (TimerState, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.ensureInitialized(ctx); err != nil {
		return ts.state.Clone(), err
	}
	ts.completeIfOverdue(ctx, ts.adapter.Now())
	return ts.persist(ctx, ts.state)
}

// HandleNotificationClick starts the next segment right away when the timer
// is idle and does nothing otherwise
func (ts *TimerService) HandleNotificationClick(ctx context.Context) (TimerState, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.ensureInitialized(ctx); err != nil {
		return ts.state.Clone(), err
	}
	if !ts.state.IsIdle() {
		return ts.state.Clone(), nil
	}

	log.Printf("🔔 Notification clicked, starting %s segment", ts.state.Mode)
	return ts.persist(ctx, StartTimer(ts.state, ts.adapter.Now(), ts.state.Mode))
}

// GetState returns the last in-memory state without reloading storage
func (ts *TimerService) GetState() TimerState {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.state.Clone()
}

// Now exposes the adapter clock so callers can compute a live countdown
func (ts *TimerService) Now() int64 {
	return ts.adapter.Now()
}

func (ts *TimerService) startMode(requested *TimerMode) TimerMode {
	if requested == nil {
		return ts.state.Mode
	}
	mode, err := ParseMode(string(*requested))
	if err != nil {
		log.Printf("⚠️ Unknown start mode %q, keeping %s", *requested, ts.state.Mode)
		return ts.state.Mode
	}
	return mode
}

// ensureInitialized replaces the in-memory state with the stored one
func (ts *TimerService) ensureInitialized(ctx context.Context) error {
	stored, err := ts.adapter.GetStoredState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load timer state: %w", err)
	}
	if stored == nil {
		ts.state = ts.defaults.Clone()
		return nil
	}
	ts.state = stored.Clone()
	return nil
}

// completeIfOverdue finishes a running segment whose end has passed. Once the
// state is idle a repeat call is a no-op, so duplicate alarms are harmless.
func (ts *TimerService) completeIfOverdue(ctx context.Context, now int64) {
	if !IsOverdue(ts.state, now) {
		return
	}
	finished := ts.state
	ts.state = CompleteSegment(ts.state)
	onComplete(ctx, ts, finished, now)
}

// persist writes state and then points the alarm at its end, so storage and
// alarm always agree after any transition
func (ts *TimerService) persist(ctx context.Context, next TimerState) (TimerState, error) {
	ts.state = next

	if err := ts.adapter.SetStoredState(ctx, ts.state); err != nil {
		return ts.state.Clone(), fmt.Errorf("failed to save timer state: %w", err)
	}

	var when *int64
	if ts.state.IsRunning() && ts.state.EndAt != nil {
		when = copyMs(ts.state.EndAt)
	}
	if err := ts.adapter.ScheduleAlarm(ctx, when); err != nil {
		return ts.state.Clone(), fmt.Errorf("failed to schedule alarm: %w", err)
	}

	onStateChange(ts, ts.state)
	return ts.state.Clone(), nil
}
