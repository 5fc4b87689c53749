package platform

import (
	"context"
	"fmt"
	"log"
	"time"

	"tomatoService/internal/clock"
	"tomatoService/internal/events"
)

// NotificationID identifies the completion notification; clicks carrying any
// other id are ignored
const NotificationID = "pomodoro-complete"

// Publisher delivers events to the popup clients
type Publisher interface {
	Publish(eventType events.EventType, data any)
}

// NotificationEvent is the payload of a notification event
type NotificationEvent struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	IconURL string `json:"iconUrl"`
}

// Chime describes the completion sound clients synthesize: rising sine notes
// started StepMs apart, each lasting NoteMs
type Chime struct {
	Notes  []float64 `json:"notes"`
	StepMs int       `json:"stepMs"`
	NoteMs int       `json:"noteMs"`
	Gain   float64   `json:"gain"`
}

// DefaultChime is a C major arpeggio (C5, E5, G5)
var DefaultChime = Chime{
	Notes:  []float64{523.25, 659.25, 783.99},
	StepMs: 120,
	NoteMs: 400,
	Gain:   0.35,
}

// Adapter implements clock.Adapter on top of a StateStore, an AlarmManager
// and an event Publisher
type Adapter struct {
	store     StateStore
	alarms    *AlarmManager
	publisher Publisher
	now       func() time.Time
}

// NewAdapter creates the server-side platform adapter
func NewAdapter(store StateStore, alarms *AlarmManager, publisher Publisher) *Adapter {
	return &Adapter{
		store:     store,
		alarms:    alarms,
		publisher: publisher,
		now:       time.Now,
	}
}

var _ clock.Adapter = (*Adapter)(nil)

// Now returns the wall clock in milliseconds
func (a *Adapter) Now() int64 {
	return a.now().UnixMilli()
}

// GetStoredState loads the timer state from the store
func (a *Adapter) GetStoredState(ctx context.Context) (*clock.TimerState, error) {
	return a.store.Load(ctx)
}

// SetStoredState saves the timer state to the store
func (a *Adapter) SetStoredState(ctx context.Context, state clock.TimerState) error {
	return a.store.Save(ctx, state)
}

// ScheduleAlarm clears the pomodoro alarm and, when when is set, creates it again
func (a *Adapter) ScheduleAlarm(_ context.Context, when *int64) error {
	if a.alarms == nil {
		return fmt.Errorf("alarm manager not initialized")
	}
	a.alarms.Clear(clock.AlarmName)
	if when != nil {
		a.alarms.Create(clock.AlarmName, *when)
	}
	return nil
}

// Notify pushes a notification event to the popup clients
func (a *Adapter) Notify(_ context.Context, title, message string) error {
	if a.publisher == nil {
		return fmt.Errorf("event publisher not initialized")
	}
	log.Printf("🔔 %s: %s", title, message)
	a.publisher.Publish(events.EventNotification, NotificationEvent{
		ID:      NotificationID,
		Title:   title,
		Message: message,
		IconURL: "icon/128.png",
	})
	return nil
}

// PlaySound asks the popup clients to play the completion chime
func (a *Adapter) PlaySound(_ context.Context) error {
	if a.publisher == nil {
		return fmt.Errorf("event publisher not initialized")
	}
	a.publisher.Publish(events.EventSound, DefaultChime)
	return nil
}

// Close releases the store and cancels pending alarms
func (a *Adapter) Close() error {
	if a.alarms != nil {
		a.alarms.StopAll()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
