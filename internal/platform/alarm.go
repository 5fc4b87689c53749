package platform

import (
	"log"
	"sync"
	"time"
)

// AlarmListener is called with the name of an alarm when it fires
type AlarmListener func(name string)

type alarm struct {
	when  int64
	timer *time.Timer
}

// AlarmManager schedules named one-shot wake-ups. Creating an alarm replaces
// any pending alarm with the same name.
type AlarmManager struct {
	mu sync.Mutex

	alarms    map[string]*alarm
	listeners []AlarmListener
	now       func() time.Time
}

// NewAlarmManager creates an alarm manager driven by the wall clock
func NewAlarmManager() *AlarmManager {
	return &AlarmManager{
		alarms: make(map[string]*alarm),
		now:    time.Now,
	}
}

// OnAlarm registers a listener for every alarm that fires
func (am *AlarmManager) OnAlarm(listener AlarmListener) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.listeners = append(am.listeners, listener)
}

// Create schedules name to fire at when (milliseconds since the epoch). A
// time in the past fires as soon as possible.
func (am *AlarmManager) Create(name string, when int64) {
	am.mu.Lock()
	defer am.mu.Unlock()

	// Clean up any existing alarm
	am.clearLocked(name)

	delay := time.UnixMilli(when).Sub(am.now())
	if delay < 0 {
		delay = 0
	}

	a := &alarm{when: when}
	a.timer = time.AfterFunc(delay, func() {
		am.fire(name, a)
	})
	am.alarms[name] = a

	log.Printf("⏰ Alarm %q scheduled in %v", name, delay.Round(time.Millisecond))
}

// Clear cancels name and reports whether an alarm was pending
func (am *AlarmManager) Clear(name string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	return am.clearLocked(name)
}

// Get returns the scheduled time of name
func (am *AlarmManager) Get(name string) (int64, bool) {
	am.mu.Lock()
	defer am.mu.Unlock()

	a, ok := am.alarms[name]
	if !ok {
		return 0, false
	}
	return a.when, true
}

// StopAll cancels every pending alarm
func (am *AlarmManager) StopAll() {
	am.mu.Lock()
	defer am.mu.Unlock()

	for name := range am.alarms {
		am.clearLocked(name)
	}
}

func (am *AlarmManager) clearLocked(name string) bool {
	a, ok := am.alarms[name]
	if !ok {
		return false
	}
	a.timer.Stop()
	delete(am.alarms, name)
	return true
}

// fire runs the listeners outside the lock so they may reschedule
func (am *AlarmManager) fire(name string, a *alarm) {
	am.mu.Lock()
	current, ok := am.alarms[name]
	if !ok || current != a {
		// Replaced or cleared after the timer had already started firing
		am.mu.Unlock()
		return
	}
	delete(am.alarms, name)
	listeners := make([]AlarmListener, len(am.listeners))
	copy(listeners, am.listeners)
	am.mu.Unlock()

	log.Printf("⏰ Alarm %q fired", name)
	for _, listener := range listeners {
		listener(name)
	}
}
