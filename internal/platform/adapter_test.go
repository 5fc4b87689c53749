package platform

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tomatoService/internal/clock"
	"tomatoService/internal/events"
)

type published struct {
	eventType events.EventType
	data      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (fp *fakePublisher) Publish(eventType events.EventType, data any) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.events = append(fp.events, published{eventType: eventType, data: data})
}

func (fp *fakePublisher) all() []published {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	out := make([]published, len(fp.events))
	copy(out, fp.events)
	return out
}

func TestAdapterStorage(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(NewMemoryStore(), NewAlarmManager(), &fakePublisher{})
	defer adapter.Close()

	stored, err := adapter.GetStoredState(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	state := clock.CreateDefaultState()
	require.NoError(t, adapter.SetStoredState(ctx, state))

	stored, err = adapter.GetStoredState(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, state, *stored)
}

func TestAdapterNow(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore(), NewAlarmManager(), nil)
	fixed := time.UnixMilli(1_700_000_000_123)
	adapter.now = func() time.Time { return fixed }

	assert.Equal(t, int64(1_700_000_000_123), adapter.Now())
}

func TestAdapterScheduleAlarm(t *testing.T) {
	ctx := context.Background()
	alarms := NewAlarmManager()
	adapter := NewAdapter(NewMemoryStore(), alarms, &fakePublisher{})
	defer adapter.Close()

	first := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, adapter.ScheduleAlarm(ctx, &first))
	second := first + 60_000
	require.NoError(t, adapter.ScheduleAlarm(ctx, &second))

	when, ok := alarms.Get(clock.AlarmName)
	require.True(t, ok)
	assert.Equal(t, second, when, "scheduling replaces the previous alarm")

	require.NoError(t, adapter.ScheduleAlarm(ctx, nil))
	_, ok = alarms.Get(clock.AlarmName)
	assert.False(t, ok, "nil clears the alarm")
}

func TestAdapterNotifyAndPlaySound(t *testing.T) {
	ctx := context.Background()
	publisher := &fakePublisher{}
	adapter := NewAdapter(NewMemoryStore(), NewAlarmManager(), publisher)

	require.NoError(t, adapter.Notify(ctx, "Break complete", "Time to focus."))
	require.NoError(t, adapter.PlaySound(ctx))

	got := publisher.all()
	require.Len(t, got, 2)

	assert.Equal(t, events.EventNotification, got[0].eventType)
	notification, ok := got[0].data.(NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, NotificationID, notification.ID)
	assert.Equal(t, "Break complete", notification.Title)
	assert.Equal(t, "Time to focus.", notification.Message)

	assert.Equal(t, events.EventSound, got[1].eventType)
	assert.Equal(t, DefaultChime, got[1].data)
}

func TestAdapterWithoutPublisher(t *testing.T) {
	adapter := NewAdapter(NewMemoryStore(), NewAlarmManager(), nil)

	assert.Error(t, adapter.Notify(context.Background(), "t", "m"))
	assert.Error(t, adapter.PlaySound(context.Background()))
}

// The service and the alarm manager wired the way cmd/main does it
func TestAdapterDrivesServiceCompletion(t *testing.T) {
	ctx := context.Background()
	publisher := &fakePublisher{}
	alarms := NewAlarmManager()
	adapter := NewAdapter(NewMemoryStore(), alarms, publisher)
	defer adapter.Close()

	// The segment starts 25 minutes in the past so it is due as soon as the
	// alarm is armed. The offset goes back to zero before the alarm handler
	// can take the service lock.
	var offset atomic.Int64
	offset.Store(int64(-25 * time.Minute))
	adapter.now = func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }

	service := clock.NewTimerService(adapter)
	service.SetCallbacks(func(clock.TimerState) { offset.Store(0) }, nil)

	done := make(chan clock.TimerState, 1)
	alarms.OnAlarm(func(name string) {
		if name != clock.AlarmName {
			return
		}
		state, err := service.HandleAlarm(ctx)
		assert.NoError(t, err)
		done <- state
	})

	_, err := service.HandleMessage(ctx, clock.Message{Type: clock.MsgStart})
	require.NoError(t, err)

	select {
	case state := <-done:
		assert.Equal(t, clock.ModeBreak, state.Mode)
		assert.Equal(t, clock.StatusIdle, state.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for completion")
	}

	var types []events.EventType
	for _, p := range publisher.all() {
		types = append(types, p.eventType)
	}
	assert.Equal(t, []events.EventType{events.EventNotification, events.EventSound}, types)
}
