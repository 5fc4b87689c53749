package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"

	"tomatoService/internal/clock"
)

// DefaultStateKey is the Redis key holding the timer state hash
const DefaultStateKey = "timerState"

// Hash fields of the stored state. One field per top-level TimerState field,
// nested values are JSON encoded.
const (
	fieldMode                 = "mode"
	fieldStatus               = "status"
	fieldDurationMs           = "durationMs"
	fieldRemainingMs          = "remainingMs"
	fieldEndAt                = "endAt"
	fieldPreset               = "preset"
	fieldCustom               = "custom"
	fieldSoundEnabled         = "soundEnabled"
	fieldNotificationsEnabled = "notificationsEnabled"
)

// RedisStore keeps the timer state in a single Redis hash
type RedisStore struct {
	client   *redis.Client
	key      string
	defaults clock.TimerState
}

// NewRedisStore connects to Redis and returns a store for key. Fields missing
// from the stored hash are taken from defaults.
func NewRedisStore(ctx context.Context, addr, key string, defaults clock.TimerState) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if key == "" {
		key = DefaultStateKey
	}

	log.Printf("✅ Connected to Redis at %s", addr)
	return &RedisStore{
		client:   client,
		key:      key,
		defaults: defaults.Clone(),
	}, nil
}

// Close closes the Redis connection
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// Save writes every field of state to the hash
func (rs *RedisStore) Save(ctx context.Context, state clock.TimerState) error {
	fields, err := encodeStateFields(state)
	if err != nil {
		return err
	}

	if err := rs.client.HSet(ctx, rs.key, fields).Err(); err != nil {
		return fmt.Errorf("%w: failed to save timer state to Redis: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads the hash back. It returns nil when nothing has been stored yet.
func (rs *RedisStore) Load(ctx context.Context) (*clock.TimerState, error) {
	result, err := rs.client.HGetAll(ctx, rs.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load timer state from Redis: %w", ErrStoreUnavailable, err)
	}

	if len(result) == 0 {
		return nil, nil
	}

	state := decodeStateFields(rs.defaults, result)
	return &state, nil
}

// Delete removes the stored state
func (rs *RedisStore) Delete(ctx context.Context) error {
	if err := rs.client.Del(ctx, rs.key).Err(); err != nil {
		return fmt.Errorf("failed to delete timer state from Redis: %w", err)
	}
	return nil
}

func encodeStateFields(state clock.TimerState) (map[string]interface{}, error) {
	preset, err := json.Marshal(state.Preset)
	if err != nil {
		return nil, fmt.Errorf("encode preset: %w", err)
	}
	custom, err := json.Marshal(state.Custom)
	if err != nil {
		return nil, fmt.Errorf("encode custom: %w", err)
	}

	return map[string]interface{}{
		fieldMode:                 string(state.Mode),
		fieldStatus:               string(state.Status),
		fieldDurationMs:           state.DurationMs,
		fieldRemainingMs:          formatOptionalMs(state.RemainingMs),
		fieldEndAt:                formatOptionalMs(state.EndAt),
		fieldPreset:               string(preset),
		fieldCustom:               string(custom),
		fieldSoundEnabled:         strconv.FormatBool(state.SoundEnabled),
		fieldNotificationsEnabled: strconv.FormatBool(state.NotificationsEnabled),
	}, nil
}

// decodeStateFields overlays the stored fields on defaults. The overlay is
// shallow: a stored preset or custom object replaces the default one whole.
func decodeStateFields(defaults clock.TimerState, result map[string]string) clock.TimerState {
	state := defaults.Clone()
	repairs := 0

	if raw, ok := result[fieldMode]; ok {
		if mode, err := clock.ParseMode(raw); err == nil {
			state.Mode = mode
		} else {
			log.Printf("⚠️ Invalid mode '%s' in Redis, keeping '%s'", raw, state.Mode)
			repairs++
		}
	}

	if raw, ok := result[fieldStatus]; ok {
		if status, err := clock.ParseStatus(raw); err == nil {
			state.Status = status
		} else {
			log.Printf("⚠️ Invalid status '%s' in Redis, keeping '%s'", raw, state.Status)
			repairs++
		}
	}

	if raw, ok := result[fieldDurationMs]; ok {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v >= 0 {
			state.DurationMs = v
		} else {
			log.Printf("⚠️ Invalid durationMs '%s' in Redis, keeping %d", raw, state.DurationMs)
			repairs++
		}
	}

	if raw, ok := result[fieldRemainingMs]; ok {
		v, err := parseOptionalMs(raw)
		if err != nil {
			log.Printf("⚠️ Invalid remainingMs '%s' in Redis: %v", raw, err)
			repairs++
		}
		state.RemainingMs = v
	}

	if raw, ok := result[fieldEndAt]; ok {
		v, err := parseOptionalMs(raw)
		if err != nil {
			log.Printf("⚠️ Invalid endAt '%s' in Redis: %v", raw, err)
			repairs++
		}
		state.EndAt = v
	}

	if raw, ok := result[fieldPreset]; ok {
		var preset clock.TimerDurations
		if err := json.Unmarshal([]byte(raw), &preset); err == nil {
			state.Preset = preset
		} else {
			log.Printf("⚠️ Invalid preset in Redis: %v", err)
			repairs++
		}
	}

	if raw, ok := result[fieldCustom]; ok {
		var custom clock.TimerDurations
		if err := json.Unmarshal([]byte(raw), &custom); err == nil {
			state.Custom = custom
		} else {
			log.Printf("⚠️ Invalid custom durations in Redis: %v", err)
			repairs++
		}
	}

	if raw, ok := result[fieldSoundEnabled]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			state.SoundEnabled = v
		}
	}

	if raw, ok := result[fieldNotificationsEnabled]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			state.NotificationsEnabled = v
		}
	}

	repairs += validateAndRepairState(&state)
	if repairs > 0 {
		log.Printf("🔧 Repaired %d inconsistencies in Redis state", repairs)
	}

	return state
}

// validateAndRepairState restores the custom range and the status/timestamp
// pairing a loaded state must satisfy
func validateAndRepairState(state *clock.TimerState) int {
	repairs := 0

	clamped := clock.TimerDurations{
		Work:  clock.ClampMinutes(float64(state.Custom.Work)),
		Break: clock.ClampMinutes(float64(state.Custom.Break)),
	}
	if clamped != state.Custom {
		log.Printf("⚠️ Custom durations %+v out of range, clamping to %+v", state.Custom, clamped)
		state.Custom = clamped
		repairs++
	}

	switch state.Status {
	case clock.StatusIdle:
		if state.EndAt != nil || state.RemainingMs != nil {
			log.Printf("⚠️ Idle state has endAt/remainingMs set, clearing")
			state.EndAt = nil
			state.RemainingMs = nil
			repairs++
		}
	case clock.StatusRunning:
		if state.EndAt == nil {
			log.Printf("⚠️ Running state without endAt, resetting to idle")
			*state = clock.ResetTimer(*state)
			repairs++
		} else if state.RemainingMs != nil {
			state.RemainingMs = nil
			repairs++
		}
	case clock.StatusPaused:
		if state.RemainingMs == nil {
			log.Printf("⚠️ Paused state without remainingMs, resetting to idle")
			*state = clock.ResetTimer(*state)
			repairs++
		} else if state.EndAt != nil {
			state.EndAt = nil
			repairs++
		}
	}

	return repairs
}

func formatOptionalMs(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func parseOptionalMs(raw string) (*int64, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	if v < 0 {
		return nil, fmt.Errorf("negative value %d", v)
	}
	return &v, nil
}
