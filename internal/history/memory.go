package history

import (
	"context"
	"sync"
	"time"

	"tomatoService/internal/clock"
)

// MemoryRecorder keeps completed segments in process memory
type MemoryRecorder struct {
	mu sync.RWMutex

	// Segment completion counts
	totalWorkSegments  int
	totalBreakSegments int

	// Timing statistics
	totalWorkMs  int64
	totalBreakMs int64

	history []clock.SegmentRecord
	now     func() time.Time
}

// NewMemoryRecorder creates an empty recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		history: make([]clock.SegmentRecord, 0),
		now:     time.Now,
	}
}

// Record stores a completed segment
func (mr *MemoryRecorder) Record(_ context.Context, record clock.SegmentRecord) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	mr.history = append(mr.history, record)

	switch record.Mode {
	case clock.ModeWork:
		mr.totalWorkSegments++
		mr.totalWorkMs += record.DurationMs
	case clock.ModeBreak:
		mr.totalBreakSegments++
		mr.totalBreakMs += record.DurationMs
	}
	return nil
}

// Summary returns totals plus the number of work segments completed today
func (mr *MemoryRecorder) Summary(_ context.Context) (Summary, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	today := startOfDay(mr.now())
	todayWork := 0
	for _, record := range mr.history {
		if record.Mode == clock.ModeWork && !record.CompletedAt.Before(today) {
			todayWork++
		}
	}

	return Summary{
		WorkSegments:      mr.totalWorkSegments,
		BreakSegments:     mr.totalBreakSegments,
		WorkMs:            mr.totalWorkMs,
		BreakMs:           mr.totalBreakMs,
		TodayWorkSegments: todayWork,
	}, nil
}

// Recent returns the most recent count segments, oldest first
func (mr *MemoryRecorder) Recent(_ context.Context, count int) ([]clock.SegmentRecord, error) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	if count <= 0 {
		return []clock.SegmentRecord{}, nil
	}
	if count > len(mr.history) {
		count = len(mr.history)
	}

	start := len(mr.history) - count
	recent := make([]clock.SegmentRecord, count)
	copy(recent, mr.history[start:])
	return recent, nil
}

// Close is a no-op
func (mr *MemoryRecorder) Close() error {
	return nil
}
