// Package history records completed pomodoro segments and summarizes them.
package history

import (
	"context"
	"log"
	"time"

	"tomatoService/internal/clock"
)

// Recorder stores completed segments
type Recorder interface {
	Record(ctx context.Context, record clock.SegmentRecord) error
	Summary(ctx context.Context) (Summary, error)
	// Recent returns up to count of the latest segments, oldest first
	Recent(ctx context.Context, count int) ([]clock.SegmentRecord, error)
	Close() error
}

// Summary aggregates completed segments
type Summary struct {
	WorkSegments      int   `json:"workSegments"`
	BreakSegments     int   `json:"breakSegments"`
	WorkMs            int64 `json:"workMs"`
	BreakMs           int64 `json:"breakMs"`
	TodayWorkSegments int   `json:"todayWorkSegments"`
}

// Productivity returns the share of completed segments that were work, in percent
func (s Summary) Productivity() float64 {
	total := s.WorkSegments + s.BreakSegments
	if total == 0 {
		return 0.0
	}
	return float64(s.WorkSegments) / float64(total) * 100.0
}

// CompletionHook returns a callback for TimerService.SetCallbacks that records
// each segment without blocking the timer
func CompletionHook(recorder Recorder, timeout time.Duration) func(clock.SegmentRecord) {
	return func(record clock.SegmentRecord) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := recorder.Record(ctx, record); err != nil {
				log.Printf("Failed to record %s segment: %v", record.Mode, err)
			}
		}()
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
