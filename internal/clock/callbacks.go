package clock

import (
	"context"
	"log"
	"time"
)

// Notification is the title/message pair shown when a segment finishes
type Notification struct {
	Title   string
	Message string
}

// SegmentRecord describes one completed segment
type SegmentRecord struct {
	Mode        TimerMode `json:"mode"`
	DurationMs  int64     `json:"durationMs"`
	CompletedAt time.Time `json:"completedAt"`
}

// BuildNotification returns the copy for a segment of mode that just finished
func BuildNotification(finished TimerMode) Notification {
	if finished == ModeWork {
		return Notification{Title: "Work session complete", Message: "Time for a break."}
	}
	return Notification{Title: "Break complete", Message: "Time to focus."}
}

// onComplete fires the side effects of a finished segment. Notification and
// sound are gated independently; failures are logged so the completed state
// still gets persisted and the segment is never completed twice.
func onComplete(ctx context.Context, ts *TimerService, finished TimerState, now int64) {
	if finished.NotificationsEnabled {
		n := BuildNotification(finished.Mode)
		if err := ts.adapter.Notify(ctx, n.Title, n.Message); err != nil {
			log.Printf("⚠️ Failed to send %s completion notification: %v", finished.Mode, err)
		}
	}

	if finished.SoundEnabled {
		if err := ts.adapter.PlaySound(ctx); err != nil {
			log.Printf("⚠️ Failed to play completion sound: %v", err)
		}
	}

	if ts.onComplete != nil {
		ts.onComplete(SegmentRecord{
			Mode:        finished.Mode,
			DurationMs:  finished.DurationMs,
			CompletedAt: time.UnixMilli(now),
		})
	}

	log.Printf("✅ Completed %s segment (%s)", finished.Mode, FormatDuration(finished.DurationMs))
}

func onStateChange(ts *TimerService, state TimerState) {
	if ts.onStateChange != nil {
		ts.onStateChange(state.Clone())
	}
}
