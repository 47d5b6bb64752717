package events

import (
	"time"

	"winnow-be/pkg/staging"
)

const (
	TopicRunProgress = "RUN_PROGRESS"

	TypeRunProgress = "run_progress"
	TypeRunFinished = "run_finished"
)

// NewRunProgressEvent carries a progress snapshot. Terminal snapshots are
// typed run_finished so clients can stop polling.
func NewRunProgressEvent(p staging.Progress) Event {
	eventType := TypeRunProgress
	if p.Terminal() {
		eventType = TypeRunFinished
	}
	return BaseEvent{
		Type:       eventType,
		Data:       map[string]interface{}{"progress": p},
		OccurredAt: time.Now().UTC(),
	}
}
