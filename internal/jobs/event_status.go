package jobs

import (
	"context"
	"log/slog"
	"time"
)

// ScheduleAdvancer moves events along as their scheduled times pass
type ScheduleAdvancer interface {
	AdvanceScheduled(ctx context.Context, now time.Time) (int, error)
}

// EventStatusProcessor runs time-driven event status transitions
//   - published -> in_progress when scheduled_time is reached
//   - in_progress -> completed when the event's duration has elapsed
type EventStatusProcessor struct {
	*periodic
	lifecycle ScheduleAdvancer
	now       func() time.Time
}

// NewEventStatusProcessor creates a new event status processor job
func NewEventStatusProcessor(lifecycle ScheduleAdvancer, interval time.Duration, logger *slog.Logger) *EventStatusProcessor {
	if interval == 0 {
		interval = time.Minute
	}
	p := &EventStatusProcessor{lifecycle: lifecycle, now: time.Now}
	p.periodic = newPeriodic("event_status", interval, p.RunOnce, logger)
	p.startDelay = 5 * time.Second
	return p
}

// RunOnce applies every due transition once
func (p *EventStatusProcessor) RunOnce(ctx context.Context) error {
	n, err := p.lifecycle.AdvanceScheduled(ctx, p.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		p.logger.Info("event statuses advanced", slog.Int("count", n))
	}
	return nil
}
