package bridge

import (
	"context"
	"log/slog"
	"time"

	"mhurbridge/pkg/bus"
)

func observeEvents(ctx context.Context, events *bus.Bus, log *slog.Logger) {
	sub, unsubscribe := events.Subscribe(ctx, 32)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			LogEvent(log, event)
		}
	}
}

// LogEvent writes one lifecycle event with a stable attribute set. Failures
// log at error level, superseded and malformed jobs at warn.
func LogEvent(log *slog.Logger, event bus.Event) {
	attrs := []any{
		"event_type", event.Type,
		"job_id", event.JobID,
		"asset", event.Asset,
		"timestamp", event.At.UTC().Format(time.RFC3339Nano),
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, "payload", event.Payload)
	}

	switch event.Type {
	case bus.EventJobFailed:
		log.Error("Job event", append(attrs, "error", event.Error)...)
	case bus.EventJobMalformed:
		log.Warn("Job event", append(attrs, "error", event.Error)...)
	case bus.EventJobSuperseded:
		log.Warn("Job event", attrs...)
	case bus.EventJobReceived, bus.EventJobCompleted:
		log.Info("Job event", attrs...)
	default:
		log.Debug("Job event", attrs...)
	}
}
