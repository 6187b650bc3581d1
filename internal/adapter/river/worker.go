package river

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

// EventWorker processes lifecycle event jobs from the River queue.
// For now it logs the event; future versions will dispatch to
// webhooks, billing, or notification systems.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]

	log zerolog.Logger
}

// NewEventWorker creates a worker that records processed events on the
// given logger.
func NewEventWorker(log zerolog.Logger) *EventWorker {
	return &EventWorker{log: log}
}

// Work processes a single event job.
func (w *EventWorker) Work(_ context.Context, job *river.Job[EventJobArgs]) error {
	w.log.Info().
		Str("event", job.Args.Event).
		Str("tenant_id", job.Args.TenantID).
		Str("tenant_db", job.Args.DatabaseName).
		Str("status", job.Args.Status).
		Int64("job_id", job.ID).
		Int("attempt", job.Attempt).
		Msg("processing lifecycle event")
	return nil
}
