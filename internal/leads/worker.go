package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gotodobbs/assistant/internal/appointment"
	"github.com/gotodobbs/assistant/internal/metrics"
	"github.com/gotodobbs/assistant/internal/storage"
)

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetAppointment(id string) (storage.Appointment, error)
}

// Sink receives exported records. *File satisfies it.
type Sink interface {
	Upsert(rec appointment.Record) error
}

// Worker processes lead_export jobs from the SQLite job queue.
type Worker struct {
	store  JobStore
	sink   Sink
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, sink Sink, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		sink:   sink,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("lead export worker started", "poll", w.poll)
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("lead export iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single lead_export job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{appointment.LeadExportJobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.export(job); err != nil {
		metrics.LeadExports.WithLabelValues("error").Inc()
		w.logger.Warn("lead export failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	metrics.LeadExports.WithLabelValues("ok").Inc()
	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) export(job *storage.Job) error {
	var payload appointment.LeadExportPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.AppointmentID == "" {
		return fmt.Errorf("payload has no appointment_id")
	}

	a, err := w.store.GetAppointment(payload.AppointmentID)
	if err != nil {
		return fmt.Errorf("loading appointment %s: %w", payload.AppointmentID, err)
	}
	if err := w.sink.Upsert(appointment.FromStorage(a)); err != nil {
		return fmt.Errorf("writing lead: %w", err)
	}
	return nil
}
