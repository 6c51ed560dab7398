package appointment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gotodobbs/assistant/internal/metrics"
	"github.com/gotodobbs/assistant/internal/storage"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("appointment not found")

// Store is the persistence the service needs. *storage.Store satisfies it.
type Store interface {
	SaveAppointment(a storage.Appointment) error
	GetAppointment(id string) (storage.Appointment, error)
	ListAppointments(limit int) ([]storage.Appointment, error)
	EnqueueJob(job storage.Job) error
}

// LeadExportPayload is the job payload for LeadExportJobType.
type LeadExportPayload struct {
	AppointmentID string `json:"appointment_id"`
}

// Service creates and reads appointments.
type Service struct {
	store       Store
	exportLeads bool
	now         func() time.Time
	logger      *slog.Logger
}

type ServiceOption func(*Service)

// WithLeadExport enqueues a lead export job for each new appointment.
func WithLeadExport(enabled bool) ServiceOption {
	return func(s *Service) { s.exportLeads = enabled }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates req, stores it with a fresh id and timestamp, and
// returns the stored record. Validation failures satisfy errors.Is(err, ErrInvalid).
func (s *Service) Create(req Request) (Record, error) {
	clean, err := Validate(req)
	if err != nil {
		metrics.AppointmentsRejected.Inc()
		return Record{}, err
	}

	rec := Record{
		ID:        uuid.New().String(),
		CreatedAt: s.now().UTC(),
		Request:   clean,
	}
	if err := s.store.SaveAppointment(rec.toStorage()); err != nil {
		return Record{}, fmt.Errorf("saving appointment: %w", err)
	}
	metrics.AppointmentsCreated.Inc()
	s.logger.Info("appointment created", "id", rec.ID, "location", rec.Location, "service", rec.ServiceType)

	if s.exportLeads {
		// The appointment is already stored; a queue failure only delays the export.
		if err := s.enqueueExport(rec.ID); err != nil {
			s.logger.Error("enqueueing lead export", "id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

func (s *Service) enqueueExport(id string) error {
	payload, err := json.Marshal(LeadExportPayload{AppointmentID: id})
	if err != nil {
		return err
	}
	return s.store.EnqueueJob(storage.Job{
		ID:          uuid.New().String(),
		Type:        LeadExportJobType,
		PayloadJSON: string(payload),
	})
}

// Get returns the appointment with id, or ErrNotFound.
func (s *Service) Get(id string) (Record, error) {
	a, err := s.store.GetAppointment(id)
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading appointment %s: %w", id, err)
	}
	return FromStorage(a), nil
}

// List returns appointments newest first. A limit <= 0 returns all of them.
func (s *Service) List(limit int) ([]Record, error) {
	rows, err := s.store.ListAppointments(limit)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	out := make([]Record, len(rows))
	for i, a := range rows {
		out[i] = FromStorage(a)
	}
	return out, nil
}
