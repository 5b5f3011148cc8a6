package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/psipractice/booking-api/internal/events"
	"github.com/psipractice/booking-api/internal/identity"
	"github.com/psipractice/booking-api/internal/observability/metrics"
	"github.com/psipractice/booking-api/internal/users"
	"github.com/psipractice/booking-api/pkg/logging"
)

var sessionsTracer = otel.Tracer("booking.internal.sessions")

// DefaultDuration is the practice's standard session length.
const DefaultDuration = 40 * time.Minute

// Notifier records booking lifecycle events for later email delivery.
// Failures are logged by the service and never fail the operation.
type Notifier interface {
	BookingRequested(ctx context.Context, ev events.BookingEvent) error
	BookingConfirmed(ctx context.Context, ev events.BookingEvent) error
	BookingCancelled(ctx context.Context, ev events.BookingEvent) error
}

// UserDirectory resolves patient details for notifications. The users
// repository satisfies it.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// Service implements the session lifecycle on top of the repository.
type Service struct {
	repo     Repository
	notifier Notifier
	users    UserDirectory
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	duration time.Duration

	now func() time.Time
}

func NewService(repo Repository, notifier Notifier, users UserDirectory, m *metrics.BookingMetrics, logger *logging.Logger, duration time.Duration) *Service {
	if repo == nil {
		panic("sessions: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		users:    users,
		metrics:  m,
		logger:   logger,
		duration: duration,
		now:      time.Now,
	}
}

// Create validates and inserts a new PENDING session. A patient creating
// their own session triggers a booking-requested notification.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	ctx, span := sessionsTracer.Start(ctx, "sessions.create")
	defer span.End()

	if !req.StartTime.After(s.now()) {
		return nil, ErrStartNotFuture
	}
	end := req.StartTime.Add(s.duration)
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if !end.After(req.StartTime) {
		return nil, ErrEndBeforeStart
	}
	if req.UserID != nil && s.users != nil {
		if _, err := s.users.GetByID(ctx, *req.UserID); err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				return nil, ErrPatientNotFound
			}
			span.RecordError(err)
			return nil, fmt.Errorf("sessions: resolve patient: %w", err)
		}
	}

	session, err := s.repo.Create(ctx, &Session{
		UserID:    req.UserID,
		StartTime: req.StartTime,
		EndTime:   end,
		Status:    StatusPending,
		Details:   req.Details,
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.session_id", session.ID))
	s.metrics.ObserveLifecycle(string(session.Status))
	s.logger.Info("session created", "session_id", session.ID, "start", session.StartTime)

	if session.UserID != nil {
		s.notify(ctx, session, events.TypeBookingRequested)
	}
	return session, nil
}

// Claim attaches the patient to an unclaimed pending session and confirms it.
func (s *Service) Claim(ctx context.Context, id, userID, details string) (*Session, error) {
	ctx, span := sessionsTracer.Start(ctx, "sessions.claim")
	defer span.End()
	span.SetAttributes(attribute.String("booking.session_id", id))

	session, err := s.repo.Claim(ctx, id, userID, details)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotAlreadyTaken) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}
	s.metrics.ObserveLifecycle(string(session.Status))
	s.logger.Info("session claimed", "session_id", session.ID, "user_id", userID)

	s.notify(ctx, session, events.TypeBookingConfirmed)
	return session, nil
}

// Transition moves a session to a new status under the lifecycle rules.
// Re-entering the current status is an idempotent no-op.
func (s *Service) Transition(ctx context.Context, id string, to Status, observations *string) (*Session, error) {
	ctx, span := sessionsTracer.Start(ctx, "sessions.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.session_id", id),
		attribute.String("booking.target_status", string(to)),
	)

	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	if !CanTransition(current.Status, to) {
		return nil, ErrInvalidTransition
	}

	session, err := s.repo.TransitionStatus(ctx, id, current.Status, to, observations)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveLifecycle(string(session.Status))
	s.logger.Info("session transitioned", "session_id", session.ID, "from", current.Status, "to", to)

	if session.UserID != nil {
		switch to {
		case StatusConfirmed:
			s.notify(ctx, session, events.TypeBookingConfirmed)
		case StatusCancelled:
			s.notify(ctx, session, events.TypeBookingCancelled)
		}
	}
	return session, nil
}

// Reschedule moves a session to a new time window and optionally replaces
// its details. Nil fields keep the current values; the move runs the same
// conflict check creation does.
func (s *Service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Session, error) {
	ctx, span := sessionsTracer.Start(ctx, "sessions.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("booking.session_id", id))

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start, end := current.StartTime, current.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if !end.After(start) {
		return nil, ErrEndBeforeStart
	}

	session, err := s.repo.Reschedule(ctx, id, start, end, req.Details)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}
	s.logger.Info("session rescheduled", "session_id", session.ID, "start", session.StartTime)
	return session, nil
}

// Delete removes a session outright. A patient who had the slot gets a
// cancellation notification.
func (s *Service) Delete(ctx context.Context, id string) (*Session, error) {
	ctx, span := sessionsTracer.Start(ctx, "sessions.delete")
	defer span.End()
	span.SetAttributes(attribute.String("booking.session_id", id))

	session, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("session deleted", "session_id", session.ID)

	if session.UserID != nil {
		s.notify(ctx, session, events.TypeBookingCancelled)
	}
	return session, nil
}

// GetByID returns a single session.
func (s *Service) GetByID(ctx context.Context, id string) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFor returns every session for admins and only the caller's own
// sessions for patients.
func (s *Service) ListFor(ctx context.Context, id identity.Identity) ([]*Session, error) {
	if id.IsAdmin() {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListByUser(ctx, id.UserID)
}

func (s *Service) notify(ctx context.Context, session *Session, eventType string) {
	if s.notifier == nil {
		return
	}
	ev := events.BookingEvent{
		SessionID:  session.ID,
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
		Details:    session.Details,
		OccurredAt: s.now().UTC(),
	}
	if session.UserID != nil && s.users != nil {
		if patient, err := s.users.GetByID(ctx, *session.UserID); err == nil {
			ev.PatientName = patient.FullName()
			ev.PatientEmail = patient.Email
			ev.PatientPhone = patient.Phone
		} else {
			s.logger.Error("failed to resolve patient for notification", "error", err, "session_id", session.ID)
		}
	}
	var err error
	switch eventType {
	case events.TypeBookingRequested:
		err = s.notifier.BookingRequested(ctx, ev)
	case events.TypeBookingConfirmed:
		err = s.notifier.BookingConfirmed(ctx, ev)
	case events.TypeBookingCancelled:
		err = s.notifier.BookingCancelled(ctx, ev)
	}
	if err != nil {
		s.logger.Error("failed to enqueue notification", "error", err, "session_id", session.ID, "type", eventType)
	}
}
