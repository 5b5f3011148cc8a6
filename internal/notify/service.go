package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/psipractice/booking-api/internal/events"
	"github.com/psipractice/booking-api/internal/observability/metrics"
	"github.com/psipractice/booking-api/pkg/logging"
)

// Service renders booking events into emails. It implements
// events.DeliveryHandler; returning an error leaves the entry pending so the
// deliverer retries it on the next poll.
type Service struct {
	sender       EmailSender
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
	practiceName string
	adminEmail   string
	loc          *time.Location
}

func NewService(sender EmailSender, m *metrics.BookingMetrics, logger *logging.Logger, practiceName, adminEmail string, loc *time.Location) *Service {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		sender:       sender,
		metrics:      m,
		logger:       logger,
		practiceName: practiceName,
		adminEmail:   adminEmail,
		loc:          loc,
	}
}

// Handle renders and sends the emails for one outbox entry.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	var ev events.BookingEvent
	if err := json.Unmarshal(entry.Payload, &ev); err != nil {
		// A malformed payload will never succeed; drop it instead of
		// retrying forever.
		s.logger.Error("dropping malformed booking event", "error", err, "event_id", entry.ID)
		s.metrics.ObserveNotification(entry.Type, "dropped")
		return nil
	}

	var err error
	switch entry.Type {
	case events.TypeBookingRequested:
		err = s.sendRequested(ctx, ev)
	case events.TypeBookingConfirmed:
		err = s.sendConfirmed(ctx, ev)
	case events.TypeBookingCancelled:
		err = s.sendCancelled(ctx, ev)
	default:
		s.logger.Warn("unknown booking event type", "type", entry.Type, "event_id", entry.ID)
		s.metrics.ObserveNotification(entry.Type, "dropped")
		return nil
	}

	if err != nil {
		s.metrics.ObserveNotification(entry.Type, "failed")
		return err
	}
	s.metrics.ObserveNotification(entry.Type, "delivered")
	return nil
}

func (s *Service) sendRequested(ctx context.Context, ev events.BookingEvent) error {
	if s.adminEmail == "" {
		return nil
	}
	body := fmt.Sprintf(
		"A new session request has arrived.\n\n%s\nPatient: %s (%s)\n",
		s.formatSlot(ev), ev.PatientName, ev.PatientEmail)
	if ev.PatientPhone != "" {
		body += fmt.Sprintf("Phone: %s\n", ev.PatientPhone)
	}
	if ev.Details != "" {
		body += fmt.Sprintf("Details: %s\n", ev.Details)
	}
	return s.sender.Send(ctx, EmailMessage{
		To:      s.adminEmail,
		Subject: fmt.Sprintf("New session request - %s", s.formatDate(ev.StartTime)),
		Body:    body,
	})
}

func (s *Service) sendConfirmed(ctx context.Context, ev events.BookingEvent) error {
	if ev.PatientEmail != "" {
		body := fmt.Sprintf(
			"Hello %s,\n\nYour session at %s is confirmed.\n\n%s\nWe look forward to seeing you.\n",
			ev.PatientName, s.practiceName, s.formatSlot(ev))
		msg := EmailMessage{
			To:      ev.PatientEmail,
			ToName:  ev.PatientName,
			Subject: fmt.Sprintf("Session confirmed - %s", s.formatDate(ev.StartTime)),
			Body:    body,
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			return err
		}
	}
	if s.adminEmail == "" {
		return nil
	}
	return s.sender.Send(ctx, EmailMessage{
		To:      s.adminEmail,
		Subject: fmt.Sprintf("Session confirmed - %s", s.formatDate(ev.StartTime)),
		Body:    fmt.Sprintf("Session confirmed.\n\n%sPatient: %s (%s)\n", s.formatSlot(ev), ev.PatientName, ev.PatientEmail),
	})
}

func (s *Service) sendCancelled(ctx context.Context, ev events.BookingEvent) error {
	if ev.PatientEmail == "" {
		return nil
	}
	body := fmt.Sprintf(
		"Hello %s,\n\nYour session at %s on %s has been cancelled.\n\nPlease get in touch to book a new time.\n",
		ev.PatientName, s.practiceName, s.formatDate(ev.StartTime))
	return s.sender.Send(ctx, EmailMessage{
		To:      ev.PatientEmail,
		ToName:  ev.PatientName,
		Subject: fmt.Sprintf("Session cancelled - %s", s.formatDate(ev.StartTime)),
		Body:    body,
	})
}

func (s *Service) formatSlot(ev events.BookingEvent) string {
	start := ev.StartTime.In(s.loc)
	end := ev.EndTime.In(s.loc)
	return fmt.Sprintf("Date: %s\nTime: %s to %s (%d minutes)\n",
		start.Format("Monday, January 2, 2006"),
		start.Format("15:04"), end.Format("15:04"),
		int(ev.EndTime.Sub(ev.StartTime).Minutes()))
}

func (s *Service) formatDate(t time.Time) string {
	return t.In(s.loc).Format("Jan 2, 2006")
}
