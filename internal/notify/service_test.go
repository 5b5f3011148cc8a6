package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/psipractice/booking-api/internal/events"
	"github.com/psipractice/booking-api/pkg/logging"
)

type capturingSender struct {
	sent []EmailMessage
	err  error
}

func (s *capturingSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func bookingEntry(t *testing.T, eventType string, ev events.BookingEvent) events.OutboxEntry {
	t.Helper()
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return events.OutboxEntry{ID: uuid.New(), Type: eventType, Payload: payload}
}

func sampleEvent() events.BookingEvent {
	return events.BookingEvent{
		SessionID:    "s-1",
		PatientName:  "Ana Souza",
		PatientEmail: "ana@example.com",
		StartTime:    time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2030, 3, 4, 10, 40, 0, 0, time.UTC),
	}
}

func newService(sender EmailSender) *Service {
	return NewService(sender, nil, logging.Default(), "Vida Plena Psychology", "admin@example.com", time.UTC)
}

func TestHandleConfirmed_EmailsPatientAndAdmin(t *testing.T) {
	sender := &capturingSender{}
	svc := newService(sender)

	err := svc.Handle(t.Context(), bookingEntry(t, events.TypeBookingConfirmed, sampleEvent()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected patient and admin emails, got %d", len(sender.sent))
	}
	patientMail := sender.sent[0]
	if patientMail.To != "ana@example.com" {
		t.Errorf("expected patient email first, got %s", patientMail.To)
	}
	if !strings.Contains(patientMail.Body, "10:00 to 10:40 (40 minutes)") {
		t.Errorf("expected time range and duration in body, got %q", patientMail.Body)
	}
	if !strings.Contains(patientMail.Body, "Vida Plena Psychology") {
		t.Errorf("expected practice name in body, got %q", patientMail.Body)
	}
	if sender.sent[1].To != "admin@example.com" {
		t.Errorf("expected admin copy, got %s", sender.sent[1].To)
	}
}

func TestHandleRequested_EmailsAdminOnly(t *testing.T) {
	sender := &capturingSender{}
	svc := newService(sender)

	err := svc.Handle(t.Context(), bookingEntry(t, events.TypeBookingRequested, sampleEvent()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "admin@example.com" {
		t.Fatalf("expected one admin email, got %+v", sender.sent)
	}
	if !strings.Contains(sender.sent[0].Body, "Ana Souza") {
		t.Errorf("expected patient name in summary, got %q", sender.sent[0].Body)
	}
}

func TestHandleCancelled_EmailsPatient(t *testing.T) {
	sender := &capturingSender{}
	svc := newService(sender)

	err := svc.Handle(t.Context(), bookingEntry(t, events.TypeBookingCancelled, sampleEvent()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "ana@example.com" {
		t.Fatalf("expected one patient email, got %+v", sender.sent)
	}
	if !strings.Contains(sender.sent[0].Body, "cancelled") {
		t.Errorf("expected cancellation notice, got %q", sender.sent[0].Body)
	}
}

func TestHandleCancelled_NoPatientNoEmail(t *testing.T) {
	sender := &capturingSender{}
	svc := newService(sender)

	ev := sampleEvent()
	ev.PatientEmail = ""
	if err := svc.Handle(t.Context(), bookingEntry(t, events.TypeBookingCancelled, ev)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no email without a patient address, got %d", len(sender.sent))
	}
}

func TestHandle_SendFailurePropagatesForRetry(t *testing.T) {
	sender := &capturingSender{err: errors.New("smtp down")}
	svc := newService(sender)

	err := svc.Handle(t.Context(), bookingEntry(t, events.TypeBookingConfirmed, sampleEvent()))
	if err == nil {
		t.Error("expected the delivery error to propagate so the outbox retries")
	}
}

func TestHandle_MalformedPayloadDropped(t *testing.T) {
	sender := &capturingSender{}
	svc := newService(sender)

	entry := events.OutboxEntry{ID: uuid.New(), Type: events.TypeBookingConfirmed, Payload: []byte("{not json")}
	if err := svc.Handle(t.Context(), entry); err != nil {
		t.Errorf("malformed payloads must not be retried, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no email, got %d", len(sender.sent))
	}
}

func TestStubSenderNeverFails(t *testing.T) {
	stub := NewStubEmailSender(logging.Default())
	if err := stub.Send(t.Context(), EmailMessage{To: "ana@example.com", Subject: "x"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
