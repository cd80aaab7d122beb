package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blag/scheduler/internal/logging"
)

// Fixed event details for every booked meeting.
const (
	MeetingTitle    = "Meeting with Blag"
	MeetingLocation = "Blag's Online Den"
)

// BookingService turns a parsed slot plus the guest identity into a calendar
// event on the host's calendar.
type BookingService struct {
	provider       Provider
	hostCalendarID string
	timeout        time.Duration
	logger         *slog.Logger
}

// BookingOption customizes a BookingService.
type BookingOption func(*BookingService)

// WithBookingTimeout overrides the provider call timeout.
func WithBookingTimeout(d time.Duration) BookingOption {
	return func(s *BookingService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBookingLogger sets the logger.
func WithBookingLogger(logger *slog.Logger) BookingOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewBookingService creates a booking service targeting the host's calendar.
func NewBookingService(provider Provider, hostCalendarID string, opts ...BookingOption) *BookingService {
	s := &BookingService{
		provider:       provider,
		hostCalendarID: hostCalendarID,
		timeout:        DefaultQueryTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book creates the event for slot with the guest as the sole attendee and
// returns the provider's event identifier. A provider response without an
// identifier is a booking failure, as is any transport error.
func (s *BookingService) Book(ctx context.Context, slot ParsedSlot, guestEmail string) (string, error) {
	logger := logging.WithOperation(s.logger, "book")

	input := EventInput{
		Title:    MeetingTitle,
		Location: MeetingLocation,
		Description: fmt.Sprintf("You're meeting with Blag on %s from %s to %s",
			slot.Date, slot.StartLabel, slot.EndLabel),
		Start:         slot.Start,
		End:           slot.End,
		AttendeeEmail: guestEmail,
	}

	bctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	eventID, err := s.provider.CreateEvent(bctx, s.hostCalendarID, input)
	if err != nil {
		logger.Error("event creation failed", logging.Err(err), logging.UserHash(guestEmail))
		return "", &Error{Op: "book", Kind: ErrBooking, Err: err}
	}
	if eventID == "" {
		logger.Error("event created without identifier", logging.UserHash(guestEmail))
		return "", &Error{Op: "book", Kind: ErrBooking, Err: errors.New("provider returned an event without an id")}
	}

	logger.Info("event created",
		slog.String("event_id", eventID),
		logging.UserHash(guestEmail))
	return eventID, nil
}
