package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/blag/scheduler/internal/logging"
)

// MeetingDuration is the fixed length of every offered slot.
const MeetingDuration = 60 * time.Minute

// DefaultQueryTimeout bounds each provider call so a hung request cannot
// stall a session handler indefinitely.
const DefaultQueryTimeout = 30 * time.Second

// Participant identifies one side of an availability query.
type Participant struct {
	Email       string
	CalendarIDs []string
}

// SelfParticipant builds a participant whose only calendar is their own
// identifier, which is how both sides of every query are constructed.
func SelfParticipant(email string) Participant {
	return Participant{Email: email, CalendarIDs: []string{email}}
}

// TimeSlot is one free interval as returned by the provider.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// EventInput describes the calendar event created for a booked slot.
type EventInput struct {
	Title         string
	Location      string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// Provider is the calendar backend the aggregator and the booking service
// talk to. AvailableSlots returns the intervals inside window during which
// every participant is free; CreateEvent returns the identifier of the
// created event.
type Provider interface {
	AvailableSlots(ctx context.Context, participants []Participant, duration time.Duration, window DayWindow) ([]TimeSlot, error)
	CreateEvent(ctx context.Context, calendarID string, input EventInput) (string, error)
}

// Aggregator drives the day-by-day availability loop for the host and one
// guest and renders the results into display strings.
type Aggregator struct {
	provider Provider
	host     Participant
	endHour  int
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// AggregatorOption customizes an Aggregator.
type AggregatorOption func(*Aggregator)

// WithClock injects the time source used to compute the horizon.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithDayEndHour overrides the end-of-business hour of each day window.
func WithDayEndHour(hour int) AggregatorOption {
	return func(a *Aggregator) {
		a.endHour = hour
	}
}

// WithQueryTimeout overrides the per-call provider timeout.
func WithQueryTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAggregatorLogger sets the logger used for per-day query logging.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an aggregator for the fixed host participant.
func NewAggregator(provider Provider, host Participant, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		provider: provider,
		host:     host,
		endHour:  DefaultDayEndHour,
		timeout:  DefaultQueryTimeout,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh queries every remaining weekday of the current week for slots where
// both the host and guest are free and returns the rendered list, ordered by
// discovery. The result fully replaces any previous list; callers must not
// append to prior state.
//
// If a day's query fails the remaining days are abandoned and the slots
// gathered so far are returned alongside the error.
func (a *Aggregator) Refresh(ctx context.Context, guest Participant) ([]string, error) {
	logger := logging.WithOperation(a.logger, "availability")

	available := make([]string, 0)
	participants := []Participant{a.host, guest}

	for _, window := range Horizon(a.now(), a.endHour) {
		qctx, cancel := context.WithTimeout(ctx, a.timeout)
		slots, err := a.provider.AvailableSlots(qctx, participants, MeetingDuration, window)
		cancel()
		if err != nil {
			logger.Error("day query failed",
				slog.Time("window_start", window.Start),
				logging.Err(err))
			return available, &Error{Op: "availability", Kind: ErrAvailability, Err: err}
		}

		for _, slot := range slots {
			available = append(available, FormatSlot(slot.Start.In(window.Start.Location()), slot.End.In(window.Start.Location())))
		}
	}

	logger.Info("availability refreshed",
		slog.Int("slots", len(available)),
		logging.UserHash(guest.Email))
	return available, nil
}
