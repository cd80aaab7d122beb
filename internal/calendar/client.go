package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/blag/scheduler/internal/schedule"
)

// Client wraps the Google Calendar service for the host account. It
// implements schedule.Provider.
type Client struct {
	svc *calendar.Service
}

// NewClient creates a Calendar client authenticated with the given token
// source. Additional options (e.g. an endpoint override) are appended, which
// is how tests point the client at a fake API.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	var clientOpts []option.ClientOption
	if ts != nil {
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// AvailableSlots returns the intervals inside window during which every
// participant is free, cut into duration-sized slots. Busy times for all
// participants' calendars are fetched in a single free/busy query and the
// gaps are walked on duration boundaries, so the result is the intersection
// of everyone's free time.
func (c *Client) AvailableSlots(ctx context.Context, participants []schedule.Participant, duration time.Duration, window schedule.DayWindow) ([]schedule.TimeSlot, error) {
	var items []*calendar.FreeBusyRequestItem
	for _, p := range participants {
		for _, id := range p.CalendarIDs {
			items = append(items, &calendar.FreeBusyRequestItem{Id: id})
		}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin: window.Start.Format(time.RFC3339),
		TimeMax: window.End.Format(time.RFC3339),
		Items:   items,
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	busy, err := busyRanges(result)
	if err != nil {
		return nil, err
	}

	return freeSlots(window, duration, busy), nil
}

// CreateEvent creates the meeting event on calendarID and returns the
// provider's event identifier.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input schedule.EventInput) (string, error) {
	event := &calendar.Event{
		Summary:     input.Title,
		Location:    input.Location,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
		},
		Attendees: []*calendar.EventAttendee{
			{Email: input.AttendeeEmail},
		},
	}

	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	return created.Id, nil
}

// busyRanges flattens a free/busy response into a single list of busy
// intervals across all queried calendars. A calendar-level error in the
// response fails the whole query; silently treating an unreadable calendar
// as free would offer slots that are not actually open.
func busyRanges(result *calendar.FreeBusyResponse) ([]timeRange, error) {
	var busy []timeRange
	for calID, cal := range result.Calendars {
		for _, calErr := range cal.Errors {
			return nil, fmt.Errorf("freebusy lookup failed for %s: %s", calID, calErr.Reason)
		}
		for _, interval := range cal.Busy {
			start, err := time.Parse(time.RFC3339, interval.Start)
			if err != nil {
				return nil, fmt.Errorf("invalid busy start %q: %w", interval.Start, err)
			}
			end, err := time.Parse(time.RFC3339, interval.End)
			if err != nil {
				return nil, fmt.Errorf("invalid busy end %q: %w", interval.End, err)
			}
			busy = append(busy, timeRange{start: start, end: end})
		}
	}
	return busy, nil
}

// timeRange is one busy interval.
type timeRange struct {
	start time.Time
	end   time.Time
}

// freeSlots walks window on duration boundaries and keeps every slot that
// does not overlap a busy interval. When a slot collides, the cursor jumps
// to the end of the blocking interval.
func freeSlots(window schedule.DayWindow, duration time.Duration, busy []timeRange) []schedule.TimeSlot {
	var slots []schedule.TimeSlot

	cur := window.Start
	for !cur.Add(duration).After(window.End) {
		slotEnd := cur.Add(duration)

		blockedUntil := time.Time{}
		for _, b := range busy {
			if b.start.Before(slotEnd) && b.end.After(cur) && b.end.After(blockedUntil) {
				blockedUntil = b.end
			}
		}

		if !blockedUntil.IsZero() {
			if blockedUntil.After(cur) {
				cur = blockedUntil
			} else {
				cur = slotEnd
			}
			continue
		}

		slots = append(slots, schedule.TimeSlot{Start: cur, End: slotEnd})
		cur = slotEnd
	}

	return slots
}
