package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider records every availability query and serves canned responses.
type fakeProvider struct {
	queries []fakeQuery
	slots   map[int][]TimeSlot // keyed by query index
	failAt  int                // query index that fails, -1 for never
	created []EventInput
	eventID string
	failMsg string
}

type fakeQuery struct {
	participants []Participant
	duration     time.Duration
	window       DayWindow
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{failAt: -1, eventID: "evt-1", slots: map[int][]TimeSlot{}}
}

func (p *fakeProvider) AvailableSlots(ctx context.Context, participants []Participant, duration time.Duration, window DayWindow) ([]TimeSlot, error) {
	idx := len(p.queries)
	p.queries = append(p.queries, fakeQuery{participants: participants, duration: duration, window: window})
	if p.failAt >= 0 && idx == p.failAt {
		return nil, errors.New("provider unavailable")
	}
	return p.slots[idx], nil
}

func (p *fakeProvider) CreateEvent(ctx context.Context, calendarID string, input EventInput) (string, error) {
	p.created = append(p.created, input)
	if p.failMsg != "" {
		return "", errors.New(p.failMsg)
	}
	return p.eventID, nil
}

// Tuesday 2030-01-08 09:12 UTC: four remaining weekdays.
func tuesdayClock() func() time.Time {
	return func() time.Time {
		return time.Date(2030, time.January, 8, 9, 12, 0, 0, time.UTC)
	}
}

func TestRefreshBuildsTwoParticipantQueries(t *testing.T) {
	provider := newFakeProvider()
	host := SelfParticipant("host@example.com")
	agg := NewAggregator(provider, host, WithClock(tuesdayClock()))

	_, err := agg.Refresh(context.Background(), SelfParticipant("guest@example.com"))
	require.NoError(t, err)
	require.Len(t, provider.queries, 4)

	for _, q := range provider.queries {
		require.Len(t, q.participants, 2)
		assert.Equal(t, "host@example.com", q.participants[0].Email)
		assert.Equal(t, []string{"host@example.com"}, q.participants[0].CalendarIDs)
		assert.Equal(t, "guest@example.com", q.participants[1].Email)
		assert.Equal(t, []string{"guest@example.com"}, q.participants[1].CalendarIDs)
		assert.Equal(t, MeetingDuration, q.duration)
	}
}

func TestRefreshRendersSlotsInDiscoveryOrder(t *testing.T) {
	provider := newFakeProvider()
	day := func(d, h int) time.Time {
		return time.Date(2030, time.January, d, h, 0, 0, 0, time.UTC)
	}
	provider.slots[0] = []TimeSlot{
		{Start: day(8, 10), End: day(8, 11)},
		{Start: day(8, 14), End: day(8, 15)},
	}
	provider.slots[2] = []TimeSlot{
		{Start: day(10, 9), End: day(10, 10)},
	}

	agg := NewAggregator(provider, SelfParticipant("host@example.com"), WithClock(tuesdayClock()))
	available, err := agg.Refresh(context.Background(), SelfParticipant("guest@example.com"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"01/08/2030 at 10:00 to 11:00",
		"01/08/2030 at 14:00 to 15:00",
		"01/10/2030 at 09:00 to 10:00",
	}, available)
}

func TestRefreshIsIdempotent(t *testing.T) {
	provider := newFakeProvider()
	provider.slots[0] = []TimeSlot{
		{Start: time.Date(2030, time.January, 8, 10, 0, 0, 0, time.UTC), End: time.Date(2030, time.January, 8, 11, 0, 0, 0, time.UTC)},
	}
	// Same canned response for the second pass.
	provider.slots[4] = provider.slots[0]

	agg := NewAggregator(provider, SelfParticipant("host@example.com"), WithClock(tuesdayClock()))
	guest := SelfParticipant("guest@example.com")

	first, err := agg.Refresh(context.Background(), guest)
	require.NoError(t, err)
	second, err := agg.Refresh(context.Background(), guest)
	require.NoError(t, err)

	// Each run fully replaces prior content: no duplication, no accumulation.
	assert.Equal(t, first, second)
	assert.Len(t, second, 1)
}

func TestRefreshAbortsOnDayFailureKeepingPartialResults(t *testing.T) {
	provider := newFakeProvider()
	provider.slots[0] = []TimeSlot{
		{Start: time.Date(2030, time.January, 8, 10, 0, 0, 0, time.UTC), End: time.Date(2030, time.January, 8, 11, 0, 0, 0, time.UTC)},
	}
	provider.failAt = 1

	agg := NewAggregator(provider, SelfParticipant("host@example.com"), WithClock(tuesdayClock()))
	available, err := agg.Refresh(context.Background(), SelfParticipant("guest@example.com"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAvailability)
	// Day two failed: days three and four were never queried.
	assert.Len(t, provider.queries, 2)
	// Slots discovered before the failure survive.
	assert.Equal(t, []string{"01/08/2030 at 10:00 to 11:00"}, available)
}

func TestRefreshOnSaturdayQueriesNothing(t *testing.T) {
	provider := newFakeProvider()
	saturday := func() time.Time {
		return time.Date(2030, time.January, 5, 10, 0, 0, 0, time.UTC)
	}

	agg := NewAggregator(provider, SelfParticipant("host@example.com"), WithClock(saturday))
	available, err := agg.Refresh(context.Background(), SelfParticipant("guest@example.com"))

	require.NoError(t, err)
	assert.Empty(t, provider.queries)
	assert.Empty(t, available)
}
