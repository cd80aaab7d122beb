package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Slot display layouts. The rendered string is the only representation that
// survives the round trip to the guest, so the parser below must accept
// exactly what FormatSlot produces.
const (
	slotStartLayout = "01/02/2006 at 15:04"
	slotEndLayout   = "15:04"
)

var slotPattern = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4}) at (\d{1,2}:\d{2}) to (\d{1,2}:\d{2})`)

// FormatSlot renders a free slot as "MM/DD/YYYY at HH:MM to HH:MM" in the
// slot's own location, 24-hour clock, zero padded.
func FormatSlot(start, end time.Time) string {
	return start.Format(slotStartLayout) + " to " + end.Format(slotEndLayout)
}

// ParsedSlot is a display string resolved back into precise instants, plus
// the human-readable fragments used in the booking description.
type ParsedSlot struct {
	Start time.Time
	End   time.Time

	Date       string // "MM/DD/YYYY"
	StartLabel string // "HH:MM"
	EndLabel   string // "HH:MM"
}

// ParseSlot extracts the date and times from a previously rendered slot
// string and reconstructs the start and end instants in loc.
//
// Only the hour of each time is carried into the reconstructed instants; the
// minutes component is discarded and both instants land on :00:00. The slots
// offered by the aggregator are built on whole hours, so nothing is lost in
// practice, and the behavior is kept as-is for output parity.
func ParseSlot(value string, loc *time.Location) (ParsedSlot, error) {
	if loc == nil {
		loc = time.Local
	}

	m := slotPattern.FindStringSubmatch(value)
	if m == nil {
		return ParsedSlot{}, &Error{
			Op:   "parse",
			Kind: ErrSlotParse,
			Err:  fmt.Errorf("%q does not match the slot format", value),
		}
	}

	dateParts := strings.Split(m[1], "/")
	month, _ := strconv.Atoi(dateParts[0])
	day, _ := strconv.Atoi(dateParts[1])
	year, _ := strconv.Atoi(dateParts[2])

	startHour, _ := strconv.Atoi(strings.Split(m[2], ":")[0])
	endHour, _ := strconv.Atoi(strings.Split(m[3], ":")[0])

	return ParsedSlot{
		Start:      time.Date(year, time.Month(month), day, startHour, 0, 0, 0, loc),
		End:        time.Date(year, time.Month(month), day, endHour, 0, 0, 0, loc),
		Date:       m[1],
		StartLabel: m[2],
		EndLabel:   m[3],
	}, nil
}
