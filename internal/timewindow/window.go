package timewindow

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the textual date form accepted at the API edge.
	DateLayout = "02-01-2006"
	// ClockLayout is the textual time-of-day form accepted at the API edge.
	ClockLayout = "15:04"

	minutesPerDay = 24 * 60
)

// Window is a (date-range, time-range) pair. The date range is inclusive on
// both ends; the time range is half-open [start, end) so that a window ending
// exactly when another starts does not conflict. Times are minutes since
// midnight, dates are UTC midnights.
type Window struct {
	StartDate   time.Time
	EndDate     time.Time
	StartMinute int
	EndMinute   int
}

// New builds a validated window. A zero end date is normalized to the start
// date (single-day window).
func New(startDate, endDate time.Time, startMinute, endMinute int) (Window, error) {
	startDate = truncateToDay(startDate)
	if endDate.IsZero() {
		endDate = startDate
	} else {
		endDate = truncateToDay(endDate)
	}

	w := Window{
		StartDate:   startDate,
		EndDate:     endDate,
		StartMinute: startMinute,
		EndMinute:   endMinute,
	}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate checks the window invariants: start date <= end date and
// start time < end time.
func (w Window) Validate() error {
	if w.EndDate.Before(w.StartDate) {
		return fmt.Errorf("end date %s is before start date %s",
			w.EndDate.Format(DateLayout), w.StartDate.Format(DateLayout))
	}
	if w.StartMinute < 0 || w.StartMinute >= minutesPerDay {
		return fmt.Errorf("start time out of range")
	}
	if w.EndMinute <= 0 || w.EndMinute > minutesPerDay {
		return fmt.Errorf("end time out of range")
	}
	if w.StartMinute >= w.EndMinute {
		return fmt.Errorf("start time %s must be before end time %s",
			FormatClock(w.StartMinute), FormatClock(w.EndMinute))
	}
	return nil
}

// Overlaps reports whether two windows conflict on both the date and the time
// dimension.
func (w Window) Overlaps(o Window) bool {
	if w.StartDate.After(o.EndDate) || o.StartDate.After(w.EndDate) {
		return false
	}
	return w.StartMinute < o.EndMinute && w.EndMinute > o.StartMinute
}

// Days returns the inclusive number of calendar days the window spans.
func (w Window) Days() int {
	return int(w.EndDate.Sub(w.StartDate).Hours()/24) + 1
}

// String renders the window for conflict error messages.
func (w Window) String() string {
	return fmt.Sprintf("%s to %s %s-%s",
		w.StartDate.Format(DateLayout), w.EndDate.Format(DateLayout),
		FormatClock(w.StartMinute), FormatClock(w.EndMinute))
}

// ParseDate parses a DD-MM-YYYY date into a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected DD-MM-YYYY: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseClock parses an HH:MM time of day into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
