package entity

const MinutesPerDay = 24 * 60

// Interval is a half-open [Start, End) range of minutes inside one day.
type Interval struct {
	Start int
	End   int
}

func NewInterval(start, durationMinutes int) Interval {
	return Interval{Start: start, End: start + durationMinutes}
}

// Overlaps reports whether the two intervals share at least one minute.
// Touching endpoints do not overlap, so back-to-back bookings are allowed.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

func (i Interval) Valid() bool {
	return i.Start >= 0 && i.End > i.Start && i.End <= MinutesPerDay
}

func (i Interval) Duration() int {
	return i.End - i.Start
}
