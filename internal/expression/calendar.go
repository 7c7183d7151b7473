package expression

import "time"

// Calendar holds the zone and week convention used by date comparisons.
type Calendar struct {
	Location     *time.Location
	FirstWeekday time.Weekday
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// DefaultCalendar uses the local zone and weeks starting on Sunday.
func DefaultCalendar() Calendar {
	return Calendar{Location: time.Local, FirstWeekday: time.Sunday}
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// StartOfDay returns midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	loc := c.location()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of the day containing t.
func (c Calendar) EndOfDay(t time.Time) time.Time {
	return c.DayInterval(t).End.Add(-time.Nanosecond)
}

// DayInterval returns the day containing t.
func (c Calendar) DayInterval(t time.Time) Interval {
	start := c.StartOfDay(t)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekInterval returns the week containing t, starting on FirstWeekday.
func (c Calendar) WeekInterval(t time.Time) Interval {
	start := c.StartOfDay(t)
	offset := (int(start.Weekday()) - int(c.FirstWeekday) + 7) % 7
	start = start.AddDate(0, 0, -offset)
	return Interval{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthInterval returns the calendar month containing t.
func (c Calendar) MonthInterval(t time.Time) Interval {
	loc := c.location()
	y, m, _ := t.In(loc).Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}

// IntervalFor returns the interval of a same-day/week/month operator.
func (c Calendar) IntervalFor(op Operator, t time.Time) (Interval, bool) {
	switch op {
	case OpSameDay:
		return c.DayInterval(t), true
	case OpSameWeek:
		return c.WeekInterval(t), true
	case OpSameMonth:
		return c.MonthInterval(t), true
	}
	return Interval{}, false
}
