package sla

import (
	"errors"
	"time"
)

// Calendar converts between wall-clock instants and business minutes. A single
// shared definition backs both AddBusinessMinutes and BusinessMinutesBetween
// so the two stay symmetric. All arithmetic is at minute granularity.
type Calendar struct {
	startMinute int
	endMinute   int
	workdays    map[time.Weekday]bool
	loc         *time.Location
}

// ErrInvalidCalendar indicates a malformed business-hours definition.
var ErrInvalidCalendar = errors.New("sla: invalid business-hours definition")

// NewCalendar validates and builds a calendar. Hours are minutes from
// midnight in loc; the window is [startMinute, endMinute).
func NewCalendar(startMinute, endMinute int, workdays []time.Weekday, loc *time.Location) (*Calendar, error) {
	if loc == nil {
		loc = time.UTC
	}
	if startMinute < 0 || endMinute > 24*60 || startMinute >= endMinute {
		return nil, ErrInvalidCalendar
	}
	if len(workdays) == 0 {
		return nil, ErrInvalidCalendar
	}
	days := make(map[time.Weekday]bool, len(workdays))
	for _, d := range workdays {
		days[d] = true
	}
	return &Calendar{
		startMinute: startMinute,
		endMinute:   endMinute,
		workdays:    days,
		loc:         loc,
	}, nil
}

// MinutesPerDay returns the length of one business day in minutes.
func (c *Calendar) MinutesPerDay() int {
	return c.endMinute - c.startMinute
}

// NextBusinessInstant returns t unchanged when it already falls inside
// business hours, otherwise the next window opening.
func (c *Calendar) NextBusinessInstant(t time.Time) time.Time {
	t = t.In(c.loc).Truncate(time.Minute)
	for {
		if !c.workdays[t.Weekday()] {
			t = c.dayOpen(t.AddDate(0, 0, 1))
			continue
		}
		minute := t.Hour()*60 + t.Minute()
		if minute < c.startMinute {
			return c.dayOpen(t)
		}
		if minute >= c.endMinute {
			t = c.dayOpen(t.AddDate(0, 0, 1))
			continue
		}
		return t
	}
}

// AddBusinessMinutes advances start by the given business minutes, skipping
// non-business time entirely. Non-positive minutes return the start instant
// normalized onto the business window.
func (c *Calendar) AddBusinessMinutes(start time.Time, minutes int) time.Time {
	cur := c.NextBusinessInstant(start)
	if minutes <= 0 {
		return cur
	}
	remaining := minutes
	for {
		avail := int(c.dayClose(cur).Sub(cur) / time.Minute)
		if remaining <= avail {
			return cur.Add(time.Duration(remaining) * time.Minute)
		}
		remaining -= avail
		cur = c.dayOpen(cur.AddDate(0, 0, 1))
		cur = c.NextBusinessInstant(cur)
	}
}

// BusinessMinutesBetween counts business minutes elapsed from a to b (b >= a).
func (c *Calendar) BusinessMinutesBetween(a, b time.Time) int {
	b = b.In(c.loc).Truncate(time.Minute)
	cur := c.NextBusinessInstant(a)
	total := 0
	for cur.Before(b) {
		segEnd := c.dayClose(cur)
		if b.Before(segEnd) {
			segEnd = b
		}
		if segEnd.After(cur) {
			total += int(segEnd.Sub(cur) / time.Minute)
		}
		cur = c.NextBusinessInstant(c.dayOpen(cur.AddDate(0, 0, 1)))
	}
	return total
}

func (c *Calendar) dayOpen(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc).
		Add(time.Duration(c.startMinute) * time.Minute)
}

func (c *Calendar) dayClose(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc).
		Add(time.Duration(c.endMinute) * time.Minute)
}
