package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "2006-01-02T15:04:05"

	Granularity            = 30 * time.Minute
	HorizonDays            = 30
	DefaultDurationMinutes = 30

	windowOpenHour  = 9
	windowCloseHour = 17

	// NoSlot is returned as text when the horizon holds no suitable slot.
	NoSlot = "No slots available."
)

const (
	msgBooked       = "Meeting booked at %s for %d minutes."
	msgOutsideHours = "The boss's working hours are from 9 AM to 5 PM.\nClosest available time is %s."
	msgConflict     = "Boss has another meeting at that time.\nNearest available time is %s."
	msgUnavailable  = "Boss is not available. Please try another day."
	MsgInvalidInput = "Invalid input. Use format like '2025-07-12T11:00:00|60' (datetime|duration)."
)

var ErrMalformedInput = errors.New("malformed scheduling input")

// Interval is a half-open span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) Contains(start, end time.Time) bool {
	return !start.Before(i.Start) && !end.After(i.End)
}

// CalendarStore persists busy intervals keyed by day (YYYY-MM-DD).
// Implementations must be safe for concurrent use.
type CalendarStore interface {
	Busy(ctx context.Context, day string) ([]Interval, error)
	Add(ctx context.Context, day string, iv Interval) error
}

type Option func(*Engine)

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithAtomicBooking makes ProposeBooking hold one lock across the
// availability check and the insert.
func WithAtomicBooking(enabled bool) Option {
	return func(e *Engine) {
		e.atomic = enabled
	}
}

// Engine answers availability questions against a CalendarStore inside a
// fixed daily working window.
type Engine struct {
	store  CalendarStore
	loc    *time.Location
	atomic bool
	mu     sync.Mutex
}

func NewEngine(store CalendarStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("calendar store is required")
	}
	e := &Engine{
		store: store,
		loc:   time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

// DayKey returns the calendar key of t in the engine location.
func (e *Engine) DayKey(t time.Time) string {
	return t.In(e.loc).Format(DateLayout)
}

func (e *Engine) window(day string) (Interval, error) {
	d, err := time.ParseInLocation(DateLayout, day, e.loc)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: day %q: %v", ErrMalformedInput, day, err)
	}
	return Interval{
		Start: time.Date(d.Year(), d.Month(), d.Day(), windowOpenHour, 0, 0, 0, e.loc),
		End:   time.Date(d.Year(), d.Month(), d.Day(), windowCloseHour, 0, 0, 0, e.loc),
	}, nil
}

// FreeIntervals walks the day's busy intervals in start order from window
// open and emits every gap of at least Granularity, ending at window close.
func (e *Engine) FreeIntervals(ctx context.Context, day string) ([]Interval, error) {
	win, err := e.window(day)
	if err != nil {
		return nil, err
	}
	busy, err := e.store.Busy(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load busy intervals for %s: %w", day, err)
	}
	return freeWithin(win, busy), nil
}

func freeWithin(win Interval, busy []Interval) []Interval {
	sorted := append([]Interval(nil), busy...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	free := make([]Interval, 0, len(sorted)+1)
	cursor := win.Start
	for _, b := range sorted {
		gapEnd := b.Start
		if gapEnd.After(win.End) {
			gapEnd = win.End
		}
		if gapEnd.Sub(cursor) >= Granularity {
			free = append(free, Interval{Start: cursor, End: gapEnd})
		}
		// overlapping input must not move the cursor backwards
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if win.End.Sub(cursor) >= Granularity {
		free = append(free, Interval{Start: cursor, End: win.End})
	}
	return free
}

// IsAvailable reports whether some free interval on start's day fully
// contains [start, start+minutes).
func (e *Engine) IsAvailable(ctx context.Context, start time.Time, minutes int) (bool, error) {
	if minutes <= 0 {
		return false, fmt.Errorf("%w: duration must be positive", ErrMalformedInput)
	}
	start = start.In(e.loc)
	end := start.Add(time.Duration(minutes) * time.Minute)

	free, err := e.FreeIntervals(ctx, e.DayKey(start))
	if err != nil {
		return false, err
	}
	for _, f := range free {
		if f.Contains(start, end) {
			return true, nil
		}
	}
	return false, nil
}

// NextAvailable scans up to HorizonDays forward and returns the start of the
// earliest free interval that begins on or after `after` and is at least
// `minutes` long.
func (e *Engine) NextAvailable(ctx context.Context, after time.Time, minutes int) (time.Time, bool, error) {
	if minutes <= 0 {
		minutes = DefaultDurationMinutes
	}
	after = after.In(e.loc)
	need := time.Duration(minutes) * time.Minute

	for offset := 0; offset < HorizonDays; offset++ {
		if err := ctx.Err(); err != nil {
			return time.Time{}, false, err
		}
		day := e.DayKey(after.AddDate(0, 0, offset))
		free, err := e.FreeIntervals(ctx, day)
		if err != nil {
			return time.Time{}, false, err
		}
		for _, f := range free {
			if !f.Start.Before(after) && f.Duration() >= need {
				return f.Start, true, nil
			}
		}
	}
	return time.Time{}, false, nil
}

// NextAvailableText is NextAvailable rendered for users, NoSlot when none.
func (e *Engine) NextAvailableText(ctx context.Context, after time.Time, minutes int) (string, error) {
	slot, ok, err := e.NextAvailable(ctx, after, minutes)
	if err != nil {
		return "", err
	}
	if !ok {
		return NoSlot, nil
	}
	return slot.Format(TimeLayout), nil
}

// Book inserts [start, start+minutes) without checking availability.
func (e *Engine) Book(ctx context.Context, start time.Time, minutes int) (string, error) {
	if minutes <= 0 {
		return "", fmt.Errorf("%w: duration must be positive", ErrMalformedInput)
	}
	start = start.In(e.loc)
	iv := Interval{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
	day := e.DayKey(start)

	if err := e.store.Add(ctx, day, iv); err != nil {
		return "", fmt.Errorf("book %s: %w", start.Format(TimeLayout), err)
	}
	log.Info().
		Str("day", day).
		Str("start", iv.Start.Format(TimeLayout)).
		Str("end", iv.End.Format(TimeLayout)).
		Msg("meeting booked")
	return fmt.Sprintf(msgBooked, start.Format(TimeLayout), minutes), nil
}

// ParseRequest parses "<time>|<minutes>" or "<time>". Time is either
// 2006-01-02T15:04:05 in the engine location or RFC3339.
func (e *Engine) ParseRequest(raw string) (time.Time, int, error) {
	raw = strings.TrimSpace(raw)
	timePart, durationPart, hasDuration := strings.Cut(raw, "|")
	if hasDuration && strings.Contains(durationPart, "|") {
		return time.Time{}, 0, fmt.Errorf("%w: too many separators", ErrMalformedInput)
	}

	start, err := e.parseTime(strings.TrimSpace(timePart))
	if err != nil {
		return time.Time{}, 0, err
	}

	minutes := DefaultDurationMinutes
	if hasDuration {
		minutes, err = strconv.Atoi(strings.TrimSpace(durationPart))
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("%w: duration: %v", ErrMalformedInput, err)
		}
		if minutes <= 0 {
			return time.Time{}, 0, fmt.Errorf("%w: duration must be positive", ErrMalformedInput)
		}
	}
	return start, minutes, nil
}

func (e *Engine) parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimeLayout, s, e.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrMalformedInput, s)
	}
	return t.In(e.loc), nil
}

// ProposeBooking books the requested slot when it is free, otherwise it
// reports the nearest alternative. Every outcome is user-facing text; only
// calendar I/O failures are returned as errors.
func (e *Engine) ProposeBooking(ctx context.Context, raw string) (string, error) {
	start, minutes, err := e.ParseRequest(raw)
	if err != nil {
		log.Debug().Err(err).Str("input", raw).Msg("rejecting scheduling input")
		return MsgInvalidInput, nil
	}

	if e.outsideWindow(start, minutes) {
		slot, ok, err := e.NextAvailable(ctx, start, minutes)
		if err != nil {
			return "", err
		}
		if !ok {
			return msgUnavailable, nil
		}
		return fmt.Sprintf(msgOutsideHours, slot.Format(TimeLayout)), nil
	}

	if e.atomic {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	free, err := e.IsAvailable(ctx, start, minutes)
	if err != nil {
		return "", err
	}
	if free {
		return e.Book(ctx, start, minutes)
	}

	slot, ok, err := e.NextAvailable(ctx, start, minutes)
	if err != nil {
		return "", err
	}
	if !ok {
		return msgUnavailable, nil
	}
	return fmt.Sprintf(msgConflict, slot.Format(TimeLayout)), nil
}

func (e *Engine) outsideWindow(start time.Time, minutes int) bool {
	start = start.In(e.loc)
	if start.Hour() < windowOpenHour || start.Hour() >= windowCloseHour {
		return true
	}
	closeAt := time.Date(start.Year(), start.Month(), start.Day(), windowCloseHour, 0, 0, 0, e.loc)
	return start.Add(time.Duration(minutes) * time.Minute).After(closeAt)
}
