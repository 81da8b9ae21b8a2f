package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tanpawarit/chative-task-router/pkg/pathlock"
)

const (
	calendarDirMode  = 0o755
	calendarFileMode = 0o644
	tempFilePattern  = ".calendar-*.tmp"
)

/* ----------------------------- MemoryCalendar ---------------------------- */

// MemoryCalendar keeps busy intervals in process memory.
type MemoryCalendar struct {
	mu   sync.RWMutex
	days map[string][]Interval
}

var _ CalendarStore = (*MemoryCalendar)(nil)

func NewMemoryCalendar() *MemoryCalendar {
	return &MemoryCalendar{days: make(map[string][]Interval)}
}

func (m *MemoryCalendar) Busy(ctx context.Context, day string) ([]Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Interval(nil), m.days[day]...), nil
}

func (m *MemoryCalendar) Add(ctx context.Context, day string, iv Interval) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("%w: interval start must precede end", ErrMalformedInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days == nil {
		m.days = make(map[string][]Interval)
	}
	m.days[day] = append(m.days[day], iv)
	return nil
}

/* ------------------------------ FileCalendar ----------------------------- */

// FileCalendar stores the calendar as one JSON document:
//
//	{"2025-07-12": [["2025-07-12T11:00:00", "2025-07-12T12:00:00"]]}
//
// Every FileCalendar opened on the same path shares one lock.
type FileCalendar struct {
	path string
	loc  *time.Location
	mu   *sync.RWMutex
}

var _ CalendarStore = (*FileCalendar)(nil)

type calendarFile map[string][][2]string

// NewFileCalendar opens path, creating it as {} when missing.
func NewFileCalendar(path string, loc *time.Location) (*FileCalendar, error) {
	if path == "" {
		return nil, errors.New("calendar path is required")
	}
	if loc == nil {
		loc = time.Local
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve calendar path: %w", err)
	}

	c := &FileCalendar{path: abs, loc: loc, mu: pathlock.For(abs)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		if err := c.write(calendarFile{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat calendar file: %w", err)
	}
	return c, nil
}

func (c *FileCalendar) Path() string {
	return c.path
}

func (c *FileCalendar) Busy(ctx context.Context, day string) ([]Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	file, err := c.read()
	if err != nil {
		return nil, err
	}
	out := make([]Interval, 0, len(file[day]))
	for _, pair := range file[day] {
		iv, err := c.decode(pair)
		if err != nil {
			return nil, fmt.Errorf("calendar day %s: %w", day, err)
		}
		out = append(out, iv)
	}
	return out, nil
}

func (c *FileCalendar) Add(ctx context.Context, day string, iv Interval) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("%w: interval start must precede end", ErrMalformedInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	file, err := c.read()
	if err != nil {
		return err
	}
	file[day] = append(file[day], [2]string{
		iv.Start.In(c.loc).Format(TimeLayout),
		iv.End.In(c.loc).Format(TimeLayout),
	})
	return c.write(file)
}

func (c *FileCalendar) decode(pair [2]string) (Interval, error) {
	start, err := time.ParseInLocation(TimeLayout, pair[0], c.loc)
	if err != nil {
		return Interval{}, fmt.Errorf("parse start %q: %w", pair[0], err)
	}
	end, err := time.ParseInLocation(TimeLayout, pair[1], c.loc)
	if err != nil {
		return Interval{}, fmt.Errorf("parse end %q: %w", pair[1], err)
	}
	return Interval{Start: start, End: end}, nil
}

func (c *FileCalendar) read() (calendarFile, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return calendarFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	file := calendarFile{}
	if len(raw) == 0 {
		return file, nil
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode calendar file: %w", err)
	}
	if file == nil {
		file = calendarFile{}
	}
	return file, nil
}

func (c *FileCalendar) write(file calendarFile) error {
	if err := os.MkdirAll(filepath.Dir(c.path), calendarDirMode); err != nil {
		return fmt.Errorf("create calendar directory: %w", err)
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calendar file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp calendar file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp calendar file: %w", err)
	}
	if err := tmp.Chmod(calendarFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp calendar file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp calendar file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replace calendar file: %w", err)
	}
	return nil
}
