package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// Config is loaded with the SCHEDULER prefix.
type Config struct {
	Timezone      string `envconfig:"TIMEZONE" default:"Local"`
	AtomicBooking bool   `envconfig:"ATOMIC_BOOKING" split_words:"true" default:"false"`
	CalendarFile  string `envconfig:"CALENDAR_FILE" split_words:"true" default:"data/calendar.json"`
}

func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Options converts the config into engine options.
func (c Config) Options() ([]Option, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return []Option{WithLocation(loc), WithAtomicBooking(c.AtomicBooking)}, nil
}
