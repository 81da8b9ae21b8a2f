// Package pgstore keeps the calendar and the rating log in Postgres via bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"

	"github.com/tanpawarit/chative-task-router/agent/rating"
	"github.com/tanpawarit/chative-task-router/agent/scheduling"
)

// Config is loaded with the POSTGRES prefix.
type Config struct {
	DSN string `envconfig:"DSN" required:"true"`
}

type BusyInterval struct {
	bun.BaseModel `bun:"table:calendar_busy,alias:cb"`

	ID      int64     `bun:"id,pk,autoincrement"`
	Day     string    `bun:"day,notnull"`
	StartAt time.Time `bun:"start_at,notnull"`
	EndAt   time.Time `bun:"end_at,notnull"`
}

type Rating struct {
	bun.BaseModel `bun:"table:ratings,alias:r"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Value     int       `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Store implements scheduling.CalendarStore and rating.Store. Postgres
// serialises concurrent inserts.
type Store struct {
	db  *bun.DB
	loc *time.Location
}

var (
	_ scheduling.CalendarStore = (*Store)(nil)
	_ rating.Store             = (*Store)(nil)
)

// Open builds a bun DB over pgdriver. No connection is made until first use.
func Open(dsn string, loc *time.Location) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return New(bun.NewDB(sqldb, pgdialect.New()), loc), nil
}

func New(db *bun.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSchema creates both tables and the day index when missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, q := range s.schemaQueries() {
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

type schemaQuery interface {
	schema.QueryAppender
	Exec(ctx context.Context, dest ...any) (sql.Result, error)
}

func (s *Store) schemaQueries() []schemaQuery {
	return []schemaQuery{
		s.db.NewCreateTable().Model((*BusyInterval)(nil)).IfNotExists(),
		s.db.NewCreateTable().Model((*Rating)(nil)).IfNotExists(),
		s.db.NewCreateIndex().Model((*BusyInterval)(nil)).Index("idx_calendar_busy_day").Column("day").IfNotExists(),
	}
}

func (s *Store) busyQuery(day string, rows *[]BusyInterval) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(rows).
		Where("day = ?", day).
		Order("start_at ASC", "id ASC")
}

func (s *Store) Busy(ctx context.Context, day string) ([]scheduling.Interval, error) {
	var rows []BusyInterval
	if err := s.busyQuery(day, &rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select busy intervals: %w", err)
	}
	out := make([]scheduling.Interval, 0, len(rows))
	for _, r := range rows {
		out = append(out, scheduling.Interval{Start: r.StartAt.In(s.loc), End: r.EndAt.In(s.loc)})
	}
	return out, nil
}

func (s *Store) addQuery(day string, iv scheduling.Interval) *bun.InsertQuery {
	return s.db.NewInsert().Model(&BusyInterval{
		Day:     day,
		StartAt: iv.Start,
		EndAt:   iv.End,
	})
}

func (s *Store) Add(ctx context.Context, day string, iv scheduling.Interval) error {
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("%w: interval start must precede end", scheduling.ErrMalformedInput)
	}
	if _, err := s.addQuery(day, iv).Exec(ctx); err != nil {
		return fmt.Errorf("insert busy interval: %w", err)
	}
	return nil
}

func (s *Store) appendQuery(value int) *bun.InsertQuery {
	return s.db.NewInsert().Model(&Rating{Value: value})
}

func (s *Store) Append(ctx context.Context, value int) error {
	if value < rating.MinRating || value > rating.MaxRating {
		return rating.ErrOutOfRange
	}
	if _, err := s.appendQuery(value).Exec(ctx); err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (s *Store) allQuery() *bun.SelectQuery {
	return s.db.NewSelect().Model((*Rating)(nil)).Column("value").Order("id ASC")
}

func (s *Store) All(ctx context.Context) ([]int, error) {
	values := []int{}
	if err := s.allQuery().Scan(ctx, &values); err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	return values, nil
}
