// Package redisstore keeps the calendar and the rating log in Redis lists.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanpawarit/chative-task-router/agent/rating"
	"github.com/tanpawarit/chative-task-router/agent/scheduling"
)

// Config is loaded with the REDIS prefix.
type Config struct {
	Addr      string `envconfig:"ADDR" default:"localhost:6379"`
	Password  string `envconfig:"PASSWORD"`
	DB        int    `envconfig:"DB" default:"0"`
	Namespace string `envconfig:"NAMESPACE" default:"router"`
}

func (c Config) Options() *redis.Options {
	return &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// Client is safe for concurrent use. All keys are prefixed with the namespace.
// Appends are single RPUSH commands, so Redis serialises concurrent writers.
type Client struct {
	rdb       *redis.Client
	namespace string
	loc       *time.Location
}

var (
	_ scheduling.CalendarStore = (*Client)(nil)
	_ rating.Store             = (*Client)(nil)
)

func NewClient(redisOpts *redis.Options, namespace string, loc *time.Location) (*Client, error) {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		loc:       loc,
	}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func CalendarKey(namespace, day string) string {
	return fmt.Sprintf("%s:calendar:%s", namespace, day)
}

func RatingsKey(namespace string) string {
	return namespace + ":ratings"
}

func (c *Client) Busy(ctx context.Context, day string) ([]scheduling.Interval, error) {
	raw, err := c.rdb.LRange(ctx, CalendarKey(c.namespace, day), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar day %s: %w", day, err)
	}

	out := make([]scheduling.Interval, 0, len(raw))
	for _, item := range raw {
		var pair [2]string
		if err := json.Unmarshal([]byte(item), &pair); err != nil {
			return nil, fmt.Errorf("failed to decode busy interval: %w", err)
		}
		start, err := time.ParseInLocation(scheduling.TimeLayout, pair[0], c.loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start %q: %w", pair[0], err)
		}
		end, err := time.ParseInLocation(scheduling.TimeLayout, pair[1], c.loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end %q: %w", pair[1], err)
		}
		out = append(out, scheduling.Interval{Start: start, End: end})
	}
	return out, nil
}

func (c *Client) Add(ctx context.Context, day string, iv scheduling.Interval) error {
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("%w: interval start must precede end", scheduling.ErrMalformedInput)
	}
	payload, err := json.Marshal([2]string{
		iv.Start.In(c.loc).Format(scheduling.TimeLayout),
		iv.End.In(c.loc).Format(scheduling.TimeLayout),
	})
	if err != nil {
		return fmt.Errorf("failed to encode busy interval: %w", err)
	}
	if err := c.rdb.RPush(ctx, CalendarKey(c.namespace, day), payload).Err(); err != nil {
		return fmt.Errorf("failed to write busy interval to Redis: %w", err)
	}
	return nil
}

func (c *Client) Append(ctx context.Context, value int) error {
	if value < rating.MinRating || value > rating.MaxRating {
		return rating.ErrOutOfRange
	}
	if err := c.rdb.RPush(ctx, RatingsKey(c.namespace), value).Err(); err != nil {
		return fmt.Errorf("failed to write rating to Redis: %w", err)
	}
	return nil
}

func (c *Client) All(ctx context.Context) ([]int, error) {
	raw, err := c.rdb.LRange(ctx, RatingsKey(c.namespace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings from Redis: %w", err)
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		v, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode rating %q: %w", item, err)
		}
		out = append(out, v)
	}
	return out, nil
}
