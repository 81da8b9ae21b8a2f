package rating

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

const (
	// Prompt is the marker the review worker ends its reply with.
	Prompt = "Please rate us from 1 to 5 stars"

	MinRating = 1
	MaxRating = 5

	replyFormat = "Thanks! You rated us %d ⭐. Our current average rating is %.2f ⭐."
)

var ErrOutOfRange = errors.New("rating must be between 1 and 5")

// Store is an append-only log of ratings.
type Store interface {
	Append(ctx context.Context, rating int) error
	All(ctx context.Context) ([]int, error)
}

// Average recomputes the mean over every stored rating, 0 when empty.
func Average(ctx context.Context, store Store) (float64, int, error) {
	all, err := store.All(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load ratings: %w", err)
	}
	if len(all) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, r := range all {
		sum += r
	}
	return float64(sum) / float64(len(all)), len(all), nil
}

// Parse accepts an integer in [1,5] surrounded by optional whitespace.
func Parse(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < MinRating || n > MaxRating {
		return 0, false
	}
	return n, true
}

// Filter short-circuits a turn when the user answers a rating prompt.
type Filter struct {
	store Store
}

func NewFilter(store Store) (*Filter, error) {
	if store == nil {
		return nil, errors.New("rating store is required")
	}
	return &Filter{store: store}, nil
}

// Intercept expects the new user message to be the last one in sess. When
// the previous assistant message asked for a rating and the text is a valid
// rating, it records it, appends the thank-you reply and reports handled.
func (f *Filter) Intercept(ctx context.Context, sess *statex.Session, text string) (string, bool, error) {
	if sess == nil {
		return "", false, statex.ErrNilSession
	}
	prev, ok := sess.LastAssistantBeforeLatestUser()
	if !ok || !strings.Contains(prev.Content, Prompt) {
		return "", false, nil
	}
	n, ok := Parse(text)
	if !ok {
		return "", false, nil
	}

	if err := f.store.Append(ctx, n); err != nil {
		return "", false, fmt.Errorf("append rating: %w", err)
	}
	avg, count, err := Average(ctx, f.store)
	if err != nil {
		return "", false, err
	}

	reply := fmt.Sprintf(replyFormat, n, avg)
	if err := sess.Append(statex.AssistantMessage(reply)); err != nil {
		return "", false, err
	}

	log.Info().
		Str("session_id", sess.ID).
		Int("rating", n).
		Int("count", count).
		Float64("average", avg).
		Msg("rating recorded")
	return reply, true, nil
}
