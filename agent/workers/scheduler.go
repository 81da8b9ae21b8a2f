package workers

import (
	"context"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
)

// Booker is the slice of the availability engine the scheduler needs.
type Booker interface {
	ProposeBooking(ctx context.Context, raw string) (string, error)
}

// MeetingScheduler turns a natural-language request into a booking attempt.
type MeetingScheduler struct {
	parser contractx.BookingParser
	booker Booker
}

func NewMeetingScheduler(parser contractx.BookingParser, booker Booker) *MeetingScheduler {
	return &MeetingScheduler{parser: parser, booker: booker}
}

func (w *MeetingScheduler) Invoke(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
	raw, err := w.parser.ParseBooking(ctx, req)
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	outcome, err := w.booker.ProposeBooking(ctx, raw)
	if err != nil {
		return contractx.WorkerResult{}, err
	}
	return contractx.TextResult(outcome, map[string]string{ArtifactBooking: outcome}), nil
}
