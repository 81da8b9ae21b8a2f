package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	"github.com/tanpawarit/chative-task-router/agent/scheduling"
)

type bookingParserImpl struct {
	runner compose.Runnable[map[string]any, bookingLLMOutput]
	loc    *time.Location
	now    func() time.Time
}

var _ contractx.BookingParser = (*bookingParserImpl)(nil)

type bookingLLMOutput struct {
	Start   string `json:"start"`
	Minutes int    `json:"minutes"`
}

func newBookingParser(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	loc *time.Location,
) (*bookingParserImpl, error) {
	runner, err := compileStructuredLLMGraph[bookingLLMOutput](ctx, chatModel, systemPrompt, "scheduler.structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile booking parser graph: %v", contractx.ErrModelInvoke, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &bookingParserImpl{runner: runner, loc: loc, now: time.Now}, nil
}

// ParseBooking returns "<start>|<minutes>" for the engine. An empty string
// means the model found no usable time; the engine reports that as malformed.
func (p *bookingParserImpl) ParseBooking(ctx context.Context, req contractx.WorkerRequest) (string, error) {
	input, err := marshalInput(map[string]any{
		"now":     p.now().In(p.loc).Format(scheduling.TimeLayout),
		"request": req.Input,
		"summary": req.Artifact("summary"),
	})
	if err != nil {
		return "", err
	}

	out, err := p.runner.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: booking parser invoke: %v", contractx.ErrModelInvoke, err)
	}

	start := strings.TrimSpace(out.Start)
	if start == "" {
		return "", nil
	}
	minutes := out.Minutes
	if minutes <= 0 {
		minutes = scheduling.DefaultDurationMinutes
	}
	return fmt.Sprintf("%s|%d", start, minutes), nil
}
