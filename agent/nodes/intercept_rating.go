package nodes

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

type RatingInterceptor interface {
	Intercept(ctx context.Context, sess *statex.Session, text string) (string, bool, error)
}

func InterceptRating(ctx context.Context, in *GraphState, filter RatingInterceptor) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if filter == nil {
		return in, nil
	}

	reply, handled, err := filter.Intercept(ctx, in.Session, in.Text)
	if err != nil {
		return nil, fmt.Errorf("intercept rating: %w", err)
	}
	if handled {
		in.Intercepted = true
		in.Reply = reply
	}
	return in, nil
}
