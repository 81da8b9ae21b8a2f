package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

type TaskRouter interface {
	Run(ctx context.Context, sess *statex.Session) (string, error)
	RunDirect(ctx context.Context, sess *statex.Session, id contractx.WorkerID) (string, error)
}

// RouteTask runs the router unless the rating filter already answered.
func RouteTask(ctx context.Context, in *GraphState, r TaskRouter) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Intercepted {
		return in, nil
	}

	var (
		reply string
		err   error
	)
	switch in.Route {
	case RouteReview:
		reply, err = r.RunDirect(ctx, in.Session, contractx.WorkerReviewAgent)
	default:
		reply, err = r.Run(ctx, in.Session)
	}
	if err != nil {
		return nil, fmt.Errorf("route task: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("%w: route %q produced an empty reply", contractx.ErrValidation, in.Route)
	}

	log.Debug().
		Str("session_id", in.SessionID).
		Str("route", string(in.Route)).
		Int("messages", len(in.Session.Messages)).
		Msg("turn routed")
	in.Reply = reply
	return in, nil
}
