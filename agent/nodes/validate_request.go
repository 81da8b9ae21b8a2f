package nodes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = statex.ErrInvalidSession
	ErrUnknownRoute   = errors.New("unknown route")
)

// Route selects how a turn reaches the workers.
type Route string

const (
	// RouteSupervisor lets the oracle pick workers.
	RouteSupervisor Route = "supervisor"
	// RouteReview hands the turn straight to the review worker.
	RouteReview Route = "review"
)

type GraphInput struct {
	SessionID  string
	Text       string
	Attachment string
	Route      Route
}

type GraphOutput struct {
	SessionID string
	Reply     string
	History   []string
}

type GraphState struct {
	SessionID  string
	Text       string
	Attachment string
	Route      Route
	Now        time.Time

	Session     *statex.Session
	Intercepted bool
	Reply       string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	route := in.Route
	switch route {
	case "":
		route = RouteSupervisor
	case RouteSupervisor, RouteReview:
	default:
		return nil, fmt.Errorf("%w: %w %q", contractx.ErrValidation, ErrUnknownRoute, route)
	}

	return &GraphState{
		SessionID:  sessionID,
		Text:       text,
		Attachment: strings.TrimSpace(in.Attachment),
		Route:      route,
		Now:        nowFn().UTC(),
	}, nil
}
