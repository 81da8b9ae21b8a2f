package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	nodex "github.com/tanpawarit/chative-task-router/agent/nodes"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Route = nodex.Route

const (
	RouteSupervisor = nodex.RouteSupervisor
	RouteReview     = nodex.RouteReview
)

// Request is one user turn. An empty SessionID starts a new session.
type Request struct {
	SessionID  string
	Text       string
	Attachment string
	Route      Route
}

type Reply struct {
	SessionID string   `json:"session_id"`
	Response  string   `json:"response"`
	History   []string `json:"history"`
}

type Orchestrator struct {
	store   statex.Store
	router  nodex.TaskRouter
	ratings nodex.RatingInterceptor
	locks   *statex.KeyedMutex

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

// New wires the turn pipeline. ratings may be nil to disable the rating
// filter.
func New(
	store statex.Store,
	router nodex.TaskRouter,
	ratings nodex.RatingInterceptor,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if router == nil {
		return nil, errors.New("task router is required")
	}

	o := &Orchestrator{
		store:   store,
		router:  router,
		ratings: ratings,
		locks:   statex.NewKeyedMutex(),
		now:     time.Now,
		newID:   uuid.NewString,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one turn. Turns on the same session are serialised
// from load to save.
func (o *Orchestrator) HandleMessage(ctx context.Context, req Request) (Reply, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = o.newID()
	}

	unlock := o.locks.Lock(sessionID)
	defer unlock()

	start := o.now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID:  sessionID,
		Text:       req.Text,
		Attachment: req.Attachment,
		Route:      req.Route,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		return Reply{}, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("route", string(req.Route)).
		Dur("elapsed", o.now().Sub(start)).
		Msg("turn completed")
	return Reply{
		SessionID: out.SessionID,
		Response:  out.Reply,
		History:   out.History,
	}, nil
}
