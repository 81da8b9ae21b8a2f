package router

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

const (
	DefaultMaxSteps      = 10
	DefaultWorkerTimeout = 2 * time.Minute
	DefaultOracleTimeout = time.Minute

	supervisorIndex = 0
	terminalIndex   = -1

	transferNoticeFormat = "Transferring to %s"
	budgetExceededReply  = "Sorry, I could not complete your request within the allowed number of steps."
	oracleFailureReply   = "Sorry, something went wrong while handling your request. Please try again."
	protocolNoticeFormat = "Sorry, I could not route your request: %s."
)

// ProjectionFunc builds a worker's input from the session.
type ProjectionFunc func(sess *statex.Session) contractx.WorkerRequest

// WorkerSpec registers one worker reachable from the supervisor.
type WorkerSpec struct {
	ID          contractx.WorkerID
	Description string
	Worker      contractx.Worker
	Project     ProjectionFunc
}

type node struct {
	id      contractx.WorkerID
	info    contractx.WorkerInfo
	worker  contractx.Worker
	project ProjectionFunc
}

type Option func(*Router)

func WithMaxSteps(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// WithWorkerTimeout bounds each worker call. Workers must honour ctx for
// the bound to hold; a worker that ignores it still returns late, and its
// result is then replaced by the timeout failure.
func WithWorkerTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.workerTimeout = d
		}
	}
}

func WithOracleTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.oracleTimeout = d
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Router) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// Router drives one turn as a state machine over an arena of states:
// index 0 is the supervisor, 1..n are workers, -1 is terminal. It keeps no
// per-session state and is safe for concurrent use across sessions.
type Router struct {
	oracle contractx.Oracle
	arena  []node
	index  map[contractx.WorkerID]int
	infos  []contractx.WorkerInfo

	maxSteps      int
	workerTimeout time.Duration
	oracleTimeout time.Duration
	newID         func() string
}

func New(oracle contractx.Oracle, workers []WorkerSpec, opts ...Option) (*Router, error) {
	if oracle == nil {
		return nil, errors.New("oracle is required")
	}

	r := &Router{
		oracle:        oracle,
		arena:         make([]node, 1, len(workers)+1),
		index:         make(map[contractx.WorkerID]int, len(workers)),
		maxSteps:      DefaultMaxSteps,
		workerTimeout: DefaultWorkerTimeout,
		oracleTimeout: DefaultOracleTimeout,
		newID:         uuid.NewString,
	}

	for _, w := range workers {
		id := contractx.WorkerID(strings.TrimSpace(string(w.ID)))
		if id == "" {
			return nil, fmt.Errorf("%w: worker id is empty", contractx.ErrValidation)
		}
		if w.Worker == nil {
			return nil, fmt.Errorf("%w: worker=%s has no implementation", contractx.ErrValidation, id)
		}
		if _, dup := r.index[id]; dup {
			return nil, fmt.Errorf("%w: worker=%s registered twice", contractx.ErrValidation, id)
		}
		project := w.Project
		if project == nil {
			project = DefaultProjection
		}
		info := contractx.WorkerInfo{ID: id, Description: strings.TrimSpace(w.Description)}
		r.index[id] = len(r.arena)
		r.arena = append(r.arena, node{id: id, info: info, worker: w.Worker, project: project})
		r.infos = append(r.infos, info)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Workers lists reachable workers in registration order.
func (r *Router) Workers() []contractx.WorkerInfo {
	return append([]contractx.WorkerInfo(nil), r.infos...)
}

// Run executes the loop for a session whose newest message is the user's
// input. It always ends by appending exactly one assistant message and
// returns its text. Errors are returned only when the session itself
// rejects an append.
func (r *Router) Run(ctx context.Context, sess *statex.Session) (string, error) {
	if sess == nil {
		return "", statex.ErrNilSession
	}
	logger := log.With().Str("session_id", sess.ID).Logger()

	current := supervisorIndex
	var (
		pending contractx.TransferCommand
		reply   string
		steps   int
	)

	for current != terminalIndex {
		if current == supervisorIndex {
			if steps >= r.maxSteps {
				logger.Warn().
					Int("max_steps", r.maxSteps).
					Err(contractx.ErrStepBudgetExceeded).
					Msg("router step budget exhausted")
				reply = budgetExceededReply
				if err := sess.Append(statex.AssistantMessage(reply)); err != nil {
					return "", err
				}
				current = terminalIndex
				continue
			}
			steps++

			decision, err := r.decide(ctx, sess)
			if err != nil {
				logger.Error().Err(err).Int("step", steps).Msg("oracle decision failed")
				reply = oracleFailureReply
				if err := sess.Append(statex.AssistantMessage(reply)); err != nil {
					return "", err
				}
				current = terminalIndex
				continue
			}

			if !decision.IsTransfer() {
				reply = decision.Reply
				if err := sess.Append(statex.AssistantMessage(reply)); err != nil {
					return "", err
				}
				current = terminalIndex
				continue
			}

			next, ok := r.index[decision.Transfer.Worker]
			if !ok {
				err := fmt.Errorf("%w: %q", contractx.ErrProtocolViolation, decision.Transfer.Worker)
				logger.Error().Err(err).Int("step", steps).Msg("oracle protocol violation")
				reply = fmt.Sprintf(protocolNoticeFormat, err)
				if err := sess.Append(statex.AssistantMessage(reply)); err != nil {
					return "", err
				}
				current = terminalIndex
				continue
			}

			pending = decision.Transfer
			if strings.TrimSpace(pending.ToolCallID) == "" {
				pending.ToolCallID = r.newID()
			}
			notice := statex.ToolMessage(
				fmt.Sprintf(transferNoticeFormat, pending.Worker),
				contractx.TransferToolName(pending.Worker),
				pending.ToolCallID,
			)
			if err := sess.Append(notice); err != nil {
				return "", err
			}
			logger.Debug().
				Str("worker", string(pending.Worker)).
				Str("tool_call_id", pending.ToolCallID).
				Int("step", steps).
				Msg("transfer to worker")
			current = next
			continue
		}

		n := r.arena[current]
		result := r.invoke(ctx, n, sess)

		out := result.Output
		out.Role = statex.RoleTool
		out.ToolName = string(n.id)
		out.ToolCallID = pending.ToolCallID
		if err := sess.Append(out); err != nil {
			return "", err
		}
		sess.MergeArtifacts(result.ArtifactUpdates)
		current = supervisorIndex
	}

	return reply, nil
}

// RunDirect skips the oracle and hands the turn to one worker. Its output,
// failure text included, becomes the turn's assistant reply.
func (r *Router) RunDirect(ctx context.Context, sess *statex.Session, id contractx.WorkerID) (string, error) {
	if sess == nil {
		return "", statex.ErrNilSession
	}
	idx, ok := r.index[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", contractx.ErrProtocolViolation, id)
	}

	result := r.invoke(ctx, r.arena[idx], sess)
	reply := result.Output.Content
	if err := sess.Append(statex.AssistantMessage(reply)); err != nil {
		return "", err
	}
	sess.MergeArtifacts(result.ArtifactUpdates)
	return reply, nil
}

func (r *Router) decide(ctx context.Context, sess *statex.Session) (contractx.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.oracleTimeout)
	defer cancel()

	decision, err := r.oracle.Decide(ctx, contractx.OracleRequest{
		History: sess.History(),
		Workers: r.Workers(),
	})
	if err != nil {
		return contractx.Decision{}, err
	}
	switch decision.Kind {
	case contractx.DecisionReply:
		if strings.TrimSpace(decision.Reply) == "" {
			return contractx.Decision{}, fmt.Errorf("%w: blank terminal reply", contractx.ErrSchemaViolation)
		}
		return decision, nil
	case contractx.DecisionTransfer:
		return decision, nil
	default:
		return contractx.Decision{}, fmt.Errorf("%w: unknown decision kind %d", contractx.ErrSchemaViolation, decision.Kind)
	}
}

// invoke never fails: worker errors, panics and timeouts become text output.
func (r *Router) invoke(ctx context.Context, n node, sess *statex.Session) (result contractx.WorkerResult) {
	ctx, cancel := context.WithTimeout(ctx, r.workerTimeout)
	defer cancel()

	logger := log.With().Str("session_id", sess.ID).Str("worker", string(n.id)).Logger()
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			failure := &contractx.Failure{Worker: n.id, Message: fmt.Sprint(p)}
			logger.Error().Interface("panic", p).Msg("worker panicked")
			result = contractx.TextResult(failure.Error(), nil)
		}
	}()

	req := n.project(sess.Clone())
	res, err := n.worker.Invoke(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		var failure *contractx.Failure
		if !errors.As(err, &failure) {
			failure = contractx.NewFailure(n.id, err)
		}
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("worker failed")
		return contractx.TextResult(failure.Error(), nil)
	}

	logger.Debug().Dur("elapsed", time.Since(start)).Int("artifacts", len(res.ArtifactUpdates)).Msg("worker done")
	res.ArtifactUpdates = maps.Clone(res.ArtifactUpdates)
	return res
}
