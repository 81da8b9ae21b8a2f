package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

func LoadOrCreateSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := loadOrCreateSession(ctx, store, in.SessionID, in.Now)
	if err != nil {
		return nil, err
	}
	in.Session = sess
	return in, nil
}

func loadOrCreateSession(ctx context.Context, store statex.Store, sessionID string, now time.Time) (*statex.Session, error) {
	sess, err := store.Load(ctx, sessionID)
	if err == nil {
		sess.EnsureArtifacts()
		return sess, nil
	}
	if !errors.Is(err, statex.ErrSessionNotFound) {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return statex.NewSession(sessionID, now), nil
}
