package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/chative-task-router/agent/nodes"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateSession(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_session: %w", err)
	}

	if err := graph.AddLambdaNode("append_user_message",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AppendUserMessage(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node append_user_message: %w", err)
	}

	if err := graph.AddLambdaNode("intercept_rating",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InterceptRating(ctx, in, o.ratings)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node intercept_rating: %w", err)
	}

	if err := graph.AddLambdaNode("route_task",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteTask(ctx, in, o.router)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_task: %w", err)
	}

	if err := graph.AddLambdaNode("save_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_session"},
		{"load_or_create_session", "append_user_message"},
		{"append_user_message", "intercept_rating"},
		{"intercept_rating", "route_task"},
		{"route_task", "save_session"},
		{"save_session", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
