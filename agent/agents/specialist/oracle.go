package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	promptx "github.com/tanpawarit/chative-task-router/agent/prompt"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
	toolx "github.com/tanpawarit/chative-task-router/agent/tool"
)

type oracleImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Oracle = (*oracleImpl)(nil)

func newOracle(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*oracleImpl, error) {
	runner, err := compileOracleGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile oracle graph: %v", contractx.ErrModelInvoke, err)
	}
	return &oracleImpl{runner: runner}, nil
}

// Decide maps the model answer onto the handoff protocol: a tool call is a
// transfer, plain content is the final reply. Only the first tool call is
// honoured so one worker runs per step.
func (o *oracleImpl) Decide(ctx context.Context, req contractx.OracleRequest) (contractx.Decision, error) {
	if len(req.History) == 0 {
		return contractx.Decision{}, fmt.Errorf("%w: history is empty", contractx.ErrValidation)
	}

	var opts []compose.Option
	if tools := toolx.Handoffs(req.Workers); len(tools) > 0 {
		opts = append(opts, compose.WithChatModelOption(einomodel.WithTools(tools)))
	}

	msg, err := o.runner.Invoke(ctx, map[string]any{
		promptx.WorkersVar: toolx.Describe(req.Workers),
		historyVar:         toSchemaMessages(req.History),
	}, opts...)
	if err != nil {
		return contractx.Decision{}, fmt.Errorf("%w: oracle invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return contractx.Decision{}, fmt.Errorf("%w: empty oracle response", contractx.ErrSchemaViolation)
	}

	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		if len(msg.ToolCalls) > 1 {
			log.Warn().
				Int("tool_calls", len(msg.ToolCalls)).
				Str("kept", call.Function.Name).
				Msg("oracle returned several tool calls, keeping the first")
		}
		worker := toolx.Resolve(call)
		if worker == "" {
			return contractx.Decision{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}
		return contractx.TransferRequest(worker, strings.TrimSpace(call.ID)), nil
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return contractx.Decision{}, fmt.Errorf("%w: oracle returned neither content nor a tool call", contractx.ErrSchemaViolation)
	}
	return contractx.TerminalReply(content), nil
}

// toSchemaMessages replays the session for the model. A transfer notice
// becomes the assistant tool call it stands for plus its tool result; a
// worker output becomes an assistant message named after the worker.
func toSchemaMessages(history []statex.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history)+4)
	for _, m := range history {
		switch m.Role {
		case statex.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case statex.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		case statex.RoleTool:
			if _, ok := contractx.WorkerFromToolName(m.ToolName); ok && m.ToolCallID != "" {
				out = append(out,
					schema.AssistantMessage("", []schema.ToolCall{{
						ID:   m.ToolCallID,
						Type: "function",
						Function: schema.FunctionCall{
							Name:      m.ToolName,
							Arguments: "{}",
						},
					}}),
					schema.ToolMessage(m.Content, m.ToolCallID),
				)
				continue
			}
			out = append(out, &schema.Message{
				Role:    schema.Assistant,
				Name:    m.ToolName,
				Content: m.Content,
			})
		}
	}
	return out
}
