package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

type summarizerImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Summarizer = (*summarizerImpl)(nil)

func newSummarizer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*summarizerImpl, error) {
	runner, err := compileTextGraph(ctx, chatModel, systemPrompt, "summarizer.text_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile summarizer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &summarizerImpl{runner: runner}, nil
}

func (s *summarizerImpl) Summarize(ctx context.Context, instruction string, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: nothing to summarize", contractx.ErrValidation)
	}

	input := text
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		input = instruction + "\n\n" + text
	}

	msg, err := s.runner.Invoke(ctx, map[string]any{inputVar: input})
	if err != nil {
		return "", fmt.Errorf("%w: summarizer invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: summary is empty", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(msg.Content), nil
}

type historyEntry struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// summarizeHistory keeps the last n messages in a compact form for prompts.
func summarizeHistory(history []statex.Message, n int) []historyEntry {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]historyEntry, 0, len(history))
	for _, m := range history {
		out = append(out, historyEntry{Role: string(m.Role), Name: m.ToolName, Content: m.Content})
	}
	return out
}

func marshalInput(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", contractx.ErrValidation, err)
	}
	return map[string]any{inputVar: string(raw)}, nil
}
