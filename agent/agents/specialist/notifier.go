package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
)

const composerHistoryWindow = 12

type mailComposerImpl struct {
	runner compose.Runnable[map[string]any, mailLLMOutput]
}

var _ contractx.MailComposer = (*mailComposerImpl)(nil)

type mailLLMOutput struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func newMailComposer(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*mailComposerImpl, error) {
	runner, err := compileStructuredLLMGraph[mailLLMOutput](ctx, chatModel, systemPrompt, "notifier.structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile mail composer graph: %v", contractx.ErrModelInvoke, err)
	}
	return &mailComposerImpl{runner: runner}, nil
}

// Compose drafts the mail. An empty recipient is allowed; the notifier fills
// in its default.
func (c *mailComposerImpl) Compose(ctx context.Context, req contractx.WorkerRequest) (contractx.Mail, error) {
	input, err := marshalInput(map[string]any{
		"request":   req.Input,
		"artifacts": req.Artifacts,
		"history":   summarizeHistory(req.History, composerHistoryWindow),
	})
	if err != nil {
		return contractx.Mail{}, err
	}

	out, err := c.runner.Invoke(ctx, input)
	if err != nil {
		return contractx.Mail{}, fmt.Errorf("%w: mail composer invoke: %v", contractx.ErrModelInvoke, err)
	}

	mail := contractx.Mail{
		To:      strings.TrimSpace(out.To),
		Subject: strings.TrimSpace(out.Subject),
		Body:    strings.TrimSpace(out.Body),
	}
	if mail.Subject == "" || mail.Body == "" {
		return contractx.Mail{}, fmt.Errorf("%w: mail subject and body are required", contractx.ErrSchemaViolation)
	}
	return mail, nil
}
