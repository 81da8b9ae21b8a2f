package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
)

type sentimentImpl struct {
	runner compose.Runnable[map[string]any, sentimentLLMOutput]
}

var _ contractx.SentimentClassifier = (*sentimentImpl)(nil)

type sentimentLLMOutput struct {
	Sentiment string `json:"sentiment"`
}

func newSentimentClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*sentimentImpl, error) {
	runner, err := compileStructuredLLMGraph[sentimentLLMOutput](ctx, chatModel, systemPrompt, "review.structured_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile sentiment graph: %v", contractx.ErrModelInvoke, err)
	}
	return &sentimentImpl{runner: runner}, nil
}

func (s *sentimentImpl) Classify(ctx context.Context, text string) (contractx.Sentiment, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: feedback text is empty", contractx.ErrValidation)
	}

	input, err := marshalInput(map[string]any{"feedback": text})
	if err != nil {
		return "", err
	}
	out, err := s.runner.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: sentiment invoke: %v", contractx.ErrModelInvoke, err)
	}

	switch sentiment := contractx.Sentiment(strings.ToLower(strings.TrimSpace(out.Sentiment))); sentiment {
	case contractx.SentimentPositive, contractx.SentimentNegative:
		return sentiment, nil
	default:
		return "", fmt.Errorf("%w: unsupported sentiment=%q", contractx.ErrSchemaViolation, out.Sentiment)
	}
}
