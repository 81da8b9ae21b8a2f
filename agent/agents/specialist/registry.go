package specialist

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	llmx "github.com/tanpawarit/chative-task-router/agent/llm"
	promptx "github.com/tanpawarit/chative-task-router/agent/prompt"
)

type registryImpl struct {
	oracle        contractx.Oracle
	summarizer    contractx.Summarizer
	mailComposer  contractx.MailComposer
	bookingParser contractx.BookingParser
	sentiment     contractx.SentimentClassifier
}

func (r *registryImpl) Oracle() contractx.Oracle {
	return r.oracle
}

func (r *registryImpl) Summarizer() contractx.Summarizer {
	return r.summarizer
}

func (r *registryImpl) MailComposer() contractx.MailComposer {
	return r.mailComposer
}

func (r *registryImpl) BookingParser() contractx.BookingParser {
	return r.bookingParser
}

func (r *registryImpl) SentimentClassifier() contractx.SentimentClassifier {
	return r.sentiment
}

// NewRegistry builds every LLM-backed capability. loc is the scheduling
// location used to resolve relative meeting times.
func NewRegistry(ctx context.Context, cfg llmx.Config, loc *time.Location) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	supervisorModelCfg := cfg.OpenRouterFor(contractx.AgentTypeSupervisor)
	supervisorModel, err := supervisorModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create supervisor model: %v", contractx.ErrModelInvoke, err)
	}
	workerModelCfg := cfg.OpenRouterFor(contractx.AgentTypeDocument)
	workerModel, err := workerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create worker model: %v", contractx.ErrModelInvoke, err)
	}

	return newRegistry(ctx, supervisorModel, workerModel, promptx.LoadPromptSet(), loc)
}

func newRegistry(
	ctx context.Context,
	supervisorModel einomodel.BaseChatModel,
	workerModel einomodel.BaseChatModel,
	prompts promptx.PromptSet,
	loc *time.Location,
) (*registryImpl, error) {
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	oracle, err := newOracle(ctx, supervisorModel, prompts.Supervisor)
	if err != nil {
		return nil, err
	}
	summarizer, err := newSummarizer(ctx, workerModel, prompts.Summarizer)
	if err != nil {
		return nil, err
	}
	composer, err := newMailComposer(ctx, workerModel, prompts.Notifier)
	if err != nil {
		return nil, err
	}
	parser, err := newBookingParser(ctx, workerModel, prompts.Scheduler, loc)
	if err != nil {
		return nil, err
	}
	sentiment, err := newSentimentClassifier(ctx, workerModel, prompts.Review)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		oracle:        oracle,
		summarizer:    summarizer,
		mailComposer:  composer,
		bookingParser: parser,
		sentiment:     sentiment,
	}, nil
}
