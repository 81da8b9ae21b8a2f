package contract

import "context"

// Oracle decides, at the supervisor state, whether to reply or hand off.
type Oracle interface {
	Decide(ctx context.Context, req OracleRequest) (Decision, error)
}

// Worker performs one specialised task on a projection of the session.
type Worker interface {
	Invoke(ctx context.Context, req WorkerRequest) (WorkerResult, error)
}

type WorkerFunc func(ctx context.Context, req WorkerRequest) (WorkerResult, error)

func (f WorkerFunc) Invoke(ctx context.Context, req WorkerRequest) (WorkerResult, error) {
	return f(ctx, req)
}

type Summarizer interface {
	Summarize(ctx context.Context, instruction string, text string) (string, error)
}

type MailComposer interface {
	Compose(ctx context.Context, req WorkerRequest) (Mail, error)
}

// BookingParser turns a natural-language request into "<ISO time>|<minutes>".
type BookingParser interface {
	ParseBooking(ctx context.Context, req WorkerRequest) (string, error)
}

type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (Sentiment, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type NewsSource interface {
	TopHeadlines(ctx context.Context, category string, limit int) ([]NewsArticle, error)
}

type MailTransport interface {
	Send(ctx context.Context, mail Mail) error
}

// Registry hands out the LLM-backed capabilities.
type Registry interface {
	Oracle() Oracle
	Summarizer() Summarizer
	MailComposer() MailComposer
	BookingParser() BookingParser
	SentimentClassifier() SentimentClassifier
}
