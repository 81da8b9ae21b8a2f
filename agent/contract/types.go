package contract

import (
	"fmt"
	"strings"

	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

type AgentType string

const (
	AgentTypeSupervisor AgentType = "supervisor"
	AgentTypeDocument   AgentType = "document"
	AgentTypeAudio      AgentType = "audio"
	AgentTypeNews       AgentType = "news"
	AgentTypeNotifier   AgentType = "notifier"
	AgentTypeScheduler  AgentType = "scheduler"
	AgentTypeReview     AgentType = "review"
)

// WorkerID names a registered worker. It is also the suffix of the handoff
// tool the oracle calls, e.g. transfer_to_news_fetcher.
type WorkerID string

const (
	WorkerDocumentSummarizer WorkerID = "document_summarizer"
	WorkerAudioSummarizer    WorkerID = "audio_summarizer"
	WorkerNewsFetcher        WorkerID = "news_fetcher"
	WorkerNotifier           WorkerID = "notifier"
	WorkerMeetingScheduler   WorkerID = "meeting_scheduler"
	WorkerReviewAgent        WorkerID = "review_agent"
)

const transferPrefix = "transfer_to_"

// TransferToolName returns the handoff tool name for a worker.
func TransferToolName(id WorkerID) string {
	return transferPrefix + string(id)
}

// WorkerFromToolName reverses TransferToolName.
func WorkerFromToolName(name string) (WorkerID, bool) {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, transferPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(name, transferPrefix)
	if id == "" {
		return "", false
	}
	return WorkerID(id), true
}

type WorkerInfo struct {
	ID          WorkerID `json:"id"`
	Description string   `json:"description"`
}

type OracleRequest struct {
	History []statex.Message `json:"history"`
	Workers []WorkerInfo     `json:"workers"`
}

type DecisionKind int

const (
	DecisionReply DecisionKind = iota + 1
	DecisionTransfer
)

// Decision is what the oracle returns at the supervisor state: either a
// terminal reply or a transfer to exactly one worker.
type Decision struct {
	Kind     DecisionKind
	Reply    string
	Transfer TransferCommand
}

// TransferCommand hands control to a worker. It is never persisted as an answer.
type TransferCommand struct {
	Worker     WorkerID `json:"worker"`
	ToolCallID string   `json:"tool_call_id"`
}

func TerminalReply(text string) Decision {
	return Decision{Kind: DecisionReply, Reply: text}
}

func TransferRequest(worker WorkerID, toolCallID string) Decision {
	return Decision{
		Kind:     DecisionTransfer,
		Transfer: TransferCommand{Worker: worker, ToolCallID: toolCallID},
	}
}

func (d Decision) IsTransfer() bool {
	return d.Kind == DecisionTransfer
}

// WorkerRequest is a worker's projection of the session.
type WorkerRequest struct {
	History   []statex.Message  `json:"history"`
	Artifacts map[string]string `json:"artifacts"`
	Input     string            `json:"input"`
}

func (r WorkerRequest) Artifact(name string) string {
	if r.Artifacts == nil {
		return ""
	}
	return r.Artifacts[name]
}

type WorkerResult struct {
	Output          statex.Message    `json:"output"`
	ArtifactUpdates map[string]string `json:"artifact_updates,omitempty"`
}

// TextResult builds a result whose output is plain text. The router fills in
// the tool name and call id.
func TextResult(text string, artifacts map[string]string) WorkerResult {
	return WorkerResult{
		Output:          statex.Message{Role: statex.RoleTool, Content: text},
		ArtifactUpdates: artifacts,
	}
}

// Failure is a worker-internal fault. The router turns it into worker output text.
type Failure struct {
	Worker  WorkerID
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed: %s", f.Worker, f.Message)
}

func (f *Failure) Unwrap() error {
	return ErrWorkerFailure
}

func NewFailure(worker WorkerID, err error) *Failure {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Failure{Worker: worker, Message: msg}
}

// NewsArticle is a single headline returned by a news source.
type NewsArticle struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Mail is a composed notification.
type Mail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)
