package specialist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	promptx "github.com/tanpawarit/chative-task-router/agent/prompt"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
	tools     [][]*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, input)
	f.tools = append(f.tools, einomodel.GetCommonOptions(&einomodel.Options{}, opts...).Tools)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func replyWith(content string) *fakeToolCallingModel {
	return &fakeToolCallingModel{responses: []*schema.Message{{Role: schema.Assistant, Content: content}}}
}

const testSupervisorPrompt = "Route the request. Workers:\n{workers}"

var testWorkers = []contractx.WorkerInfo{
	{ID: contractx.WorkerNewsFetcher, Description: "Fetches headlines."},
	{ID: contractx.WorkerNotifier, Description: "Sends email."},
}

func TestOracleTransfer(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: "call-1", Function: schema.FunctionCall{Name: "transfer_to_news_fetcher", Arguments: "{}"}},
			{ID: "call-2", Function: schema.FunctionCall{Name: "transfer_to_notifier", Arguments: "{}"}},
		},
	}}}

	oracle, err := newOracle(context.Background(), fake, testSupervisorPrompt)
	if err != nil {
		t.Fatalf("newOracle() error = %v", err)
	}

	decision, err := oracle.Decide(context.Background(), contractx.OracleRequest{
		History: []statex.Message{statex.UserMessage("news then email it")},
		Workers: testWorkers,
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.IsTransfer() {
		t.Fatalf("expected transfer, got %+v", decision)
	}
	if decision.Transfer.Worker != contractx.WorkerNewsFetcher || decision.Transfer.ToolCallID != "call-1" {
		t.Fatalf("first tool call must win, got %+v", decision.Transfer)
	}

	if len(fake.tools[0]) != 2 || fake.tools[0][0].Name != "transfer_to_news_fetcher" {
		t.Fatalf("handoff tools not passed to the model: %+v", fake.tools[0])
	}
	system := fake.inputs[0][0]
	if system.Role != schema.System || !strings.Contains(system.Content, "- notifier: Sends email.") {
		t.Fatalf("worker list not rendered into the system prompt: %q", system.Content)
	}
}

func TestOracleTerminalReply(t *testing.T) {
	t.Parallel()

	oracle, err := newOracle(context.Background(), replyWith("  Hello!  "), testSupervisorPrompt)
	if err != nil {
		t.Fatalf("newOracle() error = %v", err)
	}
	decision, err := oracle.Decide(context.Background(), contractx.OracleRequest{
		History: []statex.Message{statex.UserMessage("hi")},
		Workers: testWorkers,
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.IsTransfer() || decision.Reply != "Hello!" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestOracleErrors(t *testing.T) {
	t.Parallel()

	req := contractx.OracleRequest{History: []statex.Message{statex.UserMessage("hi")}}

	empty, err := newOracle(context.Background(), replyWith("   "), testSupervisorPrompt)
	if err != nil {
		t.Fatalf("newOracle() error = %v", err)
	}
	if _, err := empty.Decide(context.Background(), req); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}

	failing, err := newOracle(context.Background(), &fakeToolCallingModel{err: errors.New("503")}, testSupervisorPrompt)
	if err != nil {
		t.Fatalf("newOracle() error = %v", err)
	}
	if _, err := failing.Decide(context.Background(), req); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}

	if _, err := failing.Decide(context.Background(), contractx.OracleRequest{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty history, got %v", err)
	}
}

func TestToSchemaMessagesReplaysHandoffs(t *testing.T) {
	t.Parallel()

	msgs := toSchemaMessages([]statex.Message{
		statex.UserMessage("what's new?"),
		statex.ToolMessage("Transferring to news_fetcher", "transfer_to_news_fetcher", "call-1"),
		statex.ToolMessage("- headline", "news_fetcher", "call-1"),
		statex.AssistantMessage("Here you go."),
	})
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.User {
		t.Fatalf("unexpected first role: %s", msgs[0].Role)
	}
	if msgs[1].Role != schema.Assistant || len(msgs[1].ToolCalls) != 1 ||
		msgs[1].ToolCalls[0].ID != "call-1" || msgs[1].ToolCalls[0].Function.Name != "transfer_to_news_fetcher" {
		t.Fatalf("transfer must replay as an assistant tool call: %+v", msgs[1])
	}
	if msgs[2].Role != schema.Tool || msgs[2].ToolCallID != "call-1" {
		t.Fatalf("transfer notice must replay as the tool result: %+v", msgs[2])
	}
	if msgs[3].Role != schema.Assistant || msgs[3].Name != "news_fetcher" || msgs[3].Content != "- headline" {
		t.Fatalf("worker output must replay as a named assistant message: %+v", msgs[3])
	}
	if msgs[4].Role != schema.Assistant || msgs[4].Content != "Here you go." {
		t.Fatalf("unexpected last message: %+v", msgs[4])
	}
}

func TestSummarizer(t *testing.T) {
	t.Parallel()

	fake := replyWith(" - point one\n- point two ")
	s, err := newSummarizer(context.Background(), fake, "Summarise.")
	if err != nil {
		t.Fatalf("newSummarizer() error = %v", err)
	}

	out, err := s.Summarize(context.Background(), "Summarize in 2 bullets.", "long text")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if out != "- point one\n- point two" {
		t.Fatalf("unexpected summary: %q", out)
	}
	user := fake.inputs[0][1]
	if user.Content != "Summarize in 2 bullets.\n\nlong text" {
		t.Fatalf("unexpected user content: %q", user.Content)
	}

	if _, err := s.Summarize(context.Background(), "x", "  "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMailComposer(t *testing.T) {
	t.Parallel()

	c, err := newMailComposer(context.Background(),
		replyWith(`{"to":" boss@example.com ","subject":"News","body":"- headline"}`), "Compose.")
	if err != nil {
		t.Fatalf("newMailComposer() error = %v", err)
	}
	mail, err := c.Compose(context.Background(), contractx.WorkerRequest{
		Input:     "email the news to boss@example.com",
		Artifacts: map[string]string{"news": "- headline"},
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if mail.To != "boss@example.com" || mail.Subject != "News" || mail.Body != "- headline" {
		t.Fatalf("unexpected mail: %+v", mail)
	}

	missing, err := newMailComposer(context.Background(), replyWith(`{"to":"","subject":"","body":"x"}`), "Compose.")
	if err != nil {
		t.Fatalf("newMailComposer() error = %v", err)
	}
	if _, err := missing.Compose(context.Background(), contractx.WorkerRequest{Input: "email"}); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestBookingParser(t *testing.T) {
	t.Parallel()

	fake := replyWith(`{"start":"2025-07-14T11:00:00","minutes":0}`)
	p, err := newBookingParser(context.Background(), fake, "Parse.", time.UTC)
	if err != nil {
		t.Fatalf("newBookingParser() error = %v", err)
	}
	p.now = func() time.Time { return time.Date(2025, 7, 12, 8, 0, 0, 0, time.UTC) }

	raw, err := p.ParseBooking(context.Background(), contractx.WorkerRequest{Input: "meet Monday at 11"})
	if err != nil {
		t.Fatalf("ParseBooking() error = %v", err)
	}
	if raw != "2025-07-14T11:00:00|30" {
		t.Fatalf("unexpected booking input: %q", raw)
	}
	if !strings.Contains(fake.inputs[0][1].Content, "2025-07-12T08:00:00") {
		t.Fatalf("current time not passed to the model: %q", fake.inputs[0][1].Content)
	}

	none, err := newBookingParser(context.Background(), replyWith(`{"start":"","minutes":60}`), "Parse.", time.UTC)
	if err != nil {
		t.Fatalf("newBookingParser() error = %v", err)
	}
	raw, err = none.ParseBooking(context.Background(), contractx.WorkerRequest{Input: "sometime"})
	if err != nil || raw != "" {
		t.Fatalf("expected empty booking input, got %q, %v", raw, err)
	}
}

func TestSentimentClassifier(t *testing.T) {
	t.Parallel()

	pos, err := newSentimentClassifier(context.Background(), replyWith(`{"sentiment":"Positive"}`), "Classify.")
	if err != nil {
		t.Fatalf("newSentimentClassifier() error = %v", err)
	}
	got, err := pos.Classify(context.Background(), "great service")
	if err != nil || got != contractx.SentimentPositive {
		t.Fatalf("Classify() = %q, %v", got, err)
	}

	odd, err := newSentimentClassifier(context.Background(), replyWith(`{"sentiment":"meh"}`), "Classify.")
	if err != nil {
		t.Fatalf("newSentimentClassifier() error = %v", err)
	}
	if _, err := odd.Classify(context.Background(), "hmm"); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

type fakeTranscriptionAPI struct {
	model string
	text  string
	err   error
}

func (f *fakeTranscriptionAPI) New(ctx context.Context, body openaisdk.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openaisdk.Transcription, error) {
	f.model = string(body.Model)
	if f.err != nil {
		return nil, f.err
	}
	return &openaisdk.Transcription{Text: f.text}, nil
}

func TestTranscriber(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "meeting.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	api := &fakeTranscriptionAPI{text: " hello team "}
	tr := newTranscriber(api, "")
	got, err := tr.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "hello team" || api.model != "whisper-1" {
		t.Fatalf("unexpected transcript %q with model %q", got, api.model)
	}

	if _, err := tr.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatal("expected error for a missing file")
	}

	failing := newTranscriber(&fakeTranscriptionAPI{err: errors.New("413")}, "whisper-1")
	if _, err := failing.Transcribe(context.Background(), path); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestNewRegistryWithShippedPrompts(t *testing.T) {
	t.Parallel()

	reg, err := newRegistry(context.Background(), replyWith("hi"), replyWith("{}"), promptx.LoadPromptSet(), time.UTC)
	if err != nil {
		t.Fatalf("newRegistry() error = %v", err)
	}
	if reg.Oracle() == nil || reg.Summarizer() == nil || reg.MailComposer() == nil ||
		reg.BookingParser() == nil || reg.SentimentClassifier() == nil {
		t.Fatal("registry must hand out every capability")
	}
}

func TestOracleWithShippedSupervisorPrompt(t *testing.T) {
	t.Parallel()

	fake := replyWith("Hello!")
	oracle, err := newOracle(context.Background(), fake, promptx.LoadPromptSet().Supervisor)
	if err != nil {
		t.Fatalf("newOracle() error = %v", err)
	}
	if _, err := oracle.Decide(context.Background(), contractx.OracleRequest{
		History: []statex.Message{statex.UserMessage("hi")},
		Workers: testWorkers,
	}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if strings.Contains(fake.inputs[0][0].Content, "{workers}") {
		t.Fatal("worker list placeholder was not substituted")
	}
}
