package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/chative-task-router/agent/contract"
	statex "github.com/tanpawarit/chative-task-router/agent/state"
)

type scriptedOracle struct {
	mu        sync.Mutex
	decisions []contractx.Decision
	errs      []error
	requests  []contractx.OracleRequest
	fallback  *contractx.Decision
}

func (o *scriptedOracle) Decide(ctx context.Context, req contractx.OracleRequest) (contractx.Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := len(o.requests)
	o.requests = append(o.requests, req)
	if idx < len(o.errs) && o.errs[idx] != nil {
		return contractx.Decision{}, o.errs[idx]
	}
	if idx < len(o.decisions) {
		return o.decisions[idx], nil
	}
	if o.fallback != nil {
		return *o.fallback, nil
	}
	return contractx.Decision{}, fmt.Errorf("no scripted decision at call=%d", idx+1)
}

func (o *scriptedOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.requests)
}

type fakeWorker struct {
	mu       sync.Mutex
	result   contractx.WorkerResult
	err      error
	requests []contractx.WorkerRequest
}

func (w *fakeWorker) Invoke(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requests = append(w.requests, req)
	if w.err != nil {
		return contractx.WorkerResult{}, w.err
	}
	return w.result, nil
}

func (w *fakeWorker) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.requests)
}

func newSession(t *testing.T, text string) *statex.Session {
	t.Helper()
	s := statex.NewSession("session-1", time.Now())
	if err := s.Append(statex.UserMessage(text)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	return s
}

func newTestRouter(t *testing.T, oracle contractx.Oracle, workers []WorkerSpec, opts ...Option) *Router {
	t.Helper()
	r, err := New(oracle, workers, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func countRoles(msgs []statex.Message) map[statex.Role]int {
	out := map[statex.Role]int{}
	for _, m := range msgs {
		out[m.Role]++
	}
	return out
}

func TestRunTerminalReply(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{decisions: []contractx.Decision{contractx.TerminalReply("Hello there")}}
	r := newTestRouter(t, oracle, nil)
	sess := newSession(t, "hi")

	reply, err := r.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != "Hello there" {
		t.Fatalf("reply = %q", reply)
	}
	if len(sess.Messages) != 2 || sess.Messages[1].Role != statex.RoleAssistant {
		t.Fatalf("unexpected history: %+v", sess.Messages)
	}
}

func TestRunTransferThenReply(t *testing.T) {
	t.Parallel()

	news := &fakeWorker{result: contractx.TextResult("- headline one", map[string]string{"news": "- headline one"})}
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest(contractx.WorkerNewsFetcher, "call-1"),
		contractx.TerminalReply("Here is the news."),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{
		{ID: contractx.WorkerNewsFetcher, Description: "fetches news", Worker: news},
	})
	sess := newSession(t, "what's new?")

	reply, err := r.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != "Here is the news." {
		t.Fatalf("reply = %q", reply)
	}

	if len(sess.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(sess.Messages), sess.Messages)
	}
	notice := sess.Messages[1]
	if notice.Role != statex.RoleTool || notice.Content != "Transferring to news_fetcher" ||
		notice.ToolName != "transfer_to_news_fetcher" || notice.ToolCallID != "call-1" {
		t.Fatalf("unexpected transfer notice: %+v", notice)
	}
	output := sess.Messages[2]
	if output.Role != statex.RoleTool || output.ToolName != "news_fetcher" || output.ToolCallID != "call-1" {
		t.Fatalf("unexpected worker output: %+v", output)
	}
	if sess.Artifacts["news"] != "- headline one" {
		t.Fatalf("artifacts = %#v", sess.Artifacts)
	}
	if got := news.requests[0].Input; got != "what's new?" {
		t.Fatalf("worker input = %q", got)
	}

	// the second oracle call sees the worker output
	if n := len(oracle.requests[1].History); n != 3 {
		t.Fatalf("second oracle call saw %d messages, want 3", n)
	}
	if len(oracle.requests[0].Workers) != 1 || oracle.requests[0].Workers[0].Description != "fetches news" {
		t.Fatalf("unexpected workers: %+v", oracle.requests[0].Workers)
	}

	roles := countRoles(sess.Messages)
	if roles[statex.RoleUser] != 1 || roles[statex.RoleAssistant] != 1 {
		t.Fatalf("turn must hold one user and one assistant message, got %v", roles)
	}
}

func TestRunUnknownWorkerIsProtocolViolation(t *testing.T) {
	t.Parallel()

	worker := &fakeWorker{}
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest("ghost_worker", "call-1"),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerNotifier, Worker: worker}})
	sess := newSession(t, "do something")

	reply, err := r.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(reply, "ghost_worker") {
		t.Fatalf("reply must name the unknown worker: %q", reply)
	}
	if oracle.calls() != 1 {
		t.Fatalf("no retry expected, oracle called %d times", oracle.calls())
	}
	if worker.calls() != 0 {
		t.Fatal("no worker may run on a protocol violation")
	}
	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != statex.RoleAssistant || last.Content != reply {
		t.Fatalf("unexpected last message: %+v", last)
	}
}

func TestRunStepBudgetExceeded(t *testing.T) {
	t.Parallel()

	loop := contractx.TransferRequest(contractx.WorkerNewsFetcher, "")
	oracle := &scriptedOracle{fallback: &loop}
	worker := &fakeWorker{result: contractx.TextResult("again", nil)}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerNewsFetcher, Worker: worker}}, WithMaxSteps(3))
	sess := newSession(t, "loop forever")

	reply, err := r.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != budgetExceededReply {
		t.Fatalf("reply = %q", reply)
	}
	if oracle.calls() != 3 || worker.calls() != 3 {
		t.Fatalf("oracle=%d worker=%d, want 3/3", oracle.calls(), worker.calls())
	}
	roles := countRoles(sess.Messages)
	if roles[statex.RoleAssistant] != 1 {
		t.Fatalf("expected one assistant message, got %v", roles)
	}
}

func TestRunWorkerFailureBecomesOutput(t *testing.T) {
	t.Parallel()

	worker := &fakeWorker{err: errors.New("smtp rejected")}
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest(contractx.WorkerNotifier, "call-9"),
		contractx.TerminalReply("I could not send the email."),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerNotifier, Worker: worker}})
	sess := newSession(t, "email my boss")

	reply, err := r.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != "I could not send the email." {
		t.Fatalf("reply = %q", reply)
	}
	output := sess.Messages[2]
	if output.Content != "notifier failed: smtp rejected" {
		t.Fatalf("unexpected failure text: %q", output.Content)
	}
	if output.ToolCallID != "call-9" {
		t.Fatalf("failure output must carry the transfer call id, got %q", output.ToolCallID)
	}
}

func TestRunWorkerTimeout(t *testing.T) {
	t.Parallel()

	slow := contractx.WorkerFunc(func(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
		<-ctx.Done()
		return contractx.WorkerResult{}, ctx.Err()
	})
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest(contractx.WorkerAudioSummarizer, "c"),
		contractx.TerminalReply("done"),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerAudioSummarizer, Worker: slow}},
		WithWorkerTimeout(20*time.Millisecond))
	sess := newSession(t, "summarise audio")

	if _, err := r.Run(context.Background(), sess); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	output := sess.Messages[2].Content
	if !strings.HasPrefix(output, "audio_summarizer failed:") || !strings.Contains(output, "deadline exceeded") {
		t.Fatalf("unexpected timeout output: %q", output)
	}
}

func TestRunWorkerPanicBecomesOutput(t *testing.T) {
	t.Parallel()

	boom := contractx.WorkerFunc(func(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
		panic("nil map")
	})
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest(contractx.WorkerDocumentSummarizer, "c"),
		contractx.TerminalReply("sorry"),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerDocumentSummarizer, Worker: boom}})
	sess := newSession(t, "summarise")

	if _, err := r.Run(context.Background(), sess); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := sess.Messages[2].Content; got != "document_summarizer failed: nil map" {
		t.Fatalf("unexpected panic output: %q", got)
	}
}

func TestRunOracleFailureIsTerminal(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{errs: []error{errors.New("rate limited")}}
	r := newTestRouter(t, oracle, nil)
	sess := newSession(t, "hi")

	reply, err := r.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != oracleFailureReply {
		t.Fatalf("reply = %q", reply)
	}
	if sess.Messages[len(sess.Messages)-1].Role != statex.RoleAssistant {
		t.Fatal("oracle failure must still close the turn with an assistant message")
	}
}

func TestRunBlankReplyIsOracleFailure(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{decisions: []contractx.Decision{contractx.TerminalReply("   ")}}
	r := newTestRouter(t, oracle, nil)
	sess := newSession(t, "hi")

	reply, err := r.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != oracleFailureReply {
		t.Fatalf("reply = %q, want oracle failure notice", reply)
	}
	if len(sess.Messages) != 2 || sess.Messages[1].Content != oracleFailureReply {
		t.Fatalf("unexpected history: %+v", sess.Messages)
	}
}

func TestRunGeneratesMissingCallID(t *testing.T) {
	t.Parallel()

	worker := &fakeWorker{result: contractx.TextResult("ok", nil)}
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest(contractx.WorkerNotifier, ""),
		contractx.TerminalReply("sent"),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerNotifier, Worker: worker}},
		WithIDGenerator(func() string { return "generated-1" }))
	sess := newSession(t, "notify")

	if _, err := r.Run(context.Background(), sess); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sess.Messages[1].ToolCallID != "generated-1" || sess.Messages[2].ToolCallID != "generated-1" {
		t.Fatalf("call ids = %q/%q", sess.Messages[1].ToolCallID, sess.Messages[2].ToolCallID)
	}
}

func TestRunArtifactsLastWriteWins(t *testing.T) {
	t.Parallel()

	doc := &fakeWorker{result: contractx.TextResult("doc summary", map[string]string{"summary": "doc"})}
	audio := &fakeWorker{result: contractx.TextResult("audio summary", map[string]string{"summary": "audio", "transcript": "t"})}
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest(contractx.WorkerDocumentSummarizer, "a"),
		contractx.TransferRequest(contractx.WorkerAudioSummarizer, "b"),
		contractx.TerminalReply("both done"),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{
		{ID: contractx.WorkerDocumentSummarizer, Worker: doc},
		{ID: contractx.WorkerAudioSummarizer, Worker: audio},
	})
	sess := newSession(t, "summarise both")
	sess.MergeArtifacts(map[string]string{"news": "kept"})

	if _, err := r.Run(context.Background(), sess); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sess.Artifacts["summary"] != "audio" || sess.Artifacts["transcript"] != "t" || sess.Artifacts["news"] != "kept" {
		t.Fatalf("artifacts = %#v", sess.Artifacts)
	}
	// the second worker saw the first worker's artifact
	if audio.requests[0].Artifacts["summary"] != "doc" {
		t.Fatalf("audio worker saw artifacts %#v", audio.requests[0].Artifacts)
	}
}

func TestRunWorkerCannotMutateSession(t *testing.T) {
	t.Parallel()

	sneaky := contractx.WorkerFunc(func(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
		req.Artifacts["injected"] = "x"
		req.History[0].Content = "rewritten"
		return contractx.TextResult("ok", nil), nil
	})
	oracle := &scriptedOracle{decisions: []contractx.Decision{
		contractx.TransferRequest(contractx.WorkerNotifier, "c"),
		contractx.TerminalReply("done"),
	}}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerNotifier, Worker: sneaky}})
	sess := newSession(t, "original")

	if _, err := r.Run(context.Background(), sess); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sess.Messages[0].Content != "original" {
		t.Fatalf("history mutated: %q", sess.Messages[0].Content)
	}
	if _, ok := sess.Artifacts["injected"]; ok {
		t.Fatal("artifacts may only change through ArtifactUpdates")
	}
}

func TestRunConcurrentSessions(t *testing.T) {
	t.Parallel()

	worker := contractx.WorkerFunc(func(ctx context.Context, req contractx.WorkerRequest) (contractx.WorkerResult, error) {
		return contractx.TextResult("echo: "+req.Input, map[string]string{"last": req.Input}), nil
	})
	oracle := contractx.Oracle(oracleFunc(func(ctx context.Context, req contractx.OracleRequest) (contractx.Decision, error) {
		last := req.History[len(req.History)-1]
		if last.Role == statex.RoleUser {
			return contractx.TransferRequest(contractx.WorkerNewsFetcher, ""), nil
		}
		return contractx.TerminalReply(last.Content), nil
	}))
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerNewsFetcher, Worker: worker}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("msg-%d", i)
			sess := statex.NewSession(fmt.Sprintf("s-%d", i), time.Now())
			_ = sess.Append(statex.UserMessage(text))
			reply, err := r.Run(context.Background(), sess)
			if err != nil {
				t.Errorf("Run() error = %v", err)
				return
			}
			if reply != "echo: "+text || sess.Artifacts["last"] != text {
				t.Errorf("session %d crossed state: reply=%q artifacts=%v", i, reply, sess.Artifacts)
			}
		}(i)
	}
	wg.Wait()
}

type oracleFunc func(ctx context.Context, req contractx.OracleRequest) (contractx.Decision, error)

func (f oracleFunc) Decide(ctx context.Context, req contractx.OracleRequest) (contractx.Decision, error) {
	return f(ctx, req)
}

func TestNewValidatesWorkers(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{}
	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for nil oracle")
	}
	if _, err := New(oracle, []WorkerSpec{{ID: "", Worker: &fakeWorker{}}}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty id, got %v", err)
	}
	if _, err := New(oracle, []WorkerSpec{{ID: "a"}}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for nil worker, got %v", err)
	}
	dup := []WorkerSpec{{ID: "a", Worker: &fakeWorker{}}, {ID: "a", Worker: &fakeWorker{}}}
	if _, err := New(oracle, dup); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for duplicate id, got %v", err)
	}
}

func TestRunDirect(t *testing.T) {
	t.Parallel()

	oracle := &scriptedOracle{}
	review := &fakeWorker{result: contractx.TextResult("Thank you!", map[string]string{"sentiment": "positive"})}
	r := newTestRouter(t, oracle, []WorkerSpec{{ID: contractx.WorkerReviewAgent, Worker: review}})
	sess := newSession(t, "great service")

	reply, err := r.RunDirect(context.Background(), sess, contractx.WorkerReviewAgent)
	if err != nil {
		t.Fatalf("RunDirect() error = %v", err)
	}
	if reply != "Thank you!" {
		t.Fatalf("reply = %q", reply)
	}
	if oracle.calls() != 0 {
		t.Fatal("direct dispatch must not consult the oracle")
	}
	last := sess.Messages[len(sess.Messages)-1]
	if len(sess.Messages) != 2 || last.Role != statex.RoleAssistant || last.Content != "Thank you!" {
		t.Fatalf("unexpected history: %+v", sess.Messages)
	}
	if sess.Artifacts["sentiment"] != "positive" {
		t.Fatalf("artifacts = %#v", sess.Artifacts)
	}

	if _, err := r.RunDirect(context.Background(), sess, "ghost"); !errors.Is(err, contractx.ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestRunDirectFailureIsReply(t *testing.T) {
	t.Parallel()

	review := &fakeWorker{err: errors.New("classifier down")}
	r := newTestRouter(t, &scriptedOracle{}, []WorkerSpec{{ID: contractx.WorkerReviewAgent, Worker: review}})
	sess := newSession(t, "meh")

	reply, err := r.RunDirect(context.Background(), sess, contractx.WorkerReviewAgent)
	if err != nil {
		t.Fatalf("RunDirect() error = %v", err)
	}
	if reply != "review_agent failed: classifier down" {
		t.Fatalf("reply = %q", reply)
	}
}
