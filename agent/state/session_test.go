package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSessionAppendRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	s := NewSession("s1", time.Now())
	if err := s.Append(Message{Role: "system", Content: "x"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("Append() error = %v, want ErrInvalidRole", err)
	}
	if len(s.Messages) != 0 {
		t.Fatalf("history must stay empty, got %d", len(s.Messages))
	}
}

func TestSessionMergeArtifactsLastWriteWins(t *testing.T) {
	t.Parallel()

	s := NewSession("s1", time.Now())
	s.MergeArtifacts(map[string]string{"summary": "first", "news": "n"})
	s.MergeArtifacts(map[string]string{"summary": "second"})

	if s.Artifacts["summary"] != "second" {
		t.Fatalf("summary = %q, want second", s.Artifacts["summary"])
	}
	if s.Artifacts["news"] != "n" {
		t.Fatalf("news must be kept, got %q", s.Artifacts["news"])
	}
}

func TestSessionLastAssistantBeforeLatestUser(t *testing.T) {
	t.Parallel()

	s := NewSession("s1", time.Now())
	_ = s.Append(UserMessage("hi"))
	_ = s.Append(ToolMessage("Transferring to review_agent", "transfer_to_review_agent", "c1"))
	_ = s.Append(AssistantMessage("Please rate us from 1 to 5 stars"))
	_ = s.Append(UserMessage("4"))

	got, ok := s.LastAssistantBeforeLatestUser()
	if !ok {
		t.Fatal("expected an assistant message")
	}
	if got.Content != "Please rate us from 1 to 5 stars" {
		t.Fatalf("unexpected message: %q", got.Content)
	}

	fresh := NewSession("s2", time.Now())
	_ = fresh.Append(UserMessage("first"))
	if _, ok := fresh.LastAssistantBeforeLatestUser(); ok {
		t.Fatal("first turn has no previous assistant message")
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	t.Parallel()

	s := NewSession("s1", time.Now())
	_ = s.Append(UserMessage("hi"))
	s.MergeArtifacts(map[string]string{"summary": "x"})

	c := s.Clone()
	_ = c.Append(AssistantMessage("hello"))
	c.MergeArtifacts(map[string]string{"summary": "y"})

	if len(s.Messages) != 1 {
		t.Fatalf("original history mutated: %d", len(s.Messages))
	}
	if s.Artifacts["summary"] != "x" {
		t.Fatalf("original artifacts mutated: %q", s.Artifacts["summary"])
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Load(ctx, " "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Load() error = %v, want ErrInvalidSession", err)
	}

	s := NewSession("s1", time.Now())
	_ = s.Append(UserMessage("hi"))
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// mutations after Save must not leak into the store
	_ = s.Append(AssistantMessage("late"))

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(got.Messages))
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d", store.Len())
	}
}

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if km.size() != 0 {
		t.Fatalf("lock table must be empty after release, got %d", km.size())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		unlock() // second call is a no-op
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key must not block")
	}
}
