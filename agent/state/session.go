package state

import (
	"errors"
	"maps"
	"strings"
	"time"
)

// Session is the per-conversation source of truth carried across turns.
// - Messages: append-only history, never mutated after Append
// - Artifacts: named derived values (summary, news, ...), last write wins
type Session struct {
	ID        string            `json:"id"`
	Messages  []Message         `json:"messages"`
	Artifacts map[string]string `json:"artifacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	ToolName   string    `json:"tool_name,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrNilSession   = errors.New("session is nil")
	ErrInvalidRole  = errors.New("invalid message role")
	ErrEmptyHistory = errors.New("session history is empty")
)

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Artifacts: make(map[string]string, 4),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func ToolMessage(content, toolName, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolName: toolName, ToolCallID: toolCallID}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureArtifacts makes sure s.Artifacts is initialized.
func (s *Session) EnsureArtifacts() {
	if s.Artifacts == nil {
		s.Artifacts = make(map[string]string, 4)
	}
}

// Append adds a message to the end of the history. It is the only way history grows.
func (s *Session) Append(msg Message) error {
	if s == nil {
		return ErrNilSession
	}
	switch msg.Role {
	case RoleUser, RoleAssistant, RoleTool:
	default:
		return ErrInvalidRole
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.Messages = append(s.Messages, msg)
	return nil
}

// MergeArtifacts applies updates last-write-wins. Keys are never removed.
func (s *Session) MergeArtifacts(updates map[string]string) {
	if s == nil || len(updates) == 0 {
		return
	}
	s.EnsureArtifacts()
	for k, v := range updates {
		if strings.TrimSpace(k) == "" {
			continue
		}
		s.Artifacts[k] = v
	}
}

func (s *Session) Artifact(name string) (string, bool) {
	if s == nil || s.Artifacts == nil {
		return "", false
	}
	v, ok := s.Artifacts[name]
	return v, ok
}

// LastMessage returns the most recent message of the given role.
func (s *Session) LastMessage(role Role) (Message, bool) {
	if s == nil {
		return Message{}, false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// LastAssistantBeforeLatestUser returns the assistant message that closed the
// previous turn, i.e. the last assistant message preceding the newest user message.
func (s *Session) LastAssistantBeforeLatestUser() (Message, bool) {
	if s == nil || len(s.Messages) == 0 {
		return Message{}, false
	}
	i := len(s.Messages) - 1
	for ; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			break
		}
	}
	for i--; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// History returns a copy of the message history.
func (s *Session) History() []Message {
	if s == nil {
		return nil
	}
	return append([]Message(nil), s.Messages...)
}

// Texts returns message contents in order.
func (s *Session) Texts() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, m.Content)
	}
	return out
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Artifacts = maps.Clone(s.Artifacts)
	if out.Artifacts == nil {
		out.Artifacts = make(map[string]string, 4)
	}
	return &out
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSession
	}
	for _, m := range s.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleTool:
		default:
			return ErrInvalidRole
		}
	}
	return nil
}
