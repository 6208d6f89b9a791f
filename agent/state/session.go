package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

var (
	ErrInvalidSession  = errors.New("session id is empty")
	ErrNilSessionState = errors.New("session state is nil")
)

// Session is the per-conversation source of truth: an append-only turn log
// plus the requirements extracted so far. A session is owned by exactly one
// in-flight turn at a time (the Manager serializes access).
type Session struct {
	SessionID string `json:"session_id"`

	Turns        []contractx.ConversationTurn `json:"turns,omitempty"`
	Requirements contractx.Requirements       `json:"requirements"`

	// CompletenessFired latches once the requirements first become complete,
	// so the lead trigger's completeness condition fires at most once per
	// session.
	CompletenessFired bool `json:"completeness_fired,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn records a turn with the next monotonic index.
func (s *Session) AppendTurn(role contractx.Role, text string, now time.Time) contractx.ConversationTurn {
	turn := contractx.ConversationTurn{
		Index: len(s.Turns),
		Role:  role,
		Text:  text,
		At:    now.UTC(),
	}
	s.Turns = append(s.Turns, turn)
	s.Touch(now)
	return turn
}

// History returns the turn log. Callers must not mutate it.
func (s *Session) History() []contractx.ConversationTurn {
	return s.Turns
}

// MergeRequirements folds in newly extracted fields (monotonic, see
// contract.Requirements.Merge) and reports whether this merge made the
// requirements complete for the first time in the session's life.
func (s *Session) MergeRequirements(in contractx.Requirements, now time.Time) (firstComplete bool) {
	s.Requirements.Merge(in)
	s.Touch(now)

	if s.Requirements.Complete() && !s.CompletenessFired {
		s.CompletenessFired = true
		return true
	}
	return false
}

// ExportedTurn is the chat-export line shape.
type ExportedTurn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Export serializes the full history for the session.
func (s *Session) Export() []ExportedTurn {
	out := make([]ExportedTurn, 0, len(s.Turns))
	for _, t := range s.Turns {
		out = append(out, ExportedTurn{
			Role:      string(t.Role),
			Text:      t.Text,
			Timestamp: t.At,
		})
	}
	return out
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if s.SessionID == "" {
		return ErrInvalidSession
	}
	for i, t := range s.Turns {
		if t.Index != i {
			return fmt.Errorf("turn log corrupt: index=%d at position %d", t.Index, i)
		}
	}
	return nil
}
