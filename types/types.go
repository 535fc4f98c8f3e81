package types

import (
	"context"
	"time"
)

// Session is the ephemeral per-chat record of which flow is in progress and
// the data it has accumulated so far. It is owned by the conversation engine
// and never consulted by the fulfillment side; the ledger rows are the
// durable source of truth.
type Session struct {
	ChatID    int64                  `json:"chat_id"`
	State     ChatState              `json:"state"`
	Data      map[string]interface{} `json:"data,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// SessionStore keeps at most one Session per chat id. Absence is a valid
// state, not an error: Get returns a fresh main_menu session when nothing is
// stored or the stored entry is older than the store's TTL. Implementations
// log their own failures and degrade to the default; callers never see an
// error from these operations.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) *Session
	Set(ctx context.Context, chatID int64, state ChatState, data map[string]interface{})
	Clear(ctx context.Context, chatID int64)
}

// NewDefaultSession is what Get hands out for an unknown or expired chat.
func NewDefaultSession(chatID int64) *Session {
	return &Session{
		ChatID:    chatID,
		State:     StateMainMenu,
		Data:      map[string]interface{}{},
		UpdatedAt: time.Now().UTC(),
	}
}

// DataString reads a string value out of the session's flow data.
func (s *Session) DataString(key string) string {
	if s.Data == nil {
		return ""
	}
	if v, ok := s.Data[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// DataFloat reads a numeric value out of the session's flow data. Values that
// went through a JSON round trip come back as float64; ints are accepted for
// sessions that never left the process.
func (s *Session) DataFloat(key string) (float64, bool) {
	if s.Data == nil {
		return 0, false
	}
	switch v := s.Data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
