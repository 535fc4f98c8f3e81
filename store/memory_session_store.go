package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/types"
)

// MemorySessionStore is the in-process fallback when Redis is not configured.
// Reads self-expire against the TTL; the sweep only bounds memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*types.Session
	ttl      time.Duration

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemorySessionStore{
		sessions:   map[int64]*types.Session{},
		ttl:        ttl,
		sweepEvery: time.Minute,
		stop:       make(chan struct{}),
	}
}

func (s *MemorySessionStore) Get(_ context.Context, chatID int64) *types.Session {
	s.mu.RLock()
	session, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if !ok || time.Since(session.UpdatedAt) > s.ttl {
		return types.NewDefaultSession(chatID)
	}
	copied := *session
	if copied.Data == nil {
		copied.Data = map[string]interface{}{}
	}
	return &copied
}

func (s *MemorySessionStore) Set(_ context.Context, chatID int64, state types.ChatState, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	s.mu.Lock()
	s.sessions[chatID] = &types.Session{
		ChatID:    chatID,
		State:     state,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Unlock()
}

func (s *MemorySessionStore) Clear(_ context.Context, chatID int64) {
	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()
}

// StartSweeper launches the background cleanup loop. Stop it with Stop.
func (s *MemorySessionStore) StartSweeper() {
	go func() {
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := s.sweep(); removed > 0 {
					log.Debug().Int("removed", removed).Msg("swept expired sessions")
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *MemorySessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemorySessionStore) sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for chatID, session := range s.sessions {
		if now.Sub(session.UpdatedAt) > s.ttl {
			delete(s.sessions, chatID)
			removed++
		}
	}
	return removed
}
