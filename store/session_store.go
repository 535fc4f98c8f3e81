package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vkart/vkart-bot/types"
)

// RedisSessionStore keeps one conversation session per chat id. The key TTL
// doubles as the session expiry, so Redis sweeps stale entries on its own and
// a Get on an expired chat simply misses.
type RedisSessionStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisSessionStore(client *RedisClient, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) key(chatID int64) string {
	return s.client.generateKey("session", fmt.Sprintf("%d", chatID))
}

func (s *RedisSessionStore) Get(ctx context.Context, chatID int64) *types.Session {
	var session types.Session
	err := s.client.Get(ctx, s.key(chatID), &session)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("session read failed, using default")
		}
		return types.NewDefaultSession(chatID)
	}
	if session.Data == nil {
		session.Data = map[string]interface{}{}
	}
	return &session
}

func (s *RedisSessionStore) Set(ctx context.Context, chatID int64, state types.ChatState, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	session := types.Session{
		ChatID:    chatID,
		State:     state,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.client.Set(ctx, s.key(chatID), session, s.ttl); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Str("state", string(state)).Msg("session write failed")
	}
}

func (s *RedisSessionStore) Clear(ctx context.Context, chatID int64) {
	if err := s.client.Del(ctx, s.key(chatID)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("session clear failed")
	}
}
