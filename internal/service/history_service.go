package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatrelay/api/internal/models"
	"chatrelay/api/internal/security"
)

// MessageStore is the persistence contract behind history reads and message
// writes. The pgx-backed repository satisfies it in production.
type MessageStore interface {
	Insert(ctx context.Context, msg models.Message) (models.Message, error)
	ListByRoom(ctx context.Context, room string) ([]models.Message, error)
	ListAll(ctx context.Context) ([]models.Message, error)
}

const (
	historyKeyAll    = "history:all"
	historyKeyPrefix = "history:room:"
	historyCacheTTL  = 60 * time.Second
)

// HistoryService serves role-scoped message history with a redis cache in
// front of the store. Insert writes through and invalidates, so cached reads
// never hide a persisted message. A nil cache client disables caching.
type HistoryService struct {
	store MessageStore
	cache *redis.Client
	log   zerolog.Logger
}

func NewHistoryService(store MessageStore, cache *redis.Client, log zerolog.Logger) *HistoryService {
	return &HistoryService{
		store: store,
		cache: cache,
		log:   log,
	}
}

// Insert persists the message and invalidates the affected cache entries.
// It satisfies the broadcast engine's MessageStore contract, keeping the
// persist-then-fan-out pipeline and history queries on the same data path.
func (s *HistoryService) Insert(ctx context.Context, msg models.Message) (models.Message, error) {
	persisted, err := s.store.Insert(ctx, msg)
	if err != nil {
		return models.Message{}, err
	}
	s.invalidate(ctx, persisted.Room)
	return persisted, nil
}

// ListMessages returns history scoped to the requester's role: admins see all
// rooms, everyone else only the requested room. A non-admin request without a
// room yields an empty result.
func (s *HistoryService) ListMessages(ctx context.Context, claims security.SessionClaims, room string) ([]models.Message, error) {
	if claims.Role == string(models.UserRoleAdmin) {
		return s.cached(ctx, historyKeyAll, s.store.ListAll)
	}
	if room == "" {
		return []models.Message{}, nil
	}
	return s.cached(ctx, historyKeyPrefix+room, func(ctx context.Context) ([]models.Message, error) {
		return s.store.ListByRoom(ctx, room)
	})
}

func (s *HistoryService) cached(ctx context.Context, key string, load func(context.Context) ([]models.Message, error)) ([]models.Message, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var messages []models.Message
			if err := json.Unmarshal(raw, &messages); err == nil {
				return messages, nil
			}
		}
	}

	messages, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(messages); err == nil {
			if err := s.cache.Set(ctx, key, raw, historyCacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("history cache set failed")
			}
		}
	}
	return messages, nil
}

func (s *HistoryService) invalidate(ctx context.Context, room string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, historyKeyPrefix+room, historyKeyAll).Err(); err != nil {
		s.log.Warn().Err(err).Str("room", room).Msg("history cache invalidation failed")
	}
}
