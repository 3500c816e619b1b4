package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/storage"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// RedisStorage implements the Store interface using Redis for sessions and
// characters and the filesystem for stories and templates.
type RedisStorage struct {
	client  *redis.Client
	content *Content
	logger  *slog.Logger
	ttl     time.Duration
}

// Ensure RedisStorage implements Store interface
var _ storage.Store = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, content *Content, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	var opts *redis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: redisURL}
	}
	return NewRedisStorageWithClient(redis.NewClient(opts), content, ttl, logger), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, content *Content, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStorage{
		client:  client,
		content: content,
		logger:  logger,
		ttl:     ttl,
	}
}

// Client exposes the underlying Redis client for the queue and broadcaster.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func memoryKey(id uuid.UUID) string {
	return "session:" + id.String() + ":memory"
}

func characterKey(id string) string {
	return "character:" + id
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Session not found", "session_id", id)
			return nil, nil
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess state.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// SaveSession writes the session if nobody saved it since it was loaded.
// The version check and the write run in one WATCH/MULTI transaction.
func (r *RedisStorage) SaveSession(ctx context.Context, sess *state.Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}
	key := sessionKey(sess.ID)
	doc := *sess
	doc.Version = sess.Version + 1
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != sess.Version {
			return storage.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			pipe.Expire(ctx, memoryKey(sess.ID), r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, storage.ErrVersionConflict):
		r.logger.Warn("Session version conflict", "session_id", sess.ID, "version", sess.Version)
		return storage.ErrVersionConflict
	default:
		r.logger.Error("Failed to save session", "session_id", sess.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}

	sess.Version = doc.Version
	sess.UpdatedAt = doc.UpdatedAt
	return nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session version: %w", err)
	}
	var v struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("failed to unmarshal session version: %w", err)
	}
	return v.Version, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id), memoryKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Memory operations

func (r *RedisStorage) SaveMemory(ctx context.Context, id uuid.UUID, m *state.Memory) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	if err := r.client.Set(ctx, memoryKey(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadMemory(ctx context.Context, id uuid.UUID) (*state.Memory, error) {
	data, err := r.client.Get(ctx, memoryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	var m state.Memory
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	return &m, nil
}

// Character operations

func (r *RedisStorage) LoadCharacter(ctx context.Context, id string) (*actor.Character, error) {
	data, err := r.client.Get(ctx, characterKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return r.content.CharacterTemplate(ctx, id)
		}
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	var c actor.Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	return &c, nil
}

func (r *RedisStorage) SaveCharacter(ctx context.Context, c *actor.Character) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}
	if err := r.client.Set(ctx, characterKey(c.ID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save character", "character_id", c.ID, "error", err)
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

// Story operations (filesystem-backed)

func (r *RedisStorage) GetStory(ctx context.Context, id string) (*story.Story, error) {
	return r.content.GetStory(ctx, id)
}

func (r *RedisStorage) ListStories(ctx context.Context) (map[string]string, error) {
	return r.content.ListStories(ctx)
}
