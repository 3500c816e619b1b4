package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed worker can hold a session.
const DefaultLockTTL = 2 * time.Minute

// Only delete if we own the lock
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// SessionLock is a per-session mutual exclusion lock shared by workers.
type SessionLock struct {
	client *Client
	owner  string
	ttl    time.Duration
}

// NewSessionLock creates a lock handle owned by owner (usually the worker ID).
func NewSessionLock(client *Client, owner string, ttl time.Duration) *SessionLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &SessionLock{client: client, owner: owner, ttl: ttl}
}

func lockKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-lock:%s", sessionID.String())
}

// Acquire returns true if the lock was taken, false if someone else holds it.
func (l *SessionLock) Acquire(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, lockKey(sessionID), l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock if this owner still holds it. Returns whether a
// lock was removed.
func (l *SessionLock) Release(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	n, err := releaseScript.Run(ctx, l.client.rdb, []string{lockKey(sessionID)}, l.owner).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release session lock: %w", err)
	}
	return n == 1, nil
}
