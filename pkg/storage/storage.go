package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// ErrVersionConflict is returned by SaveSession when the stored session has
// moved past the version the caller loaded.
var ErrVersionConflict = errors.New("session version conflict")

// Store combines session persistence with character records and read-only
// story content. Loads return nil, nil when the record does not exist.
type Store interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Sessions. SaveSession succeeds only when the stored version equals
	// sess.Version (0 for a new session) and increments sess.Version.
	LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error)
	SaveSession(ctx context.Context, sess *state.Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Memory summary, stored apart from the session document so the
	// background summarizer never rewrites turn state.
	SaveMemory(ctx context.Context, id uuid.UUID, m *state.Memory) error
	LoadMemory(ctx context.Context, id uuid.UUID) (*state.Memory, error)

	// Characters. Records saved by the engine take precedence over the
	// templates shipped with the content directory.
	LoadCharacter(ctx context.Context, id string) (*actor.Character, error)
	SaveCharacter(ctx context.Context, c *actor.Character) error

	// Stories (read-only)
	GetStory(ctx context.Context, id string) (*story.Story, error)
	ListStories(ctx context.Context) (map[string]string, error)
}
