package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// MockStorage is an in-memory Store for tests. It keeps deep copies so
// callers cannot mutate stored records without saving.
type MockStorage struct {
	mu         sync.RWMutex
	sessions   map[uuid.UUID]*state.Session
	memories   map[uuid.UUID]state.Memory
	characters map[string]actor.Character
	stories    map[string]*story.Story
	pingError  error
	saveError  error
	saveCalls  int
}

// Ensure MockStorage implements Store interface
var _ Store = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:   make(map[uuid.UUID]*state.Session),
		memories:   make(map[uuid.UUID]state.Memory),
		characters: make(map[string]actor.Character),
		stories:    make(map[string]*story.Story),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every subsequent SaveSession fail with err.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SaveCalls returns how many times SaveSession was called.
func (m *MockStorage) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

// AddStory registers a story.
func (m *MockStorage) AddStory(s *story.Story) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[s.ID] = s
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return sess.Clone()
}

func (m *MockStorage) SaveSession(ctx context.Context, sess *state.Session) error {
	if sess == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveError != nil {
		return m.saveError
	}

	var stored int64
	if cur, ok := m.sessions[sess.ID]; ok {
		stored = cur.Version
	}
	if stored != sess.Version {
		return ErrVersionConflict
	}

	sess.Version++
	cp, err := sess.Clone()
	if err != nil {
		sess.Version--
		return err
	}
	m.sessions[sess.ID] = cp
	return nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.memories, id)
	return nil
}

func (m *MockStorage) SaveMemory(ctx context.Context, id uuid.UUID, mem *state.Memory) error {
	if mem == nil {
		return errors.New("memory cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memories[id] = *mem
	return nil
}

func (m *MockStorage) LoadMemory(ctx context.Context, id uuid.UUID) (*state.Memory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.memories[id]
	if !ok {
		return nil, nil
	}
	return &mem, nil
}

func (m *MockStorage) LoadCharacter(ctx context.Context, id string) (*actor.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.characters[id]
	if !ok {
		return nil, nil
	}
	c.Inventory = append([]string(nil), c.Inventory...)
	c.Abilities = append([]string(nil), c.Abilities...)
	return &c, nil
}

func (m *MockStorage) SaveCharacter(ctx context.Context, c *actor.Character) error {
	if c == nil {
		return errors.New("character cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Inventory = append([]string(nil), c.Inventory...)
	cp.Abilities = append([]string(nil), c.Abilities...)
	m.characters[c.ID] = cp
	return nil
}

func (m *MockStorage) GetStory(ctx context.Context, id string) (*story.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *MockStorage) ListStories(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string, len(m.stories))
	for id, s := range m.stories {
		result[s.Title] = id
	}
	return result, nil
}
