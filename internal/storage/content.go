package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// Content subdirectories under the data dir.
const (
	storiesDir    = "stories"
	charactersDir = "characters"
	npcsDir       = "npcs"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Content serves read-only stories, character templates and NPC templates
// from the data directory.
type Content struct {
	dataDir string
	logger  *slog.Logger
}

// NewContent creates a content reader rooted at dataDir.
func NewContent(dataDir string, logger *slog.Logger) *Content {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &Content{dataDir: dataDir, logger: logger}
}

func (c *Content) path(dir, id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("invalid id: %q", id)
	}
	return filepath.Join(c.dataDir, dir, id+".json"), nil
}

// GetStory loads a story and expands its NPC templates.
// Returns nil, nil when the story does not exist.
func (c *Content) GetStory(ctx context.Context, id string) (*story.Story, error) {
	path, err := c.path(storiesDir, id)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Loading story", "story_id", id, "full_path", path)

	s, err := story.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	s.ID = id

	templates := make(map[string]*actor.NPC)
	for _, n := range s.NPCs {
		if n.TemplateID == "" {
			continue
		}
		if _, ok := templates[n.TemplateID]; ok {
			continue
		}
		tmpl, err := c.NPCTemplate(ctx, n.TemplateID)
		if err != nil {
			return nil, err
		}
		if tmpl != nil {
			templates[n.TemplateID] = tmpl
		}
	}
	if err := s.ResolveTemplates(templates); err != nil {
		return nil, fmt.Errorf("failed to resolve npc templates for story %s: %w", id, err)
	}
	return s, nil
}

// ListStories maps story titles to IDs. Unreadable files are skipped.
func (c *Content) ListStories(ctx context.Context) (map[string]string, error) {
	dir := filepath.Join(c.dataDir, storiesDir)
	stories := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		s, err := story.Load(path)
		if err != nil {
			c.logger.Warn("Failed to load story file", "path", path, "error", err)
			return nil
		}
		stories[s.Title] = strings.TrimSuffix(filepath.Base(path), ".json")
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to walk stories directory", "error", err)
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

// CharacterTemplate loads a premade character. Returns nil, nil when the
// template does not exist.
func (c *Content) CharacterTemplate(ctx context.Context, id string) (*actor.Character, error) {
	path, err := c.path(charactersDir, id)
	if err != nil {
		return nil, err
	}
	ch, err := actor.LoadCharacter(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return ch, nil
}

// NPCTemplate loads an NPC template. Returns nil, nil when it does not exist.
func (c *Content) NPCTemplate(ctx context.Context, id string) (*actor.NPC, error) {
	path, err := c.path(npcsDir, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read npc template: %w", err)
	}
	var n actor.NPC
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal npc template %s: %w", id, err)
	}
	return &n, nil
}
