package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/chronicle/internal/storage"
	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.json> [story.json...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		v := &StoryValidator{}
		if err := v.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

// StoryValidator checks a story file the way the engine will load it:
// strict JSON, NPC templates resolved from the sibling npcs/ directory,
// then the story's referential checks.
type StoryValidator struct {
	errors []string
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func (v *StoryValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("story file must have .json extension: %s", baseName)
	}
	if !validFilenameRegex.MatchString(strings.TrimSuffix(baseName, ".json")) {
		return fmt.Errorf("story filename '%s' must be lowercase snake_case (e.g., my_story.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var s story.Story
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}
	if s.ID == "" {
		s.ID = strings.TrimSuffix(baseName, ".json")
	}

	v.errors = nil
	v.resolveTemplates(&s, filepath.Dir(filepath.Dir(filename)))
	for _, msg := range s.Validate() {
		v.addError(msg)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

// resolveTemplates expands template NPCs using <dataDir>/npcs.
func (v *StoryValidator) resolveTemplates(s *story.Story, dataDir string) {
	content := storage.NewContent(dataDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	templates := make(map[string]*actor.NPC)
	for _, n := range s.NPCs {
		if n.TemplateID == "" || templates[n.TemplateID] != nil {
			continue
		}
		tmpl, err := content.NPCTemplate(context.Background(), n.TemplateID)
		if err != nil {
			v.addError(fmt.Sprintf("NPC template '%s': %v", n.TemplateID, err))
			continue
		}
		if tmpl == nil {
			v.addError(fmt.Sprintf("NPC '%s' references missing template '%s'", n.ID, n.TemplateID))
			continue
		}
		templates[n.TemplateID] = tmpl
	}
	if len(v.errors) > 0 {
		return
	}
	if err := s.ResolveTemplates(templates); err != nil {
		v.addError(err.Error())
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
