package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "npcs", "bandit.json"), `{"name": "Bandit", "max_health": 9, "damage_dice": "1d6"}`)

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name: "valid with template",
			file: "road.json",
			content: `{"title": "The Road", "start_location": "gate",
				"locations": [{"id": "gate", "name": "Gate", "npcs": ["bandit"]}],
				"npcs": [{"id": "bandit", "template_id": "bandit"}]}`,
		},
		{
			name:    "bad filename",
			file:    "The-Road.json",
			content: `{}`,
			wantErr: "snake_case",
		},
		{
			name:    "unknown field",
			file:    "road.json",
			content: `{"title": "The Road", "scenes": {}}`,
			wantErr: "strict JSON",
		},
		{
			name: "missing template",
			file: "road.json",
			content: `{"title": "The Road", "start_location": "gate",
				"locations": [{"id": "gate", "name": "Gate"}],
				"npcs": [{"id": "ogre", "template_id": "ogre"}]}`,
			wantErr: "missing template 'ogre'",
		},
		{
			name: "referential errors",
			file: "road.json",
			content: `{"title": "The Road", "start_location": "nowhere",
				"locations": [{"id": "gate", "name": "Gate"}]}`,
			wantErr: `start_location "nowhere" is not a defined location`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "stories", tt.file)
			writeFile(t, path, tt.content)

			err := (&StoryValidator{}).validateFile(path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestShippedStoriesAreValid(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "data", "stories", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Skip("no stories shipped")
	}
	for _, f := range files {
		if err := (&StoryValidator{}).validateFile(f); err != nil {
			t.Errorf("%v", err)
		}
	}
}
