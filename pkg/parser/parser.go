package parser

import (
	"regexp"
	"strings"
)

// NPCDialogue is a line spoken by a named NPC.
type NPCDialogue struct {
	Name     string `json:"name"`
	Dialogue string `json:"dialogue"`
}

// Response is the structured view of tagged narrator output.
type Response struct {
	Description string        `json:"description"`
	NPCs        []NPCDialogue `json:"npcs"`
	Actions     []string      `json:"actions"`
	Mechanics   *string       `json:"mechanics"`
	Options     []string      `json:"options"`
}

var (
	descriptionRegex = regexp.MustCompile(`(?s)<description>(.*?)</description>`)
	npcRegex         = regexp.MustCompile(`(?s)<npc\s+name="([^"]*)"\s*>(.*?)</npc>`)
	actionRegex      = regexp.MustCompile(`(?s)<action>(.*?)</action>`)
	mechanicsRegex   = regexp.MustCompile(`(?s)<mechanics>(.*?)</mechanics>`)
	optionsRegex     = regexp.MustCompile(`(?s)<options>(.*?)</options>`)
)

// Parse extracts the tagged segments from narrator text. Each segment is
// optional. When no tag is found at all the whole text becomes the
// description. Parse never fails.
func Parse(text string) *Response {
	r := &Response{
		NPCs:    make([]NPCDialogue, 0),
		Actions: make([]string, 0),
		Options: make([]string, 0),
	}
	found := false

	if m := descriptionRegex.FindStringSubmatch(text); m != nil {
		r.Description = strings.TrimSpace(m[1])
		found = true
	}

	for _, m := range npcRegex.FindAllStringSubmatch(text, -1) {
		r.NPCs = append(r.NPCs, NPCDialogue{
			Name:     strings.TrimSpace(m[1]),
			Dialogue: strings.TrimSpace(m[2]),
		})
		found = true
	}

	for _, m := range actionRegex.FindAllStringSubmatch(text, -1) {
		if a := strings.TrimSpace(m[1]); a != "" {
			r.Actions = append(r.Actions, a)
		}
		found = true
	}

	if m := mechanicsRegex.FindStringSubmatch(text); m != nil {
		mech := strings.TrimSpace(m[1])
		r.Mechanics = &mech
		found = true
	}

	if m := optionsRegex.FindStringSubmatch(text); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimSpace(strings.TrimPrefix(line, "- "))
			if line == "" || line == "-" {
				continue
			}
			r.Options = append(r.Options, line)
		}
		found = true
	}

	if !found {
		r.Description = text
	}
	return r
}

// Narrative renders the description followed by NPC dialogue, for the
// transcript.
func (r *Response) Narrative() string {
	var sb strings.Builder
	sb.WriteString(r.Description)
	for _, n := range r.NPCs {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(n.Name + `: "` + n.Dialogue + `"`)
	}
	return sb.String()
}
