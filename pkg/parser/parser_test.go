package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllTags(t *testing.T) {
	text := `<description>The crypt door groans open.</description>
<npc name="Old Warden">Mind the third step.</npc>
<npc name="Ghoul">Hsssss...</npc>
<action>Player moved to Bone Hall</action>
<action>Ghoul attacks the player</action>
<mechanics>Roll: 1d20 (Dexterity check) DC 12</mechanics>
<mechanics>ignored second block</mechanics>
<options>
- Draw your sword
- Back away slowly

- Talk to the warden
</options>`

	r := Parse(text)

	assert.Equal(t, "The crypt door groans open.", r.Description)
	require.Len(t, r.NPCs, 2)
	assert.Equal(t, NPCDialogue{Name: "Old Warden", Dialogue: "Mind the third step."}, r.NPCs[0])
	assert.Equal(t, "Ghoul", r.NPCs[1].Name)
	assert.Equal(t, []string{"Player moved to Bone Hall", "Ghoul attacks the player"}, r.Actions)
	require.NotNil(t, r.Mechanics)
	assert.Equal(t, "Roll: 1d20 (Dexterity check) DC 12", *r.Mechanics)
	assert.Equal(t, []string{"Draw your sword", "Back away slowly", "Talk to the warden"}, r.Options)
}

func TestParse_NoTags(t *testing.T) {
	text := "You stand in an empty room. Nothing happens."
	r := Parse(text)

	assert.Equal(t, text, r.Description)
	assert.Empty(t, r.NPCs)
	assert.Empty(t, r.Actions)
	assert.Nil(t, r.Mechanics)
	assert.Empty(t, r.Options)
	assert.NotNil(t, r.NPCs)
	assert.NotNil(t, r.Actions)
	assert.NotNil(t, r.Options)
}

func TestParse_Subsets(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantDesc string
		check    func(t *testing.T, r *Response)
	}{
		{
			name:     "only mechanics",
			text:     "Some prose <mechanics>Health: -2</mechanics>",
			wantDesc: "",
			check: func(t *testing.T, r *Response) {
				require.NotNil(t, r.Mechanics)
				assert.Equal(t, "Health: -2", *r.Mechanics)
			},
		},
		{
			name:     "multiline description",
			text:     "<description>\nLine one.\nLine two.\n</description>",
			wantDesc: "Line one.\nLine two.",
		},
		{
			name:     "only options",
			text:     "<options>- Run</options>",
			wantDesc: "",
			check: func(t *testing.T, r *Response) {
				assert.Equal(t, []string{"Run"}, r.Options)
			},
		},
		{
			name:     "unclosed tag degrades to raw text",
			text:     "<description>never closed",
			wantDesc: "<description>never closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.text)
			assert.Equal(t, tt.wantDesc, r.Description)
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestResponse_Narrative(t *testing.T) {
	r := &Response{
		Description: "Rain falls.",
		NPCs:        []NPCDialogue{{Name: "Warden", Dialogue: "Come in."}},
	}
	assert.Equal(t, "Rain falls.\n\nWarden: \"Come in.\"", r.Narrative())
}
