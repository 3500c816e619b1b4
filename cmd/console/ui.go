package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/state"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
)

type lineKind int

const (
	lineNarrator lineKind = iota
	linePlayer
	lineNPC
	lineEvent
	lineError
	lineInfo
)

type transcriptLine struct {
	kind    lineKind
	speaker string
	text    string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	api          *apiClient
	session      *state.Session
	character    *actor.Character
	transcript   []transcriptLine
	lastNarrator string
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Story selection state
	showStoryModal bool
	stories        []StorySummary
	selectedStory  int
	loadingStories bool

	showQuitModal bool
}

type turnResultMsg struct {
	response *chat.TurnResponse
	err      error
}

type storiesLoadedMsg struct {
	stories []StorySummary
	err     error
}

type sessionCreatedMsg struct {
	session *state.Session
	err     error
}

// Palette
var (
	pink   = lipgloss.Color("205")
	purple = lipgloss.Color("212")
	grey   = lipgloss.Color("240")
)

var (
	chatPanelStyle = lipgloss.NewStyle().Padding(2, 0, 1, 3)
	metaPanelStyle = lipgloss.NewStyle().Padding(2, 2, 0, 0)

	titleStyle    = lipgloss.NewStyle().Foreground(pink).Bold(true)
	speakerStyle  = lipgloss.NewStyle().Foreground(purple).Bold(true)
	narratorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	eventStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("180")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	loadingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	promptStyle   = lipgloss.NewStyle().Foreground(grey)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))
	modalTitleStyle        = titleStyle.Align(lipgloss.Center)
	modalSelectedItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(pink).Bold(true)
)

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = chat.MaxMessageLength
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:         cfg,
		api:            api,
		textarea:       ta,
		spinner:        spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(loadingStyle)),
		chatViewport:   chatVp,
		metaViewport:   viewport.New(20, 20),
		showStoryModal: true,
		loadingStories: true,
	}
}

// transcriptFromHistory seeds the transcript from a session's stored history.
func transcriptFromHistory(sess *state.Session) []transcriptLine {
	lines := make([]transcriptLine, 0, len(sess.History))
	for _, h := range sess.History {
		kind := lineNarrator
		if h.Speaker == state.SpeakerPlayer {
			kind = linePlayer
		}
		lines = append(lines, transcriptLine{kind: kind, text: h.Text})
	}
	return lines
}

func writeMetadata(sess *state.Session, c *actor.Character) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CHARACTER") + "\n\n")

	if c != nil {
		content.WriteString(c.Name)
		if c.Class != "" {
			content.WriteString(fmt.Sprintf(" (Level %d %s)", c.Level, c.Class))
		}
		content.WriteString("\n")
		content.WriteString(fmt.Sprintf("HP:   %d/%d\n", c.Health, c.MaxHealth))
		if c.MaxMana > 0 {
			content.WriteString(fmt.Sprintf("Mana: %d/%d\n", c.Mana, c.MaxMana))
		}
		content.WriteString(fmt.Sprintf("Gold: %d\n\n", c.Gold))
		if len(c.Inventory) > 0 {
			content.WriteString("Inventory:\n")
			for _, item := range c.Inventory {
				content.WriteString("• " + item + "\n")
			}
			content.WriteString("\n")
		}
	}

	if sess == nil || sess.GameState == nil {
		return content.String()
	}
	gs := sess.GameState

	content.WriteString(titleStyle.Render("WORLD") + "\n\n")
	content.WriteString("Location:\n" + gs.CurrentLocationID + "\n\n")

	if len(gs.ActiveQuests) > 0 {
		content.WriteString("Quests:\n")
		for _, q := range gs.ActiveQuests {
			content.WriteString("• " + q.Title + "\n")
		}
		content.WriteString("\n")
	}

	if gs.Combat != nil && gs.Combat.Active {
		content.WriteString(titleStyle.Render(fmt.Sprintf("COMBAT - ROUND %d", gs.Combat.Round)) + "\n")
		current := gs.Combat.Current()
		for _, cb := range gs.Combat.Combatants {
			marker := "  "
			if cb.ID == current.ID {
				marker = "▶ "
			}
			status := ""
			if npc := gs.Combat.NPC(cb.ID); npc != nil {
				if npc.Defeated {
					status = " (defeated)"
				} else {
					status = fmt.Sprintf(" %d/%d", npc.CurrentHealth, npc.MaxHealth)
				}
			}
			content.WriteString(fmt.Sprintf("%s%s [%d]%s\n", marker, cb.Name, cb.Initiative, status))
		}
		content.WriteString("\n")
	}

	if gs.GameOver {
		content.WriteString(errorStyle.Render("GAME OVER") + "\n")
		if gs.GameOverReason != "" {
			content.WriteString(gs.GameOverReason + "\n")
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /copy: Copy narration\n")

	return content.String()
}

// renderLine formats one transcript line for the chat panel.
func renderLine(line transcriptLine, width int) string {
	switch line.kind {
	case lineNarrator:
		return speech(narratorStyle, AgentName, line.text, width) + "\n\n"
	case lineNPC:
		return speech(speakerStyle, line.speaker, line.text, width) + "\n\n"
	case linePlayer:
		return speech(userStyle, "You", line.text, width) + "\n\n"
	case lineEvent:
		return eventStyle.Render(wordwrap.String("» "+line.text, width)) + "\n"
	case lineError:
		return errorStyle.Render(wordwrap.String("Error: "+line.text, width)) + "\n\n"
	default:
		return wordwrap.String(line.text, width) + "\n\n"
	}
}

// speech wraps text after a styled speaker label.
func speech(style lipgloss.Style, speaker, text string, width int) string {
	label := speaker + ": "
	return style.Render(label) + wordwrap.String(text, max(width-len(label), 10))
}

// writeChatContent renders the transcript for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	width := max(m.chatViewport.Width-6, 20)

	var content strings.Builder
	content.WriteString(titleStyle.Render("CHRONICLE") + "\n\n")
	content.WriteString("Type your actions below to play.\n\n")
	content.WriteString(promptStyle.Render(strings.Repeat("─", width-6)) + "\n\n")

	for _, line := range m.transcript {
		content.WriteString(renderLine(line, width))
	}
	if m.loading {
		content.WriteString(m.spinner.View() + loadingStyle.Render(" The story unfolds..."))
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showStoryModal {
		return m.loadStories()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showStoryModal {
		return m.updateStoryModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.session, m.character))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			if m.session.GameState != nil && m.session.GameState.GameOver {
				m.textarea.Reset()
				m.transcript = append(m.transcript, transcriptLine{kind: lineInfo, text: "The story has ended. Press Ctrl+C to quit."})
				m.writeChatContent()
				return m, nil
			}

			m.textarea.Reset()
			m.loading = true
			m.transcript = append(m.transcript, transcriptLine{kind: linePlayer, text: input})
			m.writeChatContent()

			return m, tea.Batch(m.sendTurn(input), m.spinner.Tick)
		}

	case turnResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.transcript = append(m.transcript, transcriptLine{kind: lineError, text: msg.err.Error()})
			m.writeChatContent()
			return m, nil
		}
		m.applyTurn(msg.response)
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.session, m.character))

		// NPCs act on their own until it is the player's turn again.
		if gs := m.session.GameState; gs != nil && !gs.GameOver && gs.InCombat() && !gs.Combat.IsPlayerTurn() {
			m.loading = true
			return m, tea.Batch(m.resolveNPCTurn(), m.spinner.Tick)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.writeChatContent()
		return m, cmd
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) applyTurn(resp *chat.TurnResponse) {
	if resp.Session != nil {
		m.session = resp.Session
	}
	if resp.Character != nil {
		m.character = resp.Character
	}
	for _, ev := range resp.Events {
		m.transcript = append(m.transcript, transcriptLine{kind: lineEvent, text: ev})
	}
	if resp.Narrative != "" {
		m.transcript = append(m.transcript, transcriptLine{kind: lineNarrator, text: resp.Narrative})
		m.lastNarrator = resp.Narrative
	}
	for _, npc := range resp.NPCs {
		m.transcript = append(m.transcript, transcriptLine{kind: lineNPC, speaker: npc.Name, text: npc.Dialogue})
	}
	if len(resp.Options) > 0 {
		var b strings.Builder
		b.WriteString("Options:")
		for _, o := range resp.Options {
			b.WriteString("\n  • " + o)
		}
		m.transcript = append(m.transcript, transcriptLine{kind: lineInfo, text: b.String()})
	}
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		m.transcript = append(m.transcript, transcriptLine{kind: lineInfo, text: titleStyle.Render("Help:") + `
Commands:
• /help - Show this help
• /quests - Show quest progress
• /copy - Copy the last narration to the clipboard
• Ctrl+C - Quit game

How to play:
• Type your actions and press Enter
• "attack the goblin" starts a fight with a hostile NPC
• "use healing potion" uses an item from your inventory
• NPC turns in combat resolve automatically`})

	case "/quests":
		var b strings.Builder
		b.WriteString(titleStyle.Render("Quests:"))
		gs := m.session.GameState
		if gs == nil || len(gs.ActiveQuests)+len(gs.CompletedQuests) == 0 {
			b.WriteString("\nNo quests yet.")
		} else {
			for _, q := range gs.ActiveQuests {
				b.WriteString(fmt.Sprintf("\n• %s (%d objectives done)", q.Title, len(q.CompletedObjectives)))
			}
			for _, q := range gs.CompletedQuests {
				b.WriteString(fmt.Sprintf("\n• %s (completed)", q.Title))
			}
		}
		m.transcript = append(m.transcript, transcriptLine{kind: lineInfo, text: b.String()})

	case "/copy":
		msg := "Copied the last narration to the clipboard."
		if m.lastNarrator == "" {
			msg = "Nothing to copy yet."
		} else if err := clipboard.WriteAll(m.lastNarrator); err != nil {
			msg = "Clipboard unavailable: " + err.Error()
		}
		m.transcript = append(m.transcript, transcriptLine{kind: lineInfo, text: msg})

	default:
		m.transcript = append(m.transcript, transcriptLine{kind: lineInfo, text: "Unknown command " + cmd + ". Try /help."})
	}

	m.textarea.Reset()
	m.writeChatContent()
	return m, nil
}

func (m ConsoleUI) sendTurn(action string) tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		resp, err := m.api.sendTurn(id, action)
		return turnResultMsg{resp, err}
	}
}

func (m ConsoleUI) resolveNPCTurn() tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		resp, err := m.api.npcTurn(id)
		return turnResultMsg{resp, err}
	}
}

func (m ConsoleUI) loadStories() tea.Cmd {
	return func() tea.Msg {
		stories, err := m.api.listStories()
		return storiesLoadedMsg{stories, err}
	}
}

func (m ConsoleUI) createSession(storyID string) tea.Cmd {
	characterID := m.config.CharacterID
	return func() tea.Msg {
		sess, err := m.api.createSession(storyID, characterID)
		return sessionCreatedMsg{sess, err}
	}
}

func (m ConsoleUI) updateStoryModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case storiesLoadedMsg:
		m.loadingStories = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.stories = msg.stories
		}

	case sessionCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.transcript = transcriptFromHistory(msg.session)
		m.showStoryModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.session, m.character))
		m.textarea.Focus()
		m.ready = true
		return m, textarea.Blink

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.loadingStories {
				return m, tea.Quit
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingStories || m.loading || m.err != nil {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			m.selectedStory = max(m.selectedStory-1, 0)
		case tea.KeyDown:
			if m.selectedStory < len(m.stories)-1 {
				m.selectedStory++
			}
		case tea.KeyEnter:
			if len(m.stories) > 0 {
				m.loading = true
				return m, m.createSession(m.stories[m.selectedStory].ID)
			}
		}
	}

	return m, nil
}

// updateQuitModal quits on y, Enter or a second Ctrl+C and resumes on n.
func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "enter", "y", "Y":
			return m, tea.Quit
		case "n", "N":
			m.showQuitModal = false
			if !m.showStoryModal {
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}
	return m, nil
}

// centered draws a modal box in the middle of the screen.
func (m ConsoleUI) centered(width int, title string, body ...string) string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	content := modalTitleStyle.Render(title) + "\n\n" + strings.Join(body, "\n")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(width).Render(content), lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderQuitModal() string {
	return m.centered(50, "Quit Game?",
		"Are you sure you want to quit your adventure?\n",
		promptStyle.Render("Press Y to quit, N to continue."))
}

func (m ConsoleUI) renderStoryModal() string {
	switch {
	case m.loadingStories:
		return m.centered(60, "Loading Stories...", loadingStyle.Render("Fetching the story catalog..."))
	case m.err != nil:
		return m.centered(60, "Error", errorStyle.Render(m.err.Error()), "", "Press Ctrl+C to exit")
	case m.loading:
		return m.centered(60, "Creating Session...", loadingStyle.Render("Setting up your adventure..."))
	}

	items := make([]string, 0, len(m.stories)+2)
	for i, s := range m.stories {
		if i == m.selectedStory {
			items = append(items, modalSelectedItemStyle.Render("▶ "+s.Title))
		} else {
			items = append(items, "  "+s.Title)
		}
	}
	items = append(items, "", promptStyle.Render(fmt.Sprintf("Playing as %s. ↑/↓ to choose, Enter to start.", m.config.CharacterID)))
	return m.centered(60, "Select a Story", items...)
}

func (m ConsoleUI) View() string {
	switch {
	case m.showQuitModal:
		return m.renderQuitModal()
	case m.showStoryModal:
		return m.renderStoryModal()
	case !m.ready:
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.chatViewport.View(),
		"",
		promptStyle.Render(strings.Repeat("─", chatWidth-4)),
		m.textarea.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		chatPanelStyle.Width(chatWidth).Height(m.height-3).Render(body),
		metaPanelStyle.Width(metaWidth).Height(m.height-2).Render(m.metaViewport.View()),
	)
}
