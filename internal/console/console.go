// Package console implements the admin TUI spec.md §4.1.2 describes:
// a stdin-style command path with no author, whose responses are
// rendered here instead of printed to stdout. Public responses are
// also broadcast to chat by the chat loop. Grounded on
// the teacher's internal/tui (Model/Update/View, textinput+viewport+
// glamour wiring), stripped of the welcome screen and agent-request
// plumbing that package needed and this one doesn't.
package console

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	"codeberg.org/kcchat/server/internal/chat"
)

var (
	colorGreen    = lipgloss.Color("10")
	colorGray     = lipgloss.Color("8")
	colorYellow   = lipgloss.Color("11")
	colorWhite    = lipgloss.Color("15")
	colorDarkGray = lipgloss.Color("240")
)

// entry is one rendered line of console history: a submitted command
// or the response it produced.
type entry struct {
	prompt bool
	public bool
	text   string
}

// Model is the bubbletea model cmd/console runs in the foreground,
// wired directly to a *chat.Server sharing this process.
type Model struct {
	chat *chat.Server

	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer

	history []entry
	width   int
	height  int
	ready   bool
}

// New builds a console Model attached to chatServer. chatServer.Run
// must already be executing in its own goroutine before any command
// submitted here reaches it.
func New(chatServer *chat.Server) *Model {
	ti := textinput.New()
	ti.Placeholder = "type an admin command and press enter..."
	ti.Focus()
	ti.Prompt = "# "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorGreen)
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorWhite)

	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil {
		width, height = 80, 24
	}
	ti.Width = width - 4

	renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(width-4))
	if err != nil {
		renderer, _ = glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width-4))
	}

	vp := viewport.New(width, height-4)

	return &Model{
		chat:     chatServer,
		input:    ti,
		viewport: vp,
		renderer: renderer,
		width:    width,
		height:   height,
		ready:    true,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// responseMsg carries a command's result back from the background
// goroutine that submitted it, so Update never blocks the UI thread on
// the chat loop's channel round-trip.
type responseMsg struct {
	line    string
	message string
	public  bool
}

func submit(chatServer *chat.Server, line string) tea.Cmd {
	return func() tea.Msg {
		resp := chatServer.SubmitConsoleCommand(line)
		return responseMsg{line: line, message: resp.Message, public: resp.Public}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.history = append(m.history, entry{prompt: true, text: line})
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, submit(m.chat, line)
		case "pgup", "pgdown":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		default:
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

	case responseMsg:
		text := msg.message
		if text == "" {
			text = "(no response)"
		}
		m.history = append(m.history, entry{public: msg.public, text: text})
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = msg.Width - 4
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		return m, nil

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(colorGray).Render(
		"submit: enter | scroll: pgup/pgdn | quit: ctrl+c"))
	return b.String()
}

func (m *Model) renderHistory() string {
	var b strings.Builder
	for i, e := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case e.prompt:
			b.WriteString(lipgloss.NewStyle().Foreground(colorGreen).Render("# " + e.text))
		case e.public:
			b.WriteString(lipgloss.NewStyle().Foreground(colorYellow).Render(e.text))
		default:
			if m.renderer != nil {
				if out, err := m.renderer.Render(e.text); err == nil {
					b.WriteString(strings.TrimRight(out, "\n"))
					continue
				}
			}
			b.WriteString(lipgloss.NewStyle().Foreground(colorDarkGray).Render(e.text))
		}
	}
	return b.String()
}
