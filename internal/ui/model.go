package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/realtime-chat/internal/connection"
)

// WelcomeText is the first line of every history.
const WelcomeText = "Welcome to the chat! Type a message and press Enter. /nick <name> changes your username, /quit exits."

// Chat is the part of the connection manager the UI drives.
type Chat interface {
	SendChatMessage(text string) error
	RequestUsernameChange(name string) error
	Session() connection.Session
	State() connection.ConnectionState
}

// EventMsg delivers a manager event to the program.
type EventMsg connection.Event

// Config holds UI settings.
type Config struct {
	Location     *time.Location
	HistoryLimit int
}

// Model is the bubbletea model for the chat screen.
type Model struct {
	chat Chat
	cfg  Config

	session connection.Session
	state   connection.ConnectionState
	lines   []Line

	input    textinput.Model
	viewport viewport.Model
	width    int
}

// New creates the chat model.
func New(chat Chat, cfg Config) Model {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 500
	}

	in := textinput.New()
	in.Placeholder = "Type a message..."
	in.Prompt = "> "
	in.Focus()

	m := Model{
		chat:     chat,
		cfg:      cfg,
		session:  chat.Session(),
		state:    chat.State(),
		input:    in,
		viewport: viewport.New(80, 20),
	}
	m.appendLine(Line{Kind: LineSystem, Text: WelcomeText})
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case EventMsg:
		m.apply(connection.Event(msg))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	name := m.session.Username
	if name == "" {
		name = "-"
	}
	header := headerStyle.Render("chat · "+SanitizeName(name)) + " " + statusText(m.state)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
	)
}

// Lines returns the current history.
func (m Model) Lines() []Line {
	return m.lines
}

// submit handles the input line: slash commands or a chat message.
// Trimming and empty checks are left to the manager, which reports them
// as notices.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	m.input.Reset()

	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "/") {
		m.report(m.chat.SendChatMessage(value))
		return m, nil
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	switch cmd {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/nick", "/name":
		m.report(m.chat.RequestUsernameChange(arg))
	default:
		m.appendLine(Line{Kind: LineSystem, Text: "Unknown command " + cmd + ". Use /nick <name> or /quit."})
	}
	return m, nil
}

func (m *Model) report(err error) {
	if err != nil {
		m.appendLine(Line{Kind: LineSystem, Text: "Client stopped: " + err.Error()})
	}
}

// apply folds one manager event into the model.
func (m *Model) apply(ev connection.Event) {
	m.state = ev.State
	m.session = m.chat.Session()

	if line, ok := Render(ev, m.session, m.cfg.Location); ok {
		m.appendLine(line)
	}
}

func (m *Model) appendLine(l Line) {
	m.lines = append(m.lines, l)
	if over := len(m.lines) - m.cfg.HistoryLimit; over > 0 {
		m.lines = append([]Line(nil), m.lines[over:]...)
	}
	m.refresh()
}

func (m *Model) refresh() {
	rendered := make([]string, len(m.lines))
	for i, l := range m.lines {
		rendered[i] = l.String()
	}
	content := strings.Join(rendered, "\n")
	if m.width > 0 {
		content = lipgloss.NewStyle().Width(m.width).Render(content)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.input.Width = width - len(m.input.Prompt) - 1

	// header + input
	vh := height - 2
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.refresh()
}
