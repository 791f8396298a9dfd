package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rickgao/realtime-chat/internal/connection"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	ownStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	clockStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true)
	onlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	waitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// String renders the line for the terminal.
func (l Line) String() string {
	var b strings.Builder
	if l.Clock != "" {
		b.WriteString(clockStyle.Render("[" + l.Clock + "]"))
		b.WriteByte(' ')
	}

	if l.Kind == LineSystem {
		style := systemStyle
		if l.Hint {
			style = hintStyle
		}
		b.WriteString(style.Render("* " + l.Text))
		return b.String()
	}

	name := userStyle
	if l.Own {
		name = ownStyle
	}
	b.WriteString(name.Render(l.Username + ":"))
	b.WriteByte(' ')
	b.WriteString(l.Text)
	return b.String()
}

// statusText is the connection indicator shown in the header.
func statusText(s connection.ConnectionState) string {
	switch s {
	case connection.StateOpen:
		return onlineStyle.Render("● connected")
	case connection.StateConnecting:
		return waitStyle.Render("● connecting")
	default:
		return offStyle.Render("● disconnected")
	}
}
