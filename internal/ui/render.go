package ui

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rickgao/realtime-chat/internal/connection"
	"github.com/rickgao/realtime-chat/internal/protocol"
)

// LineKind classifies a rendered history line.
type LineKind int

const (
	LineChat LineKind = iota
	LineSystem
)

// Line is one entry in the chat history.
type Line struct {
	Kind     LineKind
	Username string // LineChat
	Text     string
	Clock    string // HH:MM:SS, empty for local notices
	Own      bool   // LineChat sent by the current session
	Hint     bool   // LineSystem rejecting the user's own input
}

// namePolicy strips any markup peers put in their usernames.
var namePolicy = bluemonday.StrictPolicy()

// SanitizeName removes markup and control characters from a username.
func SanitizeName(s string) string {
	return SanitizeText(html.UnescapeString(namePolicy.Sanitize(s)))
}

// SanitizeText removes control characters so peer text cannot drive the
// terminal. Everything else is shown as typed.
func SanitizeText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Clock formats epoch seconds as a 24-hour HH:MM:SS string in loc.
func Clock(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ts, 0).In(loc).Format("15:04:05")
}

// Render converts a manager event into a history line. Events with no
// visible line (the handshake, the rename confirmation) return false.
// Ownership is decided against session at render time.
func Render(ev connection.Event, session connection.Session, loc *time.Location) (Line, bool) {
	if ev.Notice != nil {
		return Line{Kind: LineSystem, Text: ev.Notice.Text(), Hint: ev.Notice.IsUserInput()}, true
	}

	switch e := ev.Inbound.(type) {
	case protocol.ChatMessage:
		return Line{
			Kind:     LineChat,
			Username: SanitizeName(e.Username),
			Text:     SanitizeText(e.Text),
			Clock:    Clock(e.Timestamp, loc),
			Own:      session.Username != "" && e.Username == session.Username,
		}, true
	case protocol.PresenceChange:
		verb := "left the chat"
		if e.Joined {
			verb = "joined the chat"
		}
		return Line{
			Kind:  LineSystem,
			Text:  fmt.Sprintf("%s %s", SanitizeName(e.Username), verb),
			Clock: Clock(e.Timestamp, loc),
		}, true
	case protocol.UsernameChanged:
		return Line{
			Kind:  LineSystem,
			Text:  fmt.Sprintf("%s is now known as %s", SanitizeName(e.OldUsername), SanitizeName(e.NewUsername)),
			Clock: Clock(e.Timestamp, loc),
		}, true
	}
	return Line{}, false
}
