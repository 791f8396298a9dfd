package connection

import (
	"fmt"
	"strconv"
	"time"
)

// NoticeKind classifies locally-synthesized notifications.
type NoticeKind int

const (
	NoticeConnected NoticeKind = iota
	NoticeConnectionLost
	NoticeReconnecting
	NoticeReconnectFailed
	NoticeSendRejected
	NoticeRenameRejected
	NoticeDecodeFailed
	NoticeEmptyMessage
	NoticeEmptyUsername
	NoticeUsernameUnchanged
)

// String returns the string representation of a NoticeKind.
func (k NoticeKind) String() string {
	switch k {
	case NoticeConnected:
		return "connected"
	case NoticeConnectionLost:
		return "connection_lost"
	case NoticeReconnecting:
		return "reconnecting"
	case NoticeReconnectFailed:
		return "reconnect_failed"
	case NoticeSendRejected:
		return "send_rejected"
	case NoticeRenameRejected:
		return "rename_rejected"
	case NoticeDecodeFailed:
		return "decode_failed"
	case NoticeEmptyMessage:
		return "empty_message"
	case NoticeEmptyUsername:
		return "empty_username"
	case NoticeUsernameUnchanged:
		return "username_unchanged"
	default:
		return fmt.Sprintf("unknown_notice_%d", int(k))
	}
}

// Notice is a system notification that did not come from the server.
type Notice struct {
	Kind        NoticeKind
	Attempt     int           // NoticeReconnecting
	MaxAttempts int           // NoticeReconnecting
	Delay       time.Duration // NoticeReconnecting
	Err         error         // cause, if any
}

// IsUserInput reports whether the notice rejects caller input rather
// than describing the connection.
func (n Notice) IsUserInput() bool {
	switch n.Kind {
	case NoticeEmptyMessage, NoticeEmptyUsername, NoticeUsernameUnchanged:
		return true
	}
	return false
}

// Text returns the message shown to the user.
func (n Notice) Text() string {
	switch n.Kind {
	case NoticeConnected:
		return "Connected to chat server"
	case NoticeConnectionLost:
		return "Disconnected from chat server"
	case NoticeReconnecting:
		secs := strconv.FormatFloat(n.Delay.Seconds(), 'f', -1, 64)
		return fmt.Sprintf("Reconnecting in %s seconds... (attempt %d/%d)", secs, n.Attempt, n.MaxAttempts)
	case NoticeReconnectFailed:
		return "Could not reconnect to the server. Restart the client to try again."
	case NoticeSendRejected:
		return "Could not send message, connection closed"
	case NoticeRenameRejected:
		return "Could not change username, connection closed"
	case NoticeDecodeFailed:
		return "Error processing message from server"
	case NoticeEmptyMessage:
		return "Message is empty"
	case NoticeEmptyUsername:
		return "Username is empty"
	case NoticeUsernameUnchanged:
		return "That is already your username"
	default:
		return n.Kind.String()
	}
}
