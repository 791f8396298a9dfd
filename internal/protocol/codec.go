package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed matches every DecodeError via errors.Is.
var ErrMalformed = errors.New("malformed frame")

// DecodeError describes why a frame could not be decoded.
type DecodeError struct {
	Type  string // discriminant, empty if it could not be read
	Field string // offending field, empty for structural errors
	Err   error  // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	msg := ErrMalformed.Error()
	if e.Type != "" {
		msg += " (" + e.Type + ")"
	}
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrMalformed.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	errMissing     = errors.New("missing")
	errEmpty       = errors.New("empty")
	errNotString   = errors.New("not a string")
	errNotNumber   = errors.New("not a number")
	errBadPresence = errors.New(`must be "joined" or "left"`)
)

// fields is a frame split into its top-level members.
type fields struct {
	typ string
	raw map[string]json.RawMessage
}

// Decode parses a raw frame into a typed event.
//
// Frames with an unknown discriminant decode to Unknown without error.
// Frames that are not JSON objects, lack a string "type", or lack a
// required field for their type fail with a *DecodeError.
func Decode(frame []byte) (Event, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if raw == nil {
		return nil, &DecodeError{Err: errors.New("not an object")}
	}

	f := fields{raw: raw}
	typ, err := f.str("type")
	if err != nil {
		return nil, &DecodeError{Field: "type", Err: err}
	}
	f.typ = typ

	switch typ {
	case TypeConnectionEstablished:
		return f.handshake()
	case TypeChatMessage:
		return f.chatMessage()
	case TypeUserEvent:
		return f.presence()
	case TypeUsernameChanged:
		return f.usernameChanged()
	case TypeUsernameConfirmation:
		return f.usernameConfirmed()
	default:
		return Unknown{Discriminant: typ}, nil
	}
}

func (f fields) handshake() (Event, error) {
	id, err := f.str("client_id")
	if err != nil {
		return nil, f.fail("client_id", err)
	}
	name, err := f.name("username")
	if err != nil {
		return nil, f.fail("username", err)
	}
	return HandshakeEstablished{ClientID: id, Username: name}, nil
}

func (f fields) chatMessage() (Event, error) {
	name, err := f.str("username")
	if err != nil {
		return nil, f.fail("username", err)
	}
	text, err := f.str("message")
	if err != nil {
		return nil, f.fail("message", err)
	}
	ts, err := f.timestamp("timestamp")
	if err != nil {
		return nil, f.fail("timestamp", err)
	}
	return ChatMessage{Username: name, Text: text, Timestamp: ts}, nil
}

func (f fields) presence() (Event, error) {
	name, err := f.str("username")
	if err != nil {
		return nil, f.fail("username", err)
	}
	ev, err := f.str("event")
	if err != nil {
		return nil, f.fail("event", err)
	}
	if ev != PresenceJoined && ev != PresenceLeft {
		return nil, f.fail("event", errBadPresence)
	}
	ts, err := f.timestamp("timestamp")
	if err != nil {
		return nil, f.fail("timestamp", err)
	}
	return PresenceChange{Username: name, Joined: ev == PresenceJoined, Timestamp: ts}, nil
}

func (f fields) usernameChanged() (Event, error) {
	oldName, err := f.str("old_username")
	if err != nil {
		return nil, f.fail("old_username", err)
	}
	newName, err := f.name("new_username")
	if err != nil {
		return nil, f.fail("new_username", err)
	}
	ts, err := f.timestamp("timestamp")
	if err != nil {
		return nil, f.fail("timestamp", err)
	}
	return UsernameChanged{OldUsername: oldName, NewUsername: newName, Timestamp: ts}, nil
}

func (f fields) usernameConfirmed() (Event, error) {
	name, err := f.name("username")
	if err != nil {
		return nil, f.fail("username", err)
	}
	return UsernameConfirmed{Username: name}, nil
}

func (f fields) fail(field string, err error) error {
	return &DecodeError{Type: f.typ, Field: field, Err: err}
}

// str returns a required string member. JSON null counts as missing.
func (f fields) str(key string) (string, error) {
	raw, ok := f.raw[key]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return "", errMissing
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errNotString
	}
	return s, nil
}

// name is str that also rejects the empty string.
func (f fields) name(key string) (string, error) {
	s, err := f.str(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errEmpty
	}
	return s, nil
}

// timestamp returns a required numeric member truncated to whole seconds.
func (f fields) timestamp(key string) (int64, error) {
	raw, ok := f.raw[key]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return 0, errMissing
	}
	if len(raw) == 0 || raw[0] == '"' {
		return 0, errNotNumber
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errNotNumber
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	fl, err := n.Float64()
	if err != nil || math.IsInf(fl, 0) || fl >= 1<<63 || fl < -1<<63 {
		return 0, fmt.Errorf("%w: %s", errNotNumber, n)
	}
	return int64(fl), nil
}

// Encode serialises an outbound command. It never fails for the command
// types defined in this package; unknown commands encode to nil.
func Encode(cmd Command) []byte {
	var v any
	switch c := cmd.(type) {
	case SendChatMessage:
		v = chatMessageFrame{Type: TypeChatMessage, Message: c.Text}
	case RequestUsernameChange:
		v = changeUsernameFrame{Type: TypeChangeUsername, Username: c.Username}
	default:
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
