package protocol

// Frame type discriminants.
const (
	TypeConnectionEstablished = "connection_established"
	TypeChatMessage           = "chat_message"
	TypeUserEvent             = "user_event"
	TypeUsernameChanged       = "username_changed"
	TypeUsernameConfirmation  = "username_confirmation"
	TypeChangeUsername        = "change_username"
)

// user_event values.
const (
	PresenceJoined = "joined"
	PresenceLeft   = "left"
)

// Event is a decoded inbound frame.
type Event interface {
	// Type returns the wire discriminant the event was decoded from.
	Type() string
}

// HandshakeEstablished is the first frame the server sends on a new connection.
type HandshakeEstablished struct {
	ClientID string
	Username string
}

// ChatMessage is a message broadcast by the server, including our own.
type ChatMessage struct {
	Username  string
	Text      string
	Timestamp int64 // seconds since epoch
}

// PresenceChange reports a user joining or leaving the chat.
type PresenceChange struct {
	Username  string
	Joined    bool
	Timestamp int64
}

// UsernameChanged is broadcast when any user renames themselves.
type UsernameChanged struct {
	OldUsername string
	NewUsername string
	Timestamp   int64
}

// UsernameConfirmed is sent only to the client whose rename was accepted.
type UsernameConfirmed struct {
	Username string
}

// Unknown is a well-formed frame with an unrecognised discriminant.
type Unknown struct {
	Discriminant string
}

func (HandshakeEstablished) Type() string { return TypeConnectionEstablished }
func (ChatMessage) Type() string          { return TypeChatMessage }
func (PresenceChange) Type() string       { return TypeUserEvent }
func (UsernameChanged) Type() string      { return TypeUsernameChanged }
func (UsernameConfirmed) Type() string    { return TypeUsernameConfirmation }
func (u Unknown) Type() string            { return u.Discriminant }

// Command is an outbound request to the server.
type Command interface {
	command()
}

// SendChatMessage publishes a chat message.
type SendChatMessage struct {
	Text string
}

// RequestUsernameChange asks the server to rename this client.
type RequestUsernameChange struct {
	Username string
}

func (SendChatMessage) command()       {}
func (RequestUsernameChange) command() {}

// chatMessageFrame is the outbound chat_message record.
type chatMessageFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// changeUsernameFrame is the outbound change_username record.
type changeUsernameFrame struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}
