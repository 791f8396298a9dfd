// Package protocol implements the chat wire protocol codec.
//
// Frames are JSON objects carrying a "type" discriminant:
//   - Inbound: connection_established, chat_message, user_event,
//     username_changed, username_confirmation
//   - Outbound: chat_message, change_username
//
// Timestamps are seconds since the Unix epoch.
// The codec is stateless; Decode and Encode are safe for concurrent use.
package protocol
