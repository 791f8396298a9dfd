// Package connection implements the chat connection lifecycle.
//
// The Manager:
//   - Owns exactly one websocket handle at a time
//   - Runs the Idle -> Connecting -> Open -> Closed state machine
//   - Reconnects with linear backoff (BaseDelay * attempt), giving up
//     after MaxAttempts until restarted
//   - Decodes inbound frames and relays them to subscribers in order
//   - Guards the outbound operations on the Open state
//
// Client adapts gorilla/websocket to the Transport and Handler contract
// the Manager consumes.
package connection
