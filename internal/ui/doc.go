// Package ui is the terminal front end of the chat client.
//
// It renders connection events as history lines and turns the input line
// into the two outbound operations, plus the /nick and /quit commands.
package ui
