// Package protocol defines the JSON messages exchanged with WebSocket clients.
package protocol
