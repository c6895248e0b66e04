// Package server exposes the WebSocket streaming endpoint and the HTTP
// monitoring API.
package server
