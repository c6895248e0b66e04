// Package hub fans transcript messages out to connected subscribers.
package hub
