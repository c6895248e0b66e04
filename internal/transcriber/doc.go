// Package transcriber adapts external speech-to-text backends behind a common interface.
package transcriber
