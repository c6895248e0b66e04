// Package pipeline drains captured audio blocks into overlapping
// transcription windows and publishes recognized segments.
package pipeline
