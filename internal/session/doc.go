// Package session records the captured audio and produces WAV export artifacts.
package session
