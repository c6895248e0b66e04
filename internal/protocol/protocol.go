package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Message types. Clients send ping and download_files; the server sends
// the rest.
const (
	TypeStatus        = "status"
	TypePing          = "ping"
	TypePong          = "pong"
	TypeDownloadFiles = "download_files"
	TypeFilesReady    = "files_ready"
	TypeTranscription = "transcription"
)

// Envelope carries only the type discriminator of an incoming message.
type Envelope struct {
	Type string `json:"type"`
}

// ParseType extracts the message type from a raw client frame.
func ParseType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}
	return env.Type, nil
}

// StatusMessage is the greeting sent to a client right after it connects.
type StatusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewStatus creates a status message.
func NewStatus(message string) StatusMessage {
	return StatusMessage{Type: TypeStatus, Message: message}
}

// Encode serializes the message to JSON.
func (m StatusMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// PongMessage answers a client ping.
type PongMessage struct {
	Type string `json:"type"`
}

// NewPong creates a pong message.
func NewPong() PongMessage {
	return PongMessage{Type: TypePong}
}

// Encode serializes the message to JSON.
func (m PongMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// TranscriptionMessage carries one recognized segment. Start and End are
// offsets in seconds relative to the transcribed window, Timestamp is the
// wall-clock time the segment was produced.
type TranscriptionMessage struct {
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Timestamp string  `json:"timestamp"`
}

// NewTranscription creates a transcription message stamped with at.
func NewTranscription(text string, start, end float64, at time.Time) TranscriptionMessage {
	return TranscriptionMessage{
		Type:      TypeTranscription,
		Text:      text,
		Start:     start,
		End:       end,
		Timestamp: at.Format(time.RFC3339),
	}
}

// Encode serializes the message to JSON.
func (m TranscriptionMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// FilesReadyMessage answers a download_files request. AudioFile and
// AudioData are null when no audio has been recorded yet.
type FilesReadyMessage struct {
	Type      string  `json:"type"`
	AudioFile *string `json:"audio_file"`
	AudioData *string `json:"audio_data"`
	Message   string  `json:"message"`
}

// NewFilesReady creates a files_ready message with the WAV payload
// base64-encoded inline.
func NewFilesReady(filename string, wav []byte, message string) FilesReadyMessage {
	encoded := base64.StdEncoding.EncodeToString(wav)
	return FilesReadyMessage{
		Type:      TypeFilesReady,
		AudioFile: &filename,
		AudioData: &encoded,
		Message:   message,
	}
}

// NewFilesReadyEmpty creates a files_ready message with no audio payload.
func NewFilesReadyEmpty(message string) FilesReadyMessage {
	return FilesReadyMessage{
		Type:    TypeFilesReady,
		Message: message,
	}
}

// Encode serializes the message to JSON.
func (m FilesReadyMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}
