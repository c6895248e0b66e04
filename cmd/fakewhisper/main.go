// Standalone fake inference server for local development. It accepts the
// same multipart upload the service sends to faster-whisper and answers
// with canned segments, so the full capture-to-broadcast path can be run
// without a GPU.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcriptionResponse struct {
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []segment `json:"segments"`
}

var (
	delay    = flag.Duration("delay", 200*time.Millisecond, "Simulated inference time per request")
	respText = flag.String("text", "this is a fake transcription of the uploaded window", "Segment text to return")
)

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	language := r.FormValue("language")
	model := r.FormValue("model")
	device := r.FormValue("device")
	beamSize := r.FormValue("beam_size")
	sampleRate := r.FormValue("sample_rate")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	duration := wavDuration(audioData)

	log.Printf("TRANSCRIPTION REQUEST:")
	log.Printf("  filename=%s bytes=%d duration=%.2fs", header.Filename, len(audioData), duration)
	log.Printf("  language=%s model=%s device=%s beam_size=%s sample_rate=%s",
		language, model, device, beamSize, sampleRate)

	// Simulate processing time
	time.Sleep(*delay)

	if language == "" {
		language = "en"
	}

	response := transcriptionResponse{
		Language: language,
		Duration: duration,
		Segments: []segment{
			{Start: 0, End: duration, Text: *respText},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("RESPONSE SENT: '%s'", *respText)
}

// wavDuration reads the sample rate and data size out of a 16-bit mono
// WAV header. Returns 0 for anything it cannot parse.
func wavDuration(data []byte) float64 {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if sampleRate == 0 {
		return 0
	}

	return float64(dataSize) / 2 / float64(sampleRate)
}

func main() {
	port := flag.Int("port", 9000, "Port to listen on")
	flag.Parse()

	http.HandleFunc("/transcribe", transcribeHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Fake transcription server starting on %s", addr)
	log.Printf("Endpoint: http://localhost%s/transcribe", addr)
	log.Println("Point transcription.endpoint at it to run without a GPU")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
