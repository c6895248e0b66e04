// Package audio provides WAV encoding, PCM sample conversion and the block queue.
package audio
