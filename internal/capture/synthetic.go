package capture

import (
	"math"
	"sync"
	"time"
)

// SyntheticDevice generates sine-wave blocks on a real-time cadence. It
// stands in for a hardware microphone during development and on hosts
// without an audio stack.
type SyntheticDevice struct {
	sampleRate int
	blockSize  int
	frequency  float64
	amplitude  float64

	// StatusEvery injects an overrun status on every Nth block when > 0.
	StatusEvery int

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSyntheticDevice creates a sine generator. A frequency of 0 produces
// silence.
func NewSyntheticDevice(sampleRate, blockSize int, frequency float64) *SyntheticDevice {
	return &SyntheticDevice{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		frequency:  frequency,
		amplitude:  0.3,
	}
}

// Start begins emitting blocks at the real-time block rate.
func (d *SyntheticDevice) Start(callback Callback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrAlreadyCapturing
	}

	d.running = true
	d.done = make(chan struct{})

	interval := time.Duration(d.blockSize) * time.Second / time.Duration(d.sampleRate)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		block := make([]float32, d.blockSize)
		phase := 0
		blockNum := 0

		for {
			select {
			case <-d.done:
				return
			case <-ticker.C:
				for i := range block {
					if d.frequency == 0 {
						block[i] = 0
					} else {
						t := float64(phase+i) / float64(d.sampleRate)
						block[i] = float32(d.amplitude * math.Sin(2*math.Pi*d.frequency*t))
					}
				}
				phase += d.blockSize
				blockNum++

				var status error
				if d.StatusEvery > 0 && blockNum%d.StatusEvery == 0 {
					status = ErrOverrun
				}
				callback(block, status)
			}
		}
	}()

	return nil
}

// Stop halts block generation and waits for the emitter to exit.
func (d *SyntheticDevice) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.done)
	d.mu.Unlock()

	d.wg.Wait()
	return nil
}
