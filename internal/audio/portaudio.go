package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// minAmplification keeps a misconfigured gain from muting the input.
const minAmplification = 0.1

// PortAudioCapturer captures mono frames of a fixed size from the default
// input device. PortAudio is asked for exactly frameSize frames per
// callback, so every callback produces one analysis frame.
type PortAudioCapturer struct {
	frameSize  int
	sampleRate int
	channels   int

	mu            sync.Mutex
	stream        *portaudio.Stream
	isCapturing   bool
	frame         []float32 // Latest mono frame
	fresh         bool      // frame has not been read yet
	dropped       int       // frames overwritten before they were read
	amplification float32
}

// NewPortAudioCapturer returns a capturer for frames of frameSize samples at
// sampleRate. Multi-channel input is averaged to mono. The device is not
// touched until Start.
func NewPortAudioCapturer(frameSize, sampleRate, channels int) (*PortAudioCapturer, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrFrameSize, frameSize)
	}
	return &PortAudioCapturer{
		frameSize:     frameSize,
		sampleRate:    sampleRate,
		channels:      max(channels, 1),
		frame:         make([]float32, frameSize),
		amplification: 1,
	}, nil
}

// Start initializes PortAudio and opens the default input stream.
func (c *PortAudioCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(c.channels, 0, float64(c.sampleRate), c.frameSize, c.onFrame)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.isCapturing = true
	c.fresh = false
	c.dropped = 0
	return nil
}

// Stop closes the stream and releases PortAudio. The first failure is
// returned but every step is attempted.
func (c *PortAudioCapturer) Stop() error {
	c.mu.Lock()
	stream := c.stream
	if !c.isCapturing {
		c.mu.Unlock()
		return ErrNotCapturing
	}
	c.isCapturing = false
	c.stream = nil
	c.mu.Unlock()

	// The callback takes mu, so the stream is stopped without holding it.
	var first error
	for _, step := range []func() error{stream.Stop, stream.Close, portaudio.Terminate} {
		if err := step(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// onFrame is the PortAudio callback; in holds frameSize*channels samples.
func (c *PortAudioCapturer) onFrame(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fresh {
		c.dropped++
	}
	mixToMono(c.frame, in, c.channels, c.amplification)
	c.fresh = true
}

// mixToMono averages interleaved channels of in into dst, scaled by gain.
func mixToMono(dst, in []float32, channels int, gain float32) {
	if channels == 1 {
		for i := range dst {
			dst[i] = in[i] * gain
		}
		return
	}
	scale := gain / float32(channels)
	for i := range dst {
		var sum float32
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += s
		}
		dst[i] = sum * scale
	}
}

// GetBuffer returns a copy of the latest frame, or ErrNoFrame when no
// callback has delivered one since the previous call.
func (c *PortAudioCapturer) GetBuffer() (*AudioBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return nil, ErrNotCapturing
	}
	if !c.fresh {
		return nil, ErrNoFrame
	}
	c.fresh = false

	return &AudioBuffer{
		Samples:    append([]float32(nil), c.frame...),
		SampleRate: c.sampleRate,
	}, nil
}

// IsCapturing returns true between Start and Stop.
func (c *PortAudioCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}

// Dropped returns how many frames arrived before the previous one was read
// since Start.
func (c *PortAudioCapturer) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// SetAmplification sets the gain applied to incoming samples.
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.amplification = max(factor, minAmplification)
}
