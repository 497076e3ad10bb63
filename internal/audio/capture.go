package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// Errors
var (
	ErrAlreadyCapturing = errors.New("audio capture already started")
	ErrNotCapturing     = errors.New("audio capture not started")
	ErrNoFrame          = errors.New("no new audio frame available")
	ErrFrameSize        = errors.New("invalid frame size")
	ErrInvalidWAV       = errors.New("not a valid WAV file")
)

// AudioBuffer represents a buffer of audio samples
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Capturer defines the interface for audio capture
type Capturer interface {
	// Start begins audio capture
	Start() error

	// Stop ends audio capture
	Stop() error

	// GetBuffer returns the next full frame of audio
	GetBuffer() (*AudioBuffer, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// Level calculates the RMS and dB level of a buffer
func Level(buffer *AudioBuffer) (rms, db float64) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return 0, -100
	}

	sumSquares := 0.0
	for _, sample := range buffer.Samples {
		s := float64(sample)
		sumSquares += s * s
	}
	rms = math.Sqrt(sumSquares / float64(len(buffer.Samples)))

	// Avoid log(0)
	if rms > 0.0000001 {
		db = 20 * math.Log10(rms)
	} else {
		db = -100
	}
	return rms, db
}

// wavFormatPCM is the fmt chunk tag for integer PCM.
const wavFormatPCM = 1

// WAVSource reads a WAV file and hands it out as fixed-size mono frames.
// Frames start every hop samples; a trailing partial frame is dropped.
type WAVSource struct {
	samples     []float32
	sampleRate  int
	frameSize   int
	hop         int
	pos         int
	isCapturing bool
}

// OpenWAV reads the WAV file at path. A hop of 0 means frames do not overlap.
func OpenWAV(path string, frameSize, hop int) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := ReadWAV(f, frameSize, hop)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return src, nil
}

// ReadWAV is like OpenWAV but reads from r.
func ReadWAV(r io.ReadSeeker, frameSize, hop int) (*WAVSource, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrFrameSize, frameSize)
	}
	if hop <= 0 {
		hop = frameSize
	}

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: audio format %d, want integer PCM", ErrInvalidWAV, dec.WavAudioFormat)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	// IsValidFile guarantees at least 8 bits
	bitDepth := int(dec.BitDepth)
	scale := float64(int64(1) << (bitDepth - 1))
	// 8-bit PCM is unsigned
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}

	// Average interleaved channels down to mono
	mono := make([]float32, len(pcm.Data)/channels)
	for i := range mono {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(pcm.Data[i*channels+ch]) - offset
		}
		mono[i] = float32(sum / float64(channels) / scale)
	}

	return &WAVSource{
		samples:    mono,
		sampleRate: int(dec.SampleRate),
		frameSize:  frameSize,
		hop:        hop,
	}, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *WAVSource) SampleRate() int { return s.sampleRate }

// Len returns the number of full frames the file holds.
func (s *WAVSource) Len() int {
	if len(s.samples) < s.frameSize {
		return 0
	}
	return (len(s.samples)-s.frameSize)/s.hop + 1
}

// Offset returns the start of the next frame in samples.
func (s *WAVSource) Offset() int { return s.pos }

// Start rewinds the source to the first frame.
func (s *WAVSource) Start() error {
	if s.isCapturing {
		return ErrAlreadyCapturing
	}
	s.pos = 0
	s.isCapturing = true
	return nil
}

// Stop ends reading.
func (s *WAVSource) Stop() error {
	if !s.isCapturing {
		return ErrNotCapturing
	}
	s.isCapturing = false
	return nil
}

// GetBuffer returns the next frame, or io.EOF after the last full frame.
// The returned samples alias the decoded file and must not be modified.
func (s *WAVSource) GetBuffer() (*AudioBuffer, error) {
	if !s.isCapturing {
		return nil, ErrNotCapturing
	}
	if s.pos+s.frameSize > len(s.samples) {
		return nil, io.EOF
	}

	buf := &AudioBuffer{
		Samples:    s.samples[s.pos : s.pos+s.frameSize : s.pos+s.frameSize],
		SampleRate: s.sampleRate,
	}
	s.pos += s.hop
	return buf, nil
}

// IsCapturing returns true between Start and Stop.
func (s *WAVSource) IsCapturing() bool {
	return s.isCapturing
}
