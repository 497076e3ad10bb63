package pitch

import (
	"errors"
	"fmt"
	"math"

	"github.com/0xlemi/mpmtune/internal/audio"
)

// Errors
var (
	ErrEmptyBuffer     = errors.New("empty audio buffer")
	ErrVolumeThreshold = errors.New("signal energy below power threshold")
	ErrNoPitch         = errors.New("no pitch detected")
	ErrFrameSize       = errors.New("frame length does not match window size")
	ErrWindowSize      = errors.New("invalid window size")
	ErrSampleRate      = errors.New("invalid sample rate")
)

// NoPitch is the frequency reported when a frame has no detectable pitch.
const NoPitch = 0.0

// maxMIDI is the highest MIDI note number.
const maxMIDI = 127

// Note represents a musical note
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	MIDI      int     // MIDI note number, 69 for A4
	Frequency float64 // Frequency in Hz
	Cents     float64 // Deviation from the note's reference pitch (-50 to +50)
	Clarity   float64 // NSDF peak height, 1.0 for a perfectly periodic frame
}

// Detector defines the interface for pitch detection
type Detector interface {
	// DetectPitch analyzes an audio buffer and returns the detected note
	DetectPitch(buffer *audio.AudioBuffer) (*Note, error)
}

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchToMIDI returns the MIDI note nearest to frequency. Non-positive and
// non-finite frequencies map to note 0.
func PitchToMIDI(frequency float64) int {
	if !validFrequency(frequency) {
		return 0
	}
	note := math.Round(12*math.Log2(frequency/440.0) + 69.01)
	if note < 0 {
		return 0
	}
	return int(note)
}

// MIDIToPitch returns the equal-tempered frequency of a MIDI note (A4 = 440Hz).
func MIDIToPitch(note int) float64 {
	return 440.0 * math.Pow(2, float64(note-69)/12.0)
}

// CentsOffset returns how far frequency is from the reference pitch of note,
// rounded to whole cents. It is 0 for frequencies PitchToMIDI rejects.
func CentsOffset(frequency float64, note int) int {
	if !validFrequency(frequency) {
		return 0
	}
	return int(math.Round(1200 * math.Log2(frequency/MIDIToPitch(note))))
}

// NoteFromFrequency names the note nearest to frequency. The note is clamped
// to the MIDI range 0..127; invalid frequencies give note 0 with no cents.
func NoteFromFrequency(frequency float64) Note {
	midi := min(max(PitchToMIDI(frequency), 0), maxMIDI)

	n := Note{
		Name:      noteNames[midi%12],
		Octave:    midi/12 - 1, // MIDI 60 is C4
		MIDI:      midi,
		Frequency: frequency,
	}
	if validFrequency(frequency) {
		n.Cents = 1200 * math.Log2(frequency/MIDIToPitch(midi))
	}
	return n
}

func validFrequency(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}

// String formats the note as name and octave, e.g. "A4".
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}
