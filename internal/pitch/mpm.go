package pitch

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/0xlemi/mpmtune/internal/audio"
	"github.com/0xlemi/mpmtune/internal/spectral"
	"gonum.org/v1/gonum/floats"
)

// Thresholds tunes the McLeod detector.
type Thresholds struct {
	Power   float64 // Minimum sum of squared samples; quieter frames are silence
	Clarity float64 // Minimum NSDF peak height accepted as periodic
	Pick    float64 // Fraction of the key maximum a peak must exceed
}

// DefaultThresholds returns the thresholds the detector was tuned with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Power:   5.0,
		Clarity: 0.6,
		Pick:    0.95,
	}
}

// Result describes one analysed frame.
type Result struct {
	Frequency float64 // Hz, NoPitch when !Voiced
	Lag       float64 // Fractional period in samples
	Clarity   float64 // Refined NSDF height at Lag
	Energy    float64 // Sum of squared samples
	Voiced    bool
}

// Option configures an MPM.
type Option func(*mpmOptions)

type mpmOptions struct {
	thresholds Thresholds
	backend    spectral.Backend
	transform  spectral.Transform
	logger     *slog.Logger
}

// WithThresholds overrides DefaultThresholds.
func WithThresholds(th Thresholds) Option {
	return func(o *mpmOptions) { o.thresholds = th }
}

// WithBackend selects the FFT implementation.
func WithBackend(b spectral.Backend) Option {
	return func(o *mpmOptions) { o.backend = b }
}

// WithTransform supplies a prebuilt transform. Its length must be
// windowSize + windowSize/2. Transforms are not safe for concurrent use, so
// only share one between detectors driven from the same goroutine.
func WithTransform(t spectral.Transform) Option {
	return func(o *mpmOptions) { o.transform = t }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *mpmOptions) { o.logger = l }
}

// MPM detects pitch with the McLeod Pitch Method.
//
// All working buffers are allocated once in NewMPM and reused by every call,
// so an MPM must not be used from multiple goroutines at the same time. Use
// one MPM per audio stream.
type MPM struct {
	sampleRate float64
	windowSize int
	thresholds Thresholds
	transform  spectral.Transform
	logger     *slog.Logger

	work     []complex128
	spectrum []complex128
	scratch  []float64
	nsdf     []float64
	frame    []float64
	peaks    []Peak
}

// NewMPM creates a detector for frames of windowSize samples. The transform
// is padded by windowSize/2 so the autocorrelation of the lags that matter
// does not wrap.
func NewMPM(sampleRate float64, windowSize int, opts ...Option) (*MPM, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %.2f", ErrSampleRate, sampleRate)
	}
	if windowSize < 4 {
		return nil, fmt.Errorf("%w: %d", ErrWindowSize, windowSize)
	}

	o := mpmOptions{
		thresholds: DefaultThresholds(),
		backend:    spectral.BackendGonum,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	size := windowSize + windowSize/2
	t := o.transform
	if t == nil {
		var err error
		if t, err = spectral.New(o.backend, size); err != nil {
			return nil, err
		}
	} else if t.Len() != size {
		return nil, fmt.Errorf("%w: transform length %d, need %d", ErrWindowSize, t.Len(), size)
	}

	return &MPM{
		sampleRate: sampleRate,
		windowSize: windowSize,
		thresholds: o.thresholds,
		transform:  t,
		logger:     o.logger,
		work:       make([]complex128, size),
		spectrum:   make([]complex128, size),
		scratch:    make([]float64, size),
		nsdf:       make([]float64, size),
		frame:      make([]float64, windowSize),
		peaks:      make([]Peak, 0, windowSize/2),
	}, nil
}

// WindowSize returns the frame length the detector expects.
func (d *MPM) WindowSize() int { return d.windowSize }

// SampleRate returns the configured sample rate in Hz.
func (d *MPM) SampleRate() float64 { return d.sampleRate }

// Thresholds returns the configured thresholds.
func (d *MPM) Thresholds() Thresholds { return d.thresholds }

// Detect returns the pitch of frame in Hz using the configured sample rate
// and thresholds. ok is false when no pitch was found.
func (d *MPM) Detect(frame []float64) (hz float64, ok bool, err error) {
	return d.GetPitch(frame, d.sampleRate, d.thresholds)
}

// GetPitch returns the pitch of frame in Hz for an explicit sample rate and
// thresholds. ok is false for quiet or aperiodic frames.
func (d *MPM) GetPitch(frame []float64, sampleRate float64, th Thresholds) (hz float64, ok bool, err error) {
	res, err := d.estimate(frame, sampleRate, th)
	if err != nil {
		return NoPitch, false, err
	}
	return res.Frequency, res.Voiced, nil
}

// Estimate analyses frame with the configured settings and reports the
// clarity and lag along with the frequency.
func (d *MPM) Estimate(frame []float64) (Result, error) {
	return d.estimate(frame, d.sampleRate, d.thresholds)
}

// DetectPitch implements Detector for captured audio buffers.
func (d *MPM) DetectPitch(buffer *audio.AudioBuffer) (*Note, error) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return nil, ErrEmptyBuffer
	}
	if len(buffer.Samples) != d.windowSize {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrFrameSize, len(buffer.Samples), d.windowSize)
	}

	res, err := d.estimate(d.frame, d.fill(buffer), d.thresholds)
	if err != nil {
		return nil, err
	}
	if res.Energy < d.thresholds.Power {
		return nil, ErrVolumeThreshold
	}
	if !res.Voiced {
		return nil, ErrNoPitch
	}

	note := NoteFromFrequency(res.Frequency)
	note.Clarity = res.Clarity
	return &note, nil
}

// fill converts buffer into the detector's frame and returns the sample
// rate to analyse it at. buffer must hold exactly WindowSize samples.
func (d *MPM) fill(buffer *audio.AudioBuffer) (sampleRate float64) {
	for i, s := range buffer.Samples {
		d.frame[i] = float64(s)
	}
	if buffer.SampleRate > 0 {
		return float64(buffer.SampleRate)
	}
	return d.sampleRate
}

func (d *MPM) estimate(frame []float64, sampleRate float64, th Thresholds) (Result, error) {
	if len(frame) != d.windowSize {
		return Result{}, fmt.Errorf("%w: got %d samples, want %d", ErrFrameSize, len(frame), d.windowSize)
	}

	res := Result{Energy: floats.Dot(frame, frame)}
	if res.Energy < th.Power {
		d.logger.Debug("frame below power threshold", "energy", res.Energy, "threshold", th.Power)
		return res, nil
	}

	normalizedSquareDifference(d.transform, frame, d.work, d.spectrum, d.scratch, d.nsdf)

	d.peaks = d.peaks[:0]
	for p := range Peaks(d.nsdf) {
		d.peaks = append(d.peaks, p)
	}

	threshold := KeyMaximum(d.peaks) * th.Pick
	peak, found := ChoosePeak(d.peaks, threshold, th.Clarity)
	if !found {
		d.logger.Debug("no peak cleared thresholds", "candidates", len(d.peaks), "pick", threshold, "clarity", th.Clarity)
		return res, nil
	}

	lag, clarity := RefinePeak(peak, d.nsdf)
	if lag <= 0 {
		return res, nil
	}

	res.Lag = lag
	res.Clarity = clarity
	res.Frequency = sampleRate / lag
	res.Voiced = true
	return res, nil
}
