// Package spectral provides fixed-size discrete Fourier transforms and the
// power-spectrum autocorrelation used by the pitch detector.
package spectral

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend names a Transform implementation.
type Backend string

const (
	// BackendGonum plans the transform once with gonum's fftpack port and
	// writes straight into caller buffers.
	BackendGonum Backend = "gonum"

	// BackendGoDSP uses mjibson/go-dsp. It allocates on every call.
	BackendGoDSP Backend = "go-dsp"
)

// IsValid reports whether b is a known backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendGonum, BackendGoDSP:
		return true
	}
	return false
}

// Transform is a forward/inverse DFT over complex buffers of a fixed length.
//
// Inverse is not normalized: Inverse(Forward(x)) == Len() * x.
type Transform interface {
	// Len returns the transform length.
	Len() int

	// Forward writes the DFT of src into dst. Both must have length Len().
	Forward(dst, src []complex128)

	// Inverse writes the unnormalized inverse DFT of src into dst.
	Inverse(dst, src []complex128)
}

// New returns a Transform of length n for the named backend.
func New(backend Backend, n int) (Transform, error) {
	if n < 1 {
		return nil, fmt.Errorf("spectral: invalid transform length %d", n)
	}
	switch backend {
	case BackendGonum, "":
		return NewPlan(n), nil
	case BackendGoDSP:
		return NewGoDSP(n), nil
	default:
		return nil, fmt.Errorf("spectral: unknown backend %q", backend)
	}
}

// Plan is a precomputed complex FFT. The underlying gonum plan keeps
// internal work space, so a Plan must not be used from more than one
// goroutine at a time.
type Plan struct {
	fft *fourier.CmplxFFT
}

// NewPlan precomputes a transform of length n.
func NewPlan(n int) *Plan {
	return &Plan{fft: fourier.NewCmplxFFT(n)}
}

func (p *Plan) Len() int { return p.fft.Len() }

func (p *Plan) Forward(dst, src []complex128) {
	p.fft.Coefficients(dst, src)
}

func (p *Plan) Inverse(dst, src []complex128) {
	// gonum leaves the backward transform unscaled.
	p.fft.Sequence(dst, src)
}

// GoDSP adapts go-dsp's allocating FFT to the Transform contract.
type GoDSP struct {
	n int
}

// NewGoDSP returns a go-dsp backed transform of length n.
func NewGoDSP(n int) *GoDSP {
	return &GoDSP{n: n}
}

func (g *GoDSP) Len() int { return g.n }

func (g *GoDSP) Forward(dst, src []complex128) {
	copy(dst, fft.FFT(src))
}

func (g *GoDSP) Inverse(dst, src []complex128) {
	// go-dsp divides by n on the way back; undo it.
	scale := complex(float64(g.n), 0)
	for i, v := range fft.IFFT(src) {
		dst[i] = v * scale
	}
}
