package spectral

// Autocorrelate writes the circular autocorrelation of signal into out using
// the power spectrum (Wiener-Khinchin).
//
// signal is zero padded to t.Len(); work, spectrum and out must all have that
// length. work and spectrum are overwritten. Values past len(signal) in out
// hold the wrapped lags. Nothing is allocated unless the transform itself
// allocates.
func Autocorrelate(t Transform, signal []float64, work, spectrum []complex128, out []float64) {
	copyRealToComplex(signal, work)
	t.Forward(spectrum, work)
	modulusSquared(spectrum)
	t.Inverse(work, spectrum)
	copyComplexToReal(work, out)
}

func copyRealToComplex(in []float64, out []complex128) {
	for i, v := range in {
		out[i] = complex(v, 0)
	}
	clear(out[len(in):])
}

func copyComplexToReal(in []complex128, out []float64) {
	for i := range out {
		out[i] = real(in[i])
	}
}

func modulusSquared(buf []complex128) {
	for i, c := range buf {
		re, im := real(c), imag(c)
		buf[i] = complex(re*re+im*im, 0)
	}
}
