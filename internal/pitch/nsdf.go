package pitch

import "github.com/0xlemi/mpmtune/internal/spectral"

// energyTerms fills out with the running energy m(tau). It starts at start
// and drops one squared sample per lag; lags past the end of signal repeat
// the last value.
func energyTerms(signal []float64, start float64, out []float64) {
	m := start
	out[0] = m
	for tau := 1; tau < len(out); tau++ {
		if tau <= len(signal) {
			s := signal[tau-1]
			m -= s * s
		}
		out[tau] = m
	}
}

// normalizedSquareDifference writes nsdf(tau) = 2r(tau)/m(tau) into out.
// out doubles as the autocorrelation buffer; scratch receives m(tau).
func normalizedSquareDifference(t spectral.Transform, signal []float64, work, spectrum []complex128, scratch, out []float64) {
	spectral.Autocorrelate(t, signal, work, spectrum, out)
	energyTerms(signal, 2*out[0], scratch)
	for i, m := range scratch {
		if m == 0 {
			out[i] = 0
			continue
		}
		out[i] = 2 * out[i] / m
	}
}
