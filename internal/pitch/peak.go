package pitch

import (
	"iter"
	"slices"
)

// Peak is a local maximum of the NSDF: the lag in samples and its height.
type Peak struct {
	Index int
	Value float64
}

// PeakIterator walks a sequence and yields the maximum of every run of
// strictly positive values that is bounded by non-positive values on both
// sides. A leading positive run and a run that reaches the end of the data
// never produce a peak, so Index is never 0 or len(data)-1.
//
// A PeakIterator cannot be restarted; make a new one to scan again.
type PeakIterator struct {
	data    []float64
	pos     int
	started bool
}

// NewPeakIterator returns an iterator over data. data is read, never written.
func NewPeakIterator(data []float64) *PeakIterator {
	return &PeakIterator{data: data}
}

// Next returns the next peak, or false once the data is exhausted.
func (it *PeakIterator) Next() (Peak, bool) {
	n := len(it.data)
	i := it.pos

	if !it.started {
		it.started = true
		for i < n && it.data[i] > 0 {
			i++
		}
	}

	for i < n && !(it.data[i] > 0) {
		i++
	}
	if i >= n {
		it.pos = n
		return Peak{}, false
	}

	peak := Peak{Index: i, Value: it.data[i]}
	for ; i < n && it.data[i] > 0; i++ {
		if it.data[i] > peak.Value {
			peak = Peak{Index: i, Value: it.data[i]}
		}
	}
	it.pos = i

	// The run ran off the end: no closing sign change.
	if i == n {
		return Peak{}, false
	}
	return peak, true
}

// Peaks returns the peaks of data as a lazy sequence in index order.
func Peaks(data []float64) iter.Seq[Peak] {
	return func(yield func(Peak) bool) {
		it := NewPeakIterator(data)
		for {
			p, ok := it.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// DetectPeaks collects every peak of data in index order.
func DetectPeaks(data []float64) []Peak {
	return slices.Collect(Peaks(data))
}

// KeyMaximum returns the height of the tallest peak, or 0 when there are none.
func KeyMaximum(peaks []Peak) float64 {
	if len(peaks) == 0 {
		return 0
	}
	return slices.MaxFunc(peaks, func(a, b Peak) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	}).Value
}

// ChoosePeak returns the first peak, in lag order, that is taller than both
// threshold and clarity. Scanning from the shortest lag favours the highest
// candidate frequency and keeps the detector from dropping an octave.
func ChoosePeak(peaks []Peak, threshold, clarity float64) (Peak, bool) {
	for _, p := range peaks {
		if p.Value > threshold && p.Value > clarity {
			return p, true
		}
	}
	return Peak{}, false
}

// QuadraticPeak fits a parabola through (-1, y0), (0, y1), (1, y2) and returns
// the offset and height of its maximum. When the parabola opens upward the
// larger endpoint is returned instead of the vertex.
func QuadraticPeak(y0, y1, y2 float64) (offset, value float64) {
	a := 0.5*(y0+y2) - y1
	b := 0.5 * (y2 - y0)

	switch {
	case a > 0:
		if y0 > y2 {
			return -1, y0
		}
		return 1, y2
	case a == 0:
		// At a run maximum y1 >= y0 and y1 >= y2, so a == 0 forces
		// y0 == y1 == y2 and b == 0: the top is flat.
		return 0, y1
	}
	return -b / (2 * a), y1 - b*b/(4*a)
}

// RefinePeak interpolates p against its neighbours in data and returns the
// fractional lag and refined height. p must be an interior index of data, as
// produced by PeakIterator.
func RefinePeak(p Peak, data []float64) (lag, value float64) {
	offset, value := QuadraticPeak(data[p.Index-1], data[p.Index], data[p.Index+1])
	return float64(p.Index) + offset, value
}
