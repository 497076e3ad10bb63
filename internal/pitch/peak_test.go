package pitch

import (
	"math"
	"slices"
	"testing"
)

func TestPeakIterator(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want []Peak
	}{
		{
			name: "interior run between negatives",
			data: []float64{1, 2, -1, -2, 3, 4, 1, -5},
			want: []Peak{{Index: 5, Value: 4}},
		},
		{
			name: "leading positive run only",
			data: []float64{1, 2, 3},
			want: nil,
		},
		{
			name: "terminal run has no closing sign change",
			data: []float64{-1, 2},
			want: nil,
		},
		{
			name: "single bounded value",
			data: []float64{-1, 2, -1},
			want: []Peak{{Index: 1, Value: 2}},
		},
		{
			name: "zeros bound runs",
			data: []float64{0, 1, 0, 3, 0},
			want: []Peak{{Index: 1, Value: 1}, {Index: 3, Value: 3}},
		},
		{
			name: "first maximum of a plateau wins",
			data: []float64{1, -1, 2, 5, 5, 1, -1, 0.5, 0.7, -0.1, 9},
			want: []Peak{{Index: 3, Value: 5}, {Index: 8, Value: 0.7}},
		},
		{
			name: "all negative",
			data: []float64{-1, -2, -3},
			want: nil,
		},
		{
			name: "empty",
			data: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectPeaks(tt.data)
			if !slices.Equal(got, tt.want) {
				t.Errorf("DetectPeaks(%v) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestPeakIterator_NeverReturnsEdges(t *testing.T) {
	data := make([]float64, 300)
	for i := range data {
		data[i] = math.Sin(float64(i) * 0.37)
	}

	for _, p := range DetectPeaks(data) {
		if p.Index == 0 || p.Index == len(data)-1 {
			t.Fatalf("peak at edge index %d", p.Index)
		}
		if data[p.Index-1] > p.Value || data[p.Index+1] > p.Value {
			t.Errorf("peak %v is not a local maximum", p)
		}
	}
}

func TestPeakIterator_Exhausted(t *testing.T) {
	it := NewPeakIterator([]float64{-1, 2, -1})
	if _, ok := it.Next(); !ok {
		t.Fatal("expected one peak")
	}
	for i := 0; i < 3; i++ {
		if p, ok := it.Next(); ok {
			t.Fatalf("expected exhausted iterator, got %v", p)
		}
	}
}

func TestPeaks_StopsEarly(t *testing.T) {
	data := []float64{1, -1, 2, -1, 3, -1, 4, -1}
	var got []Peak
	for p := range Peaks(data) {
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	want := []Peak{{Index: 2, Value: 2}, {Index: 4, Value: 3}}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestKeyMaximum(t *testing.T) {
	if got := KeyMaximum(nil); got != 0 {
		t.Errorf("KeyMaximum(nil) = %v, want 0", got)
	}
	peaks := []Peak{{3, 0.4}, {7, 0.9}, {11, 0.2}}
	if got := KeyMaximum(peaks); got != 0.9 {
		t.Errorf("KeyMaximum = %v, want 0.9", got)
	}
}

func TestChoosePeak(t *testing.T) {
	peaks := []Peak{{3, 0.7}, {8, 0.9}, {12, 0.95}}
	key := KeyMaximum(peaks)

	tests := []struct {
		name    string
		pick    float64
		clarity float64
		want    Peak
		wantOK  bool
	}{
		{"strict pick skips near-max", 0.95, 0.6, Peak{12, 0.95}, true},
		{"looser pick takes lower lag", 0.9, 0.6, Peak{8, 0.9}, true},
		{"clarity gates first peak", 0.5, 0.75, Peak{8, 0.9}, true},
		{"clarity above every peak", 0.5, 0.96, Peak{}, false},
		{"pick of one never matches", 1.0, 0.6, Peak{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChoosePeak(peaks, key*tt.pick, tt.clarity)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ChoosePeak = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, ok := ChoosePeak(nil, 0, 0); ok {
		t.Error("expected no peak from empty candidates")
	}
}

func TestChoosePeak_PickThresholdOnlyTightens(t *testing.T) {
	peaks := []Peak{{4, 0.62}, {9, 0.81}, {15, 0.79}, {20, 0.88}, {26, 0.9}, {31, 0.7}}
	key := KeyMaximum(peaks)
	const clarity = 0.6

	prev, prevOK := ChoosePeak(peaks, key*0.5, clarity)
	for pick := 0.55; pick <= 1.0; pick += 0.05 {
		got, ok := ChoosePeak(peaks, key*pick, clarity)
		if ok && !prevOK {
			t.Fatalf("pick %.2f accepted %v after a lower pick rejected every peak", pick, got)
		}
		if ok && got.Index < prev.Index {
			t.Fatalf("pick %.2f accepted %v, earlier than %v chosen with a lower pick", pick, got, prev)
		}
		prev, prevOK = got, ok
	}
}

func TestQuadraticPeak(t *testing.T) {
	tests := []struct {
		name       string
		y0, y1, y2 float64
		wantOffset float64
		wantValue  float64
	}{
		{"symmetric", 0, 4, 0, 0, 4},
		{"concave up rising", 1, 2, 4, 1, 4},
		{"concave up falling", 4, 2, 1, -1, 4},
		{"skewed right", 1, 3, 2, 1.0 / 6.0, 3 + 1.0/24.0},
		{"flat", 2, 2, 2, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, value := QuadraticPeak(tt.y0, tt.y1, tt.y2)
			if math.Abs(offset-tt.wantOffset) > 1e-12 {
				t.Errorf("offset = %v, want %v", offset, tt.wantOffset)
			}
			if math.Abs(value-tt.wantValue) > 1e-12 {
				t.Errorf("value = %v, want %v", value, tt.wantValue)
			}
		})
	}
}

func TestRefinePeak(t *testing.T) {
	data := []float64{-1, 0, 4, 0, -1}
	lag, value := RefinePeak(Peak{Index: 2, Value: 4}, data)
	if lag != 2 || value != 4 {
		t.Errorf("RefinePeak = %v, %v; want 2, 4", lag, value)
	}

	data = []float64{-1, 1, 3, 2, -1}
	lag, _ = RefinePeak(Peak{Index: 2, Value: 3}, data)
	if lag <= 2 || lag >= 2.5 {
		t.Errorf("expected lag pulled toward the taller neighbour, got %v", lag)
	}
}
