package pitch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/0xlemi/mpmtune/internal/audio"
)

// TrackPoint is the estimate for one frame of a source.
type TrackPoint struct {
	Frame int // Zero-based frame number
	Result
}

// Track runs d over every frame src yields until io.EOF and returns one
// point per frame, voiced or not. src must already be started.
func Track(ctx context.Context, src audio.Capturer, d *MPM) ([]TrackPoint, error) {
	var points []TrackPoint

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return points, err
		}

		buf, err := src.GetBuffer()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return points, err
		}
		if len(buf.Samples) != d.windowSize {
			return points, fmt.Errorf("%w: got %d samples, want %d", ErrFrameSize, len(buf.Samples), d.windowSize)
		}

		res, err := d.estimate(d.frame, d.fill(buf), d.thresholds)
		if err != nil {
			return points, err
		}
		points = append(points, TrackPoint{Frame: i, Result: res})
	}
}
