package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/0xlemi/mpmtune/internal/audio"
	"github.com/0xlemi/mpmtune/internal/config"
	"github.com/0xlemi/mpmtune/internal/pitch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	var voicedOnly bool

	cmd := &cobra.Command{
		Use:   "analyze FILE.wav...",
		Short: "Print a per-frame pitch track for WAV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Flags())
			if err != nil {
				return err
			}

			tracks, err := analyzeFiles(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			for i, path := range args {
				writeTrack(cmd.OutOrStdout(), path, tracks[i], voicedOnly)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&voicedOnly, "voiced", false, "only print frames with a detected pitch")
	return cmd
}

// track is the analysis of one file.
type track struct {
	sampleRate int
	hop        int
	points     []pitch.TrackPoint
}

// analyzeFiles tracks every file in parallel. Each file gets its own
// detector since detectors reuse their buffers.
func analyzeFiles(ctx context.Context, cfg *config.Config, paths []string) ([]track, error) {
	tracks := make([]track, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		g.Go(func() error {
			t, err := analyzeFile(ctx, cfg, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			tracks[i] = t
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}

func analyzeFile(ctx context.Context, cfg *config.Config, path string) (track, error) {
	src, err := audio.OpenWAV(path, cfg.Audio.WindowSize, cfg.Audio.Hop)
	if err != nil {
		return track{}, err
	}

	detector, err := newDetector(cfg, src.SampleRate())
	if err != nil {
		return track{}, err
	}

	if err := src.Start(); err != nil {
		return track{}, err
	}
	defer src.Stop()

	points, err := pitch.Track(ctx, src, detector)
	if err != nil {
		return track{}, err
	}

	hop := cfg.Audio.Hop
	if hop == 0 {
		hop = cfg.Audio.WindowSize
	}
	slog.Debug("analyzed file", "path", path, "frames", len(points), "sample_rate", src.SampleRate())
	return track{sampleRate: src.SampleRate(), hop: hop, points: points}, nil
}

// writeTrack prints one tab-separated line per frame: time in seconds,
// frequency, note, cents offset and clarity.
func writeTrack(w io.Writer, path string, t track, voicedOnly bool) {
	fmt.Fprintf(w, "# %s\n", path)
	for _, p := range t.points {
		seconds := float64(p.Frame*t.hop) / float64(t.sampleRate)
		if !p.Voiced {
			if !voicedOnly {
				fmt.Fprintf(w, "%.3f\t-\n", seconds)
			}
			continue
		}
		n := pitch.NoteFromFrequency(p.Frequency)
		fmt.Fprintf(w, "%.3f\t%.2f\t%s\t%+d\t%.2f\n",
			seconds, p.Frequency, n, pitch.CentsOffset(p.Frequency, n.MIDI), p.Clarity)
	}
}
