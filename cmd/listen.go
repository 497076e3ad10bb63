package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xlemi/mpmtune/internal/audio"
	"github.com/0xlemi/mpmtune/internal/pitch"
	"github.com/0xlemi/mpmtune/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	// How often to update level info in the UI
	levelInterval = 200 * time.Millisecond

	// Only send note updates at this rate to prevent flicker
	noteInterval = 80 * time.Millisecond

	// Wait between polls when no new frame has arrived
	pollInterval = 10 * time.Millisecond

	// Estimates at or below this are discarded
	minFrequency = 1.0
)

func newListenCmd(opts *options) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Detect the pitch of the default input device in real time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd.Flags())
			if err != nil {
				return err
			}

			detector, err := newDetector(cfg, cfg.Audio.SampleRate)
			if err != nil {
				return err
			}

			capturer, err := audio.NewPortAudioCapturer(cfg.Audio.WindowSize, cfg.Audio.SampleRate, cfg.Audio.Channels)
			if err != nil {
				return fmt.Errorf("create audio capturer: %w", err)
			}
			capturer.SetAmplification(float32(cfg.Audio.Amplification))

			if err := capturer.Start(); err != nil {
				return fmt.Errorf("start audio capture: %w", err)
			}
			defer func() {
				slog.Debug("capture stopped", "dropped_frames", capturer.Dropped())
				if err := capturer.Stop(); err != nil {
					slog.Warn("stop audio capture", "err", err)
				}
			}()

			slog.Info("listening",
				"sample_rate", cfg.Audio.SampleRate,
				"window_size", cfg.Audio.WindowSize,
				"backend", cfg.Detector.Backend,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if plain || !isatty.IsTerminal(os.Stdout.Fd()) {
				return listen(ctx, capturer, detector, &lineSink{w: cmd.OutOrStdout()})
			}
			return listenTUI(ctx, capturer, detector, cfg.Audio.SampleRate, cfg.Audio.WindowSize)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print one line per detected note instead of the terminal UI")
	return cmd
}

// sink receives the output of the listen loop.
type sink interface {
	level(rms, db float64)
	note(n pitch.Note)
	clear()
}

// listenTUI runs the capture loop next to the bubbletea program until either
// one stops.
func listenTUI(ctx context.Context, c audio.Capturer, d pitch.Detector, sampleRate, windowSize int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewModel(sampleRate, windowSize), tea.WithAltScreen(), tea.WithContext(ctx))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return listen(ctx, c, d, programSink{p})
	})
	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// listen polls c for frames, runs d over each and reports to out until ctx
// is done.
func listen(ctx context.Context, c audio.Capturer, d pitch.Detector, out sink) error {
	var lastLevel, lastNote time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		buffer, err := c.GetBuffer()
		if errors.Is(err, audio.ErrNoFrame) {
			time.Sleep(pollInterval)
			continue
		}
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}

		if time.Since(lastLevel) > levelInterval {
			out.level(audio.Level(buffer))
			lastLevel = time.Now()
		}

		note, err := d.DetectPitch(buffer)
		switch {
		case errors.Is(err, pitch.ErrVolumeThreshold), errors.Is(err, pitch.ErrNoPitch):
			out.clear()
			continue
		case err != nil:
			return fmt.Errorf("detect pitch: %w", err)
		}

		if note.Frequency <= minFrequency {
			continue
		}
		if time.Since(lastNote) > noteInterval {
			out.note(*note)
			lastNote = time.Now()
		}
	}
}

type programSink struct{ p *tea.Program }

func (s programSink) level(rms, db float64) { s.p.Send(ui.UpdateAudioLevelMsg{RMS: rms, DB: db}) }
func (s programSink) note(n pitch.Note)     { s.p.Send(ui.UpdateNoteMsg(n)) }
func (s programSink) clear()                { s.p.Send(ui.ClearNoteMsg{}) }

// lineSink prints a line whenever the detected note changes.
type lineSink struct {
	w    io.Writer
	last string
}

func (s *lineSink) level(float64, float64) {}

func (s *lineSink) note(n pitch.Note) {
	if n.String() == s.last {
		return
	}
	s.last = n.String()
	fmt.Fprintf(s.w, "%-4s %8.2f Hz  midi %3d  %+4d cents  clarity %.2f\n",
		n, n.Frequency, n.MIDI, pitch.CentsOffset(n.Frequency, n.MIDI), n.Clarity)
}

func (s *lineSink) clear() { s.last = "" }
