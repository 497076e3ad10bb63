// Command mpmtune detects the pitch of live or recorded audio with the
// McLeod Pitch Method.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/0xlemi/mpmtune/internal/config"
	"github.com/0xlemi/mpmtune/internal/pitch"
	"github.com/0xlemi/mpmtune/internal/spectral"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mpmtune: %v\n", err)
		os.Exit(1)
	}
}

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	sampleRate int
	windowSize int
	hop        int
	backend    string
	power      float64
	clarity    float64
	pick       float64
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "mpmtune",
		Short:         "Pitch detection with the McLeod Pitch Method",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newListenCmd(opts),
		newAnalyzeCmd(opts),
		newNoteCmd(),
		newFreqCmd(),
	)
	return root
}

func (o *options) bindFlags(f *pflag.FlagSet) {
	def := config.Default()
	f.StringVarP(&o.configPath, "config", "c", "", "path to a YAML configuration file")
	f.StringVar(&o.logLevel, "log-level", string(def.LogLevel), "log level: debug, info, warn, error")
	f.IntVar(&o.sampleRate, "sample-rate", def.Audio.SampleRate, "capture sample rate in Hz")
	f.IntVarP(&o.windowSize, "window", "w", def.Audio.WindowSize, "samples per analysed frame")
	f.IntVar(&o.hop, "hop", def.Audio.Hop, "samples between frame starts when reading files (0 = window)")
	f.StringVar(&o.backend, "backend", string(def.Detector.Backend), "FFT backend: gonum, go-dsp")
	f.Float64Var(&o.power, "power-threshold", def.Detector.PowerThreshold, "minimum frame energy (sum of squared samples)")
	f.Float64Var(&o.clarity, "clarity-threshold", def.Detector.ClarityThreshold, "minimum NSDF peak height")
	f.Float64Var(&o.pick, "pick-threshold", def.Detector.PickThreshold, "fraction of the tallest peak a candidate must exceed")
}

// load reads the config file, if any, and applies explicitly set flags on top.
func (o *options) load(flags *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}

	if flags.Changed("log-level") {
		cfg.LogLevel = config.LogLevel(o.logLevel)
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if flags.Changed("window") {
		cfg.Audio.WindowSize = o.windowSize
	}
	if flags.Changed("hop") {
		cfg.Audio.Hop = o.hop
	}
	if flags.Changed("backend") {
		cfg.Detector.Backend = spectral.Backend(o.backend)
	}
	if flags.Changed("power-threshold") {
		cfg.Detector.PowerThreshold = o.power
	}
	if flags.Changed("clarity-threshold") {
		cfg.Detector.ClarityThreshold = o.clarity
	}
	if flags.Changed("pick-threshold") {
		cfg.Detector.PickThreshold = o.pick
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	slog.SetDefault(newLogger(cfg.LogLevel))
	return cfg, nil
}

// newDetector builds an MPM detector from cfg for the given sample rate.
func newDetector(cfg *config.Config, sampleRate int) (*pitch.MPM, error) {
	return pitch.NewMPM(float64(sampleRate), cfg.Audio.WindowSize,
		pitch.WithThresholds(cfg.Detector.Thresholds()),
		pitch.WithBackend(cfg.Detector.Backend),
		pitch.WithLogger(slog.Default()),
	)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
