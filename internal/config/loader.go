package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path on top of Default and
// validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over Default and validates it. Unknown
// keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	a := cfg.Audio
	if a.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", a.SampleRate))
	}
	if a.WindowSize < 4 || a.WindowSize%2 != 0 {
		errs = append(errs, fmt.Errorf("audio.window_size must be an even number >= 4, got %d", a.WindowSize))
	}
	if a.Channels < 1 {
		errs = append(errs, fmt.Errorf("audio.channels must be at least 1, got %d", a.Channels))
	}
	if a.Amplification <= 0 {
		errs = append(errs, fmt.Errorf("audio.amplification must be positive, got %.2f", a.Amplification))
	}
	if a.Hop < 0 {
		errs = append(errs, fmt.Errorf("audio.hop must not be negative, got %d", a.Hop))
	}

	d := cfg.Detector
	if d.PowerThreshold < 0 {
		errs = append(errs, fmt.Errorf("detector.power_threshold must not be negative, got %.2f", d.PowerThreshold))
	}
	if d.ClarityThreshold < 0 || d.ClarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("detector.clarity_threshold %.2f is out of range [0, 1]", d.ClarityThreshold))
	}
	if d.PickThreshold <= 0 || d.PickThreshold > 1 {
		errs = append(errs, fmt.Errorf("detector.pick_threshold %.2f is out of range (0, 1]", d.PickThreshold))
	}
	if d.Backend != "" && !d.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("detector.backend %q is invalid; valid values: gonum, go-dsp", d.Backend))
	}

	return errors.Join(errs...)
}
