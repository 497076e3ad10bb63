// Package config holds the runtime settings of mpmtune and loads them from
// YAML.
package config

import (
	"github.com/0xlemi/mpmtune/internal/pitch"
	"github.com/0xlemi/mpmtune/internal/spectral"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the top-level configuration.
type Config struct {
	LogLevel LogLevel       `yaml:"log_level"`
	Audio    AudioConfig    `yaml:"audio"`
	Detector DetectorConfig `yaml:"detector"`
}

// AudioConfig describes how frames are captured or read.
type AudioConfig struct {
	// SampleRate in Hz used for live capture.
	SampleRate int `yaml:"sample_rate"`

	// WindowSize is the number of samples per analysed frame.
	WindowSize int `yaml:"window_size"`

	// Channels requested from the input device; averaged to mono.
	Channels int `yaml:"channels"`

	// Amplification applied to live input before analysis.
	Amplification float64 `yaml:"amplification"`

	// Hop is the distance between frame starts when reading files. Zero
	// means WindowSize.
	Hop int `yaml:"hop"`
}

// DetectorConfig tunes the pitch detector.
type DetectorConfig struct {
	PowerThreshold   float64          `yaml:"power_threshold"`
	ClarityThreshold float64          `yaml:"clarity_threshold"`
	PickThreshold    float64          `yaml:"pick_threshold"`
	Backend          spectral.Backend `yaml:"backend"`
}

// Default returns the built-in configuration.
func Default() *Config {
	th := pitch.DefaultThresholds()
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			SampleRate:    44100,
			WindowSize:    2048,
			Channels:      1,
			Amplification: 1.0,
		},
		Detector: DetectorConfig{
			PowerThreshold:   th.Power,
			ClarityThreshold: th.Clarity,
			PickThreshold:    th.Pick,
			Backend:          spectral.BackendGonum,
		},
	}
}

// Thresholds converts the detector settings for pitch.WithThresholds.
func (d DetectorConfig) Thresholds() pitch.Thresholds {
	return pitch.Thresholds{
		Power:   d.PowerThreshold,
		Clarity: d.ClarityThreshold,
		Pick:    d.PickThreshold,
	}
}
