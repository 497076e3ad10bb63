package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/0xlemi/mpmtune/internal/pitch"
	"github.com/spf13/cobra"
)

// maxMIDINote is the highest note freq accepts.
const maxMIDINote = 127

func newNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note HZ",
		Short: "Name the note nearest to a frequency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hz, err := strconv.ParseFloat(args[0], 64)
			if err != nil || hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
				return fmt.Errorf("invalid frequency %q", args[0])
			}
			n := pitch.NoteFromFrequency(hz)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tmidi %d\t%+d cents\n", n, n.MIDI, pitch.CentsOffset(hz, n.MIDI))
			return nil
		},
	}
}

func newFreqCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "freq MIDI",
		Short: "Print the reference frequency of a MIDI note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := strconv.Atoi(args[0])
			if err != nil || note < 0 || note > maxMIDINote {
				return fmt.Errorf("invalid MIDI note %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", pitch.MIDIToPitch(note))
			return nil
		},
	}
}
