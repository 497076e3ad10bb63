package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/0xlemi/mpmtune/internal/pitch"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestModel(clock *fakeClock) Model {
	m := NewModel(44100, 2048)
	m.now = clock.now
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_NoteBecomesStable(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newTestModel(clock)

	a4 := pitch.NoteFromFrequency(440)
	m = send(t, m, UpdateNoteMsg(a4))
	if m.stableNote != nil {
		t.Fatal("note should not be stable on first sight")
	}
	if got := m.Displayed(); got == nil || got.String() != "A4" {
		t.Fatalf("expected current note A4 to be displayed, got %v", got)
	}

	clock.t = clock.t.Add(noteStabilityThreshold)
	m = send(t, m, UpdateNoteMsg(a4))
	if m.stableNote == nil || m.stableNote.String() != "A4" {
		t.Fatalf("expected A4 to be stable, got %v", m.stableNote)
	}

	// A brief different note does not replace the stable one
	clock.t = clock.t.Add(50 * time.Millisecond)
	m = send(t, m, UpdateNoteMsg(pitch.NoteFromFrequency(466.16)))
	if got := m.Displayed(); got.String() != "A4" {
		t.Errorf("expected stable A4 to stay displayed, got %s", got)
	}
}

func TestModel_StableNoteExpires(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newTestModel(clock)
	a4 := pitch.NoteFromFrequency(440)

	m = send(t, m, UpdateNoteMsg(a4))
	clock.t = clock.t.Add(noteStabilityThreshold)
	m = send(t, m, UpdateNoteMsg(a4))
	m = send(t, m, ClearNoteMsg{})

	m = send(t, m, TickMsg(clock.t.Add(noteDisplayDuration/2)))
	if m.stableNote == nil {
		t.Fatal("stable note dropped too early")
	}

	m = send(t, m, TickMsg(clock.t.Add(noteDisplayDuration+time.Millisecond)))
	if m.Displayed() != nil {
		t.Errorf("expected no note after expiry, got %v", m.Displayed())
	}
}

func TestModel_View(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newTestModel(clock)

	if !strings.Contains(m.View(), "Listening for audio") {
		t.Error("empty model should show the listening prompt")
	}

	m = send(t, m, UpdateAudioLevelMsg{RMS: 0.1, DB: -20})
	m = send(t, m, UpdateNoteMsg(pitch.NoteFromFrequency(277.18)))
	view := m.View()
	for _, want := range []string{"C", "#4", "MIDI: 61", "-20.0 dB"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(44100, 2048)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestRenderMeter(t *testing.T) {
	tests := []struct {
		cents float64
		pos   int
	}{
		{0, meterWidth / 2},
		{-50, 0},
		{50, meterWidth - 1},
		{-200, 0},
		{25, meterWidth/2 + 10},
	}

	for _, tt := range tests {
		meter := stripANSI(renderMeter(tt.cents))
		body := strings.TrimSuffix(strings.TrimPrefix(meter, "-50 "), " +50")
		if len(body) != meterWidth {
			t.Fatalf("cents %.0f: meter %q has %d cells, want %d", tt.cents, body, len(body), meterWidth)
		}
		if needle := strings.IndexRune(body, '^'); needle != tt.pos {
			t.Errorf("cents %.0f: needle at %d, want %d", tt.cents, needle, tt.pos)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && r == 'm':
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
