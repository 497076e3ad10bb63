package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/0xlemi/mpmtune/internal/pitch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Constants for UI behavior
const (
	// How long a note needs to be present to be considered stable
	noteStabilityThreshold = 300 * time.Millisecond

	// How long to keep showing a stable note after the input stops matching it
	noteDisplayDuration = 500 * time.Millisecond

	// Width of the cents meter, in cells, for -50..+50 cents
	meterWidth = 41

	// Cents within which the note is drawn as in tune
	inTuneCents = 5
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	inTuneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	offTuneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFA500"))

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// noteBoxStyle returns the boxed style for one part of a note label.
func noteBoxStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(color)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(2, 4).
		MarginBottom(1)
}

// Get the next note in the scale (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	default:
		return "C"
	}
}

// Model represents the UI state
type Model struct {
	currentNote *pitch.Note
	stableNote  *pitch.Note
	candidate   string    // Note currently waiting to become stable
	candidateAt time.Time // When candidate was first seen
	stableSince time.Time // When stableNote last matched the input
	rms         float64
	db          float64
	windowSize  int
	sampleRate  int
	now         func() time.Time
	width       int
	height      int
}

// NewModel creates a new UI model for a detector with the given framing.
func NewModel(sampleRate, windowSize int) Model {
	return Model{
		db:         -100,
		sampleRate: sampleRate,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// TickMsg represents a timer tick
type TickMsg time.Time

// UpdateNoteMsg is a message to update the current note
type UpdateNoteMsg pitch.Note

// ClearNoteMsg tells the model the input has no pitch
type ClearNoteMsg struct{}

// UpdateAudioLevelMsg carries the input level of the latest frame
type UpdateAudioLevelMsg struct {
	RMS float64
	DB  float64
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		// Drop a stable note once it has gone unmatched for too long
		if m.stableNote != nil && time.Time(msg).Sub(m.stableSince) > noteDisplayDuration {
			m.stableNote = nil
		}
		return m, tick()

	case UpdateAudioLevelMsg:
		m.rms = msg.RMS
		m.db = msg.DB

	case ClearNoteMsg:
		m.currentNote = nil
		m.candidate = ""

	case UpdateNoteMsg:
		note := pitch.Note(msg)
		m.currentNote = &note
		now := m.now()

		name := note.String()
		if m.stableNote != nil && m.stableNote.String() == name {
			// Same note, keep tracking its frequency and cents
			m.stableNote = &note
			m.stableSince = now
			break
		}

		if name != m.candidate {
			m.candidate = name
			m.candidateAt = now
		}
		if now.Sub(m.candidateAt) >= noteStabilityThreshold {
			m.stableNote = &note
			m.stableSince = now
		}
	}

	return m, nil
}

// Displayed returns the note the view shows, preferring the stable one.
func (m Model) Displayed() *pitch.Note {
	if m.stableNote != nil {
		return m.stableNote
	}
	return m.currentNote
}

// View renders the UI
func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("MPMTune - McLeod Pitch Tuner"))
	s.WriteString("\n")

	if note := m.Displayed(); note != nil {
		s.WriteString(renderNote(*note))
		s.WriteString("\n")
		s.WriteString(renderMeter(note.Cents))
		s.WriteString("\n")

		info := fmt.Sprintf("Frequency: %.2f Hz | MIDI: %d | Cents: %+.1f | Clarity: %.2f",
			note.Frequency, note.MIDI, note.Cents, note.Clarity)
		s.WriteString(infoStyle.Render(info))
	} else {
		s.WriteString(infoStyle.Render("Listening for audio..."))
	}

	s.WriteString("\n\n")
	s.WriteString(infoStyle.Render(fmt.Sprintf("Level: %.1f dB (RMS %.4f) | %d Hz, %d-sample window",
		m.db, m.rms, m.sampleRate, m.windowSize)))
	s.WriteString("\n")
	s.WriteString(infoStyle.Render("Press q to quit"))

	return s.String()
}

// renderNote draws the note label; sharps are split between the colors of
// the two neighbouring naturals.
func renderNote(note pitch.Note) string {
	if !strings.HasSuffix(note.Name, "#") {
		return noteBoxStyle(noteColors[note.Name]).Render(note.String())
	}

	base := string(note.Name[0])
	left := noteBoxStyle(noteColors[base]).
		BorderRight(false).
		PaddingRight(1)
	right := noteBoxStyle(noteColors[getNextNote(base)]).
		BorderLeft(false).
		PaddingLeft(1)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(base),
		right.Render(fmt.Sprintf("#%d", note.Octave)))
}

// renderMeter draws a needle at cents on a -50..+50 scale.
func renderMeter(cents float64) string {
	half := meterWidth / 2
	pos := half + int(math.Round(cents/50*float64(half)))
	pos = max(0, min(meterWidth-1, pos))

	cells := []rune(strings.Repeat("-", meterWidth))
	cells[half] = '|'
	cells[pos] = '^'

	style := offTuneStyle
	if math.Abs(cents) <= inTuneCents {
		style = inTuneStyle
	}
	return "-50 " + style.Render(string(cells)) + " +50"
}
