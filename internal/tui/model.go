// Package tui renders the demo's now-playing panel with bubbletea. It shows
// a spinner while a query round is collecting bids and a styled card once a
// provider wins and reports track metadata. Presentation only; it observes
// the bus and never feeds events back into the protocol.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chordflow/encore/internal/util"
)

// cardWidth caps the rendered width of card lines so long track titles do
// not blow out the panel.
const cardWidth = 48

// phase tracks what the panel is showing.
type phase int

const (
	phaseIdle phase = iota
	phaseCollecting
	phasePlaying
	phaseNoMatch
)

// Model holds the panel state
type Model struct {
	bridge  *Bridge
	spinner spinner.Model

	phase    phase
	phrase   string
	provider string
	track    string
	artist   string
	album    string

	quitting bool
}

// NewModel creates the panel model wired to a bus bridge.
func NewModel(bridge *Bridge) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = artistStyle

	return Model{
		bridge:  bridge,
		spinner: sp,
	}
}

// Init starts the spinner and the event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bridge.Listen())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case queryStartedMsg:
		m.phase = phaseCollecting
		m.phrase = msg.phrase
		m.track, m.artist, m.album, m.provider = "", "", "", ""
		return m, m.bridge.Listen()

	case playStartedMsg:
		m.phase = phasePlaying
		m.provider = msg.provider
		m.phrase = msg.phrase
		return m, m.bridge.Listen()

	case noMatchMsg:
		m.phase = phaseNoMatch
		m.phrase = msg.phrase
		return m, m.bridge.Listen()

	case statusChangedMsg:
		m.track = msg.track
		m.artist = msg.artist
		m.album = msg.album
		return m, m.bridge.Listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the panel
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("encore"))
	b.WriteString("\n")

	switch m.phase {
	case phaseIdle:
		b.WriteString(mutedStyle.Render("waiting for a play request"))

	case phaseCollecting:
		b.WriteString(fmt.Sprintf("%s resolving %q", m.spinner.View(), util.TruncateString(m.phrase, cardWidth)))

	case phaseNoMatch:
		b.WriteString(errorStyle.Render(fmt.Sprintf("nothing can play %q", m.phrase)))

	case phasePlaying:
		b.WriteString(m.renderCard())
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderCard() string {
	var lines []string

	if m.track != "" {
		lines = append(lines, trackStyle.Render(m.track))
	} else {
		lines = append(lines, trackStyle.Render(m.phrase))
	}
	if m.artist != "" {
		lines = append(lines, artistStyle.Render(m.artist))
	}
	if m.album != "" {
		lines = append(lines, mutedStyle.Render(m.album))
	}
	lines = append(lines, mutedStyle.Render("via "+m.provider))

	for i, line := range lines {
		lines[i] = util.TruncateANSI(line, cardWidth)
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}
