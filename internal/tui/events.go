package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chordflow/encore/internal/bus"
)

// Messages bridged from the event bus into the bubbletea loop.

// queryStartedMsg signals a query round beginning to collect bids.
type queryStartedMsg struct {
	phrase string
}

// playStartedMsg signals the winner dispatch.
type playStartedMsg struct {
	provider string
	phrase   string
}

// noMatchMsg signals a round that ended with zero bids.
type noMatchMsg struct {
	phrase string
}

// statusChangedMsg carries updated now-playing metadata.
type statusChangedMsg struct {
	track  string
	artist string
	album  string
}

// Bridge forwards bus events into a channel the TUI drains. Subscriptions
// are removed on Close.
type Bridge struct {
	bus  *bus.Bus
	ch   chan tea.Msg
	subs []string
}

// NewBridge subscribes to the events the panel renders.
func NewBridge(b *bus.Bus) *Bridge {
	br := &Bridge{
		bus: b,
		ch:  make(chan tea.Msg, 64),
	}

	br.subs = append(br.subs,
		b.Subscribe("play.query", br.onEvent),
		b.Subscribe("play.start", br.onEvent),
		b.Subscribe("play.no_match", br.onEvent),
		b.Subscribe("status.changed", br.onEvent),
	)
	return br
}

func (br *Bridge) onEvent(e bus.Event) {
	var msg tea.Msg
	switch ev := e.(type) {
	case bus.QueryEvent:
		msg = queryStartedMsg{phrase: ev.Phrase}
	case bus.PlayStartEvent:
		msg = playStartedMsg{provider: ev.Provider, phrase: ev.Phrase}
	case bus.NoMatchEvent:
		msg = noMatchMsg{phrase: ev.Phrase}
	case bus.StatusChangedEvent:
		msg = statusChangedMsg{track: ev.Track, artist: ev.Artist, album: ev.Album}
	default:
		return
	}

	// Drop rather than block: the bus dispatches synchronously and must
	// never stall on a slow terminal.
	select {
	case br.ch <- msg:
	default:
	}
}

// Listen returns a command that waits for the next bridged event.
func (br *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-br.ch
		if !ok {
			return nil
		}
		return msg
	}
}

// Close removes the bridge's subscriptions and closes the channel.
func (br *Bridge) Close() {
	for _, id := range br.subs {
		br.bus.Unsubscribe(id)
	}
	br.subs = nil
	close(br.ch)
}
