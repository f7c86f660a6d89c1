// Package status caches the now-playing metadata reported by providers and
// signals the presentation layer only when something actually changed.
package status

import (
	"sync"

	"github.com/chordflow/encore/internal/bus"
	"github.com/chordflow/encore/internal/logging"
)

// Keys lists the tracked metadata fields, in display order.
var Keys = []string{"track", "artist", "album", "image"}

// Tracker holds the last reported value for each tracked field.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	fields map[string]string

	bus *bus.Bus
	log *logging.Logger
	sub string
}

// NewTracker creates a Tracker with all fields empty. If b is non-nil, a
// StatusChangedEvent is published whenever an update changes a field.
func NewTracker(b *bus.Bus, log *logging.Logger) *Tracker {
	if log == nil {
		log = logging.Nop()
	}

	t := &Tracker{
		fields: make(map[string]string, len(Keys)),
		bus:    b,
		log:    log.WithComponent("status"),
	}
	t.reset()
	return t
}

// Start subscribes the tracker to inbound play.status events.
func (t *Tracker) Start() {
	if t.bus == nil {
		return
	}
	t.sub = t.bus.Subscribe("play.status", func(e bus.Event) {
		se, ok := e.(bus.StatusEvent)
		if !ok {
			return
		}
		t.Update(se.Fields)
	})
}

// Stop unsubscribes the tracker.
func (t *Tracker) Stop() {
	if t.bus != nil && t.sub != "" {
		t.bus.Unsubscribe(t.sub)
		t.sub = ""
	}
}

// Update applies the reported fields and returns true if at least one
// tracked value differs from its previous value. Untracked keys are
// ignored; tracked keys absent from fields are reset to empty, mirroring
// the provider sending a sparse status. A change publishes a
// StatusChangedEvent.
func (t *Tracker) Update(fields map[string]string) bool {
	t.mu.Lock()
	changed := false
	for _, key := range Keys {
		val := fields[key]
		if t.fields[key] != val {
			changed = true
		}
		t.fields[key] = val
	}
	track, artist, album, image := t.fields["track"], t.fields["artist"], t.fields["album"], t.fields["image"]
	t.mu.Unlock()

	if changed {
		t.log.Info("track info updated", "track", track, "artist", artist, "image", image)
		if t.bus != nil {
			t.bus.Publish(bus.NewStatusChangedEvent(track, artist, album, image))
		}
	}
	return changed
}

// Clear resets every tracked field to empty without signaling a change.
// Used when playback stops and the presentation surface is dismissed.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

// Snapshot returns a copy of the current field values.
func (t *Tracker) Snapshot() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]string, len(t.fields))
	for k, v := range t.fields {
		out[k] = v
	}
	return out
}

// Get returns the current value for a tracked field.
func (t *Tracker) Get(key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields[key]
}

func (t *Tracker) reset() {
	for _, key := range Keys {
		t.fields[key] = ""
	}
}
