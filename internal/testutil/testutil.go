// Package testutil provides testing utilities for Encore tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chordflow/encore/internal/bus"
)

// SetupVocabTree creates a temporary skill resource directory holding the
// given vocabulary files. The vocabs map keys are "lang/name" (e.g.
// "en-us/converse_resume") and the values are the file contents, one entry
// per line. Returns the skill directory root. The tree is cleaned up when
// the test completes.
func SetupVocabTree(t *testing.T, vocabs map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for key, content := range vocabs {
		lang, name, ok := strings.Cut(key, "/")
		if !ok {
			t.Fatalf("vocab key %q must be lang/name", key)
		}

		vocDir := filepath.Join(dir, "vocab", lang)
		if err := os.MkdirAll(vocDir, 0o755); err != nil {
			t.Fatalf("failed to create vocab dir: %v", err)
		}

		path := filepath.Join(vocDir, name+".voc")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	return dir
}

// SetupFrameworkTree creates a temporary framework resource directory with
// shared text vocabularies. Keys follow the same "lang/name" form as
// SetupVocabTree; files land under text/{lang}/{name}.voc.
func SetupFrameworkTree(t *testing.T, vocabs map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for key, content := range vocabs {
		lang, name, ok := strings.Cut(key, "/")
		if !ok {
			t.Fatalf("vocab key %q must be lang/name", key)
		}

		textDir := filepath.Join(dir, "text", lang)
		if err := os.MkdirAll(textDir, 0o755); err != nil {
			t.Fatalf("failed to create text dir: %v", err)
		}

		path := filepath.Join(textDir, name+".voc")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	return dir
}

// EventCapture records every event published on a bus, for asserting on
// event sequences in tests.
type EventCapture struct {
	mu     sync.Mutex
	events []bus.Event
}

// CaptureEvents subscribes a recorder to all events on b. The subscription
// is removed when the test completes.
func CaptureEvents(t *testing.T, b *bus.Bus) *EventCapture {
	t.Helper()

	c := &EventCapture{}
	id := b.SubscribeAll(func(e bus.Event) {
		c.mu.Lock()
		c.events = append(c.events, e)
		c.mu.Unlock()
	})
	t.Cleanup(func() { b.Unsubscribe(id) })

	return c
}

// Events returns a copy of all captured events in arrival order.
func (c *EventCapture) Events() []bus.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bus.Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfType returns the captured events matching the given event type.
func (c *EventCapture) OfType(eventType string) []bus.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []bus.Event
	for _, e := range c.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of captured events of the given type.
func (c *EventCapture) Count(eventType string) int {
	return len(c.OfType(eventType))
}

// WaitFor polls until at least n events of the given type have arrived or
// the timeout elapses. Returns true if the count was reached.
func (c *EventCapture) WaitFor(eventType string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Count(eventType) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return c.Count(eventType) >= n
}

// Reset discards all captured events.
func (c *EventCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
