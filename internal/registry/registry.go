// Package registry holds the per-phrase state of open query sessions: the
// bids collected so far and the providers that have asked for more time.
//
// The registry is exclusively owned by the resolution engine. All operations
// are synchronized under a single lock covering the whole session table,
// because bid and extension events and the timeout callback execute
// concurrently and must observe a consistent snapshot. The search phrase is
// the session identifier; two concurrent identical phrases collide by design.
package registry

import (
	"sync"

	"github.com/chordflow/encore/internal/errors"
)

// Bid is a provider's final answer for a phrase. Bids are kept in arrival
// order; the registry never reorders them.
type Bid struct {
	Provider     string
	Confidence   float64
	CallbackData map[string]any
}

// session is the mutable state of one open query round.
type session struct {
	bids    []Bid
	pending map[string]struct{} // providers that asked for more time
	seen    map[string]struct{} // providers that already submitted a final bid
}

// Outcome reports how a mutation changed a session, so the resolution engine
// can decide on timer adjustments without re-entering the registry lock.
type Outcome struct {
	// Recorded is true if the event was applied to an open session.
	Recorded bool
	// PendingDrained is true if this event removed the last pending
	// extension holder.
	PendingDrained bool
	// Err carries the protocol violation when Recorded is false, or
	// ErrDuplicateBid when a repeat bid was dropped. Violations are logged
	// by the caller and otherwise ignored.
	Err error
}

// Registry is the session table. The zero value is not usable; construct
// with New.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
	}
}

// Open creates a new session for phrase, replacing any existing one.
// Replacing discards the prior round's bids and pending extensions entirely,
// so providers from a stale round cannot leak into the new one.
func (r *Registry) Open(phrase string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[phrase] = &session{
		pending: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
}

// RecordBid appends a final bid to the session for phrase.
//
// A bid for a phrase with no open session is a late reply: it is dropped
// silently (Recorded=false, Err wraps ErrNoSession). A repeat bid from a
// provider that already submitted one is dropped too; the first bid counts.
// A recorded bid releases the provider's pending extension, if it held one.
func (r *Registry) RecordBid(phrase string, bid Bid) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[phrase]
	if !ok {
		return Outcome{Err: errors.NewProtocolError("bid after session closed", errors.ErrNoSession).
			WithProvider(bid.Provider).WithPhrase(phrase)}
	}

	if _, dup := sess.seen[bid.Provider]; dup {
		return Outcome{Err: errors.NewProtocolError("repeat final bid dropped", errors.ErrDuplicateBid).
			WithProvider(bid.Provider).WithPhrase(phrase)}
	}
	sess.seen[bid.Provider] = struct{}{}
	sess.bids = append(sess.bids, bid)

	drained := false
	if _, held := sess.pending[bid.Provider]; held {
		delete(sess.pending, bid.Provider)
		drained = len(sess.pending) == 0
	}

	return Outcome{Recorded: true, PendingDrained: drained}
}

// RecordExtension registers or releases a provider's "still searching"
// signal for phrase. Registering is idempotent. Releasing a provider that
// never registered is accepted; the protocol does not require start/stop
// signals to balance.
func (r *Registry) RecordExtension(phrase, provider string, searching bool) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[phrase]
	if !ok {
		return Outcome{Err: errors.NewProtocolError("extension signal after session closed", errors.ErrNoSession).
			WithProvider(provider).WithPhrase(phrase)}
	}

	if searching {
		sess.pending[provider] = struct{}{}
		return Outcome{Recorded: true}
	}

	drained := false
	if _, held := sess.pending[provider]; held {
		delete(sess.pending, provider)
		drained = len(sess.pending) == 0
	}
	return Outcome{Recorded: true, PendingDrained: drained}
}

// Close removes all state for phrase and returns the bids collected, in
// arrival order. The second return distinguishes a session that closed with
// zero bids from one that did not exist: the timeout callback must resolve
// the former and ignore the latter, or a stale callback racing a re-armed
// timer would emit a second terminal outcome for an already-closed round.
func (r *Registry) Close(phrase string) ([]Bid, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[phrase]
	if !ok {
		return nil, false
	}
	delete(r.sessions, phrase)
	return sess.bids, true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Pending returns the number of outstanding extension holders for phrase,
// or 0 if no session is open.
func (r *Registry) Pending(phrase string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[phrase]
	if !ok {
		return 0
	}
	return len(sess.pending)
}
