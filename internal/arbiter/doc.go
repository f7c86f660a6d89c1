// Package arbiter implements the query resolution engine at the heart of
// Encore: a fan-out request for bids, a collection window with per-responder
// timeout extension, deterministic winner selection with randomized
// tie-break, and exactly-once dispatch to the winner.
//
// # Protocol
//
// A play request opens a session keyed by search phrase and broadcasts a
// play.query event. Providers answer with either a final confidence-scored
// bid or a "still searching" extension signal:
//
//   - searching=true pushes the timeout out to the extension delay.
//   - searching=false from the last pending searcher shrinks it back to the
//     base delay.
//   - a final bid that releases the last pending searcher shrinks it to the
//     settle delay, a brief final window for concurrently arriving bids.
//
// Only the timeout callback resolves a session. When it fires, the session
// is atomically removed from the registry, the highest-confidence bid wins
// (exact ties are broken uniformly at random), and a play.start event
// dispatches control to the winner. A round with no bids publishes
// play.no_match, speaking the "cant.play" dialog only when the request came
// from a foreground user.
//
// # Concurrency
//
// Bid handlers, extension handlers, and the timeout callback run
// concurrently. Session state is mutated only inside the registry's lock;
// every bus publish and timer reschedule happens outside it, so a provider
// handler that re-enters the arbiter synchronously cannot deadlock.
// Rescheduling the single named timeout atomically supersedes the previous
// one. A handler can still re-arm the timer just after the old deadline has
// fired and closed the session; the resulting stale callback finds no open
// session in the registry and returns without publishing anything, keeping
// the terminal outcome of every round unique.
package arbiter
