package arbiter

import (
	"math/rand/v2"
	"time"
)

// Default collection window delays. The base delay bounds a round where no
// provider asks for more time; the extension delay applies from the moment a
// provider signals it is still searching; the settle delay is the brief
// final window granted when a bid releases the last pending extension.
const (
	DefaultBaseTimeout      = 1 * time.Second
	DefaultExtensionTimeout = 5 * time.Second
	DefaultSettleTimeout    = 0
)

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithBaseTimeout sets the delay before resolution when no extensions are
// pending.
func WithBaseTimeout(d time.Duration) Option {
	return func(a *Arbiter) { a.baseTimeout = d }
}

// WithExtensionTimeout sets the delay granted to a provider that signals it
// is still searching.
func WithExtensionTimeout(d time.Duration) Option {
	return func(a *Arbiter) { a.extensionTimeout = d }
}

// WithSettleTimeout sets the final window granted when a bid releases the
// last pending extension.
func WithSettleTimeout(d time.Duration) Option {
	return func(a *Arbiter) { a.settleTimeout = d }
}

// WithSpeaker sets the speaker used for the "cant.play" notice on a
// user-attributed no-match. Without a speaker the notice is skipped.
func WithSpeaker(s Speaker) Option {
	return func(a *Arbiter) { a.speaker = s }
}

// WithRand sets the random source used for tie-breaking. Tests inject a
// seeded source for reproducibility.
func WithRand(r *rand.Rand) Option {
	return func(a *Arbiter) { a.rng = r }
}
