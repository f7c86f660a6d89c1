// Package provider implements scripted playback providers. A scripted
// provider answers query broadcasts according to a fixed spec: it can bid
// immediately, bid after a delay, hold the collection window open while it
// "searches", or stay silent. The demo command and integration-style tests
// use these to exercise the resolution protocol end to end.
package provider

import (
	"sync"
	"time"

	"github.com/chordflow/encore/internal/bus"
	"github.com/chordflow/encore/internal/logging"
)

// Spec describes how a scripted provider answers a query.
type Spec struct {
	// ID is the provider identifier carried on every reply.
	ID string `mapstructure:"id"`

	// Confidence is the final bid's confidence. Zero or negative means the
	// provider never submits a bid.
	Confidence float64 `mapstructure:"confidence"`

	// BidDelay is how long after the query broadcast the bid is submitted.
	BidDelay time.Duration `mapstructure:"bid_delay"`

	// Searching makes the provider signal an extended search before
	// answering.
	Searching bool `mapstructure:"searching"`

	// SearchTime is how long the search lasts before the stop signal and,
	// if Confidence allows, the bid. Only meaningful with Searching set.
	SearchTime time.Duration `mapstructure:"search_time"`

	// OwnSurface marks the bid's callback data so the generic playback
	// surface is suppressed when this provider wins.
	OwnSurface bool `mapstructure:"own_surface"`

	// Track metadata reported once the provider wins and starts playing.
	Track  string `mapstructure:"track"`
	Artist string `mapstructure:"artist"`
	Album  string `mapstructure:"album"`
}

// Scripted is a provider that answers queries per its Spec.
type Scripted struct {
	spec Spec
	bus  *bus.Bus
	log  *logging.Logger

	mu     sync.Mutex
	timers []*time.Timer
	subs   []string
}

// NewScripted creates a scripted provider. It does not subscribe until
// Start is called.
func NewScripted(spec Spec, b *bus.Bus, log *logging.Logger) *Scripted {
	if log == nil {
		log = logging.Nop()
	}
	return &Scripted{
		spec: spec,
		bus:  b,
		log:  log.WithComponent("provider").WithProvider(spec.ID),
	}
}

// ID returns the provider identifier.
func (p *Scripted) ID() string { return p.spec.ID }

// Start subscribes the provider to query broadcasts and, when track
// metadata is configured, to dispatch events so it can report status.
func (p *Scripted) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subs = append(p.subs, p.bus.Subscribe("play.query", p.handleQuery))
	if p.spec.Track != "" {
		p.subs = append(p.subs, p.bus.Subscribe("play.start", p.handleStart))
	}
}

// Stop unsubscribes the provider and cancels any replies still scheduled.
func (p *Scripted) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.subs {
		p.bus.Unsubscribe(id)
	}
	p.subs = nil

	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

func (p *Scripted) handleQuery(e bus.Event) {
	query, ok := e.(bus.QueryEvent)
	if !ok {
		return
	}
	phrase := query.Phrase

	p.log.Debug("query received", "phrase", phrase)

	if p.spec.Searching {
		p.bus.Publish(bus.NewSearchingEvent(phrase, p.spec.ID, true))
		p.after(p.spec.SearchTime, func() {
			if p.spec.Confidence > 0 {
				p.bus.Publish(bus.NewBidEvent(phrase, p.spec.ID, p.spec.Confidence, p.callbackData()))
			}
			p.bus.Publish(bus.NewSearchingEvent(phrase, p.spec.ID, false))
		})
		return
	}

	if p.spec.Confidence <= 0 {
		return
	}

	p.after(p.spec.BidDelay, func() {
		p.bus.Publish(bus.NewBidEvent(phrase, p.spec.ID, p.spec.Confidence, p.callbackData()))
	})
}

func (p *Scripted) handleStart(e bus.Event) {
	start, ok := e.(bus.PlayStartEvent)
	if !ok || start.Provider != p.spec.ID {
		return
	}

	p.log.Info("playback started", "phrase", start.Phrase)
	p.bus.Publish(bus.NewStatusEvent(map[string]string{
		"track":  p.spec.Track,
		"artist": p.spec.Artist,
		"album":  p.spec.Album,
	}))
}

func (p *Scripted) callbackData() map[string]any {
	data := map[string]any{"origin": p.spec.ID}
	if p.spec.OwnSurface {
		data["provider_surface"] = true
	}
	return data
}

// after runs fn on a timer, or inline when the delay is zero. Timers are
// tracked so Stop can cancel outstanding replies.
func (p *Scripted) after(delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers = append(p.timers, time.AfterFunc(delay, fn))
}
