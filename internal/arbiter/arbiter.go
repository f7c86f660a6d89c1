package arbiter

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chordflow/encore/internal/bus"
	"github.com/chordflow/encore/internal/errors"
	"github.com/chordflow/encore/internal/logging"
	"github.com/chordflow/encore/internal/registry"
	"github.com/chordflow/encore/internal/timer"
)

// timerName is the single named timeout per engine instance. Scheduling it
// again implicitly supersedes the outstanding one.
const timerName = "play-query-timeout"

// surfaceKey is the callback-data key a winning bid sets to declare it
// supplies its own presentation surface.
const surfaceKey = "provider_surface"

// surfacePage is the generic presentation surface shown when the winner
// does not bring its own.
const surfacePage = "controls"

// Speaker voices dialogs to the user. The arbiter only speaks the
// "cant.play" notice, and only for user-attributed requests.
type Speaker interface {
	SpeakDialog(name string, data map[string]string)
}

// Config holds required dependencies for creating an Arbiter.
type Config struct {
	Bus       *bus.Bus
	Scheduler *timer.Scheduler
	Registry  *registry.Registry
	Logger    *logging.Logger
}

// Arbiter is the resolution engine. It broadcasts play queries, collects
// provider bids within a dynamically extended window, and dispatches the
// winner exactly once when the timeout fires. Bids and extension signals
// never resolve a session directly; they only adjust the timer.
type Arbiter struct {
	bus   *bus.Bus
	sched *timer.Scheduler
	reg   *registry.Registry
	log   *logging.Logger

	baseTimeout      time.Duration
	extensionTimeout time.Duration
	settleTimeout    time.Duration

	speaker Speaker

	rngMu sync.Mutex
	rng   *rand.Rand

	// fromUser records, per open phrase, whether the originating request is
	// attributable to a foreground user. Read once at resolution.
	flagMu   sync.Mutex
	fromUser map[string]bool

	// hasPlayed is monotonic engine-level state: set on any successful
	// dispatch, never reset. It outlives individual sessions, which is why
	// it does not live in the registry.
	hasPlayed atomic.Bool

	subs []string
}

// New creates an Arbiter wired to the given bus, scheduler, and registry.
func New(cfg Config, opts ...Option) (*Arbiter, error) {
	if cfg.Bus == nil {
		return nil, errors.New("arbiter: Bus is required")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("arbiter: Scheduler is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("arbiter: Registry is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	a := &Arbiter{
		bus:              cfg.Bus,
		sched:            cfg.Scheduler,
		reg:              cfg.Registry,
		log:              log.WithComponent("arbiter"),
		baseTimeout:      DefaultBaseTimeout,
		extensionTimeout: DefaultExtensionTimeout,
		settleTimeout:    DefaultSettleTimeout,
		rng:              rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		fromUser:         make(map[string]bool),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Start subscribes the arbiter's inbound event handlers.
func (a *Arbiter) Start() {
	a.subs = append(a.subs,
		a.bus.Subscribe("play.query.bid", a.handleBid),
		a.bus.Subscribe("play.query.searching", a.handleSearching),
	)
}

// Stop unsubscribes the handlers and cancels any outstanding timeout.
// Open sessions are left to be replaced by their next Open.
func (a *Arbiter) Stop() {
	for _, id := range a.subs {
		a.bus.Unsubscribe(id)
	}
	a.subs = nil
	a.sched.Cancel(timerName)
}

// Query opens a session for phrase, broadcasts the play query, and arms the
// timeout at the base delay. A second Query for the same phrase before the
// first resolves replaces its session outright.
func (a *Arbiter) Query(phrase string, fromUser bool) error {
	if phrase == "" {
		return errors.NewValidationError("cannot query an empty phrase").
			WithField("phrase").WithCause(errors.ErrEmptyPhrase)
	}

	a.reg.Open(phrase)

	a.flagMu.Lock()
	a.fromUser[phrase] = fromUser
	a.flagMu.Unlock()

	a.log.Info("resolving player", "phrase", phrase)

	// Broadcast and arm the timer with no registry lock held: a provider
	// may answer synchronously on this goroutine.
	a.bus.Publish(bus.NewQueryEvent(phrase))
	a.sched.Schedule(timerName, a.baseTimeout, func() { a.resolve(phrase) })

	return nil
}

// HasPlayed reports whether this engine has ever dispatched a winner.
// The flag is monotonic; it is read by the conversational resume shortcut.
func (a *Arbiter) HasPlayed() bool {
	return a.hasPlayed.Load()
}

// handleBid records a provider's final bid. If the bid released the last
// pending extension holder, the timeout shrinks to the settle delay so
// concurrently arriving bids get a brief final window. Resolution still only
// happens on the timer.
func (a *Arbiter) handleBid(e bus.Event) {
	be, ok := e.(bus.BidEvent)
	if !ok {
		return
	}

	out := a.reg.RecordBid(be.Phrase, registry.Bid{
		Provider:     be.Provider,
		Confidence:   be.Confidence,
		CallbackData: be.CallbackData,
	})
	if out.Err != nil {
		a.log.Debug("dropped bid", "error", out.Err.Error())
		return
	}

	a.log.Debug("bid recorded", "phrase", be.Phrase, "provider", be.Provider, "conf", be.Confidence)

	if out.PendingDrained {
		a.sched.Schedule(timerName, a.settleTimeout, func() { a.resolve(be.Phrase) })
	}
}

// handleSearching manages requests for more time. A start signal pushes the
// timeout out to the extension delay from now. A stop signal that drains the
// last pending holder shrinks it back to the base delay; there is no reason
// to keep waiting once nobody claims to still be searching.
func (a *Arbiter) handleSearching(e bus.Event) {
	se, ok := e.(bus.SearchingEvent)
	if !ok {
		return
	}

	out := a.reg.RecordExtension(se.Phrase, se.Provider, se.Searching)
	if out.Err != nil {
		a.log.Debug("dropped extension signal", "error", out.Err.Error())
		return
	}

	if se.Searching {
		a.log.Debug("extending query window", "phrase", se.Phrase, "provider", se.Provider)
		a.sched.Schedule(timerName, a.extensionTimeout, func() { a.resolve(se.Phrase) })
	} else if out.PendingDrained {
		a.log.Debug("last searcher finished, shrinking window", "phrase", se.Phrase)
		a.sched.Schedule(timerName, a.baseTimeout, func() { a.resolve(se.Phrase) })
	}
}

// resolve is the only path from collecting to a decision; it runs when the
// timeout fires. It atomically tears down the session, then selects and
// dispatches the winner with no lock held.
func (a *Arbiter) resolve(phrase string) {
	bids, open := a.reg.Close(phrase)
	if !open {
		// A handler re-armed the timer after this callback's deadline had
		// already fired and closed the session. The round resolved then;
		// there is nothing left to decide.
		a.log.Debug("timeout for closed session ignored", "phrase", phrase)
		return
	}

	a.flagMu.Lock()
	fromUser := a.fromUser[phrase]
	delete(a.fromUser, phrase)
	a.flagMu.Unlock()

	log := a.log.WithPhrase(phrase)
	for _, b := range bids {
		log.Debug("candidate", "provider", b.Provider, "conf", b.Confidence)
	}

	selected, ok := a.pickWinner(bids)
	if !ok {
		log.Info("no matches")
		notified := false
		if fromUser && a.speaker != nil {
			a.speaker.SpeakDialog("cant.play", map[string]string{"phrase": phrase})
			notified = true
		}
		a.bus.Publish(bus.NewNoMatchEvent(phrase, notified))
		return
	}

	log.Info("playing with", "provider", selected.Provider)

	if !ownSurface(selected) {
		a.bus.Publish(bus.NewSurfaceEvent(surfacePage))
	}
	a.bus.Publish(bus.NewPlayStartEvent(selected.Provider, phrase, selected.CallbackData))
	a.hasPlayed.Store(true)
}

// pickWinner scans bids in arrival order. The first maximal bid becomes
// best; later bids with exactly equal confidence collect as ties and the
// winner is chosen uniformly at random among them, so tied providers get
// equal chances regardless of reply latency.
func (a *Arbiter) pickWinner(bids []registry.Bid) (registry.Bid, bool) {
	if len(bids) == 0 {
		return registry.Bid{}, false
	}

	best := bids[0]
	var ties []registry.Bid
	for _, b := range bids[1:] {
		switch {
		case b.Confidence > best.Confidence:
			best = b
			ties = nil
		case b.Confidence == best.Confidence:
			ties = append(ties, b)
		}
	}

	if len(ties) == 0 {
		return best, true
	}

	a.log.Info("providers tied, choosing randomly", "tied", len(ties)+1)
	candidates := append(ties, best)

	a.rngMu.Lock()
	selected := candidates[a.rng.IntN(len(candidates))]
	a.rngMu.Unlock()

	return selected, true
}

// ownSurface reports whether a winning bid declares that its provider
// supplies its own presentation surface.
func ownSurface(b registry.Bid) bool {
	if b.CallbackData == nil {
		return false
	}
	own, _ := b.CallbackData[surfaceKey].(bool)
	return own
}
