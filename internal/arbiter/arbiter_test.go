package arbiter

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chordflow/encore/internal/bus"
	"github.com/chordflow/encore/internal/errors"
	"github.com/chordflow/encore/internal/registry"
	"github.com/chordflow/encore/internal/timer"
)

// Compressed delays keep the scenario tests fast while preserving the
// base < extension ordering of the production defaults.
const (
	testBase      = 40 * time.Millisecond
	testExtension = 200 * time.Millisecond
	testSettle    = 10 * time.Millisecond
)

type fixture struct {
	bus     *bus.Bus
	sched   *timer.Scheduler
	reg     *registry.Registry
	arbiter *Arbiter

	mu        sync.Mutex
	starts    []bus.PlayStartEvent
	noMatches []bus.NoMatchEvent
	surfaces  []bus.SurfaceEvent
	resolved  chan struct{}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		bus:      bus.New(),
		sched:    timer.NewScheduler(),
		reg:      registry.New(),
		resolved: make(chan struct{}, 16),
	}
	t.Cleanup(f.sched.Stop)

	f.bus.Subscribe("play.start", func(e bus.Event) {
		f.mu.Lock()
		f.starts = append(f.starts, e.(bus.PlayStartEvent))
		f.mu.Unlock()
		f.resolved <- struct{}{}
	})
	f.bus.Subscribe("play.no_match", func(e bus.Event) {
		f.mu.Lock()
		f.noMatches = append(f.noMatches, e.(bus.NoMatchEvent))
		f.mu.Unlock()
		f.resolved <- struct{}{}
	})
	f.bus.Subscribe("surface.show", func(e bus.Event) {
		f.mu.Lock()
		f.surfaces = append(f.surfaces, e.(bus.SurfaceEvent))
		f.mu.Unlock()
	})

	opts = append([]Option{
		WithBaseTimeout(testBase),
		WithExtensionTimeout(testExtension),
		WithSettleTimeout(testSettle),
	}, opts...)

	a, err := New(Config{
		Bus:       f.bus,
		Scheduler: f.sched,
		Registry:  f.reg,
	}, opts...)
	require.NoError(t, err)

	a.Start()
	t.Cleanup(a.Stop)
	f.arbiter = a
	return f
}

// awaitResolution blocks until the round resolves via dispatch or no-match.
func (f *fixture) awaitResolution(t *testing.T) {
	t.Helper()
	select {
	case <-f.resolved:
	case <-time.After(2 * time.Second):
		t.Fatal("query round did not resolve")
	}
}

func (f *fixture) bid(phrase, provider string, conf float64) {
	f.bus.Publish(bus.NewBidEvent(phrase, provider, conf, nil))
}

func (f *fixture) searching(phrase, provider string, searching bool) {
	f.bus.Publish(bus.NewSearchingEvent(phrase, provider, searching))
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Bus: bus.New()})
	require.Error(t, err)

	_, err = New(Config{Bus: bus.New(), Scheduler: timer.NewScheduler()})
	require.Error(t, err)

	a, err := New(Config{Bus: bus.New(), Scheduler: timer.NewScheduler(), Registry: registry.New()})
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestQuery_EmptyPhrase(t *testing.T) {
	f := newFixture(t)

	err := f.arbiter.Query("", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyPhrase))
}

// Scenario from the protocol definition: A bids 0.6, B bids 0.9, the
// timeout fires, and B wins with the original phrase attached.
func TestResolve_HighestConfidenceWins(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", true))
	f.bid("jazz", "provider-a", 0.6)
	f.bid("jazz", "provider-b", 0.9)

	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Equal(t, "provider-b", f.starts[0].Provider)
	assert.Equal(t, "jazz", f.starts[0].Phrase)
	assert.Empty(t, f.noMatches)
}

func TestResolve_UniqueMaxWinsRegardlessOfOrder(t *testing.T) {
	orders := [][]struct {
		provider string
		conf     float64
	}{
		{{"a", 0.3}, {"b", 0.95}, {"c", 0.7}},
		{{"b", 0.95}, {"c", 0.7}, {"a", 0.3}},
		{{"c", 0.7}, {"a", 0.3}, {"b", 0.95}},
	}

	for _, order := range orders {
		f := newFixture(t)

		require.NoError(t, f.arbiter.Query("rock", false))
		for _, o := range order {
			f.bid("rock", o.provider, o.conf)
		}

		f.awaitResolution(t)

		f.mu.Lock()
		require.Len(t, f.starts, 1)
		assert.Equal(t, "b", f.starts[0].Provider)
		f.mu.Unlock()
	}
}

func TestResolve_NoReplies(t *testing.T) {
	f := newFixture(t)

	start := time.Now()
	require.NoError(t, f.arbiter.Query("rock", false))
	f.awaitResolution(t)
	elapsed := time.Since(start)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.noMatches, 1)
	assert.Equal(t, "rock", f.noMatches[0].Phrase)
	assert.False(t, f.noMatches[0].Notified, "no speaker configured; nothing should be spoken")
	assert.Empty(t, f.starts)
	assert.GreaterOrEqual(t, elapsed, testBase, "resolution should wait out the base delay")

	// Session is removed
	assert.Equal(t, 0, f.reg.Len())
}

type fakeSpeaker struct {
	mu      sync.Mutex
	dialogs []string
	data    []map[string]string
}

func (s *fakeSpeaker) SpeakDialog(name string, data map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogs = append(s.dialogs, name)
	s.data = append(s.data, data)
}

func TestResolve_NoMatchSpeaksOnlyForUserRequests(t *testing.T) {
	tests := []struct {
		name     string
		fromUser bool
		spoken   bool
	}{
		{"user request", true, true},
		{"background request", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker := &fakeSpeaker{}
			f := newFixture(t, WithSpeaker(speaker))

			require.NoError(t, f.arbiter.Query("news", tt.fromUser))
			f.awaitResolution(t)

			speaker.mu.Lock()
			defer speaker.mu.Unlock()
			if tt.spoken {
				require.Len(t, speaker.dialogs, 1)
				assert.Equal(t, "cant.play", speaker.dialogs[0])
				assert.Equal(t, "news", speaker.data[0]["phrase"])
			} else {
				assert.Empty(t, speaker.dialogs)
			}

			f.mu.Lock()
			require.Len(t, f.noMatches, 1)
			assert.Equal(t, tt.spoken, f.noMatches[0].Notified)
			f.mu.Unlock()
		})
	}
}

// Scenario: a provider extends the window, then gives up without bidding.
// The window shrinks back to the base delay and resolves with no match —
// well before the full extension delay would have elapsed.
func TestResolve_ExtensionThenAbandon(t *testing.T) {
	f := newFixture(t)

	start := time.Now()
	require.NoError(t, f.arbiter.Query("news", false))

	f.searching("news", "rss-skill", true)
	time.Sleep(20 * time.Millisecond)
	f.searching("news", "rss-skill", false)

	f.awaitResolution(t)
	elapsed := time.Since(start)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.noMatches, 1)
	assert.Less(t, elapsed, testExtension,
		"shrunk window should resolve before the extension delay")
}

func TestResolve_ExtensionHoldsWindowOpen(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("podcasts", false))
	f.searching("podcasts", "pod-skill", true)

	// Well past the base delay the session must still be open
	time.Sleep(testBase + 40*time.Millisecond)
	f.mu.Lock()
	assert.Empty(t, f.starts)
	assert.Empty(t, f.noMatches)
	f.mu.Unlock()

	// The slow provider's bid still lands and wins
	f.bid("podcasts", "pod-skill", 0.8)
	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Equal(t, "pod-skill", f.starts[0].Provider)
}

// A final bid releasing the last pending extension grants a brief settle
// window instead of resolving synchronously, so a concurrently arriving bid
// can still join the round.
func TestResolve_SettleWindowAfterFinalBid(t *testing.T) {
	f := newFixture(t, WithSettleTimeout(30*time.Millisecond))

	require.NoError(t, f.arbiter.Query("blues", false))
	f.searching("blues", "slow-skill", true)

	f.bid("blues", "slow-skill", 0.5)

	// The round must not have resolved synchronously with the bid
	f.mu.Lock()
	assert.Empty(t, f.starts)
	f.mu.Unlock()

	// A higher bid arriving within the settle window still wins
	f.bid("blues", "fast-skill", 0.9)

	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Equal(t, "fast-skill", f.starts[0].Provider)
}

func TestResolve_LateBidDropped(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", false))
	f.awaitResolution(t)

	// Reply arrives after resolution: dropped silently, no crash
	f.bid("jazz", "laggard", 0.99)

	// A fresh round for the same phrase never sees the late bid
	require.NoError(t, f.arbiter.Query("jazz", false))
	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.starts)
	assert.Len(t, f.noMatches, 2)
}

func TestResolve_ReQueryDiscardsFirstRound(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", false))
	f.bid("jazz", "provider-a", 0.9)

	// Second broadcast for the same phrase replaces the session; the first
	// round's replies are discarded, not merged.
	require.NoError(t, f.arbiter.Query("jazz", false))
	f.bid("jazz", "provider-b", 0.2)

	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Equal(t, "provider-b", f.starts[0].Provider)
}

func TestResolve_DuplicateBidFirstCounts(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", false))
	f.bid("jazz", "provider-a", 0.4)
	f.bid("jazz", "provider-a", 0.99)
	f.bid("jazz", "provider-b", 0.6)

	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Equal(t, "provider-b", f.starts[0].Provider,
		"provider-a's repeat bid should have been dropped")
}

func TestResolve_SurfaceShownForGenericWinner(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", false))
	f.bid("jazz", "generic", 0.9)
	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.surfaces, 1)
	assert.Equal(t, "controls", f.surfaces[0].Page)
}

func TestResolve_SurfaceSkippedWhenProviderHasOwn(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", false))
	f.bus.Publish(bus.NewBidEvent("jazz", "fancy", 0.9, map[string]any{"provider_surface": true}))
	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Empty(t, f.surfaces)
}

// A handler can re-arm the timeout just after the previous deadline fired
// and closed the session. The superseding callback then runs for a phrase
// with no session; it must not publish a second terminal event.
func TestResolve_AfterSessionClosedIsNoOp(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", true))
	f.bid("jazz", "provider-a", 0.9)
	f.awaitResolution(t)

	// The stale callback body, invoked directly: the round above already
	// dispatched, so the registry has no session for the phrase.
	f.arbiter.resolve("jazz")

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Empty(t, f.noMatches,
		"a resolve for a closed session must not publish play.no_match")
}

func TestHasPlayed_Monotonic(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.arbiter.HasPlayed())

	// A no-match round does not set the flag
	require.NoError(t, f.arbiter.Query("silence", false))
	f.awaitResolution(t)
	assert.False(t, f.arbiter.HasPlayed())

	// A dispatch sets it
	require.NoError(t, f.arbiter.Query("jazz", false))
	f.bid("jazz", "spotify", 0.9)
	f.awaitResolution(t)
	assert.True(t, f.arbiter.HasPlayed())

	// And a later no-match never resets it
	require.NoError(t, f.arbiter.Query("silence", false))
	f.awaitResolution(t)
	assert.True(t, f.arbiter.HasPlayed())
}

func TestPickWinner_FirstMaximalIsBest(t *testing.T) {
	a, err := New(Config{Bus: bus.New(), Scheduler: timer.NewScheduler(), Registry: registry.New()})
	require.NoError(t, err)

	bids := []registry.Bid{
		{Provider: "a", Confidence: 0.5},
		{Provider: "b", Confidence: 0.9},
		{Provider: "c", Confidence: 0.9},
		{Provider: "d", Confidence: 0.3},
	}

	// With ties, the winner must be one of the tied set
	for range 20 {
		w, ok := a.pickWinner(bids)
		require.True(t, ok)
		assert.Contains(t, []string{"b", "c"}, w.Provider)
	}
}

func TestPickWinner_NoBids(t *testing.T) {
	a, err := New(Config{Bus: bus.New(), Scheduler: timer.NewScheduler(), Registry: registry.New()})
	require.NoError(t, err)

	_, ok := a.pickWinner(nil)
	assert.False(t, ok)
}

func TestPickWinner_TieBreakDistribution(t *testing.T) {
	a, err := New(Config{Bus: bus.New(), Scheduler: timer.NewScheduler(), Registry: registry.New()},
		WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)

	bids := []registry.Bid{
		{Provider: "a", Confidence: 0.8},
		{Provider: "b", Confidence: 0.8},
		{Provider: "c", Confidence: 0.8},
		{Provider: "d", Confidence: 0.2},
	}

	const trials = 3000
	counts := make(map[string]int)
	for range trials {
		w, ok := a.pickWinner(bids)
		require.True(t, ok)
		counts[w.Provider]++
	}

	assert.Zero(t, counts["d"], "a lower bid must never win")

	// Roughly uniform across the tied set: each within 20% of the
	// expected share.
	expected := trials / 3
	for _, p := range []string{"a", "b", "c"} {
		assert.InDelta(t, expected, counts[p], float64(expected)*0.2,
			"provider %s should win about a third of tied rounds", p)
	}
}

func TestPickWinner_LaterSmallerBidsIgnored(t *testing.T) {
	a, err := New(Config{Bus: bus.New(), Scheduler: timer.NewScheduler(), Registry: registry.New()})
	require.NoError(t, err)

	bids := []registry.Bid{
		{Provider: "a", Confidence: 0.9},
		{Provider: "b", Confidence: 0.5},
		{Provider: "c", Confidence: 0.9}, // ties with a
		{Provider: "d", Confidence: 0.1},
	}

	for range 20 {
		w, ok := a.pickWinner(bids)
		require.True(t, ok)
		assert.Contains(t, []string{"a", "c"}, w.Provider)
	}
}

func TestConcurrentRepliesDoNotRace(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.arbiter.Query("jazz", false))

	var wg sync.WaitGroup
	for i := range 20 {
		provider := string(rune('a' + i))
		wg.Go(func() {
			f.searching("jazz", provider, true)
			f.bid("jazz", provider, 0.5)
		})
	}
	wg.Wait()

	f.awaitResolution(t)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 1)
	assert.Equal(t, 0, f.reg.Len(), "session should be torn down after resolution")
}
