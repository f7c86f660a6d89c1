// Package timer provides a scheduler for named delayed callbacks.
//
// Each name has at most one outstanding callback. Scheduling a name that is
// already scheduled atomically supersedes the previous timer: the superseded
// callback is guaranteed never to run, even if its underlying timer has
// already fired and is waiting on the scheduler lock. This is the contract
// the resolution engine relies on for cancel-and-reschedule of its query
// timeout.
package timer

import (
	"sync"
	"time"
)

// entry tracks one scheduled callback. The generation counter detects
// supersession: a fired timer only runs its callback if its generation is
// still current for the name.
type entry struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler schedules named delayed callbacks with cancel-and-reschedule
// semantics. It is safe for concurrent use. Callbacks run on their own
// goroutine with no scheduler lock held.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextGen uint64
	stopped bool
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		entries: make(map[string]*entry),
	}
}

// Schedule arranges for fn to run after delay, replacing any outstanding
// callback with the same name. The replaced callback will not run.
func (s *Scheduler) Schedule(name string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if prev, ok := s.entries[name]; ok {
		prev.timer.Stop()
	}

	s.nextGen++
	gen := s.nextGen

	e := &entry{gen: gen}
	e.timer = time.AfterFunc(delay, func() {
		if !s.claim(name, gen) {
			return
		}
		fn()
	})
	s.entries[name] = e
}

// claim reports whether the fired timer for name at generation gen is still
// current, and if so removes it. A timer that lost the race to a newer
// Schedule or a Cancel fails the claim and must not run its callback.
func (s *Scheduler) claim(name string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok || e.gen != gen || s.stopped {
		return false
	}
	delete(s.entries, name)
	return true
}

// Cancel removes the outstanding callback for name, if any.
// Cancelling an absent name is a safe no-op; it returns false.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, name)
	return true
}

// Pending reports whether a callback is outstanding for name.
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[name]
	return ok
}

// Stop cancels all outstanding callbacks and rejects future scheduling.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for name, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, name)
	}
}
