package trace

import "sync"

// session is what the controller needs from a live tracer process. *Handle is
// the real implementation; tests substitute a scripted fake.
type session interface {
	Flow() FlowIdentity
	WriteContinue(stopLine int) error
	ReadEvent() ([]byte, error)
	Alive() bool
	Kill()
	ExitCode() int
}

// Store is the single process-wide slot for the live tracing session. The
// entire step protocol for one request runs inside one Acquire/Release pair,
// which is what serializes concurrent callers into one active trace at a
// time. There is no acquisition timeout: a stuck step blocks later callers
// until it finishes or times out on its read.
type Store struct {
	mu  sync.Mutex
	cur session
}

// Acquire locks the slot and returns a guard. Callers must defer Release so
// the lock is dropped on every exit path.
func (s *Store) Acquire() *Guard {
	s.mu.Lock()
	return &Guard{store: s}
}

// Guard is exclusive access to the session slot between Acquire and Release.
type Guard struct {
	store    *Store
	released bool
}

// Release unlocks the slot. Safe to call more than once.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.store.mu.Unlock()
}

// Current returns the live session, or nil when none exists.
func (g *Guard) Current() session { return g.store.cur }

// Set installs a freshly spawned session.
func (g *Guard) Set(s session) { g.store.cur = s }

// Clear empties the slot. The caller is responsible for having killed the
// process first; the store never discards a reference without teardown.
func (g *Guard) Clear() { g.store.cur = nil }
