package session

import (
	"sync"
	"time"

	"github.com/blag/scheduler/internal/google"
)

// State is a guest's position in the scheduling flow.
type State int

const (
	// StateAnonymous is the initial state; no grant exists.
	StateAnonymous State = iota
	// StateAuthenticating means the guest has been redirected to the
	// provider and the callback has not arrived yet.
	StateAuthenticating
	// StateAuthenticated means a grant exists but availability has not
	// been loaded.
	StateAuthenticated
	// StateAvailabilityLoaded means the slot list is populated and the
	// guest can pick a slot.
	StateAvailabilityLoaded
	// StateBooking means a booking attempt is in flight.
	StateBooking
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateAvailabilityLoaded:
		return "availability_loaded"
	case StateBooking:
		return "booking"
	default:
		return "unknown"
	}
}

// Session is the per-guest scheduling state. All fields behind the mutex are
// owned by this session alone; two sessions never share a grant or a slot
// list.
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	grant      *google.Grant
	available  []string
	returnTo   string
	lastAccess time.Time
}

func newSession(id string) *Session {
	return &Session{
		ID:         id,
		state:      StateAnonymous,
		lastAccess: time.Now(),
	}
}

// State returns the current flow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Grant returns the guest's OAuth grant, or nil before authentication.
func (s *Session) Grant() *google.Grant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grant
}

// Available returns a copy of the rendered slot list.
func (s *Session) Available() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.available))
	copy(out, s.available)
	return out
}

// SetReturnTo records where the guest's browser should land after the OAuth
// callback completes.
func (s *Session) SetReturnTo(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returnTo = target
}

// ReturnTo returns the recorded post-authentication navigation target, or
// the empty string when none was set.
func (s *Session) ReturnTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returnTo
}

// touch marks the session as recently used so cleanup skips it.
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}

// beginAuth drops any stale grant and slot list before a new OAuth flow,
// keeping the recorded navigation target.
func (s *Session) beginAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant = nil
	s.available = nil
	s.state = StateAuthenticating
	s.lastAccess = time.Now()
}

func (s *Session) transition(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.lastAccess = time.Now()
}

func (s *Session) authenticate(grant *google.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant = grant
	s.state = StateAuthenticated
	s.lastAccess = time.Now()
}

func (s *Session) setAvailable(slots []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = slots
	s.state = StateAvailabilityLoaded
	s.lastAccess = time.Now()
}

// reset drops the grant and slot list and returns to the anonymous state.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant = nil
	s.available = nil
	s.returnTo = ""
	s.state = StateAnonymous
	s.lastAccess = time.Now()
}
