package gallery

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/metrics"
)

// DefaultMaxIdle is how long a session may sit untouched before the next
// Open sweeps it away.
const DefaultMaxIdle = 30 * time.Minute

// Session pins one view to one open gallery tab. Every operation runs under
// the session mutex, matching the tab's blocking request/response flow.
type Session struct {
	ID string

	mu         sync.Mutex
	view       *View
	lastSeenAt time.Time
	timeNow    func() time.Time
}

// Do runs fn with exclusive access to the session's view.
func (s *Session) Do(fn func(*View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeenAt = s.timeNow()
	fn(s.view)
}

func (s *Session) lastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenAt
}

// Registry keeps one session per open gallery tab. Sessions are created when
// the tab loads and dropped when it closes; abandoned tabs are swept lazily
// on the next Open, so no background task is needed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxIdle  time.Duration
	timeNow  func() time.Time
}

// NewRegistry constructs a session registry. A non-positive maxIdle falls
// back to DefaultMaxIdle.
func NewRegistry(maxIdle time.Duration) *Registry {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Registry{
		sessions: make(map[string]*Session),
		maxIdle:  maxIdle,
		timeNow:  time.Now,
	}
}

// Open registers a fresh view and returns its session.
func (r *Registry) Open() *Session {
	now := r.timeNow()

	session := &Session{
		ID:         uuid.NewString(),
		view:       NewView(),
		lastSeenAt: now,
		timeNow:    r.timeNow,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropStaleLocked(now)
	r.sessions[session.ID] = session
	metrics.GallerySessions.Set(float64(len(r.sessions)))

	return session
}

// Get returns the session for the supplied id.
func (r *Registry) Get(id string) (*Session, error) {
	id = strings.TrimSpace(id)

	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, appErrors.NewNotFound(id)
	}
	return session, nil
}

// Close removes the session. Closing an unknown id is not an error.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, strings.TrimSpace(id))
	metrics.GallerySessions.Set(float64(len(r.sessions)))
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) dropStaleLocked(now time.Time) {
	threshold := now.Add(-r.maxIdle)
	for id, session := range r.sessions {
		if session.lastSeen().Before(threshold) {
			delete(r.sessions, id)
		}
	}
}
