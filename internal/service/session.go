package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/receipt"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/registration"
)

// ErrSessionNotFound is returned for unknown or closed session IDs.
var ErrSessionNotFound = errors.New("registration session not found")

// Session is one browser's registration form.
type Session struct {
	ID         string
	Controller *registration.Controller
	Inbox      *registration.Inbox

	lastSeen time.Time
}

// View is the state of a session as returned to the browser. Notices are
// drained, so each one is delivered once.
type View struct {
	ID string `json:"id"`
	registration.State
	Notices []string `json:"notices"`
}

// View snapshots the session and drains its notices.
func (s *Session) View() View {
	notices := s.Inbox.Drain()
	if notices == nil {
		notices = []string{}
	}
	return View{ID: s.ID, State: s.Controller.State(), Notices: notices}
}

// SessionService owns the registration sessions of the site.
type SessionService struct {
	cat         *catalog.Catalog
	submitter   registration.Submitter
	previews    *receipt.PreviewStore
	opts        []registration.Option
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionService constructs a SessionService. Sessions idle longer than
// idleTimeout are closed by SweepIdle; zero disables sweeping. opts are
// applied to every controller.
func NewSessionService(
	cat *catalog.Catalog,
	submitter registration.Submitter,
	idleTimeout time.Duration,
	opts ...registration.Option,
) *SessionService {
	return &SessionService{
		cat:         cat,
		submitter:   submitter,
		previews:    receipt.NewPreviewStore(),
		opts:        opts,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Catalog returns the catalog sessions select from.
func (s *SessionService) Catalog() *catalog.Catalog {
	return s.cat
}

// Previews returns the store holding every session's receipt previews.
func (s *SessionService) Previews() *receipt.PreviewStore {
	return s.previews
}

// Open starts a session with an empty draft.
func (s *SessionService) Open() *Session {
	inbox := &registration.Inbox{}
	opts := append([]registration.Option{
		registration.WithNotifier(inbox),
		registration.WithPreviewStore(s.previews),
	}, s.opts...)

	sess := &Session{
		ID:         uuid.NewString(),
		Controller: registration.New(s.cat, s.submitter, opts...),
		Inbox:      inbox,
		lastSeen:   s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	slog.Info("registration session opened", "session", sess.ID)
	return sess
}

// Get returns a live session and marks it as used.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.lastSeen = s.now()
	return sess, nil
}

// Close tears a session down, releasing its receipt preview.
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Controller.Close()
	slog.Info("registration session closed", "session", id)
	return nil
}

// Len is the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepIdle closes sessions not used within the idle timeout and returns how
// many were closed.
func (s *SessionService) SweepIdle() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	var idle []*Session
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.Controller.Close()
	}
	return len(idle)
}

// CloseAll tears down every session.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Controller.Close()
	}
}

// StartSweeper runs SweepIdle on the given cron schedule (e.g. "@every 1m")
// until the returned stop function is called.
func (s *SessionService) StartSweeper(schedule string) (stop func(), err error) {
	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if n := s.SweepIdle(); n > 0 {
			slog.Info("closed idle registration sessions", "count", n, "live", s.Len())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
