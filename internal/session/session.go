// Package session owns the stateful handle to one authenticated browser
// context and the state machine a publish flows through. A session may be
// reused across items to avoid redundant logins, but never serves two
// in-flight publishes concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/propline/promopost/internal/selector"
)

// State is one node of the publish state machine.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateNavigating      State = "navigating"
	StateComposing       State = "composing"
	StateAttachingMedia  State = "attaching_media"
	StateSubmitting      State = "submitting"
	StatePublished       State = "published"
	StateFailed          State = "failed"
)

// transitions lists the legal forward edges. Failed is reachable from every
// non-terminal state and is handled separately in transition().
var transitions = map[State][]State{
	StateUnauthenticated: {StateAuthenticating},
	StateAuthenticating:  {StateAuthenticated},
	StateAuthenticated:   {StateNavigating},
	StateNavigating:      {StateComposing},
	StateComposing:       {StateAttachingMedia, StateSubmitting},
	StateAttachingMedia:  {StateSubmitting},
	StateSubmitting:      {StatePublished},
	StatePublished:       {StateAuthenticated},
}

// ErrAuthenticationFailed is run-fatal: credentials are run-wide, so a session
// that fails to authenticate aborts the entire run, not just one item.
var ErrAuthenticationFailed = errors.New("authentication failed")

// ErrSessionPoisoned is returned when a session that failed fatally is used again.
var ErrSessionPoisoned = errors.New("session failed fatally and must not be reused")

// Credentials identify the operator's account on the target site.
type Credentials struct {
	Username string
	Password string
}

// Config carries the site endpoints and timing bounds for one session.
type Config struct {
	LoginURL        string
	ComposeURL      string
	SelectorTimeout time.Duration
	LoginTimeout    time.Duration
}

// Session wraps one live browser context.
type Session struct {
	drv      Driver
	resolver *selector.Resolver
	cookies  *CookieStore // optional
	cfg      Config
	log      *slog.Logger

	state        State
	fatal        bool
	createdAt    time.Time
	lastActivity time.Time
}

// New creates a session in the Unauthenticated state. cookies may be nil to
// disable cookie persistence.
func New(drv Driver, resolver *selector.Resolver, cookies *CookieStore, cfg Config) *Session {
	now := time.Now()
	return &Session{
		drv:          drv,
		resolver:     resolver,
		cookies:      cookies,
		cfg:          cfg,
		log:          slog.With(slog.String("component", "session")),
		state:        StateUnauthenticated,
		createdAt:    now,
		lastActivity: now,
	}
}

// Driver exposes the underlying browser driver to the publisher.
func (s *Session) Driver() Driver { return s.drv }

// State returns the current state.
func (s *Session) State() State { return s.state }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActivity returns the time of the last state change.
func (s *Session) LastActivity() time.Time { return s.lastActivity }

// Fatal reports whether the session failed for a run-fatal cause.
func (s *Session) Fatal() bool { return s.fatal }

// Reusable reports whether the session may serve another item.
func (s *Session) Reusable() bool { return !s.fatal && s.state != StateFailed }

// transition moves to a new state, enforcing the machine's legal edges.
func (s *Session) transition(to State) error {
	if s.fatal {
		return ErrSessionPoisoned
	}
	if to == StateFailed {
		if s.state == StatePublished {
			return fmt.Errorf("illegal transition %s -> %s", s.state, to)
		}
		s.state = StateFailed
		s.lastActivity = time.Now()
		return nil
	}
	for _, legal := range transitions[s.state] {
		if legal == to {
			s.state = to
			s.lastActivity = time.Now()
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", s.state, to)
}

// Advance moves the machine forward one publish step. The publisher uses this
// to keep the session's state honest while it drives the browser.
func (s *Session) Advance(to State) error {
	switch to {
	case StateNavigating, StateComposing, StateAttachingMedia, StateSubmitting, StatePublished:
		return s.transition(to)
	default:
		return fmt.Errorf("advance to %s is not a publish step", to)
	}
}

// FailItem records a non-fatal, item-scoped failure. The session reverts to
// Authenticated and may serve the next item.
func (s *Session) FailItem() {
	if s.fatal {
		return
	}
	s.state = StateAuthenticated
	s.lastActivity = time.Now()
}

// FailFatal poisons the session. It must not be reused; the browser-side
// state is no longer trustworthy.
func (s *Session) FailFatal() {
	s.state = StateFailed
	s.fatal = true
	s.lastActivity = time.Now()
}

// ResetForNext returns a Published session to Authenticated for the next item.
func (s *Session) ResetForNext() error {
	return s.transition(StateAuthenticated)
}

// EnsureAuthenticated brings the session to Authenticated. Login is
// idempotent and skippable: before attempting credentials it probes for an
// already-authenticated indicator and short-circuits if found.
func (s *Session) EnsureAuthenticated(ctx context.Context, creds Credentials) error {
	switch s.state {
	case StateAuthenticated:
		return nil
	case StateUnauthenticated:
	default:
		if s.fatal {
			return ErrSessionPoisoned
		}
		return fmt.Errorf("cannot authenticate from state %s", s.state)
	}

	if err := s.transition(StateAuthenticating); err != nil {
		return err
	}

	if s.cookies != nil && s.cookies.IsValid() {
		if stored, err := s.cookies.SiteCookies(); err == nil {
			if err := s.drv.SetCookies(ctx, stored); err != nil {
				s.log.Warn("failed to inject stored cookies", "error", err)
			}
		}
	}

	if err := s.drv.Navigate(ctx, s.cfg.ComposeURL); err != nil {
		s.FailFatal()
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	// Already logged in from a previous session?
	if _, err := s.resolver.Resolve(ctx, selector.RoleAuthedMarker, s.cfg.SelectorTimeout); err == nil {
		s.log.Info("already authenticated, skipping login")
		return s.transition(StateAuthenticated)
	}

	if err := s.login(ctx, creds); err != nil {
		s.FailFatal()
		return err
	}

	if s.cookies != nil {
		if captured, err := s.drv.Cookies(ctx); err == nil {
			if err := s.cookies.Save(captured); err != nil {
				s.log.Warn("failed to persist cookies", "error", err)
			}
		}
	}

	return s.transition(StateAuthenticated)
}

// login submits credentials and requires a resolver-confirmed authenticated
// indicator within the login bound.
func (s *Session) login(ctx context.Context, creds Credentials) error {
	s.log.Info("logging in", "url", s.cfg.LoginURL)

	if err := s.drv.Navigate(ctx, s.cfg.LoginURL); err != nil {
		return fmt.Errorf("%w: navigating to login page: %v", ErrAuthenticationFailed, err)
	}

	email, err := s.resolver.Resolve(ctx, selector.RoleLoginEmail, s.cfg.SelectorTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if err := s.drv.ClearAndType(ctx, email.Candidate.Query, creds.Username); err != nil {
		return fmt.Errorf("%w: entering username: %v", ErrAuthenticationFailed, err)
	}

	password, err := s.resolver.Resolve(ctx, selector.RoleLoginPassword, s.cfg.SelectorTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if err := s.drv.ClearAndType(ctx, password.Candidate.Query, creds.Password); err != nil {
		return fmt.Errorf("%w: entering password: %v", ErrAuthenticationFailed, err)
	}

	submit, err := s.resolver.Resolve(ctx, selector.RoleLoginSubmit, s.cfg.SelectorTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if err := s.drv.Click(ctx, submit.Candidate.Query); err != nil {
		return fmt.Errorf("%w: submitting login form: %v", ErrAuthenticationFailed, err)
	}

	// Timeout or explicit rejection is fatal: credentials are run-wide.
	if _, err := s.resolver.Resolve(ctx, selector.RoleAuthedMarker, s.cfg.LoginTimeout); err != nil {
		return fmt.Errorf("%w: no authenticated indicator after login: %v", ErrAuthenticationFailed, err)
	}

	s.log.Info("login confirmed")
	return nil
}

// Close releases the browser context.
func (s *Session) Close() error {
	return s.drv.Close()
}
