package upstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

type SessionState int

const (
	StateNoSession SessionState = iota
	StateAuthenticating
	StateActive
	StateExpired
	StateInvalid
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateInvalid:
		return "invalid"
	default:
		return "no_session"
	}
}

// Session is the authenticated credential blob for one identity.
type Session struct {
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	Blob      []byte    `json:"blob"`
}

// SessionStore persists sessions between runs. LoadSession returns
// ErrNoSession when nothing is stored for identity.
type SessionStore interface {
	LoadSession(ctx context.Context, identity string) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, identity string) error
}

// startSession restores a stored session when it still validates and logs
// in otherwise. Called once from New.
func (c *Client) startSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAuthenticating

	if c.store != nil && c.creds.Username != "" {
		s, err := c.store.LoadSession(ctx, c.creds.Username)
		switch {
		case err == nil:
			verr := c.src.Validate(ctx, s.Blob)
			if verr == nil {
				c.session = s
				c.state = StateActive
				log.Printf("upstream: restored session for %s (age %s)", s.Identity, c.now().Sub(s.CreatedAt).Round(time.Second))
				return nil
			}
			log.Printf("upstream: stored session rejected, logging in again: %v", verr)
			if derr := c.store.DeleteSession(ctx, c.creds.Username); derr != nil {
				log.Printf("upstream: delete stale session: %v", derr)
			}
		case errors.Is(err, ErrNoSession):
		default:
			log.Printf("upstream: load session: %v", err)
			if derr := c.store.DeleteSession(ctx, c.creds.Username); derr != nil {
				log.Printf("upstream: delete stale session: %v", derr)
			}
		}
	}

	if c.creds.Empty() {
		c.state = StateNoSession
		return fmt.Errorf("%w: credentials missing", ErrAuthentication)
	}
	return c.loginLocked(ctx)
}

// loginLocked performs a fresh login. c.mu must be held for writing.
func (c *Client) loginLocked(ctx context.Context) error {
	c.state = StateAuthenticating
	blob, err := c.src.Login(ctx, c.creds)
	if err != nil {
		c.state = StateInvalid
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	c.session = &Session{Identity: c.creds.Username, CreatedAt: c.now(), Blob: blob}
	c.state = StateActive
	log.Printf("upstream: logged in as %s", c.creds.Username)

	if c.store != nil {
		if err := c.store.SaveSession(ctx, c.session); err != nil {
			log.Printf("upstream: save session: %v", err)
		}
	}
	return nil
}

// EnsureFresh renews the session once it is older than the max age. A failed
// renewal is logged; the old session stays in use.
func (c *Client) EnsureFresh(ctx context.Context) error {
	if !c.sessionStale() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.now().Sub(c.session.CreatedAt) <= c.cfg.SessionMaxAge {
		return nil
	}
	c.state = StateExpired
	if err := c.loginLocked(ctx); err != nil {
		log.Printf("upstream: session renewal failed: %v", err)
		return err
	}
	return nil
}

func (c *Client) sessionStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return true
	}
	return c.cfg.SessionMaxAge > 0 && c.now().Sub(c.session.CreatedAt) > c.cfg.SessionMaxAge
}

// relogin replaces a session the upstream reported invalid mid-use.
func (c *Client) relogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateInvalid
	return c.loginLocked(ctx)
}

func (c *Client) State() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) SessionAge() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return 0
	}
	return c.now().Sub(c.session.CreatedAt)
}
