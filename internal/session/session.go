// Package session owns the client's authentication token lifecycle.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// TokenStore persists the bearer token across runs.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}

// Session holds the current bearer token. It is loaded once at startup,
// replaced on login, and cleared on logout. Token changes are published
// to subscribers so views can re-run their gated loads.
type Session struct {
	mu     sync.Mutex
	token  string
	loaded bool
	store  TokenStore
	subs   []chan string
}

// New constructs a Session backed by the given store.
func New(store TokenStore) *Session {
	return &Session{store: store}
}

// Load reads the persisted token. It is a no-op after the first call;
// the stored token is read exactly once per process.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	token, err := s.store.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	s.token = token
	s.loaded = true
	return nil
}

// Set replaces the token, persists it, and notifies subscribers.
func (s *Session) Set(ctx context.Context, token string) error {
	if err := s.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.loaded = true
	s.notifyLocked(token)
	s.mu.Unlock()
	return nil
}

// Clear removes the token from memory and storage and notifies
// subscribers with an empty token.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.DeleteToken(ctx); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	s.mu.Lock()
	s.token = ""
	s.loaded = true
	s.notifyLocked("")
	s.mu.Unlock()
	return nil
}

// Token returns the current token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated reports whether a token is currently held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Apply sets the authorization header on the request when a token is
// held. Unauthenticated sessions leave the request untouched.
func (s *Session) Apply(req *http.Request) {
	token := s.Token()
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// Subscribe returns a channel that receives the token value after each
// Set or Clear. The channel has capacity one and coalesces: a slow
// subscriber observes only the latest value.
func (s *Session) Subscribe() <-chan string {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Session) notifyLocked(token string) {
	for _, ch := range s.subs {
		select {
		case ch <- token:
		default:
			// Drop the stale value so the latest one wins.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- token:
			default:
			}
		}
	}
}
