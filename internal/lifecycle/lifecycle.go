// Package lifecycle coordinates token-gated loads and mutation-refresh
// cycles for the views.
package lifecycle

import "context"

// State is a view's load lifecycle.
type State int

// Lifecycle states. A view starts Uninitialized, resolves the stored
// session into Unauthenticated or Loading, and reaches Ready once every
// gated load has settled (success or defined failure).
const (
	StateUninitialized State = iota
	StateUnauthenticated
	StateLoading
	StateReady
)

// Gate tracks the lifecycle state of one view. Gated loaders must only
// fire through SessionLoaded or TokenSet, which is what keeps
// unauthenticated views from issuing authenticated calls.
type Gate struct {
	state   State
	pending int
}

// State returns the current lifecycle state.
func (g *Gate) State() State {
	return g.state
}

// Authenticated reports whether the view is past the token gate.
func (g *Gate) Authenticated() bool {
	return g.state == StateLoading || g.state == StateReady
}

// SessionLoaded resolves the initial session load. With a token the view
// enters Loading with the given number of pending gated loads (Ready
// when zero); without one it stays Unauthenticated.
func (g *Gate) SessionLoaded(authenticated bool, pending int) {
	if !authenticated {
		g.state = StateUnauthenticated
		g.pending = 0
		return
	}
	g.startLoading(pending)
}

// TokenSet handles a token-change event: the view re-enters Loading and
// the gated loaders run again. An empty-token event (logout) drops the
// view back to Unauthenticated.
func (g *Gate) TokenSet(authenticated bool, pending int) {
	if !authenticated {
		g.state = StateUnauthenticated
		g.pending = 0
		return
	}
	g.startLoading(pending)
}

// LoadSettled records one gated load finishing, successfully or with a
// defined failure. The view is Ready when all pending loads settled.
func (g *Gate) LoadSettled() {
	if g.state != StateLoading {
		return
	}
	if g.pending > 0 {
		g.pending--
	}
	if g.pending == 0 {
		g.state = StateReady
	}
}

func (g *Gate) startLoading(pending int) {
	if pending <= 0 {
		g.state = StateReady
		g.pending = 0
		return
	}
	g.state = StateLoading
	g.pending = pending
}

// Status is a single last-message slot per view: overwritten, never
// queued.
type Status struct {
	text   string
	failed bool
}

// Info replaces the slot with a success/progress message.
func (s *Status) Info(text string) {
	s.text = text
	s.failed = false
}

// Fail replaces the slot with a failure message.
func (s *Status) Fail(text string) {
	s.text = text
	s.failed = true
}

// Clear empties the slot.
func (s *Status) Clear() {
	s.text = ""
	s.failed = false
}

// Text returns the current message, empty when cleared.
func (s *Status) Text() string {
	return s.text
}

// Failed reports whether the current message is a failure.
func (s *Status) Failed() bool {
	return s.failed
}

// Step is one refresh performed after a successful mutation. Steps
// absorb their own failures according to the loader's policy.
type Step func(ctx context.Context)

// Mutate runs action and, only on success, each refresh step in the
// given order. A failed action returns its error and runs no refresh, so
// displayed state stays whatever it was before the attempt. The order of
// steps matters when a later refresh depends on what an earlier one
// revealed.
func Mutate(ctx context.Context, action func(ctx context.Context) error, refresh ...Step) error {
	if err := action(ctx); err != nil {
		return err
	}
	for _, step := range refresh {
		step(ctx)
	}
	return nil
}
