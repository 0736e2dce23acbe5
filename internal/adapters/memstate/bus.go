// Package memstate is an in-process auth state bus for single-replica
// deployments and tests.
package memstate

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.StateBus = (*Bus)(nil)

type subscriber struct {
	ch chan domainauth.AuthState
}

// Bus fans out published states to subscribers of the same session ID.
type Bus struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[*subscriber]struct{})}
}

// Publish delivers state to every current subscriber of sessionID. A slow
// subscriber only keeps the newest undelivered state.
func (b *Bus) Publish(_ context.Context, sessionID string, state domainauth.AuthState) error {
	if sessionID == "" {
		return errors.New("session ID is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs[sessionID] {
		select {
		case <-s.ch:
		default:
		}
		s.ch <- state
	}
	return nil
}

// Subscribe registers for states of sessionID until cancel is called or ctx is done.
func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan domainauth.AuthState, func(), error) {
	if sessionID == "" {
		return nil, nil, errors.New("session ID is required")
	}
	s := &subscriber{ch: make(chan domainauth.AuthState, 1)}

	b.mu.Lock()
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subs[sessionID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[sessionID], s)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			close(s.ch)
		})
	}
	stop := context.AfterFunc(ctx, release)
	cancel := func() {
		stop()
		release()
	}
	return s.ch, cancel, nil
}

// Subscribers reports the number of live subscriptions for sessionID.
func (b *Bus) Subscribers(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}
