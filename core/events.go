package core

import (
	"context"
	"sync"
)

type tokenListenerEntry struct {
	id       int
	listener TokenEventListener
}

// TokenEventBroadcaster fans token lifecycle events out to subscribers in
// registration order. Emission is synchronous: Emit returns only after every
// listener has run, which lets a wire client guarantee that rotation handling
// completes before the access token is returned to its caller.
type TokenEventBroadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners []tokenListenerEntry
}

func NewTokenEventBroadcaster() *TokenEventBroadcaster {
	return &TokenEventBroadcaster{}
}

// Subscribe registers a listener and returns its cancel function. Cancelling
// twice is harmless.
func (b *TokenEventBroadcaster) Subscribe(listener TokenEventListener) func() {
	if b == nil || listener == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, tokenListenerEntry{id: id, listener: listener})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, entry := range b.listeners {
			if entry.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *TokenEventBroadcaster) Emit(ctx context.Context, event TokenEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	snapshot := make([]tokenListenerEntry, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, entry := range snapshot {
		entry.listener(ctx, event)
	}
}
