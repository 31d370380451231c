package authclient

import (
	"log/slog"
	"sync"
)

// AuthChangeEvent identifies a session state transition delivered to
// subscribers.
type AuthChangeEvent string

const (
	SignedIn         AuthChangeEvent = "SIGNED_IN"
	SignedOut        AuthChangeEvent = "SIGNED_OUT"
	TokenRefreshed   AuthChangeEvent = "TOKEN_REFRESHED"
	UserUpdated      AuthChangeEvent = "USER_UPDATED"
	PasswordRecovery AuthChangeEvent = "PASSWORD_RECOVERY"
)

// Listener receives the current session (nil when signed out) for the event
// it was registered on.
type Listener func(session *Session)

// Subscription is the handle returned by Client.On. Calling Unsubscribe
// removes exactly that listener; calling it again is a no-op.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the listener from the registry. Safe to call more than
// once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// eventBus is a typed observer registry keyed by event kind. Delivery is
// synchronous, in registration order, on the caller's goroutine.
type eventBus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[AuthChangeEvent][]busEntry
	logger    *slog.Logger
}

type busEntry struct {
	id int
	fn Listener
}

func newEventBus(logger *slog.Logger) *eventBus {
	return &eventBus{
		listeners: make(map[AuthChangeEvent][]busEntry),
		logger:    logger,
	}
}

func (b *eventBus) subscribe(event AuthChangeEvent, fn Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[event] = append(b.listeners[event], busEntry{id: id, fn: fn})

	return &Subscription{cancel: func() { b.unsubscribe(event, id) }}
}

func (b *eventBus) unsubscribe(event AuthChangeEvent, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[event]
	for i, e := range entries {
		if e.id == id {
			b.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// notify invokes every listener registered for event, in registration order.
// A panicking listener must not prevent delivery to the remaining ones.
func (b *eventBus) notify(event AuthChangeEvent, session *Session) {
	b.mu.RLock()
	entries := make([]busEntry, len(b.listeners[event]))
	copy(entries, b.listeners[event])
	b.mu.RUnlock()

	for _, e := range entries {
		b.invoke(event, e, session)
	}
}

func (b *eventBus) invoke(event AuthChangeEvent, e busEntry, session *Session) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("auth event listener panicked", "event", string(event), "panic", r)
		}
	}()
	e.fn(session)
}
