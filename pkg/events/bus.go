package events

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/bft-labs/stagehand/pkg/log"
)

// Listener receives the arguments passed to Emit.
type Listener func(args ...any) error

// ListenerID identifies one registration returned by On.
type ListenerID string

// ErrorHandler receives listener failures. Panics arrive as *PanicError.
type ErrorHandler func(event string, err error)

// PanicError wraps a value recovered from a panicking listener.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "listener panic: " + err.Error()
	}
	return fmt.Sprintf("listener panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type entry struct {
	id ListenerID
	fn Listener
}

// Bus is a named-event registry with synchronous fan-out.
// It is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	logger    log.Logger
	onError   ErrorHandler
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used by the default error handler.
func WithLogger(logger log.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithErrorHandler replaces the default error handler, which logs at error level.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Bus) {
		b.onError = h
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[string][]entry),
		logger:    log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.onError == nil {
		b.onError = b.logError
	}
	return b
}

// On appends a listener for event and returns its handle.
func (b *Bus) On(event string, fn Listener) ListenerID {
	id := ListenerID(uuid.NewString())
	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], entry{id: id, fn: fn})
	b.mu.Unlock()
	return id
}

// Off removes the registration with the given handle. It reports whether
// anything was removed. Events left without listeners are dropped.
func (b *Bus) Off(event string, id ListenerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, ok := b.listeners[event]
	if !ok {
		return false
	}
	_, idx, found := lo.FindIndexOf(list, func(e entry) bool { return e.id == id })
	if !found {
		return false
	}
	// Copy so snapshots taken by in-flight Emit calls stay intact.
	next := make([]entry, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	if len(next) == 0 {
		delete(b.listeners, event)
	} else {
		b.listeners[event] = next
	}
	return true
}

// Emit invokes every listener registered for event, in registration order,
// on the calling goroutine. Emitting an event with no listeners is a no-op.
func (b *Bus) Emit(event string, args ...any) {
	b.mu.RLock()
	snapshot := b.listeners[event]
	b.mu.RUnlock()

	for _, e := range snapshot {
		if err := b.invoke(e.fn, args); err != nil {
			b.onError(event, err)
		}
	}
}

func (b *Bus) invoke(fn Listener, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(args...)
}

// ListenerCount returns the number of registrations for event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}

// EventNames returns the events that currently have listeners, sorted.
func (b *Bus) EventNames() []string {
	b.mu.RLock()
	names := lo.Keys(b.listeners)
	b.mu.RUnlock()
	sort.Strings(names)
	return names
}

// RemoveAllListeners clears the named events, or every event when none are given.
func (b *Bus) RemoveAllListeners(events ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(events) == 0 {
		b.listeners = make(map[string][]entry)
		return
	}
	for _, ev := range events {
		delete(b.listeners, ev)
	}
}

func (b *Bus) logError(event string, err error) {
	b.logger.Error("event listener failed",
		log.String("event", event),
		log.Err(err),
	)
}
