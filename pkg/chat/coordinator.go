package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/dwern/popchat/pkg/logger"
)

// DefaultHistoryWindow bounds how many turns of history go out on the
// wire. The stored log is never truncated; only the outbound payload
// is. Note the window counts the system turn like any other, so a long
// enough conversation pushes the system prompt out of the payload.
const DefaultHistoryWindow = 25

const (
	// FallbackText is shown when the backend answered but had nothing
	// usable: non-2xx status, malformed JSON, or an empty reply.
	FallbackText = "Sorry, I'm having trouble responding right now. Please try again in a moment."

	// ConnectionErrorText is shown when the backend could not be
	// reached at all. Deliberately worded differently from
	// FallbackText so the two cases stay distinguishable to visitors.
	ConnectionErrorText = "Sorry, I couldn't reach my backend. Check your connection and try again."
)

var (
	// ErrBusy rejects a submit while a request is still in flight.
	// The submission is dropped, not queued.
	ErrBusy = errors.New("chat: request already in flight")

	// ErrEmptyMessage rejects a submit whose text is empty after
	// trimming.
	ErrEmptyMessage = errors.New("chat: empty message")
)

// Responder produces one assistant reply for a conversation snapshot.
// backend.Client is the production implementation.
type Responder interface {
	Reply(ctx context.Context, turns []Turn) (string, error)
}

// statusError matches errors from a backend that was reached but
// answered with an error status (backend.StatusError implements it).
// Detecting it by behavior keeps this package free of a wire
// dependency.
type statusError interface {
	error
	HTTPStatus() int
	ResponseBody() string
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithHistoryWindow overrides the outbound payload window. Values
// below 1 keep the default.
func WithHistoryWindow(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n >= 1 {
			c.window = n
		}
	}
}

// WithErrorTexts overrides the two user-facing error strings. Empty
// strings keep the defaults.
func WithErrorTexts(fallback, connection string) CoordinatorOption {
	return func(c *Coordinator) {
		if fallback != "" {
			c.fallbackText = fallback
		}
		if connection != "" {
			c.connErrText = connection
		}
	}
}

// Coordinator owns the single outbound request of a session. At most
// one request is in flight at a time; a Submit while busy is rejected
// rather than queued. Every accepted Submit appends exactly one
// assistant turn before the coordinator goes idle again, whatever the
// outcome of the network call.
type Coordinator struct {
	store     *Store
	responder Responder
	window    int

	fallbackText string
	connErrText  string

	busy atomic.Bool
}

// NewCoordinator wires a coordinator to the session's store and a
// responder for the assistant backend.
func NewCoordinator(store *Store, responder Responder, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:        store,
		responder:    responder,
		window:       DefaultHistoryWindow,
		fallbackText: FallbackText,
		connErrText:  ConnectionErrorText,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Busy reports whether a request is in flight. The UI uses it to
// disable input while waiting.
func (c *Coordinator) Busy() bool {
	return c.busy.Load()
}

// Submit runs one full request lifecycle: append the user turn, send
// the windowed history to the backend, append exactly one assistant
// turn (reply, fallback, or connection-error text), return to idle.
//
// Returns ErrEmptyMessage or ErrBusy without touching the store when
// the guard fails; callers rendering the transcript may ignore both.
// Network and backend failures are not surfaced as errors — they
// settle into the transcript as assistant turns.
func (c *Coordinator) Submit(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	// Busy must clear on every exit path, panics included.
	defer c.busy.Store(false)

	c.store.AppendUser(trimmed)

	payload := c.windowed(c.store.All())
	reply, err := c.responder.Reply(ctx, payload)

	c.store.AppendAssistant(c.classify(reply, err))
	return nil
}

// windowed keeps the last window entries of the full log, preserving
// order. The full log is left untouched.
func (c *Coordinator) windowed(all []Turn) []Turn {
	if len(all) <= c.window {
		return all
	}
	return all[len(all)-c.window:]
}

// classify maps a responder outcome onto the assistant text to append.
// Two user-visible failure modes exist: the backend answered but gave
// nothing usable, and the backend could not be reached. Diagnostics go
// to the log, never into the transcript.
func (c *Coordinator) classify(reply string, err error) string {
	if err != nil {
		var statusErr statusError
		if errors.As(err, &statusErr) {
			logger.WarnCF("chat", "backend returned an error status", map[string]interface{}{
				"status": statusErr.HTTPStatus(),
				"body":   statusErr.ResponseBody(),
			})
			return c.fallbackText
		}
		logger.ErrorCF("chat", "backend unreachable", map[string]interface{}{
			"error": err.Error(),
		})
		return c.connErrText
	}
	if reply == "" {
		logger.WarnCF("chat", "backend reply empty or unparseable", nil)
		return c.fallbackText
	}
	return reply
}
