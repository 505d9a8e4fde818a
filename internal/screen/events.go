// Package screen drives the state of individual screens: it loads cached
// bundles, triggers refreshes and reports outcomes as Events.
package screen

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/grocysync/internal/gateway"
	"github.com/dukerupert/grocysync/internal/lifecycle"
)

// ErrOffline is returned by actions that need the server while offline.
var ErrOffline = errors.New("not available offline")

type EventKind int

const (
	EventMessage EventKind = iota
	EventContinueScanning
	EventChooseProduct
	EventInputProduct
	EventNavigateUp
	EventDataChanged
	EventFormChanged
	EventOfflineChanged
	EventConfirmDelete
	EventSelected
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventContinueScanning:
		return "continue_scanning"
	case EventChooseProduct:
		return "choose_product"
	case EventInputProduct:
		return "input_product"
	case EventNavigateUp:
		return "navigate_up"
	case EventDataChanged:
		return "data_changed"
	case EventFormChanged:
		return "form_changed"
	case EventOfflineChanged:
		return "offline_changed"
	case EventConfirmDelete:
		return "confirm_delete"
	case EventSelected:
		return "selected"
	}
	return "unknown"
}

// Event is something the presentation layer should react to. Input carries
// the user's original text or code where one applies.
type Event struct {
	Kind    EventKind
	Message string
	Input   string
	Payload any
}

// Events receives screen events. Publish is always called on the scope's
// delivery side, one event at a time.
type Events interface {
	Publish(Event)
}

// EventsFunc adapts a function to Events.
type EventsFunc func(Event)

func (f EventsFunc) Publish(e Event) { f(e) }

// Deps are shared by every screen.
type Deps struct {
	Scope   *lifecycle.Scope
	Gateway *gateway.Gateway
	Events  Events
	Logger  *slog.Logger
}

// base holds what all screens need for delivering events.
type base struct {
	scope  *lifecycle.Scope
	gw     *gateway.Gateway
	events Events
	logger *slog.Logger
}

func newBase(d Deps, component string) base {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := d.Events
	if events == nil {
		events = EventsFunc(func(Event) {})
	}
	return base{
		scope:  d.Scope,
		gw:     d.Gateway,
		events: events,
		logger: logger.With("component", component),
	}
}

// post runs fn on the delivery side unless the scope is closed.
func (b *base) post(fn func()) {
	b.scope.Post(fn)
}

// emit publishes from a background goroutine.
func (b *base) emit(e Event) {
	b.scope.Post(func() { b.events.Publish(e) })
}

// later schedules fn for delivery without blocking the caller. Screen
// methods use it so they stay callable from inside Publish.
func (b *base) later(fn func()) {
	b.scope.Go(func(context.Context) { b.scope.Post(fn) })
}

// notify publishes from the caller's side.
func (b *base) notify(e Event) {
	b.later(func() { b.events.Publish(e) })
}

func (b *base) message(msg string) Event {
	return Event{Kind: EventMessage, Message: msg}
}
