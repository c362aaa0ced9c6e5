// Package interacttest provides an in-memory renderer for testing code that
// drives an interact.Controller.
package interacttest

import (
	"errors"

	"github.com/fraudy/flowgraph/pkg/interact"
)

// ErrDestroyed is returned by Destroy when called more than once.
var ErrDestroyed = errors.New("renderer already destroyed")

// Renderer records subscriptions and lets tests emit events by hand.
type Renderer struct {
	Camera *interact.Camera

	handlers  map[interact.EventKind]map[int]interact.Handler
	nextID    int
	destroyed int
}

// NewRenderer returns a renderer with a camera over the given viewport.
func NewRenderer(viewport interact.Size) *Renderer {
	return &Renderer{
		Camera:   interact.NewCamera(viewport),
		handlers: make(map[interact.EventKind]map[int]interact.Handler),
	}
}

// Transform implements interact.Renderer.
func (r *Renderer) Transform() interact.Transform { return r.Camera }

// On implements interact.Renderer.
func (r *Renderer) On(kind interact.EventKind, h interact.Handler) func() {
	if r.handlers[kind] == nil {
		r.handlers[kind] = make(map[int]interact.Handler)
	}
	id := r.nextID
	r.nextID++
	r.handlers[kind][id] = h
	return func() { delete(r.handlers[kind], id) }
}

// Destroy implements interact.Renderer.
func (r *Renderer) Destroy() error {
	r.destroyed++
	if r.destroyed > 1 {
		return ErrDestroyed
	}
	return nil
}

// Emit delivers ev to every handler subscribed to its kind.
func (r *Renderer) Emit(ev interact.Event) {
	for _, h := range r.handlers[ev.Kind] {
		h(ev)
	}
}

// Subscribers returns the number of live subscriptions across all kinds.
func (r *Renderer) Subscribers() int {
	n := 0
	for _, hs := range r.handlers {
		n += len(hs)
	}
	return n
}

// Destroyed returns how many times Destroy was called.
func (r *Renderer) Destroyed() int { return r.destroyed }
