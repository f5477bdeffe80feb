package chart

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Renderer is a live chart instance.
type Renderer interface {
	Update(Config) error
	Destroy()
}

// Factory constructs a renderer for an initial config.
type Factory func(Config) (Renderer, error)

// ErrNoFactory is returned when a Holder has nothing to construct renderers with.
var ErrNoFactory = errors.New("chart: no renderer factory")

// Holder keeps a single renderer instance per chart slot. Show updates the
// existing instance in place and only constructs one when none exists or the
// chart type changed.
type Holder struct {
	mu      sync.Mutex
	factory Factory
	current Renderer
	kind    string
	builds  int
	updates int
}

// NewHolder returns a Holder using factory.
func NewHolder(factory Factory) *Holder {
	return &Holder{factory: factory}
}

// Show renders cfg, reusing the current instance when possible.
func (h *Holder) Show(cfg Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil && h.kind == cfg.Type {
		if err := h.current.Update(cfg); err != nil {
			return fmt.Errorf("update %s chart: %w", cfg.Type, err)
		}
		h.updates++
		return nil
	}

	if h.factory == nil {
		return ErrNoFactory
	}
	renderer, err := h.factory(cfg)
	if err != nil {
		return fmt.Errorf("construct %s chart: %w", cfg.Type, err)
	}
	if h.current != nil {
		h.current.Destroy()
	}
	h.current = renderer
	h.kind = cfg.Type
	h.builds++
	return nil
}

// Current returns the live renderer, or nil.
func (h *Holder) Current() Renderer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Stats reports how many instances were constructed and how many in-place
// updates were applied.
func (h *Holder) Stats() (builds, updates int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.builds, h.updates
}

// Close destroys the live renderer.
func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		h.current.Destroy()
		h.current = nil
		h.kind = ""
	}
}

func yearLabel(year int) string {
	return strconv.Itoa(year)
}
