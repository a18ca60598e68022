package manager

import (
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"codeberg.org/mutker/trapbridge/internal/value"
)

// Handle is the explicitly owned result of Configure. It stays valid until
// CleanUp, Close or the next Configure; afterwards every operation on it
// fails with NotConfigured.
type Handle struct {
	facade *Facade
	mgr    Manager
	cfg    trapconfig.Config
}

// Config returns the resolved configuration the manager was built from.
func (h *Handle) Config() trapconfig.Config {
	return h.cfg.Clone()
}

func (h *Handle) Valid() bool {
	h.facade.mu.Lock()
	defer h.facade.mu.Unlock()
	return h.facade.current == h
}

func (h *Handle) Start() error {
	h.facade.mu.Lock()
	defer h.facade.mu.Unlock()
	return h.facade.start(h)
}

func (h *Handle) Stop() error {
	h.facade.mu.Lock()
	defer h.facade.mu.Unlock()
	return h.facade.stop(h)
}

func (h *Handle) AddCustomEvent(v value.Value) error {
	h.facade.mu.Lock()
	defer h.facade.mu.Unlock()
	return h.facade.withManager(h, func(m Manager) { m.AddCustomEvent(v) })
}

func (h *Handle) AddCustomMetadata(key string, v value.Value) error {
	h.facade.mu.Lock()
	defer h.facade.mu.Unlock()
	return h.facade.withManager(h, func(m Manager) { m.AddCustomMetadata(key, v) })
}

func (h *Handle) RemoveCustomMetadata(key string) error {
	h.facade.mu.Lock()
	defer h.facade.mu.Unlock()
	return h.facade.withManager(h, func(m Manager) { m.RemoveCustomMetadata(key) })
}

// Close destroys the manager if h is still the current handle.
func (h *Handle) Close() {
	h.facade.mu.Lock()
	defer h.facade.mu.Unlock()
	if h.facade.current == h {
		h.facade.teardown()
	}
}
