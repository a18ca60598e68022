package manager

import (
	"sync"

	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/logger"
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"codeberg.org/mutker/trapbridge/internal/value"
)

// Facade drives the lifecycle of a single external manager.
type Facade struct {
	mu       sync.Mutex
	factory  Factory
	observer Observer
	state    State
	current  *Handle
}

type Option func(*Facade)

// WithObserver registers a callback for state transitions.
func WithObserver(o Observer) Option {
	return func(f *Facade) {
		f.observer = o
	}
}

func NewFacade(factory Factory, opts ...Option) *Facade {
	f := &Facade{
		factory: factory,
		state:   Unconfigured,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Config returns the resolved configuration of the live manager.
func (f *Facade) Config() (trapconfig.Config, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return trapconfig.Config{}, false
	}
	return f.current.cfg.Clone(), true
}

// Configure binds a new manager to cfg. A live manager is torn down first,
// and its handle becomes stale.
func (f *Facade) Configure(cfg trapconfig.Config) (*Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.teardown()

	cfg = cfg.Clone()
	mgr, err := f.factory(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build collection manager")
		return nil, errors.New().Wrap(ErrInitFailed, err)
	}

	f.current = &Handle{facade: f, mgr: mgr, cfg: cfg}
	f.transition(Configured)

	logger.Info().
		Int("queue_size", cfg.QueueSize).
		Str("session_id", cfg.Reporter.SessionID.String()).
		Msg("Collection manager configured")

	return f.current, nil
}

func (f *Facade) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.start(f.current)
}

func (f *Facade) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stop(f.current)
}

// CleanUp discards the manager. It always succeeds.
func (f *Facade) CleanUp() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardown()
}

func (f *Facade) AddCustomEvent(v value.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.withManager(f.current, func(m Manager) { m.AddCustomEvent(v) })
}

func (f *Facade) AddCustomMetadata(key string, v value.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.withManager(f.current, func(m Manager) { m.AddCustomMetadata(key, v) })
}

func (f *Facade) RemoveCustomMetadata(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.withManager(f.current, func(m Manager) { m.RemoveCustomMetadata(key) })
}

// The methods below expect f.mu to be held.

func (f *Facade) start(h *Handle) error {
	if h == nil || h != f.current {
		return notConfigured()
	}

	if f.state == Running {
		return nil
	}

	if err := h.mgr.Run(); err != nil {
		logger.Error().Err(err).Msg("Collection manager failed to start")
		return errors.New().Wrap(ErrStartFailed, err)
	}

	f.transition(Running)
	return nil
}

func (f *Facade) stop(h *Handle) error {
	if h == nil || h != f.current {
		return notConfigured()
	}

	if f.state != Running {
		logger.Debug().Str("state", f.state.String()).Msg("Stop ignored, collection not running")
		return nil
	}

	h.mgr.Halt()
	f.transition(Stopped)
	return nil
}

func (f *Facade) withManager(h *Handle, fn func(Manager)) error {
	if h == nil || h != f.current {
		return notConfigured()
	}
	fn(h.mgr)
	return nil
}

func (f *Facade) teardown() {
	h := f.current
	if h == nil {
		return
	}

	h.mgr.Halt()
	if err := h.mgr.Close(); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(ErrCloseFailed, err)).Msg("Failed to close collection manager")
	}

	f.current = nil
	f.transition(Unconfigured)
}

func (f *Facade) transition(to State) {
	from := f.state
	f.state = to
	if from == to {
		return
	}

	logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Facade state changed")

	if f.observer != nil {
		f.observer(from, to)
	}
}
