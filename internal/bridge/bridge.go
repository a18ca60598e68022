// Package bridge exposes the facade and the permission gate as named calls
// with loosely typed arguments, the way a host platform invokes them.
package bridge

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/journal"
	"codeberg.org/mutker/trapbridge/internal/logger"
	"codeberg.org/mutker/trapbridge/internal/manager"
	"codeberg.org/mutker/trapbridge/internal/permission"
	"codeberg.org/mutker/trapbridge/internal/telemetry"
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"codeberg.org/mutker/trapbridge/internal/value"
)

// Call names as hosts send them.
const (
	MethodConfigure            = "configure"
	MethodStart                = "start"
	MethodStop                 = "stop"
	MethodCleanUp              = "cleanUp"
	MethodCheckPermission      = "checkPermission"
	MethodRequestPermission    = "requestPermission"
	MethodAddCustomEvent       = "addCustomEvent"
	MethodAddCustomMetadata    = "addCustomMetadata"
	MethodRemoveCustomMetadata = "removeCustomMetadata"
)

// Result is the payload of a successful call; nil for calls that return
// nothing.
type Result map[string]any

type Option func(*Bridge)

func WithAdapter(a Adapter) Option {
	return func(b *Bridge) { b.adapter = a }
}

// WithBaseline replaces trapconfig.Default as the source of the baseline
// each configure call merges onto.
func WithBaseline(fn func() trapconfig.Config) Option {
	return func(b *Bridge) { b.baseline = fn }
}

type Bridge struct {
	mu       sync.Mutex
	facade   *manager.Facade
	gate     *permission.Gate
	adapter  Adapter
	baseline func() trapconfig.Config
}

func New(facade *manager.Facade, gate *permission.Gate, opts ...Option) *Bridge {
	b := &Bridge{
		facade:   facade,
		gate:     gate,
		adapter:  JSONAdapter{},
		baseline: trapconfig.Default,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Invoke decodes payload with the bridge adapter and runs method.
func (b *Bridge) Invoke(method string, payload []byte) (Result, error) {
	args, err := b.adapter.Decode(payload)
	if err != nil {
		observe(method, err)
		return nil, err
	}
	return b.InvokeArgs(method, args)
}

// InvokeArgs runs method with already decoded arguments.
func (b *Bridge) InvokeArgs(method string, args Args) (Result, error) {
	switch method {
	case MethodConfigure:
		return nil, b.Configure(args)
	case MethodStart:
		return nil, b.Start()
	case MethodStop:
		return nil, b.Stop()
	case MethodCleanUp:
		return nil, b.CleanUp()
	case MethodCheckPermission:
		return b.CheckPermission(args)
	case MethodRequestPermission:
		return nil, b.RequestPermission(args)
	case MethodAddCustomEvent:
		return nil, b.AddCustomEvent(args)
	case MethodAddCustomMetadata:
		return nil, b.AddCustomMetadata(args)
	case MethodRemoveCustomMetadata:
		return nil, b.RemoveCustomMetadata(args)
	default:
		err := errors.New().WithMessage(ErrNotImplemented, "Method "+method+" is not implemented")
		observe("unknown", err)
		return nil, err
	}
}

// Configure merges args["config"] onto the baseline and hands the result to
// the facade. Mistyped entries are dropped; the call still succeeds.
func (b *Bridge) Configure(args Args) error {
	return b.exec(MethodConfigure, func() error {
		raw, err := args.RequireObject("config")
		if err != nil {
			return err
		}

		override, discards := DecodeOverride(raw)
		cfg := trapconfig.Merge(b.baseline(), override)

		if _, err := b.facade.Configure(cfg); err != nil {
			return err
		}

		logger.Info().
			Str("session_id", cfg.Reporter.SessionID.String()).
			Int("queue_size", cfg.QueueSize).
			Int("discarded", len(discards)).
			Msg("Configured")
		return nil
	})
}

func (b *Bridge) Start() error {
	return b.exec(MethodStart, b.facade.Start)
}

func (b *Bridge) Stop() error {
	return b.exec(MethodStop, b.facade.Stop)
}

func (b *Bridge) CleanUp() error {
	return b.exec(MethodCleanUp, func() error {
		b.facade.CleanUp()
		return nil
	})
}

func (b *Bridge) CheckPermission(args Args) (Result, error) {
	var res Result
	err := b.exec(MethodCheckPermission, func() error {
		tag, err := args.RequireString("collector")
		if err != nil {
			return err
		}
		granted, err := b.gate.CheckPermission(tag)
		if err != nil {
			return err
		}
		res = Result{"result": granted}
		return nil
	})
	return res, err
}

// RequestPermission returns once the platform flow has finished. The
// outcome is read with CheckPermission.
func (b *Bridge) RequestPermission(args Args) error {
	return b.exec(MethodRequestPermission, func() error {
		tag, err := args.RequireString("collector")
		if err != nil {
			return err
		}
		return b.gate.RequestPermission(tag)
	})
}

func (b *Bridge) AddCustomEvent(args Args) error {
	return b.exec(MethodAddCustomEvent, func() error {
		event, err := args.RequireValue("event")
		if err != nil {
			return err
		}
		return b.facade.AddCustomEvent(event)
	})
}

func (b *Bridge) AddCustomMetadata(args Args) error {
	return b.exec(MethodAddCustomMetadata, func() error {
		key, err := args.RequireString("key")
		if err != nil {
			return err
		}
		v, err := args.RequireValue("value")
		if err != nil {
			return err
		}
		return b.facade.AddCustomMetadata(key, v)
	})
}

func (b *Bridge) RemoveCustomMetadata(args Args) error {
	return b.exec(MethodRemoveCustomMetadata, func() error {
		key, err := args.RequireString("key")
		if err != nil {
			return err
		}
		return b.facade.RemoveCustomMetadata(key)
	})
}

// exec runs one call with the bridge locked and records its outcome.
func (b *Bridge) exec(method string, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := fn()
	observe(method, err)
	return err
}

func observe(method string, err error) {
	if err == nil {
		telemetry.ObserveCall(method, telemetry.OutcomeOK)
		return
	}

	code := errors.CodeOf(err)
	telemetry.ObserveCall(method, telemetry.OutcomeRejected)
	telemetry.ObserveRejection(string(code))

	logger.Debug().
		Str("method", method).
		Str("code", string(code)).
		Err(err).
		Msg("Call rejected")
}

var states = []string{
	manager.Unconfigured.String(),
	manager.Configured.String(),
	manager.Running.String(),
	manager.Stopped.String(),
}

// LifecycleObserver mirrors facade transitions into the state gauge and,
// when j is not nil, into the journal.
func LifecycleObserver(j journal.Journal) manager.Observer {
	telemetry.SetState(manager.Unconfigured.String(), states...)

	return func(from, to manager.State) {
		telemetry.SetState(to.String(), states...)

		if j == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := j.Record(ctx, &journal.Entry{
			Kind:  journal.KindLifecycle,
			Key:   from.String(),
			Value: value.OfString(to.String()),
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to journal lifecycle transition")
		}
	}
}
