// Package collection is the in-process collection manager the facade drives.
// It selects the active profile from device signals, instantiates that
// profile's collectors through the registry and feeds a bounded queue.
package collection

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/journal"
	"codeberg.org/mutker/trapbridge/internal/logger"
	"codeberg.org/mutker/trapbridge/internal/manager"
	"codeberg.org/mutker/trapbridge/internal/permission"
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"codeberg.org/mutker/trapbridge/internal/value"
	"golang.org/x/sync/errgroup"
)

const (
	journalTimeout = 2 * time.Second

	// DefaultReevaluateInterval is how often a running manager checks
	// whether device conditions call for another profile.
	DefaultReevaluateInterval = 10 * time.Second
)

type Option func(*Manager)

// WithSignals sets where device conditions come from. Without it the
// default profile is always used.
func WithSignals(s SignalSource) Option {
	return func(m *Manager) { m.signals = s }
}

// WithPlatform lets sensitive collectors run when the platform reports the
// permission as granted. Without it they are skipped.
func WithPlatform(p permission.Platform) Option {
	return func(m *Manager) { m.platform = p }
}

func WithJournal(j journal.Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithReevaluateInterval sets how often signals are polled while running.
// Zero or less disables polling.
func WithReevaluateInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

type Manager struct {
	cfg      trapconfig.Config
	registry *collector.Registry
	signals  SignalSource
	platform permission.Platform
	journal  journal.Journal
	queue    *Ring
	interval time.Duration

	mu       sync.Mutex
	running  bool
	closed   bool
	profile  trapconfig.ProfileKind
	active   []collector.Collector
	cancel   context.CancelFunc
	metadata map[string]value.Value

	watchStop chan struct{}
	watchDone chan struct{}
}

// NewFactory returns a manager.Factory building a Manager per configuration.
func NewFactory(registry *collector.Registry, opts ...Option) manager.Factory {
	return func(cfg trapconfig.Config) (manager.Manager, error) {
		return New(cfg, registry, opts...), nil
	}
}

// New builds a stopped manager. Nothing runs until Run.
func New(cfg trapconfig.Config, registry *collector.Registry, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg.Clone(),
		registry: registry,
		queue:    NewRing(cfg.QueueSize),
		interval: DefaultReevaluateInterval,
		metadata: make(map[string]value.Value),
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.QueueSize > MaxQueueSize {
		logger.Warn().
			Int("requested", cfg.QueueSize).
			Int("queue_size", m.queue.Cap()).
			Msg("Queue size capped")
	}

	logger.Debug().
		Str("session_id", m.sessionID()).
		Int("queue_size", m.queue.Cap()).
		Msg("Collection manager created")

	return m
}

func (m *Manager) Run() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New().New(ErrManagerClosed)
	}
	if m.running {
		return nil
	}

	if !m.cfg.CollectionAllowed() {
		logger.Info().
			Str("session_id", m.sessionID()).
			Str("filter", m.cfg.SessionIDFilter).
			Msg("Session excluded by filter, not collecting")
		m.running = true
		return nil
	}

	if err := m.startProfile(m.currentSignals()); err != nil {
		return err
	}
	m.running = true
	m.startWatch()
	return nil
}

func (m *Manager) Halt() {
	m.mu.Lock()
	m.stopCollectors()
	m.running = false
	stop, done := m.takeWatch()
	m.mu.Unlock()

	waitWatch(stop, done)
}

// Reevaluate switches to another profile when device conditions changed
// since collection started. It reports whether a switch happened.
func (m *Manager) Reevaluate() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || !m.cfg.CollectionAllowed() {
		return false, nil
	}

	signals := m.currentSignals()
	if m.cfg.SelectProfile(signals) == m.profile {
		return false, nil
	}

	m.stopCollectors()
	if err := m.startProfile(signals); err != nil {
		m.running = false
		return false, err
	}
	return true, nil
}

func (m *Manager) AddCustomEvent(v value.Value) {
	m.queue.Enqueue(collector.Frame{
		Type:      collector.Metadata,
		Timestamp: time.Now(),
		Payload:   value.OfDict(map[string]value.Value{"customEvent": v}),
	})
	m.record(journal.KindEvent, "", v)
}

func (m *Manager) AddCustomMetadata(key string, v value.Value) {
	m.mu.Lock()
	m.metadata[key] = v
	m.mu.Unlock()

	m.record(journal.KindMetadataSet, key, v)
}

func (m *Manager) RemoveCustomMetadata(key string) {
	m.mu.Lock()
	delete(m.metadata, key)
	m.mu.Unlock()

	m.record(journal.KindMetadataRemove, key, value.Value{})
}

func (m *Manager) Close() error {
	m.mu.Lock()
	m.stopCollectors()
	m.running = false
	m.closed = true
	stop, done := m.takeWatch()
	m.mu.Unlock()

	waitWatch(stop, done)

	logger.Debug().Str("session_id", m.sessionID()).Int("queued", m.queue.Len()).Msg("Collection manager closed")
	return nil
}

// Metadata returns a copy of the custom metadata currently attached.
func (m *Manager) Metadata() map[string]value.Value {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]value.Value, len(m.metadata))
	for k, v := range m.metadata {
		out[k] = v
	}
	return out
}

func (m *Manager) Queue() *Ring { return m.queue }

func (m *Manager) Config() trapconfig.Config { return m.cfg.Clone() }

// Profile returns the active profile, or "" when nothing is collecting.
func (m *Manager) Profile() trapconfig.ProfileKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Active lists the types of the collectors currently started.
func (m *Manager) Active() []collector.Type {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]collector.Type, len(m.active))
	for i, c := range m.active {
		out[i] = c.Type()
	}
	return out
}

// startProfile starts every permitted collector of the profile selected by
// signals. Either all of them start or none stays running. Callers hold m.mu.
func (m *Manager) startProfile(signals trapconfig.Signals) error {
	errFactory := errors.New()

	kind := m.cfg.SelectProfile(signals)
	profile := m.cfg.Profile(kind)

	collectors := make([]collector.Collector, 0, len(profile.Collectors))
	for _, t := range profile.Collectors {
		d, err := m.registry.Get(t)
		if err != nil {
			logger.Warn().Str("collector", string(t)).Msg("Skipping unknown collector in profile")
			continue
		}
		if d.RequiresPermission && (m.platform == nil || !m.platform.CheckPermission(t)) {
			logger.Debug().Str("collector", string(t)).Msg("Permission not granted, skipping collector")
			continue
		}

		c, err := d.Instance(m.queue)
		if err != nil {
			stopAll(collectors)
			return errFactory.Wrap(ErrCollectorStart, err)
		}
		collectors = append(collectors, c)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range collectors {
		g.Go(func() error {
			return c.Start(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		cancel()
		stopAll(collectors)
		return errFactory.Wrap(ErrCollectorStart, err)
	}

	m.active = collectors
	m.cancel = cancel
	m.profile = kind

	logger.Info().
		Str("profile", string(kind)).
		Int("collectors", len(collectors)).
		Msg("Collection started")

	return nil
}

// startWatch launches the goroutine polling signals. Callers hold m.mu.
func (m *Manager) startWatch() {
	if m.interval <= 0 || m.signals == nil || m.watchStop != nil {
		return
	}

	m.watchStop = make(chan struct{})
	m.watchDone = make(chan struct{})
	go m.watch(m.interval, m.watchStop, m.watchDone)
}

// takeWatch detaches the polling goroutine's channels. Callers hold m.mu and
// must pass the result to waitWatch after releasing it.
func (m *Manager) takeWatch() (chan struct{}, chan struct{}) {
	stop, done := m.watchStop, m.watchDone
	m.watchStop, m.watchDone = nil, nil
	return stop, done
}

func waitWatch(stop, done chan struct{}) {
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (m *Manager) watch(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			switched, err := m.Reevaluate()
			if err != nil {
				logger.Error().Err(err).Msg("Failed to switch collection profile")
				continue
			}
			if switched {
				logger.Debug().Str("profile", string(m.Profile())).Msg("Collection profile switched")
			}
		}
	}
}

// stopCollectors stops whatever is active. Callers hold m.mu.
func (m *Manager) stopCollectors() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	stopAll(m.active)
	m.active = nil
	m.profile = ""
}

func stopAll(collectors []collector.Collector) {
	for _, c := range collectors {
		if err := c.Stop(); err != nil {
			logger.ErrorWithCode(errors.New().Wrap(ErrCollectorStop, err)).
				Str("collector", string(c.Type())).
				Msg("Failed to stop collector")
		}
	}
}

func (m *Manager) currentSignals() trapconfig.Signals {
	if m.signals == nil {
		return trapconfig.UnknownSignals()
	}
	return m.signals.Signals()
}

func (m *Manager) sessionID() string {
	return m.cfg.Reporter.SessionID.String()
}

func (m *Manager) record(kind journal.Kind, key string, v value.Value) {
	if m.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	if err := m.journal.Record(ctx, &journal.Entry{
		Kind:      kind,
		SessionID: m.sessionID(),
		Key:       key,
		Value:     v,
	}); err != nil {
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to journal custom data")
	}
}
