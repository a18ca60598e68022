package bridge_test

import (
	"context"
	"sync"
	"testing"

	"codeberg.org/mutker/trapbridge/internal/bridge"
	"codeberg.org/mutker/trapbridge/internal/collection"
	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/journal"
	"codeberg.org/mutker/trapbridge/internal/manager"
	"codeberg.org/mutker/trapbridge/internal/permission"
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"codeberg.org/mutker/trapbridge/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubManager struct {
	events   []value.Value
	metadata map[string]value.Value
}

func (*stubManager) Run() error { return nil }
func (*stubManager) Halt()      {}

func (m *stubManager) AddCustomEvent(v value.Value) { m.events = append(m.events, v) }

func (m *stubManager) AddCustomMetadata(key string, v value.Value) { m.metadata[key] = v }

func (m *stubManager) RemoveCustomMetadata(key string) { delete(m.metadata, key) }

func (*stubManager) Close() error { return nil }

type countingPlatform struct {
	mu       sync.Mutex
	checks   int
	requests int
	granted  map[collector.Type]bool
}

func (p *countingPlatform) CheckPermission(t collector.Type) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks++
	return p.granted[t]
}

func (p *countingPlatform) RequestPermission(t collector.Type) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	p.granted[t] = true
}

type fixture struct {
	bridge   *bridge.Bridge
	facade   *manager.Facade
	platform *countingPlatform
	managers []*stubManager
}

func newFixture(t *testing.T, opts ...bridge.Option) *fixture {
	t.Helper()
	f := &fixture{platform: &countingPlatform{granted: map[collector.Type]bool{}}}

	f.facade = manager.NewFacade(func(trapconfig.Config) (manager.Manager, error) {
		m := &stubManager{metadata: map[string]value.Value{}}
		f.managers = append(f.managers, m)
		return m, nil
	})
	gate := permission.NewGate(collector.NewRegistry(nil), f.platform)
	f.bridge = bridge.New(f.facade, gate, opts...)
	return f
}

func (f *fixture) invoke(t *testing.T, method, payload string) (bridge.Result, error) {
	t.Helper()
	return f.bridge.Invoke(method, []byte(payload))
}

func assertCode(t *testing.T, err error, code errors.ErrorCode, message string) {
	t.Helper()
	require.Error(t, err)
	rej := bridge.RejectionOf(err)
	assert.Equal(t, string(code), rej.Code)
	assert.Equal(t, message, rej.Message)
}

func TestConfigureMergesOntoBaseline(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "configure", `{"config":{"queueSize":500}}`)
	require.NoError(t, err)

	cfg, ok := f.facade.Config()
	require.True(t, ok)
	assert.Equal(t, 500, cfg.QueueSize)
	assert.InDelta(t, 0.1, cfg.LowBatteryThreshold, 1e-9)
	assert.Equal(t, manager.Configured, f.facade.State())
}

func TestConfigureKeepsBaselineForMismatchedFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "configure", `{"config":{"queueSize":"many","reporter":{"compress":true}}}`)
	require.NoError(t, err)

	cfg, _ := f.facade.Config()
	assert.Equal(t, trapconfig.DefaultQueueSize, cfg.QueueSize)
	assert.True(t, cfg.Reporter.Compress)
}

func TestConfigureRequiresConfig(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "configure", `{}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'config' is not set")
	assert.Equal(t, manager.Unconfigured, f.facade.State())
}

func TestCallsBeforeConfigure(t *testing.T) {
	f := newFixture(t)
	const msg = "Plugin is not configured. Call configure first"

	_, err := f.invoke(t, "addCustomEvent", `{"event":{"a":1,"b":"x"}}`)
	assertCode(t, err, errors.ErrNotConfigured, msg)

	_, err = f.invoke(t, "addCustomMetadata", `{"key":"k","value":"v"}`)
	assertCode(t, err, errors.ErrNotConfigured, msg)

	_, err = f.invoke(t, "removeCustomMetadata", `{"key":"k"}`)
	assertCode(t, err, errors.ErrNotConfigured, msg)

	_, err = f.invoke(t, "start", ``)
	assertCode(t, err, errors.ErrNotConfigured, msg)

	_, err = f.invoke(t, "stop", ``)
	assertCode(t, err, errors.ErrNotConfigured, msg)

	_, err = f.invoke(t, "cleanUp", ``)
	require.NoError(t, err)
}

func TestArgumentValidationComesFirst(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "addCustomEvent", `{}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'event' is not set")

	_, err = f.invoke(t, "addCustomEvent", `{"event":null}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'event' is not set")

	_, err = f.invoke(t, "addCustomMetadata", `{"key":"","value":1}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'key' is not set")

	_, err = f.invoke(t, "addCustomMetadata", `{"key":"k"}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'value' is not set")

	_, err = f.invoke(t, "removeCustomMetadata", `{}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'key' is not set")

	_, err = f.invoke(t, "checkPermission", `{"collector":""}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'collector' is not set")

	_, err = f.invoke(t, "requestPermission", `{}`)
	assertCode(t, err, errors.ErrCallValidation, "Required property 'collector' is not set")
}

func TestUnsupportedCollectorInEveryState(t *testing.T) {
	f := newFixture(t)

	check := func() {
		_, err := f.invoke(t, "checkPermission", `{"collector":"Unsupported"}`)
		assertCode(t, err, errors.ErrUnknownCollector, "Not supported collector Unsupported")
		_, err = f.invoke(t, "requestPermission", `{"collector":"Unsupported"}`)
		assertCode(t, err, errors.ErrUnknownCollector, "Not supported collector Unsupported")
	}

	check()
	_, err := f.invoke(t, "configure", `{"config":{}}`)
	require.NoError(t, err)
	check()
	_, err = f.invoke(t, "start", ``)
	require.NoError(t, err)
	check()
	_, err = f.invoke(t, "stop", ``)
	require.NoError(t, err)
	check()
}

func TestPermissionCalls(t *testing.T) {
	f := newFixture(t)

	res, err := f.invoke(t, "checkPermission", `{"collector":"Accelerometer"}`)
	require.NoError(t, err)
	assert.Equal(t, bridge.Result{"result": true}, res)

	_, err = f.invoke(t, "requestPermission", `{"collector":"Accelerometer"}`)
	require.NoError(t, err)
	assert.Zero(t, f.platform.checks)
	assert.Zero(t, f.platform.requests)

	res, err = f.invoke(t, "checkPermission", `{"collector":"WiFi"}`)
	require.NoError(t, err)
	assert.Equal(t, bridge.Result{"result": false}, res)

	_, err = f.invoke(t, "requestPermission", `{"collector":"WiFi"}`)
	require.NoError(t, err)

	res, err = f.invoke(t, "checkPermission", `{"collector":"WiFi"}`)
	require.NoError(t, err)
	assert.Equal(t, bridge.Result{"result": true}, res)
	assert.Equal(t, 1, f.platform.requests)
}

func TestCustomDataAfterConfigure(t *testing.T) {
	f := newFixture(t)
	_, err := f.invoke(t, "configure", `{"config":{}}`)
	require.NoError(t, err)

	_, err = f.invoke(t, "addCustomEvent", `{"event":{"count":1,"ratio":1.5,"ok":true,"tags":["a"]}}`)
	require.NoError(t, err)
	_, err = f.invoke(t, "addCustomMetadata", `{"key":"user","value":"alice"}`)
	require.NoError(t, err)
	_, err = f.invoke(t, "addCustomMetadata", `{"key":"plan","value":3}`)
	require.NoError(t, err)
	_, err = f.invoke(t, "removeCustomMetadata", `{"key":"user"}`)
	require.NoError(t, err)

	require.Len(t, f.managers, 1)
	m := f.managers[0]
	require.Len(t, m.events, 1)

	event, ok := m.events[0].Dict()
	require.True(t, ok)
	assert.Equal(t, value.Int, event["count"].Kind())
	assert.Equal(t, value.Float, event["ratio"].Kind())
	assert.Equal(t, value.Bool, event["ok"].Kind())
	assert.Equal(t, value.Array, event["tags"].Kind())

	assert.Equal(t, map[string]value.Value{"plan": value.OfInt(3)}, m.metadata)
}

func TestYAMLAdapter(t *testing.T) {
	f := newFixture(t, bridge.WithAdapter(bridge.YAMLAdapter{}))

	_, err := f.invoke(t, "configure", "config:\n  queueSize: 42\n  reporter:\n    compress: true\n")
	require.NoError(t, err)

	cfg, ok := f.facade.Config()
	require.True(t, ok)
	assert.Equal(t, 42, cfg.QueueSize)
	assert.True(t, cfg.Reporter.Compress)
}

func TestInvokeArgsWithNativeValues(t *testing.T) {
	f := newFixture(t, bridge.WithAdapter(bridge.NativeAdapter{}))

	_, err := f.bridge.InvokeArgs("configure", bridge.Args{
		"config": map[string]any{"queueSize": int64(64)},
	})
	require.NoError(t, err)
	cfg, _ := f.facade.Config()
	assert.Equal(t, 64, cfg.QueueSize)

	_, err = f.invoke(t, "start", "")
	require.NoError(t, err)
	assert.Equal(t, manager.Running, f.facade.State())
}

func TestMalformedPayload(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "configure", `{"config":`)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, bridge.ErrDecodePayload))
}

func TestUnknownMethod(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoke(t, "teleport", `{}`)
	assertCode(t, err, errors.ErrNotImplemented, "Method teleport is not implemented")
}

func TestWithBaseline(t *testing.T) {
	f := newFixture(t, bridge.WithBaseline(func() trapconfig.Config {
		cfg := trapconfig.Default()
		cfg.QueueSize = 77
		return cfg
	}))

	_, err := f.invoke(t, "configure", `{"config":{"lowBatteryThreshold":0.3}}`)
	require.NoError(t, err)

	cfg, _ := f.facade.Config()
	assert.Equal(t, 77, cfg.QueueSize)
	assert.InDelta(t, 0.3, cfg.LowBatteryThreshold, 1e-9)
}

func TestLifecycleObserverJournalsTransitions(t *testing.T) {
	cfg := journal.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = t.TempDir() + "/journal.db"
	j, err := journal.NewService(cfg)
	require.NoError(t, err)
	defer j.Close()

	facade := manager.NewFacade(func(trapconfig.Config) (manager.Manager, error) {
		return &stubManager{metadata: map[string]value.Value{}}, nil
	}, manager.WithObserver(bridge.LifecycleObserver(j)))
	b := bridge.New(facade, permission.NewGate(collector.NewRegistry(nil), permission.NewStatic()))

	_, err = b.Invoke("configure", []byte(`{"config":{}}`))
	require.NoError(t, err)
	_, err = b.Invoke("start", nil)
	require.NoError(t, err)
	_, err = b.Invoke("cleanUp", nil)
	require.NoError(t, err)

	entries, err := j.Entries(context.Background(), journal.KindLifecycle)
	require.NoError(t, err)

	var seen []string
	for _, e := range entries {
		s, _ := e.Value.Str()
		seen = append(seen, s)
	}
	assert.Equal(t, []string{"configured", "running", "unconfigured"}, seen)
}

func TestConfigureHugeQueueSizeIsBounded(t *testing.T) {
	registry := collector.NewRegistry(nil)
	var built []*collection.Manager
	factory := collection.NewFactory(registry)
	facade := manager.NewFacade(func(cfg trapconfig.Config) (manager.Manager, error) {
		m, err := factory(cfg)
		if err == nil {
			built = append(built, m.(*collection.Manager))
		}
		return m, err
	})
	b := bridge.New(facade, permission.NewGate(registry, permission.NewStatic()))

	_, err := b.Invoke("configure", []byte(`{"config":{"queueSize":1099511627776}}`))
	require.NoError(t, err)
	_, err = b.Invoke("start", nil)
	require.NoError(t, err)
	_, err = b.Invoke("addCustomEvent", []byte(`{"event":"tap"}`))
	require.NoError(t, err)

	require.Len(t, built, 1)
	assert.Equal(t, collection.MaxQueueSize, built[0].Queue().Cap())
	assert.Equal(t, 1, built[0].Queue().Len())

	_, err = b.Invoke("cleanUp", nil)
	require.NoError(t, err)
}
