package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/trapbridge/internal/bridge"
	"codeberg.org/mutker/trapbridge/internal/collection"
	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/config"
	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/journal"
	"codeberg.org/mutker/trapbridge/internal/logger"
	"codeberg.org/mutker/trapbridge/internal/manager"
	"codeberg.org/mutker/trapbridge/internal/permission"
	"codeberg.org/mutker/trapbridge/internal/pid"
	"codeberg.org/mutker/trapbridge/internal/telemetry"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

type host struct {
	cfg     *config.Config
	journal journal.Journal
	facade  *manager.Facade
	bridge  *bridge.Bridge
	signals *collection.StaticSignals
	metrics *http.Server
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithWriter(os.Stderr, cfg.Debug, cfg.Verbose, logger.IsService())
	logger.SetLogLevel(cfg.LogLevelValue())
	logger.Debug().Str("config_file", cfg.ConfigFile).Msg("Config loaded")

	if err := run(cfg); err != nil {
		if e, ok := err.(errors.Error); ok {
			logger.ErrorWithCode(e).Msg("Exiting with error")
		} else {
			logger.Error().Err(err).Msg("Exiting with error")
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	h, err := newHost(cfg)
	if err != nil {
		return err
	}
	defer h.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, cancel, func() {
		next, err := config.Load(os.Args[1:])
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to reload config, keeping device signals")
			return
		}
		h.reload(next)
	})

	h.serveMetrics()

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, os.Stdin, os.Stdout, h.bridge)
	}()

	logger.Info().Str("format", cfg.Format).Msg("Bridge ready")

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

func newHost(cfg *config.Config) (*host, error) {
	j, err := journal.NewService(cfg.JournalConfig())
	if err != nil {
		return nil, err
	}

	adapter, ok := bridge.AdapterFor(cfg.Format)
	if !ok {
		j.Close()
		return nil, errors.New().WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "format",
			Value: cfg.Format,
		})
	}

	registry := collector.NewRegistry(nil)
	platform := permission.NewStatic(cfg.Granted()...)
	signals := collection.NewStaticSignals(cfg.Signals())

	factory := collection.NewFactory(registry,
		collection.WithSignals(signals),
		collection.WithPlatform(platform),
		collection.WithJournal(j),
		collection.WithReevaluateInterval(cfg.ReevaluateEvery()),
	)
	facade := manager.NewFacade(factory, manager.WithObserver(bridge.LifecycleObserver(j)))

	return &host{
		cfg:     cfg,
		journal: j,
		facade:  facade,
		bridge:  bridge.New(facade, permission.NewGate(registry, platform), bridge.WithAdapter(adapter)),
		signals: signals,
	}, nil
}

// reload applies the device signals of freshly loaded settings. A running
// manager picks them up on its next profile check.
func (h *host) reload(cfg *config.Config) {
	h.signals.Set(cfg.Signals())
	logger.Info().
		Float64("battery_level", cfg.BatteryLevel).
		Bool("charging", cfg.Charging).
		Bool("low_data", cfg.LowData).
		Msg("Device signals reloaded")
}

func (h *host) serveMetrics() {
	if h.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	h.metrics = &http.Server{
		Addr:              h.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", h.cfg.MetricsAddr).Msg("Serving metrics")
		if err := h.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

func (h *host) cleanup() {
	h.facade.CleanUp()

	if h.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := h.metrics.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}

	if err := h.journal.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close journal")
	}

	logger.Info().Msg("Exiting...")
}

// handleSignals cancels ctx on SIGINT or SIGTERM and calls reload on SIGHUP.
func handleSignals(ctx context.Context, cancel context.CancelFunc, reload func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				logger.Info().Msg("Received reload signal.")
				reload()
				continue
			}
			logger.Info().Msg("Received termination signal.")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
