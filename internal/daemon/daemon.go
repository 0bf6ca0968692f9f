// Package daemon wires the providers, the socket server and the broadcast
// tasks together and runs them until shutdown.
package daemon

import (
	"context"
	"os"

	"codeberg.org/mutker/bard/internal/command"
	"codeberg.org/mutker/bard/internal/config"
	"codeberg.org/mutker/bard/internal/dispatch"
	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
	"codeberg.org/mutker/bard/internal/metrics"
	"codeberg.org/mutker/bard/internal/notify"
	"codeberg.org/mutker/bard/internal/pid"
	"codeberg.org/mutker/bard/internal/protocol"
	"codeberg.org/mutker/bard/internal/provider"
	"codeberg.org/mutker/bard/internal/registry"
	"codeberg.org/mutker/bard/internal/retry"
	"codeberg.org/mutker/bard/internal/server"
	"codeberg.org/mutker/bard/internal/trigger"
	"golang.org/x/sync/errgroup"
)

type Daemon struct {
	cfg       *config.Config
	providers *provider.Providers
	recorder  metrics.Recorder
}

type Option func(*Daemon)

// WithProviders replaces the providers backed by external tools.
func WithProviders(p provider.Providers) Option {
	return func(d *Daemon) {
		d.providers = &p
	}
}

// WithRecorder replaces the recorder built from the configuration.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Daemon) {
		d.recorder = r
	}
}

func New(cfg *config.Config, opts ...Option) (*Daemon, error) {
	errFactory := errors.New()

	if cfg == nil {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}

	if d.recorder == nil {
		mcfg := metrics.DefaultConfig()
		mcfg.Addr = cfg.MetricsAddr

		recorder, err := metrics.NewService(mcfg)
		if err != nil {
			return nil, err
		}
		d.recorder = recorder
	}

	if d.providers == nil {
		runner := command.NewExec()
		p := provider.New(provider.Options{
			Runner:         runner,
			Notifier:       notify.NewDunst(runner, cfg.NotificationID, cfg.NotificationTimeout),
			IconSuffix:     cfg.IconSuffix,
			MonitorDevice:  cfg.MonitorDevice,
			KeyboardDevice: cfg.KeyboardDevice,
		})
		d.providers = &p
	}

	return d, nil
}

func (d *Daemon) retryPolicy() retry.Policy {
	return retry.Policy{
		Amount:  d.cfg.RetryAmount,
		Timeout: d.cfg.RetryTimeout,
	}
}

// Run blocks until ctx is done or a task fails. The pid file and socket
// are removed and every listener connection is closed before it returns.
func (d *Daemon) Run(ctx context.Context) error {
	errFactory := errors.New()

	if d.cfg.PIDFile != "" {
		if err := pid.Write(d.cfg.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := pid.Remove(d.cfg.PIDFile); err != nil {
				logger.Warn().Err(err).Msg("Failed to remove pid file")
			}
		}()
	}

	dispatcher := dispatch.New(*d.providers, d.recorder)

	// without an initial state there is nothing meaningful to serve
	initial, err := retry.Do(d.retryPolicy(), func() ([]protocol.Group, error) {
		return dispatcher.Snapshot(ctx)
	})
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err).WithMessage("failed to load initial state")
	}
	logger.Debug().Int("providers", len(initial)).Msg("Initial state loaded")

	ln, err := server.Listen(d.cfg.Socket)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(d.cfg.Socket); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Msg("Failed to remove socket")
		}
	}()

	reg := registry.New(d.recorder)
	defer reg.Close()

	queue := trigger.NewQueue()
	defer queue.Close()

	srv := server.New(server.Config{BufferSize: d.cfg.BufferSize}, dispatcher, reg, queue, d.recorder)
	broadcaster := registry.NewBroadcaster(reg, queue, dispatcher.Snapshot, registry.BroadcasterConfig{
		Retry:        d.retryPolicy(),
		WriteTimeout: d.cfg.WriteTimeout,
	}, d.recorder)
	poller := registry.NewPoller(reg, queue, d.cfg.PollInterval, d.recorder)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx, ln) })
	g.Go(func() error { return broadcaster.Run(gctx) })
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return d.recorder.Serve(gctx) })

	logger.Info().Str("socket", d.cfg.Socket).Msg("Daemon started")

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("Daemon stopped")

	return nil
}
