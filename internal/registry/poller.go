package registry

import (
	"context"
	"time"

	"codeberg.org/mutker/bard/internal/logger"
	"codeberg.org/mutker/bard/internal/metrics"
	"codeberg.org/mutker/bard/internal/trigger"
)

// Poller asks for a full refresh every interval, but only while someone is
// listening, so idle daemons spawn no provider commands.
type Poller struct {
	registry *Registry
	queue    *trigger.Queue
	interval time.Duration
	recorder metrics.Recorder
}

func NewPoller(registry *Registry, queue *trigger.Queue, interval time.Duration, recorder metrics.Recorder) *Poller {
	if recorder == nil {
		recorder = metrics.Noop()
	}

	return &Poller{
		registry: registry,
		queue:    queue,
		interval: interval,
		recorder: recorder,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if p.registry.Len() == 0 {
				continue
			}

			if err := p.queue.Send(trigger.UpdateAll); err != nil {
				logger.Warn().Err(err).Msg("Failed to send update signal")
				continue
			}
			p.recorder.Signal(trigger.UpdateAll.String())
		}
	}
}
