package registry

import (
	"context"
	"encoding/json"
	"time"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
	"codeberg.org/mutker/bard/internal/metrics"
	"codeberg.org/mutker/bard/internal/protocol"
	"codeberg.org/mutker/bard/internal/retry"
	"codeberg.org/mutker/bard/internal/trigger"
)

// SnapshotFunc computes the global snapshot.
type SnapshotFunc func(ctx context.Context) ([]protocol.Group, error)

type BroadcasterConfig struct {
	Retry        retry.Policy
	WriteTimeout time.Duration
}

// Broadcaster is the single task that writes to registered listeners.
type Broadcaster struct {
	registry *Registry
	queue    *trigger.Queue
	snapshot SnapshotFunc
	cfg      BroadcasterConfig
	recorder metrics.Recorder
}

func NewBroadcaster(
	registry *Registry,
	queue *trigger.Queue,
	snapshot SnapshotFunc,
	cfg BroadcasterConfig,
	recorder metrics.Recorder,
) *Broadcaster {
	if recorder == nil {
		recorder = metrics.Noop()
	}

	return &Broadcaster{
		registry: registry,
		queue:    queue,
		snapshot: snapshot,
		cfg:      cfg,
		recorder: recorder,
	}
}

// Run consumes signals until ctx is done or the queue is closed. Signals
// that arrive while a snapshot is being pushed are handled by one more push.
// Every signal results in a push of the full snapshot, whatever provider it
// names.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		s, err := b.queue.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.HasCode(err, errors.ErrChannelClosed) {
				return nil
			}
			return err
		}

		coalesced := b.queue.Drain()

		if b.registry.Len() == 0 {
			continue
		}

		logger.Debug().Str("signal", s.String()).Int("coalesced", len(coalesced)).Msg("Broadcasting snapshot")
		b.push(ctx)
	}
}

func (b *Broadcaster) push(ctx context.Context) {
	start := time.Now()
	groups, err := retry.DoContext[[]protocol.Group](ctx, b.cfg.Retry, b.snapshot)
	b.recorder.Snapshot(time.Since(start), err)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn().Err(err).Msg("Failed to compute snapshot, skipping broadcast")
		}
		return
	}

	payload, err := EncodeSnapshot(groups)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to encode snapshot")
		return
	}

	delivered := b.registry.Broadcast(payload, b.cfg.WriteTimeout)
	b.recorder.Broadcast(delivered)
}

// EncodeSnapshot renders groups as one line of JSON,
// {"provider":{"name":"value",...},...}, terminated by a newline. Object
// keys are sorted, so equal snapshots encode to equal bytes.
func EncodeSnapshot(groups []protocol.Group) ([]byte, error) {
	doc := make(map[string]map[string]string, len(groups))
	for _, g := range groups {
		fields := make(map[string]string, len(g.Tuples))
		for _, t := range g.Tuples {
			fields[t.Name] = t.Value
		}
		doc[g.Name] = fields
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrEncode, err)
	}

	return append(data, '\n'), nil
}
