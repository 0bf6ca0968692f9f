// Package trigger carries "recompute and push" signals from connection
// handlers and the poller to the broadcast task.
package trigger

import (
	"context"
	"sync"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/protocol"
)

// Signal asks the broadcast task to refresh listeners.
type Signal uint8

const (
	UpdateVolume Signal = iota
	UpdateBrightness
	UpdateBluetooth
	UpdateBattery
	UpdateRam
	UpdateFanProfile
	UpdateAll
)

func (s Signal) String() string {
	switch s {
	case UpdateVolume:
		return "update_volume"
	case UpdateBrightness:
		return "update_brightness"
	case UpdateBluetooth:
		return "update_bluetooth"
	case UpdateBattery:
		return "update_battery"
	case UpdateRam:
		return "update_ram"
	case UpdateFanProfile:
		return "update_fan_profile"
	case UpdateAll:
		return "update_all"
	default:
		return "unknown"
	}
}

// ForItem returns the signal matching the provider addressed by item.
func ForItem(item protocol.Item) Signal {
	switch item.Kind {
	case protocol.KindVolume:
		return UpdateVolume
	case protocol.KindBrightness:
		return UpdateBrightness
	case protocol.KindBluetooth:
		return UpdateBluetooth
	case protocol.KindBattery:
		return UpdateBattery
	case protocol.KindRam:
		return UpdateRam
	case protocol.KindFanProfile:
		return UpdateFanProfile
	default:
		return UpdateAll
	}
}

// Queue is an unbounded multi-producer, single-consumer signal queue.
// Send never blocks.
type Queue struct {
	mu      sync.Mutex
	pending []Signal
	closed  bool
	// ready holds a token while pending is non-empty or the queue is closed.
	ready chan struct{}
}

func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Send enqueues s. It fails with ErrChannelClosed once the queue is closed.
func (q *Queue) Send(s Signal) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.New().WithData(errors.ErrChannelClosed, s.String())
	}

	q.pending = append(q.pending, s)
	q.wake()

	return nil
}

// Recv blocks until a signal is available, the queue is closed, or ctx is
// done. Pending signals are still delivered after Close.
func (q *Queue) Recv(ctx context.Context) (Signal, error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			s := q.pending[0]
			q.pending = q.pending[1:]
			if len(q.pending) > 0 {
				q.wake()
			}
			q.mu.Unlock()
			return s, nil
		}
		if q.closed {
			q.mu.Unlock()
			return 0, errors.New().New(errors.ErrChannelClosed)
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-q.ready:
		}
	}
}

// Drain removes and returns every pending signal without blocking.
func (q *Queue) Drain() []Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.pending
	q.pending = nil

	return drained
}

// Len returns the number of pending signals.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Close stops accepting signals and wakes a blocked Recv.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.wake()
}

// wake must be called with mu held.
func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
