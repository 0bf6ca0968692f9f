// Package registry holds listener connections and pushes snapshots to them.
package registry

import (
	"net"
	"sync"
	"time"

	"codeberg.org/mutker/bard/internal/logger"
	"codeberg.org/mutker/bard/internal/metrics"
	"github.com/google/uuid"
)

// Client is a connection that switched to listener mode. Once registered
// the registry owns the connection: only Broadcast writes to it and only
// the registry closes it.
type Client struct {
	ID   uuid.UUID
	conn net.Conn
}

type Registry struct {
	mu       sync.Mutex
	clients  map[uuid.UUID]*Client
	closed   bool
	recorder metrics.Recorder
	log      logger.Logger
}

type Option func(*Registry)

// WithLogger sets the logger used for listener events.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

func New(recorder metrics.Recorder, opts ...Option) *Registry {
	if recorder == nil {
		recorder = metrics.Noop()
	}

	r := &Registry{
		clients:  make(map[uuid.UUID]*Client),
		recorder: recorder,
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register takes ownership of conn. The caller must not use conn afterwards.
// After Close the connection is closed immediately.
func (r *Registry) Register(conn net.Conn) uuid.UUID {
	id := uuid.New()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.Close()
		return id
	}
	r.clients[id] = &Client{ID: id, conn: conn}
	n := len(r.clients)
	r.mu.Unlock()

	r.recorder.Listeners(n)
	r.log.Info().Str("id", id.String()).Int("listeners", n).Msg("Listener registered")

	return id
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}

// Broadcast writes payload to every listener concurrently and returns how
// many writes succeeded. Each write is bounded by writeTimeout, so a stalled
// listener delays the cycle by at most one timeout. Listeners whose write
// fails are removed and closed once all writes are done. The lock is not
// held while writing.
func (r *Registry) Broadcast(payload []byte, writeTimeout time.Duration) int {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []uuid.UUID
	)
	for _, c := range clients {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := write(c.conn, payload, writeTimeout); err != nil {
				r.log.Debug().Err(err).Str("id", c.ID.String()).Msg("Failed to write to listener")
				mu.Lock()
				failed = append(failed, c.ID)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(failed) > 0 {
		r.remove(failed)
	}

	return len(clients) - len(failed)
}

func write(conn net.Conn, payload []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	_, err := conn.Write(payload)

	return err
}

func (r *Registry) remove(ids []uuid.UUID) {
	r.mu.Lock()
	var evicted []*Client
	for _, id := range ids {
		if c, ok := r.clients[id]; ok {
			delete(r.clients, id)
			evicted = append(evicted, c)
		}
	}
	n := len(r.clients)
	r.mu.Unlock()

	for _, c := range evicted {
		_ = c.conn.Close()
		r.recorder.Eviction()
		r.log.Info().Str("id", c.ID.String()).Msg("Listener removed")
	}
	r.recorder.Listeners(n)
}

// Close closes every listener connection. Later registrations are closed
// on arrival.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[uuid.UUID]*Client)
	r.closed = true
	r.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	r.recorder.Listeners(0)

	if len(clients) > 0 {
		r.log.Debug().Int("listeners", len(clients)).Msg("Closed listener connections")
	}
}
