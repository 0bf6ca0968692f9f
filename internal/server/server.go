// Package server accepts client connections on the daemon socket and runs
// the per-connection request loop.
package server

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
	"codeberg.org/mutker/bard/internal/metrics"
	"codeberg.org/mutker/bard/internal/protocol"
	"codeberg.org/mutker/bard/internal/registry"
	"codeberg.org/mutker/bard/internal/trigger"
)

const (
	socketPerm      = 0o600
	maxAcceptDelay  = time.Second
	baseAcceptDelay = 5 * time.Millisecond
)

// Dispatcher answers Get and Set requests.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg protocol.Message) protocol.Reply
}

type Config struct {
	// BufferSize bounds a single request; larger requests fail to decode.
	BufferSize int
}

type Server struct {
	cfg        Config
	dispatcher Dispatcher
	registry   *registry.Registry
	queue      *trigger.Queue
	recorder   metrics.Recorder
	log        logger.Logger

	wg sync.WaitGroup
}

type Option func(*Server)

// WithLogger sets the logger used for connection events.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func New(
	cfg Config,
	dispatcher Dispatcher,
	reg *registry.Registry,
	queue *trigger.Queue,
	recorder metrics.Recorder,
	opts ...Option,
) *Server {
	if recorder == nil {
		recorder = metrics.Noop()
	}

	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		registry:   reg,
		queue:      queue,
		recorder:   recorder,
		log:        logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Listen binds the Unix socket at path, replacing a stale socket file left
// behind by a previous daemon. The socket is only accessible to its owner.
func Listen(path string) (net.Listener, error) {
	errFactory := errors.New()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errFactory.Wrap(errors.ErrTransport, err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrTransport, err)
	}

	if err := os.Chmod(path, socketPerm); err != nil {
		_ = ln.Close()
		return nil, errFactory.Wrap(errors.ErrTransport, err)
	}

	logger.Info().Str("socket", path).Msg("Listening")

	return ln, nil
}

// Serve accepts connections until ctx is done, then closes ln, waits for
// the connection handlers to finish and returns nil. Connections handed off
// to the registry are not waited for.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()
	defer s.wg.Wait()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			if delay == 0 {
				delay = baseAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("Failed to accept connection")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// handle runs the request loop of one connection. It returns when the peer
// closes the connection, on any read, decode or write failure, when ctx is
// done, or after handing the connection to the registry.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	// unblocks a pending Read on shutdown
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	handedOff := false
	defer func() {
		if !handedOff {
			stop()
			_ = conn.Close()
		}
	}()

	buf := make([]byte, s.cfg.BufferSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				s.log.Debug().Err(err).Msg("Failed to read from connection")
			}
			return
		}
		if n == 0 {
			return
		}

		msg, err := protocol.DecodeMessage(buf[:n])
		if err != nil {
			s.log.Debug().Err(err).Int("bytes", n).Msg("Failed to decode message, closing connection")
			return
		}

		if msg.Type == protocol.MessageListen {
			if !stop() {
				// shutdown already closed the connection
				return
			}
			handedOff = true
			s.registry.Register(conn)
			s.signal(trigger.UpdateAll)
			return
		}

		if msg.Type == protocol.MessageSet {
			s.signal(trigger.ForItem(msg.Item))
		}

		reply := s.dispatcher.Dispatch(ctx, msg)

		data, err := protocol.EncodeReply(reply)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to encode reply")
			return
		}

		if _, err := conn.Write(data); err != nil {
			s.log.Debug().Err(err).Msg("Failed to write reply")
			return
		}
	}
}

// signal never fails the request: a closed queue only means shutdown.
func (s *Server) signal(sig trigger.Signal) {
	if err := s.queue.Send(sig); err != nil {
		s.log.Warn().Err(err).Str("signal", sig.String()).Msg("Failed to send update signal")
		return
	}
	s.recorder.Signal(sig.String())
}
