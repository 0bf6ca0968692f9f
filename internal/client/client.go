// Package client talks to a running daemon.
package client

import (
	"bufio"
	"context"
	"io"
	"net"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/protocol"
)

// maxLineSize bounds a single pushed snapshot line.
const maxLineSize = 1 << 20

type Client struct {
	socket string
	dialer net.Dialer
}

func New(socket string) *Client {
	return &Client{socket: socket}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrUnavailable, err).
			WithMessage("daemon is not running on " + c.socket)
	}

	return conn, nil
}

// Request sends a Get or Set and waits for its reply.
func (c *Client) Request(ctx context.Context, msg protocol.Message) (protocol.Reply, error) {
	errFactory := errors.New()

	if msg.Type == protocol.MessageListen {
		return protocol.Reply{}, errFactory.WithData(errors.ErrInvalidArgument, "use Listen to subscribe")
	}

	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return protocol.Reply{}, err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return protocol.Reply{}, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if _, err := conn.Write(data); err != nil {
		return protocol.Reply{}, errFactory.Wrap(errors.ErrTransport, contextErr(ctx, err))
	}

	reply, err := protocol.NewReplyDecoder(conn).Decode()
	if err != nil {
		if ctx.Err() != nil {
			return protocol.Reply{}, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return protocol.Reply{}, errFactory.Wrap(errors.ErrTransport, err).
				WithMessage("daemon closed the connection")
		}
		return protocol.Reply{}, err
	}

	return reply, nil
}

// Listen subscribes to snapshot pushes and calls fn with every line, without
// its terminator. It returns nil when the daemon closes the connection or
// ctx is done, and fn's error if fn fails.
func (c *Client) Listen(ctx context.Context, fn func(line []byte) error) error {
	errFactory := errors.New()

	data, err := protocol.EncodeMessage(protocol.Listen())
	if err != nil {
		return err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if _, err := conn.Write(data); err != nil {
		return errFactory.Wrap(errors.ErrTransport, contextErr(ctx, err))
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return errFactory.Wrap(errors.ErrTransport, err)
	}

	return nil
}

func contextErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}
