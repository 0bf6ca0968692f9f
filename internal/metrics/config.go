package metrics

import (
	"net"
	"time"

	"codeberg.org/mutker/bard/internal/errors"
)

const (
	defaultPath          = "/metrics"
	defaultReadTimeout   = 5 * time.Second
	defaultShutdownGrace = 5 * time.Second
)

type Config struct {
	// Addr is the listen address of the HTTP endpoint. Empty disables metrics.
	Addr string
	Path string
}

func DefaultConfig() Config {
	return Config{
		Path: defaultPath,
	}
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate Addr if metrics is enabled
	if !c.Enabled() {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errFactory.Wrap(ErrInvalidAddr, err)
	}
	if c.Path == "" || c.Path[0] != '/' {
		return errFactory.WithData(ErrInvalidConfig, "metrics path must start with /")
	}

	return nil
}
