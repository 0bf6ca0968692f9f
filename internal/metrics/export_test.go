package metrics

import (
	"context"
	"net"

	"github.com/prometheus/client_golang/prometheus"
)

func ServeOn(r Recorder, ctx context.Context, ln net.Listener) error {
	return r.(*service).serve(ctx, ln)
}

func RegistryOf(r Recorder) *prometheus.Registry {
	return r.(*service).registry
}
