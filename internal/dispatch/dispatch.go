// Package dispatch routes requests to providers and wraps their results as
// replies.
package dispatch

import (
	"context"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
	"codeberg.org/mutker/bard/internal/metrics"
	"codeberg.org/mutker/bard/internal/protocol"
	"codeberg.org/mutker/bard/internal/provider"
	"golang.org/x/sync/errgroup"
)

type Dispatcher struct {
	providers provider.Providers
	recorder  metrics.Recorder
}

func New(providers provider.Providers, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.Noop()
	}

	return &Dispatcher{
		providers: providers,
		recorder:  recorder,
	}
}

// Provider returns the provider for k, or nil for KindAll and unknown kinds.
func (d *Dispatcher) Provider(k protocol.Kind) provider.Provider {
	switch k {
	case protocol.KindVolume:
		return d.providers.Volume
	case protocol.KindBrightness:
		return d.providers.Brightness
	case protocol.KindBluetooth:
		return d.providers.Bluetooth
	case protocol.KindBattery:
		return d.providers.Battery
	case protocol.KindRam:
		return d.providers.Ram
	case protocol.KindFanProfile:
		return d.providers.FanProfile
	case protocol.KindAll:
		return nil
	}

	return nil
}

// Dispatch answers a Get or Set. Every failure becomes an Error reply;
// Listen is handled by the server and is rejected here.
func (d *Dispatcher) Dispatch(ctx context.Context, msg protocol.Message) protocol.Reply {
	reply, err := d.dispatch(ctx, msg)
	d.recorder.Request(msg.Type.String(), err == nil)

	if err != nil {
		logger.Debug().Err(err).Str("type", msg.Type.String()).Str("item", msg.Item.String()).Msg("Request failed")
		return protocol.ErrorReply(err.Error())
	}

	return reply
}

func (d *Dispatcher) dispatch(ctx context.Context, msg protocol.Message) (protocol.Reply, error) {
	errFactory := errors.New()

	if !msg.Item.Valid() {
		return protocol.Reply{}, errFactory.WithData(errors.ErrInvalidItem, msg.Item.String())
	}

	switch msg.Type {
	case protocol.MessageGet:
		return d.get(ctx, msg.Item)
	case protocol.MessageSet:
		if err := d.set(ctx, msg.Item, msg.Value); err != nil {
			return protocol.Reply{}, err
		}
		return protocol.ValueReply(msg.Item, msg.Value), nil
	case protocol.MessageListen:
	}

	return protocol.Reply{}, errFactory.WithData(errors.ErrInvalidArgument, "cannot dispatch "+msg.Type.String())
}

func (d *Dispatcher) get(ctx context.Context, item protocol.Item) (protocol.Reply, error) {
	if item.IsAll() {
		groups, err := d.Snapshot(ctx)
		if err != nil {
			return protocol.Reply{}, err
		}
		return protocol.AllTuplesReply(groups), nil
	}

	p := d.Provider(item.Kind)
	if p == nil {
		return protocol.Reply{}, errors.New().WithData(errors.ErrInvalidItem, item.String())
	}

	if item.Leaf == protocol.LeafAll {
		tuples, err := p.Tuples(ctx)
		if err != nil {
			return protocol.Reply{}, err
		}
		return protocol.TuplesReply(item, tuples), nil
	}

	value, err := p.Get(ctx, item.Leaf)
	if err != nil {
		return protocol.Reply{}, err
	}

	return protocol.ValueReply(item, value), nil
}

func (d *Dispatcher) set(ctx context.Context, item protocol.Item, value string) error {
	errFactory := errors.New()

	if item.IsAll() || item.Leaf == protocol.LeafAll {
		return errFactory.WithData(errors.ErrSetAll, item.String())
	}

	p := d.Provider(item.Kind)
	if p == nil {
		return errFactory.WithData(errors.ErrInvalidItem, item.String())
	}

	return p.Set(ctx, item.Leaf, value)
}

// Snapshot collects every provider's tuples, in protocol.Kinds order.
// Providers are queried concurrently; the first failure aborts the whole
// snapshot.
func (d *Dispatcher) Snapshot(ctx context.Context) ([]protocol.Group, error) {
	providers := make([]provider.Provider, len(protocol.Kinds))
	for i, k := range protocol.Kinds {
		if providers[i] = d.Provider(k); providers[i] == nil {
			return nil, errors.New().WithData(errors.ErrInvalidItem, k.String())
		}
	}

	groups := make([]protocol.Group, len(protocol.Kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range protocol.Kinds {
		i, k := i, k
		p := providers[i]
		g.Go(func() error {
			tuples, err := p.Tuples(gctx)
			if err != nil {
				return err
			}
			groups[i] = protocol.Group{Name: k.String(), Tuples: tuples}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return groups, nil
}
