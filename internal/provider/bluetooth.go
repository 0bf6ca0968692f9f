package provider

import (
	"context"
	"strconv"
	"strings"

	"codeberg.org/mutker/bard/internal/notify"
	"codeberg.org/mutker/bard/internal/protocol"
)

// Bluetooth reports and toggles the bluetooth radio.
type Bluetooth struct {
	base
}

func NewBluetooth(opts Options) *Bluetooth {
	return &Bluetooth{base: newBase(opts)}
}

func (*Bluetooth) Kind() protocol.Kind { return protocol.KindBluetooth }

// state parses "bluetooth = on".
func (b *Bluetooth) state(ctx context.Context) (bool, error) {
	out, err := b.run(ctx, "bluetooth")
	if err != nil {
		return false, err
	}

	fields := strings.Fields(out)
	if len(fields) < 3 {
		return false, parseError(out)
	}

	return fields[2] == "on", nil
}

func (b *Bluetooth) iconFor(on bool) string {
	if on {
		return b.icon("bluetooth-active")
	}

	return b.icon("bluetooth-disabled")
}

func (b *Bluetooth) Tuples(ctx context.Context) ([]protocol.Tuple, error) {
	on, err := b.state(ctx)
	if err != nil {
		return nil, err
	}

	return []protocol.Tuple{
		{Name: "state", Value: strconv.FormatBool(on)},
		{Name: "icon", Value: b.iconFor(on)},
	}, nil
}

func (b *Bluetooth) Get(ctx context.Context, leaf protocol.Leaf) (string, error) {
	tuples, err := b.Tuples(ctx)
	if err != nil {
		return "", err
	}

	return leafValue(protocol.Bluetooth(leaf), tuples)
}

func (b *Bluetooth) Set(ctx context.Context, leaf protocol.Leaf, value string) error {
	switch leaf {
	case protocol.BluetoothState:
	case protocol.BluetoothIcon:
		return readOnly(protocol.Bluetooth(leaf))
	default:
		return invalidLeaf(protocol.Bluetooth(leaf))
	}

	on, err := protocol.ParseBool(value)
	if err != nil {
		return err
	}

	before, err := b.state(ctx)
	if err != nil {
		return err
	}

	arg := "off"
	if on {
		arg = "on"
	}
	if _, err := b.run(ctx, "bluetooth", arg); err != nil {
		return err
	}

	after, err := b.state(ctx)
	if err != nil {
		return err
	}

	if after != before {
		summary := "Bluetooth: off"
		if after {
			summary = "Bluetooth: on"
		}
		b.notify(ctx, notify.Notification{Summary: summary, Icon: b.iconFor(after)})
	}

	return nil
}
