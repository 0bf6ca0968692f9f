package provider

import (
	"context"
	"strconv"
	"strings"

	"codeberg.org/mutker/bard/internal/notify"
	"codeberg.org/mutker/bard/internal/protocol"
)

// Brightness reports and changes the monitor and keyboard backlights
// through brightnessctl.
type Brightness struct {
	base
	monitor  string
	keyboard string
}

func NewBrightness(opts Options) *Brightness {
	return &Brightness{
		base:     newBase(opts),
		monitor:  opts.MonitorDevice,
		keyboard: opts.KeyboardDevice,
	}
}

func (*Brightness) Kind() protocol.Kind { return protocol.KindBrightness }

// read parses the machine readable "device,class,current,percent,max" line.
func (b *Brightness) read(ctx context.Context, device string) (int, error) {
	out, err := b.run(ctx, "brightnessctl", "-m", "-d", device, "i")
	if err != nil {
		return 0, err
	}

	fields := strings.Split(strings.TrimSpace(out), ",")
	if len(fields) < 5 {
		return 0, parseError(out)
	}

	current, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return 0, parseError(out)
	}
	maximum, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil || maximum == 0 {
		return 0, parseError(out)
	}

	return int(float64(current) / float64(maximum) * 100), nil
}

func (b *Brightness) monitorIcon(percent int) string {
	return b.icon("display-brightness-" + level(percent, "off", "low", "medium", "high"))
}

func (b *Brightness) keyboardIcon(percent int) string {
	return b.icon("keyboard-brightness" + level(percent, "-off", "-medium", "", "-high"))
}

func (b *Brightness) Tuples(ctx context.Context) ([]protocol.Tuple, error) {
	monitor, err := b.read(ctx, b.monitor)
	if err != nil {
		return nil, err
	}

	return []protocol.Tuple{
		{Name: "monitor", Value: strconv.Itoa(monitor)},
		{Name: "icon", Value: b.monitorIcon(monitor)},
	}, nil
}

func (b *Brightness) Get(ctx context.Context, leaf protocol.Leaf) (string, error) {
	switch leaf {
	case protocol.BrightnessMonitor, protocol.BrightnessKeyboard:
		percent, err := b.read(ctx, b.device(leaf))
		if err != nil {
			return "", err
		}
		return strconv.Itoa(percent), nil
	case protocol.BrightnessIcon:
		percent, err := b.read(ctx, b.monitor)
		if err != nil {
			return "", err
		}
		return b.monitorIcon(percent), nil
	}

	return "", invalidLeaf(protocol.Brightness(leaf))
}

func (b *Brightness) device(leaf protocol.Leaf) string {
	if leaf == protocol.BrightnessKeyboard {
		return b.keyboard
	}

	return b.monitor
}

func (b *Brightness) Set(ctx context.Context, leaf protocol.Leaf, value string) error {
	switch leaf {
	case protocol.BrightnessMonitor, protocol.BrightnessKeyboard:
	case protocol.BrightnessIcon:
		return readOnly(protocol.Brightness(leaf))
	default:
		return invalidLeaf(protocol.Brightness(leaf))
	}

	device := b.device(leaf)

	before, err := b.read(ctx, device)
	if err != nil {
		return err
	}

	target, err := targetPercent(value, float64(before))
	if err != nil {
		return err
	}

	if _, err := b.run(ctx, "brightnessctl", "-d", device, "s", formatPercent(target)+"%"); err != nil {
		return err
	}

	after, err := b.read(ctx, device)
	if err != nil {
		return err
	}

	if after != before {
		n := notify.Notification{
			Summary: "Brightness: " + strconv.Itoa(after) + "%",
			Icon:    b.monitorIcon(after),
			Value:   notify.IntValue(after),
		}
		if leaf == protocol.BrightnessKeyboard {
			n.Summary = "Keyboard: " + strconv.Itoa(after) + "%"
			n.Icon = b.keyboardIcon(after)
		}
		b.notify(ctx, n)
	}

	return nil
}
