package provider

import (
	"context"
	"strconv"
	"strings"

	"codeberg.org/mutker/bard/internal/protocol"
)

const (
	batteryFull        = "Fully charged"
	batteryCharging    = "Charging"
	batteryDischarging = "Discharging"
	batteryNotCharging = "Not charging"
)

// Battery reports the first battery listed by acpi. It is read-only.
type Battery struct {
	base
}

func NewBattery(opts Options) *Battery {
	return &Battery{base: newBase(opts)}
}

func (*Battery) Kind() protocol.Kind { return protocol.KindBattery }

type batteryState struct {
	state   string
	percent int
	time    string
}

// read parses "Battery 0: Discharging, 65%, 01:23:45 remaining".
func (b *Battery) read(ctx context.Context) (batteryState, error) {
	out, err := b.run(ctx, "acpi", "-b")
	if err != nil {
		return batteryState{}, err
	}

	line, _, _ := strings.Cut(out, "\n")
	_, rest, ok := strings.Cut(line, ":")
	if !ok {
		return batteryState{}, parseError(out)
	}

	parts := strings.Split(rest, ",")
	if len(parts) < 2 {
		return batteryState{}, parseError(out)
	}

	var s batteryState

	switch strings.TrimSpace(parts[0]) {
	case "Full":
		s.state = batteryFull
	case "Charging":
		s.state = batteryCharging
	case "Discharging":
		s.state = batteryDischarging
	case "Not charging":
		s.state = batteryNotCharging
	default:
		return batteryState{}, parseError(out)
	}

	s.percent, err = strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(parts[1]), "%"))
	if err != nil {
		return batteryState{}, parseError(out)
	}

	if len(parts) > 2 {
		if fields := strings.Fields(parts[2]); len(fields) > 0 && strings.Count(fields[0], ":") == 2 {
			s.time = fields[0]
		}
	}
	if s.time == "" && s.state == batteryFull {
		s.time = batteryFull
	}

	return s, nil
}

func (b *Battery) iconFor(s batteryState) string {
	name := "battery-level-" + strconv.Itoa(s.percent/10*10)

	switch s.state {
	case batteryFull:
		name = "battery-level-100-charged"
	case batteryCharging:
		name += "-charging"
	}

	return b.icon(name)
}

func (b *Battery) Tuples(ctx context.Context) ([]protocol.Tuple, error) {
	s, err := b.read(ctx)
	if err != nil {
		return nil, err
	}

	return []protocol.Tuple{
		{Name: "state", Value: s.state},
		{Name: "percent", Value: strconv.Itoa(s.percent)},
		{Name: "time", Value: s.time},
		{Name: "icon", Value: b.iconFor(s)},
	}, nil
}

func (b *Battery) Get(ctx context.Context, leaf protocol.Leaf) (string, error) {
	tuples, err := b.Tuples(ctx)
	if err != nil {
		return "", err
	}

	return leafValue(protocol.Battery(leaf), tuples)
}

func (*Battery) Set(_ context.Context, leaf protocol.Leaf, _ string) error {
	return readOnly(protocol.Battery(leaf))
}
