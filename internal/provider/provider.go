// Package provider reads and changes the hardware state reported by the
// daemon. Providers hold no state between calls: every read runs the
// underlying tool again.
package provider

import (
	"context"
	"math"
	"strconv"
	"strings"

	"codeberg.org/mutker/bard/internal/command"
	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
	"codeberg.org/mutker/bard/internal/notify"
	"codeberg.org/mutker/bard/internal/protocol"
	"github.com/shirou/gopsutil/v3/mem"
)

// Provider exposes one metric family.
type Provider interface {
	Kind() protocol.Kind
	// Tuples returns every field in a fixed order.
	Tuples(ctx context.Context) ([]protocol.Tuple, error)
	// Get returns a single field. leaf must not be LeafAll.
	Get(ctx context.Context, leaf protocol.Leaf) (string, error)
	// Set applies value to leaf and sends a notification if the state
	// observed before and after differs.
	Set(ctx context.Context, leaf protocol.Leaf, value string) error
}

// Options configures the providers built by New.
type Options struct {
	Runner         command.Runner
	Notifier       notify.Notifier
	IconSuffix     string
	MonitorDevice  string
	KeyboardDevice string
	// VirtualMemory defaults to gopsutil's mem.VirtualMemoryWithContext.
	VirtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// Providers is the closed set of providers, one per Kind.
type Providers struct {
	Volume     Provider
	Brightness Provider
	Bluetooth  Provider
	Battery    Provider
	Ram        Provider
	FanProfile Provider
}

func New(opts Options) Providers {
	return Providers{
		Volume:     NewVolume(opts),
		Brightness: NewBrightness(opts),
		Bluetooth:  NewBluetooth(opts),
		Battery:    NewBattery(opts),
		Ram:        NewRam(opts),
		FanProfile: NewFanProfile(opts),
	}
}

type base struct {
	runner     command.Runner
	notifier   notify.Notifier
	iconSuffix string
}

func newBase(opts Options) base {
	b := base{
		runner:     opts.Runner,
		notifier:   opts.Notifier,
		iconSuffix: opts.IconSuffix,
	}
	if b.runner == nil {
		b.runner = command.NewExec()
	}
	if b.notifier == nil {
		b.notifier = notify.Nop{}
	}

	return b
}

func (b *base) run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := b.runner.Run(ctx, name, args...)
	if err != nil {
		if errors.CodeOf(err) == "" {
			return "", errors.New().Wrap(errors.ErrCommandFailed, err)
		}
		return "", err
	}

	return out, nil
}

func (b *base) icon(name string) string {
	return name + b.iconSuffix
}

// notify never fails a Set: the hardware change has already happened.
func (b *base) notify(ctx context.Context, n notify.Notification) {
	if err := b.notifier.Notify(ctx, n); err != nil {
		logger.Warn().Err(err).Str("summary", n.Summary).Msg("Failed to send notification")
	}
}

func parseError(output string) error {
	return errors.New().WithData(errors.ErrParseOutput, output)
}

func invalidValue(msg string) error {
	return errors.New().WithData(errors.ErrInvalidValue, msg)
}

func readOnly(item protocol.Item) error {
	return errors.New().WithData(errors.ErrReadOnly, item.String())
}

func invalidLeaf(item protocol.Item) error {
	return errors.New().WithData(errors.ErrInvalidItem, item.String())
}

// leafValue picks the tuple named after item's leaf.
func leafValue(item protocol.Item, tuples []protocol.Tuple) (string, error) {
	if !item.Valid() || item.Leaf == protocol.LeafAll {
		return "", invalidLeaf(item)
	}

	v, ok := protocol.Lookup(tuples, item.LeafName())
	if !ok {
		return "", invalidLeaf(item)
	}

	return v, nil
}

// isDelta reports whether value is a relative change such as "+5" or "-10".
func isDelta(value string) bool {
	return strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-")
}

// targetPercent resolves an absolute or relative percentage against
// current, clamped to 0..100.
func targetPercent(value string, current float64) (float64, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "%")

	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalidValue("invalid percentage '" + value + "'")
	}

	if isDelta(value) {
		v += current
	}

	return math.Max(0, math.Min(100, v)), nil
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// level buckets a percentage the way the icon themes do.
func level(percent int, off, low, medium, high string) string {
	switch {
	case percent <= 0:
		return off
	case percent <= 33:
		return low
	case percent <= 67:
		return medium
	default:
		return high
	}
}
