package provider

import (
	"context"
	"strconv"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/protocol"
	"github.com/shirou/gopsutil/v3/mem"
)

// Ram reports system memory usage in bytes. It is read-only.
type Ram struct {
	base
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

func NewRam(opts Options) *Ram {
	r := &Ram{
		base:          newBase(opts),
		virtualMemory: opts.VirtualMemory,
	}
	if r.virtualMemory == nil {
		r.virtualMemory = mem.VirtualMemoryWithContext
	}

	return r
}

func (*Ram) Kind() protocol.Kind { return protocol.KindRam }

func (r *Ram) Tuples(ctx context.Context) ([]protocol.Tuple, error) {
	vm, err := r.virtualMemory(ctx)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrCommandFailed, err)
	}
	if vm == nil || vm.Total == 0 {
		return nil, parseError("total memory is zero")
	}

	percent := vm.Used * 100 / vm.Total

	return []protocol.Tuple{
		{Name: "total", Value: strconv.FormatUint(vm.Total, 10)},
		{Name: "used", Value: strconv.FormatUint(vm.Used, 10)},
		{Name: "percent", Value: strconv.FormatUint(percent, 10)},
		{Name: "icon", Value: r.icon("memory")},
	}, nil
}

func (r *Ram) Get(ctx context.Context, leaf protocol.Leaf) (string, error) {
	if leaf == protocol.RamIcon {
		return r.icon("memory"), nil
	}

	tuples, err := r.Tuples(ctx)
	if err != nil {
		return "", err
	}

	return leafValue(protocol.Ram(leaf), tuples)
}

func (*Ram) Set(_ context.Context, leaf protocol.Leaf, _ string) error {
	return readOnly(protocol.Ram(leaf))
}
