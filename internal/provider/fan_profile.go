package provider

import (
	"context"
	"strings"

	"codeberg.org/mutker/bard/internal/notify"
	"codeberg.org/mutker/bard/internal/protocol"
)

// fanProfiles is the cycle order used by "next" and "prev".
var fanProfiles = []string{"Performance", "Balanced", "Quiet"}

// FanProfile reports and changes the asusctl platform profile.
type FanProfile struct {
	base
}

func NewFanProfile(opts Options) *FanProfile {
	return &FanProfile{base: newBase(opts)}
}

func (*FanProfile) Kind() protocol.Kind { return protocol.KindFanProfile }

// profile parses the second line of "asusctl profile -p", for example
// "Active profile is Balanced", and returns its index in fanProfiles.
func (f *FanProfile) profile(ctx context.Context) (int, error) {
	out, err := f.run(ctx, "asusctl", "profile", "-p")
	if err != nil {
		return 0, err
	}

	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return 0, parseError(out)
	}

	fields := strings.Fields(lines[1])
	if len(fields) < 4 {
		return 0, parseError(lines[1])
	}

	for i, p := range fanProfiles {
		if fields[3] == p {
			return i, nil
		}
	}

	return 0, parseError(fields[3])
}

func (f *FanProfile) Tuples(ctx context.Context) ([]protocol.Tuple, error) {
	i, err := f.profile(ctx)
	if err != nil {
		return nil, err
	}

	return []protocol.Tuple{
		{Name: "profile", Value: fanProfiles[i]},
		{Name: "icon", Value: f.icon("sensors-fan")},
	}, nil
}

func (f *FanProfile) Get(ctx context.Context, leaf protocol.Leaf) (string, error) {
	if leaf == protocol.FanProfileIcon {
		return f.icon("sensors-fan"), nil
	}

	tuples, err := f.Tuples(ctx)
	if err != nil {
		return "", err
	}

	return leafValue(protocol.FanProfile(leaf), tuples)
}

func (f *FanProfile) Set(ctx context.Context, leaf protocol.Leaf, value string) error {
	switch leaf {
	case protocol.FanProfileProfile:
	case protocol.FanProfileIcon:
		return readOnly(protocol.FanProfile(leaf))
	default:
		return invalidLeaf(protocol.FanProfile(leaf))
	}

	before, err := f.profile(ctx)
	if err != nil {
		return err
	}

	target := -1
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "next":
		target = (before + 1) % len(fanProfiles)
	case "prev":
		target = (before + len(fanProfiles) - 1) % len(fanProfiles)
	default:
		for i, p := range fanProfiles {
			if strings.ToLower(p) == v {
				target = i
			}
		}
	}
	if target < 0 {
		return invalidValue("unknown fan profile '" + value + "'")
	}

	if _, err := f.run(ctx, "asusctl", "profile", "-P", fanProfiles[target]); err != nil {
		return err
	}

	after, err := f.profile(ctx)
	if err != nil {
		return err
	}

	if after != before {
		f.notify(ctx, notify.Notification{
			Summary: "Fan Profile: " + fanProfiles[after],
			Icon:    f.icon("sensors-fan"),
		})
	}

	return nil
}
