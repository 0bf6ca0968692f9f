package provider

import (
	"context"
	"math"
	"strconv"
	"strings"

	"codeberg.org/mutker/bard/internal/notify"
	"codeberg.org/mutker/bard/internal/protocol"
)

const defaultSink = "@DEFAULT_SINK@"

// Volume reports and changes the default PulseAudio/PipeWire sink.
type Volume struct {
	base
}

func NewVolume(opts Options) *Volume {
	return &Volume{base: newBase(opts)}
}

func (*Volume) Kind() protocol.Kind { return protocol.KindVolume }

type volumeState struct {
	percent int
	mute    bool
}

func (v *Volume) state(ctx context.Context) (volumeState, error) {
	percent, err := v.percent(ctx)
	if err != nil {
		return volumeState{}, err
	}

	mute, err := v.mute(ctx)
	if err != nil {
		return volumeState{}, err
	}

	return volumeState{percent: percent, mute: mute}, nil
}

// percent parses "Volume: front-left: 26214 /  40% / -23.88 dB, ...".
func (v *Volume) percent(ctx context.Context) (int, error) {
	out, err := v.run(ctx, "pactl", "get-sink-volume", defaultSink)
	if err != nil {
		return 0, err
	}

	fields := strings.Split(out, "/")
	if len(fields) < 2 {
		return 0, parseError(out)
	}

	percent, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(fields[1]), "%"))
	if err != nil {
		return 0, parseError(out)
	}

	return percent, nil
}

// mute parses "Mute: yes".
func (v *Volume) mute(ctx context.Context) (bool, error) {
	out, err := v.run(ctx, "pactl", "get-sink-mute", defaultSink)
	if err != nil {
		return false, err
	}

	switch strings.TrimSpace(strings.TrimPrefix(out, "Mute:")) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}

	return false, parseError(out)
}

func (v *Volume) iconFor(s volumeState) string {
	if s.mute {
		return v.icon("audio-volume-muted")
	}

	return v.icon("audio-volume-" + level(s.percent, "muted", "low", "medium", "high"))
}

func (v *Volume) Tuples(ctx context.Context) ([]protocol.Tuple, error) {
	s, err := v.state(ctx)
	if err != nil {
		return nil, err
	}

	return []protocol.Tuple{
		{Name: "percent", Value: strconv.Itoa(s.percent)},
		{Name: "mute", Value: strconv.FormatBool(s.mute)},
		{Name: "icon", Value: v.iconFor(s)},
	}, nil
}

func (v *Volume) Get(ctx context.Context, leaf protocol.Leaf) (string, error) {
	switch leaf {
	case protocol.VolumePercent:
		percent, err := v.percent(ctx)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(percent), nil
	case protocol.VolumeMute:
		mute, err := v.mute(ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(mute), nil
	case protocol.VolumeIcon:
		s, err := v.state(ctx)
		if err != nil {
			return "", err
		}
		return v.iconFor(s), nil
	}

	return "", invalidLeaf(protocol.Volume(leaf))
}

func (v *Volume) Set(ctx context.Context, leaf protocol.Leaf, value string) error {
	switch leaf {
	case protocol.VolumePercent, protocol.VolumeMute:
	case protocol.VolumeIcon:
		return readOnly(protocol.Volume(leaf))
	default:
		return invalidLeaf(protocol.Volume(leaf))
	}

	before, err := v.state(ctx)
	if err != nil {
		return err
	}

	if leaf == protocol.VolumePercent {
		target, err := targetPercent(value, float64(before.percent))
		if err != nil {
			return err
		}
		percent := strconv.Itoa(int(math.Round(target))) + "%"
		if _, err := v.run(ctx, "pactl", "set-sink-volume", defaultSink, percent); err != nil {
			return err
		}
	} else {
		mute, err := protocol.ParseBool(value)
		if err != nil {
			return err
		}
		arg := "0"
		if mute {
			arg = "1"
		}
		if _, err := v.run(ctx, "pactl", "set-sink-mute", defaultSink, arg); err != nil {
			return err
		}
	}

	after, err := v.state(ctx)
	if err != nil {
		return err
	}

	if after != before {
		summary := "Volume: " + strconv.Itoa(after.percent) + "%"
		if after.mute {
			summary = "Volume: muted"
		}
		v.notify(ctx, notify.Notification{
			Summary: summary,
			Icon:    v.iconFor(after),
			Value:   notify.IntValue(after.percent),
		})
	}

	return nil
}
