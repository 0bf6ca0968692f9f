package protocol_test

import (
	"bytes"
	"io"
	"testing"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/protocol"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// everyItem enumerates all valid items.
func everyItem() []protocol.Item {
	items := []protocol.Item{protocol.All()}
	for _, k := range protocol.Kinds {
		for l := protocol.Leaf(0); ; l++ {
			item := protocol.ItemOf(k, l)
			if !item.Valid() {
				break
			}
			items = append(items, item)
		}
	}

	return items
}

func TestMessageRoundTrip(t *testing.T) {
	var messages []protocol.Message
	for _, item := range everyItem() {
		messages = append(messages, protocol.Get(item), protocol.Set(item, "+5"))
	}
	messages = append(messages, protocol.Listen(), protocol.Set(protocol.Volume(protocol.VolumeMute), "ünïcode ✓"))

	for _, m := range messages {
		data, err := protocol.EncodeMessage(m)
		require.NoError(t, err)

		got, err := protocol.DecodeMessage(data)
		require.NoError(t, err)
		assert.Equal(t, m, got, "item %s", m.Item)
	}
}

func TestReplyRoundTrip(t *testing.T) {
	replies := []protocol.Reply{
		protocol.ValueReply(protocol.Volume(protocol.VolumePercent), "42"),
		protocol.TuplesReply(protocol.Bluetooth(protocol.LeafAll), []protocol.Tuple{
			{Name: "state", Value: "true"},
			{Name: "icon", Value: "bluetooth-active-symbolic"},
		}),
		protocol.TuplesReply(protocol.Ram(protocol.LeafAll), []protocol.Tuple{}),
		protocol.AllTuplesReply([]protocol.Group{
			{Name: "volume", Tuples: []protocol.Tuple{{Name: "percent", Value: "40"}}},
			{Name: "ram", Tuples: []protocol.Tuple{{Name: "percent", Value: "12"}, {Name: "icon", Value: "memory"}}},
		}),
		protocol.ErrorReply("failed to run pactl"),
	}

	for _, r := range replies {
		data, err := protocol.EncodeReply(r)
		require.NoError(t, err)

		got, err := protocol.DecodeReply(data)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	r := protocol.AllTuplesReply([]protocol.Group{
		{Name: "battery", Tuples: []protocol.Tuple{{Name: "percent", Value: "80"}}},
	})

	first, err := protocol.EncodeReply(r)
	require.NoError(t, err)
	second, err := protocol.EncodeReply(r)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMessageWireShape(t *testing.T) {
	data, err := protocol.EncodeMessage(protocol.Set(protocol.Volume(protocol.VolumeMute), "true"))
	require.NoError(t, err)

	var raw []any
	require.NoError(t, cbor.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.EqualValues(t, protocol.MessageSet, raw[0])
	assert.Equal(t, []any{uint64(protocol.KindVolume), uint64(protocol.VolumeMute)}, raw[1])
	assert.Equal(t, "true", raw[2])
}

func TestDecodeMessageRejectsMalformedInput(t *testing.T) {
	valid, err := protocol.EncodeMessage(protocol.Get(protocol.All()))
	require.NoError(t, err)

	badType, err := cbor.Marshal([]any{9, []any{0, 0}, ""})
	require.NoError(t, err)
	badKind, err := cbor.Marshal([]any{1, []any{42, 0}, ""})
	require.NoError(t, err)
	badLeaf, err := cbor.Marshal([]any{1, []any{uint8(protocol.KindBluetooth), 9}, ""})
	require.NoError(t, err)
	shortArray, err := cbor.Marshal([]any{1})
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":          {},
		"garbage":        []byte("hello daemon"),
		"truncated":      valid[:len(valid)-1],
		"trailing bytes": append(append([]byte{}, valid...), 0x00),
		"unknown type":   badType,
		"unknown kind":   badKind,
		"unknown leaf":   badLeaf,
		"short array":    shortArray,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := protocol.DecodeMessage(data)
			require.Error(t, err)
			assert.Equal(t, errors.ErrDecode, errors.CodeOf(err))
		})
	}
}

func TestReplyDecoderReassemblesStream(t *testing.T) {
	groups := make([]protocol.Group, 0, len(protocol.Kinds))
	for _, k := range protocol.Kinds {
		tuples := make([]protocol.Tuple, 0, 64)
		for i := 0; i < 64; i++ {
			tuples = append(tuples, protocol.Tuple{Name: "name", Value: "a fairly long value to exceed one buffer"})
		}
		groups = append(groups, protocol.Group{Name: k.String(), Tuples: tuples})
	}
	big := protocol.AllTuplesReply(groups)
	small := protocol.ValueReply(protocol.Ram(protocol.RamPercent), "12")

	var buf bytes.Buffer
	for _, r := range []protocol.Reply{big, small} {
		data, err := protocol.EncodeReply(r)
		require.NoError(t, err)
		buf.Write(data)
	}
	require.Greater(t, buf.Len(), 1024)

	dec := protocol.NewReplyDecoder(io.LimitReader(&buf, int64(buf.Len())))

	got, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, big, got)

	got, err = dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, small, got)

	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestItemString(t *testing.T) {
	assert.Equal(t, "all", protocol.All().String())
	assert.Equal(t, "volume", protocol.Volume(protocol.LeafAll).String())
	assert.Equal(t, "fan_profile.profile", protocol.FanProfile(protocol.FanProfileProfile).String())
	assert.Equal(t, "unknown", protocol.ItemOf(protocol.KindRam, 99).String())
}

func TestItemValid(t *testing.T) {
	assert.True(t, protocol.Battery(protocol.BatteryIcon).Valid())
	assert.False(t, protocol.Battery(protocol.BatteryIcon+1).Valid())
	assert.False(t, protocol.ItemOf(protocol.KindAll, 1).Valid())
	assert.False(t, protocol.ItemOf(protocol.KindFanProfile+1, 0).Valid())
}

func TestParseKindAndLeaf(t *testing.T) {
	tests := []struct {
		provider string
		leaf     string
		want     protocol.Item
	}{
		{"all", "", protocol.All()},
		{"a", "", protocol.All()},
		{"vol", "p", protocol.Volume(protocol.VolumePercent)},
		{"Volume", "Mute", protocol.Volume(protocol.VolumeMute)},
		{"bri", "mon", protocol.Brightness(protocol.BrightnessMonitor)},
		{"brightness", "k", protocol.Brightness(protocol.BrightnessKeyboard)},
		{"bt", "s", protocol.Bluetooth(protocol.BluetoothState)},
		{"bat", "time", protocol.Battery(protocol.BatteryTime)},
		{"mem", "tot", protocol.Ram(protocol.RamTotal)},
		{"r", "u", protocol.Ram(protocol.RamUsed)},
		{"fan", "prof", protocol.FanProfile(protocol.FanProfileProfile)},
		{"fp", "", protocol.FanProfile(protocol.LeafAll)},
		{"ram", "all", protocol.Ram(protocol.LeafAll)},
	}

	for _, tt := range tests {
		k, ok := protocol.ParseKind(tt.provider)
		require.True(t, ok, tt.provider)

		l, ok := protocol.ParseLeaf(k, tt.leaf)
		require.True(t, ok, "%s %s", tt.provider, tt.leaf)

		assert.Equal(t, tt.want, protocol.ItemOf(k, l))
	}

	_, ok := protocol.ParseKind("toaster")
	assert.False(t, ok)

	_, ok = protocol.ParseLeaf(protocol.KindBluetooth, "percent")
	assert.False(t, ok)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "1", "on", "YES"} {
		v, err := protocol.ParseBool(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "0", "off", "no"} {
		v, err := protocol.ParseBool(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}

	_, err := protocol.ParseBool("maybe")
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidValue, errors.CodeOf(err))
}
