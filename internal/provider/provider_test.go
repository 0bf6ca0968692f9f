package provider_test

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/notify"
	"codeberg.org/mutker/bard/internal/protocol"
	"codeberg.org/mutker/bard/internal/provider"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers command lines from queued outputs. The last output
// of a queue is repeated; unknown command lines succeed with no output.
type scriptedRunner struct {
	mu      sync.Mutex
	outputs map[string][]string
	errs    map[string]error
	calls   []string
}

func newRunner() *scriptedRunner {
	return &scriptedRunner{
		outputs: make(map[string][]string),
		errs:    make(map[string]error),
	}
}

func (r *scriptedRunner) on(line string, outputs ...string) *scriptedRunner {
	r.outputs[line] = outputs
	return r
}

func (r *scriptedRunner) fail(line string, err error) *scriptedRunner {
	r.errs[line] = err
	return r
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)

	if err, ok := r.errs[line]; ok {
		return "", err
	}

	q := r.outputs[line]
	if len(q) == 0 {
		return "", nil
	}
	if len(q) > 1 {
		r.outputs[line] = q[1:]
	}

	return q[0], nil
}

func (r *scriptedRunner) called(line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.calls {
		if c == line {
			return true
		}
	}

	return false
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

func options(r *scriptedRunner, n *recordingNotifier) provider.Options {
	return provider.Options{
		Runner:         r,
		Notifier:       n,
		IconSuffix:     "-symbolic",
		MonitorDevice:  "intel_backlight",
		KeyboardDevice: "asus::kbd_backlight",
	}
}

const (
	sinkVolume = "pactl get-sink-volume @DEFAULT_SINK@"
	sinkMute   = "pactl get-sink-mute @DEFAULT_SINK@"
	volumeOut  = "Volume: front-left: 26214 /  %s%% / -23.88 dB,   front-right: 26214 /  %s%% / -23.88 dB\n        balance 0.00"
)

func volumeLine(percent string) string {
	return strings.ReplaceAll(volumeOut, "%s%%", percent+"%")
}

func TestVolumeTuples(t *testing.T) {
	r := newRunner().on(sinkVolume, volumeLine("40")).on(sinkMute, "Mute: no")
	v := provider.NewVolume(options(r, &recordingNotifier{}))

	tuples, err := v.Tuples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []protocol.Tuple{
		{Name: "percent", Value: "40"},
		{Name: "mute", Value: "false"},
		{Name: "icon", Value: "audio-volume-medium-symbolic"},
	}, tuples)

	got, err := v.Get(context.Background(), protocol.VolumePercent)
	require.NoError(t, err)
	assert.Equal(t, "40", got)
}

func TestVolumeMutedIcon(t *testing.T) {
	r := newRunner().on(sinkVolume, volumeLine("80")).on(sinkMute, "Mute: yes")
	v := provider.NewVolume(options(r, &recordingNotifier{}))

	icon, err := v.Get(context.Background(), protocol.VolumeIcon)
	require.NoError(t, err)
	assert.Equal(t, "audio-volume-muted-symbolic", icon)
}

func TestVolumeSetDeltaNotifiesOnChange(t *testing.T) {
	r := newRunner().
		on(sinkVolume, volumeLine("40"), volumeLine("45")).
		on(sinkMute, "Mute: no")
	n := &recordingNotifier{}
	v := provider.NewVolume(options(r, n))

	require.NoError(t, v.Set(context.Background(), protocol.VolumePercent, "+5"))

	assert.True(t, r.called("pactl set-sink-volume @DEFAULT_SINK@ 45%"))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "Volume: 45%", n.sent[0].Summary)
	assert.Equal(t, 45, *n.sent[0].Value)
}

func TestVolumeSetClampsAndSkipsNotificationWhenUnchanged(t *testing.T) {
	r := newRunner().on(sinkVolume, volumeLine("100")).on(sinkMute, "Mute: no")
	n := &recordingNotifier{}
	v := provider.NewVolume(options(r, n))

	require.NoError(t, v.Set(context.Background(), protocol.VolumePercent, "+20"))

	assert.True(t, r.called("pactl set-sink-volume @DEFAULT_SINK@ 100%"))
	assert.Empty(t, n.sent)
}

func TestVolumeSetMute(t *testing.T) {
	r := newRunner().on(sinkVolume, volumeLine("40")).on(sinkMute, "Mute: no", "Mute: yes")
	n := &recordingNotifier{}
	v := provider.NewVolume(options(r, n))

	require.NoError(t, v.Set(context.Background(), protocol.VolumeMute, "true"))

	assert.True(t, r.called("pactl set-sink-mute @DEFAULT_SINK@ 1"))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "Volume: muted", n.sent[0].Summary)
}

func TestVolumeSetErrors(t *testing.T) {
	r := newRunner().on(sinkVolume, volumeLine("40")).on(sinkMute, "Mute: no")
	v := provider.NewVolume(options(r, &recordingNotifier{}))
	ctx := context.Background()

	err := v.Set(ctx, protocol.VolumeMute, "loud")
	assert.Equal(t, errors.ErrInvalidValue, errors.CodeOf(err))

	err = v.Set(ctx, protocol.VolumePercent, "lots")
	assert.Equal(t, errors.ErrInvalidValue, errors.CodeOf(err))

	err = v.Set(ctx, protocol.VolumeIcon, "x")
	assert.Equal(t, errors.ErrReadOnly, errors.CodeOf(err))
}

func TestVolumeCommandFailure(t *testing.T) {
	r := newRunner().fail(sinkVolume, stderrors.New("exit status 1"))
	v := provider.NewVolume(options(r, &recordingNotifier{}))

	_, err := v.Tuples(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCommandFailed, errors.CodeOf(err))
}

func TestVolumeParseFailure(t *testing.T) {
	r := newRunner().on(sinkVolume, "garbage").on(sinkMute, "Mute: no")
	v := provider.NewVolume(options(r, &recordingNotifier{}))

	_, err := v.Tuples(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrParseOutput, errors.CodeOf(err))
}

const (
	monitorInfo  = "brightnessctl -m -d intel_backlight i"
	keyboardInfo = "brightnessctl -m -d asus::kbd_backlight i"
)

func TestBrightnessTuplesAndIcons(t *testing.T) {
	r := newRunner().
		on(monitorInfo, "intel_backlight,backlight,600,50%,1200").
		on(keyboardInfo, "asus::kbd_backlight,leds,1,33%,3")
	b := provider.NewBrightness(options(r, &recordingNotifier{}))
	ctx := context.Background()

	tuples, err := b.Tuples(ctx)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Tuple{
		{Name: "monitor", Value: "50"},
		{Name: "icon", Value: "display-brightness-medium-symbolic"},
	}, tuples)

	keyboard, err := b.Get(ctx, protocol.BrightnessKeyboard)
	require.NoError(t, err)
	assert.Equal(t, "33", keyboard)
}

func TestBrightnessSetKeyboardNotifies(t *testing.T) {
	r := newRunner().on(keyboardInfo, "asus::kbd_backlight,leds,1,33%,3", "asus::kbd_backlight,leds,3,100%,3")
	n := &recordingNotifier{}
	b := provider.NewBrightness(options(r, n))

	require.NoError(t, b.Set(context.Background(), protocol.BrightnessKeyboard, "100"))

	assert.True(t, r.called("brightnessctl -d asus::kbd_backlight s 100%"))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "Keyboard: 100%", n.sent[0].Summary)
	assert.Equal(t, "keyboard-brightness-high-symbolic", n.sent[0].Icon)
}

func TestBrightnessSetDeltaClampsAtZero(t *testing.T) {
	r := newRunner().on(monitorInfo, "intel_backlight,backlight,120,10%,1200", "intel_backlight,backlight,0,0%,1200")
	n := &recordingNotifier{}
	b := provider.NewBrightness(options(r, n))

	require.NoError(t, b.Set(context.Background(), protocol.BrightnessMonitor, "-25"))

	assert.True(t, r.called("brightnessctl -d intel_backlight s 0%"))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "display-brightness-off-symbolic", n.sent[0].Icon)
}

func TestBrightnessParseFailure(t *testing.T) {
	r := newRunner().on(monitorInfo, "intel_backlight,backlight,600")
	b := provider.NewBrightness(options(r, &recordingNotifier{}))

	_, err := b.Get(context.Background(), protocol.BrightnessMonitor)
	assert.Equal(t, errors.ErrParseOutput, errors.CodeOf(err))
}

func TestBluetooth(t *testing.T) {
	r := newRunner().on("bluetooth", "bluetooth = on", "bluetooth = on", "bluetooth = off")
	n := &recordingNotifier{}
	b := provider.NewBluetooth(options(r, n))
	ctx := context.Background()

	tuples, err := b.Tuples(ctx)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Tuple{
		{Name: "state", Value: "true"},
		{Name: "icon", Value: "bluetooth-active-symbolic"},
	}, tuples)

	require.NoError(t, b.Set(ctx, protocol.BluetoothState, "off"))
	assert.True(t, r.called("bluetooth off"))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "Bluetooth: off", n.sent[0].Summary)
	assert.Nil(t, n.sent[0].Value)

	state, err := b.Get(ctx, protocol.BluetoothState)
	require.NoError(t, err)
	assert.Equal(t, "false", state)
}

func TestBluetoothNoOpSetDoesNotNotify(t *testing.T) {
	r := newRunner().on("bluetooth", "bluetooth = on")
	n := &recordingNotifier{}
	b := provider.NewBluetooth(options(r, n))

	require.NoError(t, b.Set(context.Background(), protocol.BluetoothState, "1"))
	assert.Empty(t, n.sent)
}

func TestBattery(t *testing.T) {
	tests := []struct {
		output string
		want   []protocol.Tuple
	}{
		{
			output: "Battery 0: Discharging, 65%, 01:23:45 remaining",
			want: []protocol.Tuple{
				{Name: "state", Value: "Discharging"},
				{Name: "percent", Value: "65"},
				{Name: "time", Value: "01:23:45"},
				{Name: "icon", Value: "battery-level-60-symbolic"},
			},
		},
		{
			output: "Battery 0: Charging, 42%, 00:51:02 until charged",
			want: []protocol.Tuple{
				{Name: "state", Value: "Charging"},
				{Name: "percent", Value: "42"},
				{Name: "time", Value: "00:51:02"},
				{Name: "icon", Value: "battery-level-40-charging-symbolic"},
			},
		},
		{
			output: "Battery 0: Full, 100%",
			want: []protocol.Tuple{
				{Name: "state", Value: "Fully charged"},
				{Name: "percent", Value: "100"},
				{Name: "time", Value: "Fully charged"},
				{Name: "icon", Value: "battery-level-100-charged-symbolic"},
			},
		},
		{
			output: "Battery 0: Not charging, 80%, rate information unavailable\nBattery 1: Discharging, 0%",
			want: []protocol.Tuple{
				{Name: "state", Value: "Not charging"},
				{Name: "percent", Value: "80"},
				{Name: "time", Value: ""},
				{Name: "icon", Value: "battery-level-80-symbolic"},
			},
		},
	}

	for _, tt := range tests {
		r := newRunner().on("acpi -b", tt.output)
		b := provider.NewBattery(options(r, &recordingNotifier{}))

		tuples, err := b.Tuples(context.Background())
		require.NoError(t, err, tt.output)
		assert.Equal(t, tt.want, tuples, tt.output)
	}
}

func TestBatteryIsReadOnly(t *testing.T) {
	b := provider.NewBattery(options(newRunner(), &recordingNotifier{}))

	err := b.Set(context.Background(), protocol.BatteryPercent, "100")
	assert.Equal(t, errors.ErrReadOnly, errors.CodeOf(err))
}

func TestBatteryUnknownState(t *testing.T) {
	r := newRunner().on("acpi -b", "Battery 0: Exploding, 12%")
	b := provider.NewBattery(options(r, &recordingNotifier{}))

	_, err := b.Get(context.Background(), protocol.BatteryState)
	assert.Equal(t, errors.ErrParseOutput, errors.CodeOf(err))
}

func TestRam(t *testing.T) {
	opts := options(newRunner(), &recordingNotifier{})
	opts.VirtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 16_000, Used: 4_321}, nil
	}
	r := provider.NewRam(opts)
	ctx := context.Background()

	tuples, err := r.Tuples(ctx)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Tuple{
		{Name: "total", Value: "16000"},
		{Name: "used", Value: "4321"},
		{Name: "percent", Value: "27"},
		{Name: "icon", Value: "memory-symbolic"},
	}, tuples)

	used, err := r.Get(ctx, protocol.RamUsed)
	require.NoError(t, err)
	assert.Equal(t, "4321", used)

	assert.Equal(t, errors.ErrReadOnly, errors.CodeOf(r.Set(ctx, protocol.RamTotal, "1")))
}

func TestRamStatFailure(t *testing.T) {
	opts := options(newRunner(), &recordingNotifier{})
	opts.VirtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, stderrors.New("open /proc/meminfo: no such file")
	}

	_, err := provider.NewRam(opts).Tuples(context.Background())
	assert.Equal(t, errors.ErrCommandFailed, errors.CodeOf(err))
}

const fanProfileCmd = "asusctl profile -p"

func fanOutput(profile string) string {
	return "Starting version 6.0.12\nActive profile is " + profile
}

func TestFanProfileCycle(t *testing.T) {
	tests := []struct {
		current string
		value   string
		want    string
	}{
		{"Performance", "next", "Balanced"},
		{"Quiet", "next", "Performance"},
		{"Performance", "prev", "Quiet"},
		{"Balanced", "quiet", "Quiet"},
	}

	for _, tt := range tests {
		r := newRunner().on(fanProfileCmd, fanOutput(tt.current), fanOutput(tt.want))
		n := &recordingNotifier{}
		f := provider.NewFanProfile(options(r, n))

		require.NoError(t, f.Set(context.Background(), protocol.FanProfileProfile, tt.value))
		assert.True(t, r.called("asusctl profile -P "+tt.want), "%s %s", tt.current, tt.value)
		require.Len(t, n.sent, 1)
		assert.Equal(t, "Fan Profile: "+tt.want, n.sent[0].Summary)
		assert.Equal(t, "sensors-fan-symbolic", n.sent[0].Icon)
	}
}

func TestFanProfileRejectsUnknownProfile(t *testing.T) {
	r := newRunner().on(fanProfileCmd, fanOutput("Balanced"))
	f := provider.NewFanProfile(options(r, &recordingNotifier{}))

	err := f.Set(context.Background(), protocol.FanProfileProfile, "turbo")
	assert.Equal(t, errors.ErrInvalidValue, errors.CodeOf(err))
}

func TestFanProfileTuples(t *testing.T) {
	r := newRunner().on(fanProfileCmd, fanOutput("Quiet"))
	f := provider.NewFanProfile(options(r, &recordingNotifier{}))

	tuples, err := f.Tuples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []protocol.Tuple{
		{Name: "profile", Value: "Quiet"},
		{Name: "icon", Value: "sensors-fan-symbolic"},
	}, tuples)
}

func TestGetLeafAllIsInvalid(t *testing.T) {
	ps := provider.New(options(newRunner().on("bluetooth", "bluetooth = on"), &recordingNotifier{}))

	_, err := ps.Bluetooth.Get(context.Background(), protocol.LeafAll)
	assert.Equal(t, errors.ErrInvalidItem, errors.CodeOf(err))
}
