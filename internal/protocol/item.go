package protocol

import "strings"

// Kind selects a provider, or every provider.
type Kind uint8

const (
	KindAll Kind = iota
	KindVolume
	KindBrightness
	KindBluetooth
	KindBattery
	KindRam
	KindFanProfile
)

// Kinds lists the providers in snapshot order.
var Kinds = []Kind{
	KindVolume,
	KindBrightness,
	KindBluetooth,
	KindBattery,
	KindRam,
	KindFanProfile,
}

var kindNames = [...]string{
	KindAll:        "all",
	KindVolume:     "volume",
	KindBrightness: "brightness",
	KindBluetooth:  "bluetooth",
	KindBattery:    "battery",
	KindRam:        "ram",
	KindFanProfile: "fan_profile",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "unknown"
}

// Leaf names one field of a provider. Its meaning depends on the Kind it is
// paired with; the zero Leaf always means every field.
type Leaf uint8

const LeafAll Leaf = 0

const (
	VolumePercent Leaf = iota + 1
	VolumeMute
	VolumeIcon
)

const (
	BrightnessMonitor Leaf = iota + 1
	BrightnessKeyboard
	BrightnessIcon
)

const (
	BluetoothState Leaf = iota + 1
	BluetoothIcon
)

const (
	BatteryState Leaf = iota + 1
	BatteryPercent
	BatteryTime
	BatteryIcon
)

const (
	RamTotal Leaf = iota + 1
	RamUsed
	RamPercent
	RamIcon
)

const (
	FanProfileProfile Leaf = iota + 1
	FanProfileIcon
)

// leafNames is indexed by Kind, then Leaf.
var leafNames = [...][]string{
	KindAll:        {"all"},
	KindVolume:     {"all", "percent", "mute", "icon"},
	KindBrightness: {"all", "monitor", "keyboard", "icon"},
	KindBluetooth:  {"all", "state", "icon"},
	KindBattery:    {"all", "state", "percent", "time", "icon"},
	KindRam:        {"all", "total", "used", "percent", "icon"},
	KindFanProfile: {"all", "profile", "icon"},
}

// Item addresses one leaf value, one provider's tuples, or the whole
// snapshot. It is encoded as the two element array [kind, leaf].
type Item struct {
	_    struct{} `cbor:",toarray"`
	Kind Kind
	Leaf Leaf
}

func All() Item                  { return Item{} }
func Volume(leaf Leaf) Item      { return Item{Kind: KindVolume, Leaf: leaf} }
func Brightness(leaf Leaf) Item  { return Item{Kind: KindBrightness, Leaf: leaf} }
func Bluetooth(leaf Leaf) Item   { return Item{Kind: KindBluetooth, Leaf: leaf} }
func Battery(leaf Leaf) Item     { return Item{Kind: KindBattery, Leaf: leaf} }
func Ram(leaf Leaf) Item         { return Item{Kind: KindRam, Leaf: leaf} }
func FanProfile(leaf Leaf) Item  { return Item{Kind: KindFanProfile, Leaf: leaf} }
func ItemOf(k Kind, l Leaf) Item { return Item{Kind: k, Leaf: l} }

// Valid reports whether the item names an existing provider and leaf.
func (i Item) Valid() bool {
	if int(i.Kind) >= len(leafNames) {
		return false
	}

	return int(i.Leaf) < len(leafNames[i.Kind])
}

// IsAll reports whether the item is the top-level All.
func (i Item) IsAll() bool {
	return i.Kind == KindAll
}

// LeafName returns the lower-case name of the leaf, as used in tuples.
func (i Item) LeafName() string {
	if !i.Valid() {
		return "unknown"
	}

	return leafNames[i.Kind][i.Leaf]
}

func (i Item) String() string {
	switch {
	case !i.Valid():
		return "unknown"
	case i.Kind == KindAll:
		return kindNames[KindAll]
	case i.Leaf == LeafAll:
		return i.Kind.String()
	}

	return i.Kind.String() + "." + i.LeafName()
}

var kindAliases = map[string]Kind{
	"all": KindAll, "a": KindAll,
	"volume": KindVolume, "vol": KindVolume, "v": KindVolume,
	"brightness": KindBrightness, "bri": KindBrightness, "b": KindBrightness,
	"bluetooth": KindBluetooth, "blue": KindBluetooth, "blu": KindBluetooth, "bt": KindBluetooth,
	"battery": KindBattery, "bat": KindBattery,
	"ram": KindRam, "r": KindRam, "memory": KindRam, "mem": KindRam,
	"fan_profile": KindFanProfile, "fanprofile": KindFanProfile, "fan": KindFanProfile,
	"fp": KindFanProfile, "f": KindFanProfile, "profile": KindFanProfile,
	"prof": KindFanProfile, "fanprof": KindFanProfile,
}

// leafAliases holds the short names accepted besides the full leaf names.
var leafAliases = map[Kind]map[string]Leaf{
	KindVolume: {
		"p": VolumePercent, "per": VolumePercent,
		"m": VolumeMute,
		"i": VolumeIcon,
	},
	KindBrightness: {
		"m": BrightnessMonitor, "mon": BrightnessMonitor,
		"k": BrightnessKeyboard, "key": BrightnessKeyboard,
		"i": BrightnessIcon,
	},
	KindBluetooth: {
		"s": BluetoothState,
		"i": BluetoothIcon,
	},
	KindBattery: {
		"s": BatteryState,
		"p": BatteryPercent, "per": BatteryPercent,
		"t": BatteryTime,
		"i": BatteryIcon,
	},
	KindRam: {
		"t": RamTotal, "tot": RamTotal,
		"u": RamUsed,
		"p": RamPercent, "per": RamPercent,
		"i": RamIcon,
	},
	KindFanProfile: {
		"p": FanProfileProfile, "prof": FanProfileProfile,
		"i": FanProfileIcon,
	},
}

// ParseKind resolves a provider name or alias.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// ParseLeaf resolves a leaf name or alias for k. An empty name is LeafAll.
func ParseLeaf(k Kind, name string) (Leaf, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return LeafAll, true
	}
	if int(k) >= len(leafNames) {
		return 0, false
	}

	for i, n := range leafNames[k] {
		if n == name {
			return Leaf(i), true
		}
	}

	l, ok := leafAliases[k][name]
	return l, ok
}
