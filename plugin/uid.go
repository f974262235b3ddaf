package plugin

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// UID is a 16-byte interface or class identifier. The bridge treats it as an
// opaque key; only String and ParseUID know about its layout.
type UID [16]byte

// NewUID builds a UID from the four 32-bit words used by the SDK's
// DECLARE_CLASS_IID macros.
func NewUID(l1, l2, l3, l4 uint32) UID {
	var u UID
	binary.BigEndian.PutUint32(u[0:4], l1)
	binary.BigEndian.PutUint32(u[4:8], l2)
	binary.BigEndian.PutUint32(u[8:12], l3)
	binary.BigEndian.PutUint32(u[12:16], l4)
	return u
}

// Well-known interface ids.
var (
	FUnknownIID        = NewUID(0x00000000, 0x00000000, 0xC0000000, 0x00000046)
	PluginBaseIID      = NewUID(0x22888DDB, 0x156E45AE, 0x8358B348, 0x08190625)
	ComponentIID       = NewUID(0xE831FF31, 0xF2D54301, 0x928EBBEE, 0x25697802)
	AudioProcessorIID  = NewUID(0x42043F99, 0xB7DA453C, 0xA569E79D, 0x9AAEC33D)
	EditControllerIID  = NewUID(0xDCD7BBE3, 0x7742448D, 0xA874AACC, 0x979C759E)
	PluginFactoryIID   = NewUID(0x7A4D811C, 0x52114A1F, 0xAED9D2EE, 0x0B43BF9F)
	HostApplicationIID = NewUID(0x58E595CC, 0xDB2D4969, 0x8B6AAF8C, 0x36A664E5)
	ConnectionPointIID = NewUID(0x70A4156F, 0x6E6E4026, 0x989148BF, 0xAA60D8D1)
)

var names = map[UID]string{
	FUnknownIID:        "FUnknown",
	PluginBaseIID:      "IPluginBase",
	ComponentIID:       "IComponent",
	AudioProcessorIID:  "IAudioProcessor",
	EditControllerIID:  "IEditController",
	PluginFactoryIID:   "IPluginFactory",
	HostApplicationIID: "IHostApplication",
	ConnectionPointIID: "IConnectionPoint",
}

// Name returns the interface name for well-known ids and "" otherwise.
func (u UID) Name() string {
	return names[u]
}

func (u UID) IsZero() bool {
	return u == UID{}
}

// String prints the id in the class-uid style, e.g.
// {0xE831FF31, 0xF2D54301, 0x928EBBEE, 0x25697802}.
func (u UID) String() string {
	return fmt.Sprintf("{0x%08X, 0x%08X, 0x%08X, 0x%08X}",
		binary.BigEndian.Uint32(u[0:4]),
		binary.BigEndian.Uint32(u[4:8]),
		binary.BigEndian.Uint32(u[8:12]),
		binary.BigEndian.Uint32(u[12:16]))
}

// ParseUID accepts the String form or 32 hex digits.
func ParseUID(s string) (UID, error) {
	var u UID
	clean := strings.NewReplacer("{", "", "}", "", ",", "", " ", "", "0x", "", "0X", "", "-", "").Replace(s)
	if len(clean) != 32 {
		return u, fmt.Errorf("plugin: invalid uid %q", s)
	}
	if _, err := hex.Decode(u[:], []byte(clean)); err != nil {
		return u, fmt.Errorf("plugin: invalid uid %q: %w", s, err)
	}
	return u, nil
}

// MarshalText renders the String form so text encoders show readable ids.
func (u UID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *UID) UnmarshalText(text []byte) error {
	parsed, err := ParseUID(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
