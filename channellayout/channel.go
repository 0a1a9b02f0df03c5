// channel.go defines the channel identifiers a layout is made of.

package channellayout

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel identifies one speaker position. Ids 0..63 match the bit positions
// of a native layout mask.
type Channel int

const (
	ChannelNone                = Channel(-1)
	ChannelFrontLeft           = Channel(0)
	ChannelFrontRight          = Channel(1)
	ChannelFrontCenter         = Channel(2)
	ChannelLowFrequency        = Channel(3)
	ChannelBackLeft            = Channel(4)
	ChannelBackRight           = Channel(5)
	ChannelFrontLeftOfCenter   = Channel(6)
	ChannelFrontRightOfCenter  = Channel(7)
	ChannelBackCenter          = Channel(8)
	ChannelSideLeft            = Channel(9)
	ChannelSideRight           = Channel(10)
	ChannelTopCenter           = Channel(11)
	ChannelTopFrontLeft        = Channel(12)
	ChannelTopFrontCenter      = Channel(13)
	ChannelTopFrontRight       = Channel(14)
	ChannelTopBackLeft         = Channel(15)
	ChannelTopBackCenter       = Channel(16)
	ChannelTopBackRight        = Channel(17)
	ChannelStereoLeft          = Channel(29)
	ChannelStereoRight         = Channel(30)
	ChannelWideLeft            = Channel(31)
	ChannelWideRight           = Channel(32)
	ChannelSurroundDirectLeft  = Channel(33)
	ChannelSurroundDirectRight = Channel(34)
	ChannelLowFrequency2       = Channel(35)
	ChannelTopSideLeft         = Channel(36)
	ChannelTopSideRight        = Channel(37)
	ChannelBottomFrontCenter   = Channel(38)
	ChannelBottomFrontLeft     = Channel(39)
	ChannelBottomFrontRight    = Channel(40)

	// ChannelUnused marks a slot of a custom layout that carries no signal.
	ChannelUnused = Channel(0x200)

	// ChannelUnknown marks a slot whose position is not known.
	ChannelUnknown = Channel(0x300)

	// ChannelAmbisonicBase is the first ambisonic component (ACN 0);
	// ACN n is ChannelAmbisonicBase+n.
	ChannelAmbisonicBase = Channel(0x400)
	ChannelAmbisonicEnd  = Channel(0x7ff)
)

type channelInfo struct {
	Name        string
	Description string
}

var channelInfos = map[Channel]channelInfo{
	ChannelFrontLeft:           {"FL", "front left"},
	ChannelFrontRight:          {"FR", "front right"},
	ChannelFrontCenter:         {"FC", "front center"},
	ChannelLowFrequency:        {"LFE", "low frequency"},
	ChannelBackLeft:            {"BL", "back left"},
	ChannelBackRight:           {"BR", "back right"},
	ChannelFrontLeftOfCenter:   {"FLC", "front left-of-center"},
	ChannelFrontRightOfCenter:  {"FRC", "front right-of-center"},
	ChannelBackCenter:          {"BC", "back center"},
	ChannelSideLeft:            {"SL", "side left"},
	ChannelSideRight:           {"SR", "side right"},
	ChannelTopCenter:           {"TC", "top center"},
	ChannelTopFrontLeft:        {"TFL", "top front left"},
	ChannelTopFrontCenter:      {"TFC", "top front center"},
	ChannelTopFrontRight:       {"TFR", "top front right"},
	ChannelTopBackLeft:         {"TBL", "top back left"},
	ChannelTopBackCenter:       {"TBC", "top back center"},
	ChannelTopBackRight:        {"TBR", "top back right"},
	ChannelStereoLeft:          {"DL", "downmix left"},
	ChannelStereoRight:         {"DR", "downmix right"},
	ChannelWideLeft:            {"WL", "wide left"},
	ChannelWideRight:           {"WR", "wide right"},
	ChannelSurroundDirectLeft:  {"SDL", "surround direct left"},
	ChannelSurroundDirectRight: {"SDR", "surround direct right"},
	ChannelLowFrequency2:       {"LFE2", "low frequency 2"},
	ChannelTopSideLeft:         {"TSL", "top side left"},
	ChannelTopSideRight:        {"TSR", "top side right"},
	ChannelBottomFrontCenter:   {"BFC", "bottom front center"},
	ChannelBottomFrontLeft:     {"BFL", "bottom front left"},
	ChannelBottomFrontRight:    {"BFR", "bottom front right"},
	ChannelNone:                {"NONE", "none"},
	ChannelUnused:              {"UNUSED", "unused"},
	ChannelUnknown:             {"UNK", "unknown"},
}

// IsAmbisonic reports whether the channel is an ambisonic component.
func (ch Channel) IsAmbisonic() bool {
	return ch >= ChannelAmbisonicBase && ch <= ChannelAmbisonicEnd
}

// IsNative reports whether the channel can be represented in a native mask.
func (ch Channel) IsNative() bool {
	return ch >= 0 && ch < 64
}

// Name returns the short name ("FL", "LFE", "AMBI3", "USR20").
func (ch Channel) Name() string {
	if info, ok := channelInfos[ch]; ok {
		return info.Name
	}
	if ch.IsAmbisonic() {
		return fmt.Sprintf("AMBI%d", int(ch-ChannelAmbisonicBase))
	}
	return fmt.Sprintf("USR%d", int(ch))
}

func (ch Channel) Description() string {
	if info, ok := channelInfos[ch]; ok {
		return info.Description
	}
	if ch.IsAmbisonic() {
		return fmt.Sprintf("ambisonic ACN %d", int(ch-ChannelAmbisonicBase))
	}
	return fmt.Sprintf("user %d", int(ch))
}

func (ch Channel) String() string {
	return ch.Name()
}

// ChannelFromName is the inverse of Channel.Name.
func ChannelFromName(name string) (Channel, bool) {
	for ch, info := range channelInfos {
		if info.Name == name {
			return ch, true
		}
	}
	for _, prefix := range []string{"AMBI", "USR"} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}
		n, err := strconv.ParseUint(rest, 10, 16)
		if err != nil {
			return ChannelNone, false
		}
		if prefix == "AMBI" {
			ch := ChannelAmbisonicBase + Channel(n)
			return ch, ch.IsAmbisonic()
		}
		return Channel(n), true
	}
	return ChannelNone, false
}

const customChannelNameSize = 16

// CustomChannel is one entry of a custom-order layout.
type CustomChannel struct {
	ID Channel

	// Name is an optional label; it is stored truncated to 15 bytes.
	Name string
}

// NewCustomChannel returns an entry with the name truncated to fit.
func NewCustomChannel(id Channel, name string) CustomChannel {
	return CustomChannel{ID: id, Name: truncateName(name)}
}

func truncateName(name string) string {
	if len(name) < customChannelNameSize {
		return name
	}
	n := customChannelNameSize - 1
	// do not cut a multibyte rune in half
	for n > 0 && name[n]&0xC0 == 0x80 {
		n--
	}
	return name[:n]
}

func (c CustomChannel) String() string {
	if c.Name == "" {
		return c.ID.Name()
	}
	return c.ID.Name() + "@" + c.Name
}
