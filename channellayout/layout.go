// Package channellayout models audio channel topologies: native bitmask
// layouts, custom channel lists, unspecified and ambisonic layouts, and the
// comparison and negotiation logic between them.
package channellayout

import (
	"fmt"
	"math/bits"
	"slices"
)

// Order tells how the channels of a layout are described.
type Order int

const (
	// OrderUnspecified only knows the channel count.
	OrderUnspecified = Order(0)
	// OrderNative is a bitmask of channel ids, ordered by id.
	OrderNative = Order(1)
	// OrderCustom is an explicit list of channels.
	OrderCustom = Order(2)
	// OrderAmbisonic is a set of ambisonic components optionally followed by
	// native non-diegetic channels.
	OrderAmbisonic = Order(3)
)

func (o Order) String() string {
	switch o {
	case OrderUnspecified:
		return "unspecified"
	case OrderNative:
		return "native"
	case OrderCustom:
		return "custom"
	case OrderAmbisonic:
		return "ambisonic"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Layout is an audio channel topology.
//
// The zero value is the "unset" sentinel (see IsZeroed), which is distinct
// from any valid layout.
type Layout struct {
	order      Order
	nbChannels int

	// mask holds the channels of a native layout, or the non-diegetic
	// channels of an ambisonic one.
	mask   uint64
	custom []CustomChannel
}

// Native returns a native-order layout made of the given channels.
// ChannelNone entries and channels without a mask bit are skipped.
func Native(channels ...Channel) Layout {
	return Layout{}.WithChannelsNative(channels...)
}

// WithChannelsNative returns a native-order layout with the channels of l
// (if l is native) plus the given ones.
func (l Layout) WithChannelsNative(channels ...Channel) Layout {
	var mask uint64
	if l.order == OrderNative {
		mask = l.mask
	}
	for _, ch := range channels {
		if !ch.IsNative() {
			continue
		}
		mask |= 1 << uint(ch)
	}
	return FromMask(mask)
}

// FromMask returns a native-order layout; a zero mask yields the zeroed layout.
func FromMask(mask uint64) Layout {
	if mask == 0 {
		return Layout{}
	}
	return Layout{
		order:      OrderNative,
		nbChannels: bits.OnesCount64(mask),
		mask:       mask,
	}
}

// Custom returns a custom-order layout with exactly the given entries.
func Custom(channels ...CustomChannel) Layout {
	if len(channels) == 0 {
		return Layout{}
	}
	custom := make([]CustomChannel, len(channels))
	for idx, ch := range channels {
		custom[idx] = NewCustomChannel(ch.ID, ch.Name)
	}
	return Layout{
		order:      OrderCustom,
		nbChannels: len(custom),
		custom:     custom,
	}
}

// Unspecified returns a layout that only knows its channel count.
func Unspecified(nbChannels int) Layout {
	if nbChannels <= 0 {
		return Layout{}
	}
	return Layout{
		order:      OrderUnspecified,
		nbChannels: nbChannels,
	}
}

// Ambisonic returns an ambisonic layout of nbChannels channels:
// (order+1)^2 components, optionally followed by a stereo pair.
func Ambisonic(nbChannels int) (Layout, error) {
	if _, ok := ambisonicOrder(nbChannels); ok {
		return Layout{order: OrderAmbisonic, nbChannels: nbChannels}, nil
	}
	if _, ok := ambisonicOrder(nbChannels - 2); ok {
		return Layout{order: OrderAmbisonic, nbChannels: nbChannels, mask: Stereo.mask}, nil
	}
	return Layout{}, fmt.Errorf("%d channels is not a valid ambisonic channel count", nbChannels)
}

func ambisonicOrder(nbComponents int) (int, bool) {
	if nbComponents <= 0 {
		return 0, false
	}
	for order := 0; (order+1)*(order+1) <= nbComponents; order++ {
		if (order+1)*(order+1) == nbComponents {
			return order, true
		}
	}
	return 0, false
}

// AmbisonicOrder returns the ambisonic order, or -1 for other layouts.
func (l Layout) AmbisonicOrder() int {
	if l.order != OrderAmbisonic {
		return -1
	}
	order, ok := ambisonicOrder(l.nbChannels - bits.OnesCount64(l.mask))
	if !ok {
		return -1
	}
	return order
}

// Default returns the canonical layout for nbChannels channels: the first
// preset with that count, otherwise an unspecified layout.
func Default(nbChannels int) Layout {
	for _, p := range presets {
		if bits.OnesCount64(p.Mask) == nbChannels {
			return FromMask(p.Mask)
		}
	}
	return Unspecified(nbChannels)
}

// Clone returns a deep copy.
func (l Layout) Clone() Layout {
	l.custom = slices.Clone(l.custom)
	return l
}

// IsZeroed reports whether l is the unset sentinel.
func (l Layout) IsZeroed() bool {
	return l.order == OrderUnspecified && l.nbChannels == 0 && l.mask == 0 && l.custom == nil
}

// IsZero is IsZeroed under the name encoders look for (e.g. yaml
// omitempty).
func (l Layout) IsZero() bool {
	return l.IsZeroed()
}

func (l Layout) IsEmpty() bool {
	return l.nbChannels == 0
}

func (l Layout) Order() Order {
	return l.order
}

// SetOrder changes the order tag without touching the payload.
// The result may be invalid, see Check.
func (l *Layout) SetOrder(order Order) {
	l.order = order
}

func (l Layout) Channels() int {
	return l.nbChannels
}

// NativeMask returns the mask of a native layout.
func (l Layout) NativeMask() (uint64, bool) {
	if l.order != OrderNative {
		return 0, false
	}
	return l.mask, true
}

// CustomChannels returns a copy of the entries of a custom layout.
func (l Layout) CustomChannels() ([]CustomChannel, bool) {
	if l.order != OrderCustom {
		return nil, false
	}
	return slices.Clone(l.custom), true
}

// Check returns nil if the layout is internally consistent.
func (l Layout) Check() error {
	if l.nbChannels <= 0 {
		return fmt.Errorf("the layout has no channels")
	}
	switch l.order {
	case OrderUnspecified:
		return nil
	case OrderNative:
		if c := bits.OnesCount64(l.mask); c != l.nbChannels {
			return fmt.Errorf("the mask has %d bits, but the layout declares %d channels", c, l.nbChannels)
		}
		return nil
	case OrderCustom:
		if len(l.custom) != l.nbChannels {
			return fmt.Errorf("the channel list has %d entries, but the layout declares %d channels", len(l.custom), l.nbChannels)
		}
		for idx, ch := range l.custom {
			if ch.ID == ChannelNone {
				return fmt.Errorf("channel #%d has no id", idx)
			}
		}
		return nil
	case OrderAmbisonic:
		if l.AmbisonicOrder() < 0 {
			return fmt.Errorf("%d channels do not form an ambisonic layout", l.nbChannels)
		}
		return nil
	default:
		return fmt.Errorf("unknown channel order %d", int(l.order))
	}
}

func (l Layout) IsValid() bool {
	return l.Check() == nil
}

// ChannelAt returns the channel at position idx, or ChannelNone.
func (l Layout) ChannelAt(idx int) Channel {
	if idx < 0 || idx >= l.nbChannels {
		return ChannelNone
	}
	switch l.order {
	case OrderNative:
		return nthBit(l.mask, idx)
	case OrderCustom:
		if idx >= len(l.custom) {
			return ChannelNone
		}
		return l.custom[idx].ID
	case OrderAmbisonic:
		nbComponents := l.nbChannels - bits.OnesCount64(l.mask)
		if idx < nbComponents {
			return ChannelAmbisonicBase + Channel(idx)
		}
		return nthBit(l.mask, idx-nbComponents)
	}
	return ChannelNone
}

func nthBit(mask uint64, n int) Channel {
	for ch := 0; ch < 64; ch++ {
		if mask&(1<<uint(ch)) == 0 {
			continue
		}
		if n == 0 {
			return Channel(ch)
		}
		n--
	}
	return ChannelNone
}

// IndexOf returns the position of ch, or -1 if absent or not determinable.
func (l Layout) IndexOf(ch Channel) int {
	switch l.order {
	case OrderNative:
		if !ch.IsNative() || l.mask&(1<<uint(ch)) == 0 {
			return -1
		}
		return bits.OnesCount64(l.mask & (1<<uint(ch) - 1))
	case OrderCustom:
		for idx, c := range l.custom {
			if c.ID == ch {
				return idx
			}
		}
	case OrderAmbisonic:
		nbComponents := l.nbChannels - bits.OnesCount64(l.mask)
		if ch.IsAmbisonic() && int(ch-ChannelAmbisonicBase) < nbComponents {
			return int(ch - ChannelAmbisonicBase)
		}
		if ch.IsNative() && l.mask&(1<<uint(ch)) != 0 {
			return nbComponents + bits.OnesCount64(l.mask&(1<<uint(ch)-1))
		}
	}
	return -1
}

// Subset returns the bits of mask whose channels are present in l.
func (l Layout) Subset(mask uint64) uint64 {
	switch l.order {
	case OrderNative:
		return l.mask & mask
	case OrderCustom, OrderAmbisonic:
		var result uint64
		for idx := 0; idx < l.nbChannels; idx++ {
			ch := l.ChannelAt(idx)
			if ch.IsNative() && mask&(1<<uint(ch)) != 0 {
				result |= 1 << uint(ch)
			}
		}
		return result
	}
	return 0
}
