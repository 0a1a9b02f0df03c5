package channellayout

import (
	"github.com/xaionaro-go/typing"
)

func undecidable(order Order) bool {
	return order == OrderUnspecified || order == OrderAmbisonic
}

// Equal reports whether a and b denote the same channels in the same order.
// A custom layout whose entries follow native order equals the native
// layout with the same channels; names are not compared. The result is
// unset when either side is unspecified or ambisonic.
func Equal(a, b Layout) typing.Optional[bool] {
	if undecidable(a.order) || undecidable(b.order) {
		return typing.Optional[bool]{}
	}
	if a.nbChannels != b.nbChannels {
		return typing.Opt(false)
	}
	if a.order == OrderNative && b.order == OrderNative {
		return typing.Opt(a.mask == b.mask)
	}
	for idx := 0; idx < a.nbChannels; idx++ {
		if a.ChannelAt(idx) != b.ChannelAt(idx) {
			return typing.Opt(false)
		}
	}
	return typing.Opt(true)
}

// Equal is a shorthand for Equal(l, other) treating "unset" as false.
func (l Layout) Equal(other Layout) bool {
	r := Equal(l, other)
	return r.IsSet() && r.Get()
}

// Contains reports whether ch is part of the layout. The result is unset
// for unspecified and ambisonic layouts.
func (l Layout) Contains(ch Channel) typing.Optional[bool] {
	switch l.order {
	case OrderNative:
		return typing.Opt(ch.IsNative() && l.mask&(1<<uint(ch)) != 0)
	case OrderCustom:
		for _, c := range l.custom {
			if c.ID == ch {
				return typing.Opt(true)
			}
		}
		return typing.Opt(false)
	default:
		return typing.Optional[bool]{}
	}
}

// ContainsAll reports whether every channel of other is part of l.
//
// Native in native is a mask test, a custom other is checked channel by
// channel. A custom l with a native other is left unset, as are all
// combinations involving unspecified or ambisonic layouts.
func (l Layout) ContainsAll(other Layout) typing.Optional[bool] {
	if undecidable(l.order) || undecidable(other.order) {
		return typing.Optional[bool]{}
	}
	switch {
	case l.order == OrderNative && other.order == OrderNative:
		return typing.Opt(l.mask&other.mask == other.mask)
	case other.order == OrderCustom:
		for _, c := range other.custom {
			r := l.Contains(c.ID)
			if !r.IsSet() {
				return typing.Optional[bool]{}
			}
			if !r.Get() {
				return typing.Opt(false)
			}
		}
		return typing.Opt(true)
	default:
		return typing.Optional[bool]{}
	}
}

// Best returns the candidate with the most channels not exceeding
// maxChannels. The fold is seeded with Default(1), so the result is mono
// when no candidate fits; on ties the earliest candidate wins.
func Best(candidates []Layout, maxChannels int) Layout {
	best := Default(1)
	for _, c := range candidates {
		if c.nbChannels > best.nbChannels && c.nbChannels <= maxChannels {
			best = c
		}
	}
	return best.Clone()
}
