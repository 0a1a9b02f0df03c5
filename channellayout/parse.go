package channellayout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xaionaro-go/avrecode/types"
)

// FromName parses a layout description. Accepted forms:
//
//	stereo, 5.1(side), ...      preset names
//	FL+FR+LFE                   channel lists (native if in native order)
//	FR@right+FL@left            custom lists with optional labels
//	3 channels (FL+FR+LFE)      the form Describe emits for non-preset lists
//	0x3                         native masks
//	6c, 6                       the default layout for a channel count
//	6 channels                  an unspecified layout
//	ambisonic 1, ambisonic 1+stereo
func FromName(s string) (Layout, error) {
	l, err := parse(strings.TrimSpace(s))
	if err != nil {
		return Layout{}, fmt.Errorf("%w: unable to parse channel layout '%s': %w", types.ErrInvalidData, s, err)
	}
	return l, nil
}

func parse(s string) (Layout, error) {
	if s == "" {
		return Layout{}, fmt.Errorf("empty string")
	}
	if mask, ok := presetByName(s); ok {
		return FromMask(mask), nil
	}

	if rest, ok := strings.CutPrefix(s, "ambisonic "); ok {
		return parseAmbisonic(rest)
	}

	if countStr, list, ok := strings.Cut(s, " channels ("); ok {
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return Layout{}, fmt.Errorf("invalid channel count '%s': %w", countStr, err)
		}
		list, ok = strings.CutSuffix(list, ")")
		if !ok {
			return Layout{}, fmt.Errorf("missing closing parenthesis")
		}
		l, err := parseChannelList(list)
		if err != nil {
			return Layout{}, err
		}
		if l.nbChannels != count {
			return Layout{}, fmt.Errorf("declared %d channels, but listed %d", count, l.nbChannels)
		}
		return l, nil
	}

	if countStr, ok := strings.CutSuffix(s, " channels"); ok {
		count, err := strconv.Atoi(countStr)
		if err != nil || count <= 0 {
			return Layout{}, fmt.Errorf("invalid channel count '%s'", countStr)
		}
		return Unspecified(count), nil
	}

	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		mask, err := strconv.ParseUint(hex, 16, 64)
		if err != nil || mask == 0 {
			return Layout{}, fmt.Errorf("invalid channel mask '%s'", s)
		}
		return FromMask(mask), nil
	}

	countStr := strings.TrimSuffix(s, "c")
	if count, err := strconv.Atoi(countStr); err == nil {
		if count <= 0 || count > 64 {
			return Layout{}, fmt.Errorf("invalid channel count %d", count)
		}
		return Default(count), nil
	}

	return parseChannelList(s)
}

func parseAmbisonic(s string) (Layout, error) {
	orderStr, extra, hasExtra := strings.Cut(s, "+")
	order, err := strconv.Atoi(orderStr)
	if err != nil || order < 0 || order > 44 {
		return Layout{}, fmt.Errorf("invalid ambisonic order '%s'", orderStr)
	}
	l := Layout{
		order:      OrderAmbisonic,
		nbChannels: (order + 1) * (order + 1),
	}
	if hasExtra {
		native, err := parse(extra)
		if err != nil {
			return Layout{}, fmt.Errorf("invalid non-diegetic channels '%s': %w", extra, err)
		}
		mask, ok := native.NativeMask()
		if !ok {
			return Layout{}, fmt.Errorf("non-diegetic channels '%s' are not a native layout", extra)
		}
		l.mask = mask
		l.nbChannels += native.nbChannels
	}
	return l, nil
}

func parseChannelList(s string) (Layout, error) {
	tokens := strings.Split(s, "+")
	channels := make([]CustomChannel, 0, len(tokens))
	isNative := true
	for idx, token := range tokens {
		chName, label, hasLabel := strings.Cut(token, "@")
		ch, ok := ChannelFromName(chName)
		if !ok {
			return Layout{}, fmt.Errorf("unknown channel '%s'", chName)
		}
		if hasLabel {
			if label == "" {
				return Layout{}, fmt.Errorf("empty label of channel '%s'", chName)
			}
			isNative = false
		}
		if !ch.IsNative() || (idx > 0 && ch <= channels[idx-1].ID) {
			isNative = false
		}
		channels = append(channels, NewCustomChannel(ch, label))
	}
	if isNative {
		var mask uint64
		for _, ch := range channels {
			mask |= 1 << uint(ch.ID)
		}
		return FromMask(mask), nil
	}
	return Custom(channels...), nil
}
