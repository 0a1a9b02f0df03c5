// negotiate.go resolves requested parameters against a codec's declared sets.

package codec

import (
	"fmt"
	"slices"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/types"
)

func layoutIsDeclared(declared []channellayout.Layout, l channellayout.Layout) bool {
	for _, d := range declared {
		if d.Equal(l) {
			return true
		}
	}
	return false
}

func nearestSampleRate(declared []int, want int) int {
	best := declared[0]
	for _, rate := range declared[1:] {
		if abs(rate-want) < abs(best-want) {
			best = rate
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// NegotiateParameters returns a copy of params with every value the codec
// would refuse replaced by an acceptable one:
//   - a channel layout outside the declared set becomes the declared layout
//     with the most channels not exceeding the requested count
//     (see channellayout.Best);
//   - a sample format outside the declared set becomes its planar/packed
//     counterpart if declared, otherwise the first declared one;
//   - a sample rate outside the declared set becomes the nearest one.
//
// Unset values are filled the same way. Codecs without declared sets keep
// the requested values.
func (c *Codec) NegotiateParameters(params *Parameters) *Parameters {
	result := params.Clone()
	if result == nil {
		result = NewParameters()
	}
	if result.MediaType == types.MediaTypeUnknown {
		result.MediaType = c.MediaType
	}
	if result.CodecID == "" {
		result.CodecID = c.ID
	}

	if c.MediaType != types.MediaTypeAudio {
		if c.PixelFormats != nil && !slices.Contains(c.PixelFormats, result.PixelFormat) {
			result.PixelFormat = c.PixelFormats[0]
		}
		return result
	}

	if c.ChannelLayouts != nil && !layoutIsDeclared(c.ChannelLayouts, result.ChannelLayout) {
		maxChannels := result.ChannelLayout.Channels()
		if maxChannels <= 0 {
			maxChannels = 2
		}
		result.ChannelLayout = channellayout.Best(c.ChannelLayouts, maxChannels)
	}
	if result.ChannelLayout.IsZeroed() {
		result.ChannelLayout = channellayout.Default(2)
	}

	if c.SampleFormats != nil && !slices.Contains(c.SampleFormats, result.SampleFormat) {
		switch {
		case result.SampleFormat.IsPlanar() && slices.Contains(c.SampleFormats, result.SampleFormat.Packed()):
			result.SampleFormat = result.SampleFormat.Packed()
		case !result.SampleFormat.IsPlanar() && slices.Contains(c.SampleFormats, result.SampleFormat.Planar()):
			result.SampleFormat = result.SampleFormat.Planar()
		default:
			result.SampleFormat = c.SampleFormats[0]
		}
	}

	if c.SampleRates != nil && !slices.Contains(c.SampleRates, result.SampleRate) {
		result.SampleRate = nearestSampleRate(c.SampleRates, result.SampleRate)
	}

	if !result.TimeBase.IsValid() && result.SampleRate > 0 {
		result.TimeBase = types.NewRational(1, int32(result.SampleRate))
	}
	if result.FrameSize == 0 && !c.Capabilities.Has(CapVariableFrameSize) {
		result.FrameSize = c.FrameSize
	}
	return result
}

// ValidateParameters checks params against the declared sets and the
// threading capabilities. It returns types.ErrUnsupported naming the first
// offending property.
func (c *Codec) ValidateParameters(params *Parameters) error {
	if params == nil {
		return fmt.Errorf("%w: no parameters", types.ErrInvalidData)
	}

	switch params.ThreadType {
	case ThreadTypeNone:
	case ThreadTypeFrame:
		if !c.Capabilities.Has(CapFrameThreads) {
			return types.ErrUnsupported{Property: "thread_type", Value: params.ThreadType.String()}
		}
	case ThreadTypeSlice:
		if !c.Capabilities.Has(CapSliceThreads) {
			return types.ErrUnsupported{Property: "thread_type", Value: params.ThreadType.String()}
		}
	default:
		return types.ErrUnsupported{Property: "thread_type", Value: params.ThreadType.String()}
	}
	if params.ThreadCount < 0 {
		return fmt.Errorf("%w: negative thread count %d", types.ErrInvalidData, params.ThreadCount)
	}

	if !c.IsEncoder {
		return nil
	}

	switch c.MediaType {
	case types.MediaTypeAudio:
		if c.SampleFormats != nil && !slices.Contains(c.SampleFormats, params.SampleFormat) {
			return types.ErrUnsupported{Property: "sample_format", Value: params.SampleFormat.String()}
		}
		if c.SampleRates != nil && !slices.Contains(c.SampleRates, params.SampleRate) {
			return types.ErrUnsupported{Property: "sample_rate", Value: fmt.Sprint(params.SampleRate)}
		}
		if c.ChannelLayouts != nil && !layoutIsDeclared(c.ChannelLayouts, params.ChannelLayout) {
			return types.ErrUnsupported{Property: "channel_layout", Value: params.ChannelLayout.String()}
		}
	case types.MediaTypeVideo:
		if c.PixelFormats != nil && !slices.Contains(c.PixelFormats, params.PixelFormat) {
			return types.ErrUnsupported{Property: "pixel_format", Value: params.PixelFormat.String()}
		}
		if c.FrameRates != nil && params.FrameRate.IsValid() && !slices.ContainsFunc(c.FrameRates, params.FrameRate.Equal) {
			return types.ErrUnsupported{Property: "frame_rate", Value: params.FrameRate.String()}
		}
	}
	return nil
}
