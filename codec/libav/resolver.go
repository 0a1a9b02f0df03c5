// resolver.go exposes the codecs compiled into libavcodec through codec.Registry.

// Package libav implements codec.Coder on top of libavcodec (through
// go-astiav), so every decoder and encoder of the linked FFmpeg can be
// driven by codec.Context.
package libav

import (
	"context"

	"github.com/asticode/go-astiav"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/logger"
)

// Resolver finds libav codecs lazily; codec.ID values are libav codec
// names ("aac", "opus", "pcm_s16le", ...).
type Resolver struct{}

var _ codec.Resolver = Resolver{}

func (Resolver) ResolveCodec(
	ctx context.Context,
	name string,
	id codec.ID,
	isEncoder bool,
) *codec.Codec {
	var avCodec *astiav.Codec
	switch {
	case name != "" && isEncoder:
		avCodec = astiav.FindEncoderByName(name)
	case name != "":
		avCodec = astiav.FindDecoderByName(name)
	default:
		avCodecID, ok := CodecIDToAstiav(id)
		if !ok {
			return nil
		}
		if isEncoder {
			avCodec = astiav.FindEncoder(avCodecID)
		} else {
			avCodec = astiav.FindDecoder(avCodecID)
		}
	}
	if avCodec == nil {
		logger.Debugf(ctx, "libav has no %s for '%s' ('%s')", directionName(isEncoder), id, name)
		return nil
	}
	return Describe(avCodec)
}

func directionName(isEncoder bool) string {
	if isEncoder {
		return "encoder"
	}
	return "decoder"
}

// CodecIDToAstiav looks up the libav codec id by its name.
func CodecIDToAstiav(id codec.ID) (astiav.CodecID, bool) {
	for _, c := range astiav.Codecs() {
		if c.ID().Name() == string(id) {
			return c.ID(), true
		}
	}
	return astiav.CodecIDNone, false
}

// Describe builds the codec descriptor of a libav codec.
func Describe(avCodec *astiav.Codec) *codec.Codec {
	c := &codec.Codec{
		Name:      avCodec.Name(),
		ID:        codec.ID(avCodec.ID().Name()),
		MediaType: MediaTypeFromAstiav(avCodec.MediaType()),
		IsEncoder: avCodec.IsEncoder(),
	}

	caps := avCodec.Capabilities()
	if caps&astiav.CodecCapabilityDelay != 0 {
		c.Capabilities |= codec.CapDelay
	}
	if caps&astiav.CodecCapabilityVariableFrameSize != 0 {
		c.Capabilities |= codec.CapVariableFrameSize
	}
	if caps&astiav.CodecCapabilityEncoderFlush != 0 {
		c.Capabilities |= codec.CapEncoderFlush
	}
	if caps&astiav.CodecCapabilityFrameThreads != 0 {
		c.Capabilities |= codec.CapFrameThreads
	}
	if caps&astiav.CodecCapabilitySliceThreads != 0 {
		c.Capabilities |= codec.CapSliceThreads
	}

	for _, f := range avCodec.SampleFormats() {
		c.SampleFormats = append(c.SampleFormats, SampleFormatFromAstiav(f))
	}
	for _, l := range avCodec.ChannelLayouts() {
		layout := ChannelLayoutFromAstiav(l)
		if layout.Order() != channellayout.OrderNative {
			continue
		}
		c.ChannelLayouts = append(c.ChannelLayouts, layout)
	}
	for _, f := range avCodec.PixelFormats() {
		c.PixelFormats = append(c.PixelFormats, PixelFormatFromAstiav(f))
	}
	c.NewCoder = func(ctx context.Context, c *codec.Codec) (codec.Coder, error) {
		return newCoder(c, avCodec), nil
	}
	return c
}

// Register makes registry fall back to libav for codecs it does not know.
func Register(ctx context.Context, registry *codec.Registry) {
	registry.AddResolver(ctx, Resolver{})
}

// Codecs lists every codec of the linked libavcodec.
func Codecs() []*codec.Codec {
	var result []*codec.Codec
	for _, avCodec := range astiav.Codecs() {
		result = append(result, Describe(avCodec))
	}
	return result
}
