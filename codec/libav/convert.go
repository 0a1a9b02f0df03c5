// convert.go translates between the in-process units and their libav counterparts.

package libav

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

// SampleFormat and PixelFormat share the numbering of libavutil, so the
// conversion is a cast.

func SampleFormatToAstiav(f types.SampleFormat) astiav.SampleFormat {
	return astiav.SampleFormat(f)
}

func SampleFormatFromAstiav(f astiav.SampleFormat) types.SampleFormat {
	return types.SampleFormat(f)
}

func PixelFormatToAstiav(f types.PixelFormat) astiav.PixelFormat {
	return astiav.PixelFormat(f)
}

func PixelFormatFromAstiav(f astiav.PixelFormat) types.PixelFormat {
	return types.PixelFormat(f)
}

func MediaTypeFromAstiav(t astiav.MediaType) types.MediaType {
	return types.MediaType(t)
}

func MediaTypeToAstiav(t types.MediaType) astiav.MediaType {
	return astiav.MediaType(t)
}

func RationalToAstiav(r types.Rational) astiav.Rational {
	return astiav.NewRational(int(r.Num), int(r.Den))
}

func RationalFromAstiav(r astiav.Rational) types.Rational {
	return types.NewRational(int32(r.Num()), int32(r.Den()))
}

var astiavLayouts = map[string]astiav.ChannelLayout{
	"mono":           astiav.ChannelLayoutMono,
	"stereo":         astiav.ChannelLayoutStereo,
	"2.1":            astiav.ChannelLayout2Point1,
	"3.0":            astiav.ChannelLayoutSurround,
	"3.0(back)":      astiav.ChannelLayout21,
	"4.0":            astiav.ChannelLayout4Point0,
	"quad":           astiav.ChannelLayoutQuad,
	"quad(side)":     astiav.ChannelLayout22,
	"3.1":            astiav.ChannelLayout3Point1,
	"4.1":            astiav.ChannelLayout4Point1,
	"5.0":            astiav.ChannelLayout5Point0Back,
	"5.0(side)":      astiav.ChannelLayout5Point0,
	"5.1":            astiav.ChannelLayout5Point1Back,
	"5.1(side)":      astiav.ChannelLayout5Point1,
	"6.0":            astiav.ChannelLayout6Point0,
	"6.1":            astiav.ChannelLayout6Point1,
	"7.0":            astiav.ChannelLayout7Point0,
	"7.1":            astiav.ChannelLayout7Point1,
	"7.1(wide)":      astiav.ChannelLayout7Point1WideBack,
	"7.1(wide-side)": astiav.ChannelLayout7Point1Wide,
}

// ChannelLayoutToAstiav supports the common native presets only; other
// layouts are reported as types.ErrUnsupported.
func ChannelLayoutToAstiav(l channellayout.Layout) (astiav.ChannelLayout, error) {
	name, err := l.Describe()
	if err != nil {
		return astiav.ChannelLayout{}, err
	}
	if l.Order() == channellayout.OrderNative {
		if r, ok := astiavLayouts[name]; ok {
			return r, nil
		}
	}
	return astiav.ChannelLayout{}, types.ErrUnsupported{Property: "channel_layout", Value: name}
}

// ChannelLayoutFromAstiav parses the libav description; layouts we cannot
// parse become Unspecified with the same channel count.
func ChannelLayoutFromAstiav(l astiav.ChannelLayout) channellayout.Layout {
	if l.Channels() == 0 {
		return channellayout.Layout{}
	}
	r, err := channellayout.FromName(l.String())
	if err != nil {
		return channellayout.Unspecified(l.Channels())
	}
	return r
}

func PacketToAstiav(src *packet.Packet, dst *astiav.Packet) error {
	dst.Unref()
	if err := dst.FromData(append([]byte(nil), src.Data()...)); err != nil {
		return fmt.Errorf("unable to copy the payload: %w", err)
	}
	dst.SetPts(src.Pts)
	dst.SetDts(src.Dts)
	dst.SetDuration(src.Duration)
	dst.SetStreamIndex(src.StreamIndex)
	var flags astiav.PacketFlags
	if src.Flags.Has(packet.FlagKey) {
		flags = flags.Add(astiav.PacketFlagKey)
	}
	if src.Flags.Has(packet.FlagCorrupt) {
		flags = flags.Add(astiav.PacketFlagCorrupt)
	}
	if src.Flags.Has(packet.FlagDiscard) {
		flags = flags.Add(astiav.PacketFlagDiscard)
	}
	dst.SetFlags(flags)
	return nil
}

func PacketFromAstiav(src *astiav.Packet, dst *packet.Packet) {
	dst.Unref()
	dst.SetData(append([]byte(nil), src.Data()...))
	dst.Pts = src.Pts()
	dst.Dts = src.Dts()
	dst.Duration = src.Duration()
	dst.StreamIndex = src.StreamIndex()
	dst.Pos = src.Pos()
	flags := src.Flags()
	if flags.Has(astiav.PacketFlagKey) {
		dst.Flags |= packet.FlagKey
	}
	if flags.Has(astiav.PacketFlagCorrupt) {
		dst.Flags |= packet.FlagCorrupt
	}
	if flags.Has(astiav.PacketFlagDiscard) {
		dst.Flags |= packet.FlagDiscard
	}
}

// FrameToAstiav copies an audio or video frame into dst; planes are
// written with no padding, the way frame.AllocBuffer lays them out.
func FrameToAstiav(src *frame.Frame, dst *astiav.Frame) error {
	dst.Unref()
	switch src.MediaType {
	case types.MediaTypeAudio:
		layout, err := ChannelLayoutToAstiav(src.ChannelLayout)
		if err != nil {
			return err
		}
		dst.SetSampleFormat(SampleFormatToAstiav(src.SampleFormat))
		dst.SetSampleRate(src.SampleRate)
		dst.SetChannelLayout(layout)
		dst.SetNbSamples(src.NbSamples)
	case types.MediaTypeVideo:
		dst.SetPixelFormat(PixelFormatToAstiav(src.PixelFormat))
		dst.SetWidth(src.Width)
		dst.SetHeight(src.Height)
		dst.SetSampleAspectRatio(RationalToAstiav(src.SampleAspectRatio))
	default:
		return fmt.Errorf("%w: unsupported media type %s", types.ErrInvalidData, src.MediaType)
	}
	if err := dst.AllocBuffer(0); err != nil {
		return types.ErrIO{Err: fmt.Errorf("unable to allocate the frame buffer: %w", err)}
	}
	var data []byte
	for idx := range src.NbPlanes() {
		data = append(data, src.Data(idx)...)
	}
	if err := dst.Data().SetBytes(data, 1); err != nil {
		return fmt.Errorf("unable to copy the frame data: %w", err)
	}
	dst.SetPts(src.Pts)
	dst.SetDuration(src.Duration)
	if src.TimeBase.IsValid() {
		dst.SetTimeBase(RationalToAstiav(src.TimeBase))
	}
	if src.IsKey() {
		dst.SetFlags(dst.Flags().Add(astiav.FrameFlagKey))
	}
	return nil
}

// FrameFromAstiav copies src into dst, which gets its own buffer.
func FrameFromAstiav(
	src *astiav.Frame,
	mediaType types.MediaType,
	dst *frame.Frame,
) error {
	dst.Unref()
	dst.MediaType = mediaType
	switch mediaType {
	case types.MediaTypeAudio:
		dst.SampleFormat = SampleFormatFromAstiav(src.SampleFormat())
		dst.SampleRate = src.SampleRate()
		dst.ChannelLayout = ChannelLayoutFromAstiav(src.ChannelLayout())
		dst.NbSamples = src.NbSamples()
	case types.MediaTypeVideo:
		dst.PixelFormat = PixelFormatFromAstiav(src.PixelFormat())
		dst.Width = src.Width()
		dst.Height = src.Height()
		dst.SampleAspectRatio = RationalFromAstiav(src.SampleAspectRatio())
	default:
		return fmt.Errorf("%w: unsupported media type %s", types.ErrInvalidData, mediaType)
	}
	if err := dst.AllocBuffer(); err != nil {
		return err
	}
	data, err := src.Data().Bytes(1)
	if err != nil {
		return fmt.Errorf("unable to read the frame data: %w", err)
	}
	offset := 0
	for idx := range dst.NbPlanes() {
		plane := dst.Data(idx)
		if offset+len(plane) > len(data) {
			return types.ErrBug{Message: fmt.Sprintf("libav returned %d bytes, expected more than %d", len(data), offset+len(plane))}
		}
		copy(plane, data[offset:offset+len(plane)])
		offset += len(plane)
	}
	dst.Pts = src.Pts()
	dst.PktDts = src.PktDts()
	dst.Duration = src.Duration()
	dst.TimeBase = RationalFromAstiav(src.TimeBase())
	dst.Quality = src.Quality()
	dst.SetKey(src.Flags().Has(astiav.FrameFlagKey))
	return nil
}

// ParametersFromAstiav describes the stream codec parameters of a demuxed
// stream.
func ParametersFromAstiav(cp *astiav.CodecParameters) *codec.Parameters {
	p := codec.NewParameters()
	p.MediaType = MediaTypeFromAstiav(cp.MediaType())
	p.CodecID = codec.ID(cp.CodecID().Name())
	p.BitRate = cp.BitRate()
	p.ExtraData = append([]byte(nil), cp.ExtraData()...)
	switch p.MediaType {
	case types.MediaTypeAudio:
		p.SampleFormat = SampleFormatFromAstiav(cp.SampleFormat())
		p.SampleRate = cp.SampleRate()
		p.ChannelLayout = ChannelLayoutFromAstiav(cp.ChannelLayout())
	case types.MediaTypeVideo:
		p.PixelFormat = PixelFormatFromAstiav(cp.PixelFormat())
		p.Width = cp.Width()
		p.Height = cp.Height()
		p.SampleAspectRatio = RationalFromAstiav(cp.SampleAspectRatio())
		p.FrameRate = RationalFromAstiav(cp.FrameRate())
	}
	return p
}

// ParametersToAstiav fills the stream codec parameters of a muxed stream.
func ParametersToAstiav(p *codec.Parameters, cp *astiav.CodecParameters) error {
	avCodecID, ok := CodecIDToAstiav(p.CodecID)
	if !ok {
		return types.ErrUnsupported{Property: "codec id", Value: string(p.CodecID)}
	}
	cp.SetCodecID(avCodecID)
	cp.SetMediaType(MediaTypeToAstiav(p.MediaType))
	cp.SetBitRate(p.BitRate)
	switch p.MediaType {
	case types.MediaTypeAudio:
		cp.SetSampleFormat(SampleFormatToAstiav(p.SampleFormat))
		cp.SetSampleRate(p.SampleRate)
		layout, err := ChannelLayoutToAstiav(p.ChannelLayout)
		if err != nil {
			return err
		}
		cp.SetChannelLayout(layout)
		cp.SetFrameSize(p.FrameSize)
	case types.MediaTypeVideo:
		cp.SetPixelFormat(PixelFormatToAstiav(p.PixelFormat))
		cp.SetWidth(p.Width)
		cp.SetHeight(p.Height)
		cp.SetSampleAspectRatio(RationalToAstiav(p.SampleAspectRatio))
	}
	if len(p.ExtraData) > 0 {
		cp.SetExtraData(p.ExtraData)
	}
	return nil
}
