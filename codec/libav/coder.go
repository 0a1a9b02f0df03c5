package libav

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/unsafetools"

	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

// coder drives one libavcodec context. It implements both directions;
// codec.Context only calls the half matching the codec.
type coder struct {
	codec        *codec.Codec
	avCodec      *astiav.Codec
	codecContext *astiav.CodecContext
	options      *astiav.Dictionary
	closer       *astikit.Closer
	params       *codec.Parameters

	avPacket *astiav.Packet
	avFrame  *astiav.Frame
}

var (
	_ codec.DecoderCoder       = (*coder)(nil)
	_ codec.EncoderCoder       = (*coder)(nil)
	_ codec.ParametersReporter = (*coder)(nil)
)

func newCoder(c *codec.Codec, avCodec *astiav.Codec) *coder {
	return &coder{
		codec:   c,
		avCodec: avCodec,
		closer:  astikit.NewCloser(),
	}
}

func (c *coder) Configure(
	ctx context.Context,
	params *codec.Parameters,
) (_err error) {
	logger.Tracef(ctx, "Configure(ctx, %s)", params)
	defer func() { logger.Tracef(ctx, "/Configure(ctx, %s): %v", params, _err) }()

	c.codecContext = astiav.AllocCodecContext(c.avCodec)
	if c.codecContext == nil {
		return types.ErrIO{Err: fmt.Errorf("unable to allocate a codec context for '%s'", c.avCodec.Name())}
	}
	c.closer.Add(c.codecContext.Free)

	switch params.MediaType {
	case types.MediaTypeAudio:
		if params.SampleFormat != types.SampleFormatNone {
			c.codecContext.SetSampleFormat(SampleFormatToAstiav(params.SampleFormat))
		}
		if params.SampleRate > 0 {
			c.codecContext.SetSampleRate(params.SampleRate)
		}
		if !params.ChannelLayout.IsZeroed() {
			layout, err := ChannelLayoutToAstiav(params.ChannelLayout)
			if err != nil {
				return err
			}
			c.codecContext.SetChannelLayout(layout)
		}
	case types.MediaTypeVideo:
		if params.PixelFormat != types.PixelFormatNone {
			c.codecContext.SetPixelFormat(PixelFormatToAstiav(params.PixelFormat))
		}
		c.codecContext.SetWidth(params.Width)
		c.codecContext.SetHeight(params.Height)
		if params.FrameRate.IsValid() {
			c.codecContext.SetFramerate(RationalToAstiav(params.FrameRate))
		}
		if params.SampleAspectRatio.IsValid() {
			c.codecContext.SetSampleAspectRatio(RationalToAstiav(params.SampleAspectRatio))
		}
	}

	timeBase := params.TimeBase
	if !timeBase.IsValid() && params.SampleRate > 0 {
		timeBase = types.NewRational(1, int32(params.SampleRate))
	}
	if c.codec.IsEncoder && !timeBase.IsValid() {
		return fmt.Errorf("%w: the time base of an encoder must be set", types.ErrInvalidData)
	}
	if timeBase.IsValid() {
		logger.Debugf(ctx, "time_base == %s", timeBase)
		c.codecContext.SetTimeBase(RationalToAstiav(timeBase))
	}
	if params.BitRate > 0 {
		c.codecContext.SetBitRate(params.BitRate)
	}
	if params.ThreadCount > 0 {
		c.codecContext.SetThreadCount(params.ThreadCount)
	}
	switch params.ThreadType {
	case codec.ThreadTypeFrame:
		c.codecContext.SetThreadType(astiav.ThreadTypeFrame)
	case codec.ThreadTypeSlice:
		c.codecContext.SetThreadType(astiav.ThreadTypeSlice)
	}
	if !c.codec.IsEncoder && len(params.ExtraData) > 0 {
		c.codecContext.SetExtraData(params.ExtraData)
	}

	if len(params.Options) > 0 {
		c.options = astiav.NewDictionary()
		c.closer.Add(c.options.Free)
		for _, opt := range params.Options {
			logger.Debugf(ctx, "options['%s'] = '%s'", opt.Key, opt.Value)
			if err := c.options.Set(opt.Key, opt.Value, 0); err != nil {
				return fmt.Errorf("%w: unable to set option '%s': %w", types.ErrInvalidData, opt.Key, err)
			}
		}
	}

	if logger.FromCtx(ctx).Level() >= logger.LevelTrace {
		logger.Tracef(ctx, "codec_context: %s", spew.Sdump(unsafetools.FieldByNameInValue(reflect.ValueOf(c.codecContext), "c").Elem().Elem().Interface()))
	}

	c.params = params.Clone()
	c.params.TimeBase = timeBase
	return nil
}

func (c *coder) Open(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Open")
	defer func() { logger.Tracef(ctx, "/Open: %v", _err) }()
	if c.codecContext == nil {
		return fmt.Errorf("%w: the coder is not configured", types.ErrInvalidData)
	}
	if err := c.codecContext.Open(c.avCodec, c.options); err != nil {
		return fmt.Errorf("unable to open the codec context: %w", ConvertError(err))
	}

	c.avPacket = astiav.AllocPacket()
	c.closer.Add(c.avPacket.Free)
	c.avFrame = astiav.AllocFrame()
	c.closer.Add(c.avFrame.Free)

	c.params.TimeBase = RationalFromAstiav(c.codecContext.TimeBase())
	if c.params.MediaType == types.MediaTypeAudio {
		c.params.SampleFormat = SampleFormatFromAstiav(c.codecContext.SampleFormat())
		c.params.SampleRate = c.codecContext.SampleRate()
		if layout := ChannelLayoutFromAstiav(c.codecContext.ChannelLayout()); !layout.IsZeroed() {
			c.params.ChannelLayout = layout
		}
	}
	if c.codec.IsEncoder {
		c.params.FrameSize = c.codecContext.FrameSize()
		c.params.ExtraData = append([]byte(nil), c.codecContext.ExtraData()...)
	}
	return nil
}

func (c *coder) Parameters(ctx context.Context) *codec.Parameters {
	return c.params
}

func (c *coder) SendPacket(ctx context.Context, pkt *packet.Packet) error {
	if pkt == nil {
		return ConvertError(c.codecContext.SendPacket(nil))
	}
	if err := PacketToAstiav(pkt, c.avPacket); err != nil {
		return err
	}
	defer c.avPacket.Unref()
	return ConvertError(c.codecContext.SendPacket(c.avPacket))
}

func (c *coder) ReceiveFrame(ctx context.Context, f *frame.Frame) error {
	if err := c.codecContext.ReceiveFrame(c.avFrame); err != nil {
		return ConvertReceiveError(err)
	}
	defer c.avFrame.Unref()
	return FrameFromAstiav(c.avFrame, c.codec.MediaType, f)
}

func (c *coder) SendFrame(ctx context.Context, f *frame.Frame) error {
	if f == nil {
		return ConvertError(c.codecContext.SendFrame(nil))
	}
	if err := FrameToAstiav(f, c.avFrame); err != nil {
		return err
	}
	defer c.avFrame.Unref()
	if f.TimeBase.IsValid() && !f.TimeBase.Equal(c.params.TimeBase) && f.Pts != types.NoPTSValue {
		c.avFrame.SetPts(types.Rescale(f.Pts, f.TimeBase, c.params.TimeBase))
	}
	return ConvertError(c.codecContext.SendFrame(c.avFrame))
}

func (c *coder) ReceivePacket(ctx context.Context, pkt *packet.Packet) error {
	if err := c.codecContext.ReceivePacket(c.avPacket); err != nil {
		return ConvertReceiveError(err)
	}
	defer c.avPacket.Unref()
	PacketFromAstiav(c.avPacket, pkt)
	return nil
}

func (c *coder) Flush(ctx context.Context) error {
	if c.codecContext == nil {
		return nil
	}
	c.codecContext.FlushBuffers()
	return nil
}

func (c *coder) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "closing %s", c.codec)
	defer func() { logger.Debugf(ctx, "/closing %s: %v", c.codec, _err) }()
	logger.Flush(ctx) // native code may crash below, keep the logs
	return c.closer.Close()
}

// ConvertError maps libav return codes of the send half to the types
// sentinels; it fits both coders and filter graphs.
func ConvertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return types.ErrBusy
	case errors.Is(err, astiav.ErrEof):
		return types.ErrEOF
	case errors.Is(err, astiav.ErrEinval), errors.Is(err, astiav.ErrInvaliddata):
		return fmt.Errorf("%w: %w", types.ErrInvalidData, err)
	}
	return err
}

// ConvertReceiveError is ConvertError for the receive half, where EAGAIN
// means that more input is needed.
func ConvertReceiveError(err error) error {
	if errors.Is(err, astiav.ErrEagain) {
		return types.ErrEmpty
	}
	return ConvertError(err)
}
