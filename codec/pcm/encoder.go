package pcm

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

type encoder struct {
	codec  *codec.Codec
	config Config
	params *codec.Parameters

	sampleFormat  types.SampleFormat
	sampleTB      types.Rational
	pending       []*frame.Frame
	nextPts       int64
	gotShortFrame bool
	eof           bool
}

var _ codec.EncoderCoder = (*encoder)(nil)
var _ codec.ParametersReporter = (*encoder)(nil)

func newEncoder(c *codec.Codec, cfg Config) *encoder {
	return &encoder{
		codec:        c,
		config:       cfg,
		sampleFormat: sampleFormats[c.ID],
	}
}

func (e *encoder) Configure(ctx context.Context, params *codec.Parameters) error {
	if err := validateAudioParams(params); err != nil {
		return err
	}
	if params.SampleFormat != e.sampleFormat {
		return types.ErrUnsupported{Property: "sample_format", Value: params.SampleFormat.String()}
	}
	cfg, err := e.config.applyOptions(params.Options)
	if err != nil {
		return err
	}
	e.config = cfg
	e.params = params.Clone()
	e.sampleTB = types.NewRational(1, int32(params.SampleRate))
	if !e.params.TimeBase.IsValid() {
		e.params.TimeBase = e.sampleTB
	}
	if e.config.FrameSize > 0 {
		e.params.FrameSize = e.config.FrameSize
	}
	e.params.BitRate = int64(params.SampleRate) * int64(params.ChannelLayout.Channels()) * int64(e.sampleFormat.BytesPerSample()) * 8
	return nil
}

func (e *encoder) Open(ctx context.Context) error {
	if e.params == nil {
		return fmt.Errorf("%w: the encoder is not configured", types.ErrInvalidData)
	}
	e.nextPts = types.NoPTSValue
	return nil
}

func (e *encoder) Parameters(ctx context.Context) *codec.Parameters {
	return e.params
}

func (e *encoder) SendFrame(ctx context.Context, f *frame.Frame) error {
	if e.eof {
		return types.ErrEOF
	}
	if f == nil {
		e.eof = true
		return nil
	}
	if len(e.pending) >= e.config.Delay+e.config.queueDepth() {
		return types.ErrBusy
	}
	if err := e.checkFrame(f); err != nil {
		return err
	}
	e.pending = append(e.pending, f.Clone())
	return nil
}

func (e *encoder) checkFrame(f *frame.Frame) error {
	if f.SampleFormat != e.sampleFormat && f.SampleFormat.Packed() != e.sampleFormat {
		return fmt.Errorf("%w: got sample format %s, expected %s", types.ErrInvalidData, f.SampleFormat, e.sampleFormat)
	}
	if f.SampleRate != e.params.SampleRate {
		return fmt.Errorf("%w: got sample rate %d, expected %d", types.ErrInvalidData, f.SampleRate, e.params.SampleRate)
	}
	if f.ChannelLayout.Channels() != e.params.ChannelLayout.Channels() {
		return fmt.Errorf("%w: got %d channels, expected %d", types.ErrInvalidData, f.ChannelLayout.Channels(), e.params.ChannelLayout.Channels())
	}
	if frameSize := e.config.FrameSize; frameSize > 0 {
		if e.gotShortFrame {
			return fmt.Errorf("%w: only the last frame may be shorter than %d samples", types.ErrInvalidData, frameSize)
		}
		switch {
		case f.NbSamples > frameSize:
			return fmt.Errorf("%w: the frame has %d samples, expected %d", types.ErrInvalidData, f.NbSamples, frameSize)
		case f.NbSamples < frameSize:
			e.gotShortFrame = true
		}
	}
	return nil
}

func (e *encoder) ReceivePacket(ctx context.Context, pkt *packet.Packet) error {
	if len(e.pending) == 0 || (!e.eof && len(e.pending) <= e.config.Delay) {
		if e.eof {
			return types.ErrEOF
		}
		return types.ErrEmpty
	}
	f := e.pending[0]
	e.pending[0] = nil
	e.pending = e.pending[1:]
	defer f.Unref()

	pkt.Unref()
	pkt.SetData(e.interleave(f))
	pts := f.Pts
	if pts != types.NoPTSValue && f.TimeBase.IsValid() {
		pts = types.Rescale(pts, f.TimeBase, e.params.TimeBase)
	}
	if pts == types.NoPTSValue {
		pts = e.nextPts
	}
	if pts == types.NoPTSValue {
		pts = 0
	}
	duration := types.Rescale(int64(f.NbSamples), e.sampleTB, e.params.TimeBase)
	pkt.Pts = pts
	pkt.Dts = pts
	pkt.Duration = duration
	pkt.Flags = packet.FlagKey
	e.nextPts = pts + duration
	return nil
}

// interleave returns the samples of f as one packed little-endian buffer.
func (e *encoder) interleave(f *frame.Frame) []byte {
	channels := f.ChannelLayout.Channels()
	bps := e.sampleFormat.BytesPerSample()
	size := f.NbSamples * channels * bps
	if !f.SampleFormat.IsPlanar() {
		return append([]byte(nil), f.Data(0)[:size]...)
	}
	out := make([]byte, size)
	for ch := 0; ch < channels; ch++ {
		plane := f.Data(ch)
		for i := 0; i < f.NbSamples; i++ {
			copy(out[(i*channels+ch)*bps:(i*channels+ch+1)*bps], plane[i*bps:(i+1)*bps])
		}
	}
	return out
}

func (e *encoder) Flush(ctx context.Context) error {
	for _, f := range e.pending {
		f.Unref()
	}
	e.pending = nil
	e.eof = false
	e.gotShortFrame = false
	e.nextPts = types.NoPTSValue
	return nil
}

func (e *encoder) Close(ctx context.Context) error {
	return e.Flush(ctx)
}
