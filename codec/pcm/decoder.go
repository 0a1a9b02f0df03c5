package pcm

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/buffer"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

type decoder struct {
	codec  *codec.Codec
	config Config
	params *codec.Parameters

	sampleFormat types.SampleFormat
	sampleTB     types.Rational
	queue        []*frame.Frame
	eof          bool
}

var _ codec.DecoderCoder = (*decoder)(nil)
var _ codec.ParametersReporter = (*decoder)(nil)

func newDecoder(c *codec.Codec, cfg Config) *decoder {
	return &decoder{
		codec:        c,
		config:       cfg,
		sampleFormat: sampleFormats[c.ID],
	}
}

func (d *decoder) Configure(ctx context.Context, params *codec.Parameters) error {
	if err := validateAudioParams(params); err != nil {
		return err
	}
	cfg, err := d.config.applyOptions(params.Options)
	if err != nil {
		return err
	}
	d.config = cfg
	d.params = params.Clone()
	d.params.SampleFormat = d.sampleFormat
	d.sampleTB = types.NewRational(1, int32(params.SampleRate))
	if !d.params.TimeBase.IsValid() {
		d.params.TimeBase = d.sampleTB
	}
	return nil
}

func (d *decoder) Open(ctx context.Context) error {
	if d.params == nil {
		return fmt.Errorf("%w: the decoder is not configured", types.ErrInvalidData)
	}
	return nil
}

func (d *decoder) Parameters(ctx context.Context) *codec.Parameters {
	return d.params
}

func (d *decoder) SendPacket(ctx context.Context, pkt *packet.Packet) error {
	if d.eof {
		return types.ErrEOF
	}
	if pkt == nil {
		d.eof = true
		return nil
	}
	if len(d.queue) >= d.config.queueDepth() {
		return types.ErrBusy
	}

	channels := d.params.ChannelLayout.Channels()
	bytesPerFrame := channels * d.sampleFormat.BytesPerSample()
	size := pkt.Size()
	if size%bytesPerFrame != 0 {
		logger.Warnf(ctx, "the packet size %d is not a multiple of %d, dropping the tail", size, bytesPerFrame)
	}
	nbSamples := size / bytesPerFrame
	if nbSamples == 0 {
		return fmt.Errorf("%w: the packet is shorter than one sample", types.ErrInvalidData)
	}

	f := frame.New()
	f.MediaType = types.MediaTypeAudio
	f.SampleFormat = d.sampleFormat
	f.SampleRate = d.params.SampleRate
	f.ChannelLayout = d.params.ChannelLayout.Clone()
	f.NbSamples = nbSamples
	f.TimeBase = d.params.TimeBase
	f.Pts = pkt.Pts
	f.PktDts = pkt.Dts
	f.Duration = types.Rescale(int64(nbSamples), d.sampleTB, d.params.TimeBase)
	if pkt.Flags.Has(packet.FlagCorrupt) {
		f.Flags |= frame.FlagCorrupt
	}
	f.SetKey(true)

	// the frame shares the payload of the packet, no copying
	var ref *buffer.Buffer
	if size == nbSamples*bytesPerFrame {
		ref = pkt.Buffer().Ref()
	} else {
		ref = buffer.FromBytes(append([]byte(nil), pkt.Data()[:nbSamples*bytesPerFrame]...))
	}
	if err := f.SetPlane(0, ref, nbSamples*bytesPerFrame); err != nil {
		return types.ErrBug{Message: err.Error()}
	}
	d.queue = append(d.queue, f)
	return nil
}

func (d *decoder) ReceiveFrame(ctx context.Context, out *frame.Frame) error {
	if len(d.queue) == 0 {
		if d.eof {
			return types.ErrEOF
		}
		return types.ErrEmpty
	}
	f := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	out.Ref(f)
	f.Unref()
	return nil
}

func (d *decoder) Flush(ctx context.Context) error {
	for _, f := range d.queue {
		f.Unref()
	}
	d.queue = nil
	d.eof = false
	return nil
}

func (d *decoder) Close(ctx context.Context) error {
	return d.Flush(ctx)
}
