package codec

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

type Encoder struct {
	*Context
}

// NewEncoder finds an encoder by name (or, if name is empty, by
// params.CodecID) and opens it with params as they are; use
// Codec.NegotiateParameters first to adapt them to the codec.
func NewEncoder(
	ctx context.Context,
	registry *Registry,
	name string,
	params *Parameters,
) (_ret *Encoder, _err error) {
	logger.Tracef(ctx, "NewEncoder(ctx, '%s', %s)", name, params)
	defer func() { logger.Tracef(ctx, "/NewEncoder(ctx, '%s', %s): %v", name, params, _err) }()

	var (
		codec *Codec
		err   error
	)
	switch {
	case name != "":
		codec, err = registry.FindEncoderByName(ctx, name)
	case params != nil:
		codec, err = registry.FindEncoder(ctx, params.CodecID)
	default:
		return nil, fmt.Errorf("%w: neither an encoder name nor parameters given", types.ErrInvalidData)
	}
	if err != nil {
		return nil, err
	}
	return OpenEncoder(ctx, codec, params)
}

// OpenEncoder opens codec as an encoder.
func OpenEncoder(
	ctx context.Context,
	codec *Codec,
	params *Parameters,
) (*Encoder, error) {
	e := &Encoder{Context: NewContext(true)}
	if err := e.Open(ctx, codec, params); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Encoder) coder() EncoderCoder {
	return e.Context.coder.(EncoderCoder)
}

// SendFrame pushes one frame. It returns types.ErrBusy when packets have
// to be received first and types.ErrEOF after SendEOF.
func (e *Encoder) SendFrame(
	ctx context.Context,
	f *frame.Frame,
) error {
	if f.IsEmpty() {
		return fmt.Errorf("%w: empty frames are reserved, use SendEOF", types.ErrInvalidData)
	}
	return e.send(ctx, false, func() error {
		return e.coder().SendFrame(ctx, f)
	})
}

// ReceivePacket pulls one packet into pkt; its timestamps are in TimeBase.
func (e *Encoder) ReceivePacket(
	ctx context.Context,
	pkt *packet.Packet,
) error {
	return e.receive(ctx, func() error {
		return e.coder().ReceivePacket(ctx, pkt)
	})
}

func (e *Encoder) ChannelLayout() channellayout.Layout {
	return e.params.ChannelLayout.Clone()
}

func (e *Encoder) SampleFormat() types.SampleFormat {
	return e.params.SampleFormat
}

func (e *Encoder) SampleRate() int {
	return e.params.SampleRate
}

func (e *Encoder) TimeBase() types.Rational {
	return e.params.TimeBase
}

// FrameSize is the number of samples every frame but the last must have;
// zero if the encoder accepts any size.
func (e *Encoder) FrameSize() int {
	if e.codec.Capabilities.Has(CapVariableFrameSize) {
		return 0
	}
	return e.params.FrameSize
}
