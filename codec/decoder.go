package codec

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

type Decoder struct {
	*Context
}

// NewDecoder finds the decoder for params.CodecID in registry and opens it.
func NewDecoder(
	ctx context.Context,
	registry *Registry,
	params *Parameters,
) (_ret *Decoder, _err error) {
	logger.Tracef(ctx, "NewDecoder(ctx, %s)", params)
	defer func() { logger.Tracef(ctx, "/NewDecoder(ctx, %s): %v", params, _err) }()
	if params == nil {
		return nil, fmt.Errorf("%w: no decoder parameters", types.ErrInvalidData)
	}
	codec, err := registry.FindDecoder(ctx, params.CodecID)
	if err != nil {
		return nil, err
	}
	return OpenDecoder(ctx, codec, params)
}

// OpenDecoder opens codec as a decoder.
func OpenDecoder(
	ctx context.Context,
	codec *Codec,
	params *Parameters,
) (*Decoder, error) {
	d := &Decoder{Context: NewContext(false)}
	if err := d.Open(ctx, codec, params); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) coder() DecoderCoder {
	return d.Context.coder.(DecoderCoder)
}

// SendPacket pushes one packet. It returns types.ErrBusy when frames have
// to be received first and types.ErrEOF after SendEOF.
func (d *Decoder) SendPacket(
	ctx context.Context,
	pkt *packet.Packet,
) error {
	if pkt.IsFlush() {
		return fmt.Errorf("%w: empty packets are reserved, use SendEOF", types.ErrInvalidData)
	}
	return d.send(ctx, false, func() error {
		return d.coder().SendPacket(ctx, pkt)
	})
}

// ReceiveFrame pulls one frame into f. It returns types.ErrEmpty when more
// packets are needed and types.ErrEOF once everything was drained.
//
// If the coder leaves BestEffortTimestamp unset, it is guessed from the
// frame's pts, falling back to the dts of the packet it came from.
func (d *Decoder) ReceiveFrame(
	ctx context.Context,
	f *frame.Frame,
) error {
	return d.receive(ctx, func() error {
		if err := d.coder().ReceiveFrame(ctx, f); err != nil {
			return err
		}
		if f.BestEffortTimestamp == types.NoPTSValue {
			f.BestEffortTimestamp = guessTimestamp(f)
		}
		if !f.TimeBase.IsValid() {
			f.TimeBase = d.params.TimeBase
		}
		return nil
	})
}

func guessTimestamp(f *frame.Frame) int64 {
	if f.Pts != types.NoPTSValue {
		return f.Pts
	}
	return f.PktDts
}
