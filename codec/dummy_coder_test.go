package codec

import (
	"context"

	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

// dummyCoder emits one unit per accepted unit and reports EOF once the
// end of the stream was signaled and everything was received.
type dummyCoder struct {
	ConfigureFn func(ctx context.Context, params *Parameters) error
	OpenFn      func(ctx context.Context) error

	pending    []int64
	eof        bool
	closeCount int
	flushCount int
}

var _ DecoderCoder = (*dummyDecoder)(nil)
var _ EncoderCoder = (*dummyEncoder)(nil)

func (c *dummyCoder) Configure(ctx context.Context, params *Parameters) error {
	if c.ConfigureFn != nil {
		return c.ConfigureFn(ctx, params)
	}
	return nil
}

func (c *dummyCoder) Open(ctx context.Context) error {
	if c.OpenFn != nil {
		return c.OpenFn(ctx)
	}
	return nil
}

func (c *dummyCoder) Flush(ctx context.Context) error {
	c.flushCount++
	c.pending = nil
	c.eof = false
	return nil
}

func (c *dummyCoder) Close(ctx context.Context) error {
	c.closeCount++
	return nil
}

func (c *dummyCoder) push(isEOF bool, pts int64) error {
	if c.eof {
		return types.ErrEOF
	}
	if isEOF {
		c.eof = true
		return nil
	}
	c.pending = append(c.pending, pts)
	return nil
}

func (c *dummyCoder) pop() (int64, error) {
	if len(c.pending) == 0 {
		if c.eof {
			return 0, types.ErrEOF
		}
		return 0, types.ErrEmpty
	}
	pts := c.pending[0]
	c.pending = c.pending[1:]
	return pts, nil
}

type dummyDecoder struct {
	dummyCoder
}

func (d *dummyDecoder) SendPacket(ctx context.Context, pkt *packet.Packet) error {
	if pkt == nil {
		return d.push(true, 0)
	}
	return d.push(false, pkt.Pts)
}

func (d *dummyDecoder) ReceiveFrame(ctx context.Context, f *frame.Frame) error {
	pts, err := d.pop()
	if err != nil {
		return err
	}
	f.Unref()
	f.Pts = pts
	return nil
}

type dummyEncoder struct {
	dummyCoder
}

func (e *dummyEncoder) SendFrame(ctx context.Context, f *frame.Frame) error {
	if f == nil {
		return e.push(true, 0)
	}
	return e.push(false, f.Pts)
}

func (e *dummyEncoder) ReceivePacket(ctx context.Context, pkt *packet.Packet) error {
	pts, err := e.pop()
	if err != nil {
		return err
	}
	pkt.SetData([]byte{1})
	pkt.Pts = pts
	return nil
}

func dummyDecoderCodec(coder *dummyDecoder) *Codec {
	return &Codec{
		Name:      "dummy",
		ID:        "dummy",
		MediaType: types.MediaTypeAudio,
		NewCoder: func(ctx context.Context, c *Codec) (Coder, error) {
			return coder, nil
		},
	}
}

func dummyEncoderCodec(coder *dummyEncoder) *Codec {
	return &Codec{
		Name:      "dummy",
		ID:        "dummy",
		MediaType: types.MediaTypeAudio,
		IsEncoder: true,
		NewCoder: func(ctx context.Context, c *Codec) (Coder, error) {
			return coder, nil
		},
	}
}

// dualCoder implements both directions, like a native coder whose
// direction is only known from how it was opened. The encode direction
// refuses everything.
type dualCoder struct {
	dummyDecoder
	sendFrameCount int
}

var _ EncoderCoder = (*dualCoder)(nil)

func (c *dualCoder) SendFrame(ctx context.Context, f *frame.Frame) error {
	c.sendFrameCount++
	return types.ErrInvalidData
}

func (c *dualCoder) ReceivePacket(ctx context.Context, pkt *packet.Packet) error {
	return types.ErrInvalidData
}
