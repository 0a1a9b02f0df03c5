package codec

import (
	"context"

	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/packet"
)

// Coder is the opaque implementation behind a Context.
//
// Send methods return types.ErrBusy when output has to be drained first,
// receive methods return types.ErrEmpty when more input is needed and
// types.ErrEOF after the end of the stream was signaled and everything
// was drained. A nil unit passed to a send method signals the end of the
// stream.
type Coder interface {
	Configure(ctx context.Context, params *Parameters) error
	Open(ctx context.Context) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

type DecoderCoder interface {
	Coder
	SendPacket(ctx context.Context, pkt *packet.Packet) error
	ReceiveFrame(ctx context.Context, f *frame.Frame) error
}

type EncoderCoder interface {
	Coder
	SendFrame(ctx context.Context, f *frame.Frame) error
	ReceivePacket(ctx context.Context, pkt *packet.Packet) error
}

// ParametersReporter is implemented by coders that adjust parameters while
// opening (e.g. the frame size or extradata of an encoder).
type ParametersReporter interface {
	Parameters(ctx context.Context) *Parameters
}
