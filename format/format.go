// Package format defines the demuxer and muxer collaborators of the
// pipeline and provides in-memory implementations of them.
package format

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

// Stream is one elementary stream of an input.
type Stream struct {
	Index      int
	MediaType  types.MediaType
	TimeBase   types.Rational
	Parameters *codec.Parameters
}

func (s *Stream) String() string {
	return fmt.Sprintf("stream#%d(%s tb:%s %s)", s.Index, s.MediaType, s.TimeBase, s.Parameters)
}

// Demuxer yields the packets of an input.
type Demuxer interface {
	Streams() []*Stream

	// ReadPacket returns the next packet and the index of its stream, or
	// types.ErrEOF at the end of the input. Timestamps are in the time base
	// of the stream.
	ReadPacket(ctx context.Context) (int, *packet.Packet, error)

	Close(ctx context.Context) error
}

type OutputStream interface {
	Index() int
	SetTimeBase(tb types.Rational)

	// TimeBase may differ from the requested one after Muxer.WriteHeader.
	TimeBase() types.Rational
	SetParameters(params *codec.Parameters) error
}

// Muxer writes packets to an output.
type Muxer interface {
	AddStream(ctx context.Context) (OutputStream, error)
	WriteHeader(ctx context.Context) error

	// WriteInterleaved takes packets already rescaled to the time base of
	// their output stream (see OutputStream.TimeBase).
	WriteInterleaved(ctx context.Context, pkt *packet.Packet) error
	WriteTrailer(ctx context.Context) error
	Close(ctx context.Context) error
}

// BestStream returns the first stream of the given media type.
func BestStream(streams []*Stream, mediaType types.MediaType) (*Stream, error) {
	for _, s := range streams {
		if s.MediaType == mediaType {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s stream", types.ErrInvalidData, mediaType)
}

// StreamByIndex returns the stream with the given index.
func StreamByIndex(streams []*Stream, index int) (*Stream, error) {
	for _, s := range streams {
		if s.Index == index {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: no stream #%d", types.ErrInvalidData, index)
}
