// codec.go defines the descriptor of a coder implementation.

// Package codec implements the coder context: the push/pull state machine
// around an opaque decoder or encoder, its registry and the negotiation of
// encoder parameters.
package codec

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/types"
)

// ID identifies a coding format, e.g. "pcm_s16le" or "aac".
type ID string

type Capabilities int

const (
	// CapDelay means the coder may hold units internally, so it needs to be
	// drained with an EOF.
	CapDelay = Capabilities(1 << iota)
	// CapVariableFrameSize means an encoder accepts frames of any size.
	CapVariableFrameSize
	// CapEncoderFlush means an encoder may be reset with Flush.
	CapEncoderFlush
	CapFrameThreads
	CapSliceThreads
)

func (c Capabilities) Has(cap Capabilities) bool {
	return c&cap == cap
}

func (c Capabilities) String() string {
	var parts []string
	for _, item := range []struct {
		Cap  Capabilities
		Name string
	}{
		{CapDelay, "delay"},
		{CapVariableFrameSize, "variable_frame_size"},
		{CapEncoderFlush, "encoder_flush"},
		{CapFrameThreads, "frame_threads"},
		{CapSliceThreads, "slice_threads"},
	} {
		if c.Has(item.Cap) {
			parts = append(parts, item.Name)
		}
	}
	return strings.Join(parts, "|")
}

// Codec describes one decoder or encoder implementation.
//
// Declared sets (SampleFormats, SampleRates, ...) restrict the values an
// encoder accepts; a nil set means any value is accepted.
type Codec struct {
	Name      string
	LongName  string
	ID        ID
	MediaType types.MediaType
	IsEncoder bool

	Capabilities Capabilities

	SampleFormats  []types.SampleFormat
	SampleRates    []int
	ChannelLayouts []channellayout.Layout
	PixelFormats   []types.PixelFormat
	FrameRates     []types.Rational

	// FrameSize is the number of samples per frame required by an encoder
	// without CapVariableFrameSize; zero if not fixed up-front.
	FrameSize int

	// NewCoder allocates the opaque coder.
	NewCoder func(ctx context.Context, codec *Codec) (Coder, error)
}

func (c *Codec) IsDecoder() bool {
	return !c.IsEncoder
}

func (c *Codec) String() string {
	if c == nil {
		return "<nil>"
	}
	direction := "decoder"
	if c.IsEncoder {
		direction = "encoder"
	}
	return fmt.Sprintf("%s(%s:%s)", direction, c.Name, c.ID)
}
