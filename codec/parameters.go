package codec

import (
	"fmt"
	"slices"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/types"
)

type ThreadType int

const (
	ThreadTypeNone = ThreadType(iota)
	ThreadTypeFrame
	ThreadTypeSlice
)

func (t ThreadType) String() string {
	switch t {
	case ThreadTypeNone:
		return "none"
	case ThreadTypeFrame:
		return "frame"
	case ThreadTypeSlice:
		return "slice"
	default:
		return fmt.Sprintf("ThreadType(%d)", int(t))
	}
}

func ThreadTypeFromString(s string) (ThreadType, error) {
	switch s {
	case "", "none":
		return ThreadTypeNone, nil
	case "frame":
		return ThreadTypeFrame, nil
	case "slice":
		return ThreadTypeSlice, nil
	}
	return ThreadTypeNone, fmt.Errorf("unknown thread type '%s'", s)
}

// Parameters configure a coder. Use NewParameters: the "unset" sample
// and pixel formats are not the zero values.
type Parameters struct {
	MediaType types.MediaType
	CodecID   ID

	SampleFormat  types.SampleFormat
	SampleRate    int
	ChannelLayout channellayout.Layout

	PixelFormat       types.PixelFormat
	Width             int
	Height            int
	SampleAspectRatio types.Rational
	FrameRate         types.Rational

	TimeBase  types.Rational
	BitRate   int64
	FrameSize int
	ExtraData []byte

	ThreadCount int
	ThreadType  ThreadType

	Options types.DictionaryItems
}

func NewParameters() *Parameters {
	return &Parameters{
		MediaType:    types.MediaTypeUnknown,
		SampleFormat: types.SampleFormatNone,
		PixelFormat:  types.PixelFormatNone,
	}
}

// NewAudioParameters is a shorthand for the most common audio setup.
func NewAudioParameters(
	codecID ID,
	sampleFormat types.SampleFormat,
	sampleRate int,
	layout channellayout.Layout,
) *Parameters {
	p := NewParameters()
	p.MediaType = types.MediaTypeAudio
	p.CodecID = codecID
	p.SampleFormat = sampleFormat
	p.SampleRate = sampleRate
	p.ChannelLayout = layout.Clone()
	return p
}

func (p *Parameters) Clone() *Parameters {
	if p == nil {
		return nil
	}
	cpy := *p
	cpy.ChannelLayout = p.ChannelLayout.Clone()
	cpy.ExtraData = slices.Clone(p.ExtraData)
	cpy.Options = p.Options.Clone()
	return &cpy
}

func (p *Parameters) String() string {
	switch p.MediaType {
	case types.MediaTypeAudio:
		return fmt.Sprintf(
			"%s audio %s %dHz %s tb:%s br:%d fs:%d",
			p.CodecID, p.SampleFormat, p.SampleRate, p.ChannelLayout, p.TimeBase, p.BitRate, p.FrameSize,
		)
	case types.MediaTypeVideo:
		return fmt.Sprintf(
			"%s video %s %dx%d fps:%s tb:%s br:%d",
			p.CodecID, p.PixelFormat, p.Width, p.Height, p.FrameRate, p.TimeBase, p.BitRate,
		)
	default:
		return fmt.Sprintf("%s %s", p.CodecID, p.MediaType)
	}
}
