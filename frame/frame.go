// Package frame defines the decoded unit flowing between decoders, filters
// and encoders.
package frame

import (
	"fmt"
	"strings"

	"github.com/xaionaro-go/avrecode/buffer"
	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/types"
)

// MaxPlanes is the maximal number of data planes of a frame.
const MaxPlanes = 8

type Flags int

const (
	FlagCorrupt = Flags(1 << 0)
	FlagKey     = Flags(1 << 1)
	FlagDiscard = Flags(1 << 2)
)

func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	var parts []string
	if f.Has(FlagKey) {
		parts = append(parts, "key")
	}
	if f.Has(FlagCorrupt) {
		parts = append(parts, "corrupt")
	}
	if f.Has(FlagDiscard) {
		parts = append(parts, "discard")
	}
	return strings.Join(parts, "|")
}

// Frame is one unit of decoded audio or video.
//
// Planes are shared buffers: Ref and Clone are cheap and the data may be
// modified only after MakeWritable. A frame is empty iff its first plane
// is absent.
type Frame struct {
	planes   [MaxPlanes]*buffer.Buffer
	Linesize [MaxPlanes]int

	MediaType types.MediaType

	// audio
	SampleFormat  types.SampleFormat
	SampleRate    int
	ChannelLayout channellayout.Layout
	NbSamples     int

	// video
	PixelFormat       types.PixelFormat
	Width             int
	Height            int
	SampleAspectRatio types.Rational

	Pts      int64
	PktDts   int64
	Duration int64

	// BestEffortTimestamp is the decoder's guess of the presentation
	// timestamp.
	BestEffortTimestamp int64
	TimeBase            types.Rational

	Quality  int
	Flags    Flags
	Metadata types.DictionaryItems
	SideData []SideData
}

// New returns an empty frame without timestamps.
func New() *Frame {
	f := &Frame{}
	f.reset()
	return f
}

func (f *Frame) reset() {
	*f = Frame{
		MediaType:           types.MediaTypeUnknown,
		SampleFormat:        types.SampleFormatNone,
		PixelFormat:         types.PixelFormatNone,
		Pts:                 types.NoPTSValue,
		PktDts:              types.NoPTSValue,
		BestEffortTimestamp: types.NoPTSValue,
	}
}

// IsEmpty reports whether the frame carries no data.
func (f *Frame) IsEmpty() bool {
	return f == nil || f.planes[0] == nil
}

func (f *Frame) IsKey() bool {
	return f.Flags.Has(FlagKey)
}

func (f *Frame) SetKey(isKey bool) {
	if isKey {
		f.Flags |= FlagKey
	} else {
		f.Flags &^= FlagKey
	}
}

// NbPlanes returns the number of allocated planes.
func (f *Frame) NbPlanes() int {
	for idx, p := range f.planes {
		if p == nil {
			return idx
		}
	}
	return MaxPlanes
}

// Data returns the bytes of the given plane.
func (f *Frame) Data(plane int) []byte {
	if plane < 0 || plane >= MaxPlanes {
		return nil
	}
	return f.planes[plane].Bytes()
}

// Plane returns the buffer of the given plane.
func (f *Frame) Plane(plane int) *buffer.Buffer {
	if plane < 0 || plane >= MaxPlanes {
		return nil
	}
	return f.planes[plane]
}

// SetPlane replaces a plane, taking ownership of buf.
func (f *Frame) SetPlane(plane int, buf *buffer.Buffer, linesize int) error {
	if plane < 0 || plane >= MaxPlanes {
		return fmt.Errorf("plane index %d is out of range [0, %d)", plane, MaxPlanes)
	}
	f.planes[plane].Unref()
	f.planes[plane] = buf
	f.Linesize[plane] = linesize
	return nil
}

// AllocBuffer allocates zeroed planes for the format, size and sample
// count already set on the frame.
func (f *Frame) AllocBuffer() error {
	var sizes, linesizes []int
	switch {
	case f.SampleFormat != types.SampleFormatNone:
		channels := f.ChannelLayout.Channels()
		if channels <= 0 {
			return fmt.Errorf("%w: the channel layout is not set", types.ErrInvalidData)
		}
		if f.NbSamples <= 0 {
			return fmt.Errorf("%w: the number of samples is not set", types.ErrInvalidData)
		}
		sizes = f.SampleFormat.PlaneSizes(channels, f.NbSamples)
		if sizes == nil {
			return fmt.Errorf("%w: unsupported sample format %s", types.ErrInvalidData, f.SampleFormat)
		}
		if len(sizes) > MaxPlanes {
			return fmt.Errorf("%w: %d planes do not fit into a frame", types.ErrInvalidData, len(sizes))
		}
		linesizes = sizes
		f.MediaType = types.MediaTypeAudio
	case f.PixelFormat != types.PixelFormatNone:
		if f.Width <= 0 || f.Height <= 0 {
			return fmt.Errorf("%w: invalid resolution %dx%d", types.ErrInvalidData, f.Width, f.Height)
		}
		linesizes = f.PixelFormat.Linesizes(f.Width)
		heights := f.PixelFormat.PlaneHeights(f.Height)
		if linesizes == nil {
			return fmt.Errorf("%w: unsupported pixel format %s", types.ErrInvalidData, f.PixelFormat)
		}
		for idx := range linesizes {
			sizes = append(sizes, linesizes[idx]*heights[idx])
		}
		f.MediaType = types.MediaTypeVideo
	default:
		return fmt.Errorf("%w: neither a sample format nor a pixel format is set", types.ErrInvalidData)
	}

	f.unrefPlanes()
	for idx, size := range sizes {
		f.planes[idx] = buffer.New(size)
		f.Linesize[idx] = linesizes[idx]
	}
	return nil
}

func (f *Frame) unrefPlanes() {
	for idx := range f.planes {
		f.planes[idx].Unref()
		f.planes[idx] = nil
		f.Linesize[idx] = 0
	}
}

// IsWritable reports whether every plane is exclusively owned.
func (f *Frame) IsWritable() bool {
	for _, p := range f.planes {
		if p != nil && !p.IsWritable() {
			return false
		}
	}
	return true
}

// MakeWritable copies the shared planes, so the frame may be modified.
func (f *Frame) MakeWritable() {
	for _, p := range f.planes {
		p.MakeWritable()
	}
}

// CopyProps copies everything except the data planes.
func (f *Frame) CopyProps(src *Frame) {
	f.MediaType = src.MediaType
	f.SampleFormat = src.SampleFormat
	f.SampleRate = src.SampleRate
	f.ChannelLayout = src.ChannelLayout.Clone()
	f.NbSamples = src.NbSamples
	f.PixelFormat = src.PixelFormat
	f.Width = src.Width
	f.Height = src.Height
	f.SampleAspectRatio = src.SampleAspectRatio
	f.Pts = src.Pts
	f.PktDts = src.PktDts
	f.Duration = src.Duration
	f.BestEffortTimestamp = src.BestEffortTimestamp
	f.TimeBase = src.TimeBase
	f.Quality = src.Quality
	f.Flags = src.Flags
	f.Metadata = src.Metadata.Clone()
	f.SideData = cloneSideData(src.SideData)
}

// Ref makes f a new reference to the planes of src, with src's properties.
func (f *Frame) Ref(src *Frame) {
	f.Unref()
	for idx, p := range src.planes {
		f.planes[idx] = p.Ref()
	}
	f.Linesize = src.Linesize
	f.CopyProps(src)
}

// Unref drops the planes and resets all properties.
func (f *Frame) Unref() {
	f.unrefPlanes()
	f.reset()
}

// Clone returns a new frame referencing the same planes.
func (f *Frame) Clone() *Frame {
	dst := New()
	dst.Ref(f)
	return dst
}

// DeepCopy returns a new frame with its own copy of the data.
func (f *Frame) DeepCopy() *Frame {
	dst := f.Clone()
	dst.MakeWritable()
	return dst
}

func (f *Frame) String() string {
	switch f.MediaType {
	case types.MediaTypeAudio:
		return fmt.Sprintf(
			"frame{audio %s %dHz %s samples:%d pts:%d tb:%s}",
			f.SampleFormat, f.SampleRate, f.ChannelLayout, f.NbSamples, f.Pts, f.TimeBase,
		)
	case types.MediaTypeVideo:
		return fmt.Sprintf(
			"frame{video %s %dx%d pts:%d tb:%s}",
			f.PixelFormat, f.Width, f.Height, f.Pts, f.TimeBase,
		)
	default:
		return fmt.Sprintf("frame{%s pts:%d}", f.MediaType, f.Pts)
	}
}
