// Package packet defines the encoded unit flowing between demuxers,
// decoders, encoders and muxers.
package packet

import (
	"fmt"
	"strings"

	"github.com/xaionaro-go/avrecode/buffer"
	"github.com/xaionaro-go/avrecode/types"
)

type Flags int

const (
	FlagKey     = Flags(1 << 0)
	FlagCorrupt = Flags(1 << 1)
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

// Packet is one chunk of encoded data with its timing.
//
// The payload is a shared buffer: Clone and Ref do not copy bytes, so the
// payload may be modified in place only after MakeWritable.
type Packet struct {
	buf *buffer.Buffer

	Pts         int64
	Dts         int64
	Duration    int64
	StreamIndex int

	// Pos is the byte offset in the source, -1 if unknown.
	Pos      int64
	Flags    Flags
	SideData []SideData
}

// New returns an empty packet without timestamps.
func New() *Packet {
	p := &Packet{}
	p.reset()
	return p
}

// FromBytes returns a packet taking ownership of data.
func FromBytes(data []byte) *Packet {
	p := New()
	p.buf = buffer.FromBytes(data)
	return p
}

func (p *Packet) reset() {
	*p = Packet{
		Pts: types.NoPTSValue,
		Dts: types.NoPTSValue,
		Pos: -1,
	}
}

func (p *Packet) Data() []byte {
	return p.buf.Bytes()
}

func (p *Packet) Size() int {
	return p.buf.Len()
}

// Buffer returns the payload reference, nil for a flush packet.
func (p *Packet) Buffer() *buffer.Buffer {
	return p.buf
}

// SetData replaces the payload, taking ownership of data.
func (p *Packet) SetData(data []byte) {
	p.buf.Unref()
	p.buf = buffer.FromBytes(data)
}

// IsFlush reports whether this is the empty "flush" sentinel.
func (p *Packet) IsFlush() bool {
	return p == nil || p.buf.Len() == 0
}

func (p *Packet) IsKey() bool {
	return p.Flags.Has(FlagKey)
}

// RescaleTs converts the timestamps and the duration from src to dst.
func (p *Packet) RescaleTs(src, dst types.Rational) {
	p.Pts = types.Rescale(p.Pts, src, dst)
	p.Dts = types.Rescale(p.Dts, src, dst)
	if p.Duration > 0 {
		p.Duration = types.Rescale(p.Duration, src, dst)
	}
}

// CopyProps copies everything except the payload.
func (p *Packet) CopyProps(src *Packet) {
	p.Pts = src.Pts
	p.Dts = src.Dts
	p.Duration = src.Duration
	p.StreamIndex = src.StreamIndex
	p.Pos = src.Pos
	p.Flags = src.Flags
	p.SideData = cloneSideData(src.SideData)
}

// Ref makes p a new reference to the payload of src, with src's properties.
func (p *Packet) Ref(src *Packet) {
	p.Unref()
	p.buf = src.buf.Ref()
	p.CopyProps(src)
}

// Unref drops the payload and resets all properties.
func (p *Packet) Unref() {
	p.buf.Unref()
	p.reset()
}

// Clone returns a new packet referencing the same payload.
func (p *Packet) Clone() *Packet {
	dst := New()
	dst.Ref(p)
	return dst
}

// MakeWritable ensures the payload is exclusively owned by p.
func (p *Packet) MakeWritable() {
	p.buf.MakeWritable()
}

func (p *Packet) IsWritable() bool {
	return p.buf.IsWritable()
}

func (p *Packet) String() string {
	return fmt.Sprintf(
		"packet{stream:%d pts:%s dts:%s dur:%d size:%d flags:%s}",
		p.StreamIndex, tsString(p.Pts), tsString(p.Dts), p.Duration, p.Size(), p.Flags,
	)
}

func tsString(ts int64) string {
	if ts == types.NoPTSValue {
		return "none"
	}
	return fmt.Sprint(ts)
}
