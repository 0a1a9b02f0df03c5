package format

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
	"github.com/xaionaro-go/xsync"
)

// MemoryDemuxer replays packets added with AddPacket.
type MemoryDemuxer struct {
	locker  xsync.Mutex
	streams []*Stream
	packets []*packet.Packet
	closed  bool
}

var _ Demuxer = (*MemoryDemuxer)(nil)

func NewMemoryDemuxer(streams ...*Stream) *MemoryDemuxer {
	return &MemoryDemuxer{streams: streams}
}

func (d *MemoryDemuxer) Streams() []*Stream {
	return d.streams
}

// AddPacket queues a packet; pkt.StreamIndex selects the stream.
func (d *MemoryDemuxer) AddPacket(ctx context.Context, pkt *packet.Packet) error {
	if _, err := StreamByIndex(d.streams, pkt.StreamIndex); err != nil {
		return err
	}
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		d.packets = append(d.packets, pkt)
	})
	return nil
}

func (d *MemoryDemuxer) ReadPacket(ctx context.Context) (_ int, _ *packet.Packet, _err error) {
	var pkt *packet.Packet
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		if d.closed {
			_err = fmt.Errorf("%w: the demuxer is closed", types.ErrInvalidData)
			return
		}
		if len(d.packets) == 0 {
			_err = types.ErrEOF
			return
		}
		pkt = d.packets[0]
		d.packets[0] = nil
		d.packets = d.packets[1:]
	})
	if _err != nil {
		return -1, nil, _err
	}
	logger.Tracef(ctx, "read %s", pkt)
	return pkt.StreamIndex, pkt, nil
}

// Len returns the number of packets not read yet.
func (d *MemoryDemuxer) Len(ctx context.Context) int {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() int {
		return len(d.packets)
	})
}

func (d *MemoryDemuxer) Close(ctx context.Context) error {
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		for _, pkt := range d.packets {
			pkt.Unref()
		}
		d.packets = nil
		d.closed = true
	})
	return nil
}
