package format

import (
	"context"
	"fmt"

	"github.com/go-ng/container/heap"
	"github.com/go-ng/xsort"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	avsort "github.com/xaionaro-go/avrecode/sort"
	"github.com/xaionaro-go/avrecode/types"
	"github.com/xaionaro-go/xsync"
)

// MemoryMuxer collects the written packets in memory.
//
// Packets are interleaved by DTS across streams: a packet is released
// only when every stream has at least one packet queued, the rest is
// released by WriteTrailer.
type MemoryMuxer struct {
	locker        xsync.Mutex
	streams       []*memoryOutputStream
	queue         avsort.TimedPacketsByDTS
	streamDTSs    map[int]*xsort.OrderedAsc[int64]
	lastDTS       map[int]int64
	emptyQueues   int
	headerWritten bool
	trailerDone   bool
	written       []*packet.Packet
}

var _ Muxer = (*MemoryMuxer)(nil)

func NewMemoryMuxer() *MemoryMuxer {
	return &MemoryMuxer{
		streamDTSs: map[int]*xsort.OrderedAsc[int64]{},
		lastDTS:    map[int]int64{},
	}
}

type memoryOutputStream struct {
	index    int
	timeBase types.Rational
	params   *codec.Parameters
}

var _ OutputStream = (*memoryOutputStream)(nil)

func (s *memoryOutputStream) Index() int {
	return s.index
}

func (s *memoryOutputStream) SetTimeBase(tb types.Rational) {
	s.timeBase = tb
}

func (s *memoryOutputStream) TimeBase() types.Rational {
	return s.timeBase
}

func (s *memoryOutputStream) SetParameters(params *codec.Parameters) error {
	if params == nil {
		return fmt.Errorf("%w: nil parameters", types.ErrInvalidData)
	}
	s.params = params.Clone()
	return nil
}

// Parameters returns the parameters set on the stream with the given index.
func (m *MemoryMuxer) Parameters(ctx context.Context, index int) *codec.Parameters {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &m.locker, func() *codec.Parameters {
		if index < 0 || index >= len(m.streams) {
			return nil
		}
		return m.streams[index].params
	})
}

func (m *MemoryMuxer) AddStream(ctx context.Context) (_ OutputStream, _err error) {
	logger.Tracef(ctx, "AddStream")
	defer func() { logger.Tracef(ctx, "/AddStream: %v", _err) }()
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &m.locker, func() (OutputStream, error) {
		if m.headerWritten {
			return nil, fmt.Errorf("%w: cannot add a stream after the header is written", types.ErrInvalidData)
		}
		s := &memoryOutputStream{index: len(m.streams)}
		m.streams = append(m.streams, s)
		return s, nil
	})
}

func (m *MemoryMuxer) WriteHeader(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "WriteHeader")
	defer func() { logger.Tracef(ctx, "/WriteHeader: %v", _err) }()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &m.locker, func() error {
		if m.headerWritten {
			return fmt.Errorf("%w: the header is already written", types.ErrInvalidData)
		}
		if len(m.streams) == 0 {
			return fmt.Errorf("%w: no streams", types.ErrInvalidData)
		}
		for _, s := range m.streams {
			if !s.timeBase.IsValid() {
				return fmt.Errorf("%w: stream #%d has no valid time base", types.ErrInvalidData, s.index)
			}
			m.streamDTSs[s.index] = &xsort.OrderedAsc[int64]{}
		}
		m.emptyQueues = len(m.streams)
		m.headerWritten = true
		return nil
	})
}

// WriteInterleaved queues a reference to pkt; the caller keeps ownership.
func (m *MemoryMuxer) WriteInterleaved(ctx context.Context, pkt *packet.Packet) (_err error) {
	logger.Tracef(ctx, "WriteInterleaved: %s", pkt)
	defer func() { logger.Tracef(ctx, "/WriteInterleaved: %s: %v", pkt, _err) }()
	return xsync.DoA2R1(xsync.WithNoLogging(ctx, true), &m.locker, m.writeInterleaved, ctx, pkt)
}

func (m *MemoryMuxer) writeInterleaved(ctx context.Context, pkt *packet.Packet) error {
	if !m.headerWritten || m.trailerDone {
		return fmt.Errorf("%w: the muxer does not accept packets now", types.ErrInvalidData)
	}
	idx := pkt.StreamIndex
	if idx < 0 || idx >= len(m.streams) {
		return fmt.Errorf("%w: no output stream #%d", types.ErrInvalidData, idx)
	}
	dts := pkt.Dts
	if dts == types.NoPTSValue {
		dts = pkt.Pts
	}
	if dts == types.NoPTSValue {
		return fmt.Errorf("%w: %s has no timestamps", types.ErrInvalidData, pkt)
	}
	if last, ok := m.lastDTS[idx]; ok && dts < last {
		return fmt.Errorf("%w: non-monotonic DTS in stream #%d: %d < %d", types.ErrInvalidData, idx, dts, last)
	}
	m.lastDTS[idx] = dts

	item := packet.CloneAsReferenced(pkt)
	item.Dts = dts
	heap.Push(&m.queue, avsort.TimedPacket{Packet: item, TimeBase: m.streams[idx].timeBase})
	streamQueue := m.streamDTSs[idx]
	if len(*streamQueue) == 0 {
		m.emptyQueues--
	}
	heap.Push(streamQueue, dts)

	for m.emptyQueues == 0 {
		m.releaseOne(ctx)
	}
	return nil
}

func (m *MemoryMuxer) releaseOne(ctx context.Context) {
	oldest := heap.Pop(&m.queue)
	streamQueue := m.streamDTSs[oldest.Packet.StreamIndex]
	oldDTS := heap.Pop(streamQueue)
	if oldDTS != oldest.Packet.Dts {
		logger.Errorf(ctx, "internal error: stream #%d DTS mismatch: %d != %d", oldest.Packet.StreamIndex, oldDTS, oldest.Packet.Dts)
	}
	if len(*streamQueue) == 0 {
		m.emptyQueues++
	}
	m.written = append(m.written, oldest.Packet)
}

func (m *MemoryMuxer) WriteTrailer(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "WriteTrailer")
	defer func() { logger.Tracef(ctx, "/WriteTrailer: %v", _err) }()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &m.locker, func() error {
		if !m.headerWritten || m.trailerDone {
			return fmt.Errorf("%w: the header is not written or the trailer is already written", types.ErrInvalidData)
		}
		for len(m.queue) > 0 {
			m.releaseOne(ctx)
		}
		m.trailerDone = true
		logger.Debugf(ctx, "wrote %d packets to %d streams", len(m.written), len(m.streams))
		return nil
	})
}

// Packets returns the packets released so far in output order.
func (m *MemoryMuxer) Packets(ctx context.Context) []*packet.Packet {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &m.locker, func() []*packet.Packet {
		return append([]*packet.Packet(nil), m.written...)
	})
}

// IsFinished reports whether WriteTrailer succeeded.
func (m *MemoryMuxer) IsFinished(ctx context.Context) bool {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &m.locker, func() bool {
		return m.trailerDone
	})
}

func (m *MemoryMuxer) Close(ctx context.Context) error {
	m.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		for _, item := range m.queue {
			item.Packet.Unref()
		}
		m.queue = nil
	})
	return nil
}
