// Package sort provides sortable collections used for reordering.
package sort

import (
	"sort"

	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

// TimedPacket is a packet together with the time base of its timestamps.
type TimedPacket struct {
	Packet   *packet.Packet
	TimeBase types.Rational
}

// TimedPacketsByDTS is a min-heap of packets ordered by DTS across
// time bases; use it with github.com/go-ng/container/heap.
type TimedPacketsByDTS []TimedPacket

var _ sort.Interface = (TimedPacketsByDTS)(nil)

func (s TimedPacketsByDTS) Len() int {
	return len(s)
}

func (s TimedPacketsByDTS) Less(i, j int) bool {
	c := types.CompareTs(s[i].Packet.Dts, s[i].TimeBase, s[j].Packet.Dts, s[j].TimeBase)
	if c != 0 {
		return c < 0
	}
	return s[i].Packet.StreamIndex < s[j].Packet.StreamIndex
}

func (s TimedPacketsByDTS) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s *TimedPacketsByDTS) Push(item TimedPacket) {
	*s = append(*s, item)
}

func (s *TimedPacketsByDTS) Pop() TimedPacket {
	old := *s
	n := len(old)
	item := old[n-1]
	old[n-1] = TimedPacket{}
	*s = old[:n-1]
	return item
}
