package codec

import (
	"fmt"

	"go.uber.org/atomic"
)

type statistics struct {
	Sent     atomic.Uint64
	Received atomic.Uint64
	Busy     atomic.Uint64
	Empty    atomic.Uint64
	Errors   atomic.Uint64
	Flushes  atomic.Uint64
}

// Statistics counts the protocol events of a Context.
type Statistics struct {
	Sent     uint64
	Received uint64
	Busy     uint64
	Empty    uint64
	Errors   uint64
	Flushes  uint64
}

func (s *statistics) Snapshot() Statistics {
	return Statistics{
		Sent:     s.Sent.Load(),
		Received: s.Received.Load(),
		Busy:     s.Busy.Load(),
		Empty:    s.Empty.Load(),
		Errors:   s.Errors.Load(),
		Flushes:  s.Flushes.Load(),
	}
}

func (s Statistics) String() string {
	return fmt.Sprintf(
		"sent:%d received:%d busy:%d empty:%d errors:%d flushes:%d",
		s.Sent, s.Received, s.Busy, s.Empty, s.Errors, s.Flushes,
	)
}
