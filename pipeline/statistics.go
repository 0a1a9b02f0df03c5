package pipeline

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/atomic"
)

type statistics struct {
	PacketsRead    atomic.Uint64
	PacketsSkipped atomic.Uint64
	FramesDecoded  atomic.Uint64
	FramesFiltered atomic.Uint64
	PacketsEncoded atomic.Uint64
	BytesWritten   atomic.Uint64
	BusyRetries    atomic.Uint64
}

// Statistics counts the units that went through a Transcoder.
type Statistics struct {
	PacketsRead    uint64
	PacketsSkipped uint64
	FramesDecoded  uint64
	FramesFiltered uint64
	PacketsEncoded uint64
	BytesWritten   uint64
	BusyRetries    uint64
}

func (s *statistics) Snapshot() Statistics {
	return Statistics{
		PacketsRead:    s.PacketsRead.Load(),
		PacketsSkipped: s.PacketsSkipped.Load(),
		FramesDecoded:  s.FramesDecoded.Load(),
		FramesFiltered: s.FramesFiltered.Load(),
		PacketsEncoded: s.PacketsEncoded.Load(),
		BytesWritten:   s.BytesWritten.Load(),
		BusyRetries:    s.BusyRetries.Load(),
	}
}

func (s Statistics) String() string {
	return fmt.Sprintf(
		"read:%s skipped:%s decoded:%s filtered:%s encoded:%s written:%s busy:%s",
		humanize.Comma(int64(s.PacketsRead)),
		humanize.Comma(int64(s.PacketsSkipped)),
		humanize.Comma(int64(s.FramesDecoded)),
		humanize.Comma(int64(s.FramesFiltered)),
		humanize.Comma(int64(s.PacketsEncoded)),
		humanize.Bytes(s.BytesWritten),
		humanize.Comma(int64(s.BusyRetries)),
	)
}

func (t *Transcoder) Statistics() Statistics {
	return t.statistics.Snapshot()
}
