package pipeline

import (
	"github.com/xaionaro-go/typing"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/filter"
	"github.com/xaionaro-go/avrecode/types"
)

// Config of a Transcoder. Unset values are taken from the input stream.
type Config struct {
	// StreamIndex selects the input stream; unset selects the first audio
	// stream.
	StreamIndex typing.Optional[int]

	// DecoderTimeBase is the time base packets are rescaled to before
	// decoding; 1/1000000 if unset.
	DecoderTimeBase types.Rational
	DecoderOptions  types.DictionaryItems

	// EncoderName selects the encoder; empty re-encodes with the codec of
	// the input.
	EncoderName     string
	SampleFormat    typing.Optional[types.SampleFormat]
	SampleRate      int
	ChannelLayout   channellayout.Layout
	BitRate         int64
	EncoderTimeBase types.Rational
	EncoderOptions  types.DictionaryItems

	// FilterDescription is the chain between the decoder and the encoder
	// (see filter.ParseDescription). When empty, a filter is inserted only
	// if the decoded format is not what the encoder takes.
	FilterDescription string

	// FilterFactory builds the filter node; filter.BuiltinFactory if nil.
	FilterFactory filter.Factory

	ThreadCount int
	ThreadType  codec.ThreadType

	// Metrics receives the counters of the transcoder if set.
	Metrics *Metrics
}

func (cfg Config) decoderTimeBase() types.Rational {
	if !cfg.DecoderTimeBase.IsValid() || cfg.DecoderTimeBase.IsZero() {
		return types.TimeBaseMicroseconds
	}
	return cfg.DecoderTimeBase
}

func (cfg Config) filterFactory() filter.Factory {
	if cfg.FilterFactory == nil {
		return filter.BuiltinFactory{}
	}
	return cfg.FilterFactory
}
