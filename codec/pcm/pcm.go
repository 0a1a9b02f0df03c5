// Package pcm implements raw PCM decoders and encoders.
//
// Samples are stored little-endian and interleaved, the way the host
// architectures we build for keep them in memory.
package pcm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/types"
)

const (
	IDU8    = codec.ID("pcm_u8")
	IDS16LE = codec.ID("pcm_s16le")
	IDS32LE = codec.ID("pcm_s32le")
	IDF32LE = codec.ID("pcm_f32le")
	IDF64LE = codec.ID("pcm_f64le")
)

// DefaultQueueDepth is the number of units a coder holds before it
// reports types.ErrBusy.
const DefaultQueueDepth = 16

var sampleFormats = map[codec.ID]types.SampleFormat{
	IDU8:    types.SampleFormatU8,
	IDS16LE: types.SampleFormatS16,
	IDS32LE: types.SampleFormatS32,
	IDF32LE: types.SampleFormatFLT,
	IDF64LE: types.SampleFormatDBL,
}

var longNames = map[codec.ID]string{
	IDU8:    "PCM unsigned 8-bit",
	IDS16LE: "PCM signed 16-bit little-endian",
	IDS32LE: "PCM signed 32-bit little-endian",
	IDF32LE: "PCM 32-bit floating point little-endian",
	IDF64LE: "PCM 64-bit floating point little-endian",
}

// IDs returns the supported codec ids.
func IDs() []codec.ID {
	return []codec.ID{IDU8, IDS16LE, IDS32LE, IDF32LE, IDF64LE}
}

// SampleFormat returns the sample format carried by a PCM codec id.
func SampleFormat(id codec.ID) (types.SampleFormat, bool) {
	f, ok := sampleFormats[id]
	return f, ok
}

// Config tunes the behavior of the coders, mostly for tests.
type Config struct {
	// QueueDepth is how many units may be pending before a send reports
	// types.ErrBusy; zero means DefaultQueueDepth.
	QueueDepth int

	// Delay makes an encoder hold that many frames until more input or the
	// end of the stream arrives, like a look-ahead encoder does.
	Delay int

	// FrameSize, if positive, makes an encoder require frames of exactly
	// that many samples (except the last one).
	FrameSize int
}

func (cfg Config) queueDepth() int {
	if cfg.QueueDepth <= 0 {
		return DefaultQueueDepth
	}
	return cfg.QueueDepth
}

// applyOptions overrides cfg with the "queue_depth" and "delay" options.
func (cfg Config) applyOptions(opts types.DictionaryItems) (Config, error) {
	for _, item := range []struct {
		Key string
		Dst *int
	}{
		{"queue_depth", &cfg.QueueDepth},
		{"delay", &cfg.Delay},
	} {
		v, ok := opts.Get(item.Key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("%w: invalid value '%s' of option '%s'", types.ErrInvalidData, v, item.Key)
		}
		*item.Dst = n
	}
	return cfg, nil
}

// DecoderCodec returns the descriptor of a PCM decoder.
func DecoderCodec(id codec.ID, cfg Config) (*codec.Codec, error) {
	if _, ok := sampleFormats[id]; !ok {
		return nil, types.ErrCodecNotFound{ID: string(id)}
	}
	return &codec.Codec{
		Name:      string(id),
		LongName:  longNames[id],
		ID:        id,
		MediaType: types.MediaTypeAudio,
		NewCoder: func(ctx context.Context, c *codec.Codec) (codec.Coder, error) {
			return newDecoder(c, cfg), nil
		},
	}, nil
}

// EncoderCodec returns the descriptor of a PCM encoder.
func EncoderCodec(id codec.ID, cfg Config) (*codec.Codec, error) {
	sampleFormat, ok := sampleFormats[id]
	if !ok {
		return nil, types.ErrCodecNotFound{ID: string(id), IsEncoder: true}
	}
	c := &codec.Codec{
		Name:          string(id),
		LongName:      longNames[id],
		ID:            id,
		MediaType:     types.MediaTypeAudio,
		IsEncoder:     true,
		Capabilities:  codec.CapVariableFrameSize | codec.CapEncoderFlush,
		SampleFormats: []types.SampleFormat{sampleFormat},
		NewCoder: func(ctx context.Context, c *codec.Codec) (codec.Coder, error) {
			return newEncoder(c, cfg), nil
		},
	}
	if cfg.Delay > 0 {
		c.Capabilities |= codec.CapDelay
	}
	if cfg.FrameSize > 0 {
		c.Capabilities &^= codec.CapVariableFrameSize
		c.FrameSize = cfg.FrameSize
	}
	return c, nil
}

// Register adds the decoder and the encoder of every PCM id to registry.
func Register(ctx context.Context, registry *codec.Registry, cfg Config) {
	for _, id := range IDs() {
		dec, err := DecoderCodec(id, cfg)
		if err != nil {
			panic(err)
		}
		enc, err := EncoderCodec(id, cfg)
		if err != nil {
			panic(err)
		}
		registry.Register(ctx, dec, enc)
	}
}

func validateAudioParams(params *codec.Parameters) error {
	if params.SampleRate <= 0 {
		return fmt.Errorf("%w: invalid sample rate %d", types.ErrInvalidData, params.SampleRate)
	}
	if err := params.ChannelLayout.Check(); err != nil {
		return fmt.Errorf("%w: invalid channel layout: %w", types.ErrInvalidData, err)
	}
	return nil
}
