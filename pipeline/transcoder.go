// Package pipeline wires a demuxer, a decoder, an optional filter, an
// encoder and a muxer into a transcoder of one audio stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"

	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/filter"
	"github.com/xaionaro-go/avrecode/format"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/types"
)

// Transcoder re-encodes one stream of a Demuxer into a Muxer.
//
// Units move in one direction only; whenever a stage reports
// types.ErrBusy, the stage after it is drained and the send is retried.
type Transcoder struct {
	Demuxer format.Demuxer
	Muxer   format.Muxer

	locker            xsync.Mutex
	config            Config
	inputStream       *format.Stream
	decoderTB         types.Rational
	decoder           *codec.Decoder
	encoder           *codec.Encoder
	outputStream      format.OutputStream
	filter            filter.Node
	filterDecided     bool
	drained           atomic.Bool
	changeChanDrained *chan struct{}

	statistics statistics
}

// NewTranscoder opens the decoder of the selected input stream, negotiates
// the encoder parameters, opens the encoder and writes the header of the
// output.
func NewTranscoder(
	ctx context.Context,
	registry *codec.Registry,
	demuxer format.Demuxer,
	muxer format.Muxer,
	cfg Config,
) (_ret *Transcoder, _err error) {
	logger.Debugf(ctx, "NewTranscoder(ctx, %#+v)", cfg)
	defer func() { logger.Debugf(ctx, "/NewTranscoder(ctx): %v", _err) }()

	if registry == nil {
		return nil, fmt.Errorf("%w: no codec registry", types.ErrInvalidData)
	}

	t := &Transcoder{
		Demuxer:           demuxer,
		Muxer:             muxer,
		config:            cfg,
		decoderTB:         cfg.decoderTimeBase(),
		changeChanDrained: ptr(make(chan struct{})),
	}

	var err error
	t.inputStream, err = selectStream(demuxer.Streams(), cfg)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "selected the input %s", t.inputStream)

	if err := t.openDecoder(ctx, registry); err != nil {
		return nil, err
	}
	if err := t.openEncoder(ctx, registry); err != nil {
		if err := t.decoder.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the decoder: %v", err)
		}
		return nil, err
	}
	if err := t.initOutput(ctx); err != nil {
		if err := t.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close: %v", err)
		}
		return nil, err
	}
	return t, nil
}

func selectStream(streams []*format.Stream, cfg Config) (*format.Stream, error) {
	if cfg.StreamIndex.IsSet() && cfg.StreamIndex.Get() >= 0 {
		s, err := format.StreamByIndex(streams, cfg.StreamIndex.Get())
		if err != nil {
			return nil, err
		}
		if s.MediaType != types.MediaTypeAudio {
			return nil, types.ErrUnsupported{Property: "media_type", Value: s.MediaType.String()}
		}
		return s, nil
	}
	return format.BestStream(streams, types.MediaTypeAudio)
}

func (t *Transcoder) openDecoder(ctx context.Context, registry *codec.Registry) error {
	params := t.inputStream.Parameters.Clone()
	if params == nil {
		return fmt.Errorf("%w: %s has no codec parameters", types.ErrInvalidData, t.inputStream)
	}
	params.TimeBase = t.decoderTB
	params.ThreadCount = t.config.ThreadCount
	params.ThreadType = t.config.ThreadType
	params.Options = t.config.DecoderOptions.Clone()

	dec, err := codec.NewDecoder(ctx, registry, params)
	if err != nil {
		return fmt.Errorf("unable to open the decoder: %w", err)
	}
	t.decoder = dec
	return nil
}

func (t *Transcoder) openEncoder(ctx context.Context, registry *codec.Registry) error {
	decParams := t.decoder.Parameters(ctx)

	var (
		encCodec *codec.Codec
		err      error
	)
	if t.config.EncoderName != "" {
		encCodec, err = registry.FindEncoderByName(ctx, t.config.EncoderName)
	} else {
		encCodec, err = registry.FindEncoder(ctx, decParams.CodecID)
	}
	if err != nil {
		return err
	}

	want := codec.NewAudioParameters(
		encCodec.ID,
		decParams.SampleFormat,
		decParams.SampleRate,
		decParams.ChannelLayout,
	)
	if t.config.SampleFormat.IsSet() {
		want.SampleFormat = t.config.SampleFormat.Get()
	}
	if want.SampleFormat == types.SampleFormatNone {
		logger.Warnf(ctx, "the decoder does not report its sample format, assuming %s", types.SampleFormatFLTP)
		want.SampleFormat = types.SampleFormatFLTP
	}
	if t.config.SampleRate > 0 {
		want.SampleRate = t.config.SampleRate
	}
	if !t.config.ChannelLayout.IsZeroed() {
		want.ChannelLayout = t.config.ChannelLayout.Clone()
	}
	want.BitRate = t.config.BitRate
	if t.config.EncoderTimeBase.IsValid() && !t.config.EncoderTimeBase.IsZero() {
		want.TimeBase = t.config.EncoderTimeBase
	}
	want.ThreadCount = t.config.ThreadCount
	want.ThreadType = t.config.ThreadType
	want.Options = t.config.EncoderOptions.Clone()

	params := encCodec.NegotiateParameters(want)
	if !params.ChannelLayout.Equal(want.ChannelLayout) {
		logger.Infof(ctx, "channel layout %s is not supported by %s, using %s", want.ChannelLayout, encCodec.Name, params.ChannelLayout)
	}
	t.encoder, err = codec.OpenEncoder(ctx, encCodec, params)
	if err != nil {
		return fmt.Errorf("unable to open the encoder: %w", err)
	}
	logger.Debugf(ctx, "opened the encoder %s: %s", encCodec, t.encoder.Parameters(ctx))
	return nil
}

func (t *Transcoder) initOutput(ctx context.Context) error {
	s, err := t.Muxer.AddStream(ctx)
	if err != nil {
		return fmt.Errorf("unable to add an output stream: %w", err)
	}
	if err := s.SetParameters(t.encoder.Parameters(ctx)); err != nil {
		return fmt.Errorf("unable to set the output stream parameters: %w", err)
	}
	s.SetTimeBase(t.encoder.TimeBase())
	if err := t.Muxer.WriteHeader(ctx); err != nil {
		return fmt.Errorf("unable to write the header: %w", err)
	}
	t.outputStream = s
	return nil
}

func (t *Transcoder) String() string {
	if t.encoder == nil {
		return "Transcoder"
	}
	return fmt.Sprintf("Transcoder(%s -> %s)", t.decoder, t.encoder)
}

// InputStream returns the stream being transcoded.
func (t *Transcoder) InputStream() *format.Stream {
	return t.inputStream
}

// EncoderParameters returns the parameters the encoder was opened with.
func (t *Transcoder) EncoderParameters(ctx context.Context) *codec.Parameters {
	return t.encoder.Parameters(ctx).Clone()
}

// Close releases the coders; the demuxer and the muxer stay open.
func (t *Transcoder) Close(ctx context.Context) error {
	var errs []error
	if err := t.decoder.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("unable to close the decoder: %w", err))
	}
	if err := t.encoder.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("unable to close the encoder: %w", err))
	}
	if t.filter != nil {
		if err := t.filter.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close the filter: %w", err))
		}
	}
	return errors.Join(errs...)
}
