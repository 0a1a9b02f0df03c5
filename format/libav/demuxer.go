// Package libav implements format.Demuxer and format.Muxer on top of
// libavformat.
package libav

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/asticode/go-astiav"
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/unsafetools"
	"github.com/xaionaro-go/xsync"

	codeclibav "github.com/xaionaro-go/avrecode/codec/libav"
	"github.com/xaionaro-go/avrecode/format"
	"github.com/xaionaro-go/avrecode/internal"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

type DemuxerConfig struct {
	// CustomOptions are passed to avformat_open_input; the "f" option
	// selects the input format.
	CustomOptions types.DictionaryItems
}

type Demuxer struct {
	URL string

	locker        xsync.Mutex
	formatContext *astiav.FormatContext
	dictionary    *astiav.Dictionary
	avPacket      *astiav.Packet
	streams       []*format.Stream
	closed        bool
}

var _ format.Demuxer = (*Demuxer)(nil)

// NewDemuxer opens the input; authKey is appended to url and never logged.
func NewDemuxer(
	ctx context.Context,
	url string,
	authKey secret.String,
	cfg DemuxerConfig,
) (_ *Demuxer, _err error) {
	logger.Debugf(ctx, "NewDemuxer(ctx, '%s', %#+v)", url, cfg)
	defer func() { logger.Debugf(ctx, "/NewDemuxer(ctx, '%s', %#+v): %v", url, cfg, _err) }()

	d := &Demuxer{URL: url}

	var formatName string
	if len(cfg.CustomOptions) > 0 {
		d.dictionary = astiav.NewDictionary()
		internal.SetFinalizerFree(ctx, d.dictionary)
		for _, opt := range cfg.CustomOptions {
			if opt.Key == "f" {
				formatName = opt.Value
				logger.Debugf(ctx, "overriding input format to '%s'", opt.Value)
				continue
			}
			logger.Debugf(ctx, "input.Dictionary['%s'] = '%s'", opt.Key, opt.Value)
			d.dictionary.Set(opt.Key, opt.Value, 0)
		}
	}

	var inputFormat *astiav.InputFormat
	if formatName != "" {
		inputFormat = astiav.FindInputFormat(formatName)
		if inputFormat == nil {
			return nil, types.ErrUnsupported{Property: "input format", Value: formatName}
		}
	}

	d.formatContext = astiav.AllocFormatContext()
	if d.formatContext == nil {
		return nil, types.ErrIO{Err: fmt.Errorf("unable to allocate a format context")}
	}

	urlWithSecret := url + authKey.Get()
	if err := d.formatContext.OpenInput(urlWithSecret, inputFormat, d.dictionary); err != nil {
		d.formatContext.Free()
		if authKey.Get() != "" {
			return nil, types.ErrIO{Err: fmt.Errorf("unable to open input by URL '%s/<HIDDEN>': %w", url, err)}
		}
		return nil, types.ErrIO{Err: fmt.Errorf("unable to open input by URL '%s': %w", url, err)}
	}

	if err := d.formatContext.FindStreamInfo(nil); err != nil {
		d.formatContext.CloseInput()
		d.formatContext.Free()
		return nil, types.ErrIO{Err: fmt.Errorf("unable to get stream info: %w", err)}
	}

	for _, stream := range d.formatContext.Streams() {
		if logger.FromCtx(ctx).Level() >= logger.LevelTrace {
			logger.Tracef(ctx, "input stream #%d: %s", stream.Index(), spew.Sdump(unsafetools.FieldByNameInValue(reflect.ValueOf(stream.CodecParameters()), "c").Elem().Elem().Interface()))
		}
		params := codeclibav.ParametersFromAstiav(stream.CodecParameters())
		tb := codeclibav.RationalFromAstiav(stream.TimeBase())
		params.TimeBase = tb
		d.streams = append(d.streams, &format.Stream{
			Index:      stream.Index(),
			MediaType:  params.MediaType,
			TimeBase:   tb,
			Parameters: params,
		})
	}

	d.avPacket = astiav.AllocPacket()
	internal.SetFinalizer(ctx, d, func(d *Demuxer) {
		d.Close(context.Background())
	})
	return d, nil
}

func (d *Demuxer) Streams() []*format.Stream {
	return d.streams
}

func (d *Demuxer) ReadPacket(ctx context.Context) (_ int, _ *packet.Packet, _err error) {
	logger.Tracef(ctx, "ReadPacket")
	defer func() { logger.Tracef(ctx, "/ReadPacket: %v", _err) }()

	pkt := packet.Pool.Get()
	var err error
	d.locker.Do(ctx, func() {
		if d.closed {
			err = fmt.Errorf("%w: the demuxer is closed", types.ErrInvalidData)
			return
		}
		err = d.formatContext.ReadFrame(d.avPacket)
		if err == nil {
			codeclibav.PacketFromAstiav(d.avPacket, pkt)
			d.avPacket.Unref()
		}
	})
	switch {
	case err == nil:
		return pkt.StreamIndex, pkt, nil
	case errors.Is(err, astiav.ErrEof), errors.Is(err, astiav.ErrEio):
		packet.Pool.Put(pkt)
		return -1, nil, types.ErrEOF
	case errors.Is(err, types.ErrInvalidData):
		packet.Pool.Put(pkt)
		return -1, nil, err
	default:
		packet.Pool.Put(pkt)
		return -1, nil, types.ErrIO{Err: fmt.Errorf("unable to read a frame: %w", err)}
	}
}

func (d *Demuxer) Close(ctx context.Context) error {
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		if d.closed {
			return
		}
		d.closed = true
		if d.avPacket != nil {
			d.avPacket.Free()
		}
		d.formatContext.CloseInput()
		d.formatContext.Free()
	})
	return nil
}
