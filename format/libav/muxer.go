package libav

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/xsync"

	"github.com/xaionaro-go/avrecode/codec"
	codeclibav "github.com/xaionaro-go/avrecode/codec/libav"
	"github.com/xaionaro-go/avrecode/format"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

type MuxerConfig struct {
	// FormatName forces the container; empty means guessing it by the URL.
	FormatName    string
	CustomOptions types.DictionaryItems
}

type Muxer struct {
	URL string

	locker        xsync.Mutex
	formatContext *astiav.FormatContext
	dictionary    *astiav.Dictionary
	avPacket      *astiav.Packet
	closer        *astikit.Closer
	streams       []*outputStream
	headerWritten bool
	trailerDone   bool
}

var _ format.Muxer = (*Muxer)(nil)

type outputStream struct {
	stream *astiav.Stream
}

var _ format.OutputStream = (*outputStream)(nil)

func (s *outputStream) Index() int {
	return s.stream.Index()
}

func (s *outputStream) SetTimeBase(tb types.Rational) {
	s.stream.SetTimeBase(codeclibav.RationalToAstiav(tb))
}

func (s *outputStream) TimeBase() types.Rational {
	return codeclibav.RationalFromAstiav(s.stream.TimeBase())
}

func (s *outputStream) SetParameters(params *codec.Parameters) error {
	return codeclibav.ParametersToAstiav(params, s.stream.CodecParameters())
}

// NewMuxer allocates the output; authKey is appended to url and never logged.
func NewMuxer(
	ctx context.Context,
	url string,
	authKey secret.String,
	cfg MuxerConfig,
) (_ *Muxer, _err error) {
	logger.Debugf(ctx, "NewMuxer(ctx, '%s', %#+v)", url, cfg)
	defer func() { logger.Debugf(ctx, "/NewMuxer(ctx, '%s', %#+v): %v", url, cfg, _err) }()

	m := &Muxer{
		URL:    url,
		closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			m.closer.Close()
		}
	}()

	urlWithSecret := url + authKey.Get()
	formatContext, err := astiav.AllocOutputFormatContext(nil, cfg.FormatName, urlWithSecret)
	if err != nil {
		return nil, types.ErrIO{Err: fmt.Errorf("allocating output format context failed using URL '%s': %w", url, err)}
	}
	if formatContext == nil {
		return nil, types.ErrIO{Err: fmt.Errorf("unable to allocate the output format context")}
	}
	m.formatContext = formatContext
	m.closer.Add(m.formatContext.Free)

	if len(cfg.CustomOptions) > 0 {
		m.dictionary = astiav.NewDictionary()
		m.closer.Add(m.dictionary.Free)
		for _, opt := range cfg.CustomOptions {
			logger.Debugf(ctx, "output.Dictionary['%s'] = '%s'", opt.Key, opt.Value)
			m.dictionary.Set(opt.Key, opt.Value, 0)
		}
	}

	logger.Debugf(ctx, "output format name: '%s'", m.formatContext.OutputFormat().Name())
	if !m.formatContext.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		logger.Tracef(ctx, "destination '%s' is a file", url)
		ioContext, err := astiav.OpenIOContext(
			urlWithSecret,
			astiav.NewIOContextFlags(astiav.IOContextFlagWrite),
			nil,
			m.dictionary,
		)
		if err != nil {
			return nil, types.ErrIO{Err: fmt.Errorf("unable to open IO context (URL: '%s'): %w", url, err)}
		}
		m.closer.AddWithError(ioContext.Close)
		m.formatContext.SetPb(ioContext)
	}

	m.avPacket = astiav.AllocPacket()
	m.closer.Add(m.avPacket.Free)
	return m, nil
}

func (m *Muxer) AddStream(ctx context.Context) (format.OutputStream, error) {
	return xsync.DoR2(ctx, &m.locker, func() (format.OutputStream, error) {
		if m.headerWritten {
			return nil, fmt.Errorf("%w: cannot add a stream after the header is written", types.ErrInvalidData)
		}
		stream := m.formatContext.NewStream(nil)
		if stream == nil {
			return nil, types.ErrIO{Err: fmt.Errorf("unable to allocate an output stream")}
		}
		s := &outputStream{stream: stream}
		m.streams = append(m.streams, s)
		return s, nil
	})
}

func (m *Muxer) WriteHeader(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "WriteHeader")
	defer func() { logger.Debugf(ctx, "/WriteHeader: %v", _err) }()
	return xsync.DoR1(ctx, &m.locker, func() error {
		if m.headerWritten {
			return fmt.Errorf("%w: the header is already written", types.ErrInvalidData)
		}
		if err := m.formatContext.WriteHeader(m.dictionary); err != nil {
			return types.ErrIO{Err: fmt.Errorf("unable to write the header: %w", err)}
		}
		m.headerWritten = true
		for _, s := range m.streams {
			logger.Debugf(ctx, "output stream #%d time base: %s", s.Index(), s.TimeBase())
		}
		return nil
	})
}

func (m *Muxer) WriteInterleaved(ctx context.Context, pkt *packet.Packet) (_err error) {
	logger.Tracef(ctx, "WriteInterleaved: %s", pkt)
	defer func() { logger.Tracef(ctx, "/WriteInterleaved: %s: %v", pkt, _err) }()
	return xsync.DoR1(ctx, &m.locker, func() error {
		if !m.headerWritten || m.trailerDone {
			return fmt.Errorf("%w: the muxer does not accept packets now", types.ErrInvalidData)
		}
		if pkt.StreamIndex < 0 || pkt.StreamIndex >= len(m.streams) {
			return fmt.Errorf("%w: no output stream #%d", types.ErrInvalidData, pkt.StreamIndex)
		}
		if err := codeclibav.PacketToAstiav(pkt, m.avPacket); err != nil {
			return err
		}
		if err := m.formatContext.WriteInterleavedFrame(m.avPacket); err != nil {
			return types.ErrIO{Err: fmt.Errorf("unable to write %s: %w", pkt, err)}
		}
		return nil
	})
}

func (m *Muxer) WriteTrailer(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "WriteTrailer")
	defer func() { logger.Debugf(ctx, "/WriteTrailer: %v", _err) }()
	return xsync.DoR1(ctx, &m.locker, func() error {
		if !m.headerWritten || m.trailerDone {
			return fmt.Errorf("%w: the header is not written or the trailer is already written", types.ErrInvalidData)
		}
		if err := m.formatContext.WriteTrailer(); err != nil {
			return types.ErrIO{Err: fmt.Errorf("unable to write the trailer: %w", err)}
		}
		m.trailerDone = true
		return nil
	})
}

func (m *Muxer) Close(ctx context.Context) error {
	return xsync.DoR1(ctx, &m.locker, func() error {
		return m.closer.Close()
	})
}
