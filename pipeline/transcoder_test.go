package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/typing"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/codec/pcm"
	"github.com/xaionaro-go/avrecode/filter"
	"github.com/xaionaro-go/avrecode/format"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

func newRegistry(cfg pcm.Config, extra ...*codec.Codec) *codec.Registry {
	ctx := context.Background()
	r := codec.NewRegistry()
	r.Register(ctx, extra...)
	pcm.Register(ctx, r, cfg)
	return r
}

func audioStream(index int, id codec.ID, sampleFormat types.SampleFormat, rate int, layout channellayout.Layout) *format.Stream {
	return &format.Stream{
		Index:      index,
		MediaType:  types.MediaTypeAudio,
		TimeBase:   types.NewRational(1, int32(rate)),
		Parameters: codec.NewAudioParameters(id, sampleFormat, rate, layout),
	}
}

// s16Packets returns count packets of nbSamples interleaved samples each;
// sample i of the whole stream has value (i mod 1000) on every channel.
func s16Packets(streamIndex, count, nbSamples, channels int) []*packet.Packet {
	var result []*packet.Packet
	pos := 0
	for idx := 0; idx < count; idx++ {
		data := make([]byte, nbSamples*channels*2)
		for s := 0; s < nbSamples; s++ {
			for ch := 0; ch < channels; ch++ {
				binary.LittleEndian.PutUint16(data[(s*channels+ch)*2:], uint16(int16((pos+s)%1000)))
			}
		}
		pkt := packet.FromBytes(data)
		pkt.StreamIndex = streamIndex
		pkt.Pts = int64(pos)
		pkt.Dts = int64(pos)
		pkt.Duration = int64(nbSamples)
		result = append(result, pkt)
		pos += nbSamples
	}
	return result
}

func newDemuxer(t *testing.T, streams []*format.Stream, packets ...[]*packet.Packet) *format.MemoryDemuxer {
	ctx := context.Background()
	d := format.NewMemoryDemuxer(streams...)
	for _, list := range packets {
		for _, pkt := range list {
			require.NoError(t, d.AddPacket(ctx, pkt))
		}
	}
	return d
}

func outputBytes(ctx context.Context, m *format.MemoryMuxer) []byte {
	var result []byte
	for _, pkt := range m.Packets(ctx) {
		result = append(result, pkt.Data()...)
	}
	return result
}

func requireMonotonic(t *testing.T, packets []*packet.Packet) {
	for idx := 1; idx < len(packets); idx++ {
		require.Greater(t, packets[idx].Dts, packets[idx-1].Dts, "packet #%d", idx)
	}
}

func TestTranscodeSameFormat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	input := s16Packets(0, 10, 160, 1)
	var want []byte
	for _, pkt := range input {
		want = append(want, pkt.Data()...)
	}
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}), newDemuxer(t, []*format.Stream{stream}, input), muxer, Config{})
	require.NoError(t, err)
	defer tr.Close(ctx)

	require.NoError(t, tr.Run(ctx))
	require.True(t, muxer.IsFinished(ctx))
	require.True(t, tr.IsDrained(ctx))
	require.Equal(t, want, outputBytes(ctx, muxer))

	packets := muxer.Packets(ctx)
	require.Len(t, packets, 10)
	require.Equal(t, int64(0), packets[0].Pts)
	require.Equal(t, int64(160), packets[1].Pts)
	requireMonotonic(t, packets)

	stats := tr.Statistics()
	require.Equal(t, uint64(10), stats.PacketsRead)
	require.Equal(t, uint64(10), stats.FramesDecoded)
	require.Zero(t, stats.FramesFiltered)
	require.Equal(t, uint64(10), stats.PacketsEncoded)
	require.Equal(t, uint64(len(want)), stats.BytesWritten)
}

func TestTranscodeS16ToFloat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 10, 160, 1)), muxer, Config{
		EncoderName: string(pcm.IDF32LE),
	})
	require.NoError(t, err)
	defer tr.Close(ctx)
	require.NoError(t, tr.Run(ctx))

	out := outputBytes(ctx, muxer)
	require.Len(t, out, 1600*4)
	for idx := 0; idx < 1600; idx++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(out[idx*4:]))
		require.Equal(t, float32(idx%1000)/32768, v, "sample #%d", idx)
	}
	require.NotZero(t, tr.Statistics().FramesFiltered)
	requireMonotonic(t, muxer.Packets(ctx))

	params := muxer.Parameters(ctx, 0)
	require.Equal(t, pcm.IDF32LE, params.CodecID)
	require.Equal(t, types.SampleFormatFLT, params.SampleFormat)
}

func TestLayoutNegotiation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	limited, err := pcm.EncoderCodec(pcm.IDS16LE, pcm.Config{})
	require.NoError(t, err)
	limited.Name = "pcm_s16le_upto_stereo"
	limited.ChannelLayouts = []channellayout.Layout{channellayout.Default(1), channellayout.Default(2)}

	layout51, err := channellayout.FromName("5.1")
	require.NoError(t, err)
	require.Equal(t, 6, layout51.Channels())

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 48000, layout51)
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}, limited), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 4, 480, 6)), muxer, Config{
		EncoderName: limited.Name,
	})
	require.NoError(t, err)
	defer tr.Close(ctx)

	require.True(t, tr.EncoderParameters(ctx).ChannelLayout.Equal(channellayout.Default(2)))
	require.NoError(t, tr.Run(ctx))
	require.True(t, muxer.Parameters(ctx, 0).ChannelLayout.Equal(channellayout.Default(2)))
	require.Len(t, outputBytes(ctx, muxer), 4*480*2*2)
}

func TestSelectStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	streams := []*format.Stream{
		audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1)),
		audioStream(1, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(2)),
	}
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}), newDemuxer(t, streams,
		s16Packets(0, 3, 100, 1),
		s16Packets(1, 5, 100, 2),
	), muxer, Config{
		StreamIndex: typing.Opt(1),
	})
	require.NoError(t, err)
	defer tr.Close(ctx)
	require.Equal(t, 1, tr.InputStream().Index)

	require.NoError(t, tr.Run(ctx))
	require.Len(t, outputBytes(ctx, muxer), 5*100*2*2)
	stats := tr.Statistics()
	require.Equal(t, uint64(3), stats.PacketsSkipped)
	require.Equal(t, uint64(5), stats.PacketsRead)
}

func TestNewTranscoderErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	video := &format.Stream{
		Index:      0,
		MediaType:  types.MediaTypeVideo,
		TimeBase:   types.NewRational(1, 90000),
		Parameters: codec.NewParameters(),
	}
	audio := audioStream(1, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))

	for _, tc := range []struct {
		name    string
		streams []*format.Stream
		cfg     Config
		want    error
	}{
		{"no audio", []*format.Stream{video}, Config{}, types.ErrInvalidData},
		{"video selected", []*format.Stream{video, audio}, Config{StreamIndex: typing.Opt(0)}, types.ErrUnsupported{}},
		{"missing stream", []*format.Stream{audio}, Config{StreamIndex: typing.Opt(7)}, types.ErrInvalidData},
		{"unknown encoder", []*format.Stream{audio}, Config{EncoderName: "nonexistent"}, types.ErrCodecNotFound{}},
		{"unsupported thread type", []*format.Stream{audio}, Config{ThreadType: codec.ThreadTypeFrame}, types.ErrUnsupported{}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTranscoder(ctx, newRegistry(pcm.Config{}), format.NewMemoryDemuxer(tc.streams...), format.NewMemoryMuxer(), tc.cfg)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

// busyEncoder refuses every first attempt to send a frame.
type busyEncoder struct {
	codec.EncoderCoder
	sends int
}

func (e *busyEncoder) Parameters(ctx context.Context) *codec.Parameters {
	return e.EncoderCoder.(codec.ParametersReporter).Parameters(ctx)
}

func (e *busyEncoder) SendFrame(ctx context.Context, f *frame.Frame) error {
	if f != nil {
		e.sends++
		if e.sends%2 == 1 {
			return types.ErrBusy
		}
	}
	return e.EncoderCoder.SendFrame(ctx, f)
}

func TestBusyEncoderIsRetried(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	busy, err := pcm.EncoderCodec(pcm.IDS16LE, pcm.Config{})
	require.NoError(t, err)
	busy.Name = "busy_s16le"
	newCoder := busy.NewCoder
	busy.NewCoder = func(ctx context.Context, c *codec.Codec) (codec.Coder, error) {
		coder, err := newCoder(ctx, c)
		if err != nil {
			return nil, err
		}
		return &busyEncoder{EncoderCoder: coder.(codec.EncoderCoder)}, nil
	}

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}, busy), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 8, 80, 1)), muxer, Config{
		EncoderName: busy.Name,
	})
	require.NoError(t, err)
	defer tr.Close(ctx)

	require.NoError(t, tr.Run(ctx))
	require.Len(t, outputBytes(ctx, muxer), 8*80*2)
	require.Equal(t, uint64(8), tr.Statistics().BusyRetries)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(context.Background(), newRegistry(pcm.Config{}), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 2, 80, 1)), muxer, Config{})
	require.NoError(t, err)
	defer tr.Close(context.Background())

	require.ErrorIs(t, tr.Run(ctx), context.Canceled)
	require.False(t, tr.IsDrained(ctx))
	require.False(t, muxer.IsFinished(context.Background()))
}

func TestServeAsync(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 4, 80, 1)), muxer, Config{})
	require.NoError(t, err)
	defer tr.Close(ctx)

	drainedCh := tr.DrainedChan()
	require.NoError(t, <-tr.ServeAsync(ctx))
	select {
	case <-drainedCh:
	default:
		t.Fatal("the drained notification was not sent")
	}
	require.True(t, muxer.IsFinished(ctx))

	// the chain is at its end now
	err = tr.ProcessPacket(ctx, 0, s16Packets(0, 1, 80, 1)[0])
	require.True(t, errors.Is(err, types.ErrEOF), err)
	require.NoError(t, tr.Drain(ctx))
}

// wrapEncoder renames the s16le encoder and passes every coder it opens
// through wrapFn.
func wrapEncoder(t *testing.T, name string, wrapFn func(codec.EncoderCoder) codec.Coder) *codec.Codec {
	c, err := pcm.EncoderCodec(pcm.IDS16LE, pcm.Config{})
	require.NoError(t, err)
	c.Name = name
	newCoder := c.NewCoder
	c.NewCoder = func(ctx context.Context, c *codec.Codec) (codec.Coder, error) {
		coder, err := newCoder(ctx, c)
		if err != nil {
			return nil, err
		}
		return wrapFn(coder.(codec.EncoderCoder)), nil
	}
	return c
}

// busyEOFEncoder refuses the first end of stream.
type busyEOFEncoder struct {
	busyEncoder
	eofSends int
}

func (e *busyEOFEncoder) SendFrame(ctx context.Context, f *frame.Frame) error {
	if f == nil {
		e.eofSends++
		if e.eofSends == 1 {
			return types.ErrBusy
		}
	}
	return e.EncoderCoder.SendFrame(ctx, f)
}

func TestBusyEncoderEOFIsRetried(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var coder *busyEOFEncoder
	enc := wrapEncoder(t, "busy_eof_s16le", func(c codec.EncoderCoder) codec.Coder {
		coder = &busyEOFEncoder{busyEncoder: busyEncoder{EncoderCoder: c}}
		return coder
	})

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}, enc), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 4, 80, 1)), muxer, Config{
		EncoderName: enc.Name,
	})
	require.NoError(t, err)
	defer tr.Close(ctx)

	require.NoError(t, tr.Run(ctx))
	require.True(t, tr.IsDrained(ctx))
	require.Equal(t, 2, coder.eofSends)
	require.Equal(t, uint64(1), tr.Statistics().BusyRetries)
	require.Len(t, outputBytes(ctx, muxer), 4*80*2)
}

type closeCountingEncoder struct {
	busyEncoder
	closeCount int
}

func (e *closeCountingEncoder) SendFrame(ctx context.Context, f *frame.Frame) error {
	return e.EncoderCoder.SendFrame(ctx, f)
}

func (e *closeCountingEncoder) Close(ctx context.Context) error {
	e.closeCount++
	if err := e.EncoderCoder.Close(ctx); err != nil {
		return err
	}
	return errors.New("the handle is already gone")
}

type headerFailingMuxer struct {
	*format.MemoryMuxer
}

func (headerFailingMuxer) WriteHeader(ctx context.Context) error {
	return types.ErrIO{Err: errors.New("no space left on device")}
}

func TestNewTranscoderReleasesOnOutputFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var coder *closeCountingEncoder
	enc := wrapEncoder(t, "closing_s16le", func(c codec.EncoderCoder) codec.Coder {
		coder = &closeCountingEncoder{busyEncoder: busyEncoder{EncoderCoder: c}}
		return coder
	})

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	_, err := NewTranscoder(ctx, newRegistry(pcm.Config{}, enc), newDemuxer(t, []*format.Stream{stream}), headerFailingMuxer{format.NewMemoryMuxer()}, Config{
		EncoderName: enc.Name,
	})
	require.ErrorIs(t, err, types.ErrIO{})
	require.NotContains(t, err.Error(), "the handle is already gone")
	require.Equal(t, 1, coder.closeCount)
}

type countingNode struct {
	filter.Node
	closeCount int
}

func (n *countingNode) Close(ctx context.Context) error {
	n.closeCount++
	return n.Node.Close(ctx)
}

type countingFactory struct {
	filter.BuiltinFactory
	nodes []*countingNode
}

func (f *countingFactory) NewNode(ctx context.Context, description string, cfg filter.Config) (filter.Node, error) {
	node, err := f.BuiltinFactory.NewNode(ctx, description, cfg)
	if err != nil {
		return nil, err
	}
	n := &countingNode{Node: node}
	f.nodes = append(f.nodes, n)
	return n, nil
}

func TestFilterFactoryIsUsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	factory := &countingFactory{}
	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{}), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 3, 160, 1)), muxer, Config{
		EncoderName:   string(pcm.IDF32LE),
		FilterFactory: factory,
	})
	require.NoError(t, err)
	require.NoError(t, tr.Run(ctx))
	require.Len(t, outputBytes(ctx, muxer), 3*160*4)

	require.Len(t, factory.nodes, 1)
	require.NoError(t, tr.Close(ctx))
	require.Equal(t, 1, factory.nodes[0].closeCount)
}
