package pcm

import (
	"context"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/audio"
	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

func newRegistry(t *testing.T, cfg Config) *codec.Registry {
	r := codec.NewRegistry()
	Register(context.Background(), r, cfg)
	return r
}

func s16Packet(pts int64, samples ...int16) *packet.Packet {
	data := make([]byte, 2*len(samples))
	for idx, s := range samples {
		binary.LittleEndian.PutUint16(data[2*idx:], uint16(s))
	}
	pkt := packet.FromBytes(data)
	pkt.Pts = pts
	pkt.Dts = pts
	return pkt
}

func TestSimpleDecode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dec, err := codec.NewDecoder(ctx, newRegistry(t, Config{}),
		codec.NewAudioParameters(IDS16LE, types.SampleFormatNone, 48000, channellayout.Stereo))
	require.NoError(t, err)
	defer dec.Close(ctx)
	require.Equal(t, types.NewRational(1, 48000), dec.Parameters(ctx).TimeBase)

	require.NoError(t, dec.SendPacket(ctx, s16Packet(0, 1, -1, 2, -2)))
	require.NoError(t, dec.SendPacket(ctx, s16Packet(2, 3, -3)))
	require.NoError(t, dec.SendEOF(ctx))
	require.Equal(t, codec.StateDraining, dec.State(ctx))

	f := frame.New()
	require.NoError(t, dec.ReceiveFrame(ctx, f))
	require.Equal(t, 2, f.NbSamples)
	require.Equal(t, int64(0), f.Pts)
	require.Equal(t, int64(0), f.BestEffortTimestamp)
	require.Equal(t, int64(2), f.Duration)
	require.Equal(t, types.SampleFormatS16, f.SampleFormat)
	require.True(t, f.ChannelLayout.Equal(channellayout.Stereo))
	right, err := audio.ExtractSamples(f, 1)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{-1.0 / 32768, -2.0 / 32768}, right, 1e-9)

	require.NoError(t, dec.ReceiveFrame(ctx, f))
	require.Equal(t, 1, f.NbSamples)
	require.Equal(t, int64(2), f.Pts)

	for range 3 {
		require.ErrorIs(t, dec.ReceiveFrame(ctx, f), types.ErrEOF)
	}
	require.Equal(t, codec.StateFlushed, dec.State(ctx))
	require.ErrorIs(t, dec.SendPacket(ctx, s16Packet(3, 4, -4)), types.ErrEOF)
	require.NoError(t, dec.SendEOF(ctx))

	stats := dec.Statistics()
	require.Equal(t, uint64(2), stats.Sent)
	require.Equal(t, uint64(2), stats.Received)
}

func TestDecoderBusy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dec, err := codec.NewDecoder(ctx, newRegistry(t, Config{QueueDepth: 2}),
		codec.NewAudioParameters(IDS16LE, types.SampleFormatNone, 8000, channellayout.Mono))
	require.NoError(t, err)
	defer dec.Close(ctx)

	f := frame.New()
	require.ErrorIs(t, dec.ReceiveFrame(ctx, f), types.ErrEmpty)

	require.NoError(t, dec.SendPacket(ctx, s16Packet(0, 1)))
	require.NoError(t, dec.SendPacket(ctx, s16Packet(1, 2)))
	busyPkt := s16Packet(2, 3)
	require.ErrorIs(t, dec.SendPacket(ctx, busyPkt), types.ErrBusy)

	require.NoError(t, dec.ReceiveFrame(ctx, f))
	require.Equal(t, int64(0), f.Pts)
	require.NoError(t, dec.SendPacket(ctx, busyPkt))

	var pts []int64
	for {
		err := dec.ReceiveFrame(ctx, f)
		if err != nil {
			require.ErrorIs(t, err, types.ErrEmpty)
			break
		}
		pts = append(pts, f.Pts)
	}
	require.Equal(t, []int64{1, 2}, pts)
	require.Equal(t, uint64(1), dec.Statistics().Busy)
}

func TestDecoderRejectsShortPackets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dec, err := codec.NewDecoder(ctx, newRegistry(t, Config{}),
		codec.NewAudioParameters(IDS32LE, types.SampleFormatNone, 8000, channellayout.Stereo))
	require.NoError(t, err)
	defer dec.Close(ctx)

	require.ErrorIs(t, dec.SendPacket(ctx, packet.FromBytes([]byte{1, 2, 3})), types.ErrInvalidData)
	require.ErrorIs(t, dec.SendPacket(ctx, packet.New()), types.ErrInvalidData)

	// the incomplete tail is dropped
	require.NoError(t, dec.SendPacket(ctx, packet.FromBytes(make([]byte, 8+3))))
	f := frame.New()
	require.NoError(t, dec.ReceiveFrame(ctx, f))
	require.Equal(t, 1, f.NbSamples)
	require.Len(t, f.Data(0), 8)
}

func fltpFrame(t *testing.T, layout channellayout.Layout, pts int64, nbSamples int, value float64) *frame.Frame {
	f, err := frame.NewAudio(types.SampleFormatFLTP, 48000, layout, nbSamples)
	require.NoError(t, err)
	f.Pts = pts
	for ch := range layout.Channels() {
		samples := make([]float64, nbSamples)
		for i := range samples {
			samples[i] = value * float64(ch+1)
		}
		require.NoError(t, audio.FillSamples(f, ch, samples))
	}
	return f
}

func TestEncoderDelay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	enc, err := codec.NewEncoder(ctx, newRegistry(t, Config{Delay: 2}), "pcm_f32le",
		codec.NewAudioParameters(IDF32LE, types.SampleFormatFLT, 48000, channellayout.Stereo))
	require.NoError(t, err)
	defer enc.Close(ctx)
	require.Zero(t, enc.FrameSize())
	require.True(t, enc.Codec().Capabilities.Has(codec.CapDelay))

	pkt := packet.New()
	for idx := range 2 {
		require.NoError(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Stereo, int64(idx*10), 10, 0.25)))
		require.ErrorIs(t, enc.ReceivePacket(ctx, pkt), types.ErrEmpty)
	}
	require.NoError(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Stereo, 20, 10, 0.25)))
	require.NoError(t, enc.ReceivePacket(ctx, pkt))
	require.Equal(t, int64(0), pkt.Pts)
	require.Equal(t, int64(0), pkt.Dts)
	require.Equal(t, int64(10), pkt.Duration)
	require.Equal(t, 10*2*4, pkt.Size())
	require.True(t, pkt.IsKey())
	require.ErrorIs(t, enc.ReceivePacket(ctx, pkt), types.ErrEmpty)

	require.NoError(t, enc.SendEOF(ctx))
	var pts []int64
	for {
		err := enc.ReceivePacket(ctx, pkt)
		if err != nil {
			require.ErrorIs(t, err, types.ErrEOF)
			break
		}
		pts = append(pts, pkt.Pts)
	}
	require.Equal(t, []int64{10, 20}, pts)
	require.ErrorIs(t, enc.ReceivePacket(ctx, pkt), types.ErrEOF)
	require.ErrorIs(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Stereo, 30, 10, 0.25)), types.ErrEOF)

	require.NoError(t, enc.Flush(ctx))
	require.Equal(t, codec.StateOpen, enc.State(ctx))
	require.NoError(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Stereo, 0, 10, 0.25)))
}

func TestEncoderFixedFrameSize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	registry := newRegistry(t, Config{FrameSize: 4})
	encCodec, err := registry.FindEncoder(ctx, IDF32LE)
	require.NoError(t, err)
	params := encCodec.NegotiateParameters(
		codec.NewAudioParameters(IDF32LE, types.SampleFormatFLTP, 48000, channellayout.Mono))
	require.Equal(t, types.SampleFormatFLT, params.SampleFormat)
	require.Equal(t, 4, params.FrameSize)

	enc, err := codec.OpenEncoder(ctx, encCodec, params)
	require.NoError(t, err)
	defer enc.Close(ctx)
	require.Equal(t, 4, enc.FrameSize())

	require.ErrorIs(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Mono, 0, 5, 0.1)), types.ErrInvalidData)
	require.NoError(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Mono, 0, 4, 0.1)))
	require.NoError(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Mono, 4, 3, 0.1)))
	require.ErrorIs(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Mono, 7, 4, 0.1)), types.ErrInvalidData)
}

func TestEncoderRejectsMismatchedFrames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	enc, err := codec.NewEncoder(ctx, newRegistry(t, Config{}), "",
		codec.NewAudioParameters(IDS16LE, types.SampleFormatS16, 48000, channellayout.Stereo))
	require.NoError(t, err)
	defer enc.Close(ctx)

	require.ErrorIs(t, enc.SendFrame(ctx, fltpFrame(t, channellayout.Stereo, 0, 4, 0.1)), types.ErrInvalidData)
	mono, err := frame.NewAudio(types.SampleFormatS16, 48000, channellayout.Mono, 4)
	require.NoError(t, err)
	require.ErrorIs(t, enc.SendFrame(ctx, mono), types.ErrInvalidData)
	require.ErrorIs(t, enc.SendFrame(ctx, frame.New()), types.ErrInvalidData)

	_, err = codec.NewEncoder(ctx, newRegistry(t, Config{}), "",
		codec.NewAudioParameters(IDS16LE, types.SampleFormatFLT, 48000, channellayout.Stereo))
	require.ErrorIs(t, err, types.ErrUnsupported{})
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := newRegistry(t, Config{})

	for _, id := range IDs() {
		id := id
		t.Run(string(id), func(t *testing.T) {
			t.Parallel()
			sampleFormat, ok := SampleFormat(id)
			require.True(t, ok)

			enc, err := codec.NewEncoder(ctx, registry, "",
				codec.NewAudioParameters(id, sampleFormat, 48000, channellayout.Stereo))
			require.NoError(t, err)
			defer enc.Close(ctx)
			dec, err := codec.NewDecoder(ctx, registry,
				codec.NewAudioParameters(id, types.SampleFormatNone, 48000, channellayout.Stereo))
			require.NoError(t, err)
			defer dec.Close(ctx)

			in, err := frame.NewAudio(sampleFormat, 48000, channellayout.Stereo, 3)
			require.NoError(t, err)
			in.Pts = 96
			require.NoError(t, audio.FillSamples(in, 0, []float64{0.5, -0.5, 0}))
			require.NoError(t, audio.FillSamples(in, 1, []float64{0.25, -0.25, 0.75}))

			require.NoError(t, enc.SendFrame(ctx, in))
			pkt := packet.New()
			require.NoError(t, enc.ReceivePacket(ctx, pkt))
			require.NoError(t, dec.SendPacket(ctx, pkt))

			out := frame.New()
			require.NoError(t, dec.ReceiveFrame(ctx, out))
			require.Equal(t, int64(96), out.Pts)
			for ch := range 2 {
				want, err := audio.ExtractSamples(in, ch)
				require.NoError(t, err)
				got, err := audio.ExtractSamples(out, ch)
				require.NoError(t, err)
				require.InDeltaSlice(t, want, got, 1e-9)
			}
		})
	}
}

// TestConservation checks that whatever way send and receive calls are
// interleaved, every sent sample comes out exactly once and in order.
func TestConservation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		dec, err := codec.NewDecoder(ctx, newRegistry(t, Config{QueueDepth: 1 + rng.Intn(3)}),
			codec.NewAudioParameters(IDS16LE, types.SampleFormatNone, 8000, channellayout.Mono))
		require.NoError(t, err)

		var (
			sentSamples     int
			receivedSamples int
			nextPts         int64
			lastPts         = int64(-1)
		)
		f := frame.New()
		receive := func() error {
			err := dec.ReceiveFrame(ctx, f)
			if err == nil {
				require.Greater(t, f.Pts, lastPts)
				lastPts = f.Pts
				receivedSamples += f.NbSamples
			}
			return err
		}

		for packets := 0; packets < 50; {
			if rng.Intn(2) == 0 {
				nbSamples := 1 + rng.Intn(5)
				pkt := s16Packet(nextPts, make([]int16, nbSamples)...)
				err := dec.SendPacket(ctx, pkt)
				if err != nil {
					require.ErrorIs(t, err, types.ErrBusy)
					continue
				}
				sentSamples += nbSamples
				nextPts += int64(nbSamples)
				packets++
				continue
			}
			if err := receive(); err != nil {
				require.ErrorIs(t, err, types.ErrEmpty)
			}
		}
		require.NoError(t, dec.SendEOF(ctx))
		for {
			err := receive()
			if err != nil {
				require.ErrorIs(t, err, types.ErrEOF)
				break
			}
		}
		require.Equal(t, sentSamples, receivedSamples, "seed %d", seed)
		require.NoError(t, dec.Close(ctx))
	}
}
