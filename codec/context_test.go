package codec

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

func audioParams() *Parameters {
	p := NewAudioParameters("dummy", types.SampleFormatS16, 48000, channellayout.Stereo)
	p.TimeBase = types.NewRational(1, 48000)
	return p
}

func pktWithPts(pts int64) *packet.Packet {
	pkt := packet.FromBytes([]byte{0})
	pkt.Pts = pts
	return pkt
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	threaded := audioParams()
	threaded.ThreadType = ThreadTypeFrame
	negativeThreads := audioParams()
	negativeThreads.ThreadCount = -1

	for _, tc := range []struct {
		Name      string
		Codec     func(coder *dummyDecoder) *Codec
		Params    *Parameters
		ExpectErr error
		ExpectIO  bool
	}{
		{
			Name:      "nil_codec",
			Codec:     func(*dummyDecoder) *Codec { return nil },
			Params:    audioParams(),
			ExpectErr: types.ErrCodecNotFound{},
		},
		{
			Name: "encoder_as_decoder",
			Codec: func(*dummyDecoder) *Codec {
				return dummyEncoderCodec(&dummyEncoder{})
			},
			Params:    audioParams(),
			ExpectErr: types.ErrInvalidData,
		},
		{
			Name:      "unsupported_thread_type",
			Codec:     dummyDecoderCodec,
			Params:    threaded,
			ExpectErr: types.ErrUnsupported{},
		},
		{
			Name:      "negative_thread_count",
			Codec:     dummyDecoderCodec,
			Params:    negativeThreads,
			ExpectErr: types.ErrInvalidData,
		},
		{
			Name: "configure_fails",
			Codec: func(coder *dummyDecoder) *Codec {
				coder.ConfigureFn = func(context.Context, *Parameters) error {
					return types.ErrUnsupported{Property: "sample_rate", Value: "48000"}
				}
				return dummyDecoderCodec(coder)
			},
			Params:    audioParams(),
			ExpectErr: types.ErrUnsupported{},
		},
		{
			Name: "open_fails",
			Codec: func(coder *dummyDecoder) *Codec {
				coder.OpenFn = func(context.Context) error {
					return errors.New("out of memory")
				}
				return dummyDecoderCodec(coder)
			},
			Params:    audioParams(),
			ExpectErr: types.ErrIO{},
		},
	} {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			coder := &dummyDecoder{}
			d, err := OpenDecoder(ctx, tc.Codec(coder), tc.Params)
			require.Nil(t, d)
			require.ErrorIs(t, err, tc.ExpectErr)
			if coder.ConfigureFn != nil || coder.OpenFn != nil {
				require.Equal(t, 1, coder.closeCount)
			}
		})
	}
}

func TestOpenTwice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	d, err := OpenDecoder(ctx, dummyDecoderCodec(&dummyDecoder{}), audioParams())
	require.NoError(t, err)
	require.ErrorIs(t, d.Open(ctx, dummyDecoderCodec(&dummyDecoder{}), audioParams()), types.ErrInvalidData)
	require.Equal(t, StateOpen, d.State(ctx))
}

func TestNotOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	d := &Decoder{Context: NewContext(false)}
	require.Equal(t, StateUnopened, d.State(ctx))
	err := d.SendPacket(ctx, pktWithPts(0))
	require.ErrorIs(t, err, types.ErrInvalidData)
	var notOpen ErrNotOpen
	require.ErrorAs(t, err, &notOpen)
	require.Equal(t, StateUnopened, notOpen.State)
	require.ErrorIs(t, d.ReceiveFrame(ctx, frame.New()), types.ErrInvalidData)
	require.ErrorIs(t, d.SendEOF(ctx), types.ErrInvalidData)
	require.ErrorIs(t, d.Flush(ctx), types.ErrInvalidData)
	require.NoError(t, d.Close(ctx))
}

func TestEOFTerminality(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	coder := &dummyDecoder{}
	d, err := OpenDecoder(ctx, dummyDecoderCodec(coder), audioParams())
	require.NoError(t, err)

	require.NoError(t, d.SendPacket(ctx, pktWithPts(1)))
	require.NoError(t, d.SendEOF(ctx))
	require.NoError(t, d.SendEOF(ctx))
	require.Equal(t, StateDraining, d.State(ctx))
	require.ErrorIs(t, d.SendPacket(ctx, pktWithPts(2)), types.ErrEOF)

	f := frame.New()
	require.NoError(t, d.ReceiveFrame(ctx, f))
	require.Equal(t, int64(1), f.Pts)
	for range 5 {
		err := d.ReceiveFrame(ctx, f)
		require.ErrorIs(t, err, types.ErrEOF)
		require.ErrorIs(t, err, io.EOF)
	}
	require.Equal(t, StateFlushed, d.State(ctx))

	// a Flushed context never asks the coder again
	coder.pending = []int64{42}
	require.ErrorIs(t, d.ReceiveFrame(ctx, f), types.ErrEOF)

	require.NoError(t, d.Flush(ctx))
	require.Equal(t, StateOpen, d.State(ctx))
	require.Equal(t, 1, coder.flushCount)
	require.ErrorIs(t, d.ReceiveFrame(ctx, f), types.ErrEmpty)

	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))
	require.Equal(t, 1, coder.closeCount)
	require.Equal(t, StateClosed, d.State(ctx))
	require.ErrorIs(t, d.SendPacket(ctx, pktWithPts(3)), types.ErrInvalidData)
}

func TestBestEffortTimestamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	d, err := OpenDecoder(ctx, dummyDecoderCodec(&dummyDecoder{}), audioParams())
	require.NoError(t, err)
	defer d.Close(ctx)

	require.NoError(t, d.SendPacket(ctx, pktWithPts(7)))
	f := frame.New()
	require.NoError(t, d.ReceiveFrame(ctx, f))
	require.Equal(t, int64(7), f.BestEffortTimestamp)
	require.Equal(t, types.NewRational(1, 48000), f.TimeBase)

	require.NoError(t, d.SendPacket(ctx, pktWithPts(types.NoPTSValue)))
	require.NoError(t, d.ReceiveFrame(ctx, f))
	require.Equal(t, types.NoPTSValue, f.BestEffortTimestamp)
}

func TestSendRejectsSentinels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	d, err := OpenDecoder(ctx, dummyDecoderCodec(&dummyDecoder{}), audioParams())
	require.NoError(t, err)
	defer d.Close(ctx)
	require.ErrorIs(t, d.SendPacket(ctx, packet.New()), types.ErrInvalidData)
	require.ErrorIs(t, d.SendPacket(ctx, nil), types.ErrInvalidData)

	e, err := OpenEncoder(ctx, dummyEncoderCodec(&dummyEncoder{}), audioParams())
	require.NoError(t, err)
	defer e.Close(ctx)
	require.ErrorIs(t, e.SendFrame(ctx, frame.New()), types.ErrInvalidData)
	require.ErrorIs(t, e.SendFrame(ctx, nil), types.ErrInvalidData)
}

func TestEncoderFlush(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f, err := frame.NewAudio(types.SampleFormatS16, 48000, channellayout.Stereo, 4)
	require.NoError(t, err)
	f.Pts = 3

	e, err := OpenEncoder(ctx, dummyEncoderCodec(&dummyEncoder{}), audioParams())
	require.NoError(t, err)
	defer e.Close(ctx)
	require.NoError(t, e.SendFrame(ctx, f))
	require.ErrorIs(t, e.Flush(ctx), types.ErrUnsupported{})

	pkt := packet.New()
	require.NoError(t, e.ReceivePacket(ctx, pkt))
	require.Equal(t, int64(3), pkt.Pts)

	flushable := dummyEncoderCodec(&dummyEncoder{})
	flushable.Capabilities |= CapEncoderFlush
	e2, err := OpenEncoder(ctx, flushable, audioParams())
	require.NoError(t, err)
	defer e2.Close(ctx)
	require.NoError(t, e2.SendFrame(ctx, f))
	require.NoError(t, e2.Flush(ctx))
	require.ErrorIs(t, e2.ReceivePacket(ctx, pkt), types.ErrEmpty)

	stats := e2.Statistics()
	require.Equal(t, uint64(1), stats.Sent)
	require.Equal(t, uint64(1), stats.Flushes)
	require.Equal(t, uint64(1), stats.Empty)
}

func TestSendEOFFollowsOpenedDirection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	coder := &dualCoder{}
	c := &Codec{
		Name:      "dual",
		ID:        "dual",
		MediaType: types.MediaTypeAudio,
		NewCoder: func(ctx context.Context, c *Codec) (Coder, error) {
			return coder, nil
		},
	}
	d, err := OpenDecoder(ctx, c, audioParams())
	require.NoError(t, err)
	defer d.Close(ctx)

	require.NoError(t, d.SendPacket(ctx, pktWithPts(1)))
	require.NoError(t, d.SendEOF(ctx))
	require.Equal(t, StateDraining, d.State(ctx))
	require.Zero(t, coder.sendFrameCount)
	require.True(t, coder.eof)

	f := frame.New()
	require.NoError(t, d.ReceiveFrame(ctx, f))
	require.ErrorIs(t, d.ReceiveFrame(ctx, f), types.ErrEOF)
	require.Equal(t, StateFlushed, d.State(ctx))
}
