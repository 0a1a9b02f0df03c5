package libav

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/secret"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.wav")

	m, err := NewMuxer(ctx, path, secret.New(""), MuxerConfig{})
	require.NoError(t, err)
	s, err := m.AddStream(ctx)
	require.NoError(t, err)
	params := codec.NewAudioParameters("pcm_s16le", types.SampleFormatS16, 8000, channellayout.Mono)
	require.NoError(t, s.SetParameters(params))
	s.SetTimeBase(types.NewRational(1, 8000))
	require.NoError(t, m.WriteHeader(ctx))

	tb := s.TimeBase()
	for i := int64(0); i < 4; i++ {
		pkt := packet.FromBytes(make([]byte, 160))
		pkt.Pts = types.Rescale(i*80, types.NewRational(1, 8000), tb)
		pkt.Dts = pkt.Pts
		pkt.Duration = types.Rescale(80, types.NewRational(1, 8000), tb)
		pkt.Flags = packet.FlagKey
		require.NoError(t, m.WriteInterleaved(ctx, pkt))
	}
	require.NoError(t, m.WriteTrailer(ctx))
	require.NoError(t, m.Close(ctx))

	d, err := NewDemuxer(ctx, path, secret.New(""), DemuxerConfig{})
	require.NoError(t, err)
	defer d.Close(ctx)
	require.Len(t, d.Streams(), 1)
	in := d.Streams()[0]
	require.Equal(t, types.MediaTypeAudio, in.MediaType)
	require.Equal(t, codec.ID("pcm_s16le"), in.Parameters.CodecID)
	require.Equal(t, 8000, in.Parameters.SampleRate)
	require.Equal(t, 1, in.Parameters.ChannelLayout.Channels())

	var total int
	for {
		_, pkt, err := d.ReadPacket(ctx)
		if err != nil {
			require.ErrorIs(t, err, types.ErrEOF)
			break
		}
		total += pkt.Size()
	}
	require.Equal(t, 640, total)
}

func TestOpenMissingInput(t *testing.T) {
	t.Parallel()

	_, err := NewDemuxer(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), secret.New("?key"), DemuxerConfig{})
	require.ErrorIs(t, err, types.ErrIO{})
	require.NotContains(t, err.Error(), "?key")
}
