package audio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/types"
)

func TestFillExtractRoundTrip(t *testing.T) {
	t.Parallel()

	samples := []float64{0, 0.5, -0.5, 0.25}
	for _, format := range []types.SampleFormat{
		types.SampleFormatU8, types.SampleFormatU8P,
		types.SampleFormatS16, types.SampleFormatS16P,
		types.SampleFormatS32, types.SampleFormatS32P,
		types.SampleFormatS64, types.SampleFormatS64P,
		types.SampleFormatFLT, types.SampleFormatFLTP,
		types.SampleFormatDBL, types.SampleFormatDBLP,
	} {
		format := format
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()

			f, err := frame.NewAudio(format, 48000, channellayout.Stereo, len(samples))
			require.NoError(t, err)
			require.NoError(t, FillSamples(f, 1, samples))

			got, err := ExtractSamples(f, 1)
			require.NoError(t, err)
			require.InDeltaSlice(t, samples, got, 0.01)

			silent, err := ExtractSamples(f, 0)
			require.NoError(t, err)
			if format.Packed() != types.SampleFormatU8 {
				require.Equal(t, make([]float64, len(samples)), silent)
			}
		})
	}
}

func TestChannelOutOfRange(t *testing.T) {
	t.Parallel()

	f, err := frame.NewAudio(types.SampleFormatS16, 48000, channellayout.Mono, 4)
	require.NoError(t, err)
	_, err = ExtractSamples(f, 1)
	require.Error(t, err)
	require.Error(t, FillSamples(f, -1, nil))
}

func TestIntegerRoundTripIsExact(t *testing.T) {
	t.Parallel()

	f, err := frame.NewAudio(types.SampleFormatS16, 48000, channellayout.Mono, 4)
	require.NoError(t, err)
	in := []int16{-32768, -1, 16384, 32767}
	for i, v := range in {
		f.Data(0)[2*i] = byte(uint16(v))
		f.Data(0)[2*i+1] = byte(uint16(v) >> 8)
	}
	samples, err := ExtractSamples(f, 0)
	require.NoError(t, err)

	out, err := frame.NewAudio(types.SampleFormatS16, 48000, channellayout.Mono, 4)
	require.NoError(t, err)
	require.NoError(t, FillSamples(out, 0, samples))
	require.Equal(t, f.Data(0), out.Data(0))
}
