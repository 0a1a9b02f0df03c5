package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/channellayout"
)

func TestRemixMatrix(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		in   channellayout.Layout
		out  channellayout.Layout
		want [][]float64
	}{
		{
			name: "identity",
			in:   channellayout.Stereo,
			out:  channellayout.Stereo,
			want: [][]float64{{1, 0}, {0, 1}},
		},
		{
			name: "stereo_to_mono",
			in:   channellayout.Stereo,
			out:  channellayout.Mono,
			want: [][]float64{{0.5, 0.5}},
		},
		{
			name: "mono_to_stereo",
			in:   channellayout.Mono,
			out:  channellayout.Stereo,
			want: [][]float64{{1}, {1}},
		},
		{
			name: "by_position",
			in:   channellayout.Unspecified(3),
			out:  channellayout.Stereo,
			want: [][]float64{{1, 0, 0}, {0, 1, 0}},
		},
		{
			name: "quad_side_to_back",
			in:   channellayout.Native(channellayout.ChannelFrontLeft, channellayout.ChannelFrontRight, channellayout.ChannelSideLeft, channellayout.ChannelSideRight),
			out:  channellayout.Quad,
			want: [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := remixMatrix(tc.in, tc.out)
			require.Len(t, m, len(tc.want))
			for idx := range m {
				require.InDeltaSlice(t, tc.want[idx], m[idx], 1e-9)
			}
		})
	}

	require.True(t, isIdentity(remixMatrix(channellayout.Layout5_1, channellayout.Layout5_1)))
	require.False(t, isIdentity(remixMatrix(channellayout.Stereo, channellayout.Mono)))
}

func TestLinearResamplerDoesNotDrift(t *testing.T) {
	t.Parallel()

	r := newLinearResampler(1, 44100, 48000)
	var produced int
	for i := 0; i < 1000; i++ {
		c := r.push(&chunk{samples: [][]float64{constant(441, 0)}, pts: int64(i * 441)})
		if c != nil {
			produced += c.nbSamples()
		}
	}
	if c := r.flush(); c != nil {
		produced += c.nbSamples()
	}
	require.Equal(t, 480000, produced)
}
