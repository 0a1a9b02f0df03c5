package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/types"
)

func TestEmptyFrame(t *testing.T) {
	t.Parallel()

	f := New()
	require.True(t, f.IsEmpty())
	require.Equal(t, 0, f.NbPlanes())
	require.Equal(t, types.NoPTSValue, f.BestEffortTimestamp)
	require.True(t, (*Frame)(nil).IsEmpty())
}

func TestAllocAudio(t *testing.T) {
	t.Parallel()

	f, err := NewAudio(types.SampleFormatFLTP, 48000, channellayout.Layout5_1, 1024)
	require.NoError(t, err)
	require.False(t, f.IsEmpty())
	require.Equal(t, 6, f.NbPlanes())
	require.Len(t, f.Data(5), 4096)
	require.Equal(t, types.MediaTypeAudio, f.MediaType)
	require.Equal(t, types.NewRational(1, 48000), f.TimeBase)

	f, err = NewAudio(types.SampleFormatS16, 44100, channellayout.Stereo, 10)
	require.NoError(t, err)
	require.Equal(t, 1, f.NbPlanes())
	require.Len(t, f.Data(0), 40)

	_, err = NewAudio(types.SampleFormatS16, 44100, channellayout.Layout{}, 10)
	require.ErrorIs(t, err, types.ErrInvalidData)

	layout16, err := channellayout.FromName("hexadecagonal")
	require.NoError(t, err)
	_, err = NewAudio(types.SampleFormatFLTP, 48000, layout16, 10)
	require.ErrorIs(t, err, types.ErrInvalidData)
}

func TestAllocVideo(t *testing.T) {
	t.Parallel()

	f, err := NewVideo(types.PixelFormatYUV420P, 5, 3)
	require.NoError(t, err)
	require.Equal(t, 3, f.NbPlanes())
	require.Len(t, f.Data(0), 15)
	require.Len(t, f.Data(1), 6)
	require.Equal(t, 3, f.Linesize[2])
}

func TestRefAndMakeWritable(t *testing.T) {
	t.Parallel()

	f, err := NewAudio(types.SampleFormatU8, 8000, channellayout.Mono, 4)
	require.NoError(t, err)
	f.Pts = 10
	f.Metadata.Set("title", "x")
	f.SetKey(true)
	f.AddSideData(SideDataTypeSkipSamples, []byte{1})

	c := f.Clone()
	require.False(t, f.IsWritable())
	require.Equal(t, int64(10), c.Pts)
	require.True(t, c.IsKey())
	v, ok := c.Metadata.Get("title")
	require.True(t, ok)
	require.Equal(t, "x", v)

	c.MakeWritable()
	c.Data(0)[0] = 200
	require.Equal(t, byte(0), f.Data(0)[0])
	require.True(t, f.IsWritable())

	d := f.DeepCopy()
	require.True(t, d.IsWritable())
	require.True(t, f.IsWritable())
	require.True(t, d.ChannelLayout.Equal(channellayout.Mono))

	c.Unref()
	require.True(t, c.IsEmpty())
	require.Equal(t, types.NoPTSValue, c.Pts)
}

func TestCopyPropsKeepsData(t *testing.T) {
	t.Parallel()

	src, err := NewAudio(types.SampleFormatS16, 48000, channellayout.Stereo, 2)
	require.NoError(t, err)
	src.Pts = 99

	dst, err := NewAudio(types.SampleFormatS16, 48000, channellayout.Stereo, 2)
	require.NoError(t, err)
	plane := dst.Plane(0)
	dst.CopyProps(src)
	require.Equal(t, int64(99), dst.Pts)
	require.Same(t, plane, dst.Plane(0))
}
