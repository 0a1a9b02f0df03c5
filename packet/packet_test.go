package packet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/types"
)

func TestNewPacket(t *testing.T) {
	t.Parallel()

	p := New()
	require.True(t, p.IsFlush())
	require.Equal(t, types.NoPTSValue, p.Pts)
	require.Equal(t, types.NoPTSValue, p.Dts)
	require.Equal(t, int64(-1), p.Pos)
	require.True(t, (*Packet)(nil).IsFlush())
}

func TestRescaleTs(t *testing.T) {
	t.Parallel()

	p := FromBytes([]byte{1})
	p.Pts, p.Dts, p.Duration = 1000, types.NoPTSValue, 20
	p.RescaleTs(types.NewRational(1, 1000), types.TimeBaseMicroseconds)
	require.Equal(t, int64(1000000), p.Pts)
	require.Equal(t, types.NoPTSValue, p.Dts)
	require.Equal(t, int64(20000), p.Duration)
}

func TestCloneSharesPayload(t *testing.T) {
	t.Parallel()

	p := FromBytes([]byte{1, 2, 3})
	p.Pts = 7
	p.Flags = FlagKey
	p.AddSideData(SideDataTypeSkipSamples, []byte{0, 0, 0, 1})

	c := p.Clone()
	require.Equal(t, int64(7), c.Pts)
	require.True(t, c.IsKey())
	require.False(t, p.IsWritable())
	require.Equal(t, p.Data(), c.Data())

	c.MakeWritable()
	c.Data()[0] = 9
	require.Equal(t, byte(1), p.Data()[0])
	require.True(t, p.IsWritable())

	sd, ok := c.GetSideData(SideDataTypeSkipSamples)
	require.True(t, ok)
	require.Equal(t, []byte{0, 0, 0, 1}, sd)
	c.RemoveSideData(SideDataTypeSkipSamples)
	_, ok = c.GetSideData(SideDataTypeSkipSamples)
	require.False(t, ok)
	_, ok = p.GetSideData(SideDataTypeSkipSamples)
	require.True(t, ok)

	c.Unref()
	require.True(t, c.IsFlush())
	require.Equal(t, int64(-1), c.Pos)
}

func TestPool(t *testing.T) {
	t.Parallel()

	src := FromBytes([]byte{5})
	dst := CloneAsWritable(src)
	require.True(t, dst.IsWritable())
	require.Equal(t, []byte{5}, dst.Data())
	Pool.Put(dst)
}
