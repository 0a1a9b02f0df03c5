package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyOnWrite(t *testing.T) {
	t.Parallel()

	a := FromBytes([]byte{1, 2, 3})
	require.True(t, a.IsWritable())

	b := a.Ref()
	require.Equal(t, 2, a.RefCount())
	require.False(t, a.IsWritable())
	require.False(t, b.IsWritable())

	b.MakeWritable()
	require.True(t, b.IsWritable())
	require.True(t, a.IsWritable())
	b.Bytes()[0] = 42
	require.Equal(t, []byte{1, 2, 3}, a.Bytes())
	require.Equal(t, []byte{42, 2, 3}, b.Bytes())

	c := a.Ref()
	c.Unref()
	require.Equal(t, 0, c.RefCount())
	require.Nil(t, c.Bytes())
	require.Equal(t, 1, a.RefCount())
}

func TestNilBuffer(t *testing.T) {
	t.Parallel()

	var b *Buffer
	require.Nil(t, b.Ref())
	require.Equal(t, 0, b.Len())
	require.False(t, b.IsWritable())
	b.MakeWritable()
	b.Unref()
}
