package codec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/types"
)

func TestRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dec := dummyDecoderCodec(&dummyDecoder{})
	enc := dummyEncoderCodec(&dummyEncoder{})
	enc.Name = "dummyenc"

	r := NewRegistry()
	r.Register(ctx, enc, dec)

	c, err := r.FindDecoder(ctx, "dummy")
	require.NoError(t, err)
	require.Same(t, dec, c)
	c, err = r.FindEncoder(ctx, "dummy")
	require.NoError(t, err)
	require.Same(t, enc, c)
	c, err = r.FindEncoderByName(ctx, "dummyenc")
	require.NoError(t, err)
	require.Same(t, enc, c)

	_, err = r.FindDecoderByName(ctx, "dummyenc")
	require.ErrorIs(t, err, types.ErrCodecNotFound{})
	_, err = r.FindEncoder(ctx, "")
	require.ErrorIs(t, err, types.ErrCodecNotFound{})

	codecs := r.Codecs(ctx)
	require.Len(t, codecs, 2)
	require.Same(t, dec, codecs[0])
}

func TestRegistryResolver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	calls := 0
	r := NewRegistry()
	r.AddResolver(ctx, ResolverFunc(func(ctx context.Context, name string, id ID, isEncoder bool) *Codec {
		calls++
		if isEncoder || id != "lazy" {
			return nil
		}
		c := dummyDecoderCodec(&dummyDecoder{})
		c.ID = "lazy"
		return c
	}))

	c, err := r.FindDecoder(ctx, "lazy")
	require.NoError(t, err)
	require.Equal(t, ID("lazy"), c.ID)
	c2, err := r.FindDecoder(ctx, "lazy")
	require.NoError(t, err)
	require.Same(t, c, c2)
	require.Equal(t, 1, calls)

	_, err = r.FindEncoder(ctx, "lazy")
	require.ErrorIs(t, err, types.ErrCodecNotFound{})
	require.Equal(t, 2, calls)
}
