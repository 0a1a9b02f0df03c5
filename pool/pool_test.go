package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type item struct {
	value int
}

func TestPoolResetsOnPut(t *testing.T) {
	var resets int
	p := NewPool(
		func() *item { return &item{} },
		func(i *item) { resets++; i.value = 0 },
		nil,
	)

	v := p.Get()
	v.value = 42
	p.Put(v, nil)
	require.Equal(t, 1, resets)
	require.Equal(t, 0, v.value)

	allocated, gets := p.Stats()
	require.Equal(t, uint64(1), allocated)
	require.Equal(t, uint64(1), gets)
}
