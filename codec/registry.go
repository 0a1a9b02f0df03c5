// registry.go implements the lookup of coder implementations.

package codec

import (
	"context"
	"sort"

	"github.com/xaionaro-go/avrecode/types"
	"github.com/xaionaro-go/xsync"
)

// Resolver discovers codecs lazily, e.g. by asking a native library.
// It returns nil if it does not know the codec.
type Resolver interface {
	ResolveCodec(ctx context.Context, name string, id ID, isEncoder bool) *Codec
}

type ResolverFunc func(ctx context.Context, name string, id ID, isEncoder bool) *Codec

func (fn ResolverFunc) ResolveCodec(ctx context.Context, name string, id ID, isEncoder bool) *Codec {
	return fn(ctx, name, id, isEncoder)
}

type Registry struct {
	locker    xsync.Mutex
	codecs    []*Codec
	resolvers []Resolver
}

var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds codecs; on lookup the earliest registered match wins.
func (r *Registry) Register(ctx context.Context, codecs ...*Codec) {
	r.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		r.codecs = append(r.codecs, codecs...)
	})
}

func (r *Registry) AddResolver(ctx context.Context, resolver Resolver) {
	r.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		r.resolvers = append(r.resolvers, resolver)
	})
}

// Codecs returns the registered (and already resolved) codecs sorted by name.
func (r *Registry) Codecs(ctx context.Context) []*Codec {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &r.locker, func() []*Codec {
		result := append([]*Codec(nil), r.codecs...)
		sort.SliceStable(result, func(i, j int) bool {
			if result[i].Name != result[j].Name {
				return result[i].Name < result[j].Name
			}
			return !result[i].IsEncoder && result[j].IsEncoder
		})
		return result
	})
}

func (r *Registry) FindDecoder(ctx context.Context, id ID) (*Codec, error) {
	return r.find(ctx, "", id, false)
}

func (r *Registry) FindEncoder(ctx context.Context, id ID) (*Codec, error) {
	return r.find(ctx, "", id, true)
}

func (r *Registry) FindDecoderByName(ctx context.Context, name string) (*Codec, error) {
	return r.find(ctx, name, "", false)
}

func (r *Registry) FindEncoderByName(ctx context.Context, name string) (*Codec, error) {
	return r.find(ctx, name, "", true)
}

func (r *Registry) find(
	ctx context.Context,
	name string,
	id ID,
	isEncoder bool,
) (*Codec, error) {
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &r.locker, func() (*Codec, error) {
		if name == "" && id == "" {
			return nil, types.ErrCodecNotFound{IsEncoder: isEncoder}
		}
		for _, c := range r.codecs {
			if c.IsEncoder != isEncoder {
				continue
			}
			if (name != "" && c.Name == name) || (name == "" && c.ID == id) {
				return c, nil
			}
		}
		for _, resolver := range r.resolvers {
			c := resolver.ResolveCodec(ctx, name, id, isEncoder)
			if c == nil {
				continue
			}
			r.codecs = append(r.codecs, c)
			return c, nil
		}
		return nil, types.ErrCodecNotFound{Name: name, ID: string(id), IsEncoder: isEncoder}
	})
}
