// Package avrecode re-encodes audio streams: demuxed packets are decoded,
// optionally filtered (format conversion, channel remixing, resampling,
// fixed frame sizes) and encoded again.
//
// Init returns the process-wide Runtime holding the codec registry; the
// building blocks live in the subpackages.
package avrecode

import (
	"context"
	"slices"
	"strings"

	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/xsync"

	"github.com/xaionaro-go/avrecode/codec"
	"github.com/xaionaro-go/avrecode/codec/libav"
	"github.com/xaionaro-go/avrecode/codec/pcm"
	"github.com/xaionaro-go/avrecode/filter"
	filterlibav "github.com/xaionaro-go/avrecode/filter/libav"
	"github.com/xaionaro-go/avrecode/format"
	formatlibav "github.com/xaionaro-go/avrecode/format/libav"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/pipeline"
)

type Runtime struct {
	Config   Config
	Registry *codec.Registry

	// FilterFactory is libavfilter unless libav is disabled.
	FilterFactory filter.Factory
}

var (
	globalRuntimeLocker xsync.Mutex
	globalRuntime       *Runtime
)

// Init initializes the runtime on the first call and returns the same
// value on every call; the options of later calls are ignored.
func Init(ctx context.Context, opts ...Option) *Runtime {
	return xsync.DoR1(ctx, &globalRuntimeLocker, func() *Runtime {
		if globalRuntime != nil {
			if len(opts) > 0 {
				logger.Debugf(ctx, "the runtime is already initialized, ignoring %d options", len(opts))
			}
			return globalRuntime
		}

		cfg := Options(opts).config()
		r := &Runtime{
			Config:        cfg,
			Registry:      codec.NewRegistry(),
			FilterFactory: filter.BuiltinFactory{},
		}
		pcm.Register(ctx, r.Registry, cfg.PCM)
		if !cfg.DisableLibav {
			libav.Register(ctx, r.Registry)
			libav.InstallLogBridge(ctx)
			r.FilterFactory = filterlibav.Factory{}
		}
		logger.Debugf(ctx, "initialized the runtime: %#+v", cfg)
		globalRuntime = r
		return r
	})
}

// Codecs lists the registered codecs followed by the ones of libavcodec,
// sorted by name.
func (r *Runtime) Codecs(ctx context.Context) []*codec.Codec {
	result := r.Registry.Codecs(ctx)
	if !r.Config.DisableLibav {
		result = append(result, libav.Codecs()...)
	}
	slices.SortStableFunc(result, func(a, b *codec.Codec) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		switch {
		case a.IsEncoder == b.IsEncoder:
			return 0
		case a.IsEncoder:
			return 1
		default:
			return -1
		}
	})
	return result
}

// OpenInput opens url through libavformat.
func (r *Runtime) OpenInput(
	ctx context.Context,
	url string,
	authKey secret.String,
	cfg formatlibav.DemuxerConfig,
) (*formatlibav.Demuxer, error) {
	return formatlibav.NewDemuxer(ctx, url, authKey, cfg)
}

// OpenOutput opens url through libavformat.
func (r *Runtime) OpenOutput(
	ctx context.Context,
	url string,
	authKey secret.String,
	cfg formatlibav.MuxerConfig,
) (*formatlibav.Muxer, error) {
	return formatlibav.NewMuxer(ctx, url, authKey, cfg)
}

// NewTranscoder is pipeline.NewTranscoder with the registry of r; the
// filter factory of r is used unless cfg sets one.
func (r *Runtime) NewTranscoder(
	ctx context.Context,
	demuxer format.Demuxer,
	muxer format.Muxer,
	cfg pipeline.Config,
) (*pipeline.Transcoder, error) {
	if cfg.FilterFactory == nil {
		cfg.FilterFactory = r.FilterFactory
	}
	return pipeline.NewTranscoder(ctx, r.Registry, demuxer, muxer, cfg)
}
