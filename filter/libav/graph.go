// Package libav implements filter.Node over a libavfilter graph:
// abuffer -> <description> -> aformat [-> asetnsamples] -> abuffersink.
package libav

import (
	"context"
	"fmt"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/xsync"

	codeclibav "github.com/xaionaro-go/avrecode/codec/libav"
	"github.com/xaionaro-go/avrecode/filter"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/types"
)

type Factory struct{}

var _ filter.Factory = Factory{}

func (Factory) NewNode(
	ctx context.Context,
	description string,
	cfg filter.Config,
) (filter.Node, error) {
	return New(ctx, description, cfg)
}

type Graph struct {
	locker      xsync.Mutex
	description string
	closer      *astikit.Closer
	filterGraph *astiav.FilterGraph
	srcCtx      *astiav.BuffersrcFilterContext
	sinkCtx     *astiav.BuffersinkFilterContext
	avFrame     *astiav.Frame
	inFormat    filter.AudioFormat
	inTimeBase  types.Rational
	outFormat   filter.AudioFormat
	outTimeBase types.Rational
	flushed     bool
	closed      bool
}

var _ filter.Node = (*Graph)(nil)

// New builds and configures the graph. The description is in the
// libavfilter syntax, which the descriptions of filter.ParseDescription
// are a subset of.
func New(
	ctx context.Context,
	description string,
	cfg filter.Config,
) (_ *Graph, _err error) {
	logger.Debugf(ctx, "libav.New(ctx, '%s', %#+v)", description, cfg)
	defer func() { logger.Debugf(ctx, "/libav.New(ctx, '%s'): %v", description, _err) }()

	cfg, err := cfg.WithDefaults()
	if err != nil {
		return nil, err
	}

	g := &Graph{
		description: description,
		closer:      astikit.NewCloser(),
		inFormat: filter.AudioFormat{
			SampleFormat:  cfg.SampleFormat,
			SampleRate:    cfg.SampleRate,
			ChannelLayout: cfg.ChannelLayout.Clone(),
		},
		inTimeBase: cfg.TimeBase,
	}
	if err := g.build(ctx, cfg); err != nil {
		if err := g.closer.Close(); err != nil {
			logger.Errorf(ctx, "unable to release the filter graph: %v", err)
		}
		return nil, err
	}
	return g, nil
}

// graphContent is the chain between abuffer and abuffersink.
func graphContent(description string, cfg filter.Config) (string, error) {
	var parts []string
	if description = strings.TrimSpace(description); description != "" {
		parts = append(parts, description)
	}

	var formatArgs []string
	if len(cfg.SampleFormats) > 0 {
		formatArgs = append(formatArgs, "sample_fmts="+codeclibav.SampleFormatToAstiav(cfg.SampleFormats[0]).Name())
	}
	if len(cfg.SampleRates) > 0 {
		formatArgs = append(formatArgs, fmt.Sprintf("sample_rates=%d", cfg.SampleRates[0]))
	}
	if len(cfg.ChannelLayouts) > 0 {
		layout, err := codeclibav.ChannelLayoutToAstiav(cfg.ChannelLayouts[0])
		if err != nil {
			return "", err
		}
		formatArgs = append(formatArgs, "channel_layouts="+layout.String())
	}
	if len(formatArgs) > 0 {
		parts = append(parts, "aformat="+strings.Join(formatArgs, ":"))
	}

	if cfg.FrameSize > 0 {
		// p=0: the last frame is not padded with silence
		parts = append(parts, fmt.Sprintf("asetnsamples=n=%d:p=0", cfg.FrameSize))
	}
	if len(parts) == 0 {
		parts = append(parts, "anull")
	}
	return strings.Join(parts, ","), nil
}

func (g *Graph) build(ctx context.Context, cfg filter.Config) error {
	content, err := graphContent(g.description, cfg)
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "filter graph content: '%s'", content)

	g.filterGraph = astiav.AllocFilterGraph()
	if g.filterGraph == nil {
		return types.ErrIO{Err: fmt.Errorf("unable to allocate a filter graph")}
	}
	g.closer.Add(g.filterGraph.Free)

	srcFilter := astiav.FindFilterByName("abuffer")
	sinkFilter := astiav.FindFilterByName("abuffersink")
	if srcFilter == nil || sinkFilter == nil {
		return types.ErrIO{Err: fmt.Errorf("unable to find the abuffer or abuffersink filters")}
	}

	g.srcCtx, err = g.filterGraph.NewBuffersrcFilterContext(srcFilter, "in")
	if err != nil {
		return fmt.Errorf("unable to create the abuffer context: %w", err)
	}
	g.sinkCtx, err = g.filterGraph.NewBuffersinkFilterContext(sinkFilter, "out")
	if err != nil {
		return fmt.Errorf("unable to create the abuffersink context: %w", err)
	}

	layout, err := codeclibav.ChannelLayoutToAstiav(g.inFormat.ChannelLayout)
	if err != nil {
		return err
	}
	params := astiav.AllocBuffersrcFilterContextParameters()
	defer params.Free()
	params.SetChannelLayout(layout)
	params.SetSampleFormat(codeclibav.SampleFormatToAstiav(g.inFormat.SampleFormat))
	params.SetSampleRate(g.inFormat.SampleRate)
	params.SetTimeBase(codeclibav.RationalToAstiav(g.inTimeBase))
	if err := g.srcCtx.SetParameters(params); err != nil {
		return fmt.Errorf("unable to set the abuffer parameters: %w", err)
	}
	if err := g.srcCtx.Initialize(nil); err != nil {
		return fmt.Errorf("unable to initialize the abuffer: %w", err)
	}

	outputs := astiav.AllocFilterInOut()
	defer outputs.Free()
	outputs.SetName("in")
	outputs.SetFilterContext(g.srcCtx.FilterContext())
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs := astiav.AllocFilterInOut()
	defer inputs.Free()
	inputs.SetName("out")
	inputs.SetFilterContext(g.sinkCtx.FilterContext())
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	if err := g.filterGraph.Parse(content, inputs, outputs); err != nil {
		return fmt.Errorf("%w: unable to parse the filter graph '%s': %w", types.ErrInvalidData, content, err)
	}
	if err := g.filterGraph.Configure(); err != nil {
		return fmt.Errorf("unable to configure the filter graph '%s': %w", content, codeclibav.ConvertError(err))
	}

	g.outFormat = filter.AudioFormat{
		SampleFormat:  codeclibav.SampleFormatFromAstiav(g.sinkCtx.SampleFormat()),
		SampleRate:    g.sinkCtx.SampleRate(),
		ChannelLayout: codeclibav.ChannelLayoutFromAstiav(g.sinkCtx.ChannelLayout()),
	}
	g.outTimeBase = codeclibav.RationalFromAstiav(g.sinkCtx.TimeBase())
	if !g.outTimeBase.IsValid() || g.outTimeBase.IsZero() {
		g.outTimeBase = g.outFormat.TimeBase()
	}

	g.avFrame = astiav.AllocFrame()
	g.closer.Add(g.avFrame.Free)
	return nil
}

func (g *Graph) String() string {
	if g.description == "" {
		return "libav(anull)"
	}
	return fmt.Sprintf("libav(%s)", g.description)
}

func (g *Graph) OutputFormat(ctx context.Context) filter.AudioFormat {
	return g.outFormat
}

// Add pushes a copy of f into the abuffer.
func (g *Graph) Add(ctx context.Context, f *frame.Frame) (_err error) {
	logger.Tracef(ctx, "Add")
	defer func() { logger.Tracef(ctx, "/Add: %v", _err) }()
	return xsync.DoA2R1(ctx, &g.locker, g.add, ctx, f)
}

func (g *Graph) add(ctx context.Context, f *frame.Frame) error {
	if g.flushed || g.closed {
		return types.ErrEOF
	}
	if f.IsEmpty() {
		return fmt.Errorf("%w: an empty frame", types.ErrInvalidData)
	}
	if f.SampleFormat != g.inFormat.SampleFormat ||
		f.SampleRate != g.inFormat.SampleRate ||
		f.ChannelLayout.Channels() != g.inFormat.ChannelLayout.Channels() {
		return fmt.Errorf(
			"%w: the frame format %s:%d:%s differs from the configured %s",
			types.ErrInvalidData, f.SampleFormat, f.SampleRate, f.ChannelLayout, g.inFormat,
		)
	}

	if err := codeclibav.FrameToAstiav(f, g.avFrame); err != nil {
		return err
	}
	defer g.avFrame.Unref()
	if f.Pts != types.NoPTSValue && f.TimeBase.IsValid() && !f.TimeBase.IsZero() {
		g.avFrame.SetPts(types.Rescale(f.Pts, f.TimeBase, g.inTimeBase))
	}
	err := g.srcCtx.AddFrame(g.avFrame, astiav.NewBuffersrcFlags(astiav.BuffersrcFlagKeepRef))
	return codeclibav.ConvertError(err)
}

// Flush signals the end of the input to the abuffer; calling it again is
// a no-op.
func (g *Graph) Flush(ctx context.Context) error {
	logger.Debugf(ctx, "libav filter source flush")
	return xsync.DoR1(ctx, &g.locker, func() error {
		if g.flushed || g.closed {
			return nil
		}
		g.flushed = true
		err := g.srcCtx.AddFrame(nil, astiav.NewBuffersrcFlags(astiav.BuffersrcFlagKeepRef))
		if err != nil {
			return fmt.Errorf("unable to flush the abuffer: %w", codeclibav.ConvertError(err))
		}
		return nil
	})
}

// Frame pulls the next frame out of the abuffersink.
func (g *Graph) Frame(ctx context.Context, out *frame.Frame) (_err error) {
	logger.Tracef(ctx, "Frame")
	defer func() { logger.Tracef(ctx, "/Frame: %v", _err) }()
	return xsync.DoA2R1(ctx, &g.locker, g.frame, ctx, out)
}

func (g *Graph) frame(ctx context.Context, out *frame.Frame) error {
	if g.closed {
		return types.ErrEOF
	}
	if err := g.sinkCtx.GetFrame(g.avFrame, astiav.NewBuffersinkFlags()); err != nil {
		return codeclibav.ConvertReceiveError(err)
	}
	defer g.avFrame.Unref()
	if err := codeclibav.FrameFromAstiav(g.avFrame, types.MediaTypeAudio, out); err != nil {
		return err
	}
	out.TimeBase = g.outTimeBase
	if out.Duration <= 0 {
		out.Duration = types.Rescale(int64(out.NbSamples), g.outFormat.TimeBase(), g.outTimeBase)
	}
	return nil
}

func (g *Graph) Close(ctx context.Context) error {
	logger.Debugf(ctx, "closing %s", g)
	return xsync.DoR1(ctx, &g.locker, func() error {
		if g.closed {
			return nil
		}
		g.closed = true
		return g.closer.Close()
	})
}
