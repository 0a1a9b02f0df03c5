// Package filter implements the audio filter node sitting between a
// decoder and an encoder: frames are pushed into Graph.Source, flow
// through a chain of stages and are pulled out of Graph.Sink.
//
// The flow control follows codec.Context: Source.Add returns
// types.ErrBusy when the node holds too much, Sink.Frame returns
// types.ErrEmpty when more input is needed and types.ErrEOF once
// Source.Flush was called and everything was pulled.
package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaionaro-go/xsync"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/types"
)

const defaultQueueDepth = 16

type Config struct {
	// The format of the frames passed to Source.Add.
	SampleFormat  types.SampleFormat
	SampleRate    int
	ChannelLayout channellayout.Layout

	// TimeBase of the input timestamps; 1/SampleRate if unset.
	TimeBase types.Rational

	// The output is converted to the first acceptable value of each list;
	// an empty list keeps the format of the last stage.
	SampleFormats  []types.SampleFormat
	SampleRates    []int
	ChannelLayouts []channellayout.Layout

	// FrameSize forces every output frame but the last one to carry
	// exactly that many samples.
	FrameSize int

	// QueueDepth is how many frames Source.Add accepts before ErrBusy.
	QueueDepth int
}

// WithDefaults validates the input format of cfg and fills the unset
// values.
func (cfg Config) WithDefaults() (Config, error) {
	if !cfg.SampleFormat.IsValid() {
		return cfg, fmt.Errorf("%w: invalid input sample format %s", types.ErrInvalidData, cfg.SampleFormat)
	}
	if cfg.SampleRate <= 0 {
		return cfg, fmt.Errorf("%w: invalid input sample rate %d", types.ErrInvalidData, cfg.SampleRate)
	}
	if cfg.ChannelLayout.Channels() <= 0 {
		return cfg, fmt.Errorf("%w: the input channel layout is not set", types.ErrInvalidData)
	}
	if !cfg.TimeBase.IsValid() || cfg.TimeBase.IsZero() {
		cfg.TimeBase = types.NewRational(1, int32(cfg.SampleRate))
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if cfg.FrameSize < 0 {
		return cfg, fmt.Errorf("%w: negative frame size %d", types.ErrInvalidData, cfg.FrameSize)
	}
	return cfg, nil
}

type Graph struct {
	Source *Source
	Sink   *Sink

	locker        xsync.Mutex
	description   string
	config        Config
	stages        []Stage
	configured    bool
	inFormat      AudioFormat
	outFormat     AudioFormat
	input         []*frame.Frame
	output        []*chunk
	partial       *chunk
	nextPts       int64
	flushed       bool
	stagesFlushed bool
}

// Source is the input pad of a Graph.
type Source struct {
	graph *Graph
}

// Sink is the output pad of a Graph.
type Sink struct {
	graph *Graph
}

// New parses the description (see ParseDescription) and prepares a graph
// for the input format of cfg.
func New(
	ctx context.Context,
	description string,
	cfg Config,
) (_ *Graph, _err error) {
	logger.Debugf(ctx, "filter.New(ctx, '%s', %#+v)", description, cfg)
	defer func() { logger.Debugf(ctx, "/filter.New(ctx, '%s'): %v", description, _err) }()

	cfg, err := cfg.WithDefaults()
	if err != nil {
		return nil, err
	}

	stages, err := ParseDescription(description)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		description: description,
		config:      cfg,
		stages:      stages,
		inFormat: AudioFormat{
			SampleFormat:  cfg.SampleFormat,
			SampleRate:    cfg.SampleRate,
			ChannelLayout: cfg.ChannelLayout.Clone(),
		},
		nextPts: types.NoPTSValue,
	}
	g.Source = &Source{graph: g}
	g.Sink = &Sink{graph: g}
	return g, nil
}

func (g *Graph) String() string {
	names := make([]string, 0, len(g.stages))
	for _, s := range g.stages {
		names = append(names, s.String())
	}
	return strings.Join(names, ",")
}

// Configure finalizes the graph; it is called implicitly by the first
// Source.Add or Sink pull. The negotiation knobs cannot change afterwards.
func (g *Graph) Configure(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Configure")
	defer func() { logger.Tracef(ctx, "/Configure: %v", _err) }()
	return xsync.DoA1R1(ctx, &g.locker, g.configure, ctx)
}

func (g *Graph) configure(ctx context.Context) error {
	if g.configured {
		return fmt.Errorf("%w: the filter graph is already configured", types.ErrInvalidData)
	}
	f := g.inFormat
	for _, stage := range g.stages {
		var err error
		f, err = stage.Configure(ctx, f)
		if err != nil {
			return fmt.Errorf("unable to configure '%s': %w", stage, err)
		}
	}

	conv := newConversionStage(g.config.SampleFormats, g.config.SampleRates, g.config.ChannelLayouts)
	if !conv.accepts(f) {
		var err error
		f, err = conv.Configure(ctx, f)
		if err != nil {
			return fmt.Errorf("unable to configure the output conversion: %w", err)
		}
		g.stages = append(g.stages, conv)
	}

	if g.config.FrameSize > 0 {
		s := &setNSamplesStage{n: g.config.FrameSize}
		f, _ = s.Configure(ctx, f)
		g.stages = append(g.stages, s)
	}

	g.outFormat = f
	g.configured = true
	logger.Debugf(ctx, "configured the filter graph '%s': %s -> %s", g, g.inFormat, g.outFormat)
	return nil
}

func (g *Graph) configureIfNeeded(ctx context.Context) error {
	if g.configured {
		return nil
	}
	return g.configure(ctx)
}

// Add pushes a copy of the reference to f into the graph.
func (s *Source) Add(ctx context.Context, f *frame.Frame) (_err error) {
	logger.Tracef(ctx, "Add")
	defer func() { logger.Tracef(ctx, "/Add: %v", _err) }()
	return xsync.DoA2R1(ctx, &s.graph.locker, s.graph.add, ctx, f)
}

func (g *Graph) add(ctx context.Context, f *frame.Frame) error {
	if g.flushed {
		return types.ErrEOF
	}
	if f.IsEmpty() {
		return fmt.Errorf("%w: an empty frame", types.ErrInvalidData)
	}
	if err := g.configureIfNeeded(ctx); err != nil {
		return err
	}
	if f.SampleFormat != g.inFormat.SampleFormat ||
		f.SampleRate != g.inFormat.SampleRate ||
		f.ChannelLayout.Channels() != g.inFormat.ChannelLayout.Channels() {
		return fmt.Errorf(
			"%w: the frame format %s:%d:%s differs from the configured %s",
			types.ErrInvalidData, f.SampleFormat, f.SampleRate, f.ChannelLayout, g.inFormat,
		)
	}
	if len(g.input) >= g.config.QueueDepth {
		return types.ErrBusy
	}
	g.input = append(g.input, frame.CloneAsReferenced(f))
	return nil
}

// Flush marks the end of the input; held data is released by later pulls.
func (s *Source) Flush(ctx context.Context) error {
	logger.Debugf(ctx, "filter source flush")
	s.graph.locker.Do(ctx, func() {
		s.graph.flushed = true
	})
	return nil
}

func (g *Graph) processInput(ctx context.Context) error {
	f := g.input[0]
	g.input[0] = nil
	g.input = g.input[1:]
	defer frame.Pool.Put(f)

	pts := g.nextPts
	if f.Pts != types.NoPTSValue {
		tb := f.TimeBase
		if !tb.IsValid() || tb.IsZero() {
			tb = g.config.TimeBase
		}
		pts = types.Rescale(f.Pts, tb, g.inFormat.TimeBase())
	}
	if pts == types.NoPTSValue {
		pts = 0
	}
	c, err := chunkFromFrame(f, pts)
	if err != nil {
		return err
	}
	g.nextPts = pts + int64(c.nbSamples())
	return g.runStages(ctx, 0, []*chunk{c})
}

func (g *Graph) runStages(ctx context.Context, from int, chunks []*chunk) error {
	for _, stage := range g.stages[from:] {
		var next []*chunk
		for _, c := range chunks {
			out, err := stage.Process(ctx, c)
			if err != nil {
				return fmt.Errorf("'%s' failed: %w", stage, err)
			}
			next = append(next, out...)
		}
		chunks = next
	}
	for _, c := range chunks {
		if c.nbSamples() > 0 {
			g.output = append(g.output, c)
		}
	}
	return nil
}

func (g *Graph) flushStages(ctx context.Context) error {
	for idx, stage := range g.stages {
		tail, err := stage.Flush(ctx)
		if err != nil {
			return fmt.Errorf("unable to flush '%s': %w", stage, err)
		}
		if err := g.runStages(ctx, idx+1, tail); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) pull(ctx context.Context) (*chunk, error) {
	if err := g.configureIfNeeded(ctx); err != nil {
		return nil, err
	}
	for len(g.output) == 0 {
		switch {
		case len(g.input) > 0:
			if err := g.processInput(ctx); err != nil {
				return nil, err
			}
		case g.flushed && !g.stagesFlushed:
			g.stagesFlushed = true
			if err := g.flushStages(ctx); err != nil {
				return nil, err
			}
		case g.stagesFlushed:
			return nil, types.ErrEOF
		default:
			return nil, types.ErrEmpty
		}
	}
	c := g.output[0]
	g.output[0] = nil
	g.output = g.output[1:]
	return c, nil
}

// Frame pulls whatever the graph has ready into out.
func (s *Sink) Frame(ctx context.Context, out *frame.Frame) (_err error) {
	logger.Tracef(ctx, "Frame")
	defer func() { logger.Tracef(ctx, "/Frame: %v", _err) }()
	return xsync.DoA2R1(ctx, &s.graph.locker, s.graph.frame, ctx, out)
}

func (g *Graph) frame(ctx context.Context, out *frame.Frame) error {
	c := g.partial
	g.partial = nil
	if c == nil || c.nbSamples() == 0 {
		var err error
		c, err = g.pull(ctx)
		if err != nil {
			return err
		}
	}
	return c.toFrame(g.outFormat, out)
}

// Samples pulls exactly n samples into out. Partial data stays buffered
// and ErrEmpty is returned until enough samples accumulate; after
// Source.Flush the last frame may be shorter.
func (s *Sink) Samples(ctx context.Context, out *frame.Frame, n int) (_err error) {
	logger.Tracef(ctx, "Samples(%d)", n)
	defer func() { logger.Tracef(ctx, "/Samples(%d): %v", n, _err) }()
	return xsync.DoA3R1(ctx, &s.graph.locker, s.graph.samples, ctx, out, n)
}

func (g *Graph) samples(ctx context.Context, out *frame.Frame, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: the number of samples must be positive, got %d", types.ErrInvalidData, n)
	}
	for g.partial == nil || g.partial.nbSamples() < n {
		c, err := g.pull(ctx)
		if errors.Is(err, types.ErrEOF) && g.partial != nil && g.partial.nbSamples() > 0 {
			tail := g.partial
			g.partial = nil
			return tail.toFrame(g.outFormat, out)
		}
		if err != nil {
			return err
		}
		if g.partial == nil {
			g.partial = c
			continue
		}
		g.partial.append(c)
	}
	return g.partial.split(n).toFrame(g.outFormat, out)
}

func (s *Sink) setKnob(ctx context.Context, name string, fn func(cfg *Config)) error {
	return xsync.DoR1(ctx, &s.graph.locker, func() error {
		if s.graph.configured {
			return fmt.Errorf("%w: cannot set %s: the filter graph is already configured", types.ErrInvalidData, name)
		}
		fn(&s.graph.config)
		return nil
	})
}

func (s *Sink) SetSampleFormats(ctx context.Context, formats ...types.SampleFormat) error {
	return s.setKnob(ctx, "sample formats", func(cfg *Config) { cfg.SampleFormats = formats })
}

func (s *Sink) SetSampleRates(ctx context.Context, rates ...int) error {
	return s.setKnob(ctx, "sample rates", func(cfg *Config) { cfg.SampleRates = rates })
}

func (s *Sink) SetChannelLayouts(ctx context.Context, layouts ...channellayout.Layout) error {
	return s.setKnob(ctx, "channel layouts", func(cfg *Config) { cfg.ChannelLayouts = layouts })
}

func (s *Sink) SetFrameSize(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative frame size %d", types.ErrInvalidData, n)
	}
	return s.setKnob(ctx, "frame size", func(cfg *Config) { cfg.FrameSize = n })
}

// Format returns the output format; it is final after Graph.Configure.
func (s *Sink) Format(ctx context.Context) AudioFormat {
	return xsync.DoR1(ctx, &s.graph.locker, func() AudioFormat {
		if !s.graph.configured {
			return AudioFormat{}
		}
		return s.graph.outFormat
	})
}

func (s *Sink) TimeBase(ctx context.Context) types.Rational {
	f := s.Format(ctx)
	if f.SampleRate <= 0 {
		return types.Rational{}
	}
	return f.TimeBase()
}
