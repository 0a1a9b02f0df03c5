package filter

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/logger"
)

// Node is a configured filter buffer node, whatever implements it. Add and
// Flush are its source pad, Frame is its sink pad; the flow control is
// the one of Source and Sink.
type Node interface {
	fmt.Stringer
	Add(ctx context.Context, f *frame.Frame) error
	Flush(ctx context.Context) error
	Frame(ctx context.Context, out *frame.Frame) error
	OutputFormat(ctx context.Context) AudioFormat
	Close(ctx context.Context) error
}

// Factory builds configured nodes.
type Factory interface {
	NewNode(ctx context.Context, description string, cfg Config) (Node, error)
}

// BuiltinFactory builds Graph-s, which need nothing but Go.
type BuiltinFactory struct{}

var _ Factory = BuiltinFactory{}

func (BuiltinFactory) NewNode(
	ctx context.Context,
	description string,
	cfg Config,
) (Node, error) {
	g, err := New(ctx, description, cfg)
	if err != nil {
		return nil, err
	}
	if err := g.Configure(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

var _ Node = (*Graph)(nil)

func (g *Graph) Add(ctx context.Context, f *frame.Frame) error {
	return g.Source.Add(ctx, f)
}

func (g *Graph) Flush(ctx context.Context) error {
	return g.Source.Flush(ctx)
}

func (g *Graph) Frame(ctx context.Context, out *frame.Frame) error {
	return g.Sink.Frame(ctx, out)
}

func (g *Graph) OutputFormat(ctx context.Context) AudioFormat {
	return g.Sink.Format(ctx)
}

// Close drops everything the graph still holds; later calls of Add
// return types.ErrEOF.
func (g *Graph) Close(ctx context.Context) error {
	logger.Debugf(ctx, "closing the filter graph '%s'", g)
	g.locker.Do(ctx, func() {
		for _, f := range g.input {
			frame.Pool.Put(f)
		}
		g.input = nil
		g.output = nil
		g.partial = nil
		g.flushed = true
		g.stagesFlushed = true
	})
	return nil
}
