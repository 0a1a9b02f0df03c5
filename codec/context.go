// context.go implements the push/pull state machine shared by decoders and encoders.

package codec

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/types"
	"github.com/xaionaro-go/xsync"
)

type State int

const (
	StateUnopened = State(iota)
	StateOpen
	StateDraining
	StateFlushed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	case StateFlushed:
		return "flushed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNotOpen is returned when a unit is sent to or received from a context
// that is not open.
type ErrNotOpen struct {
	State State
}

func (e ErrNotOpen) Error() string {
	return fmt.Sprintf("the coder context is %s", e.State)
}

func (e ErrNotOpen) Unwrap() error {
	return types.ErrInvalidData
}

// Context is one coder instance:
//
//	Unopened -Open-> Open -SendEOF-> Draining -(receive returns EOF)-> Flushed
//
// A Flushed context stays Flushed (every receive returns types.ErrEOF) until
// Flush brings it back to Open. A Context is not meant to be used from
// several goroutines at once; the internal lock only keeps the state
// consistent.
type Context struct {
	locker    xsync.Mutex
	isEncoder bool
	codec     *Codec
	coder     Coder
	params    *Parameters
	state     State
	stats     statistics
}

// NewContext returns an unopened context for the given direction.
func NewContext(isEncoder bool) *Context {
	return &Context{isEncoder: isEncoder}
}

func (c *Context) String() string {
	direction := "Decoder"
	if c.isEncoder {
		direction = "Encoder"
	}
	if c.codec == nil {
		return direction + "(<unopened>)"
	}
	return fmt.Sprintf("%s(%s)", direction, c.codec.Name)
}

func (c *Context) IsEncoder() bool {
	return c.isEncoder
}

func (c *Context) State(ctx context.Context) State {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() State {
		return c.state
	})
}

// Codec returns the codec the context was opened with.
func (c *Context) Codec() *Codec {
	return c.codec
}

// Parameters returns a copy of the parameters the coder was opened with.
func (c *Context) Parameters(ctx context.Context) *Parameters {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() *Parameters {
		return c.params.Clone()
	})
}

// Open allocates and opens the coder of codec with params.
//
// It fails with types.ErrCodecNotFound if codec is nil, with
// types.ErrInvalidData if the codec works in the other direction and with
// types.ErrUnsupported if params are outside what the codec declares.
func (c *Context) Open(
	ctx context.Context,
	codec *Codec,
	params *Parameters,
) (_err error) {
	logger.Tracef(ctx, "Open(ctx, %s, %s)", codec, params)
	defer func() { logger.Tracef(ctx, "/Open(ctx, %s, %s): %v", codec, params, _err) }()
	return xsync.DoA3R1(xsync.WithNoLogging(ctx, true), &c.locker, c.openLocked, ctx, codec, params)
}

func (c *Context) openLocked(
	ctx context.Context,
	codec *Codec,
	params *Parameters,
) (_err error) {
	if c.state != StateUnopened {
		return fmt.Errorf("%w: the context is already %s", types.ErrInvalidData, c.state)
	}
	if codec == nil {
		return types.ErrCodecNotFound{IsEncoder: c.isEncoder}
	}
	if codec.IsEncoder != c.isEncoder {
		return fmt.Errorf("%w: %s cannot be opened as %s", types.ErrInvalidData, codec, c.directionName())
	}
	if params == nil {
		params = NewParameters()
	}
	params = params.Clone()
	if params.MediaType == types.MediaTypeUnknown {
		params.MediaType = codec.MediaType
	}
	if params.CodecID == "" {
		params.CodecID = codec.ID
	}
	if err := codec.ValidateParameters(params); err != nil {
		return fmt.Errorf("unable to open %s: %w", codec, err)
	}
	if codec.NewCoder == nil {
		return types.ErrBug{Message: fmt.Sprintf("%s has no coder constructor", codec)}
	}

	coder, err := codec.NewCoder(ctx, codec)
	if err != nil {
		return fmt.Errorf("unable to allocate the coder of %s: %w", codec, asIOError(err))
	}
	if err := c.checkDirection(coder); err != nil {
		return err
	}
	defer func() {
		if _err != nil {
			if err := coder.Close(ctx); err != nil {
				logger.Errorf(ctx, "unable to close the coder of %s: %v", codec, err)
			}
		}
	}()
	if err := coder.Configure(ctx, params); err != nil {
		return fmt.Errorf("unable to configure %s: %w", codec, err)
	}
	if err := coder.Open(ctx); err != nil {
		return fmt.Errorf("unable to open %s: %w", codec, asIOError(err))
	}
	if reporter, ok := coder.(ParametersReporter); ok {
		if reported := reporter.Parameters(ctx); reported != nil {
			params = reported.Clone()
		}
	}

	c.codec = codec
	c.coder = coder
	c.params = params
	c.state = StateOpen
	logger.Debugf(ctx, "opened %s: %s", codec, params)
	return nil
}

func (c *Context) directionName() string {
	if c.isEncoder {
		return "an encoder"
	}
	return "a decoder"
}

func (c *Context) checkDirection(coder Coder) error {
	if c.isEncoder {
		if _, ok := coder.(EncoderCoder); !ok {
			return types.ErrBug{Message: fmt.Sprintf("coder %T does not implement EncoderCoder", coder)}
		}
		return nil
	}
	if _, ok := coder.(DecoderCoder); !ok {
		return types.ErrBug{Message: fmt.Sprintf("coder %T does not implement DecoderCoder", coder)}
	}
	return nil
}

// asIOError marks errors outside of the taxonomy as I/O (resource) errors.
func asIOError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrUnsupported{}),
		errors.Is(err, types.ErrCodecNotFound{}),
		errors.Is(err, types.ErrIO{}),
		errors.Is(err, types.ErrBug{}),
		types.IsFlowControl(err):
		return err
	}
	return types.ErrIO{Err: err}
}

// send implements the input half of the protocol; sendFn talks to the coder.
func (c *Context) send(
	ctx context.Context,
	isEOF bool,
	sendFn func() error,
) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() error {
		switch c.state {
		case StateOpen:
		case StateDraining, StateFlushed:
			if isEOF {
				return nil
			}
			return types.ErrEOF
		default:
			return ErrNotOpen{State: c.state}
		}

		err := sendFn()
		switch {
		case err == nil:
			if isEOF {
				c.state = StateDraining
			} else {
				c.stats.Sent.Inc()
			}
			return nil
		case errors.Is(err, types.ErrBusy):
			c.stats.Busy.Inc()
			return types.ErrBusy
		case errors.Is(err, types.ErrEOF):
			c.state = StateDraining
			return types.ErrEOF
		default:
			c.stats.Errors.Inc()
			return err
		}
	})
}

// receive implements the output half of the protocol; receiveFn talks to
// the coder.
func (c *Context) receive(
	ctx context.Context,
	receiveFn func() error,
) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() error {
		switch c.state {
		case StateOpen, StateDraining:
		case StateFlushed:
			return types.ErrEOF
		default:
			return ErrNotOpen{State: c.state}
		}

		err := receiveFn()
		switch {
		case err == nil:
			c.stats.Received.Inc()
			return nil
		case errors.Is(err, types.ErrEmpty):
			c.stats.Empty.Inc()
			return types.ErrEmpty
		case errors.Is(err, types.ErrEOF):
			if c.state == StateOpen {
				logger.Warnf(ctx, "%s reported the end of the stream before it was signaled", c.codec)
			}
			c.state = StateFlushed
			return types.ErrEOF
		default:
			c.stats.Errors.Inc()
			return err
		}
	})
}

// SendEOF signals the end of the input: Open becomes Draining.
// Calling it again is a no-op.
func (c *Context) SendEOF(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "SendEOF: %s", c)
	defer func() { logger.Tracef(ctx, "/SendEOF: %s: %v", c, _err) }()
	return c.send(ctx, true, func() error {
		if c.isEncoder {
			coder, ok := c.coder.(EncoderCoder)
			if !ok {
				return types.ErrBug{Message: fmt.Sprintf("coder %T does not implement EncoderCoder", c.coder)}
			}
			return coder.SendFrame(ctx, nil)
		}
		coder, ok := c.coder.(DecoderCoder)
		if !ok {
			return types.ErrBug{Message: fmt.Sprintf("coder %T does not implement DecoderCoder", c.coder)}
		}
		return coder.SendPacket(ctx, nil)
	})
}

// Flush discards everything buffered and returns the context to Open.
// Encoders support it only with CapEncoderFlush.
func (c *Context) Flush(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Flush: %s", c)
	defer func() { logger.Tracef(ctx, "/Flush: %s: %v", c, _err) }()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() error {
		switch c.state {
		case StateOpen, StateDraining, StateFlushed:
		default:
			return ErrNotOpen{State: c.state}
		}
		if c.isEncoder && !c.codec.Capabilities.Has(CapEncoderFlush) {
			return types.ErrUnsupported{Property: "flush", Value: c.codec.Name}
		}
		if err := c.coder.Flush(ctx); err != nil {
			return fmt.Errorf("unable to flush %s: %w", c.codec, err)
		}
		c.state = StateOpen
		c.stats.Flushes.Inc()
		return nil
	})
}

// Close releases the coder; buffered units are abandoned.
func (c *Context) Close(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Close: %s", c)
	defer func() { logger.Tracef(ctx, "/Close: %s: %v", c, _err) }()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() error {
		if c.state == StateClosed {
			return nil
		}
		c.state = StateClosed
		if c.coder == nil {
			return nil
		}
		return c.coder.Close(ctx)
	})
}

func (c *Context) Statistics() Statistics {
	return c.stats.Snapshot()
}
