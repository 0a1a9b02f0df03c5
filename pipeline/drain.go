package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/xsync"

	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/types"
)

type drainStep struct {
	Name string
	Do   func(t *Transcoder, ctx context.Context) error
}

// drainSequence is the order the end of the stream is propagated in. Each
// stage is drained completely before the next one is told the stream
// ended, otherwise the units still held by the filter are lost.
var drainSequence = []drainStep{
	{Name: "decoder.SendEOF", Do: (*Transcoder).sendDecoderEOF},
	{Name: "decoder.drain", Do: (*Transcoder).drainDecoder},
	{Name: "filter.Flush", Do: (*Transcoder).flushFilter},
	{Name: "filter.drain", Do: (*Transcoder).drainFilter},
	{Name: "encoder.SendEOF", Do: (*Transcoder).sendEncoderEOF},
	{Name: "encoder.drain", Do: (*Transcoder).drainEncoder},
}

// Drain flushes everything held by the decoder, the filter and the encoder
// into the muxer. The trailer is not written. Draining twice is a no-op.
func (t *Transcoder) Drain(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Drain")
	defer func() { logger.Debugf(ctx, "/Drain: %v", _err) }()
	return xsync.DoA2R1(ctx, &t.locker, t.drain, ctx, drainSequence)
}

func (t *Transcoder) drain(ctx context.Context, steps []drainStep) error {
	if t.drained.Load() {
		return nil
	}
	startedAt := time.Now()
	for _, step := range steps {
		logger.Tracef(ctx, "drain step '%s'", step.Name)
		if err := step.Do(t, ctx); err != nil {
			return fmt.Errorf("drain step '%s' failed: %w", step.Name, err)
		}
	}
	t.config.Metrics.observeDrain(time.Since(startedAt))
	t.drained.Store(true)
	close(*xatomic.SwapPointer(&t.changeChanDrained, ptr(make(chan struct{}))))
	return nil
}

func (t *Transcoder) sendDecoderEOF(ctx context.Context) error {
	return ignoreEOF(t.decoder.SendEOF(ctx))
}

func (t *Transcoder) flushFilter(ctx context.Context) error {
	if t.filter == nil {
		return nil
	}
	return ignoreEOF(t.filter.Flush(ctx))
}

// sendEncoderEOF retries the end of stream the same way sendToEncoder
// retries a frame: a busy encoder is emptied first.
func (t *Transcoder) sendEncoderEOF(ctx context.Context) error {
	for {
		err := t.encoder.SendEOF(ctx)
		if !errors.Is(err, types.ErrBusy) {
			return ignoreEOF(err)
		}
		t.busyRetry(stageEncoder)
		if err := t.drainEncoder(ctx); err != nil {
			return err
		}
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, types.ErrEOF) {
		return nil
	}
	return err
}

// IsDrained reports whether Drain has completed.
func (t *Transcoder) IsDrained(ctx context.Context) bool {
	return t.drained.Load()
}

// DrainedChan returns a channel closed once Drain completes.
func (t *Transcoder) DrainedChan() <-chan struct{} {
	return *xatomic.LoadPointer(&t.changeChanDrained)
}
