package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/observability"

	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

// Run reads the demuxer to its end, drains the chain and writes the
// trailer. A cancelled ctx stops the loop between packets; the output is
// left without a trailer in that case.
func (t *Transcoder) Run(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Run: %s", t)
	defer func() { logger.Debugf(ctx, "/Run: %s: %v (%s)", t, _err, t.Statistics()) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		streamIndex, pkt, err := t.Demuxer.ReadPacket(ctx)
		if errors.Is(err, types.ErrEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("unable to read a packet: %w", err)
		}
		err = t.ProcessPacket(ctx, streamIndex, pkt)
		packet.Pool.Put(pkt)
		if err != nil {
			return err
		}
	}

	if err := t.Drain(ctx); err != nil {
		return err
	}
	if err := t.Muxer.WriteTrailer(ctx); err != nil {
		return fmt.Errorf("unable to write the trailer: %w", err)
	}
	return nil
}

// ServeAsync runs Run in the background; the returned channel yields its
// result and is closed afterwards.
func (t *Transcoder) ServeAsync(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	observability.Go(ctx, func(ctx context.Context) {
		defer close(errCh)
		errCh <- t.Run(ctx)
	})
	return errCh
}
