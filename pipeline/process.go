package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/xsync"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/filter"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/internal"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/packet"
	"github.com/xaionaro-go/avrecode/types"
)

// ProcessPacket pushes one demuxed packet through the chain; packets of
// other streams are skipped. Timestamps are expected in the time base of
// the input stream. The caller keeps the ownership of pkt.
func (t *Transcoder) ProcessPacket(
	ctx context.Context,
	streamIndex int,
	pkt *packet.Packet,
) (_err error) {
	logger.Tracef(ctx, "ProcessPacket(ctx, %d, %s)", streamIndex, pkt)
	defer func() { logger.Tracef(ctx, "/ProcessPacket(ctx, %d, %s): %v", streamIndex, pkt, _err) }()
	return xsync.DoA3R1(ctx, &t.locker, t.processPacket, ctx, streamIndex, pkt)
}

func (t *Transcoder) processPacket(
	ctx context.Context,
	streamIndex int,
	pkt *packet.Packet,
) error {
	if streamIndex != t.inputStream.Index {
		t.statistics.PacketsSkipped.Inc()
		return nil
	}
	t.statistics.PacketsRead.Inc()
	t.config.Metrics.observeUnit(stageRead)

	pkt = packet.CloneAsReferenced(pkt)
	defer packet.Pool.Put(pkt)
	pkt.RescaleTs(t.inputStream.TimeBase, t.decoderTB)

	for {
		err := t.decoder.SendPacket(ctx, pkt)
		if errors.Is(err, types.ErrBusy) {
			t.busyRetry(stageDecoder)
			if err := t.drainDecoder(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("unable to send the packet to the decoder: %w", err)
		}
		break
	}
	return t.drainDecoder(ctx)
}

func (t *Transcoder) busyRetry(stage string) {
	t.statistics.BusyRetries.Inc()
	t.config.Metrics.observeBusy(stage)
}

// drainDecoder passes every frame the decoder has ready further down.
func (t *Transcoder) drainDecoder(ctx context.Context) error {
	f := frame.Pool.Get()
	defer frame.Pool.Put(f)
	for {
		f.Unref()
		err := t.decoder.ReceiveFrame(ctx, f)
		switch {
		case errors.Is(err, types.ErrEmpty), errors.Is(err, types.ErrEOF):
			return nil
		case err != nil:
			return fmt.Errorf("unable to receive a frame from the decoder: %w", err)
		}
		t.statistics.FramesDecoded.Inc()
		t.config.Metrics.observeUnit(stageDecoder)

		f.Pts = f.BestEffortTimestamp
		if err := t.pushDecodedFrame(ctx, f); err != nil {
			return err
		}
	}
}

func (t *Transcoder) pushDecodedFrame(ctx context.Context, f *frame.Frame) error {
	if !t.filterDecided {
		if err := t.initFilter(ctx, f); err != nil {
			return err
		}
	}
	if t.filter == nil {
		return t.sendToEncoder(ctx, f)
	}

	for {
		err := t.filter.Add(ctx, f)
		if errors.Is(err, types.ErrBusy) {
			t.busyRetry(stageFilter)
			if err := t.drainFilter(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("unable to push the frame to the filter: %w", err)
		}
		break
	}
	return t.drainFilter(ctx)
}

// initFilter builds the filter from the format of the first decoded frame;
// without a description the filter is only inserted when the encoder
// cannot take the frames as they are.
func (t *Transcoder) initFilter(ctx context.Context, f *frame.Frame) error {
	t.filterDecided = true

	encFrameSize := t.encoder.FrameSize()
	sameFormat := f.SampleFormat == t.encoder.SampleFormat() &&
		f.SampleRate == t.encoder.SampleRate() &&
		f.ChannelLayout.Equal(t.encoder.ChannelLayout())
	if t.config.FilterDescription == "" && sameFormat && encFrameSize == 0 {
		logger.Debugf(ctx, "no filter is needed")
		return nil
	}

	tb := f.TimeBase
	if !tb.IsValid() || tb.IsZero() {
		tb = t.decoderTB
	}
	node, err := t.config.filterFactory().NewNode(ctx, t.config.FilterDescription, filter.Config{
		SampleFormat:   f.SampleFormat,
		SampleRate:     f.SampleRate,
		ChannelLayout:  f.ChannelLayout,
		TimeBase:       tb,
		SampleFormats:  []types.SampleFormat{t.encoder.SampleFormat()},
		SampleRates:    []int{t.encoder.SampleRate()},
		ChannelLayouts: []channellayout.Layout{t.encoder.ChannelLayout()},
		FrameSize:      encFrameSize,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize the filter '%s': %w", t.config.FilterDescription, err)
	}
	logger.Debugf(ctx, "filter: %s -> %s", node, node.OutputFormat(ctx))
	t.filter = node
	return nil
}

// drainFilter passes every frame the filter has ready to the encoder.
func (t *Transcoder) drainFilter(ctx context.Context) error {
	if t.filter == nil {
		return nil
	}
	f := frame.Pool.Get()
	defer frame.Pool.Put(f)
	for {
		f.Unref()
		err := t.filter.Frame(ctx, f)
		switch {
		case errors.Is(err, types.ErrEmpty), errors.Is(err, types.ErrEOF):
			return nil
		case err != nil:
			return fmt.Errorf("unable to pull a frame from the filter: %w", err)
		}
		t.statistics.FramesFiltered.Inc()
		t.config.Metrics.observeUnit(stageFilter)
		if err := t.sendToEncoder(ctx, f); err != nil {
			return err
		}
	}
}

func (t *Transcoder) sendToEncoder(ctx context.Context, f *frame.Frame) error {
	encTB := t.encoder.TimeBase()
	if f.TimeBase.IsValid() && !f.TimeBase.IsZero() && !f.TimeBase.Equal(encTB) {
		if f.Pts != types.NoPTSValue {
			f.Pts = types.Rescale(f.Pts, f.TimeBase, encTB)
		}
		f.Duration = types.Rescale(f.Duration, f.TimeBase, encTB)
	}
	f.TimeBase = encTB

	for {
		err := t.encoder.SendFrame(ctx, f)
		if errors.Is(err, types.ErrBusy) {
			t.busyRetry(stageEncoder)
			if err := t.drainEncoder(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("unable to send the frame to the encoder: %w", err)
		}
		break
	}
	return t.drainEncoder(ctx)
}

// drainEncoder writes every packet the encoder has ready.
func (t *Transcoder) drainEncoder(ctx context.Context) error {
	pkt := packet.Pool.Get()
	defer packet.Pool.Put(pkt)
	for {
		pkt.Unref()
		err := t.encoder.ReceivePacket(ctx, pkt)
		switch {
		case errors.Is(err, types.ErrEmpty), errors.Is(err, types.ErrEOF):
			return nil
		case err != nil:
			return fmt.Errorf("unable to receive a packet from the encoder: %w", err)
		}
		t.statistics.PacketsEncoded.Inc()
		t.config.Metrics.observeUnit(stageEncoder)

		encTB := t.encoder.TimeBase()
		internal.Assert(ctx, encTB.IsValid() && !encTB.IsZero(), "encoder time base", encTB)
		pkt.RescaleTs(encTB, t.outputStream.TimeBase())
		pkt.StreamIndex = t.outputStream.Index()
		size := pkt.Size()
		if err := t.Muxer.WriteInterleaved(ctx, pkt); err != nil {
			return fmt.Errorf("unable to write the packet: %w", err)
		}
		t.statistics.BytesWritten.Add(uint64(size))
		t.config.Metrics.observeWritten(size)
	}
}
