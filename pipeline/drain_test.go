package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/codec/pcm"
	"github.com/xaionaro-go/avrecode/format"
	"github.com/xaionaro-go/avrecode/types"
)

func drainStepsWithout(names ...string) []drainStep {
	var result []drainStep
	for _, step := range drainSequence {
		skip := false
		for _, name := range names {
			if step.Name == name {
				skip = true
			}
		}
		if !skip {
			result = append(result, step)
		}
	}
	return result
}

func reorderedDrainSteps(order ...string) []drainStep {
	var result []drainStep
	for _, name := range order {
		for _, step := range drainSequence {
			if step.Name == name {
				result = append(result, step)
			}
		}
	}
	return result
}

func TestDrainOrder(t *testing.T) {
	t.Parallel()

	// 500 samples through an encoder taking 160-sample frames: 20 samples
	// stay in the filter until it is flushed.
	for _, tc := range []struct {
		name        string
		steps       []drainStep
		wantSamples int
		wantErr     error
	}{
		{
			name:        "full",
			steps:       drainSequence,
			wantSamples: 500,
		},
		{
			name:        "without_filter_flush",
			steps:       drainStepsWithout("filter.Flush"),
			wantSamples: 480,
		},
		{
			name: "encoder_eof_before_filter",
			steps: reorderedDrainSteps(
				"decoder.SendEOF", "decoder.drain",
				"encoder.SendEOF",
				"filter.Flush", "filter.drain",
				"encoder.drain",
			),
			wantErr: types.ErrEOF,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
			muxer := format.NewMemoryMuxer()
			tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{FrameSize: 160}), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 5, 100, 1)), muxer, Config{})
			require.NoError(t, err)
			defer tr.Close(ctx)

			for {
				streamIndex, pkt, err := tr.Demuxer.ReadPacket(ctx)
				if errors.Is(err, types.ErrEOF) {
					break
				}
				require.NoError(t, err)
				require.NoError(t, tr.ProcessPacket(ctx, streamIndex, pkt))
			}

			err = tr.drain(ctx, tc.steps)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, muxer.WriteTrailer(ctx))
			require.Len(t, outputBytes(ctx, muxer), tc.wantSamples*2)

			packets := muxer.Packets(ctx)
			for idx, pkt := range packets {
				if idx < len(packets)-1 {
					require.Equal(t, 160*2, pkt.Size())
				}
			}
		})
	}
}

func TestDrainIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	stream := audioStream(0, pcm.IDS16LE, types.SampleFormatS16, 8000, channellayout.Default(1))
	muxer := format.NewMemoryMuxer()
	tr, err := NewTranscoder(ctx, newRegistry(pcm.Config{Delay: 2}), newDemuxer(t, []*format.Stream{stream}, s16Packets(0, 5, 100, 1)), muxer, Config{})
	require.NoError(t, err)
	defer tr.Close(ctx)

	for {
		streamIndex, pkt, err := tr.Demuxer.ReadPacket(ctx)
		if errors.Is(err, types.ErrEOF) {
			break
		}
		require.NoError(t, err)
		require.NoError(t, tr.ProcessPacket(ctx, streamIndex, pkt))
	}
	require.Len(t, outputBytes(ctx, muxer), 3*100*2)

	require.NoError(t, tr.Drain(ctx))
	require.NoError(t, tr.Drain(ctx))
	require.NoError(t, muxer.WriteTrailer(ctx))
	require.Len(t, outputBytes(ctx, muxer), 5*100*2)
}
