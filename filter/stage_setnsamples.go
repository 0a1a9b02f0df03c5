package filter

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avrecode/types"
)

// setNSamplesStage re-chunks the stream into runs of exactly n samples.
// The last run is shorter unless padding is enabled.
type setNSamplesStage struct {
	n       int
	pad     bool
	pending *chunk
}

var _ Stage = (*setNSamplesStage)(nil)

func newSetNSamplesStage(args stageArgs) (Stage, error) {
	n, ok, err := args.getInt("n", 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		n = 1024
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: the number of samples must be positive, got %d", types.ErrInvalidData, n)
	}
	pad, _, err := args.getInt("p", 1)
	if err != nil {
		return nil, err
	}
	return &setNSamplesStage{n: n, pad: pad != 0}, nil
}

func (s *setNSamplesStage) String() string {
	return fmt.Sprintf("asetnsamples=n=%d:p=%d", s.n, boolToInt(s.pad))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *setNSamplesStage) Configure(_ context.Context, in AudioFormat) (AudioFormat, error) {
	s.pending = nil
	return in, nil
}

func (s *setNSamplesStage) Process(_ context.Context, in *chunk) ([]*chunk, error) {
	if s.pending == nil {
		s.pending = newChunk(len(in.samples), in.pts)
	}
	s.pending.append(in)
	var result []*chunk
	for s.pending.nbSamples() >= s.n {
		result = append(result, s.pending.split(s.n))
	}
	return result, nil
}

func (s *setNSamplesStage) Flush(context.Context) ([]*chunk, error) {
	if s.pending == nil || s.pending.nbSamples() == 0 {
		return nil, nil
	}
	tail := s.pending
	s.pending = nil
	if s.pad {
		missing := s.n - tail.nbSamples()
		for ch := range tail.samples {
			tail.samples[ch] = append(tail.samples[ch], make([]float64, missing)...)
		}
	}
	return []*chunk{tail}, nil
}
