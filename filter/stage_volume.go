package filter

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xaionaro-go/avrecode/types"
)

type volumeStage struct {
	gain float64
}

var _ Stage = (*volumeStage)(nil)

// newVolumeStage accepts a linear gain ("0.5") or decibels ("-6dB").
func newVolumeStage(args stageArgs) (Stage, error) {
	s, ok := args.get("volume", 0)
	if !ok {
		return &volumeStage{gain: 1}, nil
	}
	var isDB bool
	if trimmed, found := strings.CutSuffix(strings.ToLower(s), "db"); found {
		s, isDB = trimmed, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid volume '%s': %v", types.ErrInvalidData, s, err)
	}
	if isDB {
		v = math.Pow(10, v/20)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: invalid volume %v", types.ErrInvalidData, v)
	}
	return &volumeStage{gain: v}, nil
}

func (s *volumeStage) String() string {
	return fmt.Sprintf("volume=%g", s.gain)
}

func (s *volumeStage) Configure(_ context.Context, in AudioFormat) (AudioFormat, error) {
	return in, nil
}

func (s *volumeStage) Process(_ context.Context, in *chunk) ([]*chunk, error) {
	if s.gain != 1 {
		for _, samples := range in.samples {
			for i := range samples {
				samples[i] *= s.gain
			}
		}
	}
	return []*chunk{in}, nil
}

func (s *volumeStage) Flush(context.Context) ([]*chunk, error) {
	return nil, nil
}
