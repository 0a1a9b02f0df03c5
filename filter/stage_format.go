package filter

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/logger"
	"github.com/xaionaro-go/avrecode/types"
)

// formatStage converts to the first acceptable sample format, sample
// rate and channel layout. An empty list accepts anything.
type formatStage struct {
	name           string
	sampleFormats  []types.SampleFormat
	sampleRates    []int
	channelLayouts []channellayout.Layout

	in, out   AudioFormat
	remix     [][]float64
	resampler *linearResampler
}

var _ Stage = (*formatStage)(nil)

func newFormatStage(args stageArgs) (Stage, error) {
	s := &formatStage{name: "aformat"}
	if v, ok := args.get("sample_fmts", 0); ok {
		for _, name := range splitList(v) {
			f, err := types.SampleFormatFromString(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
			}
			s.sampleFormats = append(s.sampleFormats, f)
		}
	}
	if v, ok := args.get("sample_rates", 1); ok {
		for _, name := range splitList(v) {
			rate, err := parseRate(name)
			if err != nil {
				return nil, err
			}
			s.sampleRates = append(s.sampleRates, rate)
		}
	}
	if v, ok := args.get("channel_layouts", 2); ok {
		for _, name := range splitList(v) {
			l, err := channellayout.FromName(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
			}
			s.channelLayouts = append(s.channelLayouts, l)
		}
	}
	return s, nil
}

func newResampleStage(args stageArgs) (Stage, error) {
	s := &formatStage{name: "aresample"}
	v, ok := args.get("osr", 0)
	if !ok {
		return s, nil
	}
	rate, err := parseRate(v)
	if err != nil {
		return nil, err
	}
	s.sampleRates = []int{rate}
	return s, nil
}

// newConversionStage converts to what the sink accepts.
func newConversionStage(
	sampleFormats []types.SampleFormat,
	sampleRates []int,
	channelLayouts []channellayout.Layout,
) *formatStage {
	return &formatStage{
		name:           "auto_convert",
		sampleFormats:  sampleFormats,
		sampleRates:    sampleRates,
		channelLayouts: channelLayouts,
	}
}

func splitList(s string) []string {
	var result []string
	for _, item := range strings.Split(s, "|") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

func parseRate(s string) (int, error) {
	rate, err := strconv.Atoi(s)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("%w: invalid sample rate '%s'", types.ErrInvalidData, s)
	}
	return rate, nil
}

func (s *formatStage) String() string {
	if s.out.SampleRate == 0 {
		return s.name
	}
	return fmt.Sprintf("%s(%s->%s)", s.name, s.in, s.out)
}

func (s *formatStage) accepts(f AudioFormat) bool {
	return (len(s.sampleFormats) == 0 || slices.Contains(s.sampleFormats, f.SampleFormat)) &&
		(len(s.sampleRates) == 0 || slices.Contains(s.sampleRates, f.SampleRate)) &&
		(len(s.channelLayouts) == 0 || containsLayout(s.channelLayouts, f.ChannelLayout))
}

func containsLayout(layouts []channellayout.Layout, l channellayout.Layout) bool {
	for _, candidate := range layouts {
		if candidate.Equal(l) {
			return true
		}
	}
	return false
}

func (s *formatStage) Configure(ctx context.Context, in AudioFormat) (AudioFormat, error) {
	out := in
	if len(s.sampleFormats) > 0 && !slices.Contains(s.sampleFormats, in.SampleFormat) {
		out.SampleFormat = pickSampleFormat(s.sampleFormats, in.SampleFormat)
	}
	if len(s.sampleRates) > 0 && !slices.Contains(s.sampleRates, in.SampleRate) {
		out.SampleRate = pickSampleRate(s.sampleRates, in.SampleRate)
	}
	if len(s.channelLayouts) > 0 && !containsLayout(s.channelLayouts, in.ChannelLayout) {
		out.ChannelLayout = pickChannelLayout(s.channelLayouts, in.ChannelLayout.Channels())
	}
	s.in, s.out = in, out

	s.remix = nil
	if m := remixMatrix(in.ChannelLayout, out.ChannelLayout); !isIdentity(m) {
		s.remix = m
	}
	s.resampler = nil
	if in.SampleRate != out.SampleRate {
		s.resampler = newLinearResampler(out.ChannelLayout.Channels(), in.SampleRate, out.SampleRate)
	}
	logger.Debugf(ctx, "%s: remix:%t resample:%t", s, s.remix != nil, s.resampler != nil)
	return out, nil
}

// pickSampleFormat prefers a format with the same sample type.
func pickSampleFormat(candidates []types.SampleFormat, in types.SampleFormat) types.SampleFormat {
	for _, f := range candidates {
		if f.Packed() == in.Packed() {
			return f
		}
	}
	return candidates[0]
}

// pickSampleRate returns the closest rate, preferring the higher one.
func pickSampleRate(candidates []int, in int) int {
	best := candidates[0]
	for _, rate := range candidates[1:] {
		d, bestD := abs(rate-in), abs(best-in)
		if d < bestD || (d == bestD && rate > best) {
			best = rate
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// pickChannelLayout returns the largest candidate not exceeding
// maxChannels, or the smallest one if none fits.
func pickChannelLayout(candidates []channellayout.Layout, maxChannels int) channellayout.Layout {
	if best := channellayout.Best(candidates, maxChannels); containsLayout(candidates, best) {
		return best
	}
	smallest := candidates[0]
	for _, l := range candidates[1:] {
		if l.Channels() < smallest.Channels() {
			smallest = l
		}
	}
	return smallest.Clone()
}

func (s *formatStage) Process(_ context.Context, in *chunk) ([]*chunk, error) {
	if len(in.samples) != s.in.ChannelLayout.Channels() {
		return nil, types.ErrBug{Message: fmt.Sprintf("%s: got %d channels instead of %d", s, len(in.samples), s.in.ChannelLayout.Channels())}
	}
	c := in
	if s.remix != nil {
		c = applyRemix(s.remix, c)
	}
	if s.resampler != nil {
		c = s.resampler.push(c)
		if c == nil {
			return nil, nil
		}
	}
	return []*chunk{c}, nil
}

func (s *formatStage) Flush(context.Context) ([]*chunk, error) {
	if s.resampler == nil {
		return nil, nil
	}
	if c := s.resampler.flush(); c != nil {
		return []*chunk{c}, nil
	}
	return nil, nil
}
