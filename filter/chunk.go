package filter

import (
	"fmt"

	"github.com/xaionaro-go/avrecode/audio"
	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/types"
)

// AudioFormat is what flows between two stages.
type AudioFormat struct {
	SampleFormat  types.SampleFormat
	SampleRate    int
	ChannelLayout channellayout.Layout
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%s:%d:%s", f.SampleFormat, f.SampleRate, f.ChannelLayout)
}

func (f AudioFormat) TimeBase() types.Rational {
	return types.NewRational(1, int32(f.SampleRate))
}

func (f AudioFormat) Equal(other AudioFormat) bool {
	return f.SampleFormat == other.SampleFormat &&
		f.SampleRate == other.SampleRate &&
		f.ChannelLayout.Equal(other.ChannelLayout)
}

// chunk is a run of samples, one float64 slice per channel, with the pts
// of its first sample in 1/SampleRate.
type chunk struct {
	samples [][]float64
	pts     int64
}

func (c *chunk) nbSamples() int {
	if len(c.samples) == 0 {
		return 0
	}
	return len(c.samples[0])
}

func chunkFromFrame(f *frame.Frame, pts int64) (*chunk, error) {
	c := &chunk{
		samples: make([][]float64, f.ChannelLayout.Channels()),
		pts:     pts,
	}
	for ch := range c.samples {
		samples, err := audio.ExtractSamples(f, ch)
		if err != nil {
			return nil, fmt.Errorf("unable to extract channel #%d: %w", ch, err)
		}
		c.samples[ch] = samples
	}
	return c, nil
}

// toFrame writes c into out, replacing its previous content.
func (c *chunk) toFrame(format AudioFormat, out *frame.Frame) error {
	out.Unref()
	out.SampleFormat = format.SampleFormat
	out.SampleRate = format.SampleRate
	out.ChannelLayout = format.ChannelLayout.Clone()
	out.NbSamples = c.nbSamples()
	if err := out.AllocBuffer(); err != nil {
		return err
	}
	for ch, samples := range c.samples {
		if err := audio.FillSamples(out, ch, samples); err != nil {
			return fmt.Errorf("unable to fill channel #%d: %w", ch, err)
		}
	}
	out.TimeBase = format.TimeBase()
	out.Pts = c.pts
	out.Duration = int64(out.NbSamples)
	return nil
}

// split cuts the first n samples off c.
func (c *chunk) split(n int) *chunk {
	head := &chunk{
		samples: make([][]float64, len(c.samples)),
		pts:     c.pts,
	}
	for ch := range c.samples {
		head.samples[ch] = c.samples[ch][:n:n]
		c.samples[ch] = c.samples[ch][n:]
	}
	if c.pts != types.NoPTSValue {
		c.pts += int64(n)
	}
	return head
}

func (c *chunk) append(other *chunk) {
	if c.pts == types.NoPTSValue {
		c.pts = other.pts
	}
	for ch := range c.samples {
		c.samples[ch] = append(c.samples[ch], other.samples[ch]...)
	}
}

func newChunk(channels int, pts int64) *chunk {
	return &chunk{
		samples: make([][]float64, channels),
		pts:     pts,
	}
}
