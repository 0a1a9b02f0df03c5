package filter

import (
	"github.com/xaionaro-go/avrecode/types"
)

// linearResampler converts the sample rate by linear interpolation.
//
// Output sample k sits at input position k*inRate/outRate; positions are
// kept as integer fractions so long streams do not drift.
type linearResampler struct {
	inRate  int64
	outRate int64

	buf      [][]float64
	bufStart int64 // input index of buf[*][0]
	consumed int64 // input samples received
	produced int64 // output samples emitted
	startPts int64
	started  bool
}

func newLinearResampler(channels, inRate, outRate int) *linearResampler {
	return &linearResampler{
		inRate:   int64(inRate),
		outRate:  int64(outRate),
		buf:      make([][]float64, channels),
		startPts: types.NoPTSValue,
	}
}

func (r *linearResampler) push(in *chunk) *chunk {
	if !r.started {
		r.started = true
		if in.pts != types.NoPTSValue {
			r.startPts = types.Rescale(in.pts, types.NewRational(1, int32(r.inRate)), types.NewRational(1, int32(r.outRate)))
		}
	}
	for ch := range r.buf {
		r.buf[ch] = append(r.buf[ch], in.samples[ch]...)
	}
	r.consumed += int64(in.nbSamples())
	return r.emit(false)
}

// flush emits the tail so the output covers the whole input duration.
func (r *linearResampler) flush() *chunk {
	return r.emit(true)
}

func (r *linearResampler) emit(final bool) *chunk {
	var limit int64
	if final {
		limit = (r.consumed*r.outRate + r.inRate - 1) / r.inRate
	}
	out := newChunk(len(r.buf), types.NoPTSValue)
	if r.startPts != types.NoPTSValue {
		out.pts = r.startPts + r.produced
	}
	for {
		pos := r.produced * r.inRate
		idx := pos / r.outRate
		frac := float64(pos%r.outRate) / float64(r.outRate)
		if final {
			if r.produced >= limit {
				break
			}
		} else if idx+1 >= r.consumed {
			break
		}
		local := idx - r.bufStart
		for ch, samples := range r.buf {
			a := samples[min(local, int64(len(samples)-1))]
			b := a
			if local+1 < int64(len(samples)) {
				b = samples[local+1]
			}
			out.samples[ch] = append(out.samples[ch], a+(b-a)*frac)
		}
		r.produced++
	}

	// keep from the input sample needed by the next output on
	drop := r.produced*r.inRate/r.outRate - r.bufStart
	if drop > 0 {
		for ch := range r.buf {
			if drop >= int64(len(r.buf[ch])) {
				r.buf[ch] = r.buf[ch][:0]
				continue
			}
			r.buf[ch] = append(r.buf[ch][:0], r.buf[ch][drop:]...)
		}
		r.bufStart += drop
	}
	if out.nbSamples() == 0 {
		return nil
	}
	return out
}
