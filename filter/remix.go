package filter

import (
	"math"

	"github.com/xaionaro-go/avrecode/channellayout"
)

const minusThreeDB = math.Sqrt2 / 2

// remixMatrix returns the gains matrix[out][in] converting between layouts.
//
// Channels present in both layouts are copied. Missing channels are folded
// into their neighbours: center into left+right, surround into the
// front side, left+right into center. LFE is dropped when the output has
// none. A row whose gains sum above 1 is normalized to 1. Layouts without
// channel identities are mapped by position.
func remixMatrix(in, out channellayout.Layout) [][]float64 {
	nbIn, nbOut := in.Channels(), out.Channels()
	m := make([][]float64, nbOut)
	for i := range m {
		m[i] = make([]float64, nbIn)
	}

	if in.Order() == channellayout.OrderUnspecified || out.Order() == channellayout.OrderUnspecified {
		for i := 0; i < nbOut && i < nbIn; i++ {
			m[i][i] = 1
		}
		return m
	}

	has := func(ch channellayout.Channel) bool {
		return out.IndexOf(ch) >= 0
	}
	add := func(ch channellayout.Channel, inIdx int, gain float64) bool {
		outIdx := out.IndexOf(ch)
		if outIdx < 0 {
			return false
		}
		m[outIdx][inIdx] += gain
		return true
	}
	addPair := func(l, r channellayout.Channel, inIdx int, gain float64) bool {
		if !has(l) || !has(r) {
			return false
		}
		add(l, inIdx, gain)
		add(r, inIdx, gain)
		return true
	}

	monoIn := nbIn == 1 && in.ChannelAt(0) == channellayout.ChannelFrontCenter
	for inIdx := 0; inIdx < nbIn; inIdx++ {
		ch := in.ChannelAt(inIdx)
		if add(ch, inIdx, 1) {
			continue
		}
		switch ch {
		case channellayout.ChannelFrontCenter:
			gain := minusThreeDB
			if monoIn {
				gain = 1
			}
			addPair(channellayout.ChannelFrontLeft, channellayout.ChannelFrontRight, inIdx, gain)
		case channellayout.ChannelFrontLeft, channellayout.ChannelFrontRight:
			add(channellayout.ChannelFrontCenter, inIdx, minusThreeDB)
		case channellayout.ChannelLowFrequency:
		case channellayout.ChannelBackLeft, channellayout.ChannelSideLeft:
			foldSide(ch, inIdx, channellayout.ChannelBackLeft, channellayout.ChannelSideLeft, channellayout.ChannelFrontLeft, add)
		case channellayout.ChannelBackRight, channellayout.ChannelSideRight:
			foldSide(ch, inIdx, channellayout.ChannelBackRight, channellayout.ChannelSideRight, channellayout.ChannelFrontRight, add)
		case channellayout.ChannelBackCenter:
			switch {
			case addPair(channellayout.ChannelBackLeft, channellayout.ChannelBackRight, inIdx, minusThreeDB):
			case addPair(channellayout.ChannelSideLeft, channellayout.ChannelSideRight, inIdx, minusThreeDB):
			case addPair(channellayout.ChannelFrontLeft, channellayout.ChannelFrontRight, inIdx, 0.5):
			default:
				add(channellayout.ChannelFrontCenter, inIdx, minusThreeDB)
			}
		default:
			if !ch.IsNative() && inIdx < nbOut {
				m[inIdx][inIdx] = 1
			}
		}
	}

	for _, row := range m {
		var sum float64
		for _, g := range row {
			sum += g
		}
		if sum > 1 {
			for i := range row {
				row[i] /= sum
			}
		}
	}
	return m
}

// foldSide moves a back (side) channel to the side (back) one, then to
// the front of the same side, then to the center.
func foldSide(
	ch channellayout.Channel,
	inIdx int,
	back, side, front channellayout.Channel,
	add func(channellayout.Channel, int, float64) bool,
) {
	sibling := side
	if ch == side {
		sibling = back
	}
	switch {
	case add(sibling, inIdx, 1):
	case add(front, inIdx, minusThreeDB):
	default:
		add(channellayout.ChannelFrontCenter, inIdx, minusThreeDB/2)
	}
}

func applyRemix(m [][]float64, in *chunk) *chunk {
	out := newChunk(len(m), in.pts)
	n := in.nbSamples()
	for o, row := range m {
		samples := make([]float64, n)
		for i, gain := range row {
			if gain == 0 {
				continue
			}
			for s, v := range in.samples[i] {
				samples[s] += v * gain
			}
		}
		out.samples[o] = samples
	}
	return out
}

func isIdentity(m [][]float64) bool {
	for o, row := range m {
		if len(row) != len(m) {
			return false
		}
		for i, g := range row {
			if (i == o && g != 1) || (i != o && g != 0) {
				return false
			}
		}
	}
	return true
}
