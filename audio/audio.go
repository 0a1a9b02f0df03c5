// Package audio converts between raw audio planes and normalized float64
// samples in [-1, 1].
package audio

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/xaionaro-go/avrecode/frame"
	"github.com/xaionaro-go/avrecode/types"
)

func view[T any](plane []byte) []T {
	var zero T
	n := len(plane) / int(unsafe.Sizeof(zero))
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&plane[0])), n)
}

// location returns the plane, the first index and the stride of a channel.
func location(f *frame.Frame, channel int) ([]byte, int, int, error) {
	channels := f.ChannelLayout.Channels()
	if channel < 0 || channel >= channels {
		return nil, 0, 0, fmt.Errorf("channel %d is out of range [0, %d)", channel, channels)
	}
	if f.SampleFormat.IsPlanar() {
		return f.Data(channel), 0, 1, nil
	}
	return f.Data(0), channel, channels, nil
}

// ExtractSamples extracts samples from a specific channel of an audio frame.
func ExtractSamples(f *frame.Frame, channel int) ([]float64, error) {
	plane, start, stride, err := location(f, channel)
	if err != nil {
		return nil, err
	}
	nbSamples := f.NbSamples
	res := make([]float64, nbSamples)
	if len(plane) == 0 {
		return res, nil
	}
	if need := (start + (nbSamples-1)*stride + 1) * f.SampleFormat.BytesPerSample(); nbSamples > 0 && len(plane) < need {
		return nil, fmt.Errorf("the plane is too short: %d < %d", len(plane), need)
	}

	switch f.SampleFormat.Packed() {
	case types.SampleFormatU8:
		samples := view[uint8](plane)
		for i := range nbSamples {
			res[i] = (float64(samples[start+i*stride]) - 128) / 128.0
		}
	case types.SampleFormatS16:
		samples := view[int16](plane)
		for i := range nbSamples {
			res[i] = float64(samples[start+i*stride]) / 32768.0
		}
	case types.SampleFormatS32:
		samples := view[int32](plane)
		for i := range nbSamples {
			res[i] = float64(samples[start+i*stride]) / 2147483648.0
		}
	case types.SampleFormatS64:
		samples := view[int64](plane)
		for i := range nbSamples {
			res[i] = float64(samples[start+i*stride]) / 9223372036854775808.0
		}
	case types.SampleFormatFLT:
		samples := view[float32](plane)
		for i := range nbSamples {
			res[i] = float64(samples[start+i*stride])
		}
	case types.SampleFormatDBL:
		samples := view[float64](plane)
		for i := range nbSamples {
			res[i] = samples[start+i*stride]
		}
	default:
		return nil, fmt.Errorf("unsupported sample format: %v", f.SampleFormat)
	}
	return res, nil
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// FillSamples fills a specific channel of an audio frame with samples.
// The frame has to be writable.
func FillSamples(f *frame.Frame, channel int, samples []float64) error {
	plane, start, stride, err := location(f, channel)
	if err != nil {
		return err
	}
	if len(plane) == 0 {
		return nil
	}
	if len(samples) > f.NbSamples {
		samples = samples[:f.NbSamples]
	}
	if len(samples) == 0 {
		return nil
	}
	if need := (start + (len(samples)-1)*stride + 1) * f.SampleFormat.BytesPerSample(); len(plane) < need {
		return fmt.Errorf("the plane is too short: %d < %d", len(plane), need)
	}

	switch f.SampleFormat.Packed() {
	case types.SampleFormatU8:
		out := view[uint8](plane)
		for i, sample := range samples {
			out[start+i*stride] = uint8(quantize(sample, 128, math.MaxInt8) + 128)
		}
	case types.SampleFormatS16:
		out := view[int16](plane)
		for i, sample := range samples {
			out[start+i*stride] = int16(quantize(sample, 32768, math.MaxInt16))
		}
	case types.SampleFormatS32:
		out := view[int32](plane)
		for i, sample := range samples {
			out[start+i*stride] = int32(quantize(sample, 2147483648.0, math.MaxInt32))
		}
	case types.SampleFormatS64:
		out := view[int64](plane)
		for i, sample := range samples {
			out[start+i*stride] = quantize(sample, 9223372036854775808.0, math.MaxInt64)
		}
	case types.SampleFormatFLT:
		out := view[float32](plane)
		for i, sample := range samples {
			out[start+i*stride] = float32(sample)
		}
	case types.SampleFormatDBL:
		out := view[float64](plane)
		for i, sample := range samples {
			out[start+i*stride] = sample
		}
	default:
		return fmt.Errorf("unsupported sample format: %v", f.SampleFormat)
	}
	return nil
}

// quantize is the inverse of the scaling in ExtractSamples, so integer
// samples survive a round trip through float64 unchanged.
func quantize(sample, scale float64, maxValue int64) int64 {
	v := math.Round(clamp(sample) * scale)
	if v >= float64(maxValue) {
		return maxValue
	}
	return int64(v)
}
