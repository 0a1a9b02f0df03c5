package frame

import (
	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/types"
)

// NewAudio returns a frame with zeroed planes for nbSamples samples.
func NewAudio(
	sampleFormat types.SampleFormat,
	sampleRate int,
	layout channellayout.Layout,
	nbSamples int,
) (*Frame, error) {
	f := New()
	f.SampleFormat = sampleFormat
	f.SampleRate = sampleRate
	f.ChannelLayout = layout.Clone()
	f.NbSamples = nbSamples
	if sampleRate > 0 {
		f.TimeBase = types.NewRational(1, int32(sampleRate))
	}
	if err := f.AllocBuffer(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewVideo returns a frame with zeroed planes.
func NewVideo(
	pixelFormat types.PixelFormat,
	width, height int,
) (*Frame, error) {
	f := New()
	f.PixelFormat = pixelFormat
	f.Width = width
	f.Height = height
	f.SampleAspectRatio = types.NewRational(1, 1)
	if err := f.AllocBuffer(); err != nil {
		return nil, err
	}
	return f, nil
}
