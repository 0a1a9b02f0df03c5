// sample_format.go defines audio sample formats and their memory layout.

package types

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SampleFormat numbering follows libavutil's AVSampleFormat.
type SampleFormat int

const (
	SampleFormatNone = SampleFormat(-1)
	SampleFormatU8   = SampleFormat(0)
	SampleFormatS16  = SampleFormat(1)
	SampleFormatS32  = SampleFormat(2)
	SampleFormatFLT  = SampleFormat(3)
	SampleFormatDBL  = SampleFormat(4)
	SampleFormatU8P  = SampleFormat(5)
	SampleFormatS16P = SampleFormat(6)
	SampleFormatS32P = SampleFormat(7)
	SampleFormatFLTP = SampleFormat(8)
	SampleFormatDBLP = SampleFormat(9)
	SampleFormatS64  = SampleFormat(10)
	SampleFormatS64P = SampleFormat(11)
)

var sampleFormatNames = map[SampleFormat]string{
	SampleFormatU8:   "u8",
	SampleFormatS16:  "s16",
	SampleFormatS32:  "s32",
	SampleFormatFLT:  "flt",
	SampleFormatDBL:  "dbl",
	SampleFormatU8P:  "u8p",
	SampleFormatS16P: "s16p",
	SampleFormatS32P: "s32p",
	SampleFormatFLTP: "fltp",
	SampleFormatDBLP: "dblp",
	SampleFormatS64:  "s64",
	SampleFormatS64P: "s64p",
}

func SampleFormatFromString(s string) (SampleFormat, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for f, name := range sampleFormatNames {
		if name == s {
			return f, nil
		}
	}
	return SampleFormatNone, fmt.Errorf("unsupported sample format '%s'", s)
}

func (f SampleFormat) String() string {
	if name, ok := sampleFormatNames[f]; ok {
		return name
	}
	if f == SampleFormatNone {
		return "none"
	}
	return fmt.Sprintf("SampleFormat(%d)", int(f))
}

func (f SampleFormat) IsValid() bool {
	_, ok := sampleFormatNames[f]
	return ok
}

// BytesPerSample returns the size of one sample of one channel.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatU8, SampleFormatU8P:
		return 1
	case SampleFormatS16, SampleFormatS16P:
		return 2
	case SampleFormatS32, SampleFormatS32P, SampleFormatFLT, SampleFormatFLTP:
		return 4
	case SampleFormatDBL, SampleFormatDBLP, SampleFormatS64, SampleFormatS64P:
		return 8
	}
	return 0
}

// IsPlanar reports whether every channel is stored in its own plane.
func (f SampleFormat) IsPlanar() bool {
	switch f {
	case SampleFormatU8P, SampleFormatS16P, SampleFormatS32P,
		SampleFormatFLTP, SampleFormatDBLP, SampleFormatS64P:
		return true
	}
	return false
}

// Packed returns the interleaved counterpart of a planar format.
func (f SampleFormat) Packed() SampleFormat {
	switch f {
	case SampleFormatU8P:
		return SampleFormatU8
	case SampleFormatS16P:
		return SampleFormatS16
	case SampleFormatS32P:
		return SampleFormatS32
	case SampleFormatFLTP:
		return SampleFormatFLT
	case SampleFormatDBLP:
		return SampleFormatDBL
	case SampleFormatS64P:
		return SampleFormatS64
	}
	return f
}

// Planar returns the planar counterpart of an interleaved format.
func (f SampleFormat) Planar() SampleFormat {
	switch f {
	case SampleFormatU8:
		return SampleFormatU8P
	case SampleFormatS16:
		return SampleFormatS16P
	case SampleFormatS32:
		return SampleFormatS32P
	case SampleFormatFLT:
		return SampleFormatFLTP
	case SampleFormatDBL:
		return SampleFormatDBLP
	case SampleFormatS64:
		return SampleFormatS64P
	}
	return f
}

// PlaneSizes returns the byte size of every plane holding nbSamples
// samples of channels channels.
func (f SampleFormat) PlaneSizes(channels, nbSamples int) []int {
	if !f.IsValid() || channels <= 0 || nbSamples < 0 {
		return nil
	}
	if f.IsPlanar() {
		sizes := make([]int, channels)
		for i := range sizes {
			sizes[i] = nbSamples * f.BytesPerSample()
		}
		return sizes
	}
	return []int{nbSamples * channels * f.BytesPerSample()}
}

func (f SampleFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *SampleFormat) UnmarshalText(b []byte) error {
	v, err := SampleFormatFromString(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f SampleFormat) MarshalYAML() (any, error) {
	return f.String(), nil
}

func (f *SampleFormat) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("unable to decode SampleFormat: %w", err)
	}
	return f.UnmarshalText([]byte(s))
}
